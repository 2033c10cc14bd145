package clientcontext

import (
	"fmt"

	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"go.uber.org/zap"
)

// Promise is the pending result of a remote call. It is resolved while the
// context applies an update, on the same goroutine that owns the context.
type Promise struct {
	method   string
	finished bool
	result   []byte
	err      error
}

func (p *Promise) Method() string {
	return p.method
}

func (p *Promise) Finished() bool {
	return p.finished
}

func (p *Promise) Succeeded() bool {
	return p.finished && p.err == nil
}

// Result returns the call's payload once finished. Before that it returns
// nil, nil.
func (p *Promise) Result() ([]byte, error) {
	return p.result, p.err
}

func (p *Promise) resolve(result []byte, err error) {
	p.finished = true
	p.result = result
	p.err = err
}

// Handler serves a call made by the peer.
type Handler func(args []byte) ([]byte, error)

type rpcRequest struct {
	id     uint64
	method string
	args   []byte
}

type rpcResponse struct {
	id      uint64
	ok      bool
	payload []byte
	message string
}

// rpcTable multiplexes calls in both directions over the context update
// channel. Requests and responses are queued until the next update is written.
type rpcTable struct {
	logger *zap.Logger

	nextId   uint64
	awaiting map[uint64]*Promise
	handlers map[string]Handler

	outRequests  []rpcRequest
	outResponses []rpcResponse
}

func newRpcTable(logger *zap.Logger) *rpcTable {
	return &rpcTable{
		logger:   logger,
		awaiting: make(map[uint64]*Promise),
		handlers: make(map[string]Handler),
	}
}

func (t *rpcTable) register(method string, handler Handler) error {
	if _, has := t.handlers[method]; has {
		return &errors.NameCollision{
			CollisionContext: "RpcHandlers",
			Name:             method,
		}
	}
	t.handlers[method] = handler
	return nil
}

func (t *rpcTable) invoke(method string, args []byte) *Promise {
	t.nextId++
	p := &Promise{method: method}
	t.awaiting[t.nextId] = p
	t.outRequests = append(t.outRequests, rpcRequest{id: t.nextId, method: method, args: args})
	return p
}

func (t *rpcTable) hasPending() bool {
	return len(t.outRequests) > 0 || len(t.outResponses) > 0
}

func (t *rpcTable) write(w *datastream.Writer) {
	w.WriteVarUint(uint64(len(t.outRequests)))
	for _, req := range t.outRequests {
		w.WriteVarUint(req.id)
		w.WriteString(req.method)
		w.WriteBytes(req.args)
	}
	w.WriteVarUint(uint64(len(t.outResponses)))
	for _, res := range t.outResponses {
		w.WriteVarUint(res.id)
		w.WriteBool(res.ok)
		if res.ok {
			w.WriteBytes(res.payload)
		} else {
			w.WriteString(res.message)
		}
	}
	t.outRequests = nil
	t.outResponses = nil
}

func (t *rpcTable) read(r *datastream.Reader) error {
	numRequests := r.ReadVarUint()
	for i := uint64(0); i < numRequests && r.Err() == nil; i++ {
		req := rpcRequest{
			id:     r.ReadVarUint(),
			method: r.ReadString(),
			args:   r.ReadBytes(),
		}
		if r.Err() != nil {
			break
		}
		t.serve(req)
	}

	numResponses := r.ReadVarUint()
	for i := uint64(0); i < numResponses && r.Err() == nil; i++ {
		res := rpcResponse{id: r.ReadVarUint(), ok: r.ReadBool()}
		if res.ok {
			res.payload = r.ReadBytes()
		} else {
			res.message = r.ReadString()
		}
		if r.Err() != nil {
			break
		}

		p, has := t.awaiting[res.id]
		if !has {
			t.logger.Warn("Response for unknown remote call", zap.Uint64("id", res.id))
			continue
		}
		delete(t.awaiting, res.id)
		if res.ok {
			p.resolve(res.payload, nil)
		} else {
			p.resolve(nil, &errors.RpcFailure{Method: p.method, Message: res.message})
		}
	}

	return r.Err()
}

func (t *rpcTable) serve(req rpcRequest) {
	handler, has := t.handlers[req.method]
	if !has {
		t.outResponses = append(t.outResponses, rpcResponse{
			id:      req.id,
			message: fmt.Sprintf("no handler for %s", req.method),
		})
		return
	}

	payload, err := handler(req.args)
	if err != nil {
		t.outResponses = append(t.outResponses, rpcResponse{id: req.id, message: err.Error()})
		return
	}
	t.outResponses = append(t.outResponses, rpcResponse{id: req.id, ok: true, payload: payload})
}

// abandon fails every outstanding call. Used when the session ends.
func (t *rpcTable) abandon(reason string) {
	for id, p := range t.awaiting {
		p.resolve(nil, &errors.RpcFailure{Method: p.method, Message: reason})
		delete(t.awaiting, id)
	}
	t.outRequests = nil
	t.outResponses = nil
}
