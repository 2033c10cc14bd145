package transport

import (
	"sync"

	"github.com/sessamekesh/universe-client/pkg/errors"
)

type pipeShared struct {
	once sync.Once
	done chan struct{}

	mut_err sync.RWMutex
	err     error
}

type pipeSocket struct {
	incoming chan []byte
	peer     *pipeSocket
	shared   *pipeShared
}

// CreatePipe returns two connected in-memory sockets. Each end buffers up to
// bufLen frames before WriteFrame on the other end blocks.
func CreatePipe(bufLen int) (Socket, Socket) {
	shared := &pipeShared{done: make(chan struct{})}
	a := &pipeSocket{incoming: make(chan []byte, bufLen), shared: shared}
	b := &pipeSocket{incoming: make(chan []byte, bufLen), shared: shared}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *pipeSocket) WriteFrame(frame []byte) error {
	// Closure wins over a free buffer slot.
	select {
	case <-p.shared.done:
		return &errors.ConnectionClosed{Reason: "pipe closed"}
	default:
	}

	frame = append([]byte(nil), frame...)
	select {
	case <-p.shared.done:
		return &errors.ConnectionClosed{Reason: "pipe closed"}
	case p.peer.incoming <- frame:
		return nil
	}
}

func (p *pipeSocket) Frames() <-chan []byte {
	return p.incoming
}

func (p *pipeSocket) Done() <-chan struct{} {
	return p.shared.done
}

func (p *pipeSocket) Err() error {
	p.shared.mut_err.RLock()
	defer p.shared.mut_err.RUnlock()
	return p.shared.err
}

func (p *pipeSocket) Close() error {
	p.CloseWithError(nil)
	return nil
}

// CloseWithError closes both ends; the peer observes err from Err.
func (p *pipeSocket) CloseWithError(err error) {
	p.shared.once.Do(func() {
		p.shared.mut_err.Lock()
		p.shared.err = err
		p.shared.mut_err.Unlock()
		close(p.shared.done)
	})
}
