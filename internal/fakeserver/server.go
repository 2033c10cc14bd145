// Package fakeserver scripts the server side of a session over an in-memory
// pipe. Tests use it to drive the client stack without a real server.
package fakeserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/clientcontext"
	"github.com/sessamekesh/universe-client/pkg/handshake"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/transport"
	"go.uber.org/zap"
)

type Params struct {
	ProtocolVersion uint32
	Extended        bool

	// Password, when set, makes the server issue a challenge with Salt.
	Password string
	Salt     []byte

	// RejectReason, when set, answers the connect request with a failure.
	RejectReason string
	// IgnoreProtocol and IgnoreConnect leave the matching request unanswered.
	IgnoreProtocol bool
	IgnoreConnect  bool

	ClientId   uint16
	ServerUuid uuid.UUID
	Celestial  celestial.BaseInformation
	// AfterConnect is sent in the same batch as ConnectSuccess.
	AfterConnect []message.Packet

	Logger *zap.Logger
}

type Server struct {
	Conn    *transport.Connection
	Context *clientcontext.ServerContext

	// Connect is the client's connect request, once received.
	Connect *message.ClientConnect
	// Accepted reports whether ConnectSuccess was sent.
	Accepted bool

	params  Params
	pending []message.Packet
}

type Result struct {
	Server *Server
	Err    error
}

// Start runs the server half of the handshake in a goroutine. The returned
// socket is the client's end of the pipe.
func Start(ctx context.Context, params Params) (transport.Socket, <-chan Result) {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.ProtocolVersion == 0 {
		params.ProtocolVersion = handshake.ProtocolVersion
	}
	if params.ServerUuid == uuid.Nil {
		params.ServerUuid = uuid.New()
	}

	clientEnd, serverEnd := transport.CreatePipe(1024)
	s := &Server{
		Conn: transport.CreateConnection(serverEnd, transport.ConnectionParams{
			Logger: params.Logger.With(zap.String("side", "server")),
		}),
		Context: clientcontext.CreateServerContext(params.Logger),
		params:  params,
	}

	done := make(chan Result, 1)
	go func() {
		err := s.handshake(ctx)
		done <- Result{Server: s, Err: err}
	}()
	return clientEnd, done
}

func (s *Server) handshake(ctx context.Context) error {
	request, err := Expect[*message.ProtocolRequest](ctx, s)
	if err != nil {
		return err
	}
	if s.params.IgnoreProtocol {
		return nil
	}
	if request.Version != s.params.ProtocolVersion {
		return s.Send(&message.ProtocolResponse{Allowed: false, Info: "version mismatch"})
	}

	compression := request.Extended && s.params.Extended
	if err := s.Send(&message.ProtocolResponse{Allowed: true, Extended: s.params.Extended}); err != nil {
		return err
	}
	if err := s.Conn.SetCompression(compression); err != nil {
		return err
	}

	if s.Connect, err = Expect[*message.ClientConnect](ctx, s); err != nil {
		return err
	}
	if s.params.IgnoreConnect {
		return nil
	}

	if s.params.Password != "" {
		if err := s.Send(&message.HandshakeChallenge{PasswordSalt: s.params.Salt}); err != nil {
			return err
		}
		response, err := Expect[*message.HandshakeResponse](ctx, s)
		if err != nil {
			return err
		}
		want := handshake.PasswordHash(s.params.Password, s.Connect.Account, s.params.Salt)
		if !bytes.Equal(response.PasswordHash, want) {
			return s.Send(&message.ConnectFailure{Reason: "Incorrect password"})
		}
	}

	if s.params.RejectReason != "" {
		return s.Send(&message.ConnectFailure{Reason: s.params.RejectReason})
	}

	s.Context.SetShipUpgrades(s.Connect.ShipUpgrades)
	s.Accepted = true
	return s.Send(append([]message.Packet{&message.ConnectSuccess{
		ClientId:   s.params.ClientId,
		ServerUuid: s.params.ServerUuid,
		Celestial:  s.params.Celestial,
	}}, s.params.AfterConnect...)...)
}

// Send flushes packets to the client as one batch.
func (s *Server) Send(packets ...message.Packet) error {
	s.Conn.Push(packets...)
	return s.Conn.SendAll()
}

// SendContext pushes the current server context state to the client.
func (s *Server) SendContext() error {
	data := s.Context.WriteUpdate()
	if data == nil {
		return nil
	}
	return s.Send(&message.ClientContextUpdate{Data: data})
}

// Drain returns everything the client sent that no Expect consumed yet,
// without blocking.
func (s *Server) Drain() ([]message.Packet, error) {
	packets, err := s.Conn.Pull()
	out := append(s.pending, packets...)
	s.pending = nil
	return out, err
}

// Expect waits for the next packet of type T. Packets of other types are
// kept for Drain.
func Expect[T message.Packet](ctx context.Context, s *Server) (T, error) {
	var zero T
	for {
		for i, p := range s.pending {
			if match, ok := p.(T); ok {
				s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
				return match, nil
			}
		}

		packets, err := s.Conn.ReceiveAny(ctx)
		if err != nil {
			return zero, fmt.Errorf("waiting for %T: %w", zero, err)
		}
		s.pending = append(s.pending, packets...)
	}
}
