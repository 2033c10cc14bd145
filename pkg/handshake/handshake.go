// Package handshake establishes a session with a universe server: protocol
// negotiation, the connect request, an optional password challenge and the
// server's verdict. Every round trip is bounded by the configured timeout.
package handshake

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/clientcontext"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/transport"
	"go.uber.org/zap"
	"lukechampine.com/blake3"
)

const (
	ProtocolVersion uint32 = 747

	DefaultTimeout = 60 * time.Second
)

type Config struct {
	// ProtocolVersion defaults to the package constant.
	ProtocolVersion uint32
	Timeout         time.Duration
	// Compression offers compressed framing to the server. It is used only
	// when the server offers it back.
	Compression bool

	AssetsDigest        []byte
	AllowAssetsMismatch bool

	Player        player.Identity
	ShipChunks    []byte
	ShipUpgrades  clientcontext.ShipUpgrades
	IntroComplete bool

	Account  string
	Password string

	ConnectionParams transport.ConnectionParams
	Logger           *zap.Logger
}

// Outcome is a live session. Connection is open and owned by the caller.
type Outcome struct {
	Connection  *transport.Connection
	ClientId    uint16
	ServerUuid  uuid.UUID
	Celestial   celestial.BaseInformation
	Compression bool
	// Leftover holds packets that arrived in the same batch as ConnectSuccess,
	// in receipt order. They must be dispatched before anything else.
	Leftover []message.Packet
}

// PasswordHash answers a HandshakeChallenge.
func PasswordHash(password, account string, salt []byte) []byte {
	data := make([]byte, 0, len(password)+len(account)+len(salt))
	data = append(data, password...)
	data = append(data, account...)
	data = append(data, salt...)
	sum := blake3.Sum256(data)
	return sum[:]
}

type connector struct {
	cfg   Config
	conn  *transport.Connection
	stage errors.ConnectStage
	// buffered holds packets received but not yet consumed by a stage.
	buffered []message.Packet
	log      *zap.Logger
}

// Connect runs the handshake over socket. On any failure the socket is closed
// and a *errors.ConnectError is returned; nothing from the attempt survives.
func Connect(ctx context.Context, socket transport.Socket, cfg Config) (*Outcome, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = ProtocolVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectionParams.Logger == nil {
		cfg.ConnectionParams.Logger = logger
	}

	c := &connector{
		cfg:  cfg,
		conn: transport.CreateConnection(socket, cfg.ConnectionParams),
		log: logger.With(
			zap.String("component", "Handshake"),
			zap.String("player", cfg.Player.Name),
		),
	}

	outcome, err := c.run(ctx)
	if err != nil {
		c.log.Warn("Connection attempt failed", zap.Stringer("stage", c.stage), zap.Error(err))
		c.conn.Close(err.Error())
		return nil, err
	}
	c.log.Info("Connected to server",
		zap.Uint16("clientId", outcome.ClientId),
		zap.Stringer("serverUuid", outcome.ServerUuid),
		zap.Bool("compression", outcome.Compression))
	return outcome, nil
}

func (c *connector) run(ctx context.Context) (*Outcome, error) {
	c.stage = errors.ConnectStage_ProtocolNegotiation
	compression, err := c.negotiateProtocol(ctx)
	if err != nil {
		return nil, err
	}

	c.stage = errors.ConnectStage_ConnectRequest
	if err := c.sendConnectRequest(); err != nil {
		return nil, err
	}

	for {
		p, err := c.await(ctx, "Join failed! No server response received")
		if err != nil {
			return nil, err
		}

		switch p := p.(type) {
		case *message.HandshakeChallenge:
			c.stage = errors.ConnectStage_Challenge
			c.log.Debug("Answering password challenge")
			c.conn.Push(&message.HandshakeResponse{
				PasswordHash: PasswordHash(c.cfg.Password, c.cfg.Account, p.PasswordSalt),
			})
			if err := c.flush(); err != nil {
				return nil, err
			}
			c.stage = errors.ConnectStage_Resolution
		case *message.ConnectSuccess:
			c.stage = errors.ConnectStage_Resolution
			return &Outcome{
				Connection:  c.conn,
				ClientId:    p.ClientId,
				ServerUuid:  p.ServerUuid,
				Celestial:   p.Celestial,
				Compression: compression,
				Leftover:    c.buffered,
			}, nil
		case *message.ConnectFailure:
			c.stage = errors.ConnectStage_Resolution
			return nil, c.fail(fmt.Sprintf("Join failed! %s", p.Reason), false)
		case *message.ServerDisconnect:
			return nil, c.fail(fmt.Sprintf("Join failed! %s", p.Reason), false)
		default:
			return nil, c.fail(fmt.Sprintf("Join failed! Unexpected %s packet from server", p.Type()), false)
		}
	}
}

func (c *connector) negotiateProtocol(ctx context.Context) (bool, error) {
	c.conn.Push(&message.ProtocolRequest{
		Version:  c.cfg.ProtocolVersion,
		Extended: c.cfg.Compression,
	})
	if err := c.flush(); err != nil {
		return false, err
	}

	p, err := c.await(ctx, "Join failed! Timeout while establishing connection")
	if err != nil {
		return false, err
	}
	response, ok := p.(*message.ProtocolResponse)
	if !ok {
		return false, c.fail(fmt.Sprintf("Join failed! Unexpected %s packet during protocol negotiation", p.Type()), false)
	}
	if !response.Allowed {
		return false, c.fail(fmt.Sprintf("Join failed! Server does not support connections with protocol version %d", c.cfg.ProtocolVersion), false)
	}

	compression := c.cfg.Compression && response.Extended
	if err := c.conn.SetCompression(compression); err != nil {
		return false, c.fail(fmt.Sprintf("Join failed! %s", err), false)
	}
	return compression, nil
}

func (c *connector) sendConnectRequest() error {
	c.conn.Push(&message.ClientConnect{
		AssetsDigest:        c.cfg.AssetsDigest,
		AllowAssetsMismatch: c.cfg.AllowAssetsMismatch,
		PlayerUuid:          c.cfg.Player.Uuid,
		PlayerName:          c.cfg.Player.Name,
		PlayerSpecies:       c.cfg.Player.Species,
		ShipChunks:          c.cfg.ShipChunks,
		ShipUpgrades:        c.cfg.ShipUpgrades,
		IntroComplete:       c.cfg.IntroComplete,
		Account:             c.cfg.Account,
	})
	if err := c.flush(); err != nil {
		return err
	}
	c.stage = errors.ConnectStage_Resolution
	return nil
}

func (c *connector) flush() error {
	if err := c.conn.SendAll(); err != nil {
		return c.fail(fmt.Sprintf("Join failed! %s", err), false)
	}
	return nil
}

// await returns the next packet, waiting at most one timeout.
func (c *connector) await(ctx context.Context, timeoutReason string) (message.Packet, error) {
	if len(c.buffered) == 0 {
		waitCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		packets, err := c.conn.ReceiveAny(waitCtx)
		if err != nil {
			if stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, c.fail(timeoutReason, true)
			}
			if ctx.Err() != nil {
				return nil, c.fail("Join failed! Connection attempt cancelled", false)
			}
			return nil, c.fail(fmt.Sprintf("Join failed! %s", err), false)
		}
		c.buffered = packets
	}

	p := c.buffered[0]
	c.buffered = c.buffered[1:]
	return p, nil
}

func (c *connector) fail(reason string, timeout bool) *errors.ConnectError {
	return &errors.ConnectError{
		Stage:     c.stage,
		Reason:    reason,
		IsTimeout: timeout,
	}
}
