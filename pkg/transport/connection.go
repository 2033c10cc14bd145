package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/message"
	"go.uber.org/zap"
)

type ConnectionState uint8

const (
	ConnectionState_Open ConnectionState = iota
	ConnectionState_Closed
)

type ConnectionParams struct {
	MaxPacketSize int
	// StatsWindow is the span bytes/sec figures are averaged over.
	StatsWindow time.Duration
	Now         func() time.Time

	Logger *zap.Logger
}

// Connection exchanges typed packets over a Socket. It is owned by a single
// goroutine; only Stats may be called concurrently.
type Connection struct {
	socket     Socket
	serializer message.PacketSerializer

	compressionFixed bool
	state            ConnectionState
	closeReason      string

	outgoing []message.Packet
	stats    *trafficStats

	log *zap.Logger
}

func CreateConnection(socket Socket, params ConnectionParams) *Connection {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.StatsWindow <= 0 {
		params.StatsWindow = 5 * time.Second
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	serializer := message.CreatePacketSerializer(false)
	if params.MaxPacketSize > 0 {
		serializer.MaxPacketSize = params.MaxPacketSize
	}

	return &Connection{
		socket:     socket,
		serializer: serializer,
		state:      ConnectionState_Open,
		stats: &trafficStats{
			window: params.StatsWindow,
			now:    params.Now,
		},
		log: logger.With(zap.String("component", "Connection")),
	}
}

func (c *Connection) State() ConnectionState {
	return c.state
}

func (c *Connection) IsOpen() bool {
	return c.state == ConnectionState_Open
}

// CloseReason is empty while open and after a local close without a reason.
func (c *Connection) CloseReason() string {
	return c.closeReason
}

// SetCompression fixes the framing for the rest of the connection. It may be
// called once; it is decided during protocol negotiation.
func (c *Connection) SetCompression(enabled bool) error {
	if c.compressionFixed {
		return fmt.Errorf("connection framing already negotiated (compression=%t)", c.serializer.Compression)
	}
	c.compressionFixed = true
	c.serializer.Compression = enabled
	c.log.Debug("Framing negotiated", zap.Bool("compression", enabled))
	return nil
}

func (c *Connection) Compression() bool {
	return c.serializer.Compression
}

// Push queues a packet for the next SendAll.
func (c *Connection) Push(packets ...message.Packet) {
	c.outgoing = append(c.outgoing, packets...)
}

func (c *Connection) PendingOutgoing() int {
	return len(c.outgoing)
}

// SendAll writes every queued packet in order. A write failure closes the
// connection; unsent packets are dropped.
func (c *Connection) SendAll() error {
	if c.state == ConnectionState_Closed {
		c.outgoing = nil
		return &errors.ConnectionClosed{Reason: c.closeReason}
	}

	packets := c.outgoing
	c.outgoing = nil
	for _, p := range packets {
		frame, err := c.serializer.SerializePacket(p)
		if err != nil {
			c.log.Error("Failed to serialize outgoing packet", zap.Stringer("type", p.Type()), zap.Error(err))
			return err
		}
		if err := c.socket.WriteFrame(frame); err != nil {
			c.markClosed(err.Error())
			return &errors.ConnectionClosed{Reason: c.closeReason}
		}
		c.stats.recordOut(p.Type(), len(frame))
	}
	return nil
}

// Pull returns every packet already received, without blocking. Once the
// socket is closed and drained it reports ConnectionClosed.
func (c *Connection) Pull() ([]message.Packet, error) {
	var packets []message.Packet
	for {
		select {
		case frame := <-c.socket.Frames():
			p, err := c.parse(frame)
			if err != nil {
				return packets, err
			}
			packets = append(packets, p)
			continue
		default:
		}
		break
	}

	if len(packets) == 0 && c.socketClosed() {
		return nil, &errors.ConnectionClosed{Reason: c.closeReason}
	}
	return packets, nil
}

// ReceiveAny blocks until at least one packet arrives, then returns it along
// with anything else already buffered.
func (c *Connection) ReceiveAny(ctx context.Context) ([]message.Packet, error) {
	if c.state == ConnectionState_Closed {
		return nil, &errors.ConnectionClosed{Reason: c.closeReason}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-c.socket.Frames():
		p, err := c.parse(frame)
		if err != nil {
			return nil, err
		}
		rest, err := c.Pull()
		if err != nil {
			if _, closed := err.(*errors.ConnectionClosed); closed {
				return []message.Packet{p}, nil
			}
			return append([]message.Packet{p}, rest...), err
		}
		return append([]message.Packet{p}, rest...), nil
	case <-c.socket.Done():
		return c.Pull()
	}
}

func (c *Connection) parse(frame []byte) (message.Packet, error) {
	p, err := c.serializer.Parse(frame)
	if err != nil {
		c.log.Warn("Failed to parse incoming frame", zap.Int("size", len(frame)), zap.Error(err))
		return nil, err
	}
	c.stats.recordIn(p.Type(), len(frame))
	return p, nil
}

func (c *Connection) socketClosed() bool {
	if c.state == ConnectionState_Closed {
		return true
	}
	select {
	case <-c.socket.Done():
		reason := "remote closed the connection"
		if err := c.socket.Err(); err != nil {
			reason = err.Error()
		}
		c.markClosed(reason)
		return true
	default:
		return false
	}
}

func (c *Connection) markClosed(reason string) {
	if c.state == ConnectionState_Closed {
		return
	}
	c.state = ConnectionState_Closed
	c.closeReason = reason
	c.log.Info("Connection closed", zap.String("reason", reason))
}

// Close tears the connection down. Queued outgoing packets are discarded, so
// callers flush with SendAll first when a final packet matters.
func (c *Connection) Close(reason string) {
	c.outgoing = nil
	c.markClosed(reason)
	if err := c.socket.Close(); err != nil {
		c.log.Debug("Socket close failed", zap.Error(err))
	}
}

func (c *Connection) Stats() Statistics {
	return c.stats.snapshot()
}
