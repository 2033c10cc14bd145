package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sessamekesh/universe-client/pkg/errors"
	utils "github.com/sessamekesh/universe-client/pkg/util"
	"go.uber.org/zap"
)

type WebsocketSocketParams struct {
	Url              string
	Header           http.Header
	HandshakeTimeout time.Duration

	MaxReadMessageSize  int64
	IncomingQueueLength int

	Logger *zap.Logger
}

type NonBinaryMessage struct{}

func (m *NonBinaryMessage) Error() string {
	return "Non binary message received"
}

type websocketSocket struct {
	conn *websocket.Conn

	frames chan []byte
	done   chan struct{}
	once   sync.Once

	mut_write sync.Mutex

	mut_err sync.RWMutex
	err     error

	log *zap.Logger
}

var connIds = utils.CreateRandomStringGenerator(time.Now().UnixMicro())

// DialWebsocket opens a binary websocket to a server. Text messages from the
// server are logged and dropped.
func DialWebsocket(ctx context.Context, params WebsocketSocketParams) (Socket, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	log := logger.With(
		zap.String("handler", "WebSocket"),
		zap.String("wsConnId", connIds.GetRandomString(6)),
	)

	if params.IncomingQueueLength <= 0 {
		params.IncomingQueueLength = 256
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: params.HandshakeTimeout,
	}

	log.Info("Dialing WebSocket server", zap.String("url", params.Url))
	conn, _, err := dialer.DialContext(ctx, params.Url, params.Header)
	if err != nil {
		log.Error("Failed to dial WebSocket server", zap.Error(err))
		return nil, err
	}
	if params.MaxReadMessageSize > 0 {
		conn.SetReadLimit(params.MaxReadMessageSize)
	}

	s := &websocketSocket{
		conn:   conn,
		frames: make(chan []byte, params.IncomingQueueLength),
		done:   make(chan struct{}),
		log:    log,
	}
	go s.readLoop()
	return s, nil
}

func (s *websocketSocket) readLoop() {
	expectedCloseErrors := []int{websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived}
	for {
		msgType, payload, msgErr := s.conn.ReadMessage()
		if msgErr != nil {
			if websocket.IsCloseError(msgErr, expectedCloseErrors...) {
				closeError, ok := msgErr.(*websocket.CloseError)
				if ok {
					s.log.Info("Received close request from server", zap.Int("closeCode", closeError.Code), zap.String("closeMsg", closeError.Text))
					s.shutdown(&errors.ConnectionClosed{Reason: closeError.Text})
				} else {
					s.log.Info("Received close request from server")
					s.shutdown(&errors.ConnectionClosed{})
				}
				return
			}

			if websocket.IsUnexpectedCloseError(msgErr, expectedCloseErrors...) {
				s.log.Warn("Received unexpected close from server", zap.Error(msgErr))
				s.shutdown(msgErr)
				return
			}

			if strings.Contains(msgErr.Error(), "use of closed network connection") {
				s.log.Info("Closing connection, probably from a local 'close' call")
				s.shutdown(nil)
				return
			}

			s.log.Error("Received unexpected WebSocket error on message read", zap.Error(msgErr))
			s.shutdown(msgErr)
			return
		}

		if msgType != websocket.BinaryMessage {
			s.log.Info("Received non-binary message, ignoring", zap.Int("size", len(payload)))
			continue
		}

		select {
		case s.frames <- payload:
		case <-s.done:
			return
		}
	}
}

func (s *websocketSocket) shutdown(err error) {
	s.once.Do(func() {
		s.mut_err.Lock()
		s.err = err
		s.mut_err.Unlock()
		close(s.done)
		s.conn.Close()
	})
}

func (s *websocketSocket) WriteFrame(frame []byte) error {
	select {
	case <-s.done:
		return &errors.ConnectionClosed{Reason: "websocket closed"}
	default:
	}

	s.mut_write.Lock()
	defer s.mut_write.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		s.log.Warn("Failed to write frame", zap.Error(err))
		s.shutdown(err)
		return err
	}
	return nil
}

func (s *websocketSocket) Frames() <-chan []byte {
	return s.frames
}

func (s *websocketSocket) Done() <-chan struct{} {
	return s.done
}

func (s *websocketSocket) Err() error {
	s.mut_err.RLock()
	defer s.mut_err.RUnlock()
	return s.err
}

// Close sends a normal closure to the server and tears down the socket.
func (s *websocketSocket) Close() error {
	func() {
		s.mut_write.Lock()
		defer s.mut_write.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			s.log.Debug("Failed to send close message", zap.Error(err))
		}
	}()
	s.shutdown(nil)
	return nil
}
