// Package universe drives a connected session: the per-tick update loop,
// packet dispatch, warping, respawn, chat and periodic persistence.
package universe

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/assets"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/clientcontext"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/handshake"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/storage"
	"github.com/sessamekesh/universe-client/pkg/transport"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"github.com/sessamekesh/universe-client/pkg/worldclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type UniverseClientParams struct {
	Account  string
	Password string

	ShipChunks    []byte
	ShipUpgrades  clientcontext.ShipUpgrades
	IntroComplete bool

	// Storage, when set, receives the player's save data on a wall clock
	// interval and on disconnect.
	Storage *storage.PlayerStorage
	// Statistics seeds the counters, usually from a loaded save.
	Statistics Statistics

	WindowHalfWidth  int32
	WindowHalfHeight int32

	Now    func() time.Time
	Logger *zap.Logger
}

// session is everything that exists only while connected.
type session struct {
	conn      *transport.Connection
	context   *clientcontext.ClientContext
	world     *worldclient.WorldClient
	celestial *celestial.Database

	clientId   uint16
	serverUuid uuid.UUID
}

// UniverseClient is owned by a single goroutine. Only the assets root it
// reads from is shared.
type UniverseClient struct {
	params UniverseClientParams
	root   *assets.Root
	player *player.Master
	log    *zap.Logger

	generation uint64
	config     assets.Config

	session          *session
	disconnectReason string

	warp             *warp.Machine
	respawn          respawnState
	invalidBookmarks []string

	chatLimiter  *rate.Limiter
	chatMessages []message.ChatReceive

	serverInfo *message.ServerInfo
	paused     bool
	timeScale  float32
	clock      universeClock

	stats    Statistics
	lastSave time.Time
}

func CreateUniverseClient(root *assets.Root, master *player.Master, params UniverseClientParams) *UniverseClient {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	c := &UniverseClient{
		params:    params,
		root:      root,
		player:    master,
		log:       logger.With(zap.String("component", "UniverseClient"), zap.String("player", master.Identity().Name)),
		timeScale: 1,
		stats:     params.Statistics,
	}
	c.generation = root.Generation()
	c.config = root.Config()
	c.warp = warp.NewMachine(c.warpParams())
	c.chatLimiter = rate.NewLimiter(rate.Limit(c.config.ChatMessagesPerSecond), c.config.ChatBurst)
	return c
}

func (c *UniverseClient) warpParams() warp.MachineParams {
	return warp.MachineParams{
		TeleportOutDuration:   c.config.TeleportOutDuration,
		TeleportInDuration:    c.config.TeleportInDuration,
		MinimumCinemaDuration: c.config.MinimumWarpCinema,
		FastRespawn:           c.config.FastRespawn,
	}
}

//
// Connection lifecycle

// Connect runs the handshake over socket and, only if it succeeds, builds the
// session. A failed attempt leaves the client disconnected with the failure
// as its DisconnectReason.
func (c *UniverseClient) Connect(ctx context.Context, socket transport.Socket) error {
	if c.session != nil {
		socket.Close()
		return &errors.ConnectError{Reason: "Join failed! Already connected"}
	}
	c.checkGeneration()

	outcome, err := handshake.Connect(ctx, socket, handshake.Config{
		Timeout:             c.config.HandshakeTimeout,
		Compression:         true,
		AssetsDigest:        c.root.Digest(),
		AllowAssetsMismatch: c.config.AllowAssetsMismatch,
		Player:              c.player.Identity(),
		ShipChunks:          c.params.ShipChunks,
		ShipUpgrades:        c.params.ShipUpgrades,
		IntroComplete:       c.params.IntroComplete,
		Account:             c.params.Account,
		Password:            c.params.Password,
		ConnectionParams:    transport.ConnectionParams{Now: c.params.Now, Logger: c.log},
		Logger:              c.log,
	})
	if err != nil {
		c.disconnectReason = err.Error()
		return err
	}

	c.session = &session{
		conn: outcome.Connection,
		context: clientcontext.CreateClientContext(clientcontext.ClientContextParams{
			ServerUuid: outcome.ServerUuid,
			PlayerUuid: c.player.Uuid(),
			Logger:     c.log,
		}),
		world: worldclient.CreateWorldClient(c.player, worldclient.WorldClientParams{
			WindowHalfWidth:      c.params.WindowHalfWidth,
			WindowHalfHeight:     c.params.WindowHalfHeight,
			WindowPadding:        c.config.ClientWindowPadding,
			PredictedTileTimeout: c.config.PredictedTileTimeout,
			Now:                  c.params.Now,
			Logger:               c.log,
		}),
		celestial: celestial.CreateDatabase(outcome.Celestial, celestial.DatabaseParams{
			RequestBatchesPerSecond: c.config.CelestialRequestsPerSecond,
			RequestBurst:            c.config.CelestialRequestBurst,
			Now:                     c.params.Now,
			Logger:                  c.log,
		}),
		clientId:   outcome.ClientId,
		serverUuid: outcome.ServerUuid,
	}
	c.disconnectReason = ""
	c.paused = false
	c.timeScale = 1
	c.serverInfo = nil
	c.clock = universeClock{}
	c.lastSave = c.params.Now()

	if !c.dispatch(outcome.Leftover) {
		return &errors.ConnectionClosed{Reason: c.disconnectReason}
	}
	return nil
}

func (c *UniverseClient) IsConnected() bool {
	return c.session != nil
}

// DisconnectReason is why the last session ended or the last connection
// attempt failed. Empty while connected.
func (c *UniverseClient) DisconnectReason() string {
	return c.disconnectReason
}

// Disconnect asks the server to end the session and waits, up to the
// configured disconnect timeout, for it to acknowledge.
func (c *UniverseClient) Disconnect(ctx context.Context) {
	if c.session == nil {
		return
	}
	conn := c.session.conn
	conn.Push(&message.ClientDisconnectRequest{})
	if err := conn.SendAll(); err != nil {
		c.teardown(conn.CloseReason())
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.config.DisconnectTimeout)
	defer cancel()
	for {
		packets, err := conn.ReceiveAny(waitCtx)
		if err != nil {
			break
		}
		if acknowledged(packets) {
			break
		}
	}
	c.teardown("Disconnected")
}

func acknowledged(packets []message.Packet) bool {
	for _, p := range packets {
		if _, ok := p.(*message.ServerDisconnect); ok {
			return true
		}
	}
	return false
}

// teardown ends the session. Warp and respawn state never outlive it.
func (c *UniverseClient) teardown(reason string) {
	if c.session == nil {
		return
	}
	s := c.session
	c.save()

	c.warp.Reset()
	c.respawn.reset()
	if c.player.IsTeleporting() {
		c.player.TeleportAbort()
	}
	s.context.Close(reason)
	s.world.Reset()
	s.conn.Close(reason)

	c.session = nil
	c.disconnectReason = reason
	c.paused = false
	c.log.Info("Session ended", zap.String("reason", reason))
}

//
// Tick

// Update runs one tick. A panic anywhere below is caught here and ends the
// session with the panic as its reason.
func (c *UniverseClient) Update(dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Recovered from panic in update", zap.Any("panic", r), zap.Stack("stack"))
			c.teardown(fmt.Sprintf("Client error: %v", r))
		}
	}()

	c.checkGeneration()
	if c.session == nil {
		return
	}

	c.updateWarp(dt)

	if !c.receive() {
		return
	}

	s := c.session
	if !c.paused {
		worldDt := dt
		if c.timeScale > 0 {
			worldDt = time.Duration(float64(dt) * float64(c.timeScale))
		}
		s.world.Update(worldDt)
		c.stats.PlayTime += dt
	}
	s.conn.Push(s.world.PullOutgoingPackets()...)

	if update := s.context.WriteUpdate(); update != nil {
		s.conn.Push(&message.ClientContextUpdate{Data: update})
	}
	s.celestial.Cleanup()
	if requests := s.celestial.PullRequests(); len(requests) > 0 {
		s.conn.Push(&message.CelestialRequest{Coordinates: requests})
	}

	if err := s.conn.SendAll(); err != nil {
		c.teardown(fmt.Sprintf("Connection lost: %s", err.Error()))
		return
	}

	if now := c.params.Now(); now.Sub(c.lastSave) >= c.config.StorageInterval {
		c.lastSave = now
		c.save()
	}

	c.updateRespawn(dt)
}

// checkGeneration picks up a reloaded assets root.
func (c *UniverseClient) checkGeneration() {
	gen := c.root.Generation()
	if gen == c.generation {
		return
	}
	c.generation = gen
	c.config = c.root.Config()
	c.warp.SetParams(c.warpParams())
	c.chatLimiter.SetLimit(rate.Limit(c.config.ChatMessagesPerSecond))
	c.chatLimiter.SetBurst(c.config.ChatBurst)
	c.log.Info("Applied reloaded configuration", zap.Uint64("generation", gen))
}

// receive drains the connection. It reports false if the session ended.
func (c *UniverseClient) receive() bool {
	conn := c.session.conn
	packets, err := conn.Pull()
	if !c.dispatch(packets) {
		return false
	}
	if err == nil {
		return true
	}

	var closed *errors.ConnectionClosed
	if stderrors.As(err, &closed) {
		c.teardown(conn.CloseReason())
	} else {
		c.teardown(fmt.Sprintf("Protocol error: %s", err.Error()))
	}
	return false
}

//
// Accessors

func (c *UniverseClient) Player() *player.Master {
	return c.player
}

// Context, World and Celestial return nil while disconnected.
func (c *UniverseClient) Context() *clientcontext.ClientContext {
	if c.session == nil {
		return nil
	}
	return c.session.context
}

func (c *UniverseClient) World() *worldclient.WorldClient {
	if c.session == nil {
		return nil
	}
	return c.session.world
}

func (c *UniverseClient) Celestial() *celestial.Database {
	if c.session == nil {
		return nil
	}
	return c.session.celestial
}

func (c *UniverseClient) ClientId() uint16 {
	if c.session == nil {
		return 0
	}
	return c.session.clientId
}

func (c *UniverseClient) ServerUuid() uuid.UUID {
	if c.session == nil {
		return uuid.Nil
	}
	return c.session.serverUuid
}

// ConnectionStats returns traffic statistics for the live connection.
func (c *UniverseClient) ConnectionStats() (transport.Statistics, bool) {
	if c.session == nil {
		return transport.Statistics{}, false
	}
	return c.session.conn.Stats(), true
}

// ServerInfo is the last player count the server reported.
func (c *UniverseClient) ServerInfo() (message.ServerInfo, bool) {
	if c.serverInfo == nil {
		return message.ServerInfo{}, false
	}
	return *c.serverInfo, true
}

func (c *UniverseClient) Paused() bool {
	return c.paused
}

// UniverseTime is the server clock, extrapolated since the last sync.
func (c *UniverseClient) UniverseTime() float64 {
	return c.clock.time(c.params.Now())
}

func (c *UniverseClient) Statistics() Statistics {
	return c.stats
}
