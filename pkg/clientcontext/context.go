// Package clientcontext holds the per-connection session state the server
// replicates to a client: team, ship upgrades, the world the player is in and
// a remote call channel. It has its own version counter, separate from any
// entity net state.
package clientcontext

import (
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/netelement"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"go.uber.org/zap"
)

type TeamType uint8

const (
	TeamType_Null TeamType = iota
	TeamType_Friendly
	TeamType_Enemy
	TeamType_PVP
	TeamType_Passive
	TeamType_Ghostly
	TeamType_Environment
	TeamType_Indiscriminate
	TeamType_Assistant

	TeamType_NONE
)

type Team struct {
	Type TeamType
	Id   uint16
}

//
// Replicated layout, shared by both ends

type contextState struct {
	group *netelement.Group

	orbitWarpAction *netelement.Bytes
	playerWorldId   *netelement.Bytes
	isAdmin         *netelement.Bool
	team            *netelement.Bytes
	shipUpgrades    *netelement.Bytes
	shipCoordinate  *netelement.Bytes
}

func newContextState() *contextState {
	s := &contextState{
		group:           netelement.NewGroup(),
		orbitWarpAction: netelement.NewBytes(nil),
		playerWorldId:   netelement.NewBytes(nil),
		isAdmin:         netelement.NewBool(false),
		team:            netelement.NewBytes(nil),
		shipUpgrades:    netelement.NewBytes(nil),
		shipCoordinate:  netelement.NewBytes(nil),
	}
	s.group.AddElement(
		s.orbitWarpAction,
		s.playerWorldId,
		s.isAdmin,
		s.team,
		s.shipUpgrades,
		s.shipCoordinate,
	)
	return s
}

func encode(write func(w *datastream.Writer)) []byte {
	w := datastream.NewWriter()
	write(w)
	return w.Bytes()
}

//
// Client side

type ClientContextParams struct {
	ServerUuid uuid.UUID
	PlayerUuid uuid.UUID

	Logger *zap.Logger
}

// ClientContext is the client's replica of its session context. Fields only
// change by applying server updates.
type ClientContext struct {
	serverUuid uuid.UUID
	playerUuid uuid.UUID

	state *contextState
	rpc   *rpcTable

	orbitWarpAction warp.Action
	playerWorldId   warp.WorldId
	team            Team
	shipUpgrades    ShipUpgrades
	shipCoordinate  celestial.Coordinate

	log *zap.Logger
}

func CreateClientContext(params ClientContextParams) *ClientContext {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	logger = logger.With(zap.String("component", "ClientContext"))

	return &ClientContext{
		serverUuid: params.ServerUuid,
		playerUuid: params.PlayerUuid,
		state:      newContextState(),
		rpc:        newRpcTable(logger),
		log:        logger,
	}
}

func (c *ClientContext) ServerUuid() uuid.UUID {
	return c.serverUuid
}

func (c *ClientContext) PlayerUuid() uuid.UUID {
	return c.playerUuid
}

func (c *ClientContext) PlayerWorldId() warp.WorldId {
	return c.playerWorldId
}

// OrbitWarpAction is where warping to the orbited world would take the
// player, or a none action when the ship is not orbiting anything.
func (c *ClientContext) OrbitWarpAction() warp.Action {
	return c.orbitWarpAction
}

func (c *ClientContext) IsAdmin() bool {
	return c.state.isAdmin.Get()
}

func (c *ClientContext) Team() Team {
	return c.team
}

func (c *ClientContext) ShipUpgrades() ShipUpgrades {
	return c.shipUpgrades
}

func (c *ClientContext) ShipCoordinate() celestial.Coordinate {
	return c.shipCoordinate
}

// Version is the last applied context state version.
func (c *ClientContext) Version() uint64 {
	return c.state.group.Version()
}

func (c *ClientContext) InvokeRemote(method string, args []byte) *Promise {
	return c.rpc.invoke(method, args)
}

func (c *ClientContext) RegisterHandler(method string, handler Handler) error {
	return c.rpc.register(method, handler)
}

// ReadUpdate applies a ClientContextUpdate payload from the server.
func (c *ClientContext) ReadUpdate(data []byte) error {
	r := datastream.NewReader(data, "ClientContextUpdate")
	netDiff := r.ReadBytes()
	if err := r.Err(); err != nil {
		return err
	}

	if len(netDiff) > 0 {
		before := c.state.group.Version()
		if err := c.state.group.Read(netDiff, 0); err != nil {
			return err
		}
		if err := c.decodeFields(); err != nil {
			return err
		}
		if c.state.group.Version() != before {
			c.log.Debug("Applied context update",
				zap.Uint64("version", c.state.group.Version()),
				zap.Stringer("world", c.playerWorldId))
		}
	}

	return c.rpc.read(r)
}

func (c *ClientContext) decodeFields() error {
	var err error
	if data := c.state.orbitWarpAction.Get(); len(data) > 0 {
		if c.orbitWarpAction, err = warp.ReadAction(datastream.NewReader(data, "OrbitWarpAction")); err != nil {
			return err
		}
	} else {
		c.orbitWarpAction = warp.Action{}
	}

	if data := c.state.playerWorldId.Get(); len(data) > 0 {
		if c.playerWorldId, err = warp.ReadWorldId(datastream.NewReader(data, "PlayerWorldId")); err != nil {
			return err
		}
	} else {
		c.playerWorldId = warp.WorldId{}
	}

	if data := c.state.team.Get(); len(data) > 0 {
		r := datastream.NewReader(data, "Team")
		team := Team{Type: TeamType(r.ReadUint8()), Id: r.ReadUint16()}
		if err := r.Err(); err != nil {
			return err
		}
		if team.Type >= TeamType_NONE {
			return &errors.InvalidEnumValue{EnumName: "TeamType", IntValue: uint8(team.Type)}
		}
		c.team = team
	} else {
		c.team = Team{}
	}

	if data := c.state.shipUpgrades.Get(); len(data) > 0 {
		if c.shipUpgrades, err = DecodeShipUpgrades(data); err != nil {
			return err
		}
	} else {
		c.shipUpgrades = ShipUpgrades{}
	}

	if data := c.state.shipCoordinate.Get(); len(data) > 0 {
		r := datastream.NewReader(data, "ShipCoordinate")
		coord := celestial.ReadCoordinate(r)
		if err := r.Err(); err != nil {
			return err
		}
		c.shipCoordinate = coord
	} else {
		c.shipCoordinate = celestial.Coordinate{}
	}

	return nil
}

// WriteUpdate returns the payload for an outgoing ClientContextUpdate, or nil
// when there is nothing to send. Clients never master context fields, so only
// queued remote calls and responses go out.
func (c *ClientContext) WriteUpdate() []byte {
	if !c.rpc.hasPending() {
		return nil
	}
	w := datastream.NewWriter()
	w.WriteBytes(nil)
	c.rpc.write(w)
	return w.Bytes()
}

// Close fails every outstanding remote call with reason.
func (c *ClientContext) Close(reason string) {
	c.rpc.abandon(reason)
}

//
// Server side

// ServerContext is the authoritative end of a client context. The client
// never runs one against a real server; it exists for local hosting and to
// drive tests.
type ServerContext struct {
	state *contextState
	rpc   *rpcTable

	sent        bool
	sentVersion uint64
}

func CreateServerContext(logger *zap.Logger) *ServerContext {
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	return &ServerContext{
		state: newContextState(),
		rpc:   newRpcTable(logger.With(zap.String("component", "ServerContext"))),
	}
}

func (s *ServerContext) SetOrbitWarpAction(action warp.Action) {
	s.state.orbitWarpAction.Set(encode(action.Write))
}

func (s *ServerContext) SetPlayerWorldId(id warp.WorldId) {
	s.state.playerWorldId.Set(encode(id.Write))
}

func (s *ServerContext) SetAdmin(admin bool) {
	s.state.isAdmin.Set(admin)
}

func (s *ServerContext) SetTeam(team Team) {
	s.state.team.Set(encode(func(w *datastream.Writer) {
		w.WriteUint8(uint8(team.Type))
		w.WriteUint16(team.Id)
	}))
}

func (s *ServerContext) SetShipUpgrades(upgrades ShipUpgrades) {
	s.state.shipUpgrades.Set(upgrades.Encode())
}

func (s *ServerContext) SetShipCoordinate(c celestial.Coordinate) {
	s.state.shipCoordinate.Set(encode(c.Write))
}

func (s *ServerContext) InvokeRemote(method string, args []byte) *Promise {
	return s.rpc.invoke(method, args)
}

func (s *ServerContext) RegisterHandler(method string, handler Handler) error {
	return s.rpc.register(method, handler)
}

// WriteUpdate batches every field change since the last update together with
// queued calls. The first update always carries the full state.
func (s *ServerContext) WriteUpdate() []byte {
	var netDiff []byte
	if !s.sent || s.state.group.Version() > s.sentVersion {
		netDiff, s.sentVersion = s.state.group.Write(s.sentVersion)
		s.sent = true
	}
	if netDiff == nil && !s.rpc.hasPending() {
		return nil
	}

	w := datastream.NewWriter()
	w.WriteBytes(netDiff)
	s.rpc.write(w)
	return w.Bytes()
}

// ReadUpdate applies a client's update. Clients carry no field changes.
func (s *ServerContext) ReadUpdate(data []byte) error {
	r := datastream.NewReader(data, "ClientContextUpdate")
	r.ReadBytes()
	if err := r.Err(); err != nil {
		return err
	}
	return s.rpc.read(r)
}
