// Package worldclient is the client's replica of the world it is currently
// in: the tile grid around the player, predicted tile edits, remote entities
// and the locally mastered player entity.
package worldclient

import (
	stderrors "errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/tile"
	"go.uber.org/zap"
)

type WorldClientParams struct {
	WindowHalfWidth  int32
	WindowHalfHeight int32
	WindowPadding    int32

	PredictedTileTimeout time.Duration

	MinInterpolationTime time.Duration
	MaxInterpolationTime time.Duration

	Now    func() time.Time
	Logger *zap.Logger
}

// WorldClient is owned by one goroutine, the same one that owns the
// universe client driving it.
type WorldClient struct {
	params WorldClientParams

	player *player.Master

	inWorld        bool
	clientId       uint16
	worldWidth     uint32
	worldHeight    uint32
	playerStart    mgl32.Vec2
	respawnInWorld bool
	stopReason     string

	window *ClientWindow
	tiles  *TileStore

	factories     map[EntityType]EntityFactory
	entities      map[int32]*entityRecord
	interpolation *InterpolationTracker

	playerEntityId    int32
	playerPublished   bool
	playerSentVersion uint64

	destroyed []DestroyedEntity

	outgoing []message.Packet

	log *zap.Logger
}

func CreateWorldClient(master *player.Master, params WorldClientParams) *WorldClient {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.WindowHalfWidth <= 0 {
		params.WindowHalfWidth = 48
	}
	if params.WindowHalfHeight <= 0 {
		params.WindowHalfHeight = 32
	}
	if params.WindowPadding < 0 {
		params.WindowPadding = 0
	}
	if params.PredictedTileTimeout <= 0 {
		params.PredictedTileTimeout = time.Second
	}
	if params.MinInterpolationTime <= 0 {
		params.MinInterpolationTime = 30 * time.Millisecond
	}
	if params.MaxInterpolationTime < params.MinInterpolationTime {
		params.MaxInterpolationTime = 250 * time.Millisecond
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	w := &WorldClient{
		params:        params,
		player:        master,
		window:        NewClientWindow(params.WindowHalfWidth, params.WindowHalfHeight, params.WindowPadding),
		tiles:         NewTileStore(params.PredictedTileTimeout),
		factories:     make(map[EntityType]EntityFactory),
		entities:      make(map[int32]*entityRecord),
		interpolation: NewInterpolationTracker(params.MinInterpolationTime, params.MaxInterpolationTime),
		log:           logger.With(zap.String("component", "WorldClient")),
	}
	w.factories[EntityType_Player] = playerFactory
	return w
}

// RegisterEntityFactory installs (or replaces) the constructor for an entity
// type.
func (w *WorldClient) RegisterEntityFactory(t EntityType, factory EntityFactory) {
	w.factories[t] = factory
}

func (w *WorldClient) InWorld() bool {
	return w.inWorld
}

// RespawnInWorld reports whether a dead player may be revived in place
// instead of warping home.
func (w *WorldClient) RespawnInWorld() bool {
	return w.inWorld && w.respawnInWorld
}

func (w *WorldClient) PlayerStart() mgl32.Vec2 {
	return w.playerStart
}

func (w *WorldClient) WorldSize() (uint32, uint32) {
	return w.worldWidth, w.worldHeight
}

// StopReason is why the last world was left, if the server said.
func (w *WorldClient) StopReason() string {
	return w.stopReason
}

func (w *WorldClient) ClientWindow() tile.Rect {
	return w.window.Rect()
}

func (w *WorldClient) Tile(pos tile.Pos) (tile.Tile, bool) {
	return w.tiles.Get(pos)
}

func (w *WorldClient) Tiles() *TileStore {
	return w.tiles
}

func (w *WorldClient) Entity(id int32) (Entity, bool) {
	rec, has := w.entities[id]
	if !has {
		return nil, false
	}
	return rec.entity, true
}

func (w *WorldClient) EntityCount() int {
	return len(w.entities)
}

func (w *WorldClient) PlayerEntityId() int32 {
	return w.playerEntityId
}

func (w *WorldClient) InterpolationTime() time.Duration {
	return w.interpolation.InterpolationTime()
}

// PullDestroyedEntities returns and clears the entities removed since the last
// call, each carrying its final net state.
func (w *WorldClient) PullDestroyedEntities() []DestroyedEntity {
	out := w.destroyed
	w.destroyed = nil
	return out
}

// PullOutgoingPackets returns and clears the packets queued for the server.
func (w *WorldClient) PullOutgoingPackets() []message.Packet {
	out := w.outgoing
	w.outgoing = nil
	return out
}

//
// Incoming packets

// HandlePacket applies a world packet. It reports false for packets that are
// not world packets.
func (w *WorldClient) HandlePacket(p message.Packet) (bool, error) {
	switch p := p.(type) {
	case *message.WorldStart:
		w.start(p)
	case *message.WorldStop:
		w.stop(p.Reason)
	case *message.TileArrayUpdate:
		w.applyTileArray(p)
	case *message.TileUpdate:
		if w.inWorld {
			w.tiles.ApplyServer(p.Pos, p.Tile)
		}
	case *message.TileModificationFailure:
		positions := make([]tile.Pos, 0, len(p.Modifications))
		for _, m := range p.Modifications {
			positions = append(positions, m.Pos)
		}
		if n := w.tiles.Rollback(positions...); n > 0 {
			w.log.Debug("Server refused tile modifications", zap.Int("rolledBack", n))
		}
	case *message.StepUpdate:
		w.interpolation.ReceiveStep(p.RemoteTime, w.params.Now())
	case *message.EntityCreate:
		return true, w.createEntity(p)
	case *message.EntityUpdateSet:
		return true, w.updateEntities(p)
	case *message.EntityDestroy:
		return true, w.destroyEntity(p)
	default:
		return false, nil
	}
	return true, nil
}

func (w *WorldClient) start(p *message.WorldStart) {
	if w.inWorld {
		w.log.Warn("World start while already in a world, resetting")
		w.reset()
	}

	w.inWorld = true
	w.clientId = p.ClientId
	w.worldWidth = p.Width
	w.worldHeight = p.Height
	w.playerStart = p.PlayerStart
	w.respawnInWorld = p.RespawnInWorld
	w.stopReason = ""

	w.player.Move(p.PlayerStart)
	lo, _ := connectionEntitySpace(p.ClientId)
	w.playerEntityId = lo + 1

	w.log.Info("Entered world",
		zap.Uint32("width", p.Width),
		zap.Uint32("height", p.Height),
		zap.Bool("respawnInWorld", p.RespawnInWorld))

	w.updateWindow(true)
	w.publishPlayer()
}

func (w *WorldClient) stop(reason string) {
	if !w.inWorld {
		return
	}
	w.log.Info("Left world", zap.String("reason", reason))
	w.reset()
	w.stopReason = reason
}

func (w *WorldClient) applyTileArray(p *message.TileArrayUpdate) {
	if !w.inWorld {
		return
	}
	for y := uint32(0); y < p.Height; y++ {
		for x := uint32(0); x < p.Width; x++ {
			pos := tile.Pos{X: p.Min.X + int32(x), Y: p.Min.Y + int32(y)}
			w.tiles.ApplyServer(pos, p.At(pos))
		}
	}
}

func (w *WorldClient) createEntity(p *message.EntityCreate) error {
	if _, has := w.entities[p.EntityId]; has {
		return &errors.NameCollision{CollisionContext: "WorldEntities", Name: fmtId(p.EntityId)}
	}
	factory, has := w.factories[EntityType(p.EntityType)]
	if !has {
		return &errors.InvalidEnumValue{EnumName: "EntityType", IntValue: p.EntityType}
	}

	entity, err := factory(p.StoreData)
	if err != nil {
		return err
	}
	// The first snapshot lands instantly; interpolation only starts after it.
	entity.DisableInterpolation()
	if err := entity.ReadNetState(p.FirstNetState, 0); err != nil {
		return err
	}
	entity.EnableInterpolation()

	w.entities[p.EntityId] = &entityRecord{
		id:         p.EntityId,
		entityType: EntityType(p.EntityType),
		entity:     entity,
	}
	return nil
}

func (w *WorldClient) updateEntities(p *message.EntityUpdateSet) error {
	interpolationTime := w.interpolation.InterpolationTime()
	for _, d := range p.Deltas {
		rec, has := w.entities[d.EntityId]
		if !has {
			w.log.Debug("Delta for unknown entity", zap.Int32("entityId", d.EntityId))
			continue
		}
		if err := rec.entity.ReadNetState(d.Delta, interpolationTime); err != nil {
			var gap *errors.VersionGap
			if stderrors.As(err, &gap) {
				w.log.Warn("Entity delta skipped a version", zap.Int32("entityId", d.EntityId), zap.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}

func (w *WorldClient) destroyEntity(p *message.EntityDestroy) error {
	rec, has := w.entities[p.EntityId]
	if !has {
		return nil
	}
	delete(w.entities, p.EntityId)

	var err error
	if len(p.FinalNetState) > 0 {
		rec.entity.DisableInterpolation()
		err = rec.entity.ReadNetState(p.FinalNetState, 0)
	}
	w.destroyed = append(w.destroyed, DestroyedEntity{
		Id:     rec.id,
		Type:   rec.entityType,
		Entity: rec.entity,
		Death:  p.Death,
	})
	return err
}

//
// Outgoing state

// ModifyTiles predicts mods locally and asks the server to apply them.
func (w *WorldClient) ModifyTiles(mods []tile.Modification, allowEntityOverlap bool) {
	if !w.inWorld || len(mods) == 0 {
		return
	}
	now := w.params.Now()
	retained := w.window.Retained()
	for _, m := range mods {
		if retained.Contains(m.Pos) {
			w.tiles.Predict(m, now)
		}
	}
	w.outgoing = append(w.outgoing, &message.ModifyTileList{
		Modifications:      mods,
		AllowEntityOverlap: allowEntityOverlap,
	})
}

// Update advances the world by dt: simulate the player, follow it with the
// client window, expire predictions, interpolate remote entities and queue
// the player's net state.
func (w *WorldClient) Update(dt time.Duration) {
	if !w.inWorld {
		return
	}

	w.player.Update(dt)
	w.updateWindow(false)

	if rolledBack := w.tiles.Expire(w.params.Now()); len(rolledBack) > 0 {
		w.log.Debug("Tile predictions timed out", zap.Int("count", len(rolledBack)))
	}

	for _, rec := range w.entities {
		rec.entity.Update(dt)
	}

	w.publishPlayer()
}

func (w *WorldClient) updateWindow(force bool) {
	if !w.window.Recenter(w.player.Position()) && !force {
		return
	}
	w.tiles.Evict(w.window.Retained())
	w.outgoing = append(w.outgoing, &message.WorldClientStateUpdate{Window: w.window.Rect()})
}

func (w *WorldClient) publishPlayer() {
	if !w.playerPublished {
		state, version := w.player.WriteNetState(0)
		w.outgoing = append(w.outgoing, &message.EntityCreate{
			EntityType:    uint8(EntityType_Player),
			EntityId:      w.playerEntityId,
			StoreData:     player.EncodeIdentity(w.player.Identity()),
			FirstNetState: state,
		})
		w.playerPublished = true
		w.playerSentVersion = version
		return
	}

	if w.player.NetVersion() <= w.playerSentVersion {
		return
	}
	delta, version := w.player.WriteNetState(w.playerSentVersion)
	w.playerSentVersion = version
	w.outgoing = append(w.outgoing, &message.EntityUpdateSet{
		ForConnection: w.clientId,
		Deltas:        []message.EntityDelta{{EntityId: w.playerEntityId, Delta: delta}},
	})
}

// RepublishPlayer replaces the published player entity with a fresh one built
// from the player's current identity.
func (w *WorldClient) RepublishPlayer() {
	if !w.inWorld {
		return
	}
	if w.playerPublished {
		w.outgoing = append(w.outgoing, &message.EntityDestroy{EntityId: w.playerEntityId})
		w.playerPublished = false
		w.playerSentVersion = 0
	}
	w.publishPlayer()
}

// Reset drops all world state, as on leaving a world or disconnecting.
// Queued outgoing packets are dropped too.
func (w *WorldClient) Reset() {
	w.reset()
	w.stopReason = ""
	w.outgoing = nil
}

func (w *WorldClient) reset() {
	w.inWorld = false
	w.respawnInWorld = false
	w.playerPublished = false
	w.playerSentVersion = 0
	w.playerEntityId = 0
	w.window.Reset()
	w.tiles.Clear()
	clear(w.entities)
	w.destroyed = nil
	w.interpolation.Reset()
}
