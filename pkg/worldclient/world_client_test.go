package worldclient

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/tile"
	"go.uber.org/zap/zaptest"
)

type testWorld struct {
	client *WorldClient
	master *player.Master
	now    time.Time
}

func newTestWorld(t *testing.T) *testWorld {
	tw := &testWorld{now: time.Unix(5000, 0)}
	tw.master = player.CreateMaster(player.MasterParams{
		Identity: player.Identity{Uuid: uuid.New(), Name: "Nova"},
		Logger:   zaptest.NewLogger(t),
	})
	tw.client = CreateWorldClient(tw.master, WorldClientParams{
		WindowHalfWidth:      8,
		WindowHalfHeight:     8,
		WindowPadding:        4,
		PredictedTileTimeout: time.Second,
		MinInterpolationTime: 100 * time.Millisecond,
		MaxInterpolationTime: 100 * time.Millisecond,
		Now:                  func() time.Time { return tw.now },
		Logger:               zaptest.NewLogger(t),
	})
	return tw
}

func (tw *testWorld) handle(t *testing.T, packets ...message.Packet) {
	t.Helper()
	for _, p := range packets {
		handled, err := tw.client.HandlePacket(p)
		if err != nil {
			t.Fatalf("handle %s: %v", p.Type(), err)
		}
		if !handled {
			t.Fatalf("%s not handled as a world packet", p.Type())
		}
	}
}

func (tw *testWorld) enter(t *testing.T) {
	tw.handle(t, &message.WorldStart{
		PlayerStart:    mgl32.Vec2{100.5, 50.5},
		Width:          1000,
		Height:         500,
		RespawnInWorld: true,
		ClientId:       2,
	})
}

func packetsOfType[T message.Packet](packets []message.Packet) []T {
	var out []T
	for _, p := range packets {
		if match, ok := p.(T); ok {
			out = append(out, match)
		}
	}
	return out
}

func TestWorldStartPublishesPlayerAndWindow(t *testing.T) {
	tw := newTestWorld(t)
	tw.enter(t)

	if !tw.client.InWorld() || !tw.client.RespawnInWorld() {
		t.Fatalf("expected to be in a respawn-in-world world")
	}
	if tw.master.Position() != (mgl32.Vec2{100.5, 50.5}) {
		t.Errorf("player not moved to start, at %v", tw.master.Position())
	}

	out := tw.client.PullOutgoingPackets()
	windows := packetsOfType[*message.WorldClientStateUpdate](out)
	creates := packetsOfType[*message.EntityCreate](out)
	if len(windows) != 1 || len(creates) != 1 {
		t.Fatalf("expected one window update and one create, got %d and %d", len(windows), len(creates))
	}
	want := tile.Rect{Min: tile.Pos{X: 92, Y: 42}, Max: tile.Pos{X: 108, Y: 58}}
	if windows[0].Window != want {
		t.Errorf("expected window %+v, got %+v", want, windows[0].Window)
	}
	if creates[0].EntityId != 2<<16+1 || creates[0].EntityType != uint8(EntityType_Player) {
		t.Errorf("unexpected player entity %d of type %d", creates[0].EntityId, creates[0].EntityType)
	}

	// The create packet is enough to build a replica elsewhere.
	other := newTestWorld(t)
	other.enter(t)
	other.handle(t, creates[0])
	e, has := other.client.Entity(creates[0].EntityId)
	if !has || e.Position() != tw.master.Position() {
		t.Errorf("replica not created at the master's position")
	}
}

func TestPlayerDeltasFollowMovement(t *testing.T) {
	tw := newTestWorld(t)
	tw.enter(t)
	tw.client.PullOutgoingPackets()

	tw.client.Update(16 * time.Millisecond)
	if out := tw.client.PullOutgoingPackets(); len(out) != 0 {
		t.Fatalf("idle player should send nothing, sent %d packets", len(out))
	}

	tw.master.Move(mgl32.Vec2{100.5, 70.5})
	tw.client.Update(16 * time.Millisecond)
	out := tw.client.PullOutgoingPackets()
	updates := packetsOfType[*message.EntityUpdateSet](out)
	if len(updates) != 1 || updates[0].ForConnection != 2 || len(updates[0].Deltas) != 1 {
		t.Fatalf("expected a single player delta, got %+v", out)
	}
	if windows := packetsOfType[*message.WorldClientStateUpdate](out); len(windows) != 1 {
		t.Errorf("expected the window to follow the player")
	}
}

func TestRemoteEntityLifecycle(t *testing.T) {
	remote := player.CreateMaster(player.MasterParams{
		Identity: player.Identity{Uuid: uuid.New(), Name: "Vex"},
		Position: mgl32.Vec2{10, 10},
		Logger:   zaptest.NewLogger(t),
	})
	remote.SetAim(mgl32.Vec2{1, 0})
	first, version := remote.WriteNetState(0)

	tw := newTestWorld(t)
	tw.enter(t)
	tw.handle(t, &message.EntityCreate{
		EntityType:    uint8(EntityType_Player),
		EntityId:      3<<16 + 1,
		StoreData:     player.EncodeIdentity(remote.Identity()),
		FirstNetState: first,
	})
	e, has := tw.client.Entity(3<<16 + 1)
	if !has {
		t.Fatalf("entity not created")
	}
	if e.Position() != (mgl32.Vec2{10, 10}) {
		t.Fatalf("first snapshot should apply instantly, at %v", e.Position())
	}

	remote.Move(mgl32.Vec2{20, 10})
	delta, _ := remote.WriteNetState(version)
	tw.handle(t, &message.EntityUpdateSet{
		ForConnection: 3,
		Deltas: []message.EntityDelta{
			{EntityId: 3<<16 + 1, Delta: delta},
			{EntityId: 99, Delta: delta},
		},
	})
	tw.client.Update(50 * time.Millisecond)
	if x := e.Position().X(); x <= 10 || x >= 20 {
		t.Errorf("expected interpolated position between 10 and 20, got %v", e.Position())
	}
	tw.client.Update(50 * time.Millisecond)
	if e.Position() != (mgl32.Vec2{20, 10}) {
		t.Errorf("expected position to settle, got %v", e.Position())
	}

	remote.Move(mgl32.Vec2{35, 12})
	final, _ := remote.WriteNetState(0)
	tw.handle(t, &message.EntityDestroy{EntityId: 3<<16 + 1, FinalNetState: final, Death: true})
	if _, has := tw.client.Entity(3<<16 + 1); has {
		t.Errorf("entity survived destruction")
	}

	destroyed := tw.client.PullDestroyedEntities()
	if len(destroyed) != 1 {
		t.Fatalf("expected one destroyed entity, got %d", len(destroyed))
	}
	d := destroyed[0]
	if d.Id != 3<<16+1 || d.Type != EntityType_Player || !d.Death {
		t.Errorf("unexpected destroyed record %+v", d)
	}
	if d.Entity.Position() != (mgl32.Vec2{35, 12}) {
		t.Errorf("final net state not applied, at %v", d.Entity.Position())
	}
	if again := tw.client.PullDestroyedEntities(); len(again) != 0 {
		t.Errorf("destroyed entities should be pulled once")
	}
}

func TestRepublishPlayerReplacesEntity(t *testing.T) {
	tw := newTestWorld(t)
	tw.client.RepublishPlayer()
	if out := tw.client.PullOutgoingPackets(); len(out) != 0 {
		t.Fatalf("republishing outside a world should send nothing, sent %d", len(out))
	}

	tw.enter(t)
	tw.client.PullOutgoingPackets()

	swapped := player.Identity{Uuid: uuid.New(), Name: "Orin"}
	tw.master.SetIdentity(swapped)
	tw.client.RepublishPlayer()

	out := tw.client.PullOutgoingPackets()
	if len(out) != 2 {
		t.Fatalf("expected destroy then create, got %d packets", len(out))
	}
	destroy, ok := out[0].(*message.EntityDestroy)
	if !ok || destroy.EntityId != tw.client.PlayerEntityId() {
		t.Fatalf("expected player destroy first, got %+v", out[0])
	}
	create, ok := out[1].(*message.EntityCreate)
	if !ok || create.EntityId != tw.client.PlayerEntityId() {
		t.Fatalf("expected player create second, got %+v", out[1])
	}
	id, err := player.DecodeIdentity(create.StoreData)
	if err != nil || id.Uuid != swapped.Uuid || id.Name != "Orin" {
		t.Errorf("create carries %+v (err %v), want the swapped identity", id, err)
	}

	tw.master.Move(mgl32.Vec2{100.5, 60.5})
	tw.client.Update(16 * time.Millisecond)
	updates := packetsOfType[*message.EntityUpdateSet](tw.client.PullOutgoingPackets())
	if len(updates) != 1 {
		t.Errorf("deltas should resume after republishing, got %d updates", len(updates))
	}
}

func TestDuplicateOrUnknownEntityCreateFails(t *testing.T) {
	tw := newTestWorld(t)
	tw.enter(t)

	create := &message.EntityCreate{EntityType: uint8(EntityType_Player), EntityId: 5, StoreData: player.EncodeIdentity(player.Identity{})}
	create.FirstNetState, _ = tw.master.WriteNetState(0)
	tw.handle(t, create)
	if _, err := tw.client.HandlePacket(create); err == nil {
		t.Errorf("expected duplicate entity id to fail")
	}
	if _, err := tw.client.HandlePacket(&message.EntityCreate{EntityType: uint8(EntityType_Monster), EntityId: 6}); err == nil {
		t.Errorf("expected entity type without a factory to fail")
	}
}

func TestTileModificationPredictionAndFailure(t *testing.T) {
	tw := newTestWorld(t)
	tw.enter(t)

	block := &message.TileArrayUpdate{Min: tile.Pos{X: 98, Y: 48}, Width: 4, Height: 4}
	for i := 0; i < 16; i++ {
		block.Tiles = append(block.Tiles, dirt)
	}
	tw.handle(t, block)
	tw.client.PullOutgoingPackets()

	dig := tile.Modification{Pos: tile.Pos{X: 100, Y: 50}, Material: tile.EmptyMaterial}
	place := tile.Modification{Pos: tile.Pos{X: 101, Y: 50}, Layer: tile.Layer_Background, Material: 8}
	tw.client.ModifyTiles([]tile.Modification{dig, place}, false)

	if got, _ := tw.client.Tile(dig.Pos); got.Foreground != tile.EmptyMaterial {
		t.Errorf("dig not predicted")
	}
	if sent := packetsOfType[*message.ModifyTileList](tw.client.PullOutgoingPackets()); len(sent) != 1 || len(sent[0].Modifications) != 2 {
		t.Fatalf("expected modifications to be sent")
	}

	tw.handle(t, &message.TileModificationFailure{Modifications: []tile.Modification{place}})
	if got, _ := tw.client.Tile(place.Pos); got != dirt {
		t.Errorf("refused modification not rolled back, got %+v", got)
	}

	tw.now = tw.now.Add(time.Second)
	tw.client.Update(time.Millisecond)
	if got, _ := tw.client.Tile(dig.Pos); got != dirt {
		t.Errorf("unconfirmed dig not rolled back after timeout, got %+v", got)
	}
}

func TestWorldStopClearsState(t *testing.T) {
	tw := newTestWorld(t)
	tw.enter(t)
	tw.handle(t, &message.TileUpdate{Pos: tile.Pos{X: 100, Y: 50}, Tile: dirt})

	tw.handle(t, &message.WorldStop{Reason: "Removed"})
	if tw.client.InWorld() || tw.client.StopReason() != "Removed" {
		t.Errorf("expected to have left the world")
	}
	if tw.client.Tiles().Len() != 0 || tw.client.EntityCount() != 0 {
		t.Errorf("world state survived stop")
	}

	if handled, _ := tw.client.HandlePacket(&message.ChatReceive{}); handled {
		t.Errorf("universe packets are not world packets")
	}
}
