package universe

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/internal/fakeserver"
	"github.com/sessamekesh/universe-client/pkg/assets"
	"github.com/sessamekesh/universe-client/pkg/message"
	"github.com/sessamekesh/universe-client/pkg/player"
	"github.com/sessamekesh/universe-client/pkg/storage"
	"github.com/sessamekesh/universe-client/pkg/warp"
	"github.com/sessamekesh/universe-client/pkg/worldclient"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	client *UniverseClient
	root   *assets.Root
	server *fakeserver.Server
	now    time.Time
}

func testConfig() assets.Config {
	cfg := assets.DefaultConfig()
	cfg.HandshakeTimeout = time.Second
	cfg.DisconnectTimeout = 50 * time.Millisecond
	cfg.TeleportOutDuration = 100 * time.Millisecond
	cfg.TeleportInDuration = 100 * time.Millisecond
	cfg.MinimumWarpCinema = 0
	cfg.RespawnDelay = 100 * time.Millisecond
	cfg.StorageInterval = time.Hour
	return cfg
}

func newHarness(t *testing.T, cfg assets.Config, mode player.Mode, params UniverseClientParams) *harness {
	t.Helper()
	h := &harness{now: time.Unix(10000, 0)}

	root, err := assets.CreateRoot(assets.RootParams{Config: cfg, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	h.root = root

	master := player.CreateMaster(player.MasterParams{
		Identity: player.Identity{Uuid: uuid.New(), Name: "Nova", Species: "avian", Mode: mode},
		Logger:   zaptest.NewLogger(t),
	})
	params.Now = func() time.Time { return h.now }
	params.Logger = zaptest.NewLogger(t)
	h.client = CreateUniverseClient(root, master, params)
	return h
}

func (h *harness) connect(t *testing.T, params fakeserver.Params) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	params.Extended = true
	params.Logger = zaptest.NewLogger(t)
	socket, done := fakeserver.Start(ctx, params)
	err := h.client.Connect(ctx, socket)
	res := <-done
	if res.Err != nil {
		t.Fatalf("server: %v", res.Err)
	}
	h.server = res.Server
	return err
}

func (h *harness) send(t *testing.T, packets ...message.Packet) {
	t.Helper()
	if err := h.server.Send(packets...); err != nil {
		t.Fatalf("server send: %v", err)
	}
}

func (h *harness) tick(dt time.Duration) {
	h.now = h.now.Add(dt)
	h.client.Update(dt)
}

func drainType[T message.Packet](t *testing.T, h *harness) []T {
	t.Helper()
	packets, err := h.server.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	var out []T
	for _, p := range packets {
		if match, ok := p.(T); ok {
			out = append(out, match)
		}
	}
	return out
}

func connected(t *testing.T, mode player.Mode, cfg assets.Config) *harness {
	t.Helper()
	h := newHarness(t, cfg, mode, UniverseClientParams{})
	if err := h.connect(t, fakeserver.Params{ClientId: 3}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return h
}

func TestConnectBuildsSession(t *testing.T) {
	h := newHarness(t, testConfig(), player.Mode_Casual, UniverseClientParams{Account: "nova"})
	serverUuid := uuid.New()
	if err := h.connect(t, fakeserver.Params{
		ClientId:     4,
		ServerUuid:   serverUuid,
		AfterConnect: []message.Packet{&message.ServerInfo{Players: 3, MaxPlayers: 8}},
	}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if !h.client.IsConnected() || h.client.DisconnectReason() != "" {
		t.Fatalf("expected a live session")
	}
	if h.client.ClientId() != 4 || h.client.ServerUuid() != serverUuid {
		t.Errorf("unexpected session identity %d %s", h.client.ClientId(), h.client.ServerUuid())
	}
	if h.client.Context().ServerUuid() != serverUuid || h.client.Context().PlayerUuid() != h.client.Player().Uuid() {
		t.Errorf("client context does not match the session")
	}
	if h.client.World() == nil || h.client.Celestial() == nil {
		t.Errorf("expected world and celestial replicas")
	}

	h.tick(10 * time.Millisecond)
	info, ok := h.client.ServerInfo()
	if !ok || info.Players != 3 || info.MaxPlayers != 8 {
		t.Errorf("expected server info 3/8, got %+v (%v)", info, ok)
	}
}

func TestRejectedConnectLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, testConfig(), player.Mode_Casual, UniverseClientParams{})
	err := h.connect(t, fakeserver.Params{RejectReason: "Server is full"})
	if err == nil {
		t.Fatalf("expected the connection to fail")
	}
	if err.Error() != "Join failed! Server is full" {
		t.Errorf("unexpected error %q", err.Error())
	}
	if h.client.IsConnected() || h.client.Context() != nil || h.client.World() != nil {
		t.Errorf("failed connect left a session behind")
	}
	if h.client.DisconnectReason() != err.Error() {
		t.Errorf("expected disconnect reason %q, got %q", err.Error(), h.client.DisconnectReason())
	}

	h.tick(10 * time.Millisecond)
	if h.client.IsConnected() {
		t.Errorf("update connected a failed client")
	}
}

func TestServerDisconnectShortCircuitsBatch(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.send(t,
		&message.ServerDisconnect{Reason: "Kicked by an admin"},
		&message.ChatReceive{FromNick: "admin", Text: "bye"},
	)
	h.tick(10 * time.Millisecond)

	if h.client.IsConnected() {
		t.Fatalf("expected the session to end")
	}
	if h.client.DisconnectReason() != "Kicked by an admin" {
		t.Errorf("unexpected reason %q", h.client.DisconnectReason())
	}
	if msgs := h.client.PullChatMessages(); len(msgs) != 0 {
		t.Errorf("packets after ServerDisconnect were dispatched: %+v", msgs)
	}
}

func TestRemoteCloseEndsSession(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.server.Conn.Close("server shutting down")
	h.tick(10 * time.Millisecond)

	if h.client.IsConnected() {
		t.Errorf("expected the session to end when the socket closes")
	}
	if h.client.DisconnectReason() == "" {
		t.Errorf("expected a disconnect reason")
	}
}

func TestWarpRoundTrip(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	action := warp.ToAlias(warp.Alias_OrbitedWorld)

	if !h.client.WarpPlayer(action, "beam", false) {
		t.Fatalf("warp rejected")
	}
	if h.client.WarpPlayer(warp.ToAlias(warp.Alias_Return), "beam", false) {
		t.Errorf("second warp accepted while one is in flight")
	}
	if !h.client.Player().IsTeleporting() {
		t.Errorf("expected the teleport-out animation to start")
	}

	h.tick(50 * time.Millisecond)
	if sent := drainType[*message.PlayerWarp](t, h); len(sent) != 0 {
		t.Fatalf("warp sent before the animation finished")
	}

	h.tick(60 * time.Millisecond)
	sent := drainType[*message.PlayerWarp](t, h)
	if len(sent) != 1 || sent[0].Action.Alias != warp.Alias_OrbitedWorld {
		t.Fatalf("expected exactly one warp request, got %+v", sent)
	}
	if !h.client.WarpCinemaActive() {
		t.Errorf("expected the warp cinema while awaiting the result")
	}

	h.send(t, &message.PlayerWarpResult{Success: true, Action: action})
	h.tick(10 * time.Millisecond)
	h.tick(10 * time.Millisecond)
	if h.client.WarpState() != warp.State_TeleportingIn {
		t.Errorf("expected TeleportingIn, got %s", h.client.WarpState())
	}
	if h.client.Player().IsTeleporting() {
		t.Errorf("player should have finished teleporting")
	}

	h.tick(200 * time.Millisecond)
	if h.client.WarpState() != warp.State_Idle {
		t.Errorf("expected Idle, got %s", h.client.WarpState())
	}
	if h.client.Statistics().Warps != 1 {
		t.Errorf("expected one warp counted, got %d", h.client.Statistics().Warps)
	}
	if sent := drainType[*message.PlayerWarp](t, h); len(sent) != 0 {
		t.Errorf("warp request sent more than once")
	}
}

func TestFailedBookmarkWarpIsReported(t *testing.T) {
	cfg := testConfig()
	cfg.TeleportOutDuration = 0
	h := connected(t, player.Mode_Casual, cfg)
	action := warp.ToBookmark("home")

	if !h.client.WarpPlayer(action, "", false) {
		t.Fatalf("warp rejected")
	}
	h.tick(10 * time.Millisecond)
	if sent := drainType[*message.PlayerWarp](t, h); len(sent) != 1 {
		t.Fatalf("expected the warp to be sent, got %d", len(sent))
	}

	h.send(t, &message.PlayerWarpResult{Success: false, Action: action, ActionInvalid: true})
	h.tick(10 * time.Millisecond)
	h.tick(10 * time.Millisecond)

	if h.client.WarpState() != warp.State_Aborted {
		t.Errorf("expected Aborted, got %s", h.client.WarpState())
	}
	if h.client.Player().IsTeleporting() {
		t.Errorf("failed warp left the player teleporting")
	}
	if got := h.client.PullInvalidBookmarks(); len(got) != 1 || got[0] != "home" {
		t.Errorf("expected [home], got %v", got)
	}
	if got := h.client.PullInvalidBookmarks(); len(got) != 0 {
		t.Errorf("invalid bookmarks were not cleared")
	}
}

func TestStrayWarpResultIsIgnored(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.send(t, &message.PlayerWarpResult{Success: true, Action: warp.ToAlias(warp.Alias_OwnShip)})
	h.tick(10 * time.Millisecond)

	if !h.client.IsConnected() || h.client.WarpState() != warp.State_Idle {
		t.Errorf("stray warp result changed state")
	}
}

func TestRespawnWarpsToShip(t *testing.T) {
	h := connected(t, player.Mode_Survival, testConfig())
	h.client.Player().Kill()

	h.tick(10 * time.Millisecond)
	if !h.client.RespawnPending() {
		t.Fatalf("expected a respawn countdown")
	}
	if h.client.Statistics().Deaths != 1 {
		t.Errorf("expected one death, got %d", h.client.Statistics().Deaths)
	}

	h.tick(100 * time.Millisecond)
	h.tick(10 * time.Millisecond)
	sent := drainType[*message.PlayerWarp](t, h)
	if len(sent) != 1 || sent[0].Action.Kind != warp.ActionKind_Alias || sent[0].Action.Alias != warp.Alias_OwnShip {
		t.Fatalf("expected a warp to the player's ship, got %+v", sent)
	}

	h.send(t,
		&message.PlayerWarpResult{Success: true, Action: sent[0].Action},
		&message.WorldStart{PlayerStart: mgl32.Vec2{5, 6}, Width: 64, Height: 64, ClientId: 3},
	)
	h.tick(10 * time.Millisecond)

	if h.client.Player().IsDead() {
		t.Fatalf("player was not revived on arrival")
	}
	if pos := h.client.Player().Position(); pos != (mgl32.Vec2{5, 6}) {
		t.Errorf("expected revival at the world start, got %v", pos)
	}
	if h.client.RespawnPending() {
		t.Errorf("respawn still pending after revival")
	}
	if h.client.Statistics().Deaths != 1 {
		t.Errorf("death counted twice")
	}
}

func TestRespawnInPlace(t *testing.T) {
	h := connected(t, player.Mode_Survival, testConfig())
	h.send(t, &message.WorldStart{PlayerStart: mgl32.Vec2{1, 2}, Width: 64, Height: 64, RespawnInWorld: true, ClientId: 3})
	h.tick(10 * time.Millisecond)
	if !h.client.World().InWorld() {
		t.Fatalf("expected to be in a world")
	}

	h.client.Player().Move(mgl32.Vec2{30, 30})
	h.client.Player().Kill()
	h.tick(10 * time.Millisecond)
	h.tick(100 * time.Millisecond)

	if h.client.Player().IsDead() {
		t.Fatalf("expected an in-place revival")
	}
	if pos := h.client.Player().Position(); pos != (mgl32.Vec2{1, 2}) {
		t.Errorf("expected revival at the world start, got %v", pos)
	}
	if h.client.WarpState() != warp.State_Idle {
		t.Errorf("in-place respawn started a warp")
	}
	h.tick(10 * time.Millisecond)
	if sent := drainType[*message.PlayerWarp](t, h); len(sent) != 0 {
		t.Errorf("in-place respawn sent a warp request")
	}
}

func TestPermadeathNeverRespawns(t *testing.T) {
	h := connected(t, player.Mode_Hardcore, testConfig())
	h.client.Player().Kill()

	for i := 0; i < 10; i++ {
		h.tick(time.Second)
	}
	if !h.client.Player().IsDead() || h.client.RespawnPending() {
		t.Errorf("permadead player entered the respawn cycle")
	}
	if h.client.WarpState() != warp.State_Idle {
		t.Errorf("permadeath started a warp")
	}
	if h.client.Statistics().Deaths != 1 {
		t.Errorf("expected one death, got %d", h.client.Statistics().Deaths)
	}
}

func TestChatIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.ChatMessagesPerSecond = 1
	cfg.ChatBurst = 2
	h := connected(t, player.Mode_Casual, cfg)

	if !h.client.SendChat("one", message.ChatSendMode_Local) || !h.client.SendChat("two", message.ChatSendMode_Broadcast) {
		t.Fatalf("burst messages were refused")
	}
	if h.client.SendChat("three", message.ChatSendMode_Broadcast) {
		t.Errorf("message over the limit was accepted")
	}
	if h.client.SendChat("", message.ChatSendMode_Broadcast) {
		t.Errorf("empty message was accepted")
	}

	h.tick(10 * time.Millisecond)
	sent := drainType[*message.ChatSend](t, h)
	if len(sent) != 2 || sent[0].Text != "one" || sent[1].Text != "two" {
		t.Errorf("unexpected chat sent %+v", sent)
	}
	stats := h.client.Statistics()
	if stats.ChatMessagesSent != 2 || stats.ChatMessagesDropped != 1 {
		t.Errorf("unexpected chat statistics %+v", stats)
	}

	h.send(t, &message.ChatReceive{
		Context:  message.ChatMessageContext{Mode: message.ChatMode_Broadcast},
		FromNick: "Lyra",
		Text:     "hello",
	})
	h.tick(10 * time.Millisecond)
	msgs := h.client.PullChatMessages()
	if len(msgs) != 1 || msgs[0].FromNick != "Lyra" || msgs[0].Text != "hello" {
		t.Errorf("unexpected chat received %+v", msgs)
	}
}

func TestUniverseClockFreezesWhilePaused(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.send(t, &message.UniverseTimeUpdate{UniverseTime: 100})
	h.tick(0)
	h.tick(2 * time.Second)
	if got := h.client.UniverseTime(); got != 102 {
		t.Errorf("expected 102, got %v", got)
	}

	h.send(t, &message.Pause{Pause: true, TimeScale: 1})
	h.tick(0)
	playTime := h.client.Statistics().PlayTime
	h.tick(5 * time.Second)
	if !h.client.Paused() {
		t.Fatalf("expected paused")
	}
	if got := h.client.UniverseTime(); got != 102 {
		t.Errorf("expected the clock to hold at 102, got %v", got)
	}
	if h.client.Statistics().PlayTime != playTime {
		t.Errorf("simulation advanced while paused")
	}

	h.send(t, &message.Pause{Pause: false, TimeScale: 1})
	h.tick(0)
	h.tick(time.Second)
	if got := h.client.UniverseTime(); got != 103 {
		t.Errorf("expected 103, got %v", got)
	}
}

func TestContextUpdatesAreApplied(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.server.Context.SetAdmin(true)
	if err := h.server.SendContext(); err != nil {
		t.Fatalf("send context: %v", err)
	}
	h.tick(10 * time.Millisecond)

	if !h.client.Context().IsAdmin() {
		t.Errorf("context update was not applied")
	}
}

func TestPlayerIsSavedOnInterval(t *testing.T) {
	store, err := storage.CreatePlayerStorage(storage.PlayerStorageParams{
		Directory: filepath.Join(t.TempDir(), "players"),
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	cfg := testConfig()
	cfg.StorageInterval = 10 * time.Second
	h := newHarness(t, cfg, player.Mode_Casual, UniverseClientParams{
		Storage:    store,
		Statistics: Statistics{Deaths: 4},
	})
	if err := h.connect(t, fakeserver.Params{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	id := h.client.Player().Uuid()

	h.tick(5 * time.Second)
	if store.Exists(id) {
		t.Fatalf("saved before the interval elapsed")
	}
	h.tick(6 * time.Second)
	rec, err := LoadSave(store, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Player.Name != "Nova" || rec.Statistics.Deaths != 4 || !rec.SavedAt.Equal(h.now) {
		t.Errorf("unexpected save record %+v", rec)
	}

	h.tick(time.Second)
	h.client.Disconnect(context.Background())
	rec, err = LoadSave(store, id)
	if err != nil || !rec.SavedAt.Equal(h.now) {
		t.Errorf("expected a save on disconnect, got %+v (%v)", rec, err)
	}
}

func TestDisconnectSendsRequest(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	if !h.client.WarpPlayer(warp.ToAlias(warp.Alias_OwnShip), "beam", false) {
		t.Fatalf("warp rejected")
	}

	h.client.Disconnect(context.Background())
	if h.client.IsConnected() {
		t.Fatalf("still connected after disconnect")
	}
	if h.client.DisconnectReason() != "Disconnected" {
		t.Errorf("unexpected reason %q", h.client.DisconnectReason())
	}
	if h.client.WarpState() != warp.State_Idle || h.client.Player().IsTeleporting() {
		t.Errorf("warp state survived the disconnect")
	}
	if sent := drainType[*message.ClientDisconnectRequest](t, h); len(sent) != 1 {
		t.Errorf("expected one disconnect request, got %d", len(sent))
	}
	if h.client.WarpPlayer(warp.ToAlias(warp.Alias_OwnShip), "beam", false) {
		t.Errorf("warp accepted while disconnected")
	}
}

func TestReloadedConfigIsApplied(t *testing.T) {
	cfg := testConfig()
	cfg.TeleportOutDuration = time.Hour
	h := connected(t, player.Mode_Casual, cfg)

	cfg.FastRespawn = true
	if err := h.root.Reload(cfg); err != nil {
		t.Fatalf("reload: %v", err)
	}
	h.tick(time.Millisecond)

	if !h.client.WarpPlayer(warp.ToAlias(warp.Alias_OwnShip), "beam", false) {
		t.Fatalf("warp rejected")
	}
	h.tick(time.Millisecond)
	if sent := drainType[*message.PlayerWarp](t, h); len(sent) != 1 {
		t.Errorf("expected fast respawn to skip the animation, got %d requests", len(sent))
	}
}

func TestPanicInUpdateEndsSession(t *testing.T) {
	h := connected(t, player.Mode_Casual, testConfig())
	h.client.World().RegisterEntityFactory(worldclient.EntityType_Monster, func([]byte) (worldclient.Entity, error) {
		panic("broken monster")
	})
	h.send(t,
		&message.WorldStart{PlayerStart: mgl32.Vec2{1, 1}, Width: 64, Height: 64, ClientId: 3},
		&message.EntityCreate{EntityType: uint8(worldclient.EntityType_Monster), EntityId: 900},
	)
	h.tick(10 * time.Millisecond)

	if h.client.IsConnected() {
		t.Fatalf("expected the panic to end the session")
	}
	if !strings.HasPrefix(h.client.DisconnectReason(), "Client error: broken monster") {
		t.Errorf("unexpected reason %q", h.client.DisconnectReason())
	}
}

func TestSwapPlayerRepublishesEntity(t *testing.T) {
	store, err := storage.CreatePlayerStorage(storage.PlayerStorageParams{
		Directory: filepath.Join(t.TempDir(), "players"),
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	h := newHarness(t, testConfig(), player.Mode_Casual, UniverseClientParams{
		Storage:    store,
		Statistics: Statistics{Deaths: 2},
	})
	if err := h.connect(t, fakeserver.Params{ClientId: 3}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	old := h.client.Player().Uuid()
	h.send(t, &message.WorldStart{PlayerStart: mgl32.Vec2{5, 6}, Width: 64, Height: 64, ClientId: 3})
	h.tick(10 * time.Millisecond)
	if _, err := h.server.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	entityId := h.client.World().PlayerEntityId()

	swapped := player.Identity{Uuid: uuid.New(), Name: "Orin", Species: "human", Mode: player.Mode_Casual}
	if !h.client.WarpPlayer(warp.ToAlias(warp.Alias_OwnShip), "", false) {
		t.Fatalf("warp rejected")
	}
	if h.client.SwapPlayer(swapped, Statistics{}) {
		t.Fatalf("swap accepted during a warp")
	}
	h.client.warp.Reset()
	h.client.Player().TeleportAbort()

	if !h.client.SwapPlayer(swapped, Statistics{Warps: 7}) {
		t.Fatalf("swap rejected")
	}
	rec, err := LoadSave(store, old)
	if err != nil || rec.Player.Name != "Nova" || rec.Statistics.Deaths != 2 {
		t.Errorf("expected the previous player saved under its uuid, got %+v (%v)", rec, err)
	}
	if h.client.Player().Uuid() != swapped.Uuid || h.client.Statistics().Warps != 7 {
		t.Errorf("swap did not take effect")
	}

	h.tick(10 * time.Millisecond)
	packets, err := h.server.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	destroyAt, createAt := -1, -1
	var create *message.EntityCreate
	for i, p := range packets {
		switch p := p.(type) {
		case *message.EntityDestroy:
			if p.EntityId == entityId {
				destroyAt = i
			}
		case *message.EntityCreate:
			if p.EntityId == entityId {
				createAt = i
				create = p
			}
		}
	}
	if destroyAt < 0 || createAt < destroyAt {
		t.Fatalf("expected destroy then create for entity %d, got %+v", entityId, packets)
	}
	id, err := player.DecodeIdentity(create.StoreData)
	if err != nil || id.Uuid != swapped.Uuid || id.Name != "Orin" {
		t.Errorf("republished entity carries %+v (err %v)", id, err)
	}
}
