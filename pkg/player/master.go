package player

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultMaxHealth float32 = 100

type MasterParams struct {
	Identity  Identity
	Position  mgl32.Vec2
	MaxHealth float32

	Logger *zap.Logger
}

// Master is the authoritative copy of the local player.
type Master struct {
	identity Identity
	state    *netState
	velocity mgl32.Vec2

	log *zap.Logger
}

func CreateMaster(params MasterParams) *Master {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.MaxHealth <= 0 {
		params.MaxHealth = DefaultMaxHealth
	}

	return &Master{
		identity: params.Identity,
		state:    newNetState(params.Position, params.MaxHealth),
		log: logger.With(
			zap.String("component", "PlayerMaster"),
			zap.String("player", params.Identity.Name),
		),
	}
}

func (m *Master) Identity() Identity {
	return m.identity
}

func (m *Master) Uuid() uuid.UUID {
	return m.identity.Uuid
}

// SetIdentity swaps who this player is, as happens when the user switches
// characters between sessions. Net state is kept.
func (m *Master) SetIdentity(id Identity) {
	m.identity = id
	m.log = m.log.With(zap.String("player", id.Name))
}

func (m *Master) Position() mgl32.Vec2 {
	return m.state.position.Get()
}

func (m *Master) Aim() mgl32.Vec2 {
	return m.state.aim.Get()
}

func (m *Master) Health() float32 {
	return m.state.health.Get()
}

func (m *Master) MaxHealth() float32 {
	return m.state.maxHealth.Get()
}

func (m *Master) IsDead() bool {
	return m.state.dead.Get()
}

// IsPermaDead reports a death that no respawn can undo.
func (m *Master) IsPermaDead() bool {
	return m.IsDead() && m.identity.Mode == Mode_Hardcore
}

func (m *Master) IsTeleporting() bool {
	return m.state.teleporting.Get()
}

func (m *Master) TeleportAnimation() string {
	return m.state.teleportAnimation.Get()
}

// Move places the player, bypassing simulation.
func (m *Master) Move(position mgl32.Vec2) {
	m.state.position.Set(position)
}

func (m *Master) SetVelocity(v mgl32.Vec2) {
	m.velocity = v
}

func (m *Master) SetAim(aim mgl32.Vec2) {
	m.state.aim.Set(aim)
}

func (m *Master) SetChatBubble(text string) {
	m.state.chatBubble.Set(text)
}

// Damage lowers health and kills the player when it reaches zero.
func (m *Master) Damage(amount float32) {
	if m.IsDead() || amount <= 0 {
		return
	}
	health := m.state.health.Get() - amount
	if health <= 0 {
		m.state.health.Set(0)
		m.Kill()
		return
	}
	m.state.health.Set(health)
}

func (m *Master) Kill() {
	if m.IsDead() {
		return
	}
	m.state.health.Set(0)
	m.state.dead.Set(true)
	m.state.deaths.Trigger()
	m.velocity = mgl32.Vec2{}
	m.log.Info("Player died", zap.Bool("permadeath", m.identity.Mode == Mode_Hardcore))
}

// Revive restores a dead player in place. Permadead players stay dead.
func (m *Master) Revive(position mgl32.Vec2) bool {
	if !m.IsDead() || m.IsPermaDead() {
		return false
	}
	m.state.dead.Set(false)
	m.state.health.Set(m.state.maxHealth.Get())
	m.state.position.Set(position)
	m.log.Info("Player revived")
	return true
}

// TeleportOut starts the local teleport-out animation. Movement stops until
// TeleportIn or TeleportAbort.
func (m *Master) TeleportOut(animation string) {
	m.state.teleporting.Set(true)
	m.state.teleportAnimation.Set(animation)
	m.velocity = mgl32.Vec2{}
}

// TeleportIn completes a warp at the destination.
func (m *Master) TeleportIn(animation string) {
	m.state.teleporting.Set(false)
	m.state.teleportAnimation.Set(animation)
}

// TeleportAbort reverses a teleport-out, leaving the player where it was.
func (m *Master) TeleportAbort() {
	m.state.teleporting.Set(false)
	m.state.teleportAnimation.Set("")
}

// Update advances the free-running simulation by dt.
func (m *Master) Update(dt time.Duration) {
	if m.IsDead() || m.IsTeleporting() || m.velocity.Len() == 0 {
		return
	}
	step := m.velocity.Mul(float32(dt.Seconds()))
	m.state.position.Set(m.state.position.Get().Add(step))
}

// WriteNetState returns a diff for an observer at version since.
func (m *Master) WriteNetState(since uint64) ([]byte, uint64) {
	return m.state.group.Write(since)
}

func (m *Master) NetVersion() uint64 {
	return m.state.group.Version()
}

func (m *Master) SaveData() SaveData {
	return SaveData{
		Uuid:      m.identity.Uuid.String(),
		Name:      m.identity.Name,
		Species:   m.identity.Species,
		Mode:      m.identity.Mode.String(),
		PositionX: m.Position().X(),
		PositionY: m.Position().Y(),
		Health:    m.Health(),
		MaxHealth: m.MaxHealth(),
		Dead:      m.IsDead(),
	}
}
