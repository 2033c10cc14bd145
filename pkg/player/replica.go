package player

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Replica is a remote player, driven only by diffs from its master.
type Replica struct {
	identity Identity
	state    *netState
}

func CreateReplica(identity Identity) *Replica {
	return &Replica{
		identity: identity,
		state:    newNetState(mgl32.Vec2{}, DefaultMaxHealth),
	}
}

func (r *Replica) Identity() Identity {
	return r.identity
}

func (r *Replica) ReadNetState(diff []byte, interpolationTime time.Duration) error {
	return r.state.group.Read(diff, interpolationTime)
}

func (r *Replica) NetVersion() uint64 {
	return r.state.group.Version()
}

func (r *Replica) EnableInterpolation() {
	r.state.group.EnableInterpolation()
}

func (r *Replica) DisableInterpolation() {
	r.state.group.DisableInterpolation()
}

// Update blends interpolated fields toward their latest targets.
func (r *Replica) Update(dt time.Duration) {
	r.state.group.TickInterpolation(dt)
}

func (r *Replica) Position() mgl32.Vec2 {
	return r.state.position.Get()
}

func (r *Replica) Aim() mgl32.Vec2 {
	return r.state.aim.Get()
}

func (r *Replica) Health() float32 {
	return r.state.health.Get()
}

func (r *Replica) IsDead() bool {
	return r.state.dead.Get()
}

// PullDied reports whether a death was applied since the last call.
func (r *Replica) PullDied() bool {
	return r.state.deaths.PullOccurred()
}

func (r *Replica) IsTeleporting() bool {
	return r.state.teleporting.Get()
}

func (r *Replica) TeleportAnimation() string {
	return r.state.teleportAnimation.Get()
}

func (r *Replica) ChatBubble() string {
	return r.state.chatBubble.Get()
}
