// Package player models the networked player entity. A Master runs on the
// machine that owns the player and produces net state diffs; a Replica runs
// everywhere else and only applies and interpolates them.
package player

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
	"github.com/sessamekesh/universe-client/pkg/netelement"
)

type Mode uint8

const (
	Mode_Casual Mode = iota
	Mode_Survival
	// Hardcore players die permanently.
	Mode_Hardcore

	Mode_NONE
)

func (m Mode) String() string {
	switch m {
	case Mode_Casual:
		return "casual"
	case Mode_Survival:
		return "survival"
	case Mode_Hardcore:
		return "hardcore"
	}
	return "unknown"
}

func ParseMode(s string) (Mode, error) {
	for m := Mode_Casual; m < Mode_NONE; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return Mode_NONE, fmt.Errorf("unknown player mode %q", s)
}

type Identity struct {
	Uuid    uuid.UUID
	Name    string
	Species string
	Mode    Mode
}

func (id Identity) Write(w *datastream.Writer) {
	w.WriteUUID(id.Uuid)
	w.WriteString(id.Name)
	w.WriteString(id.Species)
	w.WriteUint8(uint8(id.Mode))
}

func ReadIdentity(r *datastream.Reader) (Identity, error) {
	id := Identity{
		Uuid:    r.ReadUUID(),
		Name:    r.ReadString(),
		Species: r.ReadString(),
		Mode:    Mode(r.ReadUint8()),
	}
	if err := r.Err(); err != nil {
		return Identity{}, err
	}
	if id.Mode >= Mode_NONE {
		return Identity{}, &errors.InvalidEnumValue{EnumName: "PlayerMode", IntValue: uint8(id.Mode)}
	}
	return id, nil
}

// EncodeIdentity is the store data sent with a player's entity creation.
func EncodeIdentity(id Identity) []byte {
	w := datastream.NewWriter()
	id.Write(w)
	return w.Bytes()
}

func DecodeIdentity(data []byte) (Identity, error) {
	return ReadIdentity(datastream.NewReader(data, "PlayerIdentity"))
}

// netState is the replicated layout. Both sides build it identically.
type netState struct {
	group *netelement.Group

	position          *netelement.Vec2
	aim               *netelement.Vec2
	health            *netelement.Float
	maxHealth         *netelement.Float
	dead              *netelement.Bool
	deaths            *netelement.Event
	teleporting       *netelement.Bool
	teleportAnimation *netelement.String
	chatBubble        *netelement.String
}

func newNetState(position mgl32.Vec2, maxHealth float32) *netState {
	s := &netState{
		group:             netelement.NewGroup(),
		position:          netelement.NewVec2(position, true),
		aim:               netelement.NewVec2(mgl32.Vec2{}, true),
		health:            netelement.NewFloat(maxHealth, false),
		maxHealth:         netelement.NewFloat(maxHealth, false),
		dead:              netelement.NewBool(false),
		deaths:            netelement.NewEvent(),
		teleporting:       netelement.NewBool(false),
		teleportAnimation: netelement.NewString(""),
		chatBubble:        netelement.NewString(""),
	}
	s.group.AddElement(
		s.position,
		s.aim,
		s.health,
		s.maxHealth,
		s.dead,
		s.deaths,
		s.teleporting,
		s.teleportAnimation,
		s.chatBubble,
	)
	return s
}
