package warp

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

type ActionKind uint8

const (
	ActionKind_None ActionKind = iota
	ActionKind_ToWorld
	ActionKind_ToPlayer
	ActionKind_Alias
	ActionKind_ToBookmark
)

type Alias uint8

const (
	Alias_Return Alias = iota
	Alias_OrbitedWorld
	Alias_OwnShip
)

func (a Alias) String() string {
	switch a {
	case Alias_Return:
		return "Return"
	case Alias_OrbitedWorld:
		return "OrbitedWorld"
	case Alias_OwnShip:
		return "OwnShip"
	}
	return "Unknown"
}

// SpawnTarget picks where in the destination world the player appears. An
// empty UniqueId with HasPosition unset means the world's default spawn.
type SpawnTarget struct {
	UniqueId    string
	HasPosition bool
	Position    mgl32.Vec2
}

// Action is the destination of a warp.
type Action struct {
	Kind     ActionKind
	World    WorldId
	Spawn    SpawnTarget
	Player   uuid.UUID
	Alias    Alias
	Bookmark string
}

func ToWorld(world WorldId, spawn SpawnTarget) Action {
	return Action{Kind: ActionKind_ToWorld, World: world, Spawn: spawn}
}

func ToPlayer(player uuid.UUID) Action {
	return Action{Kind: ActionKind_ToPlayer, Player: player}
}

func ToAlias(alias Alias) Action {
	return Action{Kind: ActionKind_Alias, Alias: alias}
}

func ToBookmark(name string) Action {
	return Action{Kind: ActionKind_ToBookmark, Bookmark: name}
}

func (a Action) IsNone() bool {
	return a.Kind == ActionKind_None
}

func (a Action) String() string {
	switch a.Kind {
	case ActionKind_ToWorld:
		return fmt.Sprintf("WarpToWorld(%s)", a.World)
	case ActionKind_ToPlayer:
		return fmt.Sprintf("WarpToPlayer(%s)", a.Player)
	case ActionKind_Alias:
		return fmt.Sprintf("WarpAlias(%s)", a.Alias)
	case ActionKind_ToBookmark:
		return fmt.Sprintf("WarpToBookmark(%s)", a.Bookmark)
	}
	return "NoWarp"
}

func (a Action) Write(w *datastream.Writer) {
	w.WriteUint8(uint8(a.Kind))
	switch a.Kind {
	case ActionKind_ToWorld:
		a.World.Write(w)
		w.WriteString(a.Spawn.UniqueId)
		w.WriteBool(a.Spawn.HasPosition)
		if a.Spawn.HasPosition {
			w.WriteVec2(a.Spawn.Position)
		}
	case ActionKind_ToPlayer:
		w.WriteUUID(a.Player)
	case ActionKind_Alias:
		w.WriteUint8(uint8(a.Alias))
	case ActionKind_ToBookmark:
		w.WriteString(a.Bookmark)
	}
}

func ReadAction(r *datastream.Reader) (Action, error) {
	a := Action{Kind: ActionKind(r.ReadUint8())}
	switch a.Kind {
	case ActionKind_None:
	case ActionKind_ToWorld:
		world, err := ReadWorldId(r)
		if err != nil {
			return Action{}, err
		}
		a.World = world
		a.Spawn.UniqueId = r.ReadString()
		a.Spawn.HasPosition = r.ReadBool()
		if a.Spawn.HasPosition {
			a.Spawn.Position = r.ReadVec2()
		}
	case ActionKind_ToPlayer:
		a.Player = r.ReadUUID()
	case ActionKind_Alias:
		a.Alias = Alias(r.ReadUint8())
		if a.Alias > Alias_OwnShip {
			return Action{}, &errors.InvalidEnumValue{EnumName: "WarpAlias", IntValue: uint8(a.Alias)}
		}
	case ActionKind_ToBookmark:
		a.Bookmark = r.ReadString()
	default:
		return Action{}, &errors.InvalidEnumValue{EnumName: "WarpActionKind", IntValue: uint8(a.Kind)}
	}
	return a, r.Err()
}

// Request is a warp the local player asked for.
type Request struct {
	Action Action
	// Animation names the teleport-out animation. Empty means warp without one.
	Animation string
	Deploy    bool
}

// Result is the server's answer to a Request.
type Result struct {
	Success       bool
	Action        Action
	ActionInvalid bool
}
