package worldclient

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/player"
)

type EntityType uint8

const (
	EntityType_Player EntityType = iota
	EntityType_Monster
	EntityType_Object
	EntityType_ItemDrop
	EntityType_Projectile
	EntityType_Npc

	EntityType_NONE
)

// Entity is a replica of an entity mastered elsewhere.
type Entity interface {
	ReadNetState(diff []byte, interpolationTime time.Duration) error
	EnableInterpolation()
	DisableInterpolation()
	// Update advances interpolation by dt.
	Update(dt time.Duration)
	Position() mgl32.Vec2
}

// EntityFactory builds an entity from the store data of its creation packet.
type EntityFactory func(storeData []byte) (Entity, error)

func playerFactory(storeData []byte) (Entity, error) {
	id, err := player.DecodeIdentity(storeData)
	if err != nil {
		return nil, fmt.Errorf("player store data: %w", err)
	}
	return player.CreateReplica(id), nil
}

type entityRecord struct {
	id         int32
	entityType EntityType
	entity     Entity
}

// DestroyedEntity is an entity the server removed, left in its final state.
type DestroyedEntity struct {
	Id     int32
	Type   EntityType
	Entity Entity
	Death  bool
}

// connectionEntitySpace is the range of entity ids a connection may master.
// Id 0 of each range is never assigned.
func connectionEntitySpace(clientId uint16) (int32, int32) {
	lo := int32(clientId) << 16
	return lo, lo + 0xFFFF
}

func fmtId(id int32) string {
	return fmt.Sprintf("%d", id)
}
