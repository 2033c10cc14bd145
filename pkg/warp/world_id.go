package warp

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

type WorldKind uint8

const (
	WorldKind_None WorldKind = iota
	WorldKind_ClientShip
	WorldKind_Celestial
	WorldKind_Instance
)

// WorldId identifies a world context: a player's ship, a celestial body, or a
// named instance (optionally private to one owner).
type WorldId struct {
	Kind         WorldKind
	ShipOwner    uuid.UUID
	Celestial    celestial.Coordinate
	Instance     string
	InstanceUuid uuid.UUID
}

func ClientShipWorld(owner uuid.UUID) WorldId {
	return WorldId{Kind: WorldKind_ClientShip, ShipOwner: owner}
}

func CelestialWorld(c celestial.Coordinate) WorldId {
	return WorldId{Kind: WorldKind_Celestial, Celestial: c}
}

func InstanceWorld(name string, owner uuid.UUID) WorldId {
	return WorldId{Kind: WorldKind_Instance, Instance: name, InstanceUuid: owner}
}

func (id WorldId) IsNone() bool {
	return id.Kind == WorldKind_None
}

func (id WorldId) String() string {
	switch id.Kind {
	case WorldKind_ClientShip:
		return fmt.Sprintf("ClientShipWorld:%s", id.ShipOwner)
	case WorldKind_Celestial:
		return fmt.Sprintf("CelestialWorld:%s", id.Celestial)
	case WorldKind_Instance:
		if id.InstanceUuid == uuid.Nil {
			return fmt.Sprintf("InstanceWorld:%s:-", id.Instance)
		}
		return fmt.Sprintf("InstanceWorld:%s:%s", id.Instance, id.InstanceUuid)
	}
	return "Nowhere"
}

func (id WorldId) Write(w *datastream.Writer) {
	w.WriteUint8(uint8(id.Kind))
	switch id.Kind {
	case WorldKind_ClientShip:
		w.WriteUUID(id.ShipOwner)
	case WorldKind_Celestial:
		id.Celestial.Write(w)
	case WorldKind_Instance:
		w.WriteString(id.Instance)
		w.WriteUUID(id.InstanceUuid)
	}
}

func ReadWorldId(r *datastream.Reader) (WorldId, error) {
	kind := WorldKind(r.ReadUint8())
	id := WorldId{Kind: kind}
	switch kind {
	case WorldKind_None:
	case WorldKind_ClientShip:
		id.ShipOwner = r.ReadUUID()
	case WorldKind_Celestial:
		id.Celestial = celestial.ReadCoordinate(r)
	case WorldKind_Instance:
		id.Instance = r.ReadString()
		id.InstanceUuid = r.ReadUUID()
	default:
		return WorldId{}, &errors.InvalidEnumValue{EnumName: "WorldKind", IntValue: uint8(kind)}
	}
	return id, r.Err()
}
