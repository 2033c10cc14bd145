package celestial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sessamekesh/universe-client/pkg/datastream"
)

// Coordinate addresses a system, a planet in a system (Planet != 0) or a
// satellite of a planet (Satellite != 0). The zero value is the null coordinate.
type Coordinate struct {
	X, Y, Z   int32
	Planet    int32
	Satellite int32
}

func (c Coordinate) IsNull() bool {
	return c == Coordinate{}
}

func (c Coordinate) IsSystem() bool {
	return !c.IsNull() && c.Planet == 0
}

func (c Coordinate) IsPlanetaryBody() bool {
	return c.Planet != 0 && c.Satellite == 0
}

func (c Coordinate) IsSatellite() bool {
	return c.Planet != 0 && c.Satellite != 0
}

func (c Coordinate) System() Coordinate {
	return Coordinate{X: c.X, Y: c.Y, Z: c.Z}
}

// Parent returns the planet of a satellite or the system of a planet.
func (c Coordinate) Parent() Coordinate {
	if c.IsSatellite() {
		return Coordinate{X: c.X, Y: c.Y, Z: c.Z, Planet: c.Planet}
	}
	return c.System()
}

func (c Coordinate) String() string {
	if c.IsNull() {
		return "null"
	}
	s := fmt.Sprintf("%d:%d:%d", c.X, c.Y, c.Z)
	if c.Planet != 0 {
		s += fmt.Sprintf(":%d", c.Planet)
		if c.Satellite != 0 {
			s += fmt.Sprintf(":%d", c.Satellite)
		}
	}
	return s
}

// ParseCoordinate is the inverse of Coordinate.String.
func ParseCoordinate(s string) (Coordinate, error) {
	if s == "" || s == "null" {
		return Coordinate{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 5 {
		return Coordinate{}, fmt.Errorf("malformed celestial coordinate %q", s)
	}
	values := make([]int32, 5)
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return Coordinate{}, fmt.Errorf("malformed celestial coordinate %q: %w", s, err)
		}
		values[i] = int32(v)
	}
	return Coordinate{X: values[0], Y: values[1], Z: values[2], Planet: values[3], Satellite: values[4]}, nil
}

func (c Coordinate) Write(w *datastream.Writer) {
	w.WriteVarInt(int64(c.X))
	w.WriteVarInt(int64(c.Y))
	w.WriteVarInt(int64(c.Z))
	w.WriteVarInt(int64(c.Planet))
	w.WriteVarInt(int64(c.Satellite))
}

func ReadCoordinate(r *datastream.Reader) Coordinate {
	return Coordinate{
		X:         int32(r.ReadVarInt()),
		Y:         int32(r.ReadVarInt()),
		Z:         int32(r.ReadVarInt()),
		Planet:    int32(r.ReadVarInt()),
		Satellite: int32(r.ReadVarInt()),
	}
}

// Parameters is the metadata the server resolves for a coordinate.
type Parameters struct {
	Coordinate Coordinate
	Name       string
	Seed       uint64
	TypeName   string
	Visitable  bool
}

func (p Parameters) Write(w *datastream.Writer) {
	p.Coordinate.Write(w)
	w.WriteString(p.Name)
	w.WriteUint64(p.Seed)
	w.WriteString(p.TypeName)
	w.WriteBool(p.Visitable)
}

func ReadParameters(r *datastream.Reader) Parameters {
	return Parameters{
		Coordinate: ReadCoordinate(r),
		Name:       r.ReadString(),
		Seed:       r.ReadUint64(),
		TypeName:   r.ReadString(),
		Visitable:  r.ReadBool(),
	}
}

// BaseInformation is the universe layout snapshot sent with ConnectSuccess.
type BaseInformation struct {
	PlanetOrbitalLevels    int32
	SatelliteOrbitalLevels int32
	ChunkSize              int32
	XyCoordRange           [2]int32
	ZCoordRange            [2]int32
}

func (b BaseInformation) Write(w *datastream.Writer) {
	w.WriteInt32(b.PlanetOrbitalLevels)
	w.WriteInt32(b.SatelliteOrbitalLevels)
	w.WriteInt32(b.ChunkSize)
	w.WriteInt32(b.XyCoordRange[0])
	w.WriteInt32(b.XyCoordRange[1])
	w.WriteInt32(b.ZCoordRange[0])
	w.WriteInt32(b.ZCoordRange[1])
}

func ReadBaseInformation(r *datastream.Reader) BaseInformation {
	var b BaseInformation
	b.PlanetOrbitalLevels = r.ReadInt32()
	b.SatelliteOrbitalLevels = r.ReadInt32()
	b.ChunkSize = r.ReadInt32()
	b.XyCoordRange[0] = r.ReadInt32()
	b.XyCoordRange[1] = r.ReadInt32()
	b.ZCoordRange[0] = r.ReadInt32()
	b.ZCoordRange[1] = r.ReadInt32()
	return b
}

// Contains reports whether c lies inside the universe bounds.
func (b BaseInformation) Contains(c Coordinate) bool {
	inXy := func(v int32) bool { return v >= b.XyCoordRange[0] && v <= b.XyCoordRange[1] }
	return inXy(c.X) && inXy(c.Y) && c.Z >= b.ZCoordRange[0] && c.Z <= b.ZCoordRange[1]
}
