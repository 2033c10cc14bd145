// Package tile holds the tile grid value types shared by the wire protocol and
// the world replica.
package tile

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/datastream"
)

type Pos struct {
	X, Y int32
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// PosAt returns the tile containing a world position.
func PosAt(v mgl32.Vec2) Pos {
	return Pos{X: int32(math.Floor(float64(v[0]))), Y: int32(math.Floor(float64(v[1])))}
}

func (p Pos) Write(w *datastream.Writer) {
	w.WriteVarInt(int64(p.X))
	w.WriteVarInt(int64(p.Y))
}

func ReadPos(r *datastream.Reader) Pos {
	return Pos{X: int32(r.ReadVarInt()), Y: int32(r.ReadVarInt())}
}

// Rect is a half open tile range [Min, Max).
type Rect struct {
	Min, Max Pos
}

func RectAround(center Pos, halfWidth, halfHeight int32) Rect {
	return Rect{
		Min: Pos{X: center.X - halfWidth, Y: center.Y - halfHeight},
		Max: Pos{X: center.X + halfWidth, Y: center.Y + halfHeight},
	}
}

func (r Rect) Contains(p Pos) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

func (r Rect) Padded(n int32) Rect {
	return Rect{
		Min: Pos{X: r.Min.X - n, Y: r.Min.Y - n},
		Max: Pos{X: r.Max.X + n, Y: r.Max.Y + n},
	}
}

func (r Rect) Width() int32 {
	return r.Max.X - r.Min.X
}

func (r Rect) Height() int32 {
	return r.Max.Y - r.Min.Y
}

func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

func (r Rect) Write(w *datastream.Writer) {
	r.Min.Write(w)
	r.Max.Write(w)
}

func ReadRect(r *datastream.Reader) Rect {
	lo := ReadPos(r)
	hi := ReadPos(r)
	return Rect{Min: lo, Max: hi}
}

// Tile is the client visible state of one grid cell.
type Tile struct {
	Foreground uint16
	Background uint16
	Collision  uint8
}

// EmptyMaterial marks a layer without a material.
const EmptyMaterial uint16 = 0

func (t Tile) Write(w *datastream.Writer) {
	w.WriteUint16(t.Foreground)
	w.WriteUint16(t.Background)
	w.WriteUint8(t.Collision)
}

func ReadTile(r *datastream.Reader) Tile {
	return Tile{
		Foreground: r.ReadUint16(),
		Background: r.ReadUint16(),
		Collision:  r.ReadUint8(),
	}
}

type Layer uint8

const (
	Layer_Foreground Layer = iota
	Layer_Background
)

// Modification places (or with EmptyMaterial, removes) a material on one layer.
type Modification struct {
	Pos      Pos
	Layer    Layer
	Material uint16
}

// Apply returns t with the modification applied.
func (m Modification) Apply(t Tile) Tile {
	if m.Layer == Layer_Background {
		t.Background = m.Material
	} else {
		t.Foreground = m.Material
		if m.Material == EmptyMaterial {
			t.Collision = 0
		} else {
			t.Collision = 1
		}
	}
	return t
}

func (m Modification) Write(w *datastream.Writer) {
	m.Pos.Write(w)
	w.WriteUint8(uint8(m.Layer))
	w.WriteUint16(m.Material)
}

func ReadModification(r *datastream.Reader) Modification {
	return Modification{
		Pos:      ReadPos(r),
		Layer:    Layer(r.ReadUint8()),
		Material: r.ReadUint16(),
	}
}
