package message

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/tile"
)

//
// World lifecycle

type WorldStart struct {
	Template       []byte
	PlayerStart    mgl32.Vec2
	Width          uint32
	Height         uint32
	RespawnInWorld bool
	ClientId       uint16
}

func (p *WorldStart) Type() PacketType { return PacketType_WorldStart }

func (p *WorldStart) Write(w *datastream.Writer) {
	w.WriteBytes(p.Template)
	w.WriteVec2(p.PlayerStart)
	w.WriteUint32(p.Width)
	w.WriteUint32(p.Height)
	w.WriteBool(p.RespawnInWorld)
	w.WriteUint16(p.ClientId)
}

func (p *WorldStart) Read(r *datastream.Reader) error {
	p.Template = r.ReadBytes()
	p.PlayerStart = r.ReadVec2()
	p.Width = r.ReadUint32()
	p.Height = r.ReadUint32()
	p.RespawnInWorld = r.ReadBool()
	p.ClientId = r.ReadUint16()
	return r.Err()
}

type WorldStop struct {
	Reason string
}

func (p *WorldStop) Type() PacketType { return PacketType_WorldStop }

func (p *WorldStop) Write(w *datastream.Writer) {
	w.WriteString(p.Reason)
}

func (p *WorldStop) Read(r *datastream.Reader) error {
	p.Reason = r.ReadString()
	return r.Err()
}

type StepUpdate struct {
	RemoteTime float64
}

func (p *StepUpdate) Type() PacketType { return PacketType_StepUpdate }

func (p *StepUpdate) Write(w *datastream.Writer) {
	w.WriteFloat64(p.RemoteTime)
}

func (p *StepUpdate) Read(r *datastream.Reader) error {
	p.RemoteTime = r.ReadFloat64()
	return r.Err()
}

// WorldClientStateUpdate tells the server which tile region the client wants
// replicated.
type WorldClientStateUpdate struct {
	Window tile.Rect
}

func (p *WorldClientStateUpdate) Type() PacketType { return PacketType_WorldClientStateUpdate }

func (p *WorldClientStateUpdate) Write(w *datastream.Writer) {
	p.Window.Write(w)
}

func (p *WorldClientStateUpdate) Read(r *datastream.Reader) error {
	p.Window = tile.ReadRect(r)
	return r.Err()
}

//
// Tiles

// TileArrayUpdate carries a Width x Height block of tiles in row-major order
// starting at Min.
type TileArrayUpdate struct {
	Min    tile.Pos
	Width  uint32
	Height uint32
	Tiles  []tile.Tile
}

func (p *TileArrayUpdate) Type() PacketType { return PacketType_TileArrayUpdate }

func (p *TileArrayUpdate) Write(w *datastream.Writer) {
	p.Min.Write(w)
	w.WriteVarUint(uint64(p.Width))
	w.WriteVarUint(uint64(p.Height))
	for _, t := range p.Tiles {
		t.Write(w)
	}
}

func (p *TileArrayUpdate) Read(r *datastream.Reader) error {
	p.Min = tile.ReadPos(r)
	p.Width = uint32(r.ReadVarUint())
	p.Height = uint32(r.ReadVarUint())
	count := uint64(p.Width) * uint64(p.Height)
	// A short body underflows on the first missing tile; cap the
	// preallocation so a bogus size cannot balloon memory.
	p.Tiles = make([]tile.Tile, 0, min(count, uint64(r.Remaining())))
	for i := uint64(0); i < count && r.Err() == nil; i++ {
		p.Tiles = append(p.Tiles, tile.ReadTile(r))
	}
	return r.Err()
}

// At returns the tile at world position pos, which must lie inside the block.
func (p *TileArrayUpdate) At(pos tile.Pos) tile.Tile {
	x := pos.X - p.Min.X
	y := pos.Y - p.Min.Y
	return p.Tiles[int(y)*int(p.Width)+int(x)]
}

type TileUpdate struct {
	Pos  tile.Pos
	Tile tile.Tile
}

func (p *TileUpdate) Type() PacketType { return PacketType_TileUpdate }

func (p *TileUpdate) Write(w *datastream.Writer) {
	p.Pos.Write(w)
	p.Tile.Write(w)
}

func (p *TileUpdate) Read(r *datastream.Reader) error {
	p.Pos = tile.ReadPos(r)
	p.Tile = tile.ReadTile(r)
	return r.Err()
}

type ModifyTileList struct {
	Modifications      []tile.Modification
	AllowEntityOverlap bool
}

func (p *ModifyTileList) Type() PacketType { return PacketType_ModifyTileList }

func (p *ModifyTileList) Write(w *datastream.Writer) {
	writeModifications(w, p.Modifications)
	w.WriteBool(p.AllowEntityOverlap)
}

func (p *ModifyTileList) Read(r *datastream.Reader) error {
	p.Modifications = readModifications(r)
	p.AllowEntityOverlap = r.ReadBool()
	return r.Err()
}

// TileModificationFailure lists modifications the server rejected.
type TileModificationFailure struct {
	Modifications []tile.Modification
}

func (p *TileModificationFailure) Type() PacketType { return PacketType_TileModificationFailure }

func (p *TileModificationFailure) Write(w *datastream.Writer) {
	writeModifications(w, p.Modifications)
}

func (p *TileModificationFailure) Read(r *datastream.Reader) error {
	p.Modifications = readModifications(r)
	return r.Err()
}

func writeModifications(w *datastream.Writer, mods []tile.Modification) {
	w.WriteVarUint(uint64(len(mods)))
	for _, m := range mods {
		m.Write(w)
	}
}

func readModifications(r *datastream.Reader) []tile.Modification {
	n := r.ReadVarUint()
	var mods []tile.Modification
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		mods = append(mods, tile.ReadModification(r))
	}
	return mods
}

//
// Entities

type EntityCreate struct {
	EntityType    uint8
	EntityId      int32
	StoreData     []byte
	FirstNetState []byte
}

func (p *EntityCreate) Type() PacketType { return PacketType_EntityCreate }

func (p *EntityCreate) Write(w *datastream.Writer) {
	w.WriteUint8(p.EntityType)
	w.WriteVarInt(int64(p.EntityId))
	w.WriteBytes(p.StoreData)
	w.WriteBytes(p.FirstNetState)
}

func (p *EntityCreate) Read(r *datastream.Reader) error {
	p.EntityType = r.ReadUint8()
	p.EntityId = int32(r.ReadVarInt())
	p.StoreData = r.ReadBytes()
	p.FirstNetState = r.ReadBytes()
	return r.Err()
}

type EntityDelta struct {
	EntityId int32
	Delta    []byte
}

// EntityUpdateSet batches net-state deltas for every entity mastered by
// ForConnection.
type EntityUpdateSet struct {
	ForConnection uint16
	Deltas        []EntityDelta
}

func (p *EntityUpdateSet) Type() PacketType { return PacketType_EntityUpdateSet }

func (p *EntityUpdateSet) Write(w *datastream.Writer) {
	w.WriteUint16(p.ForConnection)
	w.WriteVarUint(uint64(len(p.Deltas)))
	for _, d := range p.Deltas {
		w.WriteVarInt(int64(d.EntityId))
		w.WriteBytes(d.Delta)
	}
}

func (p *EntityUpdateSet) Read(r *datastream.Reader) error {
	p.ForConnection = r.ReadUint16()
	n := r.ReadVarUint()
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		p.Deltas = append(p.Deltas, EntityDelta{
			EntityId: int32(r.ReadVarInt()),
			Delta:    r.ReadBytes(),
		})
	}
	return r.Err()
}

type EntityDestroy struct {
	EntityId      int32
	FinalNetState []byte
	Death         bool
}

func (p *EntityDestroy) Type() PacketType { return PacketType_EntityDestroy }

func (p *EntityDestroy) Write(w *datastream.Writer) {
	w.WriteVarInt(int64(p.EntityId))
	w.WriteBytes(p.FinalNetState)
	w.WriteBool(p.Death)
}

func (p *EntityDestroy) Read(r *datastream.Reader) error {
	p.EntityId = int32(r.ReadVarInt())
	p.FinalNetState = r.ReadBytes()
	p.Death = r.ReadBool()
	return r.Err()
}
