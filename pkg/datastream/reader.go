package datastream

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

// Reader decodes values written by Writer. The first failed read is sticky:
// every later read returns a zero value and Err reports the original failure.
type Reader struct {
	name string
	data []byte
	pos  int
	err  error
}

// NewReader wraps data. name shows up in Underflow errors.
func NewReader(data []byte, name string) *Reader {
	return &Reader{name: name, data: data}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) AtEnd() bool {
	return r.pos >= len(r.data)
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = &errors.Underflow{
			MessageName: r.name,
			MsgSize:     len(r.data),
			MinimumSize: r.pos + n,
		}
		return nil
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *Reader) ReadUint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

func (r *Reader) ReadUint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) ReadVarUint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		r.err = &errors.Underflow{
			MessageName: r.name + "::VarUint",
			MsgSize:     len(r.data),
			MinimumSize: r.pos + 1,
		}
		return 0
	}
	r.pos += n
	return v
}

func (r *Reader) ReadVarInt() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.data[r.pos:])
	if n <= 0 {
		r.err = &errors.Underflow{
			MessageName: r.name + "::VarInt",
			MsgSize:     len(r.data),
			MinimumSize: r.pos + 1,
		}
		return 0
	}
	r.pos += n
	return v
}

func (r *Reader) ReadFloat32() float32 {
	return math.Float32frombits(r.ReadUint32())
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// readLength reads a varint length and bounds it by the remaining input so a
// corrupt prefix can never trigger a huge allocation.
func (r *Reader) readLength() int {
	n := r.ReadVarUint()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.Remaining()) {
		r.err = &errors.Underflow{
			MessageName: r.name,
			MsgSize:     len(r.data),
			MinimumSize: r.pos + int(min(n, uint64(math.MaxInt32))),
		}
		return 0
	}
	return int(n)
}

// ReadBytes returns a copy of a length-prefixed byte block.
func (r *Reader) ReadBytes() []byte {
	n := r.readLength()
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) ReadString() string {
	n := r.readLength()
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *Reader) ReadStrings() []string {
	n := r.readLength()
	if r.err != nil {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.ReadString())
	}
	return out
}

func (r *Reader) ReadUUID() uuid.UUID {
	var u uuid.UUID
	b := r.take(16)
	if b != nil {
		copy(u[:], b)
	}
	return u
}

func (r *Reader) ReadVec2() mgl32.Vec2 {
	x := r.ReadFloat32()
	y := r.ReadFloat32()
	return mgl32.Vec2{x, y}
}

// ReadRest consumes and returns everything left in the input.
func (r *Reader) ReadRest() []byte {
	return r.take(r.Remaining())
}
