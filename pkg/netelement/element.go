// Package netelement implements versioned, positional state replication.
//
// A Group is an ordered list of elements. The authoritative side mutates
// elements and calls Write to produce a diff covering everything changed since
// an observer's last known version; the replica side applies diffs with Read.
// Element order is fixed at registration and must be identical on both sides.
package netelement

import (
	"time"

	"github.com/sessamekesh/universe-client/pkg/datastream"
)

// Element is one replicated field inside a Group.
type Element interface {
	bind(g *Group)
	lastUpdated() uint64
	setUpdated(version uint64)
	netWrite(w *datastream.Writer, since uint64)
	netRead(r *datastream.Reader, interpolationTime time.Duration, version uint64) error
	// netSkip consumes an encoded value without applying it.
	netSkip(r *datastream.Reader) error
	setInterpolation(enabled bool)
	tickInterpolation(dt time.Duration)
	beginApplication()
}

type base struct {
	group   *Group
	updated uint64
}

func (b *base) bind(g *Group) {
	b.group = g
}

func (b *base) lastUpdated() uint64 {
	return b.updated
}

func (b *base) setUpdated(version uint64) {
	b.updated = version
}

func (b *base) markUpdated() {
	if b.group != nil {
		b.updated = b.group.touch()
	}
}

func (b *base) setInterpolation(bool)           {}
func (b *base) tickInterpolation(time.Duration) {}
func (b *base) beginApplication()               {}

type codec[T comparable] struct {
	write func(w *datastream.Writer, v T)
	read  func(r *datastream.Reader) T
}

// Value is a plain element: reads overwrite it immediately.
type Value[T comparable] struct {
	base
	value T
	codec codec[T]
}

type (
	Int    = Value[int64]
	Uint   = Value[uint64]
	Bool   = Value[bool]
	String = Value[string]
)

func NewInt(v int64) *Int {
	return &Int{value: v, codec: codec[int64]{
		write: func(w *datastream.Writer, v int64) { w.WriteVarInt(v) },
		read:  func(r *datastream.Reader) int64 { return r.ReadVarInt() },
	}}
}

func NewUint(v uint64) *Uint {
	return &Uint{value: v, codec: codec[uint64]{
		write: func(w *datastream.Writer, v uint64) { w.WriteVarUint(v) },
		read:  func(r *datastream.Reader) uint64 { return r.ReadVarUint() },
	}}
}

func NewBool(v bool) *Bool {
	return &Bool{value: v, codec: codec[bool]{
		write: func(w *datastream.Writer, v bool) { w.WriteBool(v) },
		read:  func(r *datastream.Reader) bool { return r.ReadBool() },
	}}
}

func NewString(v string) *String {
	return &String{value: v, codec: codec[string]{
		write: func(w *datastream.Writer, v string) { w.WriteString(v) },
		read:  func(r *datastream.Reader) string { return r.ReadString() },
	}}
}

func (e *Value[T]) Get() T {
	return e.value
}

func (e *Value[T]) Set(v T) {
	if e.value == v {
		return
	}
	e.value = v
	e.markUpdated()
}

func (e *Value[T]) netWrite(w *datastream.Writer, _ uint64) {
	e.codec.write(w, e.value)
}

func (e *Value[T]) netSkip(r *datastream.Reader) error {
	e.codec.read(r)
	return r.Err()
}

func (e *Value[T]) netRead(r *datastream.Reader, _ time.Duration, _ uint64) error {
	v := e.codec.read(r)
	if err := r.Err(); err != nil {
		return err
	}
	e.value = v
	return nil
}

// Bytes holds an opaque blob, compared by content on Set.
type Bytes struct {
	base
	value []byte
}

func NewBytes(v []byte) *Bytes {
	return &Bytes{value: v}
}

func (e *Bytes) Get() []byte {
	return e.value
}

func (e *Bytes) Set(v []byte) {
	if string(e.value) == string(v) {
		return
	}
	e.value = append([]byte(nil), v...)
	e.markUpdated()
}

func (e *Bytes) netWrite(w *datastream.Writer, _ uint64) {
	w.WriteBytes(e.value)
}

func (e *Bytes) netSkip(r *datastream.Reader) error {
	r.ReadBytes()
	return r.Err()
}

func (e *Bytes) netRead(r *datastream.Reader, _ time.Duration, _ uint64) error {
	v := r.ReadBytes()
	if err := r.Err(); err != nil {
		return err
	}
	e.value = v
	return nil
}

// Event replicates a trigger count. On the replica each application of a diff
// reports how many triggers happened since the previous application; anything
// not pulled before the next application is discarded.
type Event struct {
	base
	count       uint64
	occurred    uint64
	initialized bool
}

func NewEvent() *Event {
	return &Event{}
}

func (e *Event) Trigger() {
	e.count++
	e.markUpdated()
}

func (e *Event) Count() uint64 {
	return e.count
}

// PullOccurrences returns and clears the occurrences recorded by the most
// recent application.
func (e *Event) PullOccurrences() uint64 {
	n := e.occurred
	e.occurred = 0
	return n
}

func (e *Event) PullOccurred() bool {
	return e.PullOccurrences() > 0
}

func (e *Event) beginApplication() {
	e.occurred = 0
}

func (e *Event) netWrite(w *datastream.Writer, _ uint64) {
	w.WriteVarUint(e.count)
}

func (e *Event) netSkip(r *datastream.Reader) error {
	r.ReadVarUint()
	return r.Err()
}

func (e *Event) netRead(r *datastream.Reader, _ time.Duration, _ uint64) error {
	n := r.ReadVarUint()
	if err := r.Err(); err != nil {
		return err
	}
	// The first snapshot only establishes the baseline, history never fires.
	if e.initialized && n > e.count {
		e.occurred = n - e.count
	}
	e.count = n
	e.initialized = true
	return nil
}
