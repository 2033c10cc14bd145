package netelement

import (
	"fmt"
	"time"

	"github.com/sessamekesh/universe-client/pkg/datastream"
	"github.com/sessamekesh/universe-client/pkg/errors"
)

// Group is an ordered collection of elements sharing one version counter. A
// Group can itself be added to another Group, in which case it shares the
// root's counter.
type Group struct {
	base
	elements []Element

	// version is the root counter: the latest mutation on the authoritative
	// side, or the latest applied diff on the replica side.
	version              uint64
	interpolationEnabled bool
}

func NewGroup() *Group {
	return &Group{}
}

// AddElement registers elements in order. The layout must be complete before
// the first Write or Read.
func (g *Group) AddElement(elements ...Element) {
	for _, e := range elements {
		e.bind(g)
		stamp(e, g.currentVersion())
		e.setInterpolation(g.interpolationEnabled)
		g.elements = append(g.elements, e)
	}
}

func stamp(e Element, version uint64) {
	e.setUpdated(version)
	if child, ok := e.(*Group); ok {
		for _, ce := range child.elements {
			stamp(ce, version)
		}
	}
}

func (g *Group) Len() int {
	return len(g.elements)
}

// Version returns the version of the state this group currently holds.
func (g *Group) Version() uint64 {
	return g.currentVersion()
}

func (g *Group) currentVersion() uint64 {
	if g.group != nil {
		return g.group.currentVersion()
	}
	return g.version
}

func (g *Group) touch() uint64 {
	if g.group != nil {
		v := g.group.touch()
		g.updated = v
		return v
	}
	g.version++
	return g.version
}

// Write produces a diff of every element changed after since, along with the
// version the diff brings a reader to. since == 0 writes the full state. Write
// only reads group state, so any number of observers may call it with their
// own since values. A nil diff means there is nothing new for that observer.
func (g *Group) Write(since uint64) ([]byte, uint64) {
	version := g.currentVersion()
	if since != 0 && since >= version {
		return nil, version
	}

	w := datastream.NewWriter()
	w.WriteVarUint(since)
	w.WriteVarUint(version)
	g.writeElements(w, since)
	return w.Bytes(), version
}

func (g *Group) writeElements(w *datastream.Writer, since uint64) {
	for i, e := range g.elements {
		if since != 0 && e.lastUpdated() <= since {
			continue
		}
		w.WriteVarUint(uint64(i + 1))
		e.netWrite(w, since)
	}
	w.WriteVarUint(0)
}

// Read applies a diff produced by Write on the authoritative copy. Interpolated
// elements blend toward new values over interpolationTime while interpolation
// is enabled. A diff at or below the applied version is ignored, full or not,
// unless nothing has been applied yet; a delta that starts past the applied
// version returns VersionGap. A malformed diff is rejected before any element
// changes.
func (g *Group) Read(diff []byte, interpolationTime time.Duration) error {
	r := datastream.NewReader(diff, "NetElementGroup")
	since := r.ReadVarUint()
	version := r.ReadVarUint()
	if err := r.Err(); err != nil {
		return err
	}

	if g.version != 0 && version <= g.version {
		return nil
	}
	if since != 0 && since > g.version {
		return &errors.VersionGap{AppliedVersion: g.version, DiffSince: since}
	}

	if err := g.validate(r); err != nil {
		return err
	}

	r = datastream.NewReader(diff, "NetElementGroup")
	r.ReadVarUint()
	r.ReadVarUint()
	g.beginApplication()
	if err := g.readElements(r, interpolationTime, version); err != nil {
		return err
	}

	g.version = version
	return nil
}

// validate walks the element section of a diff without applying it.
func (g *Group) validate(r *datastream.Reader) error {
	if err := g.skipElements(r); err != nil {
		return err
	}
	if !r.AtEnd() {
		return fmt.Errorf("net element diff has %d trailing bytes", r.Remaining())
	}
	return nil
}

func (g *Group) skipElements(r *datastream.Reader) error {
	for {
		index := r.ReadVarUint()
		if err := r.Err(); err != nil {
			return err
		}
		if index == 0 {
			return nil
		}
		if index > uint64(len(g.elements)) {
			return fmt.Errorf("net element index %d out of range, group has %d elements", index, len(g.elements))
		}
		if err := g.elements[index-1].netSkip(r); err != nil {
			return err
		}
	}
}

func (g *Group) readElements(r *datastream.Reader, interpolationTime time.Duration, version uint64) error {
	for {
		index := r.ReadVarUint()
		if err := r.Err(); err != nil {
			return err
		}
		if index == 0 {
			return nil
		}
		if index > uint64(len(g.elements)) {
			return fmt.Errorf("net element index %d out of range, group has %d elements", index, len(g.elements))
		}

		e := g.elements[index-1]
		if err := e.netRead(r, interpolationTime, version); err != nil {
			return err
		}
		e.setUpdated(version)
	}
}

func (g *Group) netWrite(w *datastream.Writer, since uint64) {
	g.writeElements(w, since)
}

func (g *Group) netSkip(r *datastream.Reader) error {
	return g.skipElements(r)
}

func (g *Group) netRead(r *datastream.Reader, interpolationTime time.Duration, version uint64) error {
	return g.readElements(r, interpolationTime, version)
}

func (g *Group) EnableInterpolation() {
	g.setInterpolation(true)
}

func (g *Group) DisableInterpolation() {
	g.setInterpolation(false)
}

func (g *Group) InterpolationEnabled() bool {
	return g.interpolationEnabled
}

func (g *Group) setInterpolation(enabled bool) {
	g.interpolationEnabled = enabled
	for _, e := range g.elements {
		e.setInterpolation(enabled)
	}
}

// TickInterpolation advances every blending element. Only replicas call this.
func (g *Group) TickInterpolation(dt time.Duration) {
	for _, e := range g.elements {
		e.tickInterpolation(dt)
	}
}

func (g *Group) beginApplication() {
	for _, e := range g.elements {
		e.beginApplication()
	}
}

func (g *Group) tickInterpolation(dt time.Duration) {
	g.TickInterpolation(dt)
}
