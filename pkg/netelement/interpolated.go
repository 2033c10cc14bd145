package netelement

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/datastream"
)

// blend tracks progress from a start value toward a target.
type blend struct {
	interpolated bool
	enabled      bool
	elapsed      time.Duration
	duration     time.Duration
}

func (b *blend) begin(interpolationTime time.Duration) bool {
	if !b.interpolated || !b.enabled || interpolationTime <= 0 {
		b.duration = 0
		return false
	}
	b.elapsed = 0
	b.duration = interpolationTime
	return true
}

// advance returns the blend fraction and whether the blend is still running.
func (b *blend) advance(dt time.Duration) (float32, bool) {
	if b.duration <= 0 {
		return 1, false
	}
	b.elapsed += dt
	if b.elapsed >= b.duration {
		b.duration = 0
		return 1, false
	}
	return float32(b.elapsed.Seconds() / b.duration.Seconds()), true
}

// Float is a scalar that may blend toward replicated values instead of
// snapping to them.
type Float struct {
	base
	blend
	value  float32
	start  float32
	target float32
}

func NewFloat(v float32, interpolated bool) *Float {
	return &Float{blend: blend{interpolated: interpolated}, value: v, start: v, target: v}
}

func (e *Float) Get() float32 {
	return e.value
}

// Target is the latest replicated value, which Get converges to.
func (e *Float) Target() float32 {
	return e.target
}

func (e *Float) Set(v float32) {
	e.value, e.start, e.blend.duration = v, v, 0
	if e.target == v {
		return
	}
	e.target = v
	e.markUpdated()
}

func (e *Float) netWrite(w *datastream.Writer, _ uint64) {
	w.WriteFloat32(e.target)
}

func (e *Float) netSkip(r *datastream.Reader) error {
	r.ReadFloat32()
	return r.Err()
}

func (e *Float) netRead(r *datastream.Reader, interpolationTime time.Duration, _ uint64) error {
	v := r.ReadFloat32()
	if err := r.Err(); err != nil {
		return err
	}
	e.target = v
	if e.begin(interpolationTime) {
		e.start = e.value
	} else {
		e.value, e.start = v, v
	}
	return nil
}

func (e *Float) setInterpolation(enabled bool) {
	e.enabled = enabled
	if !enabled {
		e.value, e.start, e.blend.duration = e.target, e.target, 0
	}
}

func (e *Float) tickInterpolation(dt time.Duration) {
	t, running := e.advance(dt)
	if !running {
		e.value = e.target
		return
	}
	e.value = e.start + (e.target-e.start)*t
}

// Vec2 is the two dimensional counterpart of Float, used for positions and
// aim vectors.
type Vec2 struct {
	base
	blend
	value  mgl32.Vec2
	start  mgl32.Vec2
	target mgl32.Vec2
}

func NewVec2(v mgl32.Vec2, interpolated bool) *Vec2 {
	return &Vec2{blend: blend{interpolated: interpolated}, value: v, start: v, target: v}
}

func (e *Vec2) Get() mgl32.Vec2 {
	return e.value
}

func (e *Vec2) Target() mgl32.Vec2 {
	return e.target
}

func (e *Vec2) Set(v mgl32.Vec2) {
	e.value, e.start, e.blend.duration = v, v, 0
	if e.target == v {
		return
	}
	e.target = v
	e.markUpdated()
}

func (e *Vec2) netWrite(w *datastream.Writer, _ uint64) {
	w.WriteVec2(e.target)
}

func (e *Vec2) netSkip(r *datastream.Reader) error {
	r.ReadVec2()
	return r.Err()
}

func (e *Vec2) netRead(r *datastream.Reader, interpolationTime time.Duration, _ uint64) error {
	v := r.ReadVec2()
	if err := r.Err(); err != nil {
		return err
	}
	e.target = v
	if e.begin(interpolationTime) {
		e.start = e.value
	} else {
		e.value, e.start = v, v
	}
	return nil
}

func (e *Vec2) setInterpolation(enabled bool) {
	e.enabled = enabled
	if !enabled {
		e.value, e.start, e.blend.duration = e.target, e.target, 0
	}
}

func (e *Vec2) tickInterpolation(dt time.Duration) {
	t, running := e.advance(dt)
	if !running {
		e.value = e.target
		return
	}
	e.value = e.start.Add(e.target.Sub(e.start).Mul(t))
}
