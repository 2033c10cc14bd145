package worldclient

import (
	"math"
	"time"
)

// InterpolationTracker derives how far behind real time remote entities are
// rendered from the arrival pattern of step updates: steady arrivals allow a
// short window, jittery ones need a longer one.
type InterpolationTracker struct {
	min, max time.Duration

	hasArrival   bool
	lastArrival  time.Time
	meanInterval float64
	jitter       float64
	samples      int

	remoteTime float64
}

// Weight of the newest sample in the running averages.
const trackerSmoothing = 0.1

func NewInterpolationTracker(minTime, maxTime time.Duration) *InterpolationTracker {
	return &InterpolationTracker{min: minTime, max: maxTime}
}

func (t *InterpolationTracker) ReceiveStep(remoteTime float64, now time.Time) {
	t.remoteTime = remoteTime
	if !t.hasArrival {
		t.hasArrival = true
		t.lastArrival = now
		return
	}

	interval := now.Sub(t.lastArrival).Seconds()
	t.lastArrival = now
	if t.samples == 0 {
		t.meanInterval = interval
	} else {
		t.jitter += trackerSmoothing * (math.Abs(interval-t.meanInterval) - t.jitter)
		t.meanInterval += trackerSmoothing * (interval - t.meanInterval)
	}
	t.samples++
}

// InterpolationTime is the blend duration for newly applied entity state.
func (t *InterpolationTracker) InterpolationTime() time.Duration {
	if t.samples == 0 {
		return t.min
	}
	d := time.Duration((t.meanInterval + 2*t.jitter) * float64(time.Second))
	if d < t.min {
		return t.min
	}
	if d > t.max {
		return t.max
	}
	return d
}

// RemoteTime is the server's world time as of the last step update.
func (t *InterpolationTracker) RemoteTime() float64 {
	return t.remoteTime
}

func (t *InterpolationTracker) Reset() {
	*t = InterpolationTracker{min: t.min, max: t.max}
}
