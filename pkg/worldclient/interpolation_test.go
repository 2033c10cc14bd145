package worldclient

import (
	"testing"
	"time"
)

func TestSteadyArrivalsUseShortWindow(t *testing.T) {
	tracker := NewInterpolationTracker(10*time.Millisecond, 500*time.Millisecond)
	if got := tracker.InterpolationTime(); got != 10*time.Millisecond {
		t.Fatalf("expected minimum before any samples, got %s", got)
	}

	now := time.Unix(0, 0)
	for i := 0; i < 20; i++ {
		tracker.ReceiveStep(float64(i)/60, now)
		now = now.Add(50 * time.Millisecond)
	}
	got := tracker.InterpolationTime()
	if got < 49*time.Millisecond || got > 51*time.Millisecond {
		t.Errorf("expected about 50ms for steady 50ms steps, got %s", got)
	}
	if tracker.RemoteTime() != 19.0/60 {
		t.Errorf("expected latest remote time, got %f", tracker.RemoteTime())
	}
}

func TestJitterWidensWindow(t *testing.T) {
	steady := NewInterpolationTracker(0, time.Second)
	jittery := NewInterpolationTracker(0, time.Second)

	a, b := time.Unix(0, 0), time.Unix(0, 0)
	for i := 0; i < 40; i++ {
		steady.ReceiveStep(0, a)
		jittery.ReceiveStep(0, b)
		a = a.Add(50 * time.Millisecond)
		if i%2 == 0 {
			b = b.Add(10 * time.Millisecond)
		} else {
			b = b.Add(90 * time.Millisecond)
		}
	}
	if jittery.InterpolationTime() <= steady.InterpolationTime() {
		t.Errorf("jitter should widen the window: steady %s, jittery %s",
			steady.InterpolationTime(), jittery.InterpolationTime())
	}
}

func TestWindowIsClamped(t *testing.T) {
	tracker := NewInterpolationTracker(20*time.Millisecond, 100*time.Millisecond)
	now := time.Unix(0, 0)
	tracker.ReceiveStep(0, now)
	tracker.ReceiveStep(0, now.Add(3*time.Second))
	if got := tracker.InterpolationTime(); got != 100*time.Millisecond {
		t.Errorf("expected clamp to 100ms, got %s", got)
	}

	tracker.Reset()
	if got := tracker.InterpolationTime(); got != 20*time.Millisecond {
		t.Errorf("expected reset to minimum, got %s", got)
	}
}
