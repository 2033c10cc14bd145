package universe

import "time"

// universeClock extrapolates the server's clock between syncs and holds it
// still while paused.
type universeClock struct {
	base   float64
	at     time.Time
	paused bool
}

func (c *universeClock) sync(t float64, now time.Time) {
	c.base = t
	c.at = now
}

func (c *universeClock) pause(paused bool, now time.Time) {
	if paused == c.paused {
		return
	}
	c.base = c.time(now)
	c.at = now
	c.paused = paused
}

func (c *universeClock) time(now time.Time) float64 {
	if c.paused || c.at.IsZero() {
		return c.base
	}
	return c.base + now.Sub(c.at).Seconds()
}
