package transport

import (
	"sync"
	"time"

	"github.com/sessamekesh/universe-client/pkg/message"
)

type PacketSize struct {
	Type message.PacketType
	Size int
}

// Statistics summarizes recent traffic on a connection for diagnostics.
type Statistics struct {
	BytesPerSecondIn  float64
	BytesPerSecondOut float64
	PacketsIn         uint64
	PacketsOut        uint64
	LargestIn         PacketSize
	LargestOut        PacketSize
}

type trafficSample struct {
	at    time.Time
	bytes int
}

// trafficCounter keeps a rolling window of frame sizes in one direction.
type trafficCounter struct {
	samples []trafficSample
	total   int
	packets uint64
	largest PacketSize
}

func (c *trafficCounter) record(now time.Time, window time.Duration, t message.PacketType, size int) {
	c.samples = append(c.samples, trafficSample{at: now, bytes: size})
	c.total += size
	c.packets++
	if size > c.largest.Size {
		c.largest = PacketSize{Type: t, Size: size}
	}
	c.expire(now, window)
}

func (c *trafficCounter) expire(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	drop := 0
	for drop < len(c.samples) && c.samples[drop].at.Before(cutoff) {
		c.total -= c.samples[drop].bytes
		drop++
	}
	c.samples = c.samples[drop:]
}

func (c *trafficCounter) rate(now time.Time, window time.Duration) float64 {
	c.expire(now, window)
	return float64(c.total) / window.Seconds()
}

type trafficStats struct {
	mut_stats sync.Mutex
	window    time.Duration
	now       func() time.Time

	in  trafficCounter
	out trafficCounter
}

func (s *trafficStats) recordIn(t message.PacketType, size int) {
	s.mut_stats.Lock()
	defer s.mut_stats.Unlock()
	s.in.record(s.now(), s.window, t, size)
}

func (s *trafficStats) recordOut(t message.PacketType, size int) {
	s.mut_stats.Lock()
	defer s.mut_stats.Unlock()
	s.out.record(s.now(), s.window, t, size)
}

func (s *trafficStats) snapshot() Statistics {
	s.mut_stats.Lock()
	defer s.mut_stats.Unlock()
	now := s.now()
	return Statistics{
		BytesPerSecondIn:  s.in.rate(now, s.window),
		BytesPerSecondOut: s.out.rate(now, s.window),
		PacketsIn:         s.in.packets,
		PacketsOut:        s.out.packets,
		LargestIn:         s.in.largest,
		LargestOut:        s.out.largest,
	}
}
