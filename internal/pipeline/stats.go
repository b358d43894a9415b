package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats holds counters updated by the producer and consumer.
type Stats struct {
	started time.Time

	pushed   atomic.Uint64
	skipped  atomic.Uint64
	restarts atomic.Uint64
	rewinds  atomic.Uint64
	frames   atomic.Uint64
	lastLen  atomic.Int64
}

// NewStats returns zeroed counters with the clock started now.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Pushed        uint64
	ShortReads    uint64
	Restarts      uint64
	Rewinds       uint64
	Frames        uint64
	LastOccupancy int
	Uptime        time.Duration
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Pushed:        s.pushed.Load(),
		ShortReads:    s.skipped.Load(),
		Restarts:      s.restarts.Load(),
		Rewinds:       s.rewinds.Load(),
		Frames:        s.frames.Load(),
		LastOccupancy: int(s.lastLen.Load()),
		Uptime:        time.Since(s.started),
	}
}
