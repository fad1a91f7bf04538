// Package report turns marker detections into backend tag submissions,
// suppressing resubmission of the same tag within a fixed interval.
package report

import (
	"sync"
	"time"
)

// Limiter remembers when each tag was last successfully reported.
type Limiter struct {
	interval time.Duration

	mu   sync.Mutex
	last map[int]time.Time
}

// NewLimiter creates a limiter with the given per-tag interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		last:     make(map[int]time.Time),
	}
}

// Interval returns the configured per-tag interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// ShouldReport returns true if id was never reported or its last report is
// at least one interval old.
func (l *Limiter) ShouldReport(id int, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.last[id]
	if !ok {
		return true
	}
	return now.Sub(prev) >= l.interval
}

// RecordReport stores now as the last successful report time of id.
func (l *Limiter) RecordReport(id int, now time.Time) {
	l.mu.Lock()
	l.last[id] = now
	l.mu.Unlock()
}

// LastReport returns the last successful report time of id.
func (l *Limiter) LastReport(id int) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.last[id]
	return t, ok
}

// Len returns how many tags have been reported.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
