// Package traffic keeps short sliding windows of refresh outcomes so health
// checks can tell a failing upstream or a flood of refreshes from a quiet one.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one refresh attempt on the serve surface.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied
)

// retention bounds how far back any window can look.
const retention = 5 * time.Minute

var defaultTracker Tracker

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// Window returns process-wide counts for the last window.
func Window(window time.Duration) Counts {
	return defaultTracker.Window(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Counts are outcome totals inside one window.
type Counts struct {
	Success int
	Error   int
	Denied  int
}

// ErrorPct is errors as a percentage of attempts that reached the flow.
// Denied requests never reached it and are excluded.
func (c Counts) ErrorPct() int {
	total := c.Success + c.Error
	if total == 0 {
		return 0
	}
	return c.Error * 100 / total
}

// Tracker holds outcome timestamps per kind. The zero value is ready to use.
type Tracker struct {
	mu    sync.Mutex
	times [3][]time.Time
	now   func() time.Time
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Record adds o at the current time and drops entries past retention.
func (t *Tracker) Record(o Outcome) {
	if o < Success || o > Denied {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Window counts outcomes recorded within the last window.
func (t *Tracker) Window(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	return Counts{
		Success: countSince(t.times[Success], cutoff),
		Error:   countSince(t.times[Error], cutoff),
		Denied:  countSince(t.times[Denied], cutoff),
	}
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = [3][]time.Time{}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for k := range t.times {
		times := t.times[k]
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[k] = append(times[:0], times[i:]...)
		}
	}
}
