// Package lifecycle records whether the serve process is accepting work or
// draining for shutdown.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Phase is the process phase reported by /health.
type Phase int

const (
	Serving Phase = iota
	Draining
)

func (p Phase) String() string {
	if p == Draining {
		return "shutting-down"
	}
	return "serving"
}

// drainStart is nil while serving.
var drainStart atomic.Pointer[time.Time]

// BeginDrain moves the process to Draining. Only the first call records the
// start time.
func BeginDrain() {
	now := time.Now()
	drainStart.CompareAndSwap(nil, &now)
}

// Reset returns to Serving.
func Reset() {
	drainStart.Store(nil)
}

func Current() Phase {
	if drainStart.Load() != nil {
		return Draining
	}
	return Serving
}

// DrainingSince returns when draining began, or ok=false while serving.
func DrainingSince() (time.Time, bool) {
	if t := drainStart.Load(); t != nil {
		return *t, true
	}
	return time.Time{}, false
}
