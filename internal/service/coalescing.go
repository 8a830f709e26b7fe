package service

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weathernow/internal/present"
)

// refreshResult is what every caller of a coalesced refresh receives.
type refreshResult struct {
	view present.View
	ok   bool
	err  error
}

// inFlightRefresh tracks the single refresh that concurrent callers wait for.
type inFlightRefresh struct {
	done   chan struct{}
	result refreshResult
}

// refreshCoalescer collapses concurrent refreshes into one location lookup and
// one upstream call. Callers arriving while a refresh runs share its result.
type refreshCoalescer struct {
	mu       sync.Mutex
	inFlight *inFlightRefresh
	timeout  time.Duration
}

func newRefreshCoalescer(timeout time.Duration) *refreshCoalescer {
	return &refreshCoalescer{timeout: timeout}
}

// Do runs fn unless a refresh is already in flight, in which case it waits for
// that one. shared reports whether the result came from another caller's run.
// Waiting is bounded by ctx and the coalescer timeout; fn itself keeps running.
func (rc *refreshCoalescer) Do(ctx context.Context, fn func() refreshResult) (res refreshResult, shared bool, err error) {
	rc.mu.Lock()
	req := rc.inFlight
	if req != nil {
		shared = true
	} else {
		req = &inFlightRefresh{done: make(chan struct{})}
		rc.inFlight = req
		go func() {
			req.result = fn()
			rc.mu.Lock()
			rc.inFlight = nil
			rc.mu.Unlock()
			close(req.done)
		}()
	}
	rc.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-req.done:
		return req.result, shared, nil
	case <-waitCtx.Done():
		return refreshResult{}, shared, waitCtx.Err()
	}
}
