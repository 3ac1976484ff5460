package upstream

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateGate serializes outbound upstream dispatches so no two occur closer
// together than the minimum interval, across all resource kinds and all
// requests handled by this process. The token bucket owns the timing state,
// so concurrent callers queue instead of racing past a stale timestamp.
type RateGate struct {
	limiter  *rate.Limiter
	interval time.Duration

	mu           sync.Mutex
	lastDispatch time.Time
}

// NewRateGate creates a gate with the given minimum inter-request interval.
func NewRateGate(minInterval time.Duration) *RateGate {
	return &RateGate{
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		interval: minInterval,
	}
}

// Wait blocks until a dispatch slot is available, then stamps the dispatch
// time. Must be called immediately before every upstream request.
func (g *RateGate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	g.lastDispatch = time.Now()
	g.mu.Unlock()

	return nil
}

// LastDispatch returns the time of the most recent gated dispatch.
// Zero if nothing has been dispatched yet.
func (g *RateGate) LastDispatch() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastDispatch
}

// Interval returns the configured minimum inter-request interval.
func (g *RateGate) Interval() time.Duration {
	return g.interval
}
