package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces outbound requests to a shared host. Wait blocks until
// the caller may start a request; Done records its completion. Both
// fetchers of a crawl run share one Limiter, so the spacing holds
// across the whole run regardless of which fetcher issues the request.
type Limiter interface {
	Wait(ctx context.Context) error
	Done()
}

// Gate enforces a minimum delay between the completion of one request
// and the start of the next. At most one request is in flight at a
// time; concurrent callers queue on the gate.
type Gate struct {
	delay    time.Duration
	inflight chan struct{}

	mu   sync.Mutex
	last time.Time // completion time of the previous request
}

func NewGate(delay time.Duration) *Gate {
	return &Gate{
		delay:    delay,
		inflight: make(chan struct{}, 1),
	}
}

func (g *Gate) Wait(ctx context.Context) error {
	select {
	case g.inflight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	wait := g.delay - time.Since(g.last)
	g.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			<-g.inflight
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

// Done must be called exactly once after every successful Wait, when
// the request has completed or failed.
func (g *Gate) Done() {
	g.mu.Lock()
	g.last = time.Now()
	g.mu.Unlock()
	<-g.inflight
}

// Delay reports the configured minimum inter-request delay. Retry
// backoff starts from this value.
func (g *Gate) Delay() time.Duration {
	return g.delay
}
