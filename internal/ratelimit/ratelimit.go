package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces two joint constraints against the upstream registry:
// a minimum spacing between consecutive requests and a maximum number of
// requests inside a sliding burst window. One instance is shared by every
// component that issues outbound requests, so the budget holds globally.
type Limiter struct {
	mu sync.Mutex

	minSpacing time.Duration
	window     time.Duration
	burst      int

	last  time.Time
	times []time.Time

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a limiter. burst must be at least 1.
func New(minSpacing, window time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		minSpacing: minSpacing,
		window:     window,
		burst:      burst,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Acquire blocks until one more request may be issued. The prune, wait
// and append steps run as one critical section: the lock is held across
// the waits so concurrent callers serialize instead of both observing an
// under-budget window.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.times) >= l.burst {
		wait := l.times[0].Add(l.window).Sub(now)
		if wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
			now = l.now()
			l.prune(now)
		}
	}

	if !l.last.IsZero() {
		if elapsed := now.Sub(l.last); elapsed < l.minSpacing {
			if err := l.sleep(ctx, l.minSpacing-elapsed); err != nil {
				return err
			}
			now = l.now()
		}
	}

	l.last = now
	l.times = append(l.times, now)
	return nil
}

func (l *Limiter) prune(now time.Time) {
	kept := l.times[:0]
	for _, t := range l.times {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	l.times = kept
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
