package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock advances a synthetic clock instead of sleeping, and records
// every sleep the limiter requested.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(minSpacing, window time.Duration, burst int) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := New(minSpacing, window, burst)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestAcquireEnforcesMinSpacing(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(120*time.Millisecond, time.Second, 100)

	ctx := context.Background()
	start := clock.now
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	elapsed := clock.now.Sub(start)
	if want := 4 * 120 * time.Millisecond; elapsed < want {
		t.Fatalf("5 acquires advanced the clock %v, want at least %v", elapsed, want)
	}
}

func TestAcquireEnforcesBurstWindow(t *testing.T) {
	t.Parallel()

	// Spacing disabled so only the window constraint is in play.
	l, clock := newTestLimiter(0, time.Second, 3)

	ctx := context.Background()
	start := clock.now
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("first burst slept %d times, want 0", len(clock.sleeps))
	}

	// Fourth request must wait until the oldest timestamp ages out.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire over burst: %v", err)
	}
	if clock.now.Sub(start) < time.Second {
		t.Fatalf("request beyond the burst went out %v after start, want >= 1s", clock.now.Sub(start))
	}
}

func TestAcquireAfterWindowExpiry(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(0, time.Second, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	clock.now = clock.now.Add(2 * time.Second)
	before := len(clock.sleeps)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if len(clock.sleeps) != before {
		t.Fatalf("acquire after window expiry slept, want immediate grant")
	}
}

func TestAcquireCancelled(t *testing.T) {
	t.Parallel()

	l := New(time.Hour, time.Hour, 1)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
