package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAcquireWithinLimitDoesNotWait(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(3, time.Minute, WithClock(clk.Now), WithSleep(clk.Sleep))

	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if len(clk.slept) != 0 {
		t.Fatalf("expected no waits, got %v", clk.slept)
	}
	if l.InFlight() != 3 {
		t.Fatalf("expected 3 calls in window, got %d", l.InFlight())
	}
}

func TestAcquireWaitsForOldestToExpire(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(2, time.Minute, WithClock(clk.Now), WithSleep(clk.Sleep))
	ctx := context.Background()

	_ = l.Acquire(ctx)
	clk.Advance(10 * time.Second)
	_ = l.Acquire(ctx)
	clk.Advance(5 * time.Second)

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(clk.slept) != 1 || clk.slept[0] != 45*time.Second {
		t.Fatalf("expected a single 45s wait, got %v", clk.slept)
	}
}

func TestWindowNeverExceedsLimit(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	const limit = 5
	l := New(limit, time.Minute, WithClock(clk.Now), WithSleep(clk.Sleep))

	var admitted []time.Time
	for i := 0; i < 23; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire: %v", err)
		}
		admitted = append(admitted, clk.Now())
		clk.Advance(3 * time.Second)
	}
	for i := range admitted {
		n := 0
		for j := range admitted {
			d := admitted[j].Sub(admitted[i])
			if d >= 0 && d < time.Minute {
				n++
			}
		}
		if n > limit {
			t.Fatalf("%d calls inside a window starting at call %d", n, i)
		}
	}
}

func TestAcquireHonoursCancellation(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(1, time.Minute, WithClock(clk.Now), WithSleep(clk.Sleep))
	_ = l.Acquire(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAcquireConcurrent(t *testing.T) {
	l := New(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("acquire: %v", err)
			}
		}()
	}
	wg.Wait()
	if l.InFlight() != 50 {
		t.Fatalf("expected 50 recorded calls, got %d", l.InFlight())
	}
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 1000; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire: %v", err)
		}
	}
}
