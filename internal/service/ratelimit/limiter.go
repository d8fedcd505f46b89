package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter caps calls to limit per trailing window. Timestamps of admitted
// calls are kept oldest first; the lock is never held while waiting.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleep replaces the wait primitive.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// New creates a limiter admitting at most limit calls per window.
// A non-positive limit disables limiting.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PerMinute creates a limiter admitting limit calls per 60 seconds.
func PerMinute(limit int, opts ...Option) *Limiter {
	return New(limit, time.Minute, opts...)
}

// Acquire blocks until one more call fits in the window, then records it.
// It returns ctx.Err() if the context ends while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.limit <= 0 {
		return ctx.Err()
	}
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve records a call and returns 0 when one is available, otherwise the
// time until the oldest admitted call leaves the window.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cut := 0
	for cut < len(l.calls) && now.Sub(l.calls[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.calls = append(l.calls[:0], l.calls[cut:]...)
	}

	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return 0
	}
	return l.window - now.Sub(l.calls[0])
}

// InFlight returns the number of calls currently inside the window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for _, ts := range l.calls {
		if now.Sub(ts) < l.window {
			n++
		}
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
