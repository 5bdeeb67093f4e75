package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRatePerSecond is a conservative default, well under Google's
// per-user Calendar quota.
const DefaultRatePerSecond = 5

// safetyMargin pads window waits so a coarse timer does not re-admit a
// caller a tick before the oldest timestamp actually leaves the window.
const safetyMargin = 10 * time.Millisecond

// Limiter enforces a maximum number of requests per trailing second and
// a minimum interval between consecutive requests.
type Limiter struct {
	perSecond int
	pacer     *rate.Limiter
	onWait    func(blocked time.Duration)

	mu     sync.Mutex
	window []time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWaitHook registers a callback invoked after every successful
// Acquire with the time the caller spent blocked. Used for metrics.
func WithWaitHook(hook func(blocked time.Duration)) Option {
	return func(l *Limiter) { l.onWait = hook }
}

// New creates a Limiter admitting at most perSecond requests per rolling
// second, spaced at least 1/perSecond apart.
func New(perSecond int, opts ...Option) *Limiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	l := &Limiter{
		perSecond: perSecond,
		pacer:     rate.NewLimiter(rate.Limit(perSecond), 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until the caller may issue a request, or until ctx is
// done. Callers are admitted in approximate arrival order.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	// The pacer smooths bursts even when the windowed count is under
	// budget, and queues waiters FIFO.
	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.pruneLocked(now)

		if len(l.window) < l.perSecond {
			l.window = append(l.window, now)
			l.mu.Unlock()
			if l.onWait != nil {
				l.onWait(time.Since(start))
			}
			return nil
		}

		wait := l.window[0].Add(time.Second).Sub(now) + safetyMargin
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of requests admitted within the trailing
// second.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(time.Now())
	return len(l.window)
}

func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}
