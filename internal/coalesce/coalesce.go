package coalesce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/calbridge/calbridge/internal/cache"
)

// DefaultWindow is the span during which callers requesting the same key
// are merged onto one in-flight producer. The value matches the observed
// behavior of the system this client replaces; it is configurable, not
// load-bearing.
const DefaultWindow = 100 * time.Millisecond

// Group deduplicates in-flight requests per key on top of a response
// cache.
type Group struct {
	cache  *cache.Cache
	window time.Duration
	now    func() time.Time
	onJoin func(key string)

	sf      singleflight.Group
	mu      sync.Mutex
	started map[string]time.Time
}

// Option configures a Group.
type Option func(*Group)

// WithWindow overrides the coalescing window.
func WithWindow(d time.Duration) Option {
	return func(g *Group) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Group) { g.now = now }
}

// WithJoinHook registers a callback invoked with the key whenever a
// caller joins another caller's in-flight fetch instead of issuing its
// own. Used for metrics.
func WithJoinHook(hook func(key string)) Option {
	return func(g *Group) { g.onJoin = hook }
}

// New creates a Group fronted by c.
func New(c *cache.Cache, opts ...Option) *Group {
	g := &Group{
		cache:   c,
		window:  DefaultWindow,
		now:     time.Now,
		started: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cache returns the underlying response cache, for invalidation after
// mutations.
func (g *Group) Cache() *cache.Cache {
	return g.cache
}

// Do returns the cached value for key if fresh, otherwise joins or
// starts the producer for that key. A successful result is stored with
// ttl before being returned; failures are returned to every joined
// caller and cached by nobody.
func (g *Group) Do(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (any, error)) (any, error) {
	if v, ok := g.cache.Get(key); ok {
		return v, nil
	}

	// Expire stale flights and record ours before entering singleflight,
	// so concurrent callers observe a consistent pending entry.
	g.mu.Lock()
	if startedAt, ok := g.started[key]; ok && g.now().Sub(startedAt) >= g.window {
		g.sf.Forget(key)
		delete(g.started, key)
	}
	myStart, ok := g.started[key]
	if !ok {
		myStart = g.now()
		g.started[key] = myStart
	}
	g.mu.Unlock()

	// The closure runs in exactly one caller's goroutine; everyone whose
	// closure never ran was served by that flight.
	executed := false
	v, err, _ := g.sf.Do(key, func() (any, error) {
		executed = true
		defer func() {
			// A forgotten flight must not clear the record of its
			// replacement.
			g.mu.Lock()
			if startedAt, ok := g.started[key]; ok && startedAt.Equal(myStart) {
				delete(g.started, key)
			}
			g.mu.Unlock()
		}()

		// A caller that raced the cache miss may have populated the
		// entry between our Get and the flight starting.
		if v, ok := g.cache.Get(key); ok {
			return v, nil
		}

		v, err := producer(ctx)
		if err != nil {
			return nil, err
		}

		// A flight that was forgotten mid-run must not overwrite the
		// result of its replacement.
		g.mu.Lock()
		startedAt, current := g.started[key]
		g.mu.Unlock()
		if current && startedAt.Equal(myStart) {
			g.cache.Set(key, v, ttl)
		}
		return v, nil
	})
	if !executed && g.onJoin != nil {
		g.onJoin(key)
	}
	return v, err
}

// Do is the typed wrapper around Group.Do for callers that know the
// result type.
func Do[T any](g *Group, ctx context.Context, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	v, err := g.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cached value for %q is %T, not %T", key, v, zero)
	}
	return result, nil
}
