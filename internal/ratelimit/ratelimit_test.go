package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingWindowCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const perSecond = 10
	l := New(perSecond)

	// Issue three seconds' worth of requests as fast as the limiter
	// allows and record the admission times.
	var admitted []time.Time
	for i := 0; i < 3*perSecond; i++ {
		require.NoError(t, l.Acquire(context.Background()))
		admitted = append(admitted, time.Now())
	}

	// No rolling one-second span may contain more than perSecond
	// admissions.
	for i := range admitted {
		count := 0
		for j := i; j < len(admitted); j++ {
			if admitted[j].Sub(admitted[i]) < time.Second {
				count++
			}
		}
		assert.LessOrEqual(t, count, perSecond,
			"window starting at admission %d holds %d requests", i, count)
	}
}

func TestMinimumSpacing(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const perSecond = 50
	l := New(perSecond)

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	elapsed := time.Since(start)

	// Five gaps at >= 20ms each; allow slack for the first immediate
	// admission.
	assert.GreaterOrEqual(t, elapsed, 5*(time.Second/perSecond)-5*time.Millisecond)
}

func TestAcquireHonoursCancellation(t *testing.T) {
	l := New(1)

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInWindow(t *testing.T) {
	l := New(100)
	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, 2, l.InWindow())
}

func TestWaitHookReportsBlockedTime(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const perSecond = 50
	var mu sync.Mutex
	var waits []time.Duration
	l := New(perSecond, WithWaitHook(func(blocked time.Duration) {
		mu.Lock()
		waits = append(waits, blocked)
		mu.Unlock()
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, waits, 3)
	// The pacer spaces admissions 1/perSecond apart, so everyone after
	// the first blocks measurably.
	assert.GreaterOrEqual(t, waits[2], time.Second/perSecond/2)
}

func TestWaitHookSkippedOnCancelledAcquire(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	l := New(1, WithWaitHook(func(time.Duration) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Acquire(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestZeroRateFallsBackToDefault(t *testing.T) {
	l := New(0)
	assert.Equal(t, DefaultRatePerSecond, l.perSecond)
}
