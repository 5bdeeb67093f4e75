package batch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/calbridge/calbridge/internal/apierr"
	"github.com/calbridge/calbridge/internal/retry"
)

func newTestQueue(t *testing.T, opts ...Option) *Queue {
	t.Helper()
	exec := retry.New(nil, 0, time.Millisecond)
	q := New(context.Background(), exec, opts...)
	t.Cleanup(q.Close)
	return q
}

func TestFlushCyclesRespectMaxBatchSize(t *testing.T) {
	var flushes []int
	var mu sync.Mutex

	q := newTestQueue(t,
		WithWindow(10*time.Millisecond),
		WithMaxBatchSize(50),
		WithFlushHook(func(size int) {
			mu.Lock()
			flushes = append(flushes, size)
			mu.Unlock()
		}),
	)

	const total = 120
	var channels []<-chan Result
	for i := 0; i < total; i++ {
		i := i
		channels = append(channels, q.Enqueue("create", func(ctx context.Context) (any, error) {
			return i, nil
		}))
	}

	for i, ch := range channels {
		select {
		case res := <-ch:
			require.NoError(t, res.Err)
			assert.Equal(t, i, res.Value)
		case <-time.After(5 * time.Second):
			t.Fatalf("operation %d never settled", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{50, 50, 20}, flushes)
}

func TestPartialFailureDoesNotBlockBatch(t *testing.T) {
	q := newTestQueue(t, WithWindow(5*time.Millisecond))

	var channels []<-chan Result
	for i := 0; i < 10; i++ {
		i := i
		channels = append(channels, q.Enqueue("create", func(ctx context.Context) (any, error) {
			if i == 3 {
				return nil, &googleapi.Error{Code: http.StatusBadRequest}
			}
			return fmt.Sprintf("event-%d", i), nil
		}))
	}

	for i, ch := range channels {
		res := <-ch
		if i == 3 {
			var permanent *apierr.PermanentAPIError
			require.ErrorAs(t, res.Err, &permanent)
			continue
		}
		require.NoError(t, res.Err, "operation %d", i)
		assert.Equal(t, fmt.Sprintf("event-%d", i), res.Value)
	}
}

func TestOperationsRunConcurrentlyWithinFlush(t *testing.T) {
	q := newTestQueue(t, WithWindow(5*time.Millisecond), WithMaxBatchSize(10))

	var running atomic.Int32
	var peak atomic.Int32

	var channels []<-chan Result
	for i := 0; i < 10; i++ {
		channels = append(channels, q.Enqueue("create", func(ctx context.Context) (any, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		}))
	}

	for _, ch := range channels {
		require.NoError(t, (<-ch).Err)
	}
	assert.Greater(t, peak.Load(), int32(1), "batch ran sequentially")
}

func TestEnqueueDuringFlushReArmsTimer(t *testing.T) {
	q := newTestQueue(t, WithWindow(5*time.Millisecond), WithMaxBatchSize(5))

	blocker := make(chan struct{})
	first := q.Enqueue("create", func(ctx context.Context) (any, error) {
		<-blocker
		return "first", nil
	})

	// Wait for the flush to start, then enqueue more.
	time.Sleep(20 * time.Millisecond)
	second := q.Enqueue("create", func(ctx context.Context) (any, error) {
		return "second", nil
	})
	close(blocker)

	res := <-first
	require.NoError(t, res.Err)
	assert.Equal(t, "first", res.Value)

	res = <-second
	require.NoError(t, res.Err)
	assert.Equal(t, "second", res.Value)
}

func TestCloseFailsQueuedOperations(t *testing.T) {
	exec := retry.New(nil, 0, time.Millisecond)
	q := New(context.Background(), exec, WithWindow(time.Hour))

	ch := q.Enqueue("create", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	q.Close()

	res := <-ch
	assert.ErrorIs(t, res.Err, ErrClosed)

	// Enqueue after close settles immediately with ErrClosed.
	ch = q.Enqueue("create", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	res = <-ch
	assert.ErrorIs(t, res.Err, ErrClosed)

	// Close is idempotent.
	q.Close()
}

func TestRetryableOperationRetriedWithinBatch(t *testing.T) {
	exec := retry.New(nil, 2, time.Millisecond)
	q := New(context.Background(), exec, WithWindow(5*time.Millisecond))
	t.Cleanup(q.Close)

	var attempts atomic.Int32
	ch := q.Enqueue("create", func(ctx context.Context) (any, error) {
		if attempts.Add(1) < 3 {
			return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
		}
		return "ok", nil
	})

	res := <-ch
	require.NoError(t, res.Err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, int32(3), attempts.Load())
}
