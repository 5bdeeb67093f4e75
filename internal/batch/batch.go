package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/retry"
)

// Defaults match the write-burst profile this queue was built for: many
// small creates arriving in one tick.
const (
	DefaultWindow       = 50 * time.Millisecond
	DefaultMaxBatchSize = 50
)

// ErrClosed is delivered to operations still queued when the queue shuts
// down.
var ErrClosed = errors.New("batch queue closed")

// Result carries the outcome of a single batched operation.
type Result struct {
	Value any
	Err   error
}

type state int

const (
	stateIdle state = iota
	stateScheduled
	stateFlushing
)

type pendingOp struct {
	name   string
	fn     func(context.Context) (any, error)
	result chan Result
}

// Queue is a windowed, size-capped mutation queue. Construct with New;
// call Close to release the window timer.
type Queue struct {
	ctx      context.Context
	exec     *retry.Executor
	window   time.Duration
	maxBatch int
	logger   *slog.Logger
	onFlush  func(size int)

	mu     sync.Mutex
	ops    []*pendingOp
	state  state
	timer  *time.Timer
	closed bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithWindow overrides the batch window.
func WithWindow(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.window = d
		}
	}
}

// WithMaxBatchSize overrides the number of operations taken per flush.
func WithMaxBatchSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxBatch = n
		}
	}
}

// WithLogger sets the logger for flush reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithFlushHook registers a callback invoked with the size of every
// flushed batch. Used for metrics.
func WithFlushHook(hook func(size int)) Option {
	return func(q *Queue) { q.onFlush = hook }
}

// New creates a Queue whose operations run under ctx through exec.
func New(ctx context.Context, exec *retry.Executor, opts ...Option) *Queue {
	q := &Queue{
		ctx:      ctx,
		exec:     exec,
		window:   DefaultWindow,
		maxBatch: DefaultMaxBatchSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends an operation and returns a channel that settles with
// its individual outcome. The first enqueue in an idle queue arms the
// window timer.
func (q *Queue) Enqueue(name string, fn func(context.Context) (any, error)) <-chan Result {
	op := &pendingOp{
		name:   name,
		fn:     fn,
		result: make(chan Result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		op.result <- Result{Err: ErrClosed}
		return op.result
	}
	q.ops = append(q.ops, op)
	if q.state == stateIdle {
		q.state = stateScheduled
		q.timer = time.AfterFunc(q.window, q.flush)
	}
	q.mu.Unlock()

	return op.result
}

// Len returns the number of queued, not yet flushed operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close stops the window timer and fails every still-queued operation
// with ErrClosed. Operations already flushing run to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	drained := q.ops
	q.ops = nil
	q.state = stateIdle
	q.mu.Unlock()

	for _, op := range drained {
		op.result <- Result{Err: ErrClosed}
	}
}

func (q *Queue) flush() {
	q.mu.Lock()
	if q.closed || len(q.ops) == 0 {
		q.state = stateIdle
		q.mu.Unlock()
		return
	}
	q.state = stateFlushing

	take := len(q.ops)
	if take > q.maxBatch {
		take = q.maxBatch
	}
	current := q.ops[:take]
	q.ops = append([]*pendingOp(nil), q.ops[take:]...)
	q.mu.Unlock()

	if q.onFlush != nil {
		q.onFlush(len(current))
	}
	q.logger.Debug("flushing batch", slog.Int(logging.KeyBatchSize, len(current)))

	// All-settled: every operation reports its own outcome and no
	// failure interrupts the rest.
	var wg sync.WaitGroup
	for _, op := range current {
		wg.Add(1)
		go func(op *pendingOp) {
			defer wg.Done()
			value, err := retry.RunValue(q.exec, q.ctx, op.name, op.fn)
			op.result <- Result{Value: value, Err: err}
		}(op)
	}
	wg.Wait()

	q.mu.Lock()
	if !q.closed && len(q.ops) > 0 {
		q.state = stateScheduled
		q.timer = time.AfterFunc(q.window, q.flush)
	} else {
		q.state = stateIdle
	}
	q.mu.Unlock()
}
