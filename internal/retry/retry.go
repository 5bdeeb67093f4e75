package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/calbridge/calbridge/internal/apierr"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/ratelimit"
)

// Defaults match the conservative policy of the settings layer.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Executor runs operations with retry. It is safe for concurrent use.
type Executor struct {
	limiter    *ratelimit.Limiter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	onAttempt  func(op string, attempt int, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithAttemptHook registers a callback invoked after every attempt,
// successful or not. Used for metrics.
func WithAttemptHook(hook func(op string, attempt int, err error)) Option {
	return func(e *Executor) { e.onAttempt = hook }
}

// New creates an Executor. A nil limiter disables rate shaping, which is
// only sensible in tests.
func New(limiter *ratelimit.Limiter, maxRetries int, baseDelay time.Duration, opts ...Option) *Executor {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	e := &Executor{
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes fn, retrying transient failures up to maxRetries times
// with doubling delays. The backoff is deliberately jitter-free to keep
// the retry schedule identical across runs. Fatal errors return
// immediately, wrapped into the taxonomy; exhaustion returns a
// RetriesExhaustedError carrying the last transient error.
func (e *Executor) Run(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay << (attempt - 1)
			e.logger.Warn("retrying operation",
				logging.Operation(op),
				slog.Int(logging.KeyAttempt, attempt),
				slog.Duration("delay", delay),
				logging.Err(lastErr),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Acquire(ctx); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if e.onAttempt != nil {
			e.onAttempt(op, attempt, err)
		}
		if err == nil {
			return nil
		}
		if !apierr.Retryable(err) {
			return apierr.Wrap(err)
		}
		lastErr = err
	}

	return &apierr.RetriesExhaustedError{
		Operation: op,
		Attempts:  e.maxRetries + 1,
		Err:       apierr.Wrap(lastErr),
	}
}

// RunValue executes fn with the executor's retry policy and returns its
// result.
func RunValue[T any](e *Executor, ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Run(ctx, op, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
