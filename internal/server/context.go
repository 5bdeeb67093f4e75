package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/batch"
	"github.com/calbridge/calbridge/internal/cache"
	"github.com/calbridge/calbridge/internal/calendar"
	"github.com/calbridge/calbridge/internal/coalesce"
	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/notify"
	"github.com/calbridge/calbridge/internal/ratelimit"
	"github.com/calbridge/calbridge/internal/retry"
	"github.com/calbridge/calbridge/internal/tasks"
)

// Options configures a ServerContext.
type Options struct {
	Settings config.Settings

	// Provider supplies metrics and tracing. Optional; nil disables
	// instrumentation.
	Provider *instrumentation.Provider

	Logger *slog.Logger

	// Sink receives user-visible notices. Optional.
	Sink notify.Sink

	// ClientOptions are appended to every Google API service, so tests
	// can point the clients at a local server.
	ClientOptions []option.ClientOption
}

// ServerContext owns one fully wired client core: credentials, token
// manager, cache, coalescer, rate limiter, retry executor, batch queue
// and the two domain clients. It is handed to the MCP tools and the CLI
// commands, and torn down with Shutdown.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings config.Settings
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	sink     notify.Sink

	manager   *auth.Manager
	coalescer *coalesce.Group
	limiter   *ratelimit.Limiter
	executor  *retry.Executor
	queue     *batch.Queue

	calendarClient *calendar.Client
	tasksClient    *tasks.Client

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext loads credentials, builds the resilience core and
// constructs the domain clients.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	settings := opts.Settings
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := &instrumentation.Metrics{}
	if opts.Provider != nil {
		metrics = opts.Provider.Metrics()
	}
	sink := opts.Sink
	if sink == nil {
		sink = notify.NewLogSink(logger)
	}

	creds, err := auth.LoadCredentialsFile(settings.CredentialsFile)
	if err != nil {
		return nil, err
	}

	scopes := []string{calendar.Scope, tasks.Scope}
	manager, err := auth.NewManager(creds, scopes, settings.Subject,
		auth.WithLogger(logger),
		auth.WithRefreshHook(func(result string) {
			metrics.RecordTokenRefresh(context.Background(), result)
		}),
		auth.WithRefreshFailureHook(func(err error) {
			sink.Notify(context.Background(), notify.Notice{
				Severity:  notify.SeverityError,
				Operation: "auth.refresh",
				Message:   "proactive token refresh failed",
				Err:       err,
			})
		}),
	)
	if err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	coalescer := coalesce.New(cache.New(),
		coalesce.WithWindow(settings.CoalesceWindow),
		coalesce.WithJoinHook(func(key string) {
			// Cache keys lead with the operation name.
			op, _, _ := strings.Cut(key, "|")
			metrics.RecordCoalescedRequest(shutdownCtx, op)
		}),
	)
	limiter := ratelimit.New(settings.RatePerSecond,
		ratelimit.WithWaitHook(func(blocked time.Duration) {
			metrics.RecordRateLimitWait(shutdownCtx, blocked)
		}),
	)
	executor := retry.New(limiter, settings.MaxRetries, settings.RetryBaseDelay,
		retry.WithLogger(logger),
		retry.WithAttemptHook(func(op string, attempt int, err error) {
			status := instrumentation.StatusSuccess
			if err != nil {
				status = instrumentation.StatusError
			}
			metrics.RecordRetryAttempt(shutdownCtx, op, status)
		}),
	)
	queue := batch.New(shutdownCtx, executor,
		batch.WithWindow(settings.BatchWindow),
		batch.WithMaxBatchSize(settings.MaxBatchSize),
		batch.WithLogger(logger),
		batch.WithFlushHook(func(size int) {
			metrics.RecordBatchFlush(shutdownCtx, size)
		}),
	)

	if settings.Subject != "" {
		logger.Info("delegating to subject",
			"subject", logging.AnonymizeEmail(settings.Subject))
	}

	ts := manager.TokenSource(shutdownCtx)

	calendarClient, err := calendar.New(shutdownCtx, ts, calendar.Deps{
		Coalescer: coalescer,
		Executor:  executor,
		Batch:     queue,
		Metrics:   metrics,
		Logger:    logger,
		ListTTL:   settings.ListTTL,
		LookupTTL: settings.LookupTTL,
	}, opts.ClientOptions...)
	if err != nil {
		cancel()
		queue.Close()
		manager.Close()
		return nil, fmt.Errorf("failed to build calendar client: %w", err)
	}

	tasksClient, err := tasks.New(shutdownCtx, ts, tasks.Deps{
		Coalescer: coalescer,
		Executor:  executor,
		Batch:     queue,
		Metrics:   metrics,
		Logger:    logger,
		ListTTL:   settings.ListTTL,
		LookupTTL: settings.LookupTTL,
	}, opts.ClientOptions...)
	if err != nil {
		cancel()
		queue.Close()
		manager.Close()
		return nil, fmt.Errorf("failed to build tasks client: %w", err)
	}

	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		settings:       settings,
		logger:         logger,
		metrics:        metrics,
		sink:           sink,
		manager:        manager,
		coalescer:      coalescer,
		limiter:        limiter,
		executor:       executor,
		queue:          queue,
		calendarClient: calendarClient,
		tasksClient:    tasksClient,
	}, nil
}

// Context returns the lifetime context of this server instance.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Settings returns the normalized settings the context was built with.
func (sc *ServerContext) Settings() config.Settings {
	return sc.settings
}

// Logger returns the context's logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Notify delivers a user-visible notice through the configured sink.
func (sc *ServerContext) Notify(ctx context.Context, n notify.Notice) {
	sc.sink.Notify(ctx, n)
}

// Metrics returns the metrics recorder. Never nil; a context built
// without a provider records into a no-op instance.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// TokenManager returns the service-account token manager.
func (sc *ServerContext) TokenManager() *auth.Manager {
	return sc.manager
}

// CalendarClient returns the resilient calendar client.
func (sc *ServerContext) CalendarClient() *calendar.Client {
	return sc.calendarClient
}

// TasksClient returns the resilient tasks client.
func (sc *ServerContext) TasksClient() *tasks.Client {
	return sc.tasksClient
}

// InvalidateCaches drops every cached response.
func (sc *ServerContext) InvalidateCaches() {
	sc.coalescer.Cache().InvalidateAll()
}

// IsShutdown returns whether the context has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown tears the core down: the batch queue fails still-pending
// writes, the token manager cancels its refresh timer, and the lifetime
// context is cancelled. Idempotent.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.queue.Close()
	sc.manager.Close()
	sc.cancel()
	return nil
}
