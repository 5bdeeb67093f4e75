package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Service names used as metric attributes.
const (
	ServiceCalendar = "calendar"
	ServiceTasks    = "tasks"
	ServiceAuth     = "auth"
)

// Status values used as metric attributes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metric attribute keys.
const (
	attrService   = "service"
	attrOperation = "operation"
	attrStatus    = "status"
	attrResult    = "result"
	attrTool      = "tool"
)

// Metrics records the client core's observability signals. The zero
// value is a no-op recorder.
type Metrics struct {
	apiOperationsTotal   metric.Int64Counter
	apiOperationDuration metric.Float64Histogram

	cacheLookupsTotal      metric.Int64Counter
	requestsCoalescedTotal metric.Int64Counter

	rateLimitWaitDuration metric.Float64Histogram
	retryAttemptsTotal    metric.Int64Counter
	tokenRefreshTotal     metric.Int64Counter
	batchFlushSize        metric.Int64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with all instruments registered
// on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.apiOperationsTotal, err = meter.Int64Counter(
		"api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_operations_total counter: %w", err)
	}

	m.apiOperationDuration, err = meter.Float64Histogram(
		"api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_operation_duration_seconds histogram: %w", err)
	}

	m.cacheLookupsTotal, err = meter.Int64Counter(
		"cache_lookups_total",
		metric.WithDescription("Response cache lookups by result (hit or miss)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_lookups_total counter: %w", err)
	}

	m.requestsCoalescedTotal, err = meter.Int64Counter(
		"requests_coalesced_total",
		metric.WithDescription("Read requests merged onto an already in-flight call"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests_coalesced_total counter: %w", err)
	}

	m.rateLimitWaitDuration, err = meter.Float64Histogram(
		"rate_limit_wait_duration_seconds",
		metric.WithDescription("Time spent waiting for rate limiter admission"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit_wait_duration_seconds histogram: %w", err)
	}

	m.retryAttemptsTotal, err = meter.Int64Counter(
		"retry_attempts_total",
		metric.WithDescription("API call attempts by operation and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry_attempts_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"token_refresh_total",
		metric.WithDescription("Service-account token exchanges by result"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_refresh_total counter: %w", err)
	}

	m.batchFlushSize, err = meter.Int64Histogram(
		"batch_flush_size",
		metric.WithDescription("Number of mutations taken per batch flush"),
		metric.WithUnit("{operation}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_flush_size histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordAPIOperation records one Google API operation.
//
// Parameters:
//   - service: "calendar", "tasks" or "auth"
//   - operation: operation name (listEvents, createEvent, ...)
//   - status: "success" or "error"
//   - duration: time taken for the operation
func (m *Metrics) RecordAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.apiOperationsTotal == nil || m.apiOperationDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	m.apiOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records a response-cache lookup with result "hit" or
// "miss".
func (m *Metrics) RecordCacheLookup(ctx context.Context, operation, result string) {
	if m.cacheLookupsTotal == nil {
		return
	}
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	))
}

// RecordCoalescedRequest records a read request that joined an in-flight
// call instead of issuing its own.
func (m *Metrics) RecordCoalescedRequest(ctx context.Context, operation string) {
	if m.requestsCoalescedTotal == nil {
		return
	}
	m.requestsCoalescedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
	))
}

// RecordRateLimitWait records time spent blocked in the rate limiter.
func (m *Metrics) RecordRateLimitWait(ctx context.Context, duration time.Duration) {
	if m.rateLimitWaitDuration == nil {
		return
	}
	m.rateLimitWaitDuration.Record(ctx, duration.Seconds())
}

// RecordRetryAttempt records one API call attempt and its outcome.
func (m *Metrics) RecordRetryAttempt(ctx context.Context, operation, status string) {
	if m.retryAttemptsTotal == nil {
		return
	}
	m.retryAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordTokenRefresh records a token exchange with result "success" or
// "error".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordBatchFlush records the size of one batch flush.
func (m *Metrics) RecordBatchFlush(ctx context.Context, size int) {
	if m.batchFlushSize == nil {
		return
	}
	m.batchFlushSize.Record(ctx, int64(size))
}

// RecordToolInvocation records an MCP tool invocation.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
