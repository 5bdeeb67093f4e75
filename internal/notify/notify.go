// Package notify delivers user-visible notices from the client core to
// whatever surface is hosting it. The core reports terminal conditions
// (authentication failed, retries exhausted) through a Sink; hosts
// decide how to present them.
package notify

import (
	"context"
	"log/slog"
)

// Severity of a notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a single user-visible message.
type Notice struct {
	Severity Severity
	// Operation is the client operation that produced the notice, when
	// known (e.g. "calendar.createEvent").
	Operation string
	Message   string
	Err       error
}

// Sink receives notices. Implementations must be safe for concurrent
// use and must not block.
type Sink interface {
	Notify(ctx context.Context, n Notice)
}

// LogSink writes notices to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a Sink backed by logger. A nil logger uses
// slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Notify logs the notice at a level matching its severity.
func (s *LogSink) Notify(ctx context.Context, n Notice) {
	attrs := []any{
		slog.String("operation", n.Operation),
	}
	if n.Err != nil {
		attrs = append(attrs, slog.String("error", n.Err.Error()))
	}

	switch n.Severity {
	case SeverityError:
		s.logger.ErrorContext(ctx, n.Message, attrs...)
	case SeverityWarning:
		s.logger.WarnContext(ctx, n.Message, attrs...)
	default:
		s.logger.InfoContext(ctx, n.Message, attrs...)
	}
}

// Discard is a Sink that drops every notice.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Notify(context.Context, Notice) {}
