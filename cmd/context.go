package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/server"
)

// newLogger builds the process-wide logger. Logs always go to stderr so
// the stdio MCP transport keeps stdout to itself.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newCLIServerContext wires a ServerContext for one-shot CLI commands,
// without instrumentation.
func newCLIServerContext(ctx context.Context, debug bool) (*server.ServerContext, error) {
	logger := newLogger(debug)
	slog.SetDefault(logger)

	sc, err := server.NewServerContext(ctx, server.Options{
		Settings: config.FromEnv(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	return sc, nil
}
