package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/instrumentation"
)

func TestNewMetricsServerRequiresProvider(t *testing.T) {
	_, err := NewMetricsServer(MetricsServerConfig{})
	assert.Error(t, err)
}

func TestNewMetricsServerRequiresEnabledProvider(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	_, err = NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	assert.Error(t, err)
}

func TestMetricsServerDefaults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "test",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, srv.Addr())

	// Shutdown before Start is a no-op.
	assert.NoError(t, srv.Shutdown(ctx))
}
