package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	p, err := NewProviders(ctx, Config{ServiceName: "catering-test"}, logger)
	require.NoError(t, err)

	assert.False(t, p.TracingEnabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.Same(t, logger, p.BridgeLogger(logger))
	assert.NoError(t, p.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProviders_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("exporters dial the collector lazily; skipped in short mode")
	}
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	p, err := NewProviders(ctx, Config{
		ServiceName:       "catering-test",
		CollectorEndpoint: "localhost:14317",
		Insecure:          true,
		TracingEnabled:    true,
		MetricsEnabled:    true,
		LogsEnabled:       true,
		SamplingRatio:     1,
	}, logger)
	require.NoError(t, err)
	assert.True(t, p.TracingEnabled())

	bridged := p.BridgeLogger(logger)
	assert.NotSame(t, logger, bridged)
	bridged.Info("bridged log line")

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}
