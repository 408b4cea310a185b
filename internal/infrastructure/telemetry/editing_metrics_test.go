package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestEditingMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	m, err := NewEditingMetrics(provider.Meter("editing-test"))
	require.NoError(t, err)

	m.RecordReconcile(ctx, "batch", 210*time.Millisecond, nil)
	m.RecordReconcile(ctx, "batch", 230*time.Millisecond, errors.New("timeout"))
	m.RecordReconcile(ctx, "field", 120*time.Millisecond, nil)
	m.RecordRollback(ctx, "update", true)
	m.RecordRollback(ctx, "delete", false)
	m.RecordSave(ctx, 2, 1)
	m.RecordSave(ctx, 0, 0)
	m.RecordInvalidation(ctx, "invoices")

	data := collect(t, reader)

	runs := data["catering.reconcile.runs"]
	assert.Equal(t, int64(1), sumFor(t, runs, AttrTrigger.String("batch"), AttrOutcome.String("ok")))
	assert.Equal(t, int64(1), sumFor(t, runs, AttrTrigger.String("batch"), AttrOutcome.String("warning")))
	assert.Equal(t, int64(1), sumFor(t, runs, AttrTrigger.String("field"), AttrOutcome.String("ok")))

	rollbacks := data["catering.optimistic.rollbacks"]
	assert.Equal(t, int64(1), sumFor(t, rollbacks, AttrOperation.String("update"), AttrOutcome.String("restored")))
	assert.Equal(t, int64(1), sumFor(t, rollbacks, AttrOperation.String("delete"), AttrOutcome.String("failed")))

	saved := data["catering.save.items"]
	assert.Equal(t, int64(2), sumFor(t, saved, AttrOutcome.String("saved")))
	assert.Equal(t, int64(1), sumFor(t, saved, AttrOutcome.String("failed")))

	assert.Equal(t, int64(1), sumFor(t, data["catering.cache.invalidations"], AttrQueryKey.String("invoices")))

	hist, ok := data["catering.reconcile.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}
