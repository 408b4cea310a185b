package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// EditingMetrics records the client-side consistency protocol: totals
// reconciliation, optimistic rollbacks, batch saves and view invalidations.
type EditingMetrics struct {
	reconcileRuns     *Counter
	reconcileDuration *Histogram
	rollbacks         *Counter
	savedItems        *Counter
	invalidations     *Counter
}

// NewEditingMetrics creates the editing instruments on meter
func NewEditingMetrics(meter metric.Meter) (*EditingMetrics, error) {
	m := &EditingMetrics{}
	var err error

	if m.reconcileRuns, err = NewCounter(meter,
		"catering.reconcile.runs", "Totals reconciliations by trigger and outcome", "{run}"); err != nil {
		return nil, err
	}
	if m.reconcileDuration, err = NewHistogram(meter,
		"catering.reconcile.duration", "Time from trigger to invalidated views", "s",
		ReconcileDurationBuckets...); err != nil {
		return nil, err
	}
	if m.rollbacks, err = NewCounter(meter,
		"catering.optimistic.rollbacks", "Optimistic updates rolled back after a failed write", "{rollback}"); err != nil {
		return nil, err
	}
	if m.savedItems, err = NewCounter(meter,
		"catering.save.items", "Line items persisted or failed by save-all", "{item}"); err != nil {
		return nil, err
	}
	if m.invalidations, err = NewCounter(meter,
		"catering.cache.invalidations", "Dependent view invalidations", "{invalidation}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordReconcile counts one reconciliation. A non-nil err is recorded as a
// warning outcome since reconciliation failures are never fatal.
func (m *EditingMetrics) RecordReconcile(ctx context.Context, trigger string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "warning"
	}
	m.reconcileRuns.Inc(ctx, AttrTrigger.String(trigger), AttrOutcome.String(outcome))
	m.reconcileDuration.RecordDuration(ctx, elapsed, AttrTrigger.String(trigger))
}

// RecordRollback counts one optimistic rollback
func (m *EditingMetrics) RecordRollback(ctx context.Context, operation string, restored bool) {
	outcome := "restored"
	if !restored {
		outcome = "failed"
	}
	m.rollbacks.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordSave counts items written by one save-all
func (m *EditingMetrics) RecordSave(ctx context.Context, saved, failed int) {
	if saved > 0 {
		m.savedItems.Add(ctx, int64(saved), AttrOutcome.String("saved"))
	}
	if failed > 0 {
		m.savedItems.Add(ctx, int64(failed), AttrOutcome.String("failed"))
	}
}

// RecordInvalidation counts one invalidated view key
func (m *EditingMetrics) RecordInvalidation(ctx context.Context, key string) {
	m.invalidations.Inc(ctx, AttrQueryKey.String(key))
}
