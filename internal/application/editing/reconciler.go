package editing

import (
	"context"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Trigger selects the settle delay of a reconciliation
type Trigger string

const (
	// TriggerBatch follows a batch save or a structural change
	TriggerBatch Trigger = "batch"
	// TriggerField follows a single optimistic field edit
	TriggerField Trigger = "field"
)

const (
	DefaultBatchDelay = 200 * time.Millisecond
	DefaultFieldDelay = 100 * time.Millisecond
)

// TotalsReconciler makes the server's invoice totals consistent with the
// latest committed line items and marks every dependent view stale. It is
// only invoked after a mutation succeeded.
type TotalsReconciler struct {
	recalculator         TotalsRecalculator
	views                ViewCache
	settler              Settler
	recorder             Recorder
	logger               *zap.Logger
	batchDelay           time.Duration
	fieldDelay           time.Duration
	invalidateMilestones bool
}

// ReconcilerOption configures a TotalsReconciler
type ReconcilerOption func(*TotalsReconciler)

// WithSettler replaces the fixed-delay settler
func WithSettler(s Settler) ReconcilerOption {
	return func(r *TotalsReconciler) {
		if s != nil {
			r.settler = s
		}
	}
}

// WithDelays overrides the batch and field settle delays
func WithDelays(batch, field time.Duration) ReconcilerOption {
	return func(r *TotalsReconciler) {
		r.batchDelay = batch
		r.fieldDelay = field
	}
}

// WithInvalidateMilestones controls whether milestone views are invalidated
func WithInvalidateMilestones(enabled bool) ReconcilerOption {
	return func(r *TotalsReconciler) {
		r.invalidateMilestones = enabled
	}
}

// WithReconcilerRecorder sets the metrics recorder
func WithReconcilerRecorder(rec Recorder) ReconcilerOption {
	return func(r *TotalsReconciler) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithReconcilerLogger sets the logger
func WithReconcilerLogger(l *zap.Logger) ReconcilerOption {
	return func(r *TotalsReconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewTotalsReconciler creates a reconciler with 200ms/100ms delays and
// milestone invalidation enabled.
func NewTotalsReconciler(recalculator TotalsRecalculator, views ViewCache, opts ...ReconcilerOption) *TotalsReconciler {
	r := &TotalsReconciler{
		recalculator:         recalculator,
		views:                views,
		settler:              DelaySettler{},
		recorder:             nopRecorder{},
		logger:               zap.NewNop(),
		batchDelay:           DefaultBatchDelay,
		fieldDelay:           DefaultFieldDelay,
		invalidateMilestones: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs the protocol for one committed mutation: settle, request
// an idempotent recalculation, then invalidate dependent views.
// Invalidation always happens. The returned error is informational: a
// *ReconciliationWarning when recalculation failed, or the context error
// when the wait was cancelled.
func (r *TotalsReconciler) Reconcile(ctx context.Context, invoiceID uuid.UUID, trigger Trigger, mutatedAt time.Time) error {
	start := time.Now()
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("invoice_id", invoiceID.String()),
		zap.String("trigger", string(trigger)),
	)

	// Views are invalidated even when the caller goes away mid-protocol
	defer r.invalidate(context.WithoutCancel(ctx), invoiceID)

	if err := r.settler.Settle(ctx, invoiceID, mutatedAt, r.delayFor(trigger)); err != nil {
		log.Debug("reconciliation wait cancelled", zap.Error(err))
		r.recorder.RecordReconcile(ctx, string(trigger), time.Since(start), err)
		return err
	}

	var result error
	if err := r.recalculator.Recalculate(ctx, invoiceID); err != nil {
		warning := &ReconciliationWarning{InvoiceID: invoiceID, Err: err}
		log.Warn("totals recalculation failed; views will be refreshed anyway", zap.Error(warning))
		result = warning
	}

	r.recorder.RecordReconcile(ctx, string(trigger), time.Since(start), result)
	return result
}

// InvalidateLineItems marks the invoice's line item view stale
func (r *TotalsReconciler) InvalidateLineItems(ctx context.Context, invoiceID uuid.UUID) {
	r.invalidateKey(ctx, cache.LineItemsKey(invoiceID))
}

// DependentKeys lists the views invalidated for an invoice
func (r *TotalsReconciler) DependentKeys(invoiceID uuid.UUID) []cache.QueryKey {
	keys := []cache.QueryKey{
		cache.InvoiceKey(invoiceID),
		cache.InvoiceListKey(),
		cache.LineItemsKey(invoiceID),
		cache.EventsKey(),
		cache.QuotesKey(),
	}
	if r.invalidateMilestones {
		keys = append(keys,
			cache.MilestonesKey(invoiceID),
			cache.InvoiceWithMilestonesKey(invoiceID),
		)
	}
	return keys
}

func (r *TotalsReconciler) invalidate(ctx context.Context, invoiceID uuid.UUID) {
	for _, key := range r.DependentKeys(invoiceID) {
		r.invalidateKey(ctx, key)
	}
}

func (r *TotalsReconciler) invalidateKey(ctx context.Context, key cache.QueryKey) {
	if r.views == nil {
		return
	}
	r.views.Invalidate(ctx, key)
	// Only the view name; ids would explode metric cardinality
	r.recorder.RecordInvalidation(ctx, key[0])
}

func (r *TotalsReconciler) delayFor(trigger Trigger) time.Duration {
	if trigger == TriggerField {
		return r.fieldDelay
	}
	return r.batchDelay
}
