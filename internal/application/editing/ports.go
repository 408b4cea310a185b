// Package editing is the client-side consistency engine for invoice line
// item editing: a local edit buffer with dirty tracking, batch save, the
// totals reconciliation protocol and optimistic single-item updates.
package editing

import (
	"context"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/google/uuid"
)

// LineItemStore is the persisted line item collection. Every call may fail
// independently and is never retried by the engine.
type LineItemStore interface {
	Fetch(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error)
	Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error)
	Update(ctx context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
	ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error)
}

// TotalsRecalculator asks the server to recompute an invoice's totals.
// Implementations must be safe to call redundantly.
type TotalsRecalculator interface {
	Recalculate(ctx context.Context, invoiceID uuid.UUID) error
}

// NotesWriter persists invoice notes and returns the invoice version after
// the write. A non-nil expectedVersion makes the write conditional.
type NotesWriter interface {
	WriteNotes(ctx context.Context, invoiceID uuid.UUID, customerNotes, adminNotes string, expectedVersion *int) (int, error)
}

// ViewCache is the dependent-view cache the engine reads, writes
// optimistically and invalidates.
type ViewCache interface {
	Get(key cache.QueryKey) (any, bool)
	Set(key cache.QueryKey, value any)
	Cancel(key cache.QueryKey) int
	Invalidate(ctx context.Context, key cache.QueryKey)
}

// Recorder receives engine measurements
type Recorder interface {
	RecordReconcile(ctx context.Context, trigger string, elapsed time.Duration, err error)
	RecordRollback(ctx context.Context, operation string, restored bool)
	RecordSave(ctx context.Context, saved, failed int)
	RecordInvalidation(ctx context.Context, key string)
}

type nopRecorder struct{}

func (nopRecorder) RecordReconcile(context.Context, string, time.Duration, error) {}
func (nopRecorder) RecordRollback(context.Context, string, bool)                  {}
func (nopRecorder) RecordSave(context.Context, int, int)                          {}
func (nopRecorder) RecordInvalidation(context.Context, string)                    {}
