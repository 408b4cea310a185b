package invoicing

import (
	"context"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// ViewInvalidator marks cached views stale
type ViewInvalidator interface {
	Invalidate(ctx context.Context, key cache.QueryKey)
}

// ViewInvalidationHandler keeps the server's read cache coherent with
// committed invoice and line item writes.
type ViewInvalidationHandler struct {
	views  ViewInvalidator
	logger *zap.Logger
}

// NewViewInvalidationHandler creates a new ViewInvalidationHandler
func NewViewInvalidationHandler(views ViewInvalidator, logger *zap.Logger) *ViewInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewInvalidationHandler{views: views, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ViewInvalidationHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeLineItemsChanged,
		invoicing.EventTypeTotalsRecalculated,
		invoicing.EventTypeNotesUpdated,
	}
}

// Handle invalidates the views an event makes stale
func (h *ViewInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	id := event.AggregateID()
	keys := []cache.QueryKey{cache.InvoiceKey(id), cache.InvoiceListKey()}

	switch event.EventType() {
	case invoicing.EventTypeLineItemsChanged:
		keys = append(keys, cache.LineItemsKey(id))
	case invoicing.EventTypeTotalsRecalculated:
		keys = append(keys, cache.MilestonesKey(id), cache.InvoiceWithMilestonesKey(id))
	}

	for _, key := range keys {
		h.views.Invalidate(ctx, key)
	}
	h.logger.Debug("views invalidated",
		zap.String("event_type", event.EventType()),
		zap.String("invoice_id", id.String()),
		zap.Int("keys", len(keys)),
	)
	return nil
}
