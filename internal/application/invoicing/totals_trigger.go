package invoicing

import (
	"context"
	"fmt"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TotalsRecalculator recomputes an invoice's authoritative totals
type TotalsRecalculator interface {
	RecalculateTotals(ctx context.Context, id uuid.UUID) (*TotalsResponse, error)
}

// TotalsTrigger recomputes invoice totals whenever line items change. It is
// the opportunistic half of reconciliation; clients still call recalculate
// explicitly.
type TotalsTrigger struct {
	recalculator TotalsRecalculator
	logger       *zap.Logger
}

// NewTotalsTrigger creates a new handler for line items changed events
func NewTotalsTrigger(recalculator TotalsRecalculator, logger *zap.Logger) *TotalsTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TotalsTrigger{
		recalculator: recalculator,
		logger:       logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *TotalsTrigger) EventTypes() []string {
	return []string{invoicing.EventTypeLineItemsChanged}
}

// Handle processes a LineItemsChangedEvent
func (h *TotalsTrigger) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*invoicing.LineItemsChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", invoicing.EventTypeLineItemsChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			invoicing.EventTypeLineItemsChanged, event.EventType())
	}

	totals, err := h.recalculator.RecalculateTotals(ctx, changed.InvoiceID)
	if err != nil {
		h.logger.Warn("triggered recalculation failed",
			zap.String("invoice_id", changed.InvoiceID.String()),
			zap.String("operation", string(changed.Operation)),
			zap.Error(err),
		)
		return fmt.Errorf("recalculate totals for invoice %s: %w", changed.InvoiceID, err)
	}

	h.logger.Debug("totals recalculated by trigger",
		zap.String("invoice_id", changed.InvoiceID.String()),
		zap.Int64("total_cents", totals.TotalCents),
		zap.Bool("changed", totals.Changed),
	)
	return nil
}
