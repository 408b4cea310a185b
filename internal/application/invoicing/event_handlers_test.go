package invoicing

import (
	"context"
	"errors"
	"testing"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTotalsTrigger_EventTypes(t *testing.T) {
	h := NewTotalsTrigger(new(MockTotalsRecalculator), nil)
	assert.Equal(t, []string{invoicing.EventTypeLineItemsChanged}, h.EventTypes())
}

func TestTotalsTrigger_Handle(t *testing.T) {
	recalc := new(MockTotalsRecalculator)
	h := NewTotalsTrigger(recalc, zaptest.NewLogger(t))

	invoiceID := uuid.New()
	recalc.On("RecalculateTotals", mock.Anything, invoiceID).Return(&TotalsResponse{InvoiceID: invoiceID, TotalCents: 1080}, nil)

	err := h.Handle(context.Background(), invoicing.NewLineItemsChangedEvent(invoiceID, invoicing.OperationUpdate, uuid.New()))
	require.NoError(t, err)
	recalc.AssertExpectations(t)
}

func TestTotalsTrigger_HandleFailure(t *testing.T) {
	recalc := new(MockTotalsRecalculator)
	h := NewTotalsTrigger(recalc, zaptest.NewLogger(t))

	invoiceID := uuid.New()
	recalc.On("RecalculateTotals", mock.Anything, invoiceID).Return(nil, errors.New("db down"))

	err := h.Handle(context.Background(), invoicing.NewLineItemsChangedEvent(invoiceID, invoicing.OperationDelete))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestTotalsTrigger_WrongEventType(t *testing.T) {
	h := NewTotalsTrigger(new(MockTotalsRecalculator), zaptest.NewLogger(t))
	inv := newTestInvoice(t)

	err := h.Handle(context.Background(), invoicing.NewNotesUpdatedEvent(inv))
	assert.Error(t, err)
}

func TestViewInvalidationHandler(t *testing.T) {
	inv := newTestInvoice(t)
	id := inv.ID.String()

	tests := []struct {
		name     string
		event    func() shared.DomainEvent
		expected []string
	}{
		{
			name: "line items changed",
			event: func() shared.DomainEvent {
				return invoicing.NewLineItemsChangedEvent(inv.ID, invoicing.OperationCreate)
			},
			expected: []string{
				"invoice/" + id,
				"invoices",
				"invoice-line-items/" + id,
			},
		},
		{
			name:  "totals recalculated",
			event: func() shared.DomainEvent { return invoicing.NewTotalsRecalculatedEvent(inv, true) },
			expected: []string{
				"invoice/" + id,
				"invoices",
				"payment-milestones/" + id,
				"invoice-with-milestones/" + id,
			},
		},
		{
			name:     "notes updated",
			event:    func() shared.DomainEvent { return invoicing.NewNotesUpdatedEvent(inv) },
			expected: []string{"invoice/" + id, "invoices"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := &recordingInvalidator{}
			h := NewViewInvalidationHandler(views, zaptest.NewLogger(t))

			evt := tt.event()
			assert.Contains(t, h.EventTypes(), evt.EventType())
			require.NoError(t, h.Handle(context.Background(), evt))
			assert.Equal(t, tt.expected, views.keys)
		})
	}
}

// A line item mutation published on the bus recalculates totals and marks
// the cached invoice stale before the mutation call returns.
func TestLineItemMutation_TriggersRecalculationThroughBus(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := event.NewInMemoryEventBus(logger)
	views := cache.NewQueryCache()

	invoiceRepo := new(MockInvoiceRepository)
	itemRepo := new(MockLineItemRepository)
	inv := newTestInvoice(t)
	item := newTestItem(t, inv.ID, 2, 500, "proteins")

	invoiceRepo.On("FindByID", mock.Anything, inv.ID).Return(inv, nil)
	itemRepo.On("FindByID", mock.Anything, item.ID).Return(&item, nil)
	stored := []invoicing.LineItem{item}
	itemRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		stored[0] = *args.Get(1).(*invoicing.LineItem)
	})
	itemRepo.On("FindByInvoice", mock.Anything, inv.ID).Return(stored, nil)
	invoiceRepo.On("SaveTotals", mock.Anything, inv).Return(nil)

	invoices := NewInvoiceService(invoiceRepo, itemRepo, WithInvoiceViews(views))
	invoices.SetEventPublisher(bus)
	items := NewLineItemService(itemRepo, invoiceRepo)
	items.SetEventPublisher(bus)

	bus.Subscribe(NewTotalsTrigger(invoices, logger))
	bus.Subscribe(NewViewInvalidationHandler(views, logger))

	_, err := invoices.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.False(t, views.IsStale(cache.InvoiceKey(inv.ID)))

	quantity := 3
	_, err = items.Update(context.Background(), item.ID, invoicing.LineItemPatch{Quantity: &quantity})
	require.NoError(t, err)

	invoiceRepo.AssertCalled(t, "SaveTotals", mock.Anything, inv)
	assert.Equal(t, int64(1500), inv.SubtotalCents)
	assert.True(t, views.IsStale(cache.InvoiceKey(inv.ID)))
}
