package invoicing

import (
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeLineItemsChanged   = "invoicing.line_items_changed"
	EventTypeTotalsRecalculated = "invoicing.totals_recalculated"
	EventTypeNotesUpdated       = "invoicing.notes_updated"
)

// LineItemOperation names the mutation behind a LineItemsChangedEvent
type LineItemOperation string

const (
	OperationCreate     LineItemOperation = "create"
	OperationUpdate     LineItemOperation = "update"
	OperationDelete     LineItemOperation = "delete"
	OperationReplaceAll LineItemOperation = "replace_all"
)

// LineItemsChangedEvent is raised after a committed line-item mutation
type LineItemsChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID         `json:"invoice_id"`
	Operation LineItemOperation `json:"operation"`
	ItemIDs   []uuid.UUID       `json:"item_ids"`
}

// NewLineItemsChangedEvent creates a LineItemsChangedEvent
func NewLineItemsChangedEvent(invoiceID uuid.UUID, op LineItemOperation, itemIDs ...uuid.UUID) *LineItemsChangedEvent {
	return &LineItemsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLineItemsChanged, AggregateTypeInvoice, invoiceID),
		InvoiceID:       invoiceID,
		Operation:       op,
		ItemIDs:         itemIDs,
	}
}

// TotalsRecalculatedEvent acknowledges that an invoice's totals reflect
// its persisted line items.
type TotalsRecalculatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Totals    Totals    `json:"totals"`
	Changed   bool      `json:"changed"`
}

// NewTotalsRecalculatedEvent creates a TotalsRecalculatedEvent
func NewTotalsRecalculatedEvent(inv *Invoice, changed bool) *TotalsRecalculatedEvent {
	return &TotalsRecalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTotalsRecalculated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		Totals:          inv.Totals,
		Changed:         changed,
	}
}

// NotesUpdatedEvent is raised after an invoice's notes were persisted
type NotesUpdatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Version   int       `json:"version"`
}

// NewNotesUpdatedEvent creates a NotesUpdatedEvent
func NewNotesUpdatedEvent(inv *Invoice) *NotesUpdatedEvent {
	return &NotesUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNotesUpdated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		Version:         inv.Version,
	}
}
