package invoicing

import (
	"context"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
)

// LineItemRepository persists line items
type LineItemRepository interface {
	// FindByInvoice returns the invoice's items ordered by sort order
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]LineItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*LineItem, error)
	CreateBatch(ctx context.Context, items []LineItem) error
	Save(ctx context.Context, item *LineItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ReplaceForInvoice atomically swaps the invoice's items for items
	ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []LineItem) error
}

// InvoiceRepository persists invoices with their payment milestones
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveNotes persists notes only if the stored version equals
	// previousVersion, otherwise it returns shared.ErrConcurrencyConflict
	SaveNotes(ctx context.Context, invoice *Invoice, previousVersion int) error
	// SaveTotals persists totals and milestone amounts without touching the version
	SaveTotals(ctx context.Context, invoice *Invoice) error
}
