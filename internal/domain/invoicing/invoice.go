package invoicing

import (
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice is the aggregate type recorded on invoice events
const AggregateTypeInvoice = "Invoice"

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// DiscountType selects how DiscountValue is interpreted
type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Totals is the server-computed aggregate of an invoice
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Invoice is the authoritative aggregate for a catering invoice. Its totals
// are only ever produced by RecalculateTotals.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber    string
	QuoteRequestID   *uuid.UUID
	CustomerName     string
	CustomerEmail    string
	EventDate        *time.Time
	Status           InvoiceStatus
	CustomerNotes    string
	AdminNotes       string
	TaxRate          decimal.Decimal
	GovernmentExempt bool
	DiscountType     DiscountType
	DiscountValue    decimal.Decimal
	Totals
	Milestones     []PaymentMilestone
	RecalculatedAt *time.Time
}

// NewInvoice creates a draft invoice
func NewInvoice(invoiceNumber, customerName string, taxRate decimal.Decimal) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be in [0, 1)")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerName:      customerName,
		Status:            InvoiceStatusDraft,
		TaxRate:           taxRate,
		Milestones:        make([]PaymentMilestone, 0),
	}, nil
}

// SetDiscount configures the invoice discount. Percentages are 0..100,
// fixed discounts are in cents.
func (inv *Invoice) SetDiscount(discountType DiscountType, value decimal.Decimal) error {
	if value.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	switch discountType {
	case DiscountNone:
		value = decimal.Zero
	case DiscountPercentage:
		if value.GreaterThan(hundred) {
			return shared.NewDomainError("INVALID_DISCOUNT", "Percentage discount cannot exceed 100")
		}
	case DiscountFixed:
	default:
		return shared.NewDomainError("INVALID_DISCOUNT_TYPE", "Unknown discount type")
	}

	inv.DiscountType = discountType
	inv.DiscountValue = value
	inv.Touch()
	return nil
}

// SetGovernmentExempt toggles tax exemption for government customers
func (inv *Invoice) SetGovernmentExempt(exempt bool) {
	inv.GovernmentExempt = exempt
	inv.Touch()
}

// UpdateNotes replaces both notes. When expectedVersion is given it must
// match the current version. The version is bumped on success.
func (inv *Invoice) UpdateNotes(customerNotes, adminNotes string, expectedVersion *int) error {
	if expectedVersion != nil && *expectedVersion != inv.Version {
		return shared.ErrConcurrencyConflict
	}

	inv.CustomerNotes = customerNotes
	inv.AdminNotes = adminNotes
	inv.IncrementVersion()
	inv.Touch()
	return nil
}

// ComputeTotals derives the aggregate from persisted line items. It is a
// pure function of items and the invoice's pricing rules.
func (inv *Invoice) ComputeTotals(items []LineItem) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}

	discount := inv.discountFor(subtotal)
	var tax int64
	if !inv.GovernmentExempt {
		tax = decimal.NewFromInt(subtotal - discount).Mul(inv.TaxRate).Round(0).IntPart()
	}

	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    subtotal - discount + tax,
	}
}

// RecalculateTotals recomputes totals and milestone amounts from items.
// Calling it again with the same items yields the same result. It reports
// whether anything changed and always records a TotalsRecalculated event.
func (inv *Invoice) RecalculateTotals(items []LineItem) bool {
	totals := inv.ComputeTotals(items)
	changed := totals != inv.Totals

	inv.Totals = totals
	if AllocateMilestones(totals.TotalCents, inv.Milestones) {
		changed = true
	}

	now := time.Now()
	inv.RecalculatedAt = &now
	if changed {
		inv.UpdatedAt = now
	}

	inv.AddDomainEvent(NewTotalsRecalculatedEvent(inv, changed))
	return changed
}

func (inv *Invoice) discountFor(subtotal int64) int64 {
	var discount int64
	switch inv.DiscountType {
	case DiscountPercentage:
		discount = decimal.NewFromInt(subtotal).Mul(inv.DiscountValue).Div(hundred).Round(0).IntPart()
	case DiscountFixed:
		discount = inv.DiscountValue.Round(0).IntPart()
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
