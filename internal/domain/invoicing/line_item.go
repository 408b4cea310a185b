package invoicing

import (
	"sort"
	"strings"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
)

// LineItem is a priced row on an invoice. Money is held in integer cents.
type LineItem struct {
	ID              uuid.UUID `json:"id"`
	InvoiceID       uuid.UUID `json:"invoice_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Quantity        int       `json:"quantity"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Category        string    `json:"category"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LineItemInput carries the fields needed to create or replace a line item.
// ID is optional; replaceAll keeps ids that are supplied.
type LineItemInput struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Category       string     `json:"category"`
	SortOrder      int        `json:"sort_order"`
}

// LineItemPatch is a partial update. Nil fields are left untouched.
type LineItemPatch struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	Category       *string `json:"category,omitempty"`
	SortOrder      *int    `json:"sort_order,omitempty"`
}

// NewLineItem validates input and builds a line item with its total computed
func NewLineItem(invoiceID uuid.UUID, input LineItemInput) (*LineItem, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Line item title cannot be empty")
	}
	if err := validateAmounts(input.Quantity, input.UnitPriceCents); err != nil {
		return nil, err
	}

	id := uuid.New()
	if input.ID != nil && *input.ID != uuid.Nil {
		id = *input.ID
	}

	now := time.Now()
	item := &LineItem{
		ID:             id,
		InvoiceID:      invoiceID,
		Title:          input.Title,
		Description:    input.Description,
		Quantity:       input.Quantity,
		UnitPriceCents: input.UnitPriceCents,
		Category:       input.Category,
		SortOrder:      input.SortOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	item.RecomputeTotal()
	return item, nil
}

// RecomputeTotal derives TotalPriceCents from quantity and unit price
func (li *LineItem) RecomputeTotal() {
	li.TotalPriceCents = int64(li.Quantity) * li.UnitPriceCents
}

// Merge copies the non-nil fields of patch onto the item without validation.
// It reports whether quantity or unit price was part of the patch.
func (li *LineItem) Merge(patch LineItemPatch) bool {
	if patch.Title != nil {
		li.Title = *patch.Title
	}
	if patch.Description != nil {
		li.Description = *patch.Description
	}
	if patch.Category != nil {
		li.Category = *patch.Category
	}
	if patch.SortOrder != nil {
		li.SortOrder = *patch.SortOrder
	}

	priced := false
	if patch.Quantity != nil {
		li.Quantity = *patch.Quantity
		priced = true
	}
	if patch.UnitPriceCents != nil {
		li.UnitPriceCents = *patch.UnitPriceCents
		priced = true
	}
	if priced {
		li.RecomputeTotal()
	}
	return priced
}

// Apply validates and merges a patch, as the persisted store does
func (li *LineItem) Apply(patch LineItemPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	candidate := *li
	candidate.Merge(patch)
	if err := validateAmounts(candidate.Quantity, candidate.UnitPriceCents); err != nil {
		return err
	}
	candidate.RecomputeTotal()
	candidate.UpdatedAt = time.Now()
	*li = candidate
	return nil
}

// Origin classifies the item's category
func (li *LineItem) Origin() CategoryOrigin {
	return ClassifyCategory(li.Category)
}

// IsEmpty reports whether the patch changes nothing
func (p LineItemPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Quantity == nil &&
		p.UnitPriceCents == nil && p.Category == nil && p.SortOrder == nil
}

// Validate checks the fields present in the patch
func (p LineItemPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return shared.NewDomainError("INVALID_TITLE", "Line item title cannot be empty")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if p.UnitPriceCents != nil && *p.UnitPriceCents < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return nil
}

// SortLineItems orders items for display: by SortOrder, then creation time
func SortLineItems(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// CloneLineItems returns an independent copy of items
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// MaxLineTotalCents bounds quantity x unit price for one item ($1 billion),
// which keeps invoice sums far from int64 overflow.
const MaxLineTotalCents int64 = 100_000_000_000

func validateAmounts(quantity int, unitPriceCents int64) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if unitPriceCents < 0 {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if unitPriceCents > MaxLineTotalCents ||
		(unitPriceCents > 0 && int64(quantity) > MaxLineTotalCents/unitPriceCents) {
		return shared.NewDomainError("AMOUNT_TOO_LARGE", "Line total exceeds the maximum allowed amount")
	}
	return nil
}
