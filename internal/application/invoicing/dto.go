package invoicing

import (
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to open a draft invoice
type CreateInvoiceRequest struct {
	InvoiceNumber    string           `json:"invoice_number" binding:"required,min=1,max=50"`
	QuoteRequestID   *uuid.UUID       `json:"quote_request_id"`
	CustomerName     string           `json:"customer_name" binding:"required,min=1,max=200"`
	CustomerEmail    string           `json:"customer_email" binding:"omitempty,email,max=200"`
	EventDate        *time.Time       `json:"event_date"`
	TaxRate          *decimal.Decimal `json:"tax_rate"`
	GovernmentExempt bool             `json:"government_exempt"`
	DiscountType     string           `json:"discount_type" binding:"omitempty,oneof=percentage fixed"`
	DiscountValue    decimal.Decimal  `json:"discount_value"`
}

// UpdateNotesRequest replaces both notes of an invoice. ExpectedVersion,
// when set, rejects the write if the invoice changed since it was read.
type UpdateNotesRequest struct {
	CustomerNotes   string `json:"customer_notes" binding:"max=10000"`
	AdminNotes      string `json:"admin_notes" binding:"max=10000"`
	ExpectedVersion *int   `json:"expected_version" binding:"omitempty,min=1"`
}

// ListInvoicesRequest holds the list query string
type ListInvoicesRequest struct {
	Search   string `form:"search" binding:"max=100"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ToFilter converts the request to a repository filter, filling defaults
func (r ListInvoicesRequest) ToFilter() shared.Filter {
	filter := shared.DefaultFilter()
	filter.Search = r.Search
	if r.Page > 0 {
		filter.Page = r.Page
	}
	if r.PageSize > 0 {
		filter.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		filter.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		filter.OrderDir = r.OrderDir
	}
	return filter
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID               uuid.UUID           `json:"id"`
	InvoiceNumber    string              `json:"invoice_number"`
	QuoteRequestID   *uuid.UUID          `json:"quote_request_id,omitempty"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email,omitempty"`
	EventDate        *time.Time          `json:"event_date,omitempty"`
	Status           string              `json:"status"`
	CustomerNotes    string              `json:"customer_notes"`
	AdminNotes       string              `json:"admin_notes"`
	TaxRate          decimal.Decimal     `json:"tax_rate"`
	GovernmentExempt bool                `json:"government_exempt"`
	DiscountType     string              `json:"discount_type,omitempty"`
	DiscountValue    decimal.Decimal     `json:"discount_value"`
	SubtotalCents    int64               `json:"subtotal_cents"`
	DiscountCents    int64               `json:"discount_cents"`
	TaxCents         int64               `json:"tax_cents"`
	TotalCents       int64               `json:"total_cents"`
	Milestones       []MilestoneResponse `json:"milestones"`
	Version          int                 `json:"version"`
	RecalculatedAt   *time.Time          `json:"recalculated_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// InvoiceListItemResponse is the lighter row used by the invoice list
type InvoiceListItemResponse struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	CustomerName  string     `json:"customer_name"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	Status        string     `json:"status"`
	TotalCents    int64      `json:"total_cents"`
	Version       int        `json:"version"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MilestoneResponse represents a payment milestone
type MilestoneResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Percentage  decimal.Decimal `json:"percentage"`
	AmountCents int64           `json:"amount_cents"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      string          `json:"status"`
	SortOrder   int             `json:"sort_order"`
}

// TotalsResponse is the result of a recalculation
type TotalsResponse struct {
	InvoiceID      uuid.UUID           `json:"invoice_id"`
	SubtotalCents  int64               `json:"subtotal_cents"`
	DiscountCents  int64               `json:"discount_cents"`
	TaxCents       int64               `json:"tax_cents"`
	TotalCents     int64               `json:"total_cents"`
	Changed        bool                `json:"changed"`
	Milestones     []MilestoneResponse `json:"milestones"`
	RecalculatedAt *time.Time          `json:"recalculated_at,omitempty"`
}

// ToInvoiceResponse converts a domain invoice to its response
func ToInvoiceResponse(inv *invoicing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		QuoteRequestID:   inv.QuoteRequestID,
		CustomerName:     inv.CustomerName,
		CustomerEmail:    inv.CustomerEmail,
		EventDate:        inv.EventDate,
		Status:           string(inv.Status),
		CustomerNotes:    inv.CustomerNotes,
		AdminNotes:       inv.AdminNotes,
		TaxRate:          inv.TaxRate,
		GovernmentExempt: inv.GovernmentExempt,
		DiscountType:     string(inv.DiscountType),
		DiscountValue:    inv.DiscountValue,
		SubtotalCents:    inv.SubtotalCents,
		DiscountCents:    inv.DiscountCents,
		TaxCents:         inv.TaxCents,
		TotalCents:       inv.TotalCents,
		Milestones:       ToMilestoneResponses(inv.Milestones),
		Version:          inv.Version,
		RecalculatedAt:   inv.RecalculatedAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

// ToInvoiceListItemResponse converts a domain invoice to a list row
func ToInvoiceListItemResponse(inv *invoicing.Invoice) InvoiceListItemResponse {
	return InvoiceListItemResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		EventDate:     inv.EventDate,
		Status:        string(inv.Status),
		TotalCents:    inv.TotalCents,
		Version:       inv.Version,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// ToMilestoneResponses converts milestones, keeping their order
func ToMilestoneResponses(milestones []invoicing.PaymentMilestone) []MilestoneResponse {
	out := make([]MilestoneResponse, len(milestones))
	for i, m := range milestones {
		out[i] = MilestoneResponse{
			ID:          m.ID,
			Type:        string(m.Type),
			Description: m.Description,
			Percentage:  m.Percentage,
			AmountCents: m.AmountCents,
			DueDate:     m.DueDate,
			Status:      string(m.Status),
			SortOrder:   m.SortOrder,
		}
	}
	return out
}

func toTotalsResponse(inv *invoicing.Invoice, changed bool) TotalsResponse {
	return TotalsResponse{
		InvoiceID:      inv.ID,
		SubtotalCents:  inv.SubtotalCents,
		DiscountCents:  inv.DiscountCents,
		TaxCents:       inv.TaxCents,
		TotalCents:     inv.TotalCents,
		Changed:        changed,
		Milestones:     ToMilestoneResponses(inv.Milestones),
		RecalculatedAt: inv.RecalculatedAt,
	}
}

// ==================== Line Item DTOs ====================

// LineItemRequest is one line item in a create or replace request
type LineItemRequest struct {
	ID             *uuid.UUID `json:"id"`
	Title          string     `json:"title" binding:"required,min=1,max=200"`
	Description    string     `json:"description" binding:"max=2000"`
	Quantity       int        `json:"quantity" binding:"min=0"`
	UnitPriceCents int64      `json:"unit_price_cents" binding:"min=0"`
	Category       string     `json:"category" binding:"omitempty,category"`
	SortOrder      int        `json:"sort_order"`
}

// ToInput converts the request to a domain input
func (r LineItemRequest) ToInput() invoicing.LineItemInput {
	return invoicing.LineItemInput{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
		Category:       r.Category,
		SortOrder:      r.SortOrder,
	}
}

// CreateLineItemsRequest adds items to an invoice
type CreateLineItemsRequest struct {
	Items []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReplaceLineItemsRequest swaps the whole item set of an invoice. An empty
// list clears it.
type ReplaceLineItemsRequest struct {
	Items []LineItemRequest `json:"items" binding:"dive"`
}

// ToInputs converts every request item
func ToInputs(items []LineItemRequest) []invoicing.LineItemInput {
	inputs := make([]invoicing.LineItemInput, len(items))
	for i, item := range items {
		inputs[i] = item.ToInput()
	}
	return inputs
}

// UpdateLineItemRequest is a partial update of one line item
type UpdateLineItemRequest struct {
	Title          *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description    *string `json:"description" binding:"omitempty,max=2000"`
	Quantity       *int    `json:"quantity" binding:"omitempty,min=0"`
	UnitPriceCents *int64  `json:"unit_price_cents" binding:"omitempty,min=0"`
	Category       *string `json:"category" binding:"omitempty,category"`
	SortOrder      *int    `json:"sort_order"`
}

// ToPatch converts the request to a domain patch
func (r UpdateLineItemRequest) ToPatch() invoicing.LineItemPatch {
	return invoicing.LineItemPatch{
		Title:          r.Title,
		Description:    r.Description,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
		Category:       r.Category,
		SortOrder:      r.SortOrder,
	}
}

// LineItemResponse represents a line item with its category origin
type LineItemResponse struct {
	ID              uuid.UUID `json:"id"`
	InvoiceID       uuid.UUID `json:"invoice_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Quantity        int       `json:"quantity"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Category        string    `json:"category"`
	Origin          string    `json:"origin"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToLineItemResponse converts a domain line item, classifying its category
func ToLineItemResponse(item *invoicing.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:              item.ID,
		InvoiceID:       item.InvoiceID,
		Title:           item.Title,
		Description:     item.Description,
		Quantity:        item.Quantity,
		UnitPriceCents:  item.UnitPriceCents,
		TotalPriceCents: item.TotalPriceCents,
		Category:        item.Category,
		Origin:          string(item.Origin()),
		SortOrder:       item.SortOrder,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// ToLineItemResponses converts a slice of line items
func ToLineItemResponses(items []invoicing.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i := range items {
		out[i] = ToLineItemResponse(&items[i])
	}
	return out
}

// ToLineItem converts a response back to the domain shape. Clients of the
// HTTP API use it; origin is derived and dropped.
func (r LineItemResponse) ToLineItem() invoicing.LineItem {
	return invoicing.LineItem{
		ID:              r.ID,
		InvoiceID:       r.InvoiceID,
		Title:           r.Title,
		Description:     r.Description,
		Quantity:        r.Quantity,
		UnitPriceCents:  r.UnitPriceCents,
		TotalPriceCents: r.TotalPriceCents,
		Category:        r.Category,
		SortOrder:       r.SortOrder,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
