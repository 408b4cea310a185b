package models

import (
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber    string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	QuoteRequestID   *uuid.UUID              `gorm:"type:uuid;index"`
	CustomerName     string                  `gorm:"type:varchar(200);not null"`
	CustomerEmail    string                  `gorm:"type:varchar(200)"`
	EventDate        *time.Time              `gorm:"index"`
	Status           invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	CustomerNotes    string                  `gorm:"type:text"`
	AdminNotes       string                  `gorm:"type:text"`
	TaxRate          decimal.Decimal         `gorm:"type:decimal(6,4);not null;default:0"`
	GovernmentExempt bool                    `gorm:"not null;default:false"`
	DiscountType     invoicing.DiscountType  `gorm:"type:varchar(20)"`
	DiscountValue    decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	SubtotalCents    int64                   `gorm:"not null;default:0"`
	DiscountCents    int64                   `gorm:"not null;default:0"`
	TaxCents         int64                   `gorm:"not null;default:0"`
	TotalCents       int64                   `gorm:"not null;default:0"`
	RecalculatedAt   *time.Time
	Milestones       []PaymentMilestoneModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		QuoteRequestID:    m.QuoteRequestID,
		CustomerName:      m.CustomerName,
		CustomerEmail:     m.CustomerEmail,
		EventDate:         m.EventDate,
		Status:            m.Status,
		CustomerNotes:     m.CustomerNotes,
		AdminNotes:        m.AdminNotes,
		TaxRate:           m.TaxRate,
		GovernmentExempt:  m.GovernmentExempt,
		DiscountType:      m.DiscountType,
		DiscountValue:     m.DiscountValue,
		Totals: invoicing.Totals{
			SubtotalCents: m.SubtotalCents,
			DiscountCents: m.DiscountCents,
			TaxCents:      m.TaxCents,
			TotalCents:    m.TotalCents,
		},
		RecalculatedAt: m.RecalculatedAt,
		Milestones:     make([]invoicing.PaymentMilestone, len(m.Milestones)),
	}
	for i := range m.Milestones {
		inv.Milestones[i] = *m.Milestones[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.QuoteRequestID = inv.QuoteRequestID
	m.CustomerName = inv.CustomerName
	m.CustomerEmail = inv.CustomerEmail
	m.EventDate = inv.EventDate
	m.Status = inv.Status
	m.CustomerNotes = inv.CustomerNotes
	m.AdminNotes = inv.AdminNotes
	m.TaxRate = inv.TaxRate
	m.GovernmentExempt = inv.GovernmentExempt
	m.DiscountType = inv.DiscountType
	m.DiscountValue = inv.DiscountValue
	m.SubtotalCents = inv.SubtotalCents
	m.DiscountCents = inv.DiscountCents
	m.TaxCents = inv.TaxCents
	m.TotalCents = inv.TotalCents
	m.RecalculatedAt = inv.RecalculatedAt
	m.Milestones = make([]PaymentMilestoneModel, len(inv.Milestones))
	for i := range inv.Milestones {
		m.Milestones[i].FromDomain(&inv.Milestones[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// LineItemModel is the persistence model for an invoice line item.
type LineItemModel struct {
	BaseModel
	InvoiceID       uuid.UUID `gorm:"type:uuid;not null;index:idx_line_items_invoice_sort,priority:1"`
	Title           string    `gorm:"type:varchar(200);not null"`
	Description     string    `gorm:"type:text"`
	Quantity        int       `gorm:"not null;default:1"`
	UnitPriceCents  int64     `gorm:"not null;default:0"`
	TotalPriceCents int64     `gorm:"not null;default:0"`
	Category        string    `gorm:"type:varchar(50)"`
	SortOrder       int       `gorm:"not null;default:0;index:idx_line_items_invoice_sort,priority:2"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *LineItemModel) ToDomain() *invoicing.LineItem {
	return &invoicing.LineItem{
		ID:              m.ID,
		InvoiceID:       m.InvoiceID,
		Title:           m.Title,
		Description:     m.Description,
		Quantity:        m.Quantity,
		UnitPriceCents:  m.UnitPriceCents,
		TotalPriceCents: m.TotalPriceCents,
		Category:        m.Category,
		SortOrder:       m.SortOrder,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LineItem.
func (m *LineItemModel) FromDomain(item *invoicing.LineItem) {
	m.ID = item.ID
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
	m.InvoiceID = item.InvoiceID
	m.Title = item.Title
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPriceCents = item.UnitPriceCents
	m.TotalPriceCents = item.TotalPriceCents
	m.Category = item.Category
	m.SortOrder = item.SortOrder
}

// LineItemModelFromDomain creates a new persistence model from a domain LineItem.
func LineItemModelFromDomain(item *invoicing.LineItem) *LineItemModel {
	m := &LineItemModel{}
	m.FromDomain(item)
	return m
}

// PaymentMilestoneModel is the persistence model for a payment milestone.
type PaymentMilestoneModel struct {
	ID          uuid.UUID                 `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Type        invoicing.MilestoneType   `gorm:"column:milestone_type;type:varchar(20);not null"`
	Description string                    `gorm:"type:varchar(200)"`
	Percentage  decimal.Decimal           `gorm:"type:decimal(5,2);not null"`
	AmountCents int64                     `gorm:"not null;default:0"`
	DueDate     *time.Time                `gorm:"index"`
	Status      invoicing.MilestoneStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	SortOrder   int                       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PaymentMilestoneModel) TableName() string {
	return "payment_milestones"
}

// ToDomain converts the persistence model to a domain PaymentMilestone.
func (m *PaymentMilestoneModel) ToDomain() *invoicing.PaymentMilestone {
	return &invoicing.PaymentMilestone{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Type:        m.Type,
		Description: m.Description,
		Percentage:  m.Percentage,
		AmountCents: m.AmountCents,
		DueDate:     m.DueDate,
		Status:      m.Status,
		SortOrder:   m.SortOrder,
	}
}

// FromDomain populates the persistence model from a domain PaymentMilestone.
func (m *PaymentMilestoneModel) FromDomain(pm *invoicing.PaymentMilestone) {
	m.ID = pm.ID
	m.InvoiceID = pm.InvoiceID
	m.Type = pm.Type
	m.Description = pm.Description
	m.Percentage = pm.Percentage
	m.AmountCents = pm.AmountCents
	m.DueDate = pm.DueDate
	m.Status = pm.Status
	m.SortOrder = pm.SortOrder
}
