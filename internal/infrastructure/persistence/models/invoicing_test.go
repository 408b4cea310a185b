package models

import (
	"testing"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceModel_RoundTrip(t *testing.T) {
	inv, err := invoicing.NewInvoice("INV-2026-0001", "Riverside Church", decimal.NewFromFloat(0.08))
	require.NoError(t, err)
	inv.CustomerNotes = "Deliver to side entrance"
	require.NoError(t, inv.SetDiscount(invoicing.DiscountPercentage, decimal.NewFromInt(10)))
	ms := invoicing.StandardSchedule(inv.ID)
	inv.Milestones = ms

	m := InvoiceModelFromDomain(inv)
	assert.Equal(t, "invoices", m.TableName())
	require.Len(t, m.Milestones, len(ms))

	back := m.ToDomain()
	assert.Equal(t, inv.ID, back.ID)
	assert.Equal(t, inv.Version, back.Version)
	assert.Equal(t, inv.CustomerNotes, back.CustomerNotes)
	assert.True(t, inv.TaxRate.Equal(back.TaxRate))
	assert.Equal(t, invoicing.DiscountPercentage, back.DiscountType)
	assert.Equal(t, ms[0].Type, back.Milestones[0].Type)
}

func TestLineItemModel_RoundTrip(t *testing.T) {
	item := &invoicing.LineItem{
		ID:              uuid.New(),
		InvoiceID:       uuid.New(),
		Title:           "Pulled pork sliders",
		Quantity:        40,
		UnitPriceCents:  350,
		TotalPriceCents: 14000,
		Category:        "appetizers",
		SortOrder:       2,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	back := LineItemModelFromDomain(item).ToDomain()
	assert.Equal(t, *item, *back)
}
