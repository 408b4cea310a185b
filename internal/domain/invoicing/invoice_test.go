package invoicing

import (
	"testing"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice("INV-2024-0042", "Riverside Church", decimal.NewFromFloat(0.08))
	require.NoError(t, err)
	return inv
}

func sampleItems(invoiceID uuid.UUID) []LineItem {
	return []LineItem{
		{ID: uuid.New(), InvoiceID: invoiceID, Quantity: 3, UnitPriceCents: 500},
		{ID: uuid.New(), InvoiceID: invoiceID, Quantity: 2, UnitPriceCents: 1250},
	}
}

// ============================================
// Construction
// ============================================

func TestNewInvoice(t *testing.T) {
	inv := createTestInvoice(t)
	assert.Equal(t, InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 1, inv.Version)

	_, err := NewInvoice("", "x", decimal.Zero)
	assert.Error(t, err)

	_, err = NewInvoice("INV-1", "x", decimal.NewFromInt(2))
	assert.Error(t, err)
}

// ============================================
// Totals
// ============================================

func TestInvoice_ComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(inv *Invoice)
		expected Totals
	}{
		{
			name:     "taxed",
			setup:    func(inv *Invoice) {},
			expected: Totals{SubtotalCents: 4000, TaxCents: 320, TotalCents: 4320},
		},
		{
			name: "percentage discount before tax",
			setup: func(inv *Invoice) {
				require.NoError(t, inv.SetDiscount(DiscountPercentage, decimal.NewFromInt(10)))
			},
			expected: Totals{SubtotalCents: 4000, DiscountCents: 400, TaxCents: 288, TotalCents: 3888},
		},
		{
			name:     "government exempt",
			setup:    func(inv *Invoice) { inv.SetGovernmentExempt(true) },
			expected: Totals{SubtotalCents: 4000, TotalCents: 4000},
		},
		{
			name: "fixed discount capped at subtotal",
			setup: func(inv *Invoice) {
				require.NoError(t, inv.SetDiscount(DiscountFixed, decimal.NewFromInt(5000)))
			},
			expected: Totals{SubtotalCents: 4000, DiscountCents: 4000, TotalCents: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := createTestInvoice(t)
			tt.setup(inv)
			assert.Equal(t, tt.expected, inv.ComputeTotals(sampleItems(inv.ID)))
		})
	}
}

func TestInvoice_ComputeTotals_RoundsHalfUp(t *testing.T) {
	inv, err := NewInvoice("INV-1", "x", decimal.RequireFromString("0.0825"))
	require.NoError(t, err)

	totals := inv.ComputeTotals([]LineItem{{Quantity: 1, UnitPriceCents: 1999}})

	// 1999 * 0.0825 = 164.9175
	assert.Equal(t, int64(165), totals.TaxCents)
	assert.Equal(t, int64(2164), totals.TotalCents)
}

func TestInvoice_ComputeTotals_IgnoresStaleItemTotals(t *testing.T) {
	inv := createTestInvoice(t)
	items := []LineItem{{Quantity: 2, UnitPriceCents: 500, TotalPriceCents: 1}}
	assert.Equal(t, int64(1000), inv.ComputeTotals(items).SubtotalCents)
}

func TestInvoice_RecalculateTotals_Idempotent(t *testing.T) {
	inv := createTestInvoice(t)
	inv.Milestones = StandardSchedule(inv.ID)
	items := sampleItems(inv.ID)

	assert.True(t, inv.RecalculateTotals(items))
	first := inv.Totals
	firstMilestones := append([]PaymentMilestone(nil), inv.Milestones...)

	assert.False(t, inv.RecalculateTotals(items))
	assert.Equal(t, first, inv.Totals)
	assert.Equal(t, firstMilestones, inv.Milestones)

	events := inv.GetDomainEvents()
	require.Len(t, events, 2)
	second, ok := events[1].(*TotalsRecalculatedEvent)
	require.True(t, ok)
	assert.False(t, second.Changed)
	assert.Equal(t, first, second.Totals)
}

func TestInvoice_RecalculateTotals_AllocatesMilestones(t *testing.T) {
	inv := createTestInvoice(t)
	inv.Milestones = StandardSchedule(inv.ID)

	inv.RecalculateTotals(sampleItems(inv.ID))

	require.Len(t, inv.Milestones, 2)
	assert.Equal(t, int64(2160), inv.Milestones[0].AmountCents)
	assert.Equal(t, int64(2160), inv.Milestones[1].AmountCents)
	assert.NotNil(t, inv.RecalculatedAt)
}

// ============================================
// Notes and versioning
// ============================================

func TestInvoice_UpdateNotes(t *testing.T) {
	t.Run("without version check", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.UpdateNotes("Gate code 4411", "Call on arrival", nil))
		assert.Equal(t, "Gate code 4411", inv.CustomerNotes)
		assert.Equal(t, "Call on arrival", inv.AdminNotes)
		assert.Equal(t, 2, inv.Version)
	})

	t.Run("matching version", func(t *testing.T) {
		inv := createTestInvoice(t)
		expected := 1
		require.NoError(t, inv.UpdateNotes("a", "b", &expected))
		assert.Equal(t, 2, inv.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		inv := createTestInvoice(t)
		stale := 0
		err := inv.UpdateNotes("a", "b", &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, inv.CustomerNotes)
		assert.Equal(t, 1, inv.Version)
	})
}

func TestInvoice_SetDiscount(t *testing.T) {
	inv := createTestInvoice(t)

	assert.Error(t, inv.SetDiscount(DiscountPercentage, decimal.NewFromInt(150)))
	assert.Error(t, inv.SetDiscount(DiscountFixed, decimal.NewFromInt(-1)))
	assert.Error(t, inv.SetDiscount(DiscountType("bogo"), decimal.NewFromInt(1)))

	require.NoError(t, inv.SetDiscount(DiscountNone, decimal.NewFromInt(30)))
	assert.True(t, inv.DiscountValue.IsZero())
}
