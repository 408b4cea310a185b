package invoicing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentMilestone(t *testing.T) {
	_, err := NewPaymentMilestone(uuid.New(), MilestoneDeposit, decimal.Zero, 0)
	assert.Error(t, err)

	_, err = NewPaymentMilestone(uuid.New(), MilestoneDeposit, decimal.NewFromInt(101), 0)
	assert.Error(t, err)

	m, err := NewPaymentMilestone(uuid.New(), MilestoneDeposit, decimal.NewFromInt(25), 0)
	require.NoError(t, err)
	assert.Equal(t, MilestonePending, m.Status)
}

func TestAllocateMilestones(t *testing.T) {
	invoiceID := uuid.New()
	third := decimal.RequireFromString("33.33")
	milestones := []PaymentMilestone{
		{ID: uuid.New(), InvoiceID: invoiceID, Type: MilestoneFinal, Percentage: decimal.RequireFromString("33.34"), SortOrder: 2},
		{ID: uuid.New(), InvoiceID: invoiceID, Type: MilestoneDeposit, Percentage: third, SortOrder: 0},
		{ID: uuid.New(), InvoiceID: invoiceID, Type: MilestoneProgress, Percentage: third, SortOrder: 1},
	}

	assert.True(t, AllocateMilestones(4321, milestones))

	assert.Equal(t, MilestoneDeposit, milestones[0].Type)
	assert.Equal(t, int64(1440), milestones[0].AmountCents)
	assert.Equal(t, int64(1440), milestones[1].AmountCents)
	assert.Equal(t, int64(1441), milestones[2].AmountCents)

	assert.False(t, AllocateMilestones(4321, milestones))
	assert.False(t, AllocateMilestones(100, nil))
}

func TestStandardSchedule(t *testing.T) {
	invoiceID := uuid.New()
	schedule := StandardSchedule(invoiceID)

	require.Len(t, schedule, 2)
	assert.Equal(t, MilestoneDeposit, schedule[0].Type)
	assert.Equal(t, MilestoneFinal, schedule[1].Type)
	assert.Equal(t, invoiceID, schedule[1].InvoiceID)
}
