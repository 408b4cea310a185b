package invoicing

import (
	"sort"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MilestoneType distinguishes the payments of a schedule
type MilestoneType string

const (
	MilestoneDeposit  MilestoneType = "deposit"
	MilestoneProgress MilestoneType = "progress"
	MilestoneFinal    MilestoneType = "final"
)

// MilestoneStatus is the payment state of a milestone
type MilestoneStatus string

const (
	MilestonePending MilestoneStatus = "pending"
	MilestonePaid    MilestoneStatus = "paid"
)

// PaymentMilestone is one scheduled payment, expressed as a percentage of
// the invoice total. AmountCents is derived.
type PaymentMilestone struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Type        MilestoneType   `json:"type"`
	Description string          `json:"description"`
	Percentage  decimal.Decimal `json:"percentage"`
	AmountCents int64           `json:"amount_cents"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      MilestoneStatus `json:"status"`
	SortOrder   int             `json:"sort_order"`
}

// NewPaymentMilestone builds a pending milestone
func NewPaymentMilestone(invoiceID uuid.UUID, milestoneType MilestoneType, percentage decimal.Decimal, sortOrder int) (*PaymentMilestone, error) {
	if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_PERCENTAGE", "Milestone percentage must be in (0, 100]")
	}
	return &PaymentMilestone{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		Type:       milestoneType,
		Percentage: percentage,
		Status:     MilestonePending,
		SortOrder:  sortOrder,
	}, nil
}

// StandardSchedule is the default catering schedule: half up front as a
// deposit, the balance before the event.
func StandardSchedule(invoiceID uuid.UUID) []PaymentMilestone {
	deposit, _ := NewPaymentMilestone(invoiceID, MilestoneDeposit, decimal.NewFromInt(50), 0)
	deposit.Description = "Deposit to secure the event date"
	final, _ := NewPaymentMilestone(invoiceID, MilestoneFinal, decimal.NewFromInt(50), 1)
	final.Description = "Balance due before the event"
	return []PaymentMilestone{*deposit, *final}
}

// AllocateMilestones splits totalCents across milestones in sort order.
// The last milestone takes the remainder so amounts always sum to the total.
// It reports whether any amount changed.
func AllocateMilestones(totalCents int64, milestones []PaymentMilestone) bool {
	if len(milestones) == 0 {
		return false
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].SortOrder < milestones[j].SortOrder
	})

	changed := false
	var allocated int64
	total := decimal.NewFromInt(totalCents)
	for i := range milestones {
		var amount int64
		if i == len(milestones)-1 {
			amount = totalCents - allocated
		} else {
			amount = total.Mul(milestones[i].Percentage).Div(hundred).Round(0).IntPart()
			allocated += amount
		}
		if milestones[i].AmountCents != amount {
			milestones[i].AmountCents = amount
			changed = true
		}
	}
	return changed
}
