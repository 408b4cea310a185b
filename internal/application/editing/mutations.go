package editing

import (
	"context"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
)

// LineItemMutations performs structural line item changes and reconciles
// after each committed one. A failed mutation never reconciles.
type LineItemMutations struct {
	store      LineItemStore
	reconciler *TotalsReconciler
	optimistic *OptimisticUpdater
}

// NewLineItemMutations creates LineItemMutations
func NewLineItemMutations(store LineItemStore, reconciler *TotalsReconciler, optimistic *OptimisticUpdater) *LineItemMutations {
	return &LineItemMutations{
		store:      store,
		reconciler: reconciler,
		optimistic: optimistic,
	}
}

// Create adds items
func (m *LineItemMutations) Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	mutatedAt := time.Now()
	items, err := m.store.Create(ctx, invoiceID, inputs)
	if err != nil {
		return nil, newStorageError(OpCreate, invoiceID, uuid.Nil, err)
	}
	_ = m.reconciler.Reconcile(ctx, invoiceID, TriggerBatch, mutatedAt)
	return items, nil
}

// Update patches one item through the optimistic path
func (m *LineItemMutations) Update(ctx context.Context, invoiceID, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	return m.optimistic.Update(ctx, invoiceID, itemID, patch)
}

// Delete removes one item
func (m *LineItemMutations) Delete(ctx context.Context, invoiceID, itemID uuid.UUID) error {
	mutatedAt := time.Now()
	if err := m.store.Delete(ctx, itemID); err != nil {
		return newStorageError(OpDelete, invoiceID, itemID, err)
	}
	_ = m.reconciler.Reconcile(ctx, invoiceID, TriggerBatch, mutatedAt)
	return nil
}

// ReplaceAll swaps the invoice's whole item set
func (m *LineItemMutations) ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	mutatedAt := time.Now()
	items, err := m.store.ReplaceAll(ctx, invoiceID, inputs)
	if err != nil {
		return nil, newStorageError(OpReplaceAll, invoiceID, uuid.Nil, err)
	}
	_ = m.reconciler.Reconcile(ctx, invoiceID, TriggerBatch, mutatedAt)
	return items, nil
}
