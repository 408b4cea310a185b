package editing

import (
	"context"
	"reflect"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OptimisticUpdater applies a single-item update to the cached line item
// view before the store confirms it, and restores the view exactly when
// the store rejects it.
type OptimisticUpdater struct {
	store      LineItemStore
	views      ViewCache
	reconciler *TotalsReconciler
	recorder   Recorder
	logger     *zap.Logger
}

// NewOptimisticUpdater creates an OptimisticUpdater
func NewOptimisticUpdater(store LineItemStore, views ViewCache, reconciler *TotalsReconciler, logger *zap.Logger) *OptimisticUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &OptimisticUpdater{
		store:      store,
		views:      views,
		reconciler: reconciler,
		recorder:   nopRecorder{},
		logger:     logger,
	}
	if reconciler != nil {
		u.recorder = reconciler.recorder
	}
	return u
}

// Update patches one item. On success the field-delay reconciliation runs
// before it returns; on failure the cached view is back to its exact prior
// state and a *StorageError is returned.
func (u *OptimisticUpdater) Update(ctx context.Context, invoiceID, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	key := cache.LineItemsKey(invoiceID)

	snapshot, cached := u.snapshot(key)

	// A read started before this write would otherwise land after it
	u.views.Cancel(key)

	if cached {
		optimistic := invoicing.CloneLineItems(snapshot)
		if applyPatch(optimistic, itemID, patch) {
			u.views.Set(key, optimistic)
		}
	}

	mutatedAt := time.Now()
	saved, err := u.store.Update(ctx, itemID, patch)
	if err != nil {
		if cached {
			u.rollback(ctx, invoiceID, key, snapshot)
		}
		return nil, newStorageError(OpUpdate, invoiceID, itemID, err)
	}

	if cached && saved != nil {
		if current, ok := u.lineItems(key); ok {
			confirmed := invoicing.CloneLineItems(current)
			replaceItem(confirmed, *saved)
			u.views.Set(key, confirmed)
		}
	}

	if u.reconciler != nil {
		_ = u.reconciler.Reconcile(ctx, invoiceID, TriggerField, mutatedAt)
	}
	return saved, nil
}

func (u *OptimisticUpdater) snapshot(key cache.QueryKey) ([]invoicing.LineItem, bool) {
	items, ok := u.lineItems(key)
	if !ok {
		return nil, false
	}
	return invoicing.CloneLineItems(items), true
}

func (u *OptimisticUpdater) lineItems(key cache.QueryKey) ([]invoicing.LineItem, bool) {
	value, ok := u.views.Get(key)
	if !ok {
		return nil, false
	}
	items, ok := value.([]invoicing.LineItem)
	return items, ok
}

func (u *OptimisticUpdater) rollback(ctx context.Context, invoiceID uuid.UUID, key cache.QueryKey, snapshot []invoicing.LineItem) {
	u.views.Set(key, snapshot)

	restored, ok := u.lineItems(key)
	if ok && reflect.DeepEqual(restored, snapshot) {
		u.recorder.RecordRollback(ctx, string(OpUpdate), true)
		return
	}

	failure := &RollbackFailure{
		InvoiceID: invoiceID,
		Key:       key.String(),
		Err:       errors.New("cached view differs from snapshot after restore"),
	}
	u.logger.Error("optimistic rollback failed; invalidating view", zap.Error(failure))
	u.recorder.RecordRollback(ctx, string(OpUpdate), false)
	u.views.Invalidate(context.WithoutCancel(ctx), key)
}

// applyPatch merges patch into the item with id, reporting whether found
func applyPatch(items []invoicing.LineItem, id uuid.UUID, patch invoicing.LineItemPatch) bool {
	for i := range items {
		if items[i].ID == id {
			items[i].Merge(patch)
			return true
		}
	}
	return false
}

func replaceItem(items []invoicing.LineItem, item invoicing.LineItem) {
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return
		}
	}
}
