package invoicing

import (
	"context"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// LineItemService persists line items and announces every committed
// mutation with a LineItemsChanged event. It performs no retries.
type LineItemService struct {
	itemRepo       invoicing.LineItemRepository
	invoiceRepo    invoicing.InvoiceRepository
	eventPublisher shared.EventPublisher
	views          ViewReader
	logger         *zap.Logger
}

// LineItemServiceOption configures a LineItemService
type LineItemServiceOption func(*LineItemService)

// WithLineItemLogger sets the service logger
func WithLineItemLogger(logger *zap.Logger) LineItemServiceOption {
	return func(s *LineItemService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLineItemViews serves Fetch through a view cache
func WithLineItemViews(views ViewReader) LineItemServiceOption {
	return func(s *LineItemService) {
		s.views = views
	}
}

// NewLineItemService creates a new LineItemService
func NewLineItemService(
	itemRepo invoicing.LineItemRepository,
	invoiceRepo invoicing.InvoiceRepository,
	opts ...LineItemServiceOption,
) *LineItemService {
	s := &LineItemService{
		itemRepo:    itemRepo,
		invoiceRepo: invoiceRepo,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *LineItemService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Fetch returns the invoice's items ordered by sort order
func (s *LineItemService) Fetch(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	if err := s.ensureInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	if s.views == nil {
		return s.itemRepo.FindByInvoice(ctx, invoiceID)
	}

	value, err := s.views.Fetch(ctx, cache.LineItemsKey(invoiceID), func(ctx context.Context) (any, error) {
		return s.itemRepo.FindByInvoice(ctx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	items, ok := value.([]invoicing.LineItem)
	if !ok {
		return s.itemRepo.FindByInvoice(ctx, invoiceID)
	}
	// Cached slices are shared between readers
	return invoicing.CloneLineItems(items), nil
}

// Create adds items to an invoice in one transaction
func (s *LineItemService) Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	if len(inputs) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "At least one line item is required")
	}
	if err := s.ensureInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}

	items, err := buildLineItems(invoiceID, inputs)
	if err != nil {
		return nil, err
	}
	if err := s.itemRepo.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, invoiceID, invoicing.OperationCreate, items)
	return items, nil
}

// Update applies a partial update to one item
func (s *LineItemService) Update(ctx context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return item, nil
	}
	if err := item.Apply(patch); err != nil {
		return nil, err
	}
	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, item.InvoiceID, invoicing.OperationUpdate, []invoicing.LineItem{*item})
	return item, nil
}

// Delete removes one item
func (s *LineItemService) Delete(ctx context.Context, itemID uuid.UUID) error {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.itemRepo.Delete(ctx, itemID); err != nil {
		return err
	}

	s.publishChanged(ctx, item.InvoiceID, invoicing.OperationDelete, []invoicing.LineItem{*item})
	return nil
}

// ReplaceAll atomically swaps the invoice's items for the given set.
// Supplied ids are kept so regenerated packages keep stable references.
func (s *LineItemService) ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	if err := s.ensureInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}

	items, err := buildLineItems(invoiceID, inputs)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(items, func(item invoicing.LineItem, _ int) uuid.UUID { return item.ID })
	if len(lo.Uniq(ids)) != len(ids) {
		return nil, shared.NewDomainError("DUPLICATE_ITEM_ID", "Line item ids must be unique")
	}

	if err := s.itemRepo.ReplaceForInvoice(ctx, invoiceID, items); err != nil {
		return nil, err
	}

	s.publishChanged(ctx, invoiceID, invoicing.OperationReplaceAll, items)
	return items, nil
}

func (s *LineItemService) ensureInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	return err
}

func (s *LineItemService) publishChanged(ctx context.Context, invoiceID uuid.UUID, op invoicing.LineItemOperation, items []invoicing.LineItem) {
	s.logger.Debug("line items changed",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("operation", string(op)),
		zap.Int("count", len(items)),
	)
	if s.eventPublisher == nil {
		return
	}

	ids := lo.Map(items, func(item invoicing.LineItem, _ int) uuid.UUID { return item.ID })
	event := invoicing.NewLineItemsChangedEvent(invoiceID, op, ids...)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		// The mutation is committed; the client's explicit recalculation
		// covers a missed trigger.
		s.logger.Warn("failed to publish line items changed event",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
	}
}

func buildLineItems(invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	items := make([]invoicing.LineItem, 0, len(inputs))
	for _, input := range inputs {
		item, err := invoicing.NewLineItem(invoiceID, input)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
