package invoicing

import (
	"context"
	"errors"
	"sync"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxNotesAttempts = 3

// ViewReader serves reads through the dependent-view cache
type ViewReader interface {
	Fetch(ctx context.Context, key cache.QueryKey, fetcher func(ctx context.Context) (any, error)) (any, error)
}

// InvoiceService handles invoice reads, notes writes and the authoritative
// totals computation.
type InvoiceService struct {
	invoiceRepo    invoicing.InvoiceRepository
	itemRepo       invoicing.LineItemRepository
	eventPublisher shared.EventPublisher
	views          ViewReader
	defaultTaxRate decimal.Decimal
	logger         *zap.Logger
	recalcLocks    *keyedMutex
}

// InvoiceServiceOption configures an InvoiceService
type InvoiceServiceOption func(*InvoiceService)

// WithInvoiceLogger sets the service logger
func WithInvoiceLogger(logger *zap.Logger) InvoiceServiceOption {
	return func(s *InvoiceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInvoiceViews serves GetInvoice through a view cache
func WithInvoiceViews(views ViewReader) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.views = views
	}
}

// WithDefaultTaxRate sets the tax rate used when a create request has none
func WithDefaultTaxRate(rate decimal.Decimal) InvoiceServiceOption {
	return func(s *InvoiceService) {
		s.defaultTaxRate = rate
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo invoicing.InvoiceRepository,
	itemRepo invoicing.LineItemRepository,
	opts ...InvoiceServiceOption,
) *InvoiceService {
	s := &InvoiceService{
		invoiceRepo: invoiceRepo,
		itemRepo:    itemRepo,
		logger:      zap.NewNop(),
		recalcLocks: newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateInvoice opens a draft invoice with the standard payment schedule
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	taxRate := s.defaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	inv, err := invoicing.NewInvoice(req.InvoiceNumber, req.CustomerName, taxRate)
	if err != nil {
		return nil, err
	}
	inv.QuoteRequestID = req.QuoteRequestID
	inv.CustomerEmail = req.CustomerEmail
	inv.EventDate = req.EventDate
	inv.SetGovernmentExempt(req.GovernmentExempt)
	if req.DiscountType != "" {
		if err := inv.SetDiscount(invoicing.DiscountType(req.DiscountType), req.DiscountValue); err != nil {
			return nil, err
		}
	}
	inv.Milestones = invoicing.StandardSchedule(inv.ID)
	inv.RecalculateTotals(nil)
	inv.ClearDomainEvents()

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetInvoice returns an invoice with its milestones
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// ListInvoices returns one page of invoices and the total count
func (s *InvoiceService) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]InvoiceListItemResponse, int64, error) {
	invoices, total, err := s.invoiceRepo.FindAll(ctx, req.ToFilter())
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceListItemResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToInvoiceListItemResponse(&invoices[i])
	}
	return responses, total, nil
}

// GetMilestones returns the invoice's payment schedule in order
func (s *InvoiceService) GetMilestones(ctx context.Context, id uuid.UUID) ([]MilestoneResponse, error) {
	inv, err := s.loadInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToMilestoneResponses(inv.Milestones), nil
}

// UpdateNotes replaces the customer and admin notes. Line items and totals
// are untouched. Without an expected version the last writer wins.
func (s *InvoiceService) UpdateNotes(ctx context.Context, id uuid.UUID, req UpdateNotesRequest) (*InvoiceResponse, error) {
	for attempt := 1; ; attempt++ {
		inv, err := s.updateNotesOnce(ctx, id, req)
		if errors.Is(err, shared.ErrConcurrencyConflict) && req.ExpectedVersion == nil && attempt < maxNotesAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Debug("invoice notes updated",
			zap.String("invoice_id", id.String()),
			zap.Int("version", inv.Version),
		)
		s.publishEvents(ctx, invoicing.NewNotesUpdatedEvent(inv))

		response := ToInvoiceResponse(inv)
		return &response, nil
	}
}

func (s *InvoiceService) updateNotesOnce(ctx context.Context, id uuid.UUID, req UpdateNotesRequest) (*invoicing.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previousVersion := inv.Version
	if err := inv.UpdateNotes(req.CustomerNotes, req.AdminNotes, req.ExpectedVersion); err != nil {
		return nil, err
	}
	// The write is conditional on the version we read, so a writer that
	// slipped in between is detected here.
	if err := s.invoiceRepo.SaveNotes(ctx, inv, previousVersion); err != nil {
		return nil, err
	}
	return inv, nil
}

// WriteNotes is UpdateNotes for in-process editing sessions. It returns
// the invoice version after the write.
func (s *InvoiceService) WriteNotes(ctx context.Context, id uuid.UUID, customerNotes, adminNotes string, expectedVersion *int) (int, error) {
	resp, err := s.UpdateNotes(ctx, id, UpdateNotesRequest{
		CustomerNotes:   customerNotes,
		AdminNotes:      adminNotes,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// RecalculateTotals recomputes subtotal, discount, tax, grand total and
// milestone amounts from the persisted line items. Repeating the call
// without an intervening mutation yields the same totals.
func (s *InvoiceService) RecalculateTotals(ctx context.Context, id uuid.UUID) (*TotalsResponse, error) {
	unlock := s.recalcLocks.Lock(id)
	defer unlock()

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.FindByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := inv.RecalculateTotals(items)
	if err := s.invoiceRepo.SaveTotals(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Debug("invoice totals recalculated",
		zap.String("invoice_id", id.String()),
		zap.Int64("total_cents", inv.TotalCents),
		zap.Bool("changed", changed),
	)

	s.publishEvents(ctx, inv.GetDomainEvents()...)
	inv.ClearDomainEvents()

	response := toTotalsResponse(inv, changed)
	return &response, nil
}

// Recalculate is RecalculateTotals for callers that only need the outcome
func (s *InvoiceService) Recalculate(ctx context.Context, id uuid.UUID) error {
	_, err := s.RecalculateTotals(ctx, id)
	return err
}

func (s *InvoiceService) loadInvoice(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	if s.views == nil {
		return s.invoiceRepo.FindByID(ctx, id)
	}
	value, err := s.views.Fetch(ctx, cache.InvoiceKey(id), func(ctx context.Context) (any, error) {
		return s.invoiceRepo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	inv, ok := value.(*invoicing.Invoice)
	if !ok {
		return s.invoiceRepo.FindByID(ctx, id)
	}
	return inv, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish invoice events", zap.Error(err))
	}
}

// keyedMutex serializes work per invoice id
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refMutex)}
}

// Lock acquires the lock for id and returns its release function
func (k *keyedMutex) Lock(id uuid.UUID) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &refMutex{}
		k.locks[id] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
