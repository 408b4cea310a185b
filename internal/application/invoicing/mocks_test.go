package invoicing

import (
	"context"
	"sync"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]invoicing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveNotes(ctx context.Context, invoice *invoicing.Invoice, previousVersion int) error {
	args := m.Called(ctx, invoice, previousVersion)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveTotals(ctx context.Context, invoice *invoicing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockLineItemRepository is a mock implementation of LineItemRepository
type MockLineItemRepository struct {
	mock.Mock
}

func (m *MockLineItemRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.LineItem), args.Error(1)
}

func (m *MockLineItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.LineItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.LineItem), args.Error(1)
}

func (m *MockLineItemRepository) CreateBatch(ctx context.Context, items []invoicing.LineItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockLineItemRepository) Save(ctx context.Context, item *invoicing.LineItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockLineItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLineItemRepository) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []invoicing.LineItem) error {
	args := m.Called(ctx, invoiceID, items)
	return args.Error(0)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// recordingInvalidator captures invalidated keys
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key cache.QueryKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key.String())
}

// MockTotalsRecalculator is a mock implementation of TotalsRecalculator
type MockTotalsRecalculator struct {
	mock.Mock
}

func (m *MockTotalsRecalculator) RecalculateTotals(ctx context.Context, id uuid.UUID) (*TotalsResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TotalsResponse), args.Error(1)
}
