package handler

import (
	"context"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceService implements InvoiceService for testing
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, req invoicingapp.CreateInvoiceRequest) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, req invoicingapp.ListInvoicesRequest) ([]invoicingapp.InvoiceListItemResponse, int64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]invoicingapp.InvoiceListItemResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceService) GetMilestones(ctx context.Context, id uuid.UUID) ([]invoicingapp.MilestoneResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicingapp.MilestoneResponse), args.Error(1)
}

func (m *MockInvoiceService) UpdateNotes(ctx context.Context, id uuid.UUID, req invoicingapp.UpdateNotesRequest) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) RecalculateTotals(ctx context.Context, id uuid.UUID) (*invoicingapp.TotalsResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicingapp.TotalsResponse), args.Error(1)
}

// MockLineItemService implements LineItemService for testing
type MockLineItemService struct {
	mock.Mock
}

func (m *MockLineItemService) Fetch(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.LineItem), args.Error(1)
}

func (m *MockLineItemService) Create(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	args := m.Called(ctx, invoiceID, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.LineItem), args.Error(1)
}

func (m *MockLineItemService) Update(ctx context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	args := m.Called(ctx, itemID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.LineItem), args.Error(1)
}

func (m *MockLineItemService) Delete(ctx context.Context, itemID uuid.UUID) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *MockLineItemService) ReplaceAll(ctx context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	args := m.Called(ctx, invoiceID, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.LineItem), args.Error(1)
}
