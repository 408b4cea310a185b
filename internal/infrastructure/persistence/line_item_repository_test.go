package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLineItem(t *testing.T, invoiceID uuid.UUID, title string, qty int, price int64, sort int) invoicing.LineItem {
	t.Helper()
	item, err := invoicing.NewLineItem(invoiceID, invoicing.LineItemInput{
		Title:          title,
		Quantity:       qty,
		UnitPriceCents: price,
		Category:       "entrees",
		SortOrder:      sort,
	})
	require.NoError(t, err)
	return *item
}

func TestGormLineItemRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLineItemRepository(newTestDatabase(t).DB)
	invoiceID := uuid.New()

	second := newLineItem(t, invoiceID, "Mac and cheese", 50, 300, 1)
	first := newLineItem(t, invoiceID, "Fried chicken", 50, 650, 0)
	other := newLineItem(t, uuid.New(), "Sweet tea", 10, 100, 0)
	require.NoError(t, repo.CreateBatch(ctx, []invoicing.LineItem{second, first, other}))

	items, err := repo.FindByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
	assert.Equal(t, int64(32500), items[0].TotalPriceCents)

	found, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sweet tea", found.Title)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.NoError(t, repo.CreateBatch(ctx, nil))
}

func TestGormLineItemRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLineItemRepository(newTestDatabase(t).DB)
	invoiceID := uuid.New()
	item := newLineItem(t, invoiceID, "Brisket", 20, 1200, 0)
	require.NoError(t, repo.CreateBatch(ctx, []invoicing.LineItem{item}))

	qty := 25
	require.NoError(t, item.Apply(invoicing.LineItemPatch{Quantity: &qty}))
	require.NoError(t, repo.Save(ctx, &item))

	stored, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.Quantity)
	assert.Equal(t, int64(30000), stored.TotalPriceCents)

	missing := newLineItem(t, invoiceID, "Ghost", 1, 1, 0)
	assert.ErrorIs(t, repo.Save(ctx, &missing), shared.ErrNotFound)
}

func TestGormLineItemRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLineItemRepository(newTestDatabase(t).DB)
	item := newLineItem(t, uuid.New(), "Cornbread", 60, 75, 0)
	require.NoError(t, repo.CreateBatch(ctx, []invoicing.LineItem{item}))

	require.NoError(t, repo.Delete(ctx, item.ID))
	assert.ErrorIs(t, repo.Delete(ctx, item.ID), shared.ErrNotFound)
}

func TestGormLineItemRepository_ReplaceForInvoice(t *testing.T) {
	ctx := context.Background()
	repo := NewGormLineItemRepository(newTestDatabase(t).DB)
	invoiceID := uuid.New()
	require.NoError(t, repo.CreateBatch(ctx, []invoicing.LineItem{
		newLineItem(t, invoiceID, "Old A", 1, 100, 0),
		newLineItem(t, invoiceID, "Old B", 1, 100, 1),
	}))

	replacement := []invoicing.LineItem{newLineItem(t, uuid.New(), "New", 3, 500, 0)}
	require.NoError(t, repo.ReplaceForInvoice(ctx, invoiceID, replacement))

	items, err := repo.FindByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "New", items[0].Title)
	assert.Equal(t, invoiceID, items[0].InvoiceID)

	require.NoError(t, repo.ReplaceForInvoice(ctx, invoiceID, nil))
	items, err = repo.FindByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormLineItemRepository_QueryError(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormLineItemRepository(gormDB)
	invoiceID := uuid.New()
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(`SELECT \* FROM "invoice_line_items" WHERE invoice_id = \$1 ORDER BY sort_order ASC, created_at ASC`).
		WithArgs(invoiceID).
		WillReturnError(dbErr)

	items, err := repo.FindByInvoice(context.Background(), invoiceID)
	assert.Nil(t, items)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLineItemRepository_UpdateError(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormLineItemRepository(gormDB)
	item := invoicing.LineItem{ID: uuid.New(), InvoiceID: uuid.New(), Title: "x", Quantity: 1, UpdatedAt: time.Now()}

	mock.ExpectExec(`UPDATE "invoice_line_items" SET .* WHERE id = \$\d+`).
		WillReturnError(errors.New("disk full"))

	err := repo.Save(context.Background(), &item)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
