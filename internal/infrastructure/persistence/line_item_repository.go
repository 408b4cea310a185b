package persistence

import (
	"context"
	"errors"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLineItemRepository implements invoicing.LineItemRepository using GORM
type GormLineItemRepository struct {
	db *gorm.DB
}

// NewGormLineItemRepository creates a new GormLineItemRepository
func NewGormLineItemRepository(db *gorm.DB) *GormLineItemRepository {
	return &GormLineItemRepository{db: db}
}

// FindByInvoice returns the invoice's items ordered by sort order
func (r *GormLineItemRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	var rows []models.LineItemModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]invoicing.LineItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// FindByID finds a line item by its ID
func (r *GormLineItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.LineItem, error) {
	var row models.LineItemModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// CreateBatch inserts items in one transaction
func (r *GormLineItemRepository) CreateBatch(ctx context.Context, items []invoicing.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.LineItemModel, len(items))
	for i := range items {
		rows[i] = models.LineItemModelFromDomain(&items[i])
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

// Save updates an existing line item. It returns shared.ErrNotFound when
// the row is gone.
func (r *GormLineItemRepository) Save(ctx context.Context, item *invoicing.LineItem) error {
	row := models.LineItemModelFromDomain(item)
	result := r.db.WithContext(ctx).
		Model(&models.LineItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"title":             row.Title,
			"description":       row.Description,
			"quantity":          row.Quantity,
			"unit_price_cents":  row.UnitPriceCents,
			"total_price_cents": row.TotalPriceCents,
			"category":          row.Category,
			"sort_order":        row.SortOrder,
			"updated_at":        row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a line item
func (r *GormLineItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LineItemModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReplaceForInvoice deletes the invoice's items and inserts items in one
// transaction.
func (r *GormLineItemRepository) ReplaceForInvoice(ctx context.Context, invoiceID uuid.UUID, items []invoicing.LineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoiceID).
			Delete(&models.LineItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]*models.LineItemModel, len(items))
		for i := range items {
			items[i].InvoiceID = invoiceID
			rows[i] = models.LineItemModelFromDomain(&items[i])
		}
		return tx.Create(&rows).Error
	})
}

var _ invoicing.LineItemRepository = (*GormLineItemRepository)(nil)
