package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func preloadMilestones(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

// FindByID finds an invoice with its payment milestones
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var row models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Milestones", preloadMilestones).
		First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindAll returns one page of invoices and the total match count
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	search := searchScope(filter.Search)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(search).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := r.applyFilter(r.db.WithContext(ctx).Scopes(search), filter).
		Preload("Milestones", preloadMilestones).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

// Save creates or fully updates an invoice and its milestones
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	row := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Milestones").Save(row).Error; err != nil {
			return err
		}
		return r.saveMilestones(tx, invoice.ID, row.Milestones)
	})
}

// SaveNotes writes both notes and the bumped version, guarded by the
// version the caller read.
func (r *GormInvoiceRepository) SaveNotes(ctx context.Context, invoice *invoicing.Invoice, previousVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, previousVersion).
			Updates(map[string]any{
				"customer_notes": invoice.CustomerNotes,
				"admin_notes":    invoice.AdminNotes,
				"version":        invoice.Version,
				"updated_at":     invoice.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&models.InvoiceModel{}).Where("id = ?", invoice.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	})
}

// SaveTotals writes totals and milestone amounts. The version is left alone
// so a recalculation never conflicts with a concurrent notes edit.
func (r *GormInvoiceRepository) SaveTotals(ctx context.Context, invoice *invoicing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recalculatedAt := time.Now()
		if invoice.RecalculatedAt != nil {
			recalculatedAt = *invoice.RecalculatedAt
		}
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{
				"subtotal_cents":  invoice.SubtotalCents,
				"discount_cents":  invoice.DiscountCents,
				"tax_cents":       invoice.TaxCents,
				"total_cents":     invoice.TotalCents,
				"recalculated_at": recalculatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		for _, m := range invoice.Milestones {
			if err := tx.Model(&models.PaymentMilestoneModel{}).
				Where("id = ? AND invoice_id = ?", m.ID, invoice.ID).
				Update("amount_cents", m.AmountCents).Error; err != nil {
				return fmt.Errorf("failed to update milestone %s: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (r *GormInvoiceRepository) saveMilestones(tx *gorm.DB, invoiceID uuid.UUID, rows []models.PaymentMilestoneModel) error {
	keep := make([]uuid.UUID, len(rows))
	for i := range rows {
		keep[i] = rows[i].ID
	}

	stale := tx.Where("invoice_id = ?", invoiceID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.PaymentMilestoneModel{}).Error; err != nil {
		return err
	}

	for i := range rows {
		rows[i].InvoiceID = invoiceID
		if err := tx.Save(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func searchScope(term string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		pattern := "%" + strings.ToLower(term) + "%"
		return db.Where("LOWER(invoice_number) LIKE ? OR LOWER(customer_name) LIKE ?", pattern, pattern)
	}
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, invoiceSortColumns, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
