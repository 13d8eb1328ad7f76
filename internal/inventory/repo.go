package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemFilter narrows item listings.
type ItemFilter struct {
	Name          string
	ReferenceCode string
	Category      string
	OrderBy       string
	Page          pagination.Params
}

// Repository persists inventory items and reads part usages.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateItem inserts a new inventory item.
func (r *Repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// FindItem loads an item, returning gorm.ErrRecordNotFound when absent.
func (r *Repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// LockItem loads an item holding its row lock until the transaction ends.
func (r *Repository) LockItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem writes the supplied columns.
func (r *Repository) UpdateItem(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteItem removes the item row.
func (r *Repository) DeleteItem(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// ListItems returns filtered items and, when paginating, the unpaginated total.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]models.InventoryItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if code := strings.TrimSpace(filter.ReferenceCode); code != "" {
		query = query.Where("LOWER(reference_code) = ?", strings.ToLower(code))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var items []models.InventoryItem
	if err := query.Order(filter.OrderBy).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(items))
	}
	return items, total, nil
}

// LowStock lists items whose balance is at or below threshold, lowest first.
func (r *Repository) LowStock(ctx context.Context, threshold decimal.Decimal) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity_in_stock <= ?", threshold).
		Order("quantity_in_stock ASC, name ASC").
		Find(&items).Error
	return items, err
}

// CountUsagesForItem reports how many part usages reference the item.
func (r *Repository) CountUsagesForItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PartUsage{}).Where("inventory_item_id = ?", itemID).Count(&count).Error
	return count, err
}

// SumUsagesForItem totals the live usage quantities of an item.
func (r *Repository) SumUsagesForItem(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	var usages []models.PartUsage
	if err := r.db.WithContext(ctx).Where("inventory_item_id = ?", itemID).Find(&usages).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, usage := range usages {
		total = total.Add(usage.QuantityUsed)
	}
	return total, nil
}

// FindUsage loads a usage with its item.
func (r *Repository) FindUsage(ctx context.Context, id uuid.UUID) (*models.PartUsage, error) {
	var usage models.PartUsage
	if err := r.db.WithContext(ctx).Preload("InventoryItem").Where("id = ?", id).Take(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// ListUsagesByReport returns the report's usages with their items, oldest first.
func (r *Repository) ListUsagesByReport(ctx context.Context, reportID uuid.UUID) ([]models.PartUsage, error) {
	var usages []models.PartUsage
	err := r.db.WithContext(ctx).
		Preload("InventoryItem").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&usages).Error
	return usages, err
}

// ReportExists reports whether the report row is present.
func (r *Repository) ReportExists(ctx context.Context, reportID uuid.UUID) (bool, error) {
	var report models.Report
	err := r.db.WithContext(ctx).Select("id").Where("id = ?", reportID).Take(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
