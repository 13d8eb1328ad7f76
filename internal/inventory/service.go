package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/concurrency"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes inventory item management and standalone part usage operations.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error)
	GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context, threshold *decimal.Decimal) ([]ItemDTO, error)

	ListUsages(ctx context.Context, reportID uuid.UUID) ([]PartUsageDTO, error)
	GetUsage(ctx context.Context, usageID uuid.UUID) (*PartUsageDTO, error)
	RecordUsage(ctx context.Context, reportID uuid.UUID, input UsageInput) (*PartUsageDTO, error)
	ReviseUsage(ctx context.Context, usageID uuid.UUID, rev UsageRevision) (*PartUsageDTO, error)
	RemoveUsage(ctx context.Context, usageID uuid.UUID) error
}

// CreateItemInput holds the validated payload to stock a new item.
type CreateItemInput struct {
	Name            string
	ReferenceCode   string
	Category        string
	QuantityInStock decimal.Decimal
	UnitPrice       decimal.Decimal
}

// UpdateItemInput holds optional item changes. QuantityInStock is an administrative stock
// correction and bypasses the usage ledger.
type UpdateItemInput struct {
	Name            *string
	ReferenceCode   *string
	Category        *string
	QuantityInStock *decimal.Decimal
	UnitPrice       *decimal.Decimal
	UpdatedAt       *string
}

// ListItemsInput carries list filters straight from the query string.
type ListItemsInput struct {
	Name          string
	ReferenceCode string
	Category      string
	Ordering      string
	Page          pagination.Params
}

var itemOrdering = pagination.Ordering{
	"name":              {"name"},
	"reference_code":    {"reference_code"},
	"category":          {"category"},
	"quantity_in_stock": {"quantity_in_stock"},
	"unit_price":        {"unit_price"},
	"created_at":        {"created_at"},
	"updated_at":        {"updated_at"},
}

type service struct {
	repo              *Repository
	dbClient          *db.Client
	ledger            *Ledger
	lowStockThreshold decimal.Decimal
}

// NewService constructs the inventory service.
func NewService(repo *Repository, dbClient *db.Client, ledger *Ledger, lowStockThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if lowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	return &service{
		repo:              repo,
		dbClient:          dbClient,
		ledger:            ledger,
		lowStockThreshold: decimal.NewFromInt(int64(lowStockThreshold)),
	}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*ItemDTO, error) {
	item := &models.InventoryItem{
		Name:            strings.TrimSpace(input.Name),
		ReferenceCode:   strings.TrimSpace(input.ReferenceCode),
		Category:        strings.TrimSpace(input.Category),
		QuantityInStock: input.QuantityInStock,
		UnitPrice:       input.UnitPrice,
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateReference(item.ReferenceCode)
		}
		return nil, db.Classify(err, "db: insert inventory item")
	}
	dto := ItemFromModel(*item)
	return &dto, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindItem(ctx, id)
	if err != nil {
		return nil, mapItemErr(err, id)
	}
	dto := ItemFromModel(*item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error) {
	orderBy, err := itemOrdering.Clause(input.Ordering, "name ASC")
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.ListItems(ctx, ItemFilter{
		Name:          input.Name,
		ReferenceCode: input.ReferenceCode,
		Category:      input.Category,
		OrderBy:       orderBy,
		Page:          input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list inventory items")
	}
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ItemFromModel(item))
	}
	return &ItemListResult{Items: out, Meta: input.Page.MetaFor(total)}, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	var updated *models.InventoryItem
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		item, err := txRepo.LockItem(ctx, id)
		if err != nil {
			return mapItemErr(err, id)
		}
		if err := concurrency.CheckUpdatedAt("inventory item", input.UpdatedAt, item.UpdatedAt); err != nil {
			return err
		}

		if input.Name != nil {
			item.Name = strings.TrimSpace(*input.Name)
		}
		if input.ReferenceCode != nil {
			item.ReferenceCode = strings.TrimSpace(*input.ReferenceCode)
		}
		if input.Category != nil {
			item.Category = strings.TrimSpace(*input.Category)
		}
		if input.QuantityInStock != nil {
			item.QuantityInStock = *input.QuantityInStock
		}
		if input.UnitPrice != nil {
			item.UnitPrice = *input.UnitPrice
		}
		if err := validateItem(item); err != nil {
			return err
		}

		item.UpdatedAt = db.Now()
		if err := txRepo.UpdateItem(ctx, id, map[string]any{
			"name":              item.Name,
			"reference_code":    item.ReferenceCode,
			"category":          item.Category,
			"quantity_in_stock": item.QuantityInStock,
			"unit_price":        item.UnitPrice,
			"updated_at":        item.UpdatedAt,
		}); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateReference(item.ReferenceCode)
			}
			return db.Classify(err, "db: update inventory item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := ItemFromModel(*updated)
	return &dto, nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.LockItem(ctx, id); err != nil {
			return mapItemErr(err, id)
		}
		inUse, err := txRepo.CountUsagesForItem(ctx, id)
		if err != nil {
			return db.Classify(err, "db: count part usages")
		}
		if inUse > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "Cannot delete an inventory item that is used by repair reports.").
				WithDetails(map[string]any{"part_usages": inUse})
		}
		if _, err := txRepo.DeleteItem(ctx, id); err != nil {
			return db.Classify(err, "db: delete inventory item")
		}
		return nil
	})
}

func (s *service) LowStock(ctx context.Context, threshold *decimal.Decimal) ([]ItemDTO, error) {
	limit := s.lowStockThreshold
	if threshold != nil {
		if threshold.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be non-negative")
		}
		limit = *threshold
	}
	items, err := s.repo.LowStock(ctx, limit)
	if err != nil {
		return nil, db.Classify(err, "db: list low stock items")
	}
	out := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ItemFromModel(item))
	}
	return out, nil
}

func (s *service) ListUsages(ctx context.Context, reportID uuid.UUID) ([]PartUsageDTO, error) {
	if err := s.ensureReport(ctx, s.repo, reportID); err != nil {
		return nil, err
	}
	usages, err := s.repo.ListUsagesByReport(ctx, reportID)
	if err != nil {
		return nil, db.Classify(err, "db: list part usages")
	}
	return UsagesFromModels(usages), nil
}

func (s *service) GetUsage(ctx context.Context, usageID uuid.UUID) (*PartUsageDTO, error) {
	usage, err := s.repo.FindUsage(ctx, usageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usageNotFound(usageID)
		}
		return nil, db.Classify(err, "db: load part usage")
	}
	dto := UsageFromModel(*usage)
	return &dto, nil
}

func (s *service) RecordUsage(ctx context.Context, reportID uuid.UUID, input UsageInput) (*PartUsageDTO, error) {
	var usageID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ensureReport(ctx, s.repo.WithTx(tx), reportID); err != nil {
			return err
		}
		usage, err := s.ledger.RecordUsage(ctx, tx, reportID, input.InventoryItemID, input.QuantityUsed)
		if err != nil {
			return err
		}
		usageID = usage.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUsage(ctx, usageID)
}

// ReviseUsage fills omitted fields from the locked usage row, so a concurrent revise cannot
// be overwritten with stale values.
func (s *service) ReviseUsage(ctx context.Context, usageID uuid.UUID, rev UsageRevision) (*PartUsageDTO, error) {
	if rev.InventoryItemID == nil && rev.QuantityUsed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory_item_id or quantity_used is required")
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := lockUsage(ctx, tx, usageID)
		if err != nil {
			return err
		}
		itemID, qty := current.InventoryItemID, current.QuantityUsed
		if rev.InventoryItemID != nil {
			itemID = *rev.InventoryItemID
		}
		if rev.QuantityUsed != nil {
			qty = *rev.QuantityUsed
		}
		_, err = s.ledger.ReviseUsage(ctx, tx, usageID, itemID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetUsage(ctx, usageID)
}

func (s *service) RemoveUsage(ctx context.Context, usageID uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledger.RemoveUsage(ctx, tx, usageID)
	})
}

func (s *service) ensureReport(ctx context.Context, repo *Repository, reportID uuid.UUID) error {
	exists, err := repo.ReportExists(ctx, reportID)
	if err != nil {
		return db.Classify(err, "db: load report")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
	}
	return nil
}

func validateItem(item *models.InventoryItem) error {
	switch {
	case item.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case item.ReferenceCode == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "reference_code is required")
	case item.QuantityInStock.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity_in_stock cannot be negative")
	case !item.QuantityInStock.Equal(item.QuantityInStock.Round(2)):
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity_in_stock supports at most two decimal places")
	case item.UnitPrice.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "unit_price cannot be negative")
	}
	return nil
}

func duplicateReference(code string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "an inventory item with this reference_code already exists").
		WithDetails(map[string]any{"reference_code": code})
}

func mapItemErr(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return itemNotFound(id)
	}
	return db.Classify(err, "db: load inventory item")
}
