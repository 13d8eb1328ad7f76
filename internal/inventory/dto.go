package inventory

import (
	"time"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the inventory item payload returned to clients.
type ItemDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ReferenceCode   string    `json:"reference_code"`
	Category        string    `json:"category"`
	QuantityInStock string    `json:"quantity_in_stock"`
	UnitPrice       string    `json:"unit_price"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemListResult is a page of items.
type ItemListResult struct {
	Items []ItemDTO
	Meta  *pagination.Meta
}

// UsageRevision changes a part line. Nil fields keep the stored value.
type UsageRevision struct {
	InventoryItemID *uuid.UUID
	QuantityUsed    *decimal.Decimal
}

// PartUsageDTO describes a part consumed by a report.
type PartUsageDTO struct {
	ID                uuid.UUID `json:"id"`
	ReportID          uuid.UUID `json:"report_id"`
	InventoryItemID   uuid.UUID `json:"inventory_item_id"`
	InventoryItemName string    `json:"inventory_item_name,omitempty"`
	ReferenceCode     string    `json:"reference_code,omitempty"`
	QuantityUsed      string    `json:"quantity_used"`
	UnitPrice         string    `json:"unit_price,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ItemFromModel maps a model to its DTO.
func ItemFromModel(item models.InventoryItem) ItemDTO {
	return ItemDTO{
		ID:              item.ID,
		Name:            item.Name,
		ReferenceCode:   item.ReferenceCode,
		Category:        item.Category,
		QuantityInStock: item.QuantityInStock.StringFixed(2),
		UnitPrice:       item.UnitPrice.StringFixed(2),
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// UsageFromModel maps a usage (and its preloaded item, if any) to its DTO.
func UsageFromModel(usage models.PartUsage) PartUsageDTO {
	dto := PartUsageDTO{
		ID:              usage.ID,
		ReportID:        usage.ReportID,
		InventoryItemID: usage.InventoryItemID,
		QuantityUsed:    usage.QuantityUsed.StringFixed(2),
		CreatedAt:       usage.CreatedAt,
		UpdatedAt:       usage.UpdatedAt,
	}
	if usage.InventoryItem != nil {
		dto.InventoryItemName = usage.InventoryItem.Name
		dto.ReferenceCode = usage.InventoryItem.ReferenceCode
		dto.UnitPrice = usage.InventoryItem.UnitPrice.StringFixed(2)
	}
	return dto
}

// UsagesFromModels maps a slice of usages.
func UsagesFromModels(usages []models.PartUsage) []PartUsageDTO {
	out := make([]PartUsageDTO, 0, len(usages))
	for _, usage := range usages {
		out = append(out, UsageFromModel(usage))
	}
	return out
}
