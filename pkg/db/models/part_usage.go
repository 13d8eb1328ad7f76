package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartUsage records that a report consumed QuantityUsed of an inventory item.
type PartUsage struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReportID        uuid.UUID       `gorm:"column:report_id;type:uuid;not null"`
	InventoryItemID uuid.UUID       `gorm:"column:inventory_item_id;type:uuid;not null"`
	InventoryItem   *InventoryItem  `gorm:"foreignKey:InventoryItemID"`
	QuantityUsed    decimal.Decimal `gorm:"column:quantity_used;type:numeric(10,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
