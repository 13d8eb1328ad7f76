package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is a stocked part. QuantityInStock is only moved by the usage ledger and by
// administrative stock corrections.
type InventoryItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string          `gorm:"column:name;not null"`
	ReferenceCode   string          `gorm:"column:reference_code;not null;uniqueIndex"`
	Category        string          `gorm:"column:category;not null;default:''"`
	QuantityInStock decimal.Decimal `gorm:"column:quantity_in_stock;type:numeric(10,2);not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
