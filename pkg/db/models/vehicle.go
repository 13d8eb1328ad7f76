package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle belongs to an owner and is the subject of repair reports.
type Vehicle struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Owner        *Owner    `gorm:"foreignKey:OwnerID"`
	Brand        string    `gorm:"column:brand;not null"`
	Model        string    `gorm:"column:model;not null"`
	LicensePlate string    `gorm:"column:license_plate;not null;uniqueIndex"`
	Year         int       `gorm:"column:year;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
