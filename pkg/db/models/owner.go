package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Owner is a customer owning one or more vehicles.
type Owner struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Phone     string    `gorm:"column:phone;not null;default:''"`
	Address   string    `gorm:"column:address;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName joins first and last name.
func (o Owner) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
