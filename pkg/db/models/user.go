package models

import (
	"time"

	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents a member of the shop staff able to sign in.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string         `gorm:"column:username;not null;uniqueIndex"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name;not null;default:''"`
	LastName     string         `gorm:"column:last_name;not null;default:''"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:staff"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	Profile      *UserProfile   `gorm:"foreignKey:UserID"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// UserProfile carries the optional public details of a user.
type UserProfile struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Bio       string    `gorm:"column:bio;not null;default:''"`
	ImageURL  *string   `gorm:"column:image_url"`
	Verified  bool      `gorm:"column:verified;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
