package users

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists staff accounts and their profiles.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Create inserts the user and an empty profile. Run it inside a transaction.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.scoped(ctx).Omit("Profile").Create(user).Error; err != nil {
		return nil, err
	}
	user.Profile = &models.UserProfile{UserID: user.ID}
	if err := r.scoped(ctx).Create(user.Profile).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an already normalised (lowercase) address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.scoped(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.scoped(ctx).Preload("Profile").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken compares case-insensitively.
func (r *Repository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) exists(ctx context.Context, cond string, value string) (bool, error) {
	var count int64
	err := r.scoped(ctx).Model(&models.User{}).Where(cond, value).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setColumn(ctx, id, "last_login_at", at)
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.setColumn(ctx, id, "password_hash", hash)
}

// setColumn skips hooks and updated_at; these writes are bookkeeping, not edits.
func (r *Repository) setColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	return r.scoped(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value).Error
}

// UpdateProfile writes only the given profile columns.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	return r.scoped(ctx).Model(&models.UserProfile{}).Where("user_id = ?", userID).Updates(fields).Error
}
