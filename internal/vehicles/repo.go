package vehicles

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows vehicle listings.
type Filter struct {
	Brand        string
	Model        string
	Year         *int
	LicensePlate string
	OwnerID      *uuid.UUID
	OrderBy      string
	Page         pagination.Params
}

// Repository persists vehicles.
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

func (r *Repository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Owner").Create(vehicle).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).Take(&vehicle).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *Repository) OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Owner{}).Where("id = ?", ownerID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Vehicle{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// Lock holds the vehicle row until the transaction ends, so no report can be filed against
// it meanwhile. It reports false when the vehicle does not exist.
func (r *Repository) Lock(ctx context.Context, id uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	err := db.ForUpdate(r.db.WithContext(ctx)).Model(&models.Vehicle{}).Where("id = ?", id).Pluck("id", &ids).Error
	return len(ids) > 0, err
}

// ReportIDs locks and lists the reports filed against the vehicle. Parts cannot be added to
// a locked report.
func (r *Repository) ReportIDs(ctx context.Context, vehicleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.ForUpdate(r.db.WithContext(ctx)).Model(&models.Report{}).Where("vehicle_id = ?", vehicleID).Pluck("id", &ids).Error
	return ids, err
}

// List returns filtered vehicles with their owners.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Vehicle, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Vehicle{})
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(brand))
	}
	if model := strings.TrimSpace(filter.Model); model != "" {
		query = query.Where("LOWER(model) = ?", strings.ToLower(model))
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if plate := strings.TrimSpace(filter.LicensePlate); plate != "" {
		query = query.Where("UPPER(license_plate) = ?", strings.ToUpper(plate))
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var vehicles []models.Vehicle
	if err := query.Preload("Owner").Order(filter.OrderBy).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(vehicles))
	}
	return vehicles, total, nil
}
