package owners

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows owner listings.
type Filter struct {
	Email    string
	FullName string
	OrderBy  string
	Page     pagination.Params
}

// Repository persists owners.
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

func (r *Repository) Create(ctx context.Context, owner *models.Owner) error {
	if owner.ID == uuid.Nil {
		owner.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(owner).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Owner, error) {
	var owner models.Owner
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&owner).Error; err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Owner{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Owner{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// Lock holds the owner row and every one of their vehicles until the transaction ends, so
// no vehicle or report can be attached meanwhile. It reports false when the owner does not
// exist.
func (r *Repository) Lock(ctx context.Context, id uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	if err := db.ForUpdate(r.db.WithContext(ctx)).Model(&models.Owner{}).Where("id = ?", id).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	var vehicleIDs []uuid.UUID
	err := db.ForUpdate(r.db.WithContext(ctx)).Model(&models.Vehicle{}).Where("owner_id = ?", id).Pluck("id", &vehicleIDs).Error
	return true, err
}

// ReportIDs locks and lists the reports filed against any of the owner's vehicles.
func (r *Repository) ReportIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.ForUpdate(r.db.WithContext(ctx)).Model(&models.Report{}).
		Joins("JOIN vehicles ON vehicles.id = reports.vehicle_id").
		Where("vehicles.owner_id = ?", ownerID).
		Pluck("reports.id", &ids).Error
	return ids, err
}

// CountVehicles returns the vehicle count per owner.
func (r *Repository) CountVehicles(ctx context.Context, ownerIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		OwnerID uuid.UUID
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Vehicle{}).
		Select("owner_id, COUNT(*) AS total").
		Where("owner_id IN ?", ownerIDs).
		Group("owner_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.OwnerID] = row.Total
	}
	return counts, nil
}

// List returns filtered owners and the total matching rows.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Owner, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Owner{})
	if email := strings.TrimSpace(filter.Email); email != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}
	if name := strings.TrimSpace(filter.FullName); name != "" {
		for _, term := range strings.Fields(strings.ToLower(name)) {
			like := "%" + term + "%"
			query = query.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)", like, like)
		}
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var owners []models.Owner
	if err := query.Order(filter.OrderBy).Find(&owners).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(owners))
	}
	return owners, total, nil
}
