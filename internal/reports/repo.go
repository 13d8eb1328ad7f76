package reports

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter narrows report listings.
type Filter struct {
	Status       *enums.ReportStatus
	StatusIn     []enums.ReportStatus
	VehicleBrand string
	OwnerID      *uuid.UUID
	VehicleID    *uuid.UUID
	OrderBy      string
	Page         pagination.Params
}

// Repository persists reports and their task lines.
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

func (r *Repository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

// FindByID loads the report with its vehicle, owner, tasks and parts.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Vehicle.Owner").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Tasks.TaskTemplate").
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Parts.InventoryItem").
		Where("id = ?", id).
		Take(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Lock reads the bare report row, holding a row lock on Postgres until the transaction ends.
func (r *Repository) Lock(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).Take(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) VehicleExists(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vehicle{}).Where("id = ?", vehicleID).Count(&count).Error
	return count > 0, err
}

// MissingTemplates returns the ids that do not match a task template.
func (r *Repository) MissingTemplates(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.TaskTemplate{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ReplaceTasks swaps the report's task lines for one line per template id.
func (r *Repository) ReplaceTasks(ctx context.Context, reportID uuid.UUID, templateIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Delete(&models.ReportTask{}).Error; err != nil {
		return err
	}
	if len(templateIDs) == 0 {
		return nil
	}
	tasks := make([]models.ReportTask, 0, len(templateIDs))
	for _, templateID := range templateIDs {
		tasks = append(tasks, models.ReportTask{
			ID:             uuid.New(),
			ReportID:       reportID,
			TaskTemplateID: templateID,
		})
	}
	return r.db.WithContext(ctx).Omit("TaskTemplate").Create(&tasks).Error
}

func (r *Repository) ListTasks(ctx context.Context, reportID uuid.UUID) ([]models.ReportTask, error) {
	var tasks []models.ReportTask
	err := r.db.WithContext(ctx).
		Preload("TaskTemplate").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *Repository) ListParts(ctx context.Context, reportID uuid.UUID) ([]models.PartUsage, error) {
	var parts []models.PartUsage
	err := r.db.WithContext(ctx).
		Preload("InventoryItem").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&parts).Error
	return parts, err
}

// List returns reports joined to their vehicles so filters and ordering can reach vehicle
// columns.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Report, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Joins("JOIN vehicles ON vehicles.id = reports.vehicle_id")
	if filter.Status != nil {
		query = query.Where("reports.status = ?", *filter.Status)
	}
	if len(filter.StatusIn) > 0 {
		query = query.Where("reports.status IN ?", filter.StatusIn)
	}
	if brand := strings.TrimSpace(filter.VehicleBrand); brand != "" {
		query = query.Where("vehicles.brand = ?", brand)
	}
	if filter.OwnerID != nil {
		query = query.Where("vehicles.owner_id = ?", *filter.OwnerID)
	}
	if filter.VehicleID != nil {
		query = query.Where("reports.vehicle_id = ?", *filter.VehicleID)
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var reports []models.Report
	if err := query.
		Select("reports.*").
		Preload("Vehicle.Owner").
		Order(filter.OrderBy).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(reports))
	}
	return reports, total, nil
}
