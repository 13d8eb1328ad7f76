package tasktemplates

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows task template listings.
type Filter struct {
	Name        string
	Description string
	OrderBy     string
	Page        pagination.Params
}

// Repository persists task templates.
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

func (r *Repository) Create(ctx context.Context, tmpl *models.TaskTemplate) error {
	if tmpl.ID == uuid.Nil {
		tmpl.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tmpl).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TaskTemplate, error) {
	var tmpl models.TaskTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&tmpl).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// FindByIDs loads the templates with the given ids in no particular order.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.TaskTemplate, error) {
	var tmpls []models.TaskTemplate
	if len(ids) == 0 {
		return tmpls, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tmpls).Error
	return tmpls, err
}

// FindByName returns the first template with an exact name match.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.TaskTemplate, error) {
	var tmpl models.TaskTemplate
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("created_at ASC").Take(&tmpl).Error; err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.TaskTemplate{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.TaskTemplate{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// CountReportUses counts report tasks referencing the template.
func (r *Repository) CountReportUses(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReportTask{}).Where("task_template_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]models.TaskTemplate, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TaskTemplate{})
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if desc := strings.TrimSpace(filter.Description); desc != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(desc)+"%")
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var tmpls []models.TaskTemplate
	if err := query.Order(filter.OrderBy).Find(&tmpls).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(tmpls))
	}
	return tmpls, total, nil
}
