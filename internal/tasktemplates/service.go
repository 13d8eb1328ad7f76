package tasktemplates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/concurrency"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaskTemplateDTO is the task template payload returned to clients.
type TaskTemplateDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListResult is a page of task templates.
type ListResult struct {
	Items []TaskTemplateDTO
	Meta  *pagination.Meta
}

// Service manages the catalogue of priced tasks.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*TaskTemplateDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*TaskTemplateDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*TaskTemplateDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds a new template.
type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

// UpdateInput holds optional template changes plus the concurrency token.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	UpdatedAt   *string
}

// ListInput carries query string filters.
type ListInput struct {
	Name        string
	Description string
	Ordering    string
	Page        pagination.Params
}

var ordering = pagination.Ordering{
	"name":       {"name"},
	"price":      {"price"},
	"created_at": {"created_at"},
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs the task template service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task template repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*TaskTemplateDTO, error) {
	tmpl := &models.TaskTemplate{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
	}
	if err := validate(tmpl); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, db.Classify(err, "db: insert task template")
	}
	dto := FromModel(*tmpl)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*TaskTemplateDTO, error) {
	tmpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	dto := FromModel(*tmpl)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	orderBy, err := ordering.Clause(input.Ordering, "name ASC")
	if err != nil {
		return nil, err
	}
	tmpls, total, err := s.repo.List(ctx, Filter{
		Name:        input.Name,
		Description: input.Description,
		OrderBy:     orderBy,
		Page:        input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list task templates")
	}
	items := make([]TaskTemplateDTO, 0, len(tmpls))
	for _, tmpl := range tmpls {
		items = append(items, FromModel(tmpl))
	}
	return &ListResult{Items: items, Meta: input.Page.MetaFor(total)}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*TaskTemplateDTO, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		tmpl, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return mapErr(err)
		}
		if err := concurrency.CheckUpdatedAt("task template", input.UpdatedAt, tmpl.UpdatedAt); err != nil {
			return err
		}
		if input.Name != nil {
			tmpl.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			tmpl.Description = strings.TrimSpace(*input.Description)
		}
		if input.Price != nil {
			tmpl.Price = *input.Price
		}
		if err := validate(tmpl); err != nil {
			return err
		}
		return db.Classify(txRepo.Update(ctx, id, map[string]any{
			"name":        tmpl.Name,
			"description": tmpl.Description,
			"price":       tmpl.Price,
			"updated_at":  db.Now(),
		}), "db: update task template")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete refuses to drop templates still referenced by a report.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		uses, err := txRepo.CountReportUses(ctx, id)
		if err != nil {
			return db.Classify(err, "db: count template uses")
		}
		if uses > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "task template is used by existing reports").
				WithDetails(map[string]any{"task_template_id": id.String(), "reports": uses})
		}
		deleted, err := txRepo.Delete(ctx, id)
		if err != nil {
			return db.Classify(err, "db: delete task template")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "task template not found")
		}
		return nil
	})
}

func validate(tmpl *models.TaskTemplate) error {
	switch {
	case tmpl.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case tmpl.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	case !tmpl.Price.Equal(tmpl.Price.Round(2)):
		return pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
	}
	return nil
}

// FromModel converts a template row into its public payload.
func FromModel(tmpl models.TaskTemplate) TaskTemplateDTO {
	return TaskTemplateDTO{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Price:       tmpl.Price.StringFixed(2),
		CreatedAt:   tmpl.CreatedAt,
		UpdatedAt:   tmpl.UpdatedAt,
	}
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "task template not found")
	}
	return db.Classify(err, "db: load task template")
}
