package owners

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/concurrency"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerDTO is the owner payload returned to clients.
type OwnerDTO struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	VehicleCount int64     `json:"vehicle_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListResult is a page of owners.
type ListResult struct {
	Items []OwnerDTO
	Meta  *pagination.Meta
}

// Service manages vehicle owners.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OwnerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OwnerDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*OwnerDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds a new owner.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
}

// UpdateInput holds optional owner changes plus the concurrency token.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
	UpdatedAt *string
}

// ListInput carries query string filters.
type ListInput struct {
	Email    string
	FullName string
	Ordering string
	Page     pagination.Params
}

var ordering = pagination.Ordering{
	"full_name":  {"first_name", "last_name"},
	"first_name": {"first_name"},
	"last_name":  {"last_name"},
	"email":      {"email"},
	"created_at": {"created_at"},
}

// StockReleaser returns the parts held by a report to inventory.
type StockReleaser interface {
	RemoveAllForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	stock    StockReleaser
}

// NewService constructs the owner service.
func NewService(repo *Repository, dbClient *db.Client, stock StockReleaser) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("owner repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	return &service{repo: repo, dbClient: dbClient, stock: stock}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OwnerDTO, error) {
	owner := &models.Owner{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Address:   strings.TrimSpace(input.Address),
	}
	if err := validate(owner); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, owner); err != nil {
		return nil, db.Classify(err, "db: insert owner")
	}
	dto := toDTO(*owner, 0)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OwnerDTO, error) {
	owner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	counts, err := s.repo.CountVehicles(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, db.Classify(err, "db: count vehicles")
	}
	dto := toDTO(*owner, counts[id])
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	orderBy, err := ordering.Clause(input.Ordering, "first_name ASC, last_name ASC")
	if err != nil {
		return nil, err
	}
	owners, total, err := s.repo.List(ctx, Filter{
		Email:    input.Email,
		FullName: input.FullName,
		OrderBy:  orderBy,
		Page:     input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list owners")
	}
	ids := make([]uuid.UUID, 0, len(owners))
	for _, owner := range owners {
		ids = append(ids, owner.ID)
	}
	counts, err := s.repo.CountVehicles(ctx, ids)
	if err != nil {
		return nil, db.Classify(err, "db: count vehicles")
	}
	items := make([]OwnerDTO, 0, len(owners))
	for _, owner := range owners {
		items = append(items, toDTO(owner, counts[owner.ID]))
	}
	return &ListResult{Items: items, Meta: input.Page.MetaFor(total)}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*OwnerDTO, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		owner, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return mapErr(err)
		}
		if err := concurrency.CheckUpdatedAt("owner", input.UpdatedAt, owner.UpdatedAt); err != nil {
			return err
		}
		applyString(&owner.FirstName, input.FirstName)
		applyString(&owner.LastName, input.LastName)
		applyString(&owner.Email, input.Email)
		applyString(&owner.Phone, input.Phone)
		applyString(&owner.Address, input.Address)
		if err := validate(owner); err != nil {
			return err
		}
		return db.Classify(txRepo.Update(ctx, id, map[string]any{
			"first_name": owner.FirstName,
			"last_name":  owner.LastName,
			"email":      owner.Email,
			"phone":      owner.Phone,
			"address":    owner.Address,
			"updated_at": db.Now(),
		}), "db: update owner")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the owner with their vehicles and reports. Parts consumed by those reports
// are returned to stock before the cascade drops the usage rows.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		found, err := txRepo.Lock(ctx, id)
		if err != nil {
			return db.Classify(err, "db: lock owner")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
		}
		reportIDs, err := txRepo.ReportIDs(ctx, id)
		if err != nil {
			return db.Classify(err, "db: list owner reports")
		}
		for _, reportID := range reportIDs {
			if err := s.stock.RemoveAllForReport(ctx, tx, reportID); err != nil {
				return err
			}
		}
		deleted, err := txRepo.Delete(ctx, id)
		if err != nil {
			return db.Classify(err, "db: delete owner")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
		}
		return nil
	})
}

func validate(owner *models.Owner) error {
	switch {
	case owner.FirstName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	case owner.LastName == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	case owner.Email == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(owner.Email); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	return nil
}

func applyString(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func toDTO(owner models.Owner, vehicles int64) OwnerDTO {
	return OwnerDTO{
		ID:           owner.ID,
		FirstName:    owner.FirstName,
		LastName:     owner.LastName,
		FullName:     owner.FullName(),
		Email:        owner.Email,
		Phone:        owner.Phone,
		Address:      owner.Address,
		VehicleCount: vehicles,
		CreatedAt:    owner.CreatedAt,
		UpdatedAt:    owner.UpdatedAt,
	}
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
	}
	return db.Classify(err, "db: load owner")
}
