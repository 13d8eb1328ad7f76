package vehicles

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
	"gorm.io/gorm"
)

// MinYear is the oldest model year accepted.
const MinYear = 1900

// VehicleDTO is the vehicle payload returned to clients.
type VehicleDTO struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OwnerFullName string    `json:"owner_full_name"`
	Brand         string    `json:"brand"`
	Model         string    `json:"model"`
	LicensePlate  string    `json:"license_plate"`
	Year          int       `json:"year"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListResult is a page of vehicles.
type ListResult struct {
	Items []VehicleDTO
	Meta  *pagination.Meta
}

// Service manages vehicles.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*VehicleDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*VehicleDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput holds a new vehicle.
type CreateInput struct {
	OwnerID      uuid.UUID
	Brand        string
	Model        string
	LicensePlate string
	Year         int
}

// UpdateInput holds optional vehicle changes plus the concurrency token.
type UpdateInput struct {
	OwnerID      *uuid.UUID
	Brand        *string
	Model        *string
	LicensePlate *string
	Year         *int
	UpdatedAt    *string
}

// ListInput carries query string filters.
type ListInput struct {
	Brand        string
	Model        string
	Year         *int
	LicensePlate string
	OwnerID      *uuid.UUID
	Ordering     string
	Page         pagination.Params
}

var ordering = pagination.Ordering{
	"brand":         {"brand"},
	"model":         {"model"},
	"year":          {"year"},
	"license_plate": {"license_plate"},
	"created_at":    {"created_at"},
}

// StockReleaser returns the parts held by a report to inventory.
type StockReleaser interface {
	RemoveAllForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	stock    StockReleaser
	now      func() time.Time
}

// NewService constructs the vehicle service.
func NewService(repo *Repository, dbClient *db.Client, stock StockReleaser) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicle repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	return &service{repo: repo, dbClient: dbClient, stock: stock, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*VehicleDTO, error) {
	vehicle := &models.Vehicle{
		OwnerID:      input.OwnerID,
		Brand:        strings.TrimSpace(input.Brand),
		Model:        strings.TrimSpace(input.Model),
		LicensePlate: normalizePlate(input.LicensePlate),
		Year:         input.Year,
	}
	if err := s.validate(vehicle); err != nil {
		return nil, err
	}
	if err := s.ensureOwner(ctx, s.repo, vehicle.OwnerID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, mapWriteErr(err, vehicle.LicensePlate, "db: insert vehicle")
	}
	return s.Get(ctx, vehicle.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*VehicleDTO, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	dto := toDTO(*vehicle)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	orderBy, err := ordering.Clause(input.Ordering, "brand ASC, model ASC")
	if err != nil {
		return nil, err
	}
	vehicles, total, err := s.repo.List(ctx, Filter{
		Brand:        input.Brand,
		Model:        input.Model,
		Year:         input.Year,
		LicensePlate: input.LicensePlate,
		OwnerID:      input.OwnerID,
		OrderBy:      orderBy,
		Page:         input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list vehicles")
	}
	items := make([]VehicleDTO, 0, len(vehicles))
	for _, vehicle := range vehicles {
		items = append(items, toDTO(vehicle))
	}
	return &ListResult{Items: items, Meta: input.Page.MetaFor(total)}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*VehicleDTO, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		vehicle, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return mapErr(err)
		}
		if err := concurrency.CheckUpdatedAt("vehicle", input.UpdatedAt, vehicle.UpdatedAt); err != nil {
			return err
		}
		if input.OwnerID != nil && *input.OwnerID != vehicle.OwnerID {
			if err := s.ensureOwner(ctx, txRepo, *input.OwnerID); err != nil {
				return err
			}
			vehicle.OwnerID = *input.OwnerID
		}
		if input.Brand != nil {
			vehicle.Brand = strings.TrimSpace(*input.Brand)
		}
		if input.Model != nil {
			vehicle.Model = strings.TrimSpace(*input.Model)
		}
		if input.LicensePlate != nil {
			vehicle.LicensePlate = normalizePlate(*input.LicensePlate)
		}
		if input.Year != nil {
			vehicle.Year = *input.Year
		}
		if err := s.validate(vehicle); err != nil {
			return err
		}
		if err := txRepo.Update(ctx, id, map[string]any{
			"owner_id":      vehicle.OwnerID,
			"brand":         vehicle.Brand,
			"model":         vehicle.Model,
			"license_plate": vehicle.LicensePlate,
			"year":          vehicle.Year,
			"updated_at":    db.Now(),
		}); err != nil {
			return mapWriteErr(err, vehicle.LicensePlate, "db: update vehicle")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the vehicle and its reports, returning consumed parts to stock first.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		found, err := txRepo.Lock(ctx, id)
		if err != nil {
			return db.Classify(err, "db: lock vehicle")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		reportIDs, err := txRepo.ReportIDs(ctx, id)
		if err != nil {
			return db.Classify(err, "db: list vehicle reports")
		}
		for _, reportID := range reportIDs {
			if err := s.stock.RemoveAllForReport(ctx, tx, reportID); err != nil {
				return err
			}
		}
		deleted, err := txRepo.Delete(ctx, id)
		if err != nil {
			return db.Classify(err, "db: delete vehicle")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil
	})
}

func (s *service) validate(vehicle *models.Vehicle) error {
	maxYear := s.now().Year()
	switch {
	case vehicle.OwnerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "owner_id is required")
	case vehicle.Brand == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	case vehicle.Model == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "model is required")
	case vehicle.LicensePlate == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "license_plate is required")
	case vehicle.Year < MinYear || vehicle.Year > maxYear:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("year must be between %d and %d", MinYear, maxYear))
	}
	return nil
}

func (s *service) ensureOwner(ctx context.Context, repo *Repository, ownerID uuid.UUID) error {
	exists, err := repo.OwnerExists(ctx, ownerID)
	if err != nil {
		return db.Classify(err, "db: load owner")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner does not exist").
			WithDetails(map[string]any{"owner_id": ownerID.String()})
	}
	return nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func toDTO(vehicle models.Vehicle) VehicleDTO {
	dto := VehicleDTO{
		ID:           vehicle.ID,
		OwnerID:      vehicle.OwnerID,
		Brand:        vehicle.Brand,
		Model:        vehicle.Model,
		LicensePlate: vehicle.LicensePlate,
		Year:         vehicle.Year,
		CreatedAt:    vehicle.CreatedAt,
		UpdatedAt:    vehicle.UpdatedAt,
	}
	if vehicle.Owner != nil {
		dto.OwnerFullName = vehicle.Owner.FullName()
	}
	return dto
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
	}
	return db.Classify(err, "db: load vehicle")
}

func mapWriteErr(err error, plate, message string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "a vehicle with this license_plate already exists").
			WithDetails(map[string]any{"license_plate": plate})
	}
	return db.Classify(err, message)
}
