package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/pkg/concurrency"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsageLedger is the part of the inventory ledger reports drive.
type UsageLedger interface {
	RecordUsage(ctx context.Context, tx *gorm.DB, reportID, itemID uuid.UUID, qty decimal.Decimal) (*models.PartUsage, error)
	ReplaceForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, inputs []inventory.UsageInput) ([]models.PartUsage, error)
	RemoveAllForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) error
}

// Invoicer issues an invoice inside the caller's transaction.
type Invoicer interface {
	Generate(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*models.Invoice, error)
}

// Service manages repair reports.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ReportDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ReportDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ReportDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, id uuid.UUID) ([]TaskDTO, error)
	ListParts(ctx context.Context, id uuid.UUID) ([]inventory.PartUsageDTO, error)
}

// CreateInput holds a new report with its initial tasks and parts.
type CreateInput struct {
	VehicleID       uuid.UUID
	UserID          *uuid.UUID
	Status          string
	Remarks         string
	TaskTemplateIDs []uuid.UUID
	Parts           []inventory.UsageInput
}

// UpdateInput holds optional report changes. A non-nil TaskTemplateIDs or Parts replaces the
// whole collection.
type UpdateInput struct {
	VehicleID       *uuid.UUID
	Status          *string
	Remarks         *string
	TaskTemplateIDs *[]uuid.UUID
	Parts           *[]inventory.UsageInput
	UpdatedAt       *string
}

// ListInput carries query string filters.
type ListInput struct {
	Status       string
	StatusIn     string
	VehicleBrand string
	OwnerID      *uuid.UUID
	VehicleID    *uuid.UUID
	Ordering     string
	Page         pagination.Params
}

const defaultOrdering = "vehicles.brand ASC, vehicles.model ASC"

var ordering = pagination.Ordering{
	"vehicle__brand": {"vehicles.brand"},
	"vehicle__model": {"vehicles.model"},
	"created_at":     {"reports.created_at"},
	"updated_at":     {"reports.updated_at"},
	"status":         {"reports.status"},
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	ledger   UsageLedger
	invoicer Invoicer
	logg     *logger.Logger
}

// NewService constructs the report service.
func NewService(repo *Repository, dbClient *db.Client, ledger UsageLedger, invoicer Invoicer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("usage ledger required")
	}
	if invoicer == nil {
		return nil, fmt.Errorf("invoicer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, dbClient: dbClient, ledger: ledger, invoicer: invoicer, logg: logg}, nil
}

// Create inserts the report, its task lines and its parts in one transaction. A part that
// cannot be covered by stock rolls the whole report back.
func (s *service) Create(ctx context.Context, input CreateInput) (*ReportDTO, error) {
	status := enums.ReportStatusPending
	if raw := strings.TrimSpace(input.Status); raw != "" {
		parsed, err := parseStatus(raw)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle is required")
	}

	report := &models.Report{
		VehicleID: input.VehicleID,
		UserID:    input.UserID,
		Status:    status,
		Remarks:   strings.TrimSpace(input.Remarks),
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := s.ensureVehicle(ctx, txRepo, report.VehicleID); err != nil {
			return err
		}
		if err := s.ensureTemplates(ctx, txRepo, input.TaskTemplateIDs); err != nil {
			return err
		}
		if err := txRepo.Create(ctx, report); err != nil {
			return db.Classify(err, "db: insert report")
		}
		if err := txRepo.ReplaceTasks(ctx, report.ID, input.TaskTemplateIDs); err != nil {
			return db.Classify(err, "db: insert report tasks")
		}
		for _, part := range input.Parts {
			if _, err := s.ledger.RecordUsage(ctx, tx, report.ID, part.InventoryItemID, part.QuantityUsed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, report.ID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReportDTO, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	dto := fromModel(*report)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	orderBy, err := ordering.Clause(input.Ordering, defaultOrdering)
	if err != nil {
		return nil, err
	}
	status, statusIn, err := statusFilter(input.Status, input.StatusIn)
	if err != nil {
		return nil, err
	}
	reports, total, err := s.repo.List(ctx, Filter{
		Status:       status,
		StatusIn:     statusIn,
		VehicleBrand: input.VehicleBrand,
		OwnerID:      input.OwnerID,
		VehicleID:    input.VehicleID,
		OrderBy:      orderBy,
		Page:         input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list reports")
	}
	items := make([]ReportDTO, 0, len(reports))
	for _, report := range reports {
		items = append(items, fromModel(report))
	}
	return &ListResult{Items: items, Meta: input.Page.MetaFor(total)}, nil
}

// Update applies a partial change under the optimistic lock. The first transition into
// exported issues an invoice in the same transaction.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ReportDTO, error) {
	exported := false
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		report, err := txRepo.Lock(ctx, id)
		if err != nil {
			return mapErr(err)
		}
		if err := concurrency.CheckUpdatedAt("report", input.UpdatedAt, report.UpdatedAt); err != nil {
			return err
		}
		previous := report.Status

		fields := map[string]any{"updated_at": db.Now()}
		if input.VehicleID != nil && *input.VehicleID != report.VehicleID {
			if err := s.ensureVehicle(ctx, txRepo, *input.VehicleID); err != nil {
				return err
			}
			fields["vehicle_id"] = *input.VehicleID
		}
		if input.Status != nil {
			status, err := parseStatus(*input.Status)
			if err != nil {
				return err
			}
			fields["status"] = status
			report.Status = status
		}
		if input.Remarks != nil {
			fields["remarks"] = strings.TrimSpace(*input.Remarks)
		}
		if err := txRepo.Update(ctx, id, fields); err != nil {
			return db.Classify(err, "db: update report")
		}

		if input.TaskTemplateIDs != nil {
			if err := s.ensureTemplates(ctx, txRepo, *input.TaskTemplateIDs); err != nil {
				return err
			}
			if err := txRepo.ReplaceTasks(ctx, id, *input.TaskTemplateIDs); err != nil {
				return db.Classify(err, "db: replace report tasks")
			}
		}
		if input.Parts != nil {
			if _, err := s.ledger.ReplaceForReport(ctx, tx, id, *input.Parts); err != nil {
				return err
			}
		}

		if previous != enums.ReportStatusExported && report.Status == enums.ReportStatusExported {
			if _, err := s.invoicer.Generate(ctx, tx, id); err != nil {
				return err
			}
			exported = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if exported {
		s.logg.Info(s.logg.WithReportID(ctx, id.String()), "report.exported")
	}
	return s.Get(ctx, id)
}

// Delete returns every part of the report to stock and then drops the report.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Lock(ctx, id); err != nil {
			return mapErr(err)
		}
		if err := s.ledger.RemoveAllForReport(ctx, tx, id); err != nil {
			return err
		}
		if _, err := txRepo.Delete(ctx, id); err != nil {
			return db.Classify(err, "db: delete report")
		}
		return nil
	})
}

func (s *service) ListTasks(ctx context.Context, id uuid.UUID) ([]TaskDTO, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "db: list report tasks")
	}
	return tasksFromModels(tasks), nil
}

func (s *service) ListParts(ctx context.Context, id uuid.UUID) ([]inventory.PartUsageDTO, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	parts, err := s.repo.ListParts(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "db: list report parts")
	}
	return inventory.UsagesFromModels(parts), nil
}

func (s *service) ensureExists(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return db.Classify(err, "db: load report")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
	}
	return nil
}

func (s *service) ensureVehicle(ctx context.Context, repo *Repository, vehicleID uuid.UUID) error {
	exists, err := repo.VehicleExists(ctx, vehicleID)
	if err != nil {
		return db.Classify(err, "db: load vehicle")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeValidation, "vehicle does not exist").
			WithDetails(map[string]any{"vehicle_id": vehicleID.String()})
	}
	return nil
}

func (s *service) ensureTemplates(ctx context.Context, repo *Repository, ids []uuid.UUID) error {
	missing, err := repo.MissingTemplates(ctx, ids)
	if err != nil {
		return db.Classify(err, "db: load task templates")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown task template").
			WithDetails(map[string]any{"task_template_ids": missing})
	}
	return nil
}

func parseStatus(raw string) (enums.ReportStatus, error) {
	status, err := enums.ParseReportStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	return status, nil
}

// statusFilter parses the exact and comma separated status filters. Both apply when given.
func statusFilter(exact, in string) (*enums.ReportStatus, []enums.ReportStatus, error) {
	var single *enums.ReportStatus
	if strings.TrimSpace(exact) != "" {
		status, err := parseStatus(exact)
		if err != nil {
			return nil, nil, err
		}
		single = &status
	}
	var set []enums.ReportStatus
	for _, value := range strings.Split(in, ",") {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := parseStatus(value)
		if err != nil {
			return nil, nil, err
		}
		set = append(set, status)
	}
	return single, set, nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
	}
	return db.Classify(err, "db: load report")
}
