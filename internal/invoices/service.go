package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SequenceName is the counter invoice numbers are drawn from.
const SequenceName = "invoice_number"

// NumberSequencer hands out monotonically increasing integers.
type NumberSequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

// InvoiceDTO is the invoice payload returned to clients.
type InvoiceDTO struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ReportID      uuid.UUID `json:"report_id"`
	IssuedAt      time.Time `json:"issued_at"`
	OwnerFullName *string   `json:"owner_full_name"`
	VehiclePlate  *string   `json:"vehicle_plate"`
	Totals
}

// ListResult is a page of invoices.
type ListResult struct {
	Items []InvoiceDTO
	Meta  *pagination.Meta
}

// ListInput carries query string filters.
type ListInput struct {
	InvoiceNumber string
	ReportID      *uuid.UUID
	Ordering      string
	Page          pagination.Params
}

var ordering = pagination.Ordering{
	"issued_at":      {"issued_at"},
	"invoice_number": {"invoice_number"},
}

// Service issues invoices for exported reports and prices them on read.
type Service interface {
	// Generate issues an invoice inside the caller's transaction.
	Generate(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*models.Invoice, error)
	GenerateForReport(ctx context.Context, reportID uuid.UUID) (*InvoiceDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	seq      NumberSequencer
	rate     decimal.Decimal
	prefix   string
	logg     *logger.Logger
}

// NewService constructs the invoice service.
func NewService(repo *Repository, dbClient *db.Client, seq NumberSequencer, cfg config.InvoiceConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if seq == nil {
		return nil, fmt.Errorf("invoice number sequencer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	prefix := strings.TrimSpace(cfg.NumberPrefix)
	if prefix == "" {
		prefix = "INV"
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		seq:      seq,
		rate:     cfg.Rate(),
		prefix:   prefix,
		logg:     logg,
	}, nil
}

func (s *service) Generate(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*models.Invoice, error) {
	txRepo := s.repo.WithTx(tx)
	exists, err := txRepo.ReportExists(ctx, reportID)
	if err != nil {
		return nil, db.Classify(err, "db: load report")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
	}

	n, err := s.seq.NextSequence(ctx, SequenceName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate invoice number")
	}
	invoice := &models.Invoice{
		InvoiceNumber: FormatNumber(s.prefix, n),
		ReportID:      reportID,
		IssuedAt:      db.Now(),
	}
	if err := txRepo.Create(ctx, invoice); err != nil {
		return nil, db.Classify(err, "db: insert invoice")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"invoice_id":     invoice.ID.String(),
		"invoice_number": invoice.InvoiceNumber,
	})
	s.logg.Info(s.logg.WithReportID(ctx, reportID.String()), "invoice.generated")
	return invoice, nil
}

func (s *service) GenerateForReport(ctx context.Context, reportID uuid.UUID) (*InvoiceDTO, error) {
	var invoiceID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		invoice, err := s.Generate(ctx, tx, reportID)
		if err != nil {
			return err
		}
		invoiceID = invoice.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, invoiceID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, db.Classify(err, "db: load invoice")
	}
	return s.toDTO(ctx, *invoice)
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	orderBy, err := ordering.Clause(input.Ordering, "issued_at ASC")
	if err != nil {
		return nil, err
	}
	invoices, total, err := s.repo.List(ctx, Filter{
		InvoiceNumber: input.InvoiceNumber,
		ReportID:      input.ReportID,
		OrderBy:       orderBy,
		Page:          input.Page,
	})
	if err != nil {
		return nil, db.Classify(err, "db: list invoices")
	}
	items := make([]InvoiceDTO, 0, len(invoices))
	for _, invoice := range invoices {
		dto, err := s.toDTO(ctx, invoice)
		if err != nil {
			return nil, err
		}
		items = append(items, *dto)
	}
	return &ListResult{Items: items, Meta: input.Page.MetaFor(total)}, nil
}

func (s *service) toDTO(ctx context.Context, invoice models.Invoice) (*InvoiceDTO, error) {
	tasks, parts, err := s.repo.ReportLines(ctx, invoice.ReportID)
	if err != nil {
		return nil, db.Classify(err, "db: load invoice lines")
	}
	dto := &InvoiceDTO{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		ReportID:      invoice.ReportID,
		IssuedAt:      invoice.IssuedAt,
		Totals:        ComputeTotals(tasks, parts, s.rate),
	}
	if invoice.Report != nil && invoice.Report.Vehicle != nil {
		plate := invoice.Report.Vehicle.LicensePlate
		dto.VehiclePlate = &plate
		if owner := invoice.Report.Vehicle.Owner; owner != nil {
			name := owner.FullName()
			dto.OwnerFullName = &name
		}
	}
	return dto, nil
}

// FormatNumber renders a sequence value as an invoice number such as INV-000042.
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// ParseNumber extracts the sequence value from an invoice number rendered by FormatNumber.
func ParseNumber(prefix, number string) (int64, bool) {
	digits, ok := strings.CutPrefix(number, prefix+"-")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
