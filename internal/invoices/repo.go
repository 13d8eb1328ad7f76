package invoices

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter narrows invoice listings.
type Filter struct {
	InvoiceNumber string
	ReportID      *uuid.UUID
	OrderBy       string
	Page          pagination.Params
}

// Repository persists invoices and reads the report lines they bill.
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

func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Report").Create(invoice).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Report.Vehicle.Owner").
		Where("id = ?", id).
		Take(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// HighestNumber returns the largest invoice number issued under prefix, or "" when none exist.
// Numbers are zero padded, so longer strings sort after shorter ones.
func (r *Repository) HighestNumber(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"-%").
		Order("LENGTH(invoice_number) DESC, invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *Repository) ReportExists(ctx context.Context, reportID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", reportID).Count(&count).Error
	return count > 0, err
}

// ReportLines loads the task and part rows billed for a report.
func (r *Repository) ReportLines(ctx context.Context, reportID uuid.UUID) ([]models.ReportTask, []models.PartUsage, error) {
	var tasks []models.ReportTask
	if err := r.db.WithContext(ctx).
		Preload("TaskTemplate").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, nil, err
	}
	var parts []models.PartUsage
	if err := r.db.WithContext(ctx).
		Preload("InventoryItem").
		Where("report_id = ?", reportID).
		Order("created_at ASC, id ASC").
		Find(&parts).Error; err != nil {
		return nil, nil, err
	}
	return tasks, parts, nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]models.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if number := strings.TrimSpace(filter.InvoiceNumber); number != "" {
		query = query.Where("invoice_number = ?", number)
	}
	if filter.ReportID != nil {
		query = query.Where("report_id = ?", *filter.ReportID)
	}

	var total int64
	if filter.Page.Enabled {
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		query = query.Limit(filter.Page.Limit).Offset(filter.Page.Offset)
	}

	var invoices []models.Invoice
	if err := query.Preload("Report.Vehicle.Owner").Order(filter.OrderBy).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	if !filter.Page.Enabled {
		total = int64(len(invoices))
	}
	return invoices, total, nil
}
