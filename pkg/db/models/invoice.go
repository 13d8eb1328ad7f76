package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice marks that a report was billed. Amounts are derived from the report on read.
type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber string    `gorm:"column:invoice_number;not null;uniqueIndex"`
	ReportID      uuid.UUID `gorm:"column:report_id;type:uuid;not null"`
	Report        *Report   `gorm:"foreignKey:ReportID"`
	IssuedAt      time.Time `gorm:"column:issued_at;not null"`
}
