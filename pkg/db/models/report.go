package models

import (
	"time"

	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/google/uuid"
)

// Report is an inspection or repair job performed on a vehicle.
type Report struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID uuid.UUID          `gorm:"column:vehicle_id;type:uuid;not null"`
	Vehicle   *Vehicle           `gorm:"foreignKey:VehicleID"`
	UserID    *uuid.UUID         `gorm:"column:user_id;type:uuid"`
	Status    enums.ReportStatus `gorm:"column:status;type:text;not null;default:pending"`
	Remarks   string             `gorm:"column:remarks;not null;default:''"`
	Tasks     []ReportTask       `gorm:"foreignKey:ReportID"`
	Parts     []PartUsage        `gorm:"foreignKey:ReportID"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// ReportTask links a report to a task template.
type ReportTask struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReportID       uuid.UUID     `gorm:"column:report_id;type:uuid;not null"`
	TaskTemplateID uuid.UUID     `gorm:"column:task_template_id;type:uuid;not null"`
	TaskTemplate   *TaskTemplate `gorm:"foreignKey:TaskTemplateID"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
}
