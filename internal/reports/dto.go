package reports

import (
	"time"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
)

// TaskDTO is a task line on a report.
type TaskDTO struct {
	ID             uuid.UUID `json:"id"`
	TaskTemplateID uuid.UUID `json:"task_template_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          string    `json:"price"`
}

// VehicleSummary is the vehicle embedded in report payloads.
type VehicleSummary struct {
	ID            uuid.UUID `json:"id"`
	Brand         string    `json:"brand"`
	Model         string    `json:"model"`
	LicensePlate  string    `json:"license_plate"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OwnerFullName string    `json:"owner_full_name"`
}

// ReportDTO is the report payload returned to clients.
type ReportDTO struct {
	ID        uuid.UUID                `json:"id"`
	VehicleID uuid.UUID                `json:"vehicle_id"`
	Vehicle   *VehicleSummary          `json:"vehicle,omitempty"`
	UserID    *uuid.UUID               `json:"user_id"`
	Status    enums.ReportStatus       `json:"status"`
	Remarks   string                   `json:"remarks"`
	Tasks     []TaskDTO                `json:"tasks_data"`
	Parts     []inventory.PartUsageDTO `json:"parts_data"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// ListResult is a page of reports.
type ListResult struct {
	Items []ReportDTO
	Meta  *pagination.Meta
}

func taskFromModel(task models.ReportTask) TaskDTO {
	dto := TaskDTO{ID: task.ID, TaskTemplateID: task.TaskTemplateID}
	if tmpl := task.TaskTemplate; tmpl != nil {
		dto.Name = tmpl.Name
		dto.Description = tmpl.Description
		dto.Price = tmpl.Price.StringFixed(2)
	}
	return dto
}

func tasksFromModels(tasks []models.ReportTask) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, taskFromModel(task))
	}
	return out
}

func fromModel(report models.Report) ReportDTO {
	dto := ReportDTO{
		ID:        report.ID,
		VehicleID: report.VehicleID,
		UserID:    report.UserID,
		Status:    report.Status,
		Remarks:   report.Remarks,
		Tasks:     tasksFromModels(report.Tasks),
		Parts:     inventory.UsagesFromModels(report.Parts),
		CreatedAt: report.CreatedAt,
		UpdatedAt: report.UpdatedAt,
	}
	if v := report.Vehicle; v != nil {
		dto.Vehicle = &VehicleSummary{
			ID:           v.ID,
			Brand:        v.Brand,
			Model:        v.Model,
			LicensePlate: v.LicensePlate,
			OwnerID:      v.OwnerID,
		}
		if v.Owner != nil {
			dto.Vehicle.OwnerFullName = v.Owner.FullName()
		}
	}
	return dto
}
