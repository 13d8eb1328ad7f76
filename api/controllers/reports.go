package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/internal/reports"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/google/uuid"
)

type createReportRequest struct {
	VehicleID uuid.UUID         `json:"vehicle_id" validate:"required"`
	Status    string            `json:"status"`
	Remarks   string            `json:"remarks"`
	Tasks     []uuid.UUID       `json:"tasks"`
	Parts     []partLineRequest `json:"parts" validate:"dive"`
}

type updateReportRequest struct {
	VehicleID *uuid.UUID         `json:"vehicle_id"`
	Status    *string            `json:"status"`
	Remarks   *string            `json:"remarks"`
	Tasks     *[]uuid.UUID       `json:"tasks"`
	Parts     *[]partLineRequest `json:"parts" validate:"omitnil,dive"`
	UpdatedAt *string            `json:"updated_at"`
}

func partInputs(lines []partLineRequest) []inventory.UsageInput {
	inputs := make([]inventory.UsageInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, line.toInput())
	}
	return inputs
}

func ReportList(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID, err := validators.ParseOptionalQueryUUID(r, "vehicle__owner")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicleID, err := validators.ParseOptionalQueryUUID(r, "vehicle")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), reports.ListInput{
			Status:       q.Get("status"),
			StatusIn:     q.Get("status__in"),
			VehicleBrand: q.Get("vehicle__brand"),
			OwnerID:      ownerID,
			VehicleID:    vehicleID,
			Ordering:     q.Get("ordering"),
			Page:         page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Items, result.Meta)
	}
}

// ReportCreate opens a report. Every part line deducts stock in the same transaction.
func ReportCreate(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createReportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Create(r.Context(), reports.CreateInput{
			VehicleID:       body.VehicleID,
			UserID:          &userID,
			Status:          body.Status,
			Remarks:         body.Remarks,
			TaskTemplateIDs: body.Tasks,
			Parts:           partInputs(body.Parts),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, report)
	}
}

func ReportDetail(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ReportUpdate applies a partial change. Supplied tasks or parts replace the whole collection.
func ReportUpdate(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateReportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := reports.UpdateInput{
			VehicleID:       body.VehicleID,
			Status:          body.Status,
			Remarks:         body.Remarks,
			TaskTemplateIDs: body.Tasks,
			UpdatedAt:       body.UpdatedAt,
		}
		if body.Parts != nil {
			parts := partInputs(*body.Parts)
			input.Parts = &parts
		}
		report, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ReportDelete returns the report's parts to stock and removes it.
func ReportDelete(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ReportTasks(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tasks, err := svc.ListTasks(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, tasks, nil)
	}
}

func ReportParts(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "report")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parts, err := svc.ListParts(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, parts, nil)
	}
}

// ReportInvoice issues a fresh invoice for the report regardless of its status.
func ReportInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		id, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GenerateForReport(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}
