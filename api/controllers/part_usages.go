package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type partLineRequest struct {
	InventoryItemID uuid.UUID        `json:"inventory_item_id" validate:"required"`
	QuantityUsed    *decimal.Decimal `json:"quantity_used" validate:"required,qty"`
}

func (p partLineRequest) toInput() inventory.UsageInput {
	return inventory.UsageInput{InventoryItemID: p.InventoryItemID, QuantityUsed: *p.QuantityUsed}
}

type revisePartRequest struct {
	InventoryItemID *uuid.UUID       `json:"inventory_item_id"`
	QuantityUsed    *decimal.Decimal `json:"quantity_used" validate:"omitnil,qty"`
}

// ReportPartRecord deducts stock and attaches one part line to a report.
func ReportPartRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		reportID, err := validators.ParseURLUUID(r, "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body partLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usage, err := svc.RecordUsage(r.Context(), reportID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, usage)
	}
}

func PartUsageDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "usageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usage, err := svc.GetUsage(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

// PartUsageRevise changes the item and/or quantity of a part line. Omitted fields keep their
// current value.
func PartUsageRevise(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "usageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body revisePartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		usage, err := svc.ReviseUsage(r.Context(), id, inventory.UsageRevision{
			InventoryItemID: body.InventoryItemID,
			QuantityUsed:    body.QuantityUsed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, usage)
	}
}

// PartUsageRemove deletes a part line and returns its quantity to stock.
func PartUsageRemove(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "usageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveUsage(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
