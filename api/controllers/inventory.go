package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type createItemRequest struct {
	Name            string           `json:"name" validate:"required,max=100"`
	ReferenceCode   string           `json:"reference_code" validate:"required,max=50"`
	Category        string           `json:"category" validate:"max=50"`
	QuantityInStock *decimal.Decimal `json:"quantity_in_stock" validate:"omitnil,money"`
	UnitPrice       *decimal.Decimal `json:"unit_price" validate:"required,money"`
}

type updateItemRequest struct {
	Name            *string          `json:"name" validate:"omitempty,max=100"`
	ReferenceCode   *string          `json:"reference_code" validate:"omitempty,max=50"`
	Category        *string          `json:"category" validate:"omitempty,max=50"`
	QuantityInStock *decimal.Decimal `json:"quantity_in_stock" validate:"omitnil,money"`
	UnitPrice       *decimal.Decimal `json:"unit_price" validate:"omitnil,money"`
	UpdatedAt       *string          `json:"updated_at"`
}

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.ListItems(r.Context(), inventory.ListItemsInput{
			Name:          q.Get("name"),
			ReferenceCode: q.Get("reference_code"),
			Category:      q.Get("category"),
			Ordering:      q.Get("ordering"),
			Page:          page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Items, result.Meta)
	}
}

// InventoryLowStock lists items at or below ?threshold=, or the configured default.
func InventoryLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		var threshold *decimal.Decimal
		if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
			parsed, err := decimal.NewFromString(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "threshold must be a number"))
				return
			}
			threshold = &parsed
		}
		items, err := svc.LowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, items, nil)
	}
}

func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		var body createItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := inventory.CreateItemInput{
			Name:          body.Name,
			ReferenceCode: body.ReferenceCode,
			Category:      body.Category,
			UnitPrice:     *body.UnitPrice,
		}
		if body.QuantityInStock != nil {
			input.QuantityInStock = *body.QuantityInStock
		}
		item, err := svc.CreateItem(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func InventoryDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetItem(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryUpdate edits an item. A quantity_in_stock value is an administrative correction.
func InventoryUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateItem(r.Context(), id, inventory.UpdateItemInput{
			Name:            body.Name,
			ReferenceCode:   body.ReferenceCode,
			Category:        body.Category,
			QuantityInStock: body.QuantityInStock,
			UnitPrice:       body.UnitPrice,
			UpdatedAt:       body.UpdatedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func InventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "inventory")
			return
		}
		id, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteItem(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
