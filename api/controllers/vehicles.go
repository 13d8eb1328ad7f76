package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/vehicles"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/google/uuid"
)

type createVehicleRequest struct {
	OwnerID      uuid.UUID `json:"owner_id" validate:"required"`
	Brand        string    `json:"brand" validate:"required,max=50"`
	Model        string    `json:"model" validate:"required,max=50"`
	LicensePlate string    `json:"license_plate" validate:"required,max=20"`
	Year         int       `json:"year" validate:"required"`
}

type updateVehicleRequest struct {
	OwnerID      *uuid.UUID `json:"owner_id"`
	Brand        *string    `json:"brand" validate:"omitempty,max=50"`
	Model        *string    `json:"model" validate:"omitempty,max=50"`
	LicensePlate *string    `json:"license_plate" validate:"omitempty,max=20"`
	Year         *int       `json:"year"`
	UpdatedAt    *string    `json:"updated_at"`
}

func VehicleList(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vehicle")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, err := validators.ParseOptionalQueryInt(r, "year")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID, err := validators.ParseOptionalQueryUUID(r, "owner")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), vehicles.ListInput{
			Brand:        q.Get("brand"),
			Model:        q.Get("model"),
			Year:         year,
			LicensePlate: q.Get("license_plate"),
			OwnerID:      ownerID,
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

func VehicleCreate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vehicle")
			return
		}
		var body createVehicleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Create(r.Context(), vehicles.CreateInput{
			OwnerID:      body.OwnerID,
			Brand:        body.Brand,
			Model:        body.Model,
			LicensePlate: body.LicensePlate,
			Year:         body.Year,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vehicle)
	}
}

func VehicleDetail(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vehicle")
			return
		}
		id, err := validators.ParseURLUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

func VehicleUpdate(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vehicle")
			return
		}
		id, err := validators.ParseURLUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateVehicleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := svc.Update(r.Context(), id, vehicles.UpdateInput{
			OwnerID:      body.OwnerID,
			Brand:        body.Brand,
			Model:        body.Model,
			LicensePlate: body.LicensePlate,
			Year:         body.Year,
			UpdatedAt:    body.UpdatedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

func VehicleDelete(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "vehicle")
			return
		}
		id, err := validators.ParseURLUUID(r, "vehicleId")
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
