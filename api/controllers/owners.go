package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/owners"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

type createOwnerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Phone     string `json:"phone" validate:"max=20"`
	Address   string `json:"address"`
}

type updateOwnerRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,max=254"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Address   *string `json:"address"`
	UpdatedAt *string `json:"updated_at"`
}

func OwnerList(svc owners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "owner")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), owners.ListInput{
			Email:    q.Get("email"),
			FullName: q.Get("full_name"),
			Ordering: q.Get("ordering"),
			Page:     page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Items, result.Meta)
	}
}

func OwnerCreate(svc owners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "owner")
			return
		}
		var body createOwnerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := svc.Create(r.Context(), owners.CreateInput{
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Email:     body.Email,
			Phone:     body.Phone,
			Address:   body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, owner)
	}
}

func OwnerDetail(svc owners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "owner")
			return
		}
		id, err := validators.ParseURLUUID(r, "ownerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, owner)
	}
}

func OwnerUpdate(svc owners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "owner")
			return
		}
		id, err := validators.ParseURLUUID(r, "ownerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateOwnerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := svc.Update(r.Context(), id, owners.UpdateInput{
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Email:     body.Email,
			Phone:     body.Phone,
			Address:   body.Address,
			UpdatedAt: body.UpdatedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, owner)
	}
}

// OwnerDelete removes the owner with their vehicles and reports. Parts on those reports go
// back to stock.
func OwnerDelete(svc owners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "owner")
			return
		}
		id, err := validators.ParseURLUUID(r, "ownerId")
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
