package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/tasktemplates"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type createTaskTemplateRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required,money"`
}

type updateTaskTemplateRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitnil,money"`
	UpdatedAt   *string          `json:"updated_at"`
}

func TaskTemplateList(svc tasktemplates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "task template")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), tasktemplates.ListInput{
			Name:        q.Get("name"),
			Description: q.Get("description"),
			Ordering:    q.Get("ordering"),
			Page:        page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Items, result.Meta)
	}
}

func TaskTemplateCreate(svc tasktemplates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "task template")
			return
		}
		var body createTaskTemplateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Create(r.Context(), tasktemplates.CreateInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       *body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tmpl)
	}
}

func TaskTemplateDetail(svc tasktemplates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "task template")
			return
		}
		id, err := validators.ParseURLUUID(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

func TaskTemplateUpdate(svc tasktemplates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "task template")
			return
		}
		id, err := validators.ParseURLUUID(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateTaskTemplateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tmpl, err := svc.Update(r.Context(), id, tasktemplates.UpdateInput{
			Name:        body.Name,
			Description: body.Description,
			Price:       body.Price,
			UpdatedAt:   body.UpdatedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tmpl)
	}
}

func TaskTemplateDelete(svc tasktemplates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "task template")
			return
		}
		id, err := validators.ParseURLUUID(r, "templateId")
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
