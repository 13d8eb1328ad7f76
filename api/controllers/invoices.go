package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

func InvoiceList(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reportID, err := validators.ParseOptionalQueryUUID(r, "report")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		result, err := svc.List(r.Context(), invoices.ListInput{
			InvoiceNumber: q.Get("invoice_number"),
			ReportID:      reportID,
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

// InvoiceDetail returns an invoice with totals priced from the report's current lines.
func InvoiceDetail(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "invoice")
			return
		}
		id, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}
