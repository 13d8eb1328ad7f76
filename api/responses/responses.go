// Package responses writes the JSON envelopes every endpoint returns:
// {"data": ...}, {"data": [...], "meta": {...}} and {"error": {...}}.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
)

type dataEnvelope struct {
	Data any              `json:"data"`
	Meta *pagination.Meta `json:"meta,omitempty"`
}

// ErrorBody is the client-visible part of a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// encodeFailure is sent when a payload cannot be marshalled.
var encodeFailure = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataEnvelope{Data: data})
}

// WriteList writes a collection. Meta is only present when the caller asked for a page.
func WriteList(w http.ResponseWriter, data any, meta *pagination.Meta) {
	writeJSON(w, http.StatusOK, dataEnvelope{Data: data, Meta: meta})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto its status and public body. Untyped errors become opaque 500s.
// Server faults are logged at error level, client faults at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := ErrorBody{Code: string(typed.Code()), Message: typed.PublicMessage()}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logError(ctx, logg, err, typed, meta)
	}
	writeJSON(w, meta.HTTPStatus, errorEnvelope{Error: body})
}

func logError(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error, meta pkgerrors.Metadata) {
	fields := pkgerrors.Dump(err).Fields()
	fields["status"] = meta.HTTPStatus
	if details, ok := typed.Details().(map[string]any); ok {
		if item, ok := details["inventory_item_id"]; ok {
			fields["inventory_item_id"] = item
		}
	}
	ctx = logg.WithFields(ctx, fields)
	if meta.Retryable || meta.HTTPStatus >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, encodeFailure
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
