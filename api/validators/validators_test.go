package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type sampleBody struct {
	Name  string `json:"name" validate:"required,max=5"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"name":"ok","extra":1}`,
		"missing name":  `{"email":"a@b.co"}`,
		"too long":      `{"name":"toolong"}`,
		"bad email":     `{"name":"ok","email":"nope"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body sampleBody
			if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("decode valid body: %v", err)
	}
}

type partLine struct {
	Quantity *decimal.Decimal `json:"quantity" validate:"required,qty"`
	Price    *decimal.Decimal `json:"price" validate:"omitnil,money"`
}

func TestDecimalTags(t *testing.T) {
	cases := []struct {
		payload string
		field   string
	}{
		{`{"quantity":0}`, "quantity"},
		{`{"quantity":-1.5}`, "quantity"},
		{`{"quantity":1.005}`, "quantity"},
		{`{"quantity":1,"price":-0.01}`, "price"},
		{`{"quantity":1,"price":"9.999"}`, "price"},
		{`{}`, "quantity"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.payload))
		var body partLine
		err := DecodeJSONBody(req, &body)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.payload, err)
		}
		details, _ := typed.Details().(map[string]string)
		if _, ok := details[tc.field]; !ok {
			t.Fatalf("%s: expected %s in details, got %v", tc.payload, tc.field, typed.Details())
		}
	}

	for _, payload := range []string{`{"quantity":2.5}`, `{"quantity":"1.50","price":0}`, `{"quantity":3,"price":"15.99"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		var body partLine
		if err := DecodeJSONBody(req, &body); err != nil {
			t.Fatalf("%s: expected valid body, got %v", payload, err)
		}
	}
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=3&offset=6", nil)
	page, err := ParsePage(req)
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	if !page.Enabled || page.Limit != 3 || page.Offset != 6 {
		t.Fatalf("unexpected page %+v", page)
	}

	page, err = ParsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || page.Enabled {
		t.Fatalf("expected pagination off, got %+v err=%v", page, err)
	}
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseURLUUID(req, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s err=%v", id, got, err)
	}

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "not-a-uuid")
	if _, err := ParseURLUUID(req, "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseOptionalQueryValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?year=2020&owner=bad", nil)
	year, err := ParseOptionalQueryInt(req, "year")
	if err != nil || year == nil || *year != 2020 {
		t.Fatalf("unexpected year %v err=%v", year, err)
	}
	if _, err := ParseOptionalQueryUUID(req, "owner"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for owner, got %v", err)
	}
	missing, err := ParseOptionalQueryUUID(req, "vehicle")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for absent parameter")
	}
}
