package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/garage-backend/api/middleware"
	"github.com/angelmondragon/garage-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
)

type stubReports struct {
	reports.Service

	created   *reports.CreateInput
	updated   *reports.UpdateInput
	listInput reports.ListInput
	createErr error
}

func (s *stubReports) Create(ctx context.Context, input reports.CreateInput) (*reports.ReportDTO, error) {
	s.created = &input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &reports.ReportDTO{ID: uuid.New(), VehicleID: input.VehicleID, UserID: input.UserID}, nil
}

func (s *stubReports) Update(ctx context.Context, id uuid.UUID, input reports.UpdateInput) (*reports.ReportDTO, error) {
	s.updated = &input
	return &reports.ReportDTO{ID: id}, nil
}

func (s *stubReports) List(ctx context.Context, input reports.ListInput) (*reports.ListResult, error) {
	s.listInput = input
	return &reports.ListResult{Items: []reports.ReportDTO{}, Meta: &pagination.Meta{Limit: 5, Count: 0}}, nil
}

func createReport(t *testing.T, svc reports.Service, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	resp := httptest.NewRecorder()
	ReportCreate(svc, testLogger())(resp, req)
	return resp
}

func TestReportCreateStampsCurrentUser(t *testing.T) {
	svc := &stubReports{}
	userID := uuid.New()
	itemID := uuid.New()
	templateID := uuid.New()
	body := `{"vehicle_id":"` + uuid.NewString() + `","tasks":["` + templateID.String() + `"],` +
		`"parts":[{"inventory_item_id":"` + itemID.String() + `","quantity_used":"2"}]}`

	resp := createReport(t, svc, userID.String(), body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.UserID == nil || *svc.created.UserID != userID {
		t.Fatalf("expected report stamped with %s", userID)
	}
	if len(svc.created.TaskTemplateIDs) != 1 || svc.created.TaskTemplateIDs[0] != templateID {
		t.Fatalf("unexpected tasks %v", svc.created.TaskTemplateIDs)
	}
	if len(svc.created.Parts) != 1 || !svc.created.Parts[0].QuantityUsed.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected parts %+v", svc.created.Parts)
	}
}

func TestReportCreateRequiresUser(t *testing.T) {
	resp := createReport(t, &stubReports{}, "", `{"vehicle_id":"`+uuid.NewString()+`"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestReportCreateSurfacesStockShortfall(t *testing.T) {
	itemID := uuid.New()
	svc := &stubReports{
		createErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "Not enough stock for Spark plug. Available: 0.00, requested: 4.00").
			WithDetails(map[string]any{"inventory_item_id": itemID.String(), "available": "0.00", "requested": "4.00"}),
	}
	body := `{"vehicle_id":"` + uuid.NewString() + `","parts":[{"inventory_item_id":"` + itemID.String() + `","quantity_used":4}]}`

	resp := createReport(t, svc, uuid.NewString(), body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"requested":"4.00"`) {
		t.Fatalf("expected shortfall details in %s", resp.Body.String())
	}
}

func TestReportUpdatePartsReplaceOnlyWhenPresent(t *testing.T) {
	svc := &stubReports{}
	id := uuid.New()
	params := map[string]string{"reportId": id.String()}

	resp, _ := serve(t, ReportUpdate(svc, testLogger()), http.MethodPatch, "/reports/x", `{"remarks":"brakes squeal"}`, params)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updated.Parts != nil || svc.updated.TaskTemplateIDs != nil {
		t.Fatalf("expected collections untouched when omitted")
	}

	resp, _ = serve(t, ReportUpdate(svc, testLogger()), http.MethodPatch, "/reports/x", `{"parts":[]}`, params)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.updated.Parts == nil || len(*svc.updated.Parts) != 0 {
		t.Fatalf("expected an explicit empty parts list to clear usage")
	}
}

func TestReportListFilters(t *testing.T) {
	svc := &stubReports{}
	ownerID := uuid.New()

	resp, env := serve(t, ReportList(svc, testLogger()), http.MethodGet,
		"/reports?status__in=pending,completed&vehicle__brand=Seat&vehicle__owner="+ownerID.String()+"&limit=5", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listInput.StatusIn != "pending,completed" || svc.listInput.VehicleBrand != "Seat" {
		t.Fatalf("unexpected filters %+v", svc.listInput)
	}
	if svc.listInput.OwnerID == nil || *svc.listInput.OwnerID != ownerID {
		t.Fatalf("expected owner filter %s", ownerID)
	}
	if env.Meta == nil {
		t.Fatalf("expected meta on a paginated list")
	}

	resp, _ = serve(t, ReportList(svc, testLogger()), http.MethodGet, "/reports?vehicle=abc", "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected a malformed vehicle filter to fail, got %d", resp.Code)
	}
}
