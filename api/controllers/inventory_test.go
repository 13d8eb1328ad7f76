package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
)

type stubInventory struct {
	inventory.Service

	listInput inventory.ListItemsInput
	threshold *decimal.Decimal
	usage     *inventory.PartUsageDTO
	revised   *inventory.UsageRevision
	recordErr error
	removed   uuid.UUID
}

func (s *stubInventory) ListItems(ctx context.Context, input inventory.ListItemsInput) (*inventory.ItemListResult, error) {
	s.listInput = input
	result := &inventory.ItemListResult{Items: []inventory.ItemDTO{{ID: uuid.New(), Name: "Oil filter"}}}
	if input.Page.Enabled {
		result.Meta = &pagination.Meta{Limit: input.Page.Limit, Offset: input.Page.Offset, Count: 7}
	}
	return result, nil
}

func (s *stubInventory) LowStock(ctx context.Context, threshold *decimal.Decimal) ([]inventory.ItemDTO, error) {
	s.threshold = threshold
	return []inventory.ItemDTO{}, nil
}

func (s *stubInventory) GetItem(ctx context.Context, id uuid.UUID) (*inventory.ItemDTO, error) {
	return &inventory.ItemDTO{ID: id}, nil
}

func (s *stubInventory) GetUsage(ctx context.Context, id uuid.UUID) (*inventory.PartUsageDTO, error) {
	if s.usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part usage not found")
	}
	return s.usage, nil
}

func (s *stubInventory) RecordUsage(ctx context.Context, reportID uuid.UUID, input inventory.UsageInput) (*inventory.PartUsageDTO, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	return &inventory.PartUsageDTO{
		ID:              uuid.New(),
		ReportID:        reportID,
		InventoryItemID: input.InventoryItemID,
		QuantityUsed:    input.QuantityUsed.StringFixed(2),
	}, nil
}

func (s *stubInventory) ReviseUsage(ctx context.Context, id uuid.UUID, rev inventory.UsageRevision) (*inventory.PartUsageDTO, error) {
	if rev.InventoryItemID == nil && rev.QuantityUsed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory_item_id or quantity_used is required")
	}
	s.revised = &rev
	return &inventory.PartUsageDTO{ID: id}, nil
}

func (s *stubInventory) RemoveUsage(ctx context.Context, id uuid.UUID) error {
	s.removed = id
	return nil
}

func TestInventoryListMeta(t *testing.T) {
	svc := &stubInventory{}

	resp, env := serve(t, InventoryList(svc, testLogger()), http.MethodGet, "/inventory?category=filters", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env.Meta != nil {
		t.Fatalf("expected no meta for an unpaginated list, got %s", env.Meta)
	}
	if svc.listInput.Category != "filters" {
		t.Fatalf("expected category filter to pass through, got %q", svc.listInput.Category)
	}

	resp, env = serve(t, InventoryList(svc, testLogger()), http.MethodGet, "/inventory?limit=2&offset=4", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if string(env.Meta) != `{"limit":2,"offset":4,"count":7}` {
		t.Fatalf("unexpected meta %s", env.Meta)
	}
}

func TestInventoryLowStockThreshold(t *testing.T) {
	svc := &stubInventory{}

	resp, _ := serve(t, InventoryLowStock(svc, testLogger()), http.MethodGet, "/inventory/low-stock?threshold=2.5", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.threshold == nil || !svc.threshold.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected threshold 2.5 got %v", svc.threshold)
	}

	resp, env := serve(t, InventoryLowStock(svc, testLogger()), http.MethodGet, "/inventory/low-stock?threshold=lots", "", nil)
	if resp.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %d", resp.Code)
	}
}

func TestInventoryDetailRejectsBadID(t *testing.T) {
	resp, env := serve(t, InventoryDetail(&stubInventory{}, testLogger()), http.MethodGet, "/inventory/nope", "", map[string]string{"itemId": "nope"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if env.Error.Details["field"] != "itemId" {
		t.Fatalf("expected field detail, got %v", env.Error.Details)
	}
}

func TestReportPartRecord(t *testing.T) {
	reportID := uuid.New()
	itemID := uuid.New()
	body := `{"inventory_item_id":"` + itemID.String() + `","quantity_used":"1.5"}`

	resp, _ := serve(t, ReportPartRecord(&stubInventory{}, testLogger()), http.MethodPost, "/reports/x/parts", body, map[string]string{"reportId": reportID.String()})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	resp, env := serve(t, ReportPartRecord(&stubInventory{}, testLogger()), http.MethodPost, "/reports/x/parts", `{"inventory_item_id":"`+itemID.String()+`"}`, map[string]string{"reportId": reportID.String()})
	if resp.Code != http.StatusBadRequest || env.Error == nil {
		t.Fatalf("expected missing quantity to fail validation, got %d", resp.Code)
	}
}

func TestReportPartRecordInsufficientStock(t *testing.T) {
	itemID := uuid.New()
	svc := &stubInventory{
		recordErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "Not enough stock for Brake pad. Available: 1.00, requested: 3.00").
			WithDetails(map[string]any{"inventory_item_id": itemID.String(), "available": "1.00", "requested": "3.00"}),
	}
	body := `{"inventory_item_id":"` + itemID.String() + `","quantity_used":3}`

	resp, env := serve(t, ReportPartRecord(svc, testLogger()), http.MethodPost, "/reports/x/parts", body, map[string]string{"reportId": uuid.NewString()})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if env.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock code, got %s", env.Error.Code)
	}
	if env.Error.Details["available"] != "1.00" || env.Error.Details["inventory_item_id"] != itemID.String() {
		t.Fatalf("expected stock details, got %v", env.Error.Details)
	}
}

func TestPartUsageRevisePassesOmittedFieldsThrough(t *testing.T) {
	usageID := uuid.New()
	svc := &stubInventory{}

	resp, _ := serve(t, PartUsageRevise(svc, testLogger()), http.MethodPatch, "/part-usages/x", `{"quantity_used":"5"}`, map[string]string{"usageId": usageID.String()})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.revised.InventoryItemID != nil {
		t.Fatalf("expected omitted item to stay unset, got %s", svc.revised.InventoryItemID)
	}
	if svc.revised.QuantityUsed == nil || !svc.revised.QuantityUsed.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected quantity 5 got %s", svc.revised.QuantityUsed)
	}

	resp, _ = serve(t, PartUsageRevise(svc, testLogger()), http.MethodPatch, "/part-usages/x", `{}`, map[string]string{"usageId": usageID.String()})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected empty revision to fail, got %d", resp.Code)
	}
}

func TestPartUsageRemove(t *testing.T) {
	svc := &stubInventory{}
	id := uuid.New()

	resp, _ := serve(t, PartUsageRemove(svc, testLogger()), http.MethodDelete, "/part-usages/x", "", map[string]string{"usageId": id.String()})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.removed != id {
		t.Fatalf("expected usage %s removed", id)
	}
}
