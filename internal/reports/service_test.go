package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/dbtest"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubInvoicer struct {
	calls int
	err   error
}

func (s *stubInvoicer) Generate(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) (*models.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls++
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: fmt.Sprintf("TEST-%06d", s.calls),
		ReportID:      reportID,
		IssuedAt:      db.Now(),
	}
	return invoice, tx.WithContext(ctx).Omit("Report").Create(invoice).Error
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	invoicer *stubInvoicer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	invoicer := &stubInvoicer{}
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), inventory.NewLedger(nil), invoicer, logger.Nop())
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, invoicer: invoicer}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func strPtr(v string) *string { return &v }

func stamp(ts time.Time) *string {
	v := ts.Format(time.RFC3339Nano)
	return &v
}

func assertBalance(t *testing.T, conn *gorm.DB, itemID uuid.UUID, want string) {
	t.Helper()
	got := dbtest.Balance(t, conn, itemID)
	assert.True(t, got.Equal(dec(want)), "balance = %s, want %s", got, want)
}

func seedVehicle(t *testing.T, conn *gorm.DB) models.Vehicle {
	t.Helper()
	owner := dbtest.SeedOwner(t, conn, "Grace", "Hopper")
	return dbtest.SeedVehicle(t, conn, owner.ID, "Toyota", "Corolla", "GH-"+uuid.NewString()[:6])
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(nil, db.Wrap(conn), inventory.NewLedger(nil), &stubInvoicer{}, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), db.Wrap(conn), nil, &stubInvoicer{}, nil)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), db.Wrap(conn), inventory.NewLedger(nil), nil, nil)
	assert.Error(t, err)
}

func TestCreateReportRecordsPartsThroughLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)
	oil := dbtest.SeedTaskTemplate(t, f.conn, "Oil Change", "29.99")
	filter := dbtest.SeedItem(t, f.conn, "Oil Filter", "10", "12.50")

	report, err := f.svc.Create(ctx, CreateInput{
		VehicleID:       vehicle.ID,
		Remarks:         " leaking gasket ",
		TaskTemplateIDs: []uuid.UUID{oil.ID},
		Parts:           []inventory.UsageInput{{InventoryItemID: filter.ID, QuantityUsed: dec("3")}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusPending, report.Status)
	assert.Equal(t, "leaking gasket", report.Remarks)
	require.Len(t, report.Tasks, 1)
	assert.Equal(t, "Oil Change", report.Tasks[0].Name)
	require.Len(t, report.Parts, 1)
	assert.Equal(t, "3.00", report.Parts[0].QuantityUsed)
	require.NotNil(t, report.Vehicle)
	assert.Equal(t, "Grace Hopper", report.Vehicle.OwnerFullName)
	assertBalance(t, f.conn, filter.ID, "7")
}

func TestCreateReportRollsBackOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)
	plugs := dbtest.SeedItem(t, f.conn, "Spark Plug", "20", "8.75")
	pads := dbtest.SeedItem(t, f.conn, "Brake Pad", "5", "45")

	_, err := f.svc.Create(ctx, CreateInput{
		VehicleID: vehicle.ID,
		Parts: []inventory.UsageInput{
			{InventoryItemID: plugs.ID, QuantityUsed: dec("4")},
			{InventoryItemID: pads.ID, QuantityUsed: dec("6")},
		},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	shortage, ok := inventory.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, pads.ID, shortage.ItemID)

	assertBalance(t, f.conn, plugs.ID, "20")
	assertBalance(t, f.conn, pads.ID, "5")
	var count int64
	require.NoError(t, f.conn.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateReportValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)

	_, err := f.svc.Create(ctx, CreateInput{VehicleID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{VehicleID: vehicle.ID, Status: "archived"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{VehicleID: vehicle.ID, TaskTemplateIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{
		VehicleID: vehicle.ID,
		Parts:     []inventory.UsageInput{{InventoryItemID: uuid.New(), QuantityUsed: dec("1")}},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateReportReplacesPartsAndTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)
	oil := dbtest.SeedTaskTemplate(t, f.conn, "Oil Change", "29.99")
	filter := dbtest.SeedItem(t, f.conn, "Oil Filter", "10", "12.50")
	fluid := dbtest.SeedItem(t, f.conn, "Brake Fluid", "2", "10")

	report, err := f.svc.Create(ctx, CreateInput{
		VehicleID:       vehicle.ID,
		TaskTemplateIDs: []uuid.UUID{oil.ID},
		Parts:           []inventory.UsageInput{{InventoryItemID: filter.ID, QuantityUsed: dec("4")}},
	})
	require.NoError(t, err)
	assertBalance(t, f.conn, filter.ID, "6")

	time.Sleep(time.Millisecond)
	noTasks := []uuid.UUID{}
	parts := []inventory.UsageInput{
		{InventoryItemID: filter.ID, QuantityUsed: dec("10")},
		{InventoryItemID: fluid.ID, QuantityUsed: dec("1.5")},
	}
	updated, err := f.svc.Update(ctx, report.ID, UpdateInput{
		Status:          strPtr("in_progress"),
		TaskTemplateIDs: &noTasks,
		Parts:           &parts,
		UpdatedAt:       stamp(report.UpdatedAt),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusInProgress, updated.Status)
	assert.Empty(t, updated.Tasks)
	assert.Len(t, updated.Parts, 2)
	assert.True(t, updated.UpdatedAt.After(report.UpdatedAt))
	assertBalance(t, f.conn, filter.ID, "0")
	assertBalance(t, f.conn, fluid.ID, "0.5")

	time.Sleep(time.Millisecond)
	tooMany := []inventory.UsageInput{{InventoryItemID: fluid.ID, QuantityUsed: dec("3")}}
	_, err = f.svc.Update(ctx, report.ID, UpdateInput{Parts: &tooMany, UpdatedAt: stamp(updated.UpdatedAt)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	short, ok := inventory.AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, fluid.ID, short.ItemID)
	assertBalance(t, f.conn, filter.ID, "0")
	assertBalance(t, f.conn, fluid.ID, "0.5")

	unchanged, err := f.svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, unchanged.Parts, 2)
	assert.True(t, updated.UpdatedAt.Equal(unchanged.UpdatedAt))
}

func TestUpdateReportRequiresFreshTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := dbtest.SeedReport(t, f.conn)

	_, err := f.svc.Update(ctx, report.ID, UpdateInput{Remarks: strPtr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, report.ID, UpdateInput{Remarks: strPtr("x"), UpdatedAt: strPtr("yesterday")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stale := stamp(report.UpdatedAt)
	time.Sleep(time.Millisecond)
	_, err = f.svc.Update(ctx, report.ID, UpdateInput{Remarks: strPtr("first"), UpdatedAt: stale})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, report.ID, UpdateInput{Remarks: strPtr("second"), UpdatedAt: stale})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStaleRecord))

	_, err = f.svc.Update(ctx, uuid.New(), UpdateInput{Remarks: strPtr("x"), UpdatedAt: stale})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestExportIssuesOneInvoicePerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := dbtest.SeedReport(t, f.conn)

	update := func(last time.Time, input UpdateInput) *ReportDTO {
		t.Helper()
		time.Sleep(time.Millisecond)
		input.UpdatedAt = stamp(last)
		out, err := f.svc.Update(ctx, seeded.ID, input)
		require.NoError(t, err)
		return out
	}

	report := update(seeded.UpdatedAt, UpdateInput{Status: strPtr("exported")})
	assert.Equal(t, 1, f.invoicer.calls)

	report = update(report.UpdatedAt, UpdateInput{Status: strPtr("exported"), Remarks: strPtr("resent")})
	assert.Equal(t, 1, f.invoicer.calls)

	report = update(report.UpdatedAt, UpdateInput{Status: strPtr("completed")})
	update(report.UpdatedAt, UpdateInput{Status: strPtr("exported")})
	assert.Equal(t, 2, f.invoicer.calls)

	var invoices int64
	require.NoError(t, f.conn.Model(&models.Invoice{}).Where("report_id = ?", seeded.ID).Count(&invoices).Error)
	assert.EqualValues(t, 2, invoices)
}

func TestExportRollsBackWhenInvoicingFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	report := dbtest.SeedReport(t, f.conn)
	item := dbtest.SeedItem(t, f.conn, "Wiper", "4", "9")
	f.invoicer.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "allocate invoice number")

	parts := []inventory.UsageInput{{InventoryItemID: item.ID, QuantityUsed: dec("2")}}
	_, err := f.svc.Update(ctx, report.ID, UpdateInput{
		Status:    strPtr("exported"),
		Parts:     &parts,
		UpdatedAt: stamp(report.UpdatedAt),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	got, err := f.svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReportStatusPending, got.Status)
	assert.Empty(t, got.Parts)
	assertBalance(t, f.conn, item.ID, "4")
}

func TestDeleteReportRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)
	oil := dbtest.SeedTaskTemplate(t, f.conn, "Oil Change", "29.99")
	filter := dbtest.SeedItem(t, f.conn, "Oil Filter", "10", "12.50")

	report, err := f.svc.Create(ctx, CreateInput{
		VehicleID:       vehicle.ID,
		TaskTemplateIDs: []uuid.UUID{oil.ID},
		Parts:           []inventory.UsageInput{{InventoryItemID: filter.ID, QuantityUsed: dec("2.25")}},
	})
	require.NoError(t, err)
	assertBalance(t, f.conn, filter.ID, "7.75")

	require.NoError(t, f.svc.Delete(ctx, report.ID))
	assertBalance(t, f.conn, filter.ID, "10")

	var tasks int64
	require.NoError(t, f.conn.Model(&models.ReportTask{}).Count(&tasks).Error)
	assert.Zero(t, tasks)

	assert.True(t, pkgerrors.IsCode(f.svc.Delete(ctx, report.ID), pkgerrors.CodeNotFound))
}

func TestListReportsFiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := dbtest.SeedOwner(t, f.conn, "Ada", "Lovelace")
	alan := dbtest.SeedOwner(t, f.conn, "Alan", "Turing")
	yaris := dbtest.SeedVehicle(t, f.conn, ada.ID, "Toyota", "Yaris", "R-1")
	bmw := dbtest.SeedVehicle(t, f.conn, alan.ID, "BMW", "320", "R-2")
	corolla := dbtest.SeedVehicle(t, f.conn, alan.ID, "Toyota", "Corolla", "R-3")

	for _, seed := range []struct {
		vehicle models.Vehicle
		status  enums.ReportStatus
	}{
		{yaris, enums.ReportStatusPending},
		{bmw, enums.ReportStatusCompleted},
		{corolla, enums.ReportStatusExported},
	} {
		require.NoError(t, f.conn.Create(&models.Report{ID: uuid.New(), VehicleID: seed.vehicle.ID, Status: seed.status}).Error)
	}

	res, err := f.svc.List(ctx, ListInput{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Nil(t, res.Meta)
	assert.Equal(t, "BMW", res.Items[0].Vehicle.Brand)
	assert.Equal(t, "Corolla", res.Items[1].Vehicle.Model)
	assert.Equal(t, "Yaris", res.Items[2].Vehicle.Model)

	res, err = f.svc.List(ctx, ListInput{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, yaris.ID, res.Items[0].VehicleID)

	res, err = f.svc.List(ctx, ListInput{StatusIn: "completed,exported"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = f.svc.List(ctx, ListInput{VehicleBrand: "Toyota", OwnerID: &alan.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, corolla.ID, res.Items[0].VehicleID)

	res, err = f.svc.List(ctx, ListInput{Ordering: "-vehicle__model", Page: pagination.Params{Enabled: true, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Yaris", res.Items[0].Vehicle.Model)
	assert.EqualValues(t, 3, res.Meta.Count)

	_, err = f.svc.List(ctx, ListInput{StatusIn: "pending,lost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(ctx, ListInput{Ordering: "vehicle__year"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListTasksAndParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vehicle := seedVehicle(t, f.conn)
	tire := dbtest.SeedTaskTemplate(t, f.conn, "Tire Rotation", "15.00")
	belt := dbtest.SeedItem(t, f.conn, "Timing Belt", "8", "120")

	report, err := f.svc.Create(ctx, CreateInput{
		VehicleID:       vehicle.ID,
		TaskTemplateIDs: []uuid.UUID{tire.ID},
		Parts:           []inventory.UsageInput{{InventoryItemID: belt.ID, QuantityUsed: dec("1")}},
	})
	require.NoError(t, err)

	tasks, err := f.svc.ListTasks(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "15.00", tasks[0].Price)

	parts, err := f.svc.ListParts(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "Timing Belt", parts[0].InventoryItemName)

	_, err = f.svc.ListTasks(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.ListParts(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
