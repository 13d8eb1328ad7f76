package owners

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/dbtest"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *inventory.Ledger) {
	t.Helper()
	conn := dbtest.Open(t)
	ledger := inventory.NewLedger(nil)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), ledger)
	require.NoError(t, err)
	return svc, conn, ledger
}

func ptr(v string) *string { return &v }

func TestCreateAndGetOwner(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{FirstName: " Grace ", LastName: "Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", created.FullName)

	dbtest.SeedVehicle(t, conn, created.ID, "Ford", "Focus", "GH-001")
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.VehicleCount)

	_, err = svc.Create(ctx, CreateInput{FirstName: "No", LastName: "Mail", Email: "not-an-email"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListOwnersFiltersByNameAndEmail(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	dbtest.SeedOwner(t, conn, "Alan", "Turing")
	dbtest.SeedOwner(t, conn, "Ada", "Lovelace")
	dbtest.SeedOwner(t, conn, "Alonzo", "Church")

	res, err := svc.List(ctx, ListInput{FullName: "al"})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Alan Turing", res.Items[0].FullName)

	res, err = svc.List(ctx, ListInput{FullName: "ada love"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	res, err = svc.List(ctx, ListInput{Email: "ALONZO@"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	res, err = svc.List(ctx, ListInput{Ordering: "-full_name", Page: pagination.Params{Enabled: true, Limit: 1}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Alonzo Church", res.Items[0].FullName)
	assert.EqualValues(t, 3, res.Meta.Count)
}

func TestUpdateOwnerRequiresFreshTimestamp(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedOwner(t, conn, "Linus", "Torvalds")

	stale := owner.UpdatedAt.Format(time.RFC3339Nano)
	time.Sleep(time.Millisecond)
	updated, err := svc.Update(ctx, owner.ID, UpdateInput{Phone: ptr("555-0199"), UpdatedAt: &stale})
	require.NoError(t, err)
	assert.Equal(t, "555-0199", updated.Phone)

	_, err = svc.Update(ctx, owner.ID, UpdateInput{Phone: ptr("555-0000"), UpdatedAt: &stale})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStaleRecord))

	_, err = svc.Update(ctx, owner.ID, UpdateInput{Phone: ptr("555-0000")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteOwnerRestoresStockOfCascadedReports(t *testing.T) {
	svc, conn, ledger := newTestService(t)
	ctx := context.Background()
	report := dbtest.SeedReport(t, conn)
	item := dbtest.SeedItem(t, conn, "Clutch", "5", "300")

	require.NoError(t, db.Wrap(conn).WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.RecordUsage(ctx, tx, report.ID, item.ID, decimal.NewFromInt(2))
		return err
	}))
	require.True(t, dbtest.Balance(t, conn, item.ID).Equal(decimal.NewFromInt(3)))

	var vehicle models.Vehicle
	require.NoError(t, conn.Where("id = ?", report.VehicleID).Take(&vehicle).Error)

	require.NoError(t, svc.Delete(ctx, vehicle.OwnerID))
	assert.True(t, dbtest.Balance(t, conn, item.ID).Equal(decimal.NewFromInt(5)))

	var reports int64
	require.NoError(t, conn.Model(&models.Report{}).Count(&reports).Error)
	assert.Zero(t, reports)

	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, vehicle.OwnerID), pkgerrors.CodeNotFound))
}
