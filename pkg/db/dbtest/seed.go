package dbtest

import (
	"testing"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedOwner inserts an owner.
func SeedOwner(t testing.TB, conn *gorm.DB, first, last string) models.Owner {
	t.Helper()
	owner := models.Owner{
		ID:        uuid.New(),
		FirstName: first,
		LastName:  last,
		Email:     first + "@example.com",
		Phone:     "555-0100",
	}
	if err := conn.Create(&owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return owner
}

// SeedVehicle inserts a vehicle for the owner.
func SeedVehicle(t testing.TB, conn *gorm.DB, ownerID uuid.UUID, brand, model, plate string) models.Vehicle {
	t.Helper()
	vehicle := models.Vehicle{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Brand:        brand,
		Model:        model,
		LicensePlate: plate,
		Year:         2018,
	}
	if err := conn.Create(&vehicle).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return vehicle
}

// SeedReport inserts an owner, a vehicle and a pending report on it.
func SeedReport(t testing.TB, conn *gorm.DB) models.Report {
	t.Helper()
	owner := SeedOwner(t, conn, "Ada", "Lovelace")
	vehicle := SeedVehicle(t, conn, owner.ID, "Toyota", "Corolla", "AB-"+uuid.NewString()[:8])
	report := models.Report{
		ID:        uuid.New(),
		VehicleID: vehicle.ID,
		Status:    enums.ReportStatusPending,
	}
	if err := conn.Create(&report).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return report
}

// SeedItem inserts an inventory item with the given balance and price.
func SeedItem(t testing.TB, conn *gorm.DB, name string, qty, price string) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:              uuid.New(),
		Name:            name,
		ReferenceCode:   name + "-" + uuid.NewString()[:8],
		Category:        "Engine",
		QuantityInStock: decimal.RequireFromString(qty),
		UnitPrice:       decimal.RequireFromString(price),
	}
	if err := conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

// SeedTaskTemplate inserts a task template.
func SeedTaskTemplate(t testing.TB, conn *gorm.DB, name, price string) models.TaskTemplate {
	t.Helper()
	tmpl := models.TaskTemplate{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
	if err := conn.Create(&tmpl).Error; err != nil {
		t.Fatalf("seed task template: %v", err)
	}
	return tmpl
}

// Balance reads an item's current stock.
func Balance(t testing.TB, conn *gorm.DB, itemID uuid.UUID) decimal.Decimal {
	t.Helper()
	var item models.InventoryItem
	if err := conn.Where("id = ?", itemID).Take(&item).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	return item.QuantityInStock
}
