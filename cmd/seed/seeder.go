package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/garage-backend/internal/tasktemplates"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

type itemSeed struct {
	Name     string
	Code     string
	Category string
	Quantity int64
	Price    string
}

type templateSeed struct {
	Name        string
	Description string
	Price       string
}

var inventorySeeds = []itemSeed{
	{"Air Filter", "AF123", "Engine", 50, "15.99"},
	{"Oil Filter", "OF456", "Engine", 60, "12.50"},
	{"Spark Plug", "SP789", "Engine", 100, "8.75"},
	{"Timing Belt", "TB234", "Engine", 20, "35.00"},
	{"Serpentine Belt", "SB567", "Engine", 30, "25.50"},
	{"Brake Pads", "BP890", "Brakes", 40, "45.00"},
	{"Brake Rotors", "BR345", "Brakes", 25, "80.00"},
	{"Shock Absorbers", "SA678", "Suspension", 15, "120.00"},
	{"Struts", "ST901", "Suspension", 10, "150.00"},
	{"Control Arm", "CA234", "Suspension", 20, "90.00"},
	{"Tie Rod End", "TRE567", "Steering", 35, "40.00"},
	{"Battery", "BAT789", "Electrical", 25, "110.00"},
	{"Alternator", "ALT456", "Electrical", 12, "200.00"},
	{"Starter Motor", "SM123", "Electrical", 15, "150.00"},
	{"Radiator", "RAD789", "Cooling", 18, "220.00"},
	{"Coolant", "COL567", "Fluids", 50, "20.00"},
	{"Brake Fluid", "BF234", "Fluids", 60, "10.00"},
	{"Muffler", "MUF890", "Exhaust", 10, "140.00"},
	{"Oxygen Sensor", "O2S345", "Exhaust", 30, "75.00"},
}

var templateSeeds = []templateSeed{
	{"Oil Change", "Replace engine oil and oil filter", "29.99"},
	{"Brake Inspection", "Inspect brake pads, rotors, and fluid levels", "19.99"},
	{"Tire Rotation", "Rotate tires for even wear", "15.00"},
	{"Battery Check", "Check battery health and terminals", "10.00"},
	{"Coolant Flush", "Flush and replace engine coolant", "49.99"},
}

// Summary counts what a seed run inserted and what it found already present.
type Summary struct {
	ItemsCreated     int
	ItemsSkipped     int
	TemplatesCreated int
	TemplatesSkipped int
}

type seeder struct {
	db        *gorm.DB
	templates *tasktemplates.Repository
	logg      *logger.Logger
}

func newSeeder(conn *gorm.DB, logg *logger.Logger) *seeder {
	return &seeder{db: conn, templates: tasktemplates.NewRepository(conn), logg: logg}
}

// Run inserts every missing reference row. A failing row does not stop the others; all
// failures are returned together.
func (s *seeder) Run(ctx context.Context, withInventory, withTemplates bool) (Summary, error) {
	var summary Summary
	var errs error

	if withInventory {
		for _, seed := range inventorySeeds {
			created, err := s.seedItem(ctx, seed)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("item %s: %w", seed.Code, err))
				continue
			}
			if created {
				summary.ItemsCreated++
			} else {
				summary.ItemsSkipped++
			}
		}
	}

	if withTemplates {
		for _, seed := range templateSeeds {
			created, err := s.seedTemplate(ctx, seed)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("task template %s: %w", seed.Name, err))
				continue
			}
			if created {
				summary.TemplatesCreated++
			} else {
				summary.TemplatesSkipped++
			}
		}
	}

	return summary, errs
}

func (s *seeder) seedItem(ctx context.Context, seed itemSeed) (bool, error) {
	ctx = s.logg.WithField(ctx, "reference_code", seed.Code)

	var existing models.InventoryItem
	err := s.db.WithContext(ctx).Where("reference_code = ?", seed.Code).Take(&existing).Error
	switch {
	case err == nil:
		s.logg.Info(ctx, "seed.inventory_item.skipped")
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	price, err := decimal.NewFromString(seed.Price)
	if err != nil {
		return false, err
	}
	item := models.InventoryItem{
		ID:              uuid.New(),
		Name:            seed.Name,
		ReferenceCode:   seed.Code,
		Category:        seed.Category,
		QuantityInStock: decimal.NewFromInt(seed.Quantity),
		UnitPrice:       price,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return false, err
	}
	s.logg.Info(ctx, "seed.inventory_item.created")
	return true, nil
}

func (s *seeder) seedTemplate(ctx context.Context, seed templateSeed) (bool, error) {
	_, err := s.templates.FindByName(ctx, seed.Name)
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithField(ctx, "name", seed.Name), "seed.task_template.skipped")
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	price, err := decimal.NewFromString(seed.Price)
	if err != nil {
		return false, err
	}
	tmpl := &models.TaskTemplate{
		ID:          uuid.New(),
		Name:        seed.Name,
		Description: seed.Description,
		Price:       price,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return false, err
	}
	s.logg.Info(s.logg.WithField(ctx, "name", seed.Name), "seed.task_template.created")
	return true, nil
}
