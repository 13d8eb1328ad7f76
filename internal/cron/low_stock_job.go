package cron

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
)

const maxLoggedCodes = 20

type lowStockReader interface {
	LowStock(ctx context.Context, threshold decimal.Decimal) ([]models.InventoryItem, error)
}

// LowStockJob publishes how many items sit at or below the reorder threshold and logs their
// reference codes.
type LowStockJob struct {
	logg      *logger.Logger
	items     lowStockReader
	metrics   *metrics.JobMetrics
	threshold decimal.Decimal
}

func NewLowStockJob(logg *logger.Logger, items lowStockReader, m *metrics.JobMetrics, threshold int) (*LowStockJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative")
	}
	return &LowStockJob{logg: logg, items: items, metrics: m, threshold: decimal.NewFromInt(int64(threshold))}, nil
}

func (j *LowStockJob) Name() string { return "low-stock-sweep" }

func (j *LowStockJob) Run(ctx context.Context) error {
	items, err := j.items.LowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("query low stock: %w", err)
	}
	j.metrics.SetLowStock(len(items))
	if len(items) == 0 {
		return nil
	}

	codes := make([]string, 0, min(len(items), maxLoggedCodes))
	for _, item := range items[:min(len(items), maxLoggedCodes)] {
		codes = append(codes, item.ReferenceCode)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"count":     len(items),
		"threshold": j.threshold.String(),
		"items":     strings.Join(codes, ","),
	})
	j.logg.Warn(ctx, "inventory.low_stock")
	return nil
}
