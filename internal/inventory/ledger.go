package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UsageInput is one part line to record against a report.
type UsageInput struct {
	InventoryItemID uuid.UUID
	QuantityUsed    decimal.Decimal
}

// Ledger keeps inventory balances equal to the initial stock minus every live part usage.
// All methods run inside the caller's transaction so the balance moves and the usage row
// mutation commit or roll back together.
type Ledger struct {
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewLedger builds a ledger. A nil metrics value disables instrumentation.
func NewLedger(m *metrics.LedgerMetrics) *Ledger {
	return &Ledger{metrics: m, logg: logger.Nop()}
}

// WithLogger routes ledger events to logg.
func (l *Ledger) WithLogger(logg *logger.Logger) *Ledger {
	if logg != nil {
		l.logg = logg
	}
	return l
}

// RecordUsage deducts qty from the item and inserts the usage row.
func (l *Ledger) RecordUsage(ctx context.Context, tx *gorm.DB, reportID, itemID uuid.UUID, qty decimal.Decimal) (*models.PartUsage, error) {
	usage, err := l.recordUsage(ctx, tx, reportID, itemID, qty)
	l.observe(metrics.LedgerOpRecord, err)
	return usage, err
}

// ReviseUsage restores the old quantity to the old item, then deducts newQty from newItemID
// and repoints the usage. The availability check therefore sees the restored balance, so
// lowering the quantity on the same item never fails.
func (l *Ledger) ReviseUsage(ctx context.Context, tx *gorm.DB, usageID, newItemID uuid.UUID, newQty decimal.Decimal) (*models.PartUsage, error) {
	usage, err := l.reviseUsage(ctx, tx, usageID, newItemID, newQty)
	l.observe(metrics.LedgerOpRevise, err)
	return usage, err
}

// RemoveUsage gives the usage quantity back to its item and deletes the row.
func (l *Ledger) RemoveUsage(ctx context.Context, tx *gorm.DB, usageID uuid.UUID) error {
	err := l.removeUsage(ctx, tx, usageID)
	l.observe(metrics.LedgerOpRemove, err)
	return err
}

// ReplaceForReport removes every usage of the report and then records inputs in order.
// Stock freed by the removals is available to the new usages.
func (l *Ledger) ReplaceForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, inputs []UsageInput) ([]models.PartUsage, error) {
	usages, err := l.replaceForReport(ctx, tx, reportID, inputs)
	l.observe(metrics.LedgerOpReplace, err)
	return usages, err
}

// RemoveAllForReport restores the stock held by every usage of the report.
func (l *Ledger) RemoveAllForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) error {
	err := l.removeAllForReport(ctx, tx, reportID)
	l.observe(metrics.LedgerOpRemove, err)
	return err
}

func (l *Ledger) recordUsage(ctx context.Context, tx *gorm.DB, reportID, itemID uuid.UUID, qty decimal.Decimal) (*models.PartUsage, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for ledger operation")
	}
	if err := ValidateQuantity(qty); err != nil {
		return nil, err
	}
	if err := l.deduct(ctx, tx, itemID, qty); err != nil {
		return nil, err
	}

	now := db.Now()
	usage := &models.PartUsage{
		ID:              uuid.New(),
		ReportID:        reportID,
		InventoryItemID: itemID,
		QuantityUsed:    qty,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(usage).Error; err != nil {
		return nil, db.Classify(err, "db: insert part usage")
	}
	logCtx := l.logg.WithReportID(ctx, reportID.String())
	logCtx = l.logg.WithItemID(logCtx, itemID.String())
	l.logg.Debug(l.logg.WithField(logCtx, "quantity", qty.StringFixed(2)), "ledger.usage.recorded")
	return usage, nil
}

func (l *Ledger) reviseUsage(ctx context.Context, tx *gorm.DB, usageID, newItemID uuid.UUID, newQty decimal.Decimal) (*models.PartUsage, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for ledger operation")
	}
	if err := ValidateQuantity(newQty); err != nil {
		return nil, err
	}
	usage, err := lockUsage(ctx, tx, usageID)
	if err != nil {
		return nil, err
	}

	if err := l.restore(ctx, tx, usage.InventoryItemID, usage.QuantityUsed); err != nil {
		return nil, err
	}
	if err := l.deduct(ctx, tx, newItemID, newQty); err != nil {
		return nil, err
	}

	usage.InventoryItemID = newItemID
	usage.QuantityUsed = newQty
	usage.InventoryItem = nil
	usage.UpdatedAt = db.Now()
	res := tx.WithContext(ctx).Model(&models.PartUsage{}).
		Where("id = ?", usage.ID).
		Updates(map[string]any{
			"inventory_item_id": newItemID,
			"quantity_used":     newQty,
			"updated_at":        usage.UpdatedAt,
		})
	if res.Error != nil {
		return nil, db.Classify(res.Error, "db: update part usage")
	}
	return usage, nil
}

func (l *Ledger) removeUsage(ctx context.Context, tx *gorm.DB, usageID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for ledger operation")
	}
	usage, err := lockUsage(ctx, tx, usageID)
	if err != nil {
		return err
	}
	return l.release(ctx, tx, *usage)
}

func (l *Ledger) replaceForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID, inputs []UsageInput) ([]models.PartUsage, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for ledger operation")
	}
	for _, input := range inputs {
		if err := ValidateQuantity(input.QuantityUsed); err != nil {
			return nil, err
		}
	}
	if err := l.removeAllForReport(ctx, tx, reportID); err != nil {
		return nil, err
	}

	usages := make([]models.PartUsage, 0, len(inputs))
	for _, input := range inputs {
		usage, err := l.recordUsage(ctx, tx, reportID, input.InventoryItemID, input.QuantityUsed)
		if err != nil {
			return nil, err
		}
		usages = append(usages, *usage)
	}
	return usages, nil
}

func (l *Ledger) removeAllForReport(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for ledger operation")
	}
	var existing []models.PartUsage
	if err := db.ForUpdate(tx.WithContext(ctx)).
		Where("report_id = ?", reportID).
		Find(&existing).Error; err != nil {
		return db.Classify(err, "db: load report part usages")
	}

	// Restore in item order so concurrent replacements lock rows in a consistent sequence.
	sort.Slice(existing, func(i, j int) bool {
		return existing[i].InventoryItemID.String() < existing[j].InventoryItemID.String()
	})
	for _, usage := range existing {
		if err := l.release(ctx, tx, usage); err != nil {
			return err
		}
	}
	return nil
}

// release restores a usage's stock and deletes the usage row.
func (l *Ledger) release(ctx context.Context, tx *gorm.DB, usage models.PartUsage) error {
	if err := l.restore(ctx, tx, usage.InventoryItemID, usage.QuantityUsed); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(&models.PartUsage{}, "id = ?", usage.ID).Error; err != nil {
		return db.Classify(err, "db: delete part usage")
	}
	return nil
}

// deduct subtracts qty only while the balance covers it. The UPDATE takes the row lock and
// re-evaluates the guard once the lock is granted, so concurrent writers cannot both pass.
func (l *Ledger) deduct(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty decimal.Decimal) error {
	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET quantity_in_stock = quantity_in_stock - ?,
			updated_at = ?
		WHERE id = ? AND quantity_in_stock >= ?
	`, qty, db.Now(), itemID, qty)
	if res.Error != nil {
		return db.Classify(res.Error, "db: deduct inventory")
	}
	if res.RowsAffected == 1 {
		db.AfterCommit(tx, func() { l.metrics.Moved(metrics.DirectionDeducted, qty) })
		return nil
	}

	var item models.InventoryItem
	if err := tx.WithContext(ctx).Where("id = ?", itemID).Take(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return itemNotFound(itemID)
		}
		return db.Classify(err, "db: load inventory item")
	}
	logCtx := l.logg.WithItemID(ctx, item.ID.String())
	l.logg.Warn(l.logg.WithFields(logCtx, map[string]any{
		"requested": qty.StringFixed(2),
		"available": item.QuantityInStock.StringFixed(2),
	}), "ledger.usage.rejected")
	return insufficientStock(item.ID, item.Name, qty, item.QuantityInStock)
}

func (l *Ledger) restore(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty decimal.Decimal) error {
	res := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET quantity_in_stock = quantity_in_stock + ?,
			updated_at = ?
		WHERE id = ?
	`, qty, db.Now(), itemID)
	if res.Error != nil {
		return db.Classify(res.Error, "db: restore inventory")
	}
	if res.RowsAffected == 0 {
		return itemNotFound(itemID)
	}
	db.AfterCommit(tx, func() { l.metrics.Moved(metrics.DirectionRestored, qty) })
	return nil
}

func (l *Ledger) observe(operation string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case isInsufficient(err):
		outcome = metrics.OutcomeInsufficientStock
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		outcome = metrics.OutcomeNotFound
	default:
		outcome = metrics.OutcomeError
	}
	l.metrics.Observe(operation, outcome)
}

func isInsufficient(err error) bool {
	_, ok := AsInsufficientStock(err)
	return ok
}

func lockUsage(ctx context.Context, tx *gorm.DB, usageID uuid.UUID) (*models.PartUsage, error) {
	var usage models.PartUsage
	if err := db.ForUpdate(tx.WithContext(ctx)).Where("id = ?", usageID).Take(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usageNotFound(usageID)
		}
		return nil, db.Classify(err, "db: load part usage")
	}
	return &usage, nil
}

// ValidateQuantity enforces a positive quantity with at most two decimal places.
func ValidateQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "Quantity used must be greater than zero.").
			WithDetails(map[string]any{"quantity_used": qty.String()})
	}
	if !qty.Equal(qty.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "Quantity used supports at most two decimal places.").
			WithDetails(map[string]any{"quantity_used": qty.String()})
	}
	return nil
}
