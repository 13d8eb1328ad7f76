package inventory

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsufficientStockError reports that an item cannot cover a requested quantity.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %s, requested: %s",
		e.ItemName, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

// AsInsufficientStock extracts an InsufficientStockError from err's chain.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// insufficientStock builds the client facing validation error.
func insufficientStock(itemID uuid.UUID, name string, requested, available decimal.Decimal) error {
	cause := &InsufficientStockError{
		ItemID:    itemID,
		ItemName:  name,
		Requested: requested,
		Available: available,
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, cause, cause.Error()).WithDetails(map[string]any{
		"inventory_item_id": itemID.String(),
		"requested":         requested.StringFixed(2),
		"available":         available.StringFixed(2),
	})
}

func itemNotFound(itemID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
		WithDetails(map[string]any{"inventory_item_id": itemID.String()})
}

func usageNotFound(usageID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "part usage not found").
		WithDetails(map[string]any{"part_usage_id": usageID.String()})
}
