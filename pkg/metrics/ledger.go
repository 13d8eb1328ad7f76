package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Ledger operation and outcome label values.
const (
	LedgerOpRecord  = "record"
	LedgerOpRevise  = "revise"
	LedgerOpRemove  = "remove"
	LedgerOpReplace = "replace"

	OutcomeSuccess           = "success"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotFound          = "not_found"
	OutcomeError             = "error"

	DirectionDeducted = "deducted"
	DirectionRestored = "restored"
)

// LedgerMetrics counts inventory ledger operations and the stock they moved.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	moved      *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_usage_operations_total",
		Help: "Inventory ledger operations by outcome.",
	}, []string{"operation", "outcome"})
	moved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_quantity_moved_total",
		Help: "Stock quantity deducted from or restored to inventory items.",
	}, []string{"direction"})
	reg.MustRegister(operations, moved)
	return &LedgerMetrics{operations: operations, moved: moved}
}

// Observe records the outcome of a ledger operation.
func (l *LedgerMetrics) Observe(operation, outcome string) {
	if l == nil || l.operations == nil {
		return
	}
	l.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// Moved adds qty to the counter for the given direction.
func (l *LedgerMetrics) Moved(direction string, qty decimal.Decimal) {
	if l == nil || l.moved == nil || !qty.IsPositive() {
		return
	}
	l.moved.WithLabelValues(normalizeLabel(direction)).Add(qty.InexactFloat64())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
