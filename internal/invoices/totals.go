package invoices

import (
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// TaskLine is one billed task.
type TaskLine struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	VAT   string `json:"vat"`
	Total string `json:"total"`
}

// PartLine is one billed part.
type PartLine struct {
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  string `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	VAT       string `json:"vat"`
	Total     string `json:"total"`
}

// Totals is the priced breakdown of a report.
type Totals struct {
	Tasks      []TaskLine `json:"tasks"`
	Parts      []PartLine `json:"parts"`
	NetTotal   string     `json:"net_total"`
	VATTotal   string     `json:"vat_total"`
	FinalTotal string     `json:"final_total"`
}

// ComputeTotals prices the report lines with the given VAT rate. Amounts are accumulated at
// full precision and rounded to cents only when formatted.
func ComputeTotals(tasks []models.ReportTask, parts []models.PartUsage, rate decimal.Decimal) Totals {
	out := Totals{
		Tasks: make([]TaskLine, 0, len(tasks)),
		Parts: make([]PartLine, 0, len(parts)),
	}
	net := decimal.Zero

	for _, task := range tasks {
		name, price := "", decimal.Zero
		if task.TaskTemplate != nil {
			name, price = task.TaskTemplate.Name, task.TaskTemplate.Price
		}
		vat := price.Mul(rate)
		out.Tasks = append(out.Tasks, TaskLine{
			Name:  name,
			Price: money(price),
			VAT:   money(vat),
			Total: money(price.Add(vat)),
		})
		net = net.Add(price)
	}

	for _, part := range parts {
		name, unit := "", decimal.Zero
		if part.InventoryItem != nil {
			name, unit = part.InventoryItem.Name, part.InventoryItem.UnitPrice
		}
		subtotal := unit.Mul(part.QuantityUsed)
		vat := subtotal.Mul(rate)
		out.Parts = append(out.Parts, PartLine{
			Name:      name,
			UnitPrice: money(unit),
			Quantity:  part.QuantityUsed.StringFixed(2),
			Subtotal:  money(subtotal),
			VAT:       money(vat),
			Total:     money(subtotal.Add(vat)),
		})
		net = net.Add(subtotal)
	}

	vatTotal := net.Mul(rate)
	out.NetTotal = money(net)
	out.VATTotal = money(vatTotal)
	out.FinalTotal = money(net.Add(vatTotal))
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
