// Package reports aggregates the operation log and shift history into
// read-only views. Nothing here mutates stock; reports recompute from the
// entity store and cache the result in Redis.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkRow summarises one employee's output over a period.
type WorkRow struct {
	EmployeeID int64           `json:"employee_id"`
	Operations int             `json:"operations"`
	Qty        decimal.Decimal `json:"qty"`
	Pay        decimal.Decimal `json:"pay"`
}

// WorkSummary is the per-employee output report plus period totals.
type WorkSummary struct {
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Rows     []WorkRow       `json:"rows"`
	TotalQty decimal.Decimal `json:"total_qty"`
	TotalPay decimal.Decimal `json:"total_pay"`
}

// ProductivityRow combines output with worked hours for one employee.
// Productivity is units per hour at two decimals; zero when no closed
// shifts fall in the period.
type ProductivityRow struct {
	EmployeeID   int64           `json:"employee_id"`
	Qty          decimal.Decimal `json:"qty"`
	Pay          decimal.Decimal `json:"pay"`
	Hours        decimal.Decimal `json:"hours"`
	Productivity decimal.Decimal `json:"productivity"`
}

// ProductivityReport is the per-employee productivity view.
type ProductivityReport struct {
	From time.Time         `json:"from"`
	To   time.Time         `json:"to"`
	Rows []ProductivityRow `json:"rows"`
}
