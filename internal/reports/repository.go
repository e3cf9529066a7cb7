package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads report aggregates from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reports: parse numeric %q: %w", s, err)
	}
	return d, nil
}

// WorkRows sums operation counts, quantities and pay per employee over the
// period, ordered by employee id.
func (r *Repository) WorkRows(ctx context.Context, from, to time.Time) ([]WorkRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT employee_id, COUNT(*), COALESCE(SUM(qty), 0)::text, COALESCE(SUM(pay_total), 0)::text
FROM production_operations
WHERE created_at >= $1 AND created_at <= $2
GROUP BY employee_id
ORDER BY employee_id ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkRow
	for rows.Next() {
		var row WorkRow
		var qty, pay string
		if err := rows.Scan(&row.EmployeeID, &row.Operations, &qty, &pay); err != nil {
			return nil, err
		}
		if row.Qty, err = parseNumeric(qty); err != nil {
			return nil, err
		}
		if row.Pay, err = parseNumeric(pay); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// HoursByEmployee sums closed-shift hours per employee for shifts started in
// the period. Open shifts contribute nothing; their hours do not exist yet.
func (r *Repository) HoursByEmployee(ctx context.Context, from, to time.Time) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT employee_id, COALESCE(SUM(hours), 0)::text
FROM shifts
WHERE started_at >= $1 AND started_at <= $2 AND ended_at IS NOT NULL
GROUP BY employee_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var employeeID int64
		var hoursStr string
		if err := rows.Scan(&employeeID, &hoursStr); err != nil {
			return nil, err
		}
		hours, err := parseNumeric(hoursStr)
		if err != nil {
			return nil, err
		}
		out[employeeID] = hours
	}
	return out, rows.Err()
}
