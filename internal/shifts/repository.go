package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/platform/db"
)

// Repository persists shifts in PostgreSQL. The partial unique index on
// (employee_id) WHERE ended_at IS NULL enforces the single-open-shift rule
// even under concurrent starts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Create inserts an open shift. A unique violation on the open-shift index
// maps to ErrShiftAlreadyOpen.
func (r *Repository) Create(ctx context.Context, s Shift) (Shift, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO shifts (employee_id, started_at, note)
VALUES ($1, $2, $3) RETURNING id`, s.EmployeeID, s.StartedAt, s.Note).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Shift{}, ErrShiftAlreadyOpen
		}
		return Shift{}, err
	}
	return s, nil
}

// OpenByEmployee returns the employee's running shift.
func (r *Repository) OpenByEmployee(ctx context.Context, employeeID int64) (Shift, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, employee_id, started_at, ended_at, hours::text, note
FROM shifts WHERE employee_id = $1 AND ended_at IS NULL`, employeeID)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shift{}, ErrNoActiveShift
		}
		return Shift{}, err
	}
	return s, nil
}

// ListByEmployee returns the employee's shifts started within [from, to],
// oldest first.
func (r *Repository) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]Shift, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, employee_id, started_at, ended_at, hours::text, note
FROM shifts WHERE employee_id = $1 AND started_at >= $2 AND started_at <= $3
ORDER BY started_at ASC`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Shift, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, employee_id, started_at, ended_at, hours::text, note
FROM shifts WHERE id = $1 FOR UPDATE`, id)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shift{}, ErrNoActiveShift
		}
		return Shift{}, err
	}
	return s, nil
}

func (r *txRepository) Close(ctx context.Context, id int64, endedAt time.Time, hours decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE shifts SET ended_at = $1, hours = $2::numeric WHERE id = $3 AND ended_at IS NULL`,
		endedAt, hours.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveShift
	}
	return nil
}

func scanShift(row pgx.Row) (Shift, error) {
	var s Shift
	var hours *string
	if err := row.Scan(&s.ID, &s.EmployeeID, &s.StartedAt, &s.EndedAt, &hours, &s.Note); err != nil {
		return Shift{}, err
	}
	if hours != nil {
		d, err := decimal.NewFromString(*hours)
		if err != nil {
			return Shift{}, fmt.Errorf("shifts: parse hours %q: %w", *hours, err)
		}
		s.Hours = &d
	}
	return s, nil
}
