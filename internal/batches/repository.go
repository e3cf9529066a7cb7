package batches

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists batches in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func parseQty(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("batches: parse numeric %q: %w", s, err)
	}
	return d, nil
}

// Create inserts a batch in Planned status.
func (r *Repository) Create(ctx context.Context, b Batch) (Batch, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO batches (name, product_id, planned_qty, status, due_date, note, created_by)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7) RETURNING id, created_at`,
		b.Name, b.ProductID, b.PlannedQty.String(), string(StatusPlanned), b.DueDate, b.Note, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return Batch{}, err
	}
	b.Status = StatusPlanned
	return b, nil
}

// Get loads one batch with its product name.
func (r *Repository) Get(ctx context.Context, id int64) (Batch, error) {
	var b Batch
	var planned string
	err := r.pool.QueryRow(ctx, `SELECT b.id, b.name, b.product_id, p.name, b.planned_qty::text, b.status, b.due_date, b.note, b.created_by, b.created_at
FROM batches b JOIN products p ON p.id = b.product_id
WHERE b.id = $1`, id).
		Scan(&b.ID, &b.Name, &b.ProductID, &b.ProductName, &planned, &b.Status, &b.DueDate, &b.Note, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, ErrNotFound
		}
		return Batch{}, err
	}
	if b.PlannedQty, err = parseQty(planned); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// SetStatus updates the lifecycle status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE batches SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DoneQty sums the operation quantities linked to the batch.
func (r *Repository) DoneQty(ctx context.Context, batchID int64) (decimal.Decimal, error) {
	var done string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(qty), 0)::text FROM production_operations WHERE batch_id = $1`, batchID).Scan(&done)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return parseQty(done)
}

// ListOpenWithDone returns Planned and InProgress batches, newest first,
// each with the summed operation quantity. The limit bounds the scan so the
// listing stays cheap for operational screens.
func (r *Repository) ListOpenWithDone(ctx context.Context, limit int) ([]Batch, []decimal.Decimal, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.name, b.product_id, p.name, b.planned_qty::text, b.status, b.due_date, b.note, b.created_by, b.created_at,
COALESCE(SUM(o.qty), 0)::text
FROM batches b
JOIN products p ON p.id = b.product_id
LEFT JOIN production_operations o ON o.batch_id = b.id
WHERE b.status IN ($1, $2)
GROUP BY b.id, p.name
ORDER BY b.created_at DESC
LIMIT $3`, string(StatusPlanned), string(StatusInProgress), limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var batches []Batch
	var done []decimal.Decimal
	for rows.Next() {
		var b Batch
		var planned, doneStr string
		if err := rows.Scan(&b.ID, &b.Name, &b.ProductID, &b.ProductName, &planned, &b.Status, &b.DueDate, &b.Note, &b.CreatedBy, &b.CreatedAt, &doneStr); err != nil {
			return nil, nil, err
		}
		if b.PlannedQty, err = parseQty(planned); err != nil {
			return nil, nil, err
		}
		d, err := parseQty(doneStr)
		if err != nil {
			return nil, nil, err
		}
		batches = append(batches, b)
		done = append(done, d)
	}
	return batches, done, rows.Err()
}
