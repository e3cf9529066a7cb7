package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/batches"
	"github.com/atelierops/atelier/internal/catalog"
	"github.com/atelierops/atelier/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL. Row locks are taken with
// SELECT ... FOR UPDATE as an explicit operation; the lock lives until the
// surrounding transaction commits or rolls back.
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

// WithTx runs fn inside one repeatable-read transaction. Any error from fn
// rolls back every mutation made through the TxRepository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ledger: parse numeric %q: %w", s, err)
	}
	return d, nil
}

func (r *txRepository) GetBatchForUpdate(ctx context.Context, id int64) (batches.Batch, error) {
	var b batches.Batch
	var planned string
	err := r.tx.QueryRow(ctx, `SELECT id, name, product_id, planned_qty::text, status, created_by, created_at
FROM batches WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.Name, &b.ProductID, &planned, &b.Status, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return batches.Batch{}, ErrBatchNotFound
		}
		return batches.Batch{}, err
	}
	if b.PlannedQty, err = parseNumeric(planned); err != nil {
		return batches.Batch{}, err
	}
	return b, nil
}

func (r *txRepository) SetBatchStatus(ctx context.Context, id int64, status batches.Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE batches SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	var stock, rate string
	err := r.tx.QueryRow(ctx, `SELECT id, name, stock::text, piece_rate::text, is_active, created_at
FROM products WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &stock, &rate, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, ErrProductNotFound
		}
		return catalog.Product{}, err
	}
	if p.Stock, err = parseNumeric(stock); err != nil {
		return catalog.Product{}, err
	}
	if p.PieceRate, err = parseNumeric(rate); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (r *txRepository) GetMaterialForUpdate(ctx context.Context, id int64) (catalog.Material, error) {
	var m catalog.Material
	var stock string
	err := r.tx.QueryRow(ctx, `SELECT id, name, unit, stock::text, is_active, created_at
FROM materials WHERE id = $1 FOR UPDATE`, id).
		Scan(&m.ID, &m.Name, &m.Unit, &stock, &m.IsActive, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Material{}, ErrMaterialNotFound
		}
		return catalog.Material{}, err
	}
	if m.Stock, err = parseNumeric(stock); err != nil {
		return catalog.Material{}, err
	}
	return m, nil
}

func (r *txRepository) RecipeForProduct(ctx context.Context, productID int64) ([]catalog.BOMLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT b.id, b.product_id, b.material_id, m.name, m.unit, b.qty_per_one::text
FROM bill_of_materials b
JOIN materials m ON m.id = b.material_id
WHERE b.product_id = $1
ORDER BY b.material_id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []catalog.BOMLine
	for rows.Next() {
		var line catalog.BOMLine
		var qty string
		if err := rows.Scan(&line.ID, &line.ProductID, &line.MaterialID, &line.MaterialName, &line.MaterialUnit, &qty); err != nil {
			return nil, err
		}
		if line.QtyPerOne, err = parseNumeric(qty); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) UpdateMaterialStock(ctx context.Context, id int64, stock decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE materials SET stock = $1::numeric WHERE id = $2`, stock.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMaterialNotFound
	}
	return nil
}

func (r *txRepository) UpdateProductStock(ctx context.Context, id int64, stock decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock = $1::numeric WHERE id = $2`, stock.String(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertOperation(ctx context.Context, op ProductionOperation) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO production_operations (employee_id, product_id, batch_id, qty, pay_rate, pay_total, note, created_at)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8) RETURNING id`,
		op.EmployeeID, op.ProductID, op.BatchID, op.Qty.String(), op.PayRate.String(), op.PayTotal.String(), op.Note, op.CreatedAt).
		Scan(&id)
	return id, err
}

func (r *txRepository) InsertMovement(ctx context.Context, mv StockMovement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (movement_type, qty, material_id, product_id, operation_id, comment, created_at)
VALUES ($1, $2::numeric, $3, $4, $5, $6, $7) RETURNING id`,
		string(mv.Type), mv.Qty.String(), mv.MaterialID, mv.ProductID, mv.OperationID, mv.Comment, mv.CreatedAt).
		Scan(&id)
	return id, err
}

func (r *txRepository) InsertAdjustment(ctx context.Context, adj StockAdjustment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_adjustments (created_by, target_type, material_id, product_id, movement_type, qty, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8) RETURNING id`,
		adj.CreatedBy, string(adj.TargetType), adj.MaterialID, adj.ProductID, string(adj.MovementType), adj.Qty.String(), adj.Reason, adj.CreatedAt).
		Scan(&id)
	return id, err
}

// ListMovements returns journal entries newest first, filtered by creation
// time, plus the total count for pagination.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, int, error) {
	query := `SELECT id, movement_type, qty::text, material_id, product_id, operation_id, comment, created_at FROM stock_movements WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM stock_movements WHERE 1=1`
	args := []any{}
	n := 0
	if !filter.From.IsZero() {
		n++
		clause := ` AND created_at >= $` + strconv.Itoa(n)
		query += clause
		countQuery += clause
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		n++
		clause := ` AND created_at <= $` + strconv.Itoa(n)
		query += clause
		countQuery += clause
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var mv StockMovement
		var qty string
		if err := rows.Scan(&mv.ID, &mv.Type, &qty, &mv.MaterialID, &mv.ProductID, &mv.OperationID, &mv.Comment, &mv.CreatedAt); err != nil {
			return nil, 0, err
		}
		if mv.Qty, err = parseNumeric(qty); err != nil {
			return nil, 0, err
		}
		movements = append(movements, mv)
	}
	return movements, total, rows.Err()
}

// ListAdjustments returns adjustments newest first plus the total count.
func (r *Repository) ListAdjustments(ctx context.Context, page, perPage int) ([]StockAdjustment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_adjustments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if perPage <= 0 {
		perPage = 50
	}
	if page < 1 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `SELECT id, created_by, target_type, material_id, product_id, movement_type, qty::text, reason, created_at
FROM stock_adjustments ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var adjustments []StockAdjustment
	for rows.Next() {
		var adj StockAdjustment
		var qty string
		if err := rows.Scan(&adj.ID, &adj.CreatedBy, &adj.TargetType, &adj.MaterialID, &adj.ProductID, &adj.MovementType, &qty, &adj.Reason, &adj.CreatedAt); err != nil {
			return nil, 0, err
		}
		if adj.Qty, err = parseNumeric(qty); err != nil {
			return nil, 0, err
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, total, rows.Err()
}
