package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists catalog data in PostgreSQL. NUMERIC columns travel as
// text and are parsed into decimals; they never pass through float64.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrInUse
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func parseStock(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("catalog: parse numeric %q: %w", s, err)
	}
	return d, nil
}

// ListMaterials returns materials matching the filter plus the total count.
func (r *Repository) ListMaterials(ctx context.Context, filter ListFilter) ([]Material, int, error) {
	query := `SELECT id, name, unit, stock::text, is_active, created_at FROM materials WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM materials WHERE 1=1`
	args := []any{}
	n := 0
	if filter.Search != "" {
		n++
		clause := ` AND name ILIKE $` + strconv.Itoa(n)
		query += clause
		countQuery += clause
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ActiveOnly {
		clause := ` AND is_active`
		query += clause
		countQuery += clause
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		var m Material
		var stock string
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &stock, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		if m.Stock, err = parseStock(stock); err != nil {
			return nil, 0, err
		}
		materials = append(materials, m)
	}
	return materials, total, rows.Err()
}

// GetMaterial loads one material by id.
func (r *Repository) GetMaterial(ctx context.Context, id int64) (Material, error) {
	var m Material
	var stock string
	err := r.pool.QueryRow(ctx, `SELECT id, name, unit, stock::text, is_active, created_at FROM materials WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Unit, &stock, &m.IsActive, &m.CreatedAt)
	if err != nil {
		return Material{}, mapPgError(err)
	}
	if m.Stock, err = parseStock(stock); err != nil {
		return Material{}, err
	}
	return m, nil
}

// CreateMaterial inserts a material. Initial stock is allowed at creation;
// afterwards only the ledger mutates it.
func (r *Repository) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO materials (name, unit, stock, is_active) VALUES ($1, $2, $3::numeric, $4) RETURNING id, created_at`,
		m.Name, m.Unit, m.Stock.String(), m.IsActive).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Material{}, mapPgError(err)
	}
	return m, nil
}

// UpdateMaterial updates descriptive fields. Stock is deliberately not
// touched here.
func (r *Repository) UpdateMaterial(ctx context.Context, id int64, m Material) error {
	tag, err := r.pool.Exec(ctx, `UPDATE materials SET name = $1, unit = $2, is_active = $3 WHERE id = $4`,
		m.Name, m.Unit, m.IsActive, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMaterial removes a material; referenced materials fail with ErrInUse.
func (r *Repository) DeleteMaterial(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns products matching the filter plus the total count.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	query := `SELECT id, name, stock::text, piece_rate::text, is_active, created_at FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	n := 0
	if filter.Search != "" {
		n++
		clause := ` AND name ILIKE $` + strconv.Itoa(n)
		query += clause
		countQuery += clause
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ActiveOnly {
		clause := ` AND is_active`
		query += clause
		countQuery += clause
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
		args = append(args, filter.PerPage, (page-1)*filter.PerPage)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var stock, rate string
		if err := rows.Scan(&p.ID, &p.Name, &stock, &rate, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		if p.Stock, err = parseStock(stock); err != nil {
			return nil, 0, err
		}
		if p.PieceRate, err = parseStock(rate); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProduct loads one product by id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	var stock, rate string
	err := r.pool.QueryRow(ctx, `SELECT id, name, stock::text, piece_rate::text, is_active, created_at FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &stock, &rate, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return Product{}, mapPgError(err)
	}
	if p.Stock, err = parseStock(stock); err != nil {
		return Product{}, err
	}
	if p.PieceRate, err = parseStock(rate); err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, stock, piece_rate, is_active) VALUES ($1, $2::numeric, $3::numeric, $4) RETURNING id, created_at`,
		p.Name, p.Stock.String(), p.PieceRate.String(), p.IsActive).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Product{}, mapPgError(err)
	}
	return p, nil
}

// UpdateProduct updates descriptive fields and the piece rate. Stock is
// deliberately not touched here.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET name = $1, piece_rate = $2::numeric, is_active = $3 WHERE id = $4`,
		p.Name, p.PieceRate.String(), p.IsActive, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product; referenced products fail with ErrInUse.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecipeForProduct returns the BOM lines for a product ordered by material
// id ascending, which is also the lock acquisition order used by the ledger.
// An empty slice means the product has no recipe.
func (r *Repository) RecipeForProduct(ctx context.Context, productID int64) ([]BOMLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.product_id, b.material_id, m.name, m.unit, b.qty_per_one::text
FROM bill_of_materials b
JOIN materials m ON m.id = b.material_id
WHERE b.product_id = $1
ORDER BY b.material_id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []BOMLine
	for rows.Next() {
		var line BOMLine
		var qty string
		if err := rows.Scan(&line.ID, &line.ProductID, &line.MaterialID, &line.MaterialName, &line.MaterialUnit, &qty); err != nil {
			return nil, err
		}
		if line.QtyPerOne, err = parseStock(qty); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// CreateBOMLine inserts one recipe line. A duplicate (product, material)
// pair maps to ErrDuplicate.
func (r *Repository) CreateBOMLine(ctx context.Context, line BOMLine) (BOMLine, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO bill_of_materials (product_id, material_id, qty_per_one) VALUES ($1, $2, $3::numeric) RETURNING id`,
		line.ProductID, line.MaterialID, line.QtyPerOne.String()).Scan(&line.ID)
	if err != nil {
		return BOMLine{}, mapPgError(err)
	}
	return line, nil
}

// UpdateBOMLine changes the per-unit quantity of an existing line.
func (r *Repository) UpdateBOMLine(ctx context.Context, id int64, qtyPerOne decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bill_of_materials SET qty_per_one = $1::numeric WHERE id = $2`, qtyPerOne.String(), id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBOMLine removes one recipe line.
func (r *Repository) DeleteBOMLine(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bill_of_materials WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
