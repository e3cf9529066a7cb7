package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Unit enumerates measurement units for materials.
type Unit string

const (
	UnitPiece    Unit = "pcs"
	UnitMeter    Unit = "m"
	UnitKilogram Unit = "kg"
)

// Valid reports whether the unit is one of the supported values.
func (u Unit) Valid() bool {
	switch u {
	case UnitPiece, UnitMeter, UnitKilogram:
		return true
	}
	return false
}

// Material is a raw input consumed by production. Stock is held at three
// decimals and mutated only by the ledger engine.
type Material struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Unit      Unit            `json:"unit"`
	Stock     decimal.Decimal `json:"stock"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Product is a finished good. PieceRate is the pay per produced unit,
// snapshotted into operations at recording time.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Stock     decimal.Decimal `json:"stock"`
	PieceRate decimal.Decimal `json:"piece_rate"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// BOMLine is one entry of a product's consumption recipe: how much of a
// material one produced unit consumes. (product, material) pairs are unique.
type BOMLine struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	MaterialID   int64           `json:"material_id"`
	MaterialName string          `json:"material_name"`
	MaterialUnit Unit            `json:"material_unit"`
	QtyPerOne    decimal.Decimal `json:"qty_per_one"`
}

// ListFilter narrows material/product listings.
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Page       int
	PerPage    int
}

var (
	// ErrNotFound indicates a missing catalog row.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicate indicates a unique constraint violation (name, or a
	// (product, material) BOM pair).
	ErrDuplicate = errors.New("catalog: duplicate entry")
	// ErrInUse indicates the row is referenced by movements, operations or
	// BOM lines and cannot be deleted.
	ErrInUse = errors.New("catalog: referenced by other records")
	// ErrInvalidUnit indicates an unsupported measurement unit.
	ErrInvalidUnit = errors.New("catalog: invalid unit")
	// ErrInvalidInput indicates a field-level validation failure.
	ErrInvalidInput = errors.New("catalog: invalid input")
)
