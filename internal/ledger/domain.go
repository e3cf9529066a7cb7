// Package ledger is the transactional stock engine. It is the only writer
// of material stock, product stock and the movement journal; every mutation
// happens inside one database transaction under row locks, and every change
// leaves an immutable movement behind.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates journal entry directions.
type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// Valid reports whether the movement type is supported.
func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

// TargetType selects what a manual adjustment applies to.
type TargetType string

const (
	TargetMaterial TargetType = "material"
	TargetProduct  TargetType = "product"
)

// StockMovement is one immutable journal entry. Exactly one of MaterialID
// and ProductID is set. Rows are append-only: never updated, never deleted.
type StockMovement struct {
	ID          int64           `json:"id"`
	Type        MovementType    `json:"type"`
	Qty         decimal.Decimal `json:"qty"`
	MaterialID  *int64          `json:"material_id,omitempty"`
	ProductID   *int64          `json:"product_id,omitempty"`
	OperationID *int64          `json:"operation_id,omitempty"`
	Comment     string          `json:"comment"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductionOperation records that an employee produced Qty units of a
// product. Immutable once created; edits never re-run stock effects.
type ProductionOperation struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	ProductID  int64           `json:"product_id"`
	BatchID    *int64          `json:"batch_id,omitempty"`
	Qty        decimal.Decimal `json:"qty"`
	PayRate    decimal.Decimal `json:"pay_rate"`
	PayTotal   decimal.Decimal `json:"pay_total"`
	Note       string          `json:"note"`
	CreatedAt  time.Time       `json:"created_at"`
}

// StockAdjustment is a manual correction. Its stock effect is applied
// exactly once, at creation.
type StockAdjustment struct {
	ID           int64           `json:"id"`
	CreatedBy    int64           `json:"created_by"`
	TargetType   TargetType      `json:"target_type"`
	MaterialID   *int64          `json:"material_id,omitempty"`
	ProductID    *int64          `json:"product_id,omitempty"`
	MovementType MovementType    `json:"movement_type"`
	Qty          decimal.Decimal `json:"qty"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProductionInput is a request to record a production event.
type ProductionInput struct {
	EmployeeID     int64
	BatchID        int64
	Qty            decimal.Decimal
	Note           string
	IdempotencyKey string
}

// ProductionResult reports what a committed production event produced.
type ProductionResult struct {
	OperationID int64           `json:"operation_id"`
	ProductID   int64           `json:"product_id"`
	BatchID     int64           `json:"batch_id"`
	Qty         decimal.Decimal `json:"qty"`
	PayTotal    decimal.Decimal `json:"pay_total"`
}

// AdjustmentInput is a request to record a manual stock correction.
// Exactly one of MaterialID/ProductID must be set, matching TargetType.
type AdjustmentInput struct {
	ActorID        int64
	TargetType     TargetType
	MaterialID     int64
	ProductID      int64
	MovementType   MovementType
	Qty            decimal.Decimal
	Reason         string
	IdempotencyKey string
}

// MovementFilter narrows movement journal listings.
type MovementFilter struct {
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Shortage is a computed deficit for one entity during a production or
// adjustment attempt.
type Shortage struct {
	MaterialID int64           `json:"material_id,omitempty"`
	Name       string          `json:"name"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity, or a fractional
	// one where whole units are required.
	ErrInvalidQuantity = errors.New("ledger: invalid quantity")
	// ErrMissingBOM indicates the product has no consumption recipe;
	// production is disallowed until one is defined.
	ErrMissingBOM = errors.New("ledger: product has no bill of materials")
	// ErrInsufficientStock indicates required quantities exceed available
	// stock. Wrapped by InsufficientStockError which carries detail.
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	// ErrConflictingTarget indicates an adjustment whose target references
	// do not match its declared target type.
	ErrConflictingTarget = errors.New("ledger: adjustment target does not match target type")
	// ErrBatchNotFound indicates the referenced batch does not exist.
	ErrBatchNotFound = errors.New("ledger: batch not found")
	// ErrMaterialNotFound indicates the referenced material does not exist.
	ErrMaterialNotFound = errors.New("ledger: material not found")
	// ErrProductNotFound indicates the referenced product does not exist.
	ErrProductNotFound = errors.New("ledger: product not found")
	// ErrInvalidInput indicates a malformed request outside the taxonomy
	// above (missing employee, unknown movement type, ...).
	ErrInvalidInput = errors.New("ledger: invalid input")
)

// InsufficientStockError carries the per-entity shortfall detail so callers
// can render a precise message.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: need %s, have %s", s.Name, s.Required, s.Available))
	}
	return "ledger: insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
