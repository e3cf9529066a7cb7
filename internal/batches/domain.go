package batches

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the batch lifecycle.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

// Valid reports whether the status is one of the lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// Batch is a planned production run for one product. The ledger engine
// flips Planned batches to InProgress as a side effect of the first
// recorded operation, inside the same transaction.
type Batch struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	PlannedQty  decimal.Decimal `json:"planned_qty"`
	Status      Status          `json:"status"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Note        string          `json:"note"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Progress is the derived completion state of a batch. It is never
// persisted; it is recomputed from the operation log on every read.
type Progress struct {
	Batch     Batch           `json:"batch"`
	Done      decimal.Decimal `json:"done"`
	Remaining decimal.Decimal `json:"remaining"`
}

var (
	// ErrNotFound indicates a missing batch.
	ErrNotFound = errors.New("batches: not found")
	// ErrInvalidInput indicates a field-level validation failure.
	ErrInvalidInput = errors.New("batches: invalid input")
)
