// Package shifts tracks employee work sessions. A shift is a two-state
// machine: Open while ended_at is null, Closed once it is set. Hours are
// computed exactly once, at close, and never recomputed.
package shifts

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Shift is one bounded work session for an employee. At most one open
// shift may exist per employee at any time; the storage layer enforces
// that with a partial unique index.
type Shift struct {
	ID         int64            `json:"id"`
	EmployeeID int64            `json:"employee_id"`
	StartedAt  time.Time        `json:"started_at"`
	EndedAt    *time.Time       `json:"ended_at,omitempty"`
	Hours      *decimal.Decimal `json:"hours,omitempty"`
	Note       string           `json:"note"`
}

// Open reports whether the shift is still running.
func (s Shift) Open() bool {
	return s.EndedAt == nil
}

var (
	// ErrShiftAlreadyOpen indicates the employee already has a running shift.
	ErrShiftAlreadyOpen = errors.New("shifts: employee already has an open shift")
	// ErrNoActiveShift indicates there is no shift to close.
	ErrNoActiveShift = errors.New("shifts: no active shift")
	// ErrInvalidShiftTiming indicates the close moment is not after the start.
	ErrInvalidShiftTiming = errors.New("shifts: end must be after start")
	// ErrInvalidInput indicates a field-level validation failure.
	ErrInvalidInput = errors.New("shifts: invalid input")
)
