package shifts

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/quantity"
	"github.com/atelierops/atelier/internal/shared"
)

// TxRepository exposes the row-level operations available inside one close
// transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Shift, error)
	Close(ctx context.Context, id int64, endedAt time.Time, hours decimal.Decimal) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, s Shift) (Shift, error)
	OpenByEmployee(ctx context.Context, employeeID int64) (Shift, error)
	ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]Shift, error)
}

// Service owns the shift state machine.
type Service struct {
	repo  RepositoryPort
	clock shared.Clock
}

// NewService builds Service. A nil clock falls back to the system clock.
func NewService(repo RepositoryPort, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, clock: clock}
}

// Start opens a new shift for the employee. Fails with ErrShiftAlreadyOpen
// when one is already running.
func (s *Service) Start(ctx context.Context, employeeID int64, note string) (Shift, error) {
	if employeeID <= 0 {
		return Shift{}, fmt.Errorf("%w: employee is required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, Shift{
		EmployeeID: employeeID,
		StartedAt:  s.clock.Now(),
		Note:       note,
	})
}

// Close ends the shift and computes its hours, rounded to two decimals.
// Closing an already-closed shift is a no-op that returns the stored hours
// without recomputation.
func (s *Service) Close(ctx context.Context, shiftID int64) (decimal.Decimal, error) {
	if shiftID <= 0 {
		return decimal.Decimal{}, ErrNoActiveShift
	}
	var hours decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shift, err := tx.GetForUpdate(ctx, shiftID)
		if err != nil {
			return err
		}
		if !shift.Open() {
			hours = *shift.Hours
			return nil
		}
		end := s.clock.Now()
		if !end.After(shift.StartedAt) {
			return ErrInvalidShiftTiming
		}
		hours = quantity.HoursBetween(shift.StartedAt, end)
		return tx.Close(ctx, shift.ID, end, hours)
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return hours, nil
}

// Current returns the employee's open shift, or ErrNoActiveShift.
func (s *Service) Current(ctx context.Context, employeeID int64) (Shift, error) {
	if employeeID <= 0 {
		return Shift{}, ErrNoActiveShift
	}
	return s.repo.OpenByEmployee(ctx, employeeID)
}

// ListByEmployee returns the employee's shifts overlapping [from, to].
func (s *Service) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]Shift, error) {
	if employeeID <= 0 {
		return nil, fmt.Errorf("%w: employee is required", ErrInvalidInput)
	}
	return s.repo.ListByEmployee(ctx, employeeID, from, to)
}
