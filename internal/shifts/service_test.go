package shifts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/atelier/internal/shared"
)

type memoryRepo struct {
	shifts map[int64]Shift
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{shifts: make(map[int64]Shift)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Create(ctx context.Context, s Shift) (Shift, error) {
	for _, existing := range r.shifts {
		if existing.EmployeeID == s.EmployeeID && existing.Open() {
			return Shift{}, ErrShiftAlreadyOpen
		}
	}
	r.nextID++
	s.ID = r.nextID
	r.shifts[s.ID] = s
	return s, nil
}

func (r *memoryRepo) OpenByEmployee(ctx context.Context, employeeID int64) (Shift, error) {
	for _, s := range r.shifts {
		if s.EmployeeID == employeeID && s.Open() {
			return s, nil
		}
	}
	return Shift{}, ErrNoActiveShift
}

func (r *memoryRepo) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]Shift, error) {
	var out []Shift
	for _, s := range r.shifts {
		if s.EmployeeID == employeeID && !s.StartedAt.Before(from) && !s.StartedAt.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return Shift{}, ErrNoActiveShift
	}
	return s, nil
}

func (r *memoryRepo) Close(ctx context.Context, id int64, endedAt time.Time, hours decimal.Decimal) error {
	s, ok := r.shifts[id]
	if !ok || !s.Open() {
		return ErrNoActiveShift
	}
	s.EndedAt = &endedAt
	s.Hours = &hours
	r.shifts[id] = s
	return nil
}

// settableClock lets a test move time forward between calls.
type settableClock struct {
	now time.Time
}

func (c *settableClock) Now() time.Time { return c.now }

var _ shared.Clock = (*settableClock)(nil)

func TestShiftLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	shift, err := svc.Start(ctx, 7, "morning")
	require.NoError(t, err)
	require.True(t, shift.Open())
	require.Equal(t, clock.now, shift.StartedAt)

	clock.now = time.Date(2024, 3, 15, 11, 30, 0, 0, time.UTC)
	hours, err := svc.Close(ctx, shift.ID)
	require.NoError(t, err)
	require.Equal(t, "2.50", hours.StringFixed(2))

	stored := repo.shifts[shift.ID]
	require.False(t, stored.Open())
	require.Equal(t, "2.50", stored.Hours.StringFixed(2))
}

func TestCloseIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	shift, err := svc.Start(ctx, 7, "")
	require.NoError(t, err)
	clock.now = clock.now.Add(150 * time.Minute)
	first, err := svc.Close(ctx, shift.ID)
	require.NoError(t, err)

	// the second close must not recompute even though time moved on
	clock.now = clock.now.Add(3 * time.Hour)
	second, err := svc.Close(ctx, shift.ID)
	require.NoError(t, err)
	require.True(t, first.Equal(second), "first %s second %s", first, second)
	require.Equal(t, "2.50", second.StringFixed(2))
}

func TestStartWhileOpen(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	_, err := svc.Start(ctx, 7, "")
	require.NoError(t, err)
	_, err = svc.Start(ctx, 7, "")
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)

	// a different employee is unaffected
	_, err = svc.Start(ctx, 8, "")
	require.NoError(t, err)
}

func TestCloseUnknownShift(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Close(context.Background(), 42)
	require.ErrorIs(t, err, ErrNoActiveShift)
	_, err = svc.Close(context.Background(), 0)
	require.ErrorIs(t, err, ErrNoActiveShift)
}

func TestCloseRejectsNonPositiveDuration(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	shift, err := svc.Start(ctx, 7, "")
	require.NoError(t, err)

	// clock did not advance
	_, err = svc.Close(ctx, shift.ID)
	require.ErrorIs(t, err, ErrInvalidShiftTiming)
	require.True(t, repo.shifts[shift.ID].Open())

	clock.now = clock.now.Add(-time.Hour)
	_, err = svc.Close(ctx, shift.ID)
	require.ErrorIs(t, err, ErrInvalidShiftTiming)
}

func TestStartValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Start(context.Background(), 0, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCurrent(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	_, err := svc.Current(ctx, 7)
	require.ErrorIs(t, err, ErrNoActiveShift)

	started, err := svc.Start(ctx, 7, "")
	require.NoError(t, err)
	current, err := svc.Current(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, started.ID, current.ID)
}

func TestHoursRounding(t *testing.T) {
	repo := newMemoryRepo()
	clock := &settableClock{now: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clock)
	ctx := context.Background()

	shift, err := svc.Start(ctx, 7, "")
	require.NoError(t, err)

	// 1h40m = 1.666... hours, rounds half-up to 1.67
	clock.now = clock.now.Add(100 * time.Minute)
	hours, err := svc.Close(ctx, shift.ID)
	require.NoError(t, err)
	require.Equal(t, "1.67", hours.StringFixed(2))
	require.False(t, hours.IsNegative())
}
