package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atelierops/atelier/internal/shared"
)

type memoryRepo struct {
	work  []WorkRow
	hours map[int64]decimal.Decimal
	calls int
}

func (r *memoryRepo) WorkRows(ctx context.Context, from, to time.Time) ([]WorkRow, error) {
	r.calls++
	out := make([]WorkRow, len(r.work))
	copy(out, r.work)
	return out, nil
}

func (r *memoryRepo) HoursByEmployee(ctx context.Context, from, to time.Time) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(r.hours))
	for k, v := range r.hours {
		out[k] = v
	}
	return out, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock() shared.Clock {
	return shared.ClockFunc(func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	})
}

func seededRepo() *memoryRepo {
	return &memoryRepo{
		work: []WorkRow{
			{EmployeeID: 7, Operations: 3, Qty: dec("40.000"), Pay: dec("600.00")},
			{EmployeeID: 8, Operations: 1, Qty: dec("10.000"), Pay: dec("150.00")},
		},
		hours: map[int64]decimal.Decimal{
			7: dec("16.00"),
		},
	}
}

func TestWorkSummary(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, fixedClock())

	summary, err := svc.Work(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)
	require.Equal(t, "50.000", summary.TotalQty.StringFixed(3))
	require.Equal(t, "750.00", summary.TotalPay.StringFixed(2))

	// default window is the last seven days
	require.Equal(t, summary.To.Add(-7*24*time.Hour), summary.From)
}

func TestProductivity(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, fixedClock())

	report, err := svc.Productivity(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	// 40 units over 16 hours
	require.Equal(t, "2.50", report.Rows[0].Productivity.StringFixed(2))
	require.Equal(t, "16.00", report.Rows[0].Hours.StringFixed(2))

	// no closed shifts: productivity reports zero instead of dividing
	require.Equal(t, "0.00", report.Rows[1].Productivity.StringFixed(2))
	require.Equal(t, "0.00", report.Rows[1].Hours.StringFixed(2))
}

func TestWorkCachesUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)

	repo := seededRepo()
	svc := NewService(repo, cache, fixedClock())
	ctx := context.Background()

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Work(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// second read is served from cache
	summary, err := svc.Work(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
	require.Equal(t, "50.000", summary.TotalQty.StringFixed(3))

	// a version bump forces a recompute
	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Work(ctx, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestCacheKeyIncludesRange(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)

	repo := seededRepo()
	svc := NewService(repo, cache, fixedClock())
	ctx := context.Background()

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.Work(ctx, from, to)
	require.NoError(t, err)

	// a different range misses the cache
	_, err = svc.Work(ctx, from.Add(-24*time.Hour), to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}
