package batches

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	batches map[int64]Batch
	done    map[int64]decimal.Decimal
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{batches: make(map[int64]Batch), done: make(map[int64]decimal.Decimal)}
}

func (s *memoryStore) Create(ctx context.Context, b Batch) (Batch, error) {
	s.nextID++
	b.ID = s.nextID
	b.Status = StatusPlanned
	s.batches[b.ID] = b
	return b, nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, ErrNotFound
	}
	return b, nil
}

func (s *memoryStore) SetStatus(ctx context.Context, id int64, status Status) error {
	b, ok := s.batches[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	s.batches[id] = b
	return nil
}

func (s *memoryStore) DoneQty(ctx context.Context, batchID int64) (decimal.Decimal, error) {
	if d, ok := s.done[batchID]; ok {
		return d, nil
	}
	return decimal.Zero, nil
}

func (s *memoryStore) ListOpenWithDone(ctx context.Context, limit int) ([]Batch, []decimal.Decimal, error) {
	var bs []Batch
	var done []decimal.Decimal
	for id, b := range s.batches {
		if b.Status == StatusPlanned || b.Status == StatusInProgress {
			bs = append(bs, b)
			done = append(done, s.done[id])
		}
	}
	return bs, done, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreate(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, Batch{Name: "March run", ProductID: 10, PlannedQty: dec("100")})
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, b.Status)
	require.Equal(t, "100.000", b.PlannedQty.StringFixed(3))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, Batch{ProductID: 10, PlannedQty: dec("1")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, Batch{Name: "x", PlannedQty: dec("1")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, Batch{Name: "x", ProductID: 10, PlannedQty: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestProgress(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, Batch{Name: "March run", ProductID: 10, PlannedQty: dec("100")})
	require.NoError(t, err)

	// two operations of 30 and 50
	store.done[b.ID] = dec("80")
	progress, err := svc.Progress(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "80.000", progress.Done.StringFixed(3))
	require.Equal(t, "20.000", progress.Remaining.StringFixed(3))
}

func TestProgressClampsAtZero(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, Batch{Name: "March run", ProductID: 10, PlannedQty: dec("100")})
	require.NoError(t, err)

	// a third operation of 30 pushes done past the plan
	store.done[b.ID] = dec("110")
	progress, err := svc.Progress(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "110.000", progress.Done.StringFixed(3))
	require.Equal(t, "0.000", progress.Remaining.StringFixed(3))
	require.False(t, progress.Remaining.IsNegative())
}

func TestProgressUnknownBatch(t *testing.T) {
	svc := NewService(newMemoryStore())
	_, err := svc.Progress(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOpen(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	a, err := svc.Create(ctx, Batch{Name: "a", ProductID: 10, PlannedQty: dec("10")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Batch{Name: "b", ProductID: 10, PlannedQty: dec("10")})
	require.NoError(t, err)
	closed, err := svc.Create(ctx, Batch{Name: "c", ProductID: 10, PlannedQty: dec("10")})
	require.NoError(t, err)
	require.NoError(t, store.SetStatus(ctx, closed.ID, StatusDone))

	store.done[a.ID] = dec("4")
	open, err := svc.ListOpen(ctx, 0)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		require.NotEqual(t, closed.ID, p.Batch.ID)
		if p.Batch.ID == a.ID {
			require.Equal(t, "6.000", p.Remaining.StringFixed(3))
		}
	}
}
