package batches

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/quantity"
)

// Store abstracts repository usage for the service.
type Store interface {
	Create(ctx context.Context, b Batch) (Batch, error)
	Get(ctx context.Context, id int64) (Batch, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	DoneQty(ctx context.Context, batchID int64) (decimal.Decimal, error)
	ListOpenWithDone(ctx context.Context, limit int) ([]Batch, []decimal.Decimal, error)
}

// Service owns batch creation and the read-only progress derivation.
type Service struct {
	store Store
}

// NewService builds Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and persists a new batch in Planned status.
func (s *Service) Create(ctx context.Context, b Batch) (Batch, error) {
	if strings.TrimSpace(b.Name) == "" {
		return Batch{}, fmt.Errorf("%w: batch name is required", ErrInvalidInput)
	}
	if b.ProductID <= 0 {
		return Batch{}, fmt.Errorf("%w: product is required", ErrInvalidInput)
	}
	if b.PlannedQty.IsNegative() {
		return Batch{}, fmt.Errorf("%w: planned qty cannot be negative", ErrInvalidInput)
	}
	b.PlannedQty = quantity.Stock(b.PlannedQty)
	return s.store.Create(ctx, b)
}

// Get loads one batch.
func (s *Service) Get(ctx context.Context, id int64) (Batch, error) {
	if id <= 0 {
		return Batch{}, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// Progress derives done/remaining for one batch. Remaining clamps at zero:
// over-production never reports a negative remainder.
func (s *Service) Progress(ctx context.Context, batchID int64) (Progress, error) {
	b, err := s.Get(ctx, batchID)
	if err != nil {
		return Progress{}, err
	}
	done, err := s.store.DoneQty(ctx, batchID)
	if err != nil {
		return Progress{}, err
	}
	return derive(b, done), nil
}

// ListOpen returns Planned and InProgress batches with progress, newest
// first, bounded by limit.
func (s *Service) ListOpen(ctx context.Context, limit int) ([]Progress, error) {
	bs, done, err := s.store.ListOpenWithDone(ctx, limit)
	if err != nil {
		return nil, err
	}
	progress := make([]Progress, 0, len(bs))
	for i, b := range bs {
		progress = append(progress, derive(b, done[i]))
	}
	return progress, nil
}

func derive(b Batch, done decimal.Decimal) Progress {
	done = quantity.Stock(done)
	remaining := quantity.Stock(b.PlannedQty.Sub(done))
	if remaining.IsNegative() {
		remaining = decimal.Zero.Round(quantity.StockScale)
	}
	return Progress{Batch: b, Done: done, Remaining: remaining}
}
