package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/quantity"
	"github.com/atelierops/atelier/internal/shared"
)

// defaultWindow is the report period used when the caller gives none.
const defaultWindow = 7 * 24 * time.Hour

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WorkRows(ctx context.Context, from, to time.Time) ([]WorkRow, error)
	HoursByEmployee(ctx context.Context, from, to time.Time) (map[int64]decimal.Decimal, error)
}

// Service computes work and productivity reports over a date range.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	clock shared.Clock
}

// NewService wires the repository with the cache helper. cache may be nil;
// a nil clock falls back to the system clock.
func NewService(repo RepositoryPort, cache *Cache, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, cache: cache, clock: clock}
}

// normalizeRange fills missing bounds: default last seven days ending now.
func (s *Service) normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if to.IsZero() {
		to = s.clock.Now()
	}
	if from.IsZero() {
		from = to.Add(-defaultWindow)
	}
	return from, to
}

// Work returns the per-employee output summary for the period.
func (s *Service) Work(ctx context.Context, from, to time.Time) (WorkSummary, error) {
	from, to = s.normalizeRange(from, to)

	key, err := s.cache.BuildKey(ctx, "reports", "work", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return WorkSummary{}, err
	}
	var summary WorkSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.buildWork(ctx, from, to)
	})
	return summary, err
}

func (s *Service) buildWork(ctx context.Context, from, to time.Time) (WorkSummary, error) {
	rows, err := s.repo.WorkRows(ctx, from, to)
	if err != nil {
		return WorkSummary{}, err
	}
	summary := WorkSummary{
		From:     from,
		To:       to,
		Rows:     rows,
		TotalQty: decimal.Zero.Round(quantity.StockScale),
		TotalPay: decimal.Zero.Round(quantity.MoneyScale),
	}
	if summary.Rows == nil {
		summary.Rows = []WorkRow{}
	}
	for _, row := range rows {
		summary.TotalQty = summary.TotalQty.Add(row.Qty)
		summary.TotalPay = summary.TotalPay.Add(row.Pay)
	}
	return summary, nil
}

// Productivity returns units per worked hour per employee for the period.
func (s *Service) Productivity(ctx context.Context, from, to time.Time) (ProductivityReport, error) {
	from, to = s.normalizeRange(from, to)

	key, err := s.cache.BuildKey(ctx, "reports", "productivity", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return ProductivityReport{}, err
	}
	var report ProductivityReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildProductivity(ctx, from, to)
	})
	return report, err
}

func (s *Service) buildProductivity(ctx context.Context, from, to time.Time) (ProductivityReport, error) {
	workRows, err := s.repo.WorkRows(ctx, from, to)
	if err != nil {
		return ProductivityReport{}, err
	}
	hours, err := s.repo.HoursByEmployee(ctx, from, to)
	if err != nil {
		return ProductivityReport{}, err
	}

	report := ProductivityReport{From: from, To: to, Rows: []ProductivityRow{}}
	for _, work := range workRows {
		row := ProductivityRow{
			EmployeeID:   work.EmployeeID,
			Qty:          work.Qty,
			Pay:          work.Pay,
			Hours:        quantity.Hours(hours[work.EmployeeID]),
			Productivity: decimal.Zero.Round(quantity.MoneyScale),
		}
		if row.Hours.IsPositive() {
			row.Productivity = work.Qty.DivRound(row.Hours, quantity.MoneyScale)
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// Invalidate drops every cached report. The ledger calls this after a
// committed write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
