package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelierops/atelier/internal/batches"
	"github.com/atelierops/atelier/internal/catalog"
	"github.com/atelierops/atelier/internal/ledger"
	"github.com/atelierops/atelier/internal/observability"
	"github.com/atelierops/atelier/internal/reports"
	"github.com/atelierops/atelier/internal/shifts"
	"github.com/atelierops/atelier/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	CatalogHandler *catalog.Handler
	LedgerHandler  *ledger.Handler
	BatchHandler   *batches.Handler
	ShiftHandler   *shifts.Handler
	ReportHandler  *reports.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with the default middleware chain and
// every module mounted under /api/v1.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.BatchHandler != nil {
			params.BatchHandler.MountRoutes(r)
		}
		if params.ShiftHandler != nil {
			params.ShiftHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
