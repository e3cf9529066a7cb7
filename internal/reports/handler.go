package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atelierops/atelier/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reporting.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/work", h.handleWork)
	r.Get("/reports/productivity", h.handleProductivity)
}

func (h *Handler) handleWork(w http.ResponseWriter, r *http.Request) {
	from, to, ok := rangeFromQuery(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Work(r.Context(), from, to)
	if err != nil {
		h.logger.Error("work report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleProductivity(w http.ResponseWriter, r *http.Request) {
	from, to, ok := rangeFromQuery(w, r)
	if !ok {
		return
	}
	report, err := h.service.Productivity(r.Context(), from, to)
	if err != nil {
		h.logger.Error("productivity report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func rangeFromQuery(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var from, to time.Time
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date, want YYYY-MM-DD")
			return from, to, false
		}
		from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date, want YYYY-MM-DD")
			return from, to, false
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, true
}
