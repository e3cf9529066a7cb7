package shifts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/platform/httpx"
	"github.com/atelierops/atelier/internal/shared"
)

// Handler wires HTTP endpoints for shift tracking.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers shift routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/shifts", h.handleStart)
	r.Post("/shifts/{id}/close", h.handleClose)
	r.Get("/shifts/current", h.handleCurrent)
	r.Get("/shifts", h.handleList)
}

type startRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "note too long")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor.EmployeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee identity is required")
		return
	}

	shift, err := h.service.Start(r.Context(), actor.EmployeeID, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

type closeResponse struct {
	ShiftID int64           `json:"shift_id"`
	Hours   decimal.Decimal `json:"hours"`
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shift id")
		return
	}
	hours, err := h.service.Close(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, closeResponse{ShiftID: id, Hours: hours})
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor.EmployeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee identity is required")
		return
	}
	shift, err := h.service.Current(r.Context(), actor.EmployeeID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor.EmployeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee identity is required")
		return
	}

	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -30), now
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}

	list, err := h.service.ListByEmployee(r.Context(), actor.EmployeeID, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if list == nil {
		list = []Shift{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shifts": list})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrShiftAlreadyOpen):
		httpx.Problem(w, http.StatusConflict, "Shift Already Open", err.Error())
	case errors.Is(err, ErrNoActiveShift):
		httpx.Problem(w, http.StatusNotFound, "No Active Shift", err.Error())
	case errors.Is(err, ErrInvalidShiftTiming), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("shift request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
