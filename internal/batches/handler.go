package batches

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

// Handler wires HTTP endpoints for batch planning and progress.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers batch routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/batches", h.handleCreate)
	r.Get("/batches/open", h.handleListOpen)
	r.Get("/batches/{id}", h.handleGet)
	r.Get("/batches/{id}/progress", h.handleProgress)
}

type createRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	PlannedQty decimal.Decimal `json:"planned_qty"`
	DueDate    string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Note       string          `json:"note" validate:"max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())

	b := Batch{
		Name:       req.Name,
		ProductID:  req.ProductID,
		PlannedQty: req.PlannedQty,
		Note:       req.Note,
		CreatedBy:  actor.EmployeeID,
	}
	if req.DueDate != "" {
		due, _ := time.Parse("2006-01-02", req.DueDate)
		b.DueDate = &due
	}

	created, err := h.service.Create(r.Context(), b)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid batch id")
		return
	}
	progress, err := h.service.Progress(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}

func (h *Handler) handleListOpen(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	progress, err := h.service.ListOpen(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if progress == nil {
		progress = []Progress{}
	}
	httpx.JSON(w, http.StatusOK, progress)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("batch request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
