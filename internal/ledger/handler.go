package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/observability"
	"github.com/atelierops/atelier/internal/platform/httpx"
	"github.com/atelierops/atelier/internal/shared"
)

// Handler wires HTTP endpoints for the ledger engine.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// SetMetrics enables per-write counters. A nil receiver or nil metrics is a
// no-op.
func (h *Handler) SetMetrics(m *observability.Metrics) {
	h.metrics = m
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/productions", h.handleRecordProduction)
	r.Post("/adjustments", h.handleRecordAdjustment)
	r.Get("/adjustments", h.handleListAdjustments)
	r.Get("/movements", h.handleListMovements)
}

type productionRequest struct {
	BatchID        int64           `json:"batch_id" validate:"required,gt=0"`
	Qty            decimal.Decimal `json:"qty" validate:"required"`
	Note           string          `json:"note" validate:"max=500"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=64"`
}

func (h *Handler) handleRecordProduction(w http.ResponseWriter, r *http.Request) {
	var req productionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ProblemWith(w, http.StatusBadRequest, "Validation Failed", "request validation failed", fieldErrors(err))
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor.EmployeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee identity is required")
		return
	}

	result, err := h.service.RecordProduction(r.Context(), ProductionInput{
		EmployeeID:     actor.EmployeeID,
		BatchID:        req.BatchID,
		Qty:            req.Qty,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.metrics.ObserveLedgerWrite("production", "error")
		h.respondError(w, err)
		return
	}
	h.metrics.ObserveLedgerWrite("production", "ok")
	httpx.JSON(w, http.StatusCreated, result)
}

type adjustmentRequest struct {
	TargetType     string          `json:"target_type" validate:"required,oneof=material product"`
	MaterialID     int64           `json:"material_id" validate:"gte=0"`
	ProductID      int64           `json:"product_id" validate:"gte=0"`
	MovementType   string          `json:"movement_type" validate:"required,oneof=in out"`
	Qty            decimal.Decimal `json:"qty" validate:"required"`
	Reason         string          `json:"reason" validate:"max=500"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=64"`
}

func (h *Handler) handleRecordAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ProblemWith(w, http.StatusBadRequest, "Validation Failed", "request validation failed", fieldErrors(err))
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor.EmployeeID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "employee identity is required")
		return
	}

	adj, err := h.service.RecordAdjustment(r.Context(), AdjustmentInput{
		ActorID:        actor.EmployeeID,
		TargetType:     TargetType(req.TargetType),
		MaterialID:     req.MaterialID,
		ProductID:      req.ProductID,
		MovementType:   MovementType(req.MovementType),
		Qty:            req.Qty,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.metrics.ObserveLedgerWrite("adjustment", "error")
		h.respondError(w, err)
		return
	}
	h.metrics.ObserveLedgerWrite("adjustment", "ok")
	httpx.JSON(w, http.StatusCreated, adj)
}

type movementListResponse struct {
	Movements  []StockMovement   `json:"movements"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{
		Page:    queryInt(q.Get("page")),
		PerPage: queryInt(q.Get("per_page")),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 50
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date, want YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date, want YYYY-MM-DD")
			return
		}
		// inclusive end of day
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	movements, total, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if movements == nil {
		movements = []StockMovement{}
	}
	httpx.JSON(w, http.StatusOK, movementListResponse{
		Movements:  movements,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

type adjustmentListResponse struct {
	Adjustments []StockAdjustment `json:"adjustments"`
	Pagination  shared.Pagination `json:"pagination"`
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"))
	perPage := queryInt(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}
	adjustments, total, err := h.service.ListAdjustments(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if adjustments == nil {
		adjustments = []StockAdjustment{}
	}
	httpx.JSON(w, http.StatusOK, adjustmentListResponse{
		Adjustments: adjustments,
		Pagination:  shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Stock", insufficient.Error(), insufficient.Shortages)
	case errors.Is(err, ErrBatchNotFound),
		errors.Is(err, ErrMaterialNotFound),
		errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrMissingBOM):
		httpx.Problem(w, http.StatusConflict, "Missing Bill Of Materials", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrConflictingTarget),
		errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
