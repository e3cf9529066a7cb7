package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/platform/httpx"
	"github.com/atelierops/atelier/internal/shared"
)

// Handler wires HTTP endpoints for materials, products and recipes.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/materials", func(r chi.Router) {
		r.Get("/", h.handleListMaterials)
		r.Post("/", h.handleCreateMaterial)
		r.Get("/{id}", h.handleGetMaterial)
		r.Put("/{id}", h.handleUpdateMaterial)
		r.Delete("/{id}", h.handleDeleteMaterial)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleListProducts)
		r.Post("/", h.handleCreateProduct)
		r.Get("/{id}", h.handleGetProduct)
		r.Put("/{id}", h.handleUpdateProduct)
		r.Delete("/{id}", h.handleDeleteProduct)
		r.Get("/{id}/recipe", h.handleRecipe)
	})
	r.Route("/bom", func(r chi.Router) {
		r.Post("/", h.handleCreateBOMLine)
		r.Put("/{id}", h.handleUpdateBOMLine)
		r.Delete("/{id}", h.handleDeleteBOMLine)
	})
}

type materialRequest struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Unit  string          `json:"unit" validate:"required,oneof=pcs m kg"`
	Stock decimal.Decimal `json:"stock"`
}

type materialListResponse struct {
	Materials  []Material        `json:"materials"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r)
	materials, total, err := h.service.ListMaterials(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if materials == nil {
		materials = []Material{}
	}
	httpx.JSON(w, http.StatusOK, materialListResponse{
		Materials:  materials,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.CreateMaterial(r.Context(), Material{
		Name:     req.Name,
		Unit:     Unit(req.Unit),
		Stock:    req.Stock,
		IsActive: true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMaterial(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

type materialUpdateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Unit     string `json:"unit" validate:"required,oneof=pcs m kg"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req materialUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	// stock is deliberately absent from the update payload: only the ledger
	// engine writes it
	err := h.service.UpdateMaterial(r.Context(), id, Material{
		Name:     req.Name,
		Unit:     Unit(req.Unit),
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteMaterial(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	Stock     decimal.Decimal `json:"stock"`
	PieceRate decimal.Decimal `json:"piece_rate"`
}

type productListResponse struct {
	Products   []Product         `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r)
	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, productListResponse{
		Products:   products,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), Product{
		Name:      req.Name,
		Stock:     req.Stock,
		PieceRate: req.PieceRate,
		IsActive:  true,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type productUpdateRequest struct {
	Name      string          `json:"name" validate:"required,max=200"`
	PieceRate decimal.Decimal `json:"piece_rate"`
	IsActive  bool            `json:"is_active"`
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req productUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.service.UpdateProduct(r.Context(), id, Product{
		Name:      req.Name,
		PieceRate: req.PieceRate,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lines, err := h.service.Recipe(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if lines == nil {
		lines = []BOMLine{}
	}
	httpx.JSON(w, http.StatusOK, lines)
}

type bomLineRequest struct {
	ProductID  int64           `json:"product_id" validate:"required,gt=0"`
	MaterialID int64           `json:"material_id" validate:"required,gt=0"`
	QtyPerOne  decimal.Decimal `json:"qty_per_one" validate:"required"`
}

func (h *Handler) handleCreateBOMLine(w http.ResponseWriter, r *http.Request) {
	var req bomLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	line, err := h.service.CreateBOMLine(r.Context(), BOMLine{
		ProductID:  req.ProductID,
		MaterialID: req.MaterialID,
		QtyPerOne:  req.QtyPerOne,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

type bomLineUpdateRequest struct {
	QtyPerOne decimal.Decimal `json:"qty_per_one" validate:"required"`
}

func (h *Handler) handleUpdateBOMLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req bomLineUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateBOMLine(r.Context(), id, req.QtyPerOne); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteBOMLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBOMLine(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "In Use", err.Error())
	case errors.Is(err, ErrInvalidUnit), errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("catalog request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func listFilterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return ListFilter{
		Search:     q.Get("search"),
		ActiveOnly: q.Get("active") == "true",
		Page:       page,
		PerPage:    perPage,
	}
}
