package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/quantity"
)

// Store abstracts repository usage for the service.
type Store interface {
	ListMaterials(ctx context.Context, filter ListFilter) ([]Material, int, error)
	GetMaterial(ctx context.Context, id int64) (Material, error)
	CreateMaterial(ctx context.Context, m Material) (Material, error)
	UpdateMaterial(ctx context.Context, id int64, m Material) error
	DeleteMaterial(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) error
	DeleteProduct(ctx context.Context, id int64) error

	RecipeForProduct(ctx context.Context, productID int64) ([]BOMLine, error)
	CreateBOMLine(ctx context.Context, line BOMLine) (BOMLine, error)
	UpdateBOMLine(ctx context.Context, id int64, qtyPerOne decimal.Decimal) error
	DeleteBOMLine(ctx context.Context, id int64) error
}

// Service owns catalog business rules: field validation and the BOM
// resolver. It never mutates stock; that belongs to the ledger engine.
type Service struct {
	store Store
}

// NewService builds Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ListMaterials(ctx context.Context, filter ListFilter) ([]Material, int, error) {
	return s.store.ListMaterials(ctx, filter)
}

func (s *Service) GetMaterial(ctx context.Context, id int64) (Material, error) {
	if id <= 0 {
		return Material{}, ErrNotFound
	}
	return s.store.GetMaterial(ctx, id)
}

func (s *Service) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	if err := validateMaterial(m); err != nil {
		return Material{}, err
	}
	m.Stock = quantity.Stock(m.Stock)
	return s.store.CreateMaterial(ctx, m)
}

func (s *Service) UpdateMaterial(ctx context.Context, id int64, m Material) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := validateMaterial(m); err != nil {
		return err
	}
	return s.store.UpdateMaterial(ctx, id, m)
}

func (s *Service) DeleteMaterial(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteMaterial(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.store.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}
	p.Stock = quantity.Stock(p.Stock)
	p.PieceRate = quantity.Money(p.PieceRate)
	return s.store.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, p Product) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := validateProduct(p); err != nil {
		return err
	}
	p.PieceRate = quantity.Money(p.PieceRate)
	return s.store.UpdateProduct(ctx, id, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteProduct(ctx, id)
}

// Recipe resolves a product's consumption recipe, ordered by material id.
// An empty recipe is a valid result, not an error; the ledger engine decides
// whether to treat it as fatal.
func (s *Service) Recipe(ctx context.Context, productID int64) ([]BOMLine, error) {
	if productID <= 0 {
		return nil, ErrNotFound
	}
	return s.store.RecipeForProduct(ctx, productID)
}

func (s *Service) CreateBOMLine(ctx context.Context, line BOMLine) (BOMLine, error) {
	if line.ProductID <= 0 || line.MaterialID <= 0 {
		return BOMLine{}, fmt.Errorf("%w: product and material required", ErrInvalidInput)
	}
	if !line.QtyPerOne.IsPositive() {
		return BOMLine{}, fmt.Errorf("%w: qty per one must be positive", ErrInvalidInput)
	}
	line.QtyPerOne = quantity.Stock(line.QtyPerOne)
	return s.store.CreateBOMLine(ctx, line)
}

func (s *Service) UpdateBOMLine(ctx context.Context, id int64, qtyPerOne decimal.Decimal) error {
	if id <= 0 {
		return ErrNotFound
	}
	if !qtyPerOne.IsPositive() {
		return fmt.Errorf("%w: qty per one must be positive", ErrInvalidInput)
	}
	return s.store.UpdateBOMLine(ctx, id, quantity.Stock(qtyPerOne))
}

func (s *Service) DeleteBOMLine(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteBOMLine(ctx, id)
}

func validateMaterial(m Material) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: material name is required", ErrInvalidInput)
	}
	if !m.Unit.Valid() {
		return ErrInvalidUnit
	}
	if m.Stock.IsNegative() {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return nil
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if p.Stock.IsNegative() {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	if p.PieceRate.IsNegative() {
		return fmt.Errorf("%w: piece rate cannot be negative", ErrInvalidInput)
	}
	return nil
}
