package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	materials map[int64]Material
	products  map[int64]Product
	bom       map[int64]BOMLine
	nextID    int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		materials: make(map[int64]Material),
		products:  make(map[int64]Product),
		bom:       make(map[int64]BOMLine),
	}
}

func (s *memoryStore) ListMaterials(ctx context.Context, filter ListFilter) ([]Material, int, error) {
	var out []Material
	for _, m := range s.materials {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (s *memoryStore) GetMaterial(ctx context.Context, id int64) (Material, error) {
	m, ok := s.materials[id]
	if !ok {
		return Material{}, ErrNotFound
	}
	return m, nil
}

func (s *memoryStore) CreateMaterial(ctx context.Context, m Material) (Material, error) {
	for _, existing := range s.materials {
		if existing.Name == m.Name {
			return Material{}, ErrDuplicate
		}
	}
	s.nextID++
	m.ID = s.nextID
	s.materials[m.ID] = m
	return m, nil
}

func (s *memoryStore) UpdateMaterial(ctx context.Context, id int64, m Material) error {
	existing, ok := s.materials[id]
	if !ok {
		return ErrNotFound
	}
	existing.Name = m.Name
	existing.Unit = m.Unit
	existing.IsActive = m.IsActive
	s.materials[id] = existing
	return nil
}

func (s *memoryStore) DeleteMaterial(ctx context.Context, id int64) error {
	if _, ok := s.materials[id]; !ok {
		return ErrNotFound
	}
	for _, line := range s.bom {
		if line.MaterialID == id {
			return ErrInUse
		}
	}
	delete(s.materials, id)
	return nil
}

func (s *memoryStore) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (s *memoryStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return p, nil
}

func (s *memoryStore) UpdateProduct(ctx context.Context, id int64, p Product) error {
	existing, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	existing.Name = p.Name
	existing.PieceRate = p.PieceRate
	existing.IsActive = p.IsActive
	s.products[id] = existing
	return nil
}

func (s *memoryStore) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *memoryStore) RecipeForProduct(ctx context.Context, productID int64) ([]BOMLine, error) {
	var out []BOMLine
	for _, line := range s.bom {
		if line.ProductID == productID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateBOMLine(ctx context.Context, line BOMLine) (BOMLine, error) {
	for _, existing := range s.bom {
		if existing.ProductID == line.ProductID && existing.MaterialID == line.MaterialID {
			return BOMLine{}, ErrDuplicate
		}
	}
	s.nextID++
	line.ID = s.nextID
	s.bom[line.ID] = line
	return line, nil
}

func (s *memoryStore) UpdateBOMLine(ctx context.Context, id int64, qtyPerOne decimal.Decimal) error {
	line, ok := s.bom[id]
	if !ok {
		return ErrNotFound
	}
	line.QtyPerOne = qtyPerOne
	s.bom[id] = line
	return nil
}

func (s *memoryStore) DeleteBOMLine(ctx context.Context, id int64) error {
	if _, ok := s.bom[id]; !ok {
		return ErrNotFound
	}
	delete(s.bom, id)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateMaterial(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, Stock: dec("10.5"), IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "10.500", m.Stock.StringFixed(3))

	_, err = svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, IsActive: true})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateMaterialValidation(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	_, err := svc.CreateMaterial(ctx, Material{Unit: UnitMeter})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: "liters"})
	require.ErrorIs(t, err, ErrInvalidUnit)

	_, err = svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, Stock: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateMaterialNeverTouchesStock(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, Stock: dec("10"), IsActive: true})
	require.NoError(t, err)

	err = svc.UpdateMaterial(ctx, m.ID, Material{Name: "Kraft paper", Unit: UnitMeter, Stock: dec("999"), IsActive: true})
	require.NoError(t, err)

	got, err := svc.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "Kraft paper", got.Name)
	require.Equal(t, "10.000", got.Stock.StringFixed(3))
}

func TestDeleteMaterialInUse(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, IsActive: true})
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, Product{Name: "Gift box", PieceRate: dec("15"), IsActive: true})
	require.NoError(t, err)
	_, err = svc.CreateBOMLine(ctx, BOMLine{ProductID: p.ID, MaterialID: m.ID, QtyPerOne: dec("0.5")})
	require.NoError(t, err)

	err = svc.DeleteMaterial(ctx, m.ID)
	require.ErrorIs(t, err, ErrInUse)
}

func TestCreateProductQuantizesRates(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, Product{Name: "Gift box", PieceRate: dec("15.005"), IsActive: true})
	require.NoError(t, err)
	// money is held at two decimals, half away from zero
	require.Equal(t, "15.01", p.PieceRate.StringFixed(2))
}

func TestRecipeEmptyIsNotAnError(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, Product{Name: "Gift box", IsActive: true})
	require.NoError(t, err)

	lines, err := svc.Recipe(ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestBOMLineDuplicatePair(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, Material{Name: "Paper", Unit: UnitMeter, IsActive: true})
	require.NoError(t, err)
	p, err := svc.CreateProduct(ctx, Product{Name: "Gift box", IsActive: true})
	require.NoError(t, err)

	_, err = svc.CreateBOMLine(ctx, BOMLine{ProductID: p.ID, MaterialID: m.ID, QtyPerOne: dec("0.5")})
	require.NoError(t, err)
	_, err = svc.CreateBOMLine(ctx, BOMLine{ProductID: p.ID, MaterialID: m.ID, QtyPerOne: dec("0.7")})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestBOMLineValidation(t *testing.T) {
	svc := NewService(newMemoryStore())
	ctx := context.Background()

	_, err := svc.CreateBOMLine(ctx, BOMLine{ProductID: 1, MaterialID: 2, QtyPerOne: dec("0")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateBOMLine(ctx, BOMLine{MaterialID: 2, QtyPerOne: dec("1")})
	require.ErrorIs(t, err, ErrInvalidInput)
}
