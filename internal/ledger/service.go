package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierops/atelier/internal/batches"
	"github.com/atelierops/atelier/internal/catalog"
	"github.com/atelierops/atelier/internal/quantity"
	"github.com/atelierops/atelier/internal/shared"
)

// TxRepository exposes the row-level operations available inside one ledger
// transaction. The ForUpdate getters take an exclusive lock on the row and
// return its current persisted state; callers must recompute from that
// state, never from values read earlier.
type TxRepository interface {
	GetBatchForUpdate(ctx context.Context, id int64) (batches.Batch, error)
	SetBatchStatus(ctx context.Context, id int64, status batches.Status) error
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	GetMaterialForUpdate(ctx context.Context, id int64) (catalog.Material, error)
	RecipeForProduct(ctx context.Context, productID int64) ([]catalog.BOMLine, error)
	UpdateMaterialStock(ctx context.Context, id int64, stock decimal.Decimal) error
	UpdateProductStock(ctx context.Context, id int64, stock decimal.Decimal) error
	InsertOperation(ctx context.Context, op ProductionOperation) (int64, error)
	InsertMovement(ctx context.Context, mv StockMovement) (int64, error)
	InsertAdjustment(ctx context.Context, adj StockAdjustment) (int64, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, int, error)
	ListAdjustments(ctx context.Context, page, perPage int) ([]StockAdjustment, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against double-submitted requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// InvalidatorPort is notified after every committed stock write so cached
// read models can drop stale data.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// Service is the ledger engine. All stock mutation flows through its two
// operations; everything else in the system only reads stock.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	clock       shared.Clock
	invalidator InvalidatorPort
}

// NewService builds Service. audit and idempotency may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idempotency IdempotencyPort, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Service{repo: repo, audit: audit, idempotency: idempotency, clock: clock}
}

// SetInvalidator registers a cache invalidation hook, called after each
// committed write. Failures are logged by the hook itself, never surfaced:
// a stale report cache must not fail a committed production.
func (s *Service) SetInvalidator(inv InvalidatorPort) {
	s.invalidator = inv
}

// Validate performs the pure, side-effect-free checks of a production
// request. Availability checks need row locks and happen inside Apply.
func (in ProductionInput) Validate() error {
	if in.EmployeeID <= 0 {
		return fmt.Errorf("%w: employee is required", ErrInvalidInput)
	}
	if in.BatchID <= 0 {
		return fmt.Errorf("%w: batch is required", ErrInvalidInput)
	}
	if !in.Qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidQuantity)
	}
	if !quantity.IsWhole(in.Qty) {
		return fmt.Errorf("%w: produced quantity must be a whole number", ErrInvalidQuantity)
	}
	return nil
}

// RecordProduction records a production event: it resolves the batch and
// its product, consumes materials by recipe, credits product stock, writes
// the movement journal and snapshots the pay. All of it commits or none of
// it does.
func (s *Service) RecordProduction(ctx context.Context, in ProductionInput) (ProductionResult, error) {
	if err := in.Validate(); err != nil {
		return ProductionResult{}, err
	}

	key := in.IdempotencyKey
	insertedKey := false
	if s.idempotency != nil && key != "" {
		if err := s.idempotency.CheckAndInsert(ctx, key, "ledger"); err != nil {
			return ProductionResult{}, err
		}
		insertedKey = true
	}

	var result ProductionResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		res, err := s.applyProduction(ctx, tx, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return ProductionResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.EmployeeID,
			Action:   "ledger:production",
			Entity:   "production_operation",
			EntityID: fmt.Sprintf("%d", result.OperationID),
			Meta: map[string]any{
				"batch_id":   result.BatchID,
				"product_id": result.ProductID,
				"qty":        result.Qty.String(),
				"pay_total":  result.PayTotal.String(),
			},
		})
	}
	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx)
	}
	return result, nil
}

func (s *Service) applyProduction(ctx context.Context, tx TxRepository, in ProductionInput) (ProductionResult, error) {
	batch, err := tx.GetBatchForUpdate(ctx, in.BatchID)
	if err != nil {
		return ProductionResult{}, err
	}
	// First operation pulls a Planned batch into work. Done/Canceled do not
	// block recording; see DESIGN.md for the open question on that policy.
	if batch.Status == batches.StatusPlanned {
		if err := tx.SetBatchStatus(ctx, batch.ID, batches.StatusInProgress); err != nil {
			return ProductionResult{}, err
		}
	}

	product, err := tx.GetProductForUpdate(ctx, batch.ProductID)
	if err != nil {
		return ProductionResult{}, err
	}

	recipe, err := tx.RecipeForProduct(ctx, product.ID)
	if err != nil {
		return ProductionResult{}, err
	}
	if len(recipe) == 0 {
		return ProductionResult{}, fmt.Errorf("%w: product %q", ErrMissingBOM, product.Name)
	}

	// Locks are taken in ascending material id order, uniformly across all
	// callers, so two concurrent productions over overlapping material sets
	// cannot circular-wait.
	sort.Slice(recipe, func(i, j int) bool { return recipe[i].MaterialID < recipe[j].MaterialID })

	type requirement struct {
		material catalog.Material
		required decimal.Decimal
	}
	requirements := make([]requirement, 0, len(recipe))
	var shortages []Shortage
	for _, line := range recipe {
		mat, err := tx.GetMaterialForUpdate(ctx, line.MaterialID)
		if err != nil {
			return ProductionResult{}, err
		}
		required := quantity.Stock(line.QtyPerOne.Mul(in.Qty))
		requirements = append(requirements, requirement{material: mat, required: required})
		if mat.Stock.LessThan(required) {
			shortages = append(shortages, Shortage{
				MaterialID: mat.ID,
				Name:       mat.Name,
				Required:   required,
				Available:  mat.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return ProductionResult{}, &InsufficientStockError{Shortages: shortages}
	}

	now := s.clock.Now()
	payRate := quantity.Money(product.PieceRate)
	payTotal := quantity.Money(payRate.Mul(in.Qty))
	batchID := batch.ID
	opID, err := tx.InsertOperation(ctx, ProductionOperation{
		EmployeeID: in.EmployeeID,
		ProductID:  product.ID,
		BatchID:    &batchID,
		Qty:        in.Qty,
		PayRate:    payRate,
		PayTotal:   payTotal,
		Note:       in.Note,
		CreatedAt:  now,
	})
	if err != nil {
		return ProductionResult{}, err
	}

	for _, req := range requirements {
		newStock := quantity.Stock(req.material.Stock.Sub(req.required))
		if err := tx.UpdateMaterialStock(ctx, req.material.ID, newStock); err != nil {
			return ProductionResult{}, err
		}
		materialID := req.material.ID
		if _, err := tx.InsertMovement(ctx, StockMovement{
			Type:        MovementOut,
			Qty:         req.required,
			MaterialID:  &materialID,
			OperationID: &opID,
			Comment:     fmt.Sprintf("recipe consumption for %s x %s", in.Qty, product.Name),
			CreatedAt:   now,
		}); err != nil {
			return ProductionResult{}, err
		}
	}

	newProductStock := quantity.Stock(product.Stock.Add(in.Qty))
	if err := tx.UpdateProductStock(ctx, product.ID, newProductStock); err != nil {
		return ProductionResult{}, err
	}
	productID := product.ID
	if _, err := tx.InsertMovement(ctx, StockMovement{
		Type:        MovementIn,
		Qty:         in.Qty,
		ProductID:   &productID,
		OperationID: &opID,
		Comment:     "finished goods from production operation",
		CreatedAt:   now,
	}); err != nil {
		return ProductionResult{}, err
	}

	return ProductionResult{
		OperationID: opID,
		ProductID:   product.ID,
		BatchID:     batch.ID,
		Qty:         in.Qty,
		PayTotal:    payTotal,
	}, nil
}

// Validate performs the pure checks of an adjustment request.
func (in AdjustmentInput) Validate() error {
	if in.ActorID <= 0 {
		return fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}
	if !in.MovementType.Valid() {
		return fmt.Errorf("%w: unknown movement type %q", ErrInvalidInput, in.MovementType)
	}
	if !in.Qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidQuantity)
	}
	switch in.TargetType {
	case TargetMaterial:
		if in.MaterialID <= 0 || in.ProductID != 0 {
			return fmt.Errorf("%w: material target requires exactly a material reference", ErrConflictingTarget)
		}
	case TargetProduct:
		if in.ProductID <= 0 || in.MaterialID != 0 {
			return fmt.Errorf("%w: product target requires exactly a product reference", ErrConflictingTarget)
		}
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrConflictingTarget, in.TargetType)
	}
	return nil
}

// RecordAdjustment applies a manual correction to exactly one material or
// product, appending one movement. The stock effect is applied exactly once;
// later edits to the stored adjustment never re-run it.
func (s *Service) RecordAdjustment(ctx context.Context, in AdjustmentInput) (StockAdjustment, error) {
	if err := in.Validate(); err != nil {
		return StockAdjustment{}, err
	}

	key := in.IdempotencyKey
	insertedKey := false
	if s.idempotency != nil && key != "" {
		if err := s.idempotency.CheckAndInsert(ctx, key, "ledger"); err != nil {
			return StockAdjustment{}, err
		}
		insertedKey = true
	}

	var adj StockAdjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		applied, err := s.applyAdjustment(ctx, tx, in)
		if err != nil {
			return err
		}
		adj = applied
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return StockAdjustment{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   fmt.Sprintf("ledger:adjustment:%s", in.MovementType),
			Entity:   "stock_adjustment",
			EntityID: fmt.Sprintf("%d", adj.ID),
			Meta: map[string]any{
				"target_type": string(in.TargetType),
				"qty":         in.Qty.String(),
				"reason":      in.Reason,
			},
		})
	}
	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx)
	}
	return adj, nil
}

func (s *Service) applyAdjustment(ctx context.Context, tx TxRepository, in AdjustmentInput) (StockAdjustment, error) {
	var (
		name       string
		current    decimal.Decimal
		materialID *int64
		productID  *int64
	)
	switch in.TargetType {
	case TargetMaterial:
		mat, err := tx.GetMaterialForUpdate(ctx, in.MaterialID)
		if err != nil {
			return StockAdjustment{}, err
		}
		name, current = mat.Name, mat.Stock
		id := mat.ID
		materialID = &id
	case TargetProduct:
		prod, err := tx.GetProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return StockAdjustment{}, err
		}
		name, current = prod.Name, prod.Stock
		id := prod.ID
		productID = &id
	}

	if in.MovementType == MovementOut && current.LessThan(in.Qty) {
		return StockAdjustment{}, &InsufficientStockError{Shortages: []Shortage{{
			Name:      name,
			Required:  in.Qty,
			Available: current,
		}}}
	}

	newStock := current.Add(in.Qty)
	if in.MovementType == MovementOut {
		newStock = current.Sub(in.Qty)
	}
	newStock = quantity.Stock(newStock)

	if materialID != nil {
		if err := tx.UpdateMaterialStock(ctx, *materialID, newStock); err != nil {
			return StockAdjustment{}, err
		}
	} else {
		if err := tx.UpdateProductStock(ctx, *productID, newStock); err != nil {
			return StockAdjustment{}, err
		}
	}

	now := s.clock.Now()
	comment := fmt.Sprintf("adjustment: %s", name)
	if in.Reason != "" {
		comment = fmt.Sprintf("adjustment: %s", in.Reason)
	}

	adj := StockAdjustment{
		CreatedBy:    in.ActorID,
		TargetType:   in.TargetType,
		MaterialID:   materialID,
		ProductID:    productID,
		MovementType: in.MovementType,
		Qty:          in.Qty,
		Reason:       in.Reason,
		CreatedAt:    now,
	}
	adjID, err := tx.InsertAdjustment(ctx, adj)
	if err != nil {
		return StockAdjustment{}, err
	}
	adj.ID = adjID

	if _, err := tx.InsertMovement(ctx, StockMovement{
		Type:       in.MovementType,
		Qty:        in.Qty,
		MaterialID: materialID,
		ProductID:  productID,
		Comment:    comment,
		CreatedAt:  now,
	}); err != nil {
		return StockAdjustment{}, err
	}
	return adj, nil
}

// ListMovements exposes the movement journal, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]StockMovement, int, error) {
	return s.repo.ListMovements(ctx, filter)
}

// ListAdjustments lists recorded adjustments, newest first.
func (s *Service) ListAdjustments(ctx context.Context, page, perPage int) ([]StockAdjustment, int, error) {
	return s.repo.ListAdjustments(ctx, page, perPage)
}

// NewIdempotencyKey generates a fresh key for one submission. Failed
// attempts release their key, so retries may reuse it.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
