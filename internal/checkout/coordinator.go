package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
)

// CatalogLedger is the slice of the repository the coordinator needs: point
// in time reads of the touched records plus the single conditional write.
type CatalogLedger interface {
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	GetIngredientsByIDs(ctx context.Context, ids []string) (map[string]domain.Ingredient, error)
	ApplySale(ctx context.Context, sale domain.Sale, ded domain.StockDeductions, snap domain.CatalogSnapshot) (*domain.Sale, error)
}

// Recorder receives checkout outcomes for observability. Implementations
// must be safe for concurrent use.
type Recorder interface {
	SaleCommitted(totalCents int64)
	SaleFailed(reason string)
	SaleRetried()
}

type noopRecorder struct{}

func (noopRecorder) SaleCommitted(int64) {}
func (noopRecorder) SaleFailed(string)   {}
func (noopRecorder) SaleRetried()        {}

// Checkout attempt phases, in order. An attempt that reaches committing runs
// to completion and cannot be externally cancelled.
const (
	phaseStarted    = "started"
	phaseResolving  = "resolving"
	phaseValidating = "validating"
	phaseCommitting = "committing"
)

const DefaultMaxRetries = 3

// Coordinator executes the sale-commit transaction: read the catalog state
// for every touched resource, resolve and validate deductions in memory,
// then apply stock decrements and the ledger append as one conditional
// write. A stale snapshot is retried with fresh reads a bounded number of
// times; every other failure is surfaced as-is with no partial effects.
type Coordinator struct {
	ledger     CatalogLedger
	recorder   Recorder
	maxRetries int
}

func New(ledger CatalogLedger, recorder Recorder, maxRetries int) *Coordinator {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Coordinator{ledger: ledger, recorder: recorder, maxRetries: maxRetries}
}

// Commit runs one checkout attempt to a terminal state and returns the
// committed sale or a typed failure. Invoking Commit twice with the same
// payload produces two ledger entries and double deduction; deduplication
// is the caller's responsibility.
func (c *Coordinator) Commit(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	// Last gate before a durable, immutable write: re-validate even when
	// the caller already did.
	if err := ValidateSale(sale); err != nil {
		c.recorder.SaleFailed(failureReason(err))
		return nil, err
	}

	productIDs := uniqueProductIDs(sale.Items)

	for attempt := 0; ; attempt++ {
		committed, err := c.attempt(ctx, sale, productIDs)
		if err == nil {
			c.recorder.SaleCommitted(committed.TotalCents)
			return committed, nil
		}

		// Only a stale snapshot is worth retrying: fresh reads can change
		// the outcome. Insufficient stock will not improve on its own.
		if errors.Is(err, store.ErrConcurrentModification) && attempt < c.maxRetries {
			c.recorder.SaleRetried()
			log.Printf("[checkout] stale snapshot, retrying (attempt %d/%d)", attempt+1, c.maxRetries)
			continue
		}

		c.recorder.SaleFailed(failureReason(err))
		return nil, err
	}
}

func (c *Coordinator) attempt(ctx context.Context, sale domain.Sale, productIDs []string) (*domain.Sale, error) {
	phase := phaseStarted

	products, err := c.ledger.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, phaseError(phase, err)
	}

	phase = phaseResolving
	snap := domain.CatalogSnapshot{Products: products, Ingredients: map[string]domain.Ingredient{}}
	ded, err := Resolve(sale.Items, snap)
	if err != nil {
		return nil, err
	}

	ingredientIDs := RecipeIngredientIDs(sale.Items, products)
	if len(ingredientIDs) > 0 {
		ingredients, err := c.ledger.GetIngredientsByIDs(ctx, ingredientIDs)
		if err != nil {
			return nil, phaseError(phase, err)
		}
		for _, id := range ingredientIDs {
			if _, ok := ingredients[id]; !ok {
				return nil, &NotFoundError{Resource: ResourceIngredient, ID: id}
			}
		}
		snap.Ingredients = ingredients
	}

	phase = phaseValidating
	if err := ValidateStock(ded, snap); err != nil {
		return nil, err
	}

	phase = phaseCommitting
	committed, err := c.ledger.ApplySale(ctx, sale, ded, snap)
	if err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			return nil, err
		}
		return nil, phaseError(phase, err)
	}
	return committed, nil
}

func phaseError(phase string, err error) error {
	return fmt.Errorf("checkout %s: %w", phase, err)
}

func failureReason(err error) string {
	var notFound *NotFoundError
	switch {
	case errors.Is(err, store.ErrValidation):
		return "validation_failed"
	case errors.As(err, &notFound):
		return notFound.Resource + "_not_found"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, store.ErrCommitFailed):
		return "commit_failed"
	default:
		return "other"
	}
}

func uniqueProductIDs(items []domain.SaleItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}
