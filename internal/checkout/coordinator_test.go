package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
	"kamepos/backend/internal/store/memory"
)

func cashSale(shiftID string, items ...domain.SaleItem) domain.Sale {
	var subtotal int64
	for _, item := range items {
		subtotal += item.SubtotalCents
	}
	return domain.Sale{
		UserID:        "cashier",
		ShiftID:       shiftID,
		Items:         items,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		Payments:      []domain.PaymentAllocation{{Method: domain.PaymentCash, AmountCents: subtotal}},
	}
}

func lineItem(productID, name string, priceCents, qty int64) domain.SaleItem {
	return domain.SaleItem{
		ProductID:      productID,
		ProductName:    name,
		UnitPriceCents: priceCents,
		Quantity:       qty,
		SubtotalCents:  priceCents * qty,
	}
}

type countingRecorder struct {
	mu        sync.Mutex
	committed int
	retried   int
	failures  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{failures: map[string]int{}}
}

func (r *countingRecorder) SaleCommitted(int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed++
}

func (r *countingRecorder) SaleFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[reason]++
}

func (r *countingRecorder) SaleRetried() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retried++
}

type stubLedger struct {
	products    map[string]domain.Product
	ingredients map[string]domain.Ingredient
	applyErr    error

	reads   int
	applies int
}

func (l *stubLedger) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	l.reads++
	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := l.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (l *stubLedger) GetIngredientsByIDs(_ context.Context, ids []string) (map[string]domain.Ingredient, error) {
	result := make(map[string]domain.Ingredient, len(ids))
	for _, id := range ids {
		if ing, ok := l.ingredients[id]; ok {
			result[id] = ing
		}
	}
	return result, nil
}

func (l *stubLedger) ApplySale(_ context.Context, sale domain.Sale, _ domain.StockDeductions, _ domain.CatalogSnapshot) (*domain.Sale, error) {
	l.applies++
	if l.applyErr != nil {
		return nil, l.applyErr
	}
	committed := sale
	committed.ID = "sale-stub"
	committed.Status = domain.SaleStatusPending
	return &committed, nil
}

func TestCommitDeductsDirectStock(t *testing.T) {
	repo := memory.NewSeeded()
	coord := New(repo, nil, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-gaseosa", "Gaseosa 500ml", 180000, 3))
	committed, err := coord.Commit(context.Background(), sale)
	require.NoError(t, err)
	require.NotEmpty(t, committed.ID)
	require.Equal(t, domain.SaleStatusPending, committed.Status)

	product, err := repo.GetProductByID(context.Background(), "prod-gaseosa")
	require.NoError(t, err)
	require.Equal(t, int64(45), product.Stock)
	require.Equal(t, int64(2), product.Version)
}

func TestCommitDeductsRecipeIngredients(t *testing.T) {
	repo := memory.NewSeeded()
	coord := New(repo, nil, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-burger", "Burger Kame", 650000, 2))
	_, err := coord.Commit(context.Background(), sale)
	require.NoError(t, err)

	carne, err := repo.GetIngredientByID(context.Background(), "ing-carne")
	require.NoError(t, err)
	require.Equal(t, int64(8000-360), carne.CurrentStock)
	require.Equal(t, int64(2), carne.Version)

	pan, err := repo.GetIngredientByID(context.Background(), "ing-pan")
	require.NoError(t, err)
	require.Equal(t, int64(58), pan.CurrentStock)

	queso, err := repo.GetIngredientByID(context.Background(), "ing-queso")
	require.NoError(t, err)
	require.Equal(t, int64(3000-80), queso.CurrentStock)
}

func TestCommitShortageLeavesStockUntouched(t *testing.T) {
	repo := memory.NewSeeded()
	recorder := newCountingRecorder()
	coord := New(repo, recorder, DefaultMaxRetries)

	// 50 burgers need 9000g of meat against the seeded 8000g.
	sale := cashSale("shift-1", lineItem("prod-burger", "Burger Kame", 650000, 50))
	_, err := coord.Commit(context.Background(), sale)
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Equal(t, ResourceIngredient, shortage.Resource)
	require.Equal(t, "ing-carne", shortage.ID)
	require.Equal(t, int64(8000), shortage.Available)
	require.Equal(t, int64(9000), shortage.Required)

	carne, err := repo.GetIngredientByID(context.Background(), "ing-carne")
	require.NoError(t, err)
	require.Equal(t, int64(8000), carne.CurrentStock)
	require.Equal(t, int64(1), carne.Version)

	require.Equal(t, 1, recorder.failures["insufficient_stock"])
	require.Zero(t, recorder.retried)
}

func TestCommitValidationFailureNeverReadsTheStore(t *testing.T) {
	ledger := &stubLedger{}
	recorder := newCountingRecorder()
	coord := New(ledger, recorder, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-soda", "Gaseosa", 100, 1))
	sale.Payments[0].AmountCents = 99

	_, err := coord.Commit(context.Background(), sale)
	require.ErrorIs(t, err, store.ErrValidation)
	require.Zero(t, ledger.reads)
	require.Zero(t, ledger.applies)
	require.Equal(t, 1, recorder.failures["validation_failed"])
}

func TestCommitRetriesStaleSnapshotBounded(t *testing.T) {
	ledger := &stubLedger{
		products: map[string]domain.Product{
			"prod-soda": {ID: "prod-soda", StockType: domain.StockTypeDirect, Stock: 100, Version: 1},
		},
		applyErr: store.ErrConcurrentModification,
	}
	recorder := newCountingRecorder()
	coord := New(ledger, recorder, 2)

	sale := cashSale("shift-1", lineItem("prod-soda", "Gaseosa", 100, 1))
	_, err := coord.Commit(context.Background(), sale)
	require.ErrorIs(t, err, store.ErrConcurrentModification)

	require.Equal(t, 3, ledger.applies)
	require.Equal(t, 2, recorder.retried)
	require.Equal(t, 1, recorder.failures["concurrent_modification"])
}

func TestCommitNeverRetriesShortage(t *testing.T) {
	ledger := &stubLedger{
		products: map[string]domain.Product{
			"prod-soda": {ID: "prod-soda", StockType: domain.StockTypeDirect, Stock: 1, Version: 1},
		},
	}
	coord := New(ledger, nil, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-soda", "Gaseosa", 100, 2))
	_, err := coord.Commit(context.Background(), sale)
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	require.Equal(t, 1, ledger.reads)
	require.Zero(t, ledger.applies)
}

func TestCommitUnknownIngredientFailsAttempt(t *testing.T) {
	ledger := &stubLedger{
		products: map[string]domain.Product{
			"prod-burger": {
				ID:        "prod-burger",
				StockType: domain.StockTypeRecipe,
				Recipe:    []domain.RecipeComponent{{IngredientID: "ing-ghost", Quantity: 10}},
				Version:   1,
			},
		},
	}
	coord := New(ledger, nil, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-burger", "Burger", 100, 1))
	_, err := coord.Commit(context.Background(), sale)
	require.ErrorIs(t, err, store.ErrNotFound)

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, ResourceIngredient, notFound.Resource)
	require.Equal(t, "ing-ghost", notFound.ID)
}

func TestDoubleCommitAppendsTwiceAndDeductsTwice(t *testing.T) {
	repo := memory.NewSeeded()
	coord := New(repo, nil, DefaultMaxRetries)

	sale := cashSale("shift-1", lineItem("prod-gaseosa", "Gaseosa 500ml", 180000, 3))

	first, err := coord.Commit(context.Background(), sale)
	require.NoError(t, err)
	second, err := coord.Commit(context.Background(), sale)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	product, err := repo.GetProductByID(context.Background(), "prod-gaseosa")
	require.NoError(t, err)
	require.Equal(t, int64(42), product.Stock)

	sales, err := repo.ListSalesByShift(context.Background(), "shift-1")
	require.NoError(t, err)
	require.Len(t, sales, 2)
}

func TestConcurrentCommitsSingleWinner(t *testing.T) {
	repo := memory.NewSeeded()
	recorder := newCountingRecorder()
	coord := New(repo, recorder, DefaultMaxRetries)

	// Each sale wants 30 of the 48 seeded units: only one can win.
	sale := cashSale("shift-1", lineItem("prod-gaseosa", "Gaseosa 500ml", 180000, 30))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = coord.Commit(context.Background(), sale)
		}(i)
	}
	wg.Wait()

	var wins, shortages int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrInsufficientStock):
			shortages++
		default:
			t.Fatalf("unexpected terminal error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, shortages)

	product, err := repo.GetProductByID(context.Background(), "prod-gaseosa")
	require.NoError(t, err)
	require.Equal(t, int64(18), product.Stock)
	require.Equal(t, 1, recorder.committed)
}
