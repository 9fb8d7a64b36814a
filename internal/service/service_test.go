package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"kamepos/backend/internal/cache"
	"kamepos/backend/internal/checkout"
	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
	"kamepos/backend/internal/store/memory"
)

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

type fakeCatalogCache struct {
	mu          sync.Mutex
	products    []domain.Product
	populated   bool
	invalidated int
}

func (c *fakeCatalogCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products, c.populated, nil
}

func (c *fakeCatalogCache) SetProducts(_ context.Context, products []domain.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.populated = true
	return nil
}

func (c *fakeCatalogCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.populated = false
	c.invalidated++
	return nil
}

type capturingNotifier struct {
	mu     sync.Mutex
	events []domain.CatalogEvent
}

func (n *capturingNotifier) PublishCatalogEvent(_ context.Context, event domain.CatalogEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func newTestService(repo store.Repository, catalogCache cache.CatalogCache, notifier cache.CatalogNotifier) *Service {
	coordinator := checkout.New(repo, nil, checkout.DefaultMaxRetries)
	return New(repo, coordinator, catalogCache, notifier, time.Minute)
}

func TestCheckoutFillsUserFromActor(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo, nil, nil)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items: []domain.SaleItem{
			{ProductID: "prod-agua", ProductName: "Agua Mineral", UnitPriceCents: 120000, Quantity: 2, SubtotalCents: 240000},
		},
		SubtotalCents: 240000,
		TotalCents:    240000,
		Payments:      []domain.PaymentAllocation{{Method: domain.PaymentCash, AmountCents: 240000}},
		ShiftID:       "shift-1",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.SaleID == "" {
		t.Fatalf("expected sale id")
	}

	sale, err := svc.GetSale(cashierCtx(), resp.SaleID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if sale.UserID != "cashier" {
		t.Fatalf("expected user id from actor, got %q", sale.UserID)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		Name: "Empanada", Category: "snacks", PriceCents: 90000,
		StockType: domain.StockTypeDirect, Stock: 20,
	})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin gate, got %v", err)
	}
}

func TestCreateRecipeProductRejectsUnknownIngredient(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Milanesa", Category: "mains", PriceCents: 500000,
		StockType: domain.StockTypeRecipe,
		Recipe:    []domain.RecipeComponent{{IngredientID: "ing-ghost", Quantity: 100}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateProductSwitchingToDirectClearsRecipe(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	stockType := domain.StockTypeDirect
	stock := int64(12)
	updated, err := svc.UpdateProduct(adminCtx(), "prod-burger", domain.ProductUpdateRequest{
		StockType: &stockType,
		Stock:     &stock,
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if len(updated.Recipe) != 0 {
		t.Fatalf("expected recipe cleared, got %d components", len(updated.Recipe))
	}
	if updated.Stock != 12 {
		t.Fatalf("expected stock 12, got %d", updated.Stock)
	}
}

func TestDeleteIngredientBlockedByRecipeReference(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	err := svc.DeleteIngredient(adminCtx(), "ing-carne")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for referenced ingredient, got %v", err)
	}
}

func TestProductMutationsInvalidateCatalogCache(t *testing.T) {
	repo := memory.NewSeeded()
	catalogCache := &fakeCatalogCache{}
	notifier := &capturingNotifier{}
	svc := newTestService(repo, catalogCache, notifier)

	if _, err := svc.ListProducts(adminCtx()); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if !catalogCache.populated {
		t.Fatalf("expected cache populated after list")
	}

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Empanada", Category: "snacks", PriceCents: 90000,
		StockType: domain.StockTypeDirect, Stock: 20,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if catalogCache.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", catalogCache.invalidated)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("expected one catalog event, got %d", len(notifier.events))
	}
	event := notifier.events[0]
	if event.EntityType != domain.CatalogEntityProduct || event.EntityID != created.ID || event.Action != domain.CatalogActionCreated {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestStockAlertsLevels(t *testing.T) {
	ctx := adminCtx()
	repo := memory.New()
	svc := newTestService(repo, nil, nil)

	seed := []domain.Ingredient{
		{ID: "ing-ok", Name: "Harina", Unit: domain.UnitGram, CurrentStock: 100, MinStock: 50},
		{ID: "ing-low", Name: "Sal", Unit: domain.UnitGram, CurrentStock: 30, MinStock: 50},
		{ID: "ing-critical", Name: "Aceite", Unit: domain.UnitMilliliter, CurrentStock: 5, MinStock: 50},
		{ID: "ing-no-threshold", Name: "Agua", Unit: domain.UnitMilliliter, CurrentStock: 0, MinStock: 0},
	}
	for _, ing := range seed {
		if _, err := repo.CreateIngredient(ctx, ing); err != nil {
			t.Fatalf("create ingredient: %v", err)
		}
	}

	alerts, err := svc.StockAlerts(ctx)
	if err != nil {
		t.Fatalf("stock alerts: %v", err)
	}
	levels := map[string]string{}
	for _, alert := range alerts {
		levels[alert.IngredientID] = alert.Level
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d (%v)", len(alerts), levels)
	}
	if levels["ing-low"] != domain.AlertLevelLow {
		t.Fatalf("expected low alert, got %q", levels["ing-low"])
	}
	if levels["ing-critical"] != domain.AlertLevelCritical {
		t.Fatalf("expected critical alert, got %q", levels["ing-critical"])
	}
}

func TestCloseCashRegisterAggregatesShift(t *testing.T) {
	ctx := adminCtx()
	repo := memory.NewSeeded()
	svc := newTestService(repo, nil, nil)

	seedSale := func(shiftID, status string, payments ...domain.PaymentAllocation) {
		t.Helper()
		sale := domain.Sale{
			UserID:   "cashier",
			ShiftID:  shiftID,
			Status:   status,
			Items:    []domain.SaleItem{{ProductID: "prod-agua", Quantity: 1}},
			Payments: payments,
		}
		if _, err := repo.ApplySale(ctx, sale, domain.NewStockDeductions(), domain.CatalogSnapshot{}); err != nil {
			t.Fatalf("seed sale: %v", err)
		}
	}

	seedSale("shift-1", domain.SaleStatusCompleted,
		domain.PaymentAllocation{Method: domain.PaymentCash, AmountCents: 100000},
		domain.PaymentAllocation{Method: domain.PaymentTransfer, AmountCents: 50000},
	)
	seedSale("shift-1", domain.SaleStatusCancelled,
		domain.PaymentAllocation{Method: domain.PaymentCash, AmountCents: 20000},
	)
	seedSale("shift-2", domain.SaleStatusCompleted,
		domain.PaymentAllocation{Method: domain.PaymentCash, AmountCents: 999999},
	)

	closure, err := svc.CloseCashRegister(ctx, domain.CashClosureRequest{
		ShiftID:               "shift-1",
		DeclaredCashCents:     110000,
		DeclaredTransferCents: 50000,
	})
	if err != nil {
		t.Fatalf("close cash register: %v", err)
	}

	if closure.SystemCashCents != 100000 {
		t.Fatalf("expected system cash 100000, got %d", closure.SystemCashCents)
	}
	if closure.SystemTransferCents != 50000 {
		t.Fatalf("expected system transfer 50000, got %d", closure.SystemTransferCents)
	}
	if closure.DifferenceCents != 10000 {
		t.Fatalf("expected surplus 10000, got %d", closure.DifferenceCents)
	}
	if closure.SalesCount != 1 {
		t.Fatalf("expected 1 counted sale, got %d", closure.SalesCount)
	}
	if closure.ClosedBy != "admin" {
		t.Fatalf("expected closed_by admin, got %q", closure.ClosedBy)
	}
}

func TestCloseCashRegisterRequiresAdmin(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	_, err := svc.CloseCashRegister(cashierCtx(), domain.CashClosureRequest{ShiftID: "shift-1"})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin gate, got %v", err)
	}
}

func TestListSalesByShiftRequiresShiftID(t *testing.T) {
	svc := newTestService(memory.NewSeeded(), nil, nil)

	_, err := svc.ListSalesByShift(cashierCtx(), "  ")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReceiptRendersTicket(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo, nil, nil)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items: []domain.SaleItem{
			{ProductID: "prod-gaseosa", ProductName: "Gaseosa 500ml", UnitPriceCents: 180000, Quantity: 2, SubtotalCents: 360000},
		},
		SubtotalCents: 360000,
		DiscountCents: 10000,
		TotalCents:    350000,
		Payments:      []domain.PaymentAllocation{{Method: domain.PaymentCash, AmountCents: 350000}},
		ShiftID:       "shift-1",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	receipt, err := svc.Receipt(cashierCtx(), resp.SaleID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	for _, want := range []string{
		"KAME",
		"Ticket #",
		"2x Gaseosa 500ml",
		"Descuento: -$100.00",
		"TOTAL:     $3500.00",
		"Efectivo",
	} {
		if !strings.Contains(receipt.PreviewText, want) {
			t.Fatalf("receipt missing %q:\n%s", want, receipt.PreviewText)
		}
	}
}
