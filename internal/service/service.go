package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"kamepos/backend/internal/cache"
	"kamepos/backend/internal/checkout"
	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	coordinator *checkout.Coordinator
	cache       cache.CatalogCache
	notifier    cache.CatalogNotifier
	cacheTTL    time.Duration
}

func New(repo store.Repository, coordinator *checkout.Coordinator, catalogCache cache.CatalogCache, notifier cache.CatalogNotifier, cacheTTL time.Duration) *Service {
	if catalogCache == nil {
		catalogCache = cache.NoopCatalogCache{}
	}
	if notifier == nil {
		notifier = cache.NoopCatalogNotifier{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:        repo,
		coordinator: coordinator,
		cache:       catalogCache,
		notifier:    notifier,
		cacheTTL:    cacheTTL,
	}
}

// Checkout is the sole externally callable operation of the core: it turns
// the pre-totalled payload into a sale snapshot and hands it to the
// transaction coordinator. The caller is responsible for not re-submitting a
// completed checkout; two identical calls produce two ledger entries.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			req.UserID = actor.Username
		}
	}

	sale := domain.Sale{
		UserID:        req.UserID,
		Items:         req.Items,
		SubtotalCents: req.SubtotalCents,
		DiscountCents: req.DiscountCents,
		DeliveryCents: req.DeliveryCents,
		TotalCents:    req.TotalCents,
		Payments:      req.Payments,
		Status:        req.Status,
		CustomerID:    req.CustomerID,
		ShiftID:       req.ShiftID,
	}

	committed, err := s.coordinator.Commit(ctx, sale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	log.Printf("[service] sale committed id=%s shift=%s total=%d items=%d",
		committed.ID, committed.ShiftID, committed.TotalCents, len(committed.Items))

	return domain.CheckoutResponse{
		SaleID:     committed.ID,
		TotalCents: committed.TotalCents,
		Status:     committed.Status,
		CreatedAt:  committed.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.cache.GetProducts(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProducts(ctx, products, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		PriceCents:  req.PriceCents,
		Category:    strings.TrimSpace(req.Category),
		Active:      true,
		StockType:   strings.TrimSpace(req.StockType),
		Stock:       req.Stock,
		Recipe:      req.Recipe,
	}
	if err := s.validateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.catalogChanged(ctx, domain.CatalogEntityProduct, created.ID, domain.CatalogActionCreated)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", store.ErrValidation)
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		updated.PriceCents = *req.PriceCents
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if req.StockType != nil {
		updated.StockType = strings.TrimSpace(*req.StockType)
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.Recipe != nil {
		updated.Recipe = *req.Recipe
	}
	// Switching stock type clears the other side so exactly one stays set.
	if updated.StockType == domain.StockTypeDirect {
		updated.Recipe = nil
	} else if updated.StockType == domain.StockTypeRecipe {
		updated.Stock = 0
	}

	if err := s.validateProduct(ctx, updated); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.catalogChanged(ctx, domain.CatalogEntityProduct, saved.ID, domain.CatalogActionUpdated)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: product id is required", store.ErrValidation)
	}

	// Historical sales keep their frozen item snapshots; nothing cascades.
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.catalogChanged(ctx, domain.CatalogEntityProduct, id, domain.CatalogActionDeleted)
	return nil
}

func (s *Service) validateProduct(ctx context.Context, product domain.Product) error {
	if product.Name == "" {
		return fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if product.Category == "" {
		return fmt.Errorf("%w: product category is required", store.ErrValidation)
	}
	if product.PriceCents < 1 {
		return fmt.Errorf("%w: price must be a positive integer in cents", store.ErrValidation)
	}

	switch product.StockType {
	case domain.StockTypeDirect:
		if product.Stock < 0 {
			return fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
		}
		if len(product.Recipe) > 0 {
			return fmt.Errorf("%w: direct-stock product must not carry a recipe", store.ErrValidation)
		}
	case domain.StockTypeRecipe:
		if len(product.Recipe) == 0 {
			return fmt.Errorf("%w: recipe product needs at least one component", store.ErrValidation)
		}
		if product.Stock != 0 {
			return fmt.Errorf("%w: recipe product must not carry direct stock", store.ErrValidation)
		}
		ids := make([]string, 0, len(product.Recipe))
		for i, component := range product.Recipe {
			if strings.TrimSpace(component.IngredientID) == "" {
				return fmt.Errorf("%w: recipe component %d has no ingredient id", store.ErrValidation, i)
			}
			if component.Quantity < 1 {
				return fmt.Errorf("%w: recipe component %d quantity must be positive", store.ErrValidation, i)
			}
			ids = append(ids, component.IngredientID)
		}
		known, err := s.repo.GetIngredientsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("%w: recipe references unknown ingredient %s", store.ErrValidation, id)
			}
		}
	default:
		return fmt.Errorf("%w: stock type must be %q or %q", store.ErrValidation, domain.StockTypeDirect, domain.StockTypeRecipe)
	}

	return nil
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) GetIngredient(ctx context.Context, id string) (domain.Ingredient, error) {
	ingredient, err := s.repo.GetIngredientByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Ingredient{}, err
	}
	return *ingredient, nil
}

func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientCreateRequest) (domain.Ingredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	ingredient := domain.Ingredient{
		Name:             strings.TrimSpace(req.Name),
		Unit:             strings.TrimSpace(req.Unit),
		CurrentStock:     req.CurrentStock,
		MinStock:         req.MinStock,
		CostPerUnitCents: req.CostPerUnitCents,
	}
	if err := validateIngredient(ingredient); err != nil {
		return domain.Ingredient{}, err
	}

	created, err := s.repo.CreateIngredient(ctx, ingredient)
	if err != nil {
		return domain.Ingredient{}, err
	}

	s.catalogChanged(ctx, domain.CatalogEntityIngredient, created.ID, domain.CatalogActionCreated)
	return *created, nil
}

func (s *Service) UpdateIngredient(ctx context.Context, id string, req domain.IngredientUpdateRequest) (domain.Ingredient, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Ingredient{}, fmt.Errorf("%w: ingredient id is required", store.ErrValidation)
	}

	existing, err := s.repo.GetIngredientByID(ctx, id)
	if err != nil {
		return domain.Ingredient{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.CurrentStock != nil {
		updated.CurrentStock = *req.CurrentStock
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	if req.CostPerUnitCents != nil {
		updated.CostPerUnitCents = *req.CostPerUnitCents
	}
	if err := validateIngredient(updated); err != nil {
		return domain.Ingredient{}, err
	}

	saved, err := s.repo.UpdateIngredient(ctx, updated)
	if err != nil {
		return domain.Ingredient{}, err
	}

	s.catalogChanged(ctx, domain.CatalogEntityIngredient, saved.ID, domain.CatalogActionUpdated)
	return *saved, nil
}

func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: ingredient id is required", store.ErrValidation)
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, product := range products {
		for _, component := range product.Recipe {
			if component.IngredientID == id {
				return fmt.Errorf("%w: ingredient is referenced by product %q", store.ErrValidation, product.Name)
			}
		}
	}

	if err := s.repo.DeleteIngredient(ctx, id); err != nil {
		return err
	}

	s.catalogChanged(ctx, domain.CatalogEntityIngredient, id, domain.CatalogActionDeleted)
	return nil
}

func validateIngredient(ingredient domain.Ingredient) error {
	if ingredient.Name == "" {
		return fmt.Errorf("%w: ingredient name is required", store.ErrValidation)
	}
	if !domain.ValidUnit(ingredient.Unit) {
		return fmt.Errorf("%w: unit must be one of g, ml, u", store.ErrValidation)
	}
	if ingredient.CurrentStock < 0 {
		return fmt.Errorf("%w: current stock must not be negative", store.ErrValidation)
	}
	if ingredient.MinStock < 0 {
		return fmt.Errorf("%w: min stock must not be negative", store.ErrValidation)
	}
	if ingredient.CostPerUnitCents < 0 {
		return fmt.Errorf("%w: cost per unit must not be negative", store.ErrValidation)
	}
	return nil
}

// StockAlerts applies the display policy for the admin panel: below minStock
// is low, below 20% of minStock is critical. Purely decorative; the commit
// path never consults these thresholds.
func (s *Service) StockAlerts(ctx context.Context) ([]domain.StockAlert, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.StockAlert, 0, 8)
	for _, ing := range ingredients {
		if ing.MinStock < 1 || ing.CurrentStock >= ing.MinStock {
			continue
		}
		level := domain.AlertLevelLow
		if ing.CurrentStock < ing.MinStock*20/100 {
			level = domain.AlertLevelCritical
		}
		alerts = append(alerts, domain.StockAlert{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			CurrentStock: ing.CurrentStock,
			MinStock:     ing.MinStock,
			Level:        level,
		})
	}
	return alerts, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error) {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return nil, fmt.Errorf("%w: shift id is required", store.ErrValidation)
	}
	return s.repo.ListSalesByShift(ctx, shiftID)
}

// CloseCashRegister aggregates the shift's non-cancelled sales by payment
// method, compares them against the declared drawer amounts and persists an
// immutable closure record.
func (s *Service) CloseCashRegister(ctx context.Context, req domain.CashClosureRequest) (domain.CashClosure, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.CashClosure{}, err
	}

	req.ShiftID = strings.TrimSpace(req.ShiftID)
	if req.ShiftID == "" {
		return domain.CashClosure{}, fmt.Errorf("%w: shift id is required", store.ErrValidation)
	}
	if req.DeclaredCashCents < 0 || req.DeclaredTransferCents < 0 {
		return domain.CashClosure{}, fmt.Errorf("%w: declared amounts must not be negative", store.ErrValidation)
	}

	sales, err := s.repo.ListSalesByShift(ctx, req.ShiftID)
	if err != nil {
		return domain.CashClosure{}, err
	}

	var systemCash, systemTransfer, salesCount int64
	for _, sale := range sales {
		if sale.Status == domain.SaleStatusCancelled {
			continue
		}
		salesCount++
		for _, payment := range sale.Payments {
			if payment.Method == domain.PaymentCash {
				systemCash += payment.AmountCents
			} else {
				systemTransfer += payment.AmountCents
			}
		}
	}

	closedBy := ""
	if actor, ok := ActorFromContext(ctx); ok {
		closedBy = actor.Username
	}

	declaredTotal := req.DeclaredCashCents + req.DeclaredTransferCents
	systemTotal := systemCash + systemTransfer

	closure := domain.CashClosure{
		ShiftID:               req.ShiftID,
		ClosedBy:              closedBy,
		DeclaredCashCents:     req.DeclaredCashCents,
		DeclaredTransferCents: req.DeclaredTransferCents,
		DeclaredTotalCents:    declaredTotal,
		SystemCashCents:       systemCash,
		SystemTransferCents:   systemTransfer,
		SystemTotalCents:      systemTotal,
		DifferenceCents:       declaredTotal - systemTotal,
		SalesCount:            salesCount,
		Status:                "closed",
	}

	created, err := s.repo.CreateCashClosure(ctx, closure)
	if err != nil {
		return domain.CashClosure{}, err
	}

	log.Printf("[service] cash closure id=%s shift=%s system=%d declared=%d diff=%d sales=%d",
		created.ID, created.ShiftID, created.SystemTotalCents, created.DeclaredTotalCents,
		created.DifferenceCents, created.SalesCount)

	return *created, nil
}

func (s *Service) ListCashClosures(ctx context.Context, limit int) ([]domain.CashClosure, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCashClosures(ctx, limit)
}

// Receipt renders the plain-text ticket preview for a committed sale.
func (s *Service) Receipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.ReceiptResponse{}, fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	shortID := sale.ID
	if len(shortID) > 6 {
		shortID = shortID[len(shortID)-6:]
	}

	lines := []string{
		"        KAME",
		"    Comidas Ricas",
		"========================",
		"Ticket #" + shortID,
		"Fecha: " + sale.CreatedAt.Format("2006-01-02 15:04:05"),
		"Turno: " + sale.ShiftID,
		"------------------------",
	}
	for _, item := range sale.Items {
		lines = append(lines, fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
		lines = append(lines, fmt.Sprintf("   %s", formatCents(item.SubtotalCents)))
	}
	lines = append(lines, "------------------------")
	if sale.DiscountCents > 0 {
		lines = append(lines, "Descuento: -"+formatCents(sale.DiscountCents))
	}
	if sale.DeliveryCents > 0 {
		lines = append(lines, "Envio:     "+formatCents(sale.DeliveryCents))
	}
	lines = append(lines, "TOTAL:     "+formatCents(sale.TotalCents))
	for _, payment := range sale.Payments {
		label := "Transf."
		if payment.Method == domain.PaymentCash {
			label = "Efectivo"
		}
		lines = append(lines, fmt.Sprintf("%-9s %s", label, formatCents(payment.AmountCents)))
	}
	lines = append(lines,
		"========================",
		"GRACIAS POR SU COMPRA!",
		"",
	)

	return domain.ReceiptResponse{
		SaleID:      sale.ID,
		PreviewText: strings.Join(lines, "\n"),
	}, nil
}

func (s *Service) catalogChanged(ctx context.Context, entityType string, entityID string, action string) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
	err := s.notifier.PublishCatalogEvent(ctx, domain.CatalogEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		At:         time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: catalog event publish failed: %v", err)
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return errors.New("admin role required")
	}
	return nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
