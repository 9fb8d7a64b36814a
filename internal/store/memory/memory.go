package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
	"kamepos/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	ingredients     map[string]domain.Ingredient
	salesByID       map[string]domain.Sale
	saleOrder       []string
	closuresByID    map[string]domain.CashClosure
	closureOrder    []string
	usersByUsername map[string]domain.UserAccount
	now             func() time.Time
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		ingredients:     make(map[string]domain.Ingredient),
		salesByID:       make(map[string]domain.Sale),
		saleOrder:       make([]string, 0, 64),
		closuresByID:    make(map[string]domain.CashClosure),
		closureOrder:    make([]string, 0, 16),
		usersByUsername: seedUsers(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func NewSeeded() *Store {
	s := New()

	ingredients := []domain.Ingredient{
		{ID: "ing-carne", Name: "Carne Picada", Unit: domain.UnitGram, CurrentStock: 8000, MinStock: 2000, CostPerUnitCents: 9, Version: 1},
		{ID: "ing-pan", Name: "Pan de Burger", Unit: domain.UnitPiece, CurrentStock: 60, MinStock: 20, CostPerUnitCents: 180, Version: 1},
		{ID: "ing-queso", Name: "Queso Cheddar", Unit: domain.UnitGram, CurrentStock: 3000, MinStock: 800, CostPerUnitCents: 14, Version: 1},
		{ID: "ing-papas", Name: "Papas Congeladas", Unit: domain.UnitGram, CurrentStock: 12000, MinStock: 3000, CostPerUnitCents: 4, Version: 1},
		{ID: "ing-aceite", Name: "Aceite", Unit: domain.UnitMilliliter, CurrentStock: 5000, MinStock: 1000, CostPerUnitCents: 2, Version: 1},
	}
	for _, ing := range ingredients {
		s.ingredients[ing.ID] = ing
	}

	products := []domain.Product{
		{ID: "prod-burger", Name: "Burger Kame", Category: "burgers", PriceCents: 650000, Active: true, StockType: domain.StockTypeRecipe, Version: 1,
			Recipe: []domain.RecipeComponent{
				{IngredientID: "ing-carne", Quantity: 180},
				{IngredientID: "ing-pan", Quantity: 1},
				{IngredientID: "ing-queso", Quantity: 40},
			}},
		{ID: "prod-papas", Name: "Papas Fritas", Category: "sides", PriceCents: 350000, Active: true, StockType: domain.StockTypeRecipe, Version: 1,
			Recipe: []domain.RecipeComponent{
				{IngredientID: "ing-papas", Quantity: 250},
				{IngredientID: "ing-aceite", Quantity: 50},
			}},
		{ID: "prod-gaseosa", Name: "Gaseosa 500ml", Category: "drinks", PriceCents: 180000, Active: true, StockType: domain.StockTypeDirect, Stock: 48, Version: 1},
		{ID: "prod-agua", Name: "Agua Mineral", Category: "drinks", PriceCents: 120000, Active: true, StockType: domain.StockTypeDirect, Stock: 36, Version: 1},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, copyProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := copyProduct(product)
	return &copied, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, exists := s.products[id]; exists {
			result[id] = copyProduct(product)
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}

	product.Version = 1
	s.products[product.ID] = copyProduct(product)
	created := copyProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	product.Version = existing.Version + 1
	s.products[product.ID] = copyProduct(product)
	updated := copyProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	// Historical sales keep their item snapshots; nothing cascades.
	delete(s.products, id)
	return nil
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		ingredients = append(ingredients, ing)
	}
	slices.SortFunc(ingredients, func(a, b domain.Ingredient) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ingredients, nil
}

func (s *Store) GetIngredientByID(_ context.Context, id string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredient, exists := s.ingredients[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := ingredient
	return &copied, nil
}

func (s *Store) GetIngredientsByIDs(_ context.Context, ids []string) (map[string]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Ingredient, len(ids))
	for _, id := range ids {
		if ingredient, exists := s.ingredients[id]; exists {
			result[id] = ingredient
		}
	}
	return result, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if _, exists := s.ingredients[ingredient.ID]; exists {
		return nil, store.ErrValidation
	}

	ingredient.Version = 1
	s.ingredients[ingredient.ID] = ingredient
	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ingredients[ingredient.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	ingredient.Version = existing.Version + 1
	s.ingredients[ingredient.ID] = ingredient
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredients[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ingredients, id)
	return nil
}

// ApplySale holds the write lock for the whole check-and-write, so the
// version comparison and the decrements are one atomic unit. A record whose
// version moved since the snapshot was taken (or that vanished entirely)
// fails the attempt with ErrConcurrentModification and leaves every record
// untouched.
func (s *Store) ApplySale(_ context.Context, sale domain.Sale, ded domain.StockDeductions, snap domain.CatalogSnapshot) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range ded.Products {
		current, exists := s.products[id]
		snapshotted, inSnap := snap.Products[id]
		if !exists || !inSnap || current.Version != snapshotted.Version {
			return nil, store.ErrConcurrentModification
		}
		if current.Stock < ded.Products[id] {
			// Snapshot said otherwise, so someone raced us here.
			return nil, store.ErrConcurrentModification
		}
	}
	for id := range ded.Ingredients {
		current, exists := s.ingredients[id]
		snapshotted, inSnap := snap.Ingredients[id]
		if !exists || !inSnap || current.Version != snapshotted.Version {
			return nil, store.ErrConcurrentModification
		}
		if current.CurrentStock < ded.Ingredients[id] {
			return nil, store.ErrConcurrentModification
		}
	}

	for id, qty := range ded.Products {
		product := s.products[id]
		product.Stock -= qty
		product.Version++
		s.products[id] = product
	}
	for id, qty := range ded.Ingredients {
		ingredient := s.ingredients[id]
		ingredient.CurrentStock -= qty
		ingredient.Version++
		s.ingredients[id] = ingredient
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	sale.CreatedAt = s.now()
	if sale.Status == "" {
		sale.Status = domain.SaleStatusPending
	}

	stored := copySale(sale)
	s.salesByID[sale.ID] = stored
	s.saleOrder = append(s.saleOrder, sale.ID)

	committed := copySale(stored)
	return &committed, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := copySale(sale)
	return &copied, nil
}

func (s *Store) ListSalesByShift(_ context.Context, shiftID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, 32)
	for _, id := range s.saleOrder {
		sale := s.salesByID[id]
		if sale.ShiftID != shiftID {
			continue
		}
		sales = append(sales, copySale(sale))
	}
	return sales, nil
}

func (s *Store) CreateCashClosure(_ context.Context, closure domain.CashClosure) (*domain.CashClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if closure.ID == "" {
		closure.ID = xid.New("closure")
	}
	if closure.ClosedAt.IsZero() {
		closure.ClosedAt = s.now()
	}
	if _, exists := s.closuresByID[closure.ID]; exists {
		return nil, store.ErrValidation
	}

	s.closuresByID[closure.ID] = closure
	s.closureOrder = append(s.closureOrder, closure.ID)
	created := closure
	return &created, nil
}

func (s *Store) ListCashClosures(_ context.Context, limit int) ([]domain.CashClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	closures := make([]domain.CashClosure, 0, limit)
	for i := len(s.closureOrder) - 1; i >= 0 && len(closures) < limit; i-- {
		closures = append(closures, s.closuresByID[s.closureOrder[i]])
	}
	return closures, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func copyProduct(p domain.Product) domain.Product {
	copied := p
	if p.Recipe != nil {
		copied.Recipe = make([]domain.RecipeComponent, len(p.Recipe))
		copy(copied.Recipe, p.Recipe)
	}
	return copied
}

func copySale(sale domain.Sale) domain.Sale {
	copied := sale
	copied.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copied.Items, sale.Items)
	copied.Payments = make([]domain.PaymentAllocation, len(sale.Payments))
	copy(copied.Payments, sale.Payments)
	return copied
}
