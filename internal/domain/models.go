package domain

import "time"

const (
	StockTypeDirect = "direct"
	StockTypeRecipe = "recipe"
)

const (
	UnitGram       = "g"
	UnitMilliliter = "ml"
	UnitPiece      = "u"
)

const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

const (
	SaleStatusPending   = "pending"
	SaleStatusPreparing = "preparing"
	SaleStatusReady     = "ready"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// RecipeComponent is one line of a recipe product: how many smallest-unit
// ingredient quantities one sold unit consumes.
type RecipeComponent struct {
	IngredientID string `json:"ingredient_id"`
	Quantity     int64  `json:"quantity"`
}

// Product is a catalog entry. Exactly one of Stock/Recipe is meaningful,
// discriminated by StockType: direct products track their own stock count,
// recipe products consume ingredient stock instead.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PriceCents  int64             `json:"price_cents"`
	Category    string            `json:"category"`
	Active      bool              `json:"active"`
	StockType   string            `json:"stock_type"`
	Stock       int64             `json:"stock"`
	Recipe      []RecipeComponent `json:"recipe,omitempty"`
	Version     int64             `json:"version"`
}

// Ingredient stock is always an integer in the unit's smallest denomination
// (grams, milliliters or pieces). MinStock is an alert threshold only; the
// checkout path never consults it.
type Ingredient struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	CurrentStock     int64  `json:"current_stock"`
	MinStock         int64  `json:"min_stock"`
	CostPerUnitCents int64  `json:"cost_per_unit_cents"`
	Version          int64  `json:"version"`
}

type ProductCreateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PriceCents  int64             `json:"price_cents"`
	Category    string            `json:"category"`
	StockType   string            `json:"stock_type"`
	Stock       int64             `json:"stock"`
	Recipe      []RecipeComponent `json:"recipe,omitempty"`
}

type ProductUpdateRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	PriceCents  *int64             `json:"price_cents,omitempty"`
	Category    *string            `json:"category,omitempty"`
	Active      *bool              `json:"active,omitempty"`
	StockType   *string            `json:"stock_type,omitempty"`
	Stock       *int64             `json:"stock,omitempty"`
	Recipe      *[]RecipeComponent `json:"recipe,omitempty"`
}

type IngredientCreateRequest struct {
	Name             string `json:"name"`
	Unit             string `json:"unit"`
	CurrentStock     int64  `json:"current_stock"`
	MinStock         int64  `json:"min_stock"`
	CostPerUnitCents int64  `json:"cost_per_unit_cents"`
}

type IngredientUpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Unit             *string `json:"unit,omitempty"`
	CurrentStock     *int64  `json:"current_stock,omitempty"`
	MinStock         *int64  `json:"min_stock,omitempty"`
	CostPerUnitCents *int64  `json:"cost_per_unit_cents,omitempty"`
}

// SaleItem is an immutable line-item snapshot: the price is the price at the
// moment of sale and stays frozen even if the live product changes later.
// CostAtSaleCents is persisted when supplied but never populated here.
type SaleItem struct {
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	Category        string `json:"category"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	CostAtSaleCents *int64 `json:"cost_at_sale_cents,omitempty"`
	Quantity        int64  `json:"quantity"`
	SubtotalCents   int64  `json:"subtotal_cents"`
}

type PaymentAllocation struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

// Sale is an append-only ledger record. The financial fields are frozen at
// commit time; only Status may change afterwards, and that happens outside
// this service.
type Sale struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Items         []SaleItem          `json:"items"`
	SubtotalCents int64               `json:"subtotal_cents"`
	DiscountCents int64               `json:"discount_cents"`
	DeliveryCents int64               `json:"delivery_cents"`
	TotalCents    int64               `json:"total_cents"`
	Payments      []PaymentAllocation `json:"payments"`
	Status        string              `json:"status"`
	CustomerID    string              `json:"customer_id,omitempty"`
	ShiftID       string              `json:"shift_id"`
	CreatedAt     time.Time           `json:"created_at"`
}

// CheckoutRequest is the sole externally callable operation of the core:
// a pre-totalled Sale payload. Totals are validated, never recomputed.
type CheckoutRequest struct {
	UserID        string              `json:"user_id"`
	Items         []SaleItem          `json:"items"`
	SubtotalCents int64               `json:"subtotal_cents"`
	DiscountCents int64               `json:"discount_cents"`
	DeliveryCents int64               `json:"delivery_cents"`
	TotalCents    int64               `json:"total_cents"`
	Payments      []PaymentAllocation `json:"payments"`
	Status        string              `json:"status,omitempty"`
	CustomerID    string              `json:"customer_id,omitempty"`
	ShiftID       string              `json:"shift_id"`
}

type CheckoutResponse struct {
	SaleID     string `json:"sale_id"`
	TotalCents int64  `json:"total_cents"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// CatalogSnapshot is the point-in-time view of every record a checkout
// touches, read in one scope and carried (with versions) into the
// conditional write.
type CatalogSnapshot struct {
	Products    map[string]Product
	Ingredients map[string]Ingredient
}

// StockDeductions aggregates the net requirement per resource across all
// line items of a sale.
type StockDeductions struct {
	Products    map[string]int64
	Ingredients map[string]int64
}

func NewStockDeductions() StockDeductions {
	return StockDeductions{
		Products:    make(map[string]int64),
		Ingredients: make(map[string]int64),
	}
}

type CashClosureRequest struct {
	ShiftID               string `json:"shift_id"`
	DeclaredCashCents     int64  `json:"declared_cash_cents"`
	DeclaredTransferCents int64  `json:"declared_transfer_cents"`
}

// CashClosure reconciles the cash drawer against the ledger for one shift.
// Difference is declared minus system: positive means surplus in the drawer.
type CashClosure struct {
	ID                    string    `json:"id"`
	ShiftID               string    `json:"shift_id"`
	ClosedBy              string    `json:"closed_by"`
	DeclaredCashCents     int64     `json:"declared_cash_cents"`
	DeclaredTransferCents int64     `json:"declared_transfer_cents"`
	DeclaredTotalCents    int64     `json:"declared_total_cents"`
	SystemCashCents       int64     `json:"system_cash_cents"`
	SystemTransferCents   int64     `json:"system_transfer_cents"`
	SystemTotalCents      int64     `json:"system_total_cents"`
	DifferenceCents       int64     `json:"difference_cents"`
	SalesCount            int64     `json:"sales_count"`
	Status                string    `json:"status"`
	ClosedAt              time.Time `json:"closed_at"`
}

const (
	AlertLevelLow      = "low"
	AlertLevelCritical = "critical"
)

// StockAlert is display-side decoration for the admin UI, not an enforced
// invariant.
type StockAlert struct {
	IngredientID string `json:"ingredient_id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock int64  `json:"current_stock"`
	MinStock     int64  `json:"min_stock"`
	Level        string `json:"level"`
}

type ReceiptResponse struct {
	SaleID      string `json:"sale_id"`
	PreviewText string `json:"preview_text"`
}

// CatalogEvent is published on the catalog change feed consumed by the POS
// and admin UIs. The checkout core never consumes these.
type CatalogEvent struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
}

const (
	CatalogEntityProduct    = "product"
	CatalogEntityIngredient = "ingredient"

	CatalogActionCreated = "created"
	CatalogActionUpdated = "updated"
	CatalogActionDeleted = "deleted"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

func ValidUnit(unit string) bool {
	switch unit {
	case UnitGram, UnitMilliliter, UnitPiece:
		return true
	}
	return false
}

func ValidPaymentMethod(method string) bool {
	return method == PaymentCash || method == PaymentTransfer
}

func ValidSaleStatus(status string) bool {
	switch status {
	case SaleStatusPending, SaleStatusPreparing, SaleStatusReady, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}
