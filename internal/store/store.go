package store

import (
	"context"
	"errors"

	"kamepos/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a structurally invalid payload. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock means the computed deduction exceeds availability
	// for at least one resource. Never retried automatically.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrentModification means the catalog snapshot went stale before
	// the conditional write landed. Safe to retry with fresh reads.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrCommitFailed means the backing store could not durably apply the
	// transaction. Whether partial effects landed cannot be inspected here;
	// callers must re-check ledger state before resubmitting.
	ErrCommitFailed = errors.New("commit failed")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error)
	GetIngredientsByIDs(ctx context.Context, ids []string) (map[string]domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, id string) error

	// ApplySale is the single conditional write of the checkout cycle: in
	// one atomic scope it verifies that every touched Product/Ingredient
	// still carries the version recorded in snap, applies the deductions
	// and appends the sale. A version mismatch or a mid-flight stock
	// shortage yields ErrConcurrentModification; infrastructure failure
	// yields ErrCommitFailed. On any error no effect is visible.
	ApplySale(ctx context.Context, sale domain.Sale, ded domain.StockDeductions, snap domain.CatalogSnapshot) (*domain.Sale, error)

	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSalesByShift(ctx context.Context, shiftID string) ([]domain.Sale, error)

	CreateCashClosure(ctx context.Context, closure domain.CashClosure) (*domain.CashClosure, error)
	ListCashClosures(ctx context.Context, limit int) ([]domain.CashClosure, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
