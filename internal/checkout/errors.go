package checkout

import (
	"fmt"

	"kamepos/backend/internal/store"
)

const (
	ResourceProduct    = "product"
	ResourceIngredient = "ingredient"
)

// NotFoundError reports a catalog record referenced by the sale that did not
// exist at resolution time. Fatal to the attempt.
type NotFoundError struct {
	Resource string
	ID       string
	Name     string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s not found: %s (%s)", e.Resource, e.Name, e.ID)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// ShortageError carries the detail a cashier-facing message needs: which
// resource fell short, how much was available and how much the sale needed.
type ShortageError struct {
	Resource  string
	ID        string
	Name      string
	Available int64
	Required  int64
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock: %s %q (available %d, required %d)",
		e.Resource, e.Name, e.Available, e.Required)
}

func (e *ShortageError) Unwrap() error { return store.ErrInsufficientStock }
