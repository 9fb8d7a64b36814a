package checkout

import (
	"sort"

	"kamepos/backend/internal/domain"
)

// ValidateStock checks every computed deduction against the snapshot's
// available stock. The decision is all-or-nothing across the whole sale: the
// first shortage (in deterministic id order) fails the operation and nothing
// is deducted. An ingredient referenced by a recipe but absent from the
// snapshot is a hard failure.
func ValidateStock(ded domain.StockDeductions, snap domain.CatalogSnapshot) error {
	for _, id := range sortedKeys(ded.Products) {
		required := ded.Products[id]
		product, ok := snap.Products[id]
		if !ok {
			return &NotFoundError{Resource: ResourceProduct, ID: id}
		}
		if product.Stock-required < 0 {
			return &ShortageError{
				Resource:  ResourceProduct,
				ID:        id,
				Name:      product.Name,
				Available: product.Stock,
				Required:  required,
			}
		}
	}

	for _, id := range sortedKeys(ded.Ingredients) {
		required := ded.Ingredients[id]
		ingredient, ok := snap.Ingredients[id]
		if !ok {
			return &NotFoundError{Resource: ResourceIngredient, ID: id}
		}
		if ingredient.CurrentStock-required < 0 {
			return &ShortageError{
				Resource:  ResourceIngredient,
				ID:        id,
				Name:      ingredient.Name,
				Available: ingredient.CurrentStock,
				Required:  required,
			}
		}
	}

	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
