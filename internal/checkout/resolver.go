package checkout

import (
	"kamepos/backend/internal/domain"
)

// Resolve turns the line items of a sale into the net deduction required per
// product and per ingredient. Duplicate line items for the same product
// merge by summing; a recipe component's quantity-per-unit multiplies by the
// item quantity. Products missing from the snapshot are a hard failure
// before any validation or write.
func Resolve(items []domain.SaleItem, snap domain.CatalogSnapshot) (domain.StockDeductions, error) {
	ded := domain.NewStockDeductions()

	for _, item := range items {
		product, ok := snap.Products[item.ProductID]
		if !ok {
			return domain.StockDeductions{}, &NotFoundError{
				Resource: ResourceProduct,
				ID:       item.ProductID,
				Name:     item.ProductName,
			}
		}

		switch product.StockType {
		case domain.StockTypeRecipe:
			for _, component := range product.Recipe {
				ded.Ingredients[component.IngredientID] += component.Quantity * item.Quantity
			}
		default:
			ded.Products[item.ProductID] += item.Quantity
		}
	}

	return ded, nil
}

// RecipeIngredientIDs lists every ingredient referenced by the recipe
// products among the given items, deduplicated, so the coordinator can read
// them into the same snapshot.
func RecipeIngredientIDs(items []domain.SaleItem, products map[string]domain.Product) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, 4)
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || product.StockType != domain.StockTypeRecipe {
			continue
		}
		for _, component := range product.Recipe {
			if seen[component.IngredientID] {
				continue
			}
			seen[component.IngredientID] = true
			ids = append(ids, component.IngredientID)
		}
	}
	return ids
}
