package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
)

func TestValidateStockAllowsExactDepletion(t *testing.T) {
	ded := domain.NewStockDeductions()
	ded.Products["prod-soda"] = 10
	ded.Ingredients["ing-meat"] = 500

	snap := domain.CatalogSnapshot{
		Products: map[string]domain.Product{
			"prod-soda": {ID: "prod-soda", Stock: 10},
		},
		Ingredients: map[string]domain.Ingredient{
			"ing-meat": {ID: "ing-meat", CurrentStock: 500},
		},
	}

	require.NoError(t, ValidateStock(ded, snap))
}

func TestValidateStockProductShortageCarriesDetail(t *testing.T) {
	ded := domain.NewStockDeductions()
	ded.Products["prod-soda"] = 3

	snap := domain.CatalogSnapshot{
		Products: map[string]domain.Product{
			"prod-soda": {ID: "prod-soda", Name: "Gaseosa", Stock: 2},
		},
		Ingredients: map[string]domain.Ingredient{},
	}

	err := ValidateStock(ded, snap)
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Equal(t, ResourceProduct, shortage.Resource)
	require.Equal(t, "prod-soda", shortage.ID)
	require.Equal(t, int64(2), shortage.Available)
	require.Equal(t, int64(3), shortage.Required)
}

func TestValidateStockIngredientShortageCarriesDetail(t *testing.T) {
	ded := domain.NewStockDeductions()
	ded.Ingredients["ing-meat"] = 100

	snap := domain.CatalogSnapshot{
		Products: map[string]domain.Product{},
		Ingredients: map[string]domain.Ingredient{
			"ing-meat": {ID: "ing-meat", Name: "Carne", CurrentStock: 20},
		},
	}

	err := ValidateStock(ded, snap)
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Equal(t, ResourceIngredient, shortage.Resource)
	require.Equal(t, int64(20), shortage.Available)
	require.Equal(t, int64(100), shortage.Required)
}

func TestValidateStockMissingIngredientIsNotFound(t *testing.T) {
	ded := domain.NewStockDeductions()
	ded.Ingredients["ing-ghost"] = 1

	snap := domain.CatalogSnapshot{
		Products:    map[string]domain.Product{},
		Ingredients: map[string]domain.Ingredient{},
	}

	err := ValidateStock(ded, snap)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestValidateStockReportsFirstShortageInIDOrder(t *testing.T) {
	ded := domain.NewStockDeductions()
	ded.Ingredients["ing-b"] = 10
	ded.Ingredients["ing-a"] = 10

	snap := domain.CatalogSnapshot{
		Products: map[string]domain.Product{},
		Ingredients: map[string]domain.Ingredient{
			"ing-a": {ID: "ing-a", CurrentStock: 1},
			"ing-b": {ID: "ing-b", CurrentStock: 1},
		},
	}

	err := ValidateStock(ded, snap)
	var shortage *ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Equal(t, "ing-a", shortage.ID)
}
