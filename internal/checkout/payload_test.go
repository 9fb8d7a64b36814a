package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
)

func baseSale() domain.Sale {
	return domain.Sale{
		UserID:  "cashier",
		ShiftID: "shift-1",
		Items: []domain.SaleItem{
			{ProductID: "prod-a", ProductName: "Producto A", UnitPriceCents: 150000, Quantity: 2, SubtotalCents: 300000},
			{ProductID: "prod-b", ProductName: "Producto B", UnitPriceCents: 80000, Quantity: 1, SubtotalCents: 80000},
		},
		SubtotalCents: 380000,
		DiscountCents: 30000,
		DeliveryCents: 10000,
		TotalCents:    360000,
		Payments: []domain.PaymentAllocation{
			{Method: domain.PaymentCash, AmountCents: 200000},
			{Method: domain.PaymentTransfer, AmountCents: 160000},
		},
	}
}

func TestValidateSaleAcceptsWellFormedPayload(t *testing.T) {
	require.NoError(t, ValidateSale(baseSale()))
}

func TestValidateSaleRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Sale)
	}{
		{"missing user id", func(s *domain.Sale) { s.UserID = "  " }},
		{"missing shift id", func(s *domain.Sale) { s.ShiftID = "" }},
		{"empty cart", func(s *domain.Sale) { s.Items = nil }},
		{"unknown status", func(s *domain.Sale) { s.Status = "shipped" }},
		{"item without product id", func(s *domain.Sale) { s.Items[0].ProductID = "" }},
		{"zero unit price", func(s *domain.Sale) {
			s.Items[0].UnitPriceCents = 0
		}},
		{"zero quantity", func(s *domain.Sale) { s.Items[0].Quantity = 0 }},
		{"item subtotal mismatch", func(s *domain.Sale) { s.Items[0].SubtotalCents = 299999 }},
		{"negative cost at sale", func(s *domain.Sale) {
			cost := int64(-1)
			s.Items[0].CostAtSaleCents = &cost
		}},
		{"sale subtotal does not match item sum", func(s *domain.Sale) { s.SubtotalCents = 400000 }},
		{"negative discount", func(s *domain.Sale) {
			s.DiscountCents = -1
		}},
		{"negative delivery fee", func(s *domain.Sale) { s.DeliveryCents = -1 }},
		{"total arithmetic mismatch", func(s *domain.Sale) { s.TotalCents = 370000 }},
		{"no payments", func(s *domain.Sale) { s.Payments = nil }},
		{"unknown payment method", func(s *domain.Sale) { s.Payments[0].Method = "cheque" }},
		{"zero payment amount", func(s *domain.Sale) { s.Payments[0].AmountCents = 0 }},
		{"payments do not cover total", func(s *domain.Sale) { s.Payments[1].AmountCents = 100000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale := baseSale()
			tc.mutate(&sale)
			err := ValidateSale(sale)
			require.Error(t, err)
			require.ErrorIs(t, err, store.ErrValidation)
		})
	}
}

func TestValidateSaleAcceptsEveryKnownStatus(t *testing.T) {
	for _, status := range []string{
		domain.SaleStatusPending,
		domain.SaleStatusPreparing,
		domain.SaleStatusReady,
		domain.SaleStatusCompleted,
		domain.SaleStatusCancelled,
	} {
		sale := baseSale()
		sale.Status = status
		require.NoError(t, ValidateSale(sale), "status %q", status)
	}
}

func TestValidateSaleFreeTotalRejected(t *testing.T) {
	sale := baseSale()
	sale.DiscountCents = sale.SubtotalCents
	sale.DeliveryCents = 0
	sale.TotalCents = 0
	sale.Payments = []domain.PaymentAllocation{{Method: domain.PaymentCash, AmountCents: 1}}

	err := ValidateSale(sale)
	require.ErrorIs(t, err, store.ErrValidation)
}
