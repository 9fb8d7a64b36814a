package checkout

import (
	"fmt"
	"strings"

	"kamepos/backend/internal/domain"
	"kamepos/backend/internal/store"
)

// ValidateSale checks the structural and arithmetic invariants of a sale
// payload before any store access, and again inside the coordinator as the
// last gate before the durable write. Every violation wraps
// store.ErrValidation.
func ValidateSale(sale domain.Sale) error {
	if strings.TrimSpace(sale.UserID) == "" {
		return fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if strings.TrimSpace(sale.ShiftID) == "" {
		return fmt.Errorf("%w: shift id is required", store.ErrValidation)
	}
	if len(sale.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}
	if sale.Status != "" && !domain.ValidSaleStatus(sale.Status) {
		return fmt.Errorf("%w: unknown status %q", store.ErrValidation, sale.Status)
	}

	itemsSum := int64(0)
	for i, item := range sale.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: item %d has no product id", store.ErrValidation, i)
		}
		if item.UnitPriceCents < 1 {
			return fmt.Errorf("%w: item %d unit price must be positive", store.ErrValidation, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be positive", store.ErrValidation, i)
		}
		if item.SubtotalCents != item.UnitPriceCents*item.Quantity {
			return fmt.Errorf("%w: item %d subtotal %d does not match price %d x qty %d",
				store.ErrValidation, i, item.SubtotalCents, item.UnitPriceCents, item.Quantity)
		}
		if item.CostAtSaleCents != nil && *item.CostAtSaleCents < 0 {
			return fmt.Errorf("%w: item %d cost at sale must not be negative", store.ErrValidation, i)
		}
		itemsSum += item.SubtotalCents
	}
	if itemsSum != sale.SubtotalCents {
		return fmt.Errorf("%w: subtotal %d does not match item sum %d",
			store.ErrValidation, sale.SubtotalCents, itemsSum)
	}

	if sale.DiscountCents < 0 {
		return fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}
	if sale.DeliveryCents < 0 {
		return fmt.Errorf("%w: delivery fee must not be negative", store.ErrValidation)
	}
	if want := sale.SubtotalCents - sale.DiscountCents + sale.DeliveryCents; sale.TotalCents != want {
		return fmt.Errorf("%w: total %d does not match subtotal %d - discount %d + delivery %d",
			store.ErrValidation, sale.TotalCents, sale.SubtotalCents, sale.DiscountCents, sale.DeliveryCents)
	}
	if sale.TotalCents < 1 {
		return fmt.Errorf("%w: total must be positive", store.ErrValidation)
	}

	if len(sale.Payments) == 0 {
		return fmt.Errorf("%w: at least one payment is required", store.ErrValidation)
	}
	paymentsSum := int64(0)
	for i, payment := range sale.Payments {
		if !domain.ValidPaymentMethod(payment.Method) {
			return fmt.Errorf("%w: payment %d has unknown method %q", store.ErrValidation, i, payment.Method)
		}
		if payment.AmountCents < 1 {
			return fmt.Errorf("%w: payment %d amount must be positive", store.ErrValidation, i)
		}
		paymentsSum += payment.AmountCents
	}
	if paymentsSum != sale.TotalCents {
		return fmt.Errorf("%w: payments sum %d does not match total %d",
			store.ErrValidation, paymentsSum, sale.TotalCents)
	}

	return nil
}
