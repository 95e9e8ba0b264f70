package service

import (
	"context"

	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/repository"
)

const shippingReference = "shipping"

// OrderLinesService converts the stored cart into the order-lines snapshot
// Klarna expects. Amounts are minor units with tax included; tax rates are
// hundredths of a percent.
type OrderLinesService struct {
	carts repository.CartRepository
}

func NewOrderLinesService(carts repository.CartRepository) *OrderLinesService {
	return &OrderLinesService{carts: carts}
}

// OrderLines recomputes the snapshot from the current cart on every call.
// Totals are never cached because fees and shipping may change between
// checkout renders.
func (s *OrderLinesService) OrderLines(ctx context.Context, checkoutID string) (payments.OrderLines, error) {
	cart, err := s.carts.GetByCheckoutID(checkoutID)
	if err != nil {
		return payments.OrderLines{}, err
	}

	var snapshot payments.OrderLines
	for _, item := range cart.Items {
		total := item.UnitPriceCents * item.Quantity
		tax := inclusiveTax(total, item.TaxRate)
		snapshot.Lines = append(snapshot.Lines, payments.LineItem{
			Reference:      item.Reference,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPriceCents,
			TaxRate:        item.TaxRate,
			TotalAmount:    total,
			TotalTaxAmount: tax,
		})
		snapshot.OrderAmount += total
		snapshot.OrderTaxAmount += tax
	}

	if cart.ShippingCents > 0 {
		tax := inclusiveTax(cart.ShippingCents, cart.ShippingTaxRate)
		snapshot.Lines = append(snapshot.Lines, payments.LineItem{
			Reference:      shippingReference,
			Name:           "Shipping",
			Quantity:       1,
			UnitPrice:      cart.ShippingCents,
			TaxRate:        cart.ShippingTaxRate,
			TotalAmount:    cart.ShippingCents,
			TotalTaxAmount: tax,
		})
		snapshot.OrderAmount += cart.ShippingCents
		snapshot.OrderTaxAmount += tax
	}

	return snapshot, nil
}

// inclusiveTax extracts the tax portion of a tax-inclusive amount.
// rate is in hundredths of a percent, so 1900 means 19%.
func inclusiveTax(amount, rate int64) int64 {
	if rate <= 0 {
		return 0
	}
	return amount - amount*10000/(10000+rate)
}
