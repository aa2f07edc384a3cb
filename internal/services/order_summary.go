package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SummaryEpsilon is the largest tolerated difference between recomputed and stored totals.
var SummaryEpsilon = decimal.NewFromFloat(0.01)

// ProjectOrderSummary recomputes the order total from its stored components. When the stored
// total drifts beyond SummaryEpsilon the summary is still returned together with ErrTotalsMismatch.
func ProjectOrderSummary(order Order) (OrderSummary, error) {
	totals := order.Totals
	parts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"standard_total", totals.StandardTotal},
		{"on_order_total", totals.OnOrderTotal},
		{"shipping_fee", totals.ShippingFee},
		{"tax", totals.Tax},
		{"total_amount", totals.TotalAmount},
		{"balance_due", totals.BalanceDue},
	}
	for _, part := range parts {
		if part.value.IsNegative() {
			return OrderSummary{}, fmt.Errorf("%w: order %s has negative %s", ErrValidation, order.ID, part.name)
		}
	}

	subtotal := totals.StandardTotal.Add(totals.OnOrderTotal)
	recomputed := subtotal.Add(totals.ShippingFee).Add(totals.Tax)
	drift := recomputed.Sub(totals.TotalAmount).Abs()

	summary := OrderSummary{
		OrderID:       order.ID,
		Subtotal:      subtotal,
		StandardTotal: totals.StandardTotal,
		OnOrderTotal:  totals.OnOrderTotal,
		Shipping:      totals.ShippingFee,
		Tax:           totals.Tax,
		Total:         recomputed,
		StoredTotal:   totals.TotalAmount,
		BalanceDue:    totals.BalanceDue,
		Drift:         drift,
	}

	if drift.GreaterThan(SummaryEpsilon) {
		return summary, fmt.Errorf("%w: order %s recomputed %s, stored %s", ErrTotalsMismatch, order.ID,
			recomputed.StringFixed(2), totals.TotalAmount.StringFixed(2))
	}
	return summary, nil
}
