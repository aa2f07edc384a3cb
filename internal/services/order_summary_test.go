package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

func TestProjectOrderSummaryRoundTripsPlacedTotals(t *testing.T) {
	sofa := onOrderLine("sofa", "199.99", 3)
	sofa.DeliveryFeePerUnit = decPtr("12.345")
	sofa.RunnerFeePerUnit = decPtr("2")
	lamp := inStockLine("lamp", "0.333", 7)
	lines := []CartLine{sofa, lamp}

	for _, timing := range []PaymentTiming{domain.PaymentTimingNow, domain.PaymentTimingLater} {
		t.Run(string(timing), func(t *testing.T) {
			plan, err := ResolvePaymentPlan(lines, timing)
			require.NoError(t, err)

			order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
			order.Totals = BuildOrderTotals(plan)

			summary, err := ProjectOrderSummary(order)
			require.NoError(t, err)
			require.True(t, summary.Total.Sub(plan.DueNow).Abs().LessThanOrEqual(SummaryEpsilon))
			require.True(t, summary.Drift.IsZero())
			require.True(t, summary.BalanceDue.Equal(plan.DueLater))
			require.True(t, summary.Tax.IsZero())
		})
	}
}

func TestProjectOrderSummaryToleratesRoundingEpsilon(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	order.Totals = OrderTotals{
		StandardTotal: dec("10.004"),
		OnOrderTotal:  dec("5"),
		ShippingFee:   dec("1"),
		Tax:           dec("0"),
		TotalAmount:   dec("16.00"),
	}

	summary, err := ProjectOrderSummary(order)
	require.NoError(t, err)
	requireDecimal(t, "16.004", summary.Total)
	requireDecimal(t, "15.004", summary.Subtotal)
}

func TestProjectOrderSummaryReportsMismatch(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	order.Totals = OrderTotals{
		StandardTotal: dec("100"),
		OnOrderTotal:  dec("50"),
		ShippingFee:   dec("5"),
		Tax:           dec("0"),
		TotalAmount:   dec("150"),
	}

	summary, err := ProjectOrderSummary(order)
	require.ErrorIs(t, err, ErrTotalsMismatch)
	requireDecimal(t, "155", summary.Total)
	requireDecimal(t, "150", summary.StoredTotal)
	requireDecimal(t, "5", summary.Drift)
}

func TestProjectOrderSummaryRejectsNegativeAmounts(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	order.Totals = OrderTotals{
		StandardTotal: dec("10"),
		ShippingFee:   dec("-1"),
		TotalAmount:   dec("9"),
	}

	_, err := ProjectOrderSummary(order)
	require.ErrorIs(t, err, ErrValidation)
}
