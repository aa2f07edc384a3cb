package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

// AggregateCart reduces cart lines into categorised subtotals. Line order does not affect the
// result and an empty cart yields zero totals.
func AggregateCart(lines []CartLine) CartTotals {
	totals := CartTotals{
		StandardSubtotal: decimal.Zero,
		OnOrderSubtotal:  decimal.Zero,
		DeliveryFeeTotal: decimal.Zero,
		RunnerFeeTotal:   decimal.Zero,
	}

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		lineTotal := line.LineTotal()

		if line.IsOnOrder() {
			totals.OnOrderSubtotal = totals.OnOrderSubtotal.Add(lineTotal)
			if line.DeliveryFeePerUnit != nil {
				totals.DeliveryFeeTotal = totals.DeliveryFeeTotal.Add(line.DeliveryFeePerUnit.Mul(qty))
			}
		} else {
			totals.StandardSubtotal = totals.StandardSubtotal.Add(lineTotal)
		}

		if line.RunnerFeePerUnit != nil {
			totals.RunnerFeeTotal = totals.RunnerFeeTotal.Add(line.RunnerFeePerUnit.Mul(qty))
		}
	}

	totals.GrandTotal = totals.StandardSubtotal.Add(totals.OnOrderSubtotal).Add(totals.DeliveryFeeTotal)
	return totals
}

// ParsePaymentTiming normalises a caller supplied timing value.
func ParsePaymentTiming(raw string) (PaymentTiming, error) {
	switch timing := PaymentTiming(strings.ToLower(strings.TrimSpace(raw))); timing {
	case domain.PaymentTimingNow, domain.PaymentTimingLater:
		return timing, nil
	case "":
		return domain.PaymentTimingNow, nil
	default:
		return "", fmt.Errorf("%w: unsupported payment timing %q", ErrValidation, raw)
	}
}

// ResolvePaymentPlan splits the cart into amounts due at checkout and amounts deferred. In-stock
// lines and delivery fees are always due now; only on-order item subtotals are splittable.
func ResolvePaymentPlan(lines []CartLine, timing PaymentTiming) (PaymentPlan, error) {
	if err := ValidateCartLines(lines); err != nil {
		return PaymentPlan{}, err
	}

	totals := AggregateCart(lines)
	hasOnOrder := containsOnOrder(lines)

	switch timing {
	case domain.PaymentTimingNow:
	case domain.PaymentTimingLater:
		if !hasOnOrder {
			return PaymentPlan{}, fmt.Errorf("%w: nothing to defer without on-order items", ErrInvalidPaymentTiming)
		}
	default:
		return PaymentPlan{}, fmt.Errorf("%w: unsupported payment timing %q", ErrValidation, timing)
	}

	plan := PaymentPlan{
		Timing:          timing,
		DepositRatio:    domain.DepositRatio,
		RunnerFeeTotal:  totals.RunnerFeeTotal,
		HasOnOrderItems: hasOnOrder,
		Totals:          totals,
		Lines:           make([]LinePayment, 0, len(lines)),
	}

	for _, line := range lines {
		lineTotal := line.LineTotal()
		payment := LinePayment{
			ProductID:    line.ProductID,
			Availability: line.Availability,
			LineTotal:    lineTotal,
			DueNow:       lineTotal,
			DueLater:     decimal.Zero,
		}
		if line.IsOnOrder() && timing == domain.PaymentTimingLater {
			payment.DueNow = lineTotal.Mul(domain.DepositRatio)
			payment.DueLater = lineTotal.Sub(payment.DueNow)
		}
		plan.Lines = append(plan.Lines, payment)
	}

	if timing == domain.PaymentTimingLater {
		deposit := totals.OnOrderSubtotal.Mul(domain.DepositRatio)
		plan.DueNow = totals.StandardSubtotal.Add(totals.DeliveryFeeTotal).Add(deposit)
		plan.DueLater = totals.OnOrderSubtotal.Sub(deposit)
	} else {
		plan.DueNow = totals.GrandTotal
		plan.DueLater = decimal.Zero
	}

	return plan, nil
}

// ValidateCartLines checks the per-line invariants shared by pricing and checkout.
func ValidateCartLines(lines []CartLine) error {
	for i, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: line %d: product id is required", ErrValidation, i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %s: quantity must be at least 1", ErrValidation, line.ProductID)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %s: unit price must not be negative", ErrValidation, line.ProductID)
		}
		if !line.Availability.IsValid() {
			return fmt.Errorf("%w: line %s: unknown availability %q", ErrValidation, line.ProductID, line.Availability)
		}
		if line.DeliveryFeePerUnit != nil && line.DeliveryFeePerUnit.IsNegative() {
			return fmt.Errorf("%w: line %s: delivery fee must not be negative", ErrValidation, line.ProductID)
		}
		if line.RunnerFeePerUnit != nil && line.RunnerFeePerUnit.IsNegative() {
			return fmt.Errorf("%w: line %s: runner fee must not be negative", ErrValidation, line.ProductID)
		}
	}
	return nil
}

func containsOnOrder(lines []CartLine) bool {
	for _, line := range lines {
		if line.IsOnOrder() {
			return true
		}
	}
	return false
}
