package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositRatio is the fixed share of an on-order line's price collected at checkout.
var DepositRatio = decimal.NewFromFloat(0.5)

// Availability indicates whether a cart line can be fulfilled from local stock.
type Availability string

const (
	// AvailabilityInStock marks items held in local stock and billable in full at checkout.
	AvailabilityInStock Availability = "in_stock"
	// AvailabilityOnOrder marks items special-ordered from a supplier and billable via deposit.
	AvailabilityOnOrder Availability = "on_order"
)

// IsValid reports whether the availability is a known value.
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityInStock, AvailabilityOnOrder:
		return true
	default:
		return false
	}
}

// CartLine stores a single product entry within a buyer's cart.
type CartLine struct {
	ProductID      string
	Name           string
	UnitPrice      decimal.Decimal
	Quantity       int
	Availability   Availability
	AvailableStock int
	// DeliveryFeePerUnit applies to on-order lines only.
	DeliveryFeePerUnit *decimal.Decimal
	RunnerFeePerUnit   *decimal.Decimal
	AddedAt            time.Time
}

// LineTotal returns unit price multiplied by quantity without rounding.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// IsOnOrder reports whether the line is supplier-backordered.
func (l CartLine) IsOnOrder() bool {
	return l.Availability == AvailabilityOnOrder
}

// CartTotals summarizes a cart. GrandTotal excludes runner fees.
type CartTotals struct {
	StandardSubtotal decimal.Decimal
	OnOrderSubtotal  decimal.Decimal
	DeliveryFeeTotal decimal.Decimal
	RunnerFeeTotal   decimal.Decimal
	GrandTotal       decimal.Decimal
}

// PaymentTiming is the buyer's choice between paying in full now or a deposit now.
type PaymentTiming string

const (
	// PaymentTimingNow collects the full grand total at checkout.
	PaymentTimingNow PaymentTiming = "now"
	// PaymentTimingLater collects a deposit on on-order items and defers the balance.
	PaymentTimingLater PaymentTiming = "later"
)

// PaymentPlan captures amounts due at checkout and later.
type PaymentPlan struct {
	Timing          PaymentTiming
	DepositRatio    decimal.Decimal
	DueNow          decimal.Decimal
	DueLater        decimal.Decimal
	RunnerFeeTotal  decimal.Decimal
	HasOnOrderItems bool
	Totals          CartTotals
	Lines           []LinePayment
}

// LinePayment attributes a plan's amounts to an individual cart line.
type LinePayment struct {
	ProductID    string
	Availability Availability
	LineTotal    decimal.Decimal
	DueNow       decimal.Decimal
	DueLater     decimal.Decimal
}
