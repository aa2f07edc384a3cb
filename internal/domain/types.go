package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderFlow distinguishes the two checkout variants. Statuses of one flow never appear on an
// order of the other.
type OrderFlow string

const (
	// OrderFlowShipping is the seller-fulfilled flow ending in delivery.
	OrderFlowShipping OrderFlow = "shipping"
	// OrderFlowDirectPayment is the pay-then-complete flow without a shipping leg.
	OrderFlowDirectPayment OrderFlow = "direct_payment"
)

// IsValid reports whether the flow is known.
func (f OrderFlow) IsValid() bool {
	switch f {
	case OrderFlowShipping, OrderFlowDirectPayment:
		return true
	default:
		return false
	}
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending is the initial state of every order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the seller accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order left the seller.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered is the terminal success state of the shipping flow.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled is the terminal failure state, reachable only from pending.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusAwaitingPayment indicates a direct-payment order awaits settlement.
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	// OrderStatusCompleted is the terminal success state of the direct-payment flow.
	OrderStatusCompleted OrderStatus = "completed"
)

// IsValid reports whether the status is known.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusAwaitingPayment, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// Order captures a placed order. Only Status and UpdatedAt change after creation.
type Order struct {
	ID              string
	BuyerID         string
	Flow            OrderFlow
	Status          OrderStatus
	Items           []OrderItem
	PaymentMethod   string
	PaymentTiming   PaymentTiming
	DepositRatio    decimal.Decimal
	DeliveryAddress DeliveryAddress
	Totals          OrderTotals
	HasOnOrderItems bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem mirrors a cart line at the time of checkout.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	IsOnOrder bool
}

// OrderTotals holds the persisted money fields. OnOrderTotal is the deposit-adjusted figure
// collected at checkout and BalanceDue is what remains payable later.
type OrderTotals struct {
	StandardTotal decimal.Decimal
	OnOrderTotal  decimal.Decimal
	ShippingFee   decimal.Decimal
	Tax           decimal.Decimal
	TotalAmount   decimal.Decimal
	BalanceDue    decimal.Decimal
}

// DeliveryAddress stores the destination snapshot captured at checkout.
type DeliveryAddress struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
	Notes      string
}

// TrackingEvent is an append-only record of an order's progress.
type TrackingEvent struct {
	ID          string
	OrderID     string
	EventType   OrderStatus
	Description string
	ActorID     string
	OccurredAt  time.Time
}

// OrderSummary is a recomputation of an order's totals for display and audit.
type OrderSummary struct {
	OrderID       string
	Subtotal      decimal.Decimal
	StandardTotal decimal.Decimal
	OnOrderTotal  decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	StoredTotal   decimal.Decimal
	BalanceDue    decimal.Decimal
	Drift         decimal.Decimal
}

// TimelineStepKey identifies one of the five display steps.
type TimelineStepKey string

const (
	TimelineStepPlaced     TimelineStepKey = "placed"
	TimelineStepConfirmed  TimelineStepKey = "confirmed"
	TimelineStepProcessing TimelineStepKey = "processing"
	TimelineStepShipped    TimelineStepKey = "shipped"
	TimelineStepDelivered  TimelineStepKey = "delivered"
)

// TimelineStep is one entry of the tracking stepper. A nil Timestamp means unavailable.
type TimelineStep struct {
	Index     int
	Key       TimelineStepKey
	Label     string
	Completed bool
	Timestamp *time.Time
}

// CancellationMarker replaces step progress for cancelled orders.
type CancellationMarker struct {
	OccurredAt  *time.Time
	Description string
}
