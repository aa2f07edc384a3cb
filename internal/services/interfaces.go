package services

import (
	"context"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	CartLine           = domain.CartLine
	CartTotals         = domain.CartTotals
	Availability       = domain.Availability
	PaymentTiming      = domain.PaymentTiming
	PaymentPlan        = domain.PaymentPlan
	LinePayment        = domain.LinePayment
	Order              = domain.Order
	OrderFlow          = domain.OrderFlow
	OrderStatus        = domain.OrderStatus
	OrderItem          = domain.OrderItem
	OrderTotals        = domain.OrderTotals
	DeliveryAddress    = domain.DeliveryAddress
	TrackingEvent      = domain.TrackingEvent
	TimelineStep       = domain.TimelineStep
	TimelineStepKey    = domain.TimelineStepKey
	CancellationMarker = domain.CancellationMarker
	OrderSummary       = domain.OrderSummary
	ReadinessReport    = domain.ReadinessReport
)

// CartService manages a buyer's cart and recomputes totals on every read.
type CartService interface {
	Lines(ctx context.Context, buyerID string) ([]CartLine, error)
	Totals(ctx context.Context, buyerID string) (CartView, error)
	AddLine(ctx context.Context, cmd AddCartLineCommand) (CartView, error)
	SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) (CartView, error)
	Remove(ctx context.Context, buyerID string, productID string) (CartView, error)
	Clear(ctx context.Context, buyerID string) error
}

// CheckoutService quotes payment plans and turns a cart into a placed order.
type CheckoutService interface {
	Quote(ctx context.Context, buyerID string, timing PaymentTiming) (CheckoutQuote, error)
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
}

// OrderService exposes order reads and status changes.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string, buyerID string) (Order, error)
	ListOrders(ctx context.Context, buyerID string) ([]Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	Timeline(ctx context.Context, orderID string, buyerID string) (Timeline, error)
	Summary(ctx context.Context, orderID string, buyerID string) (SummaryView, error)
}

// SystemService reports service readiness.
type SystemService interface {
	Readiness(ctx context.Context) (ReadinessReport, error)
}

// CartView pairs cart lines with their freshly aggregated totals.
type CartView struct {
	BuyerID string
	Lines   []CartLine
	Totals  CartTotals
}

type AddCartLineCommand struct {
	BuyerID string
	Line    CartLine
}

type SetCartQuantityCommand struct {
	BuyerID   string
	ProductID string
	Quantity  int
}

// CheckoutQuote previews what placing an order would charge.
type CheckoutQuote struct {
	Lines  []CartLine
	Totals CartTotals
	Plan   PaymentPlan
}

type PlaceOrderCommand struct {
	BuyerID         string
	Flow            OrderFlow
	PaymentMethod   string
	PaymentTiming   PaymentTiming
	DeliveryAddress DeliveryAddress
}

type OrderStatusTransitionCommand struct {
	OrderID      string
	BuyerID      string
	TargetStatus OrderStatus
	ActorID      string
	Description  string
}

type CancelOrderCommand struct {
	OrderID string
	BuyerID string
	Reason  string
}

// SummaryView is an order summary plus the drift warning, when any.
type SummaryView struct {
	Summary OrderSummary
	Warning string
}
