package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"

	orderIDPrefix         = "ord_"
	trackingEventIDPrefix = "trk_"
)

var tracer = otel.Tracer("github.com/bazaar-mobile/api/internal/services")

// TextSanitizer strips markup from free-form text supplied by buyers or couriers.
type TextSanitizer interface {
	Sanitize(input string) string
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	BuyerID        string
	Flow           string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	TotalAmount    string
	BalanceDue     string
	OccurredAt     time.Time
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Orders      repositories.OrderRepository
	Tracking    repositories.TrackingEventRepository
	UnitOfWork  repositories.UnitOfWork
	Events      OrderEventPublisher
	Sanitizer   TextSanitizer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts      repositories.CartRepository
	orders     repositories.OrderRepository
	tracking   repositories.TrackingEventRepository
	unitOfWork repositories.UnitOfWork
	events     OrderEventPublisher
	sanitizer  TextSanitizer
	now        func() time.Time
	newID      func() string
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Tracking == nil {
		return nil, errors.New("checkout service: tracking repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		carts:      deps.Carts,
		orders:     deps.Orders,
		tracking:   deps.Tracking,
		unitOfWork: unit,
		events:     deps.Events,
		sanitizer:  deps.Sanitizer,
		now:        func() time.Time { return clock().UTC() },
		newID:      idGen,
		logger:     logger,
	}, nil
}

func (s *checkoutService) Quote(ctx context.Context, buyerID string, timing PaymentTiming) (CheckoutQuote, error) {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return CheckoutQuote{}, err
	}
	lines, err := s.carts.GetLines(ctx, buyer)
	if err != nil {
		return CheckoutQuote{}, mapRepositoryError("cart.get_lines", err)
	}
	if len(lines) == 0 {
		return CheckoutQuote{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	plan, err := ResolvePaymentPlan(lines, defaultTiming(timing))
	if err != nil {
		return CheckoutQuote{}, err
	}
	return CheckoutQuote{Lines: lines, Totals: plan.Totals, Plan: plan}, nil
}

// PlaceOrder converts the buyer's cart into a pending order. Once the order is created, failures
// of the follow-up steps are logged and never undo the order.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (order Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	buyer, err := requireBuyer(cmd.BuyerID)
	if err != nil {
		return Order{}, err
	}

	lines, err := s.carts.GetLines(ctx, buyer)
	if err != nil {
		return Order{}, mapRepositoryError("cart.get_lines", err)
	}
	if len(lines) == 0 {
		return Order{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}

	flow := cmd.Flow
	if flow == "" {
		flow = domain.OrderFlowShipping
	}
	if !flow.IsValid() {
		return Order{}, fmt.Errorf("%w: unsupported order flow %q", ErrValidation, cmd.Flow)
	}
	paymentMethod := strings.TrimSpace(cmd.PaymentMethod)
	if paymentMethod == "" {
		return Order{}, fmt.Errorf("%w: payment method is required", ErrValidation)
	}
	address, err := s.normaliseAddress(cmd.DeliveryAddress)
	if err != nil {
		return Order{}, err
	}

	plan, err := ResolvePaymentPlan(lines, defaultTiming(cmd.PaymentTiming))
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	order = Order{
		ID:              orderIDPrefix + s.newID(),
		BuyerID:         buyer,
		Flow:            flow,
		Status:          InitialStatus(flow),
		Items:           buildOrderItems(lines),
		PaymentMethod:   paymentMethod,
		PaymentTiming:   plan.Timing,
		DepositRatio:    plan.DepositRatio,
		DeliveryAddress: address,
		Totals:          BuildOrderTotals(plan),
		HasOnOrderItems: plan.HasOnOrderItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.flow", string(order.Flow)),
		attribute.String("order.payment_timing", string(order.PaymentTiming)),
	)

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Create(txCtx, order); err != nil {
			return mapRepositoryError("orders.create", err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	placed := TrackingEvent{
		ID:          trackingEventIDPrefix + s.newID(),
		OrderID:     order.ID,
		EventType:   order.Status,
		Description: defaultTransitionDescriptions[domain.OrderStatusPending],
		ActorID:     buyer,
		OccurredAt:  now,
	}
	if err := s.tracking.Append(ctx, placed); err != nil {
		s.logger(ctx, "checkout.tracking.append.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
	if err := s.carts.Clear(ctx, buyer); err != nil {
		s.logger(ctx, "checkout.cart.clear.failed", map[string]any{
			"orderId": order.ID,
			"buyerId": buyer,
			"error":   err.Error(),
		})
	}

	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		BuyerID:       buyer,
		Flow:          string(order.Flow),
		CurrentStatus: string(order.Status),
		ActorID:       buyer,
		TotalAmount:   order.Totals.TotalAmount.StringFixed(2),
		BalanceDue:    order.Totals.BalanceDue.StringFixed(2),
		OccurredAt:    now,
	})
	s.logger(ctx, "checkout.order.placed", map[string]any{
		"orderId":       order.ID,
		"buyerId":       buyer,
		"paymentTiming": string(order.PaymentTiming),
		"dueNow":        order.Totals.TotalAmount.StringFixed(2),
		"dueLater":      order.Totals.BalanceDue.StringFixed(2),
	})

	return order, nil
}

// BuildOrderTotals maps a payment plan onto the persisted order totals. The on-order figure is
// the part collected at checkout, so the stored components always add up to the amount due now.
func BuildOrderTotals(plan PaymentPlan) OrderTotals {
	onOrderDueNow := decimal.Zero
	for _, line := range plan.Lines {
		if line.Availability == domain.AvailabilityOnOrder {
			onOrderDueNow = onOrderDueNow.Add(line.DueNow)
		}
	}
	return OrderTotals{
		StandardTotal: plan.Totals.StandardSubtotal,
		OnOrderTotal:  onOrderDueNow,
		ShippingFee:   plan.Totals.DeliveryFeeTotal,
		Tax:           decimal.Zero,
		TotalAmount:   plan.DueNow,
		BalanceDue:    plan.DueLater,
	}
}

func (s *checkoutService) normaliseAddress(addr DeliveryAddress) (DeliveryAddress, error) {
	out := DeliveryAddress{
		Recipient:  strings.TrimSpace(addr.Recipient),
		Phone:      strings.TrimSpace(addr.Phone),
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      strings.TrimSpace(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		Region:     strings.TrimSpace(addr.Region),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
		Notes:      strings.TrimSpace(addr.Notes),
	}
	if s.sanitizer != nil {
		out.Notes = strings.TrimSpace(s.sanitizer.Sanitize(out.Notes))
	}

	switch {
	case out.Recipient == "":
		return DeliveryAddress{}, fmt.Errorf("%w: delivery recipient is required", ErrValidation)
	case out.Line1 == "":
		return DeliveryAddress{}, fmt.Errorf("%w: delivery address line1 is required", ErrValidation)
	case out.City == "":
		return DeliveryAddress{}, fmt.Errorf("%w: delivery city is required", ErrValidation)
	case out.Phone == "":
		return DeliveryAddress{}, fmt.Errorf("%w: contact phone is required", ErrValidation)
	}
	return out, nil
}

func defaultTiming(timing PaymentTiming) PaymentTiming {
	if timing == "" {
		return domain.PaymentTimingNow
	}
	return timing
}

func buildOrderItems(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			IsOnOrder: line.IsOnOrder(),
		})
	}
	return items
}

func publishOrderEvent(ctx context.Context, events OrderEventPublisher, logger func(context.Context, string, map[string]any), event OrderEvent) {
	if events == nil {
		return
	}
	if err := events.PublishOrderEvent(ctx, event); err != nil {
		logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
