package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Tracking    repositories.TrackingEventRepository
	UnitOfWork  repositories.UnitOfWork
	Events      OrderEventPublisher
	Sanitizer   TextSanitizer
	Meter       metric.Meter
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	tracking    repositories.TrackingEventRepository
	unitOfWork  repositories.UnitOfWork
	events      OrderEventPublisher
	sanitizer   TextSanitizer
	transitions metric.Int64Counter
	clock       func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Tracking == nil {
		return nil, errors.New("order service: tracking repository is required")
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
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("github.com/bazaar-mobile/api/internal/services")
	}
	transitions, err := meter.Int64Counter("order_status_transitions_total",
		metric.WithDescription("Count of order status transition attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("order service: create transition counter: %w", err)
	}

	return &orderService{
		orders:      deps.Orders,
		tracking:    deps.Tracking,
		unitOfWork:  unit,
		events:      deps.Events,
		sanitizer:   deps.Sanitizer,
		transitions: transitions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, buyerID string) (Order, error) {
	id, buyer, err := requireOrderRef(orderID, buyerID)
	if err != nil {
		return Order{}, err
	}
	order, err := s.orders.Fetch(ctx, id, buyer)
	if err != nil {
		return Order{}, mapRepositoryError("orders.fetch", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, buyerID string) ([]Order, error) {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListForBuyer(ctx, buyer)
	if err != nil {
		return nil, mapRepositoryError("orders.list_for_buyer", err)
	}
	return orders, nil
}

// TransitionStatus re-reads the order, applies the status machine and writes the new status with
// a compare-and-swap against the status it was read with.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (result Order, err error) {
	ctx, span := tracer.Start(ctx, "orders.TransitionStatus")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = transitionOutcome(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("target", string(cmd.TargetStatus)),
			attribute.String("outcome", outcome),
		))
		span.End()
	}()

	id, buyer, err := requireOrderRef(cmd.OrderID, cmd.BuyerID)
	if err != nil {
		return Order{}, err
	}
	target := OrderStatus(strings.ToLower(strings.TrimSpace(string(cmd.TargetStatus))))
	if target == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrValidation)
	}
	span.SetAttributes(attribute.String("order.id", id), attribute.String("order.target_status", string(target)))

	current, err := s.orders.Fetch(ctx, id, buyer)
	if err != nil {
		return Order{}, mapRepositoryError("orders.fetch", err)
	}

	now := s.clock()
	next, draft, err := TransitionOrder(current, target, cmd.ActorID, now)
	if err != nil {
		return Order{}, err
	}
	if desc := s.sanitize(cmd.Description); desc != "" {
		draft.Description = desc
	}

	err = s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		updated, err := s.orders.UpdateStatus(txCtx, id, buyer, current.Status, next.Status, now)
		if err != nil {
			return mapRepositoryError("orders.update_status", err)
		}
		next = updated
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	event := TrackingEvent{
		ID:          trackingEventIDPrefix + s.newID(),
		OrderID:     draft.OrderID,
		EventType:   draft.EventType,
		Description: draft.Description,
		ActorID:     draft.ActorID,
		OccurredAt:  draft.OccurredAt,
	}
	if err := s.tracking.Append(ctx, event); err != nil {
		s.logger(ctx, "order.tracking.append.failed", map[string]any{
			"orderId": id,
			"status":  string(next.Status),
			"error":   err.Error(),
		})
	}

	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        id,
		BuyerID:        buyer,
		Flow:           string(next.Flow),
		PreviousStatus: string(current.Status),
		CurrentStatus:  string(next.Status),
		ActorID:        draft.ActorID,
		TotalAmount:    next.Totals.TotalAmount.StringFixed(2),
		BalanceDue:     next.Totals.BalanceDue.StringFixed(2),
		OccurredAt:     now,
	})

	return next, nil
}

// Cancel is a buyer-initiated transition to cancelled.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	description := strings.TrimSpace(cmd.Reason)
	if description != "" {
		description = "Cancelled by buyer: " + description
	}
	return s.TransitionStatus(ctx, OrderStatusTransitionCommand{
		OrderID:      cmd.OrderID,
		BuyerID:      cmd.BuyerID,
		TargetStatus: domain.OrderStatusCancelled,
		ActorID:      cmd.BuyerID,
		Description:  description,
	})
}

func (s *orderService) Timeline(ctx context.Context, orderID string, buyerID string) (Timeline, error) {
	order, err := s.GetOrder(ctx, orderID, buyerID)
	if err != nil {
		return Timeline{}, err
	}
	events, err := s.tracking.ListFor(ctx, order.ID)
	if err != nil {
		return Timeline{}, mapRepositoryError("tracking.list_for", err)
	}
	return BuildTimeline(order, events), nil
}

// Summary never fails on drift; the mismatch is logged and surfaced as a warning.
func (s *orderService) Summary(ctx context.Context, orderID string, buyerID string) (SummaryView, error) {
	order, err := s.GetOrder(ctx, orderID, buyerID)
	if err != nil {
		return SummaryView{}, err
	}
	summary, err := ProjectOrderSummary(order)
	switch {
	case err == nil:
		return SummaryView{Summary: summary}, nil
	case errors.Is(err, ErrTotalsMismatch):
		s.logger(ctx, "order.summary.mismatch", map[string]any{
			"orderId":     order.ID,
			"recomputed":  summary.Total.StringFixed(2),
			"stored":      summary.StoredTotal.StringFixed(2),
			"drift":       summary.Drift.String(),
			"buyerId":     order.BuyerID,
			"orderStatus": string(order.Status),
		})
		return SummaryView{Summary: summary, Warning: "order totals could not be verified"}, nil
	default:
		return SummaryView{}, err
	}
}

func (s *orderService) sanitize(input string) string {
	text := strings.TrimSpace(input)
	if text == "" || s.sanitizer == nil {
		return text
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

func requireOrderRef(orderID, buyerID string) (string, string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", "", fmt.Errorf("%w: order id is required", ErrValidation)
	}
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return "", "", err
	}
	return id, buyer, nil
}

func transitionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
