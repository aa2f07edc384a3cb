package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

// TrackingEventDraft is the tracking record a successful transition emits for persistence.
type TrackingEventDraft struct {
	OrderID     string
	EventType   OrderStatus
	Description string
	ActorID     string
	OccurredAt  time.Time
}

var orderFlowTransitions = map[OrderFlow]map[OrderStatus][]OrderStatus{
	domain.OrderFlowShipping: {
		domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
		domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing},
		domain.OrderStatusProcessing: {domain.OrderStatusShipped},
		domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
	},
	domain.OrderFlowDirectPayment: {
		domain.OrderStatusPending:         {domain.OrderStatusAwaitingPayment, domain.OrderStatusCancelled},
		domain.OrderStatusAwaitingPayment: {domain.OrderStatusCompleted},
	},
}

var defaultTransitionDescriptions = map[OrderStatus]string{
	domain.OrderStatusPending:         "Order placed",
	domain.OrderStatusConfirmed:       "Order confirmed by seller",
	domain.OrderStatusProcessing:      "Order is being prepared",
	domain.OrderStatusShipped:         "Order shipped",
	domain.OrderStatusDelivered:       "Order delivered",
	domain.OrderStatusCancelled:       "Order cancelled by buyer",
	domain.OrderStatusAwaitingPayment: "Awaiting payment",
	domain.OrderStatusCompleted:       "Payment received, order completed",
}

// InitialStatus returns the status every new order of the flow starts in.
func InitialStatus(flow OrderFlow) OrderStatus {
	return domain.OrderStatusPending
}

// IsTerminal reports whether no further transitions are possible from status.
func IsTerminal(status OrderStatus) bool {
	switch status {
	case domain.OrderStatusDelivered, domain.OrderStatusCancelled, domain.OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// NextStatuses lists the direct successors of status within flow.
func NextStatuses(flow OrderFlow, status OrderStatus) []OrderStatus {
	graph, ok := orderFlowTransitions[flow]
	if !ok {
		return nil
	}
	return slices.Clone(graph[status])
}

// TransitionOrder moves order to target on behalf of actorID. The input order is left untouched;
// the returned draft must be persisted by the caller alongside the status write.
func TransitionOrder(order Order, target OrderStatus, actorID string, at time.Time) (Order, TrackingEventDraft, error) {
	actor := strings.TrimSpace(actorID)

	if !order.Flow.IsValid() {
		return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: order %s has unknown flow %q", ErrIllegalTransition, order.ID, order.Flow)
	}
	if !target.IsValid() {
		return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: unknown target status %q", ErrIllegalTransition, target)
	}

	if target == domain.OrderStatusCancelled {
		if actor == "" || actor != order.BuyerID {
			return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: only the buyer may cancel order %s", ErrForbidden, order.ID)
		}
		if order.Status != domain.OrderStatusPending {
			return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: order %s is %s and can no longer be cancelled; contact support", ErrForbidden, order.ID, order.Status)
		}
	}

	if IsTerminal(order.Status) {
		return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: order %s is already %s", ErrIllegalTransition, order.ID, order.Status)
	}
	if !slices.Contains(orderFlowTransitions[order.Flow][order.Status], target) {
		return Order{}, TrackingEventDraft{}, fmt.Errorf("%w: %s -> %s is not allowed for %s orders", ErrIllegalTransition, order.Status, target, order.Flow)
	}

	next := order
	next.Items = slices.Clone(order.Items)
	next.Status = target
	next.UpdatedAt = at

	draft := TrackingEventDraft{
		OrderID:     order.ID,
		EventType:   target,
		Description: defaultTransitionDescriptions[target],
		ActorID:     actor,
		OccurredAt:  at,
	}
	return next, draft, nil
}
