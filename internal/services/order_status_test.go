package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

var transitionAt = time.Date(2026, time.May, 4, 9, 30, 0, 0, time.UTC)

func sampleOrder(flow OrderFlow, status OrderStatus) Order {
	created := time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC)
	return Order{
		ID:        "ord_1",
		BuyerID:   "buyer-1",
		Flow:      flow,
		Status:    status,
		Items:     []OrderItem{{ProductID: "sofa", Quantity: 1, UnitPrice: dec("200"), IsOnOrder: true}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestTransitionOrderRequiresDirectSuccessor(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)

	_, _, err := TransitionOrder(order, domain.OrderStatusShipped, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)

	next, draft, err := TransitionOrder(order, domain.OrderStatusConfirmed, "seller-1", transitionAt)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, next.Status)
	require.Equal(t, transitionAt, next.UpdatedAt)
	require.Equal(t, domain.OrderStatusConfirmed, draft.EventType)
	require.Equal(t, "ord_1", draft.OrderID)
	require.Equal(t, "seller-1", draft.ActorID)
	require.Equal(t, transitionAt, draft.OccurredAt)
	require.NotEmpty(t, draft.Description)

	require.Equal(t, domain.OrderStatusPending, order.Status, "input order must not change")
}

func TestTransitionOrderDoesNotShareItems(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	next, _, err := TransitionOrder(order, domain.OrderStatusConfirmed, "seller-1", transitionAt)
	require.NoError(t, err)

	next.Items[0].Quantity = 42
	require.Equal(t, 1, order.Items[0].Quantity)
}

func TestTransitionOrderWalksShippingFlow(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	for _, target := range []OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		next, _, err := TransitionOrder(order, target, "seller-1", transitionAt)
		require.NoError(t, err, "transition to %s", target)
		order = next
	}
	require.True(t, IsTerminal(order.Status))

	_, _, err := TransitionOrder(order, domain.OrderStatusProcessing, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransitionOrderCancellationBoundary(t *testing.T) {
	processing := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusProcessing)
	_, _, err := TransitionOrder(processing, domain.OrderStatusCancelled, "buyer-1", transitionAt)
	require.ErrorIs(t, err, ErrForbidden)

	pending := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	_, _, err = TransitionOrder(pending, domain.OrderStatusCancelled, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrForbidden)

	next, draft, err := TransitionOrder(pending, domain.OrderStatusCancelled, "buyer-1", transitionAt)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, next.Status)
	require.Equal(t, domain.OrderStatusCancelled, draft.EventType)
	require.True(t, IsTerminal(next.Status))

	_, _, err = TransitionOrder(next, domain.OrderStatusConfirmed, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransitionOrderRejectsSameStatus(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusConfirmed)
	_, _, err := TransitionOrder(order, domain.OrderStatusConfirmed, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransitionOrderKeepsFlowsApart(t *testing.T) {
	direct := sampleOrder(domain.OrderFlowDirectPayment, domain.OrderStatusPending)
	_, _, err := TransitionOrder(direct, domain.OrderStatusConfirmed, "system", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)

	awaiting, _, err := TransitionOrder(direct, domain.OrderStatusAwaitingPayment, "system", transitionAt)
	require.NoError(t, err)
	completed, _, err := TransitionOrder(awaiting, domain.OrderStatusCompleted, "system", transitionAt)
	require.NoError(t, err)
	require.True(t, IsTerminal(completed.Status))

	shipping := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	_, _, err = TransitionOrder(shipping, domain.OrderStatusAwaitingPayment, "system", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)

	_, _, err = TransitionOrder(awaiting, domain.OrderStatusCancelled, "buyer-1", transitionAt)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTransitionOrderRejectsUnknownValues(t *testing.T) {
	order := sampleOrder("barter", domain.OrderStatusPending)
	_, _, err := TransitionOrder(order, domain.OrderStatusConfirmed, "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)

	order = sampleOrder(domain.OrderFlowShipping, domain.OrderStatusPending)
	_, _, err = TransitionOrder(order, "teleported", "seller-1", transitionAt)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestStatusGraphHelpers(t *testing.T) {
	require.Equal(t, domain.OrderStatusPending, InitialStatus(domain.OrderFlowShipping))
	require.Equal(t, domain.OrderStatusPending, InitialStatus(domain.OrderFlowDirectPayment))

	require.ElementsMatch(t,
		[]OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
		NextStatuses(domain.OrderFlowShipping, domain.OrderStatusPending))
	require.Equal(t,
		[]OrderStatus{domain.OrderStatusCompleted},
		NextStatuses(domain.OrderFlowDirectPayment, domain.OrderStatusAwaitingPayment))
	require.Empty(t, NextStatuses(domain.OrderFlowShipping, domain.OrderStatusDelivered))

	for _, status := range []OrderStatus{domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusAwaitingPayment} {
		require.False(t, IsTerminal(status))
	}
}
