package services

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

func trackingEvent(status OrderStatus, at time.Time) TrackingEvent {
	return TrackingEvent{OrderID: "ord_1", EventType: status, OccurredAt: at}
}

func TestBuildTimelineShippedCompletesFirstFourSteps(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusShipped)
	logs := map[string][]TrackingEvent{
		"empty": nil,
		"delivered event present": {
			trackingEvent(domain.OrderStatusDelivered, order.CreatedAt.Add(72*time.Hour)),
		},
		"full log": {
			trackingEvent(domain.OrderStatusPending, order.CreatedAt),
			trackingEvent(domain.OrderStatusConfirmed, order.CreatedAt.Add(time.Hour)),
			trackingEvent(domain.OrderStatusProcessing, order.CreatedAt.Add(2*time.Hour)),
			trackingEvent(domain.OrderStatusShipped, order.CreatedAt.Add(3*time.Hour)),
		},
	}

	for name, events := range logs {
		t.Run(name, func(t *testing.T) {
			steps := slices.Collect(BuildTimeline(order, events).Steps())
			require.Len(t, steps, 5)
			for i, step := range steps {
				require.Equal(t, i, step.Index)
				require.Equal(t, i <= 3, step.Completed, "step %d", i)
			}
			require.Nil(t, steps[4].Timestamp)
		})
	}
}

func TestBuildTimelineUsesEarliestEventPerType(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusProcessing)
	first := order.CreatedAt.Add(time.Hour)
	events := []TrackingEvent{
		trackingEvent(domain.OrderStatusConfirmed, first.Add(30*time.Minute)),
		trackingEvent(domain.OrderStatusConfirmed, first),
		trackingEvent(domain.OrderStatusConfirmed, first.Add(time.Hour)),
	}

	steps := slices.Collect(BuildTimeline(order, events).Steps())

	require.NotNil(t, steps[0].Timestamp)
	require.Equal(t, order.CreatedAt, *steps[0].Timestamp, "placed falls back to createdAt")
	require.NotNil(t, steps[1].Timestamp)
	require.Equal(t, first, *steps[1].Timestamp)
	require.True(t, steps[2].Completed)
	require.Nil(t, steps[2].Timestamp, "no processing event recorded")
	require.False(t, steps[3].Completed)
}

func TestBuildTimelineIsRestartable(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusConfirmed)
	timeline := BuildTimeline(order, []TrackingEvent{trackingEvent(domain.OrderStatusConfirmed, order.CreatedAt.Add(time.Minute))})

	first := slices.Collect(timeline.Steps())
	second := slices.Collect(timeline.Steps())
	require.Equal(t, first, second)

	count := 0
	for range timeline.Steps() {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}

func TestBuildTimelineCancelledOrder(t *testing.T) {
	order := sampleOrder(domain.OrderFlowShipping, domain.OrderStatusCancelled)
	cancelledAt := order.CreatedAt.Add(10 * time.Minute)
	events := []TrackingEvent{
		trackingEvent(domain.OrderStatusPending, order.CreatedAt),
		{OrderID: "ord_1", EventType: domain.OrderStatusCancelled, Description: "changed my mind", OccurredAt: cancelledAt},
	}

	timeline := BuildTimeline(order, events)
	require.NotNil(t, timeline.Cancellation)
	require.NotNil(t, timeline.Cancellation.OccurredAt)
	require.Equal(t, cancelledAt, *timeline.Cancellation.OccurredAt)
	require.Equal(t, "changed my mind", timeline.Cancellation.Description)

	steps := slices.Collect(timeline.Steps())
	require.Len(t, steps, 5)
	for _, step := range steps {
		require.False(t, step.Completed)
		require.Nil(t, step.Timestamp)
	}
}

func TestBuildTimelineDirectPaymentFlow(t *testing.T) {
	awaiting := sampleOrder(domain.OrderFlowDirectPayment, domain.OrderStatusAwaitingPayment)
	steps := slices.Collect(BuildTimeline(awaiting, nil).Steps())
	require.True(t, steps[0].Completed)
	require.False(t, steps[1].Completed)
	require.Nil(t, BuildTimeline(awaiting, nil).Cancellation)

	completedAt := awaiting.CreatedAt.Add(24 * time.Hour)
	completed := sampleOrder(domain.OrderFlowDirectPayment, domain.OrderStatusCompleted)
	steps = slices.Collect(BuildTimeline(completed, []TrackingEvent{trackingEvent(domain.OrderStatusCompleted, completedAt)}).Steps())
	for _, step := range steps {
		require.True(t, step.Completed)
	}
	require.NotNil(t, steps[4].Timestamp)
	require.Equal(t, completedAt, *steps[4].Timestamp)
	require.Nil(t, steps[2].Timestamp)
}
