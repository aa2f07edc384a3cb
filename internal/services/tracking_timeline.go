package services

import (
	"iter"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

const timelineStepCount = 5

var timelineSteps = [timelineStepCount]struct {
	key   TimelineStepKey
	label string
}{
	{domain.TimelineStepPlaced, "Order placed"},
	{domain.TimelineStepConfirmed, "Confirmed"},
	{domain.TimelineStepProcessing, "Processing"},
	{domain.TimelineStepShipped, "Shipped"},
	{domain.TimelineStepDelivered, "Delivered"},
}

var shippingStepIndex = map[OrderStatus]int{
	domain.OrderStatusPending:    0,
	domain.OrderStatusConfirmed:  1,
	domain.OrderStatusProcessing: 2,
	domain.OrderStatusShipped:    3,
	domain.OrderStatusDelivered:  4,
	domain.OrderStatusCancelled:  -1,
}

var directPaymentStepIndex = map[OrderStatus]int{
	domain.OrderStatusPending:         0,
	domain.OrderStatusAwaitingPayment: 0,
	domain.OrderStatusCompleted:       4,
	domain.OrderStatusCancelled:       -1,
}

// Timeline is a read-only projection of an order's progress.
type Timeline struct {
	OrderID      string
	Status       OrderStatus
	CurrentIndex int
	Cancellation *CancellationMarker

	createdAt time.Time
	earliest  map[int]time.Time
}

// BuildTimeline projects order status and its tracking log into the five-step stepper. Events may
// arrive in any order; the earliest event of each type wins.
func BuildTimeline(order Order, events []TrackingEvent) Timeline {
	current := stepIndexFor(order.Flow, order.Status)

	tl := Timeline{
		OrderID:      order.ID,
		Status:       order.Status,
		CurrentIndex: current,
		createdAt:    order.CreatedAt,
		earliest:     make(map[int]time.Time, timelineStepCount),
	}

	var cancelledAt *time.Time
	var cancelDescription string
	for _, event := range events {
		if event.OrderID != "" && order.ID != "" && event.OrderID != order.ID {
			continue
		}
		if event.EventType == domain.OrderStatusCancelled {
			if cancelledAt == nil || event.OccurredAt.Before(*cancelledAt) {
				at := event.OccurredAt
				cancelledAt = &at
				cancelDescription = event.Description
			}
			continue
		}
		idx := stepIndexFor(order.Flow, event.EventType)
		if idx < 0 {
			continue
		}
		if existing, ok := tl.earliest[idx]; !ok || event.OccurredAt.Before(existing) {
			tl.earliest[idx] = event.OccurredAt
		}
	}

	if order.Status == domain.OrderStatusCancelled {
		tl.Cancellation = &CancellationMarker{
			OccurredAt:  cancelledAt,
			Description: cancelDescription,
		}
	}

	return tl
}

// Steps yields the five stepper entries in display order. The sequence can be ranged over any
// number of times.
func (t Timeline) Steps() iter.Seq[TimelineStep] {
	return func(yield func(TimelineStep) bool) {
		for i, def := range timelineSteps {
			step := TimelineStep{
				Index:     i,
				Key:       def.key,
				Label:     def.label,
				Completed: t.CurrentIndex != -1 && t.CurrentIndex >= i,
			}
			if step.Completed {
				step.Timestamp = t.timestampFor(i)
			}
			if !yield(step) {
				return
			}
		}
	}
}

func (t Timeline) timestampFor(index int) *time.Time {
	if at, ok := t.earliest[index]; ok {
		return &at
	}
	if index == 0 && !t.createdAt.IsZero() {
		at := t.createdAt
		return &at
	}
	return nil
}

func stepIndexFor(flow OrderFlow, status OrderStatus) int {
	table := shippingStepIndex
	if flow == domain.OrderFlowDirectPayment {
		table = directPaymentStepIndex
	}
	if idx, ok := table[status]; ok {
		return idx
	}
	return -1
}
