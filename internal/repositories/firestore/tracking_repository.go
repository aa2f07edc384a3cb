package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	domain "github.com/bazaar-mobile/api/internal/domain"
	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/repositories"
)

const trackingCollection = "tracking"

// TrackingEventRepository appends events to orders/{orderID}/tracking.
type TrackingEventRepository struct {
	events *pfirestore.BaseRepository[trackingEventDocument]
}

var _ repositories.TrackingEventRepository = (*TrackingEventRepository)(nil)

// NewTrackingEventRepository constructs a Firestore-backed tracking log.
func NewTrackingEventRepository(provider *pfirestore.Provider) (*TrackingEventRepository, error) {
	if provider == nil {
		return nil, errors.New("tracking repository requires firestore provider")
	}
	return &TrackingEventRepository{
		events: pfirestore.NewBaseRepository[trackingEventDocument](provider, trackingCollection),
	}, nil
}

// Append creates the event document; an existing event ID is a conflict.
func (r *TrackingEventRepository) Append(ctx context.Context, event domain.TrackingEvent) error {
	ref, err := r.events.Under(ordersCollection+"/"+event.OrderID).DocumentRef(ctx, event.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, encodeTrackingEvent(event)); err != nil {
		return pfirestore.WrapError("tracking.append", err)
	}
	return nil
}

// ListFor returns events in ascending OccurredAt order.
func (r *TrackingEventRepository) ListFor(ctx context.Context, orderID string) ([]domain.TrackingEvent, error) {
	docs, err := r.events.Under(ordersCollection+"/"+orderID).Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("occurredAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.TrackingEvent, 0, len(docs))
	for _, doc := range docs {
		out = append(out, decodeTrackingEvent(doc.ID, doc.Data))
	}
	return out, nil
}
