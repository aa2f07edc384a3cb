package memory

import (
	"context"
	"slices"
	"sync"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

// TrackingEventRepository is an append-only in-memory log.
type TrackingEventRepository struct {
	mu     sync.RWMutex
	events map[string][]domain.TrackingEvent
}

var _ repositories.TrackingEventRepository = (*TrackingEventRepository)(nil)

// NewTrackingEventRepository constructs an empty tracking log.
func NewTrackingEventRepository() *TrackingEventRepository {
	return &TrackingEventRepository{events: make(map[string][]domain.TrackingEvent)}
}

func (r *TrackingEventRepository) Append(ctx context.Context, event domain.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.OrderID] = append(r.events[event.OrderID], event)
	return nil
}

func (r *TrackingEventRepository) ListFor(ctx context.Context, orderID string) ([]domain.TrackingEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.events[orderID])
	slices.SortStableFunc(out, func(a, b domain.TrackingEvent) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})
	return out, nil
}
