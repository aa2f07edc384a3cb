package memory

import (
	"context"

	"github.com/bazaar-mobile/api/internal/repositories"
)

// Registry bundles the in-memory repositories for local runs and tests.
type Registry struct {
	carts    *CartRepository
	orders   *OrderRepository
	tracking *TrackingEventRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs a registry with empty stores.
func NewRegistry() *Registry {
	return &Registry{
		carts:    NewCartRepository(),
		orders:   NewOrderRepository(),
		tracking: NewTrackingEventRepository(),
	}
}

func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) TrackingEvents() repositories.TrackingEventRepository { return r.tracking }

func (r *Registry) Health() repositories.HealthRepository {
	health, _ := repositories.NewProbeHealthRepository([]repositories.DependencyProbe{
		{Name: "memory", Check: func(ctx context.Context) error { return ctx.Err() }},
	})
	return health
}

// RunInTx runs fn directly; each in-memory call is already atomic.
func (r *Registry) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
