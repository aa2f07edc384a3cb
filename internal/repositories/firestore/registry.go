package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories around one provider.
type Registry struct {
	provider *pfirestore.Provider
	carts    *CartRepository
	orders   *OrderRepository
	tracking *TrackingEventRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repositories. Extra probes are reported next to Firestore in readiness.
func NewRegistry(provider *pfirestore.Provider, extraProbes ...repositories.DependencyProbe) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	tracking, err := NewTrackingEventRepository(provider)
	if err != nil {
		return nil, err
	}
	probes := append([]repositories.DependencyProbe{{Name: "firestore", Check: provider.Ping}}, extraProbes...)
	health, err := repositories.NewProbeHealthRepository(probes)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider: provider,
		carts:    carts,
		orders:   orders,
		tracking: tracking,
		health:   health,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) TrackingEvents() repositories.TrackingEventRepository { return r.tracking }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx runs fn directly. Each repository call that needs atomicity opens its own Firestore
// transaction; a Firestore transaction cannot span the reads the services issue between calls.
func (r *Registry) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
