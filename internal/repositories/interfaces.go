package repositories

import (
	"context"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	TrackingEvents() TrackingEventRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CartRepository stores the lines of each buyer's cart. Totals are never persisted.
type CartRepository interface {
	GetLines(ctx context.Context, buyerID string) ([]domain.CartLine, error)
	// PutLine inserts the line or replaces an existing line for the same product.
	PutLine(ctx context.Context, buyerID string, line domain.CartLine) error
	// SetQuantity should return a RepositoryError with IsNotFound when the product is not in the cart.
	SetQuantity(ctx context.Context, buyerID string, productID string, quantity int) error
	Remove(ctx context.Context, buyerID string, productID string) error
	Clear(ctx context.Context, buyerID string) error
}

// OrderRepository persists orders. Create writes the order and its items atomically.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	// Fetch returns a RepositoryError with IsNotFound when the order is absent or owned by another buyer.
	Fetch(ctx context.Context, orderID string, buyerID string) (domain.Order, error)
	// UpdateStatus performs a compare-and-swap: when the stored status differs from expected it
	// returns a RepositoryError with IsConflict and leaves the order unchanged.
	UpdateStatus(ctx context.Context, orderID string, buyerID string, expected domain.OrderStatus, next domain.OrderStatus, at time.Time) (domain.Order, error)
	// ListForBuyer returns the buyer's orders newest first.
	ListForBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
}

// TrackingEventRepository is the append-only tracking log.
type TrackingEventRepository interface {
	Append(ctx context.Context, event domain.TrackingEvent) error
	// ListFor returns events ordered ascending by OccurredAt.
	ListFor(ctx context.Context, orderID string) ([]domain.TrackingEvent, error)
}

// HealthRepository probes backing dependencies for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.ReadinessReport, error)
}
