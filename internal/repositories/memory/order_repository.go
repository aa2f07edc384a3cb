package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

// OrderRepository keeps orders in process memory. The mutex is the compare-and-swap guard for
// status updates.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs an empty order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return conflict("orders.create", "order %s already exists", order.ID)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) Fetch(ctx context.Context, orderID string, buyerID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok || order.BuyerID != buyerID {
		return domain.Order{}, notFound("orders.fetch", "order %s not found", orderID)
	}
	return cloneOrder(order), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, buyerID string, expected domain.OrderStatus, next domain.OrderStatus, at time.Time) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok || order.BuyerID != buyerID {
		return domain.Order{}, notFound("orders.update_status", "order %s not found", orderID)
	}
	if order.Status != expected {
		return domain.Order{}, conflict("orders.update_status", "order %s is %s, expected %s", orderID, order.Status, expected)
	}
	order.Status = next
	order.UpdatedAt = at
	r.orders[orderID] = order
	return cloneOrder(order), nil
}

func (r *OrderRepository) ListForBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, order := range r.orders {
		if order.BuyerID == buyerID {
			out = append(out, cloneOrder(order))
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func cloneOrder(order domain.Order) domain.Order {
	order.Items = slices.Clone(order.Items)
	return order
}
