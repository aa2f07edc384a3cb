package memory

import (
	"context"
	"slices"
	"sync"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

// CartRepository keeps carts in process memory. Line order follows insertion.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartLine
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs an empty cart store.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]domain.CartLine)}
}

func (r *CartRepository) GetLines(ctx context.Context, buyerID string) ([]domain.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneLines(r.carts[buyerID]), nil
}

func (r *CartRepository) PutLine(ctx context.Context, buyerID string, line domain.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[buyerID]
	if idx := indexOfProduct(lines, line.ProductID); idx >= 0 {
		lines[idx] = cloneLine(line)
		return nil
	}
	r.carts[buyerID] = append(lines, cloneLine(line))
	return nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, buyerID string, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[buyerID]
	idx := indexOfProduct(lines, productID)
	if idx < 0 {
		return notFound("cart.set_quantity", "product %s not in cart", productID)
	}
	lines[idx].Quantity = quantity
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, buyerID string, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.carts[buyerID]
	idx := indexOfProduct(lines, productID)
	if idx < 0 {
		return notFound("cart.remove", "product %s not in cart", productID)
	}
	r.carts[buyerID] = slices.Delete(lines, idx, idx+1)
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, buyerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, buyerID)
	return nil
}

func indexOfProduct(lines []domain.CartLine, productID string) int {
	return slices.IndexFunc(lines, func(line domain.CartLine) bool {
		return line.ProductID == productID
	})
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, cloneLine(line))
	}
	return out
}

func cloneLine(line domain.CartLine) domain.CartLine {
	if line.DeliveryFeePerUnit != nil {
		fee := *line.DeliveryFeePerUnit
		line.DeliveryFeePerUnit = &fee
	}
	if line.RunnerFeePerUnit != nil {
		fee := *line.RunnerFeePerUnit
		line.RunnerFeePerUnit = &fee
	}
	return line
}
