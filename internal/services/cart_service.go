package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
)

// CartServiceDeps wires the repository and ambient dependencies for cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo   repositories.CartRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		repo:   deps.Repository,
		now:    func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

func (s *cartService) Lines(ctx context.Context, buyerID string) ([]CartLine, error) {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, buyer)
	if err != nil {
		return nil, mapRepositoryError("cart.get_lines", err)
	}
	return lines, nil
}

func (s *cartService) Totals(ctx context.Context, buyerID string) (CartView, error) {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, buyer)
}

// AddLine inserts a product or, when the product is already present, increases its quantity.
func (s *cartService) AddLine(ctx context.Context, cmd AddCartLineCommand) (CartView, error) {
	buyer, err := requireBuyer(cmd.BuyerID)
	if err != nil {
		return CartView{}, err
	}

	line := cmd.Line
	line.ProductID = strings.TrimSpace(line.ProductID)
	line.Name = strings.TrimSpace(line.Name)
	if line.Availability == "" {
		line.Availability = domain.AvailabilityInStock
	}
	if err := ValidateCartLines([]CartLine{line}); err != nil {
		return CartView{}, err
	}

	existing, err := s.repo.GetLines(ctx, buyer)
	if err != nil {
		return CartView{}, mapRepositoryError("cart.get_lines", err)
	}
	for _, current := range existing {
		if current.ProductID == line.ProductID {
			line.Quantity += current.Quantity
			line.AddedAt = current.AddedAt
			break
		}
	}
	if err := checkStock(line, line.Quantity); err != nil {
		return CartView{}, err
	}
	if line.AddedAt.IsZero() {
		line.AddedAt = s.now()
	}

	if err := s.repo.PutLine(ctx, buyer, line); err != nil {
		return CartView{}, mapRepositoryError("cart.put_line", err)
	}
	s.logger(ctx, "cart.line.added", map[string]any{
		"buyerId":   buyer,
		"productId": line.ProductID,
		"quantity":  line.Quantity,
	})
	return s.view(ctx, buyer)
}

// SetQuantity enforces 1 <= quantity <= available stock when stock is known.
func (s *cartService) SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) (CartView, error) {
	buyer, err := requireBuyer(cmd.BuyerID)
	if err != nil {
		return CartView{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if cmd.Quantity < 1 {
		return CartView{}, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	lines, err := s.repo.GetLines(ctx, buyer)
	if err != nil {
		return CartView{}, mapRepositoryError("cart.get_lines", err)
	}
	found := false
	for _, line := range lines {
		if line.ProductID != productID {
			continue
		}
		found = true
		if err := checkStock(line, cmd.Quantity); err != nil {
			return CartView{}, err
		}
	}
	if !found {
		return CartView{}, fmt.Errorf("%w: product %s is not in the cart", ErrNotFound, productID)
	}

	if err := s.repo.SetQuantity(ctx, buyer, productID, cmd.Quantity); err != nil {
		return CartView{}, mapRepositoryError("cart.set_quantity", err)
	}
	return s.view(ctx, buyer)
}

func (s *cartService) Remove(ctx context.Context, buyerID string, productID string) (CartView, error) {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return CartView{}, err
	}
	product := strings.TrimSpace(productID)
	if product == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if err := s.repo.Remove(ctx, buyer, product); err != nil {
		return CartView{}, mapRepositoryError("cart.remove", err)
	}
	return s.view(ctx, buyer)
}

func (s *cartService) Clear(ctx context.Context, buyerID string) error {
	buyer, err := requireBuyer(buyerID)
	if err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, buyer); err != nil {
		return mapRepositoryError("cart.clear", err)
	}
	return nil
}

func (s *cartService) view(ctx context.Context, buyer string) (CartView, error) {
	lines, err := s.repo.GetLines(ctx, buyer)
	if err != nil {
		return CartView{}, mapRepositoryError("cart.get_lines", err)
	}
	return CartView{
		BuyerID: buyer,
		Lines:   lines,
		Totals:  AggregateCart(lines),
	}, nil
}

func checkStock(line CartLine, quantity int) error {
	// on-order lines are sourced from a supplier and are not bounded by local stock
	if line.IsOnOrder() || line.AvailableStock <= 0 {
		return nil
	}
	if quantity > line.AvailableStock {
		return fmt.Errorf("%w: only %d of %s available", ErrValidation, line.AvailableStock, line.ProductID)
	}
	return nil
}

func requireBuyer(buyerID string) (string, error) {
	buyer := strings.TrimSpace(buyerID)
	if buyer == "" {
		return "", fmt.Errorf("%w: buyer id is required", ErrValidation)
	}
	return buyer, nil
}
