package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/bazaar-mobile/api/internal/domain"
	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/repositories"
)

const (
	ordersCollection     = "orders"
	orderItemsCollection = "items"
)

// OrderRepository stores orders/{orderID} with items in orders/{orderID}/items.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	items    *pfirestore.BaseRepository[orderItemDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection),
		items:    pfirestore.NewBaseRepository[orderItemDocument](provider, orderItemsCollection),
	}, nil
}

func (r *OrderRepository) itemsOf(orderID string) *pfirestore.BaseRepository[orderItemDocument] {
	return r.items.Under(ordersCollection + "/" + orderID)
}

// Create writes the order and its items in one transaction. An existing ID is a conflict.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	itemsColl, err := r.itemsOf(order.ID).CollectionRef(ctx)
	if err != nil {
		return err
	}

	doc, items := encodeOrder(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, doc); err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Set(itemsColl.Doc(fmt.Sprintf("%03d", item.Position)), item); err != nil {
				return err
			}
		}
		return nil
	})
	var repoErr *pfirestore.Error
	if errors.As(err, &repoErr) && repoErr.IsConflict() {
		return pfirestore.Conflict("orders.create", "order %s already exists", order.ID)
	}
	return err
}

// Fetch hides orders of other buyers behind NotFound.
func (r *OrderRepository) Fetch(ctx context.Context, orderID string, buyerID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if doc.Data.BuyerID != buyerID {
		return domain.Order{}, pfirestore.NotFound("orders.fetch", "order %s not found", orderID)
	}
	return r.hydrate(ctx, doc)
}

// UpdateStatus compares the stored status with expected inside a transaction and writes next
// only when they match.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, buyerID string, expected domain.OrderStatus, next domain.OrderStatus, at time.Time) (domain.Order, error) {
	ref, err := r.orders.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	var updated pfirestore.Document[orderDocument]
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return pfirestore.NotFound("orders.update_status", "order %s not found", orderID)
			}
			return err
		}
		current, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		if current.Data.BuyerID != buyerID {
			return pfirestore.NotFound("orders.update_status", "order %s not found", orderID)
		}
		if current.Data.Status != string(expected) {
			return pfirestore.Conflict("orders.update_status", "order %s is %s, expected %s", orderID, current.Data.Status, expected)
		}

		current.Data.Status = string(next)
		current.Data.UpdatedAt = at.UTC()
		updated = current
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: current.Data.Status},
			{Path: "updatedAt", Value: current.Data.UpdatedAt},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}
	return r.hydrate(ctx, updated)
}

// ListForBuyer returns the buyer's orders newest first.
func (r *OrderRepository) ListForBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("buyerId", "==", buyerID).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := r.hydrate(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *OrderRepository) hydrate(ctx context.Context, doc pfirestore.Document[orderDocument]) (domain.Order, error) {
	itemDocs, err := r.itemsOf(doc.ID).Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("position", firestore.Asc)
	})
	if err != nil {
		return domain.Order{}, err
	}
	items := make([]orderItemDocument, 0, len(itemDocs))
	for _, item := range itemDocs {
		items = append(items, item.Data)
	}
	order, err := decodeOrder(doc.ID, doc.Data, items)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.decode", err)
	}
	return order, nil
}
