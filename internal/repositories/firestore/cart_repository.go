package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/bazaar-mobile/api/internal/domain"
	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/repositories"
)

const (
	cartCollection      = "carts"
	cartLinesCollection = "lines"
)

// CartRepository stores each cart line as carts/{buyerID}/lines/{productID}.
type CartRepository struct {
	provider *pfirestore.Provider
	lines    *pfirestore.BaseRepository[cartLineDocument]
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		provider: provider,
		lines:    pfirestore.NewBaseRepository[cartLineDocument](provider, cartLinesCollection),
	}, nil
}

func (r *CartRepository) linesFor(buyerID string) (*pfirestore.BaseRepository[cartLineDocument], error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, pfirestore.WrapError("cart.lines", errors.New("buyer id is required"))
	}
	return r.lines.Under(cartCollection + "/" + buyerID), nil
}

// GetLines returns the buyer's lines in the order they were first added.
func (r *CartRepository) GetLines(ctx context.Context, buyerID string) ([]domain.CartLine, error) {
	lines, err := r.linesFor(buyerID)
	if err != nil {
		return nil, err
	}
	docs, err := lines.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("addedAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.CartLine, 0, len(docs))
	for _, doc := range docs {
		line, err := decodeCartLine(doc.Data)
		if err != nil {
			return nil, pfirestore.WrapError("cart.get_lines", err)
		}
		out = append(out, line)
	}
	return out, nil
}

// PutLine upserts the line. A replaced line keeps its original position.
func (r *CartRepository) PutLine(ctx context.Context, buyerID string, line domain.CartLine) error {
	lines, err := r.linesFor(buyerID)
	if err != nil {
		return err
	}
	ref, err := lines.DocumentRef(ctx, line.ProductID)
	if err != nil {
		return err
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := encodeCartLine(line)
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			existing, decodeErr := pfirestore.Decode[cartLineDocument](snap)
			if decodeErr != nil {
				return decodeErr
			}
			if !existing.Data.AddedAt.IsZero() {
				doc.AddedAt = existing.Data.AddedAt
			}
		case !isNotFound(err):
			return err
		}
		return tx.Set(ref, doc)
	})
}

// SetQuantity fails with a NotFound error when the product is not in the cart.
func (r *CartRepository) SetQuantity(ctx context.Context, buyerID string, productID string, quantity int) error {
	lines, err := r.linesFor(buyerID)
	if err != nil {
		return err
	}
	ref, err := lines.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if isNotFound(err) {
				return pfirestore.NotFound("cart.set_quantity", "product %s not in cart", productID)
			}
			return err
		}
		return tx.Update(ref, []firestore.Update{{Path: "quantity", Value: quantity}})
	})
}

// Remove fails with a NotFound error when the product is not in the cart.
func (r *CartRepository) Remove(ctx context.Context, buyerID string, productID string) error {
	lines, err := r.linesFor(buyerID)
	if err != nil {
		return err
	}
	ref, err := lines.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if isNotFound(err) {
				return pfirestore.NotFound("cart.remove", "product %s not in cart", productID)
			}
			return err
		}
		return tx.Delete(ref)
	})
}

// Clear deletes every line of the cart in one transaction.
func (r *CartRepository) Clear(ctx context.Context, buyerID string) error {
	lines, err := r.linesFor(buyerID)
	if err != nil {
		return err
	}
	coll, err := lines.CollectionRef(ctx)
	if err != nil {
		return err
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		iter := tx.Documents(coll)
		defer iter.Stop()

		var refs []*firestore.DocumentRef
		for {
			snap, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return err
			}
			refs = append(refs, snap.Ref)
		}
		for _, ref := range refs {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		return nil
	})
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
