//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"

	pconfig "github.com/bazaar-mobile/api/internal/platform/config"
	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
)

type stockRecord struct {
	SKU    string `firestore:"sku"`
	OnHand int    `firestore:"onHand"`
}

func TestProviderAgainstEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "bazaar-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, provider.Ping(ctx))

	repo := pfirestore.NewBaseRepository[stockRecord](provider, "stock").Under("sellers/s1")
	require.NoError(t, repo.Set(ctx, "c1", stockRecord{SKU: "rice-5kg", OnHand: 1}))

	doc, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "c1", doc.ID)
	require.Equal(t, 1, doc.Data.OnHand)

	_, err = repo.Get(ctx, "missing")
	var repoErr *pfirestore.Error
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())

	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := repo.DocumentRef(ctx, "c1")
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var record stockRecord
		if err := snap.DataTo(&record); err != nil {
			return err
		}
		record.OnHand++
		return tx.Set(ref, record)
	})
	require.NoError(t, err)

	docs, err := repo.Query(ctx, func(q firestore.Query) firestore.Query { return q.Where("sku", "==", "rice-5kg") })
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 2, docs[0].Data.OnHand)

	require.NoError(t, repo.Delete(ctx, "c1"))

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	err = provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error { return nil })
	require.True(t, errors.Is(err, context.Canceled))

	require.NoError(t, provider.Close(context.Background()))
	_, err = provider.Client(context.Background())
	require.ErrorIs(t, err, pfirestore.ErrProviderClosed)
}
