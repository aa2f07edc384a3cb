//go:build integration

package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
	pconfig "github.com/bazaar-mobile/api/internal/platform/config"
	pfirestore "github.com/bazaar-mobile/api/internal/platform/firestore"
	"github.com/bazaar-mobile/api/internal/repositories"
)

func newEmulatorRegistry(t *testing.T) *Registry {
	t.Helper()
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "bazaar-test", EmulatorHost: host})
	registry, err := NewRegistry(provider)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close(context.Background()) })
	return registry
}

func TestCartRepositoryAgainstEmulator(t *testing.T) {
	registry := newEmulatorRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	buyer := fmt.Sprintf("buyer-%d", time.Now().UnixNano())
	carts := registry.Carts()
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, carts.PutLine(ctx, buyer, domain.CartLine{ProductID: "p1", UnitPrice: decimal.NewFromInt(10), Quantity: 1, Availability: domain.AvailabilityInStock, AddedAt: base}))
	require.NoError(t, carts.PutLine(ctx, buyer, domain.CartLine{ProductID: "p2", UnitPrice: decimal.NewFromInt(20), Quantity: 1, Availability: domain.AvailabilityInStock, AddedAt: base.Add(time.Minute)}))
	// replacing p1 keeps its position
	require.NoError(t, carts.PutLine(ctx, buyer, domain.CartLine{ProductID: "p1", UnitPrice: decimal.NewFromInt(12), Quantity: 2, Availability: domain.AvailabilityInStock, AddedAt: base.Add(time.Hour)}))

	lines, err := carts.GetLines(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "p1", lines[0].ProductID)
	require.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(12)))

	require.NoError(t, carts.SetQuantity(ctx, buyer, "p2", 5))
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, carts.Remove(ctx, buyer, "missing"), &repoErr)
	require.True(t, repoErr.IsNotFound())

	require.NoError(t, carts.Clear(ctx, buyer))
	lines, err = carts.GetLines(ctx, buyer)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestOrderRepositoryAgainstEmulator(t *testing.T) {
	registry := newEmulatorRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	id := fmt.Sprintf("ord_%d", time.Now().UnixNano())
	order := domain.Order{
		ID:           id,
		BuyerID:      "buyer-1",
		Flow:         domain.OrderFlowShipping,
		Status:       domain.OrderStatusPending,
		DepositRatio: domain.DepositRatio,
		Items:        []domain.OrderItem{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
		Totals:       domain.OrderTotals{TotalAmount: decimal.NewFromInt(100)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	orders := registry.Orders()
	require.NoError(t, orders.Create(ctx, order))

	var repoErr repositories.RepositoryError
	require.ErrorAs(t, orders.Create(ctx, order), &repoErr)
	require.True(t, repoErr.IsConflict())

	_, err := orders.Fetch(ctx, id, "buyer-2")
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())

	updated, err := orders.UpdateStatus(ctx, id, "buyer-1", domain.OrderStatusPending, domain.OrderStatusConfirmed, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	require.Len(t, updated.Items, 1)

	_, err = orders.UpdateStatus(ctx, id, "buyer-1", domain.OrderStatusPending, domain.OrderStatusCancelled, now.Add(2*time.Minute))
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	tracking := registry.TrackingEvents()
	require.NoError(t, tracking.Append(ctx, domain.TrackingEvent{ID: "trk_2", OrderID: id, EventType: domain.OrderStatusConfirmed, OccurredAt: now.Add(time.Minute)}))
	require.NoError(t, tracking.Append(ctx, domain.TrackingEvent{ID: "trk_1", OrderID: id, EventType: domain.OrderStatusPending, OccurredAt: now}))
	events, err := tracking.ListFor(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "trk_1", events[0].ID)

	report, err := registry.Health().Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ProbeStatusOK, report.Status)
}
