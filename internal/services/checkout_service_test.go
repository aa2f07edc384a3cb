package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/repositories/memory"
)

type recordingPublisher struct {
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type stubTrackingRepo struct {
	appendFn  func(context.Context, TrackingEvent) error
	listForFn func(context.Context, string) ([]TrackingEvent, error)
}

func (s *stubTrackingRepo) Append(ctx context.Context, event TrackingEvent) error {
	if s.appendFn != nil {
		return s.appendFn(ctx, event)
	}
	return nil
}

func (s *stubTrackingRepo) ListFor(ctx context.Context, orderID string) ([]TrackingEvent, error) {
	if s.listForFn != nil {
		return s.listForFn(ctx, orderID)
	}
	return nil, nil
}

type tagStripper struct{}

func (tagStripper) Sanitize(input string) string {
	return strings.ReplaceAll(strings.ReplaceAll(input, "<b>", ""), "</b>", "")
}

type checkoutFixture struct {
	svc       CheckoutService
	registry  *memory.Registry
	publisher *recordingPublisher
	logs      []string
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	fx := &checkoutFixture{registry: memory.NewRegistry(), publisher: &recordingPublisher{}}
	seq := 0
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:      fx.registry.Carts(),
		Orders:     fx.registry.Orders(),
		Tracking:   fx.registry.TrackingEvents(),
		UnitOfWork: fx.registry,
		Events:     fx.publisher,
		Sanitizer:  tagStripper{},
		Clock:      func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("%03d", seq)
		},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			fx.logs = append(fx.logs, event)
		},
	})
	require.NoError(t, err)
	fx.svc = svc
	return fx
}

func (fx *checkoutFixture) fillCart(t *testing.T, lines ...CartLine) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, fx.registry.Carts().PutLine(context.Background(), "buyer-1", line))
	}
}

func validPlaceOrder(timing PaymentTiming) PlaceOrderCommand {
	return PlaceOrderCommand{
		BuyerID:       "buyer-1",
		PaymentMethod: "card",
		PaymentTiming: timing,
		DeliveryAddress: DeliveryAddress{
			Recipient: "Ada",
			Phone:     "+2340000000",
			Line1:     "1 Market Road",
			City:      "Lagos",
			Country:   "ng",
			Notes:     "<b>ring twice</b>",
		},
	}
}

func TestCheckoutPlaceOrderWithDeposit(t *testing.T) {
	ctx := context.Background()
	fx := newCheckoutFixture(t)
	sofa := onOrderLine("sofa", "200", 2)
	sofa.DeliveryFeePerUnit = decPtr("10")
	fx.fillCart(t, sofa, inStockLine("lamp", "30", 1))

	order, err := fx.svc.PlaceOrder(ctx, validPlaceOrder(domain.PaymentTimingLater))
	require.NoError(t, err)

	require.Equal(t, "ord_001", order.ID)
	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.Equal(t, domain.OrderFlowShipping, order.Flow)
	require.Equal(t, domain.PaymentTimingLater, order.PaymentTiming)
	require.True(t, order.HasOnOrderItems)
	require.Len(t, order.Items, 2)
	require.Equal(t, "ring twice", order.DeliveryAddress.Notes)
	require.Equal(t, "NG", order.DeliveryAddress.Country)

	requireDecimal(t, "30", order.Totals.StandardTotal)
	requireDecimal(t, "200", order.Totals.OnOrderTotal)
	requireDecimal(t, "20", order.Totals.ShippingFee)
	requireDecimal(t, "0", order.Totals.Tax)
	requireDecimal(t, "250", order.Totals.TotalAmount)
	requireDecimal(t, "200", order.Totals.BalanceDue)

	stored, err := fx.registry.Orders().Fetch(ctx, order.ID, "buyer-1")
	require.NoError(t, err)
	require.Equal(t, order.ID, stored.ID)

	events, err := fx.registry.TrackingEvents().ListFor(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.OrderStatusPending, events[0].EventType)
	require.Equal(t, "trk_002", events[0].ID)

	lines, err := fx.registry.Carts().GetLines(ctx, "buyer-1")
	require.NoError(t, err)
	require.Empty(t, lines)

	require.Len(t, fx.publisher.events, 1)
	require.Equal(t, "order.created", fx.publisher.events[0].Type)
	require.Equal(t, "250.00", fx.publisher.events[0].TotalAmount)
}

func TestCheckoutPlaceOrderRejectsEmptyCart(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.PlaceOrder(context.Background(), validPlaceOrder(domain.PaymentTimingNow))
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, fx.publisher.events)

	_, err = fx.svc.Quote(context.Background(), "buyer-1", domain.PaymentTimingNow)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckoutPlaceOrderValidatesCommand(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.fillCart(t, inStockLine("lamp", "30", 1))

	cmd := validPlaceOrder(domain.PaymentTimingNow)
	cmd.PaymentMethod = ""
	_, err := fx.svc.PlaceOrder(context.Background(), cmd)
	require.ErrorIs(t, err, ErrValidation)

	cmd = validPlaceOrder(domain.PaymentTimingNow)
	cmd.DeliveryAddress.Line1 = " "
	_, err = fx.svc.PlaceOrder(context.Background(), cmd)
	require.ErrorIs(t, err, ErrValidation)

	cmd = validPlaceOrder(domain.PaymentTimingLater)
	_, err = fx.svc.PlaceOrder(context.Background(), cmd)
	require.ErrorIs(t, err, ErrInvalidPaymentTiming)

	cmd = validPlaceOrder(domain.PaymentTimingNow)
	cmd.Flow = "barter"
	_, err = fx.svc.PlaceOrder(context.Background(), cmd)
	require.ErrorIs(t, err, ErrValidation)

	lines, err := fx.registry.Carts().GetLines(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, lines, 1, "failed checkout must keep the cart")
}

func TestCheckoutPlaceOrderSurvivesFollowUpFailures(t *testing.T) {
	registry := memory.NewRegistry()
	require.NoError(t, registry.Carts().PutLine(context.Background(), "buyer-1", inStockLine("lamp", "30", 1)))
	publisher := &recordingPublisher{err: errors.New("pubsub down")}
	var logs []string

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:  registry.Carts(),
		Orders: registry.Orders(),
		Tracking: &stubTrackingRepo{appendFn: func(context.Context, TrackingEvent) error {
			return errors.New("tracking down")
		}},
		Events: publisher,
		Logger: func(_ context.Context, event string, _ map[string]any) { logs = append(logs, event) },
	})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(context.Background(), validPlaceOrder(""))
	require.NoError(t, err)
	require.Equal(t, domain.PaymentTimingNow, order.PaymentTiming)
	require.True(t, strings.HasPrefix(order.ID, "ord_"))
	require.Contains(t, logs, "checkout.tracking.append.failed")
	require.Contains(t, logs, "order.event.publish.failed")

	_, err = registry.Orders().Fetch(context.Background(), order.ID, "buyer-1")
	require.NoError(t, err)
}

func TestCheckoutQuote(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.fillCart(t, onOrderLine("sofa", "200", 2))

	quote, err := fx.svc.Quote(context.Background(), "buyer-1", domain.PaymentTimingLater)
	require.NoError(t, err)
	requireDecimal(t, "200", quote.Plan.DueNow)
	requireDecimal(t, "200", quote.Plan.DueLater)
	requireDecimal(t, "400", quote.Totals.GrandTotal)
	require.Len(t, quote.Lines, 1)
}
