package firestore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

func TestCartLineDocumentRoundTripKeepsExactMoney(t *testing.T) {
	fee := decimal.RequireFromString("150.125")
	line := domain.CartLine{
		ProductID:          "p1",
		Name:               "Ankara fabric",
		UnitPrice:          decimal.RequireFromString("4999.99"),
		Quantity:           3,
		Availability:       domain.AvailabilityOnOrder,
		AvailableStock:     0,
		DeliveryFeePerUnit: &fee,
		AddedAt:            time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC),
	}

	doc := encodeCartLine(line)
	require.Equal(t, "4999.99", doc.UnitPrice)
	require.NotNil(t, doc.DeliveryFeePerUnit)
	require.Equal(t, "150.125", *doc.DeliveryFeePerUnit)
	require.Nil(t, doc.RunnerFeePerUnit)

	decoded, err := decodeCartLine(doc)
	require.NoError(t, err)
	require.True(t, decoded.UnitPrice.Equal(line.UnitPrice))
	require.True(t, decoded.DeliveryFeePerUnit.Equal(fee))
	require.Nil(t, decoded.RunnerFeePerUnit)
	require.Equal(t, line.AddedAt, decoded.AddedAt)
}

func TestDecodeCartLineRejectsMalformedMoney(t *testing.T) {
	_, err := decodeCartLine(cartLineDocument{ProductID: "p1", UnitPrice: "12,00"})
	require.ErrorContains(t, err, "unitPrice")
}

func TestOrderDocumentRoundTrip(t *testing.T) {
	created := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	order := domain.Order{
		ID:            "ord_1",
		BuyerID:       "buyer-1",
		Flow:          domain.OrderFlowShipping,
		Status:        domain.OrderStatusPending,
		PaymentMethod: "card",
		PaymentTiming: domain.PaymentTimingLater,
		DepositRatio:  domain.DepositRatio,
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Shoes", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: "p2", Name: "Bag", Quantity: 2, UnitPrice: decimal.NewFromInt(50), IsOnOrder: true},
		},
		DeliveryAddress: domain.DeliveryAddress{Recipient: "Ada", Line1: "1 Marina", City: "Lagos", Country: "NG"},
		Totals: domain.OrderTotals{
			StandardTotal: decimal.NewFromInt(100),
			OnOrderTotal:  decimal.NewFromInt(50),
			ShippingFee:   decimal.Zero,
			Tax:           decimal.Zero,
			TotalAmount:   decimal.NewFromInt(150),
			BalanceDue:    decimal.NewFromInt(50),
		},
		HasOnOrderItems: true,
		CreatedAt:       created,
		UpdatedAt:       created,
	}

	doc, items := encodeOrder(order)
	require.Equal(t, 2, doc.ItemCount)
	require.Equal(t, "150", doc.Totals.TotalAmount)
	require.Len(t, items, 2)

	// items come back from the store in arbitrary order
	items[0], items[1] = items[1], items[0]
	decoded, err := decodeOrder("ord_1", doc, items)
	require.NoError(t, err)
	require.Equal(t, "p1", decoded.Items[0].ProductID)
	require.Equal(t, "p2", decoded.Items[1].ProductID)
	require.True(t, decoded.DepositRatio.Equal(domain.DepositRatio))
	require.True(t, decoded.Totals.BalanceDue.Equal(decimal.NewFromInt(50)))
	require.Equal(t, order.DeliveryAddress, decoded.DeliveryAddress)
	require.Equal(t, domain.OrderFlowShipping, decoded.Flow)
	require.Equal(t, domain.PaymentTimingLater, decoded.PaymentTiming)
}

func TestDecodeOrderReportsBadField(t *testing.T) {
	doc := orderDocument{BuyerID: "b", Totals: orderTotalsDocument{TotalAmount: "abc"}}
	_, err := decodeOrder("ord_9", doc, nil)
	require.ErrorContains(t, err, "ord_9")
	require.ErrorContains(t, err, "totalAmount")
}

func TestTrackingEventDocumentRoundTrip(t *testing.T) {
	event := domain.TrackingEvent{
		ID:          "trk_1",
		OrderID:     "ord_1",
		EventType:   domain.OrderStatusShipped,
		Description: "Left Lagos hub",
		ActorID:     "courier-1",
		OccurredAt:  time.Date(2026, time.February, 2, 8, 0, 0, 0, time.UTC),
	}
	require.Equal(t, event, decodeTrackingEvent("trk_1", encodeTrackingEvent(event)))
}
