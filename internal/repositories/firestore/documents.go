package firestore

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/bazaar-mobile/api/internal/domain"
)

// Money is stored as decimal strings so amounts round-trip without float error.

type cartLineDocument struct {
	ProductID          string    `firestore:"productId"`
	Name               string    `firestore:"name"`
	UnitPrice          string    `firestore:"unitPrice"`
	Quantity           int       `firestore:"quantity"`
	Availability       string    `firestore:"availability"`
	AvailableStock     int       `firestore:"availableStock"`
	DeliveryFeePerUnit *string   `firestore:"deliveryFeePerUnit,omitempty"`
	RunnerFeePerUnit   *string   `firestore:"runnerFeePerUnit,omitempty"`
	AddedAt            time.Time `firestore:"addedAt"`
}

type orderDocument struct {
	BuyerID         string                  `firestore:"buyerId"`
	Flow            string                  `firestore:"flow"`
	Status          string                  `firestore:"status"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	PaymentTiming   string                  `firestore:"paymentTiming"`
	DepositRatio    string                  `firestore:"depositRatio"`
	DeliveryAddress deliveryAddressDocument `firestore:"deliveryAddress"`
	Totals          orderTotalsDocument     `firestore:"totals"`
	HasOnOrderItems bool                    `firestore:"hasOnOrderItems"`
	ItemCount       int                     `firestore:"itemCount"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

type orderTotalsDocument struct {
	StandardTotal string `firestore:"standardTotal"`
	OnOrderTotal  string `firestore:"onOrderTotal"`
	ShippingFee   string `firestore:"shippingFee"`
	Tax           string `firestore:"tax"`
	TotalAmount   string `firestore:"totalAmount"`
	BalanceDue    string `firestore:"balanceDue"`
}

type deliveryAddressDocument struct {
	Recipient  string `firestore:"recipient"`
	Phone      string `firestore:"phone"`
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city"`
	Region     string `firestore:"region,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
	Country    string `firestore:"country"`
	Notes      string `firestore:"notes,omitempty"`
}

type orderItemDocument struct {
	Position  int    `firestore:"position"`
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice string `firestore:"unitPrice"`
	IsOnOrder bool   `firestore:"isOnOrder"`
}

type trackingEventDocument struct {
	OrderID     string    `firestore:"orderId"`
	EventType   string    `firestore:"eventType"`
	Description string    `firestore:"description,omitempty"`
	ActorID     string    `firestore:"actorId"`
	OccurredAt  time.Time `firestore:"occurredAt"`
}

func encodeCartLine(line domain.CartLine) cartLineDocument {
	return cartLineDocument{
		ProductID:          line.ProductID,
		Name:               line.Name,
		UnitPrice:          line.UnitPrice.String(),
		Quantity:           line.Quantity,
		Availability:       string(line.Availability),
		AvailableStock:     line.AvailableStock,
		DeliveryFeePerUnit: optionalString(line.DeliveryFeePerUnit),
		RunnerFeePerUnit:   optionalString(line.RunnerFeePerUnit),
		AddedAt:            line.AddedAt.UTC(),
	}
}

func decodeCartLine(doc cartLineDocument) (domain.CartLine, error) {
	unitPrice, err := parseMoney("unitPrice", doc.UnitPrice)
	if err != nil {
		return domain.CartLine{}, err
	}
	delivery, err := parseOptionalMoney("deliveryFeePerUnit", doc.DeliveryFeePerUnit)
	if err != nil {
		return domain.CartLine{}, err
	}
	runner, err := parseOptionalMoney("runnerFeePerUnit", doc.RunnerFeePerUnit)
	if err != nil {
		return domain.CartLine{}, err
	}
	return domain.CartLine{
		ProductID:          doc.ProductID,
		Name:               doc.Name,
		UnitPrice:          unitPrice,
		Quantity:           doc.Quantity,
		Availability:       domain.Availability(doc.Availability),
		AvailableStock:     doc.AvailableStock,
		DeliveryFeePerUnit: delivery,
		RunnerFeePerUnit:   runner,
		AddedAt:            doc.AddedAt,
	}, nil
}

func encodeOrder(order domain.Order) (orderDocument, []orderItemDocument) {
	addr := order.DeliveryAddress
	doc := orderDocument{
		BuyerID:       order.BuyerID,
		Flow:          string(order.Flow),
		Status:        string(order.Status),
		PaymentMethod: order.PaymentMethod,
		PaymentTiming: string(order.PaymentTiming),
		DepositRatio:  order.DepositRatio.String(),
		DeliveryAddress: deliveryAddressDocument{
			Recipient:  addr.Recipient,
			Phone:      addr.Phone,
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			Region:     addr.Region,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
			Notes:      addr.Notes,
		},
		Totals: orderTotalsDocument{
			StandardTotal: order.Totals.StandardTotal.String(),
			OnOrderTotal:  order.Totals.OnOrderTotal.String(),
			ShippingFee:   order.Totals.ShippingFee.String(),
			Tax:           order.Totals.Tax.String(),
			TotalAmount:   order.Totals.TotalAmount.String(),
			BalanceDue:    order.Totals.BalanceDue.String(),
		},
		HasOnOrderItems: order.HasOnOrderItems,
		ItemCount:       len(order.Items),
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}

	items := make([]orderItemDocument, 0, len(order.Items))
	for i, item := range order.Items {
		items = append(items, orderItemDocument{
			Position:  i,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
			IsOnOrder: item.IsOnOrder,
		})
	}
	return doc, items
}

func decodeOrder(id string, doc orderDocument, items []orderItemDocument) (domain.Order, error) {
	var d moneyDecoder
	order := domain.Order{
		ID:            id,
		BuyerID:       doc.BuyerID,
		Flow:          domain.OrderFlow(doc.Flow),
		Status:        domain.OrderStatus(doc.Status),
		PaymentMethod: doc.PaymentMethod,
		PaymentTiming: domain.PaymentTiming(doc.PaymentTiming),
		DepositRatio:  d.parse("depositRatio", doc.DepositRatio),
		DeliveryAddress: domain.DeliveryAddress{
			Recipient:  doc.DeliveryAddress.Recipient,
			Phone:      doc.DeliveryAddress.Phone,
			Line1:      doc.DeliveryAddress.Line1,
			Line2:      doc.DeliveryAddress.Line2,
			City:       doc.DeliveryAddress.City,
			Region:     doc.DeliveryAddress.Region,
			PostalCode: doc.DeliveryAddress.PostalCode,
			Country:    doc.DeliveryAddress.Country,
			Notes:      doc.DeliveryAddress.Notes,
		},
		Totals: domain.OrderTotals{
			StandardTotal: d.parse("standardTotal", doc.Totals.StandardTotal),
			OnOrderTotal:  d.parse("onOrderTotal", doc.Totals.OnOrderTotal),
			ShippingFee:   d.parse("shippingFee", doc.Totals.ShippingFee),
			Tax:           d.parse("tax", doc.Totals.Tax),
			TotalAmount:   d.parse("totalAmount", doc.Totals.TotalAmount),
			BalanceDue:    d.parse("balanceDue", doc.Totals.BalanceDue),
		},
		HasOnOrderItems: doc.HasOnOrderItems,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}

	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b orderItemDocument) int { return a.Position - b.Position })
	order.Items = make([]domain.OrderItem, 0, len(sorted))
	for _, item := range sorted {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: d.parse("unitPrice", item.UnitPrice),
			IsOnOrder: item.IsOnOrder,
		})
	}
	if d.err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, d.err)
	}
	return order, nil
}

// moneyDecoder keeps the first parse failure so a document can be decoded in one pass.
type moneyDecoder struct {
	err error
}

func (d *moneyDecoder) parse(field, raw string) decimal.Decimal {
	value, err := parseMoney(field, raw)
	if err != nil && d.err == nil {
		d.err = err
	}
	return value
}

func encodeTrackingEvent(event domain.TrackingEvent) trackingEventDocument {
	return trackingEventDocument{
		OrderID:     event.OrderID,
		EventType:   string(event.EventType),
		Description: event.Description,
		ActorID:     event.ActorID,
		OccurredAt:  event.OccurredAt.UTC(),
	}
}

func decodeTrackingEvent(id string, doc trackingEventDocument) domain.TrackingEvent {
	return domain.TrackingEvent{
		ID:          id,
		OrderID:     doc.OrderID,
		EventType:   domain.OrderStatus(doc.EventType),
		Description: doc.Description,
		ActorID:     doc.ActorID,
		OccurredAt:  doc.OccurredAt,
	}
}

func optionalString(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func parseMoney(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("firestore: decode %s %q: %w", field, raw, err)
	}
	return value, nil
}

func parseOptionalMoney(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseMoney(field, *raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
