package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/platform/auth"
	"github.com/bazaar-mobile/api/internal/platform/httpx"
	"github.com/bazaar-mobile/api/internal/platform/observability"
	"github.com/bazaar-mobile/api/internal/platform/textutil"
	"github.com/bazaar-mobile/api/internal/services"
)

// OrderHandlers exposes the buyer's orders, their tracking timeline and summaries.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	money  *textutil.MoneyFormatter
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, money *textutil.MoneyFormatter) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
		money:  defaultFormatter(money),
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleBuyer))
		r.Use(observability.CallerMiddleware)
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/timeline", h.getTimeline)
	r.Get("/{orderID}/summary", h.getSummary)
	r.Post("/{orderID}:cancel", h.cancelOrder)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderListResponse struct {
	Items []orderPayload `json:"items"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	BuyerID         string                 `json:"buyer_id"`
	Flow            string                 `json:"flow"`
	Status          string                 `json:"status"`
	NextStatuses    []string               `json:"next_statuses"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentTiming   string                 `json:"payment_timing"`
	DepositRatio    string                 `json:"deposit_ratio"`
	HasOnOrderItems bool                   `json:"has_on_order_items"`
	Currency        string                 `json:"currency"`
	Items           []orderItemPayload     `json:"items"`
	DeliveryAddress deliveryAddressPayload `json:"delivery_address"`
	Totals          orderTotalsPayload     `json:"totals"`
	CreatedAt       string                 `json:"created_at,omitempty"`
	UpdatedAt       string                 `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name,omitempty"`
	Quantity  int          `json:"quantity"`
	UnitPrice moneyPayload `json:"unit_price"`
	IsOnOrder bool         `json:"is_on_order"`
}

type orderTotalsPayload struct {
	StandardTotal moneyPayload `json:"standard_total"`
	OnOrderTotal  moneyPayload `json:"on_order_total"`
	ShippingFee   moneyPayload `json:"shipping_fee"`
	Tax           moneyPayload `json:"tax"`
	TotalAmount   moneyPayload `json:"total_amount"`
	BalanceDue    moneyPayload `json:"balance_due"`
}

type deliveryAddressPayload struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type timelineResponse struct {
	Timeline timelinePayload `json:"timeline"`
}

type timelinePayload struct {
	OrderID      string                `json:"order_id"`
	Status       string                `json:"status"`
	CurrentIndex int                   `json:"current_index"`
	Steps        []timelineStepPayload `json:"steps"`
	Cancellation *cancellationPayload  `json:"cancellation,omitempty"`
}

type timelineStepPayload struct {
	Index     int     `json:"index"`
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Completed bool    `json:"completed"`
	Timestamp *string `json:"timestamp"`
}

type cancellationPayload struct {
	OccurredAt  *string `json:"occurred_at"`
	Description string  `json:"description,omitempty"`
}

type summaryResponse struct {
	Summary summaryPayload `json:"summary"`
}

type summaryPayload struct {
	OrderID       string       `json:"order_id"`
	Currency      string       `json:"currency"`
	Subtotal      moneyPayload `json:"subtotal"`
	StandardTotal moneyPayload `json:"standard_total"`
	OnOrderTotal  moneyPayload `json:"on_order_total"`
	Shipping      moneyPayload `json:"shipping"`
	Tax           moneyPayload `json:"tax"`
	Total         moneyPayload `json:"total"`
	StoredTotal   moneyPayload `json:"stored_total"`
	BalanceDue    moneyPayload `json:"balance_due"`
	Drift         string       `json:"drift"`
	Warning       string       `json:"warning,omitempty"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(ctx, buyer)
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	items := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderPayload(h.money, order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"), buyer)
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(h.money, order)})
}

func (h *OrderHandlers) getTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	timeline, err := h.orders.Timeline(ctx, chi.URLParam(r, "orderID"), buyer)
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, timelineResponse{Timeline: buildTimelinePayload(timeline)})
}

func (h *OrderHandlers) getSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.orders.Summary(ctx, chi.URLParam(r, "orderID"), buyer)
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, summaryResponse{Summary: buildSummaryPayload(h.money, view)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if !decodeJSONBody(w, r, &req, true) {
		return
	}
	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		BuyerID: buyer,
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(h.money, order)})
}

func buildOrderPayload(f *textutil.MoneyFormatter, order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: newMoney(f, item.UnitPrice),
			IsOnOrder: item.IsOnOrder,
		})
	}
	next := services.NextStatuses(order.Flow, order.Status)
	nextStatuses := make([]string, 0, len(next))
	for _, status := range next {
		nextStatuses = append(nextStatuses, string(status))
	}
	return orderPayload{
		ID:              order.ID,
		BuyerID:         order.BuyerID,
		Flow:            string(order.Flow),
		Status:          string(order.Status),
		NextStatuses:    nextStatuses,
		PaymentMethod:   order.PaymentMethod,
		PaymentTiming:   string(order.PaymentTiming),
		DepositRatio:    order.DepositRatio.String(),
		HasOnOrderItems: order.HasOnOrderItems,
		Currency:        f.Currency(),
		Items:           items,
		DeliveryAddress: newDeliveryAddressPayload(order.DeliveryAddress),
		Totals: orderTotalsPayload{
			StandardTotal: newMoney(f, order.Totals.StandardTotal),
			OnOrderTotal:  newMoney(f, order.Totals.OnOrderTotal),
			ShippingFee:   newMoney(f, order.Totals.ShippingFee),
			Tax:           newMoney(f, order.Totals.Tax),
			TotalAmount:   newMoney(f, order.Totals.TotalAmount),
			BalanceDue:    newMoney(f, order.Totals.BalanceDue),
		},
		CreatedAt: formatTime(order.CreatedAt),
		UpdatedAt: formatTime(order.UpdatedAt),
	}
}

func newDeliveryAddressPayload(addr domain.DeliveryAddress) deliveryAddressPayload {
	return deliveryAddressPayload{
		Recipient:  addr.Recipient,
		Phone:      addr.Phone,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Notes:      addr.Notes,
	}
}

func (p deliveryAddressPayload) toDomain() domain.DeliveryAddress {
	return domain.DeliveryAddress{
		Recipient:  p.Recipient,
		Phone:      p.Phone,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		Region:     p.Region,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Notes:      p.Notes,
	}
}

func buildTimelinePayload(tl services.Timeline) timelinePayload {
	payload := timelinePayload{
		OrderID:      tl.OrderID,
		Status:       string(tl.Status),
		CurrentIndex: tl.CurrentIndex,
		Steps:        make([]timelineStepPayload, 0, 5),
	}
	for step := range tl.Steps() {
		payload.Steps = append(payload.Steps, timelineStepPayload{
			Index:     step.Index,
			Key:       string(step.Key),
			Label:     step.Label,
			Completed: step.Completed,
			Timestamp: formatOptionalTime(step.Timestamp),
		})
	}
	if tl.Cancellation != nil {
		payload.Cancellation = &cancellationPayload{
			OccurredAt:  formatOptionalTime(tl.Cancellation.OccurredAt),
			Description: strings.TrimSpace(tl.Cancellation.Description),
		}
	}
	return payload
}

func buildSummaryPayload(f *textutil.MoneyFormatter, view services.SummaryView) summaryPayload {
	s := view.Summary
	return summaryPayload{
		OrderID:       s.OrderID,
		Currency:      f.Currency(),
		Subtotal:      newMoney(f, s.Subtotal),
		StandardTotal: newMoney(f, s.StandardTotal),
		OnOrderTotal:  newMoney(f, s.OnOrderTotal),
		Shipping:      newMoney(f, s.Shipping),
		Tax:           newMoney(f, s.Tax),
		Total:         newMoney(f, s.Total),
		StoredTotal:   newMoney(f, s.StoredTotal),
		BalanceDue:    newMoney(f, s.BalanceDue),
		Drift:         s.Drift.StringFixed(2),
		Warning:       view.Warning,
	}
}
