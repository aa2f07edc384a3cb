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

// CheckoutHandlers quote payment plans and place orders for the authenticated buyer.
type CheckoutHandlers struct {
	authn       *auth.Authenticator
	checkout    services.CheckoutService
	money       *textutil.MoneyFormatter
	idempotency func(http.Handler) http.Handler
}

// CheckoutOption customises checkout handlers.
type CheckoutOption func(*CheckoutHandlers)

// WithPlaceOrderMiddleware wraps only the order placement route, typically with idempotency protection.
func WithPlaceOrderMiddleware(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.idempotency = mw
	}
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, money *textutil.MoneyFormatter, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
		money:    defaultFormatter(money),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleBuyer))
		r.Use(observability.CallerMiddleware)
	}
	r.Post("/quote", h.quote)
	if h.idempotency != nil {
		r.With(h.idempotency).Post("/orders", h.placeOrder)
		return
	}
	r.Post("/orders", h.placeOrder)
}

type quoteRequest struct {
	PaymentTiming string `json:"payment_timing"`
}

type placeOrderRequest struct {
	Flow            string                 `json:"flow"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentTiming   string                 `json:"payment_timing"`
	DeliveryAddress deliveryAddressPayload `json:"delivery_address"`
}

type quoteResponse struct {
	Quote quotePayload `json:"quote"`
}

type quotePayload struct {
	Currency string             `json:"currency"`
	Items    []cartItemPayload  `json:"items"`
	Totals   cartTotalsPayload  `json:"totals"`
	Plan     paymentPlanPayload `json:"plan"`
}

type paymentPlanPayload struct {
	Timing          string               `json:"timing"`
	DepositRatio    string               `json:"deposit_ratio"`
	DueNow          moneyPayload         `json:"due_now"`
	DueLater        moneyPayload         `json:"due_later"`
	RunnerFeeTotal  moneyPayload         `json:"runner_fee_total"`
	HasOnOrderItems bool                 `json:"has_on_order_items"`
	Lines           []linePaymentPayload `json:"lines"`
}

type linePaymentPayload struct {
	ProductID    string       `json:"product_id"`
	Availability string       `json:"availability"`
	LineTotal    moneyPayload `json:"line_total"`
	DueNow       moneyPayload `json:"due_now"`
	DueLater     moneyPayload `json:"due_later"`
}

func (h *CheckoutHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	var req quoteRequest
	if !decodeJSONBody(w, r, &req, true) {
		return
	}
	timing, err := services.ParsePaymentTiming(req.PaymentTiming)
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}

	quote, err := h.checkout.Quote(ctx, buyer, timing)
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}

	carts := CartHandlers{money: h.money}
	view := carts.buildCartPayload(services.CartView{BuyerID: buyer, Lines: quote.Lines, Totals: quote.Totals})
	writeJSONResponse(w, http.StatusOK, quoteResponse{Quote: quotePayload{
		Currency: view.Currency,
		Items:    view.Items,
		Totals:   view.Totals,
		Plan:     buildPaymentPlanPayload(h.money, quote.Plan),
	}})
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !decodeJSONBody(w, r, &req, false) {
		return
	}
	timing, err := services.ParsePaymentTiming(req.PaymentTiming)
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		BuyerID:         buyer,
		Flow:            domain.OrderFlow(strings.ToLower(strings.TrimSpace(req.Flow))),
		PaymentMethod:   req.PaymentMethod,
		PaymentTiming:   timing,
		DeliveryAddress: req.DeliveryAddress.toDomain(),
	})
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(h.money, order)})
}

func buildPaymentPlanPayload(f *textutil.MoneyFormatter, plan domain.PaymentPlan) paymentPlanPayload {
	lines := make([]linePaymentPayload, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		lines = append(lines, linePaymentPayload{
			ProductID:    line.ProductID,
			Availability: string(line.Availability),
			LineTotal:    newMoney(f, line.LineTotal),
			DueNow:       newMoney(f, line.DueNow),
			DueLater:     newMoney(f, line.DueLater),
		})
	}
	return paymentPlanPayload{
		Timing:          string(plan.Timing),
		DepositRatio:    plan.DepositRatio.String(),
		DueNow:          newMoney(f, plan.DueNow),
		DueLater:        newMoney(f, plan.DueLater),
		RunnerFeeTotal:  newMoney(f, plan.RunnerFeeTotal),
		HasOnOrderItems: plan.HasOnOrderItems,
		Lines:           lines,
	}
}
