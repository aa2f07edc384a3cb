package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/platform/auth"
	"github.com/bazaar-mobile/api/internal/platform/httpx"
	"github.com/bazaar-mobile/api/internal/platform/observability"
	"github.com/bazaar-mobile/api/internal/platform/textutil"
	"github.com/bazaar-mobile/api/internal/services"
)

// CartHandlers exposes the authenticated buyer's cart.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
	money *textutil.MoneyFormatter
}

// NewCartHandlers constructs handlers enforcing Firebase authentication before invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService, money *textutil.MoneyFormatter) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
		money: defaultFormatter(money),
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleBuyer))
		r.Use(observability.CallerMiddleware)
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
}

type addCartItemRequest struct {
	ProductID          string  `json:"product_id"`
	Name               string  `json:"name"`
	UnitPrice          string  `json:"unit_price"`
	Quantity           int     `json:"quantity"`
	Availability       string  `json:"availability"`
	AvailableStock     int     `json:"available_stock"`
	DeliveryFeePerUnit *string `json:"delivery_fee_per_unit"`
	RunnerFeePerUnit   *string `json:"runner_fee_per_unit"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	BuyerID    string            `json:"buyer_id"`
	Currency   string            `json:"currency"`
	ItemsCount int               `json:"items_count"`
	Items      []cartItemPayload `json:"items"`
	Totals     cartTotalsPayload `json:"totals"`
}

type cartItemPayload struct {
	ProductID          string        `json:"product_id"`
	Name               string        `json:"name,omitempty"`
	Quantity           int           `json:"quantity"`
	Availability       string        `json:"availability"`
	AvailableStock     int           `json:"available_stock,omitempty"`
	UnitPrice          moneyPayload  `json:"unit_price"`
	LineTotal          moneyPayload  `json:"line_total"`
	DeliveryFeePerUnit *moneyPayload `json:"delivery_fee_per_unit,omitempty"`
	RunnerFeePerUnit   *moneyPayload `json:"runner_fee_per_unit,omitempty"`
	AddedAt            string        `json:"added_at,omitempty"`
}

type cartTotalsPayload struct {
	StandardSubtotal moneyPayload `json:"standard_subtotal"`
	OnOrderSubtotal  moneyPayload `json:"on_order_subtotal"`
	DeliveryFeeTotal moneyPayload `json:"delivery_fee_total"`
	RunnerFeeTotal   moneyPayload `json:"runner_fee_total"`
	GrandTotal       moneyPayload `json:"grand_total"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.carts.Totals(ctx, buyer)
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: h.buildCartPayload(view)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeJSONBody(w, r, &req, false) {
		return
	}
	line, err := req.toCartLine()
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	view, err := h.carts.AddLine(ctx, services.AddCartLineCommand{BuyerID: buyer, Line: line})
	if err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: h.buildCartPayload(view)})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !decodeJSONBody(w, r, &req, false) {
		return
	}
	view, err := h.carts.SetQuantity(ctx, services.SetCartQuantityCommand{
		BuyerID:   buyer,
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, "cart_item", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: h.buildCartPayload(view)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}

	view, err := h.carts.Remove(ctx, buyer, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, "cart_item", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: h.buildCartPayload(view)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	buyer, ok := buyerFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(ctx, buyer); err != nil {
		writeServiceError(ctx, w, "cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req addCartItemRequest) toCartLine() (domain.CartLine, error) {
	price, err := parseMoneyField("unit_price", req.UnitPrice)
	if err != nil {
		return domain.CartLine{}, err
	}
	line := domain.CartLine{
		ProductID:      strings.TrimSpace(req.ProductID),
		Name:           strings.TrimSpace(req.Name),
		UnitPrice:      price,
		Quantity:       req.Quantity,
		Availability:   domain.Availability(strings.ToLower(strings.TrimSpace(req.Availability))),
		AvailableStock: req.AvailableStock,
	}
	if line.DeliveryFeePerUnit, err = parseOptionalMoneyField("delivery_fee_per_unit", req.DeliveryFeePerUnit); err != nil {
		return domain.CartLine{}, err
	}
	if line.RunnerFeePerUnit, err = parseOptionalMoneyField("runner_fee_per_unit", req.RunnerFeePerUnit); err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

func parseMoneyField(name, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", name)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a decimal string", name)
	}
	return value, nil
}

func parseOptionalMoneyField(name string, raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := parseMoneyField(name, *raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (h *CartHandlers) buildCartPayload(view services.CartView) cartPayload {
	items := make([]cartItemPayload, 0, len(view.Lines))
	for _, line := range view.Lines {
		items = append(items, cartItemPayload{
			ProductID:          line.ProductID,
			Name:               line.Name,
			Quantity:           line.Quantity,
			Availability:       string(line.Availability),
			AvailableStock:     line.AvailableStock,
			UnitPrice:          newMoney(h.money, line.UnitPrice),
			LineTotal:          newMoney(h.money, line.LineTotal()),
			DeliveryFeePerUnit: newOptionalMoney(h.money, line.DeliveryFeePerUnit),
			RunnerFeePerUnit:   newOptionalMoney(h.money, line.RunnerFeePerUnit),
			AddedAt:            formatTime(line.AddedAt),
		})
	}
	return cartPayload{
		BuyerID:    view.BuyerID,
		Currency:   h.money.Currency(),
		ItemsCount: len(items),
		Items:      items,
		Totals:     buildCartTotalsPayload(h.money, view.Totals),
	}
}

func buildCartTotalsPayload(f *textutil.MoneyFormatter, totals domain.CartTotals) cartTotalsPayload {
	return cartTotalsPayload{
		StandardSubtotal: newMoney(f, totals.StandardSubtotal),
		OnOrderSubtotal:  newMoney(f, totals.OnOrderSubtotal),
		DeliveryFeeTotal: newMoney(f, totals.DeliveryFeeTotal),
		RunnerFeeTotal:   newMoney(f, totals.RunnerFeeTotal),
		GrandTotal:       newMoney(f, totals.GrandTotal),
	}
}
