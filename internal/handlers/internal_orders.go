package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/bazaar-mobile/api/internal/domain"
	"github.com/bazaar-mobile/api/internal/platform/auth"
	"github.com/bazaar-mobile/api/internal/platform/httpx"
	"github.com/bazaar-mobile/api/internal/platform/textutil"
	"github.com/bazaar-mobile/api/internal/services"
)

// InternalOrderHandlers lets sellers' back-office jobs and couriers advance order status. The
// group is expected to sit behind OIDC verification.
type InternalOrderHandlers struct {
	orders services.OrderService
	money  *textutil.MoneyFormatter
}

// NewInternalOrderHandlers constructs the internal order handlers.
func NewInternalOrderHandlers(orders services.OrderService, money *textutil.MoneyFormatter) *InternalOrderHandlers {
	return &InternalOrderHandlers{orders: orders, money: defaultFormatter(money)}
}

// Routes registers the /internal endpoints.
func (h *InternalOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/orders/{orderID}:transition", h.transition)
}

type transitionOrderRequest struct {
	BuyerID      string `json:"buyer_id"`
	TargetStatus string `json:"target_status"`
	Description  string `json:"description"`
}

func (h *InternalOrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.ServiceIdentityFromContext(ctx)
	if !ok || identity == nil || identity.ActorID() == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "service identity required", http.StatusUnauthorized))
		return
	}

	var req transitionOrderRequest
	if !decodeJSONBody(w, r, &req, false) {
		return
	}
	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		BuyerID:      strings.TrimSpace(req.BuyerID),
		TargetStatus: domain.OrderStatus(req.TargetStatus),
		ActorID:      identity.ActorID(),
		Description:  req.Description,
	})
	if err != nil {
		writeServiceError(ctx, w, "order", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(h.money, order)})
}
