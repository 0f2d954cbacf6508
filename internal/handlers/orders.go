package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

// OrderHandlers serves the order lifecycle endpoints under /orders.
type OrderHandlers struct {
	guards       Guards
	orders       services.OrderService
	trackLimiter rateLimiter
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithTrackRateLimit throttles the public tracking endpoint per client IP.
func WithTrackRateLimit(limiter rateLimiter) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.trackLimiter = limiter
	}
}

func NewOrderHandlers(guards Guards, orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{guards: guards, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *OrderHandlers) Routes(r chi.Router) {
	r.With(rateLimitMiddleware(h.trackLimiter, "track")).Post("/track", h.trackOrder)
	h.guards.User(r, func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/myorders", h.listMine)
		r.Get("/{orderID}", h.getOrder)
		r.Put("/{orderID}/pay", h.payOrder)
	})
	h.guards.Admin(r, func(r chi.Router) {
		r.Get("/", h.listAll)
		r.Put("/{orderID}/deliver", h.deliverOrder)
	})
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress shippingAddressPayload `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

// orderItemRequest has no price field; any price the client sends is dropped by the decoder.
type orderItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"qty"`
}

type trackOrderRequest struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req createOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	lines := make([]services.OrderLineRequest, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		lines = append(lines, services.OrderLineRequest{ProductID: item.Product, Quantity: item.Quantity})
	}
	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		Actor: actor,
		Lines: lines,
		ShippingAddress: services.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	orders, err := h.orders.ListMine(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(orders))
}

func (h *OrderHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	orders, err := h.orders.ListAll(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderList(orders))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	order, err := h.orders.Get(ctx, urlParam(r, "orderID"), actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) payOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req paymentResultPayload
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	order, err := h.orders.Pay(ctx, services.PayOrderCommand{
		OrderID: urlParam(r, "orderID"),
		Actor:   actor,
		PaymentResult: services.PaymentResult{
			ID:           req.ID,
			Status:       req.Status,
			UpdateTime:   req.UpdateTime,
			EmailAddress: req.EmailAddress,
		},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	order, err := h.orders.Deliver(ctx, services.DeliverOrderCommand{OrderID: urlParam(r, "orderID"), Actor: actor})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) trackOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req trackOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	tracking, err := h.orders.Track(ctx, services.TrackOrderCommand{OrderID: req.OrderID, Email: req.Email})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildTrackingPayload(tracking))
}
