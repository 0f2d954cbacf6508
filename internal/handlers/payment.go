package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

// PaymentHandlers exposes intent creation and the publishable key used by the storefront.
type PaymentHandlers struct {
	guards   Guards
	payments services.PaymentService
}

func NewPaymentHandlers(guards Guards, payments services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{guards: guards, payments: payments}
}

func (h *PaymentHandlers) Routes(r chi.Router) {
	r.Get("/config", h.config)
	h.guards.User(r, func(r chi.Router) {
		r.Post("/create-payment-intent", h.createIntent)
	})
}

type createIntentRequest struct {
	OrderID  string `json:"orderId"`
	Currency string `json:"currency"`
}

type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type paymentConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

func (h *PaymentHandlers) config(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, paymentConfigResponse{PublishableKey: h.payments.PublishableKey()})
}

func (h *PaymentHandlers) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req createIntentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	intent, err := h.payments.CreatePaymentIntent(ctx, services.CreatePaymentIntentCommand{
		Actor:    actor,
		OrderID:  req.OrderID,
		Currency: req.Currency,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, createIntentResponse{ClientSecret: intent.ClientSecret})
}
