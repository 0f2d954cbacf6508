package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

type CouponHandlers struct {
	guards  Guards
	coupons services.CouponService
}

func NewCouponHandlers(guards Guards, coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{guards: guards, coupons: coupons}
}

func (h *CouponHandlers) Routes(r chi.Router) {
	h.guards.User(r, func(r chi.Router) {
		r.Post("/validate", h.validate)
	})
	h.guards.Admin(r, func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Delete("/{couponID}", h.remove)
	})
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

type validateCouponResponse struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
}

type createCouponRequest struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	ExpiryDate         string `json:"expiryDate"`
	IsActive           *bool  `json:"isActive"`
}

func (h *CouponHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req validateCouponRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	coupon, err := h.coupons.Validate(ctx, req.Code)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, validateCouponResponse{
		ID:                 coupon.ID,
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
	})
}

func (h *CouponHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	coupons, err := h.coupons.List(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	out := make([]couponPayload, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, buildCouponPayload(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CouponHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req createCouponRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		writeBadRequest(ctx, w, "expiryDate must be RFC3339 or YYYY-MM-DD")
		return
	}
	coupon, err := h.coupons.Create(ctx, services.CreateCouponCommand{
		Actor:              actor,
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		ExpiryDate:         expiry,
		IsActive:           req.IsActive,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildCouponPayload(coupon))
}

func (h *CouponHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	if err := h.coupons.Delete(ctx, actor, urlParam(r, "couponID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Coupon removed"})
}

// parseExpiryDate accepts the admin form's date-only value as end of that day in UTC.
func parseExpiryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Second).UTC(), nil
}
