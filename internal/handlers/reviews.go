package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

// ReviewHandlers serves product reviews. They share the /products prefix with the catalog.
type ReviewHandlers struct {
	guards  Guards
	reviews services.ReviewService
}

func NewReviewHandlers(guards Guards, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{guards: guards, reviews: reviews}
}

func (h *ReviewHandlers) Routes(r chi.Router) {
	r.Get("/reviews/top", h.listTop)
	h.guards.User(r, func(r chi.Router) {
		r.Post("/{productID}/reviews", h.addReview)
		r.Delete("/{productID}/reviews/{reviewID}", h.removeReview)
	})
	h.guards.Admin(r, func(r chi.Router) {
		r.Get("/reviews/all", h.listAll)
	})
}

type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Name    string `json:"name"`
}

func (h *ReviewHandlers) addReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req addReviewRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	product, err := h.reviews.Add(ctx, services.AddReviewCommand{
		ProductID:   urlParam(r, "productID"),
		Actor:       actor,
		DisplayName: strings.TrimSpace(req.Name),
		Rating:      req.Rating,
		Comment:     req.Comment,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ReviewHandlers) removeReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	product, err := h.reviews.Remove(ctx, services.RemoveReviewCommand{
		ProductID: urlParam(r, "productID"),
		ReviewID:  urlParam(r, "reviewID"),
		Actor:     actor,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

// listTop accepts ?limit=; the service applies the default and the cap.
func (h *ReviewHandlers) listTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(ctx, w, "limit must be an integer")
			return
		}
		limit = parsed
	}
	items, err := h.reviews.ListTop(ctx, limit)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildReviewFeed(items))
}

func (h *ReviewHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	items, err := h.reviews.ListAll(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildReviewFeed(items))
}
