package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

// UserHandlers serves the caller's profile, wishlist and saved addresses under /users.
type UserHandlers struct {
	guards Guards
	users  services.UserService
}

func NewUserHandlers(guards Guards, users services.UserService) *UserHandlers {
	return &UserHandlers{guards: guards, users: users}
}

func (h *UserHandlers) Routes(r chi.Router) {
	h.guards.User(r, func(r chi.Router) {
		r.Get("/profile", h.profile)
		r.Get("/wishlist", h.wishlist)
		r.Post("/wishlist/{productID}", h.addToWishlist)
		r.Delete("/wishlist/{productID}", h.removeFromWishlist)
		r.Post("/addresses", h.addAddress)
		r.Delete("/addresses/{addressID}", h.removeAddress)
	})
}

type addressRequest struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

func (h *UserHandlers) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	profile, err := h.users.Profile(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProfilePayload(profile))
}

func (h *UserHandlers) wishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	products, err := h.users.Wishlist(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductList(products))
}

func (h *UserHandlers) addToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	ids, err := h.users.AddToWishlist(ctx, actor, urlParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNilIDs(ids))
}

func (h *UserHandlers) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	ids, err := h.users.RemoveFromWishlist(ctx, actor, urlParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNilIDs(ids))
}

func (h *UserHandlers) addAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req addressRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	addresses, err := h.users.AddAddress(ctx, actor, services.AddressInput{
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildAddressList(addresses))
}

func (h *UserHandlers) removeAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	addresses, err := h.users.RemoveAddress(ctx, actor, urlParam(r, "addressID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildAddressList(addresses))
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
