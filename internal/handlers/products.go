package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

// ProductHandlers serves the public catalog and its admin maintenance endpoints.
type ProductHandlers struct {
	guards  Guards
	catalog services.CatalogService
}

func NewProductHandlers(guards Guards, catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{guards: guards, catalog: catalog}
}

// Routes registers the catalog endpoints under /products.
func (h *ProductHandlers) Routes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
	h.guards.Admin(r, func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Put("/{productID}", h.updateProduct)
		r.Delete("/{productID}", h.deleteProduct)
	})
}

type productRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        amount  `json:"price"`
	OldPrice     *amount `json:"oldPrice"`
	Image        string  `json:"image"`
	Description  string  `json:"description"`
	CountInStock int     `json:"countInStock"`
	IsNewArrival bool    `json:"isNewArrival"`
	IsSale       bool    `json:"isSale"`
}

type productPatchRequest struct {
	Name         *string `json:"name"`
	Category     *string `json:"category"`
	Price        *amount `json:"price"`
	OldPrice     *amount `json:"oldPrice"`
	Image        *string `json:"image"`
	Description  *string `json:"description"`
	CountInStock *int    `json:"countInStock"`
	IsNewArrival *bool   `json:"isNewArrival"`
	IsSale       *bool   `json:"isSale"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.ProductListFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	// The storefront sends "All" for the unfiltered category tab.
	if strings.EqualFold(filter.Category, "all") {
		filter.Category = ""
	}
	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductList(products))
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), urlParam(r, "productID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	product, err := h.catalog.CreateProduct(ctx, services.CreateProductCommand{
		Actor:        actor,
		Name:         req.Name,
		Category:     req.Category,
		Price:        req.Price.cents(),
		OldPrice:     centsPtr(req.OldPrice),
		Image:        req.Image,
		Description:  req.Description,
		CountInStock: req.CountInStock,
		IsNewArrival: req.IsNewArrival,
		IsSale:       req.IsSale,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildProductPayload(product))
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	var req productPatchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(ctx, w, err.Error())
		return
	}
	product, err := h.catalog.UpdateProduct(ctx, services.UpdateProductCommand{
		Actor:        actor,
		ProductID:    urlParam(r, "productID"),
		Name:         req.Name,
		Category:     req.Category,
		Price:        centsPtr(req.Price),
		OldPrice:     centsPtr(req.OldPrice),
		Image:        req.Image,
		Description:  req.Description,
		CountInStock: req.CountInStock,
		IsNewArrival: req.IsNewArrival,
		IsSale:       req.IsSale,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	if err := h.catalog.DeleteProduct(ctx, services.DeleteProductCommand{Actor: actor, ProductID: urlParam(r, "productID")}); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Product removed"})
}
