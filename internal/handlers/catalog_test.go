package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhirana780/medical-backend/internal/services"
)

type stubCatalogService struct {
	listFn   func(context.Context, services.ProductListFilter) ([]services.Product, error)
	getFn    func(context.Context, string) (services.Product, error)
	createFn func(context.Context, services.CreateProductCommand) (services.Product, error)
	updateFn func(context.Context, services.UpdateProductCommand) (services.Product, error)
	deleteFn func(context.Context, services.DeleteProductCommand) error
}

var _ services.CatalogService = (*stubCatalogService)(nil)

func (s *stubCatalogService) ListProducts(ctx context.Context, f services.ProductListFilter) ([]services.Product, error) {
	return s.listFn(ctx, f)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id string) (services.Product, error) {
	return s.getFn(ctx, id)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
	return s.updateFn(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, cmd services.DeleteProductCommand) error {
	return s.deleteFn(ctx, cmd)
}

type stubReviewService struct {
	addFn     func(context.Context, services.AddReviewCommand) (services.Product, error)
	removeFn  func(context.Context, services.RemoveReviewCommand) (services.Product, error)
	listTopFn func(context.Context, int) ([]services.ReviewFeedItem, error)
	listAllFn func(context.Context, services.Actor) ([]services.ReviewFeedItem, error)
}

var _ services.ReviewService = (*stubReviewService)(nil)

func (s *stubReviewService) Add(ctx context.Context, cmd services.AddReviewCommand) (services.Product, error) {
	return s.addFn(ctx, cmd)
}

func (s *stubReviewService) Remove(ctx context.Context, cmd services.RemoveReviewCommand) (services.Product, error) {
	return s.removeFn(ctx, cmd)
}

func (s *stubReviewService) ListTop(ctx context.Context, limit int) ([]services.ReviewFeedItem, error) {
	return s.listTopFn(ctx, limit)
}

func (s *stubReviewService) ListAll(ctx context.Context, actor services.Actor) ([]services.ReviewFeedItem, error) {
	return s.listAllFn(ctx, actor)
}

func productRoutes(catalog services.CatalogService, reviews services.ReviewService) http.Handler {
	guards := testGuards()
	return mountRoutes("/api/products",
		NewProductHandlers(guards, catalog).Routes,
		NewReviewHandlers(guards, reviews).Routes,
	)
}

func TestProductHandlers_ListTreatsAllAsNoFilter(t *testing.T) {
	var filters []services.ProductListFilter
	catalog := &stubCatalogService{
		listFn: func(_ context.Context, f services.ProductListFilter) ([]services.Product, error) {
			filters = append(filters, f)
			return []services.Product{{ID: "p1", Name: "Walker", CountInStock: 0}}, nil
		},
	}
	routes := productRoutes(catalog, &stubReviewService{})

	rr := doRequest(t, routes, http.MethodGet, "/api/products?category=All&search=walk", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, routes, http.MethodGet, "/api/products?category=Mobility", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, filters, 2)
	assert.Equal(t, services.ProductListFilter{Search: "walk"}, filters[0])
	assert.Equal(t, "Mobility", filters[1].Category)

	products := decodeBody[[]productPayload](t, rr)
	require.Len(t, products, 1)
	assert.False(t, products[0].InStock)
	assert.NotNil(t, products[0].Reviews)
}

func TestProductHandlers_GetNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getFn: func(context.Context, string) (services.Product, error) {
			return services.Product{}, services.ErrCatalogProductNotFound
		},
	}
	rr := doRequest(t, productRoutes(catalog, &stubReviewService{}), http.MethodGet, "/api/products/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "product_not_found", decodeBody[errorBody](t, rr).Error)
}

func TestProductHandlers_AdminMutations(t *testing.T) {
	var deleted string
	catalog := &stubCatalogService{
		createFn: func(_ context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			assert.True(t, cmd.Actor.IsAdmin)
			assert.Equal(t, int64(1999), cmd.Price)
			return services.Product{ID: "p2", Name: cmd.Name, Price: cmd.Price}, nil
		},
		updateFn: func(_ context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
			require.NotNil(t, cmd.Price)
			assert.Equal(t, int64(2499), *cmd.Price)
			assert.Nil(t, cmd.Name)
			return services.Product{ID: cmd.ProductID, Price: *cmd.Price}, nil
		},
		deleteFn: func(_ context.Context, cmd services.DeleteProductCommand) error {
			deleted = cmd.ProductID
			return nil
		},
	}
	routes := productRoutes(catalog, &stubReviewService{})

	rr := doRequest(t, routes, http.MethodPost, "/api/products", "user-u1", `{"name":"Cane","price":19.99}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, routes, http.MethodPost, "/api/products", "admin-a1", `{"name":"Cane","price":19.99}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"price":19.99`)

	rr = doRequest(t, routes, http.MethodPut, "/api/products/p2", "admin-a1", `{"price":24.99}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, amount(2499), decodeBody[productPayload](t, rr).Price)

	rr = doRequest(t, routes, http.MethodDelete, "/api/products/p2", "admin-a1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "p2", deleted)
	assert.Equal(t, "Product removed", decodeBody[map[string]string](t, rr)["message"])
}

func TestReviewHandlers_AddDuplicateIsBadRequest(t *testing.T) {
	reviews := &stubReviewService{
		addFn: func(_ context.Context, cmd services.AddReviewCommand) (services.Product, error) {
			assert.Equal(t, "p1", cmd.ProductID)
			assert.Equal(t, "u1", cmd.Actor.UserID)
			return services.Product{}, services.ErrReviewDuplicate
		},
	}
	rr := doRequest(t, productRoutes(&stubCatalogService{}, reviews), http.MethodPost, "/api/products/p1/reviews", "user-u1", `{"rating":5,"comment":"great"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "review_exists", decodeBody[errorBody](t, rr).Error)
}

func TestReviewHandlers_AddReturnsRecomputedProduct(t *testing.T) {
	reviews := &stubReviewService{
		addFn: func(_ context.Context, cmd services.AddReviewCommand) (services.Product, error) {
			return services.Product{
				ID:         cmd.ProductID,
				Reviews:    []services.Review{{ID: "rev_1", UserID: "u1", Rating: cmd.Rating, Comment: cmd.Comment}},
				Rating:     4,
				NumReviews: 1,
			}, nil
		},
	}
	rr := doRequest(t, productRoutes(&stubCatalogService{}, reviews), http.MethodPost, "/api/products/p1/reviews", "user-u1", `{"rating":4,"comment":"solid"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	product := decodeBody[productPayload](t, rr)
	assert.Equal(t, 1, product.NumReviews)
	assert.InDelta(t, 4.0, product.Rating, 0.001)
}

func TestReviewHandlers_RemoveByOtherUserIsForbidden(t *testing.T) {
	reviews := &stubReviewService{
		removeFn: func(_ context.Context, cmd services.RemoveReviewCommand) (services.Product, error) {
			assert.Equal(t, "rev_1", cmd.ReviewID)
			return services.Product{}, services.ErrReviewNotAuthorized
		},
	}
	rr := doRequest(t, productRoutes(&stubCatalogService{}, reviews), http.MethodDelete, "/api/products/p1/reviews/rev_1", "user-u2", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestReviewHandlers_ListTopLimit(t *testing.T) {
	var limits []int
	reviews := &stubReviewService{
		listTopFn: func(_ context.Context, limit int) ([]services.ReviewFeedItem, error) {
			limits = append(limits, limit)
			return []services.ReviewFeedItem{{Review: services.Review{ID: "rev_1", Rating: 5}, ProductID: "p1", ProductName: "Walker"}}, nil
		},
	}
	routes := productRoutes(&stubCatalogService{}, reviews)

	rr := doRequest(t, routes, http.MethodGet, "/api/products/reviews/top", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	feed := decodeBody[[]reviewFeedPayload](t, rr)
	require.Len(t, feed, 1)
	assert.Equal(t, "Walker", feed[0].Product.Name)

	rr = doRequest(t, routes, http.MethodGet, "/api/products/reviews/top?limit=3", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, routes, http.MethodGet, "/api/products/reviews/top?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, []int{0, 3}, limits)
}

func TestReviewHandlers_ListAllIsAdminOnly(t *testing.T) {
	reviews := &stubReviewService{
		listAllFn: func(context.Context, services.Actor) ([]services.ReviewFeedItem, error) {
			return nil, nil
		},
	}
	routes := productRoutes(&stubCatalogService{}, reviews)

	rr := doRequest(t, routes, http.MethodGet, "/api/products/reviews/all", "user-u1", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doRequest(t, routes, http.MethodGet, "/api/products/reviews/all", "admin-a1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String()[:2])
}
