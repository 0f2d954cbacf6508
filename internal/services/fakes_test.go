package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	domain "github.com/abhirana780/medical-backend/internal/domain"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

type testRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *testRepoError) Error() string       { return e.msg }
func (e *testRepoError) IsNotFound() bool    { return e.notFound }
func (e *testRepoError) IsConflict() bool    { return e.conflict }
func (e *testRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr(what string) error {
	return &testRepoError{msg: what + " not found", notFound: true}
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
	finds    []string
	inserts  int
	findErr  error
}

func newMemProductRepo(products ...domain.Product) *memProductRepo {
	repo := &memProductRepo{products: map[string]domain.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memProductRepo) Insert(_ context.Context, product domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; ok {
		return domain.Product{}, &testRepoError{msg: "exists", conflict: true}
	}
	product.UpdatedAt = product.CreatedAt
	r.products[product.ID] = product
	r.inserts++
	return product, nil
}

func (r *memProductRepo) Mutate(_ context.Context, productID string, fn repositories.ProductMutation) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.products[productID]
	if !ok {
		return domain.Product{}, notFoundErr("product " + productID)
	}
	working := current
	working.Reviews = slices.Clone(current.Reviews)
	if err := fn(&working); err != nil {
		return domain.Product{}, err
	}
	r.products[productID] = working
	return working, nil
}

func (r *memProductRepo) Delete(_ context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return notFoundErr("product " + productID)
	}
	delete(r.products, productID)
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, productID string) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds = append(r.finds, productID)
	if r.findErr != nil {
		return domain.Product{}, r.findErr
	}
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, notFoundErr("product " + productID)
	}
	return product, nil
}

func (r *memProductRepo) List(_ context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.products {
		if filter.Category != "" && filter.Category != domain.CategoryAll && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *memProductRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.products)), nil
}

func (r *memProductRepo) UpsertMany(_ context.Context, products []domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.ID] = p
	}
	return nil
}

type memOrderRepo struct {
	orders    map[string]domain.Order
	inserted  []domain.Order
	insertErr error
	mutateErr error
}

func newMemOrderRepo(orders ...domain.Order) *memOrderRepo {
	repo := &memOrderRepo{orders: map[string]domain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *memOrderRepo) Insert(_ context.Context, order domain.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.orders[order.ID] = order
	r.inserted = append(r.inserted, order)
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFoundErr("order " + orderID)
	}
	return order, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (r *memOrderRepo) ListAll(context.Context) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (r *memOrderRepo) Mutate(_ context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	if r.mutateErr != nil {
		return domain.Order{}, r.mutateErr
	}
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFoundErr("order " + orderID)
	}
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	r.orders[orderID] = order
	return order, nil
}

func sortOrdersNewestFirst(orders []domain.Order) {
	slices.SortFunc(orders, func(a, b domain.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
}

type memUserRepo struct {
	users   map[string]domain.UserProfile
	seeds   []domain.UserProfile
	findErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]domain.UserProfile{}}
}

func (r *memUserRepo) FindByID(_ context.Context, userID string) (domain.UserProfile, error) {
	if r.findErr != nil {
		return domain.UserProfile{}, r.findErr
	}
	profile, ok := r.users[userID]
	if !ok {
		return domain.UserProfile{}, notFoundErr("user " + userID)
	}
	return profile, nil
}

func (r *memUserRepo) Mutate(_ context.Context, seed domain.UserProfile, fn repositories.UserMutation) (domain.UserProfile, error) {
	profile, ok := r.users[seed.ID]
	if !ok {
		profile = seed
		r.seeds = append(r.seeds, seed)
	}
	profile.Wishlist = slices.Clone(profile.Wishlist)
	profile.Addresses = slices.Clone(profile.Addresses)
	if err := fn(&profile); err != nil {
		return domain.UserProfile{}, err
	}
	r.users[seed.ID] = profile
	return profile, nil
}

func (r *memUserRepo) Count(context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type memCouponRepo struct {
	coupons map[string]domain.Coupon
}

func newMemCouponRepo(coupons ...domain.Coupon) *memCouponRepo {
	repo := &memCouponRepo{coupons: map[string]domain.Coupon{}}
	for _, c := range coupons {
		repo.coupons[c.ID] = c
	}
	return repo
}

func (r *memCouponRepo) Create(_ context.Context, coupon domain.Coupon) error {
	for _, existing := range r.coupons {
		if existing.Code == coupon.Code {
			return &testRepoError{msg: fmt.Sprintf("coupon %s exists", coupon.Code), conflict: true}
		}
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *memCouponRepo) FindByCode(_ context.Context, code string) (domain.Coupon, error) {
	for _, c := range r.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return domain.Coupon{}, notFoundErr("coupon " + code)
}

func (r *memCouponRepo) List(context.Context) ([]domain.Coupon, error) {
	out := make([]domain.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Coupon) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *memCouponRepo) Delete(_ context.Context, couponID string) error {
	if _, ok := r.coupons[couponID]; !ok {
		return notFoundErr("coupon " + couponID)
	}
	delete(r.coupons, couponID)
	return nil
}

type captureOrderEvents struct {
	events []OrderEvent
	err    error
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return c.err
}

type captureReviewEvents struct {
	events []ReviewEvent
}

func (c *captureReviewEvents) PublishReviewEvent(_ context.Context, event ReviewEvent) error {
	c.events = append(c.events, event)
	return nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}

var (
	_ repositories.ProductRepository = (*memProductRepo)(nil)
	_ repositories.OrderRepository   = (*memOrderRepo)(nil)
	_ repositories.UserRepository    = (*memUserRepo)(nil)
	_ repositories.CouponRepository  = (*memCouponRepo)(nil)
)
