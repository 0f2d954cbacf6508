package repositories

import (
	"context"

	domain "github.com/abhirana780/medical-backend/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	Users() UserRepository
	Coupons() CouponRepository
	Analytics() AnalyticsRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductMutation mutates a product loaded inside a transaction. Returning an
// error aborts the transaction and the error is returned to the caller as is.
type ProductMutation func(product *domain.Product) error

// ProductRepository persists catalog entries together with their embedded reviews.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	Mutate(ctx context.Context, productID string, fn ProductMutation) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	Count(ctx context.Context) (int64, error)
	UpsertMany(ctx context.Context, products []domain.Product) error
}

// ProductListFilter narrows catalog listings. Empty fields do not filter.
type ProductListFilter struct {
	Category string
	Search   string
}

// OrderMutation mutates an order loaded inside a transaction.
type OrderMutation func(order *domain.Order) error

// OrderRepository persists orders and provides owner and admin listings, newest first.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	Mutate(ctx context.Context, orderID string, fn OrderMutation) (domain.Order, error)
}

// UserMutation mutates a user profile loaded inside a transaction.
type UserMutation func(profile *domain.UserProfile) error

// UserRepository persists per-user storefront state. Mutate creates the document
// from seed when it does not exist yet.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	Mutate(ctx context.Context, seed domain.UserProfile, fn UserMutation) (domain.UserProfile, error)
	Count(ctx context.Context) (int64, error)
}

// CouponRepository persists discount codes. Create reports a conflict when the code is taken.
type CouponRepository interface {
	Create(ctx context.Context, coupon domain.Coupon) error
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Delete(ctx context.Context, couponID string) error
}

// DashboardQuery tunes the admin dashboard aggregation.
type DashboardQuery struct {
	RecentOrders      int
	LowStockThreshold int
	LowStockProducts  int
}

// AnalyticsRepository computes store-wide aggregates.
type AnalyticsRepository interface {
	Dashboard(ctx context.Context, query DashboardQuery) (domain.DashboardStats, error)
}

// HealthRepository exposes dependency checks for readiness endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
