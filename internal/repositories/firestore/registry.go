package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

// Registry wires every Firestore repository against a shared provider.
type Registry struct {
	provider  *pfirestore.Provider
	products  *ProductRepository
	orders    *OrderRepository
	users     *UserRepository
	coupons   *CouponRepository
	analytics *AnalyticsRepository
	health    repositories.HealthRepository
}

// NewRegistry builds all repositories. health may be nil when readiness checks are not wired.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	reg := &Registry{provider: provider, health: health}

	var err error
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}
	if reg.users, err = NewUserRepository(provider); err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	if reg.coupons, err = NewCouponRepository(provider); err != nil {
		return nil, fmt.Errorf("coupons: %w", err)
	}
	if reg.analytics, err = NewAnalyticsRepository(provider); err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return reg, nil
}

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Products() repositories.ProductRepository { return r.products }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Users() repositories.UserRepository { return r.users }

func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

func (r *Registry) Analytics() repositories.AnalyticsRepository { return r.analytics }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
