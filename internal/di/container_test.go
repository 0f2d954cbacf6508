package di

import (
	"context"
	"testing"

	"github.com/abhirana780/medical-backend/internal/platform/config"
	"github.com/abhirana780/medical-backend/internal/repositories"
)

type healthOnlyRegistry struct {
	health repositories.HealthRepository
	closed bool
}

func (r *healthOnlyRegistry) Close(context.Context) error {
	r.closed = true
	return nil
}

func (r *healthOnlyRegistry) Products() repositories.ProductRepository    { return nil }
func (r *healthOnlyRegistry) Orders() repositories.OrderRepository        { return nil }
func (r *healthOnlyRegistry) Users() repositories.UserRepository          { return nil }
func (r *healthOnlyRegistry) Coupons() repositories.CouponRepository      { return nil }
func (r *healthOnlyRegistry) Analytics() repositories.AnalyticsRepository { return nil }
func (r *healthOnlyRegistry) Health() repositories.HealthRepository       { return r.health }

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(config.Config{}, nil, Infrastructure{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestNewContainerSkipsUnconfiguredServices(t *testing.T) {
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  "firestore",
		Check: func(context.Context) error { return nil },
	}})
	if err != nil {
		t.Fatalf("health repository: %v", err)
	}
	reg := &healthOnlyRegistry{health: health}

	c, err := NewContainer(config.Config{}, reg, Infrastructure{})
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if c.Services.System == nil {
		t.Fatal("expected system service to be built")
	}
	if c.Services.Catalog != nil || c.Services.Orders != nil || c.Services.Payments != nil {
		t.Fatalf("expected repository-backed services to be skipped, got %+v", c.Services)
	}
	if err := c.Close(context.Background()); err != nil || !reg.closed {
		t.Fatalf("expected registry to close, err=%v", err)
	}
}
