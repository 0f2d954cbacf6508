package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/abhirana780/medical-backend/internal/payments"
	"github.com/abhirana780/medical-backend/internal/platform/config"
	"github.com/abhirana780/medical-backend/internal/platform/textutil"
	"github.com/abhirana780/medical-backend/internal/repositories"
	"github.com/abhirana780/medical-backend/internal/services"
)

// EventPublisher receives order and review events. jobs.NoopEventPublisher satisfies it.
type EventPublisher interface {
	services.OrderEventPublisher
	services.ReviewEventPublisher
}

// Services bundles the service-layer contracts that handlers rely upon. A nil entry means the
// backing dependency was not configured; the router answers 501 for that group.
type Services struct {
	Catalog   services.CatalogService
	Orders    services.OrderService
	Reviews   services.ReviewService
	Users     services.UserService
	Coupons   services.CouponService
	Payments  services.PaymentService
	Analytics services.AnalyticsService
	System    services.SystemService
}

// Infrastructure carries the process-level collaborators built in main.
type Infrastructure struct {
	Payments *payments.Manager
	Events   EventPublisher
	Meter    metric.Meter
	Logger   func(ctx context.Context, event string, fields map[string]any)
	Build    services.BuildInfo
	Clock    func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

func NewContainer(cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	svc, err := buildServices(cfg, reg, infra)
	if err != nil {
		return nil, err
	}
	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, infra Infrastructure) (Services, error) {
	var svc Services
	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}

	products := reg.Products()
	if products != nil {
		catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
			Products:  products,
			Clock:     clock,
			Sanitizer: textutil.PlainText,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalog

		reviews, err := services.NewReviewService(services.ReviewServiceDeps{
			Products:  products,
			Clock:     clock,
			Sanitizer: textutil.PlainText,
			Events:    infra.Events,
			Logger:    infra.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build review service: %w", err)
		}
		svc.Reviews = reviews
	}

	if ordersRepo := reg.Orders(); ordersRepo != nil && products != nil {
		pricer, err := services.NewOrderPricingEngine(services.OrderPricingEngineDeps{Products: products})
		if err != nil {
			return Services{}, fmt.Errorf("build pricing engine: %w", err)
		}
		orders, err := services.NewOrderService(services.OrderServiceDeps{
			Orders: ordersRepo,
			Pricer: pricer,
			Clock:  clock,
			Events: infra.Events,
			Meter:  infra.Meter,
			Logger: infra.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orders

		if infra.Payments != nil {
			paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
				Orders:          ordersRepo,
				Payments:        infra.Payments,
				PublishableKey:  cfg.PSP.StripePublishableKey,
				DefaultCurrency: cfg.PSP.DefaultCurrency,
				Logger:          infra.Logger,
			})
			if err != nil {
				return Services{}, fmt.Errorf("build payment service: %w", err)
			}
			svc.Payments = paymentSvc
		}
	}

	if usersRepo := reg.Users(); usersRepo != nil && products != nil {
		users, err := services.NewUserService(services.UserServiceDeps{
			Users:    usersRepo,
			Products: products,
			Logger:   infra.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build user service: %w", err)
		}
		svc.Users = users
	}

	if couponsRepo := reg.Coupons(); couponsRepo != nil {
		coupons, err := services.NewCouponService(services.CouponServiceDeps{
			Coupons: couponsRepo,
			Clock:   clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build coupon service: %w", err)
		}
		svc.Coupons = coupons
	}

	if analyticsRepo := reg.Analytics(); analyticsRepo != nil {
		analytics, err := services.NewAnalyticsService(services.AnalyticsServiceDeps{
			Analytics: analyticsRepo,
			Clock:     clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build analytics service: %w", err)
		}
		svc.Analytics = analytics
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		system, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            infra.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = system
	}

	return svc, nil
}
