package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
)

// RouteRegistrar mounts one handler set onto its group.
type RouteRegistrar func(r chi.Router)

const (
	apiPrefix      = "/api"
	requestTimeout = 60 * time.Second
)

// routeGroup is a mount point under /api (or /internal) and the handler sets that fill it.
type routeGroup struct {
	path        string
	middlewares []func(http.Handler) http.Handler
	registrars  []RouteRegistrar
}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	api         map[string]*routeGroup
	internal    routeGroup
}

type Option func(*routerConfig)

// storefrontGroups lists the /api mounts in registration order.
var storefrontGroups = []string{"products", "orders", "users", "coupons", "payment", "analytics"}

// NewRouter builds the HTTP surface: health endpoints at the root, the storefront under /api and
// the scheduler endpoints under /internal. A group nobody registered answers 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(requestTimeout),
		},
		api:      make(map[string]*routeGroup, len(storefrontGroups)),
		internal: routeGroup{path: "/internal"},
	}
	for _, name := range storefrontGroups {
		cfg.api[name] = &routeGroup{path: "/" + name}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", "no route for "+req.URL.Path, http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", req.Method+" is not allowed on "+req.URL.Path, http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, name := range storefrontGroups {
			cfg.api[name].mount(api, name)
		}
	})
	cfg.internal.mount(r, "internal")
	return r
}

func (g *routeGroup) mount(parent chi.Router, name string) {
	parent.Route(g.path, func(group chi.Router) {
		for _, mw := range g.middlewares {
			if mw != nil {
				group.Use(mw)
			}
		}
		mounted := false
		for _, register := range g.registrars {
			if register != nil {
				register(group)
				mounted = true
			}
		}
		if !mounted {
			notImplemented := func(w http.ResponseWriter, req *http.Request) {
				httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", name+" routes not implemented", http.StatusNotImplemented))
			}
			group.HandleFunc("/", notImplemented)
			group.HandleFunc("/*", notImplemented)
		}
	})
}

func withGroup(name string, regs ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.api[name].registrars = append(cfg.api[name].registrars, regs...)
	}
}

// WithMiddlewares appends global middleware after request id, real ip and the timeout.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithProductRoutes may be given several registrars: catalog and reviews share /products.
func WithProductRoutes(regs ...RouteRegistrar) Option { return withGroup("products", regs...) }

func WithOrderRoutes(reg RouteRegistrar) Option { return withGroup("orders", reg) }

func WithUserRoutes(reg RouteRegistrar) Option { return withGroup("users", reg) }

func WithCouponRoutes(reg RouteRegistrar) Option { return withGroup("coupons", reg) }

func WithPaymentRoutes(reg RouteRegistrar) Option { return withGroup("payment", reg) }

func WithAnalyticsRoutes(reg RouteRegistrar) Option { return withGroup("analytics", reg) }

func WithInternalRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.internal.registrars = append(cfg.internal.registrars, reg)
	}
}

// WithInternalMiddlewares guards every /internal route, typically with OIDC verification.
func WithInternalMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.internal.middlewares = append(cfg.internal.middlewares, mw...)
	}
}
