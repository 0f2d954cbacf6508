package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhirana780/medical-backend/internal/bootstrap"
	"github.com/abhirana780/medical-backend/internal/platform/auth"
	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/platform/requestctx"
)

type catalogSeeder interface {
	Run(ctx context.Context) (bootstrap.Result, error)
}

type idempotencyCleaner interface {
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// MaintenanceHandlers serves the scheduler-driven jobs under /internal/maintenance. The
// router places them behind OIDC verification.
type MaintenanceHandlers struct {
	seeder    catalogSeeder
	cleaner   idempotencyCleaner
	batchSize int
	clock     func() time.Time
}

type MaintenanceOption func(*MaintenanceHandlers)

func WithCatalogSeeder(seeder catalogSeeder) MaintenanceOption {
	return func(h *MaintenanceHandlers) {
		h.seeder = seeder
	}
}

func WithIdempotencyCleaner(cleaner idempotencyCleaner, batchSize int) MaintenanceOption {
	return func(h *MaintenanceHandlers) {
		h.cleaner = cleaner
		if batchSize > 0 {
			h.batchSize = batchSize
		}
	}
}

func WithMaintenanceClock(clock func() time.Time) MaintenanceOption {
	return func(h *MaintenanceHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

func NewMaintenanceHandlers(opts ...MaintenanceOption) *MaintenanceHandlers {
	h := &MaintenanceHandlers{batchSize: 500, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *MaintenanceHandlers) Routes(r chi.Router) {
	r.Route("/maintenance", func(r chi.Router) {
		r.Post("/bootstrap", h.bootstrap)
		r.Post("/idempotency-cleanup", h.cleanupIdempotency)
	})
}

type cleanupResponse struct {
	Removed int `json:"removed"`
}

func (h *MaintenanceHandlers) bootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.seeder == nil {
		httpx.WriteError(ctx, w, httpx.NewError("not_configured", "catalog bootstrap is disabled", http.StatusServiceUnavailable))
		return
	}
	result, err := h.seeder.Run(ctx)
	if err != nil {
		requestctx.Logger(ctx).Error("catalog bootstrap failed", zap.Error(err), zap.String("caller", serviceCaller(r)))
		httpx.WriteError(ctx, w, httpx.Internal())
		return
	}
	requestctx.Logger(ctx).Info("catalog bootstrap finished",
		zap.Int64("existing", result.Existing),
		zap.Int("seeded", result.Seeded),
		zap.String("source", result.Source),
		zap.String("caller", serviceCaller(r)),
	)
	httpx.WriteJSON(w, http.StatusOK, result)
}

// cleanupIdempotency removes expired idempotency records. ?limit= overrides the configured batch size.
func (h *MaintenanceHandlers) cleanupIdempotency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cleaner == nil {
		httpx.WriteJSON(w, http.StatusOK, cleanupResponse{})
		return
	}
	limit := h.batchSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(ctx, w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	removed, err := h.cleaner.CleanupExpired(ctx, h.clock().UTC(), limit)
	if err != nil {
		requestctx.Logger(ctx).Error("idempotency cleanup failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Internal())
		return
	}
	requestctx.Logger(ctx).Info("idempotency cleanup finished", zap.Int("removed", removed), zap.String("caller", serviceCaller(r)))
	httpx.WriteJSON(w, http.StatusOK, cleanupResponse{Removed: removed})
}

func serviceCaller(r *http.Request) string {
	if svc, ok := auth.ServiceIdentityFromContext(r.Context()); ok && svc != nil {
		if svc.Email != "" {
			return svc.Email
		}
		return svc.Subject
	}
	return ""
}
