package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/httpx"
	"github.com/abhirana780/medical-backend/internal/services"
)

type AnalyticsHandlers struct {
	guards    Guards
	analytics services.AnalyticsService
}

func NewAnalyticsHandlers(guards Guards, analytics services.AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{guards: guards, analytics: analytics}
}

func (h *AnalyticsHandlers) Routes(r chi.Router) {
	h.guards.Admin(r, func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
	})
}

func (h *AnalyticsHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromRequest(r)
	if !ok {
		writeUnauthenticated(ctx, w)
		return
	}
	stats, err := h.analytics.Dashboard(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildDashboardPayload(stats))
}
