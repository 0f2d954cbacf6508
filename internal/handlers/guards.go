package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhirana780/medical-backend/internal/platform/auth"
	"github.com/abhirana780/medical-backend/internal/services"
)

// Guards holds the middleware shared by every authenticated route group. Idempotency runs
// after authentication so replayed responses are scoped to the caller.
type Guards struct {
	Authn       *auth.Authenticator
	Idempotency func(http.Handler) http.Handler
}

// User mounts routes that need a signed-in customer.
func (g Guards) User(r chi.Router, routes func(r chi.Router)) {
	r.Group(func(r chi.Router) {
		if g.Authn != nil {
			r.Use(g.Authn.RequireFirebaseAuth())
		}
		if g.Idempotency != nil {
			r.Use(g.Idempotency)
		}
		routes(r)
	})
}

// Admin mounts routes restricted to the admin role.
func (g Guards) Admin(r chi.Router, routes func(r chi.Router)) {
	r.Group(func(r chi.Router) {
		if g.Authn != nil {
			r.Use(g.Authn.RequireFirebaseAuth(auth.RoleAdmin))
		}
		if g.Idempotency != nil {
			r.Use(g.Idempotency)
		}
		routes(r)
	})
}

// actorFromRequest converts the verified identity into a service actor.
func actorFromRequest(r *http.Request) (services.Actor, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:  strings.TrimSpace(identity.UID),
		Email:   strings.TrimSpace(identity.Email),
		Name:    strings.TrimSpace(identity.Name),
		IsAdmin: identity.IsAdmin(),
	}, true
}

func urlParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
