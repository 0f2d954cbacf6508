package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const iapAssertionHeader = "X-Goog-Iap-Jwt-Assertion"

// MetricsRecorder receives one call per verification attempt.
type MetricsRecorder interface {
	RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration)
}

type MetricsRecorderFunc func(context.Context, string, bool, string, time.Duration)

func (f MetricsRecorderFunc) RecordVerification(ctx context.Context, kind string, success bool, reason string, duration time.Duration) {
	if f != nil {
		f(ctx, kind, success, reason, duration)
	}
}

// ServiceIdentity is the scheduler or operator account that called a maintenance endpoint.
type ServiceIdentity struct {
	Subject  string
	Email    string
	Issuer   string
	Audience string
}

type serviceIdentityKey struct{}

func WithServiceIdentity(ctx context.Context, identity *ServiceIdentity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, serviceIdentityKey{}, identity)
}

func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	identity, ok := ctx.Value(serviceIdentityKey{}).(*ServiceIdentity)
	return identity, ok && identity != nil
}

// OIDCValidator checks Google-signed ID tokens on the /internal routes.
type OIDCValidator struct {
	keys    *JWKSCache
	logger  *zap.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

type OIDCOption func(*OIDCValidator)

func WithOIDCLogger(logger *zap.Logger) OIDCOption {
	return func(v *OIDCValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

func WithOIDCMetrics(recorder MetricsRecorder) OIDCOption {
	return func(v *OIDCValidator) {
		v.metrics = recorder
	}
}

func WithOIDCClock(now func() time.Time) OIDCOption {
	return func(v *OIDCValidator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewOIDCValidator(keys *JWKSCache, opts ...OIDCOption) *OIDCValidator {
	v := &OIDCValidator{keys: keys, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// oidcRejection is a failed verification: the reason goes to metrics and logs, the
// status and message to the caller.
type oidcRejection struct {
	status  int
	code    string
	reason  string
	message string
	err     error
}

// RequireOIDC admits requests bearing a token for audience signed by one of issuers.
// The token is read from the Authorization header, or from the IAP assertion header
// when the service sits behind Identity-Aware Proxy. An empty issuer list accepts any
// issuer whose keys the JWKS endpoint publishes.
func (v *OIDCValidator) RequireOIDC(audience string, issuers []string) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	trusted := make(map[string]bool, len(issuers))
	for _, issuer := range issuers {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			trusted[issuer] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			started := v.now()

			identity, rejection := v.verify(ctx, r, audience, trusted)
			if rejection != nil {
				if rejection.err != nil || rejection.reason != "token_missing" {
					v.logger.Warn("oidc verification rejected",
						zap.String("reason", rejection.reason),
						zap.String("path", r.URL.Path),
						zap.Error(rejection.err),
					)
				}
				v.record(ctx, false, rejection.reason, started)
				respondAuthError(w, rejection.status, rejection.code, rejection.message)
				return
			}

			v.record(ctx, true, "ok", started)
			next.ServeHTTP(w, r.WithContext(WithServiceIdentity(ctx, identity)))
		})
	}
}

func (v *OIDCValidator) verify(ctx context.Context, r *http.Request, audience string, trusted map[string]bool) (*ServiceIdentity, *oidcRejection) {
	if audience == "" || v.keys == nil {
		return nil, &oidcRejection{status: http.StatusServiceUnavailable, code: "verification_unavailable", reason: "not_configured", message: "oidc verification not configured"}
	}

	raw := oidcToken(r)
	if raw == "" {
		return nil, &oidcRejection{status: http.StatusUnauthorized, code: "unauthenticated", reason: "token_missing", message: "oidc token missing"}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if _, err := parser.ParseWithClaims(raw, claims, v.keys.Keyfunc(ctx)); err != nil {
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, &oidcRejection{status: http.StatusServiceUnavailable, code: "invalid_token", reason: "jwks_unavailable", message: "oidc token verification failed", err: err}
		}
		return nil, &oidcRejection{status: http.StatusUnauthorized, code: "invalid_token", reason: "token_invalid", message: "oidc token verification failed", err: err}
	}

	issuer, _ := claims["iss"].(string)
	if len(trusted) > 0 && !trusted[issuer] {
		return nil, &oidcRejection{status: http.StatusUnauthorized, code: "invalid_token", reason: "issuer_mismatch", message: "oidc issuer mismatch"}
	}
	if !claims.VerifyAudience(audience, true) {
		return nil, &oidcRejection{status: http.StatusUnauthorized, code: "invalid_token", reason: "audience_mismatch", message: "oidc audience mismatch"}
	}

	return &ServiceIdentity{
		Subject:  stringClaim(claims, "sub"),
		Email:    stringClaim(claims, "email"),
		Issuer:   issuer,
		Audience: audience,
	}, nil
}

func (v *OIDCValidator) record(ctx context.Context, success bool, reason string, started time.Time) {
	if v.metrics != nil {
		v.metrics.RecordVerification(ctx, "oidc", success, reason, v.now().Sub(started))
	}
}

func oidcToken(r *http.Request) string {
	if token, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return strings.TrimSpace(r.Header.Get(iapAssertionHeader))
}
