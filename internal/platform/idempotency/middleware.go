package idempotency

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhirana780/medical-backend/internal/platform/auth"
	"github.com/abhirana780/medical-backend/internal/platform/httpx"
)

const (
	DefaultHeader = "Idempotency-Key"
	ReplayHeader  = "X-Idempotent-Replay"
	maxKeyLength  = 255
)

type guard struct {
	store    Store
	header   string
	ttl      time.Duration
	methods  map[string]bool
	now      func() time.Time
	logger   *zap.Logger
	required bool
}

type MiddlewareOption func(*guard)

func WithHeader(name string) MiddlewareOption {
	return func(g *guard) {
		if name = strings.TrimSpace(name); name != "" {
			g.header = name
		}
	}
}

// WithTTL sets how long a completed response is replayed.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(g *guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMethods replaces the guarded methods. The default is POST, PUT, PATCH and DELETE.
func WithMethods(methods ...string) MiddlewareOption {
	return func(g *guard) {
		set := map[string]bool{}
		for _, m := range methods {
			if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
				set[m] = true
			}
		}
		if len(set) > 0 {
			g.methods = set
		}
	}
}

func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(g *guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) MiddlewareOption {
	return func(g *guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// RequireKey answers 400 to guarded requests without the header.
func RequireKey() MiddlewareOption {
	return func(g *guard) {
		g.required = true
	}
}

// Middleware deduplicates retried mutations. The key is scoped to the caller (Firebase
// uid, scheduler subject or "anonymous") and bound to a fingerprint of method, path,
// query, content type and body. A retry with a different body is a 409. A 5xx outcome
// is not stored, so the client may retry under the same key.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	g := &guard{
		store:  store,
		header: DefaultHeader,
		ttl:    DefaultTTL,
		methods: map[string]bool{
			http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
		},
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next)
		})
	}
}

func (g *guard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if !g.methods[r.Method] {
		next.ServeHTTP(w, r)
		return
	}
	ctx := r.Context()

	key := strings.TrimSpace(r.Header.Get(g.header))
	switch {
	case key == "" && !g.required:
		next.ServeHTTP(w, r)
		return
	case key == "":
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_required", g.header+" header is required", http.StatusBadRequest))
		return
	case len(key) > maxKeyLength:
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_invalid", "idempotency key is too long", http.StatusBadRequest))
		return
	}

	body, err := bufferBody(w, r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}

	caller := requester(ctx)
	scoped := key + "|" + caller
	fingerprint := fingerprintOf(r, body, caller)
	log := g.logger.With(zap.String("idempotency_key", key), zap.String("requester", caller))

	res, err := g.store.Reserve(ctx, scoped, fingerprint, g.now().UTC(), g.ttl)
	switch {
	case errors.Is(err, ErrFingerprintMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_conflict", "idempotency key already used for a different request", http.StatusConflict))
		return
	case err != nil:
		log.Error("idempotency reserve failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_unavailable", "unable to process idempotency key", http.StatusServiceUnavailable))
		return
	case res.State == ReservationStateCompleted:
		replay(w, res.Record)
		return
	case res.State == ReservationStatePending:
		httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request is processing this idempotency key", http.StatusConflict))
		return
	}

	buf := &bufferedResponse{header: http.Header{}}
	next.ServeHTTP(buf, r)
	g.finish(ctx, log, scoped, fingerprint, buf)

	if err := buf.copyTo(w); err != nil {
		log.Warn("idempotency response write failed", zap.Error(err))
	}
}

// finish stores a 2xx-4xx outcome for replay, or frees the key after a 5xx.
func (g *guard) finish(ctx context.Context, log *zap.Logger, scoped, fingerprint string, buf *bufferedResponse) {
	if buf.code() < http.StatusInternalServerError {
		resp := Response{Status: buf.code(), Headers: buf.header, Body: buf.body.Bytes()}
		err := g.store.SaveResponse(ctx, scoped, fingerprint, resp, g.now().UTC(), g.ttl)
		if err == nil {
			return
		}
		log.Error("idempotency save failed", zap.Error(err))
	}
	if err := g.store.Release(ctx, scoped, fingerprint); err != nil {
		log.Warn("idempotency release failed", zap.Error(err))
	}
}

func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func fingerprintOf(r *http.Request, body []byte, caller string) string {
	return sha256Hex([]byte(strings.Join([]string{
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
		r.Header.Get("Content-Type"),
		caller,
		sha256Hex(body),
	}, "|")))
}

func requester(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.UID != "" {
		return identity.UID
	}
	if svc, ok := auth.ServiceIdentityFromContext(ctx); ok && svc.Subject != "" {
		return "svc:" + svc.Subject
	}
	return "anonymous"
}

func replay(w http.ResponseWriter, record Record) {
	for name, values := range record.ResponseHeaders {
		w.Header()[name] = append([]string(nil), values...)
	}
	w.Header().Set(ReplayHeader, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

// bufferedResponse holds the handler output until the outcome has been recorded.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.WriteHeader(http.StatusOK)
	return b.body.Write(p)
}

func (b *bufferedResponse) code() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedResponse) copyTo(w http.ResponseWriter) error {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	w.WriteHeader(b.code())
	if b.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(b.body.Bytes())
	return err
}
