package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhirana780/medical-backend/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	require.True(t, ok)
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", sc.TraceID().String())
	assert.Equal(t, "0000000000000001", sc.SpanID().String())
	assert.True(t, sc.IsSampled())
	assert.Equal(t, "105445aa7843bc8bf206b12000100000/1;o=1", formatCloudTraceContext(sc))

	for _, header := range []string{"", "abc", "105445aa7843bc8bf206b12000100000/0", "nothex/12", "105445aa7843bc8bf206b12000100000/ff"} {
		_, ok := parseCloudTraceContext(header)
		assert.False(t, ok, header)
	}
}

func TestTraceMiddlewareStoresTraceInfo(t *testing.T) {
	var info requestctx.TraceInfo
	handler := TraceMiddleware("medical-prod")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/7;o=0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "medical-prod", info.ProjectID)
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", info.TraceID)
}

func TestRecoveryMiddlewareWritesEnvelope(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"internal_error"`)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestRequestLoggerMiddlewareLogsCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(RequestLoggerMiddleware()(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/x", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusNotFound, entries[0].ContextMap()["status"])
}

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	log := EventLogger(zap.New(baseCore))

	log(context.Background(), "order.created", map[string]any{"orderId": "ord_1"})
	log(requestctx.WithLogger(context.Background(), zap.New(reqCore)), "order.paid.failed", nil)

	require.Equal(t, 1, baseLogs.Len())
	assert.Equal(t, "ord_1", baseLogs.All()[0].ContextMap()["orderId"])
	require.Equal(t, 1, reqLogs.Len())
	assert.Equal(t, zapcore.WarnLevel, reqLogs.All()[0].Level)
}

func TestSanitizeDropsControlCharacters(t *testing.T) {
	assert.Equal(t, "abc", sanitize("a\x07b\nc", 10))
	assert.Equal(t, "ab", sanitize("abcdef", 2))
}
