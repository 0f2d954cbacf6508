package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhirana780/medical-backend/internal/bootstrap"
)

type stubSeeder struct {
	result bootstrap.Result
	err    error
	calls  int
}

func (s *stubSeeder) Run(context.Context) (bootstrap.Result, error) {
	s.calls++
	return s.result, s.err
}

type stubCleaner struct {
	now   time.Time
	limit int
}

func (s *stubCleaner) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.now = now
	s.limit = limit
	return 4, nil
}

func TestMaintenanceHandlers_Bootstrap(t *testing.T) {
	seeder := &stubSeeder{result: bootstrap.Result{Existing: 3, Seeded: 16, Source: "builtin"}}
	routes := mountRoutes("/internal", NewMaintenanceHandlers(WithCatalogSeeder(seeder)).Routes)

	rr := doRequest(t, routes, http.MethodPost, "/internal/maintenance/bootstrap", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, seeder.calls)
	assert.Equal(t, 16, decodeBody[bootstrap.Result](t, rr).Seeded)

	seeder.err = errors.New("firestore down")
	rr = doRequest(t, routes, http.MethodPost, "/internal/maintenance/bootstrap", "", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "firestore down")
}

func TestMaintenanceHandlers_BootstrapDisabled(t *testing.T) {
	routes := mountRoutes("/internal", NewMaintenanceHandlers().Routes)
	rr := doRequest(t, routes, http.MethodPost, "/internal/maintenance/bootstrap", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMaintenanceHandlers_IdempotencyCleanup(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cleaner := &stubCleaner{}
	routes := mountRoutes("/internal", NewMaintenanceHandlers(
		WithIdempotencyCleaner(cleaner, 100),
		WithMaintenanceClock(func() time.Time { return now }),
	).Routes)

	rr := doRequest(t, routes, http.MethodPost, "/internal/maintenance/idempotency-cleanup", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, decodeBody[cleanupResponse](t, rr).Removed)
	assert.Equal(t, 100, cleaner.limit)
	assert.Equal(t, now, cleaner.now)

	rr = doRequest(t, routes, http.MethodPost, "/internal/maintenance/idempotency-cleanup?limit=7", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 7, cleaner.limit)

	rr = doRequest(t, routes, http.MethodPost, "/internal/maintenance/idempotency-cleanup?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestKeyedRateLimiter_RefillsAndPrunes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newKeyedRateLimiter(60, 1, func() time.Time { return now }).(*keyedRateLimiter)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, limiter.Allow("c"))
	assert.Len(t, limiter.buckets, 1)

	assert.Nil(t, newKeyedRateLimiter(0, 0, nil))
}
