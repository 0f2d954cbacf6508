// Package idempotency makes checkout, payment and review submissions safe to retry.
// A client sends Idempotency-Key; the first request under a key runs, later requests
// with the same body replay its stored response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

type ReservationState int

const (
	// ReservationStateNew: the caller now owns the key and runs the handler.
	ReservationStateNew ReservationState = iota
	// ReservationStateCompleted: replay Record.
	ReservationStateCompleted
	// ReservationStatePending: another request holds the key.
	ReservationStatePending
)

type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is one scoped key. It is stored as JSON in Redis and as a document in Firestore.
type Record struct {
	Key             string              `json:"key" firestore:"key"`
	Fingerprint     string              `json:"fingerprint" firestore:"fingerprint"`
	Status          Status              `json:"status" firestore:"status"`
	ResponseStatus  int                 `json:"responseStatus,omitempty" firestore:"response_status,omitempty"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty" firestore:"response_headers,omitempty"`
	ResponseBody    []byte              `json:"responseBody,omitempty" firestore:"response_body,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" firestore:"created_at"`
	UpdatedAt       time.Time           `json:"updatedAt" firestore:"updated_at"`
	ExpiresAt       time.Time           `json:"expiresAt" firestore:"expires_at"`
}

func (r Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Response is what the wrapped handler wrote.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store is implemented by the memory, Redis and Firestore backends.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// claim decides a reservation given what the backend currently holds for key. When
// write is true the backend must persist res.Record before returning.
func claim(current *Record, key, fingerprint string, now time.Time, ttl time.Duration) (res Reservation, write bool, err error) {
	if current != nil && !current.expired(now) {
		switch {
		case current.Fingerprint != fingerprint:
			return Reservation{}, false, ErrFingerprintMismatch
		case current.Status == StatusCompleted:
			return Reservation{State: ReservationStateCompleted, Record: *current}, false, nil
		default:
			return Reservation{State: ReservationStatePending, Record: *current}, false, nil
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	pending := Record{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	return Reservation{State: ReservationStateNew, Record: pending}, true, nil
}

// settle returns the completed record to persist for resp. A record that lapsed while
// the handler ran is recreated.
func settle(current *Record, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) (Record, error) {
	record := Record{Key: key, Fingerprint: fingerprint, CreatedAt: now}
	if current != nil {
		if current.Fingerprint != fingerprint {
			return Record{}, ErrFingerprintMismatch
		}
		record = *current
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeaders = replayableHeaders(resp.Headers)
	record.ResponseBody = nil
	if len(resp.Body) > 0 {
		record.ResponseBody = append([]byte(nil), resp.Body...)
	}
	record.UpdatedAt = now
	record.ExpiresAt = now.Add(ttl)
	return record, nil
}

// documentID hashes the scoped key into something safe as a Firestore id or Redis key.
func documentID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// replayableHeaders drops headers the server recomputes on every response.
func replayableHeaders(header http.Header) map[string][]string {
	var out map[string][]string
	for name, values := range header {
		name = http.CanonicalHeaderKey(name)
		switch name {
		case "Content-Length", "Date", "Connection", "Keep-Alive", "Proxy-Authenticate",
			"Proxy-Authorization", "Te", "Trailers", "Transfer-Encoding", "Upgrade":
			continue
		}
		if out == nil {
			out = make(map[string][]string, len(header))
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}
