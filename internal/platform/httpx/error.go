package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhirana780/medical-backend/internal/platform/requestctx"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
	maxIDLen      = 80
)

// Error is an API failure. It is rendered as
//
//	{"error": code, "message": ..., "status": 404, "request_id": ..., "trace_id": ...}
//
// with any Details merged in beside those keys.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func NewError(code, message string, status int) Error {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return Error{Code: clip(code, maxCodeLen), Message: clip(message, maxMessageLen), Status: status}
}

// Internal never carries the underlying cause.
func Internal() Error {
	return NewError("internal_error", "internal server error", http.StatusInternalServerError)
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WithDetails returns a copy of e carrying extra payload keys. Keys that collide with the
// envelope are dropped when the error is written.
func (e Error) WithDetails(details map[string]any) Error {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

// WriteError renders e, taking the request id from chi and the trace id from the trace middleware.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	if e.Status == 0 {
		e = NewError(e.Code, e.Message, e.Status)
	}
	body := make(map[string]any, len(e.Details)+5)
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Code
	body["message"] = e.Message
	body["status"] = e.Status
	delete(body, "request_id")
	delete(body, "trace_id")
	if id := clip(middleware.GetReqID(ctx), maxIDLen); id != "" {
		body["request_id"] = id
	}
	if id := clip(requestctx.TraceID(ctx), maxIDLen); id != "" {
		body["trace_id"] = id
	}
	WriteJSON(w, e.Status, body)
}

// clip flattens line breaks so client-supplied text cannot split log lines, then truncates.
func clip(s string, limit int) string {
	s = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
