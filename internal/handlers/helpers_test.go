package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/abhirana780/medical-backend/internal/platform/auth"
)

// tokenTable verifies bearer tokens of the form "user-<uid>" or "admin-<uid>".
type tokenTable struct{}

func (tokenTable) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	role, uid, ok := strings.Cut(idToken, "-")
	if !ok || uid == "" {
		return nil, errors.New("invalid token")
	}
	return &firebaseauth.Token{
		UID: uid,
		Claims: map[string]interface{}{
			"role":  role,
			"email": uid + "@example.com",
			"name":  "Patient " + uid,
		},
	}, nil
}

func testGuards() Guards {
	return Guards{Authn: auth.NewAuthenticator(tokenTable{})}
}

func mountRoutes(path string, registrars ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Route(path, func(r chi.Router) {
		for _, reg := range registrars {
			reg(r)
		}
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}
