package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

var (
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	// ErrJWKSFetchFailed marks transport, status and decode failures so callers can answer 503.
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

const (
	defaultKeyValidity  = 15 * time.Minute
	defaultFetchTimeout = 5 * time.Second
)

// JWKSCache holds the RSA signing keys published at a JWKS endpoint. The set is
// replaced wholesale once its Cache-Control max-age runs out or a token names a kid
// the current set does not contain.
type JWKSCache struct {
	url      string
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
	validity time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	keys    map[string]any
	expires time.Time

	fetching sync.Mutex
}

type JWKSOption func(*JWKSCache)

func WithJWKSHTTPClient(client *http.Client) JWKSOption {
	return func(c *JWKSCache) {
		if client != nil {
			c.client = client
		}
	}
}

func WithJWKSLogger(logger *zap.Logger) JWKSOption {
	return func(c *JWKSCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithJWKSRefreshInterval sets how long a key set lives when the endpoint sends no max-age.
func WithJWKSRefreshInterval(d time.Duration) JWKSOption {
	return func(c *JWKSCache) {
		if d > 0 {
			c.validity = d
		}
	}
}

func WithJWKSClock(now func() time.Time) JWKSOption {
	return func(c *JWKSCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	c := &JWKSCache{
		url:      strings.TrimSpace(url),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   zap.NewNop(),
		now:      time.Now,
		validity: defaultKeyValidity,
		timeout:  defaultFetchTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Keyfunc adapts the cache to jwt parsing. Only RS256 tokens with a kid header are accepted.
func (c *JWKSCache) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("auth: unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("auth: token missing kid header")
		}
		return c.Key(ctx, kid)
	}
}

func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	if key := c.lookup(kid); key != nil {
		return key, nil
	}
	if err := c.fetch(ctx); err != nil {
		return nil, err
	}
	if key := c.lookup(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

func (c *JWKSCache) lookup(kid string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.now().Before(c.expires) {
		return nil
	}
	return c.keys[kid]
}

func (c *JWKSCache) fetch(ctx context.Context) error {
	c.fetching.Lock()
	defer c.fetching.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	set, maxAge, err := c.download(ctx)
	if err != nil {
		c.logger.Warn("jwks refresh failed", zap.String("url", c.url), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID == "" || !jwk.Valid() || !jwk.IsPublic() {
			continue
		}
		keys[jwk.KeyID] = jwk.Key
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: no usable keys", ErrJWKSFetchFailed)
	}

	validity := c.validity
	if maxAge > 0 {
		validity = maxAge
	}
	c.mu.Lock()
	c.keys = keys
	c.expires = c.now().Add(validity)
	c.mu.Unlock()

	c.logger.Debug("jwks refreshed", zap.Int("keys", len(keys)), zap.Duration("validity", validity))
	return nil
}

func (c *JWKSCache) download(ctx context.Context) (jose.JSONWebKeySet, time.Duration, error) {
	var set jose.JSONWebKeySet
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return set, 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return set, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return set, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return set, 0, fmt.Errorf("decode jwks: %w", err)
	}
	return set, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// parseMaxAge reads the max-age directive of a Cache-Control header. Malformed or
// non-positive values yield zero.
func parseMaxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	return 0
}
