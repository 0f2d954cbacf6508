package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "idem:"

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOption customises RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix namespaces every key written by the store.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// RedisStore implements Store on Redis. Expiry is delegated to key TTLs.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client RedisClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + documentID(key)
}

// Reserve claims the key with SETNX. When the key is held, the stored record decides; a
// record past its own expiry that Redis has not evicted yet is overwritten.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	rk := s.redisKey(key)

	for attempt := 0; attempt < 2; attempt++ {
		fresh, _, _ := claim(nil, key, fingerprint, now, ttl)
		payload, err := json.Marshal(fresh.Record)
		if err != nil {
			return Reservation{}, err
		}
		lifetime := fresh.Record.ExpiresAt.Sub(now)
		claimed, err := s.client.SetNX(ctx, rk, payload, lifetime).Result()
		if err != nil {
			return Reservation{}, fmt.Errorf("idempotency: redis setnx: %w", err)
		}
		if claimed {
			return fresh, nil
		}

		current, err := s.load(ctx, rk)
		if err != nil {
			return Reservation{}, err
		}
		if current == nil {
			continue
		}
		res, write, err := claim(current, key, fingerprint, now, ttl)
		if err != nil || !write {
			return res, err
		}
		if err := s.client.Set(ctx, rk, payload, lifetime).Err(); err != nil {
			return Reservation{}, fmt.Errorf("idempotency: redis set: %w", err)
		}
		return res, nil
	}
	return Reservation{}, errors.New("idempotency: redis key churned during reservation")
}

func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	rk := s.redisKey(key)
	current, err := s.load(ctx, rk)
	if err != nil {
		return err
	}
	record, err := settle(current, key, fingerprint, resp, now.UTC(), ttl)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, rk, payload, record.ExpiresAt.Sub(record.UpdatedAt)).Err(); err != nil {
		return fmt.Errorf("idempotency: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key, _ string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: redis del: %w", err)
	}
	return nil
}

// CleanupExpired is a no-op: Redis evicts records when their TTL lapses.
func (s *RedisStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *RedisStore) load(ctx context.Context, rk string) (*Record, error) {
	raw, err := s.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: redis get: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return &record, nil
}
