package config

import (
	"fmt"
	"strings"
)

// ValidationError names every missing or invalid field found by Load.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

func validate(cfg Config) error {
	var bad []string
	check := func(ok bool, field string) {
		if !ok {
			bad = append(bad, field)
		}
	}

	check(cfg.Server.Port != "", "Server.Port")
	check(cfg.Firebase.ProjectID != "", "Firebase.ProjectID")
	check(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	check(cfg.Bootstrap.CatalogObject == "" || cfg.Storage.CatalogBucket != "", "Storage.CatalogBucket")

	switch cfg.Events.Backend {
	case EventsBackendPubSub, EventsBackendNone:
	case EventsBackendKafka:
		check(len(cfg.Events.KafkaBrokers) > 0, "Events.KafkaBrokers")
	default:
		bad = append(bad, "Events.Backend")
	}
	check(cfg.Events.Backend == EventsBackendNone || strings.TrimSpace(cfg.Events.Topic) != "", "Events.Topic")
	check(cfg.RateLimits.TrackPerMinute > 0, "RateLimits.TrackPerMinute")

	switch cfg.Idempotency.Backend {
	case IdempotencyBackendFirestore, IdempotencyBackendMemory:
	case IdempotencyBackendRedis:
		check(strings.TrimSpace(cfg.Idempotency.RedisAddr) != "", "Idempotency.RedisAddr")
	default:
		bad = append(bad, "Idempotency.Backend")
	}
	check(strings.TrimSpace(cfg.Idempotency.Header) != "", "Idempotency.Header")
	check(cfg.Idempotency.TTL > 0, "Idempotency.TTL")
	check(cfg.Idempotency.CleanupInterval > 0, "Idempotency.CleanupInterval")
	check(cfg.Idempotency.CleanupBatchSize > 0, "Idempotency.CleanupBatchSize")

	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}
