// Package config loads the storefront API configuration from the environment, an optional
// .env file and Secret Manager references.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultTrackPerMinute       = 30
	defaultTrackBurst           = 10
	defaultSecurityEnvironment  = "local"
	defaultOIDCJWKSURL          = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer       = "https://accounts.google.com"
	defaultSecurityIAPIssuer    = "https://cloud.google.com/iap"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultEventsTopic          = "storefront-events"
	defaultPaymentCurrency      = "usd"
	defaultBootstrapMinProducts = 10
)

const (
	EventsBackendPubSub = "pubsub"
	EventsBackendKafka  = "kafka"
	EventsBackendNone   = "none"
)

const (
	IdempotencyBackendFirestore = "firestore"
	IdempotencyBackendRedis     = "redis"
	IdempotencyBackendMemory    = "memory"
)

type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	PSP         PSPConfig
	Events      EventsConfig
	RateLimits  RateLimitConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
	Bootstrap   BootstrapConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig.ProjectID falls back to the Firebase project.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig names the bucket holding the optional seed catalog.
type StorageConfig struct {
	CatalogBucket string
}

// PSPConfig holds the Stripe credentials. StripeAPIKey is normally a secret:// reference.
type PSPConfig struct {
	StripeAPIKey         string
	StripePublishableKey string
	StripeAccountID      string
	DefaultCurrency      string
}

// EventsConfig selects where order and review events go.
type EventsConfig struct {
	Backend      string
	Topic        string
	KafkaBrokers []string
}

// RateLimitConfig throttles the public order tracking lookup per client IP.
type RateLimitConfig struct {
	TrackPerMinute int
	TrackBurst     int
}

type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
}

// OIDCConfig verifies the Google-signed tokens Cloud Scheduler sends to /internal.
// Audiences maps an environment name to its audience and is consulted when Audience is empty.
type OIDCConfig struct {
	JWKSURL   string
	Audience  string
	Audiences map[string]string
	Issuers   []string
}

type IdempotencyConfig struct {
	Backend          string
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// BootstrapConfig controls catalog seeding at startup.
type BootstrapConfig struct {
	Enabled       bool
	CatalogObject string
	MinProducts   int
}

// Load builds the configuration. Explicit env maps win over the process environment,
// which wins over the .env file.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	env, err := newEnvSource(options)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.str("API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: env.str("API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    env.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: env.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			CatalogBucket: env.str("API_STORAGE_CATALOG_BUCKET", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey:         env.str("API_PSP_STRIPE_API_KEY", ""),
			StripePublishableKey: env.str("API_PSP_STRIPE_PUBLISHABLE_KEY", ""),
			StripeAccountID:      env.str("API_PSP_STRIPE_ACCOUNT_ID", ""),
			DefaultCurrency:      env.lower("API_PSP_DEFAULT_CURRENCY", defaultPaymentCurrency),
		},
		Events: EventsConfig{
			Backend:      env.lower("API_EVENTS_BACKEND", EventsBackendNone),
			Topic:        env.str("API_EVENTS_TOPIC", defaultEventsTopic),
			KafkaBrokers: env.list("API_EVENTS_KAFKA_BROKERS"),
		},
		RateLimits: RateLimitConfig{
			TrackPerMinute: env.integer("API_RATELIMIT_TRACK_PER_MIN", defaultTrackPerMinute),
			TrackBurst:     env.integer("API_RATELIMIT_TRACK_BURST", defaultTrackBurst),
		},
		Security: SecurityConfig{
			Environment: env.lower("API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment),
			OIDC: OIDCConfig{
				JWKSURL:   env.str("API_SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience:  env.str("API_SECURITY_OIDC_AUDIENCE", ""),
				Audiences: env.pairs("API_SECURITY_OIDC_AUDIENCES"),
				Issuers:   env.list("API_SECURITY_OIDC_ISSUERS"),
			},
		},
		Idempotency: IdempotencyConfig{
			Backend:          env.lower("API_IDEMPOTENCY_BACKEND", IdempotencyBackendFirestore),
			Header:           env.str("API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              env.duration("API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  env.duration("API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: env.integer("API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
			RedisAddr:        env.str("API_IDEMPOTENCY_REDIS_ADDR", ""),
			RedisPassword:    env.str("API_IDEMPOTENCY_REDIS_PASSWORD", ""),
			RedisDB:          env.integer("API_IDEMPOTENCY_REDIS_DB", 0),
		},
		Bootstrap: BootstrapConfig{
			Enabled:       env.boolean("API_BOOTSTRAP_ENABLED", true),
			CatalogObject: env.str("API_BOOTSTRAP_CATALOG_OBJECT", ""),
			MinProducts:   env.integer("API_BOOTSTRAP_MIN_PRODUCTS", defaultBootstrapMinProducts),
		},
	}
	applyDerivedDefaults(&cfg)

	resolved, err := resolveSecretFields(ctx, options.secret, map[string]*string{
		"PSP.StripeAPIKey":          &cfg.PSP.StripeAPIKey,
		"Idempotency.RedisPassword": &cfg.Idempotency.RedisPassword,
	})
	if err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		if options.panicOnMissingSecrets {
			fmt.Fprintf(os.Stderr, "config: %s\n", missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}
	return cfg, nil
}

func applyDerivedDefaults(cfg *Config) {
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultSecurityIssuer, defaultSecurityIAPIssuer}
	}
	if cfg.Security.OIDC.Audience == "" {
		cfg.Security.OIDC.Audience = cfg.Security.OIDC.Audiences[strings.ToLower(cfg.Security.Environment)]
	}
}
