package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/abhirana780/medical-backend/internal/bootstrap"
	"github.com/abhirana780/medical-backend/internal/di"
	"github.com/abhirana780/medical-backend/internal/handlers"
	"github.com/abhirana780/medical-backend/internal/payments"
	"github.com/abhirana780/medical-backend/internal/platform/auth"
	"github.com/abhirana780/medical-backend/internal/platform/config"
	pfirestore "github.com/abhirana780/medical-backend/internal/platform/firestore"
	"github.com/abhirana780/medical-backend/internal/platform/idempotency"
	"github.com/abhirana780/medical-backend/internal/platform/jobs"
	"github.com/abhirana780/medical-backend/internal/platform/observability"
	"github.com/abhirana780/medical-backend/internal/platform/requestctx"
	"github.com/abhirana780/medical-backend/internal/platform/secrets"
	platformstorage "github.com/abhirana780/medical-backend/internal/platform/storage"
	"github.com/abhirana780/medical-backend/internal/repositories"
	firestoreRepo "github.com/abhirana780/medical-backend/internal/repositories/firestore"
	"github.com/abhirana780/medical-backend/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = requestctx.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets("PSP.StripeAPIKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Idempotency.Backend == config.IdempotencyBackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Idempotency.RedisAddr,
			Password: cfg.Idempotency.RedisPassword,
			DB:       cfg.Idempotency.RedisDB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	events, pubsubTopic, closeEvents, err := newEventPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	defer closeEvents()

	healthRepo, err := newHealthRepository(firestoreClient, redisClient, pubsubTopic)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	paymentsLogger := observability.EventLogger(logger.Named("payments"))
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:    cfg.PSP.StripeAPIKey,
		AccountID: cfg.PSP.StripeAccountID,
		Logger:    payments.StripeLogger(paymentsLogger),
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
	}
	paymentManager, err := payments.NewManager(map[string]payments.Provider{"stripe": stripeProvider})
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}
	logger.Info("payment providers registered", zap.Strings("providers", paymentManager.Providers()))

	container, err := di.NewContainer(cfg, registry, di.Infrastructure{
		Payments: paymentManager,
		Events:   events,
		Meter:    otel.GetMeterProvider().Meter("github.com/abhirana780/medical-backend/internal/services"),
		Logger:   observability.EventLogger(logger.Named("services")),
		Build:    buildInfo,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	seeder, closeStorage, err := newCatalogSeeder(ctx, cfg, registry.Products(), logger.Named("bootstrap"))
	if err != nil {
		logger.Fatal("failed to initialise catalog seeder", zap.Error(err))
	}
	defer closeStorage()
	if cfg.Bootstrap.Enabled {
		seedCtx, cancel := context.WithTimeout(ctx, time.Minute)
		if _, err := seeder.Run(seedCtx); err != nil {
			logger.Error("catalog bootstrap failed", zap.Error(err))
		}
		cancel()
	}

	idempotencyStore := newIdempotencyStore(cfg, firestoreClient, redisClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(logger.Named("idempotency")),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			runIdempotencyCleanup(cleanupCtx, idempotencyStore, cfg.Idempotency, logger.Named("idempotency"))
		}()
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	guards := handlers.Guards{
		Authn:       auth.NewAuthenticator(firebaseVerifier),
		Idempotency: idempotencyMiddleware,
	}

	svc := container.Services
	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.TraceMiddleware(traceProjectID(cfg)),
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(buildInfo),
			handlers.WithHealthSystemService(svc.System),
		)),
		handlers.WithProductRoutes(
			handlers.NewProductHandlers(guards, svc.Catalog).Routes,
			handlers.NewReviewHandlers(guards, svc.Reviews).Routes,
		),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(guards, svc.Orders,
			handlers.WithTrackRateLimit(handlers.NewPerMinuteRateLimiter(cfg.RateLimits.TrackPerMinute, cfg.RateLimits.TrackBurst)),
		).Routes),
		handlers.WithUserRoutes(handlers.NewUserHandlers(guards, svc.Users).Routes),
		handlers.WithCouponRoutes(handlers.NewCouponHandlers(guards, svc.Coupons).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(guards, svc.Payments).Routes),
		handlers.WithAnalyticsRoutes(handlers.NewAnalyticsHandlers(guards, svc.Analytics).Routes),
		handlers.WithInternalRoutes(handlers.NewMaintenanceHandlers(
			handlers.WithCatalogSeeder(seeder),
			handlers.WithIdempotencyCleaner(idempotencyStore, cfg.Idempotency.CleanupBatchSize),
		).Routes),
	}
	if oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg); oidcMiddleware != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(oidcMiddleware))
	} else {
		opts = append(opts, handlers.WithInternalMiddlewares(denyAll))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.NewRouter(opts...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("medical storefront api listening", zap.String("version", buildInfo.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

// newEventPublisher returns the configured publisher, the Pub/Sub topic when that backend is
// active (for readiness), and a close func that flushes pending messages.
func newEventPublisher(ctx context.Context, cfg config.Config) (di.EventPublisher, *pubsub.Topic, func(), error) {
	switch cfg.Events.Backend {
	case config.EventsBackendPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Events.Topic)
		publisher, err := jobs.NewPubSubEventPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		return publisher, topic, func() {
			topic.Stop()
			_ = client.Close()
		}, nil
	case config.EventsBackendKafka:
		publisher, err := jobs.NewKafkaEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		if err != nil {
			return nil, nil, nil, err
		}
		return publisher, nil, func() { _ = publisher.Close() }, nil
	default:
		return jobs.NoopEventPublisher{}, nil, func() {}, nil
	}
}

func newIdempotencyStore(cfg config.Config, client *firestore.Client, redisClient *redis.Client) idempotency.Store {
	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendRedis:
		return idempotency.NewRedisStore(redisClient)
	case config.IdempotencyBackendMemory:
		return idempotency.NewMemoryStore()
	default:
		return idempotency.NewFirestoreStore(client)
	}
}

func runIdempotencyCleanup(ctx context.Context, store idempotency.Store, cfg config.IdempotencyConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// newCatalogSeeder reads the seed catalog from Cloud Storage when a bucket and object are
// configured, and from the built-in list otherwise.
func newCatalogSeeder(ctx context.Context, cfg config.Config, products bootstrap.ProductStore, logger *zap.Logger) (*bootstrap.Seeder, func(), error) {
	deps := bootstrap.Deps{
		Products:    products,
		Bucket:      cfg.Storage.CatalogBucket,
		Object:      cfg.Bootstrap.CatalogObject,
		MinProducts: cfg.Bootstrap.MinProducts,
		Logger:      logger,
	}
	closeFn := func() {}
	if strings.TrimSpace(cfg.Storage.CatalogBucket) != "" && strings.TrimSpace(cfg.Bootstrap.CatalogObject) != "" {
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		reader, err := platformstorage.NewObjectReader(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		deps.Objects = reader
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}
	}
	seeder, err := bootstrap.NewSeeder(deps)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return seeder, closeFn, nil
}

func newHealthRepository(client *firestore.Client, redisClient *redis.Client, topic *pubsub.Topic) (repositories.HealthRepository, error) {
	checks := []repositories.DependencyCheck{{
		Name:     "firestore",
		Timeout:  1500 * time.Millisecond,
		Critical: true,
		Check: func(ctx context.Context) error {
			iter := client.Collections(ctx)
			_, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		},
	}}
	if redisClient != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "redis",
			Timeout:  time.Second,
			Critical: true,
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	if topic != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		return nil
	}

	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL, auth.WithJWKSLogger(logger))
	validator := auth.NewOIDCValidator(cache,
		auth.WithOIDCLogger(logger),
		auth.WithOIDCMetrics(verificationMetrics(logger)),
	)

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	return validator.RequireOIDC(audience, cfg.Security.OIDC.Issuers)
}

// verificationMetrics counts internal-route verifications by outcome and tracks their latency.
func verificationMetrics(logger *zap.Logger) auth.MetricsRecorder {
	meter := otel.GetMeterProvider().Meter("github.com/abhirana780/medical-backend/internal/platform/auth")
	attempts, err := meter.Int64Counter("auth.verifications",
		metric.WithDescription("Token verification attempts by kind and outcome"),
	)
	if err != nil {
		logger.Warn("auth: unable to register verification counter", zap.Error(err))
		return nil
	}
	latency, err := meter.Float64Histogram("auth.verification.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Token verification latency in milliseconds"),
	)
	if err != nil {
		logger.Warn("auth: unable to register verification latency", zap.Error(err))
	}
	return auth.MetricsRecorderFunc(func(ctx context.Context, kind string, success bool, reason string, d time.Duration) {
		attrs := metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("success", success),
			attribute.String("reason", reason),
		)
		attempts.Add(ctx, 1, attrs)
		if latency != nil {
			latency.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
		}
	})
}

// denyAll guards /internal when OIDC verification is not configured.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthenticated","message":"internal routes disabled","status":401}`, http.StatusUnauthorized)
	})
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
		secrets.WithDefaultProject(defaultProject),
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}
