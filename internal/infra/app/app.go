package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
	"github.com/docplatform/authz-service/internal/infra/database"
	"github.com/docplatform/authz-service/internal/infra/identity"
	kafkainfra "github.com/docplatform/authz-service/internal/infra/kafka"
	"github.com/docplatform/authz-service/internal/infra/logger"
	redisinfra "github.com/docplatform/authz-service/internal/infra/redis"
	s3infra "github.com/docplatform/authz-service/internal/infra/s3"
	"github.com/docplatform/authz-service/internal/infra/telemetry"
	postgresrepo "github.com/docplatform/authz-service/internal/repository/postgres"
	redisrepo "github.com/docplatform/authz-service/internal/repository/redis"
	"github.com/docplatform/authz-service/internal/transport/http/middleware"
	"github.com/docplatform/authz-service/internal/transport/http/routes"
	"github.com/docplatform/authz-service/internal/usecase"
)

// Application owns the wired service graph and its long-lived resources.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires configuration into a runnable application. The permission catalog
// is seeded here, before the HTTP listener starts, so the first request never
// races the canonical roles into existence.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var provider *telemetry.Provider
	if cfg.Telemetry.MetricsEnabled {
		provider, err = telemetry.Attach(cfg)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	blobStore, err := s3infra.NewBlobStore(cfg.S3, log)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	authzCfg := usecase.DefaultAuthorizationConfig()
	authzCfg.GrantOverridesOwnership = cfg.Authz.GrantOverridesOwnership

	authzService := usecase.NewAuthorizationService(repos.Permissions, authzCfg, log)
	if provider != nil {
		authzService = authzService.WithDecisionRecorder(provider)
	}

	roleService := usecase.NewRoleService(repos.Roles, repos.Permissions, repos.Users, eventPublisher, log)
	permissionService := usecase.NewPermissionService(repos.Permissions)
	userService := usecase.NewUserService(repos.Users, repos.Roles)
	documentService := usecase.NewDocumentService(repos.Documents, blobStore, authzService, log)

	if cfg.Authz.BootstrapEnabled {
		bootstrapper := usecase.NewCatalogBootstrapper(repos.Catalog, log)
		if err := bootstrapper.EnsureDefaults(ctx); err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("seed permission catalog: %w", err)
		}
	}

	identityProvider, err := buildIdentityProvider(cfg.Identity, userService, log)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init identity provider: %w", err)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var httpMetrics *middleware.HTTPMetrics
	if cfg.Telemetry.MetricsEnabled {
		httpMetrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init http metrics: %w", err)
		}
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Identity:    identityProvider,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Authorization: authzService,
			Roles:         roleService,
			Permissions:   permissionService,
			Users:         userService,
			Documents:     documentService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

func buildIdentityProvider(cfg config.IdentitySettings, users *usecase.UserService, log *zap.Logger) (port.IdentityProvider, error) {
	switch cfg.Mode {
	case "remote":
		return identity.NewRemoteProvider(cfg, log)
	case "", "local":
		return identity.NewLocalProvider(cfg, users, log)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.Mode)
	}
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting authorization API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
