package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
	"github.com/docplatform/authz-service/internal/transport/http/handlers"
	"github.com/docplatform/authz-service/internal/transport/http/middleware"
	"github.com/docplatform/authz-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Authorization *usecase.AuthorizationService
	Roles         *usecase.RoleService
	Permissions   *usecase.PermissionService
	Users         *usecase.UserService
	Documents     *usecase.DocumentService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Identity    port.IdentityProvider
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(nil))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Identity)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if deps.Config.Telemetry.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	{
		// Introspection authenticates via the credential in the request body,
		// not the Authorization header, so it sits outside the auth group.
		introspectionHandler := handlers.NewIntrospectionHandler(deps.Identity, deps.Services.Authorization)
		api.POST("/auth/introspect", introspectionHandler.Introspect)

		protected := api.Group("")
		protected.Use(authMiddleware)

		if limiter := buildRateLimit(deps); limiter != nil {
			protected.Use(limiter)
		}

		authz := deps.Services.Authorization

		roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
		roles := protected.Group("/roles")
		roles.GET("", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeRole), roleHandler.List)
		roles.GET("/:id", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeRole), roleHandler.Get)
		roles.POST("", middleware.RequirePermission(authz, usecase.ActionCreate, usecase.ResourceTypeRole), roleHandler.Create)
		roles.PUT("/:id", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeRole), roleHandler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(authz, usecase.ActionDelete, usecase.ResourceTypeRole), roleHandler.Delete)
		roles.GET("/:id/permissions", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeRole), roleHandler.ListPermissions)
		roles.POST("/:id/permissions", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeRole), roleHandler.GrantPermissions)
		roles.DELETE("/:id/permissions", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeRole), roleHandler.RevokePermissions)
		roles.POST("/:id/assignments", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeRole), roleHandler.Assign)
		roles.DELETE("/:id/assignments/:user_id", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeRole), roleHandler.Unassign)

		// The permission catalog is part of role administration, so it shares
		// the role resource type for access checks.
		permissionHandler := handlers.NewPermissionHandler(deps.Services.Permissions)
		permissions := protected.Group("/permissions")
		permissions.GET("", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeRole), permissionHandler.List)
		permissions.GET("/:id", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeRole), permissionHandler.Get)
		permissions.POST("", middleware.RequirePermission(authz, usecase.ActionCreate, usecase.ResourceTypeRole), permissionHandler.Create)
		permissions.DELETE("/:id", middleware.RequirePermission(authz, usecase.ActionDelete, usecase.ResourceTypeRole), permissionHandler.Delete)

		userHandler := handlers.NewUserHandler(deps.Services.Users, deps.Services.Roles, deps.Services.Permissions)
		users := protected.Group("/users")
		users.GET("/me", userHandler.Me)
		users.GET("", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeUser), userHandler.List)
		users.POST("", middleware.RequirePermission(authz, usecase.ActionCreate, usecase.ResourceTypeUser), userHandler.Create)
		users.GET("/:id", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeUser), userHandler.Get)
		users.PATCH("/:id/active", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeUser), userHandler.SetActive)
		users.PATCH("/:id/superuser", middleware.RequirePermission(authz, usecase.ActionUpdate, usecase.ResourceTypeUser), userHandler.SetSuperuser)
		users.GET("/:id/roles", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeUser), userHandler.ListRoles)
		users.GET("/:id/permissions", middleware.RequirePermission(authz, usecase.ActionRead, usecase.ResourceTypeUser), userHandler.ListPermissions)

		// Document access is ownership-aware, so the checks live inside the
		// service rather than in route middleware.
		documentHandler := handlers.NewDocumentHandler(deps.Services.Documents)
		documents := protected.Group("/documents")
		documents.POST("", documentHandler.Upload)
		documents.GET("", documentHandler.List)
		documents.GET("/:id", documentHandler.Get)
		documents.GET("/:id/download", documentHandler.Download)
		documents.PATCH("/:id", documentHandler.Update)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	return r
}

func buildRateLimit(deps Dependencies) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || !deps.Config.RateLimit.Enabled {
		return nil
	}

	limit := deps.Config.RateLimit.MaxAttempts
	window := deps.Config.RateLimit.WindowDuration
	if limit <= 0 || window <= 0 {
		return nil
	}

	return deps.RateLimiter.RateLimit(middleware.RateLimitRule{
		Name:       "api",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.SubjectIdentifier(),
	})
}
