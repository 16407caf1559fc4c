package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/zikenn26/CampusHub/internal/analytics"
	"github.com/zikenn26/CampusHub/internal/auth"
	"github.com/zikenn26/CampusHub/internal/cache"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/http/handlers"
	"github.com/zikenn26/CampusHub/internal/http/middlewares"
	"github.com/zikenn26/CampusHub/internal/moderation"
	"github.com/zikenn26/CampusHub/internal/observability"
	"github.com/zikenn26/CampusHub/internal/repo/postgres"
	"github.com/zikenn26/CampusHub/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(cfg config.Config, log *slog.Logger, pool *pgxpool.Pool, prom *observability.Prom, rdb *redis.Client, files *storage.Store) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes, cfg.MaxUploadBytes))
	r.Use(otelgin.Middleware("campushub-api"))
	r.Use(prom.GinHandleMiddleware())

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// api docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool, prom)
	departmentsRepo := postgres.NewDepartmentsRepo(pool, prom)
	facultyRepo := postgres.NewFacultyRepo(pool, prom)
	materialsRepo := postgres.NewMaterialsRepo(pool, prom)
	auditRepo := postgres.NewAuditRepo(pool, prom)
	timetableRepo := postgres.NewTimetableRepo(pool, prom)
	searchLogsRepo := postgres.NewSearchLogsRepo(pool, prom)
	notificationsRepo := postgres.NewNotificationsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	authmw := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	tracker := analytics.NewTracker(rdb, log)
	moderationSvc := moderation.NewService(materialsRepo, auditRepo, notificationsRepo, prom, log)

	// anonymous listings are the hottest read; cache them briefly
	listCache := cache.New(30 * time.Second)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo, auditRepo, refreshRepo)
	departmentsHandler := handlers.NewDepartmentsHandler(departmentsRepo)
	facultyHandler := handlers.NewFacultyHandler(facultyRepo, departmentsRepo)
	materialsHandler := handlers.NewMaterialsHandlerWithCache(materialsRepo, departmentsRepo, auditRepo, files, tracker, searchLogsRepo, listCache)
	moderationHandler := handlers.NewModerationHandler(moderationSvc, auditRepo)
	auditHandler := handlers.NewAuditHandler(auditRepo)
	timetableHandler := handlers.NewTimetableHandler(timetableRepo, departmentsRepo)
	analyticsHandler := handlers.NewAnalyticsHandler(materialsRepo, tracker)
	notifsHandler := handlers.NewAdminNotificationsHandler(notificationsRepo)

	// a coarse per-client gate on the whole API, and a tighter budget
	// shared by the credential and upload endpoints
	apiLimiter := middlewares.NewRateLimiter(int(cfg.RateRPS)*60, time.Minute)
	burstLimiter := middlewares.NewRateLimiter(cfg.RateBurst, time.Minute)

	api := r.Group("/api/v1")
	api.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	api.Use(middlewares.RequireJSON())

	// auth
	authGroup := api.Group("/auth")
	authGroup.Use(burstLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authGroup.POST("/signup", authHandler.SignUp)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	// public reads; a token widens material visibility but is never required
	public := api.Group("")
	public.Use(authmw.OptionalAuth())
	public.GET("/departments", departmentsHandler.List)
	public.GET("/departments/:id", departmentsHandler.GetByID)
	public.GET("/departments/:id/timetable", timetableHandler.DepartmentTimetable)
	public.GET("/faculty", facultyHandler.List)
	public.GET("/faculty/:id", facultyHandler.GetByID)
	public.GET("/materials", materialsHandler.List)
	public.GET("/materials/:id", materialsHandler.GetByID)
	public.GET("/materials/:id/download", materialsHandler.Download)
	public.GET("/timetable", timetableHandler.List)
	public.GET("/timetable/export", timetableHandler.Export)
	public.GET("/analytics/top-materials", analyticsHandler.TopMaterials)

	// any signed-in user
	authed := api.Group("")
	authed.Use(authmw.RequireAuth())
	authed.POST("/materials", burstLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), materialsHandler.Create)
	authed.POST("/materials/:id/favorite", materialsHandler.ToggleFavorite)
	authed.POST("/materials/:id/resubmit", moderationHandler.Resubmit)
	authed.GET("/library", materialsHandler.Library)

	// verifiers and admins
	mod := authed.Group("/moderation")
	mod.Use(authmw.RequireModerator())
	mod.GET("/queue", moderationHandler.Queue)
	mod.POST("/:id/decision", moderationHandler.Decide)
	mod.GET("/:id/audit", moderationHandler.History)

	// directory management
	directory := authed.Group("")
	directory.Use(authmw.RequireDirectoryManager())
	directory.POST("/faculty", facultyHandler.Create)
	directory.PUT("/faculty/:id", facultyHandler.Update)

	// timetable management
	tt := authed.Group("/timetable")
	tt.Use(authmw.RequireTimetableManager())
	tt.POST("", timetableHandler.Create)
	tt.PUT("/:id", timetableHandler.Update)
	tt.DELETE("/:id", timetableHandler.Delete)

	// admin only
	admin := authed.Group("")
	admin.Use(authmw.RequireAdmin())
	admin.POST("/departments", departmentsHandler.Create)
	admin.PUT("/departments/:id", departmentsHandler.Update)
	admin.GET("/users", usersHandler.List)
	admin.PATCH("/users/:id/role", usersHandler.ChangeRole)
	admin.DELETE("/users/:id", usersHandler.Deactivate)
	admin.GET("/audit", auditHandler.Query)
	admin.GET("/analytics/search-terms", analyticsHandler.TopSearchTerms)
	admin.GET("/admin/notifications", notifsHandler.List)
	admin.POST("/admin/notifications/:id/retry", notifsHandler.Retry)
	admin.POST("/admin/notifications/retry-failed", notifsHandler.RetryFailed)

	return r
}
