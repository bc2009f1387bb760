package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/katalog-materi-api/api/swagger"
	"github.com/noah-isme/katalog-materi-api/internal/handler"
	"github.com/noah-isme/katalog-materi-api/internal/middleware"
	"github.com/noah-isme/katalog-materi-api/internal/models"
	"github.com/noah-isme/katalog-materi-api/internal/notifier"
	"github.com/noah-isme/katalog-materi-api/internal/repository"
	"github.com/noah-isme/katalog-materi-api/internal/service"
	"github.com/noah-isme/katalog-materi-api/pkg/cache"
	"github.com/noah-isme/katalog-materi-api/pkg/config"
	"github.com/noah-isme/katalog-materi-api/pkg/database"
	"github.com/noah-isme/katalog-materi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/katalog-materi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/katalog-materi-api/pkg/middleware/requestid"
)

// @title Katalog Materi API
// @version 1.0.0
// @description Marketing material catalog backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	// Redis is optional: without it the stats cache degrades to pass-through.
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
	}

	validate := validator.New()

	materiRepo := repository.NewMateriRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	refRepo := repository.NewReferenceRepository(db)
	userRepo := repository.NewUserRepository(db)

	cacheEnabled := cfg.Stats.CacheEnabled && cacheRepo != nil
	var cacheService *service.CacheService
	if cacheRepo != nil {
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cacheEnabled)
	} else {
		cacheService = service.NewCacheService(nil, metrics, cfg.Stats.CacheTTL, logr, false)
	}

	statsService := service.NewStatsService(statsRepo, cacheService, metrics, cfg.Stats.CacheTTL, logr)

	authService := service.NewAuthService(
		userRepo,
		service.NewGoogleTokenVerifier(cfg.Google.ClientIDs),
		validate,
		logr,
		service.AuthConfig{
			TokenSecret: cfg.JWT.Secret,
			TokenExpiry: cfg.JWT.Expiration,
			Issuer:      cfg.JWT.Issuer,
		},
	)
	userService := service.NewUserService(userRepo, validate, logr)
	refService := service.NewReferenceService(refRepo, validate, logr)

	hub := notifier.NewHub(metrics, logr)
	bridge := notifier.NewBridge(hub, statsService, cfg.Notifier.CoalesceWindow, logr)

	// A disabled notifier must stay an untyped nil so the service skips it.
	var mutationNotifier service.MutationNotifier
	if cfg.Notifier.Enabled {
		mutationNotifier = bridge
	}

	materiService := service.NewMateriService(
		materiRepo,
		refRepo,
		userRepo,
		statsService,
		mutationNotifier,
		cfg.Export.MaxRows,
		validate,
		logr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notifier.Enabled {
		bridge.Start(ctx)
	}

	authHandler := handler.NewAuthHandler(authService)
	materiHandler := handler.NewMateriHandler(materiService)
	statsHandler := handler.NewStatsHandler(statsService)
	userHandler := handler.NewUserHandler(userService)
	brandHandler := handler.NewReferenceHandler(refService, models.ReferenceBrand)
	clusterHandler := handler.NewReferenceHandler(refService, models.ReferenceCluster)
	fiturHandler := handler.NewReferenceHandler(refService, models.ReferenceFitur)
	jenisHandler := handler.NewReferenceHandler(refService, models.ReferenceJenis)
	wsHandler := handler.NewWSHandler(hub, statsService, notifier.ClientOptions{
		SendBuffer:   cfg.Notifier.SendBuffer,
		WriteTimeout: cfg.Notifier.WriteTimeout,
		PingInterval: cfg.Notifier.PingInterval,
	}, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/google", authHandler.LoginGoogle)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	authed := api.Group("", middleware.JWT(authService))
	manage := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	registerReference(authed, "/brand", brandHandler, manage)
	registerReference(authed, "/cluster", clusterHandler, manage)
	registerReference(authed, "/fitur", fiturHandler, manage)
	registerReference(authed, "/jenis", jenisHandler, manage)

	authed.GET("/materi", materiHandler.List)
	authed.GET("/materi/:id", materiHandler.Get)
	authed.POST("/materi", manage, materiHandler.Create)
	authed.PUT("/materi/:id", manage, materiHandler.Update)
	authed.DELETE("/materi/:id", manage, materiHandler.Delete)
	if cfg.Export.Enabled {
		authed.GET("/materi/export", materiHandler.Export)
	}

	authed.GET("/stats", statsHandler.Summary)
	authed.GET("/stats/monthly", statsHandler.Monthly)

	users := authed.Group("/users", middleware.RequireRoles(models.RoleSuperAdmin))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.PUT("/:id/role", userHandler.UpdateRole)
	users.DELETE("/:id", userHandler.Delete)

	if cfg.Notifier.Enabled {
		authed.GET("/ws/stats", wsHandler.Subscribe)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	if cfg.Notifier.Enabled {
		bridge.Stop()
	}
	hub.Shutdown()

	logr.Info("server stopped")
}

func registerReference(group *gin.RouterGroup, prefix string, h *handler.ReferenceHandler, manage gin.HandlerFunc) {
	group.GET(prefix, h.List)
	group.GET(prefix+"/:id", h.Get)
	group.POST(prefix, manage, h.Create)
	group.PUT(prefix+"/:id", manage, h.Update)
	group.DELETE(prefix+"/:id", manage, h.Delete)
}
