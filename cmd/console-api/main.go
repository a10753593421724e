package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/roboclub-my/console-api/api/swagger"
	"github.com/roboclub-my/console-api/internal/handler"
	"github.com/roboclub-my/console-api/internal/middleware"
	"github.com/roboclub-my/console-api/internal/models"
	"github.com/roboclub-my/console-api/internal/repository"
	"github.com/roboclub-my/console-api/internal/service"
	"github.com/roboclub-my/console-api/pkg/cache"
	"github.com/roboclub-my/console-api/pkg/config"
	"github.com/roboclub-my/console-api/pkg/database"
	"github.com/roboclub-my/console-api/pkg/logger"
	corsmiddleware "github.com/roboclub-my/console-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roboclub-my/console-api/pkg/middleware/requestid"
)

// @title Robotics Console API
// @version 1.0.0
// @description Admin console backend for student and centre registrations.
// @BasePath /api
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalogue caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	levelRepo := repository.NewLevelRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled && redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(userRepo, logr, cfg.Audit)
		auditSvc.Start(rootCtx)
		defer auditSvc.Stop()
	}
	var audit service.AuditRecorder
	if auditSvc != nil {
		audit = auditSvc
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "console-api",
	})
	metricsSvc := service.NewMetricsService()

	studentSvc := service.NewStudentService(studentRepo, validate, logr, audit, metricsSvc)
	centerSvc := service.NewCenterService(centerRepo, validate, logr, audit, metricsSvc)

	var catalogueCache service.CatalogueCache
	if cacheRepo != nil {
		catalogueCache = cacheRepo
	}
	achievementSvc := service.NewAchievementService(achievementRepo, catalogueCache, validate, logr, audit, metricsSvc, cfg.Cache.CatalogueTTL)
	levelSvc := service.NewLevelService(levelRepo, catalogueCache, validate, logr, audit, cfg.Cache.CatalogueTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	centerHandler := handler.NewCenterHandler(centerSvc)
	achievementHandler := handler.NewAchievementHandler(achievementSvc)
	levelHandler := handler.NewLevelHandler(levelSvc)

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	authd := api.Group("", middleware.JWT(authSvc))
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	reviewers := middleware.RequireRoles(models.RoleAdmin, models.RoleCenter)

	authd.GET("/user/students", reviewers, studentHandler.List)
	authd.POST("/user/student", reviewers, studentHandler.Create)
	authd.GET("/user/student/:id", reviewers, studentHandler.Get)
	authd.PUT("/user/student/:id", adminOnly, studentHandler.Update)
	authd.DELETE("/user/student/:id", adminOnly, studentHandler.Delete)
	authd.POST("/user/:id/approve", reviewers, studentHandler.Approve)
	authd.POST("/user/:id/reject", reviewers, studentHandler.Reject)

	authd.GET("/user/centers", adminOnly, centerHandler.List)
	authd.POST("/user/center", adminOnly, centerHandler.Create)
	authd.GET("/center/:id", reviewers, centerHandler.Get)
	authd.PUT("/center/:id", adminOnly, centerHandler.Update)
	authd.POST("/center/:id/approve", adminOnly, centerHandler.Approve)

	authd.GET("/achievement", reviewers, achievementHandler.List)
	authd.POST("/achievement", adminOnly, achievementHandler.Create)
	authd.PUT("/achievement/:id", adminOnly, achievementHandler.Update)
	authd.DELETE("/achievement/:id", adminOnly, achievementHandler.Delete)
	authd.GET("/achievement/assign/:id", reviewers, achievementHandler.Assigned)
	authd.PUT("/achievement/assign/:id", adminOnly, achievementHandler.Assign)

	authd.GET("/level", reviewers, levelHandler.List)
	authd.POST("/level", adminOnly, levelHandler.Create)
	authd.DELETE("/level/:id", adminOnly, levelHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
