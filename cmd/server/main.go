package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nexus-social/backend/internal/auth"
	"github.com/nexus-social/backend/internal/config"
	"github.com/nexus-social/backend/internal/database"
	"github.com/nexus-social/backend/internal/gdpr"
	"github.com/nexus-social/backend/internal/handlers"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/metrics"
	"github.com/nexus-social/backend/internal/middleware"
	"github.com/nexus-social/backend/internal/retention"
	"github.com/nexus-social/backend/internal/social"
	"github.com/nexus-social/backend/internal/stories"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional, system environment is enough
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Log.Info("nexus-social backend starting", zap.String("port", cfg.Port))

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis backs the rate limiter only; the API runs fine without it.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
			redisClient = nil
		}
	}

	m := metrics.Initialize()

	authService := auth.NewService(db, []byte(cfg.JWTSecret))
	storyService := stories.NewService(db, social.NewFollowGraph(db))
	gdprService := gdpr.NewService(db)

	// Retention engine, embedded in the API process.
	sweeper := retention.NewSweeper(db, gdprService, m)
	scheduler := retention.NewScheduler(cfg.Retention.Tick)
	for _, job := range sweeper.Jobs(cfg.Retention) {
		scheduler.Register(job)
	}
	scheduler.Start()
	defer scheduler.Stop()

	h := handlers.NewHandlers(db, authService, storyService, gdprService)
	h.SetMetrics(m)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := database.Health(db); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":    dbStatus,
			"timestamp": time.Now().UTC(),
			"service":   "nexus-social-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(h.AuthMiddleware())
	api.Use(middleware.RedisRateLimitMiddleware(redisClient, 300, time.Minute))
	{
		storiesGroup := api.Group("/stories")
		{
			storiesGroup.POST("", h.CreateStory)
			storiesGroup.GET("/feed", h.GetStoriesFeed)
			storiesGroup.GET("/user/:id", h.GetUserStories)
			storiesGroup.POST("/:id/view", h.ViewStory)
			storiesGroup.GET("/:id/viewers", h.GetStoryViewers)
			storiesGroup.DELETE("/:id", h.DeleteStory)
		}

		gdprGroup := api.Group("/gdpr")
		{
			gdprGroup.POST("/data/deletion-request", h.RequestAccountDeletion)
			gdprGroup.DELETE("/data/deletion-request", h.CancelAccountDeletion)
			gdprGroup.GET("/data/deletion-request", h.GetDeletionRequest)
			gdprGroup.GET("/data/export", h.ExportData)
			gdprGroup.GET("/privacy/settings", h.GetPrivacySettings)
			gdprGroup.PUT("/privacy/settings", h.UpdatePrivacySettings)
			gdprGroup.POST("/consent/update", h.UpdateConsent)
			gdprGroup.GET("/consent/history", h.GetConsentHistory)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("forced shutdown", zap.Error(err))
	}

	logger.Log.Info("server exited")
}
