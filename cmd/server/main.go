package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/middleware"
	"github.com/sanventru/odoomegastock-sub001/internal/production/app"
	"github.com/sanventru/odoomegastock-sub001/internal/production/handler"
	"github.com/sanventru/odoomegastock-sub001/internal/production/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := app.InitLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting production service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	rootCtx := context.Background()
	a, err := app.New(rootCtx, cfg, zapLogger, app.Options{Migrate: true, WithHub: true})
	if err != nil {
		zapLogger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	if n, err := a.Services.Recipe.SeedStandardTests(rootCtx); err != nil {
		zapLogger.Warn("Seed standard recipes failed", zap.Error(err))
	} else if n > 0 {
		zapLogger.Info("Standard recipes seeded", zap.Int("created", n))
	}

	sched, err := scheduler.New(a.Services.Alert, cfg.Alerts.ExpiryCron, cfg.Alerts.AuditCron, zapLogger)
	if err != nil {
		zapLogger.Fatal("Invalid cron expression", zap.Error(err))
	}
	sched.Start()

	handlers := handler.NewHandlers(a.Services, a.Hub, zapLogger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger, "/health/live", "/api/v1/events"))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins...))
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events"})))

	registerRoutes(router, handlers, a.DB, cfg)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// SSE 长连接不设写超时
		WriteTimeout: 0,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	sched.Stop(ctx)

	zapLogger.Info("Server exited")
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Not found"})
	})

	// 车间设备旧接口，无认证，按 IP 限流
	legacy := r.Group("", middleware.RateLimit(cfg.Legacy.RateLimitPerSecond, cfg.Legacy.RateLimitBurst))
	h.RegisterLegacy(legacy)

	v1 := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	h.Register(v1)
}
