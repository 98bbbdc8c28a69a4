// Package app 进程级初始化：日志、数据库、Redis、服务装配。
// 服务端与 prodctl 共用。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// App 已初始化的进程资源
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	Repos    *repository.Repositories
	Hub      *sse.Hub
	Services *service.Services
}

func InitLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// InitRedis 未启用返回 nil
func InitRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// 缓存不可用时退化为直接读库
		log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		rdb.Close()
		return nil
	}
	return rdb
}

// Options 控制 New 初始化哪些可选资源
type Options struct {
	// 建表
	Migrate bool
	// 创建事件中心
	WithHub bool
}

// New 加载全部资源并装配服务
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	db, err := InitDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if opts.Migrate {
		if err := entity.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	rdb := InitRedis(ctx, cfg.Redis, log)

	mc, err := service.NewMinIOClient(ctx, cfg.MinIO)
	if err != nil {
		// 报表归档可选，失败时报表按需生成
		log.Warn("minio unavailable, report archive disabled", zap.Error(err))
		mc = nil
	}

	var hub *sse.Hub
	if opts.WithHub {
		hub = sse.NewHub(log)
	}

	repos := repository.NewRepositories(db)
	svc := service.NewServices(service.Deps{
		Repos:  repos,
		Config: cfg,
		Logger: log,
		Redis:  rdb,
		MinIO:  mc,
		Hub:    hub,
	})

	return &App{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Redis:    rdb,
		Repos:    repos,
		Hub:      hub,
		Services: svc,
	}, nil
}

// Close 释放连接
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
