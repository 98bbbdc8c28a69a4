package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sanventru/odoomegastock-sub001/internal/production/cutting"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"go.uber.org/zap"
)

const (
	catalogCacheKey   = "prd:catalog:snapshot"
	defaultCatalogTTL = 5 * time.Minute
)

// CatalogSnapshot 排产使用的基础数据快照
type CatalogSnapshot struct {
	ReelWidths []float64      `json:"reel_widths"`
	Flutes     []entity.Flute `json:"flutes"`
	TakenAt    time.Time      `json:"taken_at"`
}

// FluteByCode 按代码查楞型，未找到返回 nil
func (s *CatalogSnapshot) FluteByCode(code string) *entity.Flute {
	code = entity.NormalizeFluteCode(code)
	for i := range s.Flutes {
		if s.Flutes[i].Code == code {
			return &s.Flutes[i]
		}
	}
	return nil
}

// CatalogCache 基础数据快照缓存；rdb 为空时每次直接查库
type CatalogCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CatalogCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Snapshot 取快照，缓存未命中时从仓库加载并回写
func (c *CatalogCache) Snapshot(ctx context.Context, repos *repository.Repositories) (*CatalogSnapshot, error) {
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, catalogCacheKey).Bytes()
		if err == nil {
			var snap CatalogSnapshot
			if jsonErr := json.Unmarshal(cached, &snap); jsonErr == nil {
				return &snap, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	widths, err := repos.Bobina.ActiveWidths(ctx)
	if err != nil {
		return nil, err
	}
	flutes, err := repos.Flute.List(ctx)
	if err != nil {
		return nil, err
	}
	snap := &CatalogSnapshot{
		ReelWidths: cutting.NormalizeReels(widths),
		Flutes:     flutes,
		TakenAt:    time.Now(),
	}

	if c.rdb != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := c.rdb.Set(ctx, catalogCacheKey, data, c.ttl).Err(); err != nil {
				c.logger.Warn("catalog cache write failed", zap.Error(err))
			}
		}
	}
	return snap, nil
}

// Invalidate 基础数据变更后清除缓存
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, catalogCacheKey).Err(); err != nil {
		c.logger.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}
