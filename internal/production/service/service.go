package service

import (
	"context"
	"math"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Recipe      *RecipeService
	Catalog     *CatalogService
	Product     *ProductService
	Order       *OrderService
	Consumption *ConsumptionService
	Planning    *PlanningService
	WorkOrder   *WorkOrderService
	Stage       *StageService
	Alert       *AlertService
	Import      *ImportService
	Legacy      *LegacyService
}

// Deps 构造服务所需的外部依赖；Redis/MinIO/Hub 可为空
type Deps struct {
	Repos  *repository.Repositories
	Config *config.Config
	Logger *zap.Logger
	Redis  *redis.Client
	MinIO  *minio.Client
	Hub    *sse.Hub
	Now    func() time.Time
}

// NewServices 创建服务集合
func NewServices(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}

	cache := NewCatalogCache(d.Redis, cfg.Redis.CatalogTTL, d.Logger)
	store := NewReportStore(d.MinIO, cfg.MinIO.Bucket, d.Logger)

	workOrderSvc := NewWorkOrderService(d.Repos, d.Hub, store, d.Logger, d.Now)

	return &Services{
		Recipe:      NewRecipeService(d.Repos, cache, d.Logger),
		Catalog:     NewCatalogService(d.Repos, cache, d.Logger),
		Product:     NewProductService(d.Repos, cfg.Products.AutoProductCoding),
		Order:       NewOrderService(d.Repos),
		Consumption: NewConsumptionService(d.Repos, cfg.Planning.WasteUplift),
		Planning:    NewPlanningService(d.Repos, cache, store, d.Hub, d.Logger, cfg.Planning, d.Now),
		WorkOrder:   workOrderSvc,
		Stage:       NewStageService(d.Repos, d.Hub, d.Logger, d.Now),
		Alert:       NewAlertService(d.Repos, cfg.Alerts.ExpiryAlertDays, d.Logger, d.Now),
		Import:      NewImportService(d.Repos, d.Logger),
		Legacy:      NewLegacyService(d.Repos, d.Logger),
	}
}

// inTx 在事务中执行，回调拿到绑定事务的仓库集合
func inTx(ctx context.Context, repos *repository.Repositories, fn func(tx *repository.Repositories) error) error {
	return repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos.WithTx(tx))
	})
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
