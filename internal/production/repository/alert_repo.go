package repository

import (
	"context"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"gorm.io/gorm"
)

// ==================== KPI ====================

type KPIRepository struct {
	db *gorm.DB
}

func NewKPIRepository(db *gorm.DB) *KPIRepository {
	return &KPIRepository{db: db}
}

func (r *KPIRepository) Create(ctx context.Context, k *entity.ProductionKPI) error {
	return TranslateError(r.db.WithContext(ctx).Create(k).Error)
}

// ListSince 指定时间后的记录，最新在前
func (r *KPIRepository) ListSince(ctx context.Context, since time.Time, line string, limit int) ([]entity.ProductionKPI, error) {
	var list []entity.ProductionKPI
	q := r.db.WithContext(ctx).Where("measured_at >= ?", since)
	if line != "" && line != entity.LineAll {
		q = q.Where("line = ?", line)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("measured_at DESC").Find(&list).Error
	return list, err
}

// ListByLevels 按预警等级查询
func (r *KPIRepository) ListByLevels(ctx context.Context, levels []string) ([]entity.ProductionKPI, error) {
	var list []entity.ProductionKPI
	err := r.db.WithContext(ctx).
		Where("alert_level IN ?", levels).
		Order("measured_at DESC").
		Find(&list).Error
	return list, err
}

// ==================== 批次库存 ====================

type InventoryQuantRepository struct {
	db *gorm.DB
}

func NewInventoryQuantRepository(db *gorm.DB) *InventoryQuantRepository {
	return &InventoryQuantRepository{db: db}
}

func (r *InventoryQuantRepository) Create(ctx context.Context, q *entity.InventoryQuant) error {
	return TranslateError(r.db.WithContext(ctx).Create(q).Error)
}

func (r *InventoryQuantRepository) Save(ctx context.Context, q *entity.InventoryQuant) error {
	return TranslateError(r.db.WithContext(ctx).Save(q).Error)
}

func (r *InventoryQuantRepository) FindByID(ctx context.Context, id string) (*entity.InventoryQuant, error) {
	var q entity.InventoryQuant
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &q, nil
}

// ListWithExpiry 有过期日期的批次
func (r *InventoryQuantRepository) ListWithExpiry(ctx context.Context) ([]entity.InventoryQuant, error) {
	var list []entity.InventoryQuant
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL").
		Order("expiry_date ASC, product_code ASC").
		Find(&list).Error
	return list, err
}

// UpdateSweep 写回过期扫描结果
func (r *InventoryQuantRepository) UpdateSweep(ctx context.Context, id string, days int, alert bool, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.InventoryQuant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"days_to_expiry": days,
			"expiry_alert":   alert,
			"swept_at":       at,
		}).Error
}

func (r *InventoryQuantRepository) ListByQualityStatus(ctx context.Context, statuses []string) ([]entity.InventoryQuant, error) {
	var list []entity.InventoryQuant
	err := r.db.WithContext(ctx).
		Where("quality_status IN ?", statuses).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}
