package repository

import (
	"context"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"gorm.io/gorm"
)

// ==================== 生产订单 ====================

type ProductionOrderRepository struct {
	db *gorm.DB
}

func NewProductionOrderRepository(db *gorm.DB) *ProductionOrderRepository {
	return &ProductionOrderRepository{db: db}
}

func (r *ProductionOrderRepository) Create(ctx context.Context, po *entity.ProductionOrder) error {
	return TranslateError(r.db.WithContext(ctx).Create(po).Error)
}

func (r *ProductionOrderRepository) Save(ctx context.Context, po *entity.ProductionOrder) error {
	return TranslateError(r.db.WithContext(ctx).Save(po).Error)
}

func (r *ProductionOrderRepository) FindByID(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	var po entity.ProductionOrder
	if err := r.db.WithContext(ctx).First(&po, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &po, nil
}

func (r *ProductionOrderRepository) FindByOrderNumber(ctx context.Context, number string) (*entity.ProductionOrder, error) {
	var po entity.ProductionOrder
	if err := r.db.WithContext(ctx).First(&po, "order_number = ?", number).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &po, nil
}

type OrderListParams struct {
	Status   string
	Client   string
	TestName string
	GroupID  string
	Keyword  string
	Page     int
	Size     int
}

func (r *ProductionOrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.ProductionOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionOrder{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Client != "" {
		query = query.Where("LOWER(client) LIKE ?", likePattern(params.Client))
	}
	if params.TestName != "" {
		query = query.Where("test_name = ?", params.TestName)
	}
	if params.GroupID != "" {
		query = query.Where("group_id = ?", params.GroupID)
	}
	if params.Keyword != "" {
		kw := likePattern(params.Keyword)
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(product_code) LIKE ? OR LOWER(description) LIKE ?", kw, kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(params.Page, params.Size)
	var orders []entity.ProductionOrder
	err := query.Order("created_at DESC, order_number ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&orders).Error
	return orders, total, err
}

// LockPending 锁定待排产订单；ids 为空时锁定全部待排产订单
func (r *ProductionOrderRepository) LockPending(ctx context.Context, ids []string) ([]entity.ProductionOrder, error) {
	var orders []entity.ProductionOrder
	q := r.db.WithContext(ctx).
		Clauses(lockForUpdate(true)).
		Where("status = ?", entity.POStatusPending)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	if err := q.Order("order_number ASC").Find(&orders).Error; err != nil {
		return nil, TranslateError(err)
	}
	return orders, nil
}

// LockPendingGroups 锁定指定分组中尚未生成工单的订单
func (r *ProductionOrderRepository) LockPendingGroups(ctx context.Context, groupIDs []string) ([]entity.ProductionOrder, error) {
	var orders []entity.ProductionOrder
	if len(groupIDs) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(lockForUpdate(true)).
		Where("group_id IN ? AND work_order_id IS NULL AND status = ?", groupIDs, entity.POStatusPending).
		Order("order_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return orders, nil
}

// LockUngenerated 锁定已排产但尚未生成工单的订单，按分组排序
func (r *ProductionOrderRepository) LockUngenerated(ctx context.Context) ([]entity.ProductionOrder, error) {
	var orders []entity.ProductionOrder
	err := r.db.WithContext(ctx).
		Clauses(lockForUpdate(true)).
		Where("group_id <> '' AND work_order_id IS NULL AND status = ?", entity.POStatusPending).
		Order("group_id ASC, order_number ASC").
		Find(&orders).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return orders, nil
}

func (r *ProductionOrderRepository) ListByGroup(ctx context.Context, groupID string) ([]entity.ProductionOrder, error) {
	var orders []entity.ProductionOrder
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("order_number ASC").Find(&orders).Error
	return orders, err
}

func (r *ProductionOrderRepository) ListByWorkOrder(ctx context.Context, woID string) ([]entity.ProductionOrder, error) {
	var orders []entity.ProductionOrder
	err := r.db.WithContext(ctx).Where("work_order_id = ?", woID).Order("order_number ASC").Find(&orders).Error
	return orders, err
}

// UpdateStatusByWorkOrder 批量更新工单下订单状态
func (r *ProductionOrderRepository) UpdateStatusByWorkOrder(ctx context.Context, woID, status string) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionOrder{}).
		Where("work_order_id = ?", woID).
		Update("status", status).Error
}

// AssignWorkOrder 把分组订单挂到工单
func (r *ProductionOrderRepository) AssignWorkOrder(ctx context.Context, ids []string, woID string) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionOrder{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"work_order_id": woID,
			"status":        entity.POStatusOT,
		}).Error
}

// ==================== 排产记录 ====================

type PlanningRunRepository struct {
	db *gorm.DB
}

func NewPlanningRunRepository(db *gorm.DB) *PlanningRunRepository {
	return &PlanningRunRepository{db: db}
}

func (r *PlanningRunRepository) Create(ctx context.Context, run *entity.PlanningRun) error {
	return TranslateError(r.db.WithContext(ctx).Create(run).Error)
}

func (r *PlanningRunRepository) SetReportObject(ctx context.Context, id, object string) error {
	return r.db.WithContext(ctx).Model(&entity.PlanningRun{}).Where("id = ?", id).Update("report_object", object).Error
}

func (r *PlanningRunRepository) FindByID(ctx context.Context, id string) (*entity.PlanningRun, error) {
	var run entity.PlanningRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &run, nil
}

func (r *PlanningRunRepository) List(ctx context.Context, page, size int) ([]entity.PlanningRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.PlanningRun{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size = normalizePage(page, size)
	var runs []entity.PlanningRun
	err := query.Order("code DESC").Offset((page - 1) * size).Limit(size).Find(&runs).Error
	return runs, total, err
}

// NextCode 生成排产编号 PLN-YYYYMMDD-NNNN
func (r *PlanningRunRepository) NextCode(ctx context.Context, now time.Time) (string, error) {
	prefix := "PLN-" + now.Format("20060102") + "-"
	seq, err := nextSequence(r.db.WithContext(ctx), &entity.PlanningRun{}, "code", prefix)
	if err != nil {
		return "", err
	}
	return formatSequence(prefix, seq), nil
}
