package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"gorm.io/gorm"
)

// ==================== 工单 ====================

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Orders", "Stages").Create(wo).Error)
}

func (r *WorkOrderRepository) Save(ctx context.Context, wo *entity.WorkOrder) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Orders", "Stages").Save(wo).Error)
}

// FindByID 含订单与工序明细
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_number ASC")
		}).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Stages.Materials").
		Preload("Stages.Personnel").
		First(&wo, "id = ?", id).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &wo, nil
}

// LockByID 锁定工单行，状态迁移期间持有
func (r *WorkOrderRepository) LockByID(ctx context.Context, id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.WithContext(ctx).
		Clauses(lockForUpdate(false)).
		First(&wo, "id = ?", id).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &wo, nil
}

func (r *WorkOrderRepository) ExistsByGroup(ctx context.Context, groupID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.WorkOrder{}).Where("group_id = ?", groupID).Count(&count).Error
	return count > 0, err
}

type WorkOrderListParams struct {
	State   string
	Keyword string
	Page    int
	Size    int
}

func (r *WorkOrderRepository) List(ctx context.Context, params WorkOrderListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	if params.State != "" {
		query = query.Where("state = ?", params.State)
	}
	if params.Keyword != "" {
		kw := likePattern(params.Keyword)
		query = query.Where("LOWER(number) LIKE ? OR LOWER(group_id) LIKE ?", kw, kw)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := normalizePage(params.Page, params.Size)
	var list []entity.WorkOrder
	err := query.Order("number DESC").Offset((page - 1) * size).Limit(size).Find(&list).Error
	return list, total, err
}

// ListOpen 未完工的工单
func (r *WorkOrderRepository) ListOpen(ctx context.Context) ([]entity.WorkOrder, error) {
	var list []entity.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Where("state <> ?", entity.WOStateCompleted).
		Order("number ASC").
		Find(&list).Error
	return list, err
}

// NextNumber 生成工单号 OT-YYYY-NNNN，按年流水
func (r *WorkOrderRepository) NextNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := "OT-" + strconv.Itoa(now.Year()) + "-"
	seq, err := nextSequence(r.db.WithContext(ctx), &entity.WorkOrder{}, "number", prefix)
	if err != nil {
		return "", err
	}
	return formatSequence(prefix, seq), nil
}

// ==================== 工序 ====================

type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) Create(ctx context.Context, st *entity.Stage) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Materials", "Personnel").Create(st).Error)
}

func (r *StageRepository) Save(ctx context.Context, st *entity.Stage) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Materials", "Personnel").Save(st).Error)
}

func (r *StageRepository) FindByID(ctx context.Context, id string) (*entity.Stage, error) {
	var st entity.Stage
	err := r.db.WithContext(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Personnel", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&st, "id = ?", id).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &st, nil
}

func (r *StageRepository) ListByWorkOrder(ctx context.Context, woID string) ([]entity.Stage, error) {
	var list []entity.Stage
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Preload("Personnel").
		Where("work_order_id = ?", woID).
		Order("sequence ASC").
		Find(&list).Error
	return list, err
}

// HasSuccessor 是否已存在后续工序
func (r *StageRepository) HasSuccessor(ctx context.Context, woID string, sequence int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Stage{}).
		Where("work_order_id = ? AND sequence > ?", woID, sequence).
		Count(&count).Error
	return count > 0, err
}

// CountStarted 进行中的工序数量
func (r *StageRepository) CountStarted(ctx context.Context, woID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Stage{}).
		Where("work_order_id = ? AND state = ?", woID, entity.StageStateStarted).
		Count(&count).Error
	return count, err
}

func (r *StageRepository) CreateMaterial(ctx context.Context, line *entity.StageMaterialLine) error {
	return TranslateError(r.db.WithContext(ctx).Create(line).Error)
}

func (r *StageRepository) SaveMaterial(ctx context.Context, line *entity.StageMaterialLine) error {
	return TranslateError(r.db.WithContext(ctx).Save(line).Error)
}

func (r *StageRepository) FindMaterial(ctx context.Context, stageID, lineID string) (*entity.StageMaterialLine, error) {
	var line entity.StageMaterialLine
	if err := r.db.WithContext(ctx).First(&line, "id = ? AND stage_id = ?", lineID, stageID).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &line, nil
}

func (r *StageRepository) CreatePersonnel(ctx context.Context, line *entity.StagePersonnelLine) error {
	return TranslateError(r.db.WithContext(ctx).Create(line).Error)
}

func (r *StageRepository) SavePersonnel(ctx context.Context, line *entity.StagePersonnelLine) error {
	return TranslateError(r.db.WithContext(ctx).Save(line).Error)
}

func (r *StageRepository) FindPersonnel(ctx context.Context, stageID, lineID string) (*entity.StagePersonnelLine, error) {
	var line entity.StagePersonnelLine
	if err := r.db.WithContext(ctx).First(&line, "id = ? AND stage_id = ?", lineID, stageID).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &line, nil
}
