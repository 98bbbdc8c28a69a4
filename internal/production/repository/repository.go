package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 错误定义
var (
	ErrNotFound  = apperr.ErrNotFound
	ErrDuplicate = errors.New("duplicate key")
)

// postgres 错误码
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	Recipe          *PaperRecipeRepository
	Flute           *FluteRepository
	Bobina          *BobinaRepository
	Product         *ProductRepository
	WorkCenter      *WorkCenterRepository
	ProductionOrder *ProductionOrderRepository
	PlanningRun     *PlanningRunRepository
	WorkOrder       *WorkOrderRepository
	Stage           *StageRepository
	KPI             *KPIRepository
	Quant           *InventoryQuantRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:              db,
		Recipe:          NewPaperRecipeRepository(db),
		Flute:           NewFluteRepository(db),
		Bobina:          NewBobinaRepository(db),
		Product:         NewProductRepository(db),
		WorkCenter:      NewWorkCenterRepository(db),
		ProductionOrder: NewProductionOrderRepository(db),
		PlanningRun:     NewPlanningRunRepository(db),
		WorkOrder:       NewWorkOrderRepository(db),
		Stage:           NewStageRepository(db),
		KPI:             NewKPIRepository(db),
		Quant:           NewInventoryQuantRepository(db),
	}
}

// DB 返回底层db用于事务
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// WithTx 绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// TranslateError 把驱动错误转换为业务错误
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", apperr.ErrConcurrentPlanning, pgErr.Message)
		}
	}
	return err
}

// lockForUpdate 行锁；NOWAIT 时冲突立即报错
func lockForUpdate(nowait bool) clause.Locking {
	l := clause.Locking{Strength: "UPDATE"}
	if nowait {
		l.Options = "NOWAIT"
	}
	return l
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return page, size
}

func likePattern(keyword string) string {
	return "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
}

// nextSequence 取 prefix 下最大数字流水号 + 1；非数字后缀忽略
func nextSequence(db *gorm.DB, model interface{}, column, prefix string) (int, error) {
	var values []string
	if err := db.Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Pluck(column, &values).Error; err != nil {
		return 0, err
	}
	max := 0
	for _, v := range values {
		n, err := strconv.Atoi(strings.TrimPrefix(v, prefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func formatSequence(prefix string, seq int) string {
	return fmt.Sprintf("%s%04d", prefix, seq)
}
