package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/cutting"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
)

// 预计工时：基础速度 100 m/h，按组合类型折算
const baseMetersPerHour = 100.0

var speedFactors = map[string]float64{
	cutting.CombinedIndividual: 1.2,
	cutting.CombinedDupla:      1.0,
	cutting.CombinedTripla:     0.8,
	cutting.CombinedMultiple:   0.8,
}

// EstimatedHours 按米数与组合类型估算工时
func EstimatedHours(meters float64, combinedType string) float64 {
	f, ok := speedFactors[combinedType]
	if !ok {
		f = 1.0
	}
	return round2(meters / (baseMetersPerHour * f))
}

// WorkOrderService 工单服务
type WorkOrderService struct {
	repos  *repository.Repositories
	hub    *sse.Hub
	store  *ReportStore
	logger *zap.Logger
	now    func() time.Time
}

func NewWorkOrderService(repos *repository.Repositories, hub *sse.Hub, store *ReportStore, logger *zap.Logger, now func() time.Time) *WorkOrderService {
	return &WorkOrderService{repos: repos, hub: hub, store: store, logger: logger, now: now}
}

type GenerateRequest struct {
	RequiresFolding bool `json:"requiere_doblez"`
}

// Aggregates 工单汇总值（由订单推导）
type Aggregates struct {
	OrderCount        int     `json:"order_count"`
	LinearMetersTotal float64 `json:"metros_lineales_totales"`
	CutsTotal         int     `json:"cortes_totales"`
	WasteTotal        float64 `json:"sobrante"`
	EfficiencyAvg     float64 `json:"eficiencia"`
	BobinaUsed        float64 `json:"bobina_utilizada"`
	WidthUsed         float64 `json:"ancho_utilizado"`
	CombinedType      string  `json:"tipo_combinacion"`
}

func aggregate(orders []entity.ProductionOrder) Aggregates {
	a := Aggregates{OrderCount: len(orders)}
	if len(orders) == 0 {
		return a
	}
	first := orders[0]
	a.BobinaUsed = first.BobinaUsed
	a.WidthUsed = first.WidthUsed
	a.CombinedType = first.CombinedType
	var eff float64
	for _, po := range orders {
		a.LinearMetersTotal += po.LinearMetersPlanned
		a.CutsTotal += po.CutsPlanned
		a.WasteTotal += po.CutoffWaste
		eff += po.Efficiency
	}
	a.LinearMetersTotal = round2(a.LinearMetersTotal)
	a.WasteTotal = round2(a.WasteTotal)
	a.EfficiencyAvg = round2(eff / float64(len(orders)))
	return a
}

// Generate 为已排产未建单的分组生成工单
func (s *WorkOrderService) Generate(ctx context.Context, req *GenerateRequest, userID string) ([]entity.WorkOrder, error) {
	var created []entity.WorkOrder
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		orders, err := tx.ProductionOrder.LockUngenerated(ctx)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return apperr.Wrap(apperr.ErrPlanningInput, "no planned orders without work order")
		}

		var groupIDs []string
		groups := make(map[string][]entity.ProductionOrder)
		for _, po := range orders {
			if _, ok := groups[po.GroupID]; !ok {
				groupIDs = append(groupIDs, po.GroupID)
			}
			groups[po.GroupID] = append(groups[po.GroupID], po)
		}

		now := s.now()
		for _, gid := range groupIDs {
			exists, err := tx.WorkOrder.ExistsByGroup(ctx, gid)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Wrap(apperr.ErrDuplicateWorkOrder, "group %s already has a work order", gid)
			}
			number, err := tx.WorkOrder.NextNumber(ctx, now)
			if err != nil {
				return fmt.Errorf("next work order number: %w", err)
			}
			members := groups[gid]
			agg := aggregate(members)
			wo := entity.WorkOrder{
				ID:                uuid.New().String(),
				Number:            number,
				GroupID:           gid,
				CombinedType:      agg.CombinedType,
				BobinaUsed:        agg.BobinaUsed,
				WidthUsed:         agg.WidthUsed,
				WasteTotal:        agg.WasteTotal,
				EfficiencyAvg:     agg.EfficiencyAvg,
				LinearMetersTotal: agg.LinearMetersTotal,
				CutsTotal:         agg.CutsTotal,
				RequiresFolding:   req.RequiresFolding,
				State:             entity.WOStateProgrammed,
				EstimatedHours:    EstimatedHours(agg.LinearMetersTotal, agg.CombinedType),
				CreatedBy:         userID,
			}
			if err := tx.WorkOrder.Create(ctx, &wo); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return apperr.Wrap(apperr.ErrDuplicateWorkOrder, "group %s already has a work order", gid)
				}
				return fmt.Errorf("create work order: %w", err)
			}
			ids := make([]string, 0, len(members))
			for _, po := range members {
				ids = append(ids, po.ID)
			}
			if err := tx.ProductionOrder.AssignWorkOrder(ctx, ids, wo.ID); err != nil {
				return fmt.Errorf("assign orders: %w", err)
			}
			created = append(created, wo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, wo := range created {
		s.hub.Publish(sse.EventWorkOrderGenerated, map[string]string{"work_order_id": wo.ID, "number": wo.Number, "group_id": wo.GroupID})
	}
	s.logger.Info("work orders generated", zap.Int("count", len(created)), zap.String("user_id", userID))
	return created, nil
}

// Start 开工：programmed -> preprinter，订单转为生产中
func (s *WorkOrderService) Start(ctx context.Context, id string) (*entity.WorkOrder, error) {
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		wo, err := tx.WorkOrder.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if wo.State != entity.WOStateProgrammed {
			return apperr.Wrap(apperr.ErrStateMachineIllegal, "work order %s is %s, expected %s", wo.Number, wo.State, entity.WOStateProgrammed)
		}
		now := s.now()
		stage := entity.Stage{
			ID:          uuid.New().String(),
			WorkOrderID: wo.ID,
			Kind:        entity.StagePreprinter,
			Sequence:    1,
			State:       entity.StageStateStarted,
			StartTime:   now,
		}
		if err := tx.Stage.Create(ctx, &stage); err != nil {
			return fmt.Errorf("create stage: %w", err)
		}
		wo.State = entity.WOStatePreprinter
		wo.ActiveStageID = &stage.ID
		wo.StartedAt = &now
		if err := tx.WorkOrder.Save(ctx, wo); err != nil {
			return err
		}
		return tx.ProductionOrder.UpdateStatusByWorkOrder(ctx, wo.ID, entity.POStatusInProcess)
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(sse.EventWorkOrderStarted, map[string]string{"work_order_id": id})
	return s.repos.WorkOrder.FindByID(ctx, id)
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.repos.WorkOrder.FindByID(ctx, id)
}

func (s *WorkOrderService) List(ctx context.Context, params repository.WorkOrderListParams) ([]entity.WorkOrder, int64, error) {
	return s.repos.WorkOrder.List(ctx, params)
}

// AggregateReport 存储值与重新推导值对比
type AggregateReport struct {
	WorkOrderID string     `json:"work_order_id"`
	Number      string     `json:"number"`
	Stored      Aggregates `json:"stored"`
	Derived     Aggregates `json:"derived"`
	Consistent  bool       `json:"consistent"`
}

func (s *WorkOrderService) Aggregates(ctx context.Context, id string) (*AggregateReport, error) {
	wo, err := s.repos.WorkOrder.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return compareAggregates(wo, wo.Orders), nil
}

func compareAggregates(wo *entity.WorkOrder, orders []entity.ProductionOrder) *AggregateReport {
	stored := Aggregates{
		OrderCount:        len(orders),
		LinearMetersTotal: wo.LinearMetersTotal,
		CutsTotal:         wo.CutsTotal,
		WasteTotal:        wo.WasteTotal,
		EfficiencyAvg:     wo.EfficiencyAvg,
		BobinaUsed:        wo.BobinaUsed,
		WidthUsed:         wo.WidthUsed,
		CombinedType:      wo.CombinedType,
	}
	derived := aggregate(orders)
	consistent := len(orders) > 0 &&
		closeEnough(stored.LinearMetersTotal, derived.LinearMetersTotal) &&
		stored.CutsTotal == derived.CutsTotal &&
		closeEnough(stored.WasteTotal, derived.WasteTotal) &&
		closeEnough(stored.EfficiencyAvg, derived.EfficiencyAvg) &&
		stored.BobinaUsed == derived.BobinaUsed
	for _, po := range orders {
		if po.GroupID != wo.GroupID || po.BobinaUsed != wo.BobinaUsed {
			consistent = false
		}
	}
	return &AggregateReport{
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		Stored:      stored,
		Derived:     derived,
		Consistent:  consistent,
	}
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

// ExportReport 导出工单 Excel
func (s *WorkOrderService) ExportReport(ctx context.Context, id string) ([]byte, string, error) {
	wo, err := s.repos.WorkOrder.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := buildWorkOrderReport(wo)
	if err != nil {
		return nil, "", err
	}
	filename := wo.Number + ".xlsx"
	if wo.State == entity.WOStateCompleted && s.store.Enabled() {
		if _, err := s.store.Put(ctx, "ordenes/"+filename, data); err != nil {
			s.logger.Warn("archive work order report failed", zap.String("number", wo.Number), zap.Error(err))
		}
	}
	return data, filename, nil
}
