package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// StageService 工序流转与记录
type StageService struct {
	repos  *repository.Repositories
	hub    *sse.Hub
	logger *zap.Logger
	now    func() time.Time
}

func NewStageService(repos *repository.Repositories, hub *sse.Hub, logger *zap.Logger, now func() time.Time) *StageService {
	return &StageService{repos: repos, hub: hub, logger: logger, now: now}
}

// FinishResult 完工结果
type FinishResult struct {
	Stage     *entity.Stage     `json:"stage"`
	Next      *entity.Stage     `json:"next,omitempty"`
	WorkOrder *entity.WorkOrder `json:"work_order"`
	Completed bool              `json:"completed"`
}

// Finish 完成工序并创建后续工序；最后一道工序完成时工单完工、订单交付
func (s *StageService) Finish(ctx context.Context, stageID string) (*FinishResult, error) {
	res := &FinishResult{}
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		current, err := tx.Stage.FindByID(ctx, stageID)
		if err != nil {
			return err
		}
		wo, err := tx.WorkOrder.LockByID(ctx, current.WorkOrderID)
		if err != nil {
			return err
		}
		// 持锁后重读，避免并发完工
		stage, err := tx.Stage.FindByID(ctx, stageID)
		if err != nil {
			return err
		}
		if stage.State == entity.StageStateFinished {
			return apperr.Wrap(apperr.ErrStageAlreadyFinished, "stage %s (%s)", stage.ID, stage.Kind)
		}
		if wo.State != stage.Kind {
			return apperr.Wrap(apperr.ErrStateMachineIllegal, "work order %s is %s, stage is %s", wo.Number, wo.State, stage.Kind)
		}
		if wo.ActiveStageID == nil || *wo.ActiveStageID != stage.ID {
			return apperr.Wrap(apperr.ErrStateMachineIllegal, "stage %s is not the active stage of %s", stage.ID, wo.Number)
		}
		hasNext, err := tx.Stage.HasSuccessor(ctx, wo.ID, stage.Sequence)
		if err != nil {
			return err
		}
		if hasNext {
			return apperr.Wrap(apperr.ErrStateMachineIllegal, "stage %s already has a successor", stage.ID)
		}

		orders, err := tx.ProductionOrder.ListByWorkOrder(ctx, wo.ID)
		if err != nil {
			return err
		}
		route := routingFor(wo, orders)
		nextKind, err := route.next(stage.Kind)
		if err != nil {
			return err
		}

		now := s.now()
		stage.State = entity.StageStateFinished
		stage.EndTime = &now
		if err := tx.Stage.Save(ctx, stage); err != nil {
			return fmt.Errorf("finish stage: %w", err)
		}
		wo.Progress = route.progress(stage.Sequence)

		if nextKind == entity.WOStateCompleted {
			wo.State = entity.WOStateCompleted
			wo.ActiveStageID = nil
			wo.CompletedAt = &now
			if wo.StartedAt != nil {
				wo.ActualHours = round2(now.Sub(*wo.StartedAt).Hours())
			}
			wo.Progress = 100
			if err := tx.ProductionOrder.UpdateStatusByWorkOrder(ctx, wo.ID, entity.POStatusDelivered); err != nil {
				return fmt.Errorf("deliver orders: %w", err)
			}
			res.Completed = true
		} else {
			next := &entity.Stage{
				ID:          uuid.New().String(),
				WorkOrderID: wo.ID,
				Kind:        nextKind,
				Sequence:    stage.Sequence + 1,
				State:       entity.StageStateStarted,
				StartTime:   now,
			}
			if err := tx.Stage.Create(ctx, next); err != nil {
				return fmt.Errorf("create next stage: %w", err)
			}
			wo.State = nextKind
			wo.ActiveStageID = &next.ID
			res.Next = next
		}
		if err := tx.WorkOrder.Save(ctx, wo); err != nil {
			return err
		}
		res.Stage = stage
		res.WorkOrder = wo
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(sse.EventStageFinished, map[string]string{
		"work_order_id": res.WorkOrder.ID,
		"stage_id":      res.Stage.ID,
		"kind":          res.Stage.Kind,
		"state":         res.WorkOrder.State,
	})
	if res.Completed {
		s.hub.Publish(sse.EventWorkOrderCompleted, map[string]string{"work_order_id": res.WorkOrder.ID, "number": res.WorkOrder.Number})
		s.logger.Info("work order completed", zap.String("number", res.WorkOrder.Number), zap.Float64("actual_hours", res.WorkOrder.ActualHours))
	}
	return res, nil
}

// FinishActive 完成工单当前工序
func (s *StageService) FinishActive(ctx context.Context, woID string) (*FinishResult, error) {
	wo, err := s.repos.WorkOrder.FindByID(ctx, woID)
	if err != nil {
		return nil, err
	}
	if wo.ActiveStageID == nil {
		return nil, apperr.Wrap(apperr.ErrStateMachineIllegal, "work order %s has no active stage (%s)", wo.Number, wo.State)
	}
	return s.Finish(ctx, *wo.ActiveStageID)
}

func (s *StageService) Get(ctx context.Context, id string) (*entity.Stage, error) {
	return s.repos.Stage.FindByID(ctx, id)
}

func (s *StageService) ListByWorkOrder(ctx context.Context, woID string) ([]entity.Stage, error) {
	if _, err := s.repos.WorkOrder.FindByID(ctx, woID); err != nil {
		return nil, err
	}
	return s.repos.Stage.ListByWorkOrder(ctx, woID)
}

// startedStage 仅进行中的工序可记录
func (s *StageService) startedStage(ctx context.Context, repos *repository.Repositories, stageID string) (*entity.Stage, error) {
	st, err := repos.Stage.FindByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if st.State != entity.StageStateStarted {
		return nil, apperr.Wrap(apperr.ErrStateMachineIllegal, "stage %s is %s", st.ID, st.State)
	}
	return st, nil
}

// ==================== 耗料 ====================

type MaterialRequest struct {
	ProductCode   string   `json:"product_code"`
	Description   string   `json:"description"`
	Quantity      *float64 `json:"quantity"`
	Unit          string   `json:"unit"`
	InitialWeight *float64 `json:"initial_weight"`
	FinalWeight   *float64 `json:"final_weight"`
}

func applyMaterial(line *entity.StageMaterialLine, req *MaterialRequest) error {
	if c := strings.TrimSpace(req.ProductCode); c != "" {
		line.ProductCode = c
	}
	if req.Description != "" {
		line.Description = req.Description
	}
	if req.Unit != "" {
		line.Unit = req.Unit
	}
	if req.InitialWeight != nil {
		line.InitialWeight = req.InitialWeight
	}
	if req.FinalWeight != nil {
		line.FinalWeight = req.FinalWeight
	}
	switch {
	case req.Quantity != nil:
		line.Quantity = *req.Quantity
	case line.InitialWeight != nil && line.FinalWeight != nil:
		// 称重耗料 = 初重 - 余重
		line.Quantity = round2(*line.InitialWeight - *line.FinalWeight)
	}
	if line.ProductCode == "" {
		return apperr.Wrap(apperr.ErrInterface, "product code is required")
	}
	if line.Quantity <= 0 {
		return apperr.Wrap(apperr.ErrInterface, "material quantity must be positive")
	}
	return nil
}

func (s *StageService) AddMaterial(ctx context.Context, stageID string, req *MaterialRequest) (*entity.StageMaterialLine, error) {
	var line *entity.StageMaterialLine
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		if _, err := s.startedStage(ctx, tx, stageID); err != nil {
			return err
		}
		line = &entity.StageMaterialLine{ID: uuid.New().String(), StageID: stageID, Unit: "kg"}
		if err := applyMaterial(line, req); err != nil {
			return err
		}
		return tx.Stage.CreateMaterial(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *StageService) UpdateMaterial(ctx context.Context, stageID, lineID string, req *MaterialRequest) (*entity.StageMaterialLine, error) {
	var line *entity.StageMaterialLine
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		if _, err := s.startedStage(ctx, tx, stageID); err != nil {
			return err
		}
		var err error
		line, err = tx.Stage.FindMaterial(ctx, stageID, lineID)
		if err != nil {
			return err
		}
		if err := applyMaterial(line, req); err != nil {
			return err
		}
		return tx.Stage.SaveMaterial(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ==================== 人员 ====================

type PersonnelRequest struct {
	Employee  string                 `json:"employee"`
	Role      string                 `json:"role"`
	Shift     string                 `json:"shift"`
	StartTime *time.Time             `json:"start_time"`
	EndTime   *time.Time             `json:"end_time"`
	Counts    map[string]interface{} `json:"counts"`
}

var validShifts = map[string]bool{
	entity.ShiftManana: true,
	entity.ShiftTarde:  true,
	entity.ShiftNoche:  true,
}

func applyPersonnel(line *entity.StagePersonnelLine, req *PersonnelRequest) error {
	if e := strings.TrimSpace(req.Employee); e != "" {
		line.Employee = e
	}
	if req.Role != "" {
		line.Role = req.Role
	}
	if req.Shift != "" {
		if !validShifts[req.Shift] {
			return apperr.Wrap(apperr.ErrInterface, "unknown shift %q", req.Shift)
		}
		line.Shift = req.Shift
	}
	if req.StartTime != nil {
		line.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		line.EndTime = req.EndTime
	}
	if line.StartTime != nil && line.EndTime != nil && line.EndTime.Before(*line.StartTime) {
		return apperr.Wrap(apperr.ErrInterface, "end time before start time")
	}
	if req.Counts != nil {
		if line.Counts == nil {
			line.Counts = datatypes.JSONMap{}
		}
		for k, v := range req.Counts {
			line.Counts[k] = v
		}
	}
	if line.Employee == "" {
		return apperr.Wrap(apperr.ErrInterface, "employee is required")
	}
	line.DeriveHours()
	line.TotalHours = round2(line.TotalHours)
	return nil
}

func (s *StageService) AddPersonnel(ctx context.Context, stageID string, req *PersonnelRequest) (*entity.StagePersonnelLine, error) {
	var line *entity.StagePersonnelLine
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		if _, err := s.startedStage(ctx, tx, stageID); err != nil {
			return err
		}
		line = &entity.StagePersonnelLine{ID: uuid.New().String(), StageID: stageID}
		if err := applyPersonnel(line, req); err != nil {
			return err
		}
		return tx.Stage.CreatePersonnel(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *StageService) UpdatePersonnel(ctx context.Context, stageID, lineID string, req *PersonnelRequest) (*entity.StagePersonnelLine, error) {
	var line *entity.StagePersonnelLine
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		if _, err := s.startedStage(ctx, tx, stageID); err != nil {
			return err
		}
		var err error
		line, err = tx.Stage.FindPersonnel(ctx, stageID, lineID)
		if err != nil {
			return err
		}
		if err := applyPersonnel(line, req); err != nil {
			return err
		}
		return tx.Stage.SavePersonnel(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ==================== 工序属性 ====================

// UpdateAttributes 合并工序属性；waste 子项变化时重算 waste_total
func (s *StageService) UpdateAttributes(ctx context.Context, stageID string, attrs map[string]interface{}) (*entity.Stage, error) {
	var stage *entity.Stage
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		st, err := s.startedStage(ctx, tx, stageID)
		if err != nil {
			return err
		}
		if st.Attributes == nil {
			st.Attributes = datatypes.JSONMap{}
		}
		for k, v := range attrs {
			if k == "waste" {
				merged, ok := st.Attributes[k].(map[string]interface{})
				incoming, inOK := v.(map[string]interface{})
				if ok && inOK {
					for wk, wv := range incoming {
						merged[wk] = wv
					}
					continue
				}
			}
			st.Attributes[k] = v
		}
		if w, ok := st.Attributes["waste"].(map[string]interface{}); ok {
			st.Attributes["waste_total"] = round2(wasteTotal(w))
		}
		if err := tx.Stage.Save(ctx, st); err != nil {
			return err
		}
		stage = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stage, nil
}

// wasteTotal 汇总数值型损耗
func wasteTotal(w map[string]interface{}) float64 {
	var total float64
	for _, v := range w {
		switch n := v.(type) {
		case float64:
			total += n
		case float32:
			total += float64(n)
		case int:
			total += float64(n)
		case int64:
			total += float64(n)
		}
	}
	return total
}
