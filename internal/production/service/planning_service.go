package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/config"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/cutting"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/geometry"
	"github.com/sanventru/odoomegastock-sub001/internal/production/recipe"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"github.com/sanventru/odoomegastock-sub001/internal/production/sse"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const defaultPlanningRetries = 3

// PlanningService 排产服务
type PlanningService struct {
	repos  *repository.Repositories
	cache  *CatalogCache
	store  *ReportStore
	hub    *sse.Hub
	logger *zap.Logger
	cfg    config.PlanningConfig
	now    func() time.Time
}

func NewPlanningService(repos *repository.Repositories, cache *CatalogCache, store *ReportStore, hub *sse.Hub, logger *zap.Logger, cfg config.PlanningConfig, now func() time.Time) *PlanningService {
	if cfg.DefaultCavityLimit <= 0 {
		cfg.DefaultCavityLimit = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultPlanningRetries
	}
	if cfg.ReportPrefix == "" {
		cfg.ReportPrefix = "planificacion"
	}
	return &PlanningService{repos: repos, cache: cache, store: store, hub: hub, logger: logger, cfg: cfg, now: now}
}

// PlanRequest 排产请求
type PlanRequest struct {
	// 为空时对全部待排产订单排产
	OrderIDs      []string `json:"order_ids"`
	TestPrincipal int      `json:"test_principal" binding:"required"`
	// 0 使用配置默认值
	CavityLimit int `json:"cavidad_limite"`
	// 指定母卷；仅一种宽度时按单一母卷模式
	ReelIDs    []string `json:"bobina_ids"`
	SingleReel bool     `json:"bobina_unica"`
}

// PlanResult 排产结果
type PlanResult struct {
	Run    *entity.PlanningRun `json:"run"`
	Result *cutting.Result     `json:"result"`
}

// Plan 执行排产；锁冲突时重试
func (s *PlanningService) Plan(ctx context.Context, req *PlanRequest, userID string) (*PlanResult, error) {
	if req.TestPrincipal <= 0 {
		return nil, apperr.Wrap(apperr.ErrPlanningInput, "test principal must be positive")
	}
	opts := cutting.Options{
		TestPrincipal: req.TestPrincipal,
		CavityLimit:   req.CavityLimit,
		SingleReel:    req.SingleReel,
	}
	if opts.CavityLimit == 0 {
		opts.CavityLimit = s.cfg.DefaultCavityLimit
	}

	snap, err := s.cache.Snapshot(ctx, s.repos)
	if err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}
	reels := snap.ReelWidths
	if len(req.ReelIDs) > 0 {
		selected, err := s.repos.Bobina.FindActiveByIDs(ctx, req.ReelIDs)
		if err != nil {
			return nil, fmt.Errorf("find reels: %w", err)
		}
		widths := make([]float64, 0, len(selected))
		for _, b := range selected {
			widths = append(widths, b.Width)
		}
		reels = cutting.NormalizeReels(widths)
		if len(reels) == 0 {
			return nil, apperr.Wrap(apperr.ErrPlanningInput, "no active reel among the selected bobinas")
		}
		if len(reels) == 1 {
			opts.SingleReel = true
		}
	}

	var out *PlanResult
	for attempt := 1; ; attempt++ {
		out, err = s.planOnce(ctx, req.OrderIDs, reels, opts, snap, userID)
		if err == nil || !errors.Is(err, apperr.ErrConcurrentPlanning) || attempt >= s.cfg.MaxRetries {
			break
		}
		s.logger.Warn("planning conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	if err != nil {
		return nil, err
	}

	s.archiveReport(ctx, out)
	s.hub.Publish(sse.EventPlanningCompleted, map[string]interface{}{
		"run_id":      out.Run.ID,
		"code":        out.Run.Code,
		"groups":      out.Run.GroupCount,
		"total_waste": out.Run.TotalWaste,
	})
	s.logger.Info("planning completed",
		zap.String("code", out.Run.Code),
		zap.Int("orders", out.Run.OrderCount),
		zap.Int("groups", out.Run.GroupCount),
		zap.Int("unplaceable", len(out.Result.Unplaceable)),
		zap.Float64("total_waste", out.Run.TotalWaste))
	return out, nil
}

func (s *PlanningService) planOnce(ctx context.Context, orderIDs []string, reels []float64, opts cutting.Options, snap *CatalogSnapshot, userID string) (*PlanResult, error) {
	var out *PlanResult
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		orders, err := tx.ProductionOrder.LockPending(ctx, orderIDs)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return apperr.Wrap(apperr.ErrPlanningInput, "no pending production orders selected")
		}

		// 已在旧分组中的订单整组重排，避免旧分组残留
		oldGroups := previousGroups(orders, opts.TestPrincipal)
		if len(oldGroups) > 0 {
			siblings, err := tx.ProductionOrder.LockPendingGroups(ctx, oldGroups)
			if err != nil {
				return err
			}
			orders = mergeOrders(orders, siblings)
		}

		items := make([]cutting.Order, 0, len(orders))
		byID := make(map[string]*entity.ProductionOrder, len(orders))
		for i := range orders {
			po := &orders[i]
			byID[po.ID] = po
			items = append(items, planningItem(po, snap.FluteByCode(po.FluteCode)))
		}

		res, err := cutting.Plan(items, reels, opts)
		if err != nil {
			return err
		}

		now := s.now()
		code, err := tx.PlanningRun.NextCode(ctx, now)
		if err != nil {
			return fmt.Errorf("next planning code: %w", err)
		}
		run := &entity.PlanningRun{
			ID:            uuid.New().String(),
			Code:          code,
			TestPrincipal: opts.TestPrincipal,
			CavityLimit:   opts.CavityLimit,
			SingleReel:    opts.SingleReel,
			ReelWidths:    mustJSON(reels),
			OrderCount:    len(orders),
			GroupCount:    len(res.Groups),
			TotalWaste:    round2(res.TotalWaste),
			AvgEfficiency: round2(res.AvgEfficiency),
			OptimalReel:   res.OptimalReel,
			Unplaceable:   mustJSON(res.Unplaceable),
			Excluded:      mustJSON(res.Excluded),
			Groups:        mustJSON(res.Groups),
			CreatedBy:     userID,
			CreatedAt:     now,
		}
		if err := tx.PlanningRun.Create(ctx, run); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Wrap(apperr.ErrConcurrentPlanning, "planning code %s taken", code)
			}
			return fmt.Errorf("create planning run: %w", err)
		}

		// 只改写实际参与本次排产的订单；其它测试或缺尺寸的订单保持原状
		touched := participants(res)
		for _, gid := range oldGroups {
			for _, po := range byID {
				if po.GroupID == gid {
					touched[po.ID] = true
				}
			}
		}
		for id := range touched {
			byID[id].ClearPlanning()
		}
		for _, g := range res.Groups {
			groupID := fmt.Sprintf("%s-G%03d", code, g.Index)
			for _, a := range g.Orders {
				po := byID[a.OrderID]
				po.GroupID = groupID
				po.CombinedType = g.CombinedType
				po.BobinaUsed = g.Reel
				po.WidthUsed = g.WidthUsed
				po.CutoffWaste = round2(a.Waste)
				po.Efficiency = round2(a.Efficiency)
				po.CutsPlanned = a.Cuts
				po.LinearMetersPlanned = round2(a.LinearMeters)
				po.PlanningRunID = run.ID
			}
		}
		for i := range orders {
			if !touched[orders[i].ID] {
				continue
			}
			if err := tx.ProductionOrder.Save(ctx, &orders[i]); err != nil {
				return fmt.Errorf("save order %s: %w", orders[i].OrderNumber, err)
			}
		}
		out = &PlanResult{Run: run, Result: res}
		return nil
	})
	if err != nil {
		return nil, repository.TranslateError(err)
	}
	return out, nil
}

// previousGroups 与本次测试一致且已有分组的订单所在分组
func previousGroups(orders []entity.ProductionOrder, testPrincipal int) []string {
	seen := make(map[string]bool)
	var groups []string
	for _, po := range orders {
		if po.GroupID == "" || seen[po.GroupID] {
			continue
		}
		if test, ok := recipe.TestNumber(po.TestName); !ok || test != testPrincipal {
			continue
		}
		seen[po.GroupID] = true
		groups = append(groups, po.GroupID)
	}
	return groups
}

func mergeOrders(orders, extra []entity.ProductionOrder) []entity.ProductionOrder {
	seen := make(map[string]bool, len(orders))
	for _, po := range orders {
		seen[po.ID] = true
	}
	for _, po := range extra {
		if !seen[po.ID] {
			seen[po.ID] = true
			orders = append(orders, po)
		}
	}
	return orders
}

// participants 排入分组或无法排入的订单
func participants(res *cutting.Result) map[string]bool {
	ids := make(map[string]bool)
	for _, g := range res.Groups {
		for _, a := range g.Orders {
			ids[a.OrderID] = true
		}
	}
	for _, u := range res.Unplaceable {
		ids[u.OrderID] = true
	}
	return ids
}

// planningItem 订单展开为坯料尺寸参与排产
func planningItem(po *entity.ProductionOrder, flute *entity.Flute) cutting.Order {
	dev := geometry.Develop(po.GeometryProduct(), flute.Compensation())
	test, _ := recipe.TestNumber(po.TestName)
	item := cutting.Order{
		ID:          po.ID,
		OrderNumber: po.OrderNumber,
		Test:        test,
		Width:       dev.BlankWidth,
		Length:      dev.BlankLength,
		Quantity:    po.Quantity,
		Cavity:      po.Cavity,
	}
	if po.Width <= 0 || po.Length <= 0 {
		item.Width, item.Length = 0, 0
	}
	if po.DueDate != nil {
		item.DueDate = *po.DueDate
	}
	return item
}

func mustJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// archiveReport 报表归档失败只记录日志
func (s *PlanningService) archiveReport(ctx context.Context, out *PlanResult) {
	if !s.store.Enabled() {
		return
	}
	data, err := buildPlanningReport(out.Run, out.Result)
	if err != nil {
		s.logger.Warn("build planning report failed", zap.String("code", out.Run.Code), zap.Error(err))
		return
	}
	object := fmt.Sprintf("%s/%s/%s.xlsx", s.cfg.ReportPrefix, out.Run.CreatedAt.Format("2006/01/02"), out.Run.Code)
	key, err := s.store.Put(ctx, object, data)
	if err != nil {
		s.logger.Warn("archive planning report failed", zap.String("code", out.Run.Code), zap.Error(err))
		return
	}
	if err := s.repos.PlanningRun.SetReportObject(ctx, out.Run.ID, key); err != nil {
		s.logger.Warn("save report object failed", zap.String("code", out.Run.Code), zap.Error(err))
		return
	}
	out.Run.ReportObject = key
}

// Report 排产报表；已归档时从对象存储读取，否则按记录重新生成
func (s *PlanningService) Report(ctx context.Context, runID string) ([]byte, string, error) {
	run, err := s.repos.PlanningRun.FindByID(ctx, runID)
	if err != nil {
		return nil, "", fmt.Errorf("find planning run: %w", err)
	}
	filename := run.Code + ".xlsx"
	if run.ReportObject != "" && s.store.Enabled() {
		data, err := s.readArchived(ctx, run.ReportObject)
		if err == nil {
			return data, filename, nil
		}
		s.logger.Warn("read archived report failed, regenerating", zap.String("code", run.Code), zap.Error(err))
	}
	res := &cutting.Result{SingleReel: run.SingleReel, TotalWaste: run.TotalWaste, AvgEfficiency: run.AvgEfficiency, OptimalReel: run.OptimalReel}
	if err := json.Unmarshal(run.Groups, &res.Groups); err != nil {
		return nil, "", fmt.Errorf("decode groups: %w", err)
	}
	_ = json.Unmarshal(run.Unplaceable, &res.Unplaceable)
	_ = json.Unmarshal(run.Excluded, &res.Excluded)
	data, err := buildPlanningReport(run, res)
	if err != nil {
		return nil, "", err
	}
	return data, filename, nil
}

func (s *PlanningService) readArchived(ctx context.Context, object string) ([]byte, error) {
	obj, err := s.store.Get(ctx, object)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (s *PlanningService) ListRuns(ctx context.Context, page, size int) ([]entity.PlanningRun, int64, error) {
	return s.repos.PlanningRun.List(ctx, page, size)
}

func (s *PlanningService) GetRun(ctx context.Context, id string) (*entity.PlanningRun, error) {
	return s.repos.PlanningRun.FindByID(ctx, id)
}

// ResetPlanning 撤销尚未生成工单的分组，返回受影响订单数
func (s *PlanningService) ResetPlanning(ctx context.Context, groupID string) (int, error) {
	count := 0
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		orders, err := tx.ProductionOrder.ListByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			return apperr.Wrap(apperr.ErrNotFound, "planning group %s", groupID)
		}
		for i := range orders {
			po := &orders[i]
			if po.WorkOrderID != nil || po.Status != entity.POStatusPending {
				return apperr.Wrap(apperr.ErrStateMachineIllegal, "group %s already has a work order", groupID)
			}
			po.ClearPlanning()
			if err := tx.ProductionOrder.Save(ctx, po); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("planning group reset", zap.String("group_id", groupID), zap.Int("orders", count))
	return count, nil
}
