package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sanventru/odoomegastock-sub001/internal/production/apperr"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/repository"
	"go.uber.org/zap"
)

const (
	kpiWindow       = 7 * 24 * time.Hour
	kpiSummaryLimit = 50
	kpiTrendSize    = 10

	oeeGreen  = 85.0
	oeeYellow = 65.0
)

// AlertService KPI 汇总、库存过期与质检预警
type AlertService struct {
	repos      *repository.Repositories
	expiryDays int
	logger     *zap.Logger
	now        func() time.Time
}

func NewAlertService(repos *repository.Repositories, expiryDays int, logger *zap.Logger, now func() time.Time) *AlertService {
	if expiryDays <= 0 {
		expiryDays = 60
	}
	return &AlertService{repos: repos, expiryDays: expiryDays, logger: logger, now: now}
}

// ExpiryThreshold 过期预警天数
func (s *AlertService) ExpiryThreshold() int {
	return s.expiryDays
}

// KPIAverages 六项 KPI 平均值
type KPIAverages struct {
	OEE            float64 `json:"oee"`
	Availability   float64 `json:"availability"`
	Performance    float64 `json:"performance"`
	Quality        float64 `json:"quality"`
	OnTimeDelivery float64 `json:"on_time_delivery_rate"`
	Utilization    float64 `json:"utilization_rate"`
}

// KPISummary 汇总结果
type KPISummary struct {
	Line     string                 `json:"production_line"`
	Records  int                    `json:"records"`
	Averages KPIAverages            `json:"averages"`
	Alerts   []entity.ProductionKPI `json:"alerts"`
	Trend    []entity.ProductionKPI `json:"trend"`
}

// KPISummary 近 7 天 KPI 平均值，line 为空或 all 时不过滤
func (s *AlertService) KPISummary(ctx context.Context, line string) (*KPISummary, error) {
	if line == "" {
		line = entity.LineAll
	}
	records, err := s.repos.KPI.ListSince(ctx, s.now().Add(-kpiWindow), line, kpiSummaryLimit)
	if err != nil {
		return nil, err
	}
	sum := &KPISummary{
		Line:     line,
		Records:  len(records),
		Averages: averageKPIs(records),
		Alerts:   []entity.ProductionKPI{},
		Trend:    []entity.ProductionKPI{},
	}
	for _, k := range records {
		if k.AlertLevel == entity.AlertYellow || k.AlertLevel == entity.AlertRed {
			sum.Alerts = append(sum.Alerts, k)
		}
	}
	// records 最新在前；趋势取最近 10 条按时间正序
	n := len(records)
	if n > kpiTrendSize {
		n = kpiTrendSize
	}
	for i := n - 1; i >= 0; i-- {
		sum.Trend = append(sum.Trend, records[i])
	}
	return sum, nil
}

func averageKPIs(records []entity.ProductionKPI) KPIAverages {
	var a KPIAverages
	if len(records) == 0 {
		return a
	}
	for _, k := range records {
		a.OEE += k.OEE
		a.Availability += k.Availability
		a.Performance += k.Performance
		a.Quality += k.Quality
		a.OnTimeDelivery += k.OnTimeDelivery
		a.Utilization += k.Utilization
	}
	n := float64(len(records))
	return KPIAverages{
		OEE:            round2(a.OEE / n),
		Availability:   round2(a.Availability / n),
		Performance:    round2(a.Performance / n),
		Quality:        round2(a.Quality / n),
		OnTimeDelivery: round2(a.OnTimeDelivery / n),
		Utilization:    round2(a.Utilization / n),
	}
}

// ActiveAlerts 黄/红预警记录
func (s *AlertService) ActiveAlerts(ctx context.Context) ([]entity.ProductionKPI, error) {
	return s.repos.KPI.ListByLevels(ctx, []string{entity.AlertYellow, entity.AlertRed})
}

type KPIRequest struct {
	Name           string     `json:"name"`
	MeasuredAt     *time.Time `json:"measurement_date"`
	Line           string     `json:"production_line"`
	OEE            *float64   `json:"oee"`
	Availability   float64    `json:"availability"`
	Performance    float64    `json:"performance"`
	Quality        float64    `json:"quality"`
	OnTimeDelivery float64    `json:"on_time_delivery_rate"`
	Utilization    float64    `json:"utilization_rate"`
	AlertLevel     string     `json:"alert_level"`
}

var validLines = map[string]bool{
	entity.LineCajas:   true,
	entity.LineLaminas: true,
	entity.LinePapel:   true,
	entity.LineAll:     true,
}

var validLevels = map[string]bool{
	entity.AlertGreen:  true,
	entity.AlertYellow: true,
	entity.AlertRed:    true,
}

// OEELevel 按 OEE 判定预警等级
func OEELevel(oee float64) string {
	switch {
	case oee >= oeeGreen:
		return entity.AlertGreen
	case oee >= oeeYellow:
		return entity.AlertYellow
	default:
		return entity.AlertRed
	}
}

// RecordKPI 记录 KPI；未给出 OEE 时按 A·P·Q 计算，未给出等级时按 OEE 判定
func (s *AlertService) RecordKPI(ctx context.Context, req *KPIRequest) (*entity.ProductionKPI, error) {
	line := req.Line
	if line == "" {
		line = entity.LineAll
	}
	if !validLines[line] {
		return nil, apperr.Wrap(apperr.ErrInterface, "unknown production line %q", line)
	}
	for _, v := range []float64{req.Availability, req.Performance, req.Quality, req.OnTimeDelivery, req.Utilization} {
		if v < 0 || v > 100 {
			return nil, apperr.Wrap(apperr.ErrInterface, "kpi values must be within [0, 100]")
		}
	}
	k := &entity.ProductionKPI{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Line:           line,
		Availability:   req.Availability,
		Performance:    req.Performance,
		Quality:        req.Quality,
		OnTimeDelivery: req.OnTimeDelivery,
		Utilization:    req.Utilization,
	}
	if req.MeasuredAt != nil {
		k.MeasuredAt = *req.MeasuredAt
	} else {
		k.MeasuredAt = s.now()
	}
	if req.OEE != nil {
		k.OEE = *req.OEE
	} else {
		k.OEE = round2(req.Availability * req.Performance * req.Quality / 10000)
	}
	switch {
	case req.AlertLevel == "":
		k.AlertLevel = OEELevel(k.OEE)
	case validLevels[req.AlertLevel]:
		k.AlertLevel = req.AlertLevel
	default:
		return nil, apperr.Wrap(apperr.ErrInterface, "unknown alert level %q", req.AlertLevel)
	}
	if k.Name == "" {
		k.Name = "KPI " + k.MeasuredAt.Format("2006-01-02") + " " + strings.ToUpper(line)
	}
	if err := s.repos.KPI.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// ==================== 库存 ====================

// dateOnly 截断到本地日期
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysToExpiry 按日期粒度计算剩余天数
func DaysToExpiry(expiry, today time.Time) int {
	e := dateOnly(expiry.In(today.Location()))
	return int(math.Round(e.Sub(dateOnly(today)).Hours() / 24))
}

// ExpirySweep 重新计算所有批次的剩余天数并写回，返回被标记的批次
func (s *AlertService) ExpirySweep(ctx context.Context) ([]entity.InventoryQuant, error) {
	now := s.now()
	flagged := []entity.InventoryQuant{}
	err := inTx(ctx, s.repos, func(tx *repository.Repositories) error {
		quants, err := tx.Quant.ListWithExpiry(ctx)
		if err != nil {
			return err
		}
		for _, q := range quants {
			days := DaysToExpiry(*q.ExpiryDate, now)
			alert := days <= s.expiryDays
			if err := tx.Quant.UpdateSweep(ctx, q.ID, days, alert, now); err != nil {
				return err
			}
			if alert {
				q.DaysToExpiry = days
				q.ExpiryAlert = true
				q.SweptAt = &now
				flagged = append(flagged, q)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(flagged, func(i, j int) bool { return flagged[i].DaysToExpiry < flagged[j].DaysToExpiry })
	s.logger.Info("expiry sweep finished", zap.Int("flagged", len(flagged)), zap.Int("threshold_days", s.expiryDays))
	return flagged, nil
}

type QuantRequest struct {
	ProductCode   string     `json:"product_code" binding:"required"`
	LotName       string     `json:"lot_name"`
	Location      string     `json:"location"`
	Quantity      float64    `json:"quantity"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	QualityStatus string     `json:"quality_status"`
}

var validQuality = map[string]bool{
	entity.QualityPending:    true,
	entity.QualityApproved:   true,
	entity.QualityRejected:   true,
	entity.QualityQuarantine: true,
}

// CreateQuant 登记批次库存
func (s *AlertService) CreateQuant(ctx context.Context, req *QuantRequest) (*entity.InventoryQuant, error) {
	code := strings.TrimSpace(req.ProductCode)
	if code == "" {
		return nil, apperr.Wrap(apperr.ErrInterface, "product code is required")
	}
	if req.Quantity < 0 {
		return nil, apperr.Wrap(apperr.ErrInterface, "quantity must not be negative")
	}
	status := req.QualityStatus
	if status == "" {
		status = entity.QualityPending
	}
	if !validQuality[status] {
		return nil, apperr.Wrap(apperr.ErrInterface, "unknown quality status %q", status)
	}
	q := &entity.InventoryQuant{
		ID:            uuid.New().String(),
		ProductCode:   code,
		LotName:       req.LotName,
		Location:      req.Location,
		Quantity:      req.Quantity,
		ExpiryDate:    req.ExpiryDate,
		QualityStatus: status,
	}
	if q.ExpiryDate != nil {
		q.DaysToExpiry = DaysToExpiry(*q.ExpiryDate, s.now())
		q.ExpiryAlert = q.DaysToExpiry <= s.expiryDays
	}
	if err := s.repos.Quant.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// QualityAlerts 拒收或隔离中的批次
func (s *AlertService) QualityAlerts(ctx context.Context) ([]entity.InventoryQuant, error) {
	return s.repos.Quant.ListByQualityStatus(ctx, []string{entity.QualityRejected, entity.QualityQuarantine})
}

// SetQualityStatus 更新批次质检状态
func (s *AlertService) SetQualityStatus(ctx context.Context, id, status string) (*entity.InventoryQuant, error) {
	if !validQuality[status] {
		return nil, apperr.Wrap(apperr.ErrInterface, "unknown quality status %q", status)
	}
	q, err := s.repos.Quant.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	q.QualityStatus = status
	if err := s.repos.Quant.Save(ctx, q); err != nil {
		return nil, err
	}
	if status == entity.QualityRejected || status == entity.QualityQuarantine {
		s.logger.Warn("quality alert", zap.String("product_code", q.ProductCode), zap.String("lot", q.LotName), zap.String("status", status))
	}
	return q, nil
}

// ==================== 工单汇总校验 ====================

// VerifyWorkOrders 未完工工单的汇总值与订单重新推导值比对，返回不一致项
func (s *AlertService) VerifyWorkOrders(ctx context.Context) ([]AggregateReport, error) {
	open, err := s.repos.WorkOrder.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	bad := []AggregateReport{}
	for i := range open {
		rep := compareAggregates(&open[i], open[i].Orders)
		if !rep.Consistent {
			bad = append(bad, *rep)
			s.logger.Warn("work order aggregates drifted",
				zap.String("number", rep.Number),
				zap.Float64("stored_meters", rep.Stored.LinearMetersTotal),
				zap.Float64("derived_meters", rep.Derived.LinearMetersTotal))
		}
	}
	return bad, nil
}
