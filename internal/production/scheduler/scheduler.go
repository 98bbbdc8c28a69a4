// Package scheduler 定时任务：库存过期扫描与工单汇总校验。
//
// 每个任务用 SkipIfStillRunning 包装，上一次未结束时跳过本次。
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sanventru/odoomegastock-sub001/internal/production/entity"
	"github.com/sanventru/odoomegastock-sub001/internal/production/service"
	"go.uber.org/zap"
)

const jobTimeout = 10 * time.Minute

// AlertJobs 任务依赖的服务
type AlertJobs interface {
	ExpirySweep(ctx context.Context) ([]entity.InventoryQuant, error)
	VerifyWorkOrders(ctx context.Context) ([]service.AggregateReport, error)
}

// Scheduler cron 调度器
type Scheduler struct {
	cron   *cron.Cron
	jobs   AlertJobs
	logger *zap.Logger
}

// zapCronLogger 适配 cron.Logger
type zapCronLogger struct {
	s *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// New 创建调度器；表达式为空的任务不注册
func New(jobs AlertJobs, expiryCron, auditCron string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := zapCronLogger{s: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		jobs:   jobs,
		logger: logger,
	}
	if expiryCron != "" {
		if _, err := s.cron.AddFunc(expiryCron, s.runExpirySweep); err != nil {
			return nil, err
		}
	}
	if auditCron != "" {
		if _, err := s.cron.AddFunc(auditCron, s.runAudit); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	flagged, err := s.jobs.ExpirySweep(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("expiry sweep", zap.Int("flagged", len(flagged)))
}

func (s *Scheduler) runAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	bad, err := s.jobs.VerifyWorkOrders(ctx)
	if err != nil {
		s.logger.Error("work order audit failed", zap.Error(err))
		return
	}
	if len(bad) > 0 {
		s.logger.Warn("work order audit found drift", zap.Int("work_orders", len(bad)))
	}
}
