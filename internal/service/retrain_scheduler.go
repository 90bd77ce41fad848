package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RetrainScheduler 定期重新加载数据并训练模型,同时清理过期报告
type RetrainScheduler struct {
	analysis *AnalysisService
	reports  *ReportService
	interval time.Duration
	logger   *logrus.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRetrainScheduler 创建重训调度器,reports 可以为 nil
func NewRetrainScheduler(analysis *AnalysisService, reports *ReportService, interval time.Duration, logger *logrus.Logger) *RetrainScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetrainScheduler{
		analysis: analysis,
		reports:  reports,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Enabled 间隔为正数时启用
func (s *RetrainScheduler) Enabled() bool {
	return s.interval > 0
}

// Start 启动调度,未启用时直接返回
func (s *RetrainScheduler) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.WithField("interval", s.interval.String()).Info("Retrain scheduler started")
}

// Stop 停止调度并等待当前任务结束
func (s *RetrainScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *RetrainScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce 执行一次刷新、训练和报告清理
func (s *RetrainScheduler) RunOnce(ctx context.Context) {
	if _, _, err := s.analysis.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Scheduled data refresh failed")
		return
	}
	if _, err := s.analysis.Train(ctx); err != nil {
		s.logger.WithError(err).Warn("Scheduled retrain failed")
	}
	if s.reports == nil {
		return
	}
	removed, err := s.reports.CleanupOldReports()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to clean up old reports")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Old reports deleted")
	}
}
