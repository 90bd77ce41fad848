package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/pulse-analytics/internal/analysis"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/metrics"
	"github.com/mautops/pulse-analytics/internal/model"
	"github.com/mautops/pulse-analytics/internal/repository"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/mautops/pulse-analytics/internal/types"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 训练结果标签
const (
	trainingSuccess          = "success"
	trainingInsufficientData = "insufficient_data"
	trainingError            = "error"
)

// FullAnalysisResult 一次完整分析的结果
type FullAnalysisResult struct {
	Timestamp         time.Time                     `json:"timestamp"`
	DataSource        source.Origin                 `json:"data_source"`
	DataSummary       map[string]int                `json:"data_summary"`
	TrainingResults   *analysis.TrainingResult      `json:"training_results"`
	Predictions       []*analysis.Prediction        `json:"predictions"`
	PredictionSummary analysis.PredictionSummary    `json:"prediction_summary"`
	RiskAnalysis      *analysis.RiskSummary         `json:"risk_analysis"`
	Trends            *analysis.TrendSummary        `json:"trends"`
	Recommendations   []analysis.TaskRecommendation `json:"recommendations"`
	ReportFiles       []string                      `json:"report_files,omitempty"`
	UploadedReports   []string                      `json:"uploaded_reports,omitempty"`
	Warnings          []string                      `json:"warnings,omitempty"`
}

// DataSummary 数据概况
type DataSummary struct {
	Origin source.Origin  `json:"data_source"`
	Counts map[string]int `json:"counts"`
}

// ModelStatus 模型状态
type ModelStatus struct {
	Trained       bool                     `json:"trained"`
	DataSource    source.Origin            `json:"data_source,omitempty"`
	Training      *analysis.TrainingResult `json:"training,omitempty"`
	LastFullRunAt *time.Time               `json:"last_full_run_at,omitempty"`
}

// AnalysisServiceOptions 分析服务依赖,除 Fallback 外均可为空
type AnalysisServiceOptions struct {
	Primary  source.Source
	Fallback source.Source
	Runs     repository.TrainingRunRepository
	Reports  *ReportService
	Logger   *logrus.Logger
	Now      func() time.Time
}

// AnalysisService 串联数据加载、特征构建、训练、预测和汇总
type AnalysisService struct {
	primary       source.Source
	fallback      source.Source
	runs          repository.TrainingRunRepository
	reports       *ReportService
	builder       *features.Builder
	labeler       *features.LabelBuilder
	predictor     *analysis.Predictor
	trainOnDemand bool
	logger        *logrus.Logger

	loadMu sync.Mutex

	mu      sync.RWMutex
	dataset *types.Dataset
	origin  source.Origin
	table   *features.Table
	latest  *FullAnalysisResult
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(cfg *config.Config, opts AnalysisServiceOptions) *AnalysisService {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	trainer := analysis.NewTrainer(analysis.TrainerConfigFrom(cfg))
	trainer.Now = now

	return &AnalysisService{
		primary:       opts.Primary,
		fallback:      opts.Fallback,
		runs:          opts.Runs,
		reports:       opts.Reports,
		builder:       &features.Builder{TextFeatures: cfg.Analysis.TextFeatures},
		labeler:       &features.LabelBuilder{Now: now},
		predictor:     analysis.NewPredictor(trainer),
		trainOnDemand: cfg.Analysis.TrainOnDemand,
		logger:        logger,
	}
}

// Predictor 返回底层预测器
func (s *AnalysisService) Predictor() *analysis.Predictor {
	return s.predictor
}

// LoadData 返回缓存的数据集,首次调用时从数据源加载
func (s *AnalysisService) LoadData(ctx context.Context) (*types.Dataset, source.Origin, error) {
	s.mu.RLock()
	ds, origin := s.dataset, s.origin
	s.mu.RUnlock()
	if ds != nil {
		return ds, origin, nil
	}
	return s.Refresh(ctx)
}

// Refresh 重新从数据源加载数据集并重建特征表
func (s *AnalysisService) Refresh(ctx context.Context) (*types.Dataset, source.Origin, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	ds, origin, err := source.LoadWithFallback(ctx, s.primary, s.fallback, s.logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load data: %w", err)
	}
	if origin == source.OriginSynthetic && s.primary != nil {
		metrics.RecordSourceFallback()
	}
	table := s.labeler.Build(s.builder.Build(ds))

	s.mu.Lock()
	s.dataset, s.origin, s.table = ds, origin, table
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"stage":  "load",
		"source": origin,
		"tasks":  len(ds.Tasks),
		"rows":   table.Len(),
	}).Info("Dataset loaded")
	return ds, origin, nil
}

// labeledTable 返回带标签的特征表
func (s *AnalysisService) labeledTable(ctx context.Context) (*features.Table, error) {
	if _, _, err := s.LoadData(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table, nil
}

// DataSummary 返回数据来源与各类记录数量
func (s *AnalysisService) DataSummary(ctx context.Context) (*DataSummary, error) {
	ds, origin, err := s.LoadData(ctx)
	if err != nil {
		return nil, err
	}
	return &DataSummary{Origin: origin, Counts: ds.Summary()}, nil
}

// Train 在当前数据集上训练模型
func (s *AnalysisService) Train(ctx context.Context) (*analysis.TrainingResult, error) {
	table, err := s.labeledTable(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.predictor.Train(ctx, table)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		label := trainingError
		if errors.Is(err, analysis.ErrInsufficientData) {
			label = trainingInsufficientData
		}
		metrics.RecordTraining(label, elapsed)
		s.logger.WithError(err).WithField("stage", "train").Warn("Model training failed")
		return nil, err
	}
	metrics.RecordTraining(trainingSuccess, elapsed)
	metrics.RecordModelQuality(result.DurationRMSE, result.TrainingSamples)

	s.logger.WithFields(logrus.Fields{
		"stage":         "train",
		"train_samples": result.TrainingSamples,
		"test_samples":  result.TestSamples,
		"rmse":          result.DurationRMSE,
		"accuracy":      result.CategoryAccuracy,
		"members":       result.RegressorMembers,
		"dropped":       result.DroppedMembers,
		"seconds":       elapsed,
	}).Info("Model trained")

	s.recordRun(result)
	return result, nil
}

// recordRun 持久化训练记录,失败只记录日志
func (s *AnalysisService) recordRun(result *analysis.TrainingResult) {
	if s.runs == nil {
		return
	}
	importance, err := json.Marshal(result.FeatureImportance)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode feature importance")
		return
	}
	s.mu.RLock()
	origin := s.origin
	s.mu.RUnlock()

	run := &model.TrainingRunModel{
		ID:                uuid.NewString(),
		Origin:            string(origin),
		TrainingSamples:   result.TrainingSamples,
		TestSamples:       result.TestSamples,
		DurationRMSE:      result.DurationRMSE,
		CategoryAccuracy:  result.CategoryAccuracy,
		Ensemble:          result.Ensemble,
		Members:           datatypes.JSONSlice[string](result.RegressorMembers),
		FeatureImportance: datatypes.JSON(importance),
		CreatedAt:         result.TrainedAt,
	}
	if err := s.runs.Save(run); err != nil {
		s.logger.WithError(err).Warn("Failed to persist training run")
	}
}

// TrainingHistory 返回最近的训练记录,未配置数据库时返回空列表
func (s *AnalysisService) TrainingHistory(limit int) ([]*model.TrainingRunModel, error) {
	if s.runs == nil {
		return []*model.TrainingRunModel{}, nil
	}
	return s.runs.FindRecent(limit)
}

// ensureTrained 模型未训练时按配置自动训练
func (s *AnalysisService) ensureTrained(ctx context.Context) error {
	if s.predictor.IsTrained() {
		return nil
	}
	if !s.trainOnDemand {
		return analysis.ErrModelNotTrained
	}
	_, err := s.Train(ctx)
	return err
}

// PredictAll 为数据集中的每个任务生成预测
func (s *AnalysisService) PredictAll(ctx context.Context) ([]*analysis.Prediction, error) {
	if err := s.ensureTrained(ctx); err != nil {
		return nil, err
	}
	table, err := s.labeledTable(ctx)
	if err != nil {
		return nil, err
	}

	predictions := make([]*analysis.Prediction, 0, table.Len())
	for _, row := range table.Rows {
		p, err := s.predictor.PredictRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to predict task %s: %w", row.TaskID, err)
		}
		metrics.RecordPrediction(string(p.PredictedCategory))
		predictions = append(predictions, p)
	}
	return predictions, nil
}

// PredictTask 根据任意特征子集预测单个任务
func (s *AnalysisService) PredictTask(ctx context.Context, input map[string]any) (*analysis.Prediction, error) {
	if err := s.ensureTrained(ctx); err != nil {
		return nil, err
	}
	p, err := s.predictor.Predict(input)
	if err != nil {
		return nil, err
	}
	metrics.RecordPrediction(string(p.PredictedCategory))
	return p, nil
}

// AnalyzeRisk 风险汇总,projectID 为空时统计全部项目
func (s *AnalysisService) AnalyzeRisk(ctx context.Context, projectID string) (*analysis.RiskSummary, error) {
	table, err := s.labeledTable(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.AnalyzeRisk(table, projectID)
}

// Trends 延期趋势
func (s *AnalysisService) Trends(ctx context.Context) (*analysis.TrendSummary, error) {
	ds, _, err := s.LoadData(ctx)
	if err != nil {
		return nil, err
	}
	table, err := s.labeledTable(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.AnalyzeTrends(table, ds.Alerts), nil
}

// Recommendations 高风险任务的行动建议
func (s *AnalysisService) Recommendations(ctx context.Context) ([]analysis.TaskRecommendation, error) {
	predictions, err := s.PredictAll(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.Recommendations(predictions), nil
}

// RunFull 执行完整分析:加载、训练、预测、风险、趋势和报告。报告失败只产生警告。
func (s *AnalysisService) RunFull(ctx context.Context) (*FullAnalysisResult, error) {
	ds, origin, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	training, err := s.Train(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	predictions, err := s.PredictAll(ctx)
	if err != nil {
		return nil, err
	}
	risk, err := s.AnalyzeRisk(ctx, "")
	if err != nil {
		return nil, err
	}
	trends, err := s.Trends(ctx)
	if err != nil {
		return nil, err
	}

	result := &FullAnalysisResult{
		Timestamp:         training.TrainedAt,
		DataSource:        origin,
		DataSummary:       ds.Summary(),
		TrainingResults:   training,
		Predictions:       predictions,
		PredictionSummary: analysis.SummarizePredictions(predictions),
		RiskAnalysis:      risk,
		Trends:            trends,
		Recommendations:   analysis.Recommendations(predictions),
	}

	counts := make(map[string]int, len(types.DelayCategories))
	for _, c := range types.DelayCategories {
		counts[string(c)] = 0
	}
	for _, p := range predictions {
		counts[string(p.PredictedCategory)]++
	}
	metrics.UpdateTasksByCategory(counts)

	if s.reports != nil {
		out := s.reports.Write(ctx, result)
		result.ReportFiles = out.Files
		result.UploadedReports = out.Uploaded
		result.Warnings = append(result.Warnings, out.Warnings...)
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"stage":       "full",
		"source":      origin,
		"predictions": len(predictions),
		"high_risk":   result.PredictionSummary.HighRiskTasks,
		"warnings":    len(result.Warnings),
	}).Info("Full analysis completed")
	return result, nil
}

// LatestResult 返回最近一次完整分析的结果
func (s *AnalysisService) LatestResult() (*FullAnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Status 返回模型状态
func (s *AnalysisService) Status() *ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &ModelStatus{Trained: s.predictor.IsTrained(), DataSource: s.origin}
	if m := s.predictor.Model(); m != nil {
		status.Training = m.Result
	}
	if s.latest != nil {
		ts := s.latest.Timestamp
		status.LastFullRunAt = &ts
	}
	return status
}

// SaveModel 保存模型快照
func (s *AnalysisService) SaveModel(path string) error {
	return s.predictor.Save(path)
}

// LoadModel 加载模型快照
func (s *AnalysisService) LoadModel(path string) error {
	if err := s.predictor.Load(path); err != nil {
		return err
	}
	s.logger.WithField("path", path).Info("Model snapshot loaded")
	return nil
}
