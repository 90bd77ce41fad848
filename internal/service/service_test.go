package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mautops/pulse-analytics/internal/analysis"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/database"
	"github.com/mautops/pulse-analytics/internal/repository"
	"github.com/mautops/pulse-analytics/internal/service"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/mautops/pulse-analytics/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Model.RandomForest.NEstimators = 20
	cfg.Model.GradientBoosting.NEstimators = 15
	cfg.Report.Dir = t.TempDir()
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func synthetic() source.Source {
	return &source.SyntheticSource{Seed: 42, Now: clock}
}

func newService(t *testing.T, cfg *config.Config, opts service.AnalysisServiceOptions) *service.AnalysisService {
	if opts.Fallback == nil {
		opts.Fallback = synthetic()
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	opts.Now = clock
	return service.NewAnalysisService(cfg, opts)
}

type failingUploader struct{ calls int }

func (u *failingUploader) Upload(ctx context.Context, localPath string) (string, error) {
	u.calls++
	return "", errors.New("connection refused")
}

type recordingUploader struct{ paths []string }

func (u *recordingUploader) Upload(ctx context.Context, localPath string) (string, error) {
	u.paths = append(u.paths, localPath)
	return "pulse-reports/" + filepath.Base(localPath), nil
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestAnalysisService_FallsBackWhenStoreDown(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{Primary: source.NewDBSource(nil)})

	summary, err := svc.DataSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, source.OriginSynthetic, summary.Origin)
	assert.Equal(t, 12, summary.Counts["tasks"])
	assert.Equal(t, 15, summary.Counts["delay_alerts"])
}

func TestAnalysisService_NoFallbackConfigured(t *testing.T) {
	svc := service.NewAnalysisService(testConfig(t), service.AnalysisServiceOptions{
		Primary: source.NewDBSource(nil),
		Logger:  quietLogger(),
	})
	_, _, err := svc.LoadData(context.Background())
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestAnalysisService_PredictAllTrainsOnDemand(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})
	require.False(t, svc.Status().Trained)

	predictions, err := svc.PredictAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, predictions, 12)
	assert.True(t, svc.Status().Trained)

	for _, p := range predictions {
		assert.NotEmpty(t, p.TaskID)
		assert.GreaterOrEqual(t, p.PredictedDelayDays, 0.0)
		var sum float64
		for _, c := range types.DelayCategories {
			sum += p.CategoryProbabilities[c]
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestAnalysisService_ModelNotTrained(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.TrainOnDemand = false
	svc := newService(t, cfg, service.AnalysisServiceOptions{})

	_, err := svc.PredictTask(context.Background(), map[string]any{"priority_numeric": 4})
	assert.ErrorIs(t, err, analysis.ErrModelNotTrained)

	_, err = svc.Recommendations(context.Background())
	assert.ErrorIs(t, err, analysis.ErrModelNotTrained)
}

func TestAnalysisService_InsufficientData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.MinTrainingRows = 50
	svc := newService(t, cfg, service.AnalysisServiceOptions{})

	_, err := svc.Train(context.Background())
	assert.ErrorIs(t, err, analysis.ErrInsufficientData)

	_, err = svc.RunFull(context.Background())
	assert.ErrorIs(t, err, analysis.ErrInsufficientData)
	_, ok := svc.LatestResult()
	assert.False(t, ok)
}

func TestAnalysisService_PredictTask(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})

	p, err := svc.PredictTask(context.Background(), map[string]any{
		"priority_numeric": 4,
		"estimated_hours":  "40",
	})
	require.NoError(t, err)
	assert.Contains(t, types.DelayCategories, p.PredictedCategory)

	_, err = svc.PredictTask(context.Background(), map[string]any{"estimated_hours": []int{1}})
	assert.ErrorIs(t, err, analysis.ErrInvalidFeature)
}

func TestAnalysisService_AnalyzeRisk(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})

	all, err := svc.AnalyzeRisk(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 12, all.TotalTasks)
	assert.GreaterOrEqual(t, all.DelayedTasks, 4)
	assert.NotEmpty(t, all.CriticalTasks)

	_, err = svc.AnalyzeRisk(context.Background(), "no-such-project")
	assert.ErrorIs(t, err, analysis.ErrEmptyScope)
}

func TestAnalysisService_Trends(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})

	trends, err := svc.Trends(context.Background())
	require.NoError(t, err)
	total := 0
	for _, n := range trends.DelayDistribution {
		total += n
	}
	assert.Equal(t, 12, total)
	assert.NotEmpty(t, trends.AlertTrends)
}

func TestAnalysisService_RunFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Formats = []string{"csv", "json", "yaml"}
	uploader := &recordingUploader{}
	reports := service.NewReportService(cfg.Report, uploader, quietLogger())
	svc := newService(t, cfg, service.AnalysisServiceOptions{Reports: reports})

	result, err := svc.RunFull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, source.OriginSynthetic, result.DataSource)
	assert.Equal(t, 12, result.DataSummary["tasks"])
	assert.Len(t, result.Predictions, 12)
	assert.Equal(t, 12, result.PredictionSummary.TotalPredictions)
	assert.NotNil(t, result.RiskAnalysis)
	assert.NotNil(t, result.Trends)
	assert.Empty(t, result.Warnings)

	require.Len(t, result.ReportFiles, 4)
	assert.Len(t, result.UploadedReports, 4)
	assert.Len(t, uploader.paths, 4)
	for _, f := range result.ReportFiles {
		_, err := os.Stat(f)
		assert.NoError(t, err)
	}

	latest, ok := svc.LatestResult()
	require.True(t, ok)
	assert.Same(t, result, latest)
	status := svc.Status()
	assert.True(t, status.Trained)
	require.NotNil(t, status.LastFullRunAt)
}

func TestAnalysisService_RunFullUploadFailureIsWarning(t *testing.T) {
	cfg := testConfig(t)
	uploader := &failingUploader{}
	reports := service.NewReportService(cfg.Report, uploader, quietLogger())
	svc := newService(t, cfg, service.AnalysisServiceOptions{Reports: reports})

	result, err := svc.RunFull(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.ReportFiles, 3)
	assert.Empty(t, result.UploadedReports)
	assert.Len(t, result.Warnings, 3)
	assert.Equal(t, 3, uploader.calls)
	assert.True(t, strings.Contains(result.Warnings[0], "connection refused"))
}

func TestAnalysisService_StoreBackedTrainingRun(t *testing.T) {
	db := setupDB(t)
	ds, err := synthetic().Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, source.Seed(context.Background(), db, ds))

	runs := repository.NewTrainingRunRepository(db)
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{
		Primary: source.NewDBSource(db),
		Runs:    runs,
	})

	result, err := svc.Train(context.Background())
	require.NoError(t, err)

	latest, err := runs.FindLatest()
	require.NoError(t, err)
	assert.Equal(t, string(source.OriginStore), latest.Origin)
	assert.Equal(t, result.TrainingSamples, latest.TrainingSamples)
	assert.NotEmpty(t, latest.Members)

	history, err := svc.TrainingHistory(5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAnalysisService_SaveAndLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})
	_, err := svc.Train(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.SaveModel(path))

	cfg := testConfig(t)
	cfg.Analysis.TrainOnDemand = false
	restored := newService(t, cfg, service.AnalysisServiceOptions{})
	require.NoError(t, restored.LoadModel(path))

	input := map[string]any{"priority_numeric": 3, "estimated_hours": 16}
	a, err := svc.PredictTask(context.Background(), input)
	require.NoError(t, err)
	b, err := restored.PredictTask(context.Background(), input)
	require.NoError(t, err)
	assert.InDelta(t, a.PredictedDelayDays, b.PredictedDelayDays, 1e-9)
}

func TestReportService_ListAndCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.RetentionDays = 7
	reports := service.NewReportService(cfg.Report, nil, quietLogger())
	svc := newService(t, cfg, service.AnalysisServiceOptions{Reports: reports})

	_, err := svc.RunFull(context.Background())
	require.NoError(t, err)

	// 非报告文件不计入
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Report.Dir, "notes.txt"), []byte("x"), 0o644))

	list, err := reports.ListReports()
	require.NoError(t, err)
	require.Len(t, list, 3)

	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(list[0].Path, old, old))

	removed, err := reports.CleanupOldReports()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err = reports.ListReports()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReportService_MissingDir(t *testing.T) {
	reports := service.NewReportService(config.ReportConfig{Dir: filepath.Join(t.TempDir(), "missing")}, nil, quietLogger())
	list, err := reports.ListReports()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRetrainScheduler(t *testing.T) {
	svc := newService(t, testConfig(t), service.AnalysisServiceOptions{})

	disabled := service.NewRetrainScheduler(svc, nil, 0, quietLogger())
	assert.False(t, disabled.Enabled())
	disabled.Start(context.Background())
	disabled.Stop()

	scheduler := service.NewRetrainScheduler(svc, nil, time.Hour, quietLogger())
	assert.True(t, scheduler.Enabled())
	scheduler.RunOnce(context.Background())
	assert.True(t, svc.Status().Trained)

	scheduler.Start(context.Background())
	scheduler.Stop()
	scheduler.Stop()
}
