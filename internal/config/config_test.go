package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Source.Fallback)
	assert.Equal(t, 10, cfg.Analysis.MinTrainingRows)
	assert.InDelta(t, 0.25, cfg.Analysis.TestFraction, 1e-9)
	assert.Equal(t, uint64(42), cfg.Analysis.RandomSeed)
	assert.True(t, cfg.Analysis.Ensemble)
	assert.Equal(t, 500, cfg.Model.RandomForest.NEstimators)
	assert.Equal(t, 20, cfg.Model.RandomForest.MaxDepth)
	assert.Equal(t, "sqrt", cfg.Model.RandomForest.MaxFeatures)
	assert.Equal(t, 300, cfg.Model.GradientBoosting.NEstimators)
	assert.InDelta(t, 0.8, cfg.Model.GradientBoosting.Subsample, 1e-9)
	assert.Equal(t, []float64{3, 2, 3}, cfg.Model.Ensemble.Weights)
	assert.Equal(t, "results", cfg.Report.Dir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8088
database:
  driver: sqlite
  sqlite_path: test.db
analysis:
  min_training_rows: 20
  text_features: true
model:
  random_forest:
    n_estimators: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.SQLitePath)
	assert.Equal(t, 20, cfg.Analysis.MinTrainingRows)
	assert.True(t, cfg.Analysis.TextFeatures)
	assert.Equal(t, 50, cfg.Model.RandomForest.NEstimators)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 300, cfg.Model.GradientBoosting.NEstimators)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_ANALYSIS_TEST_FRACTION", "0.3")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: development\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.3, cfg.Analysis.TestFraction, 1e-9)
}

func TestLoadRejectsInvalidFraction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  test_fraction: 1.5\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
	assert.False(t, config.IsProduction(&config.Config{Env: "development"}))
}
