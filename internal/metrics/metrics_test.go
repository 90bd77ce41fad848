package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mautops/pulse-analytics/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestHandlerExposesDomainMetrics(t *testing.T) {
	metrics.RecordTraining("success", 1.5)
	metrics.RecordModelQuality(2.5, 9)
	metrics.RecordPrediction("minor_delay")
	metrics.RecordSourceFallback()
	metrics.RecordAPIRequest(http.MethodGet, "/health", http.StatusOK, 0.01)
	metrics.UpdateTasksByCategory(map[string]int{"no_delay": 3})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"model_training_runs_total",
		"model_duration_rmse",
		"delay_predictions_total",
		"record_source_fallbacks_total",
		"api_requests_total",
		`tasks_by_delay_category{category="no_delay"} 3`,
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}

func TestUpdateDatabaseConnections(t *testing.T) {
	assert.Error(t, metrics.UpdateDatabaseConnections(nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, metrics.UpdateDatabaseConnections(db))
}

func TestCollectorStartStop(t *testing.T) {
	c := metrics.NewCollector(nil, 10*time.Millisecond)
	c.Start()
	time.Sleep(25 * time.Millisecond)
	c.Stop()
}

func TestCollectorStopWithoutStart(t *testing.T) {
	c := metrics.NewCollector(nil, time.Second)
	c.Stop()
}
