package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/api"
	"github.com/mautops/pulse-analytics/internal/auth"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/service"
	"github.com/mautops/pulse-analytics/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Detail  string          `json:"detail"`
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Model.RandomForest.NEstimators = 15
	cfg.Model.GradientBoosting.NEstimators = 10
	cfg.Report.Dir = t.TempDir()
	return cfg
}

func newRouter(t *testing.T, cfg *config.Config, validator *auth.TokenValidator) *gin.Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	clock := func() time.Time { return now }

	reports := service.NewReportService(cfg.Report, nil, logger)
	svc := service.NewAnalysisService(cfg, service.AnalysisServiceOptions{
		Primary:  source.NewDBSource(nil),
		Fallback: &source.SyntheticSource{Seed: 42, Now: clock},
		Reports:  reports,
		Logger:   logger,
		Now:      clock,
	})
	return api.SetupRoutes(cfg, api.RouterDeps{
		Analysis:  svc,
		Reports:   reports,
		Validator: validator,
		Logger:    logger,
	})
}

func do(t *testing.T, router *gin.Engine, method, path string, body []byte, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// TestHealth 测试健康检查在无数据库时降级
func TestHealth(t *testing.T) {
	router := newRouter(t, testConfig(t), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "not configured", checks["database"])
	assert.Equal(t, "not trained", checks["model"])
}

// TestHealth_NoFallback 测试关闭回退且无数据库时不健康
func TestHealth_NoFallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Fallback = false
	router := newRouter(t, cfg, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestModelLifecycle 测试训练前后的模型接口
func TestModelLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.TrainOnDemand = false
	router := newRouter(t, cfg, nil)

	w, env := do(t, router, http.MethodPost, "/api/v1/analyze/predict_task", []byte(`{"priority_numeric": 4}`), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "model not trained", env.Message)

	w, env = do(t, router, http.MethodGet, "/api/v1/models/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status service.ModelStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.Trained)

	w, env = do(t, router, http.MethodPost, "/api/v1/models/train", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Detail)

	w, env = do(t, router, http.MethodPost, "/api/v1/analyze/predict_task", []byte(`{"priority_numeric": 4, "estimated_hours": 80}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prediction map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &prediction))
	assert.Contains(t, prediction, "predicted_delay_days")
	assert.Contains(t, prediction, "category_probabilities")

	// 空请求体视为全部使用默认值
	w, _ = do(t, router, http.MethodPost, "/api/v1/analyze/predict_task", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/analyze/predict_task", []byte(`{"estimated_hours": true}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/api/v1/analyze/predict_task", []byte(`{not json`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, router, http.MethodGet, "/api/v1/models/history?limit=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, router, http.MethodGet, "/api/v1/models/history", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestInsufficientData 测试样本不足返回 422
func TestInsufficientData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.MinTrainingRows = 100
	router := newRouter(t, cfg, nil)

	w, _ := do(t, router, http.MethodPost, "/api/v1/models/train", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// TestAnalyzeEndpoints 测试分析接口
func TestAnalyzeEndpoints(t *testing.T) {
	router := newRouter(t, testConfig(t), nil)

	w, _ := do(t, router, http.MethodGet, "/api/v1/results/latest", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := do(t, router, http.MethodGet, "/api/v1/data/summary", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.DataSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, source.OriginSynthetic, summary.Origin)
	assert.Equal(t, 12, summary.Counts["tasks"])

	w, _ = do(t, router, http.MethodGet, "/api/v1/analyze/risk", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, router, http.MethodGet, "/api/v1/analyze/risk/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, router, http.MethodGet, "/api/v1/analyze/risk/bad.id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodGet, "/api/v1/analyze/trends", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, router, http.MethodGet, "/api/v1/analyze/predictions", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preds api.PredictionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &preds))
	assert.Len(t, preds.Predictions, 12)
	assert.Equal(t, 12, preds.Summary.TotalPredictions)

	w, env = do(t, router, http.MethodGet, "/api/v1/analyze/risk/"+preds.Predictions[0].ProjectID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var risk map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &risk))
	assert.Equal(t, preds.Predictions[0].ProjectID, risk["project_id"])

	w, _ = do(t, router, http.MethodGet, "/api/v1/analyze/recommendations", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, router, http.MethodPost, "/api/v1/analyze/full", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Detail)

	w, _ = do(t, router, http.MethodGet, "/api/v1/results/latest", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, router, http.MethodGet, "/api/v1/results/reports", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reports []service.ReportInfo
	require.NoError(t, json.Unmarshal(env.Data, &reports))
	assert.Len(t, reports, 3)
}

// TestProtectedRoutes 测试配置密钥后训练接口需要认证
func TestProtectedRoutes(t *testing.T) {
	validator, err := auth.NewTokenValidator("s3cret", "pulse-analytics")
	require.NoError(t, err)
	router := newRouter(t, testConfig(t), validator)

	w, _ := do(t, router, http.MethodPost, "/api/v1/models/train", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := validator.IssueToken("ops", nil, time.Hour)
	require.NoError(t, err)
	w, _ = do(t, router, http.MethodPost, "/api/v1/models/train", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)

	// 读接口不需要认证
	w, _ = do(t, router, http.MethodGet, "/api/v1/models/status", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRouteTable 测试只注册了分析接口,不暴露文档页面
func TestRouteTable(t *testing.T) {
	router := newRouter(t, testConfig(t), nil)

	paths := map[string]bool{}
	for _, r := range router.Routes() {
		paths[r.Method+" "+r.Path] = true
	}
	assert.True(t, paths["POST /api/v1/analyze/predict_task"])
	assert.True(t, paths["POST /api/v1/models/train"])
	assert.True(t, paths["GET /api/v1/analyze/full"])
	for p := range paths {
		assert.NotContains(t, p, "swagger")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
