package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 训练次数,按结果区分
	trainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"result"}, // success, insufficient_data, error
	)

	trainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Model training duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	lastDurationRMSE = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_duration_rmse",
			Help: "Delay-days RMSE of the most recently trained model",
		},
	)

	trainingSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_samples",
			Help: "Number of rows used to fit the most recently trained model",
		},
	)

	// 预测数,按预测分类区分
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delay_predictions_total",
			Help: "Total number of delay predictions",
		},
		[]string{"category"},
	)

	// 数据源回退次数
	sourceFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "record_source_fallbacks_total",
			Help: "Total number of loads served by the synthetic fallback source",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 各风险级别任务数
	tasksByRisk = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_delay_category",
			Help: "Number of tasks by predicted delay category in the latest full analysis",
		},
		[]string{"category"},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(trainingRunsTotal)
	prometheus.MustRegister(trainingDuration)
	prometheus.MustRegister(lastDurationRMSE)
	prometheus.MustRegister(trainingSamples)
	prometheus.MustRegister(predictionsTotal)
	prometheus.MustRegister(sourceFallbacksTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(tasksByRisk)

	once.Do(func() {
		// 已注册时忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTraining 记录一次训练
func RecordTraining(result string, seconds float64) {
	trainingRunsTotal.WithLabelValues(result).Inc()
	trainingDuration.Observe(seconds)
}

// RecordModelQuality 记录最近一次训练的误差与样本数
func RecordModelQuality(rmse float64, samples int) {
	lastDurationRMSE.Set(rmse)
	trainingSamples.Set(float64(samples))
}

// RecordPrediction 记录一次预测
func RecordPrediction(category string) {
	predictionsTotal.WithLabelValues(category).Inc()
}

// RecordSourceFallback 记录一次数据源回退
func RecordSourceFallback() {
	sourceFallbacksTotal.Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateTasksByCategory 更新各延期分类的任务数
func UpdateTasksByCategory(counts map[string]int) {
	tasksByRisk.Reset()
	for category, n := range counts {
		tasksByRisk.WithLabelValues(category).Set(float64(n))
	}
}
