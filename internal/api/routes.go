package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/auth"
	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖,DB、Reports、Validator 可以为 nil
type RouterDeps struct {
	DB        *gorm.DB
	Analysis  *service.AnalysisService
	Reports   *service.ReportService
	Validator *auth.TokenValidator
	Logger    *logrus.Logger
}

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(deps.Logger))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(ErrorHandlerMiddleware())

	healthController := NewHealthController(deps.DB, deps.Analysis, cfg.Source.Fallback)
	router.GET("/health", healthController.Check)
	router.GET("/metrics", MetricsHandler)

	// 配置了密钥时修改类接口需要认证
	protected := func(c *gin.Context) { c.Next() }
	if deps.Validator != nil {
		protected = auth.AuthMiddleware(deps.Validator)
	}

	analysisController := NewAnalysisController(deps.Analysis)
	modelController := NewModelController(deps.Analysis)
	dataController := NewDataController(deps.Analysis, deps.Reports)

	v1 := router.Group("/api/v1")
	{
		analyze := v1.Group("/analyze")
		{
			analyze.GET("/full", protected, analysisController.Full)
			analyze.POST("/full", protected, analysisController.Full)
			analyze.GET("/predictions", analysisController.Predictions)
			analyze.POST("/predictions", analysisController.Predictions)
			analyze.GET("/risk", analysisController.Risk)
			analyze.GET("/risk/:project_id", analysisController.Risk)
			analyze.GET("/trends", analysisController.Trends)
			analyze.GET("/recommendations", analysisController.Recommendations)
			analyze.POST("/predict_task", analysisController.PredictTask)
		}

		data := v1.Group("/data")
		{
			data.GET("/summary", dataController.Summary)
			data.POST("/refresh", protected, dataController.Refresh)
		}

		models := v1.Group("/models")
		{
			models.POST("/train",
				RateLimitMiddleware(cfg.RateLimit.TrainRPS, cfg.RateLimit.TrainBurst),
				protected,
				modelController.Train)
			models.GET("/status", modelController.Status)
			models.GET("/history", modelController.History)
		}

		results := v1.Group("/results")
		{
			results.GET("/latest", dataController.LatestResult)
			results.GET("/reports", dataController.Reports)
		}
	}

	return router
}
