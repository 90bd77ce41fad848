package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/analysis"
	"github.com/mautops/pulse-analytics/internal/service"
	"github.com/mautops/pulse-analytics/internal/utils"
)

// AnalysisController 分析接口控制器
type AnalysisController struct {
	analysis *service.AnalysisService
}

// NewAnalysisController 创建分析控制器
func NewAnalysisController(analysis *service.AnalysisService) *AnalysisController {
	return &AnalysisController{analysis: analysis}
}

// PredictionsResponse 批量预测响应
type PredictionsResponse struct {
	Predictions []*analysis.Prediction     `json:"predictions"`
	Summary     analysis.PredictionSummary `json:"summary"`
}

// Full 执行完整分析
func (c *AnalysisController) Full(ctx *gin.Context) {
	result, err := c.analysis.RunFull(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, result)
}

// Predictions 为全部任务生成预测
func (c *AnalysisController) Predictions(ctx *gin.Context) {
	predictions, err := c.analysis.PredictAll(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, PredictionsResponse{
		Predictions: predictions,
		Summary:     analysis.SummarizePredictions(predictions),
	})
}

// PredictTask 根据请求体中的特征预测单个任务,未提供的特征使用默认值
func (c *AnalysisController) PredictTask(ctx *gin.Context) {
	input := map[string]any{}
	if err := ctx.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	prediction, err := c.analysis.PredictTask(ctx.Request.Context(), input)
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, prediction)
}

// Risk 风险汇总,带 project_id 时只统计该项目
func (c *AnalysisController) Risk(ctx *gin.Context) {
	projectID := ctx.Param("project_id")
	if projectID != "" {
		if err := utils.ValidateID(projectID); err != nil {
			ctx.Error(err)
			return
		}
	}
	summary, err := c.analysis.AnalyzeRisk(ctx.Request.Context(), projectID)
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, summary)
}

// Trends 延期趋势
func (c *AnalysisController) Trends(ctx *gin.Context) {
	trends, err := c.analysis.Trends(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, trends)
}

// Recommendations 高风险任务的行动建议
func (c *AnalysisController) Recommendations(ctx *gin.Context) {
	recs, err := c.analysis.Recommendations(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, gin.H{
		"recommendations": recs,
		"total":           len(recs),
	})
}
