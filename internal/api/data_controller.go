package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/service"
)

// DataController 数据与结果控制器
type DataController struct {
	analysis *service.AnalysisService
	reports  *service.ReportService
}

// NewDataController 创建数据控制器,reports 可以为 nil
func NewDataController(analysis *service.AnalysisService, reports *service.ReportService) *DataController {
	return &DataController{analysis: analysis, reports: reports}
}

// Summary 数据概况
func (c *DataController) Summary(ctx *gin.Context) {
	summary, err := c.analysis.DataSummary(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, summary)
}

// Refresh 重新加载数据集
func (c *DataController) Refresh(ctx *gin.Context) {
	ds, origin, err := c.analysis.Refresh(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, service.DataSummary{Origin: origin, Counts: ds.Summary()})
}

// LatestResult 最近一次完整分析的结果
func (c *DataController) LatestResult(ctx *gin.Context) {
	result, ok := c.analysis.LatestResult()
	if !ok {
		Error(ctx, http.StatusNotFound, "no analysis results available", "run a full analysis first")
		return
	}
	Success(ctx, result)
}

// Reports 列出已写出的报告文件
func (c *DataController) Reports(ctx *gin.Context) {
	if c.reports == nil {
		Success(ctx, []service.ReportInfo{})
		return
	}
	reports, err := c.reports.ListReports()
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, reports)
}
