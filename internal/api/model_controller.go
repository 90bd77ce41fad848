package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/service"
)

// ModelController 模型管理控制器
type ModelController struct {
	analysis *service.AnalysisService
}

// NewModelController 创建模型控制器
func NewModelController(analysis *service.AnalysisService) *ModelController {
	return &ModelController{analysis: analysis}
}

// Train 重新训练模型
func (c *ModelController) Train(ctx *gin.Context) {
	result, err := c.analysis.Train(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, result)
}

// Status 模型状态
func (c *ModelController) Status(ctx *gin.Context) {
	Success(ctx, c.analysis.Status())
}

// History 最近的训练记录
func (c *ModelController) History(ctx *gin.Context) {
	limit := 20
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			Error(ctx, http.StatusBadRequest, "invalid limit", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	runs, err := c.analysis.TrainingHistory(limit)
	if err != nil {
		ctx.Error(err)
		return
	}
	Success(ctx, runs)
}
