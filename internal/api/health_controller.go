package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/pulse-analytics/internal/service"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db       *gorm.DB
	analysis *service.AnalysisService
	fallback bool
}

// NewHealthController 创建健康检查控制器。fallback 为 true 时数据库不可用只视为降级。
func NewHealthController(db *gorm.DB, analysis *service.AnalysisService, fallback bool) *HealthController {
	return &HealthController{
		db:       db,
		analysis: analysis,
		fallback: fallback,
	}
}

// Check 健康检查
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
		if !c.fallback {
			status = "unhealthy"
		}
	}
	if status == "unhealthy" && c.fallback {
		status = "degraded"
	}

	if c.analysis != nil && c.analysis.Status().Trained {
		checks["model"] = "trained"
	} else {
		checks["model"] = "not trained"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
