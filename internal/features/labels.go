package features

import (
	"math"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
)

// LabelBuilder 根据截止日期与完成日期生成延期标签
type LabelBuilder struct {
	Now func() time.Time
}

// Build 为每一行写入 DelayDays、Category、IsDelayed 和 RiskScore,返回同一张表
func (lb *LabelBuilder) Build(t *Table) *Table {
	now := time.Now()
	if lb.Now != nil {
		now = lb.Now()
	}
	for _, r := range t.Rows {
		r.DelayDays = DelayDays(r.DueDate, r.CompletedDate, now)
		r.Category = Categorize(r.DelayDays)
		r.IsDelayed = r.DelayDays > 0
		r.RiskScore = LabelRiskScore(r.DelayDays, r.Values[PriorityNumeric], r.Values[ProgressRatio])
		r.Labeled = true
	}
	return t
}

// DelayDays 已完成任务按完成日期计算,未完成任务按当前时间计算,结果不小于 0
func DelayDays(due, completed *time.Time, now time.Time) float64 {
	if due == nil {
		return 0
	}
	end := now
	if completed != nil {
		end = *completed
	}
	return math.Max(0, types.WholeDays(end.Sub(*due)))
}

// Categorize 按 (-inf,1] (1,3] (3,7] (7,inf) 分桶
func Categorize(days float64) types.DelayCategory {
	switch {
	case days <= 1:
		return types.NoDelay
	case days <= 3:
		return types.MinorDelay
	case days <= 7:
		return types.MajorDelay
	default:
		return types.CriticalDelay
	}
}

// LabelRiskScore 训练标签使用的启发式风险分
func LabelRiskScore(delayDays, priority, progress float64) float64 {
	return Clip(10*delayDays+15*priority+(100-50*progress), 0, 100)
}

// Clip 将 v 限制在 [lo, hi]
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
