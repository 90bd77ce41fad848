package analysis

import "github.com/mautops/pulse-analytics/internal/types"

// RecommendationThreshold 生成行动建议的风险阈值
const RecommendationThreshold = 60.0

var (
	criticalActions = []string{
		"Immediate manager intervention required",
		"Consider reassigning critical resources",
		"Review and potentially extend deadline",
		"Implement daily check-ins",
	}
	highRiskActions = []string{
		"Increase monitoring frequency",
		"Review task dependencies",
		"Consider additional resources",
		"Implement risk mitigation plan",
	}
)

// TaskRecommendation 高风险任务的行动建议
type TaskRecommendation struct {
	TaskID         string           `json:"task_id"`
	TaskTitle      string           `json:"task_title"`
	RiskScore      float64          `json:"risk_score"`
	PredictedDelay float64          `json:"predicted_delay"`
	CurrentStatus  types.TaskStatus `json:"current_status"`
	Priority       types.Priority   `json:"priority"`
	Recommendation string           `json:"recommendation"`
	Actions        []string         `json:"actions"`
}

// Recommendations 为风险分超过 60 的预测生成行动清单
func Recommendations(predictions []*Prediction) []TaskRecommendation {
	out := []TaskRecommendation{}
	for _, p := range predictions {
		if p.RiskScore <= RecommendationThreshold {
			continue
		}
		actions := highRiskActions
		if p.RiskScore > 80 {
			actions = criticalActions
		}
		out = append(out, TaskRecommendation{
			TaskID:         p.TaskID,
			TaskTitle:      p.TaskTitle,
			RiskScore:      p.RiskScore,
			PredictedDelay: p.PredictedDelayDays,
			CurrentStatus:  p.CurrentStatus,
			Priority:       p.Priority,
			Recommendation: p.Recommendation,
			Actions:        append([]string(nil), actions...),
		})
	}
	return out
}

// PredictionSummary 批量预测汇总
type PredictionSummary struct {
	TotalPredictions      int     `json:"total_predictions"`
	HighRiskTasks         int     `json:"high_risk_tasks"`
	AveragePredictedDelay float64 `json:"average_predicted_delay"`
}

// SummarizePredictions 汇总批量预测
func SummarizePredictions(predictions []*Prediction) PredictionSummary {
	s := PredictionSummary{TotalPredictions: len(predictions)}
	var total float64
	for _, p := range predictions {
		if p.RiskScore > HighRiskThreshold {
			s.HighRiskTasks++
		}
		total += p.PredictedDelayDays
	}
	s.AveragePredictedDelay = total / float64(max(len(predictions), 1))
	return s
}
