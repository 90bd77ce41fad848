package analysis

import (
	"fmt"
	"sort"

	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/types"
)

const (
	// HighRiskThreshold 高风险任务阈值
	HighRiskThreshold = 70.0
	// CriticalRiskThreshold 关键任务风险阈值
	CriticalRiskThreshold = 60.0
	// CriticalDelayDays 关键任务延期天数阈值(major 分类上界)
	CriticalDelayDays = 7.0
)

// CriticalTask 需要关注的任务
type CriticalTask struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	ProjectID string           `json:"project_id"`
	Priority  types.Priority   `json:"priority"`
	Status    types.TaskStatus `json:"status"`
	DelayDays float64          `json:"delay_days"`
	RiskScore float64          `json:"risk_score"`
}

// RiskSummary 项目或全部项目的风险汇总
type RiskSummary struct {
	ProjectID        string             `json:"project_id,omitempty"`
	TotalTasks       int                `json:"total_tasks"`
	DelayedTasks     int                `json:"delayed_tasks"`
	HighRiskTasks    int                `json:"high_risk_tasks"`
	AverageDelayDays float64            `json:"average_delay_days"`
	DelayByPriority  map[string]float64 `json:"delay_by_priority"`
	DelayByDomain    map[string]float64 `json:"delay_by_domain"`
	TasksByStatus    map[string]int     `json:"tasks_by_status"`
	CriticalTasks    []CriticalTask     `json:"critical_tasks"`
}

// AnalyzeRisk 汇总带标签特征表的风险,projectID 为空时统计全部项目
func AnalyzeRisk(table *features.Table, projectID string) (*RiskSummary, error) {
	scoped := table.Filter(projectID)
	if scoped.Len() == 0 {
		if projectID != "" {
			return nil, fmt.Errorf("%w: project %s", ErrEmptyScope, projectID)
		}
		return nil, ErrEmptyScope
	}

	summary := &RiskSummary{
		ProjectID:     projectID,
		TotalTasks:    scoped.Len(),
		TasksByStatus: make(map[string]int),
		CriticalTasks: []CriticalTask{},
	}
	byPriority := newMeanGroup()
	byDomain := newMeanGroup()
	var total float64

	for _, r := range scoped.Rows {
		total += r.DelayDays
		if r.IsDelayed {
			summary.DelayedTasks++
		}
		if r.RiskScore > HighRiskThreshold {
			summary.HighRiskTasks++
		}
		byPriority.add(string(r.Priority), r.DelayDays)
		byDomain.add(r.Domain, r.DelayDays)
		summary.TasksByStatus[string(r.Status)]++

		if r.RiskScore > CriticalRiskThreshold || r.DelayDays > CriticalDelayDays {
			summary.CriticalTasks = append(summary.CriticalTasks, CriticalTask{
				ID:        r.TaskID,
				Title:     r.Title,
				ProjectID: r.ProjectID,
				Priority:  r.Priority,
				Status:    r.Status,
				DelayDays: r.DelayDays,
				RiskScore: r.RiskScore,
			})
		}
	}

	summary.AverageDelayDays = total / float64(scoped.Len())
	summary.DelayByPriority = byPriority.means()
	summary.DelayByDomain = byDomain.means()
	sort.SliceStable(summary.CriticalTasks, func(i, j int) bool {
		return summary.CriticalTasks[i].RiskScore > summary.CriticalTasks[j].RiskScore
	})
	return summary, nil
}

// meanGroup 分组求均值
type meanGroup struct {
	sum   map[string]float64
	count map[string]int
}

func newMeanGroup() *meanGroup {
	return &meanGroup{sum: map[string]float64{}, count: map[string]int{}}
}

func (g *meanGroup) add(key string, v float64) {
	g.sum[key] += v
	g.count[key]++
}

func (g *meanGroup) means() map[string]float64 {
	out := make(map[string]float64, len(g.sum))
	for k, s := range g.sum {
		out[k] = s / float64(g.count[k])
	}
	return out
}
