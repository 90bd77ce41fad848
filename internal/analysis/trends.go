package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/types"
)

// WeeklyStat 按创建周统计的延期情况
type WeeklyStat struct {
	Week          string  `json:"week"` // ISO 周,如 2026-W09
	MeanDelayDays float64 `json:"mean_delay_days"`
	TaskCount     int     `json:"task_count"`
	DelayedTasks  int     `json:"delayed_tasks"`
}

// TrendSummary 延期趋势
type TrendSummary struct {
	WeeklyDelayStats    []WeeklyStat              `json:"weekly_delay_stats"`
	AlertTrends         map[string]map[string]int `json:"alert_trends"` // 周 -> 告警类型 -> 数量
	DelayDistribution   map[string]int            `json:"delay_distribution"`
	AverageDelayByMonth map[string]float64        `json:"average_delay_by_month"`
}

// ISOWeek 返回 ISO 周标识
func ISOWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// AnalyzeTrends 按任务创建时间统计延期趋势,并生成告警类型与周的透视表
func AnalyzeTrends(table *features.Table, alerts []*types.DelayAlert) *TrendSummary {
	summary := &TrendSummary{
		WeeklyDelayStats:    []WeeklyStat{},
		AlertTrends:         make(map[string]map[string]int),
		DelayDistribution:   make(map[string]int),
		AverageDelayByMonth: make(map[string]float64),
	}

	weekly := map[string]*WeeklyStat{}
	byMonth := newMeanGroup()
	for _, r := range table.Rows {
		week := ISOWeek(r.CreatedAt)
		stat, ok := weekly[week]
		if !ok {
			stat = &WeeklyStat{Week: week}
			weekly[week] = stat
		}
		stat.MeanDelayDays += r.DelayDays
		stat.TaskCount++
		if r.IsDelayed {
			stat.DelayedTasks++
		}
		summary.DelayDistribution[string(r.Category)]++
		byMonth.add(r.CreatedAt.Format("2006-01"), r.DelayDays)
	}
	for _, stat := range weekly {
		stat.MeanDelayDays = round2(stat.MeanDelayDays / float64(stat.TaskCount))
		summary.WeeklyDelayStats = append(summary.WeeklyDelayStats, *stat)
	}
	sort.Slice(summary.WeeklyDelayStats, func(i, j int) bool {
		return summary.WeeklyDelayStats[i].Week < summary.WeeklyDelayStats[j].Week
	})
	summary.AverageDelayByMonth = byMonth.means()

	// 透视表中每周都包含出现过的全部告警类型
	alertTypes := map[string]bool{}
	for _, a := range alerts {
		alertTypes[string(a.Type)] = true
	}
	for _, a := range alerts {
		week := ISOWeek(a.CreatedAt)
		row, ok := summary.AlertTrends[week]
		if !ok {
			row = make(map[string]int, len(alertTypes))
			for t := range alertTypes {
				row[t] = 0
			}
			summary.AlertTrends[week] = row
		}
		row[string(a.Type)]++
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
