package features

import (
	"math"
	"sort"

	"github.com/mautops/pulse-analytics/internal/types"
)

const (
	maxProgressRatio       = 2.0
	experiencePerTier      = 25.0
	defaultProjectDuration = 30.0
	defaultDomainCount     = 1.0
)

// Builder 将任务与用户、项目、团队记录关联,生成特征表
type Builder struct {
	TextFeatures bool
}

// Build 构建特征表。缺失值用本批次的列中位数填充,整列缺失时使用默认值。
func (b *Builder) Build(ds *types.Dataset) *Table {
	table := &Table{Schema: Schema(b.TextFeatures)}
	if ds == nil {
		return table
	}

	users := make(map[string]*types.User, len(ds.Users))
	for _, u := range ds.Users {
		users[u.ID] = u
	}
	projects := make(map[string]*types.Project, len(ds.Projects))
	for _, p := range ds.Projects {
		projects[p.ID] = p
	}
	teams := make(map[string]*types.Team, len(ds.Teams))
	for _, t := range ds.Teams {
		teams[t.ID] = t
	}

	for _, task := range ds.Tasks {
		row := &Row{
			TaskID:        task.ID,
			Title:         task.Title,
			ProjectID:     task.ProjectID,
			AssigneeID:    task.AssigneeID,
			Status:        task.Status,
			Priority:      task.Priority,
			Domain:        task.Domain,
			DueDate:       task.DueDate,
			CompletedDate: task.CompletedDate,
			CreatedAt:     task.CreatedAt,
			Values:        make(map[string]float64, len(table.Schema)),
		}
		b.fill(row, task, users, projects, teams)
		table.Rows = append(table.Rows, row)
	}

	impute(table)
	return table
}

// fill 写入可直接计算的特征,缺失的特征不写入
func (b *Builder) fill(row *Row, task *types.Task, users map[string]*types.User,
	projects map[string]*types.Project, teams map[string]*types.Team) {
	v := row.Values

	if task.EstimatedHours != nil {
		v[EstimatedHours] = *task.EstimatedHours
	}
	if task.ActualHours != nil && task.EstimatedHours != nil {
		v[ProgressRatio] = math.Min(*task.ActualHours/math.Max(*task.EstimatedHours, 1), maxProgressRatio)
	}
	v[DependencyCount] = float64(len(task.Dependencies))
	if p, ok := task.Priority.Numeric(); ok {
		v[PriorityNumeric] = p
	}
	v[DomainComplexityScore] = DomainComplexity(task.Domain)

	if u, ok := users[task.AssigneeID]; ok {
		if tier, ok := u.Role.Tier(); ok {
			v[AssigneeExperienceScore] = tier * experiencePerTier
		}
	}

	duration, domains := defaultProjectDuration, defaultDomainCount
	if p, ok := projects[task.ProjectID]; ok {
		if d, ok := p.DurationDays(); ok {
			duration = d
		}
		if len(p.Domains) > 0 {
			domains = float64(len(p.Domains))
		}
		if team, ok := teams[p.TeamID]; ok {
			v[TeamSize] = float64(len(team.MemberIDs))
		}
	}
	v[ProjectComplexityScore] = 0.1*duration + 10*domains

	if b.TextFeatures {
		for name, score := range TextScores(task.Title, task.Description) {
			v[name] = score
		}
	}
}

// impute 用列中位数填充缺失特征
func impute(t *Table) {
	for _, name := range t.Schema {
		var present []float64
		for _, r := range t.Rows {
			if val, ok := r.Values[name]; ok {
				present = append(present, val)
			}
		}
		fill := Default(name)
		if len(present) > 0 {
			fill = Median(present)
		}
		for _, r := range t.Rows {
			if _, ok := r.Values[name]; !ok {
				r.Values[name] = fill
			}
		}
	}
}

// Median 返回中位数,偶数个元素时取中间两个的平均值
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
