package features_test

import (
	"testing"
	"time"

	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func days(n int) *time.Time { return ptr(now.AddDate(0, 0, n)) }

func fixture() *types.Dataset {
	return &types.Dataset{
		Users: []*types.User{
			{ID: "u-admin", Role: types.RoleAdministrator},
			{ID: "u-member", Role: types.RoleMember},
		},
		Projects: []*types.Project{{
			ID: "p1", StartDate: days(-90), EndDate: days(30), TeamID: "team1",
			Domains: []string{"frontend", "backend", "ui/ux"},
		}},
		Teams: []*types.Team{{ID: "team1", MemberIDs: []string{"u-admin", "u-member"}}},
		Tasks: []*types.Task{
			{
				ID: "t1", Title: "Urgent API migration", Description: "Complex and risky", Status: types.TaskStatusInProgress,
				Priority: types.PriorityHigh, AssigneeID: "u-admin", ProjectID: "p1", Domain: "devops",
				EstimatedHours: ptr(10.0), ActualHours: ptr(50.0), Dependencies: []string{"t0", "t2"},
			},
			{
				ID: "t2", Status: types.TaskStatusTodo, Priority: "unknown", AssigneeID: "u-member",
				ProjectID: "p1", Domain: "quantum", EstimatedHours: ptr(20.0),
			},
			{
				ID: "t3", Status: types.TaskStatusReview, Priority: types.PriorityLow, AssigneeID: "ghost",
				ProjectID: "p-missing", Domain: "frontend", ActualHours: ptr(4.0), EstimatedHours: ptr(40.0),
			},
		},
	}
}

// TestBuilder_JoinsAndDerives 测试关联与派生特征
func TestBuilder_JoinsAndDerives(t *testing.T) {
	table := (&features.Builder{}).Build(fixture())
	require.Equal(t, 3, table.Len())
	assert.Equal(t, features.BaseFeatures, table.Schema)

	t1 := table.Rows[0].Values
	assert.Equal(t, 2.0, t1[features.ProgressRatio], "ratio is capped at 2")
	assert.Equal(t, 2.0, t1[features.DependencyCount])
	assert.Equal(t, 3.0, t1[features.PriorityNumeric])
	assert.Equal(t, 45.0, t1[features.DomainComplexityScore])
	assert.Equal(t, 100.0, t1[features.AssigneeExperienceScore])
	assert.Equal(t, 2.0, t1[features.TeamSize])
	assert.InDelta(t, 0.1*120+10*3, t1[features.ProjectComplexityScore], 1e-9)

	t2 := table.Rows[1].Values
	assert.Equal(t, 25.0, t2[features.DomainComplexityScore], "unknown domain")
	assert.Equal(t, 25.0, t2[features.AssigneeExperienceScore])

	t3 := table.Rows[2].Values
	assert.InDelta(t, 0.1, t3[features.ProgressRatio], 1e-9)
	// 项目缺失时使用 30 天 / 1 个领域
	assert.InDelta(t, 13.0, t3[features.ProjectComplexityScore], 1e-9)
}

// TestBuilder_MedianImputation 测试缺失值按中位数填充
func TestBuilder_MedianImputation(t *testing.T) {
	table := (&features.Builder{}).Build(fixture())

	// t2 未知优先级: 中位数 (3, 1) = 2
	assert.Equal(t, 2.0, table.Rows[1].Values[features.PriorityNumeric])
	// t2 无实际工时: 中位数 (2.0, 0.1) = 1.05
	assert.InDelta(t, 1.05, table.Rows[1].Values[features.ProgressRatio], 1e-9)
	// t3 无团队: 中位数 (2, 2) = 2
	assert.Equal(t, 2.0, table.Rows[2].Values[features.TeamSize])
	// t3 未知负责人: 中位数 (100, 25) = 62.5
	assert.Equal(t, 62.5, table.Rows[2].Values[features.AssigneeExperienceScore])
}

// TestBuilder_DefaultsWhenColumnMissing 测试整列缺失时使用默认值
func TestBuilder_DefaultsWhenColumnMissing(t *testing.T) {
	ds := &types.Dataset{Tasks: []*types.Task{{ID: "t1", Status: types.TaskStatusTodo}}}
	table := (&features.Builder{}).Build(ds)
	v := table.Rows[0].Values

	assert.Equal(t, 24.0, v[features.EstimatedHours])
	assert.Equal(t, 0.5, v[features.ProgressRatio])
	assert.Equal(t, 3.0, v[features.TeamSize])
	assert.Equal(t, 2.0, v[features.PriorityNumeric])
	assert.Equal(t, 50.0, v[features.AssigneeExperienceScore])
}

// TestBuilder_NoMissingCells 测试输出不含缺失值
func TestBuilder_NoMissingCells(t *testing.T) {
	for _, text := range []bool{false, true} {
		table := (&features.Builder{TextFeatures: text}).Build(fixture())
		for _, row := range table.Rows {
			for _, name := range table.Schema {
				_, ok := row.Values[name]
				assert.True(t, ok, "%s missing on %s", name, row.TaskID)
			}
		}
		for _, vec := range table.Matrix() {
			assert.Len(t, vec, len(table.Schema))
		}
	}
}

// TestBuilder_ProgressRatioNeverExceedsTwo 测试进度比上限
func TestBuilder_ProgressRatioNeverExceedsTwo(t *testing.T) {
	ds := &types.Dataset{}
	for i, pair := range [][2]float64{{40, 38}, {10, 500}, {1, 3}, {0.5, 0.6}, {80, 0}} {
		ds.Tasks = append(ds.Tasks, &types.Task{
			ID: string(rune('a' + i)), Status: types.TaskStatusInProgress,
			EstimatedHours: ptr(pair[0]), ActualHours: ptr(pair[1]),
		})
	}
	table := (&features.Builder{}).Build(ds)
	for _, row := range table.Rows {
		assert.LessOrEqual(t, row.Values[features.ProgressRatio], 2.0)
	}
	assert.InDelta(t, 0.95, table.Rows[0].Values[features.ProgressRatio], 1e-9)
}

// TestTextScores 测试关键词计数
func TestTextScores(t *testing.T) {
	scores := features.TextScores("Urgent API migration", "Complex and risky database work")
	assert.Equal(t, 20.0, scores[features.TitleLength])
	assert.Equal(t, 3.0, scores[features.TechnicalKeywordsCount]) // api, migration, database
	assert.Equal(t, 1.0, scores[features.ComplexityIndicatorsCount])
	assert.Equal(t, 1.0, scores[features.UrgencyIndicatorsCount])
	assert.Equal(t, 1.0, scores[features.RiskIndicatorsCount])

	empty := features.TextScores("", "")
	for _, name := range features.TextFeatures {
		assert.Zero(t, empty[name], name)
	}
}

// TestMedian 测试中位数
func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, features.Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, features.Median([]float64{4, 1, 2, 3}))
	assert.True(t, features.Median(nil) != features.Median(nil), "NaN for empty input")
}

// TestTable_Filter 测试按项目过滤
func TestTable_Filter(t *testing.T) {
	table := (&features.Builder{}).Build(fixture())
	assert.Equal(t, 2, table.Filter("p1").Len())
	assert.Equal(t, 0, table.Filter("nope").Len())
	assert.Equal(t, 3, table.Filter("").Len())
}
