package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
)

// SyntheticSource 生成固定结构的演示数据,相同 Seed 和 Now 得到相同结果
type SyntheticSource struct {
	Seed int64
	Now  func() time.Time
}

// NewSyntheticSource 创建合成数据来源
func NewSyntheticSource(seed int64) *SyntheticSource {
	return &SyntheticSource{Seed: seed, Now: time.Now}
}

var syntheticTaskTitles = []string{
	"User Authentication System", "Payment Gateway Integration", "Product Search Feature",
	"Shopping Cart Implementation", "Order Management System", "User Profile Dashboard",
	"Mobile UI Components", "API Documentation", "Database Optimization",
	"Security Audit", "Performance Testing", "User Testing Sessions",
}

var (
	syntheticStatuses = []types.TaskStatus{
		types.TaskStatusTodo, types.TaskStatusInProgress, types.TaskStatusReview,
		types.TaskStatusCompleted, types.TaskStatusDelayed,
	}
	syntheticPriorities = []types.Priority{
		types.PriorityLow, types.PriorityMedium, types.PriorityHigh, types.PriorityCritical,
	}
	syntheticDomains    = []string{"frontend", "backend", "mobile", "testing", "ui/ux", "api"}
	syntheticAlertTypes = []types.AlertType{types.AlertTypeMinor, types.AlertTypeMajor, types.AlertTypeCritical}
)

// syntheticLateTasks 固定延期的任务,保证任意种子下每个非零延期分类都有样本。
// 偏移以小时计,避免跨夏令时的整天截断
var syntheticLateTasks = []struct {
	index          int
	dueHours       int
	completedHours int // 0 表示未完成
}{
	{index: 1, dueHours: -60},                         // 2 天, minor_delay
	{index: 4, dueHours: -130},                        // 5 天, major_delay
	{index: 7, dueHours: -250},                        // 10 天, critical_delay
	{index: 10, dueHours: -300, completedHours: -180}, // 完成晚 5 天, major_delay
}

// Load 生成 5 个用户、3 个项目、1 个团队、12 个任务和 15 条告警
func (s *SyntheticSource) Load(ctx context.Context) (*types.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	rng := rand.New(rand.NewPCG(uint64(s.Seed), uint64(s.Seed)^0x9e3779b97f4a7c15))
	days := func(n int) time.Time { return now.AddDate(0, 0, n) }

	ds := &types.Dataset{
		Users: []*types.User{
			{ID: "usr1", Email: "admin@company.com", Name: "System Administrator", Role: types.RoleAdministrator, CreatedAt: days(-365)},
			{ID: "usr2", Email: "manager@company.com", Name: "Alex Manager", Role: types.RoleManager, CreatedAt: days(-300)},
			{ID: "usr3", Email: "leader1@company.com", Name: "Sarah Johnson", Role: types.RoleLeader, CreatedAt: days(-250)},
			{ID: "usr4", Email: "mike@company.com", Name: "Mike Chen", Role: types.RoleMember, CreatedAt: days(-200)},
			{ID: "usr5", Email: "emma@company.com", Name: "Emma Davis", Role: types.RoleMember, CreatedAt: days(-150)},
		},
		Projects: []*types.Project{
			{
				ID: "proj1", Name: "E-commerce Redesign", Description: "Complete redesign of e-commerce platform",
				Status: types.ProjectStatusInProgress, Progress: 65, StartDate: ptr(days(-90)), EndDate: ptr(days(30)),
				TeamID: "team1", ManagerID: "usr2", Domains: []string{"frontend", "backend", "ui/ux"}, CreatedAt: days(-100),
			},
			{
				ID: "proj2", Name: "Mobile App Development", Description: "New mobile application",
				Status: types.ProjectStatusDelayed, Progress: 40, StartDate: ptr(days(-120)), EndDate: ptr(days(60)),
				TeamID: "team1", ManagerID: "usr2", Domains: []string{"mobile", "api", "testing"}, CreatedAt: days(-130),
			},
			{
				ID: "proj3", Name: "Data Analytics Dashboard", Description: "Business intelligence dashboard",
				Status: types.ProjectStatusCompleted, Progress: 100, StartDate: ptr(days(-200)), EndDate: ptr(days(-30)),
				TeamID: "team1", ManagerID: "usr2", Domains: []string{"analytics", "visualization", "data"}, CreatedAt: days(-210),
			},
		},
		Teams: []*types.Team{{
			ID: "team1", Name: "Development Team Alpha", Description: "Primary development team",
			LeaderID: "usr3", MemberIDs: []string{"usr4", "usr5"},
			Skills:    []string{"React", "Node.js", "TypeScript", "UI/UX", "Testing"},
			CreatedAt: days(-200),
		}},
	}

	for i, title := range syntheticTaskTitles {
		status := syntheticStatuses[rng.IntN(len(syntheticStatuses))]
		task := &types.Task{
			ID:             fmt.Sprintf("task%d", i+1),
			Title:          title,
			Description:    "Description for " + title,
			Status:         status,
			Priority:       syntheticPriorities[rng.IntN(len(syntheticPriorities))],
			AssigneeID:     fmt.Sprintf("usr%d", 3+rng.IntN(3)),
			ProjectID:      fmt.Sprintf("proj%d", 1+rng.IntN(3)),
			Domain:         syntheticDomains[rng.IntN(len(syntheticDomains))],
			EstimatedHours: ptr(float64(8 + rng.IntN(72))),
			StartDate:      ptr(days(-5 - rng.IntN(85))),
			DueDate:        ptr(days(-10 + rng.IntN(40))),
			Dependencies:   []string{},
			CreatedAt:      days(-10 - rng.IntN(90)),
		}
		// 实际工时只出现在已开始的任务上
		if status != types.TaskStatusTodo && rng.Float64() > 0.3 {
			task.ActualHours = ptr(float64(5 + rng.IntN(95)))
		}
		if status == types.TaskStatusCompleted {
			task.CompletedDate = ptr(days(-1 - rng.IntN(9)))
		}
		if rng.Float64() > 0.8 {
			task.DelayReason = "Technical complexity"
		}
		if i > 0 && rng.Float64() > 0.6 {
			task.Dependencies = append(task.Dependencies, fmt.Sprintf("task%d", 1+rng.IntN(i)))
		}
		ds.Tasks = append(ds.Tasks, task)
	}

	// 在随机生成之后覆盖,不改变随机数序列
	hours := func(n int) time.Time { return now.Add(time.Duration(n) * time.Hour) }
	for _, late := range syntheticLateTasks {
		task := ds.Tasks[late.index]
		task.DueDate = ptr(hours(late.dueHours))
		task.StartDate = ptr(hours(late.dueHours - 24*21))
		if late.completedHours == 0 {
			task.Status = types.TaskStatusDelayed
			task.CompletedDate = nil
		} else {
			task.Status = types.TaskStatusCompleted
			task.CompletedDate = ptr(hours(late.completedHours))
		}
		task.DelayReason = "Technical complexity"
	}

	for i := 0; i < 15; i++ {
		ds.Alerts = append(ds.Alerts, &types.DelayAlert{
			ID:               fmt.Sprintf("alert%d", i+1),
			Type:             syntheticAlertTypes[rng.IntN(len(syntheticAlertTypes))],
			Title:            fmt.Sprintf("Delay Alert %d", i+1),
			Message:          "Task is delayed due to various reasons",
			TaskID:           fmt.Sprintf("task%d", 1+rng.IntN(12)),
			ProjectID:        fmt.Sprintf("proj%d", 1+rng.IntN(3)),
			IsResolved:       rng.IntN(2) == 1,
			NotificationSent: true,
			CreatedAt:        days(-1 - rng.IntN(29)),
		})
	}

	return ds, nil
}

func ptr[T any](v T) *T { return &v }
