package types

import (
	"errors"
	"math"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusDelayed    TaskStatus = "delayed"
)

// Priority 任务优先级
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Numeric 返回优先级数值 (low=1 ... critical=4),未知优先级返回 false
func (p Priority) Numeric() (float64, bool) {
	switch p {
	case PriorityLow:
		return 1, true
	case PriorityMedium:
		return 2, true
	case PriorityHigh:
		return 3, true
	case PriorityCritical:
		return 4, true
	}
	return 0, false
}

// Role 用户角色
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleManager       Role = "manager"
	RoleLeader        Role = "leader"
	RoleMember        Role = "member"
)

// Tier 返回角色等级 (administrator=4 ... member=1)
func (r Role) Tier() (float64, bool) {
	switch r {
	case RoleAdministrator:
		return 4, true
	case RoleManager:
		return 3, true
	case RoleLeader:
		return 2, true
	case RoleMember:
		return 1, true
	}
	return 0, false
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusDelayed    ProjectStatus = "delayed"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// AlertType 延期告警级别
type AlertType string

const (
	AlertTypeMinor    AlertType = "minor"
	AlertTypeMajor    AlertType = "major"
	AlertTypeCritical AlertType = "critical"
)

// DelayCategory 延期分类
type DelayCategory string

const (
	NoDelay       DelayCategory = "no_delay"
	MinorDelay    DelayCategory = "minor_delay"
	MajorDelay    DelayCategory = "major_delay"
	CriticalDelay DelayCategory = "critical_delay"
)

// DelayCategories 按严重程度排序的全部分类
var DelayCategories = []DelayCategory{NoDelay, MinorDelay, MajorDelay, CriticalDelay}

// Rank 返回分类在 DelayCategories 中的序号,未知分类返回 -1
func (c DelayCategory) Rank() int {
	for i, v := range DelayCategories {
		if v == c {
			return i
		}
	}
	return -1
}

// Task 任务记录
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	AssigneeID     string     `json:"assignee_id"`
	ProjectID      string     `json:"project_id"`
	Domain         string     `json:"domain"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"` // 仅在任务开始后有值
	StartDate      *time.Time `json:"start_date,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CompletedDate  *time.Time `json:"completed_date,omitempty"`
	Dependencies   []string   `json:"dependencies"`
	DelayReason    string     `json:"delay_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Validate 校验任务记录的不变量
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if t.ActualHours != nil && t.Status == TaskStatusTodo {
		return errors.New("actual hours recorded on a todo task")
	}
	if t.CompletedDate != nil && t.Status != TaskStatusCompleted {
		return errors.New("completed date set on a task that is not completed")
	}
	return nil
}

// Project 项目记录
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Progress    float64       `json:"progress"` // 0-100
	StartDate   *time.Time    `json:"start_date,omitempty"`
	EndDate     *time.Time    `json:"end_date,omitempty"`
	TeamID      string        `json:"team_id"`
	ManagerID   string        `json:"manager_id"`
	Domains     []string      `json:"domains"`
	CreatedAt   time.Time     `json:"created_at"`
}

// DurationDays 返回项目计划天数,起止时间缺失时返回 false
func (p *Project) DurationDays() (float64, bool) {
	if p.StartDate == nil || p.EndDate == nil {
		return 0, false
	}
	return WholeDays(p.EndDate.Sub(*p.StartDate)), true
}

// Team 团队记录
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LeaderID    string    `json:"leader_id"`
	MemberIDs   []string  `json:"member_ids"`
	Skills      []string  `json:"skills"`
	CreatedAt   time.Time `json:"created_at"`
}

// User 用户记录
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DelayAlert 延期告警
type DelayAlert struct {
	ID               string    `json:"id"`
	Type             AlertType `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	TaskID           string    `json:"task_id"`
	ProjectID        string    `json:"project_id"`
	IsResolved       bool      `json:"is_resolved"`
	NotificationSent bool      `json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
}

// Dataset 一次分析使用的全部记录快照
type Dataset struct {
	Users    []*User       `json:"users"`
	Projects []*Project    `json:"projects"`
	Tasks    []*Task       `json:"tasks"`
	Teams    []*Team       `json:"teams"`
	Alerts   []*DelayAlert `json:"delay_alerts"`
}

// Summary 返回各类记录的数量
func (d *Dataset) Summary() map[string]int {
	if d == nil {
		return map[string]int{}
	}
	return map[string]int{
		"users":        len(d.Users),
		"projects":     len(d.Projects),
		"tasks":        len(d.Tasks),
		"teams":        len(d.Teams),
		"delay_alerts": len(d.Alerts),
	}
}

// WholeDays 按天向下取整
func WholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}
