package model

import (
	"errors"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
	"gorm.io/datatypes"
)

// TaskModel 任务数据模型
type TaskModel struct {
	ID             string   `gorm:"primaryKey;type:varchar(64)"`
	Title          string   `gorm:"type:varchar(255);not null"`
	Description    string   `gorm:"type:text"`
	Status         string   `gorm:"type:varchar(32);not null;index"` // todo/in_progress/review/completed/delayed
	Priority       string   `gorm:"type:varchar(16);not null"`
	AssigneeID     string   `gorm:"type:varchar(64);index"`
	ProjectID      string   `gorm:"type:varchar(64);not null;index"`
	Domain         string   `gorm:"type:varchar(64)"`
	EstimatedHours *float64 `gorm:"type:double precision"`
	ActualHours    *float64 `gorm:"type:double precision"` // 任务开始后才有值
	StartDate      *time.Time
	DueDate        *time.Time `gorm:"index"`
	CompletedDate  *time.Time
	Dependencies   datatypes.JSONSlice[string] // 依赖任务 ID 列表
	DelayReason    string                      `gorm:"type:text"`
	CreatedAt      time.Time                   `gorm:"not null;index"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.ProjectID == "" {
		return errors.New("project ID is required")
	}
	if tm.Status == "" {
		return errors.New("task status is required")
	}
	if tm.CompletedDate != nil && tm.Status != string(types.TaskStatusCompleted) {
		return errors.New("completed date requires completed status")
	}
	return nil
}

// ToDomain 转换为领域对象
func (tm *TaskModel) ToDomain() *types.Task {
	return &types.Task{
		ID:             tm.ID,
		Title:          tm.Title,
		Description:    tm.Description,
		Status:         types.TaskStatus(tm.Status),
		Priority:       types.Priority(tm.Priority),
		AssigneeID:     tm.AssigneeID,
		ProjectID:      tm.ProjectID,
		Domain:         tm.Domain,
		EstimatedHours: tm.EstimatedHours,
		ActualHours:    tm.ActualHours,
		StartDate:      tm.StartDate,
		DueDate:        tm.DueDate,
		CompletedDate:  tm.CompletedDate,
		Dependencies:   []string(tm.Dependencies),
		DelayReason:    tm.DelayReason,
		CreatedAt:      tm.CreatedAt,
	}
}

// TaskFromDomain 从领域对象构建数据模型
func TaskFromDomain(t *types.Task) *TaskModel {
	return &TaskModel{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		AssigneeID:     t.AssigneeID,
		ProjectID:      t.ProjectID,
		Domain:         t.Domain,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		StartDate:      t.StartDate,
		DueDate:        t.DueDate,
		CompletedDate:  t.CompletedDate,
		Dependencies:   datatypes.JSONSlice[string](t.Dependencies),
		DelayReason:    t.DelayReason,
		CreatedAt:      t.CreatedAt,
	}
}
