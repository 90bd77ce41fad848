package repository

import (
	"time"

	"github.com/mautops/pulse-analytics/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Save(task *model.TaskModel) error
	SaveAll(tasks []*model.TaskModel) error
	FindByID(id string) (*model.TaskModel, error)
	FindAll() ([]*model.TaskModel, error)
	FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error)
	Count() (int64, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	ProjectID  *string
	Status     *string
	Priority   *string
	AssigneeID *string
	DueAfter   *time.Time
	DueBefore  *time.Time
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Save 保存任务
func (r *taskRepository) Save(task *model.TaskModel) error {
	return r.db.Save(task).Error
}

// SaveAll 批量写入任务,主键冲突时覆盖
func (r *taskRepository) SaveAll(tasks []*model.TaskModel) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(tasks, 100).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindAll 查找所有任务
func (r *taskRepository) FindAll() ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.Model(&model.TaskModel{})

	if filter != nil {
		if filter.ProjectID != nil {
			query = query.Where("project_id = ?", *filter.ProjectID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Priority != nil {
			query = query.Where("priority = ?", *filter.Priority)
		}
		if filter.AssigneeID != nil {
			query = query.Where("assignee_id = ?", *filter.AssigneeID)
		}
		if filter.DueAfter != nil {
			query = query.Where("due_date >= ?", *filter.DueAfter)
		}
		if filter.DueBefore != nil {
			query = query.Where("due_date <= ?", *filter.DueBefore)
		}
	}

	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// Count 统计任务数量
func (r *taskRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.TaskModel{}).Count(&n).Error
	return n, err
}
