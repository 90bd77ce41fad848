package repository

import (
	"github.com/mautops/pulse-analytics/internal/model"
	"gorm.io/gorm"
)

// TrainingRunRepository 训练记录仓储接口
type TrainingRunRepository interface {
	Save(run *model.TrainingRunModel) error
	FindLatest() (*model.TrainingRunModel, error)
	FindRecent(limit int) ([]*model.TrainingRunModel, error)
}

// trainingRunRepository 训练记录仓储实现
type trainingRunRepository struct {
	db *gorm.DB
}

// NewTrainingRunRepository 创建训练记录仓储
func NewTrainingRunRepository(db *gorm.DB) TrainingRunRepository {
	return &trainingRunRepository{db: db}
}

// Save 保存训练记录
func (r *trainingRunRepository) Save(run *model.TrainingRunModel) error {
	if err := run.Validate(); err != nil {
		return err
	}
	return r.db.Save(run).Error
}

// FindLatest 查找最近一次训练记录
func (r *trainingRunRepository) FindLatest() (*model.TrainingRunModel, error) {
	var run model.TrainingRunModel
	if err := r.db.Order("created_at DESC").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRecent 查找最近的训练记录
func (r *trainingRunRepository) FindRecent(limit int) ([]*model.TrainingRunModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*model.TrainingRunModel
	err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
