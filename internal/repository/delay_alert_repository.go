package repository

import (
	"github.com/mautops/pulse-analytics/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DelayAlertRepository 延期告警仓储接口
type DelayAlertRepository interface {
	SaveAll(alerts []*model.DelayAlertModel) error
	FindAll() ([]*model.DelayAlertModel, error)
	FindUnresolved() ([]*model.DelayAlertModel, error)
	FindByProjectID(projectID string) ([]*model.DelayAlertModel, error)
}

// delayAlertRepository 延期告警仓储实现
type delayAlertRepository struct {
	db *gorm.DB
}

// NewDelayAlertRepository 创建延期告警仓储
func NewDelayAlertRepository(db *gorm.DB) DelayAlertRepository {
	return &delayAlertRepository{db: db}
}

// SaveAll 批量写入告警
func (r *delayAlertRepository) SaveAll(alerts []*model.DelayAlertModel) error {
	if len(alerts) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(alerts).Error
}

// FindAll 查找所有告警
func (r *delayAlertRepository) FindAll() ([]*model.DelayAlertModel, error) {
	var alerts []*model.DelayAlertModel
	err := r.db.Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// FindUnresolved 查找未解决的告警
func (r *delayAlertRepository) FindUnresolved() ([]*model.DelayAlertModel, error) {
	var alerts []*model.DelayAlertModel
	err := r.db.Where("is_resolved = ?", false).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// FindByProjectID 根据项目查找告警
func (r *delayAlertRepository) FindByProjectID(projectID string) ([]*model.DelayAlertModel, error) {
	var alerts []*model.DelayAlertModel
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}
