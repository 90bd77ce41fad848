package model

import (
	"errors"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
)

// DelayAlertModel 延期告警数据模型
type DelayAlertModel struct {
	ID               string    `gorm:"primaryKey;type:varchar(64)"`
	Type             string    `gorm:"type:varchar(32);not null;index"` // minor/major/critical
	Title            string    `gorm:"type:varchar(255)"`
	Message          string    `gorm:"type:text"`
	TaskID           string    `gorm:"type:varchar(64);index"`
	ProjectID        string    `gorm:"type:varchar(64);index"`
	IsResolved       bool      `gorm:"default:false"`
	NotificationSent bool      `gorm:"default:false"`
	CreatedAt        time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (DelayAlertModel) TableName() string {
	return "delay_alerts"
}

// Validate 验证告警模型
func (am *DelayAlertModel) Validate() error {
	if am.ID == "" {
		return errors.New("alert ID is required")
	}
	if am.Type == "" {
		return errors.New("alert type is required")
	}
	return nil
}

// ToDomain 转换为领域对象
func (am *DelayAlertModel) ToDomain() *types.DelayAlert {
	return &types.DelayAlert{
		ID:               am.ID,
		Type:             types.AlertType(am.Type),
		Title:            am.Title,
		Message:          am.Message,
		TaskID:           am.TaskID,
		ProjectID:        am.ProjectID,
		IsResolved:       am.IsResolved,
		NotificationSent: am.NotificationSent,
		CreatedAt:        am.CreatedAt,
	}
}

// DelayAlertFromDomain 从领域对象构建数据模型
func DelayAlertFromDomain(a *types.DelayAlert) *DelayAlertModel {
	return &DelayAlertModel{
		ID:               a.ID,
		Type:             string(a.Type),
		Title:            a.Title,
		Message:          a.Message,
		TaskID:           a.TaskID,
		ProjectID:        a.ProjectID,
		IsResolved:       a.IsResolved,
		NotificationSent: a.NotificationSent,
		CreatedAt:        a.CreatedAt,
	}
}
