package model

import (
	"errors"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
	"gorm.io/datatypes"
)

// ProjectModel 项目数据模型
type ProjectModel struct {
	ID          string  `gorm:"primaryKey;type:varchar(64)"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Description string  `gorm:"type:text"`
	Status      string  `gorm:"type:varchar(32);not null;index"`
	Progress    float64 `gorm:"type:double precision;default:0"` // 0-100
	StartDate   *time.Time
	EndDate     *time.Time
	TeamID      string                      `gorm:"type:varchar(64);index"`
	ManagerID   string                      `gorm:"type:varchar(64)"`
	Domains     datatypes.JSONSlice[string] // 项目涉及的领域
	CreatedAt   time.Time                   `gorm:"not null"`
}

// TableName 指定表名
func (ProjectModel) TableName() string {
	return "projects"
}

// Validate 验证项目模型
func (pm *ProjectModel) Validate() error {
	if pm.ID == "" {
		return errors.New("project ID is required")
	}
	if pm.Name == "" {
		return errors.New("project name is required")
	}
	if pm.Progress < 0 || pm.Progress > 100 {
		return errors.New("project progress must be between 0 and 100")
	}
	return nil
}

// ToDomain 转换为领域对象
func (pm *ProjectModel) ToDomain() *types.Project {
	return &types.Project{
		ID:          pm.ID,
		Name:        pm.Name,
		Description: pm.Description,
		Status:      types.ProjectStatus(pm.Status),
		Progress:    pm.Progress,
		StartDate:   pm.StartDate,
		EndDate:     pm.EndDate,
		TeamID:      pm.TeamID,
		ManagerID:   pm.ManagerID,
		Domains:     []string(pm.Domains),
		CreatedAt:   pm.CreatedAt,
	}
}

// ProjectFromDomain 从领域对象构建数据模型
func ProjectFromDomain(p *types.Project) *ProjectModel {
	return &ProjectModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Progress:    p.Progress,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		TeamID:      p.TeamID,
		ManagerID:   p.ManagerID,
		Domains:     datatypes.JSONSlice[string](p.Domains),
		CreatedAt:   p.CreatedAt,
	}
}
