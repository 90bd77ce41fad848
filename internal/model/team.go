package model

import (
	"errors"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
	"gorm.io/datatypes"
)

// TeamModel 团队数据模型
type TeamModel struct {
	ID          string                      `gorm:"primaryKey;type:varchar(64)"`
	Name        string                      `gorm:"type:varchar(255);not null"`
	Description string                      `gorm:"type:text"`
	LeaderID    string                      `gorm:"type:varchar(64)"`
	MemberIDs   datatypes.JSONSlice[string] `gorm:"column:member_ids"`
	Skills      datatypes.JSONSlice[string]
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName 指定表名
func (TeamModel) TableName() string {
	return "teams"
}

// Validate 验证团队模型
func (tm *TeamModel) Validate() error {
	if tm.ID == "" {
		return errors.New("team ID is required")
	}
	if tm.Name == "" {
		return errors.New("team name is required")
	}
	return nil
}

// ToDomain 转换为领域对象
func (tm *TeamModel) ToDomain() *types.Team {
	return &types.Team{
		ID:          tm.ID,
		Name:        tm.Name,
		Description: tm.Description,
		LeaderID:    tm.LeaderID,
		MemberIDs:   []string(tm.MemberIDs),
		Skills:      []string(tm.Skills),
		CreatedAt:   tm.CreatedAt,
	}
}

// TeamFromDomain 从领域对象构建数据模型
func TeamFromDomain(t *types.Team) *TeamModel {
	return &TeamModel{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		LeaderID:    t.LeaderID,
		MemberIDs:   datatypes.JSONSlice[string](t.MemberIDs),
		Skills:      datatypes.JSONSlice[string](t.Skills),
		CreatedAt:   t.CreatedAt,
	}
}
