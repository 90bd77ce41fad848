package repository

import (
	"github.com/mautops/pulse-analytics/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamRepository 团队仓储接口
type TeamRepository interface {
	SaveAll(teams []*model.TeamModel) error
	FindByID(id string) (*model.TeamModel, error)
	FindAll() ([]*model.TeamModel, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository 创建团队仓储
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) SaveAll(teams []*model.TeamModel) error {
	if len(teams) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(teams).Error
}

func (r *teamRepository) FindByID(id string) (*model.TeamModel, error) {
	var team model.TeamModel
	if err := r.db.Where("id = ?", id).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) FindAll() ([]*model.TeamModel, error) {
	var teams []*model.TeamModel
	err := r.db.Order("created_at DESC").Find(&teams).Error
	return teams, err
}
