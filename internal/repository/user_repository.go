package repository

import (
	"github.com/mautops/pulse-analytics/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	SaveAll(users []*model.UserModel) error
	FindByID(id string) (*model.UserModel, error)
	FindAll() ([]*model.UserModel, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) SaveAll(users []*model.UserModel) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(users).Error
}

func (r *userRepository) FindByID(id string) (*model.UserModel, error) {
	var user model.UserModel
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll() ([]*model.UserModel, error) {
	var users []*model.UserModel
	err := r.db.Order("created_at ASC").Find(&users).Error
	return users, err
}
