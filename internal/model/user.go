package model

import (
	"errors"
	"time"

	"github.com/mautops/pulse-analytics/internal/types"
)

// UserModel 用户数据模型
type UserModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex"`
	Name      string    `gorm:"type:varchar(255)"`
	Role      string    `gorm:"type:varchar(32);not null"` // administrator/manager/leader/member
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (um *UserModel) Validate() error {
	if um.ID == "" {
		return errors.New("user ID is required")
	}
	if um.Role == "" {
		return errors.New("user role is required")
	}
	return nil
}

// ToDomain 转换为领域对象
func (um *UserModel) ToDomain() *types.User {
	return &types.User{
		ID:        um.ID,
		Email:     um.Email,
		Name:      um.Name,
		Role:      types.Role(um.Role),
		CreatedAt: um.CreatedAt,
	}
}

// UserFromDomain 从领域对象构建数据模型
func UserFromDomain(u *types.User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}
