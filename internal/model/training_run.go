package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// TrainingRunModel 模型训练记录
type TrainingRunModel struct {
	ID                string  `gorm:"primaryKey;type:varchar(64)"`
	Origin            string  `gorm:"type:varchar(32);not null"` // store/synthetic
	TrainingSamples   int     `gorm:"not null"`
	TestSamples       int     `gorm:"not null"`
	DurationRMSE      float64 `gorm:"column:duration_rmse"`
	CategoryAccuracy  float64
	Ensemble          bool
	Members           datatypes.JSONSlice[string]
	FeatureImportance datatypes.JSON // 特征名 -> 重要度
	CreatedAt         time.Time      `gorm:"not null;index"`
}

// TableName 指定表名
func (TrainingRunModel) TableName() string {
	return "training_runs"
}

// Validate 验证训练记录
func (trm *TrainingRunModel) Validate() error {
	if trm.ID == "" {
		return errors.New("training run ID is required")
	}
	if trm.TrainingSamples <= 0 {
		return errors.New("training samples must be positive")
	}
	return nil
}
