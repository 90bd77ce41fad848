package analysis

import "errors"

var (
	// ErrInsufficientData 训练样本少于最小行数
	ErrInsufficientData = errors.New("insufficient data for training")
	// ErrModelNotTrained 模型尚未训练
	ErrModelNotTrained = errors.New("model not trained")
	// ErrEmptyScope 分析范围内没有任务
	ErrEmptyScope = errors.New("no tasks found for analysis")
	// ErrInvalidFeature 特征值不是数值
	ErrInvalidFeature = errors.New("invalid feature value")
)
