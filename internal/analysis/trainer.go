package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/pulse-analytics/internal/config"
	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/ml"
	"github.com/mautops/pulse-analytics/internal/types"
)

// TrainerConfig 训练参数
type TrainerConfig struct {
	MinTrainingRows int
	TestFraction    float64
	Seed            uint64
	Ensemble        bool
	Forest          ml.ForestParams
	Boosting        ml.BoostingParams
	Weights         []float64 // forest, boosting, linear
}

// TrainerConfigFrom 从应用配置构建训练参数
func TrainerConfigFrom(cfg *config.Config) TrainerConfig {
	rf := cfg.Model.RandomForest
	gb := cfg.Model.GradientBoosting
	seed := cfg.Analysis.RandomSeed
	return TrainerConfig{
		MinTrainingRows: cfg.Analysis.MinTrainingRows,
		TestFraction:    cfg.Analysis.TestFraction,
		Seed:            seed,
		Ensemble:        cfg.Analysis.Ensemble,
		Forest: ml.ForestParams{
			NEstimators: rf.NEstimators,
			Tree: ml.TreeParams{
				MaxDepth:        rf.MaxDepth,
				MinSamplesSplit: rf.MinSamplesSplit,
				MinSamplesLeaf:  rf.MinSamplesLeaf,
			},
			MaxFeatures: rf.MaxFeatures,
			Bootstrap:   rf.Bootstrap,
			Seed:        seed,
		},
		Boosting: ml.BoostingParams{
			NEstimators:  gb.NEstimators,
			LearningRate: gb.LearningRate,
			Tree: ml.TreeParams{
				MaxDepth:        gb.MaxDepth,
				MinSamplesSplit: gb.MinSamplesSplit,
				MinSamplesLeaf:  gb.MinSamplesLeaf,
			},
			Subsample: gb.Subsample,
			Seed:      seed,
		},
		Weights: cfg.Model.Ensemble.Weights,
	}
}

// DefaultTrainerConfig 默认训练参数
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfigFrom(config.Default())
}

// Model 训练好的模型快照,训练后只读
type Model struct {
	Schema     []string             `json:"schema"`
	Scaler     *ml.StandardScaler   `json:"scaler"`
	Regressor  *ml.VotingRegressor  `json:"regressor"`
	Classifier *ml.VotingClassifier `json:"classifier"`
	Result     *TrainingResult      `json:"result"`
}

// TrainingResult 训练评估结果
type TrainingResult struct {
	TrainingSamples   int                `json:"training_samples"`
	TestSamples       int                `json:"test_samples"`
	FeaturesUsed      []string           `json:"features_used"`
	DurationRMSE      float64            `json:"duration_rmse"`
	DurationMAE       float64            `json:"duration_mae"`
	DurationR2        float64            `json:"duration_r2"`
	CategoryAccuracy  float64            `json:"category_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Ensemble          bool               `json:"ensemble"`
	RegressorMembers  []string           `json:"regressor_members"`
	ClassifierMembers []string           `json:"classifier_members"`
	DroppedMembers    []string           `json:"dropped_members,omitempty"`
	TrainedAt         time.Time          `json:"trained_at"`
}

// Trainer 拟合延期天数回归器与延期分类器
type Trainer struct {
	Config TrainerConfig
	Now    func() time.Time
}

// NewTrainer 创建训练器
func NewTrainer(cfg TrainerConfig) *Trainer {
	return &Trainer{Config: cfg, Now: time.Now}
}

// Train 在带标签的特征表上训练。标准化只在训练集上拟合。
func (tr *Trainer) Train(ctx context.Context, table *features.Table) (*Model, *TrainingResult, error) {
	cfg := tr.Config
	if table.Len() < cfg.MinTrainingRows {
		return nil, nil, fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, table.Len(), cfg.MinTrainingRows)
	}
	for _, r := range table.Rows {
		if !r.Labeled {
			return nil, nil, fmt.Errorf("row %s has no labels", r.TaskID)
		}
	}

	X := table.Matrix()
	y := table.DelayDays()
	labels := make([]int, table.Len())
	for i, c := range table.Categories() {
		labels[i] = c.Rank()
	}

	trainIdx, testIdx := ml.TrainTestSplit(len(X), cfg.TestFraction, cfg.Seed)
	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(ml.Rows(X, trainIdx)); err != nil {
		return nil, nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	Xs, err := scaler.Transform(X)
	if err != nil {
		return nil, nil, err
	}
	xTrain, xTest := ml.Rows(Xs, trainIdx), ml.Rows(Xs, testIdx)
	yTrain, yTest := ml.Rows(y, trainIdx), ml.Rows(y, testIdx)
	lTrain, lTest := ml.Rows(labels, trainIdx), ml.Rows(labels, testIdx)

	weights := ml.WeightsFrom(cfg.Weights)
	reg := &ml.VotingRegressor{Forest: ml.NewRandomForestRegressor(cfg.Forest), Weights: weights}
	clf := &ml.VotingClassifier{Forest: ml.NewRandomForestClassifier(cfg.Forest), Weights: weights}
	if cfg.Ensemble {
		reg.Boosting = ml.NewGradientBoostingRegressor(cfg.Boosting)
		reg.Linear = &ml.LinearRegressor{}
		clf.Boosting = ml.NewGradientBoostingClassifier(cfg.Boosting)
	}

	regDropped, err := reg.Fit(xTrain, yTrain)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit duration regressor: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	clfDropped, err := clf.Fit(xTrain, lTrain, len(types.DelayCategories))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit delay classifier: %w", err)
	}

	result := &TrainingResult{
		TrainingSamples:   len(trainIdx),
		TestSamples:       len(testIdx),
		FeaturesUsed:      append([]string(nil), table.Schema...),
		FeatureImportance: make(map[string]float64, len(table.Schema)),
		Ensemble:          cfg.Ensemble,
		RegressorMembers:  reg.Members(),
		ClassifierMembers: clf.Members(),
		TrainedAt:         tr.now(),
	}
	for _, d := range regDropped {
		result.DroppedMembers = append(result.DroppedMembers, "regressor/"+d.Error())
	}
	for _, d := range clfDropped {
		result.DroppedMembers = append(result.DroppedMembers, "classifier/"+d.Error())
	}

	if len(testIdx) > 0 {
		pred := make([]float64, len(xTest))
		cls := make([]int, len(xTest))
		for i, x := range xTest {
			if pred[i], err = reg.Predict(x); err != nil {
				return nil, nil, err
			}
			if cls[i], err = clf.Predict(x); err != nil {
				return nil, nil, err
			}
		}
		result.DurationRMSE = ml.RMSE(pred, yTest)
		result.DurationMAE = ml.MAE(pred, yTest)
		result.DurationR2 = ml.R2(pred, yTest)
		result.CategoryAccuracy = ml.Accuracy(cls, lTest)
	}
	for j, v := range reg.FeatureImportances() {
		result.FeatureImportance[table.Schema[j]] = v
	}

	model := &Model{
		Schema:     result.FeaturesUsed,
		Scaler:     scaler,
		Regressor:  reg,
		Classifier: clf,
		Result:     result,
	}
	return model, result, nil
}

func (tr *Trainer) now() time.Time {
	if tr.Now != nil {
		return tr.Now()
	}
	return time.Now()
}
