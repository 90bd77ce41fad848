package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mautops/pulse-analytics/internal/features"
	"github.com/mautops/pulse-analytics/internal/types"
)

// 推荐语
const (
	RecommendationCritical = "Critical: Immediate intervention required. Consider reassigning resources or extending deadline."
	RecommendationHigh     = "High Risk: Close monitoring needed. Review task dependencies and resource allocation."
	RecommendationMedium   = "Medium Risk: Regular check-ins recommended. Consider preventive measures."
	RecommendationLow      = "Low Risk: Minor delays expected. Standard monitoring sufficient."
	RecommendationOnTrack  = "On Track: Task progressing normally. Continue current approach."
)

// Prediction 单个任务的预测结果
type Prediction struct {
	TaskID                string                          `json:"task_id,omitempty"`
	TaskTitle             string                          `json:"task_title,omitempty"`
	ProjectID             string                          `json:"project_id,omitempty"`
	CurrentStatus         types.TaskStatus                `json:"current_status,omitempty"`
	Priority              types.Priority                  `json:"priority,omitempty"`
	PredictedDelayDays    float64                         `json:"predicted_delay_days"`
	PredictedCategory     types.DelayCategory             `json:"predicted_category"`
	RiskScore             float64                         `json:"risk_score"`
	CategoryProbabilities map[types.DelayCategory]float64 `json:"category_probabilities"`
	Recommendation        string                          `json:"recommendation"`
}

// Predictor 持有训练好的模型,训练与预测可以并发调用
type Predictor struct {
	mu      sync.RWMutex
	model   *Model
	trainer *Trainer
}

// NewPredictor 创建预测器
func NewPredictor(trainer *Trainer) *Predictor {
	return &Predictor{trainer: trainer}
}

// Train 在锁外训练新模型,成功后整体替换,失败时保留原模型
func (p *Predictor) Train(ctx context.Context, table *features.Table) (*TrainingResult, error) {
	model, result, err := p.trainer.Train(ctx, table)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
	return result, nil
}

// IsTrained 是否已有可用模型
func (p *Predictor) IsTrained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Model 返回当前模型快照
func (p *Predictor) Model() *Model {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// Predict 根据部分特征预测,缺失的特征使用默认值
func (p *Predictor) Predict(input map[string]any) (*Prediction, error) {
	model := p.Model()
	if model == nil {
		return nil, ErrModelNotTrained
	}

	vec := make([]float64, len(model.Schema))
	for i, name := range model.Schema {
		raw, ok := input[name]
		if !ok || raw == nil {
			vec[i] = features.Default(name)
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFeature, name, err)
		}
		vec[i] = v
	}
	return predictVector(model, vec)
}

// PredictRow 使用特征表中一行已构建的特征预测
func (p *Predictor) PredictRow(row *features.Row) (*Prediction, error) {
	model := p.Model()
	if model == nil {
		return nil, ErrModelNotTrained
	}
	vec := make([]float64, len(model.Schema))
	for i, name := range model.Schema {
		if v, ok := row.Values[name]; ok {
			vec[i] = v
		} else {
			vec[i] = features.Default(name)
		}
	}
	pred, err := predictVector(model, vec)
	if err != nil {
		return nil, err
	}
	pred.TaskID = row.TaskID
	pred.TaskTitle = row.Title
	pred.ProjectID = row.ProjectID
	pred.CurrentStatus = row.Status
	pred.Priority = row.Priority
	return pred, nil
}

func predictVector(model *Model, vec []float64) (*Prediction, error) {
	x, err := model.Scaler.TransformRow(vec)
	if err != nil {
		return nil, err
	}
	raw, err := model.Regressor.Predict(x)
	if err != nil {
		return nil, err
	}
	proba, err := model.Classifier.PredictProba(x)
	if err != nil {
		return nil, err
	}

	probs := make(map[types.DelayCategory]float64, len(types.DelayCategories))
	best := 0
	for k, c := range types.DelayCategories {
		if k < len(proba) {
			probs[c] = proba[k]
			if proba[k] > proba[best] {
				best = k
			}
		} else {
			probs[c] = 0
		}
	}

	risk := PredictRiskScore(raw)
	delay := math.Max(0, raw)
	return &Prediction{
		PredictedDelayDays:    delay,
		PredictedCategory:     types.DelayCategories[best],
		RiskScore:             risk,
		CategoryProbabilities: probs,
		Recommendation:        Recommend(risk, delay),
	}, nil
}

// PredictRiskScore 预测阶段的风险分,与标签阶段的公式不同
func PredictRiskScore(predictedDelay float64) float64 {
	return features.Clip(15*predictedDelay, 0, 100)
}

// Recommend 按风险分给出建议
func Recommend(risk, delayDays float64) string {
	switch {
	case risk > 80:
		return RecommendationCritical
	case risk > 60:
		return RecommendationHigh
	case risk > 40:
		return RecommendationMedium
	case delayDays > 0:
		return RecommendationLow
	default:
		return RecommendationOnTrack
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return checkFinite(n)
	case float32:
		return checkFinite(float64(n))
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return checkFinite(f)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return checkFinite(f)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func checkFinite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}

// Save 将模型快照写入 JSON 文件
func (p *Predictor) Save(path string) error {
	model := p.Model()
	if model == nil {
		return ErrModelNotTrained
	}
	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load 从 JSON 文件加载模型快照并替换当前模型
func (p *Predictor) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	if !model.Scaler.Fitted() || model.Regressor == nil || model.Classifier == nil ||
		len(model.Regressor.Members()) == 0 || len(model.Classifier.Members()) == 0 {
		return fmt.Errorf("model snapshot %s is incomplete", path)
	}
	if len(model.Scaler.Mean) != len(model.Schema) {
		return fmt.Errorf("model snapshot %s: scaler width %d does not match schema %d", path, len(model.Scaler.Mean), len(model.Schema))
	}

	p.mu.Lock()
	p.model = &model
	p.mu.Unlock()
	return nil
}
