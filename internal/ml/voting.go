package ml

import (
	"errors"
	"fmt"
)

// 集成成员名称
const (
	MemberForest   = "random_forest"
	MemberBoosting = "gradient_boosting"
	MemberLinear   = "linear"
)

// Weights 各成员投票权重
type Weights struct {
	Forest   float64 `json:"random_forest"`
	Boosting float64 `json:"gradient_boosting"`
	Linear   float64 `json:"linear"`
}

// WeightsFrom 按 forest, boosting, linear 顺序解析权重,缺省为 1
func WeightsFrom(w []float64) Weights {
	get := func(i int) float64 {
		if i < len(w) && w[i] > 0 {
			return w[i]
		}
		return 1
	}
	return Weights{Forest: get(0), Boosting: get(1), Linear: get(2)}
}

// MemberError 成员拟合失败,该成员已从集成中移除
type MemberError struct {
	Member string
	Err    error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("%s: %v", e.Member, e.Err)
}

func (e *MemberError) Unwrap() error { return e.Err }

// ErrNoMembers 没有任何成员拟合成功
var ErrNoMembers = errors.New("ensemble has no fitted members")

// VotingRegressor 加权平均回归集成,nil 成员不参与
type VotingRegressor struct {
	Forest   *RandomForestRegressor     `json:"random_forest,omitempty"`
	Boosting *GradientBoostingRegressor `json:"gradient_boosting,omitempty"`
	Linear   *LinearRegressor           `json:"linear,omitempty"`
	Weights  Weights                    `json:"weights"`
}

// Fit 依次拟合各成员,失败的成员被移除并在返回值中报告
func (v *VotingRegressor) Fit(X [][]float64, y []float64) ([]*MemberError, error) {
	var dropped []*MemberError
	if v.Forest != nil {
		if err := v.Forest.Fit(X, y); err != nil {
			dropped = append(dropped, &MemberError{Member: MemberForest, Err: err})
			v.Forest = nil
		}
	}
	if v.Boosting != nil {
		if err := v.Boosting.Fit(X, y); err != nil {
			dropped = append(dropped, &MemberError{Member: MemberBoosting, Err: err})
			v.Boosting = nil
		}
	}
	if v.Linear != nil {
		if err := v.Linear.Fit(X, y); err != nil {
			dropped = append(dropped, &MemberError{Member: MemberLinear, Err: err})
			v.Linear = nil
		}
	}
	if len(v.Members()) == 0 {
		errs := []error{ErrNoMembers}
		for _, d := range dropped {
			errs = append(errs, d)
		}
		return dropped, errors.Join(errs...)
	}
	return dropped, nil
}

// Members 返回已拟合的成员
func (v *VotingRegressor) Members() []string {
	var out []string
	if v.Forest != nil {
		out = append(out, MemberForest)
	}
	if v.Boosting != nil {
		out = append(out, MemberBoosting)
	}
	if v.Linear != nil {
		out = append(out, MemberLinear)
	}
	return out
}

type weightedRegressor struct {
	weight float64
	model  interface {
		Predict([]float64) (float64, error)
		FeatureImportances() []float64
	}
}

func (v *VotingRegressor) members() []weightedRegressor {
	var out []weightedRegressor
	if v.Forest != nil {
		out = append(out, weightedRegressor{v.Weights.Forest, v.Forest})
	}
	if v.Boosting != nil {
		out = append(out, weightedRegressor{v.Weights.Boosting, v.Boosting})
	}
	if v.Linear != nil {
		out = append(out, weightedRegressor{v.Weights.Linear, v.Linear})
	}
	return out
}

// Predict 加权平均
func (v *VotingRegressor) Predict(x []float64) (float64, error) {
	members := v.members()
	if len(members) == 0 {
		return 0, ErrNotFitted
	}
	var sum, wsum float64
	for _, m := range members {
		p, err := m.model.Predict(x)
		if err != nil {
			return 0, err
		}
		sum += m.weight * p
		wsum += m.weight
	}
	return sum / wsum, nil
}

// FeatureImportances 成员重要度的加权平均
func (v *VotingRegressor) FeatureImportances() []float64 {
	var acc []float64
	for _, m := range v.members() {
		imp := m.model.FeatureImportances()
		if acc == nil {
			acc = make([]float64, len(imp))
		}
		for j, val := range imp {
			acc[j] += m.weight * val
		}
	}
	if acc == nil {
		return nil
	}
	return Normalize(acc)
}

// VotingClassifier 加权软投票分类集成
type VotingClassifier struct {
	Forest   *RandomForestClassifier     `json:"random_forest,omitempty"`
	Boosting *GradientBoostingClassifier `json:"gradient_boosting,omitempty"`
	Weights  Weights                     `json:"weights"`
	NClasses int                         `json:"n_classes"`
	Seen     []bool                      `json:"seen_classes,omitempty"` // 训练集中出现过的类别
}

// Fit 依次拟合各成员
func (v *VotingClassifier) Fit(X [][]float64, labels []int, nClasses int) ([]*MemberError, error) {
	var dropped []*MemberError
	v.NClasses = nClasses
	v.Seen = make([]bool, nClasses)
	for _, l := range labels {
		if l >= 0 && l < nClasses {
			v.Seen[l] = true
		}
	}
	if v.Forest != nil {
		if err := v.Forest.Fit(X, labels, nClasses); err != nil {
			dropped = append(dropped, &MemberError{Member: MemberForest, Err: err})
			v.Forest = nil
		}
	}
	if v.Boosting != nil {
		if err := v.Boosting.Fit(X, labels, nClasses); err != nil {
			dropped = append(dropped, &MemberError{Member: MemberBoosting, Err: err})
			v.Boosting = nil
		}
	}
	if len(v.Members()) == 0 {
		errs := []error{ErrNoMembers}
		for _, d := range dropped {
			errs = append(errs, d)
		}
		return dropped, errors.Join(errs...)
	}
	return dropped, nil
}

// Members 返回已拟合的成员
func (v *VotingClassifier) Members() []string {
	var out []string
	if v.Forest != nil {
		out = append(out, MemberForest)
	}
	if v.Boosting != nil {
		out = append(out, MemberBoosting)
	}
	return out
}

// PredictProba 成员概率的加权平均,结果和为 1
func (v *VotingClassifier) PredictProba(x []float64) ([]float64, error) {
	type member struct {
		weight float64
		proba  func([]float64) ([]float64, error)
	}
	var members []member
	if v.Forest != nil {
		members = append(members, member{v.Weights.Forest, v.Forest.PredictProba})
	}
	if v.Boosting != nil {
		members = append(members, member{v.Weights.Boosting, v.Boosting.PredictProba})
	}
	if len(members) == 0 {
		return nil, ErrNotFitted
	}

	out := make([]float64, v.NClasses)
	var wsum float64
	for _, m := range members {
		p, err := m.proba(x)
		if err != nil {
			return nil, err
		}
		for k := range out {
			out[k] += m.weight * p[k]
		}
		wsum += m.weight
	}
	var total float64
	for k := range out {
		out[k] /= wsum
		// 训练集中没有的类别概率为 0
		if len(v.Seen) == len(out) && !v.Seen[k] {
			out[k] = 0
		}
		total += out[k]
	}
	if total > 0 {
		for k := range out {
			out[k] /= total
		}
	}
	return out, nil
}

// Predict 返回概率最大的类别,并列时取下标较小者
func (v *VotingClassifier) Predict(x []float64) (int, error) {
	p, err := v.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return Argmax(p), nil
}

// FeatureImportances 成员重要度的加权平均
func (v *VotingClassifier) FeatureImportances() []float64 {
	var acc []float64
	add := func(w float64, imp []float64) {
		if acc == nil {
			acc = make([]float64, len(imp))
		}
		for j, val := range imp {
			acc[j] += w * val
		}
	}
	if v.Forest != nil {
		add(v.Weights.Forest, v.Forest.FeatureImportances())
	}
	if v.Boosting != nil {
		add(v.Weights.Boosting, v.Boosting.FeatureImportances())
	}
	if acc == nil {
		return nil
	}
	return Normalize(acc)
}

// Argmax 返回最大值下标
func Argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
