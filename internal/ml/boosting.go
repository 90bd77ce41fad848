package ml

import (
	"fmt"
	"math"
)

// BoostingParams 梯度提升参数
type BoostingParams struct {
	NEstimators  int        `json:"n_estimators"`
	LearningRate float64    `json:"learning_rate"`
	Tree         TreeParams `json:"tree"`
	Subsample    float64    `json:"subsample"` // (0,1],小于 1 时每轮无放回抽样
	Seed         uint64     `json:"seed"`
}

// roundSample 返回第 round 轮使用的样本下标
func (p BoostingParams) roundSample(n, round int) []int {
	if p.Subsample <= 0 || p.Subsample >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := max(1, int(float64(n)*p.Subsample))
	return newRand(p.Seed, uint64(round)+1).Perm(n)[:k]
}

func (p BoostingParams) validate() error {
	if p.NEstimators <= 0 {
		return fmt.Errorf("gradient boosting: n_estimators must be positive")
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting: learning_rate must be positive")
	}
	return nil
}

// GradientBoostingRegressor 平方损失梯度提升回归
type GradientBoostingRegressor struct {
	Params BoostingParams `json:"params"`
	Init   float64        `json:"init"`
	Trees  []*Tree        `json:"trees"`
}

// NewGradientBoostingRegressor 创建梯度提升回归器
func NewGradientBoostingRegressor(p BoostingParams) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{Params: p}
}

// Fit 以均值为初值,每轮对残差拟合一棵回归树
func (g *GradientBoostingRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, len(y)); err != nil {
		return err
	}
	if err := g.Params.validate(); err != nil {
		return err
	}

	n := len(X)
	var sum float64
	for _, v := range y {
		sum += v
	}
	g.Init = sum / float64(n)
	g.Trees = make([]*Tree, 0, g.Params.NEstimators)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Init
	}
	residual := make([]float64, n)

	for m := 0; m < g.Params.NEstimators; m++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		tree, err := FitRegressionTree(X, residual, g.Params.roundSample(n, m), g.Params.Tree, nil)
		if err != nil {
			return fmt.Errorf("gradient boosting regressor round %d: %w", m, err)
		}
		for i := range pred {
			pred[i] += g.Params.LearningRate * tree.Predict(X[i])[0]
		}
		g.Trees = append(g.Trees, tree)
	}
	return nil
}

// Predict 预测
func (g *GradientBoostingRegressor) Predict(x []float64) (float64, error) {
	if len(g.Trees) == 0 {
		return 0, ErrNotFitted
	}
	out := g.Init
	for _, t := range g.Trees {
		out += g.Params.LearningRate * t.Predict(x)[0]
	}
	return out, nil
}

// FeatureImportances 返回归一化的特征重要度
func (g *GradientBoostingRegressor) FeatureImportances() []float64 {
	if len(g.Trees) == 0 {
		return nil
	}
	return meanImportances(g.Trees, g.Trees[0].NFeatures)
}

// GradientBoostingClassifier 多分类梯度提升(softmax 交叉熵),每轮每个类别一棵树
type GradientBoostingClassifier struct {
	Params   BoostingParams `json:"params"`
	NClasses int            `json:"n_classes"`
	Init     []float64      `json:"init"`
	Trees    [][]*Tree      `json:"trees"` // [轮次][类别]
}

// NewGradientBoostingClassifier 创建梯度提升分类器
func NewGradientBoostingClassifier(p BoostingParams) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{Params: p}
}

// minPrior 未出现类别的先验下限,避免 log(0)
const minPrior = 1e-8

// Fit 拟合,叶子值使用一步牛顿更新
func (g *GradientBoostingClassifier) Fit(X [][]float64, labels []int, nClasses int) error {
	if err := checkXY(X, len(labels)); err != nil {
		return err
	}
	if err := checkLabels(labels, nClasses); err != nil {
		return err
	}
	if err := g.Params.validate(); err != nil {
		return err
	}

	n := len(X)
	k := nClasses
	g.NClasses = k
	g.Init = make([]float64, k)
	counts := make([]float64, k)
	for _, l := range labels {
		counts[l]++
	}
	for c := range g.Init {
		g.Init[c] = math.Log(math.Max(counts[c]/float64(n), minPrior))
	}

	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = append([]float64(nil), g.Init...)
	}
	residual := make([]float64, n)
	g.Trees = make([][]*Tree, 0, g.Params.NEstimators)

	for m := 0; m < g.Params.NEstimators; m++ {
		proba := make([][]float64, n)
		for i := range raw {
			proba[i] = softmax(raw[i])
		}
		idx := g.Params.roundSample(n, m)

		round := make([]*Tree, k)
		for c := 0; c < k; c++ {
			for i := range residual {
				target := 0.0
				if labels[i] == c {
					target = 1
				}
				residual[i] = target - proba[i][c]
			}
			tree, err := FitRegressionTree(X, residual, idx, g.Params.Tree, nil)
			if err != nil {
				return fmt.Errorf("gradient boosting classifier round %d class %d: %w", m, c, err)
			}
			newtonLeaves(tree, X, residual, idx, k)
			round[c] = tree
		}
		for i := range raw {
			for c, tree := range round {
				raw[i][c] += g.Params.LearningRate * tree.Predict(X[i])[0]
			}
		}
		g.Trees = append(g.Trees, round)
	}
	return nil
}

// newtonLeaves 用 (K-1)/K * Σr / Σ|r|(1-|r|) 替换叶子值
func newtonLeaves(tree *Tree, X [][]float64, residual []float64, idx []int, k int) {
	num := make(map[int]float64)
	den := make(map[int]float64)
	for _, i := range idx {
		leaf := tree.leaf(X[i])
		r := residual[i]
		num[leaf] += r
		den[leaf] += math.Abs(r) * (1 - math.Abs(r))
	}
	scale := float64(k-1) / float64(k)
	for leaf, s := range num {
		v := 0.0
		if den[leaf] > 1e-150 {
			v = scale * s / den[leaf]
		}
		tree.Nodes[leaf].Value = []float64{v}
	}
}

// PredictProba 返回类别概率
func (g *GradientBoostingClassifier) PredictProba(x []float64) ([]float64, error) {
	if len(g.Trees) == 0 {
		return nil, ErrNotFitted
	}
	raw := append([]float64(nil), g.Init...)
	for _, round := range g.Trees {
		for c, t := range round {
			raw[c] += g.Params.LearningRate * t.Predict(x)[0]
		}
	}
	return softmax(raw), nil
}

// FeatureImportances 返回归一化的特征重要度
func (g *GradientBoostingClassifier) FeatureImportances() []float64 {
	if len(g.Trees) == 0 {
		return nil
	}
	var all []*Tree
	for _, round := range g.Trees {
		all = append(all, round...)
	}
	return meanImportances(all, all[0].NFeatures)
}

func softmax(z []float64) []float64 {
	m := math.Inf(-1)
	for _, v := range z {
		m = math.Max(m, v)
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
