package ml

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// ForestParams 随机森林参数
type ForestParams struct {
	NEstimators int        `json:"n_estimators"`
	Tree        TreeParams `json:"tree"`
	MaxFeatures string     `json:"max_features"` // sqrt, all
	Bootstrap   bool       `json:"bootstrap"`
	Seed        uint64     `json:"seed"`
}

// featuresPerSplit 将 MaxFeatures 策略换算为每次分裂的候选特征数
func (p ForestParams) featuresPerSplit(n int) int {
	switch p.MaxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(n))))
	case "log2":
		return max(1, int(math.Log2(float64(n))))
	default:
		return 0
	}
}

// fitTrees 并行拟合 NEstimators 棵树,第 i 棵树使用 (Seed, i) 随机流,结果与并发度无关
func fitTrees(p ForestParams, n int, fit func(idx []int, stream uint64) (*Tree, error)) ([]*Tree, error) {
	if p.NEstimators <= 0 {
		return nil, errors.New("forest: n_estimators must be positive")
	}
	trees := make([]*Tree, p.NEstimators)
	errs := make([]error, p.NEstimators)

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i := 0; i < p.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			idx := make([]int, n)
			if p.Bootstrap {
				rng := newRand(p.Seed, uint64(i)+1)
				for j := range idx {
					idx[j] = rng.IntN(n)
				}
			} else {
				for j := range idx {
					idx[j] = j
				}
			}
			trees[i], errs[i] = fit(idx, uint64(i)+1)
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return trees, nil
}

// RandomForestRegressor 随机森林回归
type RandomForestRegressor struct {
	Params ForestParams `json:"params"`
	Trees  []*Tree      `json:"trees"`
}

// NewRandomForestRegressor 创建随机森林回归器
func NewRandomForestRegressor(p ForestParams) *RandomForestRegressor {
	return &RandomForestRegressor{Params: p}
}

// Fit 拟合
func (f *RandomForestRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, len(y)); err != nil {
		return err
	}
	tp := f.Params.Tree
	tp.MaxFeatures = f.Params.featuresPerSplit(len(X[0]))

	trees, err := fitTrees(f.Params, len(X), func(idx []int, stream uint64) (*Tree, error) {
		// 特征抽样使用与 bootstrap 不同的随机流
		return FitRegressionTree(X, y, idx, tp, newRand(f.Params.Seed^0x5bd1e995, stream))
	})
	if err != nil {
		return fmt.Errorf("random forest regressor: %w", err)
	}
	f.Trees = trees
	return nil
}

// Predict 返回各树预测的平均值
func (f *RandomForestRegressor) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)[0]
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportances 返回归一化的特征重要度
func (f *RandomForestRegressor) FeatureImportances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	return meanImportances(f.Trees, f.Trees[0].NFeatures)
}

// RandomForestClassifier 随机森林分类
type RandomForestClassifier struct {
	Params   ForestParams `json:"params"`
	NClasses int          `json:"n_classes"`
	Trees    []*Tree      `json:"trees"`
}

// NewRandomForestClassifier 创建随机森林分类器
func NewRandomForestClassifier(p ForestParams) *RandomForestClassifier {
	return &RandomForestClassifier{Params: p}
}

// Fit 拟合,labels 取值范围为 [0,nClasses)
func (f *RandomForestClassifier) Fit(X [][]float64, labels []int, nClasses int) error {
	if err := checkXY(X, len(labels)); err != nil {
		return err
	}
	if err := checkLabels(labels, nClasses); err != nil {
		return err
	}
	tp := f.Params.Tree
	tp.MaxFeatures = f.Params.featuresPerSplit(len(X[0]))

	trees, err := fitTrees(f.Params, len(X), func(idx []int, stream uint64) (*Tree, error) {
		return FitClassificationTree(X, labels, nClasses, idx, tp, newRand(f.Params.Seed^0x5bd1e995, stream))
	})
	if err != nil {
		return fmt.Errorf("random forest classifier: %w", err)
	}
	f.NClasses = nClasses
	f.Trees = trees
	return nil
}

// PredictProba 返回各树类别分布的平均值,训练集中未出现的类别概率为 0
func (f *RandomForestClassifier) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	proba := make([]float64, f.NClasses)
	for _, t := range f.Trees {
		for k, p := range t.Predict(x) {
			proba[k] += p
		}
	}
	for k := range proba {
		proba[k] /= float64(len(f.Trees))
	}
	return proba, nil
}

// FeatureImportances 返回归一化的特征重要度
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	return meanImportances(f.Trees, f.Trees[0].NFeatures)
}

func checkXY(X [][]float64, n int) error {
	if len(X) == 0 {
		return errors.New("empty training set")
	}
	if len(X) != n {
		return fmt.Errorf("X has %d rows but target has %d", len(X), n)
	}
	if len(X[0]) == 0 {
		return errors.New("no features")
	}
	return nil
}

func checkLabels(labels []int, nClasses int) error {
	for i, l := range labels {
		if l < 0 || l >= nClasses {
			return fmt.Errorf("label %d at row %d outside [0,%d)", l, i, nClasses)
		}
	}
	return nil
}
