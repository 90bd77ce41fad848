package ml_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/mautops/pulse-analytics/internal/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData x0 决定目标值,x1 为噪声列,x2 为常数列
func stepData(n int) ([][]float64, []float64, []int) {
	X := make([][]float64, n)
	y := make([]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		x0 := float64(i) / float64(n)
		X[i] = []float64{x0, float64((i * 7) % 5), 1}
		if x0 < 0.5 {
			y[i], labels[i] = 0, 0
		} else {
			y[i], labels[i] = 10, 2
		}
	}
	return X, y, labels
}

func forestParams(n int) ml.ForestParams {
	return ml.ForestParams{
		NEstimators: n,
		Tree:        ml.TreeParams{MaxDepth: 10, MinSamplesSplit: 2, MinSamplesLeaf: 1},
		MaxFeatures: "sqrt",
		Bootstrap:   true,
		Seed:        42,
	}
}

func boostingParams(n int) ml.BoostingParams {
	return ml.BoostingParams{
		NEstimators:  n,
		LearningRate: 0.1,
		Tree:         ml.TreeParams{MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1},
		Subsample:    0.8,
		Seed:         42,
	}
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// TestStandardScaler 测试标准化
func TestStandardScaler(t *testing.T) {
	var s ml.StandardScaler
	_, err := s.TransformRow([]float64{1})
	assert.ErrorIs(t, err, ml.ErrNotFitted)

	X := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	require.NoError(t, s.Fit(X))
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "zero std column keeps scale 1")

	out, err := s.Transform(X)
	require.NoError(t, err)
	assert.InDelta(t, 0, out[1][0], 1e-12)
	assert.Equal(t, 0.0, out[0][1])

	_, err = s.TransformRow([]float64{1, 2, 3})
	assert.Error(t, err)
	assert.Error(t, s.Fit(nil))
}

// TestTrainTestSplit 测试切分
func TestTrainTestSplit(t *testing.T) {
	train, test := ml.TrainTestSplit(12, 0.25, 42)
	assert.Len(t, test, 3)
	assert.Len(t, train, 9)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}
	assert.Len(t, seen, 12)

	train2, test2 := ml.TrainTestSplit(12, 0.25, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	train3, _ := ml.TrainTestSplit(12, 0.25, 7)
	assert.NotEqual(t, train, train3)

	// ceil(10*0.25)=3
	_, test4 := ml.TrainTestSplit(10, 0.25, 1)
	assert.Len(t, test4, 3)

	train5, test5 := ml.TrainTestSplit(1, 0.5, 1)
	assert.Len(t, train5, 1)
	assert.Empty(t, test5)
}

// TestRegressionTree 测试回归树
func TestRegressionTree(t *testing.T) {
	X, y, _ := stepData(20)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	tree, err := ml.FitRegressionTree(X, y, idx, ml.TreeParams{MaxDepth: 5}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, tree.Depth())
	assert.Equal(t, 0.0, tree.Predict([]float64{0.1, 0, 1})[0])
	assert.Equal(t, 10.0, tree.Predict([]float64{0.9, 0, 1})[0])
	assert.Greater(t, tree.Importances[0], 0.0)
	assert.Zero(t, tree.Importances[2])
}

// TestClassificationTree 测试分类树
func TestClassificationTree(t *testing.T) {
	X, _, labels := stepData(20)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	tree, err := ml.FitClassificationTree(X, labels, 4, idx, ml.TreeParams{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 0, 0, 0}, tree.Predict([]float64{0.1, 3, 1}))
	assert.Equal(t, []float64{0, 0, 1, 0}, tree.Predict([]float64{0.8, 3, 1}))
}

// TestTree_MaxDepthAndMinLeaf 测试深度与叶子限制
func TestTree_MaxDepthAndMinLeaf(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{1, 2, 3, 4}
	idx := []int{0, 1, 2, 3}

	stump, err := ml.FitRegressionTree(X, y, idx, ml.TreeParams{MaxDepth: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stump.Depth())

	leafy, err := ml.FitRegressionTree(X, y, idx, ml.TreeParams{MinSamplesLeaf: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, leafy.Depth())
	assert.Equal(t, 1.5, leafy.Predict([]float64{1})[0])

	// 常数目标不分裂
	flat, err := ml.FitRegressionTree(X, []float64{2, 2, 2, 2}, idx, ml.TreeParams{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, flat.Depth())
}

// TestRandomForestRegressor 测试随机森林回归
func TestRandomForestRegressor(t *testing.T) {
	X, y, _ := stepData(40)
	f := ml.NewRandomForestRegressor(forestParams(30))
	_, err := f.Predict(X[0])
	assert.ErrorIs(t, err, ml.ErrNotFitted)

	require.NoError(t, f.Fit(X, y))
	assert.Len(t, f.Trees, 30)

	low, err := f.Predict([]float64{0.05, 1, 1})
	require.NoError(t, err)
	high, err := f.Predict([]float64{0.95, 1, 1})
	require.NoError(t, err)
	assert.Less(t, low, 3.0)
	assert.Greater(t, high, 7.0)

	imp := f.FeatureImportances()
	assert.InDelta(t, 1.0, sum(imp), 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Zero(t, imp[2])
}

// TestRandomForest_Deterministic 测试相同种子结果一致
func TestRandomForest_Deterministic(t *testing.T) {
	X, y, _ := stepData(30)
	a := ml.NewRandomForestRegressor(forestParams(20))
	b := ml.NewRandomForestRegressor(forestParams(20))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	for _, x := range X {
		pa, _ := a.Predict(x)
		pb, _ := b.Predict(x)
		assert.Equal(t, pa, pb)
	}
}

// TestRandomForestClassifier 测试随机森林分类
func TestRandomForestClassifier(t *testing.T) {
	X, _, labels := stepData(40)
	f := ml.NewRandomForestClassifier(forestParams(25))
	require.NoError(t, f.Fit(X, labels, 4))

	p, err := f.PredictProba([]float64{0.9, 2, 1})
	require.NoError(t, err)
	require.Len(t, p, 4)
	assert.InDelta(t, 1.0, sum(p), 1e-9)
	assert.Zero(t, p[1], "unseen class")
	assert.Zero(t, p[3], "unseen class")
	assert.Equal(t, 2, ml.Argmax(p))

	assert.Error(t, f.Fit(X, append(labels[:len(labels)-1:len(labels)-1], 9), 4))
}

// TestGradientBoostingRegressor 测试梯度提升回归
func TestGradientBoostingRegressor(t *testing.T) {
	X, y, _ := stepData(40)
	g := ml.NewGradientBoostingRegressor(boostingParams(50))
	require.NoError(t, g.Fit(X, y))
	assert.Len(t, g.Trees, 50)
	assert.InDelta(t, 5.0, g.Init, 1e-9)

	pred := make([]float64, len(X))
	for i, x := range X {
		pred[i], _ = g.Predict(x)
	}
	assert.Less(t, ml.RMSE(pred, y), 0.5)
	assert.InDelta(t, 1.0, sum(g.FeatureImportances()), 1e-9)

	bad := ml.NewGradientBoostingRegressor(ml.BoostingParams{NEstimators: 0, LearningRate: 0.1})
	assert.Error(t, bad.Fit(X, y))
}

// TestGradientBoostingClassifier 测试梯度提升分类
func TestGradientBoostingClassifier(t *testing.T) {
	X, _, labels := stepData(40)
	g := ml.NewGradientBoostingClassifier(boostingParams(30))
	require.NoError(t, g.Fit(X, labels, 4))
	require.Len(t, g.Trees, 30)
	assert.Len(t, g.Trees[0], 4)

	for _, x := range [][]float64{{0.1, 0, 1}, {0.9, 4, 1}} {
		p, err := g.PredictProba(x)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sum(p), 1e-9)
	}
	lo, _ := g.PredictProba([]float64{0.1, 0, 1})
	hi, _ := g.PredictProba([]float64{0.9, 0, 1})
	assert.Equal(t, 0, ml.Argmax(lo))
	assert.Equal(t, 2, ml.Argmax(hi))
	assert.Less(t, hi[3], 0.01)
}

// TestLinearRegressor 测试线性回归
func TestLinearRegressor(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		a, b := float64(i), float64((i*3)%7)
		X = append(X, []float64{a, b})
		y = append(y, 1+2*a-3*b)
	}
	var l ml.LinearRegressor
	require.NoError(t, l.Fit(X, y))
	assert.InDelta(t, 1.0, l.Intercept, 1e-6)
	assert.InDelta(t, 2.0, l.Coefficients[0], 1e-6)
	assert.InDelta(t, -3.0, l.Coefficients[1], 1e-6)

	p, err := l.Predict([]float64{10, 1})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, p, 1e-6)
	assert.InDelta(t, 0.4, l.FeatureImportances()[0], 1e-6)

	var tiny ml.LinearRegressor
	assert.ErrorIs(t, tiny.Fit(X[:3], y[:3]), ml.ErrSingular)
}

// TestVotingRegressor_DropsFailedMember 测试成员失败被移除
func TestVotingRegressor_DropsFailedMember(t *testing.T) {
	X, y, _ := stepData(3)
	v := &ml.VotingRegressor{
		Forest:   ml.NewRandomForestRegressor(forestParams(5)),
		Boosting: ml.NewGradientBoostingRegressor(boostingParams(5)),
		Linear:   &ml.LinearRegressor{},
		Weights:  ml.WeightsFrom([]float64{3, 2, 3}),
	}
	dropped, err := v.Fit(X, y)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, ml.MemberLinear, dropped[0].Member)
	assert.ErrorIs(t, dropped[0], ml.ErrSingular)
	assert.Equal(t, []string{ml.MemberForest, ml.MemberBoosting}, v.Members())
	assert.Nil(t, v.Linear)
}

// TestVotingRegressor_WeightedAverage 测试加权平均
func TestVotingRegressor_WeightedAverage(t *testing.T) {
	X, y, _ := stepData(40)
	v := &ml.VotingRegressor{
		Forest:   ml.NewRandomForestRegressor(forestParams(10)),
		Boosting: ml.NewGradientBoostingRegressor(boostingParams(20)),
		Weights:  ml.WeightsFrom([]float64{3, 2}),
	}
	_, err := v.Fit(X, y)
	require.NoError(t, err)

	x := []float64{0.7, 1, 1}
	pf, _ := v.Forest.Predict(x)
	pb, _ := v.Boosting.Predict(x)
	pv, err := v.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, (3*pf+2*pb)/5, pv, 1e-9)
	assert.InDelta(t, 1.0, sum(v.FeatureImportances()), 1e-9)
}

// TestVotingRegressor_NoMembers 测试全部成员失败
func TestVotingRegressor_NoMembers(t *testing.T) {
	v := &ml.VotingRegressor{Linear: &ml.LinearRegressor{}}
	_, err := v.Fit([][]float64{{1}}, []float64{1})
	assert.ErrorIs(t, err, ml.ErrNoMembers)

	_, err = (&ml.VotingRegressor{}).Predict([]float64{1})
	assert.ErrorIs(t, err, ml.ErrNotFitted)
}

// TestVotingClassifier 测试软投票
func TestVotingClassifier(t *testing.T) {
	X, _, labels := stepData(40)
	v := &ml.VotingClassifier{
		Forest:   ml.NewRandomForestClassifier(forestParams(10)),
		Boosting: ml.NewGradientBoostingClassifier(boostingParams(10)),
		Weights:  ml.WeightsFrom([]float64{3, 2, 3}),
	}
	_, err := v.Fit(X, labels, 4)
	require.NoError(t, err)

	for _, x := range X {
		p, err := v.PredictProba(x)
		require.NoError(t, err)
		require.Len(t, p, 4)
		assert.InDelta(t, 1.0, sum(p), 1e-6)
	}
	c, err := v.Predict([]float64{0.95, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, c)
}

// TestVotingClassifier_UnseenClassesZero 测试训练中未出现的类别概率为 0
func TestVotingClassifier_UnseenClassesZero(t *testing.T) {
	X, _, labels := stepData(40)
	v := &ml.VotingClassifier{
		Boosting: ml.NewGradientBoostingClassifier(boostingParams(10)),
		Weights:  ml.WeightsFrom([]float64{3, 2, 3}),
	}
	_, err := v.Fit(X, labels, 4)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false}, v.Seen)

	// boosting 单独给未出现类别留有极小的先验
	raw, err := v.Boosting.PredictProba(X[0])
	require.NoError(t, err)
	assert.Greater(t, raw[1], 0.0)

	for _, x := range X {
		p, err := v.PredictProba(x)
		require.NoError(t, err)
		assert.Equal(t, 0.0, p[1])
		assert.Equal(t, 0.0, p[3])
		assert.InDelta(t, 1.0, sum(p), 1e-9)
	}
}

// TestVoting_JSONSnapshot 测试序列化后预测不变
func TestVoting_JSONSnapshot(t *testing.T) {
	X, y, labels := stepData(30)
	reg := &ml.VotingRegressor{
		Forest:   ml.NewRandomForestRegressor(forestParams(5)),
		Boosting: ml.NewGradientBoostingRegressor(boostingParams(5)),
		Weights:  ml.WeightsFrom(nil),
	}
	_, err := reg.Fit(X, y)
	require.NoError(t, err)
	clf := &ml.VotingClassifier{
		Forest:  ml.NewRandomForestClassifier(forestParams(5)),
		Weights: ml.WeightsFrom(nil),
	}
	_, err = clf.Fit(X, labels, 4)
	require.NoError(t, err)

	regData, err := json.Marshal(reg)
	require.NoError(t, err)
	clfData, err := json.Marshal(clf)
	require.NoError(t, err)

	var reg2 ml.VotingRegressor
	var clf2 ml.VotingClassifier
	require.NoError(t, json.Unmarshal(regData, &reg2))
	require.NoError(t, json.Unmarshal(clfData, &clf2))

	for _, x := range X {
		a, _ := reg.Predict(x)
		b, _ := reg2.Predict(x)
		assert.Equal(t, a, b)
		pa, _ := clf.PredictProba(x)
		pb, _ := clf2.PredictProba(x)
		assert.Equal(t, pa, pb)
	}
}

// TestMetrics 测试评估指标
func TestMetrics(t *testing.T) {
	pred := []float64{1, 2, 3}
	actual := []float64{1, 2, 5}
	assert.InDelta(t, math.Sqrt(4.0/3.0), ml.RMSE(pred, actual), 1e-12)
	assert.InDelta(t, 2.0/3.0, ml.MAE(pred, actual), 1e-12)
	assert.InDelta(t, 1.0, ml.R2(actual, actual), 1e-12)
	assert.Equal(t, 0.0, ml.R2([]float64{1, 2}, []float64{3, 3}))
	assert.Equal(t, 0.0, ml.RMSE(nil, nil))
	assert.InDelta(t, 2.0/3.0, ml.Accuracy([]int{0, 1, 2}, []int{0, 1, 1}), 1e-12)
}

// TestNormalize 测试归一化
func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.75}, ml.Normalize([]float64{1, -3}))
	assert.Equal(t, []float64{0.5, 0.5}, ml.Normalize([]float64{0, 0}))
}
