package ml

import (
	"errors"
	"math/rand/v2"
	"sort"
)

// Criterion 分裂准则
type Criterion string

const (
	CriterionMSE  Criterion = "mse"
	CriterionGini Criterion = "gini"
)

const minImpurityDecrease = 1e-12

// TreeParams CART 参数,MaxDepth<=0 表示不限深度,MaxFeatures<=0 表示使用全部特征
type TreeParams struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
	MaxFeatures     int `json:"max_features"`
}

// Node 树节点,Left 为 -1 时是叶子
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v"`
}

// Tree CART 决策树。回归树叶子保存均值,分类树叶子保存各类别比例。
type Tree struct {
	Criterion   Criterion `json:"criterion"`
	NFeatures   int       `json:"n_features"`
	NClasses    int       `json:"n_classes,omitempty"`
	Nodes       []Node    `json:"nodes"`
	Importances []float64 `json:"importances"` // 未归一化的不纯度下降量
}

// treeBuilder 构建过程的临时状态
type treeBuilder struct {
	X      [][]float64
	y      []float64
	labels []int
	params TreeParams
	rng    *rand.Rand
	tree   *Tree
}

// FitRegressionTree 在 idx 指定的样本上拟合回归树,idx 可包含重复下标
func FitRegressionTree(X [][]float64, y []float64, idx []int, params TreeParams, rng *rand.Rand) (*Tree, error) {
	if len(idx) == 0 {
		return nil, errors.New("tree: no samples")
	}
	b := &treeBuilder{
		X: X, y: y, params: params, rng: rng,
		tree: &Tree{Criterion: CriterionMSE, NFeatures: len(X[0]), Importances: make([]float64, len(X[0]))},
	}
	b.build(idx, 0)
	return b.tree, nil
}

// FitClassificationTree 拟合分类树,labels 取值范围为 [0,nClasses)
func FitClassificationTree(X [][]float64, labels []int, nClasses int, idx []int, params TreeParams, rng *rand.Rand) (*Tree, error) {
	if len(idx) == 0 {
		return nil, errors.New("tree: no samples")
	}
	if nClasses < 1 {
		return nil, errors.New("tree: need at least one class")
	}
	b := &treeBuilder{
		X: X, labels: labels, params: params, rng: rng,
		tree: &Tree{Criterion: CriterionGini, NFeatures: len(X[0]), NClasses: nClasses, Importances: make([]float64, len(X[0]))},
	}
	b.build(idx, 0)
	return b.tree, nil
}

func (b *treeBuilder) classification() bool {
	return b.tree.Criterion == CriterionGini
}

// build 递归构建节点,返回节点下标
func (b *treeBuilder) build(idx []int, depth int) int {
	node := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Left: -1, Right: -1, Value: b.leafValue(idx)})

	minSplit := max(b.params.MinSamplesSplit, 2)
	minLeaf := max(b.params.MinSamplesLeaf, 1)
	if len(idx) < minSplit || len(idx) < 2*minLeaf {
		return node
	}
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return node
	}

	parent := b.impurity(idx)
	if parent <= minImpurityDecrease {
		return node
	}

	feature, threshold, gain, ok := b.bestSplit(idx, parent, minLeaf)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.tree.Importances[feature] += gain

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	n := &b.tree.Nodes[node]
	n.Feature, n.Threshold, n.Left, n.Right = feature, threshold, l, r
	return node
}

// featureOrder 返回本节点的特征搜索顺序
func (b *treeBuilder) featureOrder() []int {
	n := b.tree.NFeatures
	if b.rng == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(n)
}

// bestSplit 在随机顺序的特征上寻找不纯度下降最大的切分点。
// 检查过 MaxFeatures 个非常量特征后,只要已找到有效切分就停止,否则继续检查剩余特征。
// gain 为样本数加权后的不纯度下降量。
func (b *treeBuilder) bestSplit(idx []int, parent float64, minLeaf int) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	sorted := make([]int, n)
	total := float64(n) * parent
	limit := b.params.MaxFeatures
	visited := 0

	for _, f := range b.featureOrder() {
		if limit > 0 && visited >= limit && ok {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[n-1]][f] {
			continue
		}
		visited++

		scan := b.newScanner(sorted)
		for i := 0; i < n-1; i++ {
			scan.move(sorted[i])
			nl := i + 1
			lo, hi := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if lo == hi || nl < minLeaf || n-nl < minLeaf {
				continue
			}
			g := total - scan.weightedImpurity()
			if g > gain+minImpurityDecrease {
				feature, threshold, gain, ok = f, lo+(hi-lo)/2, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

// impurity 计算样本集合的不纯度(方差或基尼系数)
func (b *treeBuilder) impurity(idx []int) float64 {
	if b.classification() {
		counts := make([]float64, b.tree.NClasses)
		for _, i := range idx {
			counts[b.labels[i]]++
		}
		return gini(counts, float64(len(idx)))
	}
	var sum, sq float64
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	return variance(sum, sq, n)
}

func (b *treeBuilder) leafValue(idx []int) []float64 {
	if b.classification() {
		dist := make([]float64, b.tree.NClasses)
		for _, i := range idx {
			dist[b.labels[i]]++
		}
		for k := range dist {
			dist[k] /= float64(len(idx))
		}
		return dist
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return []float64{sum / float64(len(idx))}
}

// scanner 从左到右移动样本,增量维护左右两侧的统计量
type scanner struct {
	b                *treeBuilder
	nl, nr           float64
	sumL, sumR       float64
	sqL, sqR         float64
	countsL, countsR []float64
}

func (b *treeBuilder) newScanner(idx []int) *scanner {
	s := &scanner{b: b, nr: float64(len(idx))}
	if b.classification() {
		s.countsL = make([]float64, b.tree.NClasses)
		s.countsR = make([]float64, b.tree.NClasses)
		for _, i := range idx {
			s.countsR[b.labels[i]]++
		}
		return s
	}
	for _, i := range idx {
		s.sumR += b.y[i]
		s.sqR += b.y[i] * b.y[i]
	}
	return s
}

func (s *scanner) move(i int) {
	s.nl++
	s.nr--
	if s.b.classification() {
		c := s.b.labels[i]
		s.countsL[c]++
		s.countsR[c]--
		return
	}
	v := s.b.y[i]
	s.sumL += v
	s.sumR -= v
	s.sqL += v * v
	s.sqR -= v * v
}

func (s *scanner) weightedImpurity() float64 {
	if s.b.classification() {
		return s.nl*gini(s.countsL, s.nl) + s.nr*gini(s.countsR, s.nr)
	}
	return s.nl*variance(s.sumL, s.sqL, s.nl) + s.nr*variance(s.sumR, s.sqR, s.nr)
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func variance(sum, sq, n float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / n
	v := sq/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

// leaf 返回 x 落入的叶子下标
func (t *Tree) leaf(x []float64) int {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

// Predict 返回叶子值(回归树为单元素切片,分类树为类别分布)
func (t *Tree) Predict(x []float64) []float64 {
	return t.Nodes[t.leaf(x)].Value
}

// Depth 返回树深度
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}
