package ml

import (
	"math"
	"math/rand/v2"
)

// newRand 用种子和流编号创建确定性随机源
func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// TrainTestSplit 打乱 [0,n) 并切分,测试集大小为 ceil(n*testFraction),训练集至少保留一行
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}

	perm := newRand(seed, 0).Perm(n)
	return perm[nTest:], perm[:nTest]
}

// Rows 按下标取行
func Rows[T any](data []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}
