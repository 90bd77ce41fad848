package ml

import "math"

// Normalize 归一化为和为 1,总和为 0 时返回均匀分布
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			sum += math.Abs(x)
		}
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(v))
		}
		return out
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		out[i] = math.Abs(x) / sum
	}
	return out
}

// meanImportances 对每棵树的归一化重要度取平均,再整体归一化
func meanImportances(trees []*Tree, width int) []float64 {
	acc := make([]float64, width)
	for _, t := range trees {
		var sum float64
		for _, v := range t.Importances {
			sum += v
		}
		if sum == 0 {
			continue
		}
		for j, v := range t.Importances {
			acc[j] += v / sum
		}
	}
	return Normalize(acc)
}
