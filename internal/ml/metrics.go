package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RMSE 均方根误差
func RMSE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	var sum float64
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred)))
}

// MAE 平均绝对误差
func MAE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	var sum float64
	for i := range pred {
		sum += math.Abs(pred[i] - actual[i])
	}
	return sum / float64(len(pred))
}

// R2 决定系数,真实值方差为 0 时返回 0
func R2(pred, actual []float64) float64 {
	if len(pred) < 2 {
		return 0
	}
	return finite(stat.RSquaredFrom(pred, actual, nil))
}

// Accuracy 分类准确率
func Accuracy(pred, actual []int) float64 {
	if len(pred) == 0 {
		return 0
	}
	var hit int
	for i := range pred {
		if pred[i] == actual[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(pred))
}
