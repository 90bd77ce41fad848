package ml

import (
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// ErrSingular 线性方程组无唯一解
var ErrSingular = errors.New("linear regression: singular system")

// LinearRegressor 最小二乘线性回归
type LinearRegressor struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	R2           float64   `json:"r2"`
}

// Fit 拟合。样本数不超过特征数或系数非有限值时返回 ErrSingular
func (l *LinearRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkXY(X, len(y)); err != nil {
		return err
	}
	width := len(X[0])
	if len(X) <= width+1 {
		return fmt.Errorf("%w: %d samples for %d features", ErrSingular, len(X), width)
	}

	r := new(regression.Regression)
	r.SetObserved("delay_days")
	for j := 0; j < width; j++ {
		r.SetVar(j, fmt.Sprintf("x%d", j))
	}
	for i, row := range X {
		r.Train(regression.DataPoint(y[i], row))
	}
	if err := r.Run(); err != nil {
		return fmt.Errorf("linear regression: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != width+1 {
		return fmt.Errorf("%w: got %d coefficients", ErrSingular, len(coeffs))
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return ErrSingular
		}
	}
	l.Intercept = coeffs[0]
	l.Coefficients = coeffs[1:]
	l.R2 = finite(r.R2)
	return nil
}

// Predict 预测
func (l *LinearRegressor) Predict(x []float64) (float64, error) {
	if l.Coefficients == nil {
		return 0, ErrNotFitted
	}
	out := l.Intercept
	for j, c := range l.Coefficients {
		out += c * x[j]
	}
	return out, nil
}

// FeatureImportances 标准化输入下以系数绝对值作为重要度
func (l *LinearRegressor) FeatureImportances() []float64 {
	if l.Coefficients == nil {
		return nil
	}
	return Normalize(l.Coefficients)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
