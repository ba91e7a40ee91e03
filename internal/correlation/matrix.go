package correlation

import (
	"ForexLens/internal/calculator"
	"ForexLens/internal/model"
)

// Matrix computes static pairwise Pearson correlations of closes. Each cell
// uses only the timestamps both series share; cells with fewer than two
// common bars or a flat side stay undefined.
func Matrix(series ...*model.PriceSeries) model.CorrelationMatrix {
	n := len(series)
	m := model.CorrelationMatrix{
		Labels: make([]string, n),
		Cells:  make([][]model.Value, n),
	}
	for i, s := range series {
		m.Labels[i] = s.Pair().String()
		m.Cells[i] = make([]model.Value, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := closeCorrelation(series[i], series[j])
			m.Cells[i][j] = v
			m.Cells[j][i] = v
		}
	}
	return m
}

func closeCorrelation(a, b *model.PriceSeries) model.Value {
	al, err := Align(a, b)
	if err != nil {
		return model.None()
	}
	v, err := calculator.Pearson(al.Left, al.Right)
	if err != nil {
		return model.None()
	}
	return v
}

// Strongest returns the highest and lowest defined off-diagonal cells.
// Either is nil when the matrix has no defined off-diagonal cell.
func Strongest(m model.CorrelationMatrix) (positive, negative *model.CorrelationExtreme) {
	for i := range m.Labels {
		for j := i + 1; j < len(m.Labels); j++ {
			v, ok := m.Cells[i][j].Get()
			if !ok {
				continue
			}
			if positive == nil || v > positive.Value {
				positive = &model.CorrelationExtreme{A: m.Labels[i], B: m.Labels[j], Value: v}
			}
			if negative == nil || v < negative.Value {
				negative = &model.CorrelationExtreme{A: m.Labels[i], B: m.Labels[j], Value: v}
			}
		}
	}
	return positive, negative
}
