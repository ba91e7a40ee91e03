package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"ForexLens/internal/model"
)

// TradingDays is the annualization factor for daily data.
const TradingDays = 252

// zeroTolerance treats a standard deviation this small as exactly zero.
// Summing identical floats can leave residue around 1e-20.
const zeroTolerance = 1e-12

// Returns computes simple returns over lag bars: prices[i+lag]/prices[i] - 1.
func Returns(prices []float64, lag int) []float64 {
	if lag <= 0 || len(prices) <= lag {
		return nil
	}
	out := make([]float64, len(prices)-lag)
	for i := range out {
		out[i] = prices[i+lag]/prices[i] - 1
	}
	return out
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the n-1 standard deviation. It needs at least two values.
func SampleStdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("%w for standard deviation: have %d values", model.ErrInsufficientData, len(values))
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(values)-1))
	if sd < zeroTolerance {
		return 0, nil
	}
	return sd, nil
}

// Covariance returns the sample covariance of two equal-length slices.
func Covariance(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.New("covariance: length mismatch")
	}
	if len(x) < 2 {
		return 0, fmt.Errorf("%w for covariance: have %d values", model.ErrInsufficientData, len(x))
	}
	mx, my := Mean(x), Mean(y)
	var s float64
	for i := range x {
		s += (x[i] - mx) * (y[i] - my)
	}
	return s / float64(len(x)-1), nil
}

// Pearson returns the correlation coefficient of x and y. It is undefined
// when either side has zero variance.
func Pearson(x, y []float64) (model.Value, error) {
	if len(x) != len(y) {
		return model.None(), errors.New("pearson: length mismatch")
	}
	if len(x) < 2 {
		return model.None(), fmt.Errorf("%w for correlation: have %d values", model.ErrInsufficientData, len(x))
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx < zeroTolerance*zeroTolerance || syy < zeroTolerance*zeroTolerance {
		return model.None(), nil
	}
	r := sxy / math.Sqrt(sxx*syy)
	return model.Some(math.Max(-1, math.Min(1, r))), nil
}

// Percentile returns the p-th percentile (0..100) with linear interpolation
// between closest ranks, the same rule as numpy's default.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w for percentile", model.ErrInsufficientData)
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percentile %v out of range", p)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}
