package calculator

import (
	"errors"
	"fmt"

	"ForexLens/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w for SMA-%d: have %d bars", model.ErrInsufficientData, period, len(prices))
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the trailing SMA at every index. Positions with fewer
// than period points before them are undefined, never a partial average.
func SMASeries(prices []float64, period int) []model.Value {
	out := make([]model.Value, len(prices))
	for i := range prices {
		if v, err := CalculateSMA(prices[:i+1], period); err == nil {
			out[i] = model.Some(v)
		}
	}
	return out
}

// LatestSMA returns the SMA at the last bar, or undefined when the series is too short.
func LatestSMA(prices []float64, period int) model.Value {
	v, err := CalculateSMA(prices, period)
	if err != nil {
		return model.None()
	}
	return model.Some(v)
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
