package calculator

import (
	"fmt"

	"ForexLens/internal/model"
)

// Return lags in bars.
const (
	DailyLag   = 1
	WeeklyLag  = 5
	MonthlyLag = 20
)

// issues collects the sub-computations a calculator could not produce.
type issues []model.FieldIssue

func (is *issues) need(field string, bars, have int) {
	*is = append(*is, model.FieldIssue{
		Field:  field,
		Reason: fmt.Sprintf("%s: need %d bars, have %d", model.ErrInsufficientData, bars, have),
	})
}

// CalculateMetrics computes returns, volatility and range statistics.
// Volatility is the sample standard deviation of daily returns, not annualized.
func CalculateMetrics(s *model.PriceSeries) (model.Metrics, []model.FieldIssue, error) {
	n := s.Len()
	if n < 2 {
		return model.Metrics{}, nil, fmt.Errorf("%w for metrics: need 2 bars, have %d", model.ErrInsufficientData, n)
	}

	bars := s.Bars()
	closes := extractCloses(bars)
	var missing issues

	m := model.Metrics{
		CurrentPrice:  closes[n-1],
		DailyReturn:   lastReturn(closes, DailyLag),
		WeeklyReturn:  lastReturn(closes, WeeklyLag),
		MonthlyReturn: lastReturn(closes, MonthlyLag),
	}
	if !m.WeeklyReturn.Defined {
		missing.need("metrics.weekly_return", WeeklyLag+1, n)
	}
	if !m.MonthlyReturn.Defined {
		missing.need("metrics.monthly_return", MonthlyLag+1, n)
	}

	if sd, err := SampleStdDev(Returns(closes, DailyLag)); err == nil {
		m.Volatility = model.Some(sd)
	} else {
		missing.need("metrics.volatility", 3, n)
	}

	ranges := make([]float64, n)
	for i, b := range bars {
		ranges[i] = b.High - b.Low
	}
	m.AvgDailyRange = Mean(ranges)

	m.MaxPrice, m.MinPrice, _ = PriceRange(bars)
	return m, missing, nil
}

func lastReturn(closes []float64, lag int) model.Value {
	n := len(closes)
	if n <= lag {
		return model.None()
	}
	return model.Some(closes[n-1]/closes[n-1-lag] - 1)
}
