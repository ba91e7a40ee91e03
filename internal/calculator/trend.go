package calculator

import (
	"fmt"
	"math"

	"ForexLens/internal/model"
)

// Moving average windows and the support/resistance lookback.
const (
	ShortWindow  = 20
	MediumWindow = 50
	LongWindow   = 200
	LevelWindow  = 20
)

// CalculateTrends computes SMA-20/50/200, the trend classification, trend
// strength and rolling support/resistance.
func CalculateTrends(s *model.PriceSeries) (model.Trends, []model.FieldIssue, error) {
	n := s.Len()
	if n == 0 {
		return model.Trends{}, nil, fmt.Errorf("%w for trends: empty series", model.ErrInsufficientData)
	}
	closes := s.Closes()
	var missing issues

	t := model.Trends{
		SMA20:  LatestSMA(closes, ShortWindow),
		SMA50:  LatestSMA(closes, MediumWindow),
		SMA200: LatestSMA(closes, LongWindow),
	}
	for _, w := range []struct {
		field  string
		window int
		v      model.Value
	}{
		{"trends.sma_20", ShortWindow, t.SMA20},
		{"trends.sma_50", MediumWindow, t.SMA50},
		{"trends.sma_200", LongWindow, t.SMA200},
	} {
		if !w.v.Defined {
			missing.need(w.field, w.window, n)
		}
	}

	t.Direction = ClassifyTrend(t.SMA20, t.SMA50, t.SMA200)
	if t.Direction == model.TrendUndefined {
		missing.need("trends.trend_direction", MediumWindow, n)
	}

	t.Strength = trendStrength(closes, SMASeries(closes, ShortWindow))
	if !t.Strength.Defined {
		missing.need("trends.trend_strength", ShortWindow, n)
	}

	if v, err := RollingMin(s.Lows(), LevelWindow, n-1); err == nil {
		t.Support = model.Some(v)
	} else {
		missing.need("trends.support_level", LevelWindow, n)
	}
	if v, err := RollingMax(s.Highs(), LevelWindow, n-1); err == nil {
		t.Resistance = model.Some(v)
	} else {
		missing.need("trends.resistance_level", LevelWindow, n)
	}
	return t, missing, nil
}

// ClassifyTrend uses the latest SMA-20 as the reference price. A missing
// SMA-200 makes the comparisons against it false, so such series top out
// at the moderate grades. Without SMA-20 or SMA-50 the trend is undefined.
func ClassifyTrend(sma20, sma50, sma200 model.Value) model.TrendDirection {
	if !sma20.Defined || !sma50.Defined {
		return model.TrendUndefined
	}
	cur := sma20.V
	above200 := sma200.Defined && cur > sma200.V
	below200 := sma200.Defined && cur < sma200.V

	switch {
	case cur > sma50.V && above200:
		return model.TrendStrongUp
	case cur > sma50.V:
		return model.TrendModerateUp
	case cur < sma50.V && below200:
		return model.TrendStrongDown
	case cur < sma50.V:
		return model.TrendModerateDown
	default:
		return model.TrendSideways
	}
}

// trendStrength is the mean of |close - SMA20| / SMA20 over bars where SMA20 exists.
func trendStrength(closes []float64, sma []model.Value) model.Value {
	var sum float64
	var count int
	for i, v := range sma {
		if !v.Defined || v.V == 0 {
			continue
		}
		sum += math.Abs(closes[i]-v.V) / v.V
		count++
	}
	if count == 0 {
		return model.None()
	}
	return model.Some(sum / float64(count))
}
