package calculator

import (
	"fmt"
	"math"

	"ForexLens/internal/model"
)

// PatternWindow is the rolling extreme window and the lookback used by the
// double top/bottom check.
const PatternWindow = 10

// DefaultPatternTolerance is the absolute price difference under which two
// rolling extremes count as equal.
const DefaultPatternTolerance = 0.001

// DetectPatterns computes placeholder pattern flags.
//
// Double top/bottom compares the 10-bar rolling max(high)/min(low) at the last
// bar with the same statistic at the tenth bar from the end. This is a crude
// heuristic and fires on flat markets. Head-and-shoulders has no detector and
// is always reported as not implemented. Breakout potential is true when the
// last bar's range exceeds twice the return volatility.
func DetectPatterns(s *model.PriceSeries, tolerance float64) (model.Patterns, []model.FieldIssue, error) {
	n := s.Len()
	if n == 0 {
		return model.Patterns{}, nil, fmt.Errorf("%w for patterns: empty series", model.ErrInsufficientData)
	}
	if tolerance <= 0 {
		tolerance = DefaultPatternTolerance
	}
	var missing issues

	p := model.Patterns{
		DoubleTop:         model.PatternUndefined,
		DoubleBottom:      model.PatternUndefined,
		HeadAndShoulders:  model.PatternNotImplemented,
		BreakoutPotential: model.PatternUndefined,
	}

	if top, ok := repeatedExtreme(s.Highs(), RollingMax, tolerance); ok {
		p.DoubleTop = model.FlagOf(top)
	} else {
		missing.need("patterns.double_top", 2*PatternWindow-1, n)
	}
	if bottom, ok := repeatedExtreme(s.Lows(), RollingMin, tolerance); ok {
		p.DoubleBottom = model.FlagOf(bottom)
	} else {
		missing.need("patterns.double_bottom", 2*PatternWindow-1, n)
	}

	if vol, err := SampleStdDev(Returns(s.Closes(), DailyLag)); err == nil {
		last := s.Last()
		p.BreakoutPotential = model.FlagOf(last.High-last.Low > 2*vol)
	} else {
		missing.need("patterns.breakout_potential", 3, n)
	}
	return p, missing, nil
}

type rollingFunc func(values []float64, window, end int) (float64, error)

func repeatedExtreme(values []float64, roll rollingFunc, tolerance float64) (detected, ok bool) {
	n := len(values)
	latest, err := roll(values, PatternWindow, n-1)
	if err != nil {
		return false, false
	}
	earlier, err := roll(values, PatternWindow, n-PatternWindow)
	if err != nil {
		return false, false
	}
	return math.Abs(latest-earlier) < tolerance, true
}
