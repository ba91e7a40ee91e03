package calculator

import (
	"fmt"
	"math"
	"time"

	"ForexLens/internal/model"
)

// RecentStats summarises the bars within the last days calendar days of the series.
func RecentStats(s *model.PriceSeries, days int) (model.PeriodStats, error) {
	if s.Len() == 0 {
		return model.PeriodStats{}, fmt.Errorf("%w for %s recent stats", model.ErrMissingSeries, s.Pair())
	}
	if days <= 0 {
		return model.PeriodStats{}, fmt.Errorf("days must be positive, got %d", days)
	}
	cutoff := s.Last().Time.Add(-time.Duration(days) * 24 * time.Hour)
	recent := s.Since(cutoff)

	bars := recent.Bars()
	closes := extractCloses(bars)
	st := model.PeriodStats{
		Pair:      s.Pair(),
		Days:      days,
		MeanPrice: Mean(closes),
	}
	st.High, st.Low, _ = PriceRange(bars)

	if sd, err := SampleStdDev(closes); err == nil {
		st.StdDev = model.Some(sd)
	}
	returns := Returns(closes, DailyLag)
	if sd, err := SampleStdDev(returns); err == nil {
		st.AnnualizedVol = model.Some(sd * math.Sqrt(TradingDays))
	}
	if len(returns) > 0 {
		st.MeanDailyReturnPct = model.Some(Mean(returns) * 100)
	}
	return st, nil
}
