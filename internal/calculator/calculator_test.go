package calculator

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForexLens/internal/model"
)

var testPair = model.NewPair("EUR", "USD")

func makeSeries(t *testing.T, closes []float64) *model.PriceSeries {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Time:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c * 1.001,
			Low:   c * 0.999,
			Close: c,
		}
	}
	s, err := model.NewPriceSeries(testPair, bars)
	require.NoError(t, err)
	return s
}

func constant(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, v, 1e-12)

	_, err = CalculateSMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = CalculateSMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestSMASeries_UndefinedBeforeWindow(t *testing.T) {
	sma := SMASeries(linear(6, 1, 1), 3)
	require.Len(t, sma, 6)
	assert.False(t, sma[0].Defined)
	assert.False(t, sma[1].Defined)
	assert.Equal(t, model.Some(2), sma[2])
	assert.Equal(t, model.Some(5), sma[5])
}

func TestCalculateTrends_SMAUndefinedBelowWindow(t *testing.T) {
	tests := []struct {
		bars                    int
		want20, want50, want200 bool
	}{
		{19, false, false, false},
		{20, true, false, false},
		{49, true, false, false},
		{50, true, true, false},
		{199, true, true, false},
		{200, true, true, true},
	}
	for _, tt := range tests {
		tr, _, err := CalculateTrends(makeSeries(t, linear(tt.bars, 1, 0.001)))
		require.NoError(t, err)
		assert.Equal(t, tt.want20, tr.SMA20.Defined, "SMA-20 with %d bars", tt.bars)
		assert.Equal(t, tt.want50, tr.SMA50.Defined, "SMA-50 with %d bars", tt.bars)
		assert.Equal(t, tt.want200, tr.SMA200.Defined, "SMA-200 with %d bars", tt.bars)
	}
}

func TestCalculateTrends_MonotonicSeries(t *testing.T) {
	up, missing, err := CalculateTrends(makeSeries(t, linear(250, 1.0, 0.001)))
	require.NoError(t, err)
	assert.Equal(t, model.TrendStrongUp, up.Direction)
	assert.Empty(t, missing)
	assert.True(t, up.Support.Defined)
	assert.Less(t, up.Support.V, up.Resistance.V)

	partial, missing, err := CalculateTrends(makeSeries(t, linear(100, 1.0, 0.001)))
	require.NoError(t, err)
	assert.Equal(t, model.TrendModerateUp, partial.Direction)
	require.Len(t, missing, 1)
	assert.Equal(t, "trends.sma_200", missing[0].Field)

	down, _, err := CalculateTrends(makeSeries(t, linear(250, 2.0, -0.001)))
	require.NoError(t, err)
	assert.Equal(t, model.TrendStrongDown, down.Direction)
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name                 string
		sma20, sma50, sma200 model.Value
		want                 model.TrendDirection
	}{
		{"above both", model.Some(1.2), model.Some(1.1), model.Some(1.0), model.TrendStrongUp},
		{"above 50 below 200", model.Some(1.2), model.Some(1.1), model.Some(1.3), model.TrendModerateUp},
		{"below both", model.Some(1.0), model.Some(1.1), model.Some(1.2), model.TrendStrongDown},
		{"below 50 above 200", model.Some(1.0), model.Some(1.1), model.Some(0.9), model.TrendModerateDown},
		{"tie with 50", model.Some(1.1), model.Some(1.1), model.Some(1.0), model.TrendSideways},
		{"no 200 above", model.Some(1.2), model.Some(1.1), model.None(), model.TrendModerateUp},
		{"no 200 below", model.Some(1.0), model.Some(1.1), model.None(), model.TrendModerateDown},
		{"no 50", model.Some(1.0), model.None(), model.None(), model.TrendUndefined},
		{"no 20", model.None(), model.None(), model.None(), model.TrendUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTrend(tt.sma20, tt.sma50, tt.sma200))
		})
	}
}

func TestCalculateMetrics(t *testing.T) {
	_, _, err := CalculateMetrics(makeSeries(t, []float64{1.1}))
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	m, missing, err := CalculateMetrics(makeSeries(t, []float64{1.0, 1.1, 1.21}))
	require.NoError(t, err)
	assert.InDelta(t, 1.21, m.CurrentPrice, 1e-12)
	assert.InDelta(t, 0.1, m.DailyReturn.V, 1e-9)
	assert.False(t, m.WeeklyReturn.Defined)
	assert.False(t, m.MonthlyReturn.Defined)
	assert.InDelta(t, 0, m.Volatility.V, 1e-9)
	assert.InDelta(t, 1.21*1.001, m.MaxPrice, 1e-12)
	assert.InDelta(t, 0.999, m.MinPrice, 1e-12)
	assert.Len(t, missing, 2)

	closes := linear(30, 1.0, 0.01)
	m, missing, err = CalculateMetrics(makeSeries(t, closes))
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.InDelta(t, closes[29]/closes[24]-1, m.WeeklyReturn.V, 1e-12)
	assert.InDelta(t, closes[29]/closes[9]-1, m.MonthlyReturn.V, 1e-12)
}

func TestConstantSeries(t *testing.T) {
	s := makeSeries(t, constant(60, 1.25))

	m, _, err := CalculateMetrics(s)
	require.NoError(t, err)
	assert.Equal(t, model.Some(0), m.Volatility)

	r, _, err := CalculateRisk(s, DefaultRiskFreeRate)
	require.NoError(t, err)
	assert.Equal(t, model.Some(0), r.SharpeRatio)
	assert.Equal(t, model.Some(0), r.MaxDrawdown)
	assert.Equal(t, model.Some(0), r.Beta)
	assert.Equal(t, model.BetaSelfVolatility, r.BetaMode)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, -0.5, MaxDrawdown([]float64{100, 120, 90, 130, 65}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown(linear(50, 1, 0.01)))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestSharpeRatio(t *testing.T) {
	got, err := SharpeRatio([]float64{0.01, 0.02, 0.03}, 0)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(252)*2, got, 1e-9)

	_, err = SharpeRatio([]float64{0.01}, 0)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func referencePercentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := p / 100 * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i]*(1-(pos-float64(i))) + sorted[i+1]*(pos-float64(i))
}

func TestPercentile(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64((i*37)%100 + 1)
	}
	got, err := Percentile(values, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.95, got, 1e-12)

	_, err = Percentile(nil, 5)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestCalculateRisk_VaRMatchesEmpiricalPercentile(t *testing.T) {
	closes := make([]float64, 101)
	closes[0] = 1.1
	for i := 1; i < len(closes); i++ {
		r := 0.004 * math.Sin(float64(i)*1.7)
		closes[i] = closes[i-1] * (1 + r)
	}
	s := makeSeries(t, closes)

	r, _, err := CalculateRisk(s, DefaultRiskFreeRate)
	require.NoError(t, err)

	returns := Returns(closes, 1)
	require.Len(t, returns, 100)
	assert.InDelta(t, referencePercentile(returns, 5), r.VaR95.V, 1e-15)
	assert.LessOrEqual(t, r.MaxDrawdown.V, 0.0)
}

func TestBenchmarkBeta(t *testing.T) {
	market := []float64{0.01, -0.02, 0.015, 0.003, -0.007}
	returns := make([]float64, len(market))
	for i, m := range market {
		returns[i] = 2 * m
	}
	beta, err := BenchmarkBeta(returns, market)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, beta.V, 1e-9)

	flat, err := BenchmarkBeta(returns, constant(5, 0.01))
	require.NoError(t, err)
	assert.False(t, flat.Defined)
}

func TestPearson(t *testing.T) {
	x := []float64{0.01, -0.02, 0.015, 0.003, -0.007}
	self, err := Pearson(x, x)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self.V, 1e-12)

	neg := make([]float64, len(x))
	for i, v := range x {
		neg[i] = -3 * v
	}
	inv, err := Pearson(x, neg)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, inv.V, 1e-12)

	flat, err := Pearson(x, constant(5, 1))
	require.NoError(t, err)
	assert.False(t, flat.Defined)
}

func TestDetectPatterns(t *testing.T) {
	p, missing, err := DetectPatterns(makeSeries(t, constant(30, 1.1)), DefaultPatternTolerance)
	require.NoError(t, err)
	assert.Equal(t, model.PatternDetected, p.DoubleTop)
	assert.Equal(t, model.PatternDetected, p.DoubleBottom)
	assert.Equal(t, model.PatternNotImplemented, p.HeadAndShoulders)
	assert.Equal(t, model.PatternDetected, p.BreakoutPotential)
	assert.Empty(t, missing)

	trending, _, err := DetectPatterns(makeSeries(t, linear(30, 1.0, 0.01)), DefaultPatternTolerance)
	require.NoError(t, err)
	assert.Equal(t, model.PatternNotDetected, trending.DoubleTop)
	assert.Equal(t, model.PatternNotDetected, trending.DoubleBottom)
	assert.Equal(t, model.PatternNotImplemented, trending.HeadAndShoulders)

	short, missing, err := DetectPatterns(makeSeries(t, constant(18, 1.1)), DefaultPatternTolerance)
	require.NoError(t, err)
	assert.Equal(t, model.PatternUndefined, short.DoubleTop)
	assert.Equal(t, model.PatternUndefined, short.DoubleBottom)
	assert.Equal(t, model.PatternNotImplemented, short.HeadAndShoulders)
	assert.Len(t, missing, 2)
}

func TestRollingExtremes(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	mx, err := RollingMax(values, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 9.0, mx)
	mn, err := RollingMin(values, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 2.0, mn)

	_, err = RollingMax(values, 3, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRecentStats(t *testing.T) {
	closes := append(constant(20, 1.0), 1.0, 1.01, 1.02)
	st, err := RecentStats(makeSeries(t, closes), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Days)
	assert.InDelta(t, 1.015, st.MeanPrice, 1e-12)
	assert.InDelta(t, 1.02*1.001, st.High, 1e-12)
	assert.InDelta(t, 1.01*0.999, st.Low, 1e-12)
	assert.False(t, st.AnnualizedVol.Defined)
	assert.InDelta(t, (1.02/1.01-1)*100, st.MeanDailyReturnPct.V, 1e-9)
}
