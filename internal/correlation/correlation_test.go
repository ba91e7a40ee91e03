package correlation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForexLens/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func seriesFrom(t *testing.T, pair string, start time.Time, closes []float64) *model.PriceSeries {
	t.Helper()
	p, err := model.ParsePair(pair)
	require.NoError(t, err)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	s, err := model.NewPriceSeries(p, bars)
	require.NoError(t, err)
	return s
}

func wave(n int, base, amp, freq float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)*freq) + 0.0005*float64(i)
	}
	return out
}

func TestAlign(t *testing.T) {
	a := seriesFrom(t, "EUR/USD", day0, []float64{1, 2, 3, 4, 5})
	b := seriesFrom(t, "BTC/USD", day0.AddDate(0, 0, 2), []float64{30, 40, 50, 60})

	al, err := Align(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, al.Len())
	assert.Equal(t, []float64{3, 4, 5}, al.Left)
	assert.Equal(t, []float64{30, 40, 50}, al.Right)
	assert.True(t, al.Times[0].Equal(day0.AddDate(0, 0, 2)))
}

func TestAlign_DisjointDates(t *testing.T) {
	a := seriesFrom(t, "EUR/USD", day0, wave(40, 1.1, 0.01, 0.3))
	b := seriesFrom(t, "BTC/USD", day0.AddDate(0, 2, 0), wave(40, 60000, 500, 0.2))

	_, err := Align(a, b)
	assert.ErrorIs(t, err, model.ErrAlignmentEmpty)

	_, err = NewEngine(30).Rolling(a, b)
	assert.ErrorIs(t, err, model.ErrAlignmentEmpty)
}

func TestRolling_SelfCorrelationIsOne(t *testing.T) {
	s := seriesFrom(t, "EUR/USD", day0, wave(90, 1.1, 0.02, 0.37))

	res, err := NewEngine(30).Rolling(s, s)
	require.NoError(t, err)
	assert.Equal(t, 90, res.Overlap)
	require.Len(t, res.Rolling, 60)
	for _, p := range res.Rolling {
		require.True(t, p.Value.Defined)
		assert.InDelta(t, 1.0, p.Value.V, 1e-12)
	}
	assert.InDelta(t, 1.0, res.Coefficient.V, 1e-12)
	assert.InDelta(t, 1.0, res.Current.V, 1e-12)
	assert.InDelta(t, 1.0, res.Average.V, 1e-12)
	assert.True(t, res.Rolling[len(res.Rolling)-1].Time.Equal(day0.AddDate(0, 0, 89)))
}

func TestRolling_InsufficientOverlap(t *testing.T) {
	a := seriesFrom(t, "EUR/USD", day0, wave(25, 1.1, 0.02, 0.37))
	b := seriesFrom(t, "BTC/USD", day0, wave(25, 60000, 800, 0.21))

	res, err := NewEngine(30).Rolling(a, b)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.Equal(t, 25, res.Overlap)
	assert.False(t, res.Current.Defined)
}

func TestRolling_FlatSeriesHasNoDefinedWindow(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 1.25
	}
	a := seriesFrom(t, "EUR/USD", day0, flat)
	b := seriesFrom(t, "BTC/USD", day0, wave(40, 60000, 800, 0.21))

	_, err := NewEngine(30).Rolling(a, b)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRolling_InverseSeries(t *testing.T) {
	up := wave(60, 1.1, 0.02, 0.37)
	a := seriesFrom(t, "EUR/USD", day0, up)
	inv := make([]float64, len(up))
	for i, v := range up {
		inv[i] = 1 / v
	}
	b := seriesFrom(t, "USD/EUR", day0, inv)

	res, err := NewEngine(20).Rolling(a, b)
	require.NoError(t, err)
	assert.Less(t, res.Current.V, -0.99)
	assert.Less(t, res.Coefficient.V, -0.99)
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name             string
		current, average model.Value
		want             model.CorrelationTrend
	}{
		{"above", model.Some(0.6), model.Some(0.4), model.CorrelationIncreasing},
		{"below", model.Some(0.2), model.Some(0.4), model.CorrelationDecreasing},
		{"tie", model.Some(0.4), model.Some(0.4), model.CorrelationDecreasing},
		{"undefined current", model.None(), model.Some(0.4), model.CorrelationDecreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.current, tt.average))
		})
	}
}

func TestNewEngine_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewEngine(0).Window())
	assert.Equal(t, 14, NewEngine(14).Window())
}

func TestMatrixAndStrongest(t *testing.T) {
	base := wave(50, 1.1, 0.02, 0.37)
	scaled := make([]float64, len(base))
	mirrored := make([]float64, len(base))
	for i, v := range base {
		scaled[i] = 2*v + 0.3
		mirrored[i] = 3 - v
	}
	a := seriesFrom(t, "EUR/USD", day0, base)
	b := seriesFrom(t, "GBP/USD", day0, scaled)
	c := seriesFrom(t, "USD/CHF", day0, mirrored)
	d := seriesFrom(t, "BTC/USD", day0.AddDate(1, 0, 0), base)

	m := Matrix(a, b, c, d)
	assert.Equal(t, []string{"EUR/USD", "GBP/USD", "USD/CHF", "BTC/USD"}, m.Labels)
	assert.InDelta(t, 1.0, m.At("EUR/USD", "EUR/USD").V, 1e-12)
	assert.InDelta(t, 1.0, m.At("EUR/USD", "GBP/USD").V, 1e-9)
	assert.InDelta(t, -1.0, m.At("GBP/USD", "USD/CHF").V, 1e-9)
	assert.Equal(t, m.At("USD/CHF", "EUR/USD"), m.At("EUR/USD", "USD/CHF"))
	assert.False(t, m.At("EUR/USD", "BTC/USD").Defined)
	assert.False(t, m.At("EUR/USD", "XAU/USD").Defined)

	pos, neg := Strongest(m)
	require.NotNil(t, pos)
	require.NotNil(t, neg)
	assert.Equal(t, "EUR/USD", pos.A)
	assert.Equal(t, "GBP/USD", pos.B)
	assert.InDelta(t, 1.0, pos.Value, 1e-9)
	assert.InDelta(t, -1.0, neg.Value, 1e-9)
}

func TestStrongest_Empty(t *testing.T) {
	pos, neg := Strongest(Matrix())
	assert.Nil(t, pos)
	assert.Nil(t, neg)
}
