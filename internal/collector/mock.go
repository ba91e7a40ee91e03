package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"ForexLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Prices map[model.Pair]float64
	Bars   int
	Now    func() time.Time
}

// NewMockFetcher creates a mock that serves Bars days of synthetic data.
func NewMockFetcher(prices map[model.Pair]float64, bars int) *MockFetcher {
	return &MockFetcher{Prices: prices, Bars: bars, Now: time.Now}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailySeries(_ context.Context, pair model.Pair) (*model.PriceSeries, error) {
	price, ok := m.Prices[pair]
	if !ok {
		return nil, fmt.Errorf("%w: mock has no price for %s", model.ErrMissingSeries, pair)
	}
	return model.NewPriceSeries(pair, generateMockBars(price, m.Bars, m.now()))
}

func (m *MockFetcher) FetchQuote(_ context.Context, pair model.Pair) (model.Quote, error) {
	price, ok := m.Prices[pair]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: mock has no price for %s", model.ErrMissingSeries, pair)
	}
	return model.Quote{
		Pair: pair,
		Rate: price,
		Bid:  price * 0.9999,
		Ask:  price * 1.0001,
		Time: m.now(),
	}, nil
}

func (m *MockFetcher) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// generateMockBars produces an oscillating daily series drifting up towards
// basePrice, one bar per day up to the day before now.
func generateMockBars(basePrice float64, count int, now time.Time) []model.Bar {
	day := now.UTC().Truncate(24 * time.Hour)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		offset := float64(i-count+1) * 0.0005
		p := basePrice * (1 + offset + 0.01*math.Sin(float64(i)/7))
		bars[i] = model.Bar{
			Time:  day.AddDate(0, 0, -(count - i)),
			Open:  p * 0.999,
			High:  p * 1.004,
			Low:   p * 0.996,
			Close: p,
		}
	}
	return bars
}
