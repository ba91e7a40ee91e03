package collector

import (
	"context"

	"ForexLens/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailySeries returns the daily OHLC history for a pair, oldest first.
	FetchDailySeries(ctx context.Context, pair model.Pair) (*model.PriceSeries, error)
	// FetchQuote returns the current exchange rate for a pair.
	FetchQuote(ctx context.Context, pair model.Pair) (model.Quote, error)
	Name() string
}
