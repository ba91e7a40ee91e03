package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ForexLens/internal/model"
)

// Batch is the outcome of collecting several pairs. Series keeps request
// order and holds only pairs that loaded; Missing records why the rest did not.
type Batch struct {
	Series  []*model.PriceSeries
	Missing map[model.Pair]error
}

// Get returns the series for a pair, or nil.
func (b Batch) Get(pair model.Pair) *model.PriceSeries {
	for _, s := range b.Series {
		if s.Pair() == pair {
			return s
		}
	}
	return nil
}

// Collector orchestrates data fetching for a set of pairs.
type Collector struct {
	Fetcher Fetcher
	Store   *CSVStore
	logger  zerolog.Logger
}

// NewCollector creates a new Collector. store may be nil; when set, fetched
// series are saved to it and used as a fallback when a fetch fails.
func NewCollector(fetcher Fetcher, store *CSVStore) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Store:   store,
		logger:  log.With().Str("component", "collector").Logger(),
	}
}

// Collect fetches daily series for pairs one after another, so a rate
// limited fetcher is never hit concurrently.
func (c *Collector) Collect(ctx context.Context, pairs []model.Pair) Batch {
	batch := Batch{Missing: make(map[model.Pair]error)}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			batch.Missing[pair] = err
			continue
		}
		s, err := c.fetchOne(ctx, pair)
		if err != nil {
			c.logger.Warn().Err(err).Str("pair", pair.String()).Msg("Series unavailable")
			batch.Missing[pair] = err
			continue
		}
		batch.Series = append(batch.Series, s)
	}
	c.logger.Info().
		Int("loaded", len(batch.Series)).
		Int("missing", len(batch.Missing)).
		Str("source", c.Fetcher.Name()).
		Msg("Collection finished")
	return batch
}

func (c *Collector) fetchOne(ctx context.Context, pair model.Pair) (*model.PriceSeries, error) {
	s, err := c.Fetcher.FetchDailySeries(ctx, pair)
	if err == nil {
		if c.Store != nil && c.Fetcher != Fetcher(c.Store) {
			if serr := c.Store.Save(s); serr != nil {
				c.logger.Warn().Err(serr).Str("pair", pair.String()).Msg("Failed to save series")
			}
		}
		return s, nil
	}
	if c.Store == nil || c.Fetcher == Fetcher(c.Store) {
		return nil, fmt.Errorf("fetch %s: %w", pair, err)
	}
	saved, lerr := c.Store.Load(pair)
	if lerr != nil {
		return nil, fmt.Errorf("fetch %s: %w; saved data: %w", pair, err, lerr)
	}
	c.logger.Warn().Err(err).Str("pair", pair.String()).Msg("Fetch failed, using saved data")
	return saved, nil
}

// Quotes fetches the current rate for every pair.
func (c *Collector) Quotes(ctx context.Context, pairs []model.Pair) ([]model.Quote, map[model.Pair]error) {
	var quotes []model.Quote
	missing := make(map[model.Pair]error)
	for _, pair := range pairs {
		q, err := c.Fetcher.FetchQuote(ctx, pair)
		if err != nil {
			c.logger.Warn().Err(err).Str("pair", pair.String()).Msg("Quote unavailable")
			missing[pair] = err
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, missing
}
