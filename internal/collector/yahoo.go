package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ForexLens/internal/model"
)

// DefaultYahooURL is the chart API base.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API. It needs
// no API key, which makes it a practical fallback for Alpha Vantage.
type YahooFetcher struct {
	BaseURL       string
	Range         string
	CryptoSymbols map[string]bool
	Client        *http.Client
	logger        zerolog.Logger
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: baseURL,
		Range:   "2y",
		CryptoSymbols: map[string]bool{
			"BTC": true, "ETH": true, "LTC": true, "XRP": true, "SOL": true,
		},
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: log.With().Str("component", "yahoo").Logger(),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// Symbol maps a pair to a Yahoo ticker: EURUSD=X for currencies, BTC-USD for crypto.
func (f *YahooFetcher) Symbol(p model.Pair) string {
	if f.CryptoSymbols[p.Base] {
		return p.Base + "-" + p.Quote
	}
	return p.Base + p.Quote + "=X"
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []*float64 `json:"open"`
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) fetchChart(ctx context.Context, pair model.Pair, interval, rng string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s", f.BaseURL, url.PathEscape(f.Symbol(pair)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	f.logger.Debug().Str("symbol", f.Symbol(pair)).Str("range", rng).Msg("Querying Yahoo chart")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", model.ErrMissingSeries, pair)
	}
	return &chart, nil
}

// FetchDailySeries returns daily bars. Bars with a null field are skipped and
// bars falling on the same UTC day keep the latest one.
func (f *YahooFetcher) FetchDailySeries(ctx context.Context, pair model.Pair) (*model.PriceSeries, error) {
	chart, err := f.fetchChart(ctx, pair, "1d", f.Range)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no bars for %s", model.ErrMissingSeries, pair)
	}
	q := result.Indicators.Quote[0]

	byDay := make(map[time.Time]model.Bar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		byDay[day] = model.Bar{
			Time:  day,
			Open:  *q.Open[i],
			High:  *q.High[i],
			Low:   *q.Low[i],
			Close: *q.Close[i],
		}
	}
	if len(byDay) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned only empty bars for %s", model.ErrMissingSeries, pair)
	}

	bars := make([]model.Bar, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return model.NewPriceSeries(pair, bars)
}

// FetchQuote returns the regular market price. Yahoo has no bid/ask for
// these tickers, so both are set to the rate.
func (f *YahooFetcher) FetchQuote(ctx context.Context, pair model.Pair) (model.Quote, error) {
	chart, err := f.fetchChart(ctx, pair, "1d", "1d")
	if err != nil {
		return model.Quote{}, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return model.Quote{}, fmt.Errorf("%w: yahoo has no market price for %s", model.ErrMissingSeries, pair)
	}
	at := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		at = time.Unix(meta.RegularMarketTime, 0).UTC()
	}
	return model.Quote{
		Pair: pair,
		Rate: meta.RegularMarketPrice,
		Bid:  meta.RegularMarketPrice,
		Ask:  meta.RegularMarketPrice,
		Time: at,
	}, nil
}
