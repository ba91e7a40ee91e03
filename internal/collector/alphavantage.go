package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"ForexLens/internal/model"
)

// DefaultAlphaVantageURL is the public query endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

const (
	fxSeriesKey     = "Time Series FX (Daily)"
	cryptoSeriesKey = "Time Series (Digital Currency Daily)"
	quoteKey        = "Realtime Currency Exchange Rate"
)

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage query API.
// Pairs whose base is in CryptoSymbols use DIGITAL_CURRENCY_DAILY, all
// others FX_DAILY.
type AlphaVantageFetcher struct {
	BaseURL       string
	APIKey        string
	OutputSize    string
	CryptoSymbols map[string]bool
	Client        *http.Client
	Limiter       *rate.Limiter
	logger        zerolog.Logger
}

// NewAlphaVantageFetcher creates a fetcher with optional proxy support.
// requestsPerMinute <= 0 disables client-side throttling.
func NewAlphaVantageFetcher(baseURL, apiKey, proxyURL string, requestsPerMinute int) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &AlphaVantageFetcher{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		OutputSize: "full",
		CryptoSymbols: map[string]bool{
			"BTC": true, "ETH": true, "LTC": true, "XRP": true, "SOL": true,
		},
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Limiter: limiter,
		logger:  log.With().Str("component", "alphavantage").Logger(),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

func (f *AlphaVantageFetcher) isCrypto(p model.Pair) bool { return f.CryptoSymbols[p.Base] }

// query performs one API call and returns the top-level JSON object.
func (f *AlphaVantageFetcher) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alphavantage rate limit: %w", err)
	}
	params.Set("apikey", f.APIKey)
	u := f.BaseURL + "?" + params.Encode()

	fn := params.Get("function")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage request %s: %w", fn, stripURL(err))
	}
	f.logger.Debug().Str("function", fn).Msg("Querying Alpha Vantage")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch %s: %w", fn, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode, string(body))
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	for _, k := range []string{"Error Message", "Note", "Information"} {
		if raw, ok := doc[k]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, fmt.Errorf("alphavantage api error: %s", msg)
		}
	}
	return doc, nil
}

// stripURL drops the request URL, which carries the API key, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func (f *AlphaVantageFetcher) FetchDailySeries(ctx context.Context, pair model.Pair) (*model.PriceSeries, error) {
	params := url.Values{}
	key := fxSeriesKey
	if f.isCrypto(pair) {
		key = cryptoSeriesKey
		params.Set("function", "DIGITAL_CURRENCY_DAILY")
		params.Set("symbol", pair.Base)
		params.Set("market", pair.Quote)
	} else {
		params.Set("function", "FX_DAILY")
		params.Set("from_symbol", pair.Base)
		params.Set("to_symbol", pair.Quote)
		params.Set("outputsize", f.OutputSize)
	}

	doc, err := f.query(ctx, params)
	if err != nil {
		return nil, err
	}
	raw, ok := doc[key]
	if !ok {
		return nil, fmt.Errorf("%w: alphavantage returned no %q for %s", model.ErrMissingSeries, key, pair)
	}
	var days map[string]map[string]string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("alphavantage decode %s: %w", pair, err)
	}

	bars := make([]model.Bar, 0, len(days))
	for date, fields := range days {
		bar, err := parseDailyBar(date, fields, pair.Quote)
		if err != nil {
			f.logger.Warn().Err(err).Str("pair", pair.String()).Str("date", date).Msg("Skipping malformed bar")
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: alphavantage returned no bars for %s", model.ErrMissingSeries, pair)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	f.logger.Debug().Str("pair", pair.String()).Int("bars", len(bars)).Msg("Fetched daily series")
	return model.NewPriceSeries(pair, bars)
}

// parseDailyBar reads FX fields ("1. open") and crypto fields ("1a. open (USD)").
func parseDailyBar(date string, fields map[string]string, market string) (model.Bar, error) {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return model.Bar{}, err
	}
	bar := model.Bar{Time: t}
	targets := []struct {
		dst  *float64
		keys []string
	}{
		{&bar.Open, []string{"1. open", "1a. open (" + market + ")"}},
		{&bar.High, []string{"2. high", "2a. high (" + market + ")"}},
		{&bar.Low, []string{"3. low", "3a. low (" + market + ")"}},
		{&bar.Close, []string{"4. close", "4a. close (" + market + ")"}},
	}
	for _, tg := range targets {
		v, err := lookupFloat(fields, tg.keys...)
		if err != nil {
			return model.Bar{}, err
		}
		*tg.dst = v
	}
	return bar, nil
}

func lookupFloat(fields map[string]string, keys ...string) (float64, error) {
	for _, k := range keys {
		if s, ok := fields[k]; ok {
			return strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
	}
	return 0, fmt.Errorf("missing field %q", keys[0])
}

// avQuote is the CURRENCY_EXCHANGE_RATE payload.
type avQuote struct {
	From          string `json:"1. From_Currency Code"`
	To            string `json:"3. To_Currency Code"`
	Rate          string `json:"5. Exchange Rate"`
	LastRefreshed string `json:"6. Last Refreshed"`
	TimeZone      string `json:"7. Time Zone"`
	Bid           string `json:"8. Bid Price"`
	Ask           string `json:"9. Ask Price"`
}

func (f *AlphaVantageFetcher) FetchQuote(ctx context.Context, pair model.Pair) (model.Quote, error) {
	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", pair.Base)
	params.Set("to_currency", pair.Quote)

	doc, err := f.query(ctx, params)
	if err != nil {
		return model.Quote{}, err
	}
	raw, ok := doc[quoteKey]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: alphavantage returned no quote for %s", model.ErrMissingSeries, pair)
	}
	var q avQuote
	if err := json.Unmarshal(raw, &q); err != nil {
		return model.Quote{}, fmt.Errorf("alphavantage decode quote %s: %w", pair, err)
	}
	rateVal, err := strconv.ParseFloat(q.Rate, 64)
	if err != nil {
		return model.Quote{}, fmt.Errorf("alphavantage quote %s: bad rate %q", pair, q.Rate)
	}

	out := model.Quote{Pair: pair, Rate: rateVal, Time: time.Now().UTC()}
	// Bid and ask are "-" outside market hours.
	if v, err := strconv.ParseFloat(q.Bid, 64); err == nil {
		out.Bid = v
	}
	if v, err := strconv.ParseFloat(q.Ask, 64); err == nil {
		out.Ask = v
	}
	if ts, err := parseRefreshed(q.LastRefreshed, q.TimeZone); err == nil {
		out.Time = ts
	}
	return out, nil
}

func parseRefreshed(value, zone string) (time.Time, error) {
	loc := time.UTC
	if zone != "" && zone != "UTC" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(time.DateTime, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
