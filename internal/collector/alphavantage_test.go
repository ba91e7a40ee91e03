package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForexLens/internal/model"
	"ForexLens/internal/notifier"
)

const fxDailyBody = `{
  "Meta Data": {"1. Information": "Forex Daily Prices (open, high, low, close)"},
  "Time Series FX (Daily)": {
    "2024-03-05": {"1. open": "1.0855", "2. high": "1.0870", "3. low": "1.0840", "4. close": "1.0858"},
    "2024-03-04": {"1. open": "1.0840", "2. high": "1.0866", "3. low": "1.0830", "4. close": "1.0855"},
    "2024-03-01": {"1. open": "1.0800", "2. high": "1.0845", "3. low": "1.0795", "4. close": "1.0838"}
  }
}`

const cryptoDailyBody = `{
  "Meta Data": {"1. Information": "Daily Prices and Volumes for Digital Currency"},
  "Time Series (Digital Currency Daily)": {
    "2024-03-02": {"1a. open (USD)": "62000.0", "2a. high (USD)": "62500.0", "3a. low (USD)": "61500.0", "4a. close (USD)": "62400.0"},
    "2024-03-01": {"1. open": "61000.0", "2. high": "62100.0", "3. low": "60800.0", "4. close": "62000.0"}
  }
}`

const quoteBody = `{
  "Realtime Currency Exchange Rate": {
    "1. From_Currency Code": "EUR",
    "3. To_Currency Code": "USD",
    "5. Exchange Rate": "1.08610000",
    "6. Last Refreshed": "2024-03-05 14:30:01",
    "7. Time Zone": "UTC",
    "8. Bid Price": "1.08605000",
    "9. Ask Price": "1.08615000"
  }
}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *AlphaVantageFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAlphaVantageFetcher(srv.URL, "demo", "", 0)
}

func TestAlphaVantage_FetchDailySeries_FX(t *testing.T) {
	var got map[string]string
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"function":    r.URL.Query().Get("function"),
			"from_symbol": r.URL.Query().Get("from_symbol"),
			"to_symbol":   r.URL.Query().Get("to_symbol"),
			"apikey":      r.URL.Query().Get("apikey"),
		}
		_, _ = w.Write([]byte(fxDailyBody))
	})

	s, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"function": "FX_DAILY", "from_symbol": "EUR", "to_symbol": "USD", "apikey": "demo",
	}, got)

	require.Equal(t, 3, s.Len())
	assert.True(t, s.Bar(0).Time.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1.0858, s.Last().Close)
	assert.Equal(t, 1.0870, s.Last().High)
}

func TestAlphaVantage_FetchDailySeries_Crypto(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DIGITAL_CURRENCY_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "USD", r.URL.Query().Get("market"))
		_, _ = w.Write([]byte(cryptoDailyBody))
	})

	s, err := f.FetchDailySeries(context.Background(), model.NewPair("BTC", "USD"))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 62000.0, s.Bar(0).Close)
	assert.Equal(t, 62400.0, s.Last().Close)
}

func TestAlphaVantage_APIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call."}`},
		{"rate limit note", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage!"}`},
		{"http status", http.StatusInternalServerError, `oops`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
			assert.Error(t, err)
		})
	}
}

func TestAlphaVantage_MissingSeriesKey(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Meta Data": {}}`))
	})
	_, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
	assert.ErrorIs(t, err, model.ErrMissingSeries)
}

func TestAlphaVantage_FetchQuote(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CURRENCY_EXCHANGE_RATE", r.URL.Query().Get("function"))
		_, _ = w.Write([]byte(quoteBody))
	})

	q, err := f.FetchQuote(context.Background(), model.NewPair("EUR", "USD"))
	require.NoError(t, err)
	assert.Equal(t, 1.0861, q.Rate)
	assert.Equal(t, 1.08605, q.Bid)
	assert.Equal(t, 1.08615, q.Ask)
	assert.True(t, q.Time.Equal(time.Date(2024, 3, 5, 14, 30, 1, 0, time.UTC)))
}

func TestAlphaVantage_ContextCancelled(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(quoteBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchQuote(ctx, model.NewPair("EUR", "USD"))
	assert.Error(t, err)
}

func TestAlphaVantage_TransportErrorHidesAPIKey(t *testing.T) {
	f := NewAlphaVantageFetcher("http://127.0.0.1:1/query", "SECRETKEY123", "", 0)

	_, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETKEY123")
	assert.Contains(t, err.Error(), "alphavantage fetch FX_DAILY")

	report := notifier.FormatSummaryReport(notifier.BatchReport{
		Missing: map[model.Pair]error{model.NewPair("EUR", "USD"): err},
	})
	assert.Contains(t, report, "Unavailable Pairs")
	assert.NotContains(t, report, "SECRETKEY123")
	assert.NotContains(t, report, "apikey")
}
