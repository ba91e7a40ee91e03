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
)

// Mar 1, Mar 2, Mar 2 +1h (intraday duplicate), Mar 3 (null close).
const yahooChartBody = `{
  "chart": {
    "result": [{
      "meta": {"regularMarketPrice": 1.0861, "regularMarketTime": 1709649001},
      "timestamp": [1709251200, 1709337600, 1709341200, 1709424000],
      "indicators": {"quote": [{
        "open":  [1.0800, 1.0840, 1.0841, 1.0850],
        "high":  [1.0845, 1.0866, 1.0870, 1.0860],
        "low":   [1.0795, 1.0830, 1.0831, 1.0840],
        "close": [1.0838, 1.0855, 1.0858, null]
      }]}
    }],
    "error": null
  }
}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooFetcher(srv.URL, "")
}

func TestYahoo_Symbol(t *testing.T) {
	f := NewYahooFetcher("", "")
	assert.Equal(t, "EURUSD=X", f.Symbol(model.NewPair("EUR", "USD")))
	assert.Equal(t, "BTC-USD", f.Symbol(model.NewPair("BTC", "USD")))
}

func TestYahoo_FetchDailySeries(t *testing.T) {
	var path, interval string
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		interval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(yahooChartBody))
	})

	s, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "/EURUSD=X", path)
	assert.Equal(t, "1d", interval)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.Bar(0).Time)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), s.Last().Time)
	assert.InDelta(t, 1.0858, s.Last().Close, 1e-9)
}

func TestYahoo_FetchQuote(t *testing.T) {
	f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yahooChartBody))
	})

	q, err := f.FetchQuote(context.Background(), model.NewPair("EUR", "USD"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0861, q.Rate, 1e-9)
	assert.Equal(t, time.Unix(1709649001, 0).UTC(), q.Time)
	assert.Zero(t, q.SpreadPct())
}

func TestYahoo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
	}{
		{"http error", http.StatusTooManyRequests, `rate limited`, nil},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, nil},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, model.ErrMissingSeries},
		{"no bars", http.StatusOK, `{"chart":{"result":[{"meta":{},"timestamp":[],"indicators":{"quote":[]}}],"error":null}}`, model.ErrMissingSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := f.FetchDailySeries(context.Background(), model.NewPair("EUR", "USD"))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
