package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ForexLens/internal/model"
	"ForexLens/internal/snapshot"
)

var at = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func populatedStore() *snapshot.Store {
	eurusd := model.NewPair("EUR", "USD")
	store := snapshot.NewStore()
	store.SetReport(snapshot.Report{
		RunID:       "run-1",
		GeneratedAt: at,
		Analyses: []model.Analysis{{
			Pair:    eurusd,
			Trends:  model.Trends{SMA200: model.None(), Direction: model.TrendModerateUp},
			Metrics: model.Metrics{CurrentPrice: 1.0858},
		}},
		Correlations: []model.CorrelationResult{{Left: eurusd, Right: model.NewPair("BTC", "USD"), Trend: model.CorrelationDecreasing}},
		Summary:      model.MarketSummary{Pairs: 1, Bullish: 1, Sentiment: model.SentimentBullish},
		Arbitrage:    []model.ArbitrageOpportunity{{Type: "triangular", DivergencePct: 1.85, Source: model.SourceBatch}},
	})
	return store
}

func do(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

func TestServer_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("forexlens_runs_total 1"))
	})
	h := New(populatedStore(), metrics).Handler()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", "/health", http.StatusOK, `"status":"ok"`},
		{"metrics", "/metrics", http.StatusOK, "forexlens_runs_total"},
		{"summary", "/api/v1/summary", http.StatusOK, `"sentiment":"bullish"`},
		{"analyses", "/api/v1/analyses", http.StatusOK, `"trend_direction":"moderate_uptrend"`},
		{"analysis by pair", "/api/v1/analyses/EUR_USD", http.StatusOK, `"sma_200":null`},
		{"analysis compact pair", "/api/v1/analyses/eurusd", http.StatusOK, `"current_price":1.0858`},
		{"unknown pair", "/api/v1/analyses/GBP_USD", http.StatusNotFound, "no analysis for GBP/USD"},
		{"bad pair", "/api/v1/analyses/EURO", http.StatusBadRequest, "invalid pair"},
		{"correlations", "/api/v1/correlations", http.StatusOK, `"correlation_trend":"decreasing"`},
		{"arbitrage", "/api/v1/arbitrage", http.StatusOK, `"realtime":[]`},
		{"monitor empty", "/api/v1/monitor", http.StatusServiceUnavailable, "no monitor tick yet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, h, tt.path)
			assert.Equal(t, tt.wantStatus, code)
			assert.Contains(t, body, tt.wantBody)
		})
	}
}

func TestServer_NoReportYet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(snapshot.NewStore(), nil).Handler()

	for _, path := range []string{"/api/v1/summary", "/api/v1/analyses", "/api/v1/analyses/EUR_USD", "/api/v1/correlations"} {
		code, body := do(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Contains(t, body, "no report yet")
	}

	code, _ := do(t, h, "/metrics")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, h, "/api/v1/arbitrage")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"batch":[],"realtime":[]}`, body)
}

func TestServer_Monitor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := snapshot.NewStore()
	store.SetMonitor(snapshot.Monitor{
		TickID:  "tick-1",
		At:      at,
		Rollups: []model.Rollup{{Pair: model.NewPair("EUR", "USD"), Points: 24, ChangePct: 0.2}},
	})
	h := New(store, nil).Handler()

	code, body := do(t, h, "/api/v1/monitor")
	require.Equal(t, http.StatusOK, code)

	var got snapshot.Monitor
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&got))
	assert.Equal(t, "tick-1", got.TickID)
	require.Len(t, got.Rollups, 1)
	assert.Equal(t, 24, got.Rollups[0].Points)

	code, body = do(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "last_monitor")
	assert.NotContains(t, body, "last_report")
}
