package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job names used as label values.
const (
	JobReport  = "report"
	JobMonitor = "monitor"
)

// Metrics instruments the report and monitor pipelines. A nil *Metrics
// records nothing.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	pairsAnalyzed prometheus.Gauge
	pairsMissing  prometheus.Gauge
	arbitrage     *prometheus.CounterVec
	historyPoints prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexlens_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"job", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forexlens_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"job"},
		),
		lastSuccess: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forexlens_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
			[]string{"job"},
		),
		pairsAnalyzed: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "forexlens_pairs_analyzed",
				Help: "Pairs analyzed in the last report run",
			},
		),
		pairsMissing: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "forexlens_pairs_missing",
				Help: "Pairs without usable data in the last report run",
			},
		),
		arbitrage: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forexlens_arbitrage_opportunities_total",
				Help: "Triangular arbitrage opportunities above threshold",
			},
			[]string{"source"},
		),
		historyPoints: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "forexlens_history_points",
				Help: "Points held in the monitor history window",
			},
		),
	}
}

// ObserveRun records the outcome and duration of one job run.
func (m *Metrics) ObserveRun(job string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
	m.runsTotal.WithLabelValues(job, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// SetPairs records how many pairs were analyzed and how many were missing.
func (m *Metrics) SetPairs(analyzed, missing int) {
	if m == nil {
		return
	}
	m.pairsAnalyzed.Set(float64(analyzed))
	m.pairsMissing.Set(float64(missing))
}

// AddArbitrage counts opportunities found by one call site.
func (m *Metrics) AddArbitrage(source string, n int) {
	if m == nil {
		return
	}
	m.arbitrage.WithLabelValues(source).Add(float64(n))
}

// SetHistoryPoints records the size of the monitor window.
func (m *Metrics) SetHistoryPoints(n int) {
	if m == nil {
		return
	}
	m.historyPoints.Set(float64(n))
}
