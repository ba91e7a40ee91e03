package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRun(JobReport, time.Now(), nil)
	m.ObserveRun(JobReport, time.Now(), errors.New("boom"))
	m.ObserveRun(JobMonitor, time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(JobReport, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(JobReport, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(JobMonitor, "ok")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(JobReport)), 0.0)
}

func TestGaugesAndCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPairs(4, 1)
	m.AddArbitrage("BATCH", 2)
	m.AddArbitrage("BATCH", 1)
	m.SetHistoryPoints(120)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.pairsAnalyzed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pairsMissing))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.arbitrage.WithLabelValues("BATCH")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.historyPoints))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun(JobReport, time.Now(), nil)
		m.SetPairs(1, 0)
		m.AddArbitrage("REALTIME", 1)
		m.SetHistoryPoints(3)
	})
}
