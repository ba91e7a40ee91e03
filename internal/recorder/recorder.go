package recorder

import (
	"time"

	"github.com/google/uuid"

	"ForexLens/internal/model"
)

// BatchRun holds everything produced by one batch report run.
type BatchRun struct {
	ID           string
	StartedAt    time.Time
	Analyses     []model.Analysis
	Correlations []model.CorrelationResult
	Arbitrage    []model.ArbitrageOpportunity
	Summary      *model.MarketSummary
}

// MonitorTick holds one realtime monitor pass.
type MonitorTick struct {
	ID        string
	At        time.Time
	Quotes    []model.Quote
	Rollups   []model.Rollup
	Arbitrage []model.ArbitrageOpportunity
}

// NewRunID returns a unique identifier for a run or tick.
func NewRunID() string { return uuid.NewString() }

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordBatch(run *BatchRun) error
	RecordMonitor(tick *MonitorTick) error
	Close() error
}
