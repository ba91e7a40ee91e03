package snapshot

import (
	"slices"
	"sync"
	"time"

	"ForexLens/internal/model"
)

// Report is the published result of the latest batch report run.
type Report struct {
	RunID        string                       `json:"run_id"`
	GeneratedAt  time.Time                    `json:"generated_at"`
	Analyses     []model.Analysis             `json:"analyses"`
	Correlations []model.CorrelationResult    `json:"correlations"`
	Matrix       model.CorrelationMatrix      `json:"matrix"`
	Arbitrage    []model.ArbitrageOpportunity `json:"arbitrage"`
	Summary      model.MarketSummary          `json:"summary"`
	Recent       []model.PeriodStats          `json:"recent"`
	// Missing maps a pair label to the reason it has no analysis.
	Missing map[string]string `json:"missing,omitempty"`
	// Reference is the reference asset's outlook over the monitor window.
	Reference *model.ReferenceOutlook `json:"reference,omitempty"`
}

// Monitor is the published result of the latest realtime monitor tick.
type Monitor struct {
	TickID    string                       `json:"tick_id"`
	At        time.Time                    `json:"at"`
	Quotes    []model.Quote                `json:"quotes"`
	Rollups   []model.Rollup               `json:"rollups"`
	Arbitrage []model.ArbitrageOpportunity `json:"arbitrage"`
}

// Store holds the latest report and monitor results for concurrent readers.
// Values are copied on write and on read, so callers never share slices.
type Store struct {
	mu      sync.RWMutex
	report  *Report
	monitor *Monitor
}

func NewStore() *Store { return &Store{} }

func (s *Store) SetReport(r Report) {
	c := r.clone()
	s.mu.Lock()
	s.report = &c
	s.mu.Unlock()
}

// Report returns a copy of the latest report, or false before the first run.
func (s *Store) Report() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return Report{}, false
	}
	return s.report.clone(), true
}

// Analysis returns the latest analysis for one pair.
func (s *Store) Analysis(pair model.Pair) (model.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return model.Analysis{}, false
	}
	for _, a := range s.report.Analyses {
		if a.Pair == pair {
			return cloneAnalysis(a), true
		}
	}
	return model.Analysis{}, false
}

func (s *Store) SetMonitor(m Monitor) {
	c := m.clone()
	s.mu.Lock()
	s.monitor = &c
	s.mu.Unlock()
}

// Monitor returns a copy of the latest monitor tick, or false before the first tick.
func (s *Store) Monitor() (Monitor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.monitor == nil {
		return Monitor{}, false
	}
	return s.monitor.clone(), true
}

func (r Report) clone() Report {
	c := r
	c.Analyses = make([]model.Analysis, len(r.Analyses))
	for i, a := range r.Analyses {
		c.Analyses[i] = cloneAnalysis(a)
	}
	c.Correlations = make([]model.CorrelationResult, len(r.Correlations))
	for i, cr := range r.Correlations {
		cr.Rolling = slices.Clone(cr.Rolling)
		c.Correlations[i] = cr
	}
	c.Matrix.Labels = slices.Clone(r.Matrix.Labels)
	c.Matrix.Cells = make([][]model.Value, len(r.Matrix.Cells))
	for i, row := range r.Matrix.Cells {
		c.Matrix.Cells[i] = slices.Clone(row)
	}
	c.Arbitrage = slices.Clone(r.Arbitrage)
	c.Recent = slices.Clone(r.Recent)
	c.Summary = cloneSummary(r.Summary)
	if r.Missing != nil {
		c.Missing = make(map[string]string, len(r.Missing))
		for k, v := range r.Missing {
			c.Missing[k] = v
		}
	}
	if r.Reference != nil {
		ref := *r.Reference
		c.Reference = &ref
	}
	return c
}

func (m Monitor) clone() Monitor {
	c := m
	c.Quotes = slices.Clone(m.Quotes)
	c.Rollups = slices.Clone(m.Rollups)
	c.Arbitrage = slices.Clone(m.Arbitrage)
	return c
}

func cloneAnalysis(a model.Analysis) model.Analysis {
	a.Undefined = slices.Clone(a.Undefined)
	return a
}

func cloneSummary(s model.MarketSummary) model.MarketSummary {
	s.Patterns = slices.Clone(s.Patterns)
	s.Arbitrage = slices.Clone(s.Arbitrage)
	if s.MostVolatile != nil {
		p := *s.MostVolatile
		s.MostVolatile = &p
	}
	if s.Strongest != nil {
		p := *s.Strongest
		s.Strongest = &p
	}
	if s.Weakest != nil {
		p := *s.Weakest
		s.Weakest = &p
	}
	return s
}
