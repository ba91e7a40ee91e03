package model

import "time"

// ArbitrageSource tells which call site produced an opportunity.
type ArbitrageSource string

const (
	SourceBatch    ArbitrageSource = "BATCH"
	SourceRealtime ArbitrageSource = "REALTIME"
)

// ArbitrageOpportunity is a triangular pricing inconsistency.
type ArbitrageOpportunity struct {
	Type          string          `json:"type"`
	Pairs         [3]Pair         `json:"pairs"`
	DirectRate    float64         `json:"direct_rate"`
	IndirectRate  float64         `json:"indirect_rate"`
	DivergencePct float64         `json:"difference_pct"`
	ThresholdPct  float64         `json:"threshold_pct"`
	Source        ArbitrageSource `json:"source"`
	DetectedAt    time.Time       `json:"detected_at"`
}

// Sentiment is the cross-pair market mood.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentMixed   Sentiment = "mixed"
)

// PatternAlert is a detected pattern on one pair.
type PatternAlert struct {
	Pair    Pair   `json:"pair"`
	Pattern string `json:"pattern"`
}

// Performer is a pair with its change over the monitor window.
type Performer struct {
	Pair      Pair    `json:"pair"`
	ChangePct float64 `json:"change_pct"`
}

// MarketSummary aggregates several analyses.
type MarketSummary struct {
	GeneratedAt   time.Time              `json:"generated_at"`
	Pairs         int                    `json:"pairs"`
	Bullish       int                    `json:"bullish"`
	Bearish       int                    `json:"bearish"`
	Sideways      int                    `json:"sideways"`
	Sentiment     Sentiment              `json:"sentiment"`
	AvgVolatility Value                  `json:"avg_volatility"`
	MostVolatile  *Pair                  `json:"most_volatile,omitempty"`
	MaxVolatility Value                  `json:"max_volatility"`
	Patterns      []PatternAlert         `json:"patterns,omitempty"`
	Arbitrage     []ArbitrageOpportunity `json:"arbitrage,omitempty"`
	Strongest     *Performer             `json:"strongest,omitempty"`
	Weakest       *Performer             `json:"weakest,omitempty"`
}

// HistoryPoint is one realtime observation kept in the sliding window.
type HistoryPoint struct {
	Time time.Time `json:"time"`
	Rate float64   `json:"rate"`
	Bid  float64   `json:"bid,omitempty"`
	Ask  float64   `json:"ask,omitempty"`
}

// Rollup summarises a pair's history window.
type Rollup struct {
	Pair      Pair      `json:"pair"`
	Points    int       `json:"points"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	ChangePct float64   `json:"change_pct"`
	SpreadPct float64   `json:"spread_pct"`
}

// ReferenceOutlook describes the reference asset's movement over the monitor
// window and compares its spread with the other pairs.
type ReferenceOutlook struct {
	Pair      Pair    `json:"pair"`
	Points    int     `json:"points"`
	Rate      float64 `json:"rate"`
	Bid       float64 `json:"bid,omitempty"`
	Ask       float64 `json:"ask,omitempty"`
	SpreadPct Value   `json:"spread_pct"`
	// Direction is upward, downward or neutral.
	Direction string  `json:"direction"`
	ChangePct float64 `json:"change_pct"`
	// Volatility is the sample deviation of point-to-point changes, in percent.
	Volatility      Value `json:"volatility"`
	RecentChangePct Value `json:"recent_change_pct"`
	// ForexAvgSpreadPct averages the latest spread of the other pairs that quote one.
	ForexAvgSpreadPct Value `json:"forex_avg_spread_pct"`
}
