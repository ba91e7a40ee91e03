package model

import "time"

// TrendDirection classifies the SMA-20 position against SMA-50 and SMA-200.
type TrendDirection string

const (
	TrendStrongUp     TrendDirection = "strong_uptrend"
	TrendModerateUp   TrendDirection = "moderate_uptrend"
	TrendStrongDown   TrendDirection = "strong_downtrend"
	TrendModerateDown TrendDirection = "moderate_downtrend"
	TrendSideways     TrendDirection = "sideways"
	TrendUndefined    TrendDirection = "undefined"
)

// Bullish reports whether the direction is one of the uptrends.
func (d TrendDirection) Bullish() bool { return d == TrendStrongUp || d == TrendModerateUp }

// Bearish reports whether the direction is one of the downtrends.
func (d TrendDirection) Bearish() bool { return d == TrendStrongDown || d == TrendModerateDown }

// PatternFlag is the outcome of a pattern check. NotImplemented is distinct
// from NotDetected: the detector does not exist, so absence is unknown.
type PatternFlag string

const (
	PatternDetected       PatternFlag = "detected"
	PatternNotDetected    PatternFlag = "not_detected"
	PatternNotImplemented PatternFlag = "not_implemented"
	PatternUndefined      PatternFlag = "undefined"
)

// FlagOf converts a boolean detection into a PatternFlag.
func FlagOf(detected bool) PatternFlag {
	if detected {
		return PatternDetected
	}
	return PatternNotDetected
}

// BetaMode tells how RiskMetrics.Beta was produced.
type BetaMode string

const (
	// BetaSelfVolatility is the single-series placeholder: beta is the
	// standard deviation of the pair's own daily returns, not a market beta.
	BetaSelfVolatility BetaMode = "self_volatility_proxy"
	// BetaBenchmark is cov(r, m) / var(m) against an aligned benchmark series.
	BetaBenchmark BetaMode = "benchmark"
)

// Metrics holds basic return, volatility and range statistics.
type Metrics struct {
	CurrentPrice  float64 `json:"current_price"`
	DailyReturn   Value   `json:"daily_return"`
	WeeklyReturn  Value   `json:"weekly_return"`
	MonthlyReturn Value   `json:"monthly_return"`
	Volatility    Value   `json:"volatility"`
	AvgDailyRange float64 `json:"avg_daily_range"`
	MaxPrice      float64 `json:"max_price"`
	MinPrice      float64 `json:"min_price"`
}

// Trends holds moving averages and the derived trend classification.
type Trends struct {
	SMA20      Value          `json:"sma_20"`
	SMA50      Value          `json:"sma_50"`
	SMA200     Value          `json:"sma_200"`
	Direction  TrendDirection `json:"trend_direction"`
	Strength   Value          `json:"trend_strength"`
	Support    Value          `json:"support_level"`
	Resistance Value          `json:"resistance_level"`
}

// Patterns holds heuristic pattern flags.
type Patterns struct {
	DoubleTop         PatternFlag `json:"double_top"`
	DoubleBottom      PatternFlag `json:"double_bottom"`
	HeadAndShoulders  PatternFlag `json:"head_and_shoulders"`
	BreakoutPotential PatternFlag `json:"breakout_potential"`
}

// Detected lists the names of detected patterns.
func (p Patterns) Detected() []string {
	var out []string
	for _, f := range []struct {
		name string
		flag PatternFlag
	}{
		{"double_top", p.DoubleTop},
		{"double_bottom", p.DoubleBottom},
		{"head_and_shoulders", p.HeadAndShoulders},
		{"breakout_potential", p.BreakoutPotential},
	} {
		if f.flag == PatternDetected {
			out = append(out, f.name)
		}
	}
	return out
}

// RiskMetrics holds historical risk measures.
type RiskMetrics struct {
	VaR95       Value    `json:"var_95"`
	MaxDrawdown Value    `json:"max_drawdown"`
	SharpeRatio Value    `json:"sharpe_ratio"`
	Beta        Value    `json:"beta"`
	BetaMode    BetaMode `json:"beta_mode"`
}

// FieldIssue names a sub-computation that could not be produced.
type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Analysis is the per-pair snapshot produced from one PriceSeries.
type Analysis struct {
	Pair        Pair         `json:"pair"`
	GeneratedAt time.Time    `json:"generated_at"`
	Bars        int          `json:"bars"`
	Metrics     Metrics      `json:"metrics"`
	Trends      Trends       `json:"trends"`
	Patterns    Patterns     `json:"patterns"`
	Risk        RiskMetrics  `json:"risk_metrics"`
	Undefined   []FieldIssue `json:"undefined,omitempty"`
}

// PeriodStats summarises the most recent N calendar days of a series.
type PeriodStats struct {
	Pair               Pair    `json:"pair"`
	Days               int     `json:"days"`
	MeanPrice          float64 `json:"mean_price"`
	StdDev             Value   `json:"std_dev"`
	High               float64 `json:"high"`
	Low                float64 `json:"low"`
	AnnualizedVol      Value   `json:"volatility"`
	MeanDailyReturnPct Value   `json:"daily_returns"`
}
