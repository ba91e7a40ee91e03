package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"ForexLens/internal/correlation"
	"ForexLens/internal/model"
	"ForexLens/internal/summary"
)

const (
	rule    = "=================================================="
	subRule = "------------------------------"
)

// FormatPairReport renders one Analysis as a multi-section text report.
func FormatPairReport(a model.Analysis) string {
	var b strings.Builder
	m, t, r := a.Metrics, a.Trends, a.Risk

	b.WriteString("<b>Forex Market Analysis Report</b>\n")
	b.WriteString(rule + "\n")
	b.WriteString(fmt.Sprintf("Generated at: %s\n", a.GeneratedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Currency Pair: %s (%d bars)\n\n", a.Pair, a.Bars))

	section(&b, "Market Overview")
	b.WriteString(fmt.Sprintf("Current Price: %.4f\n", m.CurrentPrice))
	b.WriteString(fmt.Sprintf("Daily Change: %s\n", pct(m.DailyReturn)))
	b.WriteString(fmt.Sprintf("Weekly Change: %s\n", pct(m.WeeklyReturn)))
	b.WriteString(fmt.Sprintf("Monthly Change: %s\n", pct(m.MonthlyReturn)))
	b.WriteString(fmt.Sprintf("Average Daily Trading Range: %.4f\n", m.AvgDailyRange))
	b.WriteString(fmt.Sprintf("Range: %.4f - %.4f\n\n", m.MinPrice, m.MaxPrice))

	section(&b, "Technical Analysis")
	b.WriteString(fmt.Sprintf("Trend Direction: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf("Trend Strength: %s\n", t.Strength.Format("%.4f")))
	b.WriteString(fmt.Sprintf("20-day SMA: %s\n", t.SMA20.Format("%.4f")))
	b.WriteString(fmt.Sprintf("50-day SMA: %s\n", t.SMA50.Format("%.4f")))
	b.WriteString(fmt.Sprintf("200-day SMA: %s\n", t.SMA200.Format("%.4f")))
	b.WriteString(fmt.Sprintf("Support Level: %s\n", t.Support.Format("%.4f")))
	b.WriteString(fmt.Sprintf("Resistance Level: %s\n\n", t.Resistance.Format("%.4f")))

	section(&b, "Price Patterns")
	for _, p := range []struct {
		name string
		flag model.PatternFlag
	}{
		{"Double Top", a.Patterns.DoubleTop},
		{"Double Bottom", a.Patterns.DoubleBottom},
		{"Head And Shoulders", a.Patterns.HeadAndShoulders},
		{"Breakout Potential", a.Patterns.BreakoutPotential},
	} {
		b.WriteString(fmt.Sprintf("%s: %s\n", p.name, flagLabel(p.flag)))
	}
	b.WriteString("\n")

	section(&b, "Risk Metrics")
	b.WriteString(fmt.Sprintf("Daily Volatility: %s\n", pct(m.Volatility)))
	b.WriteString(fmt.Sprintf("Value at Risk (95%%): %s\n", pct(r.VaR95)))
	b.WriteString(fmt.Sprintf("Maximum Drawdown: %s\n", pct(r.MaxDrawdown)))
	b.WriteString(fmt.Sprintf("Sharpe Ratio: %s\n", r.SharpeRatio.Format("%.2f")))
	b.WriteString(fmt.Sprintf("Beta: %s (%s)\n\n", r.Beta.Format("%.4f"), r.BetaMode))

	section(&b, "Market Commentary")
	b.WriteString(MarketCommentary(a) + "\n\n")

	section(&b, "Trading Implications")
	b.WriteString(TradingImplications(a) + "\n")

	if len(a.Undefined) > 0 {
		b.WriteString("\n")
		section(&b, "Unavailable")
		for _, is := range a.Undefined {
			b.WriteString(fmt.Sprintf("%s: %s\n", html.EscapeString(is.Field), html.EscapeString(is.Reason)))
		}
	}
	return b.String()
}

// MarketCommentary describes trend, volatility and breakout state in prose.
func MarketCommentary(a model.Analysis) string {
	var parts []string
	switch a.Trends.Direction {
	case model.TrendStrongUp:
		parts = append(parts, "The pair is showing strong bullish momentum with prices above all major moving averages.")
	case model.TrendStrongDown:
		parts = append(parts, "The pair is in a significant downtrend, trading below key moving averages.")
	}

	if vol, ok := a.Metrics.Volatility.Get(); ok {
		if vol*100 > 1 {
			parts = append(parts, fmt.Sprintf("Market volatility is elevated at %.2f%%.", vol*100))
		} else {
			parts = append(parts, fmt.Sprintf("Market volatility remains contained at %.2f%%.", vol*100))
		}
	}

	if a.Patterns.BreakoutPotential == model.PatternDetected {
		parts = append(parts, "Technical indicators suggest a potential breakout scenario developing.")
	}
	if len(parts) == 0 {
		return "Not enough history for commentary."
	}
	return strings.Join(parts, " ")
}

// RiskLevel grades daily volatility as high (>1%), moderate (>0.5%) or low.
func RiskLevel(vol model.Value) string {
	v, ok := vol.Get()
	switch {
	case !ok:
		return "Unknown"
	case v > 0.01:
		return "High"
	case v > 0.005:
		return "Moderate"
	default:
		return "Low"
	}
}

// TradingImplications suggests positioning from the trend and VaR.
func TradingImplications(a model.Analysis) string {
	lines := []string{"Risk Level: " + RiskLevel(a.Metrics.Volatility)}
	switch {
	case a.Trends.Direction.Bullish():
		lines = append(lines, "Consider long positions with stops below the identified support level.")
	case a.Trends.Direction.Bearish():
		lines = append(lines, "Short positions might be favorable with stops above the resistance level.")
	default:
		lines = append(lines, "Range-trading strategies may be more appropriate in current conditions.")
	}
	if v, ok := a.Risk.VaR95.Get(); ok {
		lines = append(lines, fmt.Sprintf("Suggested Stop Loss: %.2f%% below entry for long positions.", v*100))
	}
	return strings.Join(lines, "\n")
}

// BatchReport is everything a market summary report renders.
type BatchReport struct {
	Summary      model.MarketSummary
	Correlations []model.CorrelationResult
	Matrix       model.CorrelationMatrix
	Recent       []model.PeriodStats
	Missing      map[model.Pair]error
	// Reference is nil when the monitor window holds too few reference quotes.
	Reference *model.ReferenceOutlook
}

// FormatSummaryReport renders the cross-pair market summary.
func FormatSummaryReport(r BatchReport) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("<b>Forex Market Summary Report</b>\n")
	b.WriteString(rule + "\n")
	b.WriteString(fmt.Sprintf("Generated at: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05")))

	section(&b, "Market Sentiment")
	b.WriteString(fmt.Sprintf("Overall: %s (%d bullish, %d bearish, %d sideways of %d)\n",
		strings.ToUpper(string(s.Sentiment)), s.Bullish, s.Bearish, s.Sideways, s.Pairs))
	b.WriteString(fmt.Sprintf("Average Volatility: %s\n", pct(s.AvgVolatility)))
	if s.MostVolatile != nil {
		b.WriteString(fmt.Sprintf("Most Volatile: %s (%s)\n", s.MostVolatile, pct(s.MaxVolatility)))
	}
	if s.Strongest != nil {
		b.WriteString(fmt.Sprintf("Strongest Performer: %s %+.2f%%\n", s.Strongest.Pair, s.Strongest.ChangePct))
	}
	if s.Weakest != nil {
		b.WriteString(fmt.Sprintf("Weakest Performer: %s %+.2f%%\n", s.Weakest.Pair, s.Weakest.ChangePct))
	}
	b.WriteString("\n")

	if len(r.Recent) > 0 {
		section(&b, "Recent Statistics")
		for _, st := range r.Recent {
			b.WriteString(fmt.Sprintf("%s (%dd): mean %.4f, high %.4f, low %.4f, vol %s, avg daily %s%%\n",
				st.Pair, st.Days, st.MeanPrice, st.High, st.Low,
				st.AnnualizedVol.Format("%.4f"), st.MeanDailyReturnPct.Format("%.3f")))
		}
		b.WriteString("\n")
	}

	if r.Reference != nil {
		section(&b, r.Reference.Pair.String()+" Outlook")
		for _, line := range referenceLines(*r.Reference) {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.Correlations) > 0 {
		section(&b, "Correlations")
		for _, c := range r.Correlations {
			b.WriteString(fmt.Sprintf("%s vs %s: current %s, average %s, %s\n",
				c.Left, c.Right, c.Current.Format("%.3f"), c.Average.Format("%.3f"), c.Trend))
		}
		b.WriteString("\n")
	}

	if pos, neg := correlation.Strongest(r.Matrix); pos != nil {
		section(&b, "Correlation Extremes")
		b.WriteString(fmt.Sprintf("Highest: %s / %s %.3f\n", pos.A, pos.B, pos.Value))
		b.WriteString(fmt.Sprintf("Lowest: %s / %s %.3f\n\n", neg.A, neg.B, neg.Value))
	}

	if len(s.Patterns) > 0 {
		section(&b, "Pattern Alerts")
		for _, p := range s.Patterns {
			b.WriteString(fmt.Sprintf("%s: %s\n", p.Pair, strings.ReplaceAll(p.Pattern, "_", " ")))
		}
		b.WriteString("\n")
	}

	section(&b, "Arbitrage")
	if len(s.Arbitrage) == 0 {
		b.WriteString("No opportunities above threshold.\n")
	}
	for _, o := range s.Arbitrage {
		b.WriteString(FormatOpportunity(o) + "\n")
	}

	if len(r.Missing) > 0 {
		b.WriteString("\n")
		section(&b, "Unavailable Pairs")
		pairs := make([]model.Pair, 0, len(r.Missing))
		for p := range r.Missing {
			pairs = append(pairs, p)
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
		for _, p := range pairs {
			reason := "no data"
			if err := r.Missing[p]; err != nil {
				reason = err.Error()
			}
			b.WriteString(fmt.Sprintf("%s: %s\n", p, html.EscapeString(reason)))
		}
	}
	return b.String()
}

// FormatOpportunity renders one arbitrage opportunity on a single line.
func FormatOpportunity(o model.ArbitrageOpportunity) string {
	return fmt.Sprintf("%s %s via %s x %s: direct %.5f, indirect %.5f, divergence %+.3f%% (threshold %.2f%%)",
		o.Source, o.Pairs[0], o.Pairs[1], o.Pairs[2], o.DirectRate, o.IndirectRate, o.DivergencePct, o.ThresholdPct)
}

// FormatMonitorAlert renders a realtime monitor tick that found opportunities.
func FormatMonitorAlert(at time.Time, opps []model.ArbitrageOpportunity, rollups []model.Rollup) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Arbitrage Alert</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	for _, o := range opps {
		b.WriteString(FormatOpportunity(o) + "\n")
	}
	if len(rollups) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatRollups(rollups))
	}
	return b.String()
}

// FormatRollups renders the history window summary for each pair.
func FormatRollups(rollups []model.Rollup) string {
	var b strings.Builder
	b.WriteString("<b>Rolling Window</b>\n")
	for _, r := range rollups {
		b.WriteString(fmt.Sprintf("%s: %.5f (%+.3f%%) low %.5f high %.5f, %d points\n",
			r.Pair, r.Last, r.ChangePct, r.Min, r.Max, r.Points))
	}
	return b.String()
}

// FormatReferenceOutlook describes the reference asset's trend, volatility
// and spread against the other monitored pairs.
func FormatReferenceOutlook(o model.ReferenceOutlook) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s Outlook</b>\n", o.Pair))
	for _, line := range referenceLines(o) {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func referenceLines(o model.ReferenceOutlook) []string {
	name := o.Pair.Base
	lines := []string{fmt.Sprintf("%s has shown a %s trend over the monitored period with a %.2f%% %s movement.",
		name, o.Direction, math.Abs(o.ChangePct), o.Direction)}
	if v, ok := o.Volatility.Get(); ok {
		lines = append(lines, fmt.Sprintf("Price volatility is %.2f%% based on rate changes.", v))
	}
	if v, ok := o.RecentChangePct.Get(); ok {
		mood := "relatively stable"
		if math.Abs(v) > math.Abs(o.ChangePct) {
			mood = "more volatile"
		}
		lines = append(lines, fmt.Sprintf("Recent movement is %s with a %.2f%% change over the last %d observations.",
			mood, v, summary.RecentPoints))
	}
	lines = append(lines, fmt.Sprintf("Current %s rate is %.2f", o.Pair, o.Rate))
	spread, ok := o.SpreadPct.Get()
	if !ok {
		return lines
	}
	lines = append(lines, fmt.Sprintf("The current bid-ask spread is %.2f%% (Bid: %.2f, Ask: %.2f)", spread, o.Bid, o.Ask))
	if avg, ok := o.ForexAvgSpreadPct.Get(); ok {
		cmp := "tighter"
		if spread > avg {
			cmp = "higher"
		}
		lines = append(lines, fmt.Sprintf("%s is showing %s liquidity spread than the forex market average of %.2f%%", name, cmp, avg))
	}
	return lines
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(subRule + "\n")
}

func pct(v model.Value) string {
	x, ok := v.Get()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

func flagLabel(f model.PatternFlag) string {
	switch f {
	case model.PatternDetected:
		return "Yes"
	case model.PatternNotDetected:
		return "No"
	case model.PatternNotImplemented:
		return "Not implemented"
	default:
		return "N/A"
	}
}
