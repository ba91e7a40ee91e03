package summary

import (
	"time"

	"ForexLens/internal/model"
)

// Input is everything a market summary is built from. Rollups are optional;
// without them performers are ranked by each analysis' daily return.
type Input struct {
	Analyses      []model.Analysis
	Opportunities []model.ArbitrageOpportunity
	Rollups       []model.Rollup
}

// Summarize aggregates analyses into a cross-pair summary. It does not touch
// the underlying series.
func Summarize(in Input, now time.Time) model.MarketSummary {
	s := model.MarketSummary{
		GeneratedAt: now,
		Pairs:       len(in.Analyses),
		Arbitrage:   in.Opportunities,
	}

	var volSum float64
	var volCount int
	for _, a := range in.Analyses {
		switch {
		case a.Trends.Direction.Bullish():
			s.Bullish++
		case a.Trends.Direction.Bearish():
			s.Bearish++
		case a.Trends.Direction == model.TrendSideways:
			s.Sideways++
		}

		if v, ok := a.Metrics.Volatility.Get(); ok {
			volSum += v
			volCount++
			if !s.MaxVolatility.Defined || v > s.MaxVolatility.V {
				pair := a.Pair
				s.MostVolatile = &pair
				s.MaxVolatility = model.Some(v)
			}
		}

		for _, name := range a.Patterns.Detected() {
			s.Patterns = append(s.Patterns, model.PatternAlert{Pair: a.Pair, Pattern: name})
		}
	}
	if volCount > 0 {
		s.AvgVolatility = model.Some(volSum / float64(volCount))
	}
	s.Sentiment = Sentiment(s.Bullish, s.Bearish)

	perf := performers(in)
	for i := range perf {
		p := perf[i]
		if s.Strongest == nil || p.ChangePct > s.Strongest.ChangePct {
			s.Strongest = &p
		}
		if s.Weakest == nil || p.ChangePct < s.Weakest.ChangePct {
			s.Weakest = &p
		}
	}
	return s
}

// Sentiment is bullish or bearish when one side strictly outnumbers the other.
func Sentiment(up, down int) model.Sentiment {
	switch {
	case up > down:
		return model.SentimentBullish
	case down > up:
		return model.SentimentBearish
	default:
		return model.SentimentMixed
	}
}

func performers(in Input) []model.Performer {
	var out []model.Performer
	if len(in.Rollups) > 0 {
		for _, r := range in.Rollups {
			if r.Points == 0 {
				continue
			}
			out = append(out, model.Performer{Pair: r.Pair, ChangePct: r.ChangePct})
		}
		return out
	}
	for _, a := range in.Analyses {
		if v, ok := a.Metrics.DailyReturn.Get(); ok {
			out = append(out, model.Performer{Pair: a.Pair, ChangePct: v * 100})
		}
	}
	return out
}
