package summary

import (
	"fmt"

	"ForexLens/internal/calculator"
	"ForexLens/internal/model"
)

// RecentPoints is how many trailing observations the recent change spans.
const RecentPoints = 6

// Reference builds the outlook of the reference asset from its monitor
// history. Rollups of other pairs supply the average spread it is compared to.
func Reference(pair model.Pair, pts []model.HistoryPoint, rollups []model.Rollup) (model.ReferenceOutlook, error) {
	if len(pts) < 2 {
		return model.ReferenceOutlook{}, fmt.Errorf("%w: %s has %d monitor points, need 2", model.ErrInsufficientData, pair, len(pts))
	}
	rates := make([]float64, len(pts))
	for i, p := range pts {
		rates[i] = p.Rate
	}
	first, last := pts[0], pts[len(pts)-1]
	o := model.ReferenceOutlook{
		Pair:      pair,
		Points:    len(pts),
		Rate:      last.Rate,
		Bid:       last.Bid,
		Ask:       last.Ask,
		Direction: "neutral",
	}
	if first.Rate > 0 {
		o.ChangePct = (last.Rate/first.Rate - 1) * 100
	}
	switch {
	case o.ChangePct > 0:
		o.Direction = "upward"
	case o.ChangePct < 0:
		o.Direction = "downward"
	}

	if sd, err := calculator.SampleStdDev(calculator.Returns(rates, 1)); err == nil {
		o.Volatility = model.Some(sd * 100)
	}
	if len(pts) > RecentPoints {
		if base := rates[len(rates)-1-RecentPoints]; base > 0 {
			o.RecentChangePct = model.Some((last.Rate/base - 1) * 100)
		}
	}
	if q := (model.Quote{Bid: last.Bid, Ask: last.Ask}); q.Bid > 0 && q.Ask > 0 {
		o.SpreadPct = model.Some(q.SpreadPct())
	}

	var spreads []float64
	for _, r := range rollups {
		if r.Pair == pair || r.SpreadPct <= 0 {
			continue
		}
		spreads = append(spreads, r.SpreadPct)
	}
	if len(spreads) > 0 {
		o.ForexAvgSpreadPct = model.Some(calculator.Mean(spreads))
	}
	return o, nil
}
