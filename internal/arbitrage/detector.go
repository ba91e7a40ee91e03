package arbitrage

import (
	"fmt"
	"math"
	"time"

	"ForexLens/internal/model"
)

// DefaultThresholdPct is the divergence, in percent, above which a triangle is flagged.
const DefaultThresholdPct = 0.1

// TypeTriangular labels opportunities found by triangle checks.
const TypeTriangular = "triangular"

// Triangle is a direct rate X/Z and two legs X/Y and Y/Z whose product
// synthesizes the same rate.
type Triangle struct {
	Direct model.Pair `json:"direct"`
	LegA   model.Pair `json:"leg_a"`
	LegB   model.Pair `json:"leg_b"`
}

// DefaultTriangle is EUR/USD against EUR/GBP * GBP/USD.
var DefaultTriangle = Triangle{
	Direct: model.NewPair("EUR", "USD"),
	LegA:   model.NewPair("EUR", "GBP"),
	LegB:   model.NewPair("GBP", "USD"),
}

// Valid reports whether the legs chain from the direct base to the direct quote.
func (t Triangle) Valid() bool {
	return t.LegA.Base == t.Direct.Base &&
		t.LegA.Quote == t.LegB.Base &&
		t.LegB.Quote == t.Direct.Quote &&
		t.LegA.Quote != t.Direct.Quote
}

func (t Triangle) String() string {
	return fmt.Sprintf("%s vs %s*%s", t.Direct, t.LegA, t.LegB)
}

// Divergence returns (direct/indirect - 1) * 100.
func Divergence(direct, indirect float64) float64 {
	return (direct/indirect - 1) * 100
}

// Detector checks a fixed set of triangles against one threshold. The batch
// report and the realtime monitor share the same Detector configuration.
type Detector struct {
	thresholdPct float64
	triangles    []Triangle
}

// NewDetector returns a Detector. A non-positive threshold uses
// DefaultThresholdPct, and no triangles means DefaultTriangle only.
func NewDetector(thresholdPct float64, triangles ...Triangle) *Detector {
	if thresholdPct <= 0 {
		thresholdPct = DefaultThresholdPct
	}
	if len(triangles) == 0 {
		triangles = []Triangle{DefaultTriangle}
	}
	return &Detector{thresholdPct: thresholdPct, triangles: triangles}
}

// ThresholdPct returns the configured threshold in percent.
func (d *Detector) ThresholdPct() float64 { return d.thresholdPct }

// Triangles returns a copy of the configured triangles.
func (d *Detector) Triangles() []Triangle {
	return append([]Triangle(nil), d.triangles...)
}

// Check evaluates one triangle. ok is true when |divergence| exceeds the
// threshold. A missing or non-positive rate yields ErrMissingSeries.
func (d *Detector) Check(t Triangle, rates map[model.Pair]float64, source model.ArbitrageSource, now time.Time) (opp model.ArbitrageOpportunity, ok bool, err error) {
	legs := [3]model.Pair{t.Direct, t.LegA, t.LegB}
	for _, p := range legs {
		if r, found := rates[p]; !found || r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return opp, false, fmt.Errorf("%w: no usable rate for %s in %s", model.ErrMissingSeries, p, t)
		}
	}
	direct := rates[t.Direct]
	indirect := rates[t.LegA] * rates[t.LegB]
	div := Divergence(direct, indirect)

	opp = model.ArbitrageOpportunity{
		Type:          TypeTriangular,
		Pairs:         legs,
		DirectRate:    direct,
		IndirectRate:  indirect,
		DivergencePct: div,
		ThresholdPct:  d.thresholdPct,
		Source:        source,
		DetectedAt:    now,
	}
	return opp, math.Abs(div) > d.thresholdPct, nil
}

// Detect checks every configured triangle and returns the flagged ones.
// Triangles with a missing rate are skipped.
func (d *Detector) Detect(rates map[model.Pair]float64, source model.ArbitrageSource, now time.Time) []model.ArbitrageOpportunity {
	var out []model.ArbitrageOpportunity
	for _, t := range d.triangles {
		opp, ok, err := d.Check(t, rates, source, now)
		if err != nil || !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

// DiscoverTriangles enumerates every X/Z, X/Y, Y/Z combination among pairs as
// quoted. Inverse quotes are not synthesized.
func DiscoverTriangles(pairs []model.Pair) []Triangle {
	have := make(map[model.Pair]bool, len(pairs))
	for _, p := range pairs {
		have[p] = true
	}
	var out []Triangle
	for _, direct := range pairs {
		for _, legA := range pairs {
			if legA == direct || legA.Base != direct.Base || legA.Quote == direct.Quote {
				continue
			}
			legB := model.Pair{Base: legA.Quote, Quote: direct.Quote}
			if have[legB] {
				out = append(out, Triangle{Direct: direct, LegA: legA, LegB: legB})
			}
		}
	}
	return out
}

// LatestCloses maps each non-empty series to its last close.
func LatestCloses(series []*model.PriceSeries) map[model.Pair]float64 {
	rates := make(map[model.Pair]float64, len(series))
	for _, s := range series {
		if s == nil || s.Len() == 0 {
			continue
		}
		rates[s.Pair()] = s.Last().Close
	}
	return rates
}

// QuoteRates maps quotes to their rates. Later quotes for a pair win.
func QuoteRates(quotes []model.Quote) map[model.Pair]float64 {
	rates := make(map[model.Pair]float64, len(quotes))
	for _, q := range quotes {
		rates[q.Pair] = q.Rate
	}
	return rates
}
