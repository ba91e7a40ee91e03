package analyzer

import (
	"fmt"
	"sync"
	"time"

	"ForexLens/internal/calculator"
	"ForexLens/internal/correlation"
	"ForexLens/internal/model"
)

type options struct {
	riskFreeRate     float64
	patternTolerance float64
	benchmark        *model.PriceSeries
}

// Option configures an analysis run.
type Option func(*options)

// WithRiskFreeRate sets the annual risk-free rate used by the Sharpe ratio.
func WithRiskFreeRate(rate float64) Option {
	return func(o *options) { o.riskFreeRate = rate }
}

// WithPatternTolerance sets the double top/bottom tolerance.
func WithPatternTolerance(tol float64) Option {
	return func(o *options) { o.patternTolerance = tol }
}

// WithBenchmark switches beta from the self-volatility proxy to
// cov(r, m) / var(m) against the benchmark's aligned daily returns.
func WithBenchmark(s *model.PriceSeries) Option {
	return func(o *options) { o.benchmark = s }
}

func buildOptions(opts []Option) options {
	o := options{
		riskFreeRate:     calculator.DefaultRiskFreeRate,
		patternTolerance: calculator.DefaultPatternTolerance,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Analyze runs the metrics, trend, pattern and risk calculators over one
// series. It fails only when the series is too short for any metric (fewer
// than 2 bars); every other gap is recorded in Analysis.Undefined and the
// affected fields stay undefined.
func Analyze(s *model.PriceSeries, now time.Time, opts ...Option) (model.Analysis, error) {
	o := buildOptions(opts)
	a := model.Analysis{
		Pair:        s.Pair(),
		GeneratedAt: now,
		Bars:        s.Len(),
	}

	metrics, missing, err := calculator.CalculateMetrics(s)
	if err != nil {
		return a, fmt.Errorf("analyze %s: %w", s.Pair(), err)
	}
	a.Metrics = metrics
	a.Undefined = append(a.Undefined, missing...)

	trends, missing, err := calculator.CalculateTrends(s)
	if err != nil {
		return a, fmt.Errorf("analyze %s trends: %w", s.Pair(), err)
	}
	a.Trends = trends
	a.Undefined = append(a.Undefined, missing...)

	patterns, missing, err := calculator.DetectPatterns(s, o.patternTolerance)
	if err != nil {
		return a, fmt.Errorf("analyze %s patterns: %w", s.Pair(), err)
	}
	a.Patterns = patterns
	a.Undefined = append(a.Undefined, missing...)

	risk, missing, err := calculator.CalculateRisk(s, o.riskFreeRate)
	if err != nil {
		return a, fmt.Errorf("analyze %s risk: %w", s.Pair(), err)
	}
	a.Risk = risk
	a.Undefined = append(a.Undefined, missing...)

	if o.benchmark != nil {
		applyBenchmark(&a, s, o.benchmark)
	}
	return a, nil
}

// applyBenchmark replaces the beta proxy. If the benchmark cannot be used
// the beta stays undefined in benchmark mode instead of falling back.
func applyBenchmark(a *model.Analysis, s, bench *model.PriceSeries) {
	a.Risk.BetaMode = model.BetaBenchmark
	a.Risk.Beta = model.None()
	a.Undefined = dropField(a.Undefined, "risk_metrics.beta")

	al, err := correlation.Align(s, bench)
	if err != nil {
		a.Undefined = append(a.Undefined, model.FieldIssue{Field: "risk_metrics.beta", Reason: err.Error()})
		return
	}
	beta, err := calculator.BenchmarkBeta(calculator.Returns(al.Left, 1), calculator.Returns(al.Right, 1))
	switch {
	case err != nil:
		a.Undefined = append(a.Undefined, model.FieldIssue{Field: "risk_metrics.beta", Reason: err.Error()})
	case !beta.Defined:
		a.Undefined = append(a.Undefined, model.FieldIssue{
			Field:  "risk_metrics.beta",
			Reason: fmt.Sprintf("benchmark %s has zero return variance", bench.Pair()),
		})
	default:
		a.Risk.Beta = beta
	}
}

func dropField(in []model.FieldIssue, field string) []model.FieldIssue {
	out := in[:0]
	for _, fi := range in {
		if fi.Field != field {
			out = append(out, fi)
		}
	}
	return out
}

// Result pairs an analysis with the error that prevented it, if any.
type Result struct {
	Analysis model.Analysis
	Err      error
}

// AnalyzeAll analyzes each series on its own goroutine. Results keep the
// input order. A benchmark option applies to every series.
func AnalyzeAll(series []*model.PriceSeries, now time.Time, opts ...Option) []Result {
	results := make([]Result, len(series))
	var wg sync.WaitGroup
	for i, s := range series {
		wg.Add(1)
		go func(i int, s *model.PriceSeries) {
			defer wg.Done()
			a, err := Analyze(s, now, opts...)
			results[i] = Result{Analysis: a, Err: err}
		}(i, s)
	}
	wg.Wait()
	return results
}

// Succeeded returns the analyses that completed without error.
func Succeeded(results []Result) []model.Analysis {
	out := make([]model.Analysis, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Analysis)
		}
	}
	return out
}
