package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ForexLens/internal/analyzer"
	"ForexLens/internal/arbitrage"
	"ForexLens/internal/calculator"
	"ForexLens/internal/correlation"
	"ForexLens/internal/metrics"
	"ForexLens/internal/model"
	"ForexLens/internal/notifier"
	"ForexLens/internal/recorder"
	"ForexLens/internal/snapshot"
	"ForexLens/internal/summary"
)

// RunReport executes the batch report immediately: collect, analyze,
// correlate, check arbitrage, summarize, record, notify and publish.
func (s *Scheduler) RunReport(ctx context.Context) (run *recorder.BatchRun, err error) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()

	start := s.now()
	defer func() { s.Metrics.ObserveRun(metrics.JobReport, start, err) }()
	s.logger.Info().Int("pairs", len(s.opts.Pairs)).Msg("running report")

	batch := s.Collector.Collect(ctx, s.allPairs())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	missing := make(map[model.Pair]error)
	var series []*model.PriceSeries
	for _, p := range s.opts.Pairs {
		if ps := batch.Get(p); ps != nil {
			series = append(series, ps)
		} else if e, ok := batch.Missing[p]; ok {
			missing[p] = e
		}
	}
	ref := batch.Get(s.opts.Reference)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no configured pair has data", model.ErrMissingSeries)
	}

	analyses := s.analyze(series, ref, start, missing)
	if len(analyses) == 0 {
		return nil, fmt.Errorf("%w: every analysis failed", model.ErrInsufficientData)
	}

	correlations := s.correlate(series, ref)
	matrixInput := series
	if ref != nil {
		matrixInput = append(append([]*model.PriceSeries(nil), series...), ref)
	}
	matrix := correlation.Matrix(matrixInput...)

	opps := s.detector.Detect(arbitrage.LatestCloses(series), model.SourceBatch, start)
	recent := s.recentStats(series)

	var rollups []model.Rollup
	if s.History != nil {
		rollups = s.History.Rollups()
	}
	sum := summary.Summarize(summary.Input{Analyses: analyses, Opportunities: opps, Rollups: rollups}, start)
	outlook := s.referenceOutlook(rollups)

	run = &recorder.BatchRun{
		ID:           recorder.NewRunID(),
		StartedAt:    start,
		Analyses:     analyses,
		Correlations: correlations,
		Arbitrage:    opps,
		Summary:      &sum,
	}
	if err := s.Recorder.RecordBatch(run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("record batch")
	}

	report := notifier.BatchReport{
		Summary:      sum,
		Correlations: correlations,
		Matrix:       matrix,
		Recent:       recent,
		Missing:      missing,
		Reference:    outlook,
	}
	s.notify(ctx, notifier.Message{Kind: notifier.KindSummary, Text: notifier.FormatSummaryReport(report), At: start})
	for _, a := range analyses {
		s.notify(ctx, notifier.Message{Kind: notifier.KindPair, Key: a.Pair.FileKey(), Text: notifier.FormatPairReport(a), At: start})
	}

	s.Store.SetReport(snapshot.Report{
		RunID:        run.ID,
		GeneratedAt:  start,
		Analyses:     analyses,
		Correlations: correlations,
		Matrix:       matrix,
		Arbitrage:    opps,
		Summary:      sum,
		Recent:       recent,
		Missing:      missingLabels(missing),
		Reference:    outlook,
	})
	s.Metrics.SetPairs(len(analyses), len(missing))
	s.Metrics.AddArbitrage(string(model.SourceBatch), len(opps))

	s.logger.Info().
		Str("run_id", run.ID).
		Int("analyzed", len(analyses)).
		Int("missing", len(missing)).
		Int("arbitrage", len(opps)).
		Str("sentiment", string(sum.Sentiment)).
		Dur("took", time.Since(start)).
		Msg("report finished")
	return run, nil
}

// analyze runs the pair analyzer over all series in parallel. Pairs whose
// analysis fails are added to missing.
func (s *Scheduler) analyze(series []*model.PriceSeries, ref *model.PriceSeries, now time.Time, missing map[model.Pair]error) []model.Analysis {
	opts := []analyzer.Option{
		analyzer.WithRiskFreeRate(s.opts.RiskFreeRate),
		analyzer.WithPatternTolerance(s.opts.PatternTolerance),
	}
	if s.opts.UseBenchmark && ref != nil {
		opts = append(opts, analyzer.WithBenchmark(ref))
	}
	results := analyzer.AnalyzeAll(series, now, opts...)
	for i, r := range results {
		if r.Err != nil {
			s.logger.Warn().Err(r.Err).Str("pair", series[i].Pair().String()).Msg("analysis failed")
			missing[series[i].Pair()] = r.Err
		}
	}
	return analyzer.Succeeded(results)
}

// correlate computes the rolling correlation of each pair against the reference.
func (s *Scheduler) correlate(series []*model.PriceSeries, ref *model.PriceSeries) []model.CorrelationResult {
	if ref == nil {
		s.logger.Warn().Str("reference", s.opts.Reference.String()).Msg("reference unavailable, skipping correlations")
		return nil
	}
	var out []model.CorrelationResult
	for _, ps := range series {
		res, err := s.engine.Rolling(ps, ref)
		if err != nil {
			level := s.logger.Warn()
			if errors.Is(err, model.ErrInsufficientData) {
				level = s.logger.Debug()
			}
			level.Err(err).Str("pair", ps.Pair().String()).Msg("correlation undefined")
			continue
		}
		out = append(out, res)
	}
	return out
}

func (s *Scheduler) recentStats(series []*model.PriceSeries) []model.PeriodStats {
	var out []model.PeriodStats
	for _, ps := range series {
		st, err := calculator.RecentStats(ps, s.opts.RecentDays)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) notify(ctx context.Context, m notifier.Message) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("kind", m.Kind).Msg("notification failed")
	}
}

func missingLabels(missing map[model.Pair]error) map[string]string {
	if len(missing) == 0 {
		return nil
	}
	out := make(map[string]string, len(missing))
	for p, err := range missing {
		out[p.String()] = err.Error()
	}
	return out
}

// batchReport rebuilds the renderable report from a published snapshot.
func batchReport(r snapshot.Report) notifier.BatchReport {
	missing := make(map[model.Pair]error, len(r.Missing))
	for label, reason := range r.Missing {
		if p, err := model.ParsePair(label); err == nil {
			missing[p] = errors.New(reason)
		}
	}
	return notifier.BatchReport{
		Summary:      r.Summary,
		Correlations: r.Correlations,
		Matrix:       r.Matrix,
		Recent:       r.Recent,
		Missing:      missing,
		Reference:    r.Reference,
	}
}

// referenceOutlook is nil until the monitor has seen the reference pair twice.
func (s *Scheduler) referenceOutlook(rollups []model.Rollup) *model.ReferenceOutlook {
	if s.History == nil || s.opts.Reference == (model.Pair{}) {
		return nil
	}
	o, err := summary.Reference(s.opts.Reference, s.History.Points(s.opts.Reference), rollups)
	if err != nil {
		s.logger.Debug().Err(err).Msg("reference outlook unavailable")
		return nil
	}
	return &o
}
