package scheduler

import (
	"context"
	"fmt"

	"ForexLens/internal/arbitrage"
	"ForexLens/internal/history"
	"ForexLens/internal/metrics"
	"ForexLens/internal/model"
	"ForexLens/internal/notifier"
	"ForexLens/internal/recorder"
	"ForexLens/internal/snapshot"
)

// RunMonitor executes one realtime tick: fetch quotes, update the history
// window, check arbitrage on the live rates, record, alert and save state.
func (s *Scheduler) RunMonitor(ctx context.Context) (tick *recorder.MonitorTick, err error) {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	start := s.now()
	defer func() { s.Metrics.ObserveRun(metrics.JobMonitor, start, err) }()

	if s.History == nil {
		return nil, fmt.Errorf("monitor: no history buffer configured")
	}

	quotes, missing := s.Collector.Quotes(ctx, s.allPairs())
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no quotes available (%d pairs failed)", model.ErrMissingSeries, len(missing))
	}
	for _, q := range quotes {
		s.History.Append(q)
	}
	rollups := s.History.Rollups()

	opps := s.detector.Detect(arbitrage.QuoteRates(quotes), model.SourceRealtime, start)

	tick = &recorder.MonitorTick{
		ID:        recorder.NewRunID(),
		At:        start,
		Quotes:    quotes,
		Rollups:   rollups,
		Arbitrage: opps,
	}
	if err := s.Recorder.RecordMonitor(tick); err != nil {
		s.logger.Error().Err(err).Str("tick_id", tick.ID).Msg("record monitor tick")
	}

	if len(opps) > 0 {
		s.notify(ctx, notifier.Message{
			Kind: notifier.KindAlert,
			Key:  "arbitrage",
			Text: notifier.FormatMonitorAlert(start, opps, rollups),
			At:   start,
		})
	}

	s.Store.SetMonitor(snapshot.Monitor{
		TickID:    tick.ID,
		At:        start,
		Quotes:    quotes,
		Rollups:   rollups,
		Arbitrage: opps,
	})
	points := 0
	for _, r := range rollups {
		points += r.Points
	}
	s.Metrics.SetHistoryPoints(points)
	s.Metrics.AddArbitrage(string(model.SourceRealtime), len(opps))

	if s.opts.StateFile != "" {
		if err := history.SaveState(s.opts.StateFile, s.History); err != nil {
			s.logger.Error().Err(err).Str("path", s.opts.StateFile).Msg("save history state")
		}
	}

	s.logger.Info().
		Str("tick_id", tick.ID).
		Int("quotes", len(quotes)).
		Int("missing", len(missing)).
		Int("arbitrage", len(opps)).
		Msg("monitor tick finished")
	return tick, nil
}
