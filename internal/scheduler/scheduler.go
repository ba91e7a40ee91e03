package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ForexLens/internal/arbitrage"
	"ForexLens/internal/collector"
	"ForexLens/internal/correlation"
	"ForexLens/internal/history"
	"ForexLens/internal/metrics"
	"ForexLens/internal/model"
	"ForexLens/internal/notifier"
	"ForexLens/internal/recorder"
	"ForexLens/internal/snapshot"
)

// Options tunes the report and monitor jobs.
type Options struct {
	Pairs             []model.Pair
	Reference         model.Pair
	CorrelationWindow int
	RiskFreeRate      float64
	PatternTolerance  float64
	UseBenchmark      bool
	RecentDays        int
	ThresholdPct      float64
	Triangles         []arbitrage.Triangle
	AutoDiscover      bool
	StateFile         string
}

// Scheduler runs the batch report and realtime monitor jobs on cron schedules.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	History   *history.Buffer
	Notifier  *notifier.Dispatcher
	Recorder  recorder.Recorder
	Store     *snapshot.Store
	Metrics   *metrics.Metrics

	engine   *correlation.Engine
	detector *arbitrage.Detector
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger

	// Jobs of the same kind never overlap, whether cron or a command started them.
	reportMu  sync.Mutex
	monitorMu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(col *collector.Collector, hist *history.Buffer, disp *notifier.Dispatcher,
	rec recorder.Recorder, store *snapshot.Store, m *metrics.Metrics, opts Options) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if store == nil {
		store = snapshot.NewStore()
	}
	triangles := opts.Triangles
	if opts.AutoDiscover {
		triangles = mergeTriangles(triangles, arbitrage.DiscoverTriangles(opts.Pairs))
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Collector: col,
		History:   hist,
		Notifier:  disp,
		Recorder:  rec,
		Store:     store,
		Metrics:   m,
		engine:    correlation.NewEngine(opts.CorrelationWindow),
		detector:  arbitrage.NewDetector(opts.ThresholdPct, triangles...),
		opts:      opts,
		now:       time.Now,
		logger:    log.With().Str("component", "scheduler").Logger(),
	}
}

func mergeTriangles(a, b []arbitrage.Triangle) []arbitrage.Triangle {
	seen := make(map[arbitrage.Triangle]bool, len(a)+len(b))
	var out []arbitrage.Triangle
	for _, t := range append(append([]arbitrage.Triangle(nil), a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Triangles returns the triangles checked for arbitrage.
func (s *Scheduler) Triangles() []arbitrage.Triangle { return s.detector.Triangles() }

// RegisterAll registers the report and monitor jobs. An empty cron expression disables a job.
func (s *Scheduler) RegisterAll(ctx context.Context, reportCron, monitorCron string) error {
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, func() { s.reportTask(ctx) }); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	if monitorCron != "" {
		if _, err := s.Cron.AddFunc(monitorCron, func() { s.monitorTask(ctx) }); err != nil {
			return fmt.Errorf("register monitor task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) reportTask(ctx context.Context) {
	if _, err := s.RunReport(ctx); err != nil {
		s.logger.Error().Err(err).Msg("report run failed")
	}
}

func (s *Scheduler) monitorTask(ctx context.Context) {
	if _, err := s.RunMonitor(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor tick failed")
	}
}

// allPairs returns the configured pairs plus the reference asset.
func (s *Scheduler) allPairs() []model.Pair {
	out := append([]model.Pair(nil), s.opts.Pairs...)
	for _, p := range out {
		if p == s.opts.Reference {
			return out
		}
	}
	if s.opts.Reference != (model.Pair{}) {
		out = append(out, s.opts.Reference)
	}
	return out
}

const helpText = "Available commands:\n" +
	"/report - run the market report now\n" +
	"/summary - latest market summary\n" +
	"/pair EUR/USD - latest analysis for one pair\n" +
	"/arbitrage - latest arbitrage opportunities\n" +
	"/rollups - rolling window per pair\n" +
	"/status - last run times"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	name, arg, _ := strings.Cut(strings.TrimSpace(command), " ")
	switch strings.ToLower(name) {
	case "/report":
		go s.reportTask(ctx)
		return "Report started."
	case "/summary":
		r, ok := s.Store.Report()
		if !ok {
			return "No report yet."
		}
		return notifier.FormatSummaryReport(batchReport(r))
	case "/pair":
		pair, err := model.ParsePair(arg)
		if err != nil {
			return "Usage: /pair EUR/USD"
		}
		a, ok := s.Store.Analysis(pair)
		if !ok {
			return "No analysis for " + html.EscapeString(pair.String()) + "."
		}
		return notifier.FormatPairReport(a)
	case "/arbitrage":
		return s.arbitrageStatus()
	case "/rollups":
		if s.History == nil || len(s.History.Pairs()) == 0 {
			return "No monitor history yet."
		}
		rollups := s.History.Rollups()
		out := notifier.FormatRollups(rollups)
		if o := s.referenceOutlook(rollups); o != nil {
			out += "\n" + notifier.FormatReferenceOutlook(*o)
		}
		return out
	case "/status":
		return s.status()
	default:
		return helpText
	}
}

func (s *Scheduler) arbitrageStatus() string {
	var opps []model.ArbitrageOpportunity
	if r, ok := s.Store.Report(); ok {
		opps = append(opps, r.Arbitrage...)
	}
	if m, ok := s.Store.Monitor(); ok {
		opps = append(opps, m.Arbitrage...)
	}
	if len(opps) == 0 {
		return fmt.Sprintf("No opportunities above %.2f%%.", s.detector.ThresholdPct())
	}
	lines := make([]string, len(opps))
	for i, o := range opps {
		lines[i] = notifier.FormatOpportunity(o)
	}
	return strings.Join(lines, "\n")
}

func (s *Scheduler) status() string {
	var b strings.Builder
	b.WriteString("<b>ForexLens status</b>\n")
	if r, ok := s.Store.Report(); ok {
		b.WriteString(fmt.Sprintf("Last report: %s (%d pairs, run %s)\n",
			r.GeneratedAt.Format("2006-01-02 15:04"), len(r.Analyses), r.RunID))
	} else {
		b.WriteString("Last report: never\n")
	}
	if m, ok := s.Store.Monitor(); ok {
		b.WriteString(fmt.Sprintf("Last monitor tick: %s (%d quotes)\n", m.At.Format("2006-01-02 15:04"), len(m.Quotes)))
	} else {
		b.WriteString("Last monitor tick: never\n")
	}
	b.WriteString(fmt.Sprintf("Triangles: %d, threshold %.2f%%\n", len(s.detector.Triangles()), s.detector.ThresholdPct()))
	return b.String()
}
