package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"ForexLens/internal/arbitrage"
	"ForexLens/internal/collector"
	"ForexLens/internal/config"
	"ForexLens/internal/history"
	"ForexLens/internal/metrics"
	"ForexLens/internal/model"
	"ForexLens/internal/notifier"
	"ForexLens/internal/recorder"
	"ForexLens/internal/scheduler"
	"ForexLens/internal/server"
	"ForexLens/internal/snapshot"
)

// mockPrices seeds the mock provider for offline runs.
var mockPrices = map[model.Pair]float64{
	model.NewPair("EUR", "USD"): 1.0850,
	model.NewPair("GBP", "USD"): 1.2700,
	model.NewPair("USD", "JPY"): 151.20,
	model.NewPair("AUD", "USD"): 0.6600,
	model.NewPair("EUR", "GBP"): 0.8540,
	model.NewPair("USD", "CHF"): 0.9000,
	model.NewPair("USD", "CAD"): 1.3600,
	model.NewPair("BTC", "USD"): 64000,
	model.NewPair("ETH", "USD"): 3200,
}

type app struct {
	sched    *scheduler.Scheduler
	store    *snapshot.Store
	telegram *notifier.TelegramNotifier
	rdb      *redis.Client
}

func newApp(cfg *config.Config) (*app, error) {
	pairs, err := cfg.ParsedPairs()
	if err != nil {
		return nil, err
	}
	ref, err := cfg.ReferencePair()
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	a := &app{store: snapshot.NewStore()}

	store := collector.NewCSVStore(cfg.DataSource.DataDir)
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderCSV:
		fetcher = store
	case config.ProviderMock:
		fetcher = collector.NewMockFetcher(mockPrices, 250)
	case config.ProviderYahoo:
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.DataSource.Proxy)
	default:
		fetcher = collector.NewAlphaVantageFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey,
			cfg.DataSource.Proxy, cfg.DataSource.RequestsPerMinute)
	}
	if cfg.Cache.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr, Password: cfg.Cache.RedisPassword})
		fetcher = collector.NewCachingFetcher(a.rdb, cfg.Cache.TTL, fetcher, "")
	}
	log.Info().Str("source", fetcher.Name()).Int("pairs", len(pairs)).Str("reference", ref.String()).Msg("data source ready")

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	sinks := []notifier.Sink{notifier.NewFileSink(cfg.Report.OutputDir)}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		sinks = append(sinks, a.telegram)
	}

	hist, err := history.Load(cfg.Monitor.StateFile, cfg.Monitor.Window)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Monitor.StateFile).Msg("load history state failed, starting empty")
		hist = history.NewBuffer(cfg.Monitor.Window)
	}

	tris, err := cfg.ParsedTriangles()
	if err != nil {
		return nil, err
	}
	triangles := make([]arbitrage.Triangle, 0, len(tris))
	for _, t := range tris {
		tri := arbitrage.Triangle{Direct: t[0], LegA: t[1], LegB: t[2]}
		if !tri.Valid() {
			return nil, fmt.Errorf("arbitrage triangle %s: legs do not chain", tri)
		}
		triangles = append(triangles, tri)
	}

	a.sched = scheduler.NewScheduler(
		collector.NewCollector(fetcher, store),
		hist,
		notifier.NewDispatcher(sinks...),
		rec,
		a.store,
		metrics.New(prometheus.DefaultRegisterer),
		scheduler.Options{
			Pairs:             pairs,
			Reference:         ref,
			CorrelationWindow: cfg.Analysis.CorrelationWindow,
			RiskFreeRate:      cfg.Analysis.RiskFreeRate,
			PatternTolerance:  cfg.Analysis.PatternTolerance,
			UseBenchmark:      cfg.Analysis.UseBenchmark,
			RecentDays:        cfg.Analysis.RecentDays,
			ThresholdPct:      cfg.Arbitrage.ThresholdPct,
			Triangles:         triangles,
			AutoDiscover:      cfg.Arbitrage.AutoDiscover,
			StateFile:         cfg.Monitor.StateFile,
		},
	)
	return a, nil
}

// Close releases the recorder and the Redis client.
func (a *app) Close() {
	if err := a.sched.Recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// runDaemon starts the cron jobs, the status API and Telegram polling, and
// blocks until ctx is cancelled.
func runDaemon(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.RegisterAll(ctx, cfg.Schedule.ReportCron, cfg.Schedule.MonitorCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	a.sched.Start()
	defer a.sched.Stop()

	if cfg.Server.Addr != "" {
		srv := server.New(a.store, promhttp.Handler())
		go func() {
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("status API stopped")
			}
		}()
	}

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, a.sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running report now")
		go func() {
			if _, err := a.sched.RunReport(ctx); err != nil {
				log.Error().Err(err).Msg("startup report failed")
			}
		}()
	}

	log.Info().
		Str("report_cron", cfg.Schedule.ReportCron).
		Str("monitor_cron", cfg.Schedule.MonitorCron).
		Int("triangles", len(a.sched.Triangles())).
		Msg("ForexLens is running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
