package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ForexLens/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external readers (dashboards) do not block a run.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batch_runs (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			pairs          INTEGER,
			bullish        INTEGER,
			bearish        INTEGER,
			sideways       INTEGER,
			sentiment      TEXT,
			avg_volatility REAL,
			most_volatile  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_ts ON batch_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS analyses (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL,
			timestamp          INTEGER NOT NULL,
			pair               TEXT NOT NULL,
			bars               INTEGER,
			current_price      REAL,
			daily_return       REAL,
			weekly_return      REAL,
			monthly_return     REAL,
			volatility         REAL,
			avg_daily_range    REAL,
			sma_20             REAL,
			sma_50             REAL,
			sma_200            REAL,
			trend_direction    TEXT,
			trend_strength     REAL,
			support_level      REAL,
			resistance_level   REAL,
			double_top         TEXT,
			double_bottom      TEXT,
			head_and_shoulders TEXT,
			breakout_potential TEXT,
			var_95             REAL,
			max_drawdown       REAL,
			sharpe_ratio       REAL,
			beta               REAL,
			beta_mode          TEXT,
			undefined_fields   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_pair_ts ON analyses(pair, timestamp)`,

		`CREATE TABLE IF NOT EXISTS correlations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			left_pair    TEXT,
			right_pair   TEXT,
			window_bars  INTEGER,
			overlap      INTEGER,
			coefficient  REAL,
			current_corr REAL,
			avg_corr     REAL,
			trend        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_corr_ts ON correlations(timestamp)`,

		`CREATE TABLE IF NOT EXISTS arbitrage_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			source         TEXT,
			pairs          TEXT,
			direct_rate    REAL,
			indirect_rate  REAL,
			difference_pct REAL,
			threshold_pct  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_arb_ts ON arbitrage_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS quotes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			pair      TEXT,
			rate      REAL,
			bid       REAL,
			ask       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_pair_ts ON quotes(pair, timestamp)`,

		`CREATE TABLE IF NOT EXISTS rollups (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  INTEGER NOT NULL,
			pair       TEXT,
			points     INTEGER,
			first_rate REAL,
			last_rate  REAL,
			min_rate   REAL,
			max_rate   REAL,
			change_pct REAL,
			spread_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rollups_ts ON rollups(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps an undefined value to SQL NULL.
func nullable(v model.Value) any {
	if !v.Defined {
		return nil
	}
	return v.V
}

func pairList(pairs [3]model.Pair) string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}
	return strings.Join(names, ",")
}

func (r *SQLiteRecorder) RecordBatch(run *BatchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := run.StartedAt.Unix()
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s := run.Summary; s != nil {
		var mostVolatile any
		if s.MostVolatile != nil {
			mostVolatile = s.MostVolatile.String()
		}
		if _, err := tx.Exec(`INSERT INTO batch_runs
			(id, timestamp, pairs, bullish, bearish, sideways, sentiment, avg_volatility, most_volatile)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			run.ID, ts, s.Pairs, s.Bullish, s.Bearish, s.Sideways, string(s.Sentiment),
			nullable(s.AvgVolatility), mostVolatile,
		); err != nil {
			return fmt.Errorf("insert batch run: %w", err)
		}
	}

	for _, a := range run.Analyses {
		undefined, _ := json.Marshal(a.Undefined)
		m, tr, p, rk := a.Metrics, a.Trends, a.Patterns, a.Risk
		if _, err := tx.Exec(`INSERT INTO analyses
			(run_id, timestamp, pair, bars, current_price, daily_return, weekly_return, monthly_return,
			 volatility, avg_daily_range, sma_20, sma_50, sma_200, trend_direction, trend_strength,
			 support_level, resistance_level, double_top, double_bottom, head_and_shoulders,
			 breakout_potential, var_95, max_drawdown, sharpe_ratio, beta, beta_mode, undefined_fields)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, ts, a.Pair.String(), a.Bars, m.CurrentPrice,
			nullable(m.DailyReturn), nullable(m.WeeklyReturn), nullable(m.MonthlyReturn),
			nullable(m.Volatility), m.AvgDailyRange,
			nullable(tr.SMA20), nullable(tr.SMA50), nullable(tr.SMA200),
			string(tr.Direction), nullable(tr.Strength), nullable(tr.Support), nullable(tr.Resistance),
			string(p.DoubleTop), string(p.DoubleBottom), string(p.HeadAndShoulders), string(p.BreakoutPotential),
			nullable(rk.VaR95), nullable(rk.MaxDrawdown), nullable(rk.SharpeRatio), nullable(rk.Beta),
			string(rk.BetaMode), string(undefined),
		); err != nil {
			return fmt.Errorf("insert analysis %s: %w", a.Pair, err)
		}
	}

	for _, c := range run.Correlations {
		if _, err := tx.Exec(`INSERT INTO correlations
			(run_id, timestamp, left_pair, right_pair, window_bars, overlap, coefficient, current_corr, avg_corr, trend)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			run.ID, ts, c.Left.String(), c.Right.String(), c.Window, c.Overlap,
			nullable(c.Coefficient), nullable(c.Current), nullable(c.Average), string(c.Trend),
		); err != nil {
			return fmt.Errorf("insert correlation %s/%s: %w", c.Left, c.Right, err)
		}
	}

	if err := insertArbitrage(tx, run.ID, ts, run.Arbitrage); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordMonitor(tick *MonitorTick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := tick.At.Unix()
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range tick.Quotes {
		if _, err := tx.Exec(`INSERT INTO quotes (run_id, timestamp, pair, rate, bid, ask) VALUES (?,?,?,?,?,?)`,
			tick.ID, q.Time.Unix(), q.Pair.String(), q.Rate, q.Bid, q.Ask,
		); err != nil {
			return fmt.Errorf("insert quote %s: %w", q.Pair, err)
		}
	}
	for _, ro := range tick.Rollups {
		if _, err := tx.Exec(`INSERT INTO rollups
			(run_id, timestamp, pair, points, first_rate, last_rate, min_rate, max_rate, change_pct, spread_pct)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			tick.ID, ts, ro.Pair.String(), ro.Points, ro.First, ro.Last, ro.Min, ro.Max,
			ro.ChangePct, ro.SpreadPct,
		); err != nil {
			return fmt.Errorf("insert rollup %s: %w", ro.Pair, err)
		}
	}
	if err := insertArbitrage(tx, tick.ID, ts, tick.Arbitrage); err != nil {
		return err
	}
	return tx.Commit()
}

func insertArbitrage(tx *sql.Tx, runID string, ts int64, opps []model.ArbitrageOpportunity) error {
	for _, o := range opps {
		if _, err := tx.Exec(`INSERT INTO arbitrage_events
			(run_id, timestamp, source, pairs, direct_rate, indirect_rate, difference_pct, threshold_pct)
			VALUES (?,?,?,?,?,?,?,?)`,
			runID, ts, string(o.Source), pairList(o.Pairs), o.DirectRate, o.IndirectRate,
			o.DivergencePct, o.ThresholdPct,
		); err != nil {
			return fmt.Errorf("insert arbitrage: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("Closing SQLite recorder")
	return r.db.Close()
}
