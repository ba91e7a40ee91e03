package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"ForexLens/internal/model"
)

// Data source providers.
const (
	ProviderAlphaVantage = "alphavantage"
	ProviderYahoo        = "yahoo"
	ProviderCSV          = "csv"
	ProviderMock         = "mock"
)

// Config holds all application configuration.
type Config struct {
	Pairs      []string `yaml:"pairs"`
	Reference  string   `yaml:"reference"`
	DataSource struct {
		Provider          string `yaml:"provider"`
		APIKey            string `yaml:"api_key"`
		BaseURL           string `yaml:"base_url"`
		DataDir           string `yaml:"data_dir"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
		Proxy             string `yaml:"proxy"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Analysis struct {
		CorrelationWindow int     `yaml:"correlation_window"`
		RiskFreeRate      float64 `yaml:"risk_free_rate"`
		RecentDays        int     `yaml:"recent_days"`
		PatternTolerance  float64 `yaml:"pattern_tolerance"`
		// UseBenchmark computes beta of each pair against the reference series
		// instead of the self-volatility proxy.
		UseBenchmark bool `yaml:"use_benchmark"`
	} `yaml:"analysis"`
	Arbitrage struct {
		ThresholdPct float64    `yaml:"threshold_pct"`
		Triangles    [][]string `yaml:"triangles"`
		AutoDiscover bool       `yaml:"auto_discover"`
	} `yaml:"arbitrage"`
	Schedule struct {
		ReportCron  string `yaml:"report_cron"`
		MonitorCron string `yaml:"monitor_cron"`
	} `yaml:"schedule"`
	Monitor struct {
		Window    time.Duration `yaml:"window"`
		StateFile string        `yaml:"state_file"`
	} `yaml:"monitor"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Report struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultPairs are analyzed when the config names none.
var DefaultPairs = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "EUR/GBP"}

// Load reads a .env file if present, then the YAML file, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataSource.DataDir = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.DataSource.Proxy = v
	}
	if v := os.Getenv("FOREX_PAIRS"); v != "" {
		c.Pairs = splitList(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		c.Schedule.ReportCron = v
	}
	if v := os.Getenv("CRON_MONITOR"); v != "" {
		c.Schedule.MonitorCron = v
	}
	if v := os.Getenv("ARBITRAGE_THRESHOLD_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ARBITRAGE_THRESHOLD_PCT: %w", err)
		}
		c.Arbitrage.ThresholdPct = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Pairs) == 0 {
		c.Pairs = append([]string(nil), DefaultPairs...)
	}
	if c.Reference == "" {
		c.Reference = "BTC/USD"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderAlphaVantage
	}
	if c.DataSource.BaseURL == "" {
		switch c.DataSource.Provider {
		case ProviderAlphaVantage:
			c.DataSource.BaseURL = "https://www.alphavantage.co/query"
		case ProviderYahoo:
			c.DataSource.BaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
		}
	}
	if c.DataSource.DataDir == "" {
		c.DataSource.DataDir = "data"
	}
	if c.DataSource.RequestsPerMinute == 0 {
		c.DataSource.RequestsPerMinute = 5
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Analysis.CorrelationWindow == 0 {
		c.Analysis.CorrelationWindow = 30
	}
	if c.Analysis.RiskFreeRate == 0 {
		c.Analysis.RiskFreeRate = 0.02
	}
	if c.Analysis.RecentDays == 0 {
		c.Analysis.RecentDays = 7
	}
	if c.Analysis.PatternTolerance == 0 {
		c.Analysis.PatternTolerance = 0.001
	}
	if c.Arbitrage.ThresholdPct == 0 {
		c.Arbitrage.ThresholdPct = 0.1
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 */4 * * *"
	}
	if c.Schedule.MonitorCron == "" {
		c.Schedule.MonitorCron = "0 0 * * * *"
	}
	if c.Monitor.Window == 0 {
		c.Monitor.Window = 24 * time.Hour
	}
	if c.Monitor.StateFile == "" {
		c.Monitor.StateFile = "data/monitor_state.json"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/forexlens.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set and well-formed.
func (c *Config) Validate() error {
	if _, err := c.ParsedPairs(); err != nil {
		return err
	}
	if _, err := model.ParsePair(c.Reference); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	switch c.DataSource.Provider {
	case ProviderAlphaVantage:
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for provider %q", ProviderAlphaVantage)
		}
	case ProviderYahoo, ProviderCSV, ProviderMock:
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Analysis.CorrelationWindow < 2 {
		return fmt.Errorf("analysis.correlation_window must be at least 2")
	}
	if c.Analysis.RecentDays < 1 {
		return fmt.Errorf("analysis.recent_days must be positive")
	}
	if c.Arbitrage.ThresholdPct <= 0 {
		return fmt.Errorf("arbitrage.threshold_pct must be positive")
	}
	if _, err := c.ParsedTriangles(); err != nil {
		return err
	}
	if c.Monitor.Window <= 0 {
		return fmt.Errorf("monitor.window must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ParsedPairs returns the configured pairs in order, without duplicates.
func (c *Config) ParsedPairs() ([]model.Pair, error) {
	seen := make(map[model.Pair]bool, len(c.Pairs))
	out := make([]model.Pair, 0, len(c.Pairs))
	for _, s := range c.Pairs {
		p, err := model.ParsePair(s)
		if err != nil {
			return nil, fmt.Errorf("pairs: %w", err)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pairs: at least one pair is required")
	}
	return out, nil
}

// ReferencePair returns the parsed reference asset.
func (c *Config) ReferencePair() (model.Pair, error) {
	return model.ParsePair(c.Reference)
}

// ParsedTriangles returns the configured triangles as [direct, legA, legB] triples.
func (c *Config) ParsedTriangles() ([][3]model.Pair, error) {
	out := make([][3]model.Pair, 0, len(c.Arbitrage.Triangles))
	for i, t := range c.Arbitrage.Triangles {
		if len(t) != 3 {
			return nil, fmt.Errorf("arbitrage.triangles[%d]: want 3 pairs, got %d", i, len(t))
		}
		var tri [3]model.Pair
		for j, s := range t {
			p, err := model.ParsePair(s)
			if err != nil {
				return nil, fmt.Errorf("arbitrage.triangles[%d]: %w", i, err)
			}
			tri[j] = p
		}
		out = append(out, tri)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
