package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ducminhle1904/futures-signal-bot/internal/engine"
	boterrors "github.com/ducminhle1904/futures-signal-bot/internal/errors"
	"github.com/ducminhle1904/futures-signal-bot/internal/exchange"
	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/marketdata"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/state"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

// State backends
const (
	StateFile  = "file"
	StateRedis = "redis"
	StateNone  = "none"
)

// Config represents the complete configuration of the signal bot
type Config struct {
	Exchange   exchange.Config     `json:"exchange"`
	Universe   UniverseConfig      `json:"universe"`
	Indicators indicators.Params   `json:"indicators"`
	Strategies engine.Config       `json:"strategies"`
	Thresholds strategy.Thresholds `json:"thresholds"`
	Risk       risk.Config         `json:"risk"`
	Position   position.Config     `json:"position"`
	Fetch      FetchConfig         `json:"fetch"`
	Cycle      CycleConfig         `json:"cycle"`
	Alerts     AlertsConfig        `json:"alerts"`
	Journal    JournalConfig       `json:"journal"`
	State      StateConfig         `json:"state"`
	Metrics    MetricsConfig       `json:"metrics"`
	Logging    LoggingConfig       `json:"logging"`
}

// UniverseConfig selects the instruments scanned each cycle
type UniverseConfig struct {
	Size    int      `json:"size"`    // top N by 24h quote volume
	Quotes  []string `json:"quotes"`  // accepted quote currencies
	Symbols []string `json:"symbols"` // fixed list, skips the volume ranking
}

// FetchConfig holds market data pacing in config-friendly units
type FetchConfig struct {
	Concurrency            int     `json:"concurrency"`
	TimeoutSeconds         int     `json:"timeout_seconds"`
	RequestsPerSec         float64 `json:"requests_per_sec"`
	Burst                  int     `json:"burst"`
	BreakerThreshold       uint32  `json:"breaker_threshold"`
	BreakerCooldownSeconds int     `json:"breaker_cooldown_seconds"`
}

// MarketData converts to the fetcher configuration
func (f FetchConfig) MarketData() marketdata.Config {
	return marketdata.Config{
		Concurrency:      f.Concurrency,
		Timeout:          time.Duration(f.TimeoutSeconds) * time.Second,
		RequestsPerSec:   f.RequestsPerSec,
		Burst:            f.Burst,
		BreakerThreshold: f.BreakerThreshold,
		BreakerCooldown:  time.Duration(f.BreakerCooldownSeconds) * time.Second,
	}
}

// CycleConfig controls the decision loop cadence
type CycleConfig struct {
	IntervalSeconds int  `json:"interval_seconds"`
	Summary         bool `json:"summary"` // print a table after each cycle
}

// Interval returns the cycle period
func (c CycleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// AlertsConfig holds notification settings. Credentials come from the environment.
type AlertsConfig struct {
	Enabled        bool   `json:"enabled"`
	TelegramToken  string `json:"-"`
	TelegramChatID string `json:"telegram_chat_id,omitempty"`
}

// JournalConfig locates the trade log sinks. An empty path disables that sink.
type JournalConfig struct {
	SQLitePath string `json:"sqlite_path"`
	JSONLPath  string `json:"jsonl_path"`
}

// StateConfig selects where open positions are persisted
type StateConfig struct {
	Backend string            `json:"backend"` // file, redis or none
	Dir     string            `json:"dir"`
	Name    string            `json:"name"`
	Redis   state.RedisConfig `json:"redis"`
}

// MetricsConfig controls the prometheus and health endpoints
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// LoggingConfig controls the file logger
type LoggingConfig struct {
	Dir     string `json:"dir"`
	Debug   bool   `json:"debug"`
	Console bool   `json:"console"`
}

// Secrets are read from the environment, never from the config file
type Secrets struct {
	BybitAPIKey    string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret string `envconfig:"BYBIT_API_SECRET"`
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
}

// Default returns a paper-trading configuration over the top 40 Bybit
// USDT/USDC perpetuals
func Default() *Config {
	return &Config{
		Exchange: exchange.Config{
			Name:        "bybit",
			Mode:        exchange.ModePaper,
			SlippageBps: 2,
		},
		Universe: UniverseConfig{
			Size:   40,
			Quotes: []string{"USDT", "USDC"},
		},
		Indicators: indicators.DefaultParams(),
		Strategies: engine.DefaultConfig(),
		Thresholds: strategy.DefaultThresholds(),
		Risk:       risk.DefaultConfig(),
		Position:   position.DefaultConfig(),
		Fetch: FetchConfig{
			Concurrency:            5,
			TimeoutSeconds:         15,
			RequestsPerSec:         10,
			Burst:                  10,
			BreakerThreshold:       10,
			BreakerCooldownSeconds: 30,
		},
		Cycle: CycleConfig{IntervalSeconds: 60, Summary: true},
		Journal: JournalConfig{
			SQLitePath: "data/journal.db",
			JSONLPath:  "data/trades.jsonl",
		},
		State: StateConfig{
			Backend: StateFile,
			Dir:     "data",
			Name:    "signal-bot",
		},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090"},
		Logging: LoggingConfig{Dir: "logs", Console: true},
	}
}

// Load reads configFile over the defaults, applies secrets from the
// environment and validates the result. envFile is an optional dotenv file;
// when empty a .env in the working directory is used if present.
func Load(configFile, envFile string) (*Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	configFile = resolvePath(configFile)
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.ApplySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "validate")
	}
	return cfg, nil
}

// resolvePath looks up bare names in configs/ and adds the .json extension
func resolvePath(configFile string) string {
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}
	return configFile
}

// ApplySecrets copies credentials into the sections that use them
func (c *Config) ApplySecrets(s Secrets) {
	if s.BybitAPIKey != "" {
		c.Exchange.APIKey = s.BybitAPIKey
	}
	if s.BybitAPISecret != "" {
		c.Exchange.APISecret = s.BybitAPISecret
	}
	if s.TelegramToken != "" {
		c.Alerts.TelegramToken = s.TelegramToken
	}
	if s.TelegramChatID != "" {
		c.Alerts.TelegramChatID = s.TelegramChatID
	}
	if s.RedisPassword != "" {
		c.State.Redis.Password = s.RedisPassword
	}
}

// setDefaults fills values a partial config file zeroed out
func (c *Config) setDefaults() {
	def := Default()

	if c.Exchange.Name == "" {
		c.Exchange.Name = def.Exchange.Name
	}
	if c.Exchange.Mode == "" {
		c.Exchange.Mode = def.Exchange.Mode
	}
	if c.Universe.Size == 0 {
		c.Universe.Size = def.Universe.Size
	}
	if len(c.Universe.Quotes) == 0 {
		c.Universe.Quotes = def.Universe.Quotes
	}
	for i, s := range c.Universe.Symbols {
		c.Universe.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if c.Strategies.Timeframes == nil {
		c.Strategies.Timeframes = def.Strategies.Timeframes
	}
	if c.Strategies.ExitInterval == "" {
		c.Strategies.ExitInterval = def.Strategies.ExitInterval
	}
	if c.Strategies.Lookback == nil {
		c.Strategies.Lookback = def.Strategies.Lookback
	}
	if c.Strategies.DefaultLookback == 0 {
		c.Strategies.DefaultLookback = def.Strategies.DefaultLookback
	}

	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = def.Fetch.Concurrency
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Fetch.RequestsPerSec == 0 {
		c.Fetch.RequestsPerSec = def.Fetch.RequestsPerSec
	}
	if c.Fetch.Burst == 0 {
		c.Fetch.Burst = def.Fetch.Burst
	}
	if c.Fetch.BreakerThreshold == 0 {
		c.Fetch.BreakerThreshold = def.Fetch.BreakerThreshold
	}
	if c.Fetch.BreakerCooldownSeconds == 0 {
		c.Fetch.BreakerCooldownSeconds = def.Fetch.BreakerCooldownSeconds
	}

	if c.Cycle.IntervalSeconds == 0 {
		c.Cycle.IntervalSeconds = def.Cycle.IntervalSeconds
	}
	if c.State.Backend == "" {
		c.State.Backend = def.State.Backend
	}
	if c.State.Dir == "" {
		c.State.Dir = def.State.Dir
	}
	if c.State.Name == "" {
		c.State.Name = def.State.Name
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = def.Metrics.Addr
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = def.Logging.Dir
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Exchange.Validate(); err != nil {
		return err
	}
	if len(c.Universe.Symbols) == 0 && c.Universe.Size <= 0 {
		return fmt.Errorf("universe size must be positive when no symbols are listed")
	}
	if err := c.Strategies.Validate(); err != nil {
		return fmt.Errorf("strategies: %w", err)
	}
	if err := validateParams(c.Indicators); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if c.Thresholds.ExtremeOversold >= c.Thresholds.ExtremeOverbought {
		return fmt.Errorf("extreme oversold (%.1f) must be below overbought (%.1f)",
			c.Thresholds.ExtremeOversold, c.Thresholds.ExtremeOverbought)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if c.Position.CommissionRate < 0 || c.Position.CommissionRate >= 0.01 {
		return fmt.Errorf("commission rate must be in [0, 0.01), got %v", c.Position.CommissionRate)
	}
	if c.Fetch.Concurrency <= 0 || c.Fetch.TimeoutSeconds <= 0 || c.Fetch.RequestsPerSec <= 0 {
		return fmt.Errorf("fetch concurrency, timeout and rate must be positive")
	}
	if c.Cycle.IntervalSeconds <= 0 {
		return fmt.Errorf("cycle interval must be positive, got %d", c.Cycle.IntervalSeconds)
	}

	switch c.State.Backend {
	case StateFile, StateNone:
	case StateRedis:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("redis state backend requires an address")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	if c.Alerts.Enabled && c.Alerts.TelegramToken != "" && c.Alerts.TelegramChatID == "" {
		return fmt.Errorf("telegram alerts need TELEGRAM_CHAT_ID")
	}
	return nil
}

func validateParams(p indicators.Params) error {
	periods := map[string]int{
		"rsi_period":       p.RSIPeriod,
		"bb_period":        p.BBPeriod,
		"stoch_rsi_period": p.StochRSIPeriod,
		"stoch_period":     p.StochPeriod,
		"ema_fast":         p.EMAFast,
		"ema_slow":         p.EMASlow,
		"adx_period":       p.ADXPeriod,
		"macd_fast":        p.MACDFast,
		"macd_slow":        p.MACDSlow,
		"macd_signal":      p.MACDSignal,
		"atr_period":       p.ATRPeriod,
	}
	for name, n := range periods {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be shorter than ema_slow (%d)", p.EMAFast, p.EMASlow)
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("macd_fast (%d) must be shorter than macd_slow (%d)", p.MACDFast, p.MACDSlow)
	}
	if p.BBStdDev <= 0 {
		return fmt.Errorf("bb_std_dev must be positive, got %v", p.BBStdDev)
	}
	return nil
}
