package exchange

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/futures-signal-bot/internal/exchange/binance"
	"github.com/ducminhle1904/futures-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/futures-signal-bot/internal/exchange/paper"
	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
)

var _ Exchange = (*bybit.Client)(nil)

// Config holds configuration for creating the trading venue
type Config struct {
	Name        string  `json:"name"` // bybit or binance
	Mode        string  `json:"mode"` // paper or live
	Testnet     bool    `json:"testnet"`
	Demo        bool    `json:"demo"`
	BaseURL     string  `json:"base_url,omitempty"`
	SlippageBps float64 `json:"slippage_bps"`

	APIKey    string `json:"-"`
	APISecret string `json:"-"`
}

// SupportedExchanges returns the exchange names New accepts
func SupportedExchanges() []string {
	return []string{"bybit", "binance"}
}

// Validate checks the exchange section
func (c Config) Validate() error {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	switch name {
	case "bybit", "binance":
	default:
		return &ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", c.Name),
			Details: "Supported exchanges: " + strings.Join(SupportedExchanges(), ", "),
		}
	}

	switch c.Mode {
	case ModePaper:
	case ModeLive:
		if name != "bybit" {
			return &ExchangeError{
				Code:    "UNSUPPORTED_MODE",
				Message: fmt.Sprintf("live trading is not available on %s", c.Name),
				Details: "use mode \"paper\" or exchange \"bybit\"",
			}
		}
		if c.APIKey == "" || c.APISecret == "" {
			return &ExchangeError{
				Code:    "MISSING_CREDENTIALS",
				Message: "live trading requires API credentials",
				Details: "set BYBIT_API_KEY and BYBIT_API_SECRET",
			}
		}
	default:
		return &ExchangeError{
			Code:    "INVALID_MODE",
			Message: fmt.Sprintf("unknown mode %q", c.Mode),
			Details: "expected paper or live",
		}
	}

	if c.SlippageBps < 0 {
		return &ExchangeError{Code: "INVALID_SLIPPAGE", Message: "slippage_bps must not be negative"}
	}
	return nil
}

// New builds the market data source and executor for cfg
func New(cfg Config, log *logger.Logger) (*Venue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	venue := &Venue{Mode: cfg.Mode}
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "bybit":
		client := bybit.NewClient(bybit.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Testnet:   cfg.Testnet,
			Demo:      cfg.Demo,
			BaseURL:   cfg.BaseURL,
		}, log)
		venue.Source = client
		if cfg.Mode == ModeLive {
			venue.Executor = client
			log.Info("Bybit %s: live order execution enabled", client.GetEnvironment())
		}
	case "binance":
		venue.Source = binance.NewClient(cfg.BaseURL)
	}

	if venue.Executor == nil {
		venue.Executor = paper.NewExecutor(cfg.SlippageBps, log)
		log.Info("%s market data with paper execution (slippage %.1f bps)", venue.Source.Name(), cfg.SlippageBps)
	}
	return venue, nil
}
