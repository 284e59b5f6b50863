package bybit

import (
	"sync"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/safety"
)

// Client wraps the Bybit v5 API for linear perpetuals. It serves both as a
// market data source and as an order executor.
type Client struct {
	httpClient  *bybit_api.Client
	config      Config
	instruments *InstrumentManager
	validator   *safety.Validator
	retry       RetryConfig
	logger      *logger.Logger

	mu       sync.Mutex
	leverage map[string]float64 // leverage already applied per symbol
	isolated map[string]bool    // symbols switched to isolated margin
}

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool   // Demo trading environment
	BaseURL   string // overrides the environment URL when set
}

// NewClient creates a new Bybit client
func NewClient(config Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	var baseURL string
	if config.Demo {
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	c := &Client{
		httpClient: httpClient,
		config:     config,
		validator:  safety.NewValidator(),
		retry:      DefaultRetryConfig(),
		logger:     log,
		leverage:   make(map[string]float64),
		isolated:   make(map[string]bool),
	}
	c.instruments = NewInstrumentManager(c)
	return c
}

// Name identifies the exchange in logs and metrics
func (c *Client) Name() string {
	return "bybit"
}

// HasCredentials reports whether private endpoints can be used
func (c *Client) HasCredentials() bool {
	return c.config.APIKey != "" && c.config.APISecret != ""
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.config.Demo {
		return "demo"
	} else if c.config.Testnet {
		return "testnet"
	}
	return "mainnet"
}
