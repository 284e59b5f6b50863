package exchange

import (
	"github.com/ducminhle1904/futures-signal-bot/internal/marketdata"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// Trading modes
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Exchange is a venue that can both serve market data and execute orders
type Exchange interface {
	marketdata.Source
	position.Executor
}

// Venue pairs the market data source with the executor orders go to. In
// paper mode the executor is simulated while data stays live.
type Venue struct {
	Source   marketdata.Source
	Executor position.Executor
	Mode     string
}

// ExchangeError represents standardized errors from exchange construction
type ExchangeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ExchangeError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
