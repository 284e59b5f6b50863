package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/futures-signal-bot/internal/exchange/paper"
)

func TestNew_PaperUsesSimulatedExecution(t *testing.T) {
	venue, err := New(Config{Name: "binance", Mode: ModePaper}, nil)
	require.NoError(t, err)
	assert.Equal(t, "binance", venue.Source.Name())
	assert.IsType(t, &paper.Executor{}, venue.Executor)

	venue, err = New(Config{Name: "Bybit", Mode: ModePaper}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bybit", venue.Source.Name())
	assert.IsType(t, &paper.Executor{}, venue.Executor)
}

func TestNew_LiveBybit(t *testing.T) {
	venue, err := New(Config{Name: "bybit", Mode: ModeLive, Testnet: true, APIKey: "k", APISecret: "s"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &bybit.Client{}, venue.Executor)
	assert.Same(t, venue.Source, venue.Executor)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		code string
	}{
		{"unknown exchange", Config{Name: "kraken", Mode: ModePaper}, "UNSUPPORTED_EXCHANGE"},
		{"live binance", Config{Name: "binance", Mode: ModeLive, APIKey: "k", APISecret: "s"}, "UNSUPPORTED_MODE"},
		{"live without keys", Config{Name: "bybit", Mode: ModeLive}, "MISSING_CREDENTIALS"},
		{"bad mode", Config{Name: "bybit", Mode: "demo"}, "INVALID_MODE"},
		{"negative slippage", Config{Name: "bybit", Mode: ModePaper, SlippageBps: -1}, "INVALID_SLIPPAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			var exErr *ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.code, exErr.Code)
		})
	}
}
