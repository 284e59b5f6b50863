package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// ErrFetch marks a failed or invalid candle fetch for one instrument
var ErrFetch = errors.New("fetch error")

// Source is an exchange market data endpoint
type Source interface {
	Name() string
	// GetKlines returns up to limit recent candles in any order
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)
	// TopSymbols returns the n most traded perpetual symbols quoted in one of quotes
	TopSymbols(ctx context.Context, n int, quotes []string) ([]string, error)
}

// Request asks for the latest candles of one instrument on one interval
type Request struct {
	Symbol   string
	Interval string
	Limit    int
}

// Key identifies the request within a batch
func (r Request) Key() string {
	return SeriesKey(r.Symbol, r.Interval)
}

// SeriesKey builds the batch key for symbol and interval
func SeriesKey(symbol, interval string) string {
	return symbol + "@" + interval
}

// FetchError is a per-request failure. It matches ErrFetch with errors.Is.
type FetchError struct {
	Symbol   string
	Interval string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Symbol, e.Interval, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports ErrFetch as a match
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
