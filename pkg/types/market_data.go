package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// CandleSeries is an ordered run of candles for one instrument on one timeframe.
// Timestamps are strictly increasing; the last element is the most recent bar.
type CandleSeries struct {
	Symbol   string
	Interval string
	Candles  []OHLCV
}

// Len returns the number of candles in the series
func (s *CandleSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Closes projects the close prices in series order
func (s *CandleSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Last returns the most recent candle
func (s *CandleSeries) Last() (OHLCV, bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Validate checks the ordering invariant of the series
func (s *CandleSeries) Validate() error {
	if s.Len() == 0 {
		return fmt.Errorf("%s %s: empty series", s.Symbol, s.Interval)
	}
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].Timestamp.After(s.Candles[i-1].Timestamp) {
			return fmt.Errorf("%s %s: candle %d at %s is not after %s",
				s.Symbol, s.Interval, i,
				s.Candles[i].Timestamp.Format(time.RFC3339),
				s.Candles[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Ticker is a 24h summary for one instrument
type Ticker struct {
	Symbol      string
	Price       float64
	Volume      float64
	QuoteVolume float64
	Timestamp   time.Time
}

// RankByQuoteVolume filters tickers by quote suffix and returns the top n
// symbols by 24h quote volume. Ties are broken by symbol; n <= 0 keeps all.
func RankByQuoteVolume(tickers []Ticker, n int, quotes []string) []string {
	eligible := make([]Ticker, 0, len(tickers))
	for _, t := range tickers {
		if t.QuoteVolume <= 0 || !HasQuote(t.Symbol, quotes) {
			continue
		}
		eligible = append(eligible, t)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].QuoteVolume != eligible[j].QuoteVolume {
			return eligible[i].QuoteVolume > eligible[j].QuoteVolume
		}
		return eligible[i].Symbol < eligible[j].Symbol
	})

	if n > 0 && len(eligible) > n {
		eligible = eligible[:n]
	}
	symbols := make([]string, len(eligible))
	for i, t := range eligible {
		symbols[i] = t.Symbol
	}
	return symbols
}

// HasQuote reports whether symbol ends in one of quotes. An empty list matches everything.
func HasQuote(symbol string, quotes []string) bool {
	if len(quotes) == 0 {
		return true
	}
	for _, q := range quotes {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return true
		}
	}
	return false
}
