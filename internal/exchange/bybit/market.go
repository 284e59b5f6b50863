package bybit

import (
	"context"
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// GetKlines retrieves up to limit candles for a linear perpetual, newest first
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	bybitInterval, err := ToBybitInterval(interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	params := map[string]interface{}{
		"category": CategoryLinear,
		"symbol":   symbol,
		"interval": bybitInterval,
		"limit":    limit,
	}

	// single attempt: a failed series is retried on the next cycle
	resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}
	var result klineResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}

	return parseKlines(result)
}

// parseKlines converts kline rows to candles. Rows shorter than the
// documented seven columns are rejected rather than silently zero-filled.
func parseKlines(result klineResult) ([]types.OHLCV, error) {
	candles := make([]types.OHLCV, 0, len(result.List))
	for i, row := range result.List {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields", i, len(row))
		}
		candles = append(candles, types.OHLCV{
			Timestamp: parseTimestamp(row[0]),
			Open:      parseFloat64(row[1]),
			High:      parseFloat64(row[2]),
			Low:       parseFloat64(row[3]),
			Close:     parseFloat64(row[4]),
			Volume:    parseFloat64(row[5]),
		})
	}
	return candles, nil
}

// GetTickers returns the 24h ticker of every linear perpetual
func (c *Client) GetTickers(ctx context.Context) ([]types.Ticker, error) {
	params := map[string]interface{}{
		"category": CategoryLinear,
	}

	var result tickerResult
	err := retry(ctx, c.retry, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return fmt.Errorf("failed to get tickers: %w", err)
		}
		return decodeResult(resp, &result)
	})
	if err != nil {
		return nil, err
	}

	tickers := make([]types.Ticker, 0, len(result.List))
	for _, t := range result.List {
		tickers = append(tickers, types.Ticker{
			Symbol:      t.Symbol,
			Price:       parseFloat64(t.LastPrice),
			Volume:      parseFloat64(t.Volume24h),
			QuoteVolume: parseFloat64(t.Turnover24h),
		})
	}
	return tickers, nil
}

// TopSymbols returns the n symbols with the highest 24h turnover among
// those quoted in one of quotes
func (c *Client) TopSymbols(ctx context.Context, n int, quotes []string) ([]string, error) {
	tickers, err := c.GetTickers(ctx)
	if err != nil {
		return nil, err
	}
	return types.RankByQuoteVolume(tickers, n, quotes), nil
}
