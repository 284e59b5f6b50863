package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// DefaultBaseURL is the USDⓈ-M futures REST endpoint
const DefaultBaseURL = "https://fapi.binance.com"

// Client reads public USDⓈ-M futures market data. It does not trade.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a Binance futures market data client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Name identifies the exchange in logs and metrics
func (b *Client) Name() string {
	return "binance"
}

// GetKlines returns up to limit candles, oldest first. Binance accepts the
// canonical interval notation ("15m", "1h", "4h") as is.
func (b *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var rows [][]interface{}
	if err := b.get(ctx, "/fapi/v1/klines", q, &rows); err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}
	return parseKlines(rows)
}

func parseKlines(rows [][]interface{}) ([]types.OHLCV, error) {
	klines := make([]types.OHLCV, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields", i, len(row))
		}
		openTime, ok := row[0].(float64)
		if !ok {
			return nil, fmt.Errorf("kline row %d: bad open time %v", i, row[0])
		}

		var fields [5]float64
		for j := range fields {
			s, ok := row[j+1].(string)
			if !ok {
				return nil, fmt.Errorf("kline row %d: field %d is %T", i, j+1, row[j+1])
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d: %w", i, err)
			}
			fields[j] = v
		}

		klines = append(klines, types.OHLCV{
			Timestamp: time.UnixMilli(int64(openTime)).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return klines, nil
}

type ticker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quoteVolume"`
	CloseTime   int64  `json:"closeTime"`
}

// GetTickers returns the 24h statistics of every futures symbol
func (b *Client) GetTickers(ctx context.Context) ([]types.Ticker, error) {
	var raw []ticker24h
	if err := b.get(ctx, "/fapi/v1/ticker/24hr", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}

	tickers := make([]types.Ticker, 0, len(raw))
	for _, t := range raw {
		price, _ := strconv.ParseFloat(t.LastPrice, 64)
		volume, _ := strconv.ParseFloat(t.Volume, 64)
		quote, _ := strconv.ParseFloat(t.QuoteVolume, 64)
		tickers = append(tickers, types.Ticker{
			Symbol:      t.Symbol,
			Price:       price,
			Volume:      volume,
			QuoteVolume: quote,
			Timestamp:   time.UnixMilli(t.CloseTime).UTC(),
		})
	}
	return tickers, nil
}

// perpetuals lists the symbols currently trading as perpetual contracts
func (b *Client) perpetuals(ctx context.Context) (map[string]bool, error) {
	var info struct {
		Symbols []struct {
			Symbol       string `json:"symbol"`
			ContractType string `json:"contractType"`
			Status       string `json:"status"`
		} `json:"symbols"`
	}
	if err := b.get(ctx, "/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	out := make(map[string]bool, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.ContractType == "PERPETUAL" && s.Status == "TRADING" {
			out[s.Symbol] = true
		}
	}
	return out, nil
}

// TopSymbols returns the n trading perpetuals with the highest 24h quote
// volume among those quoted in one of quotes
func (b *Client) TopSymbols(ctx context.Context, n int, quotes []string) ([]string, error) {
	perps, err := b.perpetuals(ctx)
	if err != nil {
		return nil, err
	}
	tickers, err := b.GetTickers(ctx)
	if err != nil {
		return nil, err
	}

	filtered := tickers[:0]
	for _, t := range tickers {
		if perps[t.Symbol] {
			filtered = append(filtered, t)
		}
	}
	return types.RankByQuoteVolume(filtered, n, quotes), nil
}

func (b *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418 {
			return fmt.Errorf("rate limit: API returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("API returned status %d: %s (code %d)", resp.StatusCode, apiErr.Msg, apiErr.Code)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
