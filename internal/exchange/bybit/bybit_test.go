package bybit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

func TestToBybitInterval(t *testing.T) {
	for in, want := range map[string]string{"15m": "15", "1h": "60", "4h": "240"} {
		got, err := ToBybitInterval(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ToBybitInterval("7m")
	assert.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		RetMsg:  "OK",
		Result: map[string]interface{}{
			"category": "linear",
			"symbol":   "BTCUSDT",
			"list": []interface{}{
				[]interface{}{"1706745600000", "100", "110", "95", "105", "12.5", "1300"},
				[]interface{}{"1706742000000", "90", "101", "89", "100", "10", "1000"},
			},
		},
	}

	var result klineResult
	require.NoError(t, decodeResult(resp, &result))
	candles, err := parseKlines(result)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.UnixMilli(1706745600000).UTC(), candles[0].Timestamp)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 95.0, candles[0].Low)
	assert.Equal(t, 12.5, candles[0].Volume)
}

func TestDecodeResult_APIError(t *testing.T) {
	resp := &bybit_api.ServerResponse{RetCode: ErrCodeRateLimitExceeded, RetMsg: "Too many visits"}

	var result klineResult
	err := decodeResult(resp, &result)
	require.Error(t, err)
	assert.True(t, IsRetryableError(err))
	assert.False(t, IsAuthenticationError(err))

	assert.Error(t, decodeResult("not a response", &result))
}

func TestParseKlines_ShortRow(t *testing.T) {
	_, err := parseKlines(klineResult{List: [][]string{{"1", "2"}}})
	assert.Error(t, err)
}

func TestRoundQuantity(t *testing.T) {
	info := &InstrumentInfo{Symbol: "ETHUSDT"}
	info.LotSizeFilter.QtyStep = "0.01"
	info.LotSizeFilter.MinOrderQty = "0.01"
	info.LotSizeFilter.MaxMktOrderQty = "500"

	qty, err := info.RoundQuantity(1.23789)
	require.NoError(t, err)
	assert.Equal(t, "1.23", qty)

	qty, err = info.RoundQuantity(0.3)
	require.NoError(t, err)
	assert.Equal(t, "0.30", qty)

	qty, err = info.RoundQuantity(9000)
	require.NoError(t, err)
	assert.Equal(t, "500.00", qty)

	_, err = info.RoundQuantity(0.004)
	assert.Error(t, err)
}

func TestStepDecimals(t *testing.T) {
	assert.Equal(t, 3, stepDecimals("0.001"))
	assert.Equal(t, 0, stepDecimals("1"))
	assert.Equal(t, 1, stepDecimals("0.10"))
}

func TestMarketOrderParams(t *testing.T) {
	open := marketOrderParams("BTCUSDT", sideFor(strategy.Short), "0.010", false, orderLinkID("open"))
	assert.Equal(t, "Sell", open["side"])
	assert.Equal(t, "linear", open["category"])
	assert.NotContains(t, open, "reduceOnly")
	assert.NotEmpty(t, open["orderLinkId"])

	closing := marketOrderParams("BTCUSDT", sideFor(strategy.Short.Opposite()), "0.010", true, orderLinkID("take_profit"))
	assert.Equal(t, "Buy", closing["side"])
	assert.Equal(t, true, closing["reduceOnly"])
	assert.NotEqual(t, open["orderLinkId"], closing["orderLinkId"])
	assert.True(t, strings.HasPrefix(open["orderLinkId"].(string), "open-"))
	assert.True(t, strings.HasPrefix(closing["orderLinkId"].(string), "take_profit-"))
	assert.LessOrEqual(t, len(closing["orderLinkId"].(string)), 36)
}

func TestEnsureIsolated(t *testing.T) {
	var switches int32
	var retCode atomic.Int32
	retCode.Store(ErrCodeMarginNotModified)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/position/switch-isolated", r.URL.Path)
		atomic.AddInt32(&switches, 1)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"tradeMode":1`)
		fmt.Fprintf(w, `{"retCode":%d,"retMsg":"","result":{}}`, retCode.Load())
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL}, nil)
	ctx := context.Background()

	require.NoError(t, c.ensureIsolated(ctx, "BTCUSDT", 10))
	require.NoError(t, c.ensureIsolated(ctx, "BTCUSDT", 10))
	assert.Equal(t, int32(1), atomic.LoadInt32(&switches), "switched once per symbol")

	retCode.Store(ErrCodePermissionDenied)
	err := c.ensureIsolated(ctx, "ETHUSDT", 10)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&switches))

	retCode.Store(0)
	require.NoError(t, c.ensureIsolated(ctx, "ETHUSDT", 10))
	assert.Equal(t, int32(3), atomic.LoadInt32(&switches), "a failed switch is attempted again")
}

func TestGetKlines_SingleAttemptPerCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		atomic.AddInt32(&hits, 1)
		fmt.Fprintf(w, `{"retCode":%d,"retMsg":"too many visits","result":{}}`, ErrCodeRateLimitExceeded)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)

	_, err := c.GetKlines(context.Background(), "BTCUSDT", "15m", 100)
	require.Error(t, err)
	assert.True(t, IsRetryableError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "retryable codes are not retried within the call")
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}

	calls := 0
	err := retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return &BybitError{Code: ErrCodeRateLimitExceeded}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	fatal := errors.New("symbol invalid")
	err = retry(context.Background(), cfg, func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestOpenPosition_RequiresCredentials(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.Equal(t, "bybit", c.Name())
	assert.Equal(t, "mainnet", c.GetEnvironment())
	assert.False(t, c.HasCredentials())
}
