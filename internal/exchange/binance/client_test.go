package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fapi/v1/klines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		_, _ = w.Write([]byte(`[
			[1706745600000,"100.0","110.0","95.0","105.0","12.5",1706759999999,"1300",10,"6","600","0"],
			[1706760000000,"105.0","106.0","101.0","102.0","8",1706774399999,"800",7,"4","400","0"]
		]`))
	})
	mux.HandleFunc("/fapi/v1/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"100","volume":"10","quoteVolume":"1000","closeTime":1706745600000},
			{"symbol":"ETHUSDT","lastPrice":"10","volume":"200","quoteVolume":"2000","closeTime":1706745600000},
			{"symbol":"ETHUSDT_240329","lastPrice":"10","volume":"900","quoteVolume":"9000","closeTime":1706745600000},
			{"symbol":"OLDUSDT","lastPrice":"1","volume":"5000","quoteVolume":"5000","closeTime":1706745600000}
		]`))
	})
	mux.HandleFunc("/fapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbols":[
			{"symbol":"BTCUSDT","contractType":"PERPETUAL","status":"TRADING"},
			{"symbol":"ETHUSDT","contractType":"PERPETUAL","status":"TRADING"},
			{"symbol":"ETHUSDT_240329","contractType":"CURRENT_QUARTER","status":"TRADING"},
			{"symbol":"OLDUSDT","contractType":"PERPETUAL","status":"SETTLING"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetKlines(t *testing.T) {
	c := NewClient(newTestServer(t).URL)

	candles, err := c.GetKlines(context.Background(), "BTCUSDT", "4h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, time.UnixMilli(1706745600000).UTC(), candles[0].Timestamp)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 8.0, candles[1].Volume)
}

func TestTopSymbols_OnlyTradingPerpetuals(t *testing.T) {
	c := NewClient(newTestServer(t).URL)

	symbols, err := c.TopSymbols(context.Background(), 40, []string{"USDT", "USDC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT"}, symbols)
	assert.Equal(t, "binance", c.Name())
}

func TestGetKlines_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetKlines(context.Background(), "BTCUSDT", "1h", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestParseKlines_RejectsMalformedRows(t *testing.T) {
	_, err := parseKlines([][]interface{}{{float64(1), "1", "2"}})
	assert.Error(t, err)

	_, err = parseKlines([][]interface{}{{"x", "1", "2", "3", "4", "5"}})
	assert.Error(t, err)
}
