package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	fail     map[string]error
	slow     map[string]time.Duration
	custom   map[string][]types.OHLCV
	calls    map[string]int
	inFlight int32
	peak     int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fail:   map[string]error{},
		slow:   map[string]time.Duration{},
		custom: map[string][]types.OHLCV{},
		calls:  map[string]int{},
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[SeriesKey(symbol, interval)]++
	err := f.fail[symbol]
	delay := f.slow[symbol]
	custom, hasCustom := f.custom[symbol]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		time.Sleep(2 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}
	if hasCustom {
		return custom, nil
	}

	// newest first, like the exchange REST APIs
	candles := make([]types.OHLCV, limit)
	for i := 0; i < limit; i++ {
		candles[i] = types.OHLCV{Close: float64(limit - i), Timestamp: t0.Add(time.Duration(limit-i) * time.Minute)}
	}
	return candles, nil
}

func (f *fakeSource) TopSymbols(_ context.Context, n int, _ []string) ([]string, error) {
	all := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if n < len(all) {
		return all[:n], nil
	}
	return all, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = 3
	cfg.Timeout = 200 * time.Millisecond
	cfg.RequestsPerSec = 1000
	cfg.Burst = 1000
	cfg.BreakerThreshold = 100
	return cfg
}

func requests(symbols ...string) []Request {
	out := make([]Request, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, Request{Symbol: s, Interval: "1h", Limit: 50})
	}
	return out
}

func TestFetchAll_SortsAndValidates(t *testing.T) {
	src := newFakeSource()
	batch := NewFetcher(src, testConfig(), nil).FetchAll(context.Background(), requests("BTCUSDT"))

	series, err := batch.Get("BTCUSDT", "1h")
	require.NoError(t, err)
	require.Equal(t, 50, series.Len())
	assert.True(t, series.Candles[0].Timestamp.Before(series.Candles[49].Timestamp))
	assert.Equal(t, 50.0, series.Candles[49].Close)
}

func TestFetchAll_FailureIsIsolated(t *testing.T) {
	src := newFakeSource()
	src.fail["BADUSDT"] = errors.New("symbol not found")

	batch := NewFetcher(src, testConfig(), nil).FetchAll(context.Background(),
		requests("BTCUSDT", "BADUSDT", "ETHUSDT"))

	assert.Len(t, batch.Series, 2)
	require.Len(t, batch.Errors, 1)
	_, err := batch.Get("BADUSDT", "1h")
	assert.ErrorIs(t, err, ErrFetch)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "BADUSDT", fe.Symbol)
}

func TestFetchAll_TimeoutBecomesFetchError(t *testing.T) {
	src := newFakeSource()
	src.slow["SLOWUSDT"] = time.Second

	batch := NewFetcher(src, testConfig(), nil).FetchAll(context.Background(),
		requests("SLOWUSDT", "BTCUSDT"))

	_, err := batch.Get("SLOWUSDT", "1h")
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = batch.Get("BTCUSDT", "1h")
	assert.NoError(t, err)
}

func TestFetchAll_RejectsDuplicateTimestamps(t *testing.T) {
	src := newFakeSource()
	src.custom["DUPUSDT"] = []types.OHLCV{
		{Close: 1, Timestamp: t0},
		{Close: 2, Timestamp: t0},
	}
	src.custom["EMPTYUSDT"] = nil

	batch := NewFetcher(src, testConfig(), nil).FetchAll(context.Background(),
		requests("DUPUSDT", "EMPTYUSDT"))
	assert.Len(t, batch.Errors, 2)
}

func TestFetchAll_BoundedConcurrencyAndDedupe(t *testing.T) {
	src := newFakeSource()
	symbols := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		symbols = append(symbols, fmt.Sprintf("S%02dUSDT", i))
	}
	reqs := append(requests(symbols...), requests(symbols[0])...)

	batch := NewFetcher(src, testConfig(), nil).FetchAll(context.Background(), reqs)

	assert.Len(t, batch.Series, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(3))
	assert.Equal(t, 1, src.calls[SeriesKey(symbols[0], "1h")])
}

func TestFetchAll_CancelledContextStillJoins(t *testing.T) {
	src := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewFetcher(src, testConfig(), nil).FetchAll(ctx, requests("BTCUSDT", "ETHUSDT"))
	assert.Len(t, batch.Errors, 2)
	assert.Empty(t, batch.Series)
}

func TestUniverse(t *testing.T) {
	symbols, err := NewFetcher(newFakeSource(), testConfig(), nil).Universe(context.Background(), 2, []string{"USDT"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)
}

func TestFetchAll_FailingSymbolsDoNotStarveHealthyOnes(t *testing.T) {
	src := newFakeSource()
	cfg := testConfig()
	cfg.Concurrency = 1
	cfg.BreakerThreshold = 10

	var symbols []string
	for i := 0; i < 10; i++ {
		s := fmt.Sprintf("DELIST%dUSDT", i)
		src.fail[s] = errors.New("symbol not found")
		symbols = append(symbols, s)
	}
	symbols = append(symbols, "BTCUSDT", "ETHUSDT", "SOLUSDT")

	batch := NewFetcher(src, cfg, nil).FetchAll(context.Background(), requests(symbols...))

	assert.Len(t, batch.Errors, 10)
	for _, s := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		_, err := batch.Get(s, "1h")
		assert.NoError(t, err, s)
		assert.Equal(t, 1, src.calls[SeriesKey(s, "1h")], s)
	}
}
