package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-signal-bot/internal/safety"
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// Config controls fetch concurrency and pacing
type Config struct {
	Concurrency      int           `json:"concurrency"`
	Timeout          time.Duration `json:"-"`
	RequestsPerSec   float64       `json:"requests_per_sec"`
	Burst            int           `json:"burst"`
	BreakerThreshold uint32        `json:"breaker_threshold"`
	BreakerCooldown  time.Duration `json:"-"`
}

// DefaultConfig returns five workers, a 15s per-request timeout and 10 req/s
func DefaultConfig() Config {
	return Config{
		Concurrency:      5,
		Timeout:          15 * time.Second,
		RequestsPerSec:   10,
		Burst:            10,
		BreakerThreshold: 10,
		BreakerCooldown:  30 * time.Second,
	}
}

// Batch is the joined result of one fan-out. Every request has exactly one
// entry in either Series or Errors.
type Batch struct {
	Series   map[string]*types.CandleSeries
	Errors   map[string]error
	Duration time.Duration
}

// Get returns the series for symbol and interval or the error that replaced it
func (b *Batch) Get(symbol, interval string) (*types.CandleSeries, error) {
	key := SeriesKey(symbol, interval)
	if s, ok := b.Series[key]; ok {
		return s, nil
	}
	if err, ok := b.Errors[key]; ok {
		return nil, err
	}
	return nil, &FetchError{Symbol: symbol, Interval: interval, Err: errors.New("not requested")}
}

// Fetcher retrieves candle series concurrently with bounded parallelism
type Fetcher struct {
	source  Source
	cfg     Config
	limiter *safety.RateLimiter
	breaker *safety.CircuitBreaker // guards universe listing only; kline failures stay per request
	logger  *logger.Logger
}

// NewFetcher creates a fetcher over source
func NewFetcher(source Source, cfg Config, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	breaker := safety.NewCircuitBreaker(source.Name()+"-universe", safety.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		Timeout:          cfg.BreakerCooldown,
	})
	breaker.SetStateChangeCallback(func(name string, from, to safety.CircuitBreakerState) {
		log.Warning("circuit %s: %s -> %s", name, from, to)
	})
	return &Fetcher{
		source:  source,
		cfg:     cfg,
		limiter: safety.NewRateLimiter(source.Name(), cfg.Burst, cfg.RequestsPerSec),
		breaker: breaker,
		logger:  log,
	}
}

// FetchAll fetches every request and returns once all of them have finished.
// Duplicate requests are fetched once. One instrument's failure never
// affects the others.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) *Batch {
	start := time.Now()
	unique := dedupe(reqs)

	pool := newWorkerPool(f.cfg.Concurrency, len(unique), f.fetch)
	results := pool.run(ctx, unique)

	batch := &Batch{
		Series: make(map[string]*types.CandleSeries, len(results)),
		Errors: make(map[string]error),
	}
	for _, r := range results {
		monitoring.RecordFetch(r.Request.Interval, r.Err, r.Duration)
		if r.Err != nil {
			batch.Errors[r.Request.Key()] = r.Err
			continue
		}
		batch.Series[r.Request.Key()] = r.Series
	}
	batch.Duration = time.Since(start)

	f.logger.Debug("fetched %d/%d series in %s", len(batch.Series), len(unique), batch.Duration)
	return batch
}

// Universe lists the n most liquid symbols quoted in quotes
func (f *Fetcher) Universe(ctx context.Context, n int, quotes []string) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.limiter.Wait(reqCtx); err != nil {
		return nil, err
	}
	var symbols []string
	err := f.breaker.Call(func() error {
		var err error
		symbols, err = f.source.TopSymbols(reqCtx, n, quotes)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("universe from %s: %w", f.source.Name(), err)
	}
	return symbols, nil
}

func (f *Fetcher) fetch(ctx context.Context, req Request) fetchResult {
	start := time.Now()
	series, err := f.fetchOne(ctx, req)
	if err != nil {
		err = &FetchError{Symbol: req.Symbol, Interval: req.Interval, Err: err}
	}
	return fetchResult{Request: req, Series: series, Duration: time.Since(start), Err: err}
}

func (f *Fetcher) fetchOne(ctx context.Context, req Request) (*types.CandleSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := f.limiter.Wait(reqCtx); err != nil {
		return nil, err
	}

	candles, err := f.source.GetKlines(reqCtx, req.Symbol, req.Interval, req.Limit)
	if err != nil {
		return nil, err
	}

	return normalize(req, candles)
}

// normalize orders candles oldest first and enforces strictly increasing timestamps
func normalize(req Request, candles []types.OHLCV) (*types.CandleSeries, error) {
	sorted := make([]types.OHLCV, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	series := &types.CandleSeries{Symbol: req.Symbol, Interval: req.Interval, Candles: sorted}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

func dedupe(reqs []Request) []Request {
	seen := make(map[string]int, len(reqs))
	out := make([]Request, 0, len(reqs))
	for _, r := range reqs {
		if i, ok := seen[r.Key()]; ok {
			if r.Limit > out[i].Limit {
				out[i].Limit = r.Limit
			}
			continue
		}
		seen[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}
