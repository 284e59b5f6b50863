package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	boterrors "github.com/ducminhle1904/futures-signal-bot/internal/errors"
	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/marketdata"
	"github.com/ducminhle1904/futures-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// Cycle stages reported in skips
const (
	StageFetch      = "fetch"
	StageIndicators = "indicators"
	StageSignal     = "signal"
	StageSizing     = "sizing"
	StageOpen       = "open"
	StageClose      = "close"
)

// Config selects the candle intervals and history depth of a cycle
type Config struct {
	Timeframes      map[strategy.Name]string `json:"timeframes"`
	ExitInterval    string                   `json:"exit_interval"`
	Lookback        map[string]int           `json:"lookback"`
	DefaultLookback int                      `json:"default_lookback"`
}

// DefaultConfig evaluates impulse on 15m, extreme on 1h, trend on 4h and
// manages exits on 4h. 4h keeps 300 bars so EMA200 has a previous value.
func DefaultConfig() Config {
	return Config{
		Timeframes:   strategy.DefaultTimeframes(),
		ExitInterval: "4h",
		Lookback: map[string]int{
			"15m": 200,
			"1h":  200,
			"4h":  300,
		},
		DefaultLookback: 200,
	}
}

// Validate checks that every strategy has a timeframe
func (c Config) Validate() error {
	for _, name := range strategy.Priority {
		if c.Timeframes[name] == "" {
			return fmt.Errorf("no timeframe configured for strategy %s", name)
		}
	}
	for name := range c.Timeframes {
		if _, err := strategy.ParseName(string(name)); err != nil {
			return err
		}
	}
	if c.ExitInterval == "" {
		return fmt.Errorf("exit interval is required")
	}
	if c.DefaultLookback <= 0 {
		return fmt.Errorf("default lookback must be positive, got %d", c.DefaultLookback)
	}
	for interval, n := range c.Lookback {
		if n <= 0 {
			return fmt.Errorf("lookback for %s must be positive, got %d", interval, n)
		}
	}
	return nil
}

func (c Config) limit(interval string) int {
	if n, ok := c.Lookback[interval]; ok && n > 0 {
		return n
	}
	return c.DefaultLookback
}

// Fetcher is the market data fan-out used by a cycle
type Fetcher interface {
	FetchAll(ctx context.Context, reqs []marketdata.Request) *marketdata.Batch
}

// Deps are the collaborators of an Engine
type Deps struct {
	Fetcher   Fetcher
	Evaluator *strategy.Evaluator
	Sizer     *risk.Sizer
	Manager   *position.Manager
}

// recentErrors is the window of skips kept for RepeatedRejections
const recentErrors = 50

// Engine runs decision cycles over an instrument universe
type Engine struct {
	cfg       Config
	params    indicators.Params
	fetcher   Fetcher
	evaluator *strategy.Evaluator
	sizer     *risk.Sizer
	manager   *position.Manager
	logger    *logger.Logger
	stats     *boterrors.ErrorStats

	compute func(*types.CandleSeries, indicators.Params) *indicators.Snapshot
	now     func() time.Time
}

// New creates an engine
func New(cfg Config, params indicators.Params, deps Deps, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		cfg:       cfg,
		params:    params,
		fetcher:   deps.Fetcher,
		evaluator: deps.Evaluator,
		sizer:     deps.Sizer,
		manager:   deps.Manager,
		logger:    log,
		stats:     boterrors.NewErrorStats(recentErrors),
		compute:   indicators.Compute,
		now:       time.Now,
	}
}

// Skip records an instrument dropped from one stage of a cycle
type Skip struct {
	Symbol   string
	Interval string
	Stage    string
	Category boterrors.ErrorCategory
	Err      error
}

func (s Skip) String() string {
	if s.Interval != "" {
		return fmt.Sprintf("%s %s [%s/%s]: %v", s.Symbol, s.Interval, s.Stage, s.Category, s.Err)
	}
	return fmt.Sprintf("%s [%s/%s]: %v", s.Symbol, s.Stage, s.Category, s.Err)
}

// CycleReport is the outcome of one RunCycle
type CycleReport struct {
	Started    time.Time
	Duration   time.Duration
	Universe   int
	Held       []string
	Candidates []string
	Requests   int
	Signals    []*strategy.Signal
	Opened     []*position.Position
	Closed     []position.TradeRecord
	Skips      []Skip
}

// Errors lists the skips worth surfacing. Short histories are routine and
// left out.
func (r *CycleReport) Errors() []string {
	var out []string
	for _, s := range r.Skips {
		if s.Category == boterrors.ErrorCategoryInsufficientData {
			continue
		}
		out = append(out, s.String())
	}
	return out
}

// SkipsByStage counts skips per stage
func (r *CycleReport) SkipsByStage() map[string]int {
	out := make(map[string]int)
	for _, s := range r.Skips {
		out[s.Stage]++
	}
	return out
}

func (r *CycleReport) fetchFailures() int {
	return r.SkipsByStage()[StageFetch]
}

var classifiers = []boterrors.Classifier{
	{Target: marketdata.ErrFetch, Category: boterrors.ErrorCategoryFetch},
	{Target: indicators.ErrInsufficientData, Category: boterrors.ErrorCategoryInsufficientData},
	{Target: risk.ErrDegenerateVolatility, Category: boterrors.ErrorCategoryDegenerateVolatility},
	{Target: risk.ErrInvalidEntry, Category: boterrors.ErrorCategoryValidation},
	{Target: strategy.ErrConflictingSignals, Category: boterrors.ErrorCategoryConflict},
	{Target: position.ErrExecutionRejected, Category: boterrors.ErrorCategoryExecutionRejected},
	{Target: position.ErrPositionExists, Category: boterrors.ErrorCategoryPosition},
}

// RunCycle fetches data for the universe and the held symbols, closes the
// positions whose exit rules fire and opens positions on new signals.
// No per-instrument failure aborts the cycle.
func (e *Engine) RunCycle(ctx context.Context, universe []string) *CycleReport {
	start := e.now()
	report := &CycleReport{Started: start, Universe: len(universe)}

	report.Held = e.manager.Symbols()
	report.Candidates = candidates(universe, report.Held)

	reqs := e.requests(report.Candidates, report.Held)
	report.Requests = len(reqs)
	batch := e.fetcher.FetchAll(ctx, reqs)
	e.recordFetchErrors(batch, report)

	snaps := make(map[string]*indicators.Snapshot, len(batch.Series))
	for key, series := range batch.Series {
		snap := e.compute(series, e.params)
		if missing := snap.Missing(); len(missing) > 0 {
			e.logger.Debug("%s: %d indicators unavailable %v", key, len(missing), missing)
		}
		snaps[key] = snap
	}

	e.exits(ctx, report.Held, snaps, report)
	e.entries(ctx, report.Candidates, snaps, report)

	report.Duration = e.now().Sub(start)
	monitoring.RecordCycle(report.Duration)
	monitoring.SetOpenPositions(len(e.manager.Symbols()))
	return report
}

// requests builds one request per candidate and strategy timeframe and one
// exit-timeframe request per held symbol
func (e *Engine) requests(candidates, held []string) []marketdata.Request {
	intervals := e.entryIntervals()
	reqs := make([]marketdata.Request, 0, len(candidates)*len(intervals)+len(held))
	seen := make(map[string]bool)
	add := func(symbol, interval string) {
		r := marketdata.Request{Symbol: symbol, Interval: interval, Limit: e.cfg.limit(interval)}
		if seen[r.Key()] {
			return
		}
		seen[r.Key()] = true
		reqs = append(reqs, r)
	}

	for _, symbol := range held {
		add(symbol, e.cfg.ExitInterval)
	}
	for _, symbol := range candidates {
		for _, interval := range intervals {
			add(symbol, interval)
		}
	}
	return reqs
}

func (e *Engine) entryIntervals() []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range strategy.Priority {
		interval := e.cfg.Timeframes[name]
		if interval == "" || seen[interval] {
			continue
		}
		seen[interval] = true
		out = append(out, interval)
	}
	return out
}

func (e *Engine) recordFetchErrors(batch *marketdata.Batch, report *CycleReport) {
	keys := make([]string, 0, len(batch.Errors))
	for k := range batch.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		err := batch.Errors[key]
		skip := Skip{Stage: StageFetch, Symbol: key}
		var fe *marketdata.FetchError
		if errors.As(err, &fe) {
			skip.Symbol = fe.Symbol
			skip.Interval = fe.Interval
		}
		e.skip(report, skip, err)
	}
}

func (e *Engine) exits(ctx context.Context, held []string, snaps map[string]*indicators.Snapshot, report *CycleReport) {
	if len(held) == 0 {
		return
	}
	exitSnaps := make(map[string]*indicators.Snapshot, len(held))
	for _, symbol := range held {
		if snap, ok := snaps[marketdata.SeriesKey(symbol, e.cfg.ExitInterval)]; ok {
			exitSnaps[symbol] = snap
		}
	}

	result := e.manager.Evaluate(ctx, exitSnaps)
	for _, trade := range result.Closed {
		monitoring.RecordClose(string(trade.CloseReason), trade.PnLAmount)
		report.Closed = append(report.Closed, trade)
	}

	symbols := make([]string, 0, len(result.Failures))
	for symbol := range result.Failures {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		e.skip(report, Skip{Symbol: symbol, Interval: e.cfg.ExitInterval, Stage: StageClose}, result.Failures[symbol])
	}
}

func (e *Engine) entries(ctx context.Context, candidates []string, snaps map[string]*indicators.Snapshot, report *CycleReport) {
	for _, symbol := range candidates {
		if ctx.Err() != nil {
			e.logger.Warning("cycle cancelled, %d candidates not evaluated", len(candidates))
			return
		}

		sig, err := e.signal(symbol, snaps, report)
		if err != nil {
			stage := StageSignal
			if errors.Is(err, indicators.ErrInsufficientData) {
				stage = StageIndicators
			}
			e.skip(report, Skip{Symbol: symbol, Stage: stage}, err)
			continue
		}
		if sig == nil {
			continue
		}

		plan, err := e.sizer.Plan(sig, snaps[marketdata.SeriesKey(symbol, sig.Interval)])
		if err != nil {
			e.skip(report, Skip{Symbol: symbol, Interval: sig.Interval, Stage: StageSizing}, err)
			continue
		}

		p, err := e.manager.Open(ctx, plan)
		if err != nil {
			e.skip(report, Skip{Symbol: symbol, Interval: sig.Interval, Stage: StageOpen}, err)
			continue
		}
		monitoring.RecordOpen(string(p.Strategy), string(p.Direction))
		report.Opened = append(report.Opened, p)
	}
}

// signal evaluates every strategy with a snapshot on its timeframe and
// resolves the fired signals. A strategy missing indicators is skipped
// without affecting the others.
func (e *Engine) signal(symbol string, snaps map[string]*indicators.Snapshot, report *CycleReport) (*strategy.Signal, error) {
	var (
		fired     []*strategy.Signal
		evaluated int
		lastErr   error
	)
	for _, name := range strategy.Priority {
		interval := e.cfg.Timeframes[name]
		snap, ok := snaps[marketdata.SeriesKey(symbol, interval)]
		if !ok {
			continue
		}
		sig, err := e.evaluator.Evaluate(name, snap)
		if err != nil {
			e.logger.Debug("%s %s on %s not evaluable: %v", symbol, name, interval, err)
			lastErr = err
			continue
		}
		evaluated++
		if sig == nil {
			continue
		}
		monitoring.RecordSignal(string(sig.Strategy), string(sig.Direction))
		report.Signals = append(report.Signals, sig)
		fired = append(fired, sig)
	}

	if evaluated == 0 && lastErr != nil {
		return nil, lastErr
	}
	return strategy.Select(fired)
}

func (e *Engine) skip(report *CycleReport, s Skip, err error) {
	botErr := boterrors.CategorizeError(err, "engine", s.Stage, classifiers...).
		WithContext("symbol", s.Symbol)
	s.Category = botErr.Category
	s.Err = err
	report.Skips = append(report.Skips, s)
	e.stats.RecordError(botErr)

	monitoring.RecordError(string(s.Category))
	switch {
	case s.Category == boterrors.ErrorCategoryInsufficientData:
		e.logger.Debug("skip %s", s)
	case s.Category == boterrors.ErrorCategoryExecutionRejected:
		e.logger.Warning("skip %s", s)
	default:
		switch botErr.GetRecoveryAction() {
		case boterrors.RecoveryActionStop:
			e.logger.Error("skip %s", s)
		case boterrors.RecoveryActionRetry, boterrors.RecoveryActionWait:
			e.logger.Warning("skip %s, retrying next cycle", s)
		default:
			e.logger.Info("skip %s", s)
		}
	}
}

// RepeatedRejections reports whether at least n of the recent skips were
// orders refused by the executor
func (e *Engine) RepeatedRejections(n int) bool {
	return e.stats.HasRecentErrors(boterrors.ErrorCategoryExecutionRejected, n)
}

// candidates returns the universe minus the held symbols, sorted and deduplicated
func candidates(universe, held []string) []string {
	exclude := make(map[string]bool, len(held))
	for _, s := range held {
		exclude[s] = true
	}
	out := make([]string, 0, len(universe))
	for _, s := range universe {
		if exclude[s] {
			continue
		}
		exclude[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
