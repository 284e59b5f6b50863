package position

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
)

// Config controls exit evaluation and trade accounting
type Config struct {
	Exit              ExitRules `json:"exit"`
	CommissionRate    float64   `json:"commission_rate"`
	AlertThresholdPct float64   `json:"alert_threshold_pct"`
}

// DefaultConfig returns 0.04% commission per side and alerts above 5%
func DefaultConfig() Config {
	return Config{
		Exit:              DefaultExitRules(),
		CommissionRate:    0.0004,
		AlertThresholdPct: 5,
	}
}

// Sinks are the optional collaborators notified by the manager
type Sinks struct {
	TradeLog TradeLog
	Alerts   AlertSink
	Store    Store
}

// Manager owns the open position set. It is the single writer of
// position state; all mutations happen under its lock.
type Manager struct {
	mu        sync.Mutex
	positions map[string]*Position
	executor  Executor
	sinks     Sinks
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewManager creates a manager
func NewManager(cfg Config, executor Executor, sinks Sinks, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		positions: make(map[string]*Position),
		executor:  executor,
		sinks:     sinks,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// Has reports whether symbol has a live position
func (m *Manager) Has(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.positions[symbol]
	return ok
}

// Symbols returns the held symbols in sorted order
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedSymbols()
}

// Positions returns copies of the live positions sorted by symbol
func (m *Manager) Positions() []*Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Open submits plan and installs the position once the executor confirms.
// A rejected entry leaves no trace in the position set.
func (m *Manager) Open(ctx context.Context, plan risk.OrderPlan) (*Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.positions[plan.Symbol]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPositionExists, plan.Symbol)
	}

	p := NewPosition(plan, m.now())
	m.positions[p.Symbol] = p

	fill, err := m.executor.OpenPosition(ctx, plan)
	if err != nil {
		delete(m.positions, p.Symbol)
		return nil, fmt.Errorf("%w: open %s: %v", ErrExecutionRejected, plan.Symbol, err)
	}

	p.OrderID = fill.OrderID
	if fill.Price > 0 {
		p.Entry = fill.Price
	}
	if fill.Quantity > 0 {
		p.Quantity = fill.Quantity
	}
	if !fill.Time.IsZero() {
		p.OpenedAt = fill.Time
	}
	if err := p.advance(Open); err != nil {
		delete(m.positions, p.Symbol)
		return nil, err
	}

	m.logger.LogPositionOpened(p.Symbol, string(p.Strategy), string(p.Direction), p.OrderID,
		p.Quantity, p.Entry, p.Stop, p.Target)

	m.record(ctx, Event{Action: ActionOpen, Time: p.OpenedAt, Position: p.Clone()})
	m.persist(ctx)

	return p.Clone(), nil
}

// EvaluateResult holds the outcome of one exit pass
type EvaluateResult struct {
	Closed   []TradeRecord
	Failures map[string]error
}

// Evaluate runs the exit rules for every open position that has a snapshot.
// Positions are independent: a rejected close leaves that position open
// and does not affect the others.
func (m *Manager) Evaluate(ctx context.Context, snaps map[string]*indicators.Snapshot) EvaluateResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := EvaluateResult{Failures: make(map[string]error)}
	for _, symbol := range m.sortedSymbols() {
		p := m.positions[symbol]
		if p.State != Open {
			continue
		}
		snap, ok := snaps[symbol]
		if !ok || snap == nil {
			continue
		}

		decision := Decide(p, snap, m.cfg.Exit)
		if !decision.Close {
			continue
		}

		trade, err := m.close(ctx, p, decision)
		if err != nil {
			m.logger.Warning("close %s (%s) failed: %v", symbol, decision.Reason, err)
			result.Failures[symbol] = err
			continue
		}
		result.Closed = append(result.Closed, trade)
	}

	if len(result.Closed) > 0 {
		m.persist(ctx)
	}
	return result
}

func (m *Manager) close(ctx context.Context, p *Position, d Decision) (TradeRecord, error) {
	fill, err := m.executor.ClosePosition(ctx, p.Clone(), d.Price, d.Reason)
	if err != nil {
		return TradeRecord{}, fmt.Errorf("%w: close %s: %v", ErrExecutionRejected, p.Symbol, err)
	}
	if err := p.advance(Closing); err != nil {
		return TradeRecord{}, err
	}

	exit := d.Price
	if fill.Price > 0 {
		exit = fill.Price
	}
	closedAt := fill.Time
	if closedAt.IsZero() {
		closedAt = m.now()
	}

	amount, pct, commission := ComputePnL(p.Direction, p.Entry, exit, p.Quantity, p.Leverage, m.cfg.CommissionRate)
	trade := TradeRecord{
		PositionID:  p.ID,
		Symbol:      p.Symbol,
		Strategy:    p.Strategy,
		Direction:   p.Direction,
		Entry:       p.Entry,
		Exit:        exit,
		Quantity:    p.Quantity,
		Leverage:    p.Leverage,
		Commission:  commission,
		PnLAmount:   amount,
		PnLPct:      pct,
		CloseReason: d.Reason,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    closedAt,

		EntryIndicators: p.Indicators,
		Indicators:      d.Indicators,
	}

	if err := p.advance(Closed); err != nil {
		return TradeRecord{}, err
	}
	delete(m.positions, p.Symbol)

	m.logger.LogPositionClosed(p.Symbol, string(p.Direction), string(d.Reason), p.Entry, exit, amount, pct)
	m.record(ctx, Event{Action: ActionClose, Time: closedAt, Trade: &trade})

	if m.sinks.Alerts != nil && math.Abs(pct) > m.cfg.AlertThresholdPct {
		if err := m.sinks.Alerts.Alert(ctx, trade); err != nil {
			m.logger.LogError("trade alert "+p.Symbol, err)
		}
	}
	return trade, nil
}

// Restore installs positions loaded from the store. Only Open positions are
// accepted; the rest are reported and skipped.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.sinks.Store == nil {
		return 0, nil
	}
	loaded, err := m.sinks.Store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, p := range loaded {
		if p == nil || p.State != Open || p.Symbol == "" {
			m.logger.Warning("skipping stored position: %v", ErrNotRestorable)
			continue
		}
		if _, exists := m.positions[p.Symbol]; exists {
			continue
		}
		p.history = []State{Opening, Open}
		m.positions[p.Symbol] = p
		restored++
	}
	return restored, nil
}

func (m *Manager) record(ctx context.Context, ev Event) {
	if m.sinks.TradeLog == nil {
		return
	}
	if err := m.sinks.TradeLog.Record(ctx, ev); err != nil {
		m.logger.LogError("trade log", err)
	}
}

func (m *Manager) persist(ctx context.Context) {
	if m.sinks.Store == nil {
		return
	}
	if err := m.sinks.Store.Save(ctx, m.snapshot()); err != nil {
		m.logger.LogError("persist positions", err)
	}
}

func (m *Manager) sortedSymbols() []string {
	symbols := make([]string, 0, len(m.positions))
	for s := range m.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (m *Manager) snapshot() []*Position {
	out := make([]*Position, 0, len(m.positions))
	for _, s := range m.sortedSymbols() {
		out = append(out, m.positions[s].Clone())
	}
	return out
}
