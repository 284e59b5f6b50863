package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
)

var (
	// ErrConflictingSignals is returned when strategies disagree on direction for one instrument
	ErrConflictingSignals = errors.New("conflicting signal directions")
	ErrUnknownStrategy    = errors.New("unknown strategy")
)

// Direction is the side of a position
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Opposite returns the other side
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// Name identifies one of the fixed set of strategies
type Name string

const (
	Impulse Name = "impulse"
	Extreme Name = "extreme"
	Trend   Name = "trend"
)

// Priority is the tie-break order when several strategies fire in one cycle
var Priority = []Name{Impulse, Extreme, Trend}

// Valid reports whether n is a known strategy
func (n Name) Valid() bool {
	switch n {
	case Impulse, Extreme, Trend:
		return true
	}
	return false
}

func (n Name) rank() int {
	for i, p := range Priority {
		if p == n {
			return i
		}
	}
	return len(Priority)
}

// ParseName converts a configured strategy name
func ParseName(s string) (Name, error) {
	n := Name(s)
	if !n.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return n, nil
}

// DefaultTimeframes maps each strategy to the candle interval it evaluates
func DefaultTimeframes() map[Name]string {
	return map[Name]string{
		Impulse: "15m",
		Extreme: "1h",
		Trend:   "4h",
	}
}

// Signal is an entry recommendation produced by one strategy
type Signal struct {
	Symbol     string
	Strategy   Name
	Direction  Direction
	Price      float64
	Interval   string
	Reason     string
	Strength   float64 // 0..1, how far past its threshold the deciding indicator is
	Indicators map[string]float64
	Timestamp  time.Time
}

// String renders the signal for logs
func (s *Signal) String() string {
	return fmt.Sprintf("%s %s %s @ %.6g strength %.2f (%s)", s.Symbol, s.Strategy, s.Direction, s.Price, s.Strength, s.Reason)
}

// Thresholds are the decision levels of the strategies
type Thresholds struct {
	ImpulseRSIMid     float64 `json:"impulse_rsi_mid"`
	ExtremeOversold   float64 `json:"extreme_oversold"`
	ExtremeOverbought float64 `json:"extreme_overbought"`
	TrendADXMin       float64 `json:"trend_adx_min"`
}

// DefaultThresholds returns the standard decision levels
func DefaultThresholds() Thresholds {
	return Thresholds{
		ImpulseRSIMid:     50,
		ExtremeOversold:   20,
		ExtremeOverbought: 80,
		TrendADXMin:       25,
	}
}

// Evaluator runs the strategies against indicator snapshots
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator with the given thresholds
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate applies strategy name to snap. It returns (nil, nil) when the
// strategy does not fire and an error wrapping indicators.ErrInsufficientData
// when a required indicator is unavailable.
func (e *Evaluator) Evaluate(name Name, snap *indicators.Snapshot) (*Signal, error) {
	switch name {
	case Impulse:
		return e.impulse(snap)
	case Extreme:
		return e.extreme(snap)
	case Trend:
		return e.trend(snap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Select resolves the signals fired for one instrument in one cycle.
// Disagreeing directions suppress the entry; otherwise the highest
// priority strategy wins.
func Select(signals []*Signal) (*Signal, error) {
	var winner *Signal
	for _, s := range signals {
		if s == nil {
			continue
		}
		if winner == nil {
			winner = s
			continue
		}
		if s.Direction != winner.Direction {
			return nil, fmt.Errorf("%w: %s %s vs %s %s", ErrConflictingSignals,
				winner.Strategy, winner.Direction, s.Strategy, s.Direction)
		}
		if s.Strategy.rank() < winner.Strategy.rank() {
			winner = s
		}
	}
	return winner, nil
}

func newSignal(name Name, dir Direction, snap *indicators.Snapshot, price, strength float64, reason string, keys ...indicators.Key) *Signal {
	return &Signal{
		Strength:   clamp01(strength),
		Symbol:     snap.Symbol,
		Strategy:   name,
		Direction:  dir,
		Price:      price,
		Interval:   snap.Interval,
		Reason:     reason,
		Indicators: snap.Pick(keys...),
		Timestamp:  snap.Time,
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func withPrev(snap *indicators.Snapshot, key indicators.Key) (indicators.Reading, error) {
	r, err := snap.Get(key)
	if err != nil {
		return r, err
	}
	if !r.HasPrev {
		return r, fmt.Errorf("%w: %s has no previous bar", indicators.ErrInsufficientData, key)
	}
	return r, nil
}
