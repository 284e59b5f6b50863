package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

var (
	// ErrDegenerateVolatility is returned when ATR is zero or not a finite number
	ErrDegenerateVolatility = errors.New("degenerate volatility")
	ErrInvalidEntry         = errors.New("invalid entry price")
)

// minATR is the smallest ATR treated as real volatility
const minATR = 1e-12

// Config controls position sizing. It is fixed for the lifetime of the process.
type Config struct {
	RiskAmount       float64 `json:"risk_amount"`
	Leverage         float64 `json:"leverage"`
	StopMultiplier   float64 `json:"stop_multiplier"`
	TargetMultiplier float64 `json:"target_multiplier"`
}

// DefaultConfig returns $100 risk per trade at 10x with 2.5/6 ATR stop/target
func DefaultConfig() Config {
	return Config{
		RiskAmount:       100,
		Leverage:         10,
		StopMultiplier:   2.5,
		TargetMultiplier: 6,
	}
}

// Validate checks the sizing parameters
func (c Config) Validate() error {
	if c.RiskAmount <= 0 {
		return fmt.Errorf("risk_amount must be positive, got %v", c.RiskAmount)
	}
	if c.Leverage < 1 {
		return fmt.Errorf("leverage must be at least 1, got %v", c.Leverage)
	}
	if c.StopMultiplier <= 0 || c.TargetMultiplier <= 0 {
		return fmt.Errorf("stop and target multipliers must be positive")
	}
	return nil
}

// OrderPlan is a fully sized order ready to submit
type OrderPlan struct {
	Symbol     string
	Strategy   strategy.Name
	Direction  strategy.Direction
	Entry      float64
	Quantity   float64
	Notional   float64
	Margin     float64
	Leverage   float64
	Stop       float64
	Target     float64
	RiskAmount float64
	ATR        float64
	Interval   string
	Indicators map[string]float64
	CreatedAt  time.Time
}

// StopDistance returns |entry - stop|
func (p OrderPlan) StopDistance() float64 {
	return math.Abs(p.Entry - p.Stop)
}

// TargetDistance returns |target - entry|
func (p OrderPlan) TargetDistance() float64 {
	return math.Abs(p.Target - p.Entry)
}

// Sizer turns signals into order plans with a fixed dollar risk
type Sizer struct {
	cfg Config
}

// NewSizer creates a sizer
func NewSizer(cfg Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// Config returns the sizing parameters
func (s *Sizer) Config() Config {
	return s.cfg
}

// Plan sizes sig using the ATR from snap
func (s *Sizer) Plan(sig *strategy.Signal, snap *indicators.Snapshot) (OrderPlan, error) {
	atr, err := snap.Value(indicators.KeyATR)
	if err != nil {
		return OrderPlan{}, err
	}
	return s.PlanWithATR(sig, atr)
}

// PlanWithATR sizes sig so that a stop-out loses exactly the configured risk amount
func (s *Sizer) PlanWithATR(sig *strategy.Signal, atr float64) (OrderPlan, error) {
	if math.IsNaN(atr) || math.IsInf(atr, 0) || atr <= minATR {
		return OrderPlan{}, fmt.Errorf("%w: ATR %v for %s", ErrDegenerateVolatility, atr, sig.Symbol)
	}
	entry := sig.Price
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return OrderPlan{}, fmt.Errorf("%w: %v for %s", ErrInvalidEntry, entry, sig.Symbol)
	}

	stopDistance := s.cfg.StopMultiplier * atr
	targetDistance := s.cfg.TargetMultiplier * atr

	var stop, target float64
	switch sig.Direction {
	case strategy.Long:
		stop = entry - stopDistance
		target = entry + targetDistance
		if stop <= 0 {
			return OrderPlan{}, fmt.Errorf("%w: stop %.6g below zero for %s", ErrInvalidEntry, stop, sig.Symbol)
		}
	case strategy.Short:
		stop = entry + stopDistance
		target = entry - targetDistance
		// a short target below zero is unreachable but still a valid bracket
	default:
		return OrderPlan{}, fmt.Errorf("unknown direction %q for %s", sig.Direction, sig.Symbol)
	}

	quantity := s.cfg.RiskAmount / stopDistance
	notional := quantity * entry

	return OrderPlan{
		Symbol:     sig.Symbol,
		Strategy:   sig.Strategy,
		Direction:  sig.Direction,
		Entry:      entry,
		Quantity:   quantity,
		Notional:   notional,
		Margin:     notional / s.cfg.Leverage,
		Leverage:   s.cfg.Leverage,
		Stop:       stop,
		Target:     target,
		RiskAmount: s.cfg.RiskAmount,
		ATR:        atr,
		Interval:   sig.Interval,
		Indicators: sig.Indicators,
		CreatedAt:  sig.Timestamp,
	}, nil
}
