package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

var (
	ErrPositionExists    = errors.New("position already open for symbol")
	ErrIllegalTransition = errors.New("illegal position state transition")
	ErrExecutionRejected = errors.New("execution rejected")
	ErrNotRestorable     = errors.New("position is not restorable")
)

// State is a position lifecycle stage. States only move forward.
type State int

const (
	Opening State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Opening:
		return "OPENING"
	case Open:
		return "OPEN"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "OPENING":
		*s = Opening
	case "OPEN":
		*s = Open
	case "CLOSING":
		*s = Closing
	case "CLOSED":
		*s = Closed
	default:
		return fmt.Errorf("unknown position state %q", string(b))
	}
	return nil
}

// CloseReason records why a position was closed
type CloseReason string

const (
	ReasonStopLoss     CloseReason = "stop_loss"
	ReasonTakeProfit   CloseReason = "take_profit"
	ReasonMACDReversal CloseReason = "macd_reversal"
	ReasonSideways     CloseReason = "sideways_exit"
)

// Position is a live exposure on one instrument
type Position struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	Strategy   strategy.Name      `json:"strategy"`
	Direction  strategy.Direction `json:"direction"`
	Entry      float64            `json:"entry"`
	Quantity   float64            `json:"quantity"`
	Leverage   float64            `json:"leverage"`
	Stop       float64            `json:"stop"`
	Target     float64            `json:"target"`
	OrderID    string             `json:"order_id"`
	OpenedAt   time.Time          `json:"opened_at"`
	State      State              `json:"state"`
	Indicators map[string]float64 `json:"indicators,omitempty"`

	history []State
}

// NewPosition creates a position in the Opening state from an order plan
func NewPosition(plan risk.OrderPlan, now time.Time) *Position {
	return &Position{
		ID:         uuid.New().String(),
		Symbol:     plan.Symbol,
		Strategy:   plan.Strategy,
		Direction:  plan.Direction,
		Entry:      plan.Entry,
		Quantity:   plan.Quantity,
		Leverage:   plan.Leverage,
		Stop:       plan.Stop,
		Target:     plan.Target,
		OpenedAt:   now,
		State:      Opening,
		Indicators: plan.Indicators,
		history:    []State{Opening},
	}
}

// advance moves the position to next, which must be the immediate successor
func (p *Position) advance(next State) error {
	if p.State >= Closed || next != p.State+1 {
		return fmt.Errorf("%w: %s -> %s for %s", ErrIllegalTransition, p.State, next, p.Symbol)
	}
	p.State = next
	p.history = append(p.history, next)
	return nil
}

// History returns the sequence of states the position has passed through
func (p *Position) History() []State {
	out := make([]State, len(p.history))
	copy(out, p.history)
	return out
}

// Clone returns a copy safe to hand to other goroutines
func (p *Position) Clone() *Position {
	c := *p
	c.history = p.History()
	if p.Indicators != nil {
		c.Indicators = make(map[string]float64, len(p.Indicators))
		for k, v := range p.Indicators {
			c.Indicators[k] = v
		}
	}
	return &c
}

// TradeRecord is the realized result of a closed position
type TradeRecord struct {
	PositionID  string             `json:"position_id"`
	Symbol      string             `json:"symbol"`
	Strategy    strategy.Name      `json:"strategy"`
	Direction   strategy.Direction `json:"direction"`
	Entry       float64            `json:"entry_price"`
	Exit        float64            `json:"exit_price"`
	Quantity    float64            `json:"quantity"`
	Leverage    float64            `json:"leverage"`
	Commission  float64            `json:"commission"`
	PnLAmount   float64            `json:"pnl_amount"`
	PnLPct      float64            `json:"pnl_pct"`
	CloseReason CloseReason        `json:"close_reason"`
	OpenedAt    time.Time          `json:"opened_at"`
	ClosedAt    time.Time          `json:"closed_at"`

	EntryIndicators map[string]float64 `json:"entry_indicators,omitempty"`
	Indicators      map[string]float64 `json:"indicators,omitempty"` // at close
}

// ComputePnL returns commission-adjusted profit, its percentage of entry
// value scaled by leverage, and the commission charged. Commission is
// charged on both sides at the exit notional.
func ComputePnL(dir strategy.Direction, entry, exit, qty, leverage, commissionRate float64) (amount, pct, commission float64) {
	gross := (exit - entry) * qty
	if dir == strategy.Short {
		gross = (entry - exit) * qty
	}
	commission = exit * qty * commissionRate * 2
	amount = gross - commission

	entryValue := entry * qty
	if entryValue != 0 {
		pct = amount / entryValue * 100 * leverage
	}
	return amount, pct, commission
}
