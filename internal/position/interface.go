package position

import (
	"context"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
)

// Fill is an executor's confirmation of an order
type Fill struct {
	OrderID  string
	Price    float64
	Quantity float64
	Time     time.Time
}

// Executor submits entry and exit orders. A returned error is a rejection.
// price is the reference price the exit was decided at.
type Executor interface {
	OpenPosition(ctx context.Context, plan risk.OrderPlan) (Fill, error)
	ClosePosition(ctx context.Context, p *Position, price float64, reason CloseReason) (Fill, error)
}

// Action distinguishes trade log events
type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// Event is one trade log entry. Open events carry the position, close events the trade.
type Event struct {
	Action   Action
	Time     time.Time
	Position *Position
	Trade    *TradeRecord
}

// TradeLog receives one event per open and one per close
type TradeLog interface {
	Record(ctx context.Context, ev Event) error
}

// AlertSink is notified of closed trades whose result exceeds the alert threshold
type AlertSink interface {
	Alert(ctx context.Context, trade TradeRecord) error
}

// Store persists the open position set between runs
type Store interface {
	Save(ctx context.Context, positions []*Position) error
	Load(ctx context.Context) ([]*Position, error)
}
