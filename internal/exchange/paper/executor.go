package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/safety"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

// Order is a simulated fill kept for inspection
type Order struct {
	OrderID    string
	Symbol     string
	Direction  strategy.Direction
	ReduceOnly bool
	Reason     string
	Price      float64
	Quantity   float64
	Slippage   float64
	FilledAt   time.Time
}

// maxOrders bounds the fills kept for inspection
const maxOrders = 1000

// Executor simulates market orders at the reference price plus slippage.
// It never contacts an exchange. Only the latest maxOrders fills are kept.
type Executor struct {
	mu          sync.RWMutex
	orders      []Order
	orderSeq    int64
	slippageBps float64
	validator   *safety.Validator
	logger      *logger.Logger
	now         func() time.Time
}

// NewExecutor creates a paper executor. slippageBps is applied against the
// order: buys fill higher, sells lower.
func NewExecutor(slippageBps float64, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	return &Executor{
		slippageBps: slippageBps,
		validator:   safety.NewValidator(),
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// OpenPosition fills the entry order immediately
func (e *Executor) OpenPosition(ctx context.Context, plan risk.OrderPlan) (position.Fill, error) {
	return e.fill(ctx, plan.Symbol, plan.Direction, "open", plan.Entry, plan.Quantity)
}

// ClosePosition fills a reduce-only order in the opposite direction
func (e *Executor) ClosePosition(ctx context.Context, p *position.Position, price float64, reason position.CloseReason) (position.Fill, error) {
	return e.fill(ctx, p.Symbol, p.Direction.Opposite(), string(reason), price, p.Quantity)
}

// Orders returns a snapshot of all simulated fills
func (e *Executor) Orders() []Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make([]Order, len(e.orders))
	copy(cp, e.orders)
	return cp
}

func (e *Executor) fill(ctx context.Context, symbol string, side strategy.Direction, reason string, price, qty float64) (position.Fill, error) {
	if err := ctx.Err(); err != nil {
		return position.Fill{}, err
	}
	if err := e.validator.ValidateOrder(symbol, price, qty); err != nil {
		return position.Fill{}, err
	}
	reduceOnly := reason != "open"

	slippage := price * e.slippageBps / 10000
	fillPrice := price + slippage
	if side == strategy.Short {
		fillPrice = price - slippage
	}

	e.mu.Lock()
	e.orderSeq++
	order := Order{
		OrderID:    fmt.Sprintf("PAPER-%d", e.orderSeq),
		Symbol:     symbol,
		Direction:  side,
		ReduceOnly: reduceOnly,
		Reason:     reason,
		Price:      fillPrice,
		Quantity:   qty,
		Slippage:   slippage,
		FilledAt:   e.now(),
	}
	e.orders = append(e.orders, order)
	if len(e.orders) > maxOrders {
		e.orders = e.orders[len(e.orders)-maxOrders:]
	}
	e.mu.Unlock()

	e.logger.Debug("[paper] %s %s qty=%.6f price=%.6f (slip=%.6f) order=%s %s",
		side, symbol, qty, fillPrice, slippage, order.OrderID, reason)

	return position.Fill{
		OrderID:  order.OrderID,
		Price:    order.Price,
		Quantity: order.Quantity,
		Time:     order.FilledAt,
	}, nil
}
