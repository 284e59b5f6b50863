package bybit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// sideFor maps a position direction to the order side that opens it
func sideFor(dir strategy.Direction) OrderSide {
	if dir == strategy.Short {
		return OrderSideSell
	}
	return OrderSideBuy
}

// orderLinkID prefixes a random id with tag, within Bybit's 36 character limit
func orderLinkID(tag string) string {
	id := tag + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if len(id) > 36 {
		id = id[:36]
	}
	return id
}

// marketOrderParams builds /v5/order/create parameters for a linear market order
func marketOrderParams(symbol string, side OrderSide, qty string, reduceOnly bool, linkID string) map[string]interface{} {
	params := map[string]interface{}{
		"category":    CategoryLinear,
		"symbol":      symbol,
		"side":        string(side),
		"orderType":   "Market",
		"qty":         qty,
		"orderLinkId": linkID,
	}
	if reduceOnly {
		params["reduceOnly"] = true
	}
	return params
}

// OpenPosition switches the symbol to isolated margin and sets its leverage,
// then places a market order for the plan's quantity rounded to the lot step
func (c *Client) OpenPosition(ctx context.Context, plan risk.OrderPlan) (position.Fill, error) {
	if !c.HasCredentials() {
		return position.Fill{}, fmt.Errorf("bybit: API key and secret are required for trading")
	}
	if err := c.validator.ValidateOrder(plan.Symbol, plan.Entry, plan.Quantity); err != nil {
		return position.Fill{}, err
	}

	info, err := c.instruments.GetInstrumentInfo(ctx, plan.Symbol)
	if err != nil {
		return position.Fill{}, err
	}
	qty, err := info.RoundQuantity(plan.Quantity)
	if err != nil {
		return position.Fill{}, err
	}

	leverage := plan.Leverage
	if maxLev := info.MaxLeverage(); maxLev > 0 && leverage > maxLev {
		c.logger.Warning("%s: leverage %.0fx capped at exchange maximum %.0fx", plan.Symbol, leverage, maxLev)
		leverage = maxLev
	}
	if err := c.ensureIsolated(ctx, plan.Symbol, leverage); err != nil {
		return position.Fill{}, err
	}
	if err := c.ensureLeverage(ctx, plan.Symbol, leverage); err != nil {
		return position.Fill{}, err
	}

	params := marketOrderParams(plan.Symbol, sideFor(plan.Direction), qty, false, orderLinkID("open"))
	return c.placeMarketOrder(ctx, params, plan.Entry)
}

// ClosePosition places a reduce-only market order against the position,
// tagged with the exit reason
func (c *Client) ClosePosition(ctx context.Context, p *position.Position, price float64, reason position.CloseReason) (position.Fill, error) {
	if !c.HasCredentials() {
		return position.Fill{}, fmt.Errorf("bybit: API key and secret are required for trading")
	}
	if err := c.validator.ValidateOrder(p.Symbol, price, p.Quantity); err != nil {
		return position.Fill{}, err
	}

	c.logger.Info("%s: closing %s position on %s", p.Symbol, p.Direction, reason)
	side := sideFor(p.Direction.Opposite())
	params := marketOrderParams(p.Symbol, side, formatFloat(p.Quantity), true, orderLinkID(string(reason)))
	return c.placeMarketOrder(ctx, params, price)
}

// placeMarketOrder submits the order and resolves its average fill price,
// falling back to the reference price when the order is not yet visible
func (c *Client) placeMarketOrder(ctx context.Context, params map[string]interface{}, reference float64) (position.Fill, error) {
	resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return position.Fill{}, fmt.Errorf("failed to place order: %w", err)
	}
	var order orderResult
	if err := decodeResult(resp, &order); err != nil {
		return position.Fill{}, fmt.Errorf("order %s %s rejected: %w", params["symbol"], params["side"], err)
	}

	fill := position.Fill{
		OrderID:  order.OrderID,
		Price:    reference,
		Quantity: parseFloat64(params["qty"].(string)),
		Time:     time.Now().UTC(),
	}

	avg, execQty, err := c.orderExecution(ctx, params["symbol"].(string), order.OrderID)
	if err != nil {
		c.logger.Warning("order %s placed, fill lookup failed: %v", order.OrderID, err)
		return fill, nil
	}
	if avg > 0 {
		fill.Price = avg
	}
	if execQty > 0 {
		fill.Quantity = execQty
	}
	return fill, nil
}

// orderExecution returns the average price and executed quantity of an order
func (c *Client) orderExecution(ctx context.Context, symbol, orderID string) (float64, float64, error) {
	params := map[string]interface{}{
		"category": CategoryLinear,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return 0, 0, err
	}
	var result orderListResult
	if err := decodeResult(resp, &result); err != nil {
		return 0, 0, err
	}
	for _, o := range result.List {
		if o.OrderID == orderID {
			return parseFloat64(o.AvgPrice), parseFloat64(o.CumExecQty), nil
		}
	}
	return 0, 0, fmt.Errorf("order %s not found", orderID)
}

// ensureLeverage applies leverage to symbol once per process. "Leverage not
// modified" counts as success.
func (c *Client) ensureLeverage(ctx context.Context, symbol string, leverage float64) error {
	c.mu.Lock()
	current, ok := c.leverage[symbol]
	c.mu.Unlock()
	if ok && math.Abs(current-leverage) < 1e-9 {
		return nil
	}

	lev := formatFloat(leverage)
	params := map[string]interface{}{
		"category":     CategoryLinear,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	err := retry(ctx, c.retry, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).SetPositionLeverage(ctx)
		if err != nil {
			return fmt.Errorf("failed to set leverage: %w", err)
		}
		var ignored map[string]interface{}
		return decodeResult(resp, &ignored)
	})
	if err != nil && !hasCode(err, ErrCodeLeverageNotModified) {
		return err
	}

	c.mu.Lock()
	c.leverage[symbol] = leverage
	c.mu.Unlock()
	c.logger.Info("%s leverage set to %sx", symbol, lev)
	return nil
}

// ensureIsolated switches symbol to isolated margin once per process. A
// symbol already isolated counts as success.
func (c *Client) ensureIsolated(ctx context.Context, symbol string, leverage float64) error {
	c.mu.Lock()
	done := c.isolated[symbol]
	c.mu.Unlock()
	if done {
		return nil
	}

	lev := formatFloat(leverage)
	params := map[string]interface{}{
		"category":     CategoryLinear,
		"symbol":       symbol,
		"tradeMode":    1, // 0 cross, 1 isolated
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	err := retry(ctx, c.retry, func() error {
		resp, err := c.httpClient.NewUtaBybitServiceWithParams(params).SwitchPositionMargin(ctx)
		if err != nil {
			return fmt.Errorf("failed to switch margin mode: %w", err)
		}
		var ignored map[string]interface{}
		return decodeResult(resp, &ignored)
	})
	if err != nil && !hasCode(err, ErrCodeMarginNotModified) {
		return err
	}

	c.mu.Lock()
	c.isolated[symbol] = true
	c.mu.Unlock()
	c.logger.Info("%s margin mode set to isolated", symbol)
	return nil
}
