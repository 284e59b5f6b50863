package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// Row is the flat form of a lifecycle event shared by every sink
type Row struct {
	Action      position.Action `json:"action"`
	PositionID  string          `json:"position_id"`
	Symbol      string          `json:"symbol"`
	Strategy    string          `json:"strategy"`
	Direction   string          `json:"direction"`
	OrderID     string          `json:"order_id,omitempty"`
	Entry       float64         `json:"entry_price"`
	Exit        float64         `json:"exit_price,omitempty"`
	Quantity    float64         `json:"quantity"`
	Leverage    float64         `json:"leverage"`
	Stop        float64         `json:"stop_price,omitempty"`
	Target      float64         `json:"target_price,omitempty"`
	Commission  float64         `json:"commission,omitempty"`
	PnLAmount   float64         `json:"pnl_amount,omitempty"`
	PnLPct      float64         `json:"pnl_pct,omitempty"`
	CloseReason string          `json:"close_reason,omitempty"`
	Indicators  string          `json:"indicators,omitempty"`
	OpenedAt    time.Time       `json:"opened_at"`
	EventAt     time.Time       `json:"event_at"`
}

func rowFromEvent(ev position.Event) (Row, error) {
	row := Row{Action: ev.Action, EventAt: ev.Time.UTC()}

	var indicators map[string]float64
	switch ev.Action {
	case position.ActionOpen:
		p := ev.Position
		if p == nil {
			return Row{}, fmt.Errorf("open event without position")
		}
		row.PositionID = p.ID
		row.Symbol = p.Symbol
		row.Strategy = string(p.Strategy)
		row.Direction = string(p.Direction)
		row.OrderID = p.OrderID
		row.Entry = p.Entry
		row.Quantity = p.Quantity
		row.Leverage = p.Leverage
		row.Stop = p.Stop
		row.Target = p.Target
		row.OpenedAt = p.OpenedAt.UTC()
		indicators = p.Indicators
	case position.ActionClose:
		t := ev.Trade
		if t == nil {
			return Row{}, fmt.Errorf("close event without trade")
		}
		row.PositionID = t.PositionID
		row.Symbol = t.Symbol
		row.Strategy = string(t.Strategy)
		row.Direction = string(t.Direction)
		row.Entry = t.Entry
		row.Exit = t.Exit
		row.Quantity = t.Quantity
		row.Leverage = t.Leverage
		row.Commission = t.Commission
		row.PnLAmount = t.PnLAmount
		row.PnLPct = t.PnLPct
		row.CloseReason = string(t.CloseReason)
		row.OpenedAt = t.OpenedAt.UTC()
		indicators = t.Indicators
	default:
		return Row{}, fmt.Errorf("unknown action %q", ev.Action)
	}

	if len(indicators) > 0 {
		b, err := json.Marshal(indicators)
		if err != nil {
			return Row{}, err
		}
		row.Indicators = string(b)
	}
	return row, nil
}
