package position

import (
	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

// ExitRules configures the soft exits evaluated after the hard stop and target
type ExitRules struct {
	MACDReversal bool    `json:"macd_reversal"`
	SidewaysADX  float64 `json:"sideways_adx"`
}

// DefaultExitRules enables the MACD reversal exit and closes when ADX drops below 20
func DefaultExitRules() ExitRules {
	return ExitRules{
		MACDReversal: true,
		SidewaysADX:  20,
	}
}

// Decision is the outcome of evaluating one open position
type Decision struct {
	Close      bool
	Reason     CloseReason
	Price      float64
	Indicators map[string]float64 // exit timeframe readings, set when Close
}

// closeKeys are the readings recorded with a closed trade
var closeKeys = []indicators.Key{indicators.KeyClose, indicators.KeyMACD, indicators.KeyMACDSignal, indicators.KeyADX}

// Decide evaluates the exit rules for p against the latest snapshot of its
// exit timeframe. Priority: hard stop/target, MACD reversal, sideways ADX.
// Rules whose indicators are unavailable are skipped; without a price the
// position is held.
func Decide(p *Position, snap *indicators.Snapshot, rules ExitRules) Decision {
	price, err := snap.Value(indicators.KeyClose)
	if err != nil {
		return Decision{}
	}

	switch p.Direction {
	case strategy.Long:
		if price <= p.Stop {
			return closing(ReasonStopLoss, price, snap)
		}
		if price >= p.Target {
			return closing(ReasonTakeProfit, price, snap)
		}
	case strategy.Short:
		if price >= p.Stop {
			return closing(ReasonStopLoss, price, snap)
		}
		if price <= p.Target {
			return closing(ReasonTakeProfit, price, snap)
		}
	}

	if rules.MACDReversal && macdReversed(p.Direction, snap) {
		return closing(ReasonMACDReversal, price, snap)
	}

	if rules.SidewaysADX > 0 {
		if adx, err := snap.Value(indicators.KeyADX); err == nil && adx < rules.SidewaysADX {
			return closing(ReasonSideways, price, snap)
		}
	}

	return Decision{Price: price}
}

func closing(reason CloseReason, price float64, snap *indicators.Snapshot) Decision {
	return Decision{Close: true, Reason: reason, Price: price, Indicators: snap.Pick(closeKeys...)}
}

// macdReversed reports a MACD/signal cross against the position on the latest bar
func macdReversed(dir strategy.Direction, snap *indicators.Snapshot) bool {
	macd, err := snap.Get(indicators.KeyMACD)
	if err != nil || !macd.HasPrev {
		return false
	}
	signal, err := snap.Get(indicators.KeyMACDSignal)
	if err != nil || !signal.HasPrev {
		return false
	}

	if dir == strategy.Long {
		return macd.Prev >= signal.Prev && macd.Value < signal.Value
	}
	return macd.Prev <= signal.Prev && macd.Value > signal.Value
}
