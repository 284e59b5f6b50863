package strategy

import (
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
)

// impulse fires when price crosses the session VWAP with RSI momentum on the same side.
func (e *Evaluator) impulse(snap *indicators.Snapshot) (*Signal, error) {
	price, err := withPrev(snap, indicators.KeyClose)
	if err != nil {
		return nil, err
	}
	vwap, err := withPrev(snap, indicators.KeyVWAP)
	if err != nil {
		return nil, err
	}
	rsi, err := withPrev(snap, indicators.KeyRSI)
	if err != nil {
		return nil, err
	}

	mid := e.thresholds.ImpulseRSIMid
	keys := []indicators.Key{indicators.KeyClose, indicators.KeyVWAP, indicators.KeyRSI}

	crossedUp := price.Prev <= vwap.Prev && price.Value > vwap.Value
	if crossedUp && rsi.Value > mid && rsi.Value > rsi.Prev {
		reason := fmt.Sprintf("close crossed above VWAP %.6g, RSI %.1f rising", vwap.Value, rsi.Value)
		return newSignal(Impulse, Long, snap, price.Value, (rsi.Value-mid)/mid, reason, keys...), nil
	}

	crossedDown := price.Prev >= vwap.Prev && price.Value < vwap.Value
	if crossedDown && rsi.Value < mid && rsi.Value < rsi.Prev {
		reason := fmt.Sprintf("close crossed below VWAP %.6g, RSI %.1f falling", vwap.Value, rsi.Value)
		return newSignal(Impulse, Short, snap, price.Value, (mid-rsi.Value)/mid, reason, keys...), nil
	}

	return nil, nil
}
