package strategy

import (
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
)

// trend follows a fast/slow EMA crossover, only when ADX confirms a trending market
func (e *Evaluator) trend(snap *indicators.Snapshot) (*Signal, error) {
	price, err := snap.Value(indicators.KeyClose)
	if err != nil {
		return nil, err
	}
	fast, err := withPrev(snap, indicators.KeyEMAFast)
	if err != nil {
		return nil, err
	}
	slow, err := withPrev(snap, indicators.KeyEMASlow)
	if err != nil {
		return nil, err
	}
	adx, err := snap.Value(indicators.KeyADX)
	if err != nil {
		return nil, err
	}

	if adx <= e.thresholds.TrendADXMin {
		return nil, nil
	}

	keys := []indicators.Key{indicators.KeyClose, indicators.KeyEMAFast, indicators.KeyEMASlow, indicators.KeyADX}
	strength := (adx - e.thresholds.TrendADXMin) / (100 - e.thresholds.TrendADXMin)

	if fast.Prev <= slow.Prev && fast.Value > slow.Value {
		reason := fmt.Sprintf("EMA fast crossed above slow, ADX %.1f", adx)
		return newSignal(Trend, Long, snap, price, strength, reason, keys...), nil
	}
	if fast.Prev >= slow.Prev && fast.Value < slow.Value {
		reason := fmt.Sprintf("EMA fast crossed below slow, ADX %.1f", adx)
		return newSignal(Trend, Short, snap, price, strength, reason, keys...), nil
	}
	return nil, nil
}
