package strategy

import (
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
)

// extreme is a mean-reversion entry at the Bollinger envelope confirmed by StochRSI
func (e *Evaluator) extreme(snap *indicators.Snapshot) (*Signal, error) {
	price, err := snap.Value(indicators.KeyClose)
	if err != nil {
		return nil, err
	}
	upper, err := snap.Value(indicators.KeyBBUpper)
	if err != nil {
		return nil, err
	}
	lower, err := snap.Value(indicators.KeyBBLower)
	if err != nil {
		return nil, err
	}
	k, err := snap.Value(indicators.KeyStochK)
	if err != nil {
		return nil, err
	}

	keys := []indicators.Key{indicators.KeyClose, indicators.KeyBBUpper, indicators.KeyBBLower, indicators.KeyStochK}

	if price <= lower && k < e.thresholds.ExtremeOversold {
		reason := fmt.Sprintf("close at lower band %.6g, StochRSI %.1f oversold", lower, k)
		oversold := e.thresholds.ExtremeOversold
		return newSignal(Extreme, Long, snap, price, (oversold-k)/oversold, reason, keys...), nil
	}
	if price >= upper && k > e.thresholds.ExtremeOverbought {
		reason := fmt.Sprintf("close at upper band %.6g, StochRSI %.1f overbought", upper, k)
		overbought := e.thresholds.ExtremeOverbought
		return newSignal(Extreme, Short, snap, price, (k-overbought)/(100-overbought), reason, keys...), nil
	}
	return nil, nil
}
