package indicators

import (
	"math"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// ATR is the Average True Range with Wilder smoothing
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// GetRequiredPeriods returns the minimum number of candles needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}

// Series returns ATR values; the first is the mean of the first 'period' true ranges
func (a *ATR) Series(data []types.OHLCV) ([]float64, error) {
	if a.period <= 0 || len(data) < a.period+1 {
		return nil, insufficient("ATR", a.period+1, len(data))
	}

	tr := trueRanges(data)
	atr := 0.0
	for i := 0; i < a.period; i++ {
		atr += tr[i]
	}
	atr /= float64(a.period)

	out := make([]float64, 0, len(tr)-a.period+1)
	out = append(out, atr)
	p := float64(a.period)
	for i := a.period; i < len(tr); i++ {
		atr = (atr*(p-1) + tr[i]) / p
		out = append(out, atr)
	}
	return out, nil
}

// Calculate returns the latest ATR
func (a *ATR) Calculate(data []types.OHLCV) (float64, error) {
	series, err := a.Series(data)
	if err != nil {
		return 0, err
	}
	return last(series), nil
}

// trueRanges returns one true range per candle after the first
func trueRanges(data []types.OHLCV) []float64 {
	out := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		prevClose := data[i-1].Close
		hl := data[i].High - data[i].Low
		hc := math.Abs(data[i].High - prevClose)
		lc := math.Abs(data[i].Low - prevClose)
		out = append(out, math.Max(hl, math.Max(hc, lc)))
	}
	return out
}
