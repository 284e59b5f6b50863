package indicators

import (
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// MACD is the Moving Average Convergence Divergence oscillator
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDPoint is one MACD observation
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// NewMACD creates a MACD with the given EMA periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// GetRequiredPeriods returns the minimum number of prices for one signal value
func (m *MACD) GetRequiredPeriods() int {
	return m.slowPeriod + m.signalPeriod - 1
}

// Series returns MACD points aligned with the signal line
func (m *MACD) Series(prices []float64) ([]MACDPoint, error) {
	need := m.GetRequiredPeriods()
	if len(prices) < need || m.fastPeriod >= m.slowPeriod {
		return nil, insufficient("MACD", need, len(prices))
	}

	fast, err := NewEMA(m.fastPeriod).Series(prices)
	if err != nil {
		return nil, err
	}
	slow, err := NewEMA(m.slowPeriod).Series(prices)
	if err != nil {
		return nil, err
	}

	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal, err := NewEMA(m.signalPeriod).Series(line)
	if err != nil {
		return nil, insufficient("MACD", need, len(prices))
	}

	offset = len(line) - len(signal)
	out := make([]MACDPoint, len(signal))
	for i := range signal {
		macd := line[i+offset]
		out[i] = MACDPoint{MACD: macd, Signal: signal[i], Histogram: macd - signal[i]}
	}
	return out, nil
}

// Calculate returns the latest MACD point of the closes
func (m *MACD) Calculate(data []types.OHLCV) (MACDPoint, error) {
	series, err := m.Series(closePrices(data))
	if err != nil {
		return MACDPoint{}, err
	}
	return series[len(series)-1], nil
}
