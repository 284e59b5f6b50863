package indicators

import (
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1), // Standard EMA alpha calculation
	}
}

// Series returns the EMA over values. The first element is the SMA of the
// first 'period' values; each following element applies the EMA recurrence.
func (e *EMA) Series(values []float64) ([]float64, error) {
	if e.period <= 0 || len(values) < e.period {
		return nil, insufficient("EMA", e.period, len(values))
	}

	out := make([]float64, len(values)-e.period+1)
	sum := 0.0
	for i := 0; i < e.period; i++ {
		sum += values[i]
	}
	out[0] = sum / float64(e.period)

	for i := e.period; i < len(values); i++ {
		prev := out[i-e.period]
		// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
		out[i-e.period+1] = values[i]*e.alpha + prev*(1-e.alpha)
	}
	return out, nil
}

// Calculate calculates the latest EMA value of the closes
func (e *EMA) Calculate(data []types.OHLCV) (float64, error) {
	series, err := e.Series(closePrices(data))
	if err != nil {
		return 0, err
	}
	return last(series), nil
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}
