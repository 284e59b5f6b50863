package indicators

import (
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// RSI calculates the Relative Strength Index with Wilder smoothing
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Series computes RSI values for prices. The result has len(prices)-period
// elements; the last one belongs to the last price.
func (r *RSI) Series(prices []float64) ([]float64, error) {
	if r.period <= 0 || len(prices) < r.period+1 {
		return nil, insufficient("RSI", r.period+1, len(prices))
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= r.period; i++ {
		gain, loss := splitChange(prices[i] - prices[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	out := make([]float64, 0, len(prices)-r.period)
	out = append(out, rsiValue(avgGain, avgLoss))

	p := float64(r.period)
	for i := r.period + 1; i < len(prices); i++ {
		gain, loss := splitChange(prices[i] - prices[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

// Calculate computes the latest RSI value of the closes
func (r *RSI) Calculate(data []types.OHLCV) (float64, error) {
	series, err := r.Series(closePrices(data))
	if err != nil {
		return 0, err
	}
	return last(series), nil
}

// GetRequiredPeriods returns the minimum number of periods needed
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
