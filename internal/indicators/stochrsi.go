package indicators

import (
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// StochasticRSI applies the stochastic oscillator to RSI values and smooths
// the result into %K and %D lines on a 0..100 scale.
type StochasticRSI struct {
	rsiPeriod   int
	stochPeriod int
	kPeriod     int
	dPeriod     int
}

// StochPoint is one %K / %D observation
type StochPoint struct {
	K float64
	D float64
}

// NewStochasticRSI creates a Stochastic RSI indicator
func NewStochasticRSI(rsiPeriod, stochPeriod, kPeriod, dPeriod int) *StochasticRSI {
	return &StochasticRSI{
		rsiPeriod:   rsiPeriod,
		stochPeriod: stochPeriod,
		kPeriod:     kPeriod,
		dPeriod:     dPeriod,
	}
}

// GetRequiredPeriods returns the minimum number of prices needed for one %D value
func (s *StochasticRSI) GetRequiredPeriods() int {
	return s.rsiPeriod + s.stochPeriod + s.kPeriod + s.dPeriod - 2
}

// Series returns aligned %K/%D points
func (s *StochasticRSI) Series(prices []float64) ([]StochPoint, error) {
	need := s.GetRequiredPeriods()
	if len(prices) < need {
		return nil, insufficient("StochRSI", need, len(prices))
	}

	rsi, err := NewRSI(s.rsiPeriod).Series(prices)
	if err != nil {
		return nil, insufficient("StochRSI", need, len(prices))
	}

	raw := make([]float64, 0, len(rsi)-s.stochPeriod+1)
	for i := s.stochPeriod - 1; i < len(rsi); i++ {
		window := rsi[i-s.stochPeriod+1 : i+1]
		lo, hi := window[0], window[0]
		for _, v := range window {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			// flat RSI over the window
			raw = append(raw, 50)
			continue
		}
		raw = append(raw, (rsi[i]-lo)/(hi-lo)*100)
	}

	k, err := NewSMA(s.kPeriod).Series(raw)
	if err != nil {
		return nil, insufficient("StochRSI", need, len(prices))
	}
	d, err := NewSMA(s.dPeriod).Series(k)
	if err != nil {
		return nil, insufficient("StochRSI", need, len(prices))
	}

	offset := len(k) - len(d)
	out := make([]StochPoint, len(d))
	for i := range d {
		out[i] = StochPoint{K: k[i+offset], D: d[i]}
	}
	return out, nil
}

// Calculate returns the latest %K/%D of the closes
func (s *StochasticRSI) Calculate(data []types.OHLCV) (StochPoint, error) {
	series, err := s.Series(closePrices(data))
	if err != nil {
		return StochPoint{}, err
	}
	return series[len(series)-1], nil
}
