package indicators

import (
	"math"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// BollingerBands computes a moving average envelope of +/- stdDev population deviations
type BollingerBands struct {
	period int
	stdDev float64
}

// Bands is one Bollinger observation
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// NewBollingerBands creates a new Bollinger Bands indicator
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period: period,
		stdDev: stdDev,
	}
}

// Series returns bands for every full window of prices
func (bb *BollingerBands) Series(prices []float64) ([]Bands, error) {
	middles, err := NewSMA(bb.period).Series(prices)
	if err != nil {
		return nil, insufficient("Bollinger", bb.period, len(prices))
	}

	out := make([]Bands, len(middles))
	for i, mid := range middles {
		window := prices[i : i+bb.period]
		variance := 0.0
		for _, p := range window {
			variance += (p - mid) * (p - mid)
		}
		sd := math.Sqrt(variance / float64(bb.period))
		out[i] = Bands{
			Upper:  mid + bb.stdDev*sd,
			Middle: mid,
			Lower:  mid - bb.stdDev*sd,
		}
	}
	return out, nil
}

// Calculate returns the latest bands over the closes
func (bb *BollingerBands) Calculate(data []types.OHLCV) (Bands, error) {
	series, err := bb.Series(closePrices(data))
	if err != nil {
		return Bands{}, err
	}
	return series[len(series)-1], nil
}
