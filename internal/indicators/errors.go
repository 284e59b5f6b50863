package indicators

import (
	"errors"
	"fmt"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// ErrInsufficientData is returned when a series is shorter than an indicator's lookback.
var ErrInsufficientData = errors.New("insufficient data")

func insufficient(name string, need, got int) error {
	return fmt.Errorf("%w for %s calculation: need %d bars, got %d", ErrInsufficientData, name, need, got)
}

func closePrices(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d.Close
	}
	return out
}

func last(values []float64) float64 {
	return values[len(values)-1]
}
