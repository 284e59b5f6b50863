package indicators

import (
	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// SMA represents the Simple Moving Average
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Series returns the rolling mean for every full window in values.
// Element i covers values[i : i+period].
func (s *SMA) Series(values []float64) ([]float64, error) {
	if s.period <= 0 || len(values) < s.period {
		return nil, insufficient("SMA", s.period, len(values))
	}

	out := make([]float64, len(values)-s.period+1)
	sum := 0.0
	for i := 0; i < s.period; i++ {
		sum += values[i]
	}
	out[0] = sum / float64(s.period)

	for i := s.period; i < len(values); i++ {
		sum += values[i] - values[i-s.period]
		out[i-s.period+1] = sum / float64(s.period)
	}
	return out, nil
}

// Calculate returns the SMA of the latest closes
func (s *SMA) Calculate(data []types.OHLCV) (float64, error) {
	series, err := s.Series(closePrices(data))
	if err != nil {
		return 0, err
	}
	return last(series), nil
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
