package indicators

import (
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// VWAP is the session-cumulative volume weighted average price.
// A session is one UTC calendar day; accumulation restarts at its first bar.
type VWAP struct {
	location *time.Location
}

// NewVWAP creates a VWAP with UTC day sessions
func NewVWAP() *VWAP {
	return &VWAP{location: time.UTC}
}

// Series returns one VWAP value per candle
func (v *VWAP) Series(data []types.OHLCV) ([]float64, error) {
	if len(data) == 0 {
		return nil, insufficient("VWAP", 1, 0)
	}

	out := make([]float64, len(data))
	var session time.Time
	var cumPV, cumVol float64
	for i, c := range data {
		day := sessionStart(c.Timestamp.In(v.location))
		if i == 0 || !day.Equal(session) {
			session = day
			cumPV, cumVol = 0, 0
		}

		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol == 0 {
			out[i] = typical
			continue
		}
		out[i] = cumPV / cumVol
	}
	return out, nil
}

// Calculate returns the VWAP at the last candle
func (v *VWAP) Calculate(data []types.OHLCV) (float64, error) {
	series, err := v.Series(data)
	if err != nil {
		return 0, err
	}
	return last(series), nil
}

func sessionStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
