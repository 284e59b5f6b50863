package indicators

import (
	"math"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// ADX represents the Average Directional Index indicator (Wilder).
// Values above ~25 indicate a trending market, below ~20 a sideways one.
type ADX struct {
	period int
}

// ADXPoint carries the ADX with its directional indices
type ADXPoint struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// NewADX creates a new ADX indicator
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

// GetRequiredPeriods returns the minimum number of candles needed
func (adx *ADX) GetRequiredPeriods() int {
	return 2 * adx.period
}

// Series computes ADX points for data
func (adx *ADX) Series(data []types.OHLCV) ([]ADXPoint, error) {
	need := adx.GetRequiredPeriods()
	if adx.period <= 0 || len(data) < need {
		return nil, insufficient("ADX", need, len(data))
	}

	n := len(data) - 1
	tr := trueRanges(data)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(data); i++ {
		upMove := data[i].High - data[i-1].High
		downMove := data[i-1].Low - data[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
	}

	p := float64(adx.period)
	var smTR, smPlus, smMinus float64
	for i := 0; i < adx.period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	type dxPoint struct{ dx, plusDI, minusDI float64 }
	dxs := make([]dxPoint, 0, n-adx.period+1)
	calc := func() dxPoint {
		if smTR == 0 {
			return dxPoint{}
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		sum := plusDI + minusDI
		if sum == 0 {
			return dxPoint{plusDI: plusDI, minusDI: minusDI}
		}
		return dxPoint{dx: 100 * math.Abs(plusDI-minusDI) / sum, plusDI: plusDI, minusDI: minusDI}
	}
	dxs = append(dxs, calc())
	for i := adx.period; i < n; i++ {
		smTR = smTR - smTR/p + tr[i]
		smPlus = smPlus - smPlus/p + plusDM[i]
		smMinus = smMinus - smMinus/p + minusDM[i]
		dxs = append(dxs, calc())
	}

	value := 0.0
	for i := 0; i < adx.period; i++ {
		value += dxs[i].dx
	}
	value /= p

	out := make([]ADXPoint, 0, len(dxs)-adx.period+1)
	out = append(out, ADXPoint{ADX: value, PlusDI: dxs[adx.period-1].plusDI, MinusDI: dxs[adx.period-1].minusDI})
	for i := adx.period; i < len(dxs); i++ {
		value = (value*(p-1) + dxs[i].dx) / p
		out = append(out, ADXPoint{ADX: value, PlusDI: dxs[i].plusDI, MinusDI: dxs[i].minusDI})
	}
	return out, nil
}

// Calculate returns the latest ADX value
func (adx *ADX) Calculate(data []types.OHLCV) (float64, error) {
	series, err := adx.Series(data)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1].ADX, nil
}
