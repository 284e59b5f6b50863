package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// generateTestData builds a deterministic oscillating series with a slight upward drift
func generateTestData(n int) []types.OHLCV {
	data := make([]types.OHLCV, n)
	prev := 100.0
	for i := 0; i < n; i++ {
		price := 100 + 10*math.Sin(float64(i)/5) + float64(i)*0.1
		data[i] = types.OHLCV{
			Open:      prev,
			High:      math.Max(prev, price) + 1,
			Low:       math.Min(prev, price) - 1,
			Close:     price,
			Volume:    1000 + float64(i%7)*100,
			Timestamp: baseTime.Add(time.Duration(i) * time.Hour),
		}
		prev = price
	}
	return data
}

func constantData(n int, price float64) []types.OHLCV {
	data := make([]types.OHLCV, n)
	for i := range data {
		data[i] = types.OHLCV{
			Open: price, High: price + 1, Low: price - 1, Close: price,
			Volume:    500,
			Timestamp: baseTime.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

func trendingUpData(n int) []types.OHLCV {
	data := make([]types.OHLCV, n)
	for i := range data {
		base := 100 + float64(i)
		data[i] = types.OHLCV{
			Open: base, High: base + 1, Low: base - 1, Close: base + 0.5,
			Volume:    1000,
			Timestamp: baseTime.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

func TestSMA_Series(t *testing.T) {
	series, err := NewSMA(3).Series([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, series)
}

func TestSMA_Calculate_InsufficientData(t *testing.T) {
	_, err := NewSMA(20).Calculate(generateTestData(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "insufficient data")
}

func TestEMA_SeededWithSMA(t *testing.T) {
	series, err := NewEMA(3).Series([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.InDelta(t, 2.0, series[0], 1e-9)
	assert.InDelta(t, 3.0, series[1], 1e-9)
	assert.InDelta(t, 4.0, series[2], 1e-9)
}

func TestEMA_ConstantSeries(t *testing.T) {
	value, err := NewEMA(50).Calculate(constantData(80, 42))
	require.NoError(t, err)
	assert.InDelta(t, 42.0, value, 1e-9)
}

func TestEMA_InsufficientData(t *testing.T) {
	_, err := NewEMA(200).Calculate(generateTestData(199))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRSI(t *testing.T) {
	t.Run("rising prices saturate at 100", func(t *testing.T) {
		value, err := NewRSI(5).Series([]float64{1, 2, 3, 4, 5, 6, 7})
		require.NoError(t, err)
		assert.Len(t, value, 2)
		assert.Equal(t, 100.0, value[1])
	})

	t.Run("falling prices go to 0", func(t *testing.T) {
		value, err := NewRSI(5).Series([]float64{7, 6, 5, 4, 3, 2, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, value[1], 1e-9)
	})

	t.Run("flat prices are neutral", func(t *testing.T) {
		value, err := NewRSI(5).Calculate(constantData(10, 10))
		require.NoError(t, err)
		assert.Equal(t, 50.0, value)
	})

	t.Run("bounded on oscillating data", func(t *testing.T) {
		series, err := NewRSI(5).Series(closePrices(generateTestData(120)))
		require.NoError(t, err)
		for _, v := range series {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})

	t.Run("needs period plus one prices", func(t *testing.T) {
		_, err := NewRSI(5).Series([]float64{1, 2, 3, 4, 5})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestBollingerBands(t *testing.T) {
	series, err := NewBollingerBands(5, 2).Series([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Len(t, series, 1)

	sd := math.Sqrt(2)
	assert.InDelta(t, 3.0, series[0].Middle, 1e-9)
	assert.InDelta(t, 3+2*sd, series[0].Upper, 1e-9)
	assert.InDelta(t, 3-2*sd, series[0].Lower, 1e-9)

	_, err = NewBollingerBands(20, 2).Calculate(generateTestData(19))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBollingerBands_ConstantCollapses(t *testing.T) {
	bands, err := NewBollingerBands(20, 2).Calculate(constantData(25, 50))
	require.NoError(t, err)
	assert.Equal(t, bands.Middle, bands.Upper)
	assert.Equal(t, bands.Middle, bands.Lower)
}

func TestStochasticRSI(t *testing.T) {
	s := NewStochasticRSI(14, 14, 3, 3)
	assert.Equal(t, 32, s.GetRequiredPeriods())

	_, err := s.Calculate(generateTestData(31))
	assert.ErrorIs(t, err, ErrInsufficientData)

	series, err := s.Series(closePrices(generateTestData(150)))
	require.NoError(t, err)
	require.NotEmpty(t, series)
	for _, p := range series {
		assert.GreaterOrEqual(t, p.K, 0.0)
		assert.LessOrEqual(t, p.K, 100.0)
		assert.GreaterOrEqual(t, p.D, 0.0)
		assert.LessOrEqual(t, p.D, 100.0)
	}

	point, err := s.Calculate(generateTestData(32))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, point.K, 0.0)
}

func TestATR(t *testing.T) {
	value, err := NewATR(14).Calculate(constantData(30, 100))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, value, 1e-9)

	_, err = NewATR(14).Calculate(constantData(14, 100))
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewATR(14).Calculate(constantData(15, 100))
	assert.NoError(t, err)
}

func TestADX(t *testing.T) {
	adx := NewADX(14)

	_, err := adx.Calculate(trendingUpData(27))
	assert.ErrorIs(t, err, ErrInsufficientData)

	series, err := adx.Series(trendingUpData(60))
	require.NoError(t, err)
	latest := series[len(series)-1]
	assert.InDelta(t, 100.0, latest.ADX, 1e-6)
	assert.Greater(t, latest.PlusDI, latest.MinusDI)

	value, err := adx.Calculate(generateTestData(100))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, value, 0.0)
	assert.LessOrEqual(t, value, 100.0)
}

func TestMACD(t *testing.T) {
	m := NewMACD(12, 26, 9)
	assert.Equal(t, 34, m.GetRequiredPeriods())

	_, err := m.Calculate(generateTestData(33))
	assert.ErrorIs(t, err, ErrInsufficientData)

	point, err := m.Calculate(constantData(60, 25))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, point.MACD, 1e-9)
	assert.InDelta(t, 0.0, point.Signal, 1e-9)

	up, err := m.Calculate(trendingUpData(60))
	require.NoError(t, err)
	assert.Greater(t, up.MACD, 0.0)
	assert.InDelta(t, up.MACD-up.Signal, up.Histogram, 1e-9)
}

func TestVWAP_ResetsEachSession(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	data := []types.OHLCV{
		{High: 11, Low: 9, Close: 10, Volume: 100, Timestamp: day1},
		{High: 21, Low: 19, Close: 20, Volume: 300, Timestamp: day1.Add(time.Hour)},
		{High: 31, Low: 29, Close: 30, Volume: 50, Timestamp: day1.Add(2 * time.Hour)},
	}

	series, err := NewVWAP().Series(data)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, series[0], 1e-9)
	assert.InDelta(t, (10*100+20*300)/400.0, series[1], 1e-9)
	assert.InDelta(t, 30.0, series[2], 1e-9)
}

func TestVWAP_ZeroVolumeFallsBackToTypicalPrice(t *testing.T) {
	data := []types.OHLCV{{High: 12, Low: 6, Close: 9, Volume: 0, Timestamp: baseTime}}
	value, err := NewVWAP().Calculate(data)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, value, 1e-9)

	_, err = NewVWAP().Calculate(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
