package risk

import (
	"math"
	"testing"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/indicators"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signal(dir strategy.Direction, price float64) *strategy.Signal {
	return &strategy.Signal{
		Symbol:    "SOLUSDT",
		Strategy:  strategy.Trend,
		Direction: dir,
		Price:     price,
		Interval:  "4h",
		Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestPlanWithATR_Long(t *testing.T) {
	plan, err := NewSizer(DefaultConfig()).PlanWithATR(signal(strategy.Long, 500), 10)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, plan.StopDistance(), 1e-9)
	assert.InDelta(t, 60.0, plan.TargetDistance(), 1e-9)
	assert.InDelta(t, 4.0, plan.Quantity, 1e-9)
	assert.InDelta(t, 475.0, plan.Stop, 1e-9)
	assert.InDelta(t, 560.0, plan.Target, 1e-9)
	assert.InDelta(t, 2000.0, plan.Notional, 1e-9)
	assert.InDelta(t, 200.0, plan.Margin, 1e-9)
	assert.Equal(t, 10.0, plan.Leverage)
	assert.InDelta(t, 100.0, plan.Quantity*plan.StopDistance(), 1e-9)
}

func TestPlanWithATR_Short(t *testing.T) {
	plan, err := NewSizer(DefaultConfig()).PlanWithATR(signal(strategy.Short, 500), 10)
	require.NoError(t, err)

	assert.Greater(t, plan.Stop, plan.Entry)
	assert.Less(t, plan.Target, plan.Entry)
	assert.InDelta(t, 525.0, plan.Stop, 1e-9)
	assert.InDelta(t, 440.0, plan.Target, 1e-9)
}

func TestPlanWithATR_RiskIsConstant(t *testing.T) {
	sizer := NewSizer(DefaultConfig())
	for _, atr := range []float64{0.0001, 0.37, 12, 1500} {
		plan, err := sizer.PlanWithATR(signal(strategy.Short, 30000), atr)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, plan.Quantity*plan.StopDistance(), 1e-6)
		assert.InDelta(t, 6.0/2.5, plan.TargetDistance()/plan.StopDistance(), 1e-9)
	}
}

func TestPlanWithATR_DegenerateVolatility(t *testing.T) {
	sizer := NewSizer(DefaultConfig())
	for _, atr := range []float64{0, -1, 1e-15, math.NaN(), math.Inf(1)} {
		_, err := sizer.PlanWithATR(signal(strategy.Long, 100), atr)
		assert.ErrorIs(t, err, ErrDegenerateVolatility, "atr=%v", atr)
	}
}

func TestPlanWithATR_InvalidEntry(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	_, err := sizer.PlanWithATR(signal(strategy.Long, 0), 1)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = sizer.PlanWithATR(signal(strategy.Long, 2), 1)
	assert.ErrorIs(t, err, ErrInvalidEntry, "long stop would be negative")
}

func TestPlan_UsesSnapshotATR(t *testing.T) {
	sizer := NewSizer(DefaultConfig())
	snap := indicators.NewSnapshot("SOLUSDT", "4h", time.Now())

	_, err := sizer.Plan(signal(strategy.Long, 500), snap)
	assert.ErrorIs(t, err, indicators.ErrInsufficientData)

	snap.Set(indicators.KeyATR, indicators.Reading{Value: 10})
	plan, err := sizer.Plan(signal(strategy.Long, 500), snap)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, plan.Quantity, 1e-9)
	assert.Equal(t, 10.0, plan.ATR)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.RiskAmount = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Leverage = 0.5
	assert.Error(t, cfg.Validate())
}
