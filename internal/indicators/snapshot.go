package indicators

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/pkg/types"
)

// Key names one value in a Snapshot
type Key string

const (
	KeyClose      Key = "close"
	KeyVWAP       Key = "vwap"
	KeyRSI        Key = "rsi"
	KeyBBUpper    Key = "bb_upper"
	KeyBBMiddle   Key = "bb_middle"
	KeyBBLower    Key = "bb_lower"
	KeyStochK     Key = "stoch_k"
	KeyStochD     Key = "stoch_d"
	KeyEMAFast    Key = "ema_fast"
	KeyEMASlow    Key = "ema_slow"
	KeyADX        Key = "adx"
	KeyMACD       Key = "macd"
	KeyMACDSignal Key = "macd_signal"
	KeyATR        Key = "atr"
)

// Reading is the latest value of an indicator and, when available, the value one bar earlier.
type Reading struct {
	Value   float64
	Prev    float64
	HasPrev bool
}

// Params holds the lookbacks used by Compute
type Params struct {
	RSIPeriod      int     `json:"rsi_period"`
	BBPeriod       int     `json:"bb_period"`
	BBStdDev       float64 `json:"bb_std_dev"`
	StochRSIPeriod int     `json:"stoch_rsi_period"`
	StochPeriod    int     `json:"stoch_period"`
	StochK         int     `json:"stoch_k"`
	StochD         int     `json:"stoch_d"`
	EMAFast        int     `json:"ema_fast"`
	EMASlow        int     `json:"ema_slow"`
	ADXPeriod      int     `json:"adx_period"`
	MACDFast       int     `json:"macd_fast"`
	MACDSlow       int     `json:"macd_slow"`
	MACDSignal     int     `json:"macd_signal"`
	ATRPeriod      int     `json:"atr_period"`
}

// DefaultParams returns the standard indicator configuration
func DefaultParams() Params {
	return Params{
		RSIPeriod:      5,
		BBPeriod:       20,
		BBStdDev:       2,
		StochRSIPeriod: 14,
		StochPeriod:    14,
		StochK:         3,
		StochD:         3,
		EMAFast:        50,
		EMASlow:        200,
		ADXPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		ATRPeriod:      14,
	}
}

// Snapshot holds indicator readings for one instrument and timeframe at one
// point in time. Indicators that could not be computed keep their error.
type Snapshot struct {
	Symbol   string
	Interval string
	Time     time.Time

	values map[Key]Reading
	errs   map[Key]error
}

// NewSnapshot creates an empty snapshot
func NewSnapshot(symbol, interval string, at time.Time) *Snapshot {
	return &Snapshot{
		Symbol:   symbol,
		Interval: interval,
		Time:     at,
		values:   make(map[Key]Reading),
		errs:     make(map[Key]error),
	}
}

// Set stores a reading and clears any error for key
func (s *Snapshot) Set(key Key, r Reading) {
	s.values[key] = r
	delete(s.errs, key)
}

// SetError marks key as unavailable
func (s *Snapshot) SetError(key Key, err error) {
	delete(s.values, key)
	s.errs[key] = err
}

// Get returns the reading for key or an error wrapping ErrInsufficientData
func (s *Snapshot) Get(key Key) (Reading, error) {
	if s == nil {
		return Reading{}, fmt.Errorf("%w: no snapshot", ErrInsufficientData)
	}
	if r, ok := s.values[key]; ok {
		return r, nil
	}
	if err, ok := s.errs[key]; ok {
		return Reading{}, err
	}
	return Reading{}, fmt.Errorf("%w: %s not computed", ErrInsufficientData, key)
}

// Value returns only the latest value for key
func (s *Snapshot) Value(key Key) (float64, error) {
	r, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// Pick returns the latest values of the given keys that are available
func (s *Snapshot) Pick(keys ...Key) map[string]float64 {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		if r, ok := s.values[k]; ok {
			out[string(k)] = r.Value
		}
	}
	return out
}

// Missing lists the keys that failed, sorted
func (s *Snapshot) Missing() []Key {
	keys := make([]Key, 0, len(s.errs))
	for k := range s.errs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Compute evaluates every indicator over series. Each indicator is computed
// independently; a short series only removes the indicators it cannot feed.
func Compute(series *types.CandleSeries, p Params) *Snapshot {
	var at time.Time
	if c, ok := series.Last(); ok {
		at = c.Timestamp
	}
	snap := NewSnapshot(series.Symbol, series.Interval, at)
	candles := series.Candles
	closes := series.Closes()

	if len(closes) == 0 {
		err := insufficient("snapshot", 1, 0)
		for _, k := range []Key{KeyClose, KeyVWAP, KeyRSI, KeyBBUpper, KeyBBMiddle, KeyBBLower,
			KeyStochK, KeyStochD, KeyEMAFast, KeyEMASlow, KeyADX, KeyMACD, KeyMACDSignal, KeyATR} {
			snap.SetError(k, err)
		}
		return snap
	}

	snap.Set(KeyClose, tailReading(closes))

	if vwap, err := NewVWAP().Series(candles); err != nil {
		snap.SetError(KeyVWAP, err)
	} else {
		snap.Set(KeyVWAP, tailReading(vwap))
	}

	if rsi, err := NewRSI(p.RSIPeriod).Series(closes); err != nil {
		snap.SetError(KeyRSI, err)
	} else {
		snap.Set(KeyRSI, tailReading(rsi))
	}

	if bands, err := NewBollingerBands(p.BBPeriod, p.BBStdDev).Series(closes); err != nil {
		snap.SetError(KeyBBUpper, err)
		snap.SetError(KeyBBMiddle, err)
		snap.SetError(KeyBBLower, err)
	} else {
		snap.Set(KeyBBUpper, tailOf(len(bands), func(i int) float64 { return bands[i].Upper }))
		snap.Set(KeyBBMiddle, tailOf(len(bands), func(i int) float64 { return bands[i].Middle }))
		snap.Set(KeyBBLower, tailOf(len(bands), func(i int) float64 { return bands[i].Lower }))
	}

	if stoch, err := NewStochasticRSI(p.StochRSIPeriod, p.StochPeriod, p.StochK, p.StochD).Series(closes); err != nil {
		snap.SetError(KeyStochK, err)
		snap.SetError(KeyStochD, err)
	} else {
		snap.Set(KeyStochK, tailOf(len(stoch), func(i int) float64 { return stoch[i].K }))
		snap.Set(KeyStochD, tailOf(len(stoch), func(i int) float64 { return stoch[i].D }))
	}

	if fast, err := NewEMA(p.EMAFast).Series(closes); err != nil {
		snap.SetError(KeyEMAFast, err)
	} else {
		snap.Set(KeyEMAFast, tailReading(fast))
	}

	if slow, err := NewEMA(p.EMASlow).Series(closes); err != nil {
		snap.SetError(KeyEMASlow, err)
	} else {
		snap.Set(KeyEMASlow, tailReading(slow))
	}

	if adx, err := NewADX(p.ADXPeriod).Series(candles); err != nil {
		snap.SetError(KeyADX, err)
	} else {
		snap.Set(KeyADX, tailOf(len(adx), func(i int) float64 { return adx[i].ADX }))
	}

	if macd, err := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal).Series(closes); err != nil {
		snap.SetError(KeyMACD, err)
		snap.SetError(KeyMACDSignal, err)
	} else {
		snap.Set(KeyMACD, tailOf(len(macd), func(i int) float64 { return macd[i].MACD }))
		snap.Set(KeyMACDSignal, tailOf(len(macd), func(i int) float64 { return macd[i].Signal }))
	}

	if atr, err := NewATR(p.ATRPeriod).Series(candles); err != nil {
		snap.SetError(KeyATR, err)
	} else {
		snap.Set(KeyATR, tailReading(atr))
	}

	return snap
}

func tailReading(series []float64) Reading {
	return tailOf(len(series), func(i int) float64 { return series[i] })
}

func tailOf(n int, at func(int) float64) Reading {
	r := Reading{Value: at(n - 1)}
	if n >= 2 {
		r.Prev = at(n - 2)
		r.HasPrev = true
	}
	return r
}
