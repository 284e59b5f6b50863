package journal

import (
	"sort"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// Stats aggregates a set of closed trades
type Stats struct {
	Trades     int
	Wins       int
	Losses     int
	PnL        float64
	Commission float64
	BestPct    float64
	WorstPct   float64
}

// WinRate returns wins as a fraction of trades
func (s Stats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

func (s *Stats) add(t position.TradeRecord) {
	if s.Trades == 0 || t.PnLPct > s.BestPct {
		s.BestPct = t.PnLPct
	}
	if s.Trades == 0 || t.PnLPct < s.WorstPct {
		s.WorstPct = t.PnLPct
	}
	s.Trades++
	if t.PnLAmount > 0 {
		s.Wins++
	} else {
		s.Losses++
	}
	s.PnL += t.PnLAmount
	s.Commission += t.Commission
}

// Summary breaks trade statistics down by strategy and close reason
type Summary struct {
	Total      Stats
	ByStrategy map[string]Stats
	ByReason   map[string]Stats
}

// Summarize aggregates trades
func Summarize(trades []position.TradeRecord) Summary {
	s := Summary{
		ByStrategy: make(map[string]Stats),
		ByReason:   make(map[string]Stats),
	}
	for _, t := range trades {
		s.Total.add(t)

		st := s.ByStrategy[string(t.Strategy)]
		st.add(t)
		s.ByStrategy[string(t.Strategy)] = st

		rs := s.ByReason[string(t.CloseReason)]
		rs.add(t)
		s.ByReason[string(t.CloseReason)] = rs
	}
	return s
}

// SortedKeys returns the keys of m in order
func SortedKeys(m map[string]Stats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
