package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

var opened = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func openEvent() position.Event {
	return position.Event{
		Action: position.ActionOpen,
		Time:   opened,
		Position: &position.Position{
			ID:         "pos-1",
			Symbol:     "ETHUSDT",
			Strategy:   strategy.Impulse,
			Direction:  strategy.Long,
			Entry:      100,
			Quantity:   4,
			Leverage:   10,
			Stop:       75,
			Target:     160,
			OrderID:    "ord-1",
			OpenedAt:   opened,
			State:      position.Open,
			Indicators: map[string]float64{"rsi": 61.5},
		},
	}
}

func closeTrade(id string, strat strategy.Name, pnl float64, closedAt time.Time) position.TradeRecord {
	return position.TradeRecord{
		PositionID:  id,
		Symbol:      "ETHUSDT",
		Strategy:    strat,
		Direction:   strategy.Long,
		Entry:       100,
		Exit:        100 + pnl/4,
		Quantity:    4,
		Leverage:    10,
		Commission:  0.32,
		PnLAmount:   pnl,
		PnLPct:      pnl / 400 * 100 * 10,
		CloseReason: position.ReasonTakeProfit,
		OpenedAt:    opened,
		ClosedAt:    closedAt,
		Indicators:  map[string]float64{"adx": 31},
	}
}

func closeEvent(tr position.TradeRecord) position.Event {
	return position.Event{Action: position.ActionClose, Time: tr.ClosedAt, Trade: &tr}
}

func TestSQLiteJournal_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	j, err := OpenSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(ctx, openEvent()))
	first := closeTrade("pos-1", strategy.Impulse, 240, opened.Add(2*time.Hour))
	second := closeTrade("pos-2", strategy.Trend, -100, opened.Add(26*time.Hour))
	require.NoError(t, j.Record(ctx, closeEvent(first)))
	require.NoError(t, j.Record(ctx, closeEvent(second)))

	n, err := j.CountEvents(ctx, position.ActionOpen)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trades, err := j.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "pos-1", trades[0].PositionID)
	assert.Equal(t, strategy.Impulse, trades[0].Strategy)
	assert.Equal(t, position.ReasonTakeProfit, trades[0].CloseReason)
	assert.Equal(t, first.ClosedAt, trades[0].ClosedAt)
	assert.Equal(t, 31.0, trades[0].Indicators["adx"])

	trades, err = j.Trades(ctx, opened.Add(24*time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "pos-2", trades[0].PositionID)
}

func TestSQLiteJournal_SubSecondOrdering(t *testing.T) {
	ctx := context.Background()
	j, err := OpenSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	defer j.Close()

	second := opened.Add(3 * time.Hour)
	late := closeTrade("pos-late", strategy.Extreme, 10, second.Add(123*time.Millisecond))
	onTheSecond := closeTrade("pos-exact", strategy.Trend, 20, second)
	require.NoError(t, j.Record(ctx, closeEvent(late)))
	require.NoError(t, j.Record(ctx, closeEvent(onTheSecond)))

	trades, err := j.Trades(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "pos-exact", trades[0].PositionID)
	assert.Equal(t, "pos-late", trades[1].PositionID)
	assert.Equal(t, late.ClosedAt, trades[1].ClosedAt)

	trades, err = j.Trades(ctx, second.Add(100*time.Millisecond), time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "pos-late", trades[0].PositionID)

	trades, err = j.Trades(ctx, time.Time{}, second.Add(time.Millisecond))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "pos-exact", trades[0].PositionID)
}

func TestFileLog_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trades.jsonl")
	l, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, l.Record(context.Background(), openEvent()))
	require.NoError(t, l.Record(context.Background(), closeEvent(closeTrade("pos-1", strategy.Impulse, 240, opened.Add(time.Hour)))))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []Row
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Row
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		rows = append(rows, r)
	}
	require.Len(t, rows, 2)
	assert.Equal(t, position.ActionOpen, rows[0].Action)
	assert.Equal(t, 75.0, rows[0].Stop)
	assert.JSONEq(t, `{"rsi":61.5}`, rows[0].Indicators)
	assert.Equal(t, "take_profit", rows[1].CloseReason)
}

func TestRowFromEvent_RejectsIncompleteEvents(t *testing.T) {
	_, err := rowFromEvent(position.Event{Action: position.ActionOpen})
	assert.Error(t, err)
	_, err = rowFromEvent(position.Event{Action: position.ActionClose})
	assert.Error(t, err)
	_, err = rowFromEvent(position.Event{Action: "MODIFY"})
	assert.Error(t, err)
}

type failingLog struct{ calls int }

func (f *failingLog) Record(context.Context, position.Event) error {
	f.calls++
	return errors.New("disk full")
}

type countingLog struct{ calls int }

func (c *countingLog) Record(context.Context, position.Event) error {
	c.calls++
	return nil
}

func TestMultiLog_ContinuesPastFailures(t *testing.T) {
	bad, good := &failingLog{}, &countingLog{}
	err := MultiLog{bad, good}.Record(context.Background(), openEvent())

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.NoError(t, MultiLog{good}.Record(context.Background(), openEvent()))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]position.TradeRecord{
		closeTrade("a", strategy.Impulse, 240, opened),
		closeTrade("b", strategy.Impulse, -100, opened),
		closeTrade("c", strategy.Trend, 50, opened),
	})

	assert.Equal(t, 3, s.Total.Trades)
	assert.Equal(t, 2, s.Total.Wins)
	assert.InDelta(t, 190, s.Total.PnL, 1e-9)
	assert.InDelta(t, 2.0/3.0, s.Total.WinRate(), 1e-9)
	assert.InDelta(t, 600, s.Total.BestPct, 1e-9)
	assert.InDelta(t, -250, s.Total.WorstPct, 1e-9)
	assert.Equal(t, 2, s.ByStrategy["impulse"].Trades)
	assert.Equal(t, []string{"impulse", "trend"}, SortedKeys(s.ByStrategy))
	assert.Equal(t, 0.0, Stats{}.WinRate())
}

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.xlsx")
	trades := []position.TradeRecord{
		closeTrade("a", strategy.Extreme, 240, opened.Add(time.Hour)),
		closeTrade("b", strategy.Trend, -100, opened.Add(2*time.Hour)),
	}
	require.NoError(t, WriteTradesXLSX(trades, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{tradesSheet, summarySheet}, fx.GetSheetList())
	symbol, err := fx.GetCellValue(tradesSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", symbol)
	strat, err := fx.GetCellValue(tradesSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "trend", strat)

	label, err := fx.GetCellValue(summarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "ALL", label)
	count, err := fx.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}
