package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/futures-signal-bot/cmd/common"
	"github.com/ducminhle1904/futures-signal-bot/internal/journal"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		dbPath  = flag.String("db", "data/journal.db", "SQLite trade journal")
		fromStr = flag.String("from", "", "First day to include (YYYY-MM-DD)")
		toStr   = flag.String("to", "", "Last day to include (YYYY-MM-DD)")
		xlsx    = flag.String("xlsx", "", "Export the trades to this Excel file")
		version = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		common.PrintVersion("trade-report")
		return
	}

	from, to, err := parseRange(*fromStr, *toStr)
	if err != nil {
		log.Fatalf("Invalid date range: %v", err)
	}

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Journal not found: %v", err)
	}
	db, err := journal.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	trades, err := db.Trades(context.Background(), from, to)
	if err != nil {
		log.Fatalf("Failed to read trades: %v", err)
	}
	if len(trades) == 0 {
		fmt.Println("No closed trades in range")
		return
	}

	printTrades(trades)
	printSummary(journal.Summarize(trades))

	if *xlsx != "" {
		if err := journal.WriteTradesXLSX(trades, *xlsx); err != nil {
			log.Fatalf("Failed to export: %v", err)
		}
		fmt.Printf("📁 Exported %d trades to %s\n", len(trades), *xlsx)
	}
}

// parseRange converts inclusive days into a half-open [from, to) range
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = time.Parse(dateLayout, fromStr); err != nil {
			return from, to, err
		}
	}
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return from, to, err
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("from %s is after to %s", fromStr, toStr)
	}
	return from, to, nil
}

func printTrades(trades []position.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("CLOSED TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Closed", "Symbol", "Strategy", "Side", "Entry", "Exit", "Qty", "P&L", "P&L %", "Reason"})

	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.ClosedAt.UTC().Format("2006-01-02 15:04"),
			tr.Symbol,
			tr.Strategy,
			tr.Direction,
			fmt.Sprintf("%.6g", tr.Entry),
			fmt.Sprintf("%.6g", tr.Exit),
			fmt.Sprintf("%.6g", tr.Quantity),
			fmt.Sprintf("$%.2f", tr.PnLAmount),
			fmt.Sprintf("%.2f%%", tr.PnLPct),
			tr.CloseReason,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func printSummary(s journal.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Group", "Trades", "Win rate", "P&L", "Commission", "Best %", "Worst %"})

	row := func(label string, st journal.Stats) table.Row {
		return table.Row{
			label,
			st.Trades,
			fmt.Sprintf("%.1f%%", st.WinRate()*100),
			fmt.Sprintf("$%.2f", st.PnL),
			fmt.Sprintf("$%.2f", st.Commission),
			fmt.Sprintf("%.2f", st.BestPct),
			fmt.Sprintf("%.2f", st.WorstPct),
		}
	}

	t.AppendRow(row("📊 Total", s.Total))
	t.AppendSeparator()
	for _, k := range journal.SortedKeys(s.ByStrategy) {
		t.AppendRow(row("strategy: "+k, s.ByStrategy[k]))
	}
	t.AppendSeparator()
	for _, k := range journal.SortedKeys(s.ByReason) {
		t.AppendRow(row("reason: "+k, s.ByReason[k]))
	}

	t.Render()
	fmt.Println()
}
