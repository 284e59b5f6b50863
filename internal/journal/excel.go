package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

const (
	tradesSheet  = "Trades"
	summarySheet = "Summary"
)

type excelStyles struct {
	header   int
	currency int
	percent  int
	price    int
	loss     int
}

// WriteTradesXLSX writes closed trades and a per-strategy summary to an Excel workbook
func WriteTradesXLSX(trades []position.TradeRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := writeTradesSheet(fx, trades, styles); err != nil {
		return err
	}
	if err := writeSummarySheet(fx, Summarize(trades), styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// $ format
	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	fmtPct := "0.00\"%\""
	styles.percent, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtPct,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	fmtPrice := "0.00######"
	styles.price, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtPrice,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	styles.loss, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	return styles, err
}

func writeTradesSheet(fx *excelize.File, trades []position.TradeRecord, styles excelStyles) error {
	headers := []string{"Opened", "Closed", "Symbol", "Strategy", "Side", "Entry", "Exit",
		"Quantity", "Leverage", "Commission", "PnL", "PnL %", "Reason"}
	widths := []float64{20, 20, 14, 10, 8, 14, 14, 14, 9, 12, 12, 10, 16}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := fx.SetColWidth(tradesSheet, col, col, widths[i]); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
		fx.SetCellStyle(tradesSheet, cell, cell, styles.header)
	}

	for r, t := range trades {
		row := r + 2
		values := []interface{}{
			t.OpenedAt.Format("2006-01-02 15:04:05"),
			t.ClosedAt.Format("2006-01-02 15:04:05"),
			t.Symbol,
			string(t.Strategy),
			string(t.Direction),
			t.Entry,
			t.Exit,
			t.Quantity,
			t.Leverage,
			t.Commission,
			t.PnLAmount,
			t.PnLPct,
			string(t.CloseReason),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			fx.SetCellValue(tradesSheet, cell, v)
			switch i {
			case 5, 6:
				fx.SetCellStyle(tradesSheet, cell, cell, styles.price)
			case 9:
				fx.SetCellStyle(tradesSheet, cell, cell, styles.currency)
			case 10:
				if t.PnLAmount < 0 {
					fx.SetCellStyle(tradesSheet, cell, cell, styles.loss)
				} else {
					fx.SetCellStyle(tradesSheet, cell, cell, styles.currency)
				}
			case 11:
				fx.SetCellStyle(tradesSheet, cell, cell, styles.percent)
			}
		}
	}

	return fx.SetPanes(tradesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSummarySheet(fx *excelize.File, summary Summary, styles excelStyles) error {
	headers := []string{"Group", "Trades", "Wins", "Losses", "Win rate", "PnL", "Commission", "Best %", "Worst %"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := fx.SetColWidth(summarySheet, col, col, 14); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(summarySheet, cell, h)
		fx.SetCellStyle(summarySheet, cell, cell, styles.header)
	}

	row := 2
	writeStats := func(label string, s Stats) {
		values := []interface{}{label, s.Trades, s.Wins, s.Losses, s.WinRate() * 100, s.PnL, s.Commission, s.BestPct, s.WorstPct}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			fx.SetCellValue(summarySheet, cell, v)
			switch i {
			case 4, 7, 8:
				fx.SetCellStyle(summarySheet, cell, cell, styles.percent)
			case 5, 6:
				fx.SetCellStyle(summarySheet, cell, cell, styles.currency)
			}
		}
		row++
	}

	writeStats("ALL", summary.Total)
	for _, k := range SortedKeys(summary.ByStrategy) {
		writeStats("strategy: "+k, summary.ByStrategy[k])
	}
	for _, k := range SortedKeys(summary.ByReason) {
		writeStats("reason: "+k, summary.ByReason[k])
	}
	return nil
}
