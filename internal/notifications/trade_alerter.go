package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// TradeAlerter turns significant closed trades into notifier alerts
type TradeAlerter struct {
	notifier Notifier
}

// NewTradeAlerter wraps notifier as a trade alert sink
func NewTradeAlerter(notifier Notifier) *TradeAlerter {
	return &TradeAlerter{notifier: notifier}
}

// Alert sends the trade summary. Winning trades go out as success, losing ones as warning.
func (a *TradeAlerter) Alert(ctx context.Context, trade position.TradeRecord) error {
	level := LevelWarning
	if trade.PnLAmount > 0 {
		level = LevelSuccess
	}
	return a.notifier.SendAlert(ctx, level, FormatTrade(trade))
}

// FormatTrade renders the alert body for a closed trade
func FormatTrade(trade position.TradeRecord) string {
	emoji := "❌"
	if trade.PnLAmount > 0 {
		emoji = "✅"
	}
	return fmt.Sprintf("📈 Significant trade closed\n%s %s %s (%s)\nP&L: $%.2f (%.2f%%)\nReason: %s",
		emoji, trade.Symbol, strings.ToUpper(string(trade.Direction)), trade.Strategy,
		trade.PnLAmount, trade.PnLPct, trade.CloseReason)
}

// LogNotifier writes alerts to the bot log. It stands in when no chat is configured.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) SendAlert(_ context.Context, level, message string) error {
	msg := strings.ReplaceAll(message, "\n", " | ")
	switch level {
	case LevelError:
		n.logger.Error("ALERT %s", msg)
	case LevelWarning:
		n.logger.Warning("ALERT %s", msg)
	default:
		n.logger.Info("ALERT %s", msg)
	}
	return nil
}
