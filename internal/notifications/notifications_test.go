package notifications

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

type captured struct {
	level   string
	message string
}

type captureNotifier struct{ alerts []captured }

func (c *captureNotifier) SendAlert(_ context.Context, level, message string) error {
	c.alerts = append(c.alerts, captured{level, message})
	return nil
}

func trade(pnl float64) position.TradeRecord {
	return position.TradeRecord{
		Symbol:      "SOLUSDT",
		Strategy:    strategy.Extreme,
		Direction:   strategy.Short,
		PnLAmount:   pnl,
		PnLPct:      pnl / 10,
		CloseReason: position.ReasonStopLoss,
	}
}

func TestTradeAlerter(t *testing.T) {
	n := &captureNotifier{}
	a := NewTradeAlerter(n)

	require.NoError(t, a.Alert(context.Background(), trade(-80)))
	require.NoError(t, a.Alert(context.Background(), trade(120)))

	require.Len(t, n.alerts, 2)
	assert.Equal(t, LevelWarning, n.alerts[0].level)
	assert.Contains(t, n.alerts[0].message, "❌ SOLUSDT SHORT (extreme)")
	assert.Contains(t, n.alerts[0].message, "P&L: $-80.00 (-8.00%)")
	assert.Contains(t, n.alerts[0].message, "Reason: stop_loss")
	assert.Equal(t, LevelSuccess, n.alerts[1].level)
	assert.Contains(t, n.alerts[1].message, "✅")
}

func TestTelegramNotifier_PostsMessage(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, r.ParseForm())
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42")
	n.baseURL = srv.URL
	require.NoError(t, n.SendAlert(context.Background(), LevelError, "breaker open"))

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Contains(t, gotText, "🚨")
	assert.Contains(t, gotText, "breaker open")
}

func TestTelegramNotifier_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "1")
	n.baseURL = srv.URL
	assert.ErrorContains(t, n.SendAlert(context.Background(), LevelInfo, "x"), "401")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logger.NewWriterLogger("test", &buf))

	require.NoError(t, n.SendAlert(context.Background(), LevelWarning, "line one\nline two"))
	assert.Contains(t, buf.String(), "ALERT line one | line two")
	assert.Contains(t, buf.String(), "WARN")
}
