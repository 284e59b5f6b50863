package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

// SQLiteJournal persists open and close events to SQLite for analysis and audit
type SQLiteJournal struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trade_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	action       TEXT NOT NULL,
	position_id  TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	direction    TEXT NOT NULL,
	order_id     TEXT,
	entry_price  REAL NOT NULL,
	exit_price   REAL,
	quantity     REAL NOT NULL,
	leverage     REAL NOT NULL,
	stop_price   REAL,
	target_price REAL,
	commission   REAL,
	pnl_amount   REAL,
	pnl_pct      REAL,
	close_reason TEXT,
	indicators   TEXT,
	opened_at    INTEGER NOT NULL, -- unix millis
	event_at     INTEGER NOT NULL, -- unix millis
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_symbol ON trade_events(symbol);
CREATE INDEX IF NOT EXISTS idx_events_strategy ON trade_events(strategy);
CREATE INDEX IF NOT EXISTS idx_events_action_time ON trade_events(action, event_at);
`

// OpenSQLite opens (or creates) a SQLite journal database
func OpenSQLite(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Record persists one lifecycle event
func (j *SQLiteJournal) Record(ctx context.Context, ev position.Event) error {
	row, err := rowFromEvent(ev)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO trade_events (action, position_id, symbol, strategy, direction, order_id,
			entry_price, exit_price, quantity, leverage, stop_price, target_price,
			commission, pnl_amount, pnl_pct, close_reason, indicators, opened_at, event_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Action, row.PositionID, row.Symbol, row.Strategy, row.Direction, row.OrderID,
		row.Entry, row.Exit, row.Quantity, row.Leverage, row.Stop, row.Target,
		row.Commission, row.PnLAmount, row.PnLPct, row.CloseReason, row.Indicators,
		row.OpenedAt.UnixMilli(), row.EventAt.UnixMilli(),
	)
	return err
}

// Trades returns closed trades between from and to (zero values are open
// bounds), oldest first
func (j *SQLiteJournal) Trades(ctx context.Context, from, to time.Time) ([]position.TradeRecord, error) {
	query := `SELECT position_id, symbol, strategy, direction, entry_price, exit_price, quantity,
			leverage, commission, pnl_amount, pnl_pct, close_reason, indicators, opened_at, event_at
		FROM trade_events WHERE action = ?`
	args := []interface{}{string(position.ActionClose)}
	if !from.IsZero() {
		query += ` AND event_at >= ?`
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		query += ` AND event_at < ?`
		args = append(args, to.UnixMilli())
	}
	query += ` ORDER BY event_at, id`

	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []position.TradeRecord
	for rows.Next() {
		var (
			t                  position.TradeRecord
			strat, dir, reason string
			indicators         sql.NullString
			openedAt, closedAt int64
		)
		if err := rows.Scan(&t.PositionID, &t.Symbol, &strat, &dir, &t.Entry, &t.Exit, &t.Quantity,
			&t.Leverage, &t.Commission, &t.PnLAmount, &t.PnLPct, &reason, &indicators, &openedAt, &closedAt); err != nil {
			return nil, err
		}
		t.Strategy = strategy.Name(strat)
		t.Direction = strategy.Direction(dir)
		t.CloseReason = position.CloseReason(reason)
		t.OpenedAt = time.UnixMilli(openedAt).UTC()
		t.ClosedAt = time.UnixMilli(closedAt).UTC()
		if indicators.Valid && indicators.String != "" {
			_ = json.Unmarshal([]byte(indicators.String), &t.Indicators)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// CountEvents returns the number of events recorded for action
func (j *SQLiteJournal) CountEvents(ctx context.Context, action position.Action) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trade_events WHERE action = ?`, string(action)).Scan(&n)
	return n, err
}

// Close closes the journal database
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
