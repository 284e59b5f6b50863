package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes leveled, timestamped entries to a daily log file and optionally to stdout
type Logger struct {
	name    string
	logFile *os.File
	logger  *log.Logger
	mu      sync.Mutex
	logDir  string
	debug   bool
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Options configures a Logger
type Options struct {
	Dir     string
	Console bool
	Debug   bool
}

// NewLogger creates a logger writing to <dir>/<name>_<date>.log
func NewLogger(name string, opts Options) (*Logger, error) {
	logDir := opts.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logDir, fmt.Sprintf("%s_%s.log", name, timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if opts.Console {
		out = io.MultiWriter(file, os.Stdout)
	}

	l := &Logger{
		name:    name,
		logFile: file,
		logger:  log.New(out, "", 0),
		logDir:  logDir,
		debug:   opts.Debug,
	}

	l.writeSessionHeader()

	return l, nil
}

// NewWriterLogger logs to w without a backing file
func NewWriterLogger(name string, w io.Writer) *Logger {
	return &Logger{
		name:   name,
		logger: log.New(w, "", 0),
		debug:  true,
	}
}

// Discard returns a logger that drops every entry
func Discard() *Logger {
	return NewWriterLogger("discard", io.Discard)
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 FUTURES SIGNAL BOT SESSION STARTED
================================================================================
Name: %s
Started: %s
================================================================================
`, l.name, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if level == LogLevelDebug && !l.debug {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Debug logs a debug message when debug output is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs cycle status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogPositionOpened logs an entry fill
func (l *Logger) LogPositionOpened(symbol, strategy, side, orderID string, qty, entry, stop, target float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Println(fmt.Sprintf(`
[%s] [TRADE] ==================== %s %s OPENED ====================
✅ Order ID: %s | Strategy: %s
📦 Quantity: %.6g
💰 Entry: %.6g
🛑 Stop: %.6g | 🎯 Target: %.6g
=============================================================`,
		timestamp, symbol, side, orderID, strategy, qty, entry, stop, target))
}

// LogPositionClosed logs an exit fill with its realized result
func (l *Logger) LogPositionClosed(symbol, side, reason string, entry, exit, pnl, pnlPct float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	emoji := "✅"
	if pnl <= 0 {
		emoji = "❌"
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Println(fmt.Sprintf(`
[%s] [TRADE] ==================== %s %s CLOSED ====================
%s Reason: %s
🎯 Entry: %.6g | 🚪 Exit: %.6g
💹 P&L: $%.4f (%.2f%%)
==============================================================`,
		timestamp, symbol, side, emoji, reason, entry, exit, pnl, pnlPct))
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}

	footer := fmt.Sprintf(`
================================================================================
🛑 FUTURES SIGNAL BOT SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Print(footer)

	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.logDir == "" {
		return ""
	}
	timestamp := time.Now().Format("2006-01-02")
	return filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", l.name, timestamp))
}
