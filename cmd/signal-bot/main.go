package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/futures-signal-bot/cmd/common"
	"github.com/ducminhle1904/futures-signal-bot/internal/config"
	"github.com/ducminhle1904/futures-signal-bot/internal/engine"
	"github.com/ducminhle1904/futures-signal-bot/internal/exchange"
	"github.com/ducminhle1904/futures-signal-bot/internal/journal"
	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/marketdata"
	"github.com/ducminhle1904/futures-signal-bot/internal/monitoring"
	"github.com/ducminhle1904/futures-signal-bot/internal/notifications"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
	"github.com/ducminhle1904/futures-signal-bot/internal/risk"
	"github.com/ducminhle1904/futures-signal-bot/internal/state"
	"github.com/ducminhle1904/futures-signal-bot/internal/strategy"
)

func main() {
	var (
		configFile = flag.String("config", "signal-bot", "Configuration file (name in configs/ or path)")
		envFile    = flag.String("env", "", "Environment file path (default: .env if present)")
		once       = flag.Bool("once", false, "Run a single cycle and exit")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		common.PrintVersion("signal-bot")
		return
	}

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	botLog, err := logger.NewLogger("signal-bot", logger.Options{
		Dir:     cfg.Logging.Dir,
		Console: cfg.Logging.Console,
		Debug:   cfg.Logging.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, botLog, *once)
	stop()

	if err != nil {
		botLog.LogError("signal-bot", err)
	}
	botLog.Status("shutdown complete")
	botLog.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, once bool) error {
	venue, err := exchange.New(cfg.Exchange, log)
	if err != nil {
		return fmt.Errorf("exchange: %w", err)
	}

	sinks, closeSinks, err := buildSinks(cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	manager := position.NewManager(cfg.Position, venue.Executor, sinks, log)
	restored, err := manager.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}

	fetcher := marketdata.NewFetcher(venue.Source, cfg.Fetch.MarketData(), log)
	eng := engine.New(cfg.Strategies, cfg.Indicators, engine.Deps{
		Fetcher:   fetcher,
		Evaluator: strategy.NewEvaluator(cfg.Thresholds),
		Sizer:     risk.NewSizer(cfg.Risk),
		Manager:   manager,
	}, log)

	health := monitoring.NewHealthChecker(3 * cfg.Cycle.Interval())
	if cfg.Metrics.Enabled {
		srv := startHTTP(cfg.Metrics.Addr, health, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runner := engine.NewRunner(eng, fetcher, engine.RunnerConfig{
		Interval:     cfg.Cycle.Interval(),
		UniverseSize: cfg.Universe.Size,
		Quotes:       cfg.Universe.Quotes,
		Symbols:      cfg.Universe.Symbols,
		Summary:      cfg.Cycle.Summary,
	}, health, log)

	printStartupInfo(cfg, venue, restored)

	if once {
		runner.RunOnce(ctx)
		return nil
	}
	return runner.Run(ctx)
}

// buildSinks wires the trade journal, alerts and position store. The
// returned func closes whatever was opened.
func buildSinks(cfg *config.Config, log *logger.Logger) (position.Sinks, func(), error) {
	var (
		sinks   position.Sinks
		closers []func() error
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.LogError("close sink", err)
			}
		}
	}

	var logs journal.MultiLog
	if cfg.Journal.SQLitePath != "" {
		db, err := journal.OpenSQLite(cfg.Journal.SQLitePath)
		if err != nil {
			closeAll()
			return sinks, nil, fmt.Errorf("journal: %w", err)
		}
		closers = append(closers, db.Close)
		logs = append(logs, db)
	}
	if cfg.Journal.JSONLPath != "" {
		f, err := journal.OpenFile(cfg.Journal.JSONLPath)
		if err != nil {
			closeAll()
			return sinks, nil, fmt.Errorf("journal: %w", err)
		}
		closers = append(closers, f.Close)
		logs = append(logs, f)
	}
	if len(logs) > 0 {
		sinks.TradeLog = logs
	}

	if cfg.Alerts.Enabled {
		var notifier notifications.Notifier = notifications.NewLogNotifier(log)
		if cfg.Alerts.TelegramToken != "" {
			notifier = notifications.NewTelegramNotifier(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID)
		} else {
			log.Warning("TELEGRAM_TOKEN not set, alerts go to the log only")
		}
		sinks.Alerts = notifications.NewTradeAlerter(notifier)
	}

	switch cfg.State.Backend {
	case config.StateFile:
		store, err := state.NewFileStore(cfg.State.Dir, cfg.State.Name, log)
		if err != nil {
			closeAll()
			return sinks, nil, fmt.Errorf("state: %w", err)
		}
		sinks.Store = store
	case config.StateRedis:
		store, err := state.NewRedisStore(cfg.State.Redis)
		if err != nil {
			closeAll()
			return sinks, nil, fmt.Errorf("state: %w", err)
		}
		closers = append(closers, store.Close)
		sinks.Store = store
	}

	return sinks, closeAll, nil
}

func startHTTP(addr string, health *monitoring.HealthChecker, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError("metrics server", err)
		}
	}()
	log.Info("metrics and health on %s", addr)
	return srv
}

func printStartupInfo(cfg *config.Config, venue *exchange.Venue, restored int) {
	universe := fmt.Sprintf("top %d (%s)", cfg.Universe.Size, strings.Join(cfg.Universe.Quotes, "/"))
	if len(cfg.Universe.Symbols) > 0 {
		universe = strings.Join(cfg.Universe.Symbols, ", ")
	}
	timeframes := make([]string, 0, len(strategy.Priority))
	for _, name := range strategy.Priority {
		timeframes = append(timeframes, fmt.Sprintf("%s %s", name, cfg.Strategies.Timeframes[name]))
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SIGNAL BOT " + common.GetFullVersion())
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Exchange", venue.Source.Name()},
		{"🚨 Mode", venue.Mode},
		{"🌐 Universe", universe},
		{"⏰ Cycle", cfg.Cycle.Interval()},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📊 Strategies", strings.Join(timeframes, ", ")},
		{"🚪 Exit interval", cfg.Strategies.ExitInterval},
		{"💰 Risk per trade", fmt.Sprintf("$%.2f", cfg.Risk.RiskAmount)},
		{"📈 Leverage", fmt.Sprintf("%.0fx", cfg.Risk.Leverage)},
		{"🎯 Stop / Target", fmt.Sprintf("%.1f / %.1f ATR", cfg.Risk.StopMultiplier, cfg.Risk.TargetMultiplier)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"💾 State", cfg.State.Backend},
		{"♻️ Restored", restored},
		{"🔔 Alerts", cfg.Alerts.Enabled},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
