package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/monitoring"
)

const rejectionAlarm = 3

// UniverseSource lists the instruments to scan
type UniverseSource interface {
	Universe(ctx context.Context, n int, quotes []string) ([]string, error)
}

// RunnerConfig controls the cycle cadence and the instrument universe
type RunnerConfig struct {
	Interval     time.Duration
	UniverseSize int
	Quotes       []string
	Symbols      []string // fixed universe, replaces the volume ranking when set
	Summary      bool
}

// Runner drives RunCycle on a fixed cadence. Cycles never overlap: a cycle
// that overruns the interval delays the next one.
type Runner struct {
	engine   *Engine
	universe UniverseSource
	cfg      RunnerConfig
	health   *monitoring.HealthChecker
	logger   *logger.Logger
	out      io.Writer

	last   []string
	cycles int
}

// NewRunner creates a runner. health may be nil.
func NewRunner(engine *Engine, universe UniverseSource, cfg RunnerConfig, health *monitoring.HealthChecker, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Runner{
		engine:   engine,
		universe: universe,
		cfg:      cfg,
		health:   health,
		logger:   log,
		out:      os.Stdout,
	}
}

// SetOutput redirects the cycle summary tables
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Run executes cycles until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Status("runner started: every %s, universe %d", r.cfg.Interval, r.cfg.UniverseSize)
	for {
		if ctx.Err() != nil {
			r.logger.Status("runner stopped after %d cycles", r.cycles)
			return nil
		}

		started := time.Now()
		report := r.RunOnce(ctx)

		wait := r.cfg.Interval - time.Since(started)
		if report.Requests > 0 && report.fetchFailures() == report.Requests {
			r.logger.Warning("every request failed, waiting an extra interval")
			wait += r.cfg.Interval
		}
		if wait < 0 {
			r.logger.Warning("cycle took %s, longer than the %s interval", time.Since(started).Truncate(time.Millisecond), r.cfg.Interval)
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Status("runner stopped after %d cycles", r.cycles)
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce refreshes the universe and runs a single cycle
func (r *Runner) RunOnce(ctx context.Context) *CycleReport {
	universe := r.refreshUniverse(ctx)
	report := r.engine.RunCycle(ctx, universe)
	r.cycles++

	if r.health != nil {
		r.health.RecordCycle(report.Started.Add(report.Duration), report.Universe,
			len(r.engine.manager.Symbols()), report.Errors())
	}

	r.logger.Status("cycle %d: universe=%d candidates=%d signals=%d opened=%d closed=%d skips=%d in %s",
		r.cycles, report.Universe, len(report.Candidates), len(report.Signals),
		len(report.Opened), len(report.Closed), len(report.Skips), report.Duration.Truncate(time.Millisecond))
	if r.engine.RepeatedRejections(rejectionAlarm) {
		r.logger.Error("the executor refused %d or more recent orders, check margin and API permissions", rejectionAlarm)
	}
	if r.cfg.Summary {
		r.printSummary(report)
	}
	return report
}

func (r *Runner) refreshUniverse(ctx context.Context) []string {
	if len(r.cfg.Symbols) > 0 {
		return r.cfg.Symbols
	}

	symbols, err := r.universe.Universe(ctx, r.cfg.UniverseSize, r.cfg.Quotes)
	if err != nil || len(symbols) == 0 {
		if err == nil {
			err = fmt.Errorf("empty symbol list")
		}
		r.logger.Warning("universe refresh failed, keeping %d symbols: %v", len(r.last), err)
		return r.last
	}
	r.last = symbols
	return symbols
}

func (r *Runner) printSummary(report *CycleReport) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("CYCLE %d  %s", r.cycles, report.Started.UTC().Format("2006-01-02 15:04:05")))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🌐 Universe", report.Universe},
		{"📂 Held", strings.Join(report.Held, ", ")},
		{"🔍 Candidates", len(report.Candidates)},
		{"⏱ Duration", report.Duration.Truncate(time.Millisecond)},
	})

	t.AppendSeparator()

	for _, sig := range report.Signals {
		t.AppendRow(table.Row{"📡 Signal", sig.String()})
	}
	for _, p := range report.Opened {
		t.AppendRow(table.Row{"🟢 Opened", fmt.Sprintf("%s %s %s qty %.6g @ %.6g SL %.6g TP %.6g",
			p.Symbol, p.Strategy, p.Direction, p.Quantity, p.Entry, p.Stop, p.Target)})
	}
	for _, tr := range report.Closed {
		t.AppendRow(table.Row{"🔴 Closed", fmt.Sprintf("%s %s %s $%.2f (%.2f%%)",
			tr.Symbol, tr.Direction, tr.CloseReason, tr.PnLAmount, tr.PnLPct)})
	}

	if len(report.Skips) > 0 {
		t.AppendSeparator()
		stages := report.SkipsByStage()
		for _, stage := range []string{StageFetch, StageIndicators, StageSignal, StageSizing, StageOpen, StageClose} {
			if n := stages[stage]; n > 0 {
				t.AppendRow(table.Row{"⚠️ Skipped", fmt.Sprintf("%d at %s", n, stage)})
			}
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 80, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}
