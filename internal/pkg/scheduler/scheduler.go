// Package scheduler runs scrape cycles on a cron schedule and guards against overlapping cycles.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/orchestrator"
)

// DefaultSpec runs the daily cycle at 02:00
const DefaultSpec = "0 2 * * *"

// ErrBusy is returned when a cycle is requested while another one is running
var ErrBusy = errors.New("scrape cycle already running")

// CycleRunner runs one scrape cycle
type CycleRunner interface {
	RunScrapeCycle(ctx context.Context, jurisdictions []models.Jurisdiction) orchestrator.CycleResult
}

// Guard lets at most one cycle run at a time. The scheduler and the manual
// trigger share one Guard.
type Guard struct {
	runner CycleRunner
	mu     sync.Mutex

	lastMu sync.RWMutex
	last   *orchestrator.CycleResult
}

func NewGuard(runner CycleRunner) *Guard {
	return &Guard{runner: runner}
}

// Run starts a cycle unless one is already running, in which case it returns ErrBusy
func (g *Guard) Run(ctx context.Context, jurisdictions []models.Jurisdiction) (orchestrator.CycleResult, error) {
	if !g.mu.TryLock() {
		return orchestrator.CycleResult{}, ErrBusy
	}
	defer g.mu.Unlock()

	result := g.runner.RunScrapeCycle(ctx, jurisdictions)

	g.lastMu.Lock()
	g.last = &result
	g.lastMu.Unlock()
	return result, nil
}

// LastResult returns the most recent finished cycle
func (g *Guard) LastResult() (orchestrator.CycleResult, bool) {
	g.lastMu.RLock()
	defer g.lastMu.RUnlock()
	if g.last == nil {
		return orchestrator.CycleResult{}, false
	}
	return *g.last, true
}

type Options struct {
	Spec         string
	Location     *time.Location
	RunOnStartup bool
}

// Scheduler triggers full scrape cycles through a Guard
type Scheduler struct {
	cron  *cron.Cron
	guard *Guard
	opts  Options

	wg sync.WaitGroup
}

func New(guard *Guard, opts Options) *Scheduler {
	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithLocation(opts.Location),
		),
		guard: guard,
		opts:  opts,
	}
}

// Start registers the cycle job and starts the cron loop. Scheduled cycles run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.Spec, func() { s.trigger(ctx, "schedule") }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.opts.Spec, err)
	}
	s.cron.Start()
	slog.Info("Scheduler started", "spec", s.opts.Spec, "location", s.opts.Location.String(), "run_on_startup", s.opts.RunOnStartup)

	if s.opts.RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger(ctx, "startup")
		}()
	}
	return nil
}

// Stop stops scheduling new cycles and waits for the running one
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	slog.Info("Scheduled scrape cycle starting", "trigger", reason)
	result, err := s.guard.Run(ctx, nil)
	if errors.Is(err, ErrBusy) {
		slog.Warn("Scheduled scrape cycle skipped, previous cycle still running", "trigger", reason)
		return
	}
	slog.Info("Scheduled scrape cycle finished",
		"trigger", reason,
		"cycle_id", result.ID,
		"games", result.TotalGames(),
		"failed", result.Failed(),
		"duration", result.FinishedAt.Sub(result.StartedAt))
}

// cronLogger routes cron's logr-style logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
