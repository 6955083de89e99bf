// Package orchestrator runs scrape cycles: every requested jurisdiction is
// scraped in turn and successful batches are handed to ingestion. A failure in
// one jurisdiction never stops the others.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/pkg/performance"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

// WarningNoGames is reported when a jurisdiction scrape finds nothing.
const WarningNoGames = "no games found - site structure may have changed"

// Ingestor accepts a scraped batch for one jurisdiction.
type Ingestor interface {
	Ingest(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error
}

// IngestorFunc adapts a function to Ingestor.
type IngestorFunc func(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error

func (f IngestorFunc) Ingest(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error {
	return f(ctx, jurisdiction, records)
}

// ScraperFactory builds the scraper for a jurisdiction code.
type ScraperFactory func(name string, launcher browser.Launcher) (scrapers.Scraper, error)

// JurisdictionResult is the outcome of scraping one jurisdiction.
type JurisdictionResult struct {
	Jurisdiction models.Jurisdiction `json:"jurisdiction"`
	GamesScraped int                 `json:"games_scraped"`
	Error        string              `json:"error,omitempty"`
	Warning      string              `json:"warning,omitempty"`
	DurationMs   int64               `json:"duration_ms"`
}

// CycleResult is the outcome of one scrape cycle.
type CycleResult struct {
	ID              string               `json:"id"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	PerJurisdiction []JurisdictionResult `json:"results"`
}

// TotalGames sums the games scraped across jurisdictions.
func (r CycleResult) TotalGames() int {
	n := 0
	for _, j := range r.PerJurisdiction {
		n += j.GamesScraped
	}
	return n
}

// Failed counts jurisdictions that ended with an error.
func (r CycleResult) Failed() int {
	n := 0
	for _, j := range r.PerJurisdiction {
		if j.Error != "" {
			n++
		}
	}
	return n
}

type Orchestrator struct {
	launcher      browser.Launcher
	ingestor      Ingestor
	sinks         []Ingestor
	jurisdictions []models.Jurisdiction
	options       func(models.Jurisdiction) scrapers.Options
	newScraper    ScraperFactory
	tracker       *performance.Tracker
}

type Option func(*Orchestrator)

// WithJurisdictions sets the jurisdictions scraped when a cycle names none.
func WithJurisdictions(js ...models.Jurisdiction) Option {
	return func(o *Orchestrator) { o.jurisdictions = js }
}

// WithScrapeOptions sets the per-jurisdiction scrape options.
func WithScrapeOptions(f func(models.Jurisdiction) scrapers.Options) Option {
	return func(o *Orchestrator) { o.options = f }
}

// WithSinks adds best-effort consumers that receive every ingested batch.
// Their failures are logged and never fail the jurisdiction.
func WithSinks(sinks ...Ingestor) Option {
	return func(o *Orchestrator) { o.sinks = append(o.sinks, sinks...) }
}

func WithScraperFactory(f ScraperFactory) Option {
	return func(o *Orchestrator) { o.newScraper = f }
}

func WithTracker(t *performance.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// New creates an orchestrator. ingestor may be nil for dry runs.
func New(launcher browser.Launcher, ingestor Ingestor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		launcher:   launcher,
		ingestor:   ingestor,
		options:    func(models.Jurisdiction) scrapers.Options { return scrapers.Options{Headless: true} },
		newScraper: scrapers.New,
		tracker:    performance.GetTracker(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.jurisdictions) == 0 {
		o.jurisdictions = scrapers.Available()
	}
	return o
}

// Jurisdictions returns the default jurisdiction set.
func (o *Orchestrator) Jurisdictions() []models.Jurisdiction {
	out := make([]models.Jurisdiction, len(o.jurisdictions))
	copy(out, o.jurisdictions)
	return out
}

// RunScrapeCycle scrapes jurisdictions sequentially, or every configured one when
// none are given.
func (o *Orchestrator) RunScrapeCycle(ctx context.Context, jurisdictions []models.Jurisdiction) CycleResult {
	if len(jurisdictions) == 0 {
		jurisdictions = o.jurisdictions
	}

	result := CycleResult{
		ID:              uuid.NewString(),
		StartedAt:       time.Now().UTC(),
		PerJurisdiction: make([]JurisdictionResult, 0, len(jurisdictions)),
	}
	log := slog.With("cycle_id", result.ID)
	log.Info("Starting scrape cycle", "jurisdictions", jurisdictions)

	for _, j := range jurisdictions {
		if err := ctx.Err(); err != nil {
			result.PerJurisdiction = append(result.PerJurisdiction, JurisdictionResult{
				Jurisdiction: j,
				Error:        fmt.Sprintf("skipped: %v", err),
			})
			continue
		}
		result.PerJurisdiction = append(result.PerJurisdiction, o.runJurisdiction(ctx, j, log))
	}

	result.FinishedAt = time.Now().UTC()
	o.tracker.RecordCycle()
	log.Info("Scrape cycle finished",
		"games", result.TotalGames(),
		"failed", result.Failed(),
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result
}

func (o *Orchestrator) runJurisdiction(ctx context.Context, j models.Jurisdiction, log *slog.Logger) (res JurisdictionResult) {
	j = models.ParseJurisdiction(j.String())
	log = log.With("jurisdiction", j.Display())
	res.Jurisdiction = j
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		elapsed := time.Since(started)
		res.DurationMs = elapsed.Milliseconds()

		var runErr error
		if res.Error != "" {
			runErr = errors.New(res.Error)
			log.Error("Jurisdiction scrape failed", "error", res.Error)
		}
		o.tracker.RecordRun(j.String(), res.GamesScraped, elapsed, runErr)
	}()

	scraper, err := o.newScraper(j.String(), o.launcher)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	records, err := scraper.ScrapeAllGames(ctx, o.options(j))
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.GamesScraped = len(records)
	if len(records) == 0 {
		res.Warning = WarningNoGames
		log.Warn("Jurisdiction returned no games")
		return res
	}

	if err := o.ingest(ctx, j, records); err != nil {
		res.Error = fmt.Sprintf("ingest failed: %v", err)
		return res
	}

	log.Info("Jurisdiction scraped", "games", len(records))
	return res
}

func (o *Orchestrator) ingest(ctx context.Context, j models.Jurisdiction, records []models.GameRecord) error {
	if o.ingestor != nil {
		start := time.Now()
		err := o.ingestor.Ingest(ctx, j, records)
		o.tracker.RecordIngest(time.Since(start), err)
		if err != nil {
			return err
		}
	}

	for _, sink := range o.sinks {
		if err := sink.Ingest(ctx, j, records); err != nil {
			slog.Warn("Sink failed", "jurisdiction", j.Display(), "error", err)
		}
	}
	return nil
}
