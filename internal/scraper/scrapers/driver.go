package scrapers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
)

// Driver runs the listing-then-details scrape for one Site. Games are visited
// strictly one at a time with a pause between them.
type Driver struct {
	site     Site
	launcher browser.Launcher
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

func NewDriver(site Site, launcher browser.Launcher) *Driver {
	return &Driver{
		site:     site,
		launcher: launcher,
		sleep:    sleepContext,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *Driver) Jurisdiction() models.Jurisdiction { return d.site.Jurisdiction }
func (d *Driver) Describe() Description             { return d.site.describe() }

func (d *Driver) ScrapeAllGames(ctx context.Context, opts Options) ([]models.GameRecord, error) {
	opts = opts.withDefaults(d.site)
	log := slog.With("jurisdiction", d.site.Jurisdiction.Display())
	started := time.Now()

	session, err := d.launcher.Launch(ctx, browser.Options{
		Headless:          opts.Headless,
		UserAgent:         opts.UserAgent,
		NavigationTimeout: opts.NavigationTimeout,
		IgnoreCertErrors:  d.site.IgnoreCertErrors,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Failed to close browser session", "error", err)
		}
	}()

	listings := d.fetchListing(ctx, session, opts, log)
	if len(listings) == 0 {
		log.Warn("No games found - site structure may have changed", "url", d.site.ListingURL)
		return []models.GameRecord{}, nil
	}

	records := make([]models.GameRecord, 0, len(listings))
	for i, listing := range listings {
		log.Info("Scraping game", "n", i+1, "of", len(listings), "game", listing.Name)

		if record, ok := d.scrapeGame(ctx, session, listing, opts, log); ok {
			records = append(records, record)
		}

		if i < len(listings)-1 {
			if err := d.sleep(ctx, opts.InterRequestDelay); err != nil {
				return records, fmt.Errorf("scrape interrupted after %d games: %w", i+1, err)
			}
		}
	}

	log.Info("Scrape completed", "games", len(records), "listed", len(listings), "duration", time.Since(started))
	return records, nil
}

// fetchListing loads the listing page and extracts up to MaxGames listings.
// Every failure here degrades to an empty result.
func (d *Driver) fetchListing(ctx context.Context, s browser.Session, opts Options, log *slog.Logger) []models.GameListing {
	if err := s.Navigate(ctx, d.site.ListingURL); err != nil {
		log.Error("Failed to load listing page", "error", err)
		return nil
	}

	if d.site.ListingSettle > 0 {
		if err := d.sleep(ctx, d.site.ListingSettle); err != nil {
			return nil
		}
	}

	if d.site.ListingWait != "" {
		if err := s.WaitReady(ctx, d.site.ListingWait, opts.ListingTimeout); err != nil {
			if !d.site.ListingWaitOptional {
				log.Error("Listing page never became ready", "error", err)
				return nil
			}
			log.Warn("Timeout waiting for listing selectors, continuing anyway", "error", err)
		}
	}

	page, err := d.loadPage(ctx, s, d.site.ListingURL)
	if err != nil {
		log.Error("Failed to read listing page", "error", err)
		return nil
	}

	listings, strategy := extract.ExtractListings(page, d.site.ListingStrategies)
	log.Info("Found games", "count", len(listings), "strategy", strategy)

	if len(listings) > opts.MaxGames {
		listings = listings[:opts.MaxGames]
	}
	return listings
}

// scrapeGame visits one detail page. ok is false when the game should be skipped.
func (d *Driver) scrapeGame(ctx context.Context, s browser.Session, listing models.GameListing, opts Options, log *slog.Logger) (record models.GameRecord, ok bool) {
	log = log.With("game", listing.Name, "url", listing.DetailURL)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while scraping game", "panic", r)
			ok = false
		}
	}()

	if err := s.Navigate(ctx, listing.DetailURL); err != nil {
		log.Error("Failed to load game page", "error", err)
		return record, false
	}

	if d.site.PrizeTab != "" {
		if _, err := s.ClickIfPresent(ctx, d.site.PrizeTab); err != nil {
			log.Debug("Prize tab click failed", "error", err)
		}
	}

	if d.site.PrizeWait != "" {
		if err := s.WaitReady(ctx, d.site.PrizeWait, opts.DetailTimeout); err != nil {
			log.Error("Prize table did not load", "error", err)
			return record, false
		}
	}

	page, err := d.loadPage(ctx, s, listing.DetailURL)
	if err != nil {
		log.Error("Failed to read game page", "error", err)
		return record, false
	}

	detail := extract.ExtractDetail(page, d.site.PrizeStrategies, d.site.Hints)
	if len(detail.Tiers) == 0 {
		log.Warn("No prize tiers found, skipping game")
		return record, false
	}

	record = models.GameRecord{
		GameListing:  listing,
		Jurisdiction: d.site.Jurisdiction,
		Prizes:       detail.Tiers,
		OddsInfo:     detail.OddsText,
		ScrapedAt:    d.now(),
	}
	if detail.ImageURL != "" {
		record.ImageURL = detail.ImageURL
	}
	opts.Scoring.Analyze(&record, detail.TotalTicketsHint)

	log.Debug("Scraped game", "tiers", len(record.Prizes), "strategy", detail.Strategy, "ev", record.EV)
	return record, true
}

func (d *Driver) loadPage(ctx context.Context, s browser.Session, requested string) (*extract.Page, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := s.URL(ctx)
	if err != nil || loc == "" {
		loc = requested
	}
	return extract.NewPage(html, loc)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
