package scrapers

import (
	"context"
	"time"

	"github.com/Vodeneev/scratchiq/internal/pkg/analytics"
	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// Default per-page waits
const (
	DefaultListingTimeout = 10 * time.Second
	DefaultDetailTimeout  = 5 * time.Second
	DefaultScrapeDelay    = 2 * time.Second
)

// Scraper harvests every game of one jurisdiction.
type Scraper interface {
	Jurisdiction() models.Jurisdiction
	Describe() Description
	// ScrapeAllGames returns an error only when no browser session could be started.
	// Listing and per-game failures degrade to fewer (or zero) records.
	ScrapeAllGames(ctx context.Context, opts Options) ([]models.GameRecord, error)
}

// Description is static information about a jurisdiction scraper.
type Description struct {
	Jurisdiction    models.Jurisdiction `json:"jurisdiction"`
	Name            string              `json:"name"`
	ListingURL      string              `json:"listing_url"`
	DefaultMaxGames int                 `json:"default_max_games"`
}

// Options control a single scrape run.
type Options struct {
	// MaxGames caps the listings visited; 0 uses the jurisdiction default
	MaxGames          int
	InterRequestDelay time.Duration
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	ListingTimeout    time.Duration
	DetailTimeout     time.Duration
	// Scoring overrides the analytics constants; nil uses analytics.DefaultScoring
	Scoring *analytics.Scoring
}

func (o Options) withDefaults(site Site) Options {
	if o.MaxGames <= 0 {
		o.MaxGames = site.DefaultMaxGames
	}
	if o.InterRequestDelay < 0 {
		o.InterRequestDelay = 0
	}
	if o.ListingTimeout <= 0 {
		o.ListingTimeout = DefaultListingTimeout
	}
	if o.DetailTimeout <= 0 {
		o.DetailTimeout = DefaultDetailTimeout
	}
	if o.Scoring == nil {
		s := analytics.DefaultScoring()
		o.Scoring = &s
	}
	return o
}
