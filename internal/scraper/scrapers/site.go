package scrapers

import (
	"time"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
)

// Site is everything a jurisdiction variant knows about its lottery's pages.
type Site struct {
	Jurisdiction models.Jurisdiction
	Name         string
	ListingURL   string

	// ListingWait is the selector that signals the listing has rendered
	ListingWait string
	// ListingWaitOptional continues with whatever loaded when ListingWait times out
	ListingWaitOptional bool
	// ListingSettle is an extra pause for client-side rendering after navigation
	ListingSettle     time.Duration
	ListingStrategies []extract.Strategy[models.GameListing]

	// PrizeTab is clicked when present to reveal the prize table
	PrizeTab        string
	PrizeWait       string
	PrizeStrategies []extract.Strategy[models.PrizeTier]
	Hints           extract.HintSelectors

	DefaultMaxGames  int
	IgnoreCertErrors bool
}

func (s Site) describe() Description {
	return Description{
		Jurisdiction:    s.Jurisdiction,
		Name:            s.Name,
		ListingURL:      s.ListingURL,
		DefaultMaxGames: s.DefaultMaxGames,
	}
}
