// Package nc scrapes the North Carolina Education Lottery.
package nc

import (
	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

const (
	BaseURL         = "https://nclottery.com"
	DefaultMaxGames = 20
)

func init() {
	scrapers.Register(models.JurisdictionNC, New)
}

func New(launcher browser.Launcher) scrapers.Scraper {
	return scrapers.NewDriver(Site(), launcher)
}

// Site describes the NC scratch-off catalog: a card grid listing and detail pages
// with a prizes tab.
func Site() scrapers.Site {
	return scrapers.Site{
		Jurisdiction: models.JurisdictionNC,
		Name:         "NC Education Lottery",
		ListingURL:   BaseURL + "/scratch-offs",
		ListingWait:  `.scratchoff-game, .game-card, [class*="game"]`,
		ListingStrategies: []extract.Strategy[models.GameListing]{
			extract.CardGrid(extract.DefaultCardSelectors()),
		},
		PrizeTab:  `#prizes-tab, [href*="prizes"]`,
		PrizeWait: `table, .prize-table, [class*="prize"]`,
		PrizeStrategies: []extract.Strategy[models.PrizeTier]{
			extract.HeaderMappedTable(),
			extract.KeywordTable(),
			extract.PrizeRows(`.prize-row, [class*="prize-item"]`, `td, .prize-cell, [class*="cell"]`),
		},
		Hints:           extract.DefaultHintSelectors(),
		DefaultMaxGames: DefaultMaxGames,
	}
}
