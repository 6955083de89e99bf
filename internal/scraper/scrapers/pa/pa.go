// Package pa scrapes the Pennsylvania Lottery.
package pa

import (
	"time"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

const (
	BaseURL         = "https://www.palottery.com"
	DefaultMaxGames = 50
)

func init() {
	scrapers.Register(models.JurisdictionPA, New)
}

func New(launcher browser.Launcher) scrapers.Scraper {
	return scrapers.NewDriver(Site(), launcher)
}

// Site describes the PA active games page, which has used both a table and a
// card layout.
func Site() scrapers.Site {
	cards := extract.DefaultCardSelectors()
	cards.Cards = `.game, .game-card, .scratch-off, [class*="game-item"]`
	cards.Name = `.game-name, .name, h3, h4, .title, [class*="name"]`
	cards.Price = `.price, .cost, [class*="price"]`
	cards.ID = `.game-id, .number, [class*="number"]`
	cards.Link = `a[href*="scratch"], a[href*="game"], a`

	return scrapers.Site{
		Jurisdiction:        models.JurisdictionPA,
		Name:                "Pennsylvania Lottery",
		ListingURL:          BaseURL + "/scratch-offs/active-games.aspx",
		ListingWait:         `.game, .scratch-off, [class*="game"], table, .scratchCard`,
		ListingWaitOptional: true,
		ListingSettle:       3 * time.Second,
		ListingStrategies: []extract.Strategy[models.GameListing]{
			extract.TableRows(extract.DefaultRowSelectors()),
			extract.CardGrid(cards),
		},
		PrizeTab:  `[href*="prizes"], [href*="odds"]`,
		PrizeWait: `table, .prize-table, .prizes, [class*="prize"]`,
		PrizeStrategies: []extract.Strategy[models.PrizeTier]{
			extract.KeywordTable(),
			extract.PrizeRows(`.prize-row, [class*="prize-row"]`, `td, th, .cell`),
		},
		Hints:            extract.DefaultHintSelectors(),
		DefaultMaxGames:  DefaultMaxGames,
		IgnoreCertErrors: true,
	}
}
