// Package md scrapes the Maryland Lottery.
package md

import (
	"time"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

const (
	BaseURL         = "https://www.mdlottery.com"
	DefaultMaxGames = 50
)

func init() {
	scrapers.Register(models.JurisdictionMD, New)
}

func New(launcher browser.Launcher) scrapers.Scraper {
	return scrapers.NewDriver(Site(), launcher)
}

// Site describes the MD catalog. Cards often omit a price element, so the price
// is also read from the card text, and game numbers appear as bare digit runs in links.
func Site() scrapers.Site {
	cards := cardSelectors()

	items := extract.DefaultItemSelectors()
	items.IDPattern = extract.LooseGameIDPattern

	hints := extract.DefaultHintSelectors()
	hints.Image = `.ticket-image, .game-image, img[alt*="ticket"], img[class*="ticket"], .game-detail img`

	return scrapers.Site{
		Jurisdiction:        models.JurisdictionMD,
		Name:                "Maryland Lottery",
		ListingURL:          BaseURL + "/games/scratch-offs/",
		ListingWait:         `.game, .scratch-off, [class*="game"], .product`,
		ListingWaitOptional: true,
		ListingSettle:       3 * time.Second,
		ListingStrategies: []extract.Strategy[models.GameListing]{
			extract.CardGrid(cards),
			extract.ListItems(items),
		},
		PrizeTab:  `[href*="prizes"], [href*="odds"]`,
		PrizeWait: `table, .prize-table, .prizes, [class*="prize"], [class*="remaining"]`,
		PrizeStrategies: []extract.Strategy[models.PrizeTier]{
			extract.HeaderMappedTable(),
			extract.KeywordTable(),
			extract.PrizeItems(`.prize, [class*="prize-item"]`),
		},
		Hints:            hints,
		DefaultMaxGames:  DefaultMaxGames,
		IgnoreCertErrors: true,
	}
}

func cardSelectors() extract.CardSelectors {
	return extract.CardSelectors{
		Cards:         `.game, .game-card, .product, .scratch-off, [class*="game-item"], [class*="product"]`,
		Name:          `.game-name, .name, .title, h3, h4, h2, [class*="name"], [class*="title"]`,
		Price:         `.price, .cost, [class*="price"], [class*="cost"]`,
		ID:            `.game-id, .game-number, .number, [class*="number"], [class*="game-id"]`,
		Link:          `a[href*="scratch"], a[href*="game"], a`,
		Image:         `img`,
		PriceFromText: true,
		IDPattern:     extract.LooseGameIDPattern,
	}
}
