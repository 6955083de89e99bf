package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// Strategy names reported alongside extraction results
const (
	StrategyCardGrid  = "card_grid"
	StrategyTableRows = "table_rows"
	StrategyListItems = "list_items"
)

var (
	// GameIDPattern finds a game number in a detail link, e.g. /scratch-offs/game-1234
	GameIDPattern = regexp.MustCompile(`(?i)game[/-]?(\d+)`)
	// LooseGameIDPattern additionally accepts any run of three or more digits
	LooseGameIDPattern = regexp.MustCompile(`(?i)game[/-]?(\d+)|(\d{3,})`)
)

// CardSelectors describes a product/card grid layout.
type CardSelectors struct {
	Cards string
	Name  string
	Price string
	ID    string
	Link  string
	Image string
	// PriceFromText reads "$N" from the card text when no price element parses
	PriceFromText bool
	IDPattern     *regexp.Regexp
}

// RowSelectors describes a table layout with [number, name, price] cells.
type RowSelectors struct {
	Rows  string
	Cells string
	Link  string
	Image string
}

// ItemSelectors describes a plain list of game links.
type ItemSelectors struct {
	Items     string
	Link      string
	Name      string
	Price     string
	Image     string
	IDPattern *regexp.Regexp
}

// DefaultCardSelectors matches the common scratch-off card markup.
func DefaultCardSelectors() CardSelectors {
	return CardSelectors{
		Cards:     `.scratchoff-game, .game-card, [class*="game-item"]`,
		Name:      `.game-name, [class*="name"], h3, h4`,
		Price:     `.game-price, [class*="price"], .cost`,
		ID:        `.game-id, [class*="game-number"]`,
		Link:      `a[href*="scratch"], a[href*="game"]`,
		Image:     `img`,
		IDPattern: GameIDPattern,
	}
}

// DefaultRowSelectors matches games laid out as table rows.
func DefaultRowSelectors() RowSelectors {
	return RowSelectors{
		Rows:  `table tr, .game-row, [class*="game-row"]`,
		Cells: `td, .cell, [class*="cell"]`,
		Link:  `a[href*="game"], a[href*="scratch"], a`,
		Image: `img`,
	}
}

// DefaultItemSelectors matches games listed as links in list items.
func DefaultItemSelectors() ItemSelectors {
	return ItemSelectors{
		Items:     `li, .list-item, [class*="list-item"]`,
		Link:      `a[href*="scratch"], a[href*="game"]`,
		Name:      `.name, .title, h3, h4, strong`,
		Price:     `.price, [class*="price"]`,
		Image:     `img`,
		IDPattern: GameIDPattern,
	}
}

// ExtractListings returns the valid listings found by the first successful strategy.
func ExtractListings(p *Page, strategies []Strategy[models.GameListing]) ([]models.GameListing, string) {
	return FirstNonEmpty(p, strategies)
}

// CardGrid reads games from card elements holding a name, a price and a link.
func CardGrid(s CardSelectors) Strategy[models.GameListing] {
	return Strategy[models.GameListing]{
		Name: StrategyCardGrid,
		Extract: func(p *Page) []models.GameListing {
			var out []models.GameListing
			eachCandidate(p.Doc.Find(s.Cards), func(i int, card *goquery.Selection) {
				nameEl := card.Find(s.Name).First()
				priceEl := card.Find(s.Price).First()
				if nameEl.Length() == 0 || (priceEl.Length() == 0 && !s.PriceFromText) {
					return
				}

				fallback := ""
				if s.PriceFromText {
					fallback = text(card)
				}

				link := p.Resolve(attr(card.Find(s.Link).First(), "href"))
				listing := models.GameListing{
					ExternalID: gameID(text(card.Find(s.ID).First()), link, s.IDPattern, i),
					Name:       text(nameEl),
					Price:      parsePrice(text(priceEl), fallback),
					DetailURL:  link,
					ImageURL:   p.imageURL(card.Find(s.Image).First()),
				}
				if listing.Name != "" && listing.Valid() {
					out = append(out, listing)
				}
			})
			return out
		},
	}
}

// TableRows reads games from table rows shaped [number, name, price, ...].
func TableRows(s RowSelectors) Strategy[models.GameListing] {
	return Strategy[models.GameListing]{
		Name: StrategyTableRows,
		Extract: func(p *Page) []models.GameListing {
			rows := p.Doc.Find(s.Rows)
			if rows.Length() < 2 {
				return nil
			}

			var out []models.GameListing
			eachCandidate(rows, func(i int, row *goquery.Selection) {
				cells := row.Find(s.Cells)
				if cells.Length() < 3 {
					return
				}

				number := text(cells.Eq(0))
				name := text(cells.Eq(1))
				priceText := text(cells.Eq(2))
				linkEl := row.Find(s.Link).First()
				if name == "" || priceText == "" || linkEl.Length() == 0 {
					return
				}

				link := p.Resolve(attr(linkEl, "href"))
				listing := models.GameListing{
					ExternalID: gameID(number, link, nil, i),
					Name:       name,
					Price:      parsePrice(priceText, ""),
					DetailURL:  link,
					ImageURL:   p.imageURL(row.Find(s.Image).First()),
				}
				if listing.Valid() {
					out = append(out, listing)
				}
			})
			return out
		},
	}
}

// ListItems reads games from list items that link to a game page.
func ListItems(s ItemSelectors) Strategy[models.GameListing] {
	return Strategy[models.GameListing]{
		Name: StrategyListItems,
		Extract: func(p *Page) []models.GameListing {
			var out []models.GameListing
			eachCandidate(p.Doc.Find(s.Items), func(i int, item *goquery.Selection) {
				linkEl := item.Find(s.Link).First()
				nameEl := item.Find(s.Name).First()
				if linkEl.Length() == 0 || nameEl.Length() == 0 {
					return
				}

				link := p.Resolve(attr(linkEl, "href"))
				listing := models.GameListing{
					ExternalID: gameID("", link, s.IDPattern, i),
					Name:       text(nameEl),
					Price:      parsePrice(text(item.Find(s.Price).First()), text(item)),
					DetailURL:  link,
					ImageURL:   p.imageURL(item.Find(s.Image).First()),
				}
				if listing.Name != "" && listing.Valid() {
					out = append(out, listing)
				}
			})
			return out
		},
	}
}

// gameID prefers an explicit id, then a number found in the link, then a
// synthesized "game-{index}".
func gameID(explicit, link string, pattern *regexp.Regexp, index int) string {
	if id := strings.TrimSpace(strings.TrimPrefix(explicit, "#")); id != "" {
		return id
	}
	if pattern != nil && link != "" {
		if m := pattern.FindStringSubmatch(link); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return g
				}
			}
		}
	}
	return fmt.Sprintf("game-%d", index)
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return v
}
