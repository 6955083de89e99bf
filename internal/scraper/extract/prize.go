package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/scratchiq/internal/pkg/analytics"
	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

const (
	StrategyHeaderMappedTable = "header_mapped_table"
	StrategyKeywordTable      = "keyword_table"
	StrategyPrizeRows         = "prize_rows"
	StrategyPrizeItems        = "prize_items"
)

var (
	prizeAmountRegex    = regexp.MustCompile(`\$[\d,]+(?:\.\d{1,2})?`)
	prizeRemainingRegex = regexp.MustCompile(`(?i)([\d,]+)\s*(?:remaining|left|available)`)
	tableKeywords       = []string{"prize", "remaining", "available"}
)

// DetailExtract is everything read from a game's detail page.
type DetailExtract struct {
	Tiers            []models.PrizeTier
	OddsText         string
	ImageURL         string
	TotalTicketsHint int64
	Strategy         string
}

// HintSelectors locate the free-text hints on a detail page.
type HintSelectors struct {
	Odds  string
	Image string
	// Tickets matches a print-run statement; the first group is the count
	Tickets *regexp.Regexp
}

// DefaultHintSelectors returns the odds, image and ticket-count lookups shared by all sites.
func DefaultHintSelectors() HintSelectors {
	return HintSelectors{
		Odds:    `[class*="odds"], .game-odds, .overall-odds, [id*="odds"]`,
		Image:   `.ticket-image, .game-image, img[alt*="ticket"], img[class*="ticket"]`,
		Tickets: regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+)\s*(?:total\s*tickets|tickets|total)\b`),
	}
}

// ExtractDetail reads the prize table with the first successful strategy and
// scans the page for odds, print run and ticket image. Missing hints are left empty.
func ExtractDetail(p *Page, strategies []Strategy[models.PrizeTier], hints HintSelectors) DetailExtract {
	tiers, name := FirstNonEmpty(p, strategies)
	return DetailExtract{
		Tiers:            tiers,
		Strategy:         name,
		OddsText:         oddsText(p, hints.Odds),
		ImageURL:         p.imageURL(p.Doc.Find(hints.Image).First()),
		TotalTicketsHint: ticketsHint(p, hints.Tickets, analytics.PrintedPrizes(tiers)),
	}
}

// HeaderMappedTable reads a table whose header names a prize column and a
// remaining column, with an optional total/printed column.
func HeaderMappedTable() Strategy[models.PrizeTier] {
	return Strategy[models.PrizeTier]{
		Name: StrategyHeaderMappedTable,
		Extract: func(p *Page) []models.PrizeTier {
			var out []models.PrizeTier
			p.Doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
				cols, ok := mapHeader(table)
				if !ok {
					return true
				}

				var tiers []models.PrizeTier
				eachCandidate(table.Find("tr"), func(_ int, row *goquery.Selection) {
					cells := row.Find("td")
					if cells.Length() <= max(cols.prize, cols.remaining) {
						return
					}

					label := text(cells.Eq(cols.prize))
					tier := models.PrizeTier{
						Label:     label,
						Amount:    ParseDecimal(label),
						Remaining: ParseInt(text(cells.Eq(cols.remaining))),
					}
					if cols.total >= 0 && cols.total < cells.Length() {
						tier.TotalPrinted = ParseInt(text(cells.Eq(cols.total)))
					}
					if tier.TotalPrinted == 0 {
						tier.TotalPrinted = tier.Remaining
					}
					if tier.Amount > 0 {
						tiers = append(tiers, tier)
					}
				})

				if len(tiers) > 0 {
					out = tiers
					return false
				}
				return true
			})
			return out
		},
	}
}

type columns struct {
	prize, remaining, total int
}

func mapHeader(table *goquery.Selection) (columns, bool) {
	cols := columns{prize: -1, remaining: -1, total: -1}

	header := table.Find("thead tr").First()
	if header.Length() == 0 {
		header = table.Find("tr").First()
	}
	cells := header.Find("th")
	if cells.Length() == 0 {
		return cols, false
	}

	cells.Each(func(i int, c *goquery.Selection) {
		h := strings.ToLower(text(c))
		switch {
		case cols.remaining < 0 && containsAny(h, "remaining", "left", "available", "unclaimed"):
			cols.remaining = i
		case cols.total < 0 && containsAny(h, "total", "printed", "start", "original"):
			cols.total = i
		case cols.prize < 0 && containsAny(h, "prize", "amount", "value"):
			cols.prize = i
		}
	})

	return cols, cols.prize >= 0 && cols.remaining >= 0
}

// KeywordTable reads the first table mentioning prizes, applying the trailing
// numeric rule to each row.
func KeywordTable() Strategy[models.PrizeTier] {
	return Strategy[models.PrizeTier]{
		Name: StrategyKeywordTable,
		Extract: func(p *Page) []models.PrizeTier {
			var table *goquery.Selection
			p.Doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
				if containsAny(strings.ToLower(t.Text()), tableKeywords...) {
					table = t
					return false
				}
				return true
			})
			if table == nil {
				return nil
			}

			var out []models.PrizeTier
			eachCandidate(table.Find("tr"), func(i int, row *goquery.Selection) {
				if i == 0 && row.Find("th").Length() > 0 {
					return
				}
				if tier, ok := tierFromCells(cellTexts(row.Find("td, th"))); ok {
					out = append(out, tier)
				}
			})
			return out
		},
	}
}

// PrizeRows reads non-table rows (e.g. .prize-row) with the trailing numeric rule.
func PrizeRows(rowSelector, cellSelector string) Strategy[models.PrizeTier] {
	return Strategy[models.PrizeTier]{
		Name: StrategyPrizeRows,
		Extract: func(p *Page) []models.PrizeTier {
			var out []models.PrizeTier
			eachCandidate(p.Doc.Find(rowSelector), func(_ int, row *goquery.Selection) {
				if tier, ok := tierFromCells(cellTexts(row.Find(cellSelector))); ok {
					out = append(out, tier)
				}
			})
			return out
		},
	}
}

// PrizeItems reads free-text prize elements such as "$500 - 12 remaining".
func PrizeItems(selector string) Strategy[models.PrizeTier] {
	return Strategy[models.PrizeTier]{
		Name: StrategyPrizeItems,
		Extract: func(p *Page) []models.PrizeTier {
			var out []models.PrizeTier
			eachCandidate(p.Doc.Find(selector), func(_ int, el *goquery.Selection) {
				t := text(el)
				amount := prizeAmountRegex.FindString(t)
				remaining := prizeRemainingRegex.FindStringSubmatch(t)
				if amount == "" || remaining == nil {
					return
				}

				n := ParseInt(remaining[1])
				tier := models.PrizeTier{Label: amount, Amount: ParseDecimal(amount), TotalPrinted: n, Remaining: n}
				if tier.Amount > 0 {
					out = append(out, tier)
				}
			})
			return out
		},
	}
}

// tierFromCells applies the trailing numeric rule: the prize is the first cell
// holding "$" (else the first cell); scanning the remaining count cells from the
// end, the first is Remaining and the next TotalPrinted. With a single count
// column TotalPrinted equals Remaining.
func tierFromCells(cells []string) (models.PrizeTier, bool) {
	if len(cells) < 2 {
		return models.PrizeTier{}, false
	}

	prizeIdx := 0
	for i, c := range cells {
		if strings.Contains(c, "$") {
			prizeIdx = i
			break
		}
	}

	tier := models.PrizeTier{Label: cells[prizeIdx], Amount: ParseDecimal(cells[prizeIdx])}
	if tier.Amount <= 0 {
		return models.PrizeTier{}, false
	}

	var counts []int
	for i := len(cells) - 1; i >= 0 && len(counts) < 2; i-- {
		if i == prizeIdx {
			continue
		}
		if n, ok := countCell(cells[i]); ok {
			counts = append(counts, n)
		}
	}

	switch len(counts) {
	case 0:
		return models.PrizeTier{}, false
	case 1:
		tier.Remaining, tier.TotalPrinted = counts[0], counts[0]
	default:
		tier.Remaining, tier.TotalPrinted = counts[0], counts[1]
	}
	return tier, true
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, text(c))
	})
	return out
}

func oddsText(p *Page, selector string) string {
	if selector != "" {
		var found string
		p.Doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if t := text(el); hasDigit.MatchString(t) {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return oddsLikeBody.FindString(p.BodyText())
}

var oddsLikeBody = regexp.MustCompile(`(?i)\b1\s+in\s+[\d,]+(?:\.\d+)?`)

// ticketsHint returns the first print-run count on the page that is at least
// floor, or 0. Smaller counts ("Buy 10 tickets") are skipped.
func ticketsHint(p *Page, pattern *regexp.Regexp, floor int64) int64 {
	if pattern == nil {
		return 0
	}
	for _, m := range pattern.FindAllStringSubmatch(p.BodyText(), -1) {
		if n := int64(ParseInt(m[1])); n > 0 && n >= floor {
			return n
		}
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
