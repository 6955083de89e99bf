package pa

import (
	"testing"

	"github.com/Vodeneev/scratchiq/internal/scraper/extract"
)

func TestSite_PrizeTableWithoutTotals(t *testing.T) {
	html := `<html><body>
	<table id="prizes">
		<tr><th>Prize</th><th>Prizes Available</th></tr>
		<tr><td>$300,000</td><td>2</td></tr>
		<tr><td>$1,000</td><td>45</td></tr>
	</table>
	<span id="overall-odds">1 in 3.71</span>
	</body></html>`

	p, err := extract.NewPage(html, BaseURL+"/games/game-1540.aspx")
	if err != nil {
		t.Fatal(err)
	}

	site := Site()
	got := extract.ExtractDetail(p, site.PrizeStrategies, site.Hints)
	if len(got.Tiers) != 2 {
		t.Fatalf("got %d tiers, want 2: %+v", len(got.Tiers), got.Tiers)
	}
	if got.Tiers[0].TotalPrinted != got.Tiers[0].Remaining || got.Tiers[0].Remaining != 2 {
		t.Errorf("single count column should set total = remaining, got %+v", got.Tiers[0])
	}
	if got.OddsText != "1 in 3.71" {
		t.Errorf("OddsText = %q", got.OddsText)
	}
}
