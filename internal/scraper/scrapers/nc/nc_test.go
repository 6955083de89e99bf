package nc

import (
	"strings"
	"testing"
)

func TestSite(t *testing.T) {
	s := Site()
	if !strings.HasPrefix(s.ListingURL, BaseURL) {
		t.Errorf("ListingURL = %q", s.ListingURL)
	}
	if s.DefaultMaxGames != 20 {
		t.Errorf("DefaultMaxGames = %d, want 20", s.DefaultMaxGames)
	}
	if len(s.ListingStrategies) == 0 || len(s.PrizeStrategies) == 0 {
		t.Error("site has no extraction strategies")
	}
	if New(nil).Jurisdiction() != "nc" {
		t.Error("New() returned the wrong jurisdiction")
	}
}
