package all

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

func TestAllJurisdictionsRegistered(t *testing.T) {
	want := []string{"md", "nc", "pa"}
	if diff := cmp.Diff(want, scrapers.AvailableNames()); diff != "" {
		t.Errorf("AvailableNames() mismatch (-want +got):\n%s", diff)
	}

	for _, name := range want {
		s, err := scrapers.New(name, nil)
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		d := s.Describe()
		if d.Jurisdiction.String() != name || d.ListingURL == "" || d.DefaultMaxGames <= 0 {
			t.Errorf("Describe() for %s = %+v", name, d)
		}
	}
}
