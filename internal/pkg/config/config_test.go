package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Vodeneev/scratchiq/internal/pkg/analytics"
	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	_ "github.com/Vodeneev/scratchiq/internal/scraper/scrapers/all"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scraper.ScrapeDelay != 2*time.Second {
		t.Errorf("ScrapeDelay = %v, want 2s", cfg.Scraper.ScrapeDelay)
	}
	if cfg.Scraper.Headless == nil || !*cfg.Scraper.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.Analytics.HotTicketThreshold != 0.70 || cfg.Analytics.EstimatedTotalTickets != 4_000_000 {
		t.Errorf("analytics defaults = %+v", cfg.Analytics)
	}
	if cfg.Scheduler.Cron != "0 2 * * *" || !cfg.SchedulerEnabled() {
		t.Errorf("scheduler defaults = %+v", cfg.Scheduler)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
}

func TestLoad_FileLocalOverrideAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", `
jurisdictions: [nc, pa]
scraper:
  headless: false
  max_games_per_scrape: 15
  scrape_delay: 3s
  overrides:
    pa:
      max_games: 40
analytics:
  hot_ticket_threshold: 0.8
database:
  driver: sqlite
  dsn: file:games.db
scheduler:
  enabled: false
  timezone: America/New_York
`)
	writeFile(t, dir, "app.local.yaml", `
scraper:
  max_games_per_scrape: 5
`)
	t.Setenv("DATABASE_URL", "file:override.db")
	t.Setenv("SCRAPE_DELAY_MS", "500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if *cfg.Scraper.Headless {
		t.Error("explicit headless: false was overwritten by the default")
	}
	if cfg.Scraper.MaxGamesPerScrape != 5 {
		t.Errorf("MaxGamesPerScrape = %d, want local override 5", cfg.Scraper.MaxGamesPerScrape)
	}
	if cfg.Scraper.ScrapeDelay != 500*time.Millisecond {
		t.Errorf("ScrapeDelay = %v, want env 500ms", cfg.Scraper.ScrapeDelay)
	}
	if cfg.Database.DSN != "file:override.db" {
		t.Errorf("DSN = %q, want env value", cfg.Database.DSN)
	}
	if cfg.SchedulerEnabled() {
		t.Error("scheduler should be disabled")
	}
	if cfg.Location().String() != "America/New_York" {
		t.Errorf("Location() = %v", cfg.Location())
	}
	if diff := cmp.Diff([]models.Jurisdiction{"nc", "pa"}, cfg.JurisdictionList()); diff != "" {
		t.Errorf("JurisdictionList mismatch (-want +got):\n%s", diff)
	}

	nc := cfg.ScrapeOptions(models.JurisdictionNC)
	if nc.MaxGames != 5 || nc.Headless || nc.Scoring.HotThreshold != 0.8 {
		t.Errorf("nc options = %+v", nc)
	}
	pa := cfg.ScrapeOptions(models.JurisdictionPA)
	if pa.MaxGames != 40 || pa.InterRequestDelay != 500*time.Millisecond {
		t.Errorf("pa options = %+v", pa)
	}
	if pa.Scoring.EstimatedTotalTickets != analytics.DefaultEstimatedTotalTickets {
		t.Errorf("scoring = %+v", pa.Scoring)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"bad yaml", "scraper: [", nil},
		{"unknown jurisdiction", "jurisdictions: [tx]", nil},
		{"bad driver", "database:\n  driver: mysql", nil},
		{"negative max games", "scraper:\n  max_games_per_scrape: -1", nil},
		{"bad timezone", "scheduler:\n  timezone: Mars/Olympus", nil},
		{"bad env", "", map[string]string{"MAX_GAMES_PER_SCRAPE": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, t.TempDir(), "app.yaml", tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_LocalTurnsFlagsOff(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", `
analytics:
  derive_total_from_odds: true
scheduler:
  run_on_startup: true
`)
	writeFile(t, dir, "app.local.yaml", `
analytics:
  derive_total_from_odds: false
scheduler:
  run_on_startup: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RunOnStartup() {
		t.Error("run_on_startup: false in the local file was ignored")
	}
	if cfg.Scoring().DeriveTotalFromOdds {
		t.Error("derive_total_from_odds: false in the local file was ignored")
	}

	base, err := Load(writeFile(t, t.TempDir(), "main.yaml", `
analytics:
  derive_total_from_odds: true
scheduler:
  run_on_startup: true
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !base.RunOnStartup() || !base.Scoring().DeriveTotalFromOdds {
		t.Error("flags set in the main file were lost")
	}
}

func TestLocalVariant(t *testing.T) {
	if got := localVariant("configs/production.yaml"); got != "configs/production.local.yaml" {
		t.Errorf("localVariant() = %q", got)
	}
}
