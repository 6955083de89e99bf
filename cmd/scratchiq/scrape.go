package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/scraper/orchestrator"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

var (
	scrapeJurisdictions []string
	scrapeDryRun        bool
	scrapeMaxGames      int
)

func init() {
	scrapeCmd.Flags().StringSliceVarP(&scrapeJurisdictions, "jurisdiction", "j", nil, "Jurisdictions to scrape (default: all configured)")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "Print the scraped games without storing them")
	scrapeCmd.Flags().IntVar(&scrapeMaxGames, "max-games", 0, "Override max_games_per_scrape")
	rootCmd.AddCommand(scrapeCmd)
}

// collector keeps every batch that reached the sinks
type collector struct {
	mu      sync.Mutex
	records []models.GameRecord
}

func (c *collector) Ingest(_ context.Context, _ models.Jurisdiction, records []models.GameRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
	return nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--jurisdiction nc,pa] [--dry-run]",
	Short: "Runs one scrape cycle now and prints the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp("scratchiq-scrape")
		if err != nil {
			return err
		}
		defer a.Close()

		var jurisdictions []models.Jurisdiction
		for _, j := range scrapeJurisdictions {
			if _, ok := scrapers.FactoryByName(j); !ok {
				return fmt.Errorf("unknown jurisdiction %q (available: %v)", j, scrapers.AvailableNames())
			}
			jurisdictions = append(jurisdictions, models.ParseJurisdiction(j))
		}
		if scrapeMaxGames > 0 {
			a.cfg.Scraper.MaxGamesPerScrape = scrapeMaxGames
		}

		var ingestor orchestrator.Ingestor
		if !scrapeDryRun {
			if err := a.openStore(ctx); err != nil {
				return err
			}
			a.openSinks()
			ingestor = a.store
		}

		games := &collector{}
		result := a.orchestrator(ingestor, games).RunScrapeCycle(ctx, jurisdictions)

		renderGames(games.records)
		renderCycle(result)

		if result.Failed() == len(result.PerJurisdiction) && len(result.PerJurisdiction) > 0 {
			return fmt.Errorf("every jurisdiction failed")
		}
		return nil
	},
}

func renderCycle(result orchestrator.CycleResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Cycle " + result.ID)
	t.AppendHeader(table.Row{"Jurisdiction", "Games", "Duration", "Status"})

	for _, r := range result.PerJurisdiction {
		status := "ok"
		switch {
		case r.Error != "":
			status = "error: " + r.Error
		case r.Warning != "":
			status = "warning: " + r.Warning
		}
		t.AppendRow(table.Row{r.Jurisdiction.Display(), r.GamesScraped, fmt.Sprintf("%.1fs", float64(r.DurationMs)/1000), status})
	}
	t.AppendFooter(table.Row{"Total", result.TotalGames(), result.FinishedAt.Sub(result.StartedAt).Round(100 * time.Millisecond).String(), ""})

	t.SetStyle(table.StyleRounded)
	t.Render()
}
