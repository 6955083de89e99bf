package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
	"github.com/Vodeneev/scratchiq/internal/pkg/storage"
	"github.com/Vodeneev/scratchiq/internal/scraper/scrapers"
)

var gamesFilter struct {
	jurisdiction string
	minPrice     float64
	maxPrice     float64
	hotOnly      bool
	limit        int
}

func init() {
	f := gamesCmd.Flags()
	f.StringVarP(&gamesFilter.jurisdiction, "jurisdiction", "j", "", "Only games of this jurisdiction")
	f.Float64Var(&gamesFilter.minPrice, "min-price", 0, "Minimum ticket price")
	f.Float64Var(&gamesFilter.maxPrice, "max-price", 0, "Maximum ticket price (your budget)")
	f.BoolVar(&gamesFilter.hotOnly, "hot", false, "Only hot tickets")
	f.IntVar(&gamesFilter.limit, "limit", 25, "Maximum number of games (0 = all)")

	rootCmd.AddCommand(gamesCmd, gameCmd, jurisdictionsCmd)
}

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Lists stored games, best value first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp("scratchiq-cli")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.openStore(cmd.Context()); err != nil {
			return err
		}

		games, err := a.store.ListGames(cmd.Context(), storage.GameFilter{
			Jurisdiction: models.ParseJurisdiction(gamesFilter.jurisdiction),
			MinPrice:     gamesFilter.minPrice,
			MaxPrice:     gamesFilter.maxPrice,
			HotOnly:      gamesFilter.hotOnly,
			Limit:        gamesFilter.limit,
		})
		if err != nil {
			return err
		}
		renderGames(games)
		return nil
	},
}

var gameCmd = &cobra.Command{
	Use:   "game <jurisdiction> <id>",
	Short: "Shows one stored game with its prize table.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp("scratchiq-cli")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.openStore(cmd.Context()); err != nil {
			return err
		}

		g, err := a.store.GetGame(cmd.Context(), models.ParseJurisdiction(args[0]), args[1])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no game %s in %s", args[1], models.ParseJurisdiction(args[0]).Display())
		}
		if err != nil {
			return err
		}
		renderGame(g)
		return nil
	},
}

var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "Lists the supported jurisdictions.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Name", "Listing", "Default max games"})
		for _, d := range scrapers.Descriptions() {
			t.AppendRow(table.Row{d.Jurisdiction.Display(), d.Name, d.ListingURL, d.DefaultMaxGames})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

func renderGames(games []models.GameRecord) {
	if len(games) == 0 {
		fmt.Println("No games.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"State", "ID", "Name", "Price", "EV", "Score", "Hot", "Top prize", "Top left", "Win odds"})
	for _, g := range games {
		hot := ""
		if g.IsHot {
			hot = "🔥"
		}
		t.AppendRow(table.Row{
			g.Jurisdiction.Display(),
			g.ExternalID,
			g.Name,
			"$" + humanize.CommafWithDigits(g.Price, 2),
			fmt.Sprintf("%.1f%%", g.EV*100),
			g.ValueScore,
			hot,
			"$" + humanize.CommafWithDigits(g.TopPrize.Amount, 0),
			fmt.Sprintf("%d/%d", g.TopPrize.Remaining, g.TopPrize.TotalPrinted),
			g.OverallWin.Display,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderGame(g *models.GameRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("%s (%s #%s) $%s", g.Name, g.Jurisdiction.Display(), g.ExternalID, humanize.CommafWithDigits(g.Price, 2)))
	t.AppendRows([]table.Row{
		{"Expected value", fmt.Sprintf("%.1f%%", g.EV*100)},
		{"Value score", g.ValueScore},
		{"Hot", g.IsHot},
		{"Break-even odds", g.BreakEvenOdds},
		{"Overall odds", g.OverallWin.Display + " (" + g.OverallWin.Percentage + ")"},
		{"Top prize odds", g.TopPrize.Odds},
		{"Adjusted top prize odds", g.AdjustedTopPrize.AdjustedOdds + " (" + g.AdjustedTopPrize.Improvement + ")"},
		{"Prizes claimed", g.AdjustedTopPrize.ClaimRatePercentage},
		{"Print run (est.)", humanize.Comma(g.EstimatedTotalTickets)},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()

	prizes := table.NewWriter()
	prizes.SetOutputMirror(os.Stdout)
	prizes.AppendHeader(table.Row{"Prize", "Total", "Remaining"})
	for _, p := range g.Prizes {
		prizes.AppendRow(table.Row{p.Label, humanize.Comma(int64(p.TotalPrinted)), humanize.Comma(int64(p.Remaining))})
	}
	prizes.SetStyle(table.StyleRounded)
	prizes.Render()
}
