package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

func newTestStore(t *testing.T) *GameStore {
	t.Helper()
	s, err := NewGameStore(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("NewGameStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, price float64, score int, hot bool) models.GameRecord {
	return models.GameRecord{
		GameListing: models.GameListing{
			ExternalID: id,
			Name:       "Game " + id,
			Price:      price,
			DetailURL:  "https://lottery.test/games/" + id,
		},
		Jurisdiction: models.JurisdictionNC,
		Prizes: []models.PrizeTier{
			{Label: "$1,000", Amount: 1000, TotalPrinted: 10, Remaining: 4},
			{Label: "$5", Amount: 5, TotalPrinted: 1000, Remaining: 600},
		},
		EV:            0.42,
		IsHot:         hot,
		ValueScore:    score,
		BreakEvenOdds: "1:2",
		TopPrize: models.TopPrizeInfo{
			Amount: 1000, Remaining: 4, TotalPrinted: 10, Probability: 0.000001, Odds: "1:1000000",
		},
		OverallWin: models.WinProbability{Probability: 0.25, OddsRatio: 4, Percentage: "25.00%", Display: "1 in 4.00"},
		AdjustedTopPrize: models.AdjustedTopPrize{
			AdjustedOdds: "1:600,000", ClaimRate: 0.4, ClaimRatePercentage: "40.00%", Improvement: "1.67x",
		},
		EstimatedTotalTickets: 4_000_000,
		ScrapedAt:             time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGameStore_IngestAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := testRecord("101", 5, 70, true)
	if err := s.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{want}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	got, err := s.GetGame(ctx, models.JurisdictionNC, "101")
	if err != nil {
		t.Fatalf("GetGame() error = %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("stored game mismatch (-want +got):\n%s", diff)
	}
}

func TestGameStore_ReingestReplacesPrizes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testRecord("101", 5, 70, true)
	if err := s.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{first}); err != nil {
		t.Fatal(err)
	}

	second := testRecord("101", 5, 40, false)
	second.Prizes = []models.PrizeTier{{Label: "$500", Amount: 500, TotalPrinted: 20, Remaining: 1}}
	if err := s.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{second}); err != nil {
		t.Fatal(err)
	}

	games, err := s.ListGames(ctx, GameFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games, want 1 after upsert", len(games))
	}
	if diff := cmp.Diff(second.Prizes, games[0].Prizes); diff != "" {
		t.Errorf("prizes not replaced (-want +got):\n%s", diff)
	}
	if games[0].ValueScore != 40 || games[0].IsHot {
		t.Errorf("game not updated: score=%d hot=%v", games[0].ValueScore, games[0].IsHot)
	}
}

func TestGameStore_SameIDInTwoJurisdictions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	nc := testRecord("7", 5, 50, false)
	pa := testRecord("7", 5, 60, false)
	pa.Jurisdiction = models.JurisdictionPA

	if err := s.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{nc}); err != nil {
		t.Fatal(err)
	}
	if err := s.Ingest(ctx, models.JurisdictionPA, []models.GameRecord{pa}); err != nil {
		t.Fatal(err)
	}

	games, err := s.ListGames(ctx, GameFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if games[0].Jurisdiction != models.JurisdictionPA {
		t.Errorf("first game = %s, want pa (higher score)", games[0].Key())
	}
}

func TestGameStore_IngestRejectsForeignRecords(t *testing.T) {
	s := newTestStore(t)

	r := testRecord("1", 5, 50, false)
	r.Jurisdiction = models.JurisdictionMD
	if err := s.Ingest(context.Background(), models.JurisdictionNC, []models.GameRecord{r}); err == nil {
		t.Fatal("expected error for a record of another jurisdiction")
	}
}

func TestGameStore_ListGamesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []models.GameRecord{
		testRecord("1", 1, 30, false),
		testRecord("2", 5, 80, true),
		testRecord("3", 10, 55, true),
		testRecord("4", 30, 20, false),
	}
	if err := s.Ingest(ctx, models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter GameFilter
		want   []string
	}{
		{"all by score", GameFilter{}, []string{"2", "3", "1", "4"}},
		{"hot only", GameFilter{HotOnly: true}, []string{"2", "3"}},
		{"price range", GameFilter{MinPrice: 5, MaxPrice: 10}, []string{"2", "3"}},
		{"limit", GameFilter{Limit: 1}, []string{"2"}},
		{"jurisdiction", GameFilter{Jurisdiction: models.JurisdictionPA}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := s.ListGames(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, g := range games {
				ids = append(ids, g.ExternalID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ListGames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGameStore_GetGameNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetGame(context.Background(), models.JurisdictionNC, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGame() error = %v, want ErrNotFound", err)
	}
}

func TestNewGameStore_Validation(t *testing.T) {
	if _, err := NewGameStore(context.Background(), DriverSQLite, ""); err == nil {
		t.Error("expected error for empty DSN")
	}
	if _, err := NewGameStore(context.Background(), "mysql", "root@/games"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestDriverPlaceholders(t *testing.T) {
	q := "DELETE FROM prizes WHERE jurisdiction = ? AND game_id = ?"

	if got := sqlx.NewDb(nil, DriverPostgres).Rebind(q); got != "DELETE FROM prizes WHERE jurisdiction = $1 AND game_id = $2" {
		t.Errorf("postgres Rebind() = %q", got)
	}
	if got := sqlx.NewDb(nil, DriverSQLite).Rebind(q); got != q {
		t.Errorf("sqlite Rebind() = %q", got)
	}
}

func TestGameStore_LongExternalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := strings.Repeat("9", 200)
	if err := s.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{testRecord(id, 5, 50, false)}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	g, err := s.GetGame(ctx, models.JurisdictionNC, id)
	if err != nil {
		t.Fatalf("GetGame() error = %v", err)
	}
	if g.ExternalID != id || len(g.Prizes) != 2 {
		t.Errorf("GetGame() = id %q with %d prizes", g.ExternalID, len(g.Prizes))
	}

	for _, stmt := range schema {
		if strings.Contains(stmt, "VARCHAR(64)") {
			t.Errorf("schema bounds a game id column:\n%s", stmt)
		}
	}
}

func TestStreamKey(t *testing.T) {
	if got := StreamKey(models.JurisdictionMD); got != "scratchoff.games.md" {
		t.Errorf("StreamKey() = %q", got)
	}
}
