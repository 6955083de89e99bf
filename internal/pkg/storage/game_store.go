package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrNotFound is returned by GetGame when no row matches
var ErrNotFound = errors.New("game not found")

// GameStore persists scraped games and their prize tables.
// A game is identified by (jurisdiction, external id); re-ingesting a game
// replaces its row and its whole prize table.
type GameStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// GameFilter narrows ListGames. Zero values mean "no constraint".
type GameFilter struct {
	Jurisdiction models.Jurisdiction
	MinPrice     float64
	MaxPrice     float64
	HotOnly      bool
	Limit        int
}

// NewGameStore opens the database, checks the connection and creates the schema
func NewGameStore(ctx context.Context, driver, dsn string) (*GameStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if driver == DriverSQLite {
		// in-memory databases are per connection
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	s := &GameStore{db: db, driver: driver, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("Game storage initialized", "driver", driver)
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		jurisdiction VARCHAR(16) NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		odds_info TEXT NOT NULL DEFAULT '',
		ev DOUBLE PRECISION NOT NULL DEFAULT 0,
		top_prize_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		top_prize_remaining INTEGER NOT NULL DEFAULT 0,
		top_prize_odds TEXT NOT NULL DEFAULT '',
		is_hot INTEGER NOT NULL DEFAULT 0,
		value_score INTEGER NOT NULL DEFAULT 0,
		break_even_odds TEXT NOT NULL DEFAULT '',
		overall_odds DOUBLE PRECISION NOT NULL DEFAULT 0,
		overall_win_probability DOUBLE PRECISION NOT NULL DEFAULT 0,
		overall_win_percentage TEXT NOT NULL DEFAULT '',
		adjusted_top_prize_odds TEXT NOT NULL DEFAULT '',
		adjusted_probability DOUBLE PRECISION NOT NULL DEFAULT 0,
		claim_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		estimated_remaining_tickets BIGINT NOT NULL DEFAULT 0,
		estimated_total_tickets BIGINT NOT NULL DEFAULT 0,
		analytics TEXT NOT NULL DEFAULT '{}',
		scraped_at BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (jurisdiction, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_value_score ON games(jurisdiction, value_score DESC)`,
	`CREATE TABLE IF NOT EXISTS prizes (
		jurisdiction VARCHAR(16) NOT NULL,
		game_id TEXT NOT NULL,
		prize_rank INTEGER NOT NULL,
		prize_amt TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		total INTEGER NOT NULL,
		remaining INTEGER NOT NULL,
		updated_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (jurisdiction, game_id, prize_rank)
	)`,
}

// postgresMigrations widen columns created by older schema versions
var postgresMigrations = []string{
	`ALTER TABLE games ALTER COLUMN id TYPE TEXT`,
	`ALTER TABLE prizes ALTER COLUMN game_id TYPE TEXT`,
}

func (s *GameStore) initSchema(ctx context.Context) error {
	stmts := schema
	if s.driver == DriverPostgres {
		stmts = append(stmts[:len(stmts):len(stmts)], postgresMigrations...)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// gameAnalytics holds the derived structures that have no dedicated column
type gameAnalytics struct {
	TopPrize         models.TopPrizeInfo     `json:"top_prize"`
	OverallWin       models.WinProbability   `json:"overall_win"`
	AdjustedTopPrize models.AdjustedTopPrize `json:"adjusted_top_prize"`
}

const upsertGameQuery = `
	INSERT INTO games (
		jurisdiction, id, name, price, url, image_url, odds_info, ev,
		top_prize_amount, top_prize_remaining, top_prize_odds, is_hot, value_score,
		break_even_odds, overall_odds, overall_win_probability, overall_win_percentage,
		adjusted_top_prize_odds, adjusted_probability, claim_rate,
		estimated_remaining_tickets, estimated_total_tickets, analytics, scraped_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (jurisdiction, id) DO UPDATE SET
		name = excluded.name,
		price = excluded.price,
		url = excluded.url,
		image_url = excluded.image_url,
		odds_info = excluded.odds_info,
		ev = excluded.ev,
		top_prize_amount = excluded.top_prize_amount,
		top_prize_remaining = excluded.top_prize_remaining,
		top_prize_odds = excluded.top_prize_odds,
		is_hot = excluded.is_hot,
		value_score = excluded.value_score,
		break_even_odds = excluded.break_even_odds,
		overall_odds = excluded.overall_odds,
		overall_win_probability = excluded.overall_win_probability,
		overall_win_percentage = excluded.overall_win_percentage,
		adjusted_top_prize_odds = excluded.adjusted_top_prize_odds,
		adjusted_probability = excluded.adjusted_probability,
		claim_rate = excluded.claim_rate,
		estimated_remaining_tickets = excluded.estimated_remaining_tickets,
		estimated_total_tickets = excluded.estimated_total_tickets,
		analytics = excluded.analytics,
		scraped_at = excluded.scraped_at,
		updated_at = excluded.updated_at`

// Ingest upserts one jurisdiction's batch in a single transaction.
// Records of other jurisdictions are rejected.
func (s *GameStore) Ingest(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r.Jurisdiction != jurisdiction {
			return fmt.Errorf("record %s does not belong to jurisdiction %s", r.Key(), jurisdiction)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, s.db.Rebind(upsertGameQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare game upsert: %w", err)
	}
	defer upsert.Close()

	deletePrizes, err := tx.PrepareContext(ctx, s.db.Rebind(`DELETE FROM prizes WHERE jurisdiction = ? AND game_id = ?`))
	if err != nil {
		return fmt.Errorf("failed to prepare prize delete: %w", err)
	}
	defer deletePrizes.Close()

	insertPrize, err := tx.PrepareContext(ctx, s.db.Rebind(`
		INSERT INTO prizes (jurisdiction, game_id, prize_rank, prize_amt, amount, total, remaining, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare prize insert: %w", err)
	}
	defer insertPrize.Close()

	updatedAt := s.now().UnixMilli()
	for _, r := range records {
		analytics, err := json.Marshal(gameAnalytics{
			TopPrize:         r.TopPrize,
			OverallWin:       r.OverallWin,
			AdjustedTopPrize: r.AdjustedTopPrize,
		})
		if err != nil {
			return fmt.Errorf("marshaling analytics for %s: %w", r.Key(), err)
		}

		_, err = upsert.ExecContext(ctx,
			string(r.Jurisdiction), r.ExternalID, r.Name, r.Price, r.DetailURL, r.ImageURL, r.OddsInfo, r.EV,
			r.TopPrize.Amount, r.TopPrize.Remaining, r.TopPrize.Odds, boolToInt(r.IsHot), r.ValueScore,
			r.BreakEvenOdds, r.OverallWin.OddsRatio, r.OverallWin.Probability, r.OverallWin.Percentage,
			r.AdjustedTopPrize.AdjustedOdds, r.AdjustedTopPrize.AdjustedProbability, r.AdjustedTopPrize.ClaimRate,
			r.AdjustedTopPrize.EstimatedRemainingTickets, r.EstimatedTotalTickets, string(analytics),
			r.ScrapedAt.UnixMilli(), updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert game %s: %w", r.Key(), err)
		}

		if _, err := deletePrizes.ExecContext(ctx, string(r.Jurisdiction), r.ExternalID); err != nil {
			return fmt.Errorf("failed to clear prizes of %s: %w", r.Key(), err)
		}
		for rank, p := range r.Prizes {
			_, err := insertPrize.ExecContext(ctx,
				string(r.Jurisdiction), r.ExternalID, rank, p.Label, p.Amount, p.TotalPrinted, p.Remaining, updatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert prize %d of %s: %w", rank, r.Key(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit games: %w", err)
	}

	slog.Debug("Games stored", "jurisdiction", jurisdiction.Display(), "count", len(records))
	return nil
}

const selectGameColumns = `
	jurisdiction, id, name, price, url, image_url, odds_info, ev, is_hot, value_score,
	break_even_odds, estimated_total_tickets, analytics, scraped_at`

// ListGames returns games ordered by value score, best first
func (s *GameStore) ListGames(ctx context.Context, f GameFilter) ([]models.GameRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.Jurisdiction != "" {
		where = append(where, "jurisdiction = ?")
		args = append(args, string(f.Jurisdiction))
	}
	if f.MinPrice > 0 {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.HotOnly {
		where = append(where, "is_hot = 1")
	}

	query := "SELECT" + selectGameColumns + " FROM games"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY value_score DESC, ev DESC, jurisdiction, id"
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := []models.GameRecord{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read games: %w", err)
	}

	for i := range games {
		if games[i].Prizes, err = s.prizes(ctx, games[i].Jurisdiction, games[i].ExternalID); err != nil {
			return nil, err
		}
	}
	return games, nil
}

// GetGame returns one game with its prize table, or ErrNotFound
func (s *GameStore) GetGame(ctx context.Context, jurisdiction models.Jurisdiction, id string) (*models.GameRecord, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind("SELECT"+selectGameColumns+" FROM games WHERE jurisdiction = ? AND id = ?"),
		string(jurisdiction), id)

	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if g.Prizes, err = s.prizes(ctx, jurisdiction, id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) prizes(ctx context.Context, jurisdiction models.Jurisdiction, id string) ([]models.PrizeTier, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT prize_amt, amount, total, remaining FROM prizes
			WHERE jurisdiction = ? AND game_id = ? ORDER BY prize_rank`),
		string(jurisdiction), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query prizes of %s:%s: %w", jurisdiction, id, err)
	}
	defer rows.Close()

	tiers := []models.PrizeTier{}
	for rows.Next() {
		var p models.PrizeTier
		if err := rows.Scan(&p.Label, &p.Amount, &p.TotalPrinted, &p.Remaining); err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}
		tiers = append(tiers, p)
	}
	return tiers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(sc scanner) (models.GameRecord, error) {
	var (
		g            models.GameRecord
		jurisdiction string
		isHot        int
		analytics    string
		scrapedAt    int64
	)
	err := sc.Scan(&jurisdiction, &g.ExternalID, &g.Name, &g.Price, &g.DetailURL, &g.ImageURL, &g.OddsInfo,
		&g.EV, &isHot, &g.ValueScore, &g.BreakEvenOdds, &g.EstimatedTotalTickets, &analytics, &scrapedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("failed to scan game: %w", err)
	}

	var a gameAnalytics
	if err := json.Unmarshal([]byte(analytics), &a); err != nil {
		return g, fmt.Errorf("unmarshaling analytics of %s:%s: %w", jurisdiction, g.ExternalID, err)
	}

	g.Jurisdiction = models.Jurisdiction(jurisdiction)
	g.IsHot = isHot != 0
	g.TopPrize = a.TopPrize
	g.OverallWin = a.OverallWin
	g.AdjustedTopPrize = a.AdjustedTopPrize
	if scrapedAt > 0 {
		g.ScrapedAt = time.UnixMilli(scrapedAt).UTC()
	}
	return g, nil
}

// Close closes the database connection
func (s *GameStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
