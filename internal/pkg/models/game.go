package models

import (
	"time"
)

// GameListing is one game card found on a jurisdiction's listing page
type GameListing struct {
	ExternalID string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	DetailURL  string  `json:"url"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// Valid reports whether the listing can proceed to detail-page scraping
func (l GameListing) Valid() bool {
	return l.Price > 0 && l.DetailURL != ""
}

// PrizeTier is one row of a game's prize table
type PrizeTier struct {
	Label        string  `json:"prize_amt"` // Raw text as printed, e.g. "$1,000,000" or "$5 + Free Ticket"
	Amount       float64 `json:"amount"`
	TotalPrinted int     `json:"total"`
	Remaining    int     `json:"remaining"`
}

// GameRecord is a listing with its prize table and derived analytics.
// Records are built fresh on every run and handed to ingestion.
type GameRecord struct {
	GameListing

	Jurisdiction Jurisdiction `json:"state"`
	Prizes       []PrizeTier  `json:"prizes"`
	OddsInfo     string       `json:"odds_info,omitempty"`

	EV                    float64          `json:"ev"`
	TopPrize              TopPrizeInfo     `json:"top_prize"`
	IsHot                 bool             `json:"is_hot"`
	ValueScore            int              `json:"value_score"`
	BreakEvenOdds         string           `json:"break_even_odds"`
	OverallWin            WinProbability   `json:"overall_win"`
	AdjustedTopPrize      AdjustedTopPrize `json:"adjusted_top_prize"`
	EstimatedTotalTickets int64            `json:"estimated_total_tickets"`

	ScrapedAt time.Time `json:"scraped_at"`
}

// Key returns the ingestion identity of the record
func (r GameRecord) Key() string {
	return string(r.Jurisdiction) + ":" + r.ExternalID
}
