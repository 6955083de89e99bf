package models

// TopPrizeInfo describes the highest-value tier of a game
type TopPrizeInfo struct {
	Amount       float64 `json:"amount"`
	Remaining    int     `json:"remaining"`
	TotalPrinted int     `json:"total"`
	Probability  float64 `json:"probability"`
	Odds         string  `json:"odds"` // "1:N", "None left" or "N/A"
}

// Available reports whether at least one top prize is still unclaimed
func (t TopPrizeInfo) Available() bool {
	return t.Remaining > 0
}

// WinProbability is the chance of winning any prize, derived from printed overall odds
type WinProbability struct {
	Probability float64 `json:"probability"`
	OddsRatio   float64 `json:"odds_ratio"`
	Percentage  string  `json:"percentage"`
	Display     string  `json:"display"`
}

// AdjustedTopPrize is the top prize probability recomputed against the estimated
// number of tickets still in circulation
type AdjustedTopPrize struct {
	AdjustedProbability       float64 `json:"adjusted_probability"`
	AdjustedOdds              string  `json:"adjusted_odds"`
	ClaimRate                 float64 `json:"claim_rate"`
	ClaimRatePercentage       string  `json:"claim_rate_percentage"`
	EstimatedRemainingTickets int64   `json:"estimated_remaining_tickets"`
	ImprovementFactor         float64 `json:"improvement_factor"`
	Improvement               string  `json:"improvement"`
	TopPrizeRemaining         int     `json:"top_prize_remaining"`
	TopPrizeTotal             int     `json:"top_prize_total"`
}
