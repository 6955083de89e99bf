// Package analytics turns scraped prize tables into comparable value metrics:
// expected value, top prize odds, break-even odds, overall win probability and
// the survivorship-adjusted top prize probability.
//
// Every function is pure. Empty or malformed input yields a zero or "N/A"
// result instead of an error so one bad tier never invalidates a whole game.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// DefaultEstimatedTotalTickets is the print-run size assumed when a game page
// does not state one. It is a simplifying assumption, not a measured constant.
const DefaultEstimatedTotalTickets int64 = 4_000_000

const (
	oddsNotAvailable = "N/A"
	oddsNoneLeft     = "None left"
)

// CalculateEV returns the expected monetary return per dollar spent, assuming each
// ticket is drawn uniformly from estimatedTotalTickets:
// sum(amount * remaining / estimatedTotalTickets) / price, rounded to 4 decimals.
func CalculateEV(tiers []models.PrizeTier, price float64, estimatedTotalTickets int64) float64 {
	if len(tiers) == 0 || !positive(price) || estimatedTotalTickets <= 0 {
		return 0
	}

	total := float64(estimatedTotalTickets)
	var expected float64
	for _, t := range tiers {
		if !positive(t.Amount) || t.Remaining <= 0 {
			continue
		}
		expected += t.Amount * float64(t.Remaining) / total
	}

	return round(expected/price, 4)
}

// CalculateBreakEvenOdds returns the odds ("1:N") of winning back at least the ticket
// price, or "N/A" when no tier qualifies.
func CalculateBreakEvenOdds(tiers []models.PrizeTier, price float64, estimatedTotalTickets int64) string {
	if len(tiers) == 0 || estimatedTotalTickets <= 0 {
		return oddsNotAvailable
	}

	total := float64(estimatedTotalTickets)
	var probability float64
	for _, t := range tiers {
		if t.Amount >= price && t.Remaining > 0 {
			probability += float64(t.Remaining) / total
		}
	}

	if probability <= 0 {
		return oddsNotAvailable
	}
	return fmt.Sprintf("1:%d", int64(math.Round(1/probability)))
}

// GetTopPrizeInfo picks the highest tier and reports its remaining count and the
// naive probability of drawing it.
func GetTopPrizeInfo(tiers []models.PrizeTier, estimatedTotalTickets int64) models.TopPrizeInfo {
	top, ok := topTier(tiers)
	if !ok {
		return models.TopPrizeInfo{Odds: oddsNotAvailable}
	}

	info := models.TopPrizeInfo{
		Amount:       top.Amount,
		Remaining:    max(top.Remaining, 0),
		TotalPrinted: top.TotalPrinted,
		Odds:         oddsNoneLeft,
	}
	if info.Remaining == 0 || estimatedTotalTickets <= 0 {
		return info
	}

	probability := float64(info.Remaining) / float64(estimatedTotalTickets)
	info.Probability = round(probability, 8)
	info.Odds = fmt.Sprintf("1:%d", int64(math.Round(1/probability)))
	return info
}

// SortTiers returns a copy of tiers ordered by amount, highest first. Equal amounts
// keep their scraped order.
func SortTiers(tiers []models.PrizeTier) []models.PrizeTier {
	out := make([]models.PrizeTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out
}

func topTier(tiers []models.PrizeTier) (models.PrizeTier, bool) {
	if len(tiers) == 0 {
		return models.PrizeTier{}, false
	}
	return SortTiers(tiers)[0], true
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
