package analytics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// oneInRegex matches "1 in 4.12" and "1:4.12"
var oneInRegex = regexp.MustCompile(`(?i)\b1\s*(?:in|:)\s*(\d[\d,]*(?:\.\d+)?)`)

// bareNumberRegex matches an odds value given without the "1 in" prefix
var bareNumberRegex = regexp.MustCompile(`^\s*(\d[\d,]*(?:\.\d+)?)\s*$`)

// ParseOddsRatio extracts X from "1 in X", "1:X" or a bare number. ok is false when
// nothing usable is found.
func ParseOddsRatio(odds string) (ratio float64, ok bool) {
	m := oneInRegex.FindStringSubmatch(odds)
	if m == nil {
		m = bareNumberRegex.FindStringSubmatch(odds)
	}
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || !positive(v) {
		return 0, false
	}
	return v, true
}

// CalculateOverallWinProbability converts a free-text overall odds hint ("1 in 4.12")
// into the chance of winning any prize. Missing or unparsable input gives a neutral result.
func CalculateOverallWinProbability(odds string) models.WinProbability {
	ratio, ok := ParseOddsRatio(odds)
	if !ok {
		return neutralWinProbability()
	}
	return OverallWinProbabilityFromRatio(ratio)
}

// OverallWinProbabilityFromRatio is CalculateOverallWinProbability for an already numeric X
func OverallWinProbabilityFromRatio(ratio float64) models.WinProbability {
	if !positive(ratio) {
		return neutralWinProbability()
	}
	probability := 1 / ratio
	return models.WinProbability{
		Probability: round(probability, 6),
		OddsRatio:   ratio,
		Percentage:  fmt.Sprintf("%.2f%%", probability*100),
		Display:     fmt.Sprintf("1 in %.2f", ratio),
	}
}

func neutralWinProbability() models.WinProbability {
	return models.WinProbability{Percentage: "0%", Display: oddsNotAvailable}
}

// CalculateAdjustedTopPrizeProbability corrects the naive top prize probability for
// tickets that have already left circulation. The claim rate across all tiers,
// 1 - sum(remaining)/sum(total), shrinks the ticket denominator:
// adjusted = topRemaining / (estimatedTotalTickets * (1 - claimRate)).
func CalculateAdjustedTopPrizeProbability(tiers []models.PrizeTier, estimatedTotalTickets int64) models.AdjustedTopPrize {
	top, ok := topTier(tiers)
	if !ok || estimatedTotalTickets <= 0 {
		return models.AdjustedTopPrize{
			AdjustedOdds:        oddsNotAvailable,
			ClaimRatePercentage: "0.00%",
			Improvement:         "0x",
		}
	}

	topRemaining := max(top.Remaining, 0)
	topTotal := top.TotalPrinted
	if topTotal <= 0 {
		topTotal = topRemaining
	}

	var initial, remaining int64
	for _, t := range tiers {
		r := int64(max(t.Remaining, 0))
		total := int64(t.TotalPrinted)
		if total <= 0 {
			total = r
		}
		initial += total
		remaining += r
	}

	var claimRate float64
	if initial > 0 {
		claimRate = 1 - float64(remaining)/float64(initial)
	}

	estimatedRemaining := float64(estimatedTotalTickets) * (1 - claimRate)

	out := models.AdjustedTopPrize{
		AdjustedOdds:              oddsNotAvailable,
		ClaimRate:                 round(claimRate, 4),
		ClaimRatePercentage:       fmt.Sprintf("%.2f%%", claimRate*100),
		EstimatedRemainingTickets: int64(math.Round(estimatedRemaining)),
		TopPrizeRemaining:         topRemaining,
		TopPrizeTotal:             topTotal,
	}

	var adjusted float64
	switch {
	case topRemaining == 0:
		out.AdjustedOdds = oddsNoneLeft
	case estimatedRemaining > 0:
		adjusted = float64(topRemaining) / estimatedRemaining
		out.AdjustedProbability = round(adjusted, 8)
		out.AdjustedOdds = "1:" + humanize.Comma(int64(math.Round(1/adjusted)))
	}

	improvement := 1.0
	if naive := float64(topRemaining) / float64(estimatedTotalTickets); naive > 0 {
		improvement = adjusted / naive
	}
	out.ImprovementFactor = round(improvement, 4)
	out.Improvement = fmt.Sprintf("%.2fx", improvement)

	return out
}

// EstimateTotalTickets derives a print-run size from overall odds: every
// oddsRatio-th ticket wins something, so total ~ totalPrizes * oddsRatio.
// It falls back to DefaultEstimatedTotalTickets.
func EstimateTotalTickets(odds string, totalPrizes int64) int64 {
	ratio, ok := ParseOddsRatio(odds)
	if !ok || totalPrizes <= 0 {
		return DefaultEstimatedTotalTickets
	}
	return int64(math.Round(float64(totalPrizes) * ratio))
}
