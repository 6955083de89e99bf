package analytics

import (
	"math"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

// DefaultHotThreshold is the EV at or above which a game counts as hot (70 cents per dollar).
const DefaultHotThreshold = 0.70

// DefaultPriceBonus applies to price points missing from the bonus table.
const DefaultPriceBonus = 3

const (
	evScoreWeight  = 60.0
	topPrizeWeight = 30.0
)

// DefaultPriceTierBonus favours cheaper tickets slightly. The values carry no
// derivation and are kept overridable through Scoring.
func DefaultPriceTierBonus() map[float64]int {
	return map[float64]int{1: 10, 2: 9, 3: 8, 5: 7, 10: 6, 20: 5, 30: 4}
}

// IsHotTicket reports whether ev meets or exceeds threshold.
func IsHotTicket(ev, threshold float64) bool {
	return ev >= threshold
}

// CalculateValueScore blends EV, top prize availability and a price preference into
// a 0-100 ranking score using the default bonus table.
func CalculateValueScore(ev float64, top models.TopPrizeInfo, price float64) int {
	return DefaultScoring().ValueScore(ev, top, price)
}

// Scoring holds the tunable constants used to derive per-game metrics.
type Scoring struct {
	HotThreshold          float64
	EstimatedTotalTickets int64
	PriceTierBonus        map[float64]int
	DefaultPriceBonus     int
	// DeriveTotalFromOdds estimates the print run from the overall odds when a page gives no usable hint
	DeriveTotalFromOdds bool
}

// DefaultScoring returns Scoring populated with the package defaults.
func DefaultScoring() Scoring {
	return Scoring{
		HotThreshold:          DefaultHotThreshold,
		EstimatedTotalTickets: DefaultEstimatedTotalTickets,
		PriceTierBonus:        DefaultPriceTierBonus(),
		DefaultPriceBonus:     DefaultPriceBonus,
	}
}

// ValueScore is CalculateValueScore with the receiver's bonus table.
func (s Scoring) ValueScore(ev float64, top models.TopPrizeInfo, price float64) int {
	if math.IsNaN(ev) || ev < 0 {
		ev = 0
	}
	score := math.Min(ev*evScoreWeight, evScoreWeight)
	if top.Remaining > 0 {
		score += topPrizeWeight
	}

	bonus, ok := s.PriceTierBonus[price]
	if !ok {
		bonus = s.DefaultPriceBonus
	}
	score += float64(bonus)

	return int(math.Max(0, math.Min(100, math.Round(score))))
}

// PrintedPrizes is the number of winning tickets printed across all tiers. A tier
// without a printed total counts its remaining prizes instead.
func PrintedPrizes(tiers []models.PrizeTier) int64 {
	var printed int64
	for _, t := range tiers {
		printed += int64(max(t.TotalPrinted, t.Remaining, 0))
	}
	return printed
}

// TicketDenominator picks the ticket population used for probabilities: a detail page
// hint when it is at least the number of printed prizes, then an odds-derived estimate
// when enabled, then the configured fallback.
func (s Scoring) TicketDenominator(tiers []models.PrizeTier, hint int64, oddsText string) int64 {
	printed := PrintedPrizes(tiers)

	if hint > 0 && hint >= printed {
		return hint
	}

	if s.DeriveTotalFromOdds && printed > 0 {
		if _, ok := ParseOddsRatio(oddsText); ok {
			return EstimateTotalTickets(oddsText, printed)
		}
	}

	if s.EstimatedTotalTickets > 0 {
		return s.EstimatedTotalTickets
	}
	return DefaultEstimatedTotalTickets
}

// Analyze fills every derived field of record from its prize tiers, price and odds text.
// Tiers are reordered by amount, highest first.
func (s Scoring) Analyze(record *models.GameRecord, totalTicketsHint int64) {
	record.Prizes = SortTiers(record.Prizes)
	total := s.TicketDenominator(record.Prizes, totalTicketsHint, record.OddsInfo)

	record.EstimatedTotalTickets = total
	record.EV = CalculateEV(record.Prizes, record.Price, total)
	record.TopPrize = GetTopPrizeInfo(record.Prizes, total)
	record.IsHot = IsHotTicket(record.EV, s.HotThreshold)
	record.ValueScore = s.ValueScore(record.EV, record.TopPrize, record.Price)
	record.BreakEvenOdds = CalculateBreakEvenOdds(record.Prizes, record.Price, total)
	record.OverallWin = CalculateOverallWinProbability(record.OddsInfo)
	record.AdjustedTopPrize = CalculateAdjustedTopPrizeProbability(record.Prizes, total)
}
