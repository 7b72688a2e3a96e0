package engine

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/confluence/internal/domain"
)

// maxTopPicks caps the number of symbols surfaced as top picks per run.
const maxTopPicks = 5

// BuildSummary reduces a run's decisions into tier counts, top picks, the
// aggregate market bias, and the score distribution.
func BuildSummary(
	runID string,
	regime domain.RegimeSnapshot,
	decisions []domain.ActionDecision,
	started, completed time.Time,
) domain.RunSummary {
	summary := domain.RunSummary{
		RunID:       runID,
		StartedAt:   started,
		CompletedAt: completed,
		Regime:      regime.Regime,
		AssetCount:  len(decisions),
		TierCounts:  map[domain.Tier]int{},
		TopPicks:    []domain.TopPick{},
		MarketBias:  domain.BiasMixed,
	}

	scores := make([]float64, 0, len(decisions))
	bullish, bearish := 0, 0
	var candidates []domain.TopPick

	for _, d := range decisions {
		summary.TierCounts[d.Tier]++
		scores = append(scores, d.UnifiedScore)

		if d.Tier != domain.TierA && d.Tier != domain.TierB {
			continue
		}
		candidates = append(candidates, domain.TopPick{
			Symbol:       d.Symbol,
			Direction:    d.Direction,
			Tier:         d.Tier,
			UnifiedScore: d.UnifiedScore,
		})
		switch d.Direction {
		case domain.DirectionLong:
			bullish++
		case domain.DirectionShort:
			bearish++
		}
	}

	// Highest conviction first; symbol breaks ties deterministically.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].UnifiedScore != candidates[j].UnifiedScore {
			return candidates[i].UnifiedScore > candidates[j].UnifiedScore
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	if len(candidates) > maxTopPicks {
		candidates = candidates[:maxTopPicks]
	}
	summary.TopPicks = candidates

	switch {
	case bullish > bearish:
		summary.MarketBias = domain.BiasRiskOn
	case bearish > bullish:
		summary.MarketBias = domain.BiasRiskOff
	}

	if len(scores) > 0 {
		summary.MeanScore = stat.Mean(scores, nil)
		sort.Float64s(scores)
		summary.MedianScore = stat.Quantile(0.5, stat.Empirical, scores, nil)
	}

	return summary
}
