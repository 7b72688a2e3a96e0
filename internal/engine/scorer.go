package engine

import (
	"math"

	"github.com/aristath/confluence/internal/domain"
)

// DirectionalContribution converts one dimension into its contribution toward
// a candidate direction on the 0-100 scale:
//   - same direction: the dimension's own score
//   - opposite direction: 100 minus the score (strong disagreement hurts)
//   - NEUTRAL: flat 50
func DirectionalContribution(dim *domain.DimensionInput, dir domain.Direction) float64 {
	switch dim.Direction {
	case dir:
		return dim.Score
	case dir.Opposite():
		return 100 - dim.Score
	default:
		return 50
	}
}

// UnifiedScore blends the present dimensions of an asset into a single 0-100
// score toward the candidate direction. Weights are renormalized over the
// present subset so a missing dimension never contributes. Returns 50 (pure
// neutral) when no present dimension carries weight.
func UnifiedScore(asset *domain.AssetAnalysis, dir domain.Direction, weights WeightTable) float64 {
	present := asset.PresentSources()
	effective := weights.Renormalized(present)
	if len(effective) == 0 {
		return 50
	}

	// Iterate in canonical order: float addition is order-sensitive and the
	// engine guarantees bit-identical scores for identical inputs.
	score := 0.0
	for _, src := range domain.AllSources {
		w, ok := effective[src]
		if !ok {
			continue
		}
		score += w * DirectionalContribution(asset.Dimension(src), dir)
	}
	return ClampScore(score)
}

// ClampScore forces a score into [0,100]. NaN and infinities collapse to the
// nearest bound (NaN to 0) so one malformed upstream value cannot poison a
// weighted blend.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
