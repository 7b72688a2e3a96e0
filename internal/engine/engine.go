package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
)

// Engine is the decision core. It is safe for concurrent use: all state is
// immutable after construction and every Decide call works only on its own
// inputs.
type Engine struct {
	weights WeightTable
	planner PlannerConfig

	// minRiskReward is the guardrail floor applied when an asset carries no
	// MinRiskReward of its own. Zero disables the default check.
	minRiskReward float64

	log zerolog.Logger
}

// New creates an engine with the given weight table and planner constants.
func New(weights WeightTable, planner PlannerConfig, log zerolog.Logger) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight table: %w", err)
	}
	return &Engine{
		weights: weights,
		planner: planner,
		log:     log.With().Str("component", "engine").Logger(),
	}, nil
}

// NewDefault creates an engine with the production constants.
func NewDefault(log zerolog.Logger) *Engine {
	eng, err := New(DefaultWeights(), DefaultPlannerConfig(), log)
	if err != nil {
		// DefaultWeights is a compile-time constant table; this cannot fail.
		panic(err)
	}
	return eng
}

// WithMinRiskReward returns a copy of the engine with the given default
// risk:reward floor. Per-asset MinRiskReward values still take precedence.
func (e *Engine) WithMinRiskReward(rr float64) *Engine {
	clone := *e
	clone.minRiskReward = rr
	return &clone
}

// Decide runs the full per-asset pipeline: sanitize, classify evidence,
// score, evaluate guardrails, assign tier, and plan the trade when the tier
// is actionable. It never returns an error: malformed per-asset input is
// isolated into a blocked decision so one bad asset cannot abort a batch.
func (e *Engine) Decide(asset *domain.AssetAnalysis, regime domain.RegimeSnapshot) *domain.ActionDecision {
	tr := &trace{}
	decision := &domain.ActionDecision{
		Symbol:        asset.Symbol,
		DisplaySymbol: asset.DisplaySymbol,
		AssetClass:    asset.AssetClass,
		Warnings:      []string{},
		Blockers:      []string{},
		DecidedAt:     time.Now().UTC(),
	}

	clean, warnings, err := sanitize(asset)
	decision.Warnings = append(decision.Warnings, warnings...)
	for _, w := range warnings {
		tr.addf("input sanitized: %s", w)
	}
	if err != nil {
		e.log.Warn().Str("symbol", asset.Symbol).Err(err).Msg("Invalid asset input, isolating")
		tr.addf("invalid input: %v", err)
		tr.add("tier F: asset isolated due to invalid input")
		decision.Direction = domain.DirectionNeutral
		decision.Action = domain.ActionAvoid
		decision.Tier = domain.TierF
		decision.Alignment = domain.AlignmentNeutral
		decision.Coverage = domain.CoverageFor(len(asset.PresentSources()))
		decision.Blockers = append(decision.Blockers, BlockerInvalidInput)
		decision.Evidence = domain.Evidence{
			Supporting: []domain.DimensionInput{},
			Opposing:   []domain.DimensionInput{},
			Missing:    missingSources(asset),
		}
		decision.DecisionPath = tr.steps
		return decision
	}

	// Working direction: a NEUTRAL market signal defaults to LONG before
	// evidence classification. Deliberate legacy policy, covered by a
	// regression test; do not "fix" without a product decision.
	dir := clean.Direction
	if dir == domain.DirectionNeutral {
		dir = domain.DirectionLong
		tr.add("neutral upstream signal, defaulting working direction to LONG")
	}
	decision.Direction = dir

	evidence, alignment := ClassifyEvidence(clean, dir)
	decision.Evidence = evidence
	decision.Alignment = alignment
	decision.Coverage = domain.CoverageFor(len(clean.PresentSources()))
	tr.addf("evidence for %s: %d supporting, %d opposing, %d missing (%s, coverage %s)",
		dir, len(evidence.Supporting), len(evidence.Opposing), len(evidence.Missing),
		alignment, decision.Coverage)

	score := UnifiedScore(clean, dir, e.weights)
	decision.UnifiedScore = score
	tr.addf("unified score %.1f over %d present dimensions", score, len(clean.PresentSources()))

	guardrail := EvaluateGuardrails(clean, e.minRiskReward)
	decision.Blockers = append(decision.Blockers, guardrail.Blockers...)
	decision.Warnings = append(decision.Warnings, guardrail.Warnings...)
	tr.add(guardrail.Trace...)

	tierRes := ClassifyTier(score, dir, guardrail.Outcome, alignment, evidence)
	decision.Tier = tierRes.Tier
	decision.Action = tierRes.Action
	tr.add(tierRes.Trace...)

	if decision.Action.IsExecute() {
		plan, planTrace := BuildTradePlan(e.planner, PlanInput{
			Entry:        clean.Price,
			ATR:          structATR(clean),
			Direction:    dir,
			Regime:       regime,
			Confidence:   dominantConfidence(evidence.Supporting),
			TrendAligned: clean.TrendAligned,
			Structure:    clean.Structure,
			Tier:         decision.Tier,
		})
		decision.TradePlan = plan
		tr.add(planTrace...)
	} else {
		tr.addf("trade plan skipped: action %s", decision.Action)
	}

	decision.DecisionPath = tr.steps
	return decision
}

// sanitize validates the asset and returns a copy with malformed-but-usable
// values clamped. Finite out-of-range scores are clamped and reported as
// warnings; non-finite scores or prices make the asset unusable and return
// an error so the caller isolates it.
func sanitize(asset *domain.AssetAnalysis) (*domain.AssetAnalysis, []string, error) {
	if math.IsNaN(asset.Price) || math.IsInf(asset.Price, 0) || asset.Price <= 0 {
		return nil, nil, fmt.Errorf("price %v is not a positive finite number", asset.Price)
	}

	var warnings []string
	clean := *asset
	clean.Dimensions = make(map[domain.Source]*domain.DimensionInput, len(asset.Dimensions))

	for src, dim := range asset.Dimensions {
		if dim == nil {
			continue
		}
		if err := dim.Validate(); err != nil {
			return nil, nil, err
		}
		if math.IsNaN(dim.Score) || math.IsInf(dim.Score, 0) {
			return nil, nil, fmt.Errorf("dimension %s score is not finite", src)
		}
		d := *dim
		if d.Score < 0 || d.Score > 100 {
			warnings = append(warnings,
				fmt.Sprintf("%s score %.1f clamped to [0,100]", src, d.Score))
			d.Score = ClampScore(d.Score)
		}
		clean.Dimensions[src] = &d
	}

	return &clean, warnings, nil
}

func missingSources(asset *domain.AssetAnalysis) []domain.Source {
	missing := []domain.Source{}
	for _, src := range domain.AllSources {
		if asset.Dimension(src) == nil {
			missing = append(missing, src)
		}
	}
	return missing
}

// structATR returns the ATR supplied via the structure context, or a small
// price-proportional fallback so a missing ATR still yields a sane ladder.
func structATR(asset *domain.AssetAnalysis) float64 {
	if asset.Structure != nil && asset.Structure.ATR > 0 {
		return asset.Structure.ATR
	}
	return asset.Price * 0.01
}

// dominantConfidence returns the most frequent confidence label among the
// supporting dimensions, resolving ties and empty evidence to MEDIUM.
func dominantConfidence(supporting []domain.DimensionInput) domain.Confidence {
	counts := map[domain.Confidence]int{}
	for _, d := range supporting {
		counts[d.Confidence]++
	}
	high, med, low := counts[domain.ConfidenceHigh], counts[domain.ConfidenceMedium], counts[domain.ConfidenceLow]
	if high > med && high > low {
		return domain.ConfidenceHigh
	}
	if low > med && low > high {
		return domain.ConfidenceLow
	}
	return domain.ConfidenceMedium
}
