package engine

import (
	"fmt"

	"github.com/aristath/confluence/internal/domain"
)

// Score thresholds for the base tier ladder.
const (
	tierAThreshold = 80
	tierBThreshold = 65
	tierCThreshold = 50
	tierDThreshold = 35
)

// TierResult is the classified tier with its derived action and the trace
// lines explaining every cap that was applied.
type TierResult struct {
	Tier   domain.Tier
	Action domain.Action
	Trace  []string
}

// ClassifyTier maps (unified score, guardrail outcome, alignment) onto the
// final tier and action:
//   - any guardrail FAIL forces tier F and AVOID
//   - CONFLICTING alignment caps the tier at D
//   - a guardrail WARN caps the tier at C even if the raw score earned A/B
//   - EXECUTE only for A/B, and for C when there is zero high-confidence
//     opposition; otherwise WAIT, or AVOID at tier F
func ClassifyTier(
	score float64,
	dir domain.Direction,
	guardrail GuardrailOutcome,
	alignment domain.Alignment,
	evidence domain.Evidence,
) TierResult {
	if guardrail == GuardrailFail {
		return TierResult{
			Tier:   domain.TierF,
			Action: domain.ActionAvoid,
			Trace:  []string{"tier F: guardrail failure overrides score"},
		}
	}

	tier := baseTier(score)
	trace := []string{fmt.Sprintf("base tier %s from unified score %.1f", tier, score)}

	if alignment == domain.AlignmentConflicting {
		if capped := tier.CapAt(domain.TierD); capped != tier {
			tier = capped
			trace = append(trace, "tier capped at D: conflicting high-confidence evidence")
		}
	}

	if guardrail == GuardrailWarn {
		if capped := tier.CapAt(domain.TierC); capped != tier {
			tier = capped
			trace = append(trace, "tier capped at C: guardrail warning")
		}
	}

	action := actionFor(tier, dir, evidence)
	trace = append(trace, fmt.Sprintf("tier %s => action %s", tier, action))

	return TierResult{Tier: tier, Action: action, Trace: trace}
}

func baseTier(score float64) domain.Tier {
	switch {
	case score >= tierAThreshold:
		return domain.TierA
	case score >= tierBThreshold:
		return domain.TierB
	case score >= tierCThreshold:
		return domain.TierC
	case score >= tierDThreshold:
		return domain.TierD
	default:
		return domain.TierF
	}
}

func actionFor(tier domain.Tier, dir domain.Direction, evidence domain.Evidence) domain.Action {
	switch tier {
	case domain.TierA, domain.TierB:
		return domain.ExecuteFor(dir)
	case domain.TierC:
		if evidence.HighConfidenceOpposing() == 0 {
			return domain.ExecuteFor(dir)
		}
		return domain.ActionWait
	case domain.TierD:
		return domain.ActionWait
	default:
		return domain.ActionAvoid
	}
}
