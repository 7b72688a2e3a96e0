package engine

import (
	"fmt"

	"github.com/aristath/confluence/internal/domain"
)

// GuardrailOutcome is the verdict of the safety layer, evaluated
// independently of the unified score.
type GuardrailOutcome string

const (
	GuardrailPass GuardrailOutcome = "PASS"
	GuardrailWarn GuardrailOutcome = "WARN"
	GuardrailFail GuardrailOutcome = "FAIL"
)

// Blocker and warning identifiers surfaced verbatim to callers.
const (
	BlockerNegativeEV   = "negative_ev"
	BlockerInvalidInput = "invalid_input"
	WarningRRBelowMin   = "rr_below_min"
	WarningMicroAvoid   = "micro_avoid"
)

// GuardrailResult carries the verdict plus the identifiers and trace lines
// the decision recorder appends.
type GuardrailResult struct {
	Outcome  GuardrailOutcome
	Blockers []string
	Warnings []string
	Trace    []string
}

// EvaluateGuardrails applies the non-negotiable safety checks in priority
// order. A FAIL is always a blocker; a WARN downgrades the achievable tier
// but never aborts the asset. defaultMinRR is the service-wide risk:reward
// floor, used when the asset does not carry its own; an explicit per-asset
// value of zero disables the check for that asset.
func EvaluateGuardrails(asset *domain.AssetAnalysis, defaultMinRR float64) GuardrailResult {
	res := GuardrailResult{Outcome: GuardrailPass}

	// 1. Negative expected value is a hard stop regardless of score.
	if asset.ExpectedValueR != nil && *asset.ExpectedValueR < 0 {
		res.Outcome = GuardrailFail
		res.Blockers = append(res.Blockers, BlockerNegativeEV)
		res.Trace = append(res.Trace,
			fmt.Sprintf("guardrail FAIL: expected value %.2fR is negative", *asset.ExpectedValueR))
		return res
	}

	// 2. Realized R:R below the minimum, per-asset when set, otherwise the
	// configured default.
	minRR := defaultMinRR
	if asset.MinRiskReward != nil {
		minRR = *asset.MinRiskReward
	}
	if asset.RiskReward != nil && minRR > 0 && *asset.RiskReward < minRR {
		res.Outcome = GuardrailWarn
		res.Warnings = append(res.Warnings, WarningRRBelowMin)
		res.Trace = append(res.Trace,
			fmt.Sprintf("guardrail WARN: risk:reward %.2f below minimum %.2f", *asset.RiskReward, minRR))
	}

	// 3. The micro layer's own recommendation to avoid.
	if asset.MicroAction == "AVOID" {
		res.Outcome = GuardrailWarn
		res.Warnings = append(res.Warnings, WarningMicroAvoid)
		res.Trace = append(res.Trace, "guardrail WARN: micro layer recommends AVOID")
	}

	if res.Outcome == GuardrailPass {
		res.Trace = append(res.Trace, "guardrail PASS")
	}
	return res
}
