package domain

import "time"

// Action is the final trade action for an asset.
type Action string

const (
	ActionExecuteLong  Action = "EXECUTE_LONG"
	ActionExecuteShort Action = "EXECUTE_SHORT"
	ActionWait         Action = "WAIT"
	ActionAvoid        Action = "AVOID"
)

// IsExecute reports whether the action opens a position. A trade plan is
// present if and only if this is true.
func (a Action) IsExecute() bool {
	return a == ActionExecuteLong || a == ActionExecuteShort
}

// ExecuteFor returns the execute action matching a direction.
func ExecuteFor(d Direction) Action {
	if d == DirectionShort {
		return ActionExecuteShort
	}
	return ActionExecuteLong
}

// Tier is the discrete confidence bucket, A best through F blocked.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
	TierF Tier = "F"
)

// PositionMultiplier returns the fixed position-size multiplier for a tier.
func (t Tier) PositionMultiplier() float64 {
	switch t {
	case TierA:
		return 1.0
	case TierB:
		return 0.75
	case TierC:
		return 0.5
	case TierD:
		return 0.25
	default:
		return 0
	}
}

// rank orders tiers for cap/min comparisons, A highest.
func (t Tier) rank() int {
	switch t {
	case TierA:
		return 5
	case TierB:
		return 4
	case TierC:
		return 3
	case TierD:
		return 2
	default:
		return 1
	}
}

// CapAt returns the lower of t and cap.
func (t Tier) CapAt(cap Tier) Tier {
	if t.rank() > cap.rank() {
		return cap
	}
	return t
}

// AtLeast reports whether t is the same tier as other or better.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// Alignment classifies directional agreement across present dimensions.
type Alignment string

const (
	AlignmentAligned     Alignment = "ALIGNED"
	AlignmentConflicting Alignment = "CONFLICTING"
	AlignmentPartial     Alignment = "PARTIAL"
	AlignmentNeutral     Alignment = "NEUTRAL"
)

// CoverageTier describes how many dimensions were actually present.
type CoverageTier string

const (
	CoverageFull    CoverageTier = "FULL"    // all 7 dimensions
	CoverageBroad   CoverageTier = "BROAD"   // 5-6
	CoveragePartial CoverageTier = "PARTIAL" // 3-4
	CoverageThin    CoverageTier = "THIN"    // 1-2
	CoverageNone    CoverageTier = "NONE"    // 0
)

// CoverageFor maps a present-dimension count onto its coverage tier.
func CoverageFor(present int) CoverageTier {
	switch {
	case present >= len(AllSources):
		return CoverageFull
	case present >= 5:
		return CoverageBroad
	case present >= 3:
		return CoveragePartial
	case present >= 1:
		return CoverageThin
	default:
		return CoverageNone
	}
}

// Evidence splits dimensions by their stance toward the candidate direction.
// Supporting and Opposing hold the dimension inputs themselves; Missing lists
// the names of sources that produced no input at all.
type Evidence struct {
	Supporting []DimensionInput `json:"supporting"`
	Opposing   []DimensionInput `json:"opposing"`
	Missing    []Source         `json:"missing"`
}

// HighConfidenceOpposing counts opposing dimensions reported at HIGH
// confidence. Used by the tier classifier to gate C-tier execution.
func (e Evidence) HighConfidenceOpposing() int {
	n := 0
	for _, d := range e.Opposing {
		if d.Confidence == ConfidenceHigh {
			n++
		}
	}
	return n
}

// ActionDecision is the unit of engine output: one auditable decision per
// asset per pass. Decisions are constructed fresh on every pass and never
// mutated afterwards.
type ActionDecision struct {
	Symbol        string     `json:"symbol"`
	DisplaySymbol string     `json:"display_symbol"`
	AssetClass    AssetClass `json:"asset_class"`

	Direction    Direction    `json:"direction"`
	Action       Action       `json:"action"`
	Tier         Tier         `json:"tier"`
	UnifiedScore float64      `json:"unified_score"`
	Alignment    Alignment    `json:"alignment"`
	Coverage     CoverageTier `json:"coverage_tier"`

	Evidence Evidence `json:"evidence"`
	Warnings []string `json:"warnings"`
	Blockers []string `json:"blockers"`

	// DecisionPath is the ordered human-readable reasoning trace.
	DecisionPath []string `json:"decision_path"`

	TradePlan *TradePlan `json:"trade_plan,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

// Blocked reports whether any blocker was recorded.
func (d *ActionDecision) Blocked() bool {
	return len(d.Blockers) > 0
}

// MarketBias summarizes the directional lean of a whole run.
type MarketBias string

const (
	BiasRiskOn  MarketBias = "RISK_ON"
	BiasRiskOff MarketBias = "RISK_OFF"
	BiasMixed   MarketBias = "MIXED"
)

// TopPick is one high-conviction symbol in a run summary.
type TopPick struct {
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	Tier         Tier      `json:"tier"`
	UnifiedScore float64   `json:"unified_score"`
}

// RunSummary is the reduce step over all per-asset decisions of one run.
type RunSummary struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Regime      Regime       `json:"regime"`
	AssetCount  int          `json:"asset_count"`
	TierCounts  map[Tier]int `json:"tier_counts"`
	TopPicks    []TopPick    `json:"top_picks"`
	MarketBias  MarketBias   `json:"market_bias"`

	// Score distribution across all decided assets.
	MeanScore   float64 `json:"mean_score"`
	MedianScore float64 `json:"median_score"`
}
