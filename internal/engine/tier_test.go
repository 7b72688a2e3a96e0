package engine

import (
	"testing"

	"github.com/aristath/confluence/internal/domain"
)

func TestBaseTierThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.Tier
	}{
		{100, domain.TierA},
		{80, domain.TierA},
		{79.9, domain.TierB},
		{65, domain.TierB},
		{64.9, domain.TierC},
		{50, domain.TierC},
		{49.9, domain.TierD},
		{35, domain.TierD},
		{34.9, domain.TierF},
		{0, domain.TierF},
	}
	for _, tt := range tests {
		if got := baseTier(tt.score); got != tt.want {
			t.Errorf("baseTier(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassifyTier(t *testing.T) {
	noOpposition := domain.Evidence{}
	highOpposition := domain.Evidence{
		Opposing: []domain.DimensionInput{
			*dim(domain.SourceMacro, 70, domain.DirectionShort, domain.ConfidenceHigh),
		},
	}

	tests := []struct {
		name       string
		score      float64
		guardrail  GuardrailOutcome
		alignment  domain.Alignment
		evidence   domain.Evidence
		wantTier   domain.Tier
		wantAction domain.Action
	}{
		{
			name:  "clean A executes",
			score: 85, guardrail: GuardrailPass, alignment: domain.AlignmentAligned,
			evidence: noOpposition,
			wantTier: domain.TierA, wantAction: domain.ActionExecuteLong,
		},
		{
			name:  "clean B executes",
			score: 70, guardrail: GuardrailPass, alignment: domain.AlignmentPartial,
			evidence: noOpposition,
			wantTier: domain.TierB, wantAction: domain.ActionExecuteLong,
		},
		{
			name:  "C without high-confidence opposition executes",
			score: 55, guardrail: GuardrailPass, alignment: domain.AlignmentPartial,
			evidence: noOpposition,
			wantTier: domain.TierC, wantAction: domain.ActionExecuteLong,
		},
		{
			name:  "C with high-confidence opposition waits",
			score: 55, guardrail: GuardrailPass, alignment: domain.AlignmentPartial,
			evidence: highOpposition,
			wantTier: domain.TierC, wantAction: domain.ActionWait,
		},
		{
			name:  "D always waits",
			score: 40, guardrail: GuardrailPass, alignment: domain.AlignmentPartial,
			evidence: noOpposition,
			wantTier: domain.TierD, wantAction: domain.ActionWait,
		},
		{
			name:  "sub-threshold score avoids",
			score: 20, guardrail: GuardrailPass, alignment: domain.AlignmentNeutral,
			evidence: noOpposition,
			wantTier: domain.TierF, wantAction: domain.ActionAvoid,
		},
		{
			name:  "guardrail fail forces F regardless of score",
			score: 95, guardrail: GuardrailFail, alignment: domain.AlignmentAligned,
			evidence: noOpposition,
			wantTier: domain.TierF, wantAction: domain.ActionAvoid,
		},
		{
			name:  "conflicting evidence caps A at D",
			score: 85, guardrail: GuardrailPass, alignment: domain.AlignmentConflicting,
			evidence: highOpposition,
			wantTier: domain.TierD, wantAction: domain.ActionWait,
		},
		{
			name:  "warning caps A at C",
			score: 85, guardrail: GuardrailWarn, alignment: domain.AlignmentAligned,
			evidence: noOpposition,
			wantTier: domain.TierC, wantAction: domain.ActionExecuteLong,
		},
		{
			name:  "warning does not lift an existing D",
			score: 40, guardrail: GuardrailWarn, alignment: domain.AlignmentPartial,
			evidence: noOpposition,
			wantTier: domain.TierD, wantAction: domain.ActionWait,
		},
		{
			name:  "warning and conflict stack to D",
			score: 90, guardrail: GuardrailWarn, alignment: domain.AlignmentConflicting,
			evidence: highOpposition,
			wantTier: domain.TierD, wantAction: domain.ActionWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ClassifyTier(tt.score, domain.DirectionLong, tt.guardrail, tt.alignment, tt.evidence)
			if res.Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", res.Tier, tt.wantTier)
			}
			if res.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", res.Action, tt.wantAction)
			}
			if len(res.Trace) == 0 {
				t.Error("tier classification must leave a trace")
			}
		})
	}
}

func TestClassifyTierShortDirection(t *testing.T) {
	res := ClassifyTier(85, domain.DirectionShort, GuardrailPass, domain.AlignmentAligned, domain.Evidence{})
	if res.Action != domain.ActionExecuteShort {
		t.Errorf("action = %s, want %s", res.Action, domain.ActionExecuteShort)
	}
}

// Tier monotonicity: with everything else fixed, a higher score never yields a
// worse tier.
func TestTierMonotonicity(t *testing.T) {
	for _, guardrail := range []GuardrailOutcome{GuardrailPass, GuardrailWarn} {
		for _, alignment := range []domain.Alignment{domain.AlignmentAligned, domain.AlignmentPartial, domain.AlignmentConflicting} {
			prev := domain.TierF
			for score := 0.0; score <= 100.0; score += 0.5 {
				res := ClassifyTier(score, domain.DirectionLong, guardrail, alignment, domain.Evidence{})
				if !res.Tier.AtLeast(prev) {
					t.Fatalf("guardrail=%s alignment=%s: tier regressed from %s to %s at score %v",
						guardrail, alignment, prev, res.Tier, score)
				}
				prev = res.Tier
			}
		}
	}
}

func TestPositionMultipliers(t *testing.T) {
	tests := []struct {
		tier domain.Tier
		want float64
	}{
		{domain.TierA, 1.0},
		{domain.TierB, 0.75},
		{domain.TierC, 0.5},
		{domain.TierD, 0.25},
		{domain.TierF, 0},
	}
	for _, tt := range tests {
		if got := tt.tier.PositionMultiplier(); got != tt.want {
			t.Errorf("%s multiplier = %v, want %v", tt.tier, got, tt.want)
		}
	}
}
