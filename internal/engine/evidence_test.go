package engine

import (
	"testing"

	"github.com/aristath/confluence/internal/domain"
)

func TestClassifyEvidence(t *testing.T) {
	tests := []struct {
		name           string
		dims           map[domain.Source]*domain.DimensionInput
		dir            domain.Direction
		wantSupporting int
		wantOpposing   int
		wantMissing    int
		wantAlignment  domain.Alignment
	}{
		{
			name: "high confidence support, no opposition",
			dims: map[domain.Source]*domain.DimensionInput{
				domain.SourceMacro: dim(domain.SourceMacro, 70, domain.DirectionLong, domain.ConfidenceHigh),
				domain.SourceMicro: dim(domain.SourceMicro, 80, domain.DirectionLong, domain.ConfidenceMedium),
			},
			dir:            domain.DirectionLong,
			wantSupporting: 2,
			wantOpposing:   0,
			wantMissing:    5,
			wantAlignment:  domain.AlignmentAligned,
		},
		{
			name: "high confidence opposition is conflicting",
			dims: map[domain.Source]*domain.DimensionInput{
				domain.SourceMacro: dim(domain.SourceMacro, 70, domain.DirectionLong, domain.ConfidenceHigh),
				domain.SourceMeso:  dim(domain.SourceMeso, 75, domain.DirectionLong, domain.ConfidenceHigh),
				domain.SourceMicro: dim(domain.SourceMicro, 80, domain.DirectionShort, domain.ConfidenceHigh),
			},
			dir:            domain.DirectionLong,
			wantSupporting: 2,
			wantOpposing:   1,
			wantMissing:    4,
			wantAlignment:  domain.AlignmentConflicting,
		},
		{
			name: "medium-only support is partial",
			dims: map[domain.Source]*domain.DimensionInput{
				domain.SourceMacro: dim(domain.SourceMacro, 70, domain.DirectionLong, domain.ConfidenceMedium),
				domain.SourceMicro: dim(domain.SourceMicro, 55, domain.DirectionLong, domain.ConfidenceLow),
			},
			dir:            domain.DirectionLong,
			wantSupporting: 2,
			wantOpposing:   0,
			wantMissing:    5,
			wantAlignment:  domain.AlignmentPartial,
		},
		{
			name: "low confidence opposition stays partial",
			dims: map[domain.Source]*domain.DimensionInput{
				domain.SourceMacro: dim(domain.SourceMacro, 70, domain.DirectionLong, domain.ConfidenceHigh),
				domain.SourceMeso:  dim(domain.SourceMeso, 75, domain.DirectionLong, domain.ConfidenceHigh),
				domain.SourceMicro: dim(domain.SourceMicro, 60, domain.DirectionShort, domain.ConfidenceLow),
			},
			dir:            domain.DirectionLong,
			wantSupporting: 2,
			wantOpposing:   1,
			wantMissing:    4,
			wantAlignment:  domain.AlignmentAligned,
		},
		{
			name: "neutral dimensions only",
			dims: map[domain.Source]*domain.DimensionInput{
				domain.SourceSentiment: dim(domain.SourceSentiment, 50, domain.DirectionNeutral, domain.ConfidenceLow),
			},
			dir:            domain.DirectionLong,
			wantSupporting: 0,
			wantOpposing:   0,
			wantMissing:    6,
			wantAlignment:  domain.AlignmentNeutral,
		},
		{
			name:           "nothing present",
			dims:           nil,
			dir:            domain.DirectionShort,
			wantSupporting: 0,
			wantOpposing:   0,
			wantMissing:    7,
			wantAlignment:  domain.AlignmentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := &domain.AssetAnalysis{Symbol: "X", Dimensions: tt.dims}
			ev, alignment := ClassifyEvidence(asset, tt.dir)

			if len(ev.Supporting) != tt.wantSupporting {
				t.Errorf("supporting = %d, want %d", len(ev.Supporting), tt.wantSupporting)
			}
			if len(ev.Opposing) != tt.wantOpposing {
				t.Errorf("opposing = %d, want %d", len(ev.Opposing), tt.wantOpposing)
			}
			if len(ev.Missing) != tt.wantMissing {
				t.Errorf("missing = %d, want %d", len(ev.Missing), tt.wantMissing)
			}
			if alignment != tt.wantAlignment {
				t.Errorf("alignment = %s, want %s", alignment, tt.wantAlignment)
			}
		})
	}
}

func TestClassifyEvidenceIsPure(t *testing.T) {
	asset := alignedAsset()
	before := len(asset.Dimensions)

	ClassifyEvidence(asset, domain.DirectionLong)
	ClassifyEvidence(asset, domain.DirectionShort)

	if len(asset.Dimensions) != before {
		t.Error("evidence classification mutated the asset")
	}
}

func TestEvidenceMissingOrder(t *testing.T) {
	// Missing sources must come out in canonical order, not map order.
	asset := &domain.AssetAnalysis{
		Symbol: "X",
		Dimensions: map[domain.Source]*domain.DimensionInput{
			domain.SourceMicro: dim(domain.SourceMicro, 70, domain.DirectionLong, domain.ConfidenceHigh),
		},
	}
	ev, _ := ClassifyEvidence(asset, domain.DirectionLong)

	want := []domain.Source{
		domain.SourceMacro,
		domain.SourceMeso,
		domain.SourceLiquidityMap,
		domain.SourceCurrencyStrength,
		domain.SourceSentiment,
		domain.SourceFundamentals,
	}
	if len(ev.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", ev.Missing, want)
	}
	for i := range want {
		if ev.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %s, want %s", i, ev.Missing[i], want[i])
		}
	}
}
