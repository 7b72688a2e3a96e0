package engine

import "github.com/aristath/confluence/internal/domain"

// ClassifyEvidence splits an asset's present dimensions into supporting and
// opposing stacks relative to the candidate direction and derives the
// alignment verdict. Pure function; the asset is read-only.
//
// Rules:
//   - same direction as the candidate: supporting
//   - strict opposite direction: opposing
//   - NEUTRAL: neither (still counts toward coverage)
//   - absent entirely: listed in Missing
//
// Alignment:
//   - CONFLICTING when at least one HIGH-confidence dimension opposes
//   - ALIGNED when HIGH-confidence support outnumbers all opposition and no
//     HIGH-confidence opposition exists
//   - NEUTRAL when nothing supports and nothing opposes
//   - PARTIAL otherwise
func ClassifyEvidence(asset *domain.AssetAnalysis, dir domain.Direction) (domain.Evidence, domain.Alignment) {
	ev := domain.Evidence{
		Supporting: []domain.DimensionInput{},
		Opposing:   []domain.DimensionInput{},
		Missing:    []domain.Source{},
	}

	opposite := dir.Opposite()
	highSupport := 0

	for _, src := range domain.AllSources {
		dim := asset.Dimension(src)
		if dim == nil {
			ev.Missing = append(ev.Missing, src)
			continue
		}
		switch dim.Direction {
		case dir:
			ev.Supporting = append(ev.Supporting, *dim)
			if dim.Confidence == domain.ConfidenceHigh {
				highSupport++
			}
		case opposite:
			ev.Opposing = append(ev.Opposing, *dim)
		}
	}

	alignment := classifyAlignment(ev, highSupport)
	return ev, alignment
}

func classifyAlignment(ev domain.Evidence, highSupport int) domain.Alignment {
	if len(ev.Supporting) == 0 && len(ev.Opposing) == 0 {
		return domain.AlignmentNeutral
	}
	if ev.HighConfidenceOpposing() > 0 {
		return domain.AlignmentConflicting
	}
	if highSupport > len(ev.Opposing) {
		return domain.AlignmentAligned
	}
	return domain.AlignmentPartial
}
