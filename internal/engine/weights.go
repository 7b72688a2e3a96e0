// Package engine implements the signal-aggregation and decision core: it
// reduces heterogeneous, partially-missing per-dimension inputs to a single
// tier-gated, auditable trade decision per asset. The whole package is pure
// arithmetic over caller-supplied data; it performs no I/O.
package engine

import (
	"fmt"

	"github.com/aristath/confluence/internal/domain"
)

// WeightTable holds the base blend weight per dimension source. There is one
// table for the whole engine; call sites that only have a subset of
// dimensions use Renormalized rather than duplicating literal formulas.
type WeightTable map[domain.Source]float64

// DefaultWeights is the production blend. Micro carries the most weight
// because it is the only layer that produces concrete setups; sentiment and
// fundamentals are tie-breakers.
func DefaultWeights() WeightTable {
	return WeightTable{
		domain.SourceMacro:            0.15,
		domain.SourceMeso:             0.20,
		domain.SourceMicro:            0.30,
		domain.SourceLiquidityMap:     0.15,
		domain.SourceCurrencyStrength: 0.10,
		domain.SourceSentiment:        0.05,
		domain.SourceFundamentals:     0.05,
	}
}

// Validate checks that every weight is positive and every source is known.
func (w WeightTable) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("weight table is empty")
	}
	for src, weight := range w {
		if !domain.ValidSource(src) {
			return fmt.Errorf("weight table references unknown source %q", src)
		}
		if weight <= 0 {
			return fmt.Errorf("weight for %s must be positive, got %v", src, weight)
		}
	}
	return nil
}

// Renormalized returns the weights restricted to the given subset of sources,
// scaled so they sum to 1. Sources absent from the table are ignored. An
// empty result means none of the requested sources carries weight.
func (w WeightTable) Renormalized(present []domain.Source) WeightTable {
	out := make(WeightTable, len(present))
	total := 0.0
	for _, src := range present {
		if weight, ok := w[src]; ok {
			out[src] = weight
			total += weight
		}
	}
	if total == 0 {
		return WeightTable{}
	}
	for src := range out {
		out[src] /= total
	}
	return out
}
