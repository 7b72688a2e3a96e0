// Package domain contains the pure data model for the aggregation engine.
// It has no infrastructure dependencies; every other package depends on it.
package domain

import (
	"fmt"
	"time"
)

// Source identifies one independently computed analysis dimension.
type Source string

const (
	SourceMacro            Source = "macro"
	SourceMeso             Source = "meso"
	SourceMicro            Source = "micro"
	SourceLiquidityMap     Source = "liquidity_map"
	SourceCurrencyStrength Source = "currency_strength"
	SourceSentiment        Source = "sentiment"
	SourceFundamentals     Source = "fundamentals"
)

// AllSources lists every dimension in canonical order. Evidence bookkeeping
// and weight tables iterate this slice so output ordering is deterministic.
var AllSources = []Source{
	SourceMacro,
	SourceMeso,
	SourceMicro,
	SourceLiquidityMap,
	SourceCurrencyStrength,
	SourceSentiment,
	SourceFundamentals,
}

// ValidSource reports whether s names a known dimension.
func ValidSource(s Source) bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// Direction is the directional bias of a dimension or a decision.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Opposite returns the strict opposite direction. NEUTRAL has no opposite
// and returns itself.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNeutral
	}
}

// Confidence is the self-reported confidence of a dimension input.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// DimensionInput is one normalized per-(asset, source) analysis record.
// Inputs are immutable once produced; the caller owns them for the duration
// of a single aggregation pass.
type DimensionInput struct {
	Source     Source     `json:"source"`
	Score      float64    `json:"score"` // 0-100
	Direction  Direction  `json:"direction"`
	Confidence Confidence `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
	Details    string     `json:"details,omitempty"`
}

// Validate checks that the input references a known source. Unknown sources
// are contract violations and should fail fast during development, not be
// silently reweighted at runtime.
func (d *DimensionInput) Validate() error {
	if !ValidSource(d.Source) {
		return fmt.Errorf("unknown dimension source: %q", d.Source)
	}
	return nil
}
