package domain

import "time"

// AssetClass groups instruments for reporting purposes.
type AssetClass string

const (
	AssetClassCrypto    AssetClass = "crypto"
	AssetClassEquity    AssetClass = "equity"
	AssetClassForex     AssetClass = "forex"
	AssetClassCommodity AssetClass = "commodity"
	AssetClassIndex     AssetClass = "index"
)

// AssetAnalysis is the full per-asset input to one aggregation pass: the
// instrument identity, the externally assigned signal, and whatever subset of
// dimension inputs the collaborators produced. A dimension is "missing" when
// its entry is nil or absent.
type AssetAnalysis struct {
	Symbol        string     `json:"symbol"`
	DisplaySymbol string     `json:"display_symbol"`
	AssetClass    AssetClass `json:"asset_class"`

	// Direction is the market-assigned candidate direction. NEUTRAL is
	// defaulted to LONG by the engine before evidence classification.
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`

	Dimensions map[Source]*DimensionInput `json:"dimensions"`

	// DataTimestamps records when each dimension's underlying data was
	// collected, used for staleness reporting.
	DataTimestamps map[Source]time.Time `json:"data_timestamps,omitempty"`

	// Guardrail inputs from the micro layer. Nil means not provided.
	ExpectedValueR *float64 `json:"expected_value_r,omitempty"` // expected value in risk units
	RiskReward     *float64 `json:"risk_reward,omitempty"`      // realized R:R of the best setup
	MinRiskReward  *float64 `json:"min_risk_reward,omitempty"`  // minimum acceptable R:R
	MicroAction    string   `json:"micro_action,omitempty"`     // EXECUTE | WAIT | AVOID

	// TrendAligned is true when the micro layer reports a fully aligned
	// multi-timeframe trend. Widens the upper take-profit targets.
	TrendAligned bool `json:"trend_aligned,omitempty"`

	// Structure carries optional structural price-level data for the trade
	// planner. Nil means the planner falls back to pure ATR levels.
	Structure *TradePlanContext `json:"structure,omitempty"`
}

// Dimension returns the input for a source, or nil when missing.
func (a *AssetAnalysis) Dimension(s Source) *DimensionInput {
	if a.Dimensions == nil {
		return nil
	}
	return a.Dimensions[s]
}

// PresentSources returns the sources with a non-nil input, in canonical order.
func (a *AssetAnalysis) PresentSources() []Source {
	out := make([]Source, 0, len(AllSources))
	for _, s := range AllSources {
		if a.Dimension(s) != nil {
			out = append(out, s)
		}
	}
	return out
}
