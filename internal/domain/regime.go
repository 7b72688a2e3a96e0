package domain

// Regime is a named macro regime label produced by the external regime
// classifier once per run.
type Regime string

const (
	RegimeGoldilocks     Regime = "GOLDILOCKS"
	RegimeReflation      Regime = "REFLATION"
	RegimeDisinflation   Regime = "DISINFLATION"
	RegimeRecovery       Regime = "RECOVERY"
	RegimeStagflation    Regime = "STAGFLATION"
	RegimeRiskOff        Regime = "RISK_OFF"
	RegimeLiquidityDrain Regime = "LIQUIDITY_DRAIN"
	RegimeCreditStress   Regime = "CREDIT_STRESS"
	RegimeShock          Regime = "SHOCK"
	RegimeUncertain      Regime = "UNCERTAIN"
)

// RiskClass buckets regimes by how aggressively targets should be set.
type RiskClass string

const (
	RiskClassOn    RiskClass = "risk_on"
	RiskClassOff   RiskClass = "risk_off"
	RiskClassMixed RiskClass = "mixed"
)

// RiskClass maps a regime label onto its planner risk class. Unknown labels
// are treated as mixed, the conservative middle ground.
func (r Regime) RiskClass() RiskClass {
	switch r {
	case RegimeGoldilocks, RegimeReflation, RegimeRecovery:
		return RiskClassOn
	case RegimeStagflation, RegimeRiskOff, RegimeLiquidityDrain, RegimeCreditStress, RegimeShock:
		return RiskClassOff
	default:
		return RiskClassMixed
	}
}

// RegimeSnapshot is the shared read-only macro context for one run. Per-asset
// workers must never mutate it.
type RegimeSnapshot struct {
	Regime        Regime     `json:"regime"`
	InflationAxis float64    `json:"inflation_axis"` // -1 falling .. +1 rising
	DollarAxis    float64    `json:"dollar_axis"`    // -1 weakening .. +1 strengthening
	Confidence    Confidence `json:"confidence"`
}
