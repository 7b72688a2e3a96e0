package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/confluence/internal/domain"
)

// PlannerConfig holds the tunable constants of the adaptive trade planner.
type PlannerConfig struct {
	BaseStopATR float64 // stop-loss distance in ATR units
	BaseTP1ATR  float64
	BaseTP2ATR  float64
	BaseTP3ATR  float64

	// BaseRiskPct is the per-trade risk percent before the tier multiplier.
	BaseRiskPct float64

	// StructuralBufferATR is placed beyond a structural stop level so the
	// stop is not sitting exactly on the level.
	StructuralBufferATR float64

	// MaxStructuralStopATR rejects structural stop candidates further than
	// this many ATRs from entry, falling back to the ATR-based stop.
	MaxStructuralStopATR float64
}

// DefaultPlannerConfig returns the production planner constants.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		BaseStopATR:          0.5,
		BaseTP1ATR:           1.0,
		BaseTP2ATR:           1.5,
		BaseTP3ATR:           2.0,
		BaseRiskPct:          2.0,
		StructuralBufferATR:  0.25,
		MaxStructuralStopATR: 2.0,
	}
}

// PlanInput bundles everything the planner needs for one asset.
type PlanInput struct {
	Entry        float64
	ATR          float64
	Direction    domain.Direction
	Regime       domain.RegimeSnapshot
	Confidence   domain.Confidence // dominant confidence of supporting evidence
	TrendAligned bool
	Structure    *domain.TradePlanContext
	Tier         domain.Tier
}

// BuildTradePlan computes the stop-loss and the three-level take-profit
// ladder for an actionable decision. Levels start from regime- and
// confidence-adjusted ATR multiples and are overridden by structural levels
// when available and close enough to entry. The returned trace lines feed the
// decision path.
func BuildTradePlan(cfg PlannerConfig, in PlanInput) (*domain.TradePlan, []string) {
	var trace []string

	slMult, tpMults := adjustedMultipliers(cfg, in)
	trace = append(trace, fmt.Sprintf(
		"plan multipliers (regime %s/%s): stop %.2fxATR, targets %.2f/%.2f/%.2fxATR",
		in.Regime.Regime, in.Regime.Regime.RiskClass(), slMult, tpMults[0], tpMults[1], tpMults[2]))

	plan := &domain.TradePlan{Entry: in.Entry}

	// Volatility-based baseline.
	sign := 1.0
	if in.Direction == domain.DirectionShort {
		sign = -1.0
	}
	plan.StopLoss = in.Entry - sign*slMult*in.ATR
	plan.TakeProfit1 = in.Entry + sign*tpMults[0]*in.ATR
	plan.TakeProfit2 = in.Entry + sign*tpMults[1]*in.ATR
	plan.TakeProfit3 = in.Entry + sign*tpMults[2]*in.ATR

	sources := map[string]domain.LevelSource{
		"stop_loss":     {Level: "stop_loss", Source: "atr", Price: plan.StopLoss},
		"take_profit_1": {Level: "take_profit_1", Source: "atr", Price: plan.TakeProfit1},
		"take_profit_2": {Level: "take_profit_2", Source: "atr", Price: plan.TakeProfit2},
		"take_profit_3": {Level: "take_profit_3", Source: "atr", Price: plan.TakeProfit3},
	}

	if in.Structure.HasStructure() {
		structTrace := applyStructuralLevels(cfg, in, sign, plan, sources)
		trace = append(trace, structTrace...)
	} else {
		trace = append(trace, "no structural data, using ATR-derived levels")
	}

	enforceLadder(in, sign, plan, sources)

	plan.LevelSources = orderedLevelSources(sources)

	// Realized risk:reward against the first target.
	risk := math.Abs(in.Entry - plan.StopLoss)
	if risk > 0 {
		plan.RiskReward = math.Abs(plan.TakeProfit1-in.Entry) / risk
	} else {
		plan.RiskReward = tpMults[0]
	}

	plan.PositionSizePct = cfg.BaseRiskPct * in.Tier.PositionMultiplier()
	plan.HoldingHorizon = holdingHorizon(in)

	trace = append(trace, fmt.Sprintf(
		"plan: entry %.4f stop %.4f targets %.4f/%.4f/%.4f rr %.2f size %.2f%%",
		plan.Entry, plan.StopLoss, plan.TakeProfit1, plan.TakeProfit2, plan.TakeProfit3,
		plan.RiskReward, plan.PositionSizePct))

	return plan, trace
}

// adjustedMultipliers applies the regime class, dimension confidence, and
// trend alignment adjustments to the base ATR multipliers.
func adjustedMultipliers(cfg PlannerConfig, in PlanInput) (float64, [3]float64) {
	sl := cfg.BaseStopATR
	tp := [3]float64{cfg.BaseTP1ATR, cfg.BaseTP2ATR, cfg.BaseTP3ATR}

	switch in.Regime.Regime.RiskClass() {
	case domain.RiskClassOn:
		// Risk-on: let winners run, keep the stop tight.
		tp[0] *= 1.20
		tp[1] *= 1.20
		tp[2] *= 1.25
	case domain.RiskClassOff:
		// Risk-off: take profits early, give the stop room for noise.
		tp[0] *= 0.80
		tp[1] *= 0.80
		tp[2] *= 0.80
		sl *= 1.40
	default:
		// Mixed or uncertain: base targets, slightly wider stop.
		sl *= 1.15
	}

	switch in.Confidence {
	case domain.ConfidenceHigh:
		tp[0] *= 1.05
		tp[1] *= 1.05
		tp[2] *= 1.05
		sl *= 0.95
	case domain.ConfidenceLow:
		tp[0] *= 0.95
		tp[1] *= 0.95
		tp[2] *= 0.95
		sl *= 1.05
	}

	if in.TrendAligned {
		tp[1] *= 1.10
		tp[2] *= 1.15
	}

	return sl, tp
}

// applyStructuralLevels overrides ATR levels with structural ones where the
// rules allow, mutating plan and sources in place. Returns trace lines.
func applyStructuralLevels(
	cfg PlannerConfig,
	in PlanInput,
	sign float64,
	plan *domain.TradePlan,
	sources map[string]domain.LevelSource,
) []string {
	var trace []string
	long := in.Direction != domain.DirectionShort

	// Stop: nearest same-direction order block or support/resistance behind
	// entry, with an ATR buffer, but only within the structural stop bound.
	if level, src, ok := nearestProtectiveLevel(in.Structure, in.Entry, long); ok {
		candidate := level - sign*cfg.StructuralBufferATR*in.ATR
		if math.Abs(in.Entry-candidate) <= cfg.MaxStructuralStopATR*in.ATR {
			plan.StopLoss = candidate
			sources["stop_loss"] = domain.LevelSource{
				Level: "stop_loss", Source: src, Price: candidate,
			}
			trace = append(trace, fmt.Sprintf("stop moved behind %s at %.4f", src, level))
		} else {
			sources["stop_loss"] = domain.LevelSource{
				Level: "stop_loss", Source: "atr_fallback", Price: plan.StopLoss,
				Note: fmt.Sprintf("structural stop %.4f beyond %.1fxATR bound, rejected", candidate, cfg.MaxStructuralStopATR),
			}
			trace = append(trace, fmt.Sprintf(
				"structural stop %.4f rejected (further than %.1fxATR), keeping ATR stop", candidate, cfg.MaxStructuralStopATR))
		}
	}

	// Targets: first two opposing levels beyond entry.
	targets := targetLevelsBeyond(in.Structure, in.Entry, long)
	if len(targets) >= 1 {
		plan.TakeProfit1 = targets[0]
		sources["take_profit_1"] = domain.LevelSource{
			Level: "take_profit_1", Source: "support_resistance", Price: targets[0],
		}
		trace = append(trace, fmt.Sprintf("target 1 at structural level %.4f", targets[0]))
	}
	if len(targets) >= 2 {
		plan.TakeProfit2 = targets[1]
		sources["take_profit_2"] = domain.LevelSource{
			Level: "take_profit_2", Source: "support_resistance", Price: targets[1],
		}
		trace = append(trace, fmt.Sprintf("target 2 at structural level %.4f", targets[1]))
	}

	// Third target: nearest same-direction liquidity pool beyond target 2.
	if pool, ok := nearestPoolBeyond(in.Structure, plan.TakeProfit2, long); ok {
		plan.TakeProfit3 = pool.Price
		sources["take_profit_3"] = domain.LevelSource{
			Level: "take_profit_3", Source: "liquidity_pool", Price: pool.Price,
			Note: fmt.Sprintf("%s pool, strength %s", pool.Type, pool.Strength),
		}
		trace = append(trace, fmt.Sprintf("target 3 at %s liquidity %.4f", pool.Type, pool.Price))
	}

	return trace
}

// nearestProtectiveLevel finds the closest structural level behind entry that
// a stop can hide behind: supports and bullish order blocks for longs,
// resistances and bearish order blocks for shorts.
func nearestProtectiveLevel(ctx *domain.TradePlanContext, entry float64, long bool) (float64, string, bool) {
	best := 0.0
	source := ""
	found := false

	consider := func(level float64, src string) {
		behind := (long && level < entry) || (!long && level > entry)
		if !behind {
			return
		}
		if !found || math.Abs(entry-level) < math.Abs(entry-best) {
			best = level
			source = src
			found = true
		}
	}

	if long {
		for _, s := range ctx.Supports {
			consider(s, "support_resistance")
		}
		for _, ob := range ctx.OrderBlocks {
			if ob.Type == domain.OrderBlockBullish {
				consider(ob.PriceLow, "order_block")
			}
		}
	} else {
		for _, r := range ctx.Resistances {
			consider(r, "support_resistance")
		}
		for _, ob := range ctx.OrderBlocks {
			if ob.Type == domain.OrderBlockBearish {
				consider(ob.PriceHigh, "order_block")
			}
		}
	}

	return best, source, found
}

// targetLevelsBeyond returns the structural levels on the profit side of
// entry, nearest first.
func targetLevelsBeyond(ctx *domain.TradePlanContext, entry float64, long bool) []float64 {
	var out []float64
	if long {
		for _, r := range ctx.Resistances {
			if r > entry {
				out = append(out, r)
			}
		}
		sort.Float64s(out)
	} else {
		for _, s := range ctx.Supports {
			if s < entry {
				out = append(out, s)
			}
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	}
	return out
}

// nearestPoolBeyond finds the closest same-direction liquidity pool past the
// given level: buy-side liquidity above for longs, sell-side below for shorts.
func nearestPoolBeyond(ctx *domain.TradePlanContext, level float64, long bool) (domain.LiquidityPool, bool) {
	var best domain.LiquidityPool
	found := false
	for _, pool := range ctx.Liquidity {
		if long {
			if pool.Type != domain.LiquidityBuySide || pool.Price <= level {
				continue
			}
			if !found || pool.Price < best.Price {
				best = pool
				found = true
			}
		} else {
			if pool.Type != domain.LiquiditySellSide || pool.Price >= level {
				continue
			}
			if !found || pool.Price > best.Price {
				best = pool
				found = true
			}
		}
	}
	return best, found
}

// enforceLadder guarantees the directional ordering invariant
// (stop < entry < tp1 < tp2 < tp3 for longs, inverted for shorts) after
// structural overrides, nudging later targets forward when a structural level
// landed out of order.
func enforceLadder(in PlanInput, sign float64, plan *domain.TradePlan, sources map[string]domain.LevelSource) {
	minStep := 0.1 * in.ATR
	if minStep <= 0 {
		minStep = math.Abs(in.Entry) * 0.001
	}

	bump := func(level string, current, floor float64) float64 {
		if sign*(current-floor) >= minStep {
			return current
		}
		adjusted := floor + sign*minStep
		src := sources[level]
		src.Price = adjusted
		src.Note = "adjusted to preserve ladder ordering"
		sources[level] = src
		return adjusted
	}

	plan.TakeProfit1 = bump("take_profit_1", plan.TakeProfit1, in.Entry)
	plan.TakeProfit2 = bump("take_profit_2", plan.TakeProfit2, plan.TakeProfit1)
	plan.TakeProfit3 = bump("take_profit_3", plan.TakeProfit3, plan.TakeProfit2)

	// Stop must stay behind entry.
	if sign*(in.Entry-plan.StopLoss) < minStep {
		plan.StopLoss = in.Entry - sign*minStep
		src := sources["stop_loss"]
		src.Price = plan.StopLoss
		src.Note = "adjusted to stay behind entry"
		sources["stop_loss"] = src
	}
}

func orderedLevelSources(sources map[string]domain.LevelSource) []domain.LevelSource {
	order := []string{"stop_loss", "take_profit_1", "take_profit_2", "take_profit_3"}
	out := make([]domain.LevelSource, 0, len(order))
	for _, key := range order {
		if src, ok := sources[key]; ok {
			out = append(out, src)
		}
	}
	return out
}

// holdingHorizon derives a coarse holding horizon from the regime class and
// trend alignment.
func holdingHorizon(in PlanInput) string {
	switch in.Regime.Regime.RiskClass() {
	case domain.RiskClassOff:
		return "intraday"
	case domain.RiskClassOn:
		if in.TrendAligned {
			return "position"
		}
		return "swing"
	default:
		return "swing"
	}
}
