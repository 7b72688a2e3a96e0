package domain

// OrderBlockType marks the direction an order block supports.
type OrderBlockType string

const (
	OrderBlockBullish OrderBlockType = "BULLISH"
	OrderBlockBearish OrderBlockType = "BEARISH"
)

// OrderBlock is a smart-money-concept price zone detected by an external
// collaborator.
type OrderBlock struct {
	Type      OrderBlockType `json:"type"`
	PriceLow  float64        `json:"price_low"`
	PriceHigh float64        `json:"price_high"`
	Tested    bool           `json:"tested"`
}

// LiquidityPoolType marks which side of the book a liquidity pool sits on.
type LiquidityPoolType string

const (
	LiquidityBuySide  LiquidityPoolType = "BUY_SIDE"
	LiquiditySellSide LiquidityPoolType = "SELL_SIDE"
)

// LiquidityPool is a clustered-liquidity price level detected by an external
// collaborator.
type LiquidityPool struct {
	Type     LiquidityPoolType `json:"type"`
	Price    float64           `json:"price"`
	Strength string            `json:"strength"` // WEAK | MODERATE | STRONG
}

// TradePlanContext carries optional structural price-level data for the
// adaptive trade planner. All fields may be empty; the planner degrades to
// pure volatility-based levels.
type TradePlanContext struct {
	ATR         float64         `json:"atr"`
	Supports    []float64       `json:"supports,omitempty"`
	Resistances []float64       `json:"resistances,omitempty"`
	OrderBlocks []OrderBlock    `json:"order_blocks,omitempty"`
	Liquidity   []LiquidityPool `json:"liquidity_pools,omitempty"`
}

// HasStructure reports whether enough structural data exists to override the
// ATR-derived levels: at least one order block, one liquidity pool, or two
// support/resistance levels.
func (c *TradePlanContext) HasStructure() bool {
	if c == nil {
		return false
	}
	return len(c.OrderBlocks) >= 1 ||
		len(c.Liquidity) >= 1 ||
		len(c.Supports)+len(c.Resistances) >= 2
}

// LevelSource records how one price level of a trade plan was derived, for
// post-hoc audit of structural overrides and rejections.
type LevelSource struct {
	Level  string  `json:"level"`  // stop_loss | take_profit_1 | take_profit_2 | take_profit_3
	Source string  `json:"source"` // atr | order_block | support_resistance | liquidity_pool | atr_fallback
	Price  float64 `json:"price"`
	Note   string  `json:"note,omitempty"`
}

// TradePlan is the concrete executable plan attached to EXECUTE decisions.
type TradePlan struct {
	Entry           float64       `json:"entry"`
	StopLoss        float64       `json:"stop_loss"`
	TakeProfit1     float64       `json:"take_profit_1"`
	TakeProfit2     float64       `json:"take_profit_2"`
	TakeProfit3     float64       `json:"take_profit_3"`
	RiskReward      float64       `json:"risk_reward"`
	PositionSizePct float64       `json:"position_size_pct"` // percent of capital risked
	HoldingHorizon  string        `json:"holding_horizon"`   // intraday | swing | position
	LevelSources    []LevelSource `json:"level_sources"`
}
