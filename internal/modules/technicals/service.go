// Package technicals derives price-structure context from raw candles: ATR,
// swing-based support/resistance, order blocks, and resting liquidity pools.
// Its output feeds the trade planner as structural level candidates.
package technicals

import (
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
)

// Candle is one OHLCV bar.
type Candle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Config holds the structure-detection tunables.
type Config struct {
	ATRPeriod      int     // ATR lookback (typically 14)
	SwingLookback  int     // Bars on each side of a pivot
	MaxLevels      int     // Max supports/resistances kept per side
	EqualTolerance float64 // Relative tolerance for "equal" highs/lows
	ImpulseATR     float64 // Move size, in ATRs, that qualifies as an impulse
	TrendEMA       int     // EMA period for trend alignment
}

// DefaultConfig returns the production structure-detection constants.
func DefaultConfig() Config {
	return Config{
		ATRPeriod:      14,
		SwingLookback:  2,
		MaxLevels:      5,
		EqualTolerance: 0.001,
		ImpulseATR:     1.5,
		TrendEMA:       50,
	}
}

// Service computes trade-plan context from candles
type Service struct {
	cfg Config
	log zerolog.Logger
}

// NewService creates a new technicals service
func NewService(cfg Config, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "technicals").Logger(),
	}
}

// BuildContext derives the full structural context for an asset from its
// candles. Levels are pruned to the nearest MaxLevels on each side of the
// current price.
func (s *Service) BuildContext(candles []Candle, price float64) (*domain.TradePlanContext, error) {
	if len(candles) < s.cfg.ATRPeriod+1 {
		return nil, fmt.Errorf("need at least %d candles, got %d", s.cfg.ATRPeriod+1, len(candles))
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}

	atrSeries := talib.Atr(highs, lows, closes, s.cfg.ATRPeriod)
	atr := lastValid(atrSeries)
	if atr <= 0 {
		return nil, fmt.Errorf("ATR could not be computed over %d candles", len(candles))
	}

	swingHighs, swingLows := s.swingPoints(candles)

	ctx := &domain.TradePlanContext{
		ATR:         atr,
		Supports:    nearestLevels(swingLows, price, false, s.cfg.MaxLevels),
		Resistances: nearestLevels(swingHighs, price, true, s.cfg.MaxLevels),
		OrderBlocks: s.detectOrderBlocks(candles, atr),
		Liquidity:   s.detectLiquidity(swingHighs, swingLows),
	}

	s.log.Debug().
		Float64("atr", atr).
		Int("supports", len(ctx.Supports)).
		Int("resistances", len(ctx.Resistances)).
		Int("order_blocks", len(ctx.OrderBlocks)).
		Int("liquidity", len(ctx.Liquidity)).
		Msg("Structure context built")

	return ctx, nil
}

// TrendAligned reports whether the latest close sits on the direction's side
// of the trend EMA.
func (s *Service) TrendAligned(candles []Candle, dir domain.Direction) bool {
	if len(candles) < s.cfg.TrendEMA {
		return false
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	ema := lastValid(talib.Ema(closes, s.cfg.TrendEMA))
	if ema <= 0 {
		return false
	}
	last := closes[len(closes)-1]
	switch dir {
	case domain.DirectionLong:
		return last > ema
	case domain.DirectionShort:
		return last < ema
	default:
		return false
	}
}

// swingPoints finds pivot highs and lows: a bar whose high (low) exceeds the
// highs (lows) of SwingLookback bars on each side.
func (s *Service) swingPoints(candles []Candle) (highs, lows []float64) {
	n := s.cfg.SwingLookback
	for i := n; i < len(candles)-n; i++ {
		isHigh, isLow := true, true
		for j := i - n; j <= i+n; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}
	return highs, lows
}

// detectOrderBlocks finds the last opposite-direction candle before an
// impulse move of at least ImpulseATR ATRs over the next two bars.
func (s *Service) detectOrderBlocks(candles []Candle, atr float64) []domain.OrderBlock {
	var blocks []domain.OrderBlock
	threshold := s.cfg.ImpulseATR * atr

	for i := 0; i < len(candles)-2; i++ {
		c := candles[i]
		move := candles[i+2].Close - c.Close

		bearishCandle := c.Close < c.Open
		bullishCandle := c.Close > c.Open

		var block *domain.OrderBlock
		// Bullish order block: a down candle immediately before an impulse up.
		if bearishCandle && move >= threshold {
			block = &domain.OrderBlock{
				Type:      domain.OrderBlockBullish,
				PriceLow:  c.Low,
				PriceHigh: c.High,
			}
		}
		// Bearish order block: an up candle immediately before an impulse down.
		if bullishCandle && move <= -threshold {
			block = &domain.OrderBlock{
				Type:      domain.OrderBlockBearish,
				PriceLow:  c.Low,
				PriceHigh: c.High,
			}
		}
		if block == nil {
			continue
		}

		// A later candle re-entering the block range marks it tested.
		for j := i + 3; j < len(candles); j++ {
			if candles[j].Low <= block.PriceHigh && candles[j].High >= block.PriceLow {
				block.Tested = true
				break
			}
		}

		blocks = append(blocks, *block)
	}

	return blocks
}

// detectLiquidity clusters near-equal swing highs into buy-side pools and
// near-equal swing lows into sell-side pools. Two or more equal extremes mean
// resting stop orders.
func (s *Service) detectLiquidity(swingHighs, swingLows []float64) []domain.LiquidityPool {
	var pools []domain.LiquidityPool
	pools = append(pools, s.clusterPools(swingHighs, domain.LiquidityBuySide)...)
	pools = append(pools, s.clusterPools(swingLows, domain.LiquiditySellSide)...)
	return pools
}

func (s *Service) clusterPools(levels []float64, poolType domain.LiquidityPoolType) []domain.LiquidityPool {
	if len(levels) < 2 {
		return nil
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var pools []domain.LiquidityPool
	clusterStart := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && withinTolerance(sorted[i], sorted[clusterStart], s.cfg.EqualTolerance) {
			continue
		}
		size := i - clusterStart
		if size >= 2 {
			sum := 0.0
			for _, v := range sorted[clusterStart:i] {
				sum += v
			}
			strength := "WEAK"
			if size >= 3 {
				strength = "STRONG"
			}
			pools = append(pools, domain.LiquidityPool{
				Type:     poolType,
				Price:    sum / float64(size),
				Strength: strength,
			})
		}
		clusterStart = i
	}
	return pools
}

func withinTolerance(a, b, tolerance float64) bool {
	if b == 0 {
		return a == 0
	}
	return math.Abs(a-b)/math.Abs(b) <= tolerance
}

// nearestLevels keeps the levels on the requested side of price, nearest
// first, capped at max.
func nearestLevels(levels []float64, price float64, above bool, max int) []float64 {
	var side []float64
	for _, l := range levels {
		if (above && l > price) || (!above && l < price) {
			side = append(side, l)
		}
	}
	sort.Slice(side, func(i, j int) bool {
		return math.Abs(side[i]-price) < math.Abs(side[j]-price)
	})
	if len(side) > max {
		side = side[:max]
	}
	// Planner expects ascending order.
	sort.Float64s(side)
	return side
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
