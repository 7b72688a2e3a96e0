package technicals

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
)

func testService() *Service {
	return NewService(DefaultConfig(), zerolog.Nop())
}

// candlesFromCloses builds bars with small symmetric wicks around the closes.
func candlesFromCloses(closes []float64) []Candle {
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = Candle{
			Open:   open,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

// zigzag produces an oscillating series between lo and hi with n points.
func zigzag(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		phase := i % 10
		if phase < 5 {
			out[i] = lo + (hi-lo)*float64(phase)/5
		} else {
			out[i] = hi - (hi-lo)*float64(phase-5)/5
		}
	}
	return out
}

func TestBuildContext(t *testing.T) {
	closes := zigzag(95, 105, 60)
	candles := candlesFromCloses(closes)
	price := 100.0

	ctx, err := testService().BuildContext(candles, price)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	if ctx.ATR <= 0 {
		t.Errorf("ATR = %v, want positive", ctx.ATR)
	}
	for _, s := range ctx.Supports {
		if s >= price {
			t.Errorf("support %v is not below price %v", s, price)
		}
	}
	for _, r := range ctx.Resistances {
		if r <= price {
			t.Errorf("resistance %v is not above price %v", r, price)
		}
	}
	if len(ctx.Supports) == 0 || len(ctx.Resistances) == 0 {
		t.Errorf("zigzag series should yield levels on both sides: %d supports, %d resistances",
			len(ctx.Supports), len(ctx.Resistances))
	}
	if len(ctx.Supports) > DefaultConfig().MaxLevels || len(ctx.Resistances) > DefaultConfig().MaxLevels {
		t.Error("level count exceeds MaxLevels")
	}
}

func TestBuildContextTooFewCandles(t *testing.T) {
	candles := candlesFromCloses(zigzag(95, 105, 10))
	if _, err := testService().BuildContext(candles, 100); err == nil {
		t.Error("expected an error with fewer candles than the ATR period")
	}
}

func TestBuildContextLevelsAscending(t *testing.T) {
	candles := candlesFromCloses(zigzag(90, 110, 80))
	ctx, err := testService().BuildContext(candles, 100)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	for i := 1; i < len(ctx.Supports); i++ {
		if ctx.Supports[i] < ctx.Supports[i-1] {
			t.Errorf("supports not ascending: %v", ctx.Supports)
		}
	}
	for i := 1; i < len(ctx.Resistances); i++ {
		if ctx.Resistances[i] < ctx.Resistances[i-1] {
			t.Errorf("resistances not ascending: %v", ctx.Resistances)
		}
	}
}

func TestDetectLiquidityClustersEqualExtremes(t *testing.T) {
	svc := testService()

	// Three equal highs and two equal lows within tolerance.
	pools := svc.detectLiquidity(
		[]float64{105.0, 105.05, 104.98, 120.0},
		[]float64{95.0, 95.02},
	)

	var buySide, sellSide int
	for _, p := range pools {
		switch p.Type {
		case domain.LiquidityBuySide:
			buySide++
			if p.Strength != "STRONG" {
				t.Errorf("three equal highs should be STRONG, got %s", p.Strength)
			}
		case domain.LiquiditySellSide:
			sellSide++
			if p.Strength != "WEAK" {
				t.Errorf("two equal lows should be WEAK, got %s", p.Strength)
			}
		}
	}
	if buySide != 1 || sellSide != 1 {
		t.Errorf("pools = %d buy-side, %d sell-side, want 1 and 1", buySide, sellSide)
	}
}

func TestDetectLiquidityNoClusters(t *testing.T) {
	svc := testService()
	pools := svc.detectLiquidity([]float64{100, 110, 120}, []float64{90, 80})
	if len(pools) != 0 {
		t.Errorf("distinct levels should not form pools, got %v", pools)
	}
}

func TestDetectOrderBlocks(t *testing.T) {
	svc := testService()

	// Flat series, then a down candle followed by a strong impulse up.
	candles := candlesFromCloses([]float64{
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100,
		100, 100, 100, 100, 100,
		99, // down candle: the bullish order block
		103, 108,
		108, 108, 108,
	})

	blocks := svc.detectOrderBlocks(candles, 2.0)

	var bullish int
	for _, b := range blocks {
		if b.Type == domain.OrderBlockBullish {
			bullish++
			if b.PriceLow >= b.PriceHigh {
				t.Errorf("block range inverted: %v", b)
			}
		}
	}
	if bullish == 0 {
		t.Error("expected at least one bullish order block before the impulse")
	}
}

func TestTrendAligned(t *testing.T) {
	rising := make([]float64, 80)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	candles := candlesFromCloses(rising)

	svc := testService()
	if !svc.TrendAligned(candles, domain.DirectionLong) {
		t.Error("rising series should align with LONG")
	}
	if svc.TrendAligned(candles, domain.DirectionShort) {
		t.Error("rising series should not align with SHORT")
	}
	if svc.TrendAligned(candles, domain.DirectionNeutral) {
		t.Error("NEUTRAL never aligns")
	}
	if svc.TrendAligned(candles[:10], domain.DirectionLong) {
		t.Error("insufficient history should not report alignment")
	}
}
