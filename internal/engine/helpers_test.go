package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
)

// Shared test fixtures for the engine package.

var testTime = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func dim(src domain.Source, score float64, dir domain.Direction, conf domain.Confidence) *domain.DimensionInput {
	return &domain.DimensionInput{
		Source:     src,
		Score:      score,
		Direction:  dir,
		Confidence: conf,
		Timestamp:  testTime,
	}
}

func floatPtr(v float64) *float64 { return &v }

func testEngine() *Engine {
	return NewDefault(zerolog.Nop())
}

// alignedAsset reproduces the reference scenario: four LONG dimensions with
// healthy guardrails, liquidity map and the soft dimensions absent.
func alignedAsset() *domain.AssetAnalysis {
	return &domain.AssetAnalysis{
		Symbol:        "BTCUSDT",
		DisplaySymbol: "BTC/USDT",
		AssetClass:    domain.AssetClassCrypto,
		Direction:     domain.DirectionLong,
		Price:         100,
		Dimensions: map[domain.Source]*domain.DimensionInput{
			domain.SourceMacro:            dim(domain.SourceMacro, 75, domain.DirectionLong, domain.ConfidenceMedium),
			domain.SourceMeso:             dim(domain.SourceMeso, 80, domain.DirectionLong, domain.ConfidenceMedium),
			domain.SourceMicro:            dim(domain.SourceMicro, 85, domain.DirectionLong, domain.ConfidenceHigh),
			domain.SourceCurrencyStrength: dim(domain.SourceCurrencyStrength, 60, domain.DirectionLong, domain.ConfidenceMedium),
		},
		ExpectedValueR: floatPtr(0.4),
		RiskReward:     floatPtr(2.2),
		MinRiskReward:  floatPtr(1.5),
		MicroAction:    "EXECUTE",
		Structure:      &domain.TradePlanContext{ATR: 2.0},
	}
}

func goldilocksRegime() domain.RegimeSnapshot {
	return domain.RegimeSnapshot{
		Regime:     domain.RegimeGoldilocks,
		Confidence: domain.ConfidenceHigh,
	}
}
