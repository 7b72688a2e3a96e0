package intake

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/confluence/internal/domain"
)

func stagedAsset(symbol string) *domain.AssetAnalysis {
	return &domain.AssetAnalysis{
		Symbol:    symbol,
		Direction: domain.DirectionLong,
		Price:     100,
		Dimensions: map[domain.Source]*domain.DimensionInput{
			domain.SourceMacro: {
				Source:     domain.SourceMacro,
				Score:      70,
				Direction:  domain.DirectionLong,
				Confidence: domain.ConfidenceMedium,
				Timestamp:  time.Now().UTC(),
			},
		},
	}
}

func TestSubmitAndSnapshot(t *testing.T) {
	svc := NewService(zerolog.Nop())

	accepted, err := svc.SubmitAssets([]*domain.AssetAnalysis{
		stagedAsset("ethusdt"), stagedAsset("BTCUSDT"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeGoldilocks}))

	assets, regime, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RegimeGoldilocks, regime.Regime)

	require.Len(t, assets, 2)
	assert.Equal(t, "BTCUSDT", assets[0].Symbol, "snapshot is ordered by symbol")
	assert.Equal(t, "ETHUSDT", assets[1].Symbol, "symbols are normalized to upper case")
}

func TestSnapshotRequiresRegime(t *testing.T) {
	svc := NewService(zerolog.Nop())
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("BTCUSDT")})
	require.NoError(t, err)

	_, _, err = svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoRegime)
}

func TestSnapshotRequiresAssets(t *testing.T) {
	svc := NewService(zerolog.Nop())
	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeRiskOff}))

	_, _, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoAssets)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{nil})
	assert.Error(t, err)

	_, err = svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("  ")})
	assert.Error(t, err)

	assert.Error(t, svc.SubmitRegime(domain.RegimeSnapshot{}))
}

func TestSubmitReplacesSameSymbol(t *testing.T) {
	svc := NewService(zerolog.Nop())
	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeGoldilocks}))

	first := stagedAsset("BTCUSDT")
	first.Price = 100
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{first})
	require.NoError(t, err)

	second := stagedAsset("btcusdt")
	second.Price = 110
	_, err = svc.SubmitAssets([]*domain.AssetAnalysis{second})
	require.NoError(t, err)

	assets, _, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, 110.0, assets[0].Price)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	svc := NewService(zerolog.Nop())
	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeGoldilocks}))

	original := stagedAsset("BTCUSDT")
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{original})
	require.NoError(t, err)

	// Mutating the submitted object must not reach the staged copy.
	original.Price = 1
	original.Dimensions[domain.SourceMacro].Score = 5

	assets, _, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, assets[0].Price)
	assert.Equal(t, 70.0, assets[0].Dimensions[domain.SourceMacro].Score)

	// And mutating the snapshot must not reach the staged copy either.
	assets[0].Dimensions[domain.SourceMacro].Score = 1

	again, _, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70.0, again[0].Dimensions[domain.SourceMacro].Score)
}

func TestSetStructure(t *testing.T) {
	svc := NewService(zerolog.Nop())
	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeGoldilocks}))
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("BTCUSDT")})
	require.NoError(t, err)

	structure := &domain.TradePlanContext{
		ATR:      2.0,
		Supports: []float64{98, 95},
	}
	require.NoError(t, svc.SetStructure("btcusdt", structure, true))

	assets, _, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, assets[0].Structure)
	assert.Equal(t, 2.0, assets[0].Structure.ATR)
	assert.True(t, assets[0].TrendAligned)

	assert.ErrorIs(t, svc.SetStructure("ethusdt", structure, false), ErrNotStaged)
}

func TestAssetReturnsCopy(t *testing.T) {
	svc := NewService(zerolog.Nop())
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("BTCUSDT")})
	require.NoError(t, err)

	asset, ok := svc.Asset("btcusdt")
	require.True(t, ok)
	asset.Price = 1

	again, ok := svc.Asset("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 100.0, again.Price)

	_, ok = svc.Asset("ETHUSDT")
	assert.False(t, ok)
}

func TestRemoveAndClear(t *testing.T) {
	svc := NewService(zerolog.Nop())
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("BTCUSDT"), stagedAsset("ETHUSDT")})
	require.NoError(t, err)

	assert.True(t, svc.RemoveAsset("btcusdt"))
	assert.False(t, svc.RemoveAsset("btcusdt"))
	assert.Equal(t, 1, svc.Status().AssetCount)

	svc.Clear()
	assert.Zero(t, svc.Status().AssetCount)
}

func TestStatus(t *testing.T) {
	svc := NewService(zerolog.Nop())
	_, err := svc.SubmitAssets([]*domain.AssetAnalysis{stagedAsset("ETHUSDT"), stagedAsset("BTCUSDT")})
	require.NoError(t, err)
	require.NoError(t, svc.SubmitRegime(domain.RegimeSnapshot{Regime: domain.RegimeReflation}))

	status := svc.Status()
	assert.Equal(t, 2, status.AssetCount)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, status.Symbols)
	assert.Equal(t, domain.RegimeReflation, status.Regime)
	assert.False(t, status.LastUpdated.IsZero())
}

func TestSnapshotCancelledContext(t *testing.T) {
	svc := NewService(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
