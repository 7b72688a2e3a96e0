// Package intake stages per-asset dimension analyses and the regime snapshot
// submitted by upstream producers until the next aggregation run consumes
// them. The engine never fetches data itself, producers push here over HTTP.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
)

// ErrNoRegime is returned when a snapshot is requested before any regime
// submission arrived.
var ErrNoRegime = errors.New("no regime snapshot has been submitted")

// ErrNoAssets is returned when a snapshot is requested with nothing staged.
var ErrNoAssets = errors.New("no asset analyses have been submitted")

// ErrNotStaged is returned when structure arrives for an unknown symbol.
var ErrNotStaged = errors.New("symbol is not staged")

// Status reports what is currently staged.
type Status struct {
	AssetCount  int           `json:"asset_count"`
	Symbols     []string      `json:"symbols"`
	Regime      domain.Regime `json:"regime,omitempty"`
	LastUpdated time.Time     `json:"last_updated,omitempty"`
}

// Service is the staging store. It implements the monitor's SnapshotProvider.
type Service struct {
	mu        sync.RWMutex
	assets    map[string]*domain.AssetAnalysis
	regime    domain.RegimeSnapshot
	hasRegime bool
	updated   time.Time
	log       zerolog.Logger
}

// NewService creates an empty staging store
func NewService(log zerolog.Logger) *Service {
	return &Service{
		assets: make(map[string]*domain.AssetAnalysis),
		log:    log.With().Str("component", "intake").Logger(),
	}
}

// SubmitAssets stages a batch of analyses, replacing any previous submission
// for the same symbol. Returns the number of accepted assets.
func (s *Service) SubmitAssets(assets []*domain.AssetAnalysis) (int, error) {
	staged := make(map[string]*domain.AssetAnalysis, len(assets))
	for i, asset := range assets {
		if asset == nil {
			return 0, fmt.Errorf("asset %d is null", i)
		}
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return 0, fmt.Errorf("asset %d has no symbol", i)
		}
		clone := cloneAsset(asset)
		clone.Symbol = symbol
		staged[symbol] = clone
	}

	s.mu.Lock()
	for symbol, asset := range staged {
		s.assets[symbol] = asset
	}
	s.updated = time.Now().UTC()
	total := len(s.assets)
	s.mu.Unlock()

	s.log.Debug().Int("accepted", len(staged)).Int("staged", total).Msg("Assets staged")
	return len(staged), nil
}

// SubmitRegime stages the regime snapshot for the next run
func (s *Service) SubmitRegime(snap domain.RegimeSnapshot) error {
	if snap.Regime == "" {
		return errors.New("regime label is required")
	}

	s.mu.Lock()
	s.regime = snap
	s.hasRegime = true
	s.updated = time.Now().UTC()
	s.mu.Unlock()

	s.log.Info().Str("regime", string(snap.Regime)).Msg("Regime snapshot staged")
	return nil
}

// Asset returns a copy of one staged analysis.
func (s *Service) Asset(symbol string) (*domain.AssetAnalysis, bool) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[key]
	if !ok {
		return nil, false
	}
	return cloneAsset(asset), true
}

// SetStructure attaches derived price-structure context to a staged asset,
// replacing whatever the producer submitted.
func (s *Service) SetStructure(symbol string, structure *domain.TradePlanContext, trendAligned bool) error {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotStaged, key)
	}
	asset.Structure = structure
	asset.TrendAligned = trendAligned
	s.updated = time.Now().UTC()

	s.log.Debug().Str("symbol", key).Bool("trend_aligned", trendAligned).Msg("Structure staged")
	return nil
}

// RemoveAsset drops one staged symbol. Returns false when it was not staged.
func (s *Service) RemoveAsset(symbol string) bool {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[key]; !ok {
		return false
	}
	delete(s.assets, key)
	return true
}

// Clear drops every staged asset. The regime snapshot is kept, it stays valid
// across runs until replaced.
func (s *Service) Clear() {
	s.mu.Lock()
	s.assets = make(map[string]*domain.AssetAnalysis)
	s.mu.Unlock()
}

// Status reports the staged state
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.assets))
	for symbol := range s.assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	st := Status{
		AssetCount:  len(s.assets),
		Symbols:     symbols,
		LastUpdated: s.updated,
	}
	if s.hasRegime {
		st.Regime = s.regime.Regime
	}
	return st
}

// Snapshot hands the staged batch to the monitor. Assets are deep-copied and
// ordered by symbol so concurrent submissions cannot reach into a running
// batch.
func (s *Service) Snapshot(ctx context.Context) ([]*domain.AssetAnalysis, domain.RegimeSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.RegimeSnapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasRegime {
		return nil, domain.RegimeSnapshot{}, ErrNoRegime
	}
	if len(s.assets) == 0 {
		return nil, domain.RegimeSnapshot{}, ErrNoAssets
	}

	out := make([]*domain.AssetAnalysis, 0, len(s.assets))
	for _, asset := range s.assets {
		out = append(out, cloneAsset(asset))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out, s.regime, nil
}

func cloneAsset(a *domain.AssetAnalysis) *domain.AssetAnalysis {
	clone := *a

	if a.Dimensions != nil {
		clone.Dimensions = make(map[domain.Source]*domain.DimensionInput, len(a.Dimensions))
		for src, dim := range a.Dimensions {
			if dim == nil {
				continue
			}
			d := *dim
			clone.Dimensions[src] = &d
		}
	}
	if a.DataTimestamps != nil {
		clone.DataTimestamps = make(map[domain.Source]time.Time, len(a.DataTimestamps))
		for src, ts := range a.DataTimestamps {
			clone.DataTimestamps[src] = ts
		}
	}
	clone.ExpectedValueR = cloneFloat(a.ExpectedValueR)
	clone.RiskReward = cloneFloat(a.RiskReward)
	clone.MinRiskReward = cloneFloat(a.MinRiskReward)
	if a.Structure != nil {
		st := *a.Structure
		st.Supports = append([]float64(nil), a.Structure.Supports...)
		st.Resistances = append([]float64(nil), a.Structure.Resistances...)
		st.OrderBlocks = append([]domain.OrderBlock(nil), a.Structure.OrderBlocks...)
		st.Liquidity = append([]domain.LiquidityPool(nil), a.Structure.Liquidity...)
		clone.Structure = &st
	}
	return &clone
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
