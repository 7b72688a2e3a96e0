// Package monitor orchestrates aggregation runs: it pulls a fresh input
// snapshot, drives the engine over it, persists and archives the results, and
// publishes run lifecycle events. At most one run executes at a time; a
// trigger arriving mid-run is rejected instead of queued so stale snapshots
// never pile up.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
	"github.com/aristath/confluence/internal/engine"
	"github.com/aristath/confluence/internal/events"
)

// ErrRunInProgress is returned when a trigger arrives while a run is active.
var ErrRunInProgress = errors.New("an aggregation run is already in progress")

// SnapshotProvider supplies the engine inputs for one run: the current
// per-asset dimension snapshots and the active regime.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]*domain.AssetAnalysis, domain.RegimeSnapshot, error)
}

// RunStore persists a completed run.
type RunStore interface {
	SaveRun(decisions []domain.ActionDecision, summary domain.RunSummary) error
}

// Archiver ships a completed run to long-term storage. Returns the object
// key and payload size.
type Archiver interface {
	ArchiveRun(ctx context.Context, summary domain.RunSummary, decisions []domain.ActionDecision) (string, int, error)
}

// Status describes the monitor's current state for the API.
type Status struct {
	Running       bool          `json:"running"`
	LastRunID     string        `json:"last_run_id,omitempty"`
	LastRegime    domain.Regime `json:"last_regime,omitempty"`
	LastCompleted time.Time     `json:"last_completed,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
}

// Service drives aggregation runs
type Service struct {
	engine   *engine.Engine
	provider SnapshotProvider
	store    RunStore
	archiver Archiver // optional
	bus      *events.Bus
	log      zerolog.Logger

	running atomic.Bool

	mu   sync.Mutex
	last Status
}

// NewService creates a new run monitor. archiver may be nil when archiving is
// disabled.
func NewService(
	eng *engine.Engine,
	provider SnapshotProvider,
	store RunStore,
	archiver Archiver,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		engine:   eng,
		provider: provider,
		store:    store,
		archiver: archiver,
		bus:      bus,
		log:      log.With().Str("component", "monitor").Logger(),
	}
}

// Status returns the current monitor status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.last
	status.Running = s.running.Load()
	return status
}

// TriggerRun executes one full aggregation run. Returns ErrRunInProgress when
// a run is already active.
func (s *Service) TriggerRun(ctx context.Context, trigger string) (*engine.BatchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	runID := uuid.New().String()
	started := time.Now()

	assets, regime, err := s.provider.Snapshot(ctx)
	if err != nil {
		return nil, s.fail(runID, err)
	}

	s.bus.Publish("monitor", &events.RunStartedData{
		RunID:      runID,
		AssetCount: len(assets),
		Regime:     string(regime.Regime),
		Trigger:    trigger,
	})
	s.log.Info().
		Str("run_id", runID).
		Str("trigger", trigger).
		Int("assets", len(assets)).
		Str("regime", string(regime.Regime)).
		Msg("Aggregation run started")

	result, err := s.engine.AggregateBatch(ctx, runID, assets, regime)
	if err != nil {
		return nil, s.fail(runID, err)
	}

	if err := s.store.SaveRun(result.Decisions, result.Summary); err != nil {
		return nil, s.fail(runID, err)
	}

	// Archiving is best-effort: a failed upload never fails the run.
	if s.archiver != nil {
		key, size, archiveErr := s.archiver.ArchiveRun(ctx, result.Summary, result.Decisions)
		if archiveErr != nil {
			s.log.Warn().Err(archiveErr).Str("run_id", runID).Msg("Run archive upload failed")
			s.bus.Publish("monitor", &events.ErrorEventData{
				Error:   archiveErr.Error(),
				Context: map[string]interface{}{"run_id": runID, "stage": "archive"},
			})
		} else {
			s.bus.Publish("monitor", &events.ArchiveUploadedData{
				RunID:     runID,
				Key:       key,
				SizeBytes: size,
			})
		}
	}

	s.mu.Lock()
	previousRegime := s.last.LastRegime
	s.last = Status{
		LastRunID:     runID,
		LastRegime:    regime.Regime,
		LastCompleted: time.Now().UTC(),
	}
	s.mu.Unlock()

	if previousRegime != "" && previousRegime != regime.Regime {
		s.bus.Publish("monitor", &events.RegimeChangedData{
			OldRegime: string(previousRegime),
			NewRegime: string(regime.Regime),
		})
	}

	s.bus.Publish("monitor", &events.RunCompletedData{
		RunID:       runID,
		AssetCount:  result.Summary.AssetCount,
		Regime:      string(result.Summary.Regime),
		MarketBias:  string(result.Summary.MarketBias),
		MeanScore:   result.Summary.MeanScore,
		TopPicks:    len(result.Summary.TopPicks),
		DurationSec: time.Since(started).Seconds(),
	})
	s.log.Info().
		Str("run_id", runID).
		Str("bias", string(result.Summary.MarketBias)).
		Float64("duration_sec", time.Since(started).Seconds()).
		Msg("Aggregation run completed")

	return result, nil
}

func (s *Service) fail(runID string, err error) error {
	s.mu.Lock()
	s.last.LastError = err.Error()
	s.mu.Unlock()

	s.bus.Publish("monitor", &events.RunFailedData{RunID: runID, Error: err.Error()})
	s.log.Error().Err(err).Str("run_id", runID).Msg("Aggregation run failed")
	return err
}
