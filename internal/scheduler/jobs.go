package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/engine"
	"github.com/aristath/confluence/internal/monitor"
)

// RunTrigger starts one aggregation run. Satisfied by the monitor service.
type RunTrigger interface {
	TriggerRun(ctx context.Context, trigger string) (*engine.BatchResult, error)
}

// DecisionPruner removes decision rows older than the cutoff.
type DecisionPruner interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

// SnapshotRotator deletes archived snapshots past their retention period.
type SnapshotRotator interface {
	RotateOld(ctx context.Context, retentionDays, minKeep int) (int, error)
}

// AggregationJob triggers a scheduled aggregation run. A run already in
// progress is skipped silently, the next tick will pick it up.
type AggregationJob struct {
	trigger RunTrigger
	timeout time.Duration
	log     zerolog.Logger
}

// NewAggregationJob creates the scheduled run job
func NewAggregationJob(trigger RunTrigger, timeout time.Duration, log zerolog.Logger) *AggregationJob {
	return &AggregationJob{
		trigger: trigger,
		timeout: timeout,
		log:     log.With().Str("job", "aggregation_run").Logger(),
	}
}

// Name returns the job name
func (j *AggregationJob) Name() string { return "aggregation_run" }

// Run triggers one aggregation run
func (j *AggregationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.trigger.TriggerRun(ctx, "scheduled")
	if errors.Is(err, monitor.ErrRunInProgress) {
		j.log.Warn().Msg("Run already in progress, skipping scheduled trigger")
		return nil
	}
	return err
}

// PruneJob deletes decision history older than the retention window.
type PruneJob struct {
	pruner        DecisionPruner
	retentionDays int
	log           zerolog.Logger
}

// NewPruneJob creates the decision history pruning job
func NewPruneJob(pruner DecisionPruner, retentionDays int, log zerolog.Logger) *PruneJob {
	return &PruneJob{
		pruner:        pruner,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "decision_prune").Logger(),
	}
}

// Name returns the job name
func (j *PruneJob) Name() string { return "decision_prune" }

// Run prunes old decision rows. Retention of 0 or less keeps everything.
func (j *PruneJob) Run() error {
	if j.retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	removed, err := j.pruner.PruneBefore(cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned old decisions")
	}
	return nil
}

// DatabaseMaintainer exposes the periodic upkeep the decisions database
// needs. Satisfied by database.DB.
type DatabaseMaintainer interface {
	WALCheckpoint(mode string) error
	Vacuum() error
}

// MaintenanceJob truncates the WAL and vacuums the decisions database. Meant
// for a quiet weekly window, VACUUM rewrites the whole file.
type MaintenanceJob struct {
	db  DatabaseMaintainer
	log zerolog.Logger
}

// NewMaintenanceJob creates the database maintenance job
func NewMaintenanceJob(db DatabaseMaintainer, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:  db,
		log: log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "db_maintenance" }

// Run checkpoints the WAL, then reclaims free pages
func (j *MaintenanceJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}
	if err := j.db.Vacuum(); err != nil {
		return err
	}
	j.log.Info().Msg("Database maintenance completed")
	return nil
}

// RotateJob rotates archived run snapshots in object storage.
type RotateJob struct {
	rotator       SnapshotRotator
	retentionDays int
	minKeep       int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewRotateJob creates the archive rotation job
func NewRotateJob(rotator SnapshotRotator, retentionDays, minKeep int, timeout time.Duration, log zerolog.Logger) *RotateJob {
	return &RotateJob{
		rotator:       rotator,
		retentionDays: retentionDays,
		minKeep:       minKeep,
		timeout:       timeout,
		log:           log.With().Str("job", "archive_rotate").Logger(),
	}
}

// Name returns the job name
func (j *RotateJob) Name() string { return "archive_rotate" }

// Run deletes snapshots past the retention window
func (j *RotateJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.rotator.RotateOld(ctx, j.retentionDays, j.minKeep)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Info().Int("deleted", deleted).Msg("Rotated archived snapshots")
	}
	return nil
}
