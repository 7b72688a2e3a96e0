package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/confluence/internal/domain"
)

// RunSnapshot is the archived form of one run: the summary plus every
// decision, msgpack-encoded.
type RunSnapshot struct {
	FormatVersion int                     `msgpack:"format_version"`
	ArchivedAt    time.Time               `msgpack:"archived_at"`
	Summary       domain.RunSummary       `msgpack:"summary"`
	Decisions     []domain.ActionDecision `msgpack:"decisions"`
}

// snapshotFormatVersion is bumped whenever the snapshot layout changes.
const snapshotFormatVersion = 1

// SnapshotInfo describes one archived run
type SnapshotInfo struct {
	Key       string    `json:"key"`
	RunID     string    `json:"run_id"`
	SizeBytes int64     `json:"size_bytes"`
	Timestamp time.Time `json:"timestamp"`
}

// Service archives completed runs to object storage
type Service struct {
	store  ObjectStore
	prefix string
	log    zerolog.Logger
}

// NewService creates a new archive service
func NewService(store ObjectStore, prefix string, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		log:    log.With().Str("service", "archive").Logger(),
	}
}

// ArchiveRun serializes and uploads one run. Returns the object key and
// payload size.
func (s *Service) ArchiveRun(
	ctx context.Context,
	summary domain.RunSummary,
	decisions []domain.ActionDecision,
) (string, int, error) {
	payload, err := EncodeSnapshot(RunSnapshot{
		FormatVersion: snapshotFormatVersion,
		ArchivedAt:    time.Now().UTC(),
		Summary:       summary,
		Decisions:     decisions,
	})
	if err != nil {
		return "", 0, err
	}

	key := s.keyFor(summary)
	if err := s.store.Upload(ctx, key, payload); err != nil {
		return "", 0, err
	}

	s.log.Info().
		Str("run_id", summary.RunID).
		Str("key", key).
		Int("size_bytes", len(payload)).
		Msg("Run snapshot archived")

	return key, len(payload), nil
}

// ListSnapshots lists archived runs, newest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+"/")
	if err != nil {
		return nil, err
	}

	snapshots := make([]SnapshotInfo, 0, len(objects))
	for _, obj := range objects {
		ts, runID, ok := s.parseKey(obj.Key)
		if !ok {
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{
			Key:       obj.Key,
			RunID:     runID,
			SizeBytes: obj.SizeBytes,
			Timestamp: ts,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.After(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// RotateOld deletes snapshots older than the retention period, always keeping
// the newest minKeep regardless of age. retentionDays of 0 keeps everything.
func (s *Service) RotateOld(ctx context.Context, retentionDays, minKeep int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	snapshots, err := s.ListSnapshots(ctx)
	if err != nil {
		return 0, err
	}
	if len(snapshots) <= minKeep {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, snap := range snapshots {
		if i < minKeep {
			continue
		}
		if !snap.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, snap.Key); err != nil {
			s.log.Error().Err(err).Str("key", snap.Key).Msg("Failed to delete old snapshot")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Snapshot rotation completed")
	}
	return deleted, nil
}

// keyFor builds the object key: <prefix>/<start-time>-<run-id>.msgpack
func (s *Service) keyFor(summary domain.RunSummary) string {
	return fmt.Sprintf("%s/%s-%s.msgpack",
		s.prefix,
		summary.StartedAt.UTC().Format("2006-01-02-150405"),
		summary.RunID,
	)
}

// parseKey extracts the timestamp and run ID from an object key.
func (s *Service) parseKey(key string) (time.Time, string, bool) {
	name := strings.TrimPrefix(key, s.prefix+"/")
	name = strings.TrimSuffix(name, ".msgpack")
	if len(name) < len("2006-01-02-150405")+1 {
		return time.Time{}, "", false
	}

	tsPart := name[:len("2006-01-02-150405")]
	ts, err := time.Parse("2006-01-02-150405", tsPart)
	if err != nil {
		return time.Time{}, "", false
	}

	runID := strings.TrimPrefix(name[len(tsPart):], "-")
	if runID == "" {
		return time.Time{}, "", false
	}
	return ts, runID, true
}

// EncodeSnapshot serializes a snapshot with msgpack.
func EncodeSnapshot(snapshot RunSnapshot) ([]byte, error) {
	payload, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run snapshot: %w", err)
	}
	return payload, nil
}

// DecodeSnapshot deserializes an archived snapshot.
func DecodeSnapshot(payload []byte) (*RunSnapshot, error) {
	var snapshot RunSnapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot: %w", err)
	}
	return &snapshot, nil
}
