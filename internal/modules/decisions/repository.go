// Package decisions persists the per-asset decisions and run summaries
// produced by the aggregation engine. The decisions table is an append-only
// audit trail: rows are written once per run and never updated.
package decisions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/database"
	"github.com/aristath/confluence/internal/domain"
)

// Repository handles decision database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// decisionsColumns avoids SELECT * so schema changes cannot silently break
// scanning. Order must match scanDecision.
const decisionsColumns = `run_id, symbol, display_symbol, asset_class, direction, action, tier, unified_score, alignment, coverage_tier, payload, decided_at`

// timeLayout is RFC3339 with fixed nine-digit nanoseconds. Timestamps are
// stored as text and compared lexicographically (ORDER BY, prune cutoff), so
// every value must have the same width; RFC3339Nano trims trailing zeros and
// would order whole seconds after sub-second times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// NewRepository creates a new decisions repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "decisions").Logger(),
	}
}

// SaveRun stores a complete run atomically: every decision plus the summary.
// A partially written run would corrupt the audit trail, so everything goes
// through one transaction.
func (r *Repository) SaveRun(decisions []domain.ActionDecision, summary domain.RunSummary) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO decisions
			(run_id, symbol, display_symbol, asset_class, direction, action, tier,
			 unified_score, alignment, coverage_tier, payload, decided_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare decision insert: %w", err)
		}
		defer stmt.Close()

		for i := range decisions {
			d := &decisions[i]
			payload, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("failed to marshal decision for %s: %w", d.Symbol, err)
			}
			_, err = stmt.Exec(
				summary.RunID,
				strings.ToUpper(strings.TrimSpace(d.Symbol)),
				d.DisplaySymbol,
				string(d.AssetClass),
				string(d.Direction),
				string(d.Action),
				string(d.Tier),
				d.UnifiedScore,
				string(d.Alignment),
				string(d.Coverage),
				string(payload),
				formatTime(d.DecidedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert decision for %s: %w", d.Symbol, err)
			}
		}

		summaryJSON, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal run summary: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO runs
			(run_id, started_at, completed_at, regime, asset_count, market_bias,
			 mean_score, median_score, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			summary.RunID,
			formatTime(summary.StartedAt),
			formatTime(summary.CompletedAt),
			string(summary.Regime),
			summary.AssetCount,
			string(summary.MarketBias),
			summary.MeanScore,
			summary.MedianScore,
			string(summaryJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run summary: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", summary.RunID).
		Int("decisions", len(decisions)).
		Msg("Run persisted")

	return nil
}

// GetRun retrieves one run summary by ID. Returns nil when the run is unknown.
func (r *Repository) GetRun(runID string) (*domain.RunSummary, error) {
	var payload string
	err := r.db.QueryRow("SELECT summary FROM runs WHERE run_id = ?", runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	var summary domain.RunSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s summary: %w", runID, err)
	}
	return &summary, nil
}

// LatestRun retrieves the most recently completed run summary, or nil when
// nothing has run yet.
func (r *Repository) LatestRun() (*domain.RunSummary, error) {
	var payload string
	err := r.db.QueryRow(
		"SELECT summary FROM runs ORDER BY started_at DESC LIMIT 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	var summary domain.RunSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest run summary: %w", err)
	}
	return &summary, nil
}

// ListRuns returns the most recent run summaries, newest first.
func (r *Repository) ListRuns(limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		"SELECT summary FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		var summary domain.RunSummary
		if err := json.Unmarshal([]byte(payload), &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// ListByRun returns every decision of one run in insertion order.
func (r *Repository) ListByRun(runID string) ([]domain.ActionDecision, error) {
	rows, err := r.db.Query(
		"SELECT "+decisionsColumns+" FROM decisions WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.ActionDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LatestForSymbol returns the most recent decision for a symbol, or nil when
// the symbol has never been decided.
func (r *Repository) LatestForSymbol(symbol string) (*domain.ActionDecision, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	rows, err := r.db.Query(
		"SELECT "+decisionsColumns+" FROM decisions WHERE symbol = ? ORDER BY decided_at DESC LIMIT 1",
		symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest decision for %s: %w", symbol, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	d, err := scanDecision(rows)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HistoryForSymbol returns past decisions for a symbol, newest first.
func (r *Repository) HistoryForSymbol(symbol string, limit int) ([]domain.ActionDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	rows, err := r.db.Query(
		"SELECT "+decisionsColumns+" FROM decisions WHERE symbol = ? ORDER BY decided_at DESC LIMIT ?",
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []domain.ActionDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PruneBefore deletes decisions and runs older than the cutoff. Returns the
// number of decision rows removed.
func (r *Repository) PruneBefore(cutoff time.Time) (int64, error) {
	ts := formatTime(cutoff)

	res, err := r.db.Exec("DELETE FROM decisions WHERE decided_at < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := r.db.Exec("DELETE FROM runs WHERE started_at < ?", ts); err != nil {
		return removed, fmt.Errorf("failed to prune runs: %w", err)
	}

	if removed > 0 {
		r.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned old decisions")
	}
	return removed, nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(s scanner) (domain.ActionDecision, error) {
	var (
		d       domain.ActionDecision
		runID   string
		payload string
		decided string
	)
	err := s.Scan(
		&runID,
		&d.Symbol,
		&d.DisplaySymbol,
		&d.AssetClass,
		&d.Direction,
		&d.Action,
		&d.Tier,
		&d.UnifiedScore,
		&d.Alignment,
		&d.Coverage,
		&payload,
		&decided,
	)
	if err != nil {
		return d, fmt.Errorf("failed to scan decision: %w", err)
	}

	// The payload is authoritative: it carries evidence, the decision path,
	// and the trade plan, which have no dedicated columns.
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return d, fmt.Errorf("failed to unmarshal decision payload: %w", err)
	}
	return d, nil
}
