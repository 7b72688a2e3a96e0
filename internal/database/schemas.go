package database

// schemas maps database names to their embedded DDL. The decisions database
// is the append-only audit trail; runs holds per-run summaries.
var schemas = map[string]string{
	"decisions": decisionsSchema,
}

const decisionsSchema = `
CREATE TABLE IF NOT EXISTS decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    display_symbol TEXT NOT NULL DEFAULT '',
    asset_class TEXT NOT NULL DEFAULT '',
    direction TEXT NOT NULL,
    action TEXT NOT NULL,
    tier TEXT NOT NULL,
    unified_score REAL NOT NULL,
    alignment TEXT NOT NULL,
    coverage_tier TEXT NOT NULL,
    payload TEXT NOT NULL,
    decided_at TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol, decided_at);
CREATE INDEX IF NOT EXISTS idx_decisions_tier ON decisions(tier);

CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    completed_at TEXT NOT NULL,
    regime TEXT NOT NULL,
    asset_count INTEGER NOT NULL,
    market_bias TEXT NOT NULL,
    mean_score REAL NOT NULL,
    median_score REAL NOT NULL,
    summary TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
