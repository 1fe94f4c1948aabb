package store

// Schema holds audit runs and their flattened failure rows.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    page_url      TEXT NOT NULL,
    audit_id      TEXT NOT NULL,
    pass          INTEGER NOT NULL,
    skipped       INTEGER NOT NULL DEFAULT 0,
    score         REAL,
    display_value TEXT NOT NULL DEFAULT '',
    explanation   TEXT NOT NULL DEFAULT '',
    target_count  INTEGER NOT NULL DEFAULT 0,
    failing_count INTEGER NOT NULL DEFAULT 0,
    result        TEXT NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_page ON runs(page_url, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS run_rows (
    run_id                TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position              INTEGER NOT NULL,
    tap_target_selector   TEXT NOT NULL DEFAULT '',
    tap_target_label      TEXT NOT NULL DEFAULT '',
    size                  TEXT NOT NULL,
    overlapping_selector  TEXT NOT NULL DEFAULT '',
    overlapping_label     TEXT NOT NULL DEFAULT '',
    overlap_ratio         REAL NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_run_rows_selector ON run_rows(tap_target_selector);
`
