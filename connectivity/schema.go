package connectivity

import "database/sql"

// Schema is the routes table read by Reload. strategy is one of "local",
// "http" or "noop"; config holds per-route JSON such as timeout_ms.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
    service_name TEXT PRIMARY KEY,
    strategy     TEXT NOT NULL CHECK(strategy IN ('local', 'http', 'noop')),
    endpoint     TEXT,
    config       TEXT DEFAULT '{}',
    updated_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
`

// Init creates the routes table.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
