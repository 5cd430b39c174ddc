package store

import "database/sql"

// Timestamps are stored as Unix nanoseconds so range filters and the
// retention sweep compare integers rather than formatted strings.
var migrations = []Migration{
	{
		Version:     1,
		Description: "create hosts and samples",
		Up: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE hosts (
					id         INTEGER PRIMARY KEY AUTOINCREMENT,
					name       TEXT    NOT NULL UNIQUE,
					address    TEXT    NOT NULL,
					port       INTEGER NOT NULL DEFAULT 22,
					username   TEXT    NOT NULL,
					password   TEXT    NOT NULL DEFAULT '',
					created_at INTEGER NOT NULL
				)`,
				`CREATE TABLE samples (
					id              INTEGER PRIMARY KEY AUTOINCREMENT,
					host_id         INTEGER NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
					ts              INTEGER NOT NULL,
					load_1          REAL,
					load_5          REAL,
					load_15         REAL,
					used_memory_mb  REAL,
					total_memory_mb REAL
				)`,
				`CREATE INDEX idx_samples_host_ts ON samples(host_id, ts)`,
				`CREATE INDEX idx_samples_ts ON samples(ts)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}
