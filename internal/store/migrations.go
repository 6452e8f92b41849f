package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "deposits: saved moments with status lifecycle",
		SQL: `
CREATE TABLE deposits (
    id                TEXT PRIMARY KEY,
    user_id           TEXT NOT NULL,
    content           TEXT NOT NULL,
    emotion           TEXT,
    tags              TEXT NOT NULL DEFAULT '[]',
    media_uri         TEXT,
    media_type        TEXT CHECK (media_type IS NULL OR media_type IN ('photo', 'video', 'audio')),

    -- 0 active, >0 cooldown days remaining, -1 inactive
    status            INTEGER NOT NULL DEFAULT 0 CHECK (status >= -1),
    last_surfaced_at  INTEGER,
    status_changed_at INTEGER NOT NULL,
    created_at        INTEGER NOT NULL
);

CREATE INDEX idx_deposits_user_status  ON deposits(user_id, status);
CREATE INDEX idx_deposits_user_created ON deposits(user_id, created_at DESC);
`,
	},
	{
		Version:     2,
		Description: "rainy_day_logs: one row per surfaced round",
		SQL: `
CREATE TABLE rainy_day_logs (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    emotion       TEXT NOT NULL,
    deposit_id    TEXT,
    rating        INTEGER CHECK (rating IS NULL OR rating IN (2, 1, -1)),
    feedback_note TEXT,
    created_at    INTEGER NOT NULL,

    FOREIGN KEY (deposit_id) REFERENCES deposits(id)
);

CREATE INDEX idx_rainy_logs_user_created ON rainy_day_logs(user_id, created_at DESC);
`,
	},
	{
		Version:     3,
		Description: "circle: invites and bi-directional connections",
		SQL: `
CREATE TABLE circle_invites (
    code       TEXT PRIMARY KEY,
    inviter_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    used_by    TEXT,
    used_at    INTEGER
);

CREATE TABLE connections (
    user_id           TEXT NOT NULL,
    connected_user_id TEXT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted')),
    created_at        INTEGER NOT NULL,
    accepted_at       INTEGER,

    PRIMARY KEY (user_id, connected_user_id),
    CHECK (user_id != connected_user_id)
);

CREATE INDEX idx_invites_inviter ON circle_invites(inviter_id);
`,
	},
	{
		Version:     4,
		Description: "shared_deposits and the append-only usage ledger",
		SQL: `
CREATE TABLE shared_deposits (
    id                TEXT PRIMARY KEY,
    sender_id         TEXT NOT NULL,
    receiver_id       TEXT NOT NULL,
    content           TEXT NOT NULL,
    emotion           TEXT,
    tags              TEXT NOT NULL DEFAULT '[]',
    media_uri         TEXT,
    media_type        TEXT CHECK (media_type IS NULL OR media_type IN ('photo', 'video', 'audio')),
    status            INTEGER NOT NULL DEFAULT 0 CHECK (status >= -1),
    last_surfaced_at  INTEGER,
    status_changed_at INTEGER NOT NULL,
    created_at        INTEGER NOT NULL
);

CREATE TABLE shared_deposit_usage (
    id                TEXT PRIMARY KEY,
    shared_deposit_id TEXT NOT NULL,
    used_at           INTEGER NOT NULL,
    helpful           INTEGER CHECK (helpful IS NULL OR helpful IN (0, 1)),

    FOREIGN KEY (shared_deposit_id) REFERENCES shared_deposits(id)
);

CREATE INDEX idx_shared_receiver_status ON shared_deposits(receiver_id, status);
CREATE INDEX idx_shared_sender          ON shared_deposits(sender_id);
CREATE INDEX idx_usage_shared_used      ON shared_deposit_usage(shared_deposit_id, used_at);
`,
	},
	{
		Version:     5,
		Description: "user_settings and summary_deliveries",
		SQL: `
CREATE TABLE user_settings (
    user_id                 TEXT PRIMARY KEY,
    summary_frequency_weeks INTEGER NOT NULL DEFAULT 2 CHECK (summary_frequency_weeks BETWEEN 1 AND 13),
    last_summary_at         INTEGER,
    updated_at              INTEGER NOT NULL
);

CREATE TABLE summary_deliveries (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    total_uses   INTEGER NOT NULL,
    helpful_uses INTEGER NOT NULL,
    weeks        INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_deliveries_user_created ON summary_deliveries(user_id, created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
