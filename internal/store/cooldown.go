package store

import (
	"context"
	"fmt"
	"time"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// TickDepositCooldowns counts down cooldown deposits by the whole days that
// have elapsed since their status last changed. Returns rows updated.
func (db *DB) TickDepositCooldowns(ctx context.Context) (int, error) {
	return db.tickCooldowns(ctx, "deposits")
}

// TickSharedCooldowns is TickDepositCooldowns for shared deposits.
func (db *DB) TickSharedCooldowns(ctx context.Context) (int, error) {
	return db.tickCooldowns(ctx, "shared_deposits")
}

// tickCooldowns is computed from status_changed_at, so running it repeatedly
// (startup plus a ticker) never double-counts a day. Each update is guarded on
// the values read; a concurrent MarkSurfaced or SetStatus simply wins.
func (db *DB) tickCooldowns(ctx context.Context, table string) (int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, status, status_changed_at FROM `+table+` WHERE status > 0`)
	if err != nil {
		return 0, fmt.Errorf("query cooldowns: %w", err)
	}

	type target struct {
		id        string
		status    int
		changedAt int64
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.id, &t.status, &t.changedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan cooldown: %w", err)
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	now := db.nowMillis()
	updated := 0
	for _, t := range targets {
		days := (now - t.changedAt) / dayMillis
		if days <= 0 {
			continue
		}

		next := int64(t.status) - days
		if next < 0 {
			next = 0
		}
		changedAt := t.changedAt + days*dayMillis

		res, err := db.ExecContext(ctx, `
			UPDATE `+table+` SET status = ?, status_changed_at = ?
			WHERE id = ? AND status = ? AND status_changed_at = ?
		`, next, changedAt, t.id, t.status, t.changedAt)
		if err != nil {
			return updated, fmt.Errorf("tick cooldown: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			updated++
		}
	}
	return updated, nil
}
