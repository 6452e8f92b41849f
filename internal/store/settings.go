package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Summary cadence bounds, in weeks.
const (
	DefaultSummaryWeeks = 2
	MinSummaryWeeks     = 1
	MaxSummaryWeeks     = 13
)

const weekMillis = 7 * dayMillis

// Settings holds per-user preferences. Users who never saved settings get
// defaults.
type Settings struct {
	UserID                string
	SummaryFrequencyWeeks int
	LastSummaryAt         *int64
	UpdatedAt             int64
}

// GetSettings returns the user's settings, or defaults if none are stored.
func (db *DB) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	s := Settings{UserID: userID}
	var last sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT summary_frequency_weeks, last_summary_at, updated_at
		FROM user_settings WHERE user_id = ?
	`, userID).Scan(&s.SummaryFrequencyWeeks, &last, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.SummaryFrequencyWeeks = DefaultSummaryWeeks
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if last.Valid {
		s.LastSummaryAt = &last.Int64
	}
	return &s, nil
}

// UpdateSettings stores the summary cadence for the user.
func (db *DB) UpdateSettings(ctx context.Context, userID string, weeks int) (*Settings, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if weeks < MinSummaryWeeks || weeks > MaxSummaryWeeks {
		return nil, invalid("summaryFrequencyWeeks", "must be between %d and %d", MinSummaryWeeks, MaxSummaryWeeks)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, summary_frequency_weeks, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			summary_frequency_weeks = excluded.summary_frequency_weeks,
			updated_at = excluded.updated_at
	`, userID, weeks, db.nowMillis())
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return db.GetSettings(ctx, userID)
}

// DueSummary names a sender whose summary window has closed.
type DueSummary struct {
	UserID string
	Weeks  int
}

// DueSummaries returns senders whose last delivery (or first share, if none
// was ever delivered) is at least their cadence in the past.
func (db *DB) DueSummaries(ctx context.Context) ([]DueSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.sender_id,
			COALESCE(us.summary_frequency_weeks, ?),
			COALESCE(us.last_summary_at, MIN(s.created_at))
		FROM shared_deposits s
		LEFT JOIN user_settings us ON us.user_id = s.sender_id
		GROUP BY s.sender_id
		ORDER BY s.sender_id
	`, DefaultSummaryWeeks)
	if err != nil {
		return nil, fmt.Errorf("due summaries: %w", err)
	}
	defer rows.Close()

	now := db.nowMillis()
	var due []DueSummary
	for rows.Next() {
		var d DueSummary
		var ref int64
		if err := rows.Scan(&d.UserID, &d.Weeks, &ref); err != nil {
			return nil, fmt.Errorf("scan due summary: %w", err)
		}
		if now-ref >= int64(d.Weeks)*weekMillis {
			due = append(due, d)
		}
	}
	return due, rows.Err()
}

// SummaryDelivery is a stored, already-aggregated summary for a sender.
type SummaryDelivery struct {
	ID          string
	UserID      string
	TotalUses   int
	HelpfulUses int
	Weeks       int
	CreatedAt   int64
}

// RecordSummaryDelivery stores a delivered summary and advances the user's
// last_summary_at in one transaction.
func (db *DB) RecordSummaryDelivery(ctx context.Context, userID string, counts UsageCounts, weeks int) (*SummaryDelivery, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin summary delivery: %w", err)
	}
	defer tx.Rollback()

	now := db.nowMillis()
	d := &SummaryDelivery{
		ID:          uuid.NewString(),
		UserID:      userID,
		TotalUses:   counts.Total,
		HelpfulUses: counts.Helpful,
		Weeks:       weeks,
		CreatedAt:   now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO summary_deliveries (id, user_id, total_uses, helpful_uses, weeks, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.UserID, d.TotalUses, d.HelpfulUses, d.Weeks, d.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert summary delivery: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, summary_frequency_weeks, last_summary_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_summary_at = excluded.last_summary_at
	`, userID, DefaultSummaryWeeks, now, now); err != nil {
		return nil, fmt.Errorf("advance last summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit summary delivery: %w", err)
	}
	return d, nil
}

// ListSummaryDeliveries returns the user's delivered summaries, newest first.
func (db *DB) ListSummaryDeliveries(ctx context.Context, userID string, limit int) ([]SummaryDelivery, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, total_uses, helpful_uses, weeks, created_at
		FROM summary_deliveries WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list summary deliveries: %w", err)
	}
	defer rows.Close()

	var out []SummaryDelivery
	for rows.Next() {
		var d SummaryDelivery
		if err := rows.Scan(&d.ID, &d.UserID, &d.TotalUses, &d.HelpfulUses, &d.Weeks, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
