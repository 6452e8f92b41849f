package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ratings a user can give a surfaced deposit.
const (
	RatingLoved      = 2
	RatingHelpful    = 1
	RatingNotHelpful = -1
)

// ValidRating reports whether r is one of the accepted ratings.
func ValidRating(r int) bool {
	return r == RatingLoved || r == RatingHelpful || r == RatingNotHelpful
}

// RainyDayLog records one round of a rainy-day session. DepositID is nil when
// nothing was eligible to surface.
type RainyDayLog struct {
	ID           string
	UserID       string
	Emotion      string
	DepositID    *string
	Rating       *int
	FeedbackNote *string
	CreatedAt    int64
}

// CreateRainyLog inserts a log row. A non-nil depositID must name one of the
// user's deposits.
func (db *DB) CreateRainyLog(ctx context.Context, userID, emotion string, depositID *string) (*RainyDayLog, error) {
	emotion, err := normalizeLogEmotion(userID, emotion)
	if err != nil {
		return nil, err
	}
	if depositID != nil {
		if _, err := db.GetDeposit(ctx, userID, *depositID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("depositId", "unknown deposit %q", *depositID)
			}
			return nil, err
		}
	}

	l := &RainyDayLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Emotion:   emotion,
		DepositID: depositID,
		CreatedAt: db.nowMillis(),
	}
	if err := insertRainyLog(ctx, db.DB, l); err != nil {
		return nil, err
	}
	return l, nil
}

// StartRound logs a rainy-day round for depositID and puts the deposit into
// cooldown in one transaction. Either both rows change or neither does.
func (db *DB) StartRound(ctx context.Context, userID, emotion, depositID string, cooldownDays int) (*RainyDayLog, *Deposit, error) {
	emotion, err := normalizeLogEmotion(userID, emotion)
	if err != nil {
		return nil, nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin start round: %w", err)
	}
	defer tx.Rollback()

	now := db.nowMillis()
	res, err := tx.ExecContext(ctx, `
		UPDATE deposits SET last_surfaced_at = ?, status = ?, status_changed_at = ?
		WHERE id = ? AND user_id = ?
	`, now, int(Cooldown(cooldownDays)), now, depositID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("mark surfaced: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, nil, ErrNotFound
	}

	l := &RainyDayLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		Emotion:   emotion,
		DepositID: &depositID,
		CreatedAt: now,
	}
	if err := insertRainyLog(ctx, tx, l); err != nil {
		return nil, nil, err
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+depositColumns+`
		FROM deposits WHERE id = ? AND user_id = ?
	`, depositID, userID)
	d, err := scanDeposit(row)
	if err != nil {
		return nil, nil, fmt.Errorf("get deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit start round: %w", err)
	}
	return l, d, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRainyLog(ctx context.Context, x execer, l *RainyDayLog) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO rainy_day_logs (id, user_id, emotion, deposit_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, l.UserID, l.Emotion, nullable(l.DepositID), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create rainy log: %w", err)
	}
	return nil
}

func normalizeLogEmotion(userID, emotion string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	emotion, err := normalizeEmotion(emotion)
	if err != nil {
		return "", err
	}
	if emotion == "" {
		return "", invalid("emotion", "required")
	}
	return emotion, nil
}

// GetRainyLog returns a log by id, or ErrNotFound.
func (db *DB) GetRainyLog(ctx context.Context, userID, id string) (*RainyDayLog, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, emotion, deposit_id, rating, feedback_note, created_at
		FROM rainy_day_logs WHERE id = ? AND user_id = ?
	`, id, userID)
	l, err := scanRainyLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rainy log: %w", err)
	}
	return l, nil
}

// PatchRainyLog sets the rating and/or feedback note. Nil leaves a field
// unchanged; repeated patches overwrite (last write wins).
func (db *DB) PatchRainyLog(ctx context.Context, userID, id string, rating *int, note *string) (*RainyDayLog, error) {
	if rating != nil && !ValidRating(*rating) {
		return nil, invalid("rating", "must be one of 2, 1, -1")
	}
	if note != nil {
		n, err := normalizeNote(*note)
		if err != nil {
			return nil, err
		}
		note = &n
	}

	res, err := db.ExecContext(ctx, `
		UPDATE rainy_day_logs
		SET rating = COALESCE(?, rating), feedback_note = COALESCE(?, feedback_note)
		WHERE id = ? AND user_id = ?
	`, nullable(rating), nullable(note), id, userID)
	if err != nil {
		return nil, fmt.Errorf("patch rainy log: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetRainyLog(ctx, userID, id)
}

// ListRainyLogs returns the user's most recent logs, newest first.
func (db *DB) ListRainyLogs(ctx context.Context, userID string, limit int) ([]RainyDayLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, emotion, deposit_id, rating, feedback_note, created_at
		FROM rainy_day_logs WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list rainy logs: %w", err)
	}
	defer rows.Close()

	var logs []RainyDayLog
	for rows.Next() {
		l, err := scanRainyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rainy log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// RainyStats summarizes rainy-day rounds since a point in time.
type RainyStats struct {
	Rounds   int
	Positive int
	Negative int
	Empty    int
}

// RainyStatsSince aggregates the user's logs created at or after since.
func (db *DB) RainyStatsSince(ctx context.Context, userID string, since int64) (RainyStats, error) {
	var s RainyStats
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN rating < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN deposit_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM rainy_day_logs WHERE user_id = ? AND created_at >= ?
	`, userID, since).Scan(&s.Rounds, &s.Positive, &s.Negative, &s.Empty)
	if err != nil {
		return s, fmt.Errorf("rainy stats: %w", err)
	}
	return s, nil
}

func scanRainyLog(row rowScanner) (*RainyDayLog, error) {
	var l RainyDayLog
	var depositID, note sql.NullString
	var rating sql.NullInt64
	if err := row.Scan(&l.ID, &l.UserID, &l.Emotion, &depositID, &rating, &note, &l.CreatedAt); err != nil {
		return nil, err
	}
	if depositID.Valid {
		l.DepositID = &depositID.String
	}
	if rating.Valid {
		r := int(rating.Int64)
		l.Rating = &r
	}
	if note.Valid {
		l.FeedbackNote = &note.String
	}
	return &l, nil
}
