package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Deposit is a saved positive moment owned by a single user.
type Deposit struct {
	ID              string
	UserID          string
	Content         string
	Emotion         string
	Tags            []string
	MediaURI        string
	MediaType       string
	Status          Status
	LastSurfacedAt  *int64
	StatusChangedAt int64
	CreatedAt       int64
}

const depositColumns = `id, user_id, content, emotion, tags, media_uri, media_type,
	status, last_surfaced_at, status_changed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateDeposit inserts a new deposit. Status always starts at StatusActive.
func (db *DB) CreateDeposit(ctx context.Context, userID string, in DepositInput) (*Deposit, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := db.nowMillis()
	d := &Deposit{
		ID:              uuid.NewString(),
		UserID:          userID,
		Content:         in.Content,
		Emotion:         in.Emotion,
		Tags:            in.Tags,
		MediaURI:        in.MediaURI,
		MediaType:       in.MediaType,
		Status:          StatusActive,
		StatusChangedAt: now,
		CreatedAt:       now,
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, content, emotion, tags, media_uri, media_type,
			status, status_changed_at, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), 0, ?, ?)
	`, d.ID, d.UserID, d.Content, d.Emotion, encodeTags(d.Tags), d.MediaURI, d.MediaType, now, now)
	if err != nil {
		return nil, fmt.Errorf("create deposit: %w", err)
	}
	return d, nil
}

// GetDeposit returns a deposit by id, or ErrNotFound.
func (db *DB) GetDeposit(ctx context.Context, userID, id string) (*Deposit, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+depositColumns+`
		FROM deposits WHERE id = ? AND user_id = ?
	`, id, userID)
	d, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deposit: %w", err)
	}
	return d, nil
}

// ListDeposits returns the user's deposits, newest first. Cooldown deposits
// are always listed; inactive ones only when includeInactive is set.
func (db *DB) ListDeposits(ctx context.Context, userID string, includeInactive bool) ([]Deposit, error) {
	q := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = ?`
	if !includeInactive {
		q += ` AND status != -1`
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()
	return scanDeposits(rows)
}

// EligibleDeposits returns active deposits whose id is not in exclude.
func (db *DB) EligibleDeposits(ctx context.Context, userID string, exclude []string) ([]Deposit, error) {
	q := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = ? AND status = 0`
	args := []any{userID}
	if len(exclude) > 0 {
		q += ` AND id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("eligible deposits: %w", err)
	}
	defer rows.Close()
	return scanDeposits(rows)
}

// UpdateDeposit applies a patch to content, emotion and tags. No other field
// is reachable through this path.
func (db *DB) UpdateDeposit(ctx context.Context, userID, id string, patch DepositPatch) (*Deposit, error) {
	patch, err := patch.normalize()
	if err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Emotion != nil {
		sets = append(sets, "emotion = NULLIF(?, '')")
		args = append(args, *patch.Emotion)
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, encodeTags(*patch.Tags))
	}
	if len(sets) == 0 {
		return db.GetDeposit(ctx, userID, id)
	}

	args = append(args, id, userID)
	res, err := db.ExecContext(ctx,
		`UPDATE deposits SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update deposit: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetDeposit(ctx, userID, id)
}

// SetDepositStatus sets the raw status of a deposit after validating it.
func (db *DB) SetDepositStatus(ctx context.Context, userID, id string, n int) (*Deposit, error) {
	status, err := ParseStatus(n)
	if err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE deposits SET status = ?, status_changed_at = ?
		WHERE id = ? AND user_id = ?
	`, int(status), db.nowMillis(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("set deposit status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetDeposit(ctx, userID, id)
}

// SoftDeleteDeposit marks a deposit inactive. The row is never removed.
func (db *DB) SoftDeleteDeposit(ctx context.Context, userID, id string) error {
	_, err := db.SetDepositStatus(ctx, userID, id, int(StatusInactive))
	return err
}

// MarkSurfaced records that a deposit was shown and puts it into cooldown.
// Both columns change in one statement so the row is never half-updated.
func (db *DB) MarkSurfaced(ctx context.Context, userID, id string, cooldownDays int) (*Deposit, error) {
	now := db.nowMillis()
	res, err := db.ExecContext(ctx, `
		UPDATE deposits SET last_surfaced_at = ?, status = ?, status_changed_at = ?
		WHERE id = ? AND user_id = ?
	`, now, int(Cooldown(cooldownDays)), now, id, userID)
	if err != nil {
		return nil, fmt.Errorf("mark surfaced: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetDeposit(ctx, userID, id)
}

// StatusCounts tallies rows by lifecycle variant.
type StatusCounts struct {
	Active   int
	Cooldown int
	Inactive int
}

// DepositStats counts the user's deposits by status kind.
func (db *DB) DepositStats(ctx context.Context, userID string) (StatusCounts, error) {
	var c StatusCounts
	err := db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = -1 THEN 1 ELSE 0 END), 0)
		FROM deposits WHERE user_id = ?
	`, userID).Scan(&c.Active, &c.Cooldown, &c.Inactive)
	if err != nil {
		return c, fmt.Errorf("deposit stats: %w", err)
	}
	return c, nil
}

func scanDeposit(row rowScanner) (*Deposit, error) {
	var d Deposit
	var emotion, mediaURI, mediaType sql.NullString
	var tags string
	var status int
	var lastSurfaced sql.NullInt64
	if err := row.Scan(&d.ID, &d.UserID, &d.Content, &emotion, &tags, &mediaURI, &mediaType,
		&status, &lastSurfaced, &d.StatusChangedAt, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Emotion = emotion.String
	d.MediaURI = mediaURI.String
	d.MediaType = mediaType.String
	d.Tags = decodeTags(tags)
	d.Status = Status(status)
	if lastSurfaced.Valid {
		d.LastSurfacedAt = &lastSurfaced.Int64
	}
	return &d, nil
}

func scanDeposits(rows *sql.Rows) ([]Deposit, error) {
	var deposits []Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, *d)
	}
	return deposits, rows.Err()
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeTags(s string) []string {
	tags := []string{}
	if s == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return []string{}
	}
	return tags
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
