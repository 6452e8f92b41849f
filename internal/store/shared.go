package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// SharedDeposit is a deposit sent to a connection. Status semantics match
// Deposit: only the receiver ever surfaces or uses it.
type SharedDeposit struct {
	Deposit
	SenderID   string
	ReceiverID string
}

const sharedColumns = `id, sender_id, receiver_id, content, emotion, tags, media_uri, media_type,
	status, last_surfaced_at, status_changed_at, created_at`

// CreateSharedDeposit stores a deposit from sender to receiver. The connection
// check and the insert share a transaction.
func (db *DB) CreateSharedDeposit(ctx context.Context, senderID, receiverID string, in DepositInput) (*SharedDeposit, error) {
	if err := requireUser(senderID); err != nil {
		return nil, err
	}
	if receiverID == "" {
		return nil, invalid("receiverId", "required")
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin share: %w", err)
	}
	defer tx.Rollback()

	ok, err := isConnected(ctx, tx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	now := db.nowMillis()
	s := &SharedDeposit{
		Deposit: Deposit{
			ID:              uuid.NewString(),
			UserID:          receiverID,
			Content:         in.Content,
			Emotion:         in.Emotion,
			Tags:            in.Tags,
			MediaURI:        in.MediaURI,
			MediaType:       in.MediaType,
			Status:          StatusActive,
			StatusChangedAt: now,
			CreatedAt:       now,
		},
		SenderID:   senderID,
		ReceiverID: receiverID,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shared_deposits (id, sender_id, receiver_id, content, emotion, tags,
			media_uri, media_type, status, status_changed_at, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), 0, ?, ?)
	`, s.ID, senderID, receiverID, s.Content, s.Emotion, encodeTags(s.Tags),
		s.MediaURI, s.MediaType, now, now); err != nil {
		return nil, fmt.Errorf("create shared deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit share: %w", err)
	}
	return s, nil
}

// GetReceivedShared returns a shared deposit addressed to receiverID.
func (db *DB) GetReceivedShared(ctx context.Context, receiverID, id string) (*SharedDeposit, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+sharedColumns+` FROM shared_deposits WHERE id = ? AND receiver_id = ?
	`, id, receiverID)
	s, err := scanShared(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shared deposit: %w", err)
	}
	return s, nil
}

// ListReceived returns deposits shared with the user, newest first.
func (db *DB) ListReceived(ctx context.Context, receiverID string, includeInactive bool) ([]SharedDeposit, error) {
	q := `SELECT ` + sharedColumns + ` FROM shared_deposits WHERE receiver_id = ?`
	if !includeInactive {
		q += ` AND status != -1`
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, q, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list received: %w", err)
	}
	defer rows.Close()
	return scanShareds(rows)
}

// ListSent returns every deposit the user has shared, newest first.
func (db *DB) ListSent(ctx context.Context, senderID string) ([]SharedDeposit, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+sharedColumns+` FROM shared_deposits WHERE sender_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, senderID)
	if err != nil {
		return nil, fmt.Errorf("list sent: %w", err)
	}
	defer rows.Close()
	return scanShareds(rows)
}

// EligibleShared returns active deposits shared with the receiver, minus exclude.
func (db *DB) EligibleShared(ctx context.Context, receiverID string, exclude []string) ([]SharedDeposit, error) {
	q := `SELECT ` + sharedColumns + ` FROM shared_deposits WHERE receiver_id = ? AND status = 0`
	args := []any{receiverID}
	if len(exclude) > 0 {
		q += ` AND id NOT IN (` + placeholders(len(exclude)) + `)`
		for _, id := range exclude {
			args = append(args, id)
		}
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("eligible shared: %w", err)
	}
	defer rows.Close()
	return scanShareds(rows)
}

// UseShared puts a received deposit into cooldown and appends a usage row.
// helpful is tri-state: nil means the receiver gave no answer.
func (db *DB) UseShared(ctx context.Context, receiverID, id string, helpful *bool, cooldownDays int) (*SharedDeposit, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin use shared: %w", err)
	}
	defer tx.Rollback()

	now := db.nowMillis()
	res, err := tx.ExecContext(ctx, `
		UPDATE shared_deposits SET last_surfaced_at = ?, status = ?, status_changed_at = ?
		WHERE id = ? AND receiver_id = ?
	`, now, int(Cooldown(cooldownDays)), now, id, receiverID)
	if err != nil {
		return nil, fmt.Errorf("use shared: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}

	var flag *int
	if helpful != nil {
		v := 0
		if *helpful {
			v = 1
		}
		flag = &v
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shared_deposit_usage (id, shared_deposit_id, used_at, helpful)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), id, now, nullable(flag)); err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+sharedColumns+` FROM shared_deposits WHERE id = ?`, id)
	s, err := scanShared(row)
	if err != nil {
		return nil, fmt.Errorf("get shared deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit use shared: %w", err)
	}
	return s, nil
}

// SetSharedStatus sets the raw status of a received deposit.
func (db *DB) SetSharedStatus(ctx context.Context, receiverID, id string, n int) (*SharedDeposit, error) {
	status, err := ParseStatus(n)
	if err != nil {
		return nil, err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE shared_deposits SET status = ?, status_changed_at = ?
		WHERE id = ? AND receiver_id = ?
	`, int(status), db.nowMillis(), id, receiverID)
	if err != nil {
		return nil, fmt.Errorf("set shared status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetReceivedShared(ctx, receiverID, id)
}

// UsageCounts is the only view of the usage ledger a sender gets.
type UsageCounts struct {
	Total   int
	Helpful int
}

// CountUsage aggregates usage of everything senderID has shared, restricted
// to events at or after since.
func (db *DB) CountUsage(ctx context.Context, senderID string, since int64) (UsageCounts, error) {
	var c UsageCounts
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(u.id),
			COALESCE(SUM(CASE WHEN u.helpful = 1 THEN 1 ELSE 0 END), 0)
		FROM shared_deposit_usage u
		JOIN shared_deposits s ON s.id = u.shared_deposit_id
		WHERE s.sender_id = ? AND u.used_at >= ?
	`, senderID, since).Scan(&c.Total, &c.Helpful)
	if err != nil {
		return c, fmt.Errorf("count usage: %w", err)
	}
	return c, nil
}

func scanShared(row rowScanner) (*SharedDeposit, error) {
	var s SharedDeposit
	var emotion, mediaURI, mediaType sql.NullString
	var tags string
	var status int
	var lastSurfaced sql.NullInt64
	if err := row.Scan(&s.ID, &s.SenderID, &s.ReceiverID, &s.Content, &emotion, &tags,
		&mediaURI, &mediaType, &status, &lastSurfaced, &s.StatusChangedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.UserID = s.ReceiverID
	s.Emotion = emotion.String
	s.MediaURI = mediaURI.String
	s.MediaType = mediaType.String
	s.Tags = decodeTags(tags)
	s.Status = Status(status)
	if lastSurfaced.Valid {
		s.LastSurfacedAt = &lastSurfaced.Int64
	}
	return &s, nil
}

func scanShareds(rows *sql.Rows) ([]SharedDeposit, error) {
	var out []SharedDeposit
	for rows.Next() {
		s, err := scanShared(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shared deposit: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
