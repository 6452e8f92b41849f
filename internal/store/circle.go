package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConnectionAccepted is the status of every stored connection row.
const ConnectionAccepted = "accepted"

// Invite is a single-use code a user hands out to join their circle.
type Invite struct {
	Code      string
	InviterID string
	CreatedAt int64
	ExpiresAt int64
	UsedBy    *string
	UsedAt    *int64
}

// Connection is one direction of a circle link. Accepted links always exist
// as a pair of rows, one per direction.
type Connection struct {
	UserID          string
	ConnectedUserID string
	Status          string
	CreatedAt       int64
	AcceptedAt      *int64
}

// generateInviteCode returns an 8-character hex code.
func generateInviteCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateInvite issues a new invite code valid for ttl.
func (db *DB) CreateInvite(ctx context.Context, inviterID string, ttl time.Duration) (*Invite, error) {
	if err := requireUser(inviterID); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, invalid("ttl", "must be positive")
	}

	now := db.nowMillis()
	inv := &Invite{
		InviterID: inviterID,
		CreatedAt: now,
		ExpiresAt: now + ttl.Milliseconds(),
	}

	var lastErr error
	for i := 0; i < 10; i++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO circle_invites (code, inviter_id, created_at, expires_at)
			VALUES (?, ?, ?, ?)
		`, code, inviterID, inv.CreatedAt, inv.ExpiresAt)
		if err == nil {
			inv.Code = code
			return inv, nil
		}
		// Collision: retry with new code
		lastErr = err
	}
	return nil, fmt.Errorf("create invite: no unique code after retries: %w", lastErr)
}

// AcceptInvite consumes an invite and links inviter and user in both
// directions. The invite update and both connection rows commit together.
func (db *DB) AcceptInvite(ctx context.Context, userID, code string) (*Connection, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("code", "required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin accept invite: %w", err)
	}
	defer tx.Rollback()

	var inviterID string
	var expiresAt int64
	var usedAt sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT inviter_id, expires_at, used_at FROM circle_invites WHERE code = ?
	`, code).Scan(&inviterID, &expiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}

	now := db.nowMillis()
	switch {
	case inviterID == userID:
		return nil, ErrSelfInvite
	case usedAt.Valid:
		return nil, ErrInviteUsed
	case now > expiresAt:
		return nil, ErrInviteExpired
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections
		WHERE (user_id = ? AND connected_user_id = ?) OR (user_id = ? AND connected_user_id = ?)
	`, inviterID, userID, userID, inviterID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyConnected
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE circle_invites SET used_by = ?, used_at = ? WHERE code = ?
	`, userID, now, code); err != nil {
		return nil, fmt.Errorf("consume invite: %w", err)
	}

	for _, pair := range [][2]string{{inviterID, userID}, {userID, inviterID}} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connections (user_id, connected_user_id, status, created_at, accepted_at)
			VALUES (?, ?, 'accepted', ?, ?)
		`, pair[0], pair[1], now, now); err != nil {
			return nil, fmt.Errorf("insert connection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept invite: %w", err)
	}

	return &Connection{
		UserID:          userID,
		ConnectedUserID: inviterID,
		Status:          ConnectionAccepted,
		CreatedAt:       now,
		AcceptedAt:      &now,
	}, nil
}

// ListConnections returns the user's outgoing connection rows, newest first.
func (db *DB) ListConnections(ctx context.Context, userID string) ([]Connection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, connected_user_id, status, created_at, accepted_at
		FROM connections WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var c Connection
		var acceptedAt sql.NullInt64
		if err := rows.Scan(&c.UserID, &c.ConnectedUserID, &c.Status, &c.CreatedAt, &acceptedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		if acceptedAt.Valid {
			c.AcceptedAt = &acceptedAt.Int64
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isConnected reports whether an accepted connection exists from -> to.
func isConnected(ctx context.Context, q queryer, from, to string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections
		WHERE user_id = ? AND connected_user_id = ? AND status = 'accepted'
	`, from, to).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check connection: %w", err)
	}
	return count > 0, nil
}

// RemoveConnection deletes both directions of a link in one transaction.
func (db *DB) RemoveConnection(ctx context.Context, userID, otherID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove connection: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM connections
		WHERE (user_id = ? AND connected_user_id = ?) OR (user_id = ? AND connected_user_id = ?)
	`, userID, otherID, otherID, userID)
	if err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
