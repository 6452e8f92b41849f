package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/reserve/internal/store"
)

// Summary is the aggregated, anonymous view a sender gets of how their
// shared deposits were used.
type Summary struct {
	TotalUses   int `json:"totalUses"`
	HelpfulUses int `json:"helpfulUses"`
	Weeks       int `json:"weeks"`
}

// MaxWeeksBack bounds how far back a sender summary may look (ten years).
const MaxWeeksBack = 520

func summaryKey(userID string, weeks int) string {
	return fmt.Sprintf("summary:%s:%d", userID, weeks)
}

func weeksAgo(now time.Time, weeks int) int64 {
	return now.AddDate(0, 0, -7*weeks).UnixMilli()
}

// CreateInvite issues an invite code for userID.
func (e *Engine) CreateInvite(ctx context.Context, userID string) (*store.Invite, error) {
	return e.DB.CreateInvite(ctx, userID, e.cfg.InviteTTL)
}

// AcceptInvite joins userID to the inviter's circle.
func (e *Engine) AcceptInvite(ctx context.Context, userID, code string) (*store.Connection, error) {
	c, err := e.DB.AcceptInvite(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	e.logger.Info("circle connection accepted", "user", userID, "inviter", c.ConnectedUserID)
	return c, nil
}

// RemoveConnection deletes both directions of a circle link.
func (e *Engine) RemoveConnection(ctx context.Context, userID, otherID string) error {
	return e.DB.RemoveConnection(ctx, userID, otherID)
}

// Share sends a deposit to a connection.
func (e *Engine) Share(ctx context.Context, senderID, receiverID string, in store.DepositInput) (*store.SharedDeposit, error) {
	return e.DB.CreateSharedDeposit(ctx, senderID, receiverID, in)
}

// SurfaceForReceiver picks uniformly among active deposits shared with
// userID, minus exclude. Returns nil, nil when none are eligible.
func (e *Engine) SurfaceForReceiver(ctx context.Context, userID string, exclude []string) (*store.SharedDeposit, error) {
	candidates, err := e.DB.EligibleShared(ctx, userID, exclude)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.Metrics.Surfaces.WithLabelValues("shared", "empty").Inc()
		return nil, nil
	}
	e.Metrics.Surfaces.WithLabelValues("shared", "hit").Inc()
	s := candidates[e.pick(len(candidates))]
	return &s, nil
}

// UseShared records that the receiver used a shared deposit. The sender is
// not notified; the event only reaches them through SenderSummary.
func (e *Engine) UseShared(ctx context.Context, userID, id string, helpful *bool) (*store.SharedDeposit, error) {
	s, err := e.DB.UseShared(ctx, userID, id, helpful, e.cfg.CooldownDays)
	if err != nil {
		return nil, err
	}
	label := "unanswered"
	if helpful != nil {
		label = fmt.Sprint(*helpful)
	}
	e.Metrics.SharedUses.WithLabelValues(label).Inc()
	return s, nil
}

// SenderSummary counts uses of everything userID has shared over the last
// weeksBack weeks. Zero or negative weeksBack is a validation error; a sender
// with no shares gets zero counts. Results are cached for SummaryCacheTTL, so
// a fresh use may not be visible until the entry expires.
func (e *Engine) SenderSummary(ctx context.Context, userID string, weeksBack int) (*Summary, error) {
	if weeksBack < 1 || weeksBack > MaxWeeksBack {
		return nil, &store.ValidationError{Field: "weeksBack", Message: fmt.Sprintf("must be between 1 and %d", MaxWeeksBack)}
	}

	key := summaryKey(userID, weeksBack)
	var cached Summary
	if ok, err := e.Cache.GetJSON(ctx, key, &cached); err != nil {
		e.logger.Warn("summary cache read failed", "error", err)
	} else if ok {
		return &cached, nil
	}

	since := weeksAgo(e.now(), weeksBack)
	counts, err := e.DB.CountUsage(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	s := &Summary{TotalUses: counts.Total, HelpfulUses: counts.Helpful, Weeks: weeksBack}

	if e.cfg.SummaryCacheTTL > 0 {
		if err := e.Cache.SetJSON(ctx, key, s, e.cfg.SummaryCacheTTL); err != nil {
			e.logger.Warn("summary cache write failed", "error", err)
		}
	}
	return s, nil
}

// UpdateSettings stores the user's summary cadence.
func (e *Engine) UpdateSettings(ctx context.Context, userID string, weeks int) (*store.Settings, error) {
	return e.DB.UpdateSettings(ctx, userID, weeks)
}
