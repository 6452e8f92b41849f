package engine

import (
	"context"

	"github.com/lazypower/reserve/internal/store"
)

// RunDigest delivers a summary to every sender whose cadence has elapsed.
// Each delivery covers the sender's own frequency in weeks and bypasses the
// summary cache. Returns the number delivered.
func (e *Engine) RunDigest(ctx context.Context) (int, error) {
	due, err := e.DB.DueSummaries(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, d := range due {
		counts, err := e.DB.CountUsage(ctx, d.UserID, weeksAgo(e.now(), d.Weeks))
		if err != nil {
			return delivered, err
		}
		if _, err := e.DB.RecordSummaryDelivery(ctx, d.UserID, counts, d.Weeks); err != nil {
			return delivered, err
		}
		// The live summary for the same window must not lag the delivered one.
		if err := e.Cache.Delete(ctx, summaryKey(d.UserID, d.Weeks)); err != nil {
			e.logger.Warn("summary cache invalidate failed", "user", d.UserID, "error", err)
		}
		delivered++
	}
	return delivered, nil
}

// ListDigests returns summaries already delivered to userID, newest first.
func (e *Engine) ListDigests(ctx context.Context, userID string, limit int) ([]store.SummaryDelivery, error) {
	return e.DB.ListSummaryDeliveries(ctx, userID, limit)
}

// StartDigestTimer runs RunDigest on startup and then every DigestTick.
func (e *Engine) StartDigestTimer() {
	e.every("digest", e.cfg.DigestTick, func() (int, error) {
		return e.RunDigest(context.Background())
	})
}
