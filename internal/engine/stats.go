package engine

import (
	"context"
	"time"

	"github.com/lazypower/reserve/internal/store"
)

const statsWindow = 30 * 24 * time.Hour

// Stats is an overview of a user's reserve.
type Stats struct {
	Deposits     store.StatusCounts
	Received     int
	RainyDays    store.RainyStats
	WindowDays   int
	NextEligible *int
}

// Stats counts the user's deposits by kind and summarizes recent rainy-day
// rounds. NextEligible is the shortest cooldown remaining when nothing is
// currently active.
func (e *Engine) Stats(ctx context.Context, userID string) (*Stats, error) {
	counts, err := e.DB.DepositStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	since := e.now().Add(-statsWindow).UnixMilli()
	rainy, err := e.DB.RainyStatsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	received, err := e.DB.EligibleShared(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		Deposits:   counts,
		Received:   len(received),
		RainyDays:  rainy,
		WindowDays: int(statsWindow / (24 * time.Hour)),
	}

	if counts.Active == 0 && counts.Cooldown > 0 {
		deposits, err := e.DB.ListDeposits(ctx, userID, false)
		if err != nil {
			return nil, err
		}
		for _, d := range deposits {
			if d.Status.Kind() != store.KindCooldown {
				continue
			}
			days := d.Status.DaysRemaining()
			if s.NextEligible == nil || days < *s.NextEligible {
				s.NextEligible = &days
			}
		}
	}
	return s, nil
}
