package engine

import (
	"context"

	"github.com/lazypower/reserve/internal/store"
)

// CreateDeposit stores a new deposit for userID.
func (e *Engine) CreateDeposit(ctx context.Context, userID string, in store.DepositInput) (*store.Deposit, error) {
	d, err := e.DB.CreateDeposit(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	e.Metrics.DepositsCreated.Inc()
	return d, nil
}

// Surface picks uniformly at random among the user's active deposits whose
// id is not in exclude. It returns nil, nil when nothing is eligible and has
// no side effect; callers commit the cooldown with UseDeposit.
func (e *Engine) Surface(ctx context.Context, userID string, exclude []string) (*store.Deposit, error) {
	candidates, err := e.DB.EligibleDeposits(ctx, userID, exclude)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.Metrics.Surfaces.WithLabelValues("own", "empty").Inc()
		return nil, nil
	}
	e.Metrics.Surfaces.WithLabelValues("own", "hit").Inc()
	d := candidates[e.pick(len(candidates))]
	return &d, nil
}

// UseDeposit marks a deposit as shown and starts its cooldown.
func (e *Engine) UseDeposit(ctx context.Context, userID, id string) (*store.Deposit, error) {
	return e.DB.MarkSurfaced(ctx, userID, id, e.cfg.CooldownDays)
}

// TickCooldowns advances every cooldown, own and shared. Returns rows updated.
func (e *Engine) TickCooldowns(ctx context.Context) (int, error) {
	own, err := e.DB.TickDepositCooldowns(ctx)
	if err != nil {
		return own, err
	}
	shared, err := e.DB.TickSharedCooldowns(ctx)
	return own + shared, err
}

// StartCooldownTimer runs TickCooldowns on startup and then every
// CooldownTick. Ticking is idempotent within a day, so the interval only
// bounds how late a deposit becomes eligible again.
func (e *Engine) StartCooldownTimer() {
	e.every("cooldown", e.cfg.CooldownTick, func() (int, error) {
		return e.TickCooldowns(context.Background())
	})
}
