package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/lazypower/reserve/internal/store"
)

// Outcome is where a rainy-day session stands after a call.
type Outcome string

const (
	OutcomeAwaitingRating Outcome = "awaiting_rating"
	OutcomeComplete       Outcome = "complete"
	OutcomeExhausted      Outcome = "exhausted"
	OutcomeEmpty          Outcome = "empty"
)

// Terminal reports whether no further round can follow.
func (o Outcome) Terminal() bool {
	return o != OutcomeAwaitingRating
}

// SessionState is everything a rainy-day session needs between rounds. The
// server keeps none of it; callers send it back with every rating.
type SessionState struct {
	Emotion    string   `json:"emotion"`
	Target     int      `json:"target"`
	Shown      int      `json:"shown"`
	ThumbsUp   int      `json:"thumbsUp"`
	ExcludeIDs []string `json:"excludeIds"`
	LogID      string   `json:"logId,omitempty"`
	DepositID  string   `json:"depositId,omitempty"`
}

// Round is the result of starting or advancing a session. Deposit and Log
// describe the newly shown deposit, if any.
type Round struct {
	State   SessionState
	Outcome Outcome
	Deposit *store.Deposit
	Log     *store.RainyDayLog
}

// StartSession begins a rainy-day session. A target of zero or less uses the
// configured default. With nothing eligible the session ends as empty and the
// log row has no deposit.
func (e *Engine) StartSession(ctx context.Context, userID, emotion string, target int) (*Round, error) {
	if target <= 0 {
		target = e.cfg.SessionTarget
	}
	state := SessionState{
		Emotion:    emotion,
		Target:     target,
		ExcludeIDs: []string{},
	}

	d, err := e.Surface(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	if d == nil {
		l, err := e.DB.CreateRainyLog(ctx, userID, emotion, nil)
		if err != nil {
			return nil, err
		}
		state.LogID = l.ID
		return e.finish(&Round{State: state, Outcome: OutcomeEmpty, Log: l}), nil
	}

	return e.showDeposit(ctx, userID, state, d)
}

// RateRound records the rating for the deposit currently shown and decides
// whether to surface another. note is stored when non-nil, whatever the rating.
func (e *Engine) RateRound(ctx context.Context, userID string, state SessionState, rating int, note *string) (*Round, error) {
	if err := e.checkState(&state); err != nil {
		return nil, err
	}
	if !store.ValidRating(rating) {
		return nil, &store.ValidationError{Field: "rating", Message: "must be one of 2, 1, -1"}
	}

	l, err := e.DB.PatchRainyLog(ctx, userID, state.LogID, &rating, note)
	if err != nil {
		return nil, err
	}
	if l.DepositID != nil && !slices.Contains(state.ExcludeIDs, *l.DepositID) {
		state.ExcludeIDs = append(state.ExcludeIDs, *l.DepositID)
	}
	if rating > 0 {
		state.ThumbsUp++
	}

	if state.Shown >= state.Target && state.ThumbsUp > 0 {
		return e.finish(&Round{State: state, Outcome: OutcomeComplete}), nil
	}
	if state.Shown >= e.cfg.MaxRounds {
		return e.finish(&Round{State: state, Outcome: OutcomeExhausted}), nil
	}

	d, err := e.Surface(ctx, userID, state.ExcludeIDs)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return e.finish(&Round{State: state, Outcome: OutcomeExhausted}), nil
	}
	return e.showDeposit(ctx, userID, state, d)
}

// showDeposit logs the round and commits the cooldown together, then
// advances the state.
func (e *Engine) showDeposit(ctx context.Context, userID string, state SessionState, d *store.Deposit) (*Round, error) {
	l, used, err := e.DB.StartRound(ctx, userID, state.Emotion, d.ID, e.cfg.CooldownDays)
	if err != nil {
		return nil, fmt.Errorf("start round: %w", err)
	}

	state.Shown++
	state.LogID = l.ID
	state.DepositID = d.ID
	state.ExcludeIDs = append(state.ExcludeIDs, d.ID)
	return e.finish(&Round{State: state, Outcome: OutcomeAwaitingRating, Deposit: used, Log: l}), nil
}

func (e *Engine) finish(r *Round) *Round {
	e.Metrics.Sessions.WithLabelValues(string(r.Outcome)).Inc()
	return r
}

// checkState rejects states no StartSession could have produced.
func (e *Engine) checkState(s *SessionState) error {
	switch {
	case s.LogID == "":
		return &store.ValidationError{Field: "state.logId", Message: "required"}
	case s.Shown < 1:
		return &store.ValidationError{Field: "state.shown", Message: "must be at least 1"}
	case s.ThumbsUp < 0 || s.ThumbsUp > s.Shown:
		return &store.ValidationError{Field: "state.thumbsUp", Message: "must be between 0 and shown"}
	}
	if s.Target <= 0 {
		s.Target = e.cfg.SessionTarget
	}
	if s.ExcludeIDs == nil {
		s.ExcludeIDs = []string{}
	}
	if s.DepositID != "" && !slices.Contains(s.ExcludeIDs, s.DepositID) {
		s.ExcludeIDs = append(s.ExcludeIDs, s.DepositID)
	}
	return nil
}
