package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lazypower/reserve/internal/store"
)

func TestStartSessionEmpty(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()

	r, err := e.StartSession(ctx, "u1", "sad", 1)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if r.Outcome != OutcomeEmpty || !r.Outcome.Terminal() {
		t.Errorf("Outcome = %s, want empty", r.Outcome)
	}
	if r.Deposit != nil {
		t.Error("empty session returned a deposit")
	}
	if r.Log == nil || r.Log.DepositID != nil {
		t.Errorf("log = %+v, want row with nil deposit", r.Log)
	}

	logs, _ := e.DB.ListRainyLogs(ctx, "u1", 0)
	if len(logs) != 1 || logs[0].DepositID != nil {
		t.Errorf("persisted logs = %+v", logs)
	}
}

func TestStartSessionShowsDeposit(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	d := deposit(t, e, "u1", "x")

	r, err := e.StartSession(ctx, "u1", "sad", 0)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if r.Outcome != OutcomeAwaitingRating {
		t.Fatalf("Outcome = %s", r.Outcome)
	}
	if r.State.Shown != 1 || r.State.ThumbsUp != 0 || r.State.Target != 1 {
		t.Errorf("state = %+v", r.State)
	}
	if r.Deposit.ID != d.ID || r.Deposit.Status != 30 {
		t.Errorf("deposit = %+v, want d in cooldown", r.Deposit)
	}
	if r.Log.DepositID == nil || *r.Log.DepositID != d.ID || r.State.LogID != r.Log.ID {
		t.Errorf("log = %+v", r.Log)
	}
}

func TestSingleDepositPositiveCompletes(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	deposit(t, e, "u1", "x")

	r, _ := e.StartSession(ctx, "u1", "sad", 1)
	r, err := e.RateRound(ctx, "u1", r.State, store.RatingHelpful, nil)
	if err != nil {
		t.Fatalf("RateRound: %v", err)
	}
	if r.Outcome != OutcomeComplete {
		t.Errorf("Outcome = %s, want complete", r.Outcome)
	}
	if r.State.ThumbsUp != 1 {
		t.Errorf("ThumbsUp = %d", r.State.ThumbsUp)
	}
}

func TestSingleDepositNegativeTriesAgain(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	deposit(t, e, "u1", "x")

	r, _ := e.StartSession(ctx, "u1", "sad", 1)
	note := "not today"
	r, err := e.RateRound(ctx, "u1", r.State, store.RatingNotHelpful, &note)
	if err != nil {
		t.Fatalf("RateRound: %v", err)
	}
	if r.Outcome == OutcomeComplete {
		t.Fatal("negative rating completed the session")
	}
	// The only deposit is already shown and cooling down.
	if r.Outcome != OutcomeExhausted {
		t.Errorf("Outcome = %s, want exhausted", r.Outcome)
	}

	logs, _ := e.DB.ListRainyLogs(ctx, "u1", 0)
	if len(logs) != 1 || logs[0].FeedbackNote == nil || *logs[0].FeedbackNote != note {
		t.Errorf("logs = %+v", logs)
	}
}

func TestNegativeAdvancesToNextDeposit(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	deposit(t, e, "u1", "a")
	deposit(t, e, "u1", "b")

	first, _ := e.StartSession(ctx, "u1", "sad", 1)
	second, err := e.RateRound(ctx, "u1", first.State, store.RatingNotHelpful, nil)
	if err != nil {
		t.Fatalf("RateRound: %v", err)
	}
	if second.Outcome != OutcomeAwaitingRating {
		t.Fatalf("Outcome = %s, want awaiting_rating", second.Outcome)
	}
	if second.Deposit.ID == first.Deposit.ID {
		t.Error("same deposit shown twice in one session")
	}
	if second.State.Shown != 2 || len(second.State.ExcludeIDs) != 2 {
		t.Errorf("state = %+v", second.State)
	}

	done, err := e.RateRound(ctx, "u1", second.State, store.RatingLoved, nil)
	if err != nil {
		t.Fatalf("RateRound: %v", err)
	}
	if done.Outcome != OutcomeComplete {
		t.Errorf("Outcome = %s, want complete", done.Outcome)
	}
}

func TestTargetRequiresEnoughRounds(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		deposit(t, e, "u1", "m")
	}

	r, _ := e.StartSession(ctx, "u1", "sad", 2)
	r, _ = e.RateRound(ctx, "u1", r.State, store.RatingLoved, nil)
	if r.Outcome != OutcomeAwaitingRating {
		t.Fatalf("after 1 of 2: Outcome = %s", r.Outcome)
	}
	r, _ = e.RateRound(ctx, "u1", r.State, store.RatingNotHelpful, nil)
	if r.Outcome != OutcomeComplete {
		t.Errorf("shown=2 thumbsUp=1: Outcome = %s, want complete", r.Outcome)
	}
}

func TestRoundBudget(t *testing.T) {
	e, _ := testEngine(t, Config{MaxRounds: 2})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		deposit(t, e, "u1", "m")
	}

	r, _ := e.StartSession(ctx, "u1", "sad", 1)
	r, _ = e.RateRound(ctx, "u1", r.State, store.RatingNotHelpful, nil)
	if r.Outcome != OutcomeAwaitingRating {
		t.Fatalf("round 2: Outcome = %s", r.Outcome)
	}
	r, _ = e.RateRound(ctx, "u1", r.State, store.RatingNotHelpful, nil)
	if r.Outcome != OutcomeExhausted {
		t.Errorf("past budget: Outcome = %s, want exhausted", r.Outcome)
	}
}

func TestRateRoundStateSurvivesTransport(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	deposit(t, e, "u1", "a")
	deposit(t, e, "u1", "b")

	r, _ := e.StartSession(ctx, "u1", "sad", 1)
	data, err := json.Marshal(r.State)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	next, err := e.RateRound(ctx, "u1", state, store.RatingNotHelpful, nil)
	if err != nil {
		t.Fatalf("RateRound: %v", err)
	}
	if next.Deposit == nil || next.Deposit.ID == r.Deposit.ID {
		t.Errorf("next = %+v", next.Deposit)
	}
}

func TestRateRoundRejects(t *testing.T) {
	e, _ := testEngine(t, Config{})
	ctx := context.Background()
	deposit(t, e, "u1", "a")
	r, _ := e.StartSession(ctx, "u1", "sad", 1)

	if _, err := e.RateRound(ctx, "u1", r.State, 0, nil); !store.IsValidation(err) {
		t.Errorf("rating 0: err = %v", err)
	}
	if _, err := e.RateRound(ctx, "u1", SessionState{Shown: 1}, 1, nil); !store.IsValidation(err) {
		t.Errorf("missing logId: err = %v", err)
	}
	if _, err := e.RateRound(ctx, "u2", r.State, 1, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other user's log: err = %v, want ErrNotFound", err)
	}

	l, _ := e.DB.GetRainyLog(ctx, "u1", r.State.LogID)
	if l.Rating != nil {
		t.Errorf("rejected calls wrote rating %d", *l.Rating)
	}
}

// failWrites installs a trigger that aborts matching writes.
func failWrites(t *testing.T, e *Engine, name, when string) {
	t.Helper()
	_, err := e.DB.Exec(`CREATE TRIGGER ` + name + ` ` + when + ` BEGIN SELECT RAISE(ABORT, 'disk gone'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}
}

func TestFailedRoundLeavesNoTrace(t *testing.T) {
	cases := []struct {
		name string
		when string
	}{
		{"fail_cooldown", "BEFORE UPDATE OF last_surfaced_at ON deposits"},
		{"fail_log", "BEFORE INSERT ON rainy_day_logs WHEN NEW.deposit_id IS NOT NULL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := testEngine(t, Config{})
			ctx := context.Background()
			d := deposit(t, e, "u1", "x")
			failWrites(t, e, tc.name, tc.when)

			if _, err := e.StartSession(ctx, "u1", "sad", 1); err == nil {
				t.Fatal("StartSession succeeded with failing write")
			}

			logs, err := e.DB.ListRainyLogs(ctx, "u1", 0)
			if err != nil {
				t.Fatalf("ListRainyLogs: %v", err)
			}
			if len(logs) != 0 {
				t.Errorf("logs left behind = %d, want 0", len(logs))
			}
			got, err := e.DB.GetDeposit(ctx, "u1", d.ID)
			if err != nil {
				t.Fatalf("GetDeposit: %v", err)
			}
			if got.Status != store.StatusActive || got.LastSurfacedAt != nil {
				t.Errorf("deposit = %+v, want untouched", got)
			}
		})
	}
}

func TestFailedNextRoundKeepsPreviousLog(t *testing.T) {
	e, _ := testEngine(t, Config{SessionTarget: 2})
	ctx := context.Background()
	deposit(t, e, "u1", "a")
	deposit(t, e, "u1", "b")

	r, err := e.StartSession(ctx, "u1", "sad", 0)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	failWrites(t, e, "fail_log", "BEFORE INSERT ON rainy_day_logs")

	if _, err := e.RateRound(ctx, "u1", r.State, store.RatingHelpful, nil); err == nil {
		t.Fatal("RateRound succeeded with failing write")
	}
	logs, _ := e.DB.ListRainyLogs(ctx, "u1", 0)
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want only the first round", len(logs))
	}
	eligible, _ := e.DB.EligibleDeposits(ctx, "u1", nil)
	if len(eligible) != 1 {
		t.Errorf("eligible = %d, want the unshown deposit still active", len(eligible))
	}
}
