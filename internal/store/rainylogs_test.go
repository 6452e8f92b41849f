package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateRainyLog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	d := mustDeposit(t, db, "u1", "x")

	l, err := db.CreateRainyLog(ctx, "u1", "anxious", &d.ID)
	if err != nil {
		t.Fatalf("CreateRainyLog: %v", err)
	}
	if l.DepositID == nil || *l.DepositID != d.ID {
		t.Errorf("DepositID = %v, want %s", l.DepositID, d.ID)
	}
	if l.Rating != nil {
		t.Errorf("Rating = %v, want nil", *l.Rating)
	}

	empty, err := db.CreateRainyLog(ctx, "u1", "sad", nil)
	if err != nil {
		t.Fatalf("CreateRainyLog(nil deposit): %v", err)
	}
	got, err := db.GetRainyLog(ctx, "u1", empty.ID)
	if err != nil {
		t.Fatalf("GetRainyLog: %v", err)
	}
	if got.DepositID != nil {
		t.Errorf("DepositID = %v, want nil", *got.DepositID)
	}
}

func TestCreateRainyLogValidation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	d := mustDeposit(t, db, "owner", "x")

	if _, err := db.CreateRainyLog(ctx, "u1", "  ", nil); !IsValidation(err) {
		t.Errorf("empty emotion: err = %v, want validation", err)
	}

	// Another user's deposit is unknown to u1.
	_, err := db.CreateRainyLog(ctx, "u1", "sad", &d.ID)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "depositId" {
		t.Errorf("foreign deposit: err = %v, want depositId validation", err)
	}
}

func TestPatchRainyLog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	l, _ := db.CreateRainyLog(ctx, "u1", "sad", nil)

	rating := RatingHelpful
	got, err := db.PatchRainyLog(ctx, "u1", l.ID, &rating, nil)
	if err != nil {
		t.Fatalf("PatchRainyLog: %v", err)
	}
	if got.Rating == nil || *got.Rating != RatingHelpful {
		t.Errorf("Rating = %v, want 1", got.Rating)
	}

	note := "  made me smile "
	got, err = db.PatchRainyLog(ctx, "u1", l.ID, nil, &note)
	if err != nil {
		t.Fatalf("PatchRainyLog note: %v", err)
	}
	if got.FeedbackNote == nil || *got.FeedbackNote != "made me smile" {
		t.Errorf("FeedbackNote = %v", got.FeedbackNote)
	}
	if got.Rating == nil || *got.Rating != RatingHelpful {
		t.Error("note-only patch cleared the rating")
	}

	// Last write wins.
	loved := RatingLoved
	got, _ = db.PatchRainyLog(ctx, "u1", l.ID, &loved, nil)
	if *got.Rating != RatingLoved {
		t.Errorf("Rating = %d, want 2", *got.Rating)
	}

	bad := 0
	if _, err := db.PatchRainyLog(ctx, "u1", l.ID, &bad, nil); !IsValidation(err) {
		t.Errorf("rating 0: err = %v, want validation", err)
	}
	if _, err := db.PatchRainyLog(ctx, "u2", l.ID, &rating, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user: err = %v, want ErrNotFound", err)
	}
}

func TestRainyStatsSince(t *testing.T) {
	db := testDB(t)
	clock := newClock(db)
	ctx := context.Background()
	d := mustDeposit(t, db, "u1", "x")

	old, _ := db.CreateRainyLog(ctx, "u1", "sad", &d.ID)
	neg := RatingNotHelpful
	db.PatchRainyLog(ctx, "u1", old.ID, &neg, nil)

	clock.Advance(48 * time.Hour)
	since := clock.Now().UnixMilli()

	a, _ := db.CreateRainyLog(ctx, "u1", "sad", &d.ID)
	pos := RatingLoved
	db.PatchRainyLog(ctx, "u1", a.ID, &pos, nil)
	db.CreateRainyLog(ctx, "u1", "sad", nil)

	s, err := db.RainyStatsSince(ctx, "u1", since)
	if err != nil {
		t.Fatalf("RainyStatsSince: %v", err)
	}
	want := RainyStats{Rounds: 2, Positive: 1, Negative: 0, Empty: 1}
	if s != want {
		t.Errorf("stats = %+v, want %+v", s, want)
	}

	logs, err := db.ListRainyLogs(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("ListRainyLogs: %v", err)
	}
	if len(logs) != 3 || logs[2].ID != old.ID {
		t.Errorf("ListRainyLogs returned %d logs, oldest last expected", len(logs))
	}
}

func TestRainyLogEmotionCountsRunes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	long := strings.Repeat("é", maxEmotionChars)
	if _, err := db.CreateRainyLog(ctx, "u1", long, nil); err != nil {
		t.Errorf("%d-rune emotion: %v", maxEmotionChars, err)
	}
	if _, err := db.CreateRainyLog(ctx, "u1", long+"é", nil); !IsValidation(err) {
		t.Errorf("%d-rune emotion: err = %v, want validation", maxEmotionChars+1, err)
	}
}

func TestStartRound(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	d := mustDeposit(t, db, "u1", "x")

	l, got, err := db.StartRound(ctx, "u1", " sad ", d.ID, 30)
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if l.Emotion != "sad" || l.DepositID == nil || *l.DepositID != d.ID {
		t.Errorf("log = %+v", l)
	}
	if got.Status != Cooldown(30) || got.LastSurfacedAt == nil {
		t.Errorf("deposit = %+v, want 30-day cooldown", got)
	}

	if _, _, err := db.StartRound(ctx, "u2", "sad", d.ID, 30); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user: err = %v, want ErrNotFound", err)
	}
	if _, _, err := db.StartRound(ctx, "u1", "  ", d.ID, 30); !IsValidation(err) {
		t.Errorf("blank emotion: err = %v, want validation", err)
	}
	logs, _ := db.ListRainyLogs(ctx, "u1", 0)
	if len(logs) != 1 {
		t.Errorf("logs = %d, want 1", len(logs))
	}
}
