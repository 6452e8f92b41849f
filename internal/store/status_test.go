package store

import "testing"

func TestStatusKind(t *testing.T) {
	tests := []struct {
		s    Status
		kind StatusKind
		days int
	}{
		{StatusActive, KindActive, 0},
		{StatusInactive, KindInactive, 0},
		{Status(1), KindCooldown, 1},
		{Status(30), KindCooldown, 30},
	}
	for _, tt := range tests {
		if got := tt.s.Kind(); got != tt.kind {
			t.Errorf("Status(%d).Kind() = %v, want %v", tt.s, got, tt.kind)
		}
		if got := tt.s.DaysRemaining(); got != tt.days {
			t.Errorf("Status(%d).DaysRemaining() = %d, want %d", tt.s, got, tt.days)
		}
	}
}

func TestCooldown(t *testing.T) {
	if Cooldown(0) != StatusActive || Cooldown(-4) != StatusActive {
		t.Error("non-positive cooldown should collapse to active")
	}
	if Cooldown(30).Kind() != KindCooldown {
		t.Error("Cooldown(30) should be a cooldown")
	}
}

func TestParseStatus(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 30, MaxCooldownDays} {
		s, err := ParseStatus(n)
		if err != nil {
			t.Errorf("ParseStatus(%d): %v", n, err)
		}
		if int(s) != n {
			t.Errorf("ParseStatus(%d) = %d", n, s)
		}
	}
	for _, n := range []int{-2, -100, MaxCooldownDays + 1} {
		if _, err := ParseStatus(n); !IsValidation(err) {
			t.Errorf("ParseStatus(%d): err = %v, want validation", n, err)
		}
	}
}

func TestStatusKindString(t *testing.T) {
	if KindCooldown.String() != "cooldown" {
		t.Errorf("KindCooldown = %q", KindCooldown.String())
	}
	if StatusKind(9).String() != "unknown" {
		t.Errorf("StatusKind(9) = %q", StatusKind(9).String())
	}
}
