package store

// Status is the lifecycle state of a deposit. It is persisted and exchanged
// as a plain integer: 0 is active, -1 is inactive (soft-deleted), and any
// positive value is a cooldown measured in days remaining.
type Status int

const (
	StatusInactive Status = -1
	StatusActive   Status = 0
)

// MaxCooldownDays bounds cooldown values accepted from callers.
const MaxCooldownDays = 365

// StatusKind is the variant of a Status with the countdown stripped off.
type StatusKind int

const (
	KindActive StatusKind = iota
	KindCooldown
	KindInactive
)

func (k StatusKind) String() string {
	switch k {
	case KindActive:
		return "active"
	case KindCooldown:
		return "cooldown"
	case KindInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Cooldown returns a cooldown status of the given length. Non-positive
// lengths collapse to StatusActive.
func Cooldown(days int) Status {
	if days <= 0 {
		return StatusActive
	}
	return Status(days)
}

// Kind returns which lifecycle variant s represents.
func (s Status) Kind() StatusKind {
	switch {
	case s == StatusActive:
		return KindActive
	case s > 0:
		return KindCooldown
	default:
		return KindInactive
	}
}

// DaysRemaining is the cooldown countdown, or 0 for non-cooldown statuses.
func (s Status) DaysRemaining() int {
	if s.Kind() != KindCooldown {
		return 0
	}
	return int(s)
}

// ParseStatus validates a raw integer status from a caller. Values below -1
// or above MaxCooldownDays are rejected rather than clamped.
func ParseStatus(n int) (Status, error) {
	if n < int(StatusInactive) {
		return 0, invalid("status", "must be -1, 0, or a cooldown between 1 and %d", MaxCooldownDays)
	}
	if n > MaxCooldownDays {
		return 0, invalid("status", "cooldown may not exceed %d days", MaxCooldownDays)
	}
	return Status(n), nil
}
