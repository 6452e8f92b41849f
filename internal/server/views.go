package server

import (
	"github.com/lazypower/reserve/internal/engine"
	"github.com/lazypower/reserve/internal/store"
)

type depositView struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Emotion        *string  `json:"emotion"`
	MediaURI       *string  `json:"mediaUri"`
	MediaType      *string  `json:"mediaType"`
	Tags           []string `json:"tags"`
	LastSurfacedAt *int64   `json:"lastSurfacedAt"`
	Status         int      `json:"status"`
	State          string   `json:"state"`
	CreatedAt      int64    `json:"createdAt"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newDepositView(d *store.Deposit) depositView {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return depositView{
		ID:             d.ID,
		Content:        d.Content,
		Emotion:        optional(d.Emotion),
		MediaURI:       optional(d.MediaURI),
		MediaType:      optional(d.MediaType),
		Tags:           tags,
		LastSurfacedAt: d.LastSurfacedAt,
		Status:         int(d.Status),
		State:          d.Status.Kind().String(),
		CreatedAt:      d.CreatedAt,
	}
}

func depositViews(ds []store.Deposit) []depositView {
	out := make([]depositView, len(ds))
	for i := range ds {
		out[i] = newDepositView(&ds[i])
	}
	return out
}

// receivedView is a shared deposit as its receiver sees it.
type receivedView struct {
	depositView
	SenderID string `json:"senderId"`
}

func newReceivedView(s *store.SharedDeposit) receivedView {
	return receivedView{depositView: newDepositView(&s.Deposit), SenderID: s.SenderID}
}

func receivedViews(ss []store.SharedDeposit) []receivedView {
	out := make([]receivedView, len(ss))
	for i := range ss {
		out[i] = newReceivedView(&ss[i])
	}
	return out
}

// sentView is a shared deposit as its sender sees it. Status and surfacing
// time are omitted: they would reveal when the receiver used it.
type sentView struct {
	ID         string   `json:"id"`
	ReceiverID string   `json:"receiverId"`
	Content    string   `json:"content"`
	Emotion    *string  `json:"emotion"`
	MediaURI   *string  `json:"mediaUri"`
	MediaType  *string  `json:"mediaType"`
	Tags       []string `json:"tags"`
	CreatedAt  int64    `json:"createdAt"`
}

func newSentView(s *store.SharedDeposit) sentView {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return sentView{
		ID:         s.ID,
		ReceiverID: s.ReceiverID,
		Content:    s.Content,
		Emotion:    optional(s.Emotion),
		MediaURI:   optional(s.MediaURI),
		MediaType:  optional(s.MediaType),
		Tags:       tags,
		CreatedAt:  s.CreatedAt,
	}
}

type rainyLogView struct {
	ID           string  `json:"id"`
	Emotion      string  `json:"emotion"`
	DepositID    *string `json:"depositId"`
	Rating       *int    `json:"rating"`
	FeedbackNote *string `json:"feedbackNote"`
	CreatedAt    int64   `json:"createdAt"`
}

func newRainyLogView(l *store.RainyDayLog) rainyLogView {
	return rainyLogView{
		ID:           l.ID,
		Emotion:      l.Emotion,
		DepositID:    l.DepositID,
		Rating:       l.Rating,
		FeedbackNote: l.FeedbackNote,
		CreatedAt:    l.CreatedAt,
	}
}

type roundView struct {
	Outcome engine.Outcome      `json:"outcome"`
	State   engine.SessionState `json:"state"`
	Deposit *depositView        `json:"deposit"`
	LogID   string              `json:"logId,omitempty"`
}

func newRoundView(r *engine.Round) roundView {
	v := roundView{Outcome: r.Outcome, State: r.State}
	if r.Deposit != nil {
		dv := newDepositView(r.Deposit)
		v.Deposit = &dv
	}
	if r.Log != nil {
		v.LogID = r.Log.ID
	}
	return v
}

type inviteView struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expiresAt"`
}

type connectionView struct {
	UserID     string `json:"userId"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"createdAt"`
	AcceptedAt *int64 `json:"acceptedAt"`
}

func newConnectionView(c *store.Connection) connectionView {
	return connectionView{
		UserID:     c.ConnectedUserID,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		AcceptedAt: c.AcceptedAt,
	}
}

type settingsView struct {
	SummaryFrequencyWeeks int    `json:"summaryFrequencyWeeks"`
	LastSummaryAt         *int64 `json:"lastSummaryAt"`
}

type digestView struct {
	TotalUses   int   `json:"totalUses"`
	HelpfulUses int   `json:"helpfulUses"`
	Weeks       int   `json:"weeks"`
	CreatedAt   int64 `json:"createdAt"`
}

type statsView struct {
	Active             int  `json:"active"`
	Cooldown           int  `json:"cooldown"`
	Inactive           int  `json:"inactive"`
	ReceivedActive     int  `json:"receivedActive"`
	NextEligibleInDays *int `json:"nextEligibleInDays"`
	RainyDays          struct {
		WindowDays int `json:"windowDays"`
		Rounds     int `json:"rounds"`
		Positive   int `json:"positive"`
		Negative   int `json:"negative"`
		Empty      int `json:"empty"`
	} `json:"rainyDays"`
}

func newStatsView(s *engine.Stats) statsView {
	v := statsView{
		Active:             s.Deposits.Active,
		Cooldown:           s.Deposits.Cooldown,
		Inactive:           s.Deposits.Inactive,
		ReceivedActive:     s.Received,
		NextEligibleInDays: s.NextEligible,
	}
	v.RainyDays.WindowDays = s.WindowDays
	v.RainyDays.Rounds = s.RainyDays.Rounds
	v.RainyDays.Positive = s.RainyDays.Positive
	v.RainyDays.Negative = s.RainyDays.Negative
	v.RainyDays.Empty = s.RainyDays.Empty
	return v
}
