package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func jsonString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func connect(t *testing.T, srv *Server, inviter, invitee string) {
	t.Helper()
	w := call(t, srv, "POST", "/api/circle/invites", inviter, "")
	wantStatus(t, w, http.StatusCreated)
	code := decode[map[string]any](t, w)["code"].(string)

	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", invitee, "")
	wantStatus(t, w, http.StatusOK)
}

func TestInviteErrors(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "POST", "/api/circle/invites/deadbeef/accept", "bob", "")
	wantStatus(t, w, http.StatusNotFound)

	w = call(t, srv, "POST", "/api/circle/invites", "alice", "")
	code := decode[map[string]any](t, w)["code"].(string)

	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", "alice", "")
	wantStatus(t, w, http.StatusForbidden)

	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", "bob", "")
	wantStatus(t, w, http.StatusOK)

	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", "carol", "")
	wantStatus(t, w, http.StatusConflict)

	w = call(t, srv, "POST", "/api/circle/invites", "alice", "")
	code = decode[map[string]any](t, w)["code"].(string)
	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", "bob", "")
	wantStatus(t, w, http.StatusConflict)
}

func TestInviteExpired(t *testing.T) {
	srv := testServer(t)
	w := call(t, srv, "POST", "/api/circle/invites", "alice", "")
	code := decode[map[string]any](t, w)["code"].(string)

	srv.db.SetClock(func() time.Time { return time.Now().Add(8 * 24 * time.Hour) })

	w = call(t, srv, "POST", "/api/circle/invites/"+code+"/accept", "bob", "")
	wantStatus(t, w, http.StatusGone)
}

func TestConnections(t *testing.T) {
	srv := testServer(t)
	connect(t, srv, "alice", "bob")

	for _, user := range []string{"alice", "bob"} {
		w := call(t, srv, "GET", "/api/circle/connections", user, "")
		conns := decode[[]map[string]any](t, w)
		if len(conns) != 1 || conns[0]["status"] != "accepted" {
			t.Errorf("%s connections = %v", user, conns)
		}
	}

	w := call(t, srv, "DELETE", "/api/circle/connections/alice", "bob", "")
	wantStatus(t, w, http.StatusOK)
	w = call(t, srv, "DELETE", "/api/circle/connections/alice", "bob", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestShareFlow(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "POST", "/api/circle/shared", "alice", `{"receiverId":"bob","content":"hi"}`)
	wantStatus(t, w, http.StatusForbidden)

	connect(t, srv, "alice", "bob")

	w = call(t, srv, "POST", "/api/circle/shared", "alice", `{"content":"hi"}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = call(t, srv, "POST", "/api/circle/shared", "alice", `{"receiverId":"bob","content":"you are loved"}`)
	wantStatus(t, w, http.StatusCreated)
	id := decode[map[string]any](t, w)["id"].(string)

	w = call(t, srv, "GET", "/api/circle/shared/surface", "bob", "")
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	if got["id"] != id || got["senderId"] != "alice" {
		t.Fatalf("surfaced = %v", got)
	}

	// Only the receiver can use it.
	w = call(t, srv, "POST", "/api/circle/shared/"+id+"/use", "alice", `{"helpful":true}`)
	wantStatus(t, w, http.StatusNotFound)

	w = call(t, srv, "POST", "/api/circle/shared/"+id+"/use", "bob", `{"helpful":true}`)
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["state"] != "cooldown" {
		t.Errorf("state after use = %v, want cooldown", got["state"])
	}

	w = call(t, srv, "GET", "/api/circle/summary?weeksBack=2", "alice", "")
	wantStatus(t, w, http.StatusOK)
	sum := decode[map[string]float64](t, w)
	if sum["totalUses"] != 1 || sum["helpfulUses"] != 1 || sum["weeks"] != 2 {
		t.Errorf("summary = %v", sum)
	}

	for _, weeks := range []string{"0", "521", "20000"} {
		w = call(t, srv, "GET", "/api/circle/summary?weeksBack="+weeks, "alice", "")
		wantStatus(t, w, http.StatusBadRequest)
	}
}

func TestSentHidesUsage(t *testing.T) {
	srv := testServer(t)
	connect(t, srv, "alice", "bob")
	w := call(t, srv, "POST", "/api/circle/shared", "alice", `{"receiverId":"bob","content":"hi"}`)
	id := decode[map[string]any](t, w)["id"].(string)
	call(t, srv, "POST", "/api/circle/shared/"+id+"/use", "bob", "")

	w = call(t, srv, "GET", "/api/circle/shared/sent", "alice", "")
	wantStatus(t, w, http.StatusOK)
	sent := decode[[]map[string]any](t, w)
	if len(sent) != 1 {
		t.Fatalf("sent = %v", sent)
	}
	for _, k := range []string{"status", "state", "lastSurfacedAt"} {
		if _, ok := sent[0][k]; ok {
			t.Errorf("sent view exposes %q", k)
		}
	}
}

func TestReceivedStatus(t *testing.T) {
	srv := testServer(t)
	connect(t, srv, "alice", "bob")
	w := call(t, srv, "POST", "/api/circle/shared", "alice", `{"receiverId":"bob","content":"hi"}`)
	id := decode[map[string]any](t, w)["id"].(string)

	w = call(t, srv, "PUT", "/api/circle/shared/"+id+"/status", "bob", `{"status":-1}`)
	wantStatus(t, w, http.StatusOK)

	w = call(t, srv, "GET", "/api/circle/shared/received", "bob", "")
	if n := len(decode[[]map[string]any](t, w)); n != 0 {
		t.Errorf("received = %d, want 0 without inactive", n)
	}
	w = call(t, srv, "GET", "/api/circle/shared/received?includeInactive=1", "bob", "")
	if n := len(decode[[]map[string]any](t, w)); n != 1 {
		t.Errorf("received = %d, want 1 with inactive", n)
	}
}

func TestSettings(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "GET", "/api/settings", "alice", "")
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["summaryFrequencyWeeks"] != float64(2) {
		t.Errorf("default weeks = %v, want 2", got["summaryFrequencyWeeks"])
	}

	w = call(t, srv, "PUT", "/api/settings", "alice", `{"summaryFrequencyWeeks":4}`)
	wantStatus(t, w, http.StatusOK)

	w = call(t, srv, "PUT", "/api/settings", "alice", `{"summaryFrequencyWeeks":0}`)
	wantStatus(t, w, http.StatusBadRequest)
	if f := decode[map[string]string](t, w)["field"]; f != "summaryFrequencyWeeks" {
		t.Errorf("field = %q", f)
	}

	w = call(t, srv, "GET", "/api/circle/summaries", "alice", "")
	wantStatus(t, w, http.StatusOK)
	if n := len(decode[[]map[string]any](t, w)); n != 0 {
		t.Errorf("summaries = %d, want 0", n)
	}
}
