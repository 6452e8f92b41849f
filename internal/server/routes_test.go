package server

import (
	"fmt"
	"net/http"
	"testing"
)

func createDeposit(t *testing.T, srv *Server, user, body string) map[string]any {
	t.Helper()
	w := call(t, srv, "POST", "/api/deposits", user, body)
	wantStatus(t, w, http.StatusCreated)
	return decode[map[string]any](t, w)
}

func TestCreateAndGetDeposit(t *testing.T) {
	srv := testServer(t)

	d := createDeposit(t, srv, "alice", `{"content":"  walk by the river  ","emotion":"calm","tags":["outside","Outside"]}`)
	if d["content"] != "walk by the river" {
		t.Errorf("content = %q, want trimmed", d["content"])
	}
	if d["status"] != float64(0) || d["state"] != "active" {
		t.Errorf("status = %v state = %v, want 0 active", d["status"], d["state"])
	}
	if d["mediaUri"] != nil {
		t.Errorf("mediaUri = %v, want null", d["mediaUri"])
	}

	w := call(t, srv, "GET", "/api/deposits/"+d["id"].(string), "alice", "")
	wantStatus(t, w, http.StatusOK)

	// Another user cannot see it.
	w = call(t, srv, "GET", "/api/deposits/"+d["id"].(string), "bob", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestCreateDepositValidation(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		body  string
		field string
	}{
		{`{"content":"   "}`, "content"},
		{`{"content":"x","mediaUri":"file:///a.jpg"}`, "mediaType"},
		{`{"content":"x","mediaType":"hologram","mediaUri":"file:///a"}`, "mediaType"},
		{`not json`, "body"},
	}
	for _, tc := range cases {
		w := call(t, srv, "POST", "/api/deposits", "alice", tc.body)
		wantStatus(t, w, http.StatusBadRequest)
		if got := decode[map[string]string](t, w)["field"]; got != tc.field {
			t.Errorf("%s: field = %q, want %q", tc.body, got, tc.field)
		}
	}
}

func TestSurfaceEmptyReserve(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "GET", "/api/deposits/surface", "alice", "")
	wantStatus(t, w, http.StatusOK)
	if body := w.Body.String(); body != "null\n" {
		t.Errorf("body = %q, want null", body)
	}
}

func TestSurfaceExclusion(t *testing.T) {
	srv := testServer(t)
	a := createDeposit(t, srv, "alice", `{"content":"a"}`)
	b := createDeposit(t, srv, "alice", `{"content":"b"}`)

	w := call(t, srv, "GET", "/api/deposits/surface?exclude="+a["id"].(string), "alice", "")
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["id"] != b["id"] {
		t.Errorf("surfaced %v, want %v", got["id"], b["id"])
	}

	body := fmt.Sprintf(`{"excludeIds":[%q,%q]}`, a["id"], b["id"])
	w = call(t, srv, "POST", "/api/deposits/surface", "alice", body)
	wantStatus(t, w, http.StatusOK)
	if w.Body.String() != "null\n" {
		t.Errorf("body = %q, want null when all excluded", w.Body.String())
	}
}

func TestMarkSurfacedStartsCooldown(t *testing.T) {
	srv := testServer(t)
	d := createDeposit(t, srv, "alice", `{"content":"a"}`)
	id := d["id"].(string)

	w := call(t, srv, "POST", "/api/deposits/"+id+"/surfaced", "alice", "")
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	if got["status"] != float64(30) || got["state"] != "cooldown" {
		t.Errorf("status = %v state = %v, want 30 cooldown", got["status"], got["state"])
	}
	if got["lastSurfacedAt"] == nil {
		t.Error("lastSurfacedAt not set")
	}

	w = call(t, srv, "GET", "/api/deposits/surface", "alice", "")
	if w.Body.String() != "null\n" {
		t.Errorf("cooling deposit surfaced: %s", w.Body.String())
	}
}

func TestSetDepositStatus(t *testing.T) {
	srv := testServer(t)
	id := createDeposit(t, srv, "alice", `{"content":"a"}`)["id"].(string)

	for _, tc := range []struct {
		body string
		code int
	}{
		{`{"status":-1}`, http.StatusOK},
		{`{"status":7}`, http.StatusOK},
		{`{"status":0}`, http.StatusOK},
		{`{"status":366}`, http.StatusBadRequest},
		{`{"status":-2}`, http.StatusBadRequest},
		{`{"status":"soon"}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
	} {
		w := call(t, srv, "PUT", "/api/deposits/"+id+"/status", "alice", tc.body)
		if w.Code != tc.code {
			t.Errorf("%s: status = %d, want %d; body: %s", tc.body, w.Code, tc.code, w.Body.String())
		}
	}
}

func TestUpdateAndDeleteDeposit(t *testing.T) {
	srv := testServer(t)
	id := createDeposit(t, srv, "alice", `{"content":"a","emotion":"sad"}`)["id"].(string)

	w := call(t, srv, "PATCH", "/api/deposits/"+id, "alice", `{"content":"b"}`)
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	if got["content"] != "b" || got["emotion"] != "sad" {
		t.Errorf("patched = %v", got)
	}

	w = call(t, srv, "DELETE", "/api/deposits/"+id, "alice", "")
	wantStatus(t, w, http.StatusOK)
	if decode[map[string]bool](t, w)["success"] != true {
		t.Error("success = false")
	}

	w = call(t, srv, "GET", "/api/deposits/"+id, "alice", "")
	wantStatus(t, w, http.StatusNotFound)
	w = call(t, srv, "DELETE", "/api/deposits/"+id, "alice", "")
	wantStatus(t, w, http.StatusNotFound)
}

func TestListDepositsIncludeInactive(t *testing.T) {
	srv := testServer(t)
	createDeposit(t, srv, "alice", `{"content":"a"}`)
	id := createDeposit(t, srv, "alice", `{"content":"b"}`)["id"].(string)
	call(t, srv, "PUT", "/api/deposits/"+id+"/status", "alice", `{"status":-1}`)

	w := call(t, srv, "GET", "/api/deposits", "alice", "")
	if n := len(decode[[]map[string]any](t, w)); n != 1 {
		t.Errorf("default list = %d, want 1", n)
	}
	w = call(t, srv, "GET", "/api/deposits?includeInactive=true", "alice", "")
	if n := len(decode[[]map[string]any](t, w)); n != 2 {
		t.Errorf("includeInactive list = %d, want 2", n)
	}
}

func TestRainyDayLogs(t *testing.T) {
	srv := testServer(t)
	id := createDeposit(t, srv, "alice", `{"content":"a"}`)["id"].(string)

	w := call(t, srv, "POST", "/api/rainy-day/logs", "alice", fmt.Sprintf(`{"emotion":"low","depositId":%q}`, id))
	wantStatus(t, w, http.StatusCreated)
	logID := decode[map[string]any](t, w)["id"].(string)

	w = call(t, srv, "PATCH", "/api/rainy-day/logs/"+logID, "alice", `{"rating":3}`)
	wantStatus(t, w, http.StatusBadRequest)

	w = call(t, srv, "PATCH", "/api/rainy-day/logs/"+logID, "alice", `{"rating":2,"feedbackNote":"helped"}`)
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	if got["rating"] != float64(2) || got["feedbackNote"] != "helped" {
		t.Errorf("patched log = %v", got)
	}

	w = call(t, srv, "GET", "/api/rainy-day/logs", "alice", "")
	if n := len(decode[[]map[string]any](t, w)); n != 1 {
		t.Errorf("logs = %d, want 1", n)
	}

	w = call(t, srv, "PATCH", "/api/rainy-day/logs/"+logID, "bob", `{"rating":1}`)
	wantStatus(t, w, http.StatusNotFound)
}

func TestRainyDaySession(t *testing.T) {
	srv := testServer(t)
	createDeposit(t, srv, "alice", `{"content":"a"}`)

	w := call(t, srv, "POST", "/api/rainy-day/start", "alice", `{"emotion":"anxious","target":1}`)
	wantStatus(t, w, http.StatusOK)
	round := decode[map[string]any](t, w)
	if round["outcome"] != "awaiting_rating" || round["deposit"] == nil {
		t.Fatalf("start = %v", round)
	}

	state, _ := jsonString(round["state"])
	w = call(t, srv, "POST", "/api/rainy-day/rate", "alice", `{"state":`+state+`,"rating":2}`)
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["outcome"] != "complete" {
		t.Errorf("outcome = %v, want complete", got["outcome"])
	}

	w = call(t, srv, "POST", "/api/rainy-day/rate", "alice", `{"state":`+state+`}`)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestRainyDaySessionEmpty(t *testing.T) {
	srv := testServer(t)

	w := call(t, srv, "POST", "/api/rainy-day/start", "alice", `{"emotion":"anxious"}`)
	wantStatus(t, w, http.StatusOK)
	if got := decode[map[string]any](t, w); got["outcome"] != "empty" || got["deposit"] != nil {
		t.Errorf("start = %v, want empty", got)
	}

	w = call(t, srv, "POST", "/api/rainy-day/start", "alice", `{"emotion":""}`)
	wantStatus(t, w, http.StatusBadRequest)
}

func TestStats(t *testing.T) {
	srv := testServer(t)
	createDeposit(t, srv, "alice", `{"content":"a"}`)

	w := call(t, srv, "GET", "/api/stats", "alice", "")
	wantStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	if got["active"] != float64(1) {
		t.Errorf("active = %v, want 1", got["active"])
	}
	if got["nextEligibleInDays"] != nil {
		t.Errorf("nextEligibleInDays = %v, want null", got["nextEligibleInDays"])
	}
}
