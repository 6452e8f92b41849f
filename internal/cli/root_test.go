package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientRequiresServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL = ts.URL
	t.Cleanup(func() { serverURL = "" })

	if _, err := newClient(); err != nil {
		t.Fatalf("newClient with server up: %v", err)
	}

	ts.Close()
	_, err := newClient()
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("err = %v, want server not running", err)
	}
}

func TestVersionShort(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		versionShort = false
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.String(); got != Version+"\n" {
		t.Errorf("output = %q, want %q", got, Version+"\n")
	}
}
