package sandbox

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBrokeredGetAllowsListedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok from the broker"))
	}))
	defer srv.Close()

	host := srv.Listener.Addr().(*net.TCPAddr).IP.String()
	state := &hostState{allowedHosts: []string{host}, httpClient: srv.Client()}

	status := state.brokeredGet(srv.URL)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if string(state.lastResponse) != "ok from the broker" {
		t.Fatalf("unexpected response body: %q", state.lastResponse)
	}
}

func TestBrokeredGetRejectsUnlistedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should never be reached for a disallowed host")
	}))
	defer srv.Close()

	state := &hostState{allowedHosts: []string{"some-other-host.example.com"}, httpClient: srv.Client()}
	status := state.brokeredGet(srv.URL)
	if status != -2 {
		t.Fatalf("expected sentinel -2 for a disallowed host, got %d", status)
	}
}

func TestBrokeredGetRejectsMalformedURL(t *testing.T) {
	state := &hostState{allowedHosts: []string{"example.com"}, httpClient: http.DefaultClient}
	status := state.brokeredGet("not a url at all \x00\x01")
	if status != -1 {
		t.Fatalf("expected sentinel -1 for a malformed URL, got %d", status)
	}
}

func TestBrokeredGetRejectsEmptyAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should never be reached with an empty allowlist")
	}))
	defer srv.Close()

	state := &hostState{allowedHosts: nil, httpClient: srv.Client()}
	if status := state.brokeredGet(srv.URL); status != -2 {
		t.Fatalf("expected sentinel -2 with an empty allowlist, got %d", status)
	}
}
