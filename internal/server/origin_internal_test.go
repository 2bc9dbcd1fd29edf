package server

import (
	"net/http"
	"testing"
)

// TestNormalizeOrigin verifies scheme and host lower-casing and rejection
// of incomplete origins.
func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "HTTP://LocalHost:8765", want: "http://localhost:8765", ok: true},
		{in: "https://chat.example/path", want: "https://chat.example", ok: true},
		{in: "localhost:8765", ok: false},
		{in: "://bad", ok: false},
	}

	for _, tt := range tests {
		got, ok := normalizeOrigin(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("normalizeOrigin(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// TestOriginPolicy verifies wildcard, listed, unlisted and missing origins.
func TestOriginPolicy(t *testing.T) {
	request := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	listed := newOriginPolicy([]string{"http://localhost:8765", " ", "not-an-origin"})
	if !listed.isAllowed(request("http://LOCALHOST:8765")) {
		t.Error("listed origin should be allowed")
	}
	if listed.isAllowed(request("http://other.example")) {
		t.Error("unlisted origin should be refused")
	}
	if !listed.isAllowed(request("")) {
		t.Error("request without Origin should be allowed")
	}

	wildcard := newOriginPolicy([]string{"*"})
	if !wildcard.isAllowed(request("http://anything.example")) {
		t.Error("wildcard should allow any origin")
	}

	empty := newOriginPolicy(nil)
	if empty.checkOrigin(request("http://localhost:8765")) {
		t.Error("empty policy should refuse browser origins")
	}
}
