package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCanFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Daybrief", 5*time.Second)

	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/research/note.html")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("expected public path to be allowed")
	}

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/private/note.html")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if allowed {
		t.Error("expected disallowed path to be blocked")
	}
}

func TestCanFetch_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Daybrief", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("expected allow when robots.txt is missing")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("Daybrief/0.1 (+https://example.com)"); got != "Daybrief" {
		t.Errorf("NormalizeUserAgent = %q", got)
	}
}
