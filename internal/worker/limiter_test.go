package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_BurstFloor(t *testing.T) {
	l := NewLimiter(10, 8)
	if l.baseBurst != 8 {
		t.Errorf("expected burst 8, got %d", l.baseBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.baseBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.baseBurst)
	}
}

func TestLimiter_WaitPerHost(t *testing.T) {
	l := NewLimiter(100, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, "https://research.example.com/notes"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	// A second host has its own bucket and must not be blocked by the first.
	if err := l.Wait(ctx, "https://letters.example.org"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	l := NewLimiter(100, 1)

	start := time.Now()
	err := l.WaitWithDelay(context.Background(), "https://research.example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected crawl delay >= 50ms, got %v", elapsed)
	}
}

func TestLimiter_WaitWithDelay_Canceled(t *testing.T) {
	l := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.WaitWithDelay(ctx, "https://research.example.com", time.Second); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestLimiter_ExhaustedBucket(t *testing.T) {
	l := NewLimiter(1, 1)
	url := "https://research.example.com"

	if err := l.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of one, token consumed by the wait above.
	if l.Allow(url) {
		t.Error("expected exhausted bucket to deny the request")
	}

	// Other hosts keep their own tokens.
	if !l.Allow("https://letters.example.org") {
		t.Error("expected other host to be allowed")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	l := NewLimiter(10, 10)
	host := "slow.example.com"

	l.SetHostRate(host, 0.1, 1)

	if !l.Allow("https://" + host) {
		t.Error("first request to throttled host should pass")
	}
	if l.Allow("https://" + host) {
		t.Error("second request to throttled host should be denied")
	}

	// Hosts without an override keep the faster default.
	if !l.Allow("https://fast.example.com") {
		t.Error("host without override should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://research.example.com/notes/2026-02-03")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "research.example.com" {
		t.Errorf("expected research.example.com, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
