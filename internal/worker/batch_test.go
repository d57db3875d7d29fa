package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// stubFetcher implements Fetcher
type stubFetcher struct {
	calls    int32
	failHost string // substring match against the URL
}

func (f *stubFetcher) FetchURL(ctx context.Context, url string) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failHost != "" && strings.Contains(url, f.failHost) {
		return 0, errors.New("fetch failed")
	}
	return 3, nil
}

func TestBatchProcessor_ProcessURLs(t *testing.T) {
	fetcher := &stubFetcher{}
	bp := NewBatchProcessor(fetcher, 3)

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	results := bp.ProcessURLs(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}
	if atomic.LoadInt32(&fetcher.calls) != int32(len(urls)) {
		t.Errorf("expected %d fetch calls, got %d", len(urls), fetcher.calls)
	}
	for _, res := range results {
		if res.Err() != nil {
			t.Errorf("unexpected error for %s: %v", res.URL, res.Err())
		}
		if res.Documents != 3 {
			t.Errorf("expected 3 documents for %s, got %d", res.URL, res.Documents)
		}
	}
}

func TestBatchProcessor_PartialFailure(t *testing.T) {
	fetcher := &stubFetcher{failHost: "broken.example.com"}
	bp := NewBatchProcessor(fetcher, 2)

	urls := []string{
		"https://example.com/ok",
		"https://broken.example.com/feed",
		"https://example.com/also-ok",
	}
	results := bp.ProcessURLs(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("expected %d results, got %d", len(urls), len(results))
	}

	failed := 0
	for _, res := range results {
		if res.Err() != nil {
			failed++
			if !strings.Contains(res.URL, "broken") {
				t.Errorf("unexpected failure for %s", res.URL)
			}
			if res.Documents != 0 {
				t.Errorf("expected zero documents on error, got %d", res.Documents)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
}

func TestBatchProcessor_EmptyInput(t *testing.T) {
	bp := NewBatchProcessor(&stubFetcher{}, 2)
	results := bp.ProcessURLs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results for empty input, got %d", len(results))
	}
}

func TestFetchResult_Err(t *testing.T) {
	ok := &FetchResult{URL: "https://example.com", Documents: 2}
	if ok.Err() != nil {
		t.Errorf("expected nil error, got %v", ok.Err())
	}

	boom := errors.New("fetch failed")
	bad := &FetchResult{URL: "https://example.com", Error: boom}
	if bad.Err() != boom {
		t.Errorf("expected %v, got %v", boom, bad.Err())
	}
}
