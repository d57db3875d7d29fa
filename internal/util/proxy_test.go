package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Request{URL: u}
}

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://sproxy:3129", "")

	got, err := proxy(proxyRequest(t, "https://example.com/page"))
	if err != nil || got.Host != "sproxy:3129" {
		t.Errorf("https request: got %v, %v", got, err)
	}

	got, err = proxy(proxyRequest(t, "http://example.com/page"))
	if err != nil || got.Host != "proxy:3128" {
		t.Errorf("http request: got %v, %v", got, err)
	}
}

func TestNewProxyFunc_BypassList(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "", "localhost, example.com")

	for _, host := range []string{"http://localhost:11434/api", "https://news.example.com/feed"} {
		got, err := proxy(proxyRequest(t, host))
		if err != nil {
			t.Fatalf("%s: %v", host, err)
		}
		if got != nil {
			t.Errorf("%s should bypass the proxy, got %v", host, got)
		}
	}

	// Suffix matching stops at the dot boundary.
	got, err := proxy(proxyRequest(t, "http://notexample.com/page"))
	if err != nil || got == nil || got.Host != "proxy:3128" {
		t.Errorf("notexample.com should still be proxied, got %v, %v", got, err)
	}
}
