package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/daybrief/internal/cache"
	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/util"
	"github.com/ppiankov/daybrief/internal/worker"
)

// HTTPSource collects newsletter and headline pages over HTTP. Fetches are
// robots-checked, rate limited per domain, and served from the layered cache
// when fresh.
type HTTPSource struct {
	name       string
	sourceType string
	urls       []string

	httpClient *http.Client
	userAgent  string
	maxBytes   int64

	robots  *util.RobotsChecker
	limiter *worker.Limiter
	cache   cache.Cache
	ttl     time.Duration
}

// HTTPSourceOptions configures an HTTPSource.
type HTTPSourceOptions struct {
	Name       string
	SourceType string
	URLs       []string
	HTTP       model.HTTPConfig
	Cache      cache.Cache   // nil disables caching
	CacheTTL   time.Duration
	Limiter    *worker.Limiter // nil disables rate limiting
}

// NewHTTPSource creates an HTTP source for a set of page URLs.
func NewHTTPSource(opts HTTPSourceOptions) *HTTPSource {
	timeout := opts.HTTP.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.HTTP.UserAgent
	if userAgent == "" {
		userAgent = "Daybrief/0.1"
	}
	maxBytes := opts.HTTP.MaxBodyBytes
	if maxBytes == 0 {
		maxBytes = 2_000_000
	}

	return &HTTPSource{
		name:       opts.Name,
		sourceType: opts.SourceType,
		urls:       opts.URLs,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTP.HTTPProxy, opts.HTTP.HTTPSProxy, opts.HTTP.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    util.NewRobotsChecker(util.NormalizeUserAgent(userAgent), timeout),
		limiter:   opts.Limiter,
		cache:     opts.Cache,
		ttl:       opts.CacheTTL,
	}
}

// Name identifies the source
func (s *HTTPSource) Name() string {
	return s.name
}

// Authenticate is a no-op for public pages
func (s *HTTPSource) Authenticate(ctx context.Context) error {
	return nil
}

// Discover returns the configured page URLs
func (s *HTTPSource) Discover(ctx context.Context) ([]string, error) {
	return s.urls, nil
}

// Extract fetches one page and reduces it to a single-page text document.
func (s *HTTPSource) Extract(ctx context.Context, rawURL string) (*Item, error) {
	body, err := s.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	text, err := htmlToText(body)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", rawURL, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: no visible text", rawURL)
	}

	doc := model.NewDocument(s.name, s.sourceType, titleFromURL(rawURL))
	doc.URL = rawURL
	doc.ContentHash = model.ContentHash(text)

	return &Item{
		Document: doc,
		Pages:    []model.Page{{Number: 1, Text: text}},
	}, nil
}

// fetch retrieves a page body, consulting the cache first and honoring
// robots.txt and the per-domain rate limit.
func (s *HTTPSource) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.CacheKey(rawURL)
	if s.cache != nil {
		if body, found := s.cache.Get(key); found {
			return body, nil
		}
	}

	allowed, crawlDelay, err := s.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("robots check: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%s disallowed by robots.txt", rawURL)
	}

	if s.limiter != nil {
		if err := s.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(key, body, s.ttl)
	}

	return body, nil
}

// htmlToText extracts visible text nodes, skipping scripts and styles.
func htmlToText(body []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String(), nil
}

// titleFromURL derives a readable title from the last path segment.
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
