// Package ingest collects source documents for the pipeline. Each Source
// implementation knows how to discover and extract its own document kind;
// the orchestrator runs them concurrently under per-source time boxes.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/daybrief/internal/cache"
	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/worker"
)

// Item is one collected document with its ordered page text.
type Item struct {
	Document model.Document
	Pages    []model.Page
}

// Source is the capability contract every document source satisfies.
type Source interface {
	// Name identifies the source in logs and notices
	Name() string

	// Authenticate verifies credentials or access before discovery
	Authenticate(ctx context.Context) error

	// Discover lists document descriptors (file paths, URLs) available now
	Discover(ctx context.Context) ([]string, error)

	// Extract turns one descriptor into a document with pages
	Extract(ctx context.Context, descriptor string) (*Item, error)
}

// SourceSpec is one entry of a sources.yaml file.
type SourceSpec struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`        // "file" | "http"
	SourceType string   `yaml:"source_type"` // "sellside" | "substack" | "podcast" | "x"
	Dir        string   `yaml:"dir,omitempty"`
	URLs       []string `yaml:"urls,omitempty"`
	URLsFile   string   `yaml:"urls_file,omitempty"` // newline-delimited URL list, # comments
	Analyst    string   `yaml:"analyst,omitempty"`

	// RequestsPerSecond overrides the global pacing for this source's
	// hosts. Zero keeps the default.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
}

// SourcesFile is the on-disk source configuration.
type SourcesFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads and validates a sources.yaml file.
func LoadSources(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var sf SourcesFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	for i := range sf.Sources {
		s := &sf.Sources[i]
		if s.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		switch s.Kind {
		case "file":
			if s.Dir == "" {
				return nil, fmt.Errorf("source %q: file kind requires dir", s.Name)
			}
		case "http":
			if s.URLsFile != "" {
				listed, err := readURLFile(s.URLsFile)
				if err != nil {
					return nil, fmt.Errorf("source %q: %w", s.Name, err)
				}
				s.URLs = mergeURLs(s.URLs, listed)
			}
			if len(s.URLs) == 0 {
				return nil, fmt.Errorf("source %q: http kind requires urls or urls_file", s.Name)
			}
		default:
			return nil, fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
		}
	}

	return &sf, nil
}

// readURLFile loads a newline-delimited URL list. Blank lines and
// lines starting with # are skipped.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}

// mergeURLs appends listed onto inline, dropping duplicates while
// preserving order.
func mergeURLs(inline, listed []string) []string {
	seen := make(map[string]bool, len(inline)+len(listed))
	var merged []string
	for _, u := range append(inline, listed...) {
		if seen[u] {
			continue
		}
		seen[u] = true
		merged = append(merged, u)
	}
	return merged
}

// BuildSources instantiates the configured sources. HTTP sources share the
// fetch cache and the per-domain limiter.
func BuildSources(sf *SourcesFile, cfg *model.Config, fetchCache cache.Cache, limiter *worker.Limiter) []Source {
	var sources []Source
	for _, spec := range sf.Sources {
		switch spec.Kind {
		case "file":
			sources = append(sources, NewFileSource(spec.Name, spec.SourceType, spec.Dir, spec.Analyst))
		case "http":
			if spec.RequestsPerSecond > 0 && limiter != nil {
				for _, host := range specHosts(spec.URLs) {
					limiter.SetHostRate(host, spec.RequestsPerSecond, 0)
				}
			}
			sources = append(sources, NewHTTPSource(HTTPSourceOptions{
				Name:       spec.Name,
				SourceType: spec.SourceType,
				URLs:       spec.URLs,
				HTTP:       cfg.HTTP,
				Cache:      fetchCache,
				CacheTTL:   cfg.Cache.MemoryTTL,
				Limiter:    limiter,
			}))
		}
	}
	return sources
}

// specHosts collects the distinct hosts behind a source's URLs.
func specHosts(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var hosts []string
	for _, raw := range urls {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		if seen[parsed.Host] {
			continue
		}
		seen[parsed.Host] = true
		hosts = append(hosts, parsed.Host)
	}
	return hosts
}
