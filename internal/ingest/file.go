package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
)

// fileEnvelope is the JSON drop format: document metadata plus page text.
// Plain .txt and .md drops skip the envelope and become single-page documents.
type fileEnvelope struct {
	Source        string   `json:"source"`
	SourceType    string   `json:"source_type"`
	Title         string   `json:"title"`
	URL           string   `json:"url,omitempty"`
	Analyst       string   `json:"analyst,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	Pages         []string `json:"pages"`
}

// FileSource collects documents from a local drop directory.
type FileSource struct {
	name       string
	sourceType string
	dir        string
	analyst    string
}

// NewFileSource creates a source over a local directory of dropped documents.
func NewFileSource(name, sourceType, dir, analyst string) *FileSource {
	return &FileSource{
		name:       name,
		sourceType: sourceType,
		dir:        dir,
		analyst:    analyst,
	}
}

// Name identifies the source
func (s *FileSource) Name() string {
	return s.name
}

// Authenticate verifies the drop directory exists and is readable
func (s *FileSource) Authenticate(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("drop directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("drop directory %s is not a directory", s.dir)
	}
	return nil
}

// Discover lists document files in the drop directory, sorted for
// deterministic ordering.
func (s *FileSource) Discover(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list drop directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".txt", ".md":
			paths = append(paths, filepath.Join(s.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Extract reads one dropped file into a document with pages.
func (s *FileSource) Extract(ctx context.Context, path string) (*Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return s.extractEnvelope(path, data)
	}

	// Plain text drop: one page, title from the file name
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc := model.NewDocument(s.name, s.sourceType, title)
	doc.Analyst = s.analyst
	doc.ContentHash = model.ContentHash(string(data))

	return &Item{
		Document: doc,
		Pages:    []model.Page{{Number: 1, Text: string(data)}},
	}, nil
}

// WriteItem drops a collected item into dir as a JSON envelope, named by a
// slug of the title plus a content hash prefix so repeat collections
// overwrite rather than duplicate.
func WriteItem(dir string, item *Item) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create drop directory: %w", err)
	}

	pages := make([]string, len(item.Pages))
	for i, p := range item.Pages {
		pages[i] = p.Text
	}
	env := fileEnvelope{
		Source:        item.Document.Source,
		SourceType:    item.Document.SourceType,
		Title:         item.Document.Title,
		URL:           item.Document.URL,
		Analyst:       item.Document.Analyst,
		DatePublished: item.Document.DatePublished,
		Pages:         pages,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}

	hash := item.Document.ContentHash
	if hash == "" {
		hash = model.ContentHash(strings.Join(pages, "\n"))
	}
	name := fmt.Sprintf("%s_%s.json", slugify(item.Document.Title), hash[:12])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write envelope: %w", err)
	}
	return path, nil
}

// slugify reduces a title to a filesystem-safe lowercase slug.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "document"
	}
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}

func (s *FileSource) extractEnvelope(path string, data []byte) (*Item, error) {
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(env.Pages) == 0 {
		return nil, fmt.Errorf("%s: no pages", path)
	}

	source := env.Source
	if source == "" {
		source = s.name
	}
	sourceType := env.SourceType
	if sourceType == "" {
		sourceType = s.sourceType
	}
	title := env.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	doc := model.NewDocument(source, sourceType, title)
	doc.URL = env.URL
	doc.Analyst = env.Analyst
	if doc.Analyst == "" {
		doc.Analyst = s.analyst
	}
	doc.DatePublished = env.DatePublished
	doc.ContentHash = model.ContentHash(strings.Join(env.Pages, "\n"))

	pages := make([]model.Page, len(env.Pages))
	for i, text := range env.Pages {
		pages[i] = model.Page{Number: i + 1, Text: text}
	}

	return &Item{Document: doc, Pages: pages}, nil
}
