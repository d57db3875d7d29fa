package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Document represents a source artifact: a broker note, newsletter issue,
// podcast transcript, or macro headline batch. Immutable once created.
type Document struct {
	DocID         string    `json:"doc_id" yaml:"doc_id"`
	Source        string    `json:"source" yaml:"source"`               // firm key: "jefferies", "substack", etc.
	SourceType    string    `json:"source_type" yaml:"source_type"`     // "sellside" | "substack" | "podcast" | "x"
	Title         string    `json:"title" yaml:"title"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	Analyst       string    `json:"analyst,omitempty" yaml:"analyst,omitempty"`
	DatePublished string    `json:"date_published,omitempty" yaml:"date_published,omitempty"` // YYYY-MM-DD
	DateIngested  time.Time `json:"date_ingested" yaml:"date_ingested"`
	ContentHash   string    `json:"content_hash,omitempty" yaml:"content_hash,omitempty"` // SHA-256 of raw text
}

// NewDocument creates a Document with a fresh identity and ingestion time.
func NewDocument(source, sourceType, title string) Document {
	return Document{
		DocID:        uuid.NewString(),
		Source:       source,
		SourceType:   sourceType,
		Title:        title,
		DateIngested: time.Now().UTC(),
	}
}

// Page is one ordered page-level text block of a Document.
type Page struct {
	Number int    `json:"number" yaml:"number"` // 1-indexed
	Text   string `json:"text" yaml:"text"`
}

// Chunk is a contiguous, token-bounded text unit of a Document.
// Created once by the segmenter; annotations are attached at classification
// time and the chunk is never mutated afterward.
type Chunk struct {
	ChunkID     string            `json:"chunk_id"`
	DocID       string            `json:"doc_id"`
	Index       int               `json:"index"` // position within document, global across pages
	Text        string            `json:"text"`
	PageStart   int               `json:"page_start,omitempty"`
	PageEnd     int               `json:"page_end,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"` // segment_type, section
}

// ContentHash computes the dedup fingerprint for raw document text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
