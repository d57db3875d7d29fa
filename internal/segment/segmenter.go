// Package segment splits page-level document text into ordered, token-bounded
// chunks. The segmenter is deterministic (same input produces byte-identical
// output) and lossless (every non-whitespace token of the source appears in
// exactly one chunk).
package segment

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/ppiankov/daybrief/internal/model"
)

const (
	// MinTokens is the target floor for a packed chunk.
	MinTokens = 150
	// MaxTokens is the ceiling; segments above it are split at sentence
	// boundaries.
	MaxTokens = 400
)

// segType classifies a line or accumulated segment.
type segType string

const (
	segHeader  segType = "header"
	segBullet  segType = "bullet"
	segExhibit segType = "exhibit"
	segText    segType = "text"
	segMixed   segType = "mixed"
)

var (
	bulletRe  = regexp.MustCompile(`^\s*(?:[-–—•·*]\s|\d{1,3}[.)]\s|\([a-zA-Z0-9]+\)\s)`)
	exhibitRe = regexp.MustCompile(`(?i)^(?:Exhibit|Figure|Table|Chart)\s+\d`)
)

// smallWords are lowercase words allowed inside a title-cased header.
var smallWords = map[string]bool{
	"and": true, "or": true, "the": true, "of": true, "for": true,
	"in": true, "to": true, "a": true, "an": true, "on": true,
	"at": true, "by": true, "vs": true, "vs.": true, "with": true,
	"from": true, "as": true,
}

// EstimateTokens approximates token count at a fixed 4 characters per token.
// Not a real tokenizer, but the same estimate on every run.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// segment is an accumulated run of same-type lines on one page.
type segment struct {
	typ       segType
	lines     []string
	pageStart int
	pageEnd   int
	section   string
}

func (s *segment) text() string {
	return strings.Join(s.lines, "\n")
}

// Segmenter turns a Document plus ordered page text into chunks.
type Segmenter struct {
	maxTokens int
}

// NewSegmenter creates a segmenter with the default token ceiling.
func NewSegmenter() *Segmenter {
	return &Segmenter{maxTokens: MaxTokens}
}

// Segment produces the ordered chunk list for a document. Chunk indexes run
// globally across pages. A header line, once seen, tags every subsequent
// chunk with its section name until the next header.
func (s *Segmenter) Segment(doc model.Document, pages []model.Page) []model.Chunk {
	var segments []*segment
	section := ""

	for _, page := range pages {
		pageSegs, lastSection := scanPage(page, section)
		segments = append(segments, pageSegs...)
		section = lastSection
	}

	packed := s.pack(segments)

	chunks := make([]model.Chunk, 0, len(packed))
	for i, seg := range packed {
		text := seg.text()
		annotations := map[string]string{
			"segment_type": string(seg.typ),
			"section":      seg.section,
		}
		// Diagnostic marker for chunks the packer could not grow to the
		// floor (trailing fragments, isolated headers).
		if EstimateTokens(text) < MinTokens {
			annotations["undersized"] = "true"
		}
		chunks = append(chunks, model.Chunk{
			ChunkID:     uuid.NewString(),
			DocID:       doc.DocID,
			Index:       i,
			Text:        text,
			PageStart:   seg.pageStart,
			PageEnd:     seg.pageEnd,
			Annotations: annotations,
		})
	}

	return chunks
}

// scanPage classifies lines and accumulates contiguous same-type runs,
// flushing on type change or blank line. Returns segments plus the section
// name in effect after the page.
func scanPage(page model.Page, section string) ([]*segment, string) {
	var segs []*segment
	var current *segment

	flush := func() {
		if current != nil && len(current.lines) > 0 {
			segs = append(segs, current)
		}
		current = nil
	}

	for _, raw := range strings.Split(page.Text, "\n") {
		line := strings.TrimRight(raw, " \t\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		typ := classifyLine(line)

		// An indented line following a bullet is a continuation of that
		// bullet, not a new segment.
		if current != nil && current.typ == segBullet && typ == segText &&
			(strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) {
			current.lines = append(current.lines, line)
			continue
		}

		if typ == segHeader {
			flush()
			section = strings.TrimSpace(line)
			current = &segment{
				typ:       segHeader,
				lines:     []string{line},
				pageStart: page.Number,
				pageEnd:   page.Number,
				section:   section,
			}
			flush()
			continue
		}

		if current == nil || current.typ != typ {
			flush()
			current = &segment{
				typ:       typ,
				pageStart: page.Number,
				pageEnd:   page.Number,
				section:   section,
			}
		}
		current.lines = append(current.lines, line)
	}
	flush()

	return segs, section
}

// classifyLine assigns a line class: exhibit marker, bullet, header, or
// plain text.
func classifyLine(line string) segType {
	trimmed := strings.TrimSpace(line)

	if exhibitRe.MatchString(trimmed) {
		return segExhibit
	}
	if bulletRe.MatchString(line) {
		return segBullet
	}
	if isHeader(trimmed) {
		return segHeader
	}
	return segText
}

// isHeader detects short title lines: 3-80 chars, at most 8 words, mostly
// alphabetic, either all-caps or title-cased (small words exempt).
func isHeader(line string) bool {
	if len(line) < 3 || len(line) > 80 {
		return false
	}

	alphaSpace := 0
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) || r == ' ' {
			alphaSpace++
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter || float64(alphaSpace)/float64(len([]rune(line))) < 0.7 {
		return false
	}

	words := strings.Fields(line)
	if len(words) > 8 {
		return false
	}

	if line == strings.ToUpper(line) {
		return true
	}

	// Title case: every word starts uppercase except the small-word set.
	for _, w := range words {
		if smallWords[strings.ToLower(w)] {
			continue
		}
		r := []rune(w)[0]
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// pack merges adjacent segments while under the token ceiling and splits any
// single segment that exceeds it at sentence boundaries. Segments are never
// merged across a section boundary; every chunk carries one section tag.
func (s *Segmenter) pack(segments []*segment) []*segment {
	var out []*segment
	var buf *segment

	flush := func() {
		if buf != nil {
			out = append(out, buf)
		}
		buf = nil
	}

	for _, seg := range segments {
		if EstimateTokens(seg.text()) > s.maxTokens {
			flush()
			out = append(out, s.splitOversized(seg)...)
			continue
		}

		if buf == nil {
			buf = &segment{
				typ:       seg.typ,
				lines:     append([]string{}, seg.lines...),
				pageStart: seg.pageStart,
				pageEnd:   seg.pageEnd,
				section:   seg.section,
			}
			continue
		}

		merged := buf.text() + "\n\n" + seg.text()
		if seg.section == buf.section && EstimateTokens(merged) <= s.maxTokens {
			if buf.typ != seg.typ {
				buf.typ = segMixed
			}
			// The blank line between merged segments is carried in the
			// line list so the joined text round-trips exactly.
			buf.lines = append(buf.lines, "")
			buf.lines = append(buf.lines, seg.lines...)
			if seg.pageEnd > buf.pageEnd {
				buf.pageEnd = seg.pageEnd
			}
			continue
		}

		flush()
		buf = &segment{
			typ:       seg.typ,
			lines:     append([]string{}, seg.lines...),
			pageStart: seg.pageStart,
			pageEnd:   seg.pageEnd,
			section:   seg.section,
		}
	}
	flush()

	return out
}

// splitOversized splits a segment at sentence boundaries, greedily filling
// each piece up to the ceiling. A single sentence longer than the ceiling is
// kept whole; it cannot be split further without losing determinism.
func (s *Segmenter) splitOversized(seg *segment) []*segment {
	sentences := splitSentences(seg.text())

	var out []*segment
	var buf strings.Builder

	emit := func() {
		if buf.Len() == 0 {
			return
		}
		out = append(out, &segment{
			typ:       seg.typ,
			lines:     []string{buf.String()},
			pageStart: seg.pageStart,
			pageEnd:   seg.pageEnd,
			section:   seg.section,
		})
		buf.Reset()
	}

	for _, sent := range sentences {
		if buf.Len() > 0 && EstimateTokens(buf.String()+" "+sent) > s.maxTokens {
			emit()
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sent)
	}
	emit()

	return out
}

// splitSentences splits text after sentence terminators followed by
// whitespace, preserving all non-whitespace content.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}
