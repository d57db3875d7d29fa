// Package drilldown makes every briefed claim challengeable. An analyst
// asking "why is this here?" gets the verbatim source text, the page
// reference, the routing reason, and the related claims for any claim id.
package drilldown

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/daybrief/internal/model"
)

// sourceTextLimit caps the verbatim chunk text in a rendered view.
const sourceTextLimit = 1000

// relatedShown caps how many related claim ids a view lists per group.
const relatedShown = 5

// View is the complete provenance of one claim.
type View struct {
	Claim model.Claim
	Tier  model.Tier

	ChunkText     string
	PageRef       string // "p.3" or "pp.3-5", empty when pages are unknown
	DocumentTitle string
	DocumentURL   string

	TierReason string

	SameTicker []string // claim ids sharing the ticker
	SameDoc    []string // claim ids from the same document
	SameTheme  []string // thematic claim ids sharing the claim type
}

// Markdown renders the view for analyst review.
func (v *View) Markdown() string {
	var b strings.Builder

	tag := "[Thematic]"
	if v.Claim.Ticker != "" {
		tag = "[" + v.Claim.Ticker + "]"
	}
	fmt.Fprintf(&b, "## Drill-Down: %s %s\n\n", tag, v.Claim.ClaimID)

	b.WriteString("### Claim\n")
	for _, bullet := range v.Claim.Bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}
	if v.Claim.SourceCitation != "" {
		fmt.Fprintf(&b, "\n*%s*\n", v.Claim.SourceCitation)
	}
	b.WriteString("\n")

	b.WriteString("### Why Is This Here?\n")
	fmt.Fprintf(&b, "**Tier %d: %s**\n", v.Tier, tierLabel(v.Tier))
	if v.TierReason != "" {
		fmt.Fprintf(&b, "- %s\n", v.TierReason)
	}
	b.WriteString("\n")

	b.WriteString("### Judgment Hooks\n")
	fmt.Fprintf(&b, "- **Confidence**: %s\n", v.Claim.Confidence)
	fmt.Fprintf(&b, "- **Time Sensitivity**: %s\n", v.Claim.TimeSensitivity)
	fmt.Fprintf(&b, "- **Belief Pressure**: %s\n", v.Claim.BeliefPressure)
	fmt.Fprintf(&b, "- **Claim Type**: %s\n", v.Claim.ClaimType)
	if v.Claim.UncertaintyPreserved {
		b.WriteString("- **Uncertainty**: Preserved from source\n")
	}
	b.WriteString("\n")

	b.WriteString("### Original Source Text\n```\n")
	b.WriteString(truncateText(v.ChunkText, sourceTextLimit))
	b.WriteString("\n```\n")
	if v.PageRef != "" {
		fmt.Fprintf(&b, "*Source %s*\n", v.PageRef)
	}
	b.WriteString("\n")

	b.WriteString("### Source Document\n")
	fmt.Fprintf(&b, "- **Title**: %s\n", v.DocumentTitle)
	if v.DocumentURL != "" {
		fmt.Fprintf(&b, "- **URL**: %s\n", v.DocumentURL)
	}
	b.WriteString("\n")

	b.WriteString("### Related Claims\n")
	related := false
	if len(v.SameTicker) > 0 {
		related = true
		fmt.Fprintf(&b, "\n**Same ticker (%s):** %d\n", v.Claim.Ticker, len(v.SameTicker))
		writeRelated(&b, v.SameTicker)
	}
	if len(v.SameDoc) > 0 {
		related = true
		fmt.Fprintf(&b, "\n**Same document:** %d\n", len(v.SameDoc))
		writeRelated(&b, v.SameDoc)
	}
	if len(v.SameTheme) > 0 {
		related = true
		fmt.Fprintf(&b, "\n**Same theme (%s):** %d\n", v.Claim.ClaimType, len(v.SameTheme))
		writeRelated(&b, v.SameTheme)
	}
	if !related {
		b.WriteString("*No related claims found.*\n")
	}

	return b.String()
}

func writeRelated(b *strings.Builder, ids []string) {
	for i, id := range ids {
		if i == relatedShown {
			fmt.Fprintf(b, "  *[+%d more]*\n", len(ids)-relatedShown)
			return
		}
		fmt.Fprintf(b, "- `%s`\n", id)
	}
}

func tierLabel(t model.Tier) string {
	switch t {
	case model.Tier1:
		return "Demands Attention Today"
	case model.Tier2:
		return "Signal vs Noise"
	case model.Tier3:
		return "Reference"
	}
	return "Unknown"
}

// truncateText cuts text to at most limit bytes on a rune boundary.
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n[...truncated...]"
}

// Index holds every claim of a run with the lookups needed to answer a
// drill-down instantly.
type Index struct {
	claims  map[string]model.Claim
	chunks  map[string]model.Chunk
	docs    map[string]model.Document
	tiers   map[string]model.Tier
	reasons map[string]string

	byTicker map[string][]string
	byDoc    map[string][]string
	byType   map[string][]string

	order []string // claim ids in extraction order
}

// BuildIndex assembles the index from a run's outputs. Claims whose chunk
// or document is missing still index; their views degrade to placeholders.
func BuildIndex(claims []model.Claim, chunks []model.Chunk, docs []model.Document, assignment model.TierAssignment) *Index {
	ix := &Index{
		claims:   make(map[string]model.Claim, len(claims)),
		chunks:   make(map[string]model.Chunk, len(chunks)),
		docs:     make(map[string]model.Document, len(docs)),
		tiers:    make(map[string]model.Tier, len(claims)),
		reasons:  make(map[string]string, len(assignment.Reasons)),
		byTicker: make(map[string][]string),
		byDoc:    make(map[string][]string),
		byType:   make(map[string][]string),
	}

	for _, c := range claims {
		ix.claims[c.ClaimID] = c
		ix.order = append(ix.order, c.ClaimID)
		if c.Ticker != "" {
			ix.byTicker[c.Ticker] = append(ix.byTicker[c.Ticker], c.ClaimID)
		}
		ix.byDoc[c.DocID] = append(ix.byDoc[c.DocID], c.ClaimID)
		ix.byType[c.ClaimType] = append(ix.byType[c.ClaimType], c.ClaimID)
	}
	for _, ch := range chunks {
		ix.chunks[ch.ChunkID] = ch
	}
	for _, d := range docs {
		ix.docs[d.DocID] = d
	}

	for _, c := range assignment.Tier1 {
		ix.tiers[c.ClaimID] = model.Tier1
	}
	for _, c := range assignment.Tier2 {
		ix.tiers[c.ClaimID] = model.Tier2
	}
	for _, c := range assignment.Tier3 {
		ix.tiers[c.ClaimID] = model.Tier3
	}
	for id, reason := range assignment.Reasons {
		ix.reasons[id] = reason
	}

	return ix
}

// View builds the provenance for one claim id.
func (ix *Index) View(claimID string) (*View, bool) {
	claim, ok := ix.claims[claimID]
	if !ok {
		return nil, false
	}

	v := &View{
		Claim:      claim,
		Tier:       model.Tier3,
		ChunkText:  "[source text unavailable]",
		TierReason: ix.reasons[claimID],
	}
	if t, ok := ix.tiers[claimID]; ok {
		v.Tier = t
	}

	if chunk, ok := ix.chunks[claim.ChunkID]; ok {
		v.ChunkText = chunk.Text
		v.PageRef = pageRef(chunk)
	}
	if doc, ok := ix.docs[claim.DocID]; ok {
		v.DocumentTitle = doc.Title
		v.DocumentURL = doc.URL
	} else {
		v.DocumentTitle = "[document unavailable]"
	}

	v.SameTicker = ix.related(ix.byTicker[claim.Ticker], claimID, nil)
	v.SameDoc = ix.related(ix.byDoc[claim.DocID], claimID, nil)
	v.SameTheme = ix.related(ix.byType[claim.ClaimType], claimID, func(id string) bool {
		// Theme relations carry thematic claims only; ticker-bound
		// claims already surface through the ticker group.
		return ix.claims[id].Ticker == ""
	})

	return v, true
}

// pageRef formats the chunk's page span, empty when pages are unknown.
func pageRef(chunk model.Chunk) string {
	if chunk.PageStart == 0 {
		return ""
	}
	if chunk.PageEnd != 0 && chunk.PageEnd != chunk.PageStart {
		return fmt.Sprintf("pp.%d-%d", chunk.PageStart, chunk.PageEnd)
	}
	return fmt.Sprintf("p.%d", chunk.PageStart)
}

func (ix *Index) related(ids []string, self string, keep func(string) bool) []string {
	var out []string
	for _, id := range ids {
		if id == self {
			continue
		}
		if keep != nil && !keep(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// ClaimIDs returns claim ids in extraction order, optionally restricted
// to one tier. Zero means all tiers.
func (ix *Index) ClaimIDs(t model.Tier) []string {
	if t == 0 {
		return append([]string(nil), ix.order...)
	}
	var out []string
	for _, id := range ix.order {
		if ix.tiers[id] == t {
			out = append(out, id)
		}
	}
	return out
}

// Explain answers the drill-down question in one line.
func (ix *Index) Explain(claimID string) string {
	v, ok := ix.View(claimID)
	if !ok {
		return fmt.Sprintf("claim %s not found", claimID)
	}
	if v.TierReason == "" {
		return fmt.Sprintf("Tier %d: %s", v.Tier, tierLabel(v.Tier))
	}
	return fmt.Sprintf("Tier %d: %s", v.Tier, v.TierReason)
}

// Summary is a one-line inventory of the indexed run.
func (ix *Index) Summary() string {
	counts := map[model.Tier]int{}
	for _, t := range ix.tiers {
		counts[t]++
	}
	return fmt.Sprintf("Claims: %d | Chunks: %d | Docs: %d | T1: %d | T2: %d | T3: %d",
		len(ix.claims), len(ix.chunks), len(ix.docs),
		counts[model.Tier1], counts[model.Tier2], counts[model.Tier3])
}

// Markdown renders the whole index as one companion document.
func (ix *Index) Markdown(date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Claim Provenance: %s\n\n", date)
	fmt.Fprintf(&b, "%s\n", ix.Summary())
	for _, id := range ix.order {
		v, ok := ix.View(id)
		if !ok {
			continue
		}
		b.WriteString("\n---\n\n")
		b.WriteString(v.Markdown())
	}
	return b.String()
}
