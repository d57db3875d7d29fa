package drilldown

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/daybrief/internal/model"
)

func fixtureIndex() *Index {
	docs := []model.Document{
		{DocID: "doc-1", Source: "jefferies", Title: "META Platforms: AI Monetization Inflection", URL: "https://research.example.com/report/123"},
		{DocID: "doc-2", Source: "jefferies", Title: "Cloud Infrastructure: 2026 Outlook"},
	}
	chunks := []model.Chunk{
		{ChunkID: "ch-1", DocID: "doc-1", Text: "Threads daily active users surpassed 300M, exceeding expectations of 200M.", PageStart: 2, PageEnd: 2},
		{ChunkID: "ch-2", DocID: "doc-1", Text: "Reality Labs losses narrowing, down to $3.5B in Q4 vs $4.2B in Q3.", PageStart: 5, PageEnd: 6},
		{ChunkID: "ch-3", DocID: "doc-2", Text: "Cloud infrastructure demand projected to accelerate in 2026.", PageStart: 3, PageEnd: 3},
		{ChunkID: "ch-4", DocID: "doc-2", Text: "Rising rates may pressure growth stock valuations across the sector."},
	}
	claims := []model.Claim{
		{ClaimID: "cl-1", DocID: "doc-1", ChunkID: "ch-1", Ticker: "META", ClaimType: "data_point",
			Bullets:        []string{"META Threads surpassed 300M DAU, exceeding 200M consensus"},
			SourceCitation: "Jefferies, Brent Thill, p.2, 2026-08-28",
			Confidence:     model.ConfidenceHigh, TimeSensitivity: model.SensitivityBreaking,
			BeliefPressure: model.PressureContradicts},
		{ClaimID: "cl-2", DocID: "doc-1", ChunkID: "ch-2", Ticker: "META", ClaimType: "data_point",
			Bullets:    []string{"Reality Labs losses narrowing: $3.5B Q4 vs $4.2B Q3"},
			Confidence: model.ConfidenceHigh, TimeSensitivity: model.SensitivityOngoing,
			BeliefPressure: model.PressureConfirms},
		{ClaimID: "cl-3", DocID: "doc-2", ChunkID: "ch-3", ClaimType: "risk",
			Bullets:    []string{"Cloud spend growth hinges on enterprise AI budgets holding"},
			Confidence: model.ConfidenceMedium, TimeSensitivity: model.SensitivityOngoing,
			BeliefPressure: model.PressureConfirms},
		{ClaimID: "cl-4", DocID: "doc-2", ChunkID: "ch-4", ClaimType: "risk",
			Bullets:    []string{"Rising rates may pressure growth stock valuations"},
			Confidence: model.ConfidenceMedium, TimeSensitivity: model.SensitivityOngoing,
			BeliefPressure: model.PressureConfirms, UncertaintyPreserved: true},
	}
	assignment := model.TierAssignment{
		Tier1: []model.Claim{claims[0]},
		Tier2: []model.Claim{claims[1], claims[2]},
		Tier3: []model.Claim{claims[3]},
		Reasons: map[string]string{
			"cl-1": "breaking and contradicts consensus",
			"cl-4": "reference, no urgency",
		},
	}
	return BuildIndex(claims, chunks, docs, assignment)
}

func TestBuildIndex_Summary(t *testing.T) {
	ix := fixtureIndex()

	got := ix.Summary()
	want := "Claims: 4 | Chunks: 4 | Docs: 2 | T1: 1 | T2: 2 | T3: 1"
	if got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestView_Provenance(t *testing.T) {
	ix := fixtureIndex()

	v, ok := ix.View("cl-1")
	if !ok {
		t.Fatal("expected view for cl-1")
	}
	if v.Tier != model.Tier1 {
		t.Errorf("Tier = %d, want 1", v.Tier)
	}
	if !strings.Contains(v.ChunkText, "300M") {
		t.Errorf("expected verbatim chunk text, got %q", v.ChunkText)
	}
	if v.PageRef != "p.2" {
		t.Errorf("PageRef = %q, want p.2", v.PageRef)
	}
	if v.DocumentTitle != "META Platforms: AI Monetization Inflection" {
		t.Errorf("unexpected document title %q", v.DocumentTitle)
	}
	if v.DocumentURL == "" {
		t.Error("expected document URL")
	}
	if v.TierReason != "breaking and contradicts consensus" {
		t.Errorf("TierReason = %q", v.TierReason)
	}
}

func TestView_PageSpan(t *testing.T) {
	ix := fixtureIndex()

	v, _ := ix.View("cl-2")
	if v.PageRef != "pp.5-6" {
		t.Errorf("PageRef = %q, want pp.5-6", v.PageRef)
	}

	// ch-4 carries no page numbers
	v4, _ := ix.View("cl-4")
	if v4.PageRef != "" {
		t.Errorf("PageRef = %q, want empty", v4.PageRef)
	}
}

func TestView_RelatedClaims(t *testing.T) {
	ix := fixtureIndex()

	v, _ := ix.View("cl-1")
	if len(v.SameTicker) != 1 || v.SameTicker[0] != "cl-2" {
		t.Errorf("SameTicker = %v, want [cl-2]", v.SameTicker)
	}
	if len(v.SameDoc) != 1 || v.SameDoc[0] != "cl-2" {
		t.Errorf("SameDoc = %v, want [cl-2]", v.SameDoc)
	}

	// Thematic claims relate through shared claim type
	v3, _ := ix.View("cl-3")
	if len(v3.SameTheme) != 1 || v3.SameTheme[0] != "cl-4" {
		t.Errorf("SameTheme = %v, want [cl-4]", v3.SameTheme)
	}
	if len(v3.SameDoc) != 1 || v3.SameDoc[0] != "cl-4" {
		t.Errorf("SameDoc = %v, want [cl-4]", v3.SameDoc)
	}
}

func TestView_ExcludesSelf(t *testing.T) {
	ix := fixtureIndex()

	v, _ := ix.View("cl-4")
	for _, group := range [][]string{v.SameTicker, v.SameDoc, v.SameTheme} {
		for _, id := range group {
			if id == "cl-4" {
				t.Error("related claims must not include the claim itself")
			}
		}
	}
}

func TestView_MissingClaim(t *testing.T) {
	ix := fixtureIndex()
	if _, ok := ix.View("cl-99"); ok {
		t.Error("expected no view for unknown claim id")
	}
}

func TestView_DegradesWithoutChunk(t *testing.T) {
	claims := []model.Claim{{ClaimID: "cl-1", DocID: "doc-x", ChunkID: "ch-x", ClaimType: "thesis", Bullets: []string{"orphaned"}}}
	ix := BuildIndex(claims, nil, nil, model.TierAssignment{Tier3: claims})

	v, ok := ix.View("cl-1")
	if !ok {
		t.Fatal("expected view")
	}
	if v.ChunkText != "[source text unavailable]" {
		t.Errorf("ChunkText = %q", v.ChunkText)
	}
	if v.DocumentTitle != "[document unavailable]" {
		t.Errorf("DocumentTitle = %q", v.DocumentTitle)
	}
	if v.Tier != model.Tier3 {
		t.Errorf("Tier = %d, want 3", v.Tier)
	}
}

func TestClaimIDs_TierFilter(t *testing.T) {
	ix := fixtureIndex()

	all := ix.ClaimIDs(0)
	if len(all) != 4 {
		t.Fatalf("expected 4 ids, got %v", all)
	}
	// Extraction order preserved
	if all[0] != "cl-1" || all[3] != "cl-4" {
		t.Errorf("unexpected order %v", all)
	}

	t2 := ix.ClaimIDs(model.Tier2)
	if len(t2) != 2 || t2[0] != "cl-2" || t2[1] != "cl-3" {
		t.Errorf("Tier2 ids = %v, want [cl-2 cl-3]", t2)
	}
}

func TestExplain(t *testing.T) {
	ix := fixtureIndex()

	if got := ix.Explain("cl-1"); got != "Tier 1: breaking and contradicts consensus" {
		t.Errorf("Explain = %q", got)
	}
	// No recorded reason falls back to the tier label
	if got := ix.Explain("cl-2"); got != "Tier 2: Signal vs Noise" {
		t.Errorf("Explain = %q", got)
	}
	if got := ix.Explain("cl-99"); !strings.Contains(got, "not found") {
		t.Errorf("Explain = %q", got)
	}
}

func TestView_Markdown(t *testing.T) {
	ix := fixtureIndex()

	v, _ := ix.View("cl-1")
	md := v.Markdown()

	for _, want := range []string{
		"## Drill-Down: [META] cl-1",
		"### Claim",
		"META Threads surpassed 300M DAU",
		"*Jefferies, Brent Thill, p.2, 2026-08-28*",
		"### Why Is This Here?",
		"**Tier 1: Demands Attention Today**",
		"### Judgment Hooks",
		"- **Confidence**: high",
		"### Original Source Text",
		"*Source p.2*",
		"### Source Document",
		"### Related Claims",
		"**Same ticker (META):** 1",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// Thematic claims are tagged as such
	v4, _ := ix.View("cl-4")
	md4 := v4.Markdown()
	if !strings.Contains(md4, "## Drill-Down: [Thematic] cl-4") {
		t.Error("expected thematic tag")
	}
	if !strings.Contains(md4, "- **Uncertainty**: Preserved from source") {
		t.Error("expected uncertainty line")
	}
}

func TestTruncateText_RuneBoundary(t *testing.T) {
	long := strings.Repeat("€", 400) // 3 bytes per rune, 1200 bytes
	got := truncateText(long, sourceTextLimit)

	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
	if !strings.HasSuffix(got, "[...truncated...]") {
		t.Error("expected truncation marker")
	}

	short := "fits"
	if truncateText(short, sourceTextLimit) != short {
		t.Error("short text must pass through unchanged")
	}
}

func TestIndex_Markdown(t *testing.T) {
	ix := fixtureIndex()
	md := ix.Markdown("2026-08-28")

	if !strings.Contains(md, "# Claim Provenance: 2026-08-28") {
		t.Error("missing header")
	}
	if !strings.Contains(md, ix.Summary()) {
		t.Error("missing summary line")
	}
	for _, id := range []string{"cl-1", "cl-2", "cl-3", "cl-4"} {
		if !strings.Contains(md, "## Drill-Down: ") || !strings.Contains(md, id) {
			t.Errorf("missing drill-down for %s", id)
		}
	}
}
