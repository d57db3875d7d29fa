package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/daybrief/internal/ingest"
	"github.com/ppiankov/daybrief/internal/llm"
	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "claims.db")
	cfg.Brief.OutputDir = t.TempDir()
	cfg.Scope.Sector = "ALL"
	return cfg
}

func testItems() []ingest.Item {
	doc := model.NewDocument("jefferies", "sellside", "META 4Q Preview")
	doc.Analyst = "Brent Thill"
	doc.DatePublished = "2026-08-28"

	page := model.Page{Number: 1, Text: strings.Repeat(
		"META guided capex materially higher for the next fiscal year. "+
			"Management expects AI infrastructure spending to accelerate through the period. ", 8)}

	return []ingest.Item{{Document: doc, Pages: []model.Page{page}}}
}

func TestRun_DeterministicWithoutProvider(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), testItems(), day, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Brief == nil {
		t.Fatal("expected a brief")
	}
	if len(result.Brief.Sections) != 4 {
		t.Errorf("expected header + 3 tiers, got %d sections", len(result.Brief.Sections))
	}
	for _, want := range []string{"Tier 1", "Tier 2", "Tier 3"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// Triage recovery keeps the run from going empty on a defaults-only day
	if result.Triage.OutputCount == 0 {
		t.Error("expected recovered items without a provider")
	}
	if result.Stored == 0 {
		t.Error("expected claims filed into the store")
	}

	if result.Path == "" {
		t.Fatal("expected a written brief path")
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("read brief: %v", err)
	}
	if string(data) != result.Markdown {
		t.Error("file content should match rendered markdown")
	}
	if !strings.HasSuffix(result.Path, "briefing_2026-08-29.md") {
		t.Errorf("unexpected path: %s", result.Path)
	}

	// Every briefed claim must drill down to its verbatim source
	if result.Provenance == nil {
		t.Fatal("expected a provenance index")
	}
	ids := result.Provenance.ClaimIDs(0)
	if len(ids) == 0 {
		t.Fatal("expected indexed claims")
	}
	for _, id := range ids {
		v, ok := result.Provenance.View(id)
		if !ok {
			t.Fatalf("no drill-down view for claim %s", id)
		}
		if !strings.Contains(v.ChunkText, "capex") {
			t.Errorf("claim %s lost its source text: %q", id, v.ChunkText)
		}
		if v.DocumentTitle != "META 4Q Preview" {
			t.Errorf("claim %s resolved document %q", id, v.DocumentTitle)
		}
	}
}

// scriptedProvider answers classification and extraction calls with fixed
// JSON, keyed on the system prompt.
type scriptedProvider struct {
	calls int
}

func (s *scriptedProvider) Name() string                            { return "scripted" }
func (s *scriptedProvider) IsAvailable(ctx context.Context) bool    { return true }
func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	var content string
	switch {
	case strings.Contains(req.System, "classifier"):
		content = `{"topic": "tracked_ticker", "tickers": ["META"], "content_type": "forecast",
			"time_horizon": "near_term", "polarity": "positive", "novelty": "new"}`
	case strings.Contains(req.System, "claim extractor"):
		content = `{"bullets": ["META guided capex materially higher."],
			"primary_ticker": "META", "claim_type": "catalyst", "confidence_level": "high",
			"time_sensitivity": "breaking", "belief_pressure": "confirms_consensus",
			"event_type": "guidance", "is_descriptive_event": true}`
	default:
		content = "Narrative summary."
	}
	return &llm.CompletionResponse{Content: content, Model: "scripted"}, nil
}

func TestRun_WithScriptedProvider(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	provider := &scriptedProvider{}
	p.provider = provider

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), testItems(), day, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if provider.calls == 0 {
		t.Fatal("provider was never called")
	}

	// Breaking + guidance routes to tier 1 with the alert marker
	if !strings.Contains(result.Markdown, "META guided capex materially higher.") {
		t.Error("extracted bullet missing from brief")
	}
	if !strings.Contains(result.Markdown, "Action Required") {
		t.Error("expected tier 1 content")
	}
}

func TestRun_NoticesSurfaceInBrief(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	notice := "Source stratechery timed out; 2 of 5 documents collected."
	result, err := p.Run(context.Background(), testItems(), day, []string{notice})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !strings.Contains(result.Markdown, notice) {
		t.Error("ingestion notice missing from brief header")
	}
}

func TestRun_EmptyInput(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	result, err := p.Run(context.Background(), nil, day, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Brief == nil {
		t.Fatal("expected a brief even with no input")
	}
	if !result.Filter.ThinDay {
		t.Error("expected a thin day with no input")
	}
	if !strings.Contains(result.Markdown, "No cross-report confirmation within scope.") {
		t.Errorf("expected thin day label in brief:\n%s", result.Markdown)
	}
}

func TestWriteBrief_NoOutputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Brief.OutputDir = ""
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	path, err := p.writeBrief("2026-08-29", "# brief")
	if err != nil {
		t.Fatalf("writeBrief: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %s", path)
	}
}

func TestRun_SecondDayProducesDrift(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPipeline(cfg, policy.Default())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	p.provider = &scriptedProvider{}

	// File yesterday's claims directly so today's run sees history
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	priorClaims := []model.Claim{
		{
			ClaimID:        "prior-1",
			DocID:          "doc-prior",
			Ticker:         "META",
			ClaimType:      "catalyst",
			Bullets:        []string{"META capex flat."},
			Confidence:     model.ConfidenceLow,
			BeliefPressure: model.PressureUnclear,
			SourceCitation: fmt.Sprintf("Jefferies, Brent Thill, p.1, %s", yesterday),
		},
		{
			ClaimID:        "prior-2",
			DocID:          "doc-prior",
			Ticker:         "META",
			ClaimType:      "risk",
			Bullets:        []string{"META capex uncertain."},
			Confidence:     model.ConfidenceLow,
			BeliefPressure: model.PressureUnclear,
			SourceCitation: fmt.Sprintf("Jefferies, Brent Thill, p.2, %s", yesterday),
		},
	}
	if _, err := p.claims.SaveClaims(priorClaims, yesterday); err != nil {
		t.Fatalf("seed prior claims: %v", err)
	}

	result, err := p.Run(context.Background(), testItems(), time.Now(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Low-confidence history against today's high-confidence claims should
	// register hardening drift for META
	if !strings.Contains(result.Markdown, "Drift Watch") {
		t.Errorf("expected drift section:\n%s", result.Markdown)
	}
}
