// Package pipeline orchestrates one end-to-end brief run: segment, classify,
// extract, filter, triage, tier, synthesize, drift, store, render. Each stage
// degrades to deterministic defaults on failure; a run never aborts because
// an external service or a prior-day lookup did.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/daybrief/internal/classify"
	"github.com/ppiankov/daybrief/internal/drift"
	"github.com/ppiankov/daybrief/internal/drilldown"
	"github.com/ppiankov/daybrief/internal/ingest"
	"github.com/ppiankov/daybrief/internal/llm"
	"github.com/ppiankov/daybrief/internal/logging"
	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
	"github.com/ppiankov/daybrief/internal/render"
	"github.com/ppiankov/daybrief/internal/scope"
	"github.com/ppiankov/daybrief/internal/score"
	"github.com/ppiankov/daybrief/internal/segment"
	"github.com/ppiankov/daybrief/internal/store"
	"github.com/ppiankov/daybrief/internal/synth"
	"github.com/ppiankov/daybrief/internal/tier"
	"github.com/ppiankov/daybrief/internal/triage"
)

// Pipeline holds every collaborator for a brief run.
type Pipeline struct {
	segmenter   *segment.Segmenter
	scorer      *score.Scorer
	triager     *triage.Triager
	router      *tier.Router
	synthesizer *synth.Synthesizer
	detector    *drift.Detector
	mapper      *scope.Mapper
	renderer    *render.Renderer
	claims      *store.Store
	provider    llm.Provider // nil runs fully deterministic
	policy      *policy.Policy
	config      *model.Config
}

// narrator adapts the completion provider to the synthesizer's interface.
type narrator struct {
	provider llm.Provider
}

func (n *narrator) Narrate(ctx context.Context, prompt string) (string, error) {
	resp, err := n.provider.Complete(ctx, llm.CompletionRequest{
		System:      "You are a financial research assistant. Summarize the structured synthesis below into a short narrative. Use only the facts given; never add claims.",
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// NewPipeline builds a pipeline from configuration. The claim store is
// opened here; callers must Close the pipeline when done.
func NewPipeline(cfg *model.Config, p *policy.Policy) (*Pipeline, error) {
	claims, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open claim store: %w", err)
	}

	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		provider, err = llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logging.Warn("LLM provider unavailable, using deterministic defaults", "error", err)
			provider = nil
		}
	}

	var nar synth.Narrator
	if provider != nil {
		nar = &narrator{provider: provider}
	}

	return &Pipeline{
		segmenter:   segment.NewSegmenter(),
		scorer:      score.NewScorer(p),
		triager:     triage.NewTriager(p),
		router:      tier.NewRouter(p),
		synthesizer: synth.NewSynthesizer(p, nar),
		detector:    drift.NewDetector(cfg.Brief.LookbackDays),
		mapper:      scope.NewMapper(p),
		renderer:    render.NewRenderer(p, cfg.Brief.WordBudget),
		claims:      claims,
		provider:    provider,
		policy:      p,
		config:      cfg,
	}, nil
}

// Close releases the claim store.
func (p *Pipeline) Close() error {
	return p.claims.Close()
}

// RunResult carries everything a brief run produced.
type RunResult struct {
	Brief      *model.BriefingDocument
	Markdown   string
	Path       string // written briefing file, empty if output dir unset
	Stored     int    // claims filed into the store
	Filter     scope.FilterResult
	Triage     triage.Result
	Provenance *drilldown.Index // drill-down for every briefed claim
}

// Run executes one brief for the given day over the collected items.
// Extra notices (ingestion failures) surface in the brief header.
func (p *Pipeline) Run(ctx context.Context, items []ingest.Item, day time.Time, notices []string) (*RunResult, error) {
	date := day.Format("2006-01-02")

	// 1. Segment and classify every document
	var scored []score.Item
	var allChunks []model.Chunk
	docs := make([]model.Document, 0, len(items))
	docsByID := make(map[string]model.Document)
	for _, item := range items {
		docs = append(docs, item.Document)
		docsByID[item.Document.DocID] = item.Document
		chunks := p.segmenter.Segment(item.Document, item.Pages)
		allChunks = append(allChunks, chunks...)
		for _, chunk := range chunks {
			cls := p.classifyChunk(ctx, chunk, item.Document)
			scored = append(scored, p.scorer.Score(chunk, cls, item.Document.Source))
		}
	}
	logging.Info("classified", "documents", len(items), "chunks", len(scored))

	// 2. Triage to the presentation budget
	triaged := p.triager.Run(scored)
	logging.Info("triaged", "kept", triaged.OutputCount, "dropped", len(triaged.Dropped))

	// 3. Extract claims from the survivors; keep the chunk subtopics for
	// the sub-sector scope check
	var claims []model.Claim
	subtopics := make(map[string]string)
	for _, it := range triaged.Kept {
		doc := docsByID[it.Chunk.DocID]
		claims = append(claims, p.extractClaim(ctx, it.Chunk, it.Classification, doc))
		subtopics[it.Chunk.ChunkID] = it.Classification.TopicSecondary
	}

	// 4. Scope filter
	briefScope := scope.BriefingScope{
		Sector:           p.config.Scope.Sector,
		SubSectors:       p.config.Scope.SubSectors,
		AnalystWhitelist: p.config.Scope.Analysts,
		TickerWhitelist:  p.config.Scope.Tickers,
	}
	filtered := scope.Filter(claims, briefScope, subtopics)
	logging.Info("scoped", "summary", filtered.Summary())

	// 5. Prior claims for synthesis and drift; a store failure degrades to
	// a no-history day
	prior, err := p.claims.PriorClaims(p.config.Brief.LookbackDays)
	if err != nil {
		logging.Warn("prior claim lookup failed", "error", err)
		prior = nil
	}

	// 6. Tier, synthesize, drift
	tiers := p.router.Route(filtered.Claims)
	syn := p.synthesizer.Synthesize(ctx, filtered.Claims, prior)
	signals := p.detector.Detect(filtered.Claims, prior)
	provenance := drilldown.BuildIndex(filtered.Claims, allChunks, docs, tiers)

	// 7. File today's claims
	stored, err := p.claims.SaveClaims(filtered.Claims, date)
	if err != nil {
		logging.Warn("claim store write failed", "error", err)
	}

	// 8. Render within the word budget
	idx := p.mapper.BuildIndex(tiers.Tier3)
	brief, markdown := p.renderer.Render(render.Input{
		Date:         day,
		Tiers:        tiers,
		Synthesis:    *syn,
		Drift:        signals,
		Index:        idx,
		ThinDayLabel: filtered.ThinDayLabel(),
		Notices:      notices,
	})

	path, err := p.writeBrief(date, markdown)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Brief:      brief,
		Markdown:   markdown,
		Path:       path,
		Stored:     stored,
		Filter:     filtered,
		Triage:     triaged,
		Provenance: provenance,
	}, nil
}

// classifyChunk asks the provider for a classification and coerces the
// response. No provider, or a failed call, coerces the empty string into
// the all-defaults record.
func (p *Pipeline) classifyChunk(ctx context.Context, chunk model.Chunk, doc model.Document) model.Classification {
	raw := ""
	if p.provider != nil {
		resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
			System:      llm.ClassifySystemPrompt(),
			Prompt:      llm.BuildClassifyPrompt(chunk, doc, p.policy.Universe()),
			Temperature: 0,
		})
		if err != nil {
			logging.Warn("classification call failed", "chunk", chunk.ChunkID, "error", err)
		} else {
			raw = resp.Content
		}
	}
	return classify.CoerceClassification(raw, p.policy)
}

// extractClaim asks the provider for claim JSON and coerces the response,
// falling back to chunk-text bullets.
func (p *Pipeline) extractClaim(ctx context.Context, chunk model.Chunk, cls model.Classification, doc model.Document) model.Claim {
	raw := ""
	if p.provider != nil {
		resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
			System:      llm.ExtractSystemPrompt(),
			Prompt:      llm.BuildExtractPrompt(chunk, cls, doc),
			Temperature: 0,
		})
		if err != nil {
			logging.Warn("extraction call failed", "chunk", chunk.ChunkID, "error", err)
		} else {
			raw = resp.Content
		}
	}
	return classify.CoerceClaim(raw, chunk, cls, doc, p.policy)
}

// writeBrief writes the markdown into the output directory.
func (p *Pipeline) writeBrief(date, markdown string) (string, error) {
	dir := p.config.Brief.OutputDir
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("briefing_%s.md", date))
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("write brief: %w", err)
	}
	return path, nil
}
