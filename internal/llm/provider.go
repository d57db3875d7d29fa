// Package llm wraps the external model providers behind one completion
// interface. The pipeline only ever sees coerced output; provider failures
// degrade to defaults upstream.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
)

// Provider defines the interface for completion providers.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one prompt and returns the raw text response
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one completion call.
type CompletionRequest struct {
	// System is the system prompt framing the task
	System string

	// Prompt is the user content
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature; classification and extraction run at 0
	Temperature float32
}

// CompletionResponse contains the provider's raw output.
type CompletionResponse struct {
	// Content is the response text, typically JSON to be coerced
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 1000,
	}
}

const classifySystemPrompt = `You are a financial document classifier. Classify the given text chunk.

Output ONLY valid JSON with these fields:
- topic: one of (tracked_ticker, sector, macro, general)
- tickers: array of tracked stock tickers discussed. Only include tickers from the tracked list. Empty array if none.
- tmt_subtopic: if topic is sector, one of (cloud_enterprise_software, internet_digital_advertising, semiconductors_hardware, telecom_infrastructure, consumer_internet_media). null otherwise.
- content_type: one of (fact, interpretation, forecast, risk)
- time_horizon: one of (near_term, medium_term, long_term, unspecified)
- polarity: one of (positive, negative, neutral, mixed)
- novelty: one of (new, incremental, rehash)

Rules:
1. Output ONLY the JSON object, no markdown, no explanation
2. A chunk about a tracked ticker is tracked_ticker even if it also has sector implications
3. Boilerplate (disclosures, disclaimers, page headers/footers) is general
4. Never classify earnings results, guidance changes, M&A, leadership changes, or regulatory actions for a named company as general`

const extractSystemPrompt = `You are a claim extractor for financial research. Extract 1-2 atomic assertions from the text, verbatim where possible.

Output ONLY valid JSON with these fields:
- bullets: array of 1-2 strings, each one atomic assertion
- primary_ticker: the single most relevant ticker, or null
- claim_type: one of (thesis, catalyst, risk, data_point, rating_change, price_target, other)
- confidence_level: one of (low, medium, high)
- time_sensitivity: one of (breaking, upcoming, ongoing)
- belief_pressure: one of (confirms_consensus, contradicts_consensus, contradicts_prior_assumptions, unclear)
- event_type: one of (earnings, guidance, org, regulation, market) or null
- is_descriptive_event: true if the text describes a concrete event rather than opinion
- has_belief_delta: true if the text changes a prior view
- sector_implication: for macro claims only, one sentence linking to the sector, else null
- has_uncertainty: true if the source hedges

Rules:
- Do NOT rank importance
- Do NOT summarize across multiple sources
- Do NOT add narrative or connecting language
- Do NOT strengthen or weaken the original assertion`

// BuildClassifyPrompt assembles the user prompt for chunk classification.
func BuildClassifyPrompt(chunk model.Chunk, doc model.Document, universe []string) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Document: %s", doc.Title))
	if doc.Analyst != "" {
		parts = append(parts, fmt.Sprintf("Analyst: %s", doc.Analyst))
	}
	if doc.DatePublished != "" {
		parts = append(parts, fmt.Sprintf("Date: %s", doc.DatePublished))
	}
	parts = append(parts, fmt.Sprintf("Tracked tickers: %s", strings.Join(universe, ", ")))
	if section := chunk.Annotations["section"]; section != "" {
		parts = append(parts, fmt.Sprintf("Section: %s", section))
	}
	parts = append(parts, "", "Text to classify:", chunk.Text)
	return strings.Join(parts, "\n")
}

// BuildExtractPrompt assembles the user prompt for claim extraction.
func BuildExtractPrompt(chunk model.Chunk, cls model.Classification, doc model.Document) string {
	var parts []string
	source := doc.Source
	if source == "" {
		source = "Unknown"
	}
	parts = append(parts, fmt.Sprintf("Source: %s", source))
	if doc.Analyst != "" {
		parts = append(parts, fmt.Sprintf("Analyst: %s", doc.Analyst))
	}
	if doc.DatePublished != "" {
		parts = append(parts, fmt.Sprintf("Date: %s", doc.DatePublished))
	}
	if chunk.PageStart > 0 {
		parts = append(parts, fmt.Sprintf("Page: %d", chunk.PageStart))
	}
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("Content type: %s", cls.ContentType))
	parts = append(parts, fmt.Sprintf("Topic: %s", cls.Topic))
	if len(cls.AssetExposure) > 0 {
		parts = append(parts, fmt.Sprintf("Tickers: %s", strings.Join(cls.AssetExposure, ", ")))
	}
	parts = append(parts, "", "Text to extract claims from:", strings.TrimSpace(chunk.Text))
	return strings.Join(parts, "\n")
}

// ClassifySystemPrompt returns the fixed system prompt for classification.
func ClassifySystemPrompt() string { return classifySystemPrompt }

// ExtractSystemPrompt returns the fixed system prompt for claim extraction.
func ExtractSystemPrompt() string { return extractSystemPrompt }
