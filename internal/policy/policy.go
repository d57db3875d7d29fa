// Package policy holds the externally supplied scoring and triage policy:
// axis weights, ticker universe, theme keyword tables, source credibility,
// and thresholds. The tables are configuration, not algorithm; they load
// from YAML with a built-in TMT default.
package policy

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/ppiankov/daybrief/internal/model"
	"gopkg.in/yaml.v3"
)

// Theme is one configured investment theme with its keyword membership table.
type Theme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Policy is the immutable scoring and triage policy for one run.
type Policy struct {
	// Axis weights. The six weights sum to 1.0.
	TopicWeight       float64 `yaml:"topic_weight"`
	SubtopicWeight    float64 `yaml:"subtopic_weight"`
	ContentTypeWeight float64 `yaml:"content_type_weight"`
	PolarityWeight    float64 `yaml:"polarity_weight"`
	TickerWeight      float64 `yaml:"ticker_weight"`
	SourceWeight      float64 `yaml:"source_weight"`

	// Axis value tables.
	TopicValues       map[model.Topic]float64       `yaml:"topic_values"`
	SubtopicValues    map[string]float64            `yaml:"subtopic_values"`
	ContentTypeValues map[model.ContentType]float64 `yaml:"content_type_values"`
	PolarityValues    map[model.Polarity]float64    `yaml:"polarity_values"`
	SourceCredibility map[string]float64            `yaml:"source_credibility"`

	// Ticker universe.
	PrimaryTickers   []string `yaml:"primary_tickers"`
	WatchlistTickers []string `yaml:"watchlist_tickers"`

	Themes []Theme `yaml:"themes"`

	// Thresholds.
	RelevanceThreshold        float64 `yaml:"relevance_threshold"`
	SimilarityThreshold       float64 `yaml:"similarity_threshold"`
	SameTickerSimilarity      float64 `yaml:"same_ticker_similarity"`
	MinSurvivors              int     `yaml:"min_survivors"`
	MaxOutput                 int     `yaml:"max_output"`
	TargetCompressionRatio    float64 `yaml:"target_compression_ratio"`
	UnknownSourceCredibility  float64 `yaml:"unknown_source_credibility"`
	SubtopicBaseline          float64 `yaml:"subtopic_baseline"` // non-sector chunks
	HighAlertEventTypes       []string `yaml:"high_alert_event_types"`

	// TrendClaimTypePromotion controls the broad trend rule that promotes
	// any cluster sharing a claim type to tier 2. Analysts who find it
	// over-promotes large thematic clusters can switch it off.
	TrendClaimTypePromotion bool `yaml:"trend_claim_type_promotion"`
}

// Default returns the built-in TMT policy.
func Default() *Policy {
	return &Policy{
		TopicWeight:       0.30,
		SubtopicWeight:    0.20,
		ContentTypeWeight: 0.15,
		PolarityWeight:    0.10,
		TickerWeight:      0.15,
		SourceWeight:      0.10,

		TopicValues: map[model.Topic]float64{
			model.TopicTrackedTicker: 1.0,
			model.TopicSector:        0.7,
			model.TopicMacro:         0.5,
			model.TopicGeneral:       0.0,
		},
		SubtopicValues: map[string]float64{
			"cloud_enterprise_software":    1.0,
			"internet_digital_advertising": 0.85,
			"semiconductors_hardware":      0.8,
			"consumer_internet_media":      0.7,
			"telecom_infrastructure":       0.5,
		},
		ContentTypeValues: map[model.ContentType]float64{
			model.ContentFact:           1.0,
			model.ContentForecast:       0.9,
			model.ContentRisk:           0.85,
			model.ContentInterpretation: 0.7,
		},
		PolarityValues: map[model.Polarity]float64{
			model.PolarityPositive: 1.0,
			model.PolarityNegative: 1.0,
			model.PolarityMixed:    0.8,
			model.PolarityNeutral:  0.6,
		},
		SourceCredibility: map[string]float64{
			"jefferies":      0.8,
			"jpmorgan":       0.8,
			"morgan_stanley": 0.8,
			"goldman":        0.8,
			"bernstein":      0.8,
			"bofa":           0.75,
			"citi":           0.75,
			"ubs":            0.75,
			"barclays":       0.75,
			"substack":       0.75,
			"podcast":        0.65,
			"x":              0.4,
		},

		PrimaryTickers: []string{
			"META", "GOOGL", "AMZN", "AAPL", "BABA", "700.HK", "MSFT",
			"CRWD", "ZS", "PANW", "NET", "DDOG", "SNOW", "MDB",
		},
		WatchlistTickers: []string{
			"NFLX", "SPOT", "U", "APP", "RBLX", "ORCL", "PLTR", "SHOP",
		},

		Themes: []Theme{
			{Name: "AI Infrastructure", Keywords: []string{
				"ai", "artificial intelligence", "gpu", "datacenter", "data center",
				"inference", "training", "llm", "accelerator", "capex",
			}},
			{Name: "Cloud & SaaS", Keywords: []string{
				"cloud", "saas", "azure", "aws", "gcp", "subscription",
				"arr", "enterprise software", "workload",
			}},
			{Name: "Cybersecurity", Keywords: []string{
				"security", "cyber", "breach", "firewall", "endpoint",
				"zero trust", "ransomware", "siem",
			}},
			{Name: "Digital Advertising", Keywords: []string{
				"advertising", "ads", "ad spend", "cpm", "cpc",
				"impressions", "monetization", "dau", "mau",
			}},
		},

		RelevanceThreshold:       0.7,
		SimilarityThreshold:      0.30,
		SameTickerSimilarity:     0.20,
		MinSurvivors:             5,
		MaxOutput:                40,
		TargetCompressionRatio:   2.0,
		UnknownSourceCredibility: 0.3,
		SubtopicBaseline:         0.8,
		HighAlertEventTypes:      []string{"earnings", "guidance", "org", "regulation"},
		TrendClaimTypePromotion:  true,
	}
}

// Load reads a policy file, falling back to Default when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	return p, nil
}

// TickerTier classifies a ticker against the configured universe.
type TickerTier string

const (
	TierPrimary     TickerTier = "primary"
	TierWatchlist   TickerTier = "watchlist"
	TierOffCoverage TickerTier = "off_coverage"
	TierNone        TickerTier = "none"
)

// ClassifyTicker returns the coverage tier for a ticker. Empty ticker is
// TierNone; anything outside both lists is off-coverage.
func (p *Policy) ClassifyTicker(ticker string) TickerTier {
	if ticker == "" {
		return TierNone
	}
	up := strings.ToUpper(ticker)
	for _, t := range p.PrimaryTickers {
		if t == up {
			return TierPrimary
		}
	}
	for _, t := range p.WatchlistTickers {
		if t == up {
			return TierWatchlist
		}
	}
	return TierOffCoverage
}

// Universe returns the deduplicated primary+watchlist ticker list.
func (p *Policy) Universe() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range p.PrimaryTickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range p.WatchlistTickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// InUniverse reports whether a ticker is tracked at all.
func (p *Policy) InUniverse(ticker string) bool {
	tier := p.ClassifyTicker(ticker)
	return tier == TierPrimary || tier == TierWatchlist
}

// MatchTheme returns the first configured theme whose keyword table matches
// the text, or empty when none match. Single-word keywords match whole words
// only; phrases match as substrings.
func (p *Policy) MatchTheme(text string) string {
	matches := p.MatchThemes(text)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// MatchThemes returns every configured theme whose keyword table matches
// the text, in policy order.
func (p *Policy) MatchThemes(text string) []string {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		words[w] = true
	}

	var matched []string
	for _, theme := range p.Themes {
		for _, kw := range theme.Keywords {
			if strings.ContainsRune(kw, ' ') {
				if strings.Contains(lower, kw) {
					matched = append(matched, theme.Name)
					break
				}
			} else if words[kw] {
				matched = append(matched, theme.Name)
				break
			}
		}
	}
	return matched
}

// IsHighAlert reports whether an event type warrants the high-alert flag in
// the rendered brief.
func (p *Policy) IsHighAlert(eventType string) bool {
	for _, e := range p.HighAlertEventTypes {
		if e == eventType {
			return true
		}
	}
	return false
}
