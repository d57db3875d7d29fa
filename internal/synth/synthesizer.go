// Package synth builds the tier 2 signal: agreement, disagreement, and
// day-over-day deltas among clustered claims. Excerpts are always verbatim
// claim bullets, never paraphrased into new claims, and the absence of
// disagreement in a testable cluster is itself reported.
package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

const (
	maxAgreementExcerpts    = 3
	maxDisagreementExcerpts = 2
)

// Narrator generates an optional prose narrative for the synthesis. A nil
// narrator or a failed call falls back to the deterministic summary.
type Narrator interface {
	Narrate(ctx context.Context, prompt string) (string, error)
}

// AgreementCluster is two or more claims pulling the same direction on one
// topic.
type AgreementCluster struct {
	Topic     string   `json:"topic"` // ticker, "<ticker> (contrarian)", or theme name
	Count     int      `json:"count"`
	Direction string   `json:"direction"` // "confirming" | "contradicting"
	Specifics []string `json:"specifics"` // verbatim bullets, capped
}

// Position is one side of a disagreement with its supporting excerpts.
type Position struct {
	Label     string   `json:"label"`
	Specifics []string `json:"specifics"`
}

// Disagreement is a cluster holding both confirming and contradicting
// members, or both forecast and risk claims.
type Disagreement struct {
	Topic     string   `json:"topic"`
	PositionA Position `json:"position_a"`
	PositionB Position `json:"position_b"`
}

// Delta is a day-over-day change versus the prior claim set.
type Delta struct {
	Ticker string `json:"ticker"`
	Kind   string `json:"kind"` // new_coverage | new_pressure | breaking_proxy
	Detail string `json:"detail"`
}

// Synthesis is the complete tier 2 output.
type Synthesis struct {
	Agreements     []AgreementCluster `json:"agreements,omitempty"`
	Themes         []AgreementCluster `json:"themes,omitempty"`
	Disagreements  []Disagreement     `json:"disagreements,omitempty"`
	NoDisagreement bool               `json:"no_disagreement"` // testable cluster existed, none found
	Deltas         []Delta            `json:"deltas,omitempty"`
	Narrative      string             `json:"narrative,omitempty"`
}

// Synthesizer detects agreement, disagreement, and deltas under one policy.
type Synthesizer struct {
	policy   *policy.Policy
	narrator Narrator // nil disables LLM narrative
}

// NewSynthesizer creates a synthesizer. The narrator may be nil.
func NewSynthesizer(p *policy.Policy, narrator Narrator) *Synthesizer {
	return &Synthesizer{policy: p, narrator: narrator}
}

// Synthesize analyzes today's claims against an optional prior set. When
// prior is nil, "breaking" time sensitivity stands in as the newness proxy.
func (s *Synthesizer) Synthesize(ctx context.Context, today []model.Claim, prior []model.HistoricalClaim) *Synthesis {
	out := &Synthesis{}

	byTicker := groupByTicker(today)
	tickers := sortedKeys(byTicker)

	testable := false
	for _, ticker := range tickers {
		members := byTicker[ticker]
		if len(members) >= 2 {
			testable = true
		}

		s.appendAgreements(out, ticker, members)
		s.appendDisagreements(out, ticker, members)
	}
	out.NoDisagreement = testable && len(out.Disagreements) == 0

	out.Themes = s.themeClusters(today)
	out.Deltas = s.deltas(today, prior)

	out.Narrative = s.narrative(ctx, out)

	return out
}

// appendAgreements detects confirming and contradicting runs for one ticker.
func (s *Synthesizer) appendAgreements(out *Synthesis, ticker string, members []model.Claim) {
	var confirming, contradicting []model.Claim
	for _, c := range members {
		if c.BeliefPressure == model.PressureConfirms {
			confirming = append(confirming, c)
		}
		if c.BeliefPressure.Contradicts() {
			contradicting = append(contradicting, c)
		}
	}

	if len(confirming) >= 2 {
		out.Agreements = append(out.Agreements, AgreementCluster{
			Topic:     ticker,
			Count:     len(confirming),
			Direction: "confirming",
			Specifics: excerpts(confirming, maxAgreementExcerpts),
		})
	}
	if len(contradicting) >= 2 {
		out.Agreements = append(out.Agreements, AgreementCluster{
			Topic:     ticker + " (contrarian)",
			Count:     len(contradicting),
			Direction: "contradicting",
			Specifics: excerpts(contradicting, maxAgreementExcerpts),
		})
	}
}

// appendDisagreements detects mixed-pressure and forecast-vs-risk splits for
// one ticker, rendered as two explicit positions with verbatim excerpts.
func (s *Synthesizer) appendDisagreements(out *Synthesis, ticker string, members []model.Claim) {
	var confirming, contradicting, forecasts, risks []model.Claim
	for _, c := range members {
		if c.BeliefPressure == model.PressureConfirms {
			confirming = append(confirming, c)
		}
		if c.BeliefPressure.Contradicts() {
			contradicting = append(contradicting, c)
		}
		switch c.ClaimType {
		case "forecast":
			forecasts = append(forecasts, c)
		case "risk":
			risks = append(risks, c)
		}
	}

	if len(confirming) > 0 && len(contradicting) > 0 {
		out.Disagreements = append(out.Disagreements, Disagreement{
			Topic: ticker,
			PositionA: Position{
				Label:     "confirms consensus",
				Specifics: excerpts(confirming, maxDisagreementExcerpts),
			},
			PositionB: Position{
				Label:     "contradicts",
				Specifics: excerpts(contradicting, maxDisagreementExcerpts),
			},
		})
		return
	}

	if len(forecasts) > 0 && len(risks) > 0 {
		out.Disagreements = append(out.Disagreements, Disagreement{
			Topic: ticker + " outlook",
			PositionA: Position{
				Label:     "forecast",
				Specifics: excerpts(forecasts, maxDisagreementExcerpts),
			},
			PositionB: Position{
				Label:     "risk",
				Specifics: excerpts(risks, maxDisagreementExcerpts),
			},
		})
	}
}

// themeClusters groups ticker-less claims by the policy theme keyword
// tables.
func (s *Synthesizer) themeClusters(today []model.Claim) []AgreementCluster {
	byTheme := make(map[string][]model.Claim)
	for _, c := range today {
		if c.Ticker != "" {
			continue
		}
		if theme := s.policy.MatchTheme(c.Text()); theme != "" {
			byTheme[theme] = append(byTheme[theme], c)
		}
	}

	var out []AgreementCluster
	for _, theme := range sortedKeys(byTheme) {
		members := byTheme[theme]
		if len(members) < 2 {
			continue
		}
		out = append(out, AgreementCluster{
			Topic:     theme,
			Count:     len(members),
			Direction: "thematic",
			Specifics: excerpts(members, maxAgreementExcerpts),
		})
	}
	return out
}

// deltas compares today against the prior set: new ticker coverage and
// belief-pressure values absent from the prior window. Without a prior set,
// breaking claims are flagged as the newness proxy.
func (s *Synthesizer) deltas(today []model.Claim, prior []model.HistoricalClaim) []Delta {
	if prior == nil {
		var out []Delta
		seen := make(map[string]bool)
		for _, c := range today {
			if c.TimeSensitivity == model.SensitivityBreaking && c.Ticker != "" && !seen[c.Ticker] {
				seen[c.Ticker] = true
				out = append(out, Delta{
					Ticker: c.Ticker,
					Kind:   "breaking_proxy",
					Detail: "breaking claim with no prior set to compare against",
				})
			}
		}
		return out
	}

	priorTickers := make(map[string]bool)
	priorPressures := make(map[string]map[model.BeliefPressure]bool)
	for _, p := range prior {
		if p.Ticker == "" {
			continue
		}
		priorTickers[p.Ticker] = true
		if priorPressures[p.Ticker] == nil {
			priorPressures[p.Ticker] = make(map[model.BeliefPressure]bool)
		}
		priorPressures[p.Ticker][p.BeliefPressure] = true
	}

	var out []Delta
	seenCoverage := make(map[string]bool)
	seenPressure := make(map[string]bool)
	for _, c := range today {
		if c.Ticker == "" {
			continue
		}
		if !priorTickers[c.Ticker] {
			if !seenCoverage[c.Ticker] {
				seenCoverage[c.Ticker] = true
				out = append(out, Delta{
					Ticker: c.Ticker,
					Kind:   "new_coverage",
					Detail: "no claims for this ticker in the prior window",
				})
			}
			continue
		}
		if !priorPressures[c.Ticker][c.BeliefPressure] {
			key := c.Ticker + "/" + string(c.BeliefPressure)
			if !seenPressure[key] {
				seenPressure[key] = true
				out = append(out, Delta{
					Ticker: c.Ticker,
					Kind:   "new_pressure",
					Detail: fmt.Sprintf("belief pressure %q absent in the prior window", c.BeliefPressure),
				})
			}
		}
	}
	return out
}

// narrative produces the prose summary: LLM when a narrator is configured
// and succeeds, deterministic fallback otherwise.
func (s *Synthesizer) narrative(ctx context.Context, syn *Synthesis) string {
	if s.narrator != nil {
		if text, err := s.narrator.Narrate(ctx, BuildNarrativePrompt(syn)); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return FallbackNarrative(syn)
}

// BuildNarrativePrompt renders the structured synthesis as an LLM prompt.
// The instructions forbid thesis language: the narrative describes what
// sources said, never what to believe.
func BuildNarrativePrompt(syn *Synthesis) string {
	var b strings.Builder
	b.WriteString("Summarize the following cross-source signal in 3-5 sentences. ")
	b.WriteString("Describe only what the sources said. Do not recommend, predict, or form a thesis. ")
	b.WriteString("Preserve uncertainty and attribute disagreement to both sides.\n\n")

	for _, a := range syn.Agreements {
		fmt.Fprintf(&b, "Agreement on %s (%d %s claims):\n", a.Topic, a.Count, a.Direction)
		for _, sp := range a.Specifics {
			fmt.Fprintf(&b, "- %s\n", sp)
		}
	}
	for _, d := range syn.Disagreements {
		fmt.Fprintf(&b, "Disagreement on %s: %s vs %s\n", d.Topic, d.PositionA.Label, d.PositionB.Label)
	}
	for _, d := range syn.Deltas {
		fmt.Fprintf(&b, "Delta: %s %s (%s)\n", d.Ticker, d.Kind, d.Detail)
	}
	if syn.NoDisagreement {
		b.WriteString("Note: clusters were large enough to test for disagreement and none was found.\n")
	}

	return b.String()
}

// FallbackNarrative is the deterministic summary used when no LLM is
// available.
func FallbackNarrative(syn *Synthesis) string {
	var parts []string

	for _, a := range syn.Agreements {
		parts = append(parts, fmt.Sprintf("%d sources align on %s (%s)", a.Count, a.Topic, a.Direction))
	}
	for _, th := range syn.Themes {
		parts = append(parts, fmt.Sprintf("%d claims cluster around %s", th.Count, th.Topic))
	}
	for _, d := range syn.Disagreements {
		parts = append(parts, fmt.Sprintf("sources split on %s (%s vs %s)", d.Topic, d.PositionA.Label, d.PositionB.Label))
	}
	for _, d := range syn.Deltas {
		parts = append(parts, fmt.Sprintf("%s: %s", d.Ticker, strings.ReplaceAll(d.Kind, "_", " ")))
	}
	if syn.NoDisagreement {
		parts = append(parts, "no disagreement found across testable clusters")
	}

	if len(parts) == 0 {
		return "No cross-source signal today."
	}
	return strings.Join(parts, "; ") + "."
}

func groupByTicker(claims []model.Claim) map[string][]model.Claim {
	out := make(map[string][]model.Claim)
	for _, c := range claims {
		if c.Ticker == "" {
			continue
		}
		out[c.Ticker] = append(out[c.Ticker], c)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// excerpts takes up to n verbatim first bullets from a claim list.
func excerpts(claims []model.Claim, n int) []string {
	var out []string
	for _, c := range claims {
		if len(out) >= n {
			break
		}
		if len(c.Bullets) > 0 {
			out = append(out, c.Bullets[0])
		}
	}
	return out
}
