// Package render assembles the word-budgeted daily brief.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
	"github.com/ppiankov/daybrief/internal/scope"
	"github.com/ppiankov/daybrief/internal/synth"
)

const (
	// Soft budget shares allocated up front. Tier 3 absorbs the remainder.
	tier1Share = 0.30
	tier2Share = 0.30
	tier3Floor = 300

	// Hard tolerance on the final document.
	overrunTolerance = 1.10

	maxPerCategory = 5
	maxPerGroup    = 3
)

// Input is everything the renderer needs for one day's brief.
type Input struct {
	Date         time.Time
	Tiers        model.TierAssignment
	Synthesis    synth.Synthesis
	Drift        []model.DriftSignal
	Index        *scope.Index // coverage index over the Tier 3 claims
	ThinDayLabel string
	Notices      []string // ingestion failures and other visible warnings
}

// Renderer writes briefs against a policy and a word budget.
type Renderer struct {
	policy     *policy.Policy
	wordBudget int
}

// NewRenderer returns a Renderer. A non-positive budget falls back to the
// standard 2,500 words.
func NewRenderer(p *policy.Policy, wordBudget int) *Renderer {
	if wordBudget <= 0 {
		wordBudget = 2500
	}
	return &Renderer{policy: p, wordBudget: wordBudget}
}

// Render produces the briefing document and its Markdown text. Tier 1 and
// Tier 2 content is never truncated; overruns come out of Tier 3 via the
// ladder: no-update lines, then items, then groups, then the whole section.
func (r *Renderer) Render(in Input) (*model.BriefingDocument, string) {
	doc := &model.BriefingDocument{
		Date:       in.Date.Format("2006-01-02"),
		WordBudget: r.wordBudget,
		Notices:    in.Notices,
	}

	header := r.renderHeader(in)
	tier1 := r.renderTier1(in.Tiers)
	tier2 := r.renderTier2(in.Synthesis, in.Drift)

	fixedWords := countWords(header.Lines) + tier1.WordCount + tier2.WordCount
	tier3Budget := r.wordBudget - fixedWords
	if tier3Budget < tier3Floor {
		tier3Budget = tier3Floor
	}

	var mentioned []model.Claim
	mentioned = append(mentioned, in.Tiers.Tier1...)
	mentioned = append(mentioned, in.Tiers.Tier2...)
	mentioned = append(mentioned, in.Tiers.Tier3...)
	tier3 := r.renderTier3(in.Index, mentioned, tier3Budget, doc)

	doc.Sections = []model.BriefSection{header, tier1, tier2, tier3}
	doc.WordCount = countWords(header.Lines) + tier1.WordCount + tier2.WordCount + tier3.WordCount

	// Final safety check. Drop no-update lines first, then the whole
	// Tier 3 body.
	limit := int(float64(r.wordBudget) * overrunTolerance)
	if doc.WordCount > limit {
		tier3 = dropNoUpdateLines(tier3)
		doc.Sections[3] = tier3
		doc.WordCount = countWords(header.Lines) + tier1.WordCount + tier2.WordCount + tier3.WordCount
		doc.Truncations = append(doc.Truncations, "tier3: no-update lines dropped")
	}
	if doc.WordCount > limit {
		tier3 = model.BriefSection{
			Title: tier3.Title,
			Lines: []string{"*Reference section omitted to stay within the page budget.*"},
		}
		tier3.WordCount = countWords(tier3.Lines)
		doc.Sections[3] = tier3
		doc.WordCount = countWords(header.Lines) + tier1.WordCount + tier2.WordCount + tier3.WordCount
		doc.Truncations = append(doc.Truncations, "tier3: section replaced with notice")
	}

	return doc, r.markdown(doc)
}

func (r *Renderer) renderHeader(in Input) model.BriefSection {
	var lines []string
	lines = append(lines, fmt.Sprintf("# Daily Briefing — %s", in.Date.Format("January 2, 2006")))
	if in.ThinDayLabel != "" {
		lines = append(lines, "", in.ThinDayLabel)
	}
	for _, n := range in.Notices {
		lines = append(lines, "", fmt.Sprintf("*Notice: %s*", n))
	}
	sec := model.BriefSection{Title: "header", Lines: lines}
	sec.WordCount = countWords(lines)
	return sec
}

// renderTier1 lays out action items: breaking first, then upcoming, then
// the remaining contradicting claims, each category capped.
func (r *Renderer) renderTier1(tiers model.TierAssignment) model.BriefSection {
	lines := []string{"## Tier 1: Action Required", "*Breaking developments, upcoming catalysts, contradicted assumptions*", ""}

	var breaking, upcoming, contradicting []model.Claim
	for _, c := range tiers.Tier1 {
		switch {
		case c.TimeSensitivity == model.SensitivityBreaking:
			breaking = append(breaking, c)
		case c.TimeSensitivity == model.SensitivityUpcoming:
			upcoming = append(upcoming, c)
		default:
			contradicting = append(contradicting, c)
		}
	}

	empty := true
	for _, cat := range []struct {
		label  string
		claims []model.Claim
	}{
		{"Breaking", breaking},
		{"Upcoming", upcoming},
		{"Contradicting", contradicting},
	} {
		if len(cat.claims) == 0 {
			continue
		}
		empty = false
		lines = append(lines, fmt.Sprintf("### %s", cat.label))
		capped := cat.claims
		if len(capped) > maxPerCategory {
			capped = capped[:maxPerCategory]
		}
		for _, c := range capped {
			lines = append(lines, r.claimLines(c, tiers.Reasons[c.ClaimID])...)
		}
		if n := len(cat.claims) - len(capped); n > 0 {
			lines = append(lines, fmt.Sprintf("- [%d more truncated]", n))
		}
		lines = append(lines, "")
	}
	if empty {
		lines = append(lines, "*No tier 1 items today.*")
	}

	sec := model.BriefSection{Title: "Tier 1", Lines: lines}
	sec.WordCount = countWords(lines)
	return sec
}

// claimLines renders one claim with its reason tag, high-alert marker, and
// citation. A claim with no text gets an explicit placeholder instead of
// vanishing.
func (r *Renderer) claimLines(c model.Claim, reason string) []string {
	text := c.Text()
	if text == "" {
		text = "*(claim text not found)*"
	}
	marker := ""
	if r.isHighAlert(c) {
		marker = "⚠ "
	}
	tag := ""
	if reason != "" {
		tag = fmt.Sprintf("[%s] ", reason)
	}
	citation := c.SourceCitation
	if citation == "" {
		citation = "(source not found)"
	}
	return []string{
		fmt.Sprintf("- %s%s%s", tag, marker, text),
		fmt.Sprintf("  *— %s*", citation),
	}
}

// isHighAlert covers the configured event types plus concrete operational
// metric events.
func (r *Renderer) isHighAlert(c model.Claim) bool {
	if r.policy.IsHighAlert(c.EventType) && c.IsDescriptiveEvent {
		return true
	}
	return c.EventType == "market" && c.IsDescriptiveEvent && c.HasBeliefDelta
}

func (r *Renderer) renderTier2(s synth.Synthesis, drift []model.DriftSignal) model.BriefSection {
	lines := []string{"## Tier 2: Synthesis Across Sources", "*Where sources agree, disagree, and what changed*", ""}

	if s.Narrative != "" {
		lines = append(lines, s.Narrative, "")
	}

	if len(s.Agreements) > 0 || len(s.Themes) > 0 {
		lines = append(lines, "### Agreement")
		for _, a := range append(append([]synth.AgreementCluster{}, s.Agreements...), s.Themes...) {
			lines = append(lines, fmt.Sprintf("**%s** (%d claims, %s)", a.Topic, a.Count, a.Direction))
			for _, sp := range a.Specifics {
				lines = append(lines, fmt.Sprintf("- %s", sp))
			}
			lines = append(lines, "")
		}
	}

	if len(s.Disagreements) > 0 {
		lines = append(lines, "### Disagreement")
		for _, d := range s.Disagreements {
			lines = append(lines, fmt.Sprintf("**%s**", d.Topic))
			for _, p := range []struct {
				name string
				pos  synth.Position
			}{{"Position A", d.PositionA}, {"Position B", d.PositionB}} {
				for _, sp := range p.pos.Specifics {
					lines = append(lines, fmt.Sprintf("- %s (%s): %s", p.name, p.pos.Label, sp))
				}
			}
			lines = append(lines, "")
		}
	} else if s.NoDisagreement {
		lines = append(lines, "*Clusters were large enough to test for disagreement; none was found.*", "")
	}

	if len(s.Deltas) > 0 {
		lines = append(lines, "### New Since Prior Period")
		for _, d := range s.Deltas {
			lines = append(lines, fmt.Sprintf("- %s: %s (%s)", d.Ticker, d.Detail, d.Kind))
		}
		lines = append(lines, "")
	}

	if len(drift) > 0 {
		lines = append(lines, "### Drift Watch")
		for _, sig := range drift {
			lines = append(lines, fmt.Sprintf("- **%s** %s [%s]: %s", sig.Ticker, sig.Type, sig.Severity, sig.Description))
		}
		lines = append(lines, "")
	}

	sec := model.BriefSection{Title: "Tier 2", Lines: lines}
	sec.WordCount = countWords(lines)
	return sec
}

// renderTier3 writes the reference index. Ticker groups go first with
// primary-coverage tickers ahead of the rest, then theme groups, then
// unlinked claims, all while the running count stays under the sub-budget.
func (r *Renderer) renderTier3(idx *scope.Index, mentioned []model.Claim, budget int, doc *model.BriefingDocument) model.BriefSection {
	lines := []string{"## Tier 3: Reference", "*Coverage-linked background, no urgency*", ""}
	used := countWords(lines)
	groupsSkipped := 0

	appendGroup := func(heading string, claims []model.Claim) {
		group := []string{heading}
		capped := claims
		if len(capped) > maxPerGroup {
			capped = capped[:maxPerGroup]
		}
		for _, c := range capped {
			group = append(group, r.claimLines(c, "")...)
		}
		if n := len(claims) - len(capped); n > 0 {
			group = append(group, fmt.Sprintf("- [%d more truncated]", n))
			doc.Truncations = append(doc.Truncations, fmt.Sprintf("tier3 %s: %d items", heading, n))
		}
		group = append(group, "")

		w := countWords(group)
		if used+w > budget {
			groupsSkipped++
			return
		}
		lines = append(lines, group...)
		used += w
	}

	if idx != nil {
		for _, ticker := range r.orderedTickers(idx) {
			appendGroup(fmt.Sprintf("**%s**", ticker), idx.ByTicker[ticker])
		}

		themes := make([]string, 0, len(idx.ByTheme))
		for th := range idx.ByTheme {
			themes = append(themes, th)
		}
		sort.Strings(themes)
		for _, th := range themes {
			appendGroup(fmt.Sprintf("**Theme: %s**", th), idx.ByTheme[th])
		}

		if len(idx.Unlinked) > 0 {
			appendGroup("**Outside Coverage**", idx.Unlinked)
		}
	}

	if groupsSkipped > 0 {
		lines = append(lines, fmt.Sprintf("[%d more groups truncated]", groupsSkipped), "")
		doc.Truncations = append(doc.Truncations, fmt.Sprintf("tier3: %d groups", groupsSkipped))
	}

	// Covered tickers with nothing filed today.
	quiet := r.quietTickers(idx, mentioned)
	for _, ticker := range quiet {
		line := fmt.Sprintf("**%s** — No Update", ticker)
		if used+countWords([]string{line}) > budget {
			break
		}
		lines = append(lines, line)
		used += countWords([]string{line})
	}

	sec := model.BriefSection{Title: "Tier 3", Lines: lines}
	sec.WordCount = countWords(lines)
	return sec
}

// orderedTickers sorts index tickers with primary coverage first, each
// block alphabetical.
func (r *Renderer) orderedTickers(idx *scope.Index) []string {
	var primary, rest []string
	for t := range idx.ByTicker {
		if r.policy.ClassifyTicker(t) == policy.TierPrimary {
			primary = append(primary, t)
		} else {
			rest = append(rest, t)
		}
	}
	sort.Strings(primary)
	sort.Strings(rest)
	return append(primary, rest...)
}

// quietTickers lists universe tickers with no claims anywhere today.
func (r *Renderer) quietTickers(idx *scope.Index, mentioned []model.Claim) []string {
	seen := make(map[string]bool)
	if idx != nil {
		for t := range idx.ByTicker {
			seen[t] = true
		}
	}
	for _, c := range mentioned {
		if c.Ticker != "" {
			seen[strings.ToUpper(c.Ticker)] = true
		}
	}

	var quiet []string
	for _, t := range r.policy.Universe() {
		if !seen[t] {
			quiet = append(quiet, t)
		}
	}
	return quiet
}

func dropNoUpdateLines(sec model.BriefSection) model.BriefSection {
	var kept []string
	for _, line := range sec.Lines {
		if strings.Contains(line, "— No Update") {
			continue
		}
		kept = append(kept, line)
	}
	sec.Lines = kept
	sec.WordCount = countWords(kept)
	return sec
}

func (r *Renderer) markdown(doc *model.BriefingDocument) string {
	var parts []string
	for i, sec := range doc.Sections {
		parts = append(parts, strings.Join(sec.Lines, "\n"))
		if i < len(doc.Sections)-1 {
			parts = append(parts, "\n---\n")
		}
	}
	return strings.Join(parts, "\n")
}

func countWords(lines []string) int {
	n := 0
	for _, line := range lines {
		n += len(strings.Fields(line))
	}
	return n
}
