// Package scope maps claims onto the coverage universe and filters them
// by sector, analyst, and ticker scope before tiering.
package scope

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

var (
	dollarTickerRe = regexp.MustCompile(`\$([A-Z]{2,5})`)
	parenTickerRe  = regexp.MustCompile(`\(([A-Z]{2,5})\)`)
)

// Priority grades a mapping by the best ticker tier it touches.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityNone   Priority = "none"
)

// Mapping links one claim to the coverage universe. Linking only, no
// analysis.
type Mapping struct {
	Claim          model.Claim
	CoveredTickers []string
	RelatedThemes  []string
	Priority       Priority
}

// HasCoverage reports whether the claim maps to any ticker or theme.
func (m Mapping) HasCoverage() bool {
	return len(m.CoveredTickers) > 0 || len(m.RelatedThemes) > 0
}

// Index organizes reference claims for the Tier 3 section of the brief.
type Index struct {
	ByTicker map[string][]model.Claim
	ByTheme  map[string][]model.Claim
	Mappings []Mapping
	Unlinked []model.Claim
}

// Mapper builds coverage indexes against a policy's universe and themes.
type Mapper struct {
	policy *policy.Policy
}

// NewMapper returns a Mapper for the given policy.
func NewMapper(p *policy.Policy) *Mapper {
	return &Mapper{policy: p}
}

// BuildIndex maps each claim to covered tickers and themes. Claims with no
// match land in Unlinked.
func (m *Mapper) BuildIndex(claims []model.Claim) *Index {
	idx := &Index{
		ByTicker: make(map[string][]model.Claim),
		ByTheme:  make(map[string][]model.Claim),
	}

	for _, claim := range claims {
		covered := m.coveredTickers(claim)
		themes := m.policy.MatchThemes(claim.Text())

		mapping := Mapping{
			Claim:          claim,
			CoveredTickers: covered,
			RelatedThemes:  themes,
			Priority:       m.priority(covered),
		}
		idx.Mappings = append(idx.Mappings, mapping)

		for _, t := range covered {
			idx.ByTicker[t] = append(idx.ByTicker[t], claim)
		}
		for _, th := range themes {
			idx.ByTheme[th] = append(idx.ByTheme[th], claim)
		}
		if !mapping.HasCoverage() {
			idx.Unlinked = append(idx.Unlinked, claim)
		}
	}
	return idx
}

// coveredTickers collects universe tickers a claim relates to: its direct
// ticker plus any mentioned in its bullets.
func (m *Mapper) coveredTickers(claim model.Claim) []string {
	related := make(map[string]bool)

	if claim.Ticker != "" && m.policy.InUniverse(claim.Ticker) {
		related[strings.ToUpper(claim.Ticker)] = true
	}
	for _, bullet := range claim.Bullets {
		for _, t := range extractTickers(bullet) {
			if m.policy.InUniverse(t) {
				related[t] = true
			}
		}
	}

	out := make([]string, 0, len(related))
	for t := range related {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// extractTickers scans text for $SYM and (SYM) mentions. Literal universe
// symbols are matched by the caller via InUniverse over word boundaries.
func extractTickers(text string) []string {
	found := make(map[string]bool)
	for _, match := range dollarTickerRe.FindAllStringSubmatch(text, -1) {
		found[match[1]] = true
	}
	for _, match := range parenTickerRe.FindAllStringSubmatch(text, -1) {
		found[match[1]] = true
	}
	// Bare symbols as whole words, uppercased.
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '.'
	}) {
		if len(word) >= 2 && len(word) <= 6 {
			found[word] = true
		}
	}

	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// priority returns the best tier among the covered tickers.
func (m *Mapper) priority(tickers []string) Priority {
	for _, t := range tickers {
		if m.policy.ClassifyTicker(t) == policy.TierPrimary {
			return PriorityHigh
		}
	}
	for _, t := range tickers {
		if m.policy.ClassifyTicker(t) == policy.TierWatchlist {
			return PriorityMedium
		}
	}
	return PriorityNone
}

// HighPriorityClaims returns claims linked to primary-coverage tickers.
func (idx *Index) HighPriorityClaims() []model.Claim {
	var out []model.Claim
	for _, m := range idx.Mappings {
		if m.Priority == PriorityHigh {
			out = append(out, m.Claim)
		}
	}
	return out
}

// Summary returns a one-line accounting of the index.
func (idx *Index) Summary() string {
	linked := 0
	for _, m := range idx.Mappings {
		if m.HasCoverage() {
			linked++
		}
	}
	return fmt.Sprintf("linked %d, unlinked %d, tickers %d, themes %d",
		linked, len(idx.Unlinked), len(idx.ByTicker), len(idx.ByTheme))
}
