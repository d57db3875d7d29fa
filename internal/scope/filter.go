package scope

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
)

// Fewer surviving claims than this marks the day as thin.
const thinDayThreshold = 3

var dateLikeRe = regexp.MustCompile(`^\d{4}-`)

// BriefingScope restricts a brief to a sector, analyst set, and ticker set.
// A zero whitelist means no restriction on that axis.
type BriefingScope struct {
	Sector           string   `yaml:"sector"` // "ALL" skips sector filtering
	SubSectors       []string `yaml:"sub_sectors,omitempty"`
	AnalystWhitelist []string `yaml:"analyst_whitelist,omitempty"`
	TickerWhitelist  []string `yaml:"ticker_whitelist,omitempty"`
}

// FilterResult carries the surviving claims plus filtering metadata.
type FilterResult struct {
	Claims        []model.Claim
	OriginalCount int
	FilteredCount int
	ThinDay       bool
	ThinDayReason string
	Scope         BriefingScope
}

// DropRate is the fraction of input claims removed by the filter.
func (r FilterResult) DropRate() float64 {
	if r.OriginalCount == 0 {
		return 0
	}
	return 1.0 - float64(r.FilteredCount)/float64(r.OriginalCount)
}

// Summary returns a short accounting line for logs and the brief footer.
func (r FilterResult) Summary() string {
	s := fmt.Sprintf("scope filter: %d -> %d claims", r.OriginalCount, r.FilteredCount)
	if r.ThinDay {
		s += fmt.Sprintf(" (thin day: %s)", r.ThinDayReason)
	}
	return s
}

// ThinDayLabel returns the notice rendered into a thin-day brief, empty
// otherwise.
func (r FilterResult) ThinDayLabel() string {
	if !r.ThinDay {
		return ""
	}
	reason := r.ThinDayReason
	if reason == "" {
		reason = "Limited data"
	}
	return fmt.Sprintf("*Note: %s. No cross-report confirmation within scope.*", reason)
}

// subSectorTopics maps configured sub-sector names to the classification
// subtopics they cover. A sub-sector restriction keeps only claims whose
// chunk carries one of the covered subtopics.
var subSectorTopics = map[string][]string{
	"technology": {"cloud_enterprise_software", "semiconductors_hardware"},
	"media":      {"internet_digital_advertising", "consumer_internet_media"},
	"telecom":    {"telecom_infrastructure"},
}

// Filter applies a BriefingScope to extracted claims. Runs before tiering
// so out-of-sector content never dilutes the brief. subtopics maps chunk
// IDs to their classified subtopic and backs the sub-sector restriction;
// nil skips it.
func Filter(claims []model.Claim, scope BriefingScope, subtopics map[string]string) FilterResult {
	original := len(claims)

	if strings.EqualFold(scope.Sector, "ALL") {
		reason := ""
		if original < thinDayThreshold {
			reason = "Low volume"
		}
		return FilterResult{
			Claims:        claims,
			OriginalCount: original,
			FilteredCount: original,
			ThinDay:       original < thinDayThreshold,
			ThinDayReason: reason,
			Scope:         scope,
		}
	}

	var kept []model.Claim
	for _, c := range claims {
		if !tickerInScope(c.Ticker, scope.TickerWhitelist) {
			continue
		}
		if !analystInScope(c.SourceCitation, scope.AnalystWhitelist) {
			continue
		}
		if !subtopicInScope(subtopics[c.ChunkID], scope.SubSectors) {
			continue
		}
		kept = append(kept, c)
	}

	result := FilterResult{
		Claims:        kept,
		OriginalCount: original,
		FilteredCount: len(kept),
		Scope:         scope,
	}
	if len(kept) < thinDayThreshold {
		result.ThinDay = true
		switch {
		case original == 0:
			result.ThinDayReason = "No source data available"
		case len(kept) == 0:
			result.ThinDayReason = "No claims within scope"
		default:
			result.ThinDayReason = "Low volume within scope"
		}
	}
	return result
}

// subtopicInScope checks the sub-sector restriction. Claims whose chunk
// carries no subtopic pass: macro and general content is not tied to a
// sub-sector.
func subtopicInScope(subtopic string, subSectors []string) bool {
	if len(subSectors) == 0 || subtopic == "" {
		return true
	}
	for _, sec := range subSectors {
		for _, allowed := range subSectorTopics[strings.ToLower(sec)] {
			if allowed == subtopic {
				return true
			}
		}
	}
	return false
}

// tickerInScope checks the whitelist. Ticker-less claims pass: they may be
// macro or thematic and the mapper sorts them out later.
func tickerInScope(ticker string, whitelist []string) bool {
	if len(whitelist) == 0 || ticker == "" {
		return true
	}
	up := strings.ToUpper(ticker)
	for _, w := range whitelist {
		if strings.ToUpper(w) == up {
			return true
		}
	}
	return false
}

// analystInScope matches the citation's analyst against the whitelist with
// a case-insensitive partial match in either direction. Claims whose
// citation has no recognizable analyst are kept.
func analystInScope(citation string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}
	analyst := AnalystFromCitation(citation)
	if analyst == "" {
		return true
	}
	lower := strings.ToLower(analyst)
	for _, w := range whitelist {
		wl := strings.ToLower(w)
		if strings.Contains(lower, wl) || strings.Contains(wl, lower) {
			return true
		}
	}
	return false
}

// AnalystFromCitation pulls the analyst name out of a
// "Source, Analyst, p.N, date" citation. Returns empty when the second
// field looks like a page number or a date instead of a name.
func AnalystFromCitation(citation string) string {
	parts := strings.Split(citation, ",")
	if len(parts) < 2 {
		return ""
	}
	candidate := strings.TrimSpace(parts[1])
	if strings.HasPrefix(candidate, "p.") || dateLikeRe.MatchString(candidate) {
		return ""
	}
	return candidate
}
