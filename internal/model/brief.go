package model

// Tier is one of the three urgency buckets.
type Tier int

const (
	Tier1 Tier = 1 // immediate: breaking, upcoming, contradicting
	Tier2 Tier = 2 // synthesized signal from clusters
	Tier3 Tier = 3 // reference, no urgency
)

// TierAssignment partitions a claim set into three disjoint, exhaustive
// groups. Reasons carries the machine-derived routing reason per claim id.
type TierAssignment struct {
	Tier1    []Claim            `json:"tier1"`
	Tier2    []Claim            `json:"tier2"`
	Tier3    []Claim            `json:"tier3"`
	Clusters map[string][]Claim `json:"clusters,omitempty"` // cluster key -> members (tiers 2 and 3)
	Reasons  map[string]string  `json:"reasons,omitempty"`  // claim id -> routing reason
}

// Total returns the number of claims across all three tiers.
func (a TierAssignment) Total() int {
	return len(a.Tier1) + len(a.Tier2) + len(a.Tier3)
}

// BriefSection is one ordered section of the rendered brief.
type BriefSection struct {
	Title     string   `json:"title"`
	Lines     []string `json:"lines"`
	WordCount int      `json:"word_count"`
}

// BriefingDocument is the rendered output: ordered sections under a hard
// word budget, with an explicit record of every truncation applied.
type BriefingDocument struct {
	Date        string         `json:"date"` // YYYY-MM-DD
	Sections    []BriefSection `json:"sections"`
	WordBudget  int            `json:"word_budget"`
	WordCount   int            `json:"word_count"`
	Truncations []string       `json:"truncations,omitempty"` // what was cut, in order applied
	Notices     []string       `json:"notices,omitempty"`     // ingestion failures, thin day, etc.
}
