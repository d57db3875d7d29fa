package model

// DriftType classifies a detected change between today's claims and the
// historical window.
type DriftType string

const (
	DriftConfidenceShift DriftType = "confidence_shift" // mean confidence moved across the window
	DriftBeliefFlip      DriftType = "belief_flip"      // dominant belief direction reversed
	DriftNewDisagreement DriftType = "new_disagreement" // split appeared where there was none
	DriftResurgence      DriftType = "resurgence"       // ticker returned after silence
	DriftDecay           DriftType = "decay"            // active ticker went quiet
)

// DriftSeverity ranks drift signals for presentation.
type DriftSeverity string

const (
	DriftHigh   DriftSeverity = "high"
	DriftMedium DriftSeverity = "medium"
	DriftLow    DriftSeverity = "low"
)

// driftRank orders severities high to low for sorting.
var driftRank = map[DriftSeverity]int{
	DriftHigh:   0,
	DriftMedium: 1,
	DriftLow:    2,
}

// Rank returns the sort order of a severity (lower sorts first).
func (s DriftSeverity) Rank() int {
	if r, ok := driftRank[s]; ok {
		return r
	}
	return len(driftRank)
}

// DriftEvidence cites one specific claim compared by a drift signal.
// A drift signal with no evidence trail is invalid.
type DriftEvidence struct {
	ClaimID string `json:"claim_id"`
	Text    string `json:"text"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"`
	Detail  string `json:"detail,omitempty"` // confidence or pressure at the time
}

// DriftSignal is a detected change for one ticker, always naming the
// specific claims compared.
type DriftSignal struct {
	Type        DriftType       `json:"type"`
	Severity    DriftSeverity   `json:"severity"`
	Ticker      string          `json:"ticker"`
	Direction   string          `json:"direction,omitempty"` // "hardening" | "softening" for confidence shifts
	Description string          `json:"description"`
	Today       []DriftEvidence `json:"today,omitempty"`
	Prior       []DriftEvidence `json:"prior,omitempty"`
}
