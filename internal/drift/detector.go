// Package drift compares today's claims against a historical window and
// surfaces belief changes per ticker. Every signal cites the specific claims
// compared; a drift signal with no evidence trail is invalid.
package drift

import (
	"fmt"
	"math"
	"sort"

	"github.com/ppiankov/daybrief/internal/model"
)

const (
	shiftThreshold = 0.5 // minimum mean confidence move to fire
	shiftHigh      = 1.0 // move at or above this is high severity
)

// Detector finds drift between today's claims and the prior window.
type Detector struct {
	lookbackDays int
}

// NewDetector creates a detector for the given lookback window. The window
// length is informational; callers supply the prior claims themselves.
func NewDetector(lookbackDays int) *Detector {
	return &Detector{lookbackDays: lookbackDays}
}

// Detect runs all five drift checks per ticker and returns the signals
// sorted high to low severity. Prior claims are deduplicated by claim id
// before comparison.
func (d *Detector) Detect(today []model.Claim, prior []model.HistoricalClaim) []model.DriftSignal {
	prior = dedupeByClaimID(prior)

	todayByTicker := make(map[string][]model.Claim)
	for _, c := range today {
		if c.Ticker != "" {
			todayByTicker[c.Ticker] = append(todayByTicker[c.Ticker], c)
		}
	}
	priorByTicker := make(map[string][]model.HistoricalClaim)
	for _, c := range prior {
		if c.Ticker != "" {
			priorByTicker[c.Ticker] = append(priorByTicker[c.Ticker], c)
		}
	}

	tickers := make(map[string]bool)
	for t := range todayByTicker {
		tickers[t] = true
	}
	for t := range priorByTicker {
		tickers[t] = true
	}

	var signals []model.DriftSignal
	for _, ticker := range sortedKeys(tickers) {
		tc := todayByTicker[ticker]
		pc := priorByTicker[ticker]

		switch {
		case len(tc) > 0 && len(pc) > 0:
			if s := confidenceShift(ticker, tc, pc); s != nil {
				signals = append(signals, *s)
			}
			if s := beliefFlip(ticker, tc, pc); s != nil {
				signals = append(signals, *s)
			}
			if s := newDisagreement(ticker, tc, pc); s != nil {
				signals = append(signals, *s)
			}
		case len(tc) >= 2 && len(pc) == 0:
			signals = append(signals, resurgence(ticker, tc))
		case len(tc) == 0 && len(pc) >= 2:
			signals = append(signals, decay(ticker, pc))
		}
	}

	sort.SliceStable(signals, func(a, b int) bool {
		return signals[a].Severity.Rank() < signals[b].Severity.Rank()
	})

	return signals
}

// confidenceShift compares mean ordinal confidence across the window.
func confidenceShift(ticker string, today []model.Claim, prior []model.HistoricalClaim) *model.DriftSignal {
	todayMean := meanConfidence(confidences(today))
	priorMean := meanConfidence(confidencesHistorical(prior))

	diff := todayMean - priorMean
	if math.Abs(diff) < shiftThreshold {
		return nil
	}

	severity := model.DriftMedium
	if math.Abs(diff) >= shiftHigh {
		severity = model.DriftHigh
	}
	direction := "hardening"
	if diff < 0 {
		direction = "softening"
	}

	return &model.DriftSignal{
		Type:      model.DriftConfidenceShift,
		Severity:  severity,
		Ticker:    ticker,
		Direction: direction,
		Description: fmt.Sprintf("mean confidence moved %.1f -> %.1f (%s)",
			priorMean, todayMean, direction),
		Today: todayEvidence(today, func(c model.Claim) string { return string(c.Confidence) }),
		Prior: priorEvidence(prior, func(c model.HistoricalClaim) string { return string(c.Confidence) }),
	}
}

// beliefFlip fires when the dominant belief direction reverses and neither
// side is neutral.
func beliefFlip(ticker string, today []model.Claim, prior []model.HistoricalClaim) *model.DriftSignal {
	todayDir := dominantDirection(pressures(today))
	priorDir := dominantDirection(pressuresHistorical(prior))

	if todayDir == priorDir || todayDir == "neutral" || priorDir == "neutral" {
		return nil
	}

	return &model.DriftSignal{
		Type:     model.DriftBeliefFlip,
		Severity: model.DriftHigh,
		Ticker:   ticker,
		Description: fmt.Sprintf("dominant belief direction flipped %s -> %s",
			priorDir, todayDir),
		Today: todayEvidence(today, func(c model.Claim) string { return string(c.BeliefPressure) }),
		Prior: priorEvidence(prior, func(c model.HistoricalClaim) string { return string(c.BeliefPressure) }),
	}
}

// newDisagreement fires when today's cluster splits and the prior window did
// not.
func newDisagreement(ticker string, today []model.Claim, prior []model.HistoricalClaim) *model.DriftSignal {
	if len(today) < 2 || !hasSplit(pressures(today)) || hasSplit(pressuresHistorical(prior)) {
		return nil
	}

	return &model.DriftSignal{
		Type:        model.DriftNewDisagreement,
		Severity:    model.DriftHigh,
		Ticker:      ticker,
		Description: "sources split on " + ticker + " where the prior window agreed",
		Today:       todayEvidence(today, func(c model.Claim) string { return string(c.BeliefPressure) }),
		Prior:       priorEvidence(prior, func(c model.HistoricalClaim) string { return string(c.BeliefPressure) }),
	}
}

func resurgence(ticker string, today []model.Claim) model.DriftSignal {
	return model.DriftSignal{
		Type:        model.DriftResurgence,
		Severity:    model.DriftMedium,
		Ticker:      ticker,
		Description: fmt.Sprintf("%d claims today after a silent prior window", len(today)),
		Today:       todayEvidence(today, func(c model.Claim) string { return string(c.Confidence) }),
	}
}

func decay(ticker string, prior []model.HistoricalClaim) model.DriftSignal {
	return model.DriftSignal{
		Type:        model.DriftDecay,
		Severity:    model.DriftLow,
		Ticker:      ticker,
		Description: fmt.Sprintf("%d prior claims, none today", len(prior)),
		Prior:       priorEvidence(prior, func(c model.HistoricalClaim) string { return string(c.Confidence) }),
	}
}

// dominantDirection maps a pressure list to its most common ternary
// direction: confirms is positive, either contradiction is negative, unclear
// is neutral.
func dominantDirection(list []model.BeliefPressure) string {
	counts := map[string]int{}
	for _, p := range list {
		switch {
		case p == model.PressureConfirms:
			counts["positive"]++
		case p.Contradicts():
			counts["negative"]++
		default:
			counts["neutral"]++
		}
	}

	best, bestN := "neutral", 0
	// Fixed iteration order keeps ties deterministic.
	for _, dir := range []string{"positive", "negative", "neutral"} {
		if counts[dir] > bestN {
			best, bestN = dir, counts[dir]
		}
	}
	return best
}

func hasSplit(list []model.BeliefPressure) bool {
	confirms, contradicts := false, false
	for _, p := range list {
		if p == model.PressureConfirms {
			confirms = true
		}
		if p.Contradicts() {
			contradicts = true
		}
	}
	return confirms && contradicts
}

func meanConfidence(list []model.Confidence) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, c := range list {
		sum += model.ConfidenceOrdinal[c]
	}
	return float64(sum) / float64(len(list))
}

func confidences(claims []model.Claim) []model.Confidence {
	out := make([]model.Confidence, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.Confidence)
	}
	return out
}

func confidencesHistorical(claims []model.HistoricalClaim) []model.Confidence {
	out := make([]model.Confidence, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.Confidence)
	}
	return out
}

func pressures(claims []model.Claim) []model.BeliefPressure {
	out := make([]model.BeliefPressure, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.BeliefPressure)
	}
	return out
}

func pressuresHistorical(claims []model.HistoricalClaim) []model.BeliefPressure {
	out := make([]model.BeliefPressure, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.BeliefPressure)
	}
	return out
}

func todayEvidence(claims []model.Claim, detail func(model.Claim) string) []model.DriftEvidence {
	out := make([]model.DriftEvidence, 0, len(claims))
	for _, c := range claims {
		out = append(out, model.DriftEvidence{
			ClaimID: c.ClaimID,
			Text:    c.Text(),
			Source:  c.SourceCitation,
			Detail:  detail(c),
		})
	}
	return out
}

func priorEvidence(claims []model.HistoricalClaim, detail func(model.HistoricalClaim) string) []model.DriftEvidence {
	out := make([]model.DriftEvidence, 0, len(claims))
	for _, c := range claims {
		out = append(out, model.DriftEvidence{
			ClaimID: c.ClaimID,
			Text:    c.Text(),
			Source:  c.SourceCitation,
			Date:    c.DateStored,
			Detail:  detail(c),
		})
	}
	return out
}

func dedupeByClaimID(claims []model.HistoricalClaim) []model.HistoricalClaim {
	seen := make(map[string]bool)
	var out []model.HistoricalClaim
	for _, c := range claims {
		if seen[c.ClaimID] {
			continue
		}
		seen[c.ClaimID] = true
		out = append(out, c)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
