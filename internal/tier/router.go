// Package tier partitions a claim set into three urgency tiers. The router
// is a pure function per run: no persisted state, and the three output sets
// are always pairwise disjoint and exhaustive over the input.
package tier

import (
	"fmt"
	"sort"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

// Router assigns claims to tiers under one policy.
type Router struct {
	policy *policy.Policy
}

// NewRouter creates a tier router.
func NewRouter(p *policy.Policy) *Router {
	return &Router{policy: p}
}

// ClusterKey groups claims for tier 2/3 evaluation: by ticker when present,
// else by claim type as a thematic key.
func ClusterKey(c model.Claim) string {
	if c.Ticker != "" {
		return "ticker:" + c.Ticker
	}
	return "theme:" + c.ClaimType
}

// Route partitions claims into tiers. Rules apply in order: individual
// urgency first (tier 1), then cluster promotion (tier 2), then reference
// (tier 3).
func (r *Router) Route(claims []model.Claim) model.TierAssignment {
	out := model.TierAssignment{
		Clusters: make(map[string][]model.Claim),
		Reasons:  make(map[string]string),
	}

	// Rule 1: urgent or contradicting claims go straight to tier 1.
	var remaining []model.Claim
	for _, c := range claims {
		if reason := tier1Reason(c); reason != "" {
			out.Tier1 = append(out.Tier1, c)
			out.Reasons[c.ClaimID] = reason
			continue
		}
		remaining = append(remaining, c)
	}

	// Rule 2: cluster the remainder.
	for _, c := range remaining {
		key := ClusterKey(c)
		out.Clusters[key] = append(out.Clusters[key], c)
	}

	// Rule 3: promote qualifying clusters to tier 2, the rest to tier 3.
	// Keys are walked in sorted order so output order is deterministic.
	keys := make([]string, 0, len(out.Clusters))
	for k := range out.Clusters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := out.Clusters[key]
		reason := r.tier2Reason(members)
		if len(members) >= 2 && reason != "" {
			for _, c := range members {
				out.Tier2 = append(out.Tier2, c)
				out.Reasons[c.ClaimID] = fmt.Sprintf("cluster %s: %s", key, reason)
			}
			continue
		}
		for _, c := range members {
			out.Tier3 = append(out.Tier3, c)
			out.Reasons[c.ClaimID] = "reference, no urgency"
		}
	}

	return out
}

// tier1Reason returns the routing reason when a claim qualifies for tier 1,
// or empty when it does not.
func tier1Reason(c model.Claim) string {
	switch c.TimeSensitivity {
	case model.SensitivityBreaking:
		return "breaking time sensitivity"
	case model.SensitivityUpcoming:
		return "upcoming catalyst"
	}
	switch c.BeliefPressure {
	case model.PressureContradictsPriors:
		return "contradicts prior assumptions"
	case model.PressureContradicts:
		return "contradicts consensus"
	}
	return ""
}

// tier2Reason evaluates cluster promotion: disagreement, agreement, or
// trend, in that precedence.
func (r *Router) tier2Reason(members []model.Claim) string {
	if len(members) < 2 {
		return ""
	}

	confirms := 0
	contradicts := 0
	pressures := make(map[model.BeliefPressure]int)
	for _, c := range members {
		pressures[c.BeliefPressure]++
		if c.BeliefPressure == model.PressureConfirms {
			confirms++
		}
		if c.BeliefPressure.Contradicts() {
			contradicts++
		}
	}

	// Disagreement: mixed confirm/contradict pressure inside one cluster.
	if confirms > 0 && contradicts > 0 {
		return "disagreement"
	}

	// Agreement: one uniform non-unclear pressure, or everyone confirming.
	if confirms == len(members) {
		return "agreement"
	}
	if len(pressures) == 1 {
		for p := range pressures {
			if p != model.PressureUnclear {
				return "agreement"
			}
		}
	}

	// Trend: a shared non-ongoing time sensitivity, or a shared claim type.
	sensitivities := make(map[model.TimeSensitivity]int)
	for _, c := range members {
		if c.TimeSensitivity != model.SensitivityOngoing {
			sensitivities[c.TimeSensitivity]++
		}
	}
	for _, n := range sensitivities {
		if n >= 2 {
			return "trend"
		}
	}

	if r.policy.TrendClaimTypePromotion {
		types := make(map[string]int)
		for _, c := range members {
			types[c.ClaimType]++
		}
		for _, n := range types {
			if n >= 2 {
				return "trend"
			}
		}
	}

	return ""
}
