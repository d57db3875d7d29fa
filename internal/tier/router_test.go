package tier

import (
	"fmt"
	"testing"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

func claim(id, ticker, claimType string, ts model.TimeSensitivity, bp model.BeliefPressure) model.Claim {
	return model.Claim{
		ClaimID:         id,
		Ticker:          ticker,
		ClaimType:       claimType,
		TimeSensitivity: ts,
		BeliefPressure:  bp,
		Bullets:         []string{"bullet for " + id},
	}
}

func assertPartition(t *testing.T, input []model.Claim, a model.TierAssignment) {
	t.Helper()

	if a.Total() != len(input) {
		t.Fatalf("expected %d claims across tiers, got %d", len(input), a.Total())
	}

	seen := make(map[string]int)
	for _, c := range a.Tier1 {
		seen[c.ClaimID]++
	}
	for _, c := range a.Tier2 {
		seen[c.ClaimID]++
	}
	for _, c := range a.Tier3 {
		seen[c.ClaimID]++
	}
	for _, c := range input {
		if seen[c.ClaimID] != 1 {
			t.Errorf("claim %s appears %d times across tiers, want exactly 1", c.ClaimID, seen[c.ClaimID])
		}
	}
}

func TestRoute_EmptyInput(t *testing.T) {
	a := NewRouter(policy.Default()).Route(nil)
	assertPartition(t, nil, a)
}

func TestRoute_Tier1Rules(t *testing.T) {
	r := NewRouter(policy.Default())

	tests := []struct {
		c      model.Claim
		reason string
	}{
		{claim("breaking", "MSFT", "catalyst", model.SensitivityBreaking, model.PressureUnclear), "breaking time sensitivity"},
		{claim("upcoming", "MSFT", "catalyst", model.SensitivityUpcoming, model.PressureUnclear), "upcoming catalyst"},
		{claim("contra", "MSFT", "thesis", model.SensitivityOngoing, model.PressureContradicts), "contradicts consensus"},
		{claim("priors", "MSFT", "thesis", model.SensitivityOngoing, model.PressureContradictsPriors), "contradicts prior assumptions"},
	}

	for _, tt := range tests {
		a := r.Route([]model.Claim{tt.c})
		if len(a.Tier1) != 1 {
			t.Errorf("%s: expected tier 1, got tier1=%d tier2=%d tier3=%d", tt.c.ClaimID, len(a.Tier1), len(a.Tier2), len(a.Tier3))
			continue
		}
		if a.Reasons[tt.c.ClaimID] != tt.reason {
			t.Errorf("%s: expected reason %q, got %q", tt.c.ClaimID, tt.reason, a.Reasons[tt.c.ClaimID])
		}
	}
}

func TestRoute_AgreementCluster(t *testing.T) {
	r := NewRouter(policy.Default())
	input := []model.Claim{
		claim("a", "GOOGL", "thesis", model.SensitivityOngoing, model.PressureConfirms),
		claim("b", "GOOGL", "data_point", model.SensitivityOngoing, model.PressureConfirms),
	}

	a := r.Route(input)
	assertPartition(t, input, a)
	if len(a.Tier2) != 2 {
		t.Fatalf("expected agreement cluster in tier 2, got %d", len(a.Tier2))
	}
	if a.Reasons["a"] != "cluster ticker:GOOGL: agreement" {
		t.Errorf("unexpected reason: %q", a.Reasons["a"])
	}
}

func TestRoute_TrendByClaimType(t *testing.T) {
	r := NewRouter(policy.Default())
	input := []model.Claim{
		claim("a", "", "data_point", model.SensitivityOngoing, model.PressureUnclear),
		claim("b", "", "data_point", model.SensitivityOngoing, model.PressureUnclear),
	}

	a := r.Route(input)
	if len(a.Tier2) != 2 {
		t.Fatalf("expected theme cluster promoted by shared claim type, tier2=%d", len(a.Tier2))
	}
	if a.Reasons["a"] != "cluster theme:data_point: trend" {
		t.Errorf("unexpected reason: %q", a.Reasons["a"])
	}

	// With the broad rule switched off, the same cluster stays in tier 3.
	p := policy.Default()
	p.TrendClaimTypePromotion = false
	a2 := NewRouter(p).Route(input)
	if len(a2.Tier3) != 2 {
		t.Errorf("expected cluster in tier 3 with promotion off, tier3=%d", len(a2.Tier3))
	}
}

func TestRoute_SingletonFallsToTier3(t *testing.T) {
	r := NewRouter(policy.Default())
	input := []model.Claim{
		claim("solo", "AAPL", "thesis", model.SensitivityOngoing, model.PressureUnclear),
	}

	a := r.Route(input)
	assertPartition(t, input, a)
	if len(a.Tier3) != 1 {
		t.Fatalf("expected singleton in tier 3, got tier3=%d", len(a.Tier3))
	}
	if a.Reasons["solo"] != "reference, no urgency" {
		t.Errorf("unexpected reason: %q", a.Reasons["solo"])
	}
}

func TestRoute_DisjointExhaustiveMixedLoad(t *testing.T) {
	r := NewRouter(policy.Default())

	var input []model.Claim
	// Tier 1 candidates.
	input = append(input,
		claim("t1a", "MSFT", "catalyst", model.SensitivityBreaking, model.PressureUnclear),
		claim("t1b", "NVDA", "thesis", model.SensitivityOngoing, model.PressureContradicts),
	)
	// Agreement cluster.
	input = append(input,
		claim("t2a", "GOOGL", "thesis", model.SensitivityOngoing, model.PressureConfirms),
		claim("t2b", "GOOGL", "thesis", model.SensitivityOngoing, model.PressureConfirms),
	)
	// Loose singles.
	for i := 0; i < 4; i++ {
		input = append(input, claim(fmt.Sprintf("t3-%d", i), fmt.Sprintf("TK%d", i), fmt.Sprintf("type%d", i), model.SensitivityOngoing, model.PressureUnclear))
	}

	a := r.Route(input)
	assertPartition(t, input, a)

	if len(a.Tier1) != 2 {
		t.Errorf("expected 2 tier 1 claims, got %d", len(a.Tier1))
	}
	if len(a.Tier2) != 2 {
		t.Errorf("expected 2 tier 2 claims, got %d", len(a.Tier2))
	}
	if len(a.Tier3) != 4 {
		t.Errorf("expected 4 tier 3 claims, got %d", len(a.Tier3))
	}

	// Every routed claim has an explicit reason.
	for _, c := range input {
		if a.Reasons[c.ClaimID] == "" {
			t.Errorf("claim %s has no routing reason", c.ClaimID)
		}
	}
}
