package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

func claim(id, ticker, claimType, bullet string, bp model.BeliefPressure, ts model.TimeSensitivity) model.Claim {
	return model.Claim{
		ClaimID:         id,
		Ticker:          ticker,
		ClaimType:       claimType,
		Bullets:         []string{bullet},
		BeliefPressure:  bp,
		TimeSensitivity: ts,
	}
}

func TestSynthesize_AgreementCluster(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "MSFT", "thesis", "Azure growth reaccelerated", model.PressureConfirms, model.SensitivityOngoing),
		claim("b", "MSFT", "data_point", "Copilot seats doubled", model.PressureConfirms, model.SensitivityOngoing),
		claim("c", "MSFT", "thesis", "Margin guide conservative", model.PressureConfirms, model.SensitivityOngoing),
		claim("d", "MSFT", "thesis", "Fourth confirming view", model.PressureConfirms, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	if len(syn.Agreements) != 1 {
		t.Fatalf("expected 1 agreement cluster, got %d", len(syn.Agreements))
	}
	ag := syn.Agreements[0]
	if ag.Topic != "MSFT" || ag.Count != 4 {
		t.Errorf("unexpected cluster: %+v", ag)
	}
	if len(ag.Specifics) != 3 {
		t.Errorf("expected excerpts capped at 3, got %d", len(ag.Specifics))
	}
	if ag.Specifics[0] != "Azure growth reaccelerated" {
		t.Errorf("excerpts must be verbatim bullets, got %q", ag.Specifics[0])
	}
}

func TestSynthesize_ContrarianCluster(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "NFLX", "thesis", "Sub growth will disappoint", model.PressureContradicts, model.SensitivityOngoing),
		claim("b", "NFLX", "thesis", "Ad tier economics overstated", model.PressureContradictsPriors, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	found := false
	for _, ag := range syn.Agreements {
		if ag.Topic == "NFLX (contrarian)" && ag.Count == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected contrarian cluster, got %+v", syn.Agreements)
	}
}

func TestSynthesize_Disagreement(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "GOOGL", "thesis", "Search share stable", model.PressureConfirms, model.SensitivityOngoing),
		claim("b", "GOOGL", "thesis", "AI answers cannibalize search", model.PressureContradicts, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	if len(syn.Disagreements) != 1 {
		t.Fatalf("expected 1 disagreement, got %d", len(syn.Disagreements))
	}
	d := syn.Disagreements[0]
	if d.Topic != "GOOGL" {
		t.Errorf("unexpected topic %q", d.Topic)
	}
	if len(d.PositionA.Specifics) == 0 || len(d.PositionB.Specifics) == 0 {
		t.Error("both positions must carry excerpts")
	}
	if syn.NoDisagreement {
		t.Error("no_disagreement must be false when a disagreement was found")
	}
}

func TestSynthesize_ForecastVsRisk(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "AMZN", "forecast", "AWS growth to accelerate", model.PressureUnclear, model.SensitivityOngoing),
		claim("b", "AMZN", "risk", "Retail margins at risk from tariffs", model.PressureUnclear, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	if len(syn.Disagreements) != 1 {
		t.Fatalf("expected forecast-vs-risk disagreement, got %d", len(syn.Disagreements))
	}
	if syn.Disagreements[0].Topic != "AMZN outlook" {
		t.Errorf("unexpected topic %q", syn.Disagreements[0].Topic)
	}
}

func TestSynthesize_NoDisagreementIsReported(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "META", "thesis", "Ad load stable", model.PressureConfirms, model.SensitivityOngoing),
		claim("b", "META", "thesis", "Reels monetization on track", model.PressureConfirms, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	if !syn.NoDisagreement {
		t.Error("expected explicit no_disagreement flag for a testable cluster with none found")
	}
	if !strings.Contains(FallbackNarrative(syn), "no disagreement found") {
		t.Error("fallback narrative must state the absence of disagreement")
	}
}

func TestSynthesize_Deltas(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "CRWD", "thesis", "New platform win", model.PressureConfirms, model.SensitivityOngoing),
		claim("b", "MSFT", "thesis", "Azure view flips", model.PressureConfirms, model.SensitivityOngoing),
	}
	prior := []model.HistoricalClaim{
		{Claim: claim("p1", "MSFT", "thesis", "Old view", model.PressureUnclear, model.SensitivityOngoing), DateStored: "2026-08-25"},
	}

	syn := s.Synthesize(context.Background(), today, prior)

	kinds := make(map[string]string)
	for _, d := range syn.Deltas {
		kinds[d.Ticker] = d.Kind
	}
	if kinds["CRWD"] != "new_coverage" {
		t.Errorf("expected CRWD new_coverage, got %q", kinds["CRWD"])
	}
	if kinds["MSFT"] != "new_pressure" {
		t.Errorf("expected MSFT new_pressure, got %q", kinds["MSFT"])
	}
}

func TestSynthesize_BreakingProxyWithoutPriorSet(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "PANW", "catalyst", "Surprise CEO exit", model.PressureUnclear, model.SensitivityBreaking),
		claim("b", "ZS", "thesis", "Steady quarter", model.PressureUnclear, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, nil)

	if len(syn.Deltas) != 1 {
		t.Fatalf("expected 1 breaking-proxy delta, got %d", len(syn.Deltas))
	}
	if syn.Deltas[0].Ticker != "PANW" || syn.Deltas[0].Kind != "breaking_proxy" {
		t.Errorf("unexpected delta %+v", syn.Deltas[0])
	}
}

func TestSynthesize_ThemeClusters(t *testing.T) {
	s := NewSynthesizer(policy.Default(), nil)
	today := []model.Claim{
		claim("a", "", "data_point", "Datacenter capex commentary points to higher GPU spend", model.PressureUnclear, model.SensitivityOngoing),
		claim("b", "", "thesis", "AI training demand keeps accelerator supply tight", model.PressureUnclear, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})

	if len(syn.Themes) != 1 {
		t.Fatalf("expected 1 theme cluster, got %d", len(syn.Themes))
	}
	if syn.Themes[0].Topic != "AI Infrastructure" {
		t.Errorf("unexpected theme %q", syn.Themes[0].Topic)
	}
}

type stubNarrator struct {
	text string
	err  error
}

func (s *stubNarrator) Narrate(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func TestNarrative_FallbackOnError(t *testing.T) {
	s := NewSynthesizer(policy.Default(), &stubNarrator{err: errors.New("api down")})
	today := []model.Claim{
		claim("a", "MSFT", "thesis", "One", model.PressureConfirms, model.SensitivityOngoing),
		claim("b", "MSFT", "thesis", "Two", model.PressureConfirms, model.SensitivityOngoing),
	}

	syn := s.Synthesize(context.Background(), today, []model.HistoricalClaim{})
	if syn.Narrative == "" {
		t.Fatal("expected fallback narrative when narrator fails")
	}
	if !strings.Contains(syn.Narrative, "MSFT") {
		t.Errorf("fallback narrative should mention the cluster, got %q", syn.Narrative)
	}
}

func TestNarrative_UsesNarrator(t *testing.T) {
	s := NewSynthesizer(policy.Default(), &stubNarrator{text: "Sources broadly agree on cloud strength."})
	syn := s.Synthesize(context.Background(), nil, []model.HistoricalClaim{})
	if syn.Narrative != "Sources broadly agree on cloud strength." {
		t.Errorf("expected narrator output, got %q", syn.Narrative)
	}
}
