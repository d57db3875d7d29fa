package triage

import (
	"fmt"
	"testing"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
	"github.com/ppiankov/daybrief/internal/score"
)

func item(id, text, ticker string, sc float64) score.Item {
	cls := model.Classification{
		Topic:   model.TopicTrackedTicker,
		Novelty: model.NoveltyNew,
	}
	if ticker != "" {
		cls.AssetExposure = []string{ticker}
	}
	return score.Item{
		Chunk:          model.Chunk{ChunkID: id, Text: text},
		Classification: cls,
		Score:          sc,
	}
}

func TestJaccard(t *testing.T) {
	if got := Jaccard("azure growth strong", "azure growth strong"); got != 1.0 {
		t.Errorf("expected identical texts to score 1.0, got %f", got)
	}
	if got := Jaccard("alpha beta gamma", "delta epsilon zeta"); got != 0 {
		t.Errorf("expected disjoint texts to score 0, got %f", got)
	}
	if got := Jaccard("", "anything"); got != 0 {
		t.Errorf("expected empty text to score 0, got %f", got)
	}
}

func TestRun_KeptIsSubset(t *testing.T) {
	tr := NewTriager(policy.Default())
	items := []score.Item{
		item("a", "azure growth reaccelerated this quarter", "MSFT", 0.9),
		item("b", "completely unrelated macro commentary on rates", "", 0.8),
		item("c", "weak chunk below the floor", "", 0.3),
	}

	res := tr.Run(items)
	ids := map[string]bool{"a": true, "b": true, "c": true}
	for _, k := range res.Kept {
		if !ids[k.Chunk.ChunkID] {
			t.Errorf("kept item %s was not in the input", k.Chunk.ChunkID)
		}
	}
	if res.InputCount != 3 {
		t.Errorf("expected input count 3, got %d", res.InputCount)
	}
}

func TestRun_RehashIsUnrecoverable(t *testing.T) {
	p := policy.Default()
	p.MinSurvivors = 5
	tr := NewTriager(p)

	rehash := item("r", "rehashed content seen before", "MSFT", 0.95)
	rehash.Classification.Novelty = model.NoveltyRehash

	res := tr.Run([]score.Item{rehash})
	if len(res.Kept) != 0 {
		t.Fatalf("expected rehash to stay dropped even under the minimum, kept %d", len(res.Kept))
	}
	if res.DropCounts[DropLowNovelty] != 1 {
		t.Errorf("expected one low_novelty drop, got %d", res.DropCounts[DropLowNovelty])
	}
}

func TestRun_DuplicateKeepsHigherScore(t *testing.T) {
	tr := NewTriager(policy.Default())
	items := []score.Item{
		item("low", "azure cloud growth accelerated meaningfully in the quarter", "MSFT", 0.75),
		item("high", "azure cloud growth accelerated meaningfully in the quarter again", "MSFT", 0.9),
	}

	res := tr.Run(items)
	if len(res.Kept) != 1 {
		t.Fatalf("expected 1 kept after dedup, got %d", len(res.Kept))
	}
	if res.Kept[0].Chunk.ChunkID != "high" {
		t.Errorf("expected higher-scoring duplicate kept, got %s", res.Kept[0].Chunk.ChunkID)
	}
	if res.DropCounts[DropDuplicate] != 1 {
		t.Errorf("expected one duplicate drop, got %d", res.DropCounts[DropDuplicate])
	}
}

func TestRun_SameTickerUsesStricterThreshold(t *testing.T) {
	tr := NewTriager(policy.Default())
	// Overlap is real but modest: above 0.20, below 0.30.
	a := item("a", "msft azure growth guidance strong quarter commentary one two", "MSFT", 0.9)
	b := item("b", "msft azure growth guidance alpha beta gamma delta epsilon zeta", "MSFT", 0.8)

	sim := Jaccard(a.Chunk.Text, b.Chunk.Text)
	if sim < 0.20 || sim >= 0.30 {
		t.Fatalf("fixture similarity %f outside the band this test needs", sim)
	}

	res := tr.Run([]score.Item{a, b})
	if len(res.Kept) != 1 {
		t.Fatalf("expected same-ticker pair to dedup at the stricter threshold, kept %d", len(res.Kept))
	}

	// The same pair without a shared ticker survives.
	a2, b2 := a, b
	a2.Classification.AssetExposure = nil
	b2.Classification.AssetExposure = nil
	res2 := tr.Run([]score.Item{a2, b2})
	if len(res2.Kept) != 2 {
		t.Errorf("expected pair without shared ticker to survive, kept %d", len(res2.Kept))
	}
}

func TestRun_CapAndReasonCodes(t *testing.T) {
	p := policy.Default()
	p.MaxOutput = 3
	p.MinSurvivors = 1
	tr := NewTriager(p)

	texts := []string{
		"hyperscaler capex commentary accelerating into yearend",
		"handset demand stabilizing across emerging markets",
		"streaming churn improved after password sharing crackdown",
		"semicap bookings inflected on foundry expansion plans",
		"cybersecurity budgets consolidating toward platform vendors",
		"advertising auction pricing firmed through the holiday period",
	}
	var items []score.Item
	for i, text := range texts {
		items = append(items, item(fmt.Sprintf("c%d", i), text, "", 0.9-float64(i)*0.01))
	}

	res := tr.Run(items)
	if len(res.Kept) != 3 {
		t.Fatalf("expected cap of 3, kept %d", len(res.Kept))
	}
	if res.DropCounts[DropOverLimit] != 3 {
		t.Errorf("expected 3 over_limit drops, got %d", res.DropCounts[DropOverLimit])
	}
	// Cap keeps the highest scores.
	for _, k := range res.Kept {
		if k.Score < 0.87 {
			t.Errorf("cap kept a low scorer: %s %.3f", k.Chunk.ChunkID, k.Score)
		}
	}
}

func TestRun_RecoveryValve(t *testing.T) {
	p := policy.Default()
	p.MinSurvivors = 3
	tr := NewTriager(p)

	items := []score.Item{
		item("keep", "strong enough chunk with plenty of unique words here", "MSFT", 0.9),
		item("weak1", "below threshold chunk with totally different vocabulary one", "", 0.5),
		item("weak2", "another distinct below threshold chunk vocabulary two entirely", "", 0.4),
		item("weak3", "third distinct below threshold chunk vocabulary three entirely", "", 0.2),
	}

	res := tr.Run(items)
	if len(res.Kept) != 3 {
		t.Fatalf("expected recovery to reach the minimum of 3, kept %d", len(res.Kept))
	}
	if res.Recovered != 2 {
		t.Errorf("expected 2 recovered items, got %d", res.Recovered)
	}
	// Highest-scoring dropped items come back first.
	found := map[string]bool{}
	for _, k := range res.Kept {
		found[k.Chunk.ChunkID] = true
	}
	if !found["weak1"] || !found["weak2"] {
		t.Errorf("expected weak1 and weak2 recovered, got %v", found)
	}
	if found["weak3"] {
		t.Error("weak3 should not have been recovered")
	}
}

func TestRun_EmptyInput(t *testing.T) {
	res := NewTriager(policy.Default()).Run(nil)
	if res.InputCount != 0 || res.OutputCount != 0 {
		t.Errorf("expected zero counts for empty input, got %d/%d", res.InputCount, res.OutputCount)
	}
}
