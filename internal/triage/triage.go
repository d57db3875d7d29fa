// Package triage enforces the presentation budget: threshold filtering,
// pairwise lexical deduplication, a hard output cap, and a recovery valve
// that keeps thin days from going empty. Every drop records a reason code
// for audit.
package triage

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
	"github.com/ppiankov/daybrief/internal/score"
)

// DropReason is the audit code recorded with every dropped item.
type DropReason string

const (
	DropLowNovelty     DropReason = "low_novelty"     // rehash, never recoverable
	DropBelowThreshold DropReason = "below_threshold" // score under the relevance floor
	DropDuplicate      DropReason = "duplicate"       // lexical near-duplicate, never recoverable
	DropOverLimit      DropReason = "over_limit"      // squeezed out by the output cap
)

// Dropped pairs an item with the reason it was removed.
type Dropped struct {
	Item   score.Item
	Reason DropReason
	Detail string // e.g. the id of the kept duplicate
}

// Result is the full triage outcome, kept and dropped, with audit counts.
type Result struct {
	Kept             []score.Item
	Dropped          []Dropped
	InputCount       int
	OutputCount      int
	CompressionRatio float64
	DropCounts       map[DropReason]int
	Recovered        int
}

// Triager applies the triage pipeline under one policy.
type Triager struct {
	policy *policy.Policy
}

// NewTriager creates a triager bound to a policy.
func NewTriager(p *policy.Policy) *Triager {
	return &Triager{policy: p}
}

// Run executes the triage phases in order: hard filters, dedup, cap,
// recovery. The kept set is always a subset of the input.
func (t *Triager) Run(items []score.Item) Result {
	res := Result{
		InputCount: len(items),
		DropCounts: make(map[DropReason]int),
	}

	// Phase 1: hard filters. Rehash is dropped for low novelty and is never
	// recoverable; everything under the relevance floor drops too.
	var candidates []score.Item
	for _, it := range items {
		switch {
		case it.Classification.Novelty == model.NoveltyRehash:
			res.drop(it, DropLowNovelty, "")
		case it.Score < t.policy.RelevanceThreshold:
			res.drop(it, DropBelowThreshold, "")
		default:
			candidates = append(candidates, it)
		}
	}

	// Phase 2: greedy dedup, highest score first. Items sharing a ticker
	// are considered redundant at the stricter (lower) threshold.
	sortByScore(candidates)
	var kept []score.Item
	for _, it := range candidates {
		dupOf := ""
		for _, k := range kept {
			threshold := t.policy.SimilarityThreshold
			if it.Ticker() != "" && it.Ticker() == k.Ticker() {
				threshold = t.policy.SameTickerSimilarity
			}
			if Jaccard(it.Chunk.Text, k.Chunk.Text) >= threshold {
				dupOf = k.Chunk.ChunkID
				break
			}
		}
		if dupOf != "" {
			res.drop(it, DropDuplicate, dupOf)
			continue
		}
		kept = append(kept, it)
	}

	// Phase 3: hard cap. This truncation is intentionally lossy.
	if t.policy.MaxOutput > 0 && len(kept) > t.policy.MaxOutput {
		for _, it := range kept[t.policy.MaxOutput:] {
			res.drop(it, DropOverLimit, "")
		}
		kept = kept[:t.policy.MaxOutput]
	}

	// Phase 4: recovery valve. Low-novelty and duplicate drops stay dropped.
	if len(kept) < t.policy.MinSurvivors {
		kept = append(kept, res.recover(t.policy.MinSurvivors-len(kept))...)
		sortByScore(kept)
	}

	res.Kept = kept
	res.OutputCount = len(kept)
	if res.OutputCount > 0 {
		res.CompressionRatio = float64(res.InputCount) / float64(res.OutputCount)
	}

	return res
}

func (r *Result) drop(it score.Item, reason DropReason, detail string) {
	r.Dropped = append(r.Dropped, Dropped{Item: it, Reason: reason, Detail: detail})
	r.DropCounts[reason]++
}

// recover pulls back up to n of the highest-scoring recoverable drops and
// removes them from the dropped list.
func (r *Result) recover(n int) []score.Item {
	type candidate struct {
		idx  int
		item score.Item
	}
	var pool []candidate
	for i, d := range r.Dropped {
		if d.Reason == DropLowNovelty || d.Reason == DropDuplicate {
			continue
		}
		pool = append(pool, candidate{idx: i, item: d.Item})
	}
	sort.SliceStable(pool, func(a, b int) bool {
		return pool[a].item.Score > pool[b].item.Score
	})
	if len(pool) > n {
		pool = pool[:n]
	}

	taken := make(map[int]bool)
	var recovered []score.Item
	for _, c := range pool {
		taken[c.idx] = true
		recovered = append(recovered, c.item)
	}

	var remaining []Dropped
	for i, d := range r.Dropped {
		if taken[i] {
			r.DropCounts[d.Reason]--
			continue
		}
		remaining = append(remaining, d)
	}
	r.Dropped = remaining
	r.Recovered = len(recovered)

	return recovered
}

func sortByScore(items []score.Item) {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Score > items[b].Score
	})
}

var wordRe = regexp.MustCompile(`\w+`)

// Jaccard computes token-set overlap between two texts, lowercased and
// whitespace-tokenized.
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		set[w] = true
	}
	return set
}
