// Package score implements the deterministic six-axis relevance score used
// by triage. The weights and value tables come from the policy; the formula
// here never changes.
package score

import (
	"math"
	"strings"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

// Scorer computes relevance scores against one policy.
type Scorer struct {
	policy *policy.Policy
}

// NewScorer creates a scorer bound to a policy.
func NewScorer(p *policy.Policy) *Scorer {
	return &Scorer{policy: p}
}

// Item is one scored chunk with its classification and provenance.
type Item struct {
	Chunk          model.Chunk
	Classification model.Classification
	Source         string // firm key for credibility lookup

	Score     float64
	Breakdown map[string]float64 // per-axis contributions, transparent
}

// Ticker returns the first asset exposure ticker, if any.
func (it Item) Ticker() string {
	if len(it.Classification.AssetExposure) > 0 {
		return it.Classification.AssetExposure[0]
	}
	return ""
}

// Score computes the weighted relevance score for a chunk, rounded to three
// decimal places.
//
// Two hard filters short-circuit to zero: a "general" topic (off-coverage)
// and "rehash" novelty. Rehashed content is never recoverable downstream.
func (s *Scorer) Score(chunk model.Chunk, cls model.Classification, source string) Item {
	item := Item{
		Chunk:          chunk,
		Classification: cls,
		Source:         source,
		Breakdown:      make(map[string]float64),
	}

	if cls.Topic == model.TopicGeneral {
		item.Breakdown["hard_zero"] = 0
		return item
	}
	if cls.Novelty == model.NoveltyRehash {
		item.Breakdown["hard_zero"] = 0
		return item
	}

	p := s.policy

	topicVal := p.TopicValues[cls.Topic]
	subtopicVal := s.subtopicValue(cls)
	contentVal := p.ContentTypeValues[cls.ContentType]
	polarityVal := p.PolarityValues[cls.Polarity]
	tickerVal := s.tickerValue(item.Ticker())
	sourceVal := s.sourceValue(source)

	item.Breakdown["topic"] = topicVal * p.TopicWeight
	item.Breakdown["subtopic"] = subtopicVal * p.SubtopicWeight
	item.Breakdown["content_type"] = contentVal * p.ContentTypeWeight
	item.Breakdown["polarity"] = polarityVal * p.PolarityWeight
	item.Breakdown["ticker"] = tickerVal * p.TickerWeight
	item.Breakdown["source"] = sourceVal * p.SourceWeight

	total := 0.0
	for _, v := range item.Breakdown {
		total += v
	}
	item.Score = math.Round(total*1000) / 1000

	return item
}

// ScoreAll scores a batch of classified chunks.
func (s *Scorer) ScoreAll(chunks []model.Chunk, classifications []model.Classification, source string) []Item {
	n := len(chunks)
	if len(classifications) < n {
		n = len(classifications)
	}
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, s.Score(chunks[i], classifications[i], source))
	}
	return items
}

// subtopicValue resolves the sub-sector axis. Non-sector chunks get the
// policy baseline; sector chunks use the configured sub-sector table.
func (s *Scorer) subtopicValue(cls model.Classification) float64 {
	if cls.Topic != model.TopicSector && cls.Topic != model.TopicTrackedTicker {
		return s.policy.SubtopicBaseline
	}
	if v, ok := s.policy.SubtopicValues[cls.TopicSecondary]; ok {
		return v
	}
	return s.policy.SubtopicBaseline
}

// tickerValue maps ticker coverage tier to its axis value.
func (s *Scorer) tickerValue(ticker string) float64 {
	switch s.policy.ClassifyTicker(ticker) {
	case policy.TierPrimary:
		return 1.0
	case policy.TierWatchlist:
		return 0.7
	case policy.TierOffCoverage:
		return 0.4
	default:
		return 0.5
	}
}

// sourceValue looks up source credibility with the unknown-source floor.
func (s *Scorer) sourceValue(source string) float64 {
	if v, ok := s.policy.SourceCredibility[strings.ToLower(source)]; ok {
		return v
	}
	return s.policy.UnknownSourceCredibility
}
