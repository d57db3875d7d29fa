package score

import (
	"math"
	"testing"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

func testChunk() model.Chunk {
	return model.Chunk{ChunkID: "c1", DocID: "d1", Text: "MSFT guided Azure up."}
}

func TestScore_HardZeroForGeneralTopic(t *testing.T) {
	s := NewScorer(policy.Default())
	item := s.Score(testChunk(), model.Classification{
		Topic:       model.TopicGeneral,
		ContentType: model.ContentFact,
		Polarity:    model.PolarityPositive,
		Novelty:     model.NoveltyNew,
	}, "jefferies")

	if item.Score != 0 {
		t.Errorf("expected hard zero for general topic, got %f", item.Score)
	}
	if _, ok := item.Breakdown["hard_zero"]; !ok {
		t.Error("expected hard_zero marker in breakdown")
	}
}

func TestScore_HardZeroForRehash(t *testing.T) {
	s := NewScorer(policy.Default())
	item := s.Score(testChunk(), model.Classification{
		Topic:       model.TopicTrackedTicker,
		ContentType: model.ContentFact,
		Polarity:    model.PolarityPositive,
		Novelty:     model.NoveltyRehash,
	}, "jefferies")

	if item.Score != 0 {
		t.Errorf("expected hard zero for rehash novelty, got %f", item.Score)
	}
}

func TestScore_WeightedSum(t *testing.T) {
	s := NewScorer(policy.Default())
	item := s.Score(testChunk(), model.Classification{
		Topic:          model.TopicTrackedTicker,
		TopicSecondary: "cloud_enterprise_software",
		AssetExposure:  []string{"MSFT"},
		ContentType:    model.ContentFact,
		Polarity:       model.PolarityPositive,
		Novelty:        model.NoveltyNew,
	}, "jefferies")

	// 1.0*0.30 + 1.0*0.20 + 1.0*0.15 + 1.0*0.10 + 1.0*0.15 + 0.8*0.10
	want := 0.30 + 0.20 + 0.15 + 0.10 + 0.15 + 0.08
	if math.Abs(item.Score-want) > 1e-9 {
		t.Errorf("expected score %.3f, got %.3f", want, item.Score)
	}
}

func TestScore_TickerTiers(t *testing.T) {
	s := NewScorer(policy.Default())

	base := model.Classification{
		Topic:          model.TopicTrackedTicker,
		TopicSecondary: "cloud_enterprise_software",
		ContentType:    model.ContentFact,
		Polarity:       model.PolarityPositive,
		Novelty:        model.NoveltyNew,
	}

	primary := base
	primary.AssetExposure = []string{"MSFT"}
	watchlist := base
	watchlist.AssetExposure = []string{"NFLX"}
	off := base
	off.AssetExposure = []string{"XYZ"}

	sp := s.Score(testChunk(), primary, "jefferies").Score
	sw := s.Score(testChunk(), watchlist, "jefferies").Score
	so := s.Score(testChunk(), off, "jefferies").Score

	if !(sp > sw && sw > so) {
		t.Errorf("expected primary > watchlist > off-coverage, got %.3f %.3f %.3f", sp, sw, so)
	}
}

func TestScore_UnknownSourceFloor(t *testing.T) {
	s := NewScorer(policy.Default())
	cls := model.Classification{
		Topic:       model.TopicMacro,
		ContentType: model.ContentFact,
		Polarity:    model.PolarityNeutral,
		Novelty:     model.NoveltyIncremental,
	}

	known := s.Score(testChunk(), cls, "goldman").Score
	unknown := s.Score(testChunk(), cls, "random-blog").Score

	if unknown >= known {
		t.Errorf("expected unknown source to score below goldman, got %.3f vs %.3f", unknown, known)
	}
}

func TestScore_RoundedToThreePlaces(t *testing.T) {
	s := NewScorer(policy.Default())
	item := s.Score(testChunk(), model.Classification{
		Topic:          model.TopicSector,
		TopicSecondary: "internet_digital_advertising",
		ContentType:    model.ContentInterpretation,
		Polarity:       model.PolarityMixed,
		Novelty:        model.NoveltyIncremental,
	}, "podcast")

	scaled := item.Score * 1000
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		t.Errorf("expected score rounded to 3 places, got %v", item.Score)
	}
}
