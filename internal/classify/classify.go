// Package classify coerces external classification and extraction output
// into the fixed claim taxonomy. Malformed output never aborts the
// pipeline: every field falls back to its documented default.
package classify

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/daybrief/internal/model"
	"github.com/ppiankov/daybrief/internal/policy"
)

const fallbackBulletLen = 200

var validTopics = map[string]model.Topic{
	"tracked_ticker": model.TopicTrackedTicker,
	"sector":         model.TopicSector,
	"tmt_sector":     model.TopicSector,
	"macro":          model.TopicMacro,
	"general":        model.TopicGeneral,
	"irrelevant":     model.TopicGeneral,
}

var validContentTypes = map[string]model.ContentType{
	"fact":           model.ContentFact,
	"interpretation": model.ContentInterpretation,
	"forecast":       model.ContentForecast,
	"risk":           model.ContentRisk,
}

var validHorizons = map[string]model.TimeHorizon{
	"near_term":   model.HorizonNearTerm,
	"medium_term": model.HorizonMediumTerm,
	"long_term":   model.HorizonLongTerm,
	"unspecified": model.HorizonUnspecified,
}

var validPolarities = map[string]model.Polarity{
	"positive": model.PolarityPositive,
	"negative": model.PolarityNegative,
	"neutral":  model.PolarityNeutral,
	"mixed":    model.PolarityMixed,
}

var validNovelty = map[string]model.Novelty{
	"new":         model.NoveltyNew,
	"incremental": model.NoveltyIncremental,
	"rehash":      model.NoveltyRehash,
}

var validConfidence = map[string]model.Confidence{
	"low":    model.ConfidenceLow,
	"medium": model.ConfidenceMedium,
	"high":   model.ConfidenceHigh,
}

var validSensitivity = map[string]model.TimeSensitivity{
	"breaking": model.SensitivityBreaking,
	"upcoming": model.SensitivityUpcoming,
	"ongoing":  model.SensitivityOngoing,
}

var validPressure = map[string]model.BeliefPressure{
	"confirms_consensus":            model.PressureConfirms,
	"contradicts_consensus":         model.PressureContradicts,
	"contradicts_prior_assumptions": model.PressureContradictsPriors,
	"unclear":                       model.PressureUnclear,
}

type rawClassification struct {
	Topic          string   `json:"topic"`
	Category       string   `json:"category"` // alternative field name
	TopicSecondary string   `json:"topic_secondary"`
	Subtopic       string   `json:"tmt_subtopic"`
	AssetExposure  []string `json:"asset_exposure"`
	Tickers        []string `json:"tickers"`
	ContentType    string   `json:"content_type"`
	TimeHorizon    string   `json:"time_horizon"`
	Polarity       string   `json:"polarity"`
	Novelty        string   `json:"novelty"`
}

// CoerceClassification turns a raw service response into a valid
// Classification. Unparseable input yields the all-defaults record.
func CoerceClassification(raw string, p *policy.Policy) model.Classification {
	cls := model.Classification{
		Topic:       model.TopicGeneral,
		ContentType: model.ContentFact,
		TimeHorizon: model.HorizonUnspecified,
		Polarity:    model.PolarityNeutral,
		Novelty:     model.NoveltyIncremental,
	}

	var rc rawClassification
	if err := json.Unmarshal([]byte(stripFences(raw)), &rc); err != nil {
		return cls
	}

	topicField := rc.Topic
	if topicField == "" {
		topicField = rc.Category
	}
	if t, ok := validTopics[strings.ToLower(topicField)]; ok {
		cls.Topic = t
	}

	// Keep only tickers from the tracked universe.
	exposure := rc.AssetExposure
	if len(exposure) == 0 {
		exposure = rc.Tickers
	}
	for _, t := range exposure {
		up := strings.ToUpper(strings.TrimSpace(t))
		if p.InUniverse(up) {
			cls.AssetExposure = append(cls.AssetExposure, up)
		}
	}

	// A chunk naming tracked tickers is a tracked-ticker chunk even if
	// the service said otherwise.
	if len(cls.AssetExposure) > 0 && cls.Topic != model.TopicTrackedTicker {
		cls.Topic = model.TopicTrackedTicker
	}

	secondary := rc.TopicSecondary
	if secondary == "" {
		secondary = rc.Subtopic
	}
	if cls.Topic == model.TopicSector {
		if _, ok := p.SubtopicValues[secondary]; ok {
			cls.TopicSecondary = secondary
		} else {
			cls.TopicSecondary = "consumer_internet_media"
		}
	}

	if ct, ok := validContentTypes[strings.ToLower(rc.ContentType)]; ok {
		cls.ContentType = ct
	}
	if h, ok := validHorizons[strings.ToLower(rc.TimeHorizon)]; ok {
		cls.TimeHorizon = h
	}
	if pol, ok := validPolarities[strings.ToLower(rc.Polarity)]; ok {
		cls.Polarity = pol
	}
	if n, ok := validNovelty[strings.ToLower(rc.Novelty)]; ok {
		cls.Novelty = n
	}
	return cls
}

type rawClaim struct {
	Bullets           []string `json:"bullets"`
	PrimaryTicker     string   `json:"primary_ticker"`
	Ticker            string   `json:"ticker"`
	ClaimType         string   `json:"claim_type"`
	Confidence        string   `json:"confidence_level"`
	TimeSensitivity   string   `json:"time_sensitivity"`
	BeliefPressure    string   `json:"belief_pressure"`
	EventType         string   `json:"event_type"`
	Descriptive       bool     `json:"is_descriptive_event"`
	BeliefDelta       bool     `json:"has_belief_delta"`
	SectorImplication string   `json:"sector_implication"`
	HasUncertainty    bool     `json:"has_uncertainty"`
}

// CoerceClaim turns a raw extraction response into a valid Claim tied to
// its chunk and document. Bullets fall back to the chunk text when the
// service returns none.
func CoerceClaim(raw string, chunk model.Chunk, cls model.Classification, doc model.Document, p *policy.Policy) model.Claim {
	var rc rawClaim
	// Parse errors leave rc zeroed; every field has a default below.
	_ = json.Unmarshal([]byte(stripFences(raw)), &rc)

	bullets := rc.Bullets
	if len(bullets) == 0 {
		bullets = []string{fallbackBullet(chunk.Text)}
	}
	if len(bullets) > 2 {
		bullets = bullets[:2]
	}

	confidence := model.ConfidenceMedium
	if c, ok := validConfidence[strings.ToLower(rc.Confidence)]; ok {
		confidence = c
	}
	sensitivity := model.SensitivityOngoing
	if s, ok := validSensitivity[strings.ToLower(rc.TimeSensitivity)]; ok {
		sensitivity = s
	}
	pressure := model.PressureUnclear
	if bp, ok := validPressure[strings.ToLower(rc.BeliefPressure)]; ok {
		pressure = bp
	}

	ticker := strings.ToUpper(strings.TrimSpace(rc.PrimaryTicker))
	if ticker == "" {
		ticker = strings.ToUpper(strings.TrimSpace(rc.Ticker))
	}
	if !p.InUniverse(ticker) {
		ticker = ""
	}
	if ticker == "" && len(cls.AssetExposure) > 0 {
		ticker = cls.AssetExposure[0]
	}

	claimType := rc.ClaimType
	if claimType == "" {
		claimType = string(cls.ContentType)
	}

	// Sector implications only make sense on macro claims.
	implication := rc.SectorImplication
	if cls.Topic != model.TopicMacro {
		implication = ""
	}

	return model.Claim{
		ClaimID:              chunk.ChunkID,
		DocID:                doc.DocID,
		ChunkID:              chunk.ChunkID,
		Bullets:              bullets,
		Ticker:               ticker,
		ClaimType:            claimType,
		Category:             string(cls.Topic),
		SourceCitation:       BuildCitation(doc, chunk),
		Confidence:           confidence,
		TimeSensitivity:      sensitivity,
		BeliefPressure:       pressure,
		EventType:            rc.EventType,
		IsDescriptiveEvent:   rc.Descriptive,
		HasBeliefDelta:       rc.BeliefDelta,
		SectorImplication:    implication,
		UncertaintyPreserved: rc.HasUncertainty,
	}
}

// BuildCitation assembles the "Source, Analyst, p.N, date" string used
// throughout the brief.
func BuildCitation(doc model.Document, chunk model.Chunk) string {
	var parts []string

	source := doc.Source
	if source == "" {
		source = "Unknown"
	}
	parts = append(parts, source)

	if doc.Analyst != "" {
		parts = append(parts, doc.Analyst)
	}
	if chunk.PageStart > 0 {
		if chunk.PageEnd > chunk.PageStart {
			parts = append(parts, fmt.Sprintf("pp.%d-%d", chunk.PageStart, chunk.PageEnd))
		} else {
			parts = append(parts, fmt.Sprintf("p.%d", chunk.PageStart))
		}
	}
	if doc.DatePublished != "" {
		parts = append(parts, doc.DatePublished)
	}
	return strings.Join(parts, ", ")
}

func fallbackBullet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= fallbackBulletLen {
		return text
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := fallbackBulletLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// stripFences removes a surrounding markdown code fence, which some
// providers wrap around JSON despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
