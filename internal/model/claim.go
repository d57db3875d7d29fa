package model

// Topic is the primary relevance category assigned by classification.
type Topic string

const (
	TopicTrackedTicker Topic = "tracked_ticker" // mentions a covered or watchlist ticker
	TopicSector        Topic = "sector"         // in-sector but no tracked ticker
	TopicMacro         Topic = "macro"          // macro/rates/FX context
	TopicGeneral       Topic = "general"        // off-coverage, scores zero
)

// ContentType categorizes the nature of a chunk's content.
type ContentType string

const (
	ContentFact           ContentType = "fact"
	ContentInterpretation ContentType = "interpretation"
	ContentForecast       ContentType = "forecast"
	ContentRisk           ContentType = "risk"
)

// TimeHorizon is the forward-looking window of a chunk.
type TimeHorizon string

const (
	HorizonNearTerm    TimeHorizon = "near_term"
	HorizonMediumTerm  TimeHorizon = "medium_term"
	HorizonLongTerm    TimeHorizon = "long_term"
	HorizonUnspecified TimeHorizon = "unspecified"
)

// Polarity is the directional read of a chunk.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
	PolarityMixed    Polarity = "mixed"
)

// Novelty marks how new a chunk's information is. Rehash is a hard filter
// at scoring time.
type Novelty string

const (
	NoveltyNew         Novelty = "new"
	NoveltyIncremental Novelty = "incremental"
	NoveltyRehash      Novelty = "rehash"
)

// Classification is the coerced output of the external classification
// service, attached to exactly one Chunk.
type Classification struct {
	Topic          Topic       `json:"topic"`
	TopicSecondary string      `json:"topic_secondary,omitempty"` // sub-sector key, empty if none
	AssetExposure  []string    `json:"asset_exposure,omitempty"`  // tickers mentioned
	ContentType    ContentType `json:"content_type"`
	TimeHorizon    TimeHorizon `json:"time_horizon"`
	Polarity       Polarity    `json:"polarity"`
	Novelty        Novelty     `json:"novelty"`
}

// Confidence is the ordinal confidence level of a claim.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceOrdinal maps confidence to the ordinal scale used for drift
// comparison.
var ConfidenceOrdinal = map[Confidence]int{
	ConfidenceLow:    0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// TimeSensitivity marks the urgency of a claim.
type TimeSensitivity string

const (
	SensitivityBreaking TimeSensitivity = "breaking"
	SensitivityUpcoming TimeSensitivity = "upcoming"
	SensitivityOngoing  TimeSensitivity = "ongoing"
)

// BeliefPressure records how a claim relates to presumed consensus.
type BeliefPressure string

const (
	PressureConfirms          BeliefPressure = "confirms_consensus"
	PressureContradicts       BeliefPressure = "contradicts_consensus"
	PressureContradictsPriors BeliefPressure = "contradicts_prior_assumptions"
	PressureUnclear           BeliefPressure = "unclear"
)

// Contradicts reports whether the pressure is either contradiction variant.
func (p BeliefPressure) Contradicts() bool {
	return p == PressureContradicts || p == PressureContradictsPriors
}

// Claim is 1-2 atomic assertions derived from one Chunk, with judgment
// metadata. A Claim always traces to exactly one Chunk and one Document.
type Claim struct {
	ClaimID              string          `json:"claim_id"`
	DocID                string          `json:"doc_id"`
	ChunkID              string          `json:"chunk_id"`
	Bullets              []string        `json:"bullets"`         // 1-2 verbatim assertions
	Ticker               string          `json:"ticker,omitempty"`
	ClaimType            string          `json:"claim_type"`      // thesis, catalyst, risk, data_point, rating_change, price_target, other
	Category             string          `json:"category,omitempty"` // topic of the parent chunk
	SourceCitation       string          `json:"source_citation"`    // "Source, Analyst, p.N, date"
	Confidence           Confidence      `json:"confidence_level"`
	TimeSensitivity      TimeSensitivity `json:"time_sensitivity"`
	BeliefPressure       BeliefPressure  `json:"belief_pressure"`
	EventType            string          `json:"event_type,omitempty"` // earnings, guidance, org, regulation
	IsDescriptiveEvent   bool            `json:"is_descriptive_event,omitempty"`
	HasBeliefDelta       bool            `json:"has_belief_delta,omitempty"`
	SectorImplication    string          `json:"sector_implication,omitempty"` // macro claims only
	UncertaintyPreserved bool            `json:"uncertainty_preserved,omitempty"`
}

// Text joins the claim bullets into a single comparable string.
func (c Claim) Text() string {
	switch len(c.Bullets) {
	case 0:
		return ""
	case 1:
		return c.Bullets[0]
	default:
		return c.Bullets[0] + " " + c.Bullets[1]
	}
}

// HistoricalClaim is a Claim persisted with a storage date. The pair
// (ClaimID, DateStored) is unique in the store.
type HistoricalClaim struct {
	Claim
	DateStored string `json:"date_stored"` // YYYY-MM-DD
	Author     string `json:"author,omitempty"`
	Source     string `json:"source,omitempty"`
}
