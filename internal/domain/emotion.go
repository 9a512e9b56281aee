package domain

// SentimentLabel is the coarse polarity returned by sentiment analysis.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment is the continuous signal for a piece of text.
// Score is in [-1,1] and Magnitude is >= 0.
type Sentiment struct {
	Score     float64        `json:"score"`
	Magnitude float64        `json:"magnitude"`
	Label     SentimentLabel `json:"sentiment"`
}

type EmotionType string

const (
	EmotionJoy         EmotionType = "joy"
	EmotionContentment EmotionType = "contentment"
	EmotionSadness     EmotionType = "sadness"
	EmotionAnxiety     EmotionType = "anxiety"
	EmotionNeutral     EmotionType = "neutral"
	EmotionAnger       EmotionType = "anger"
	EmotionLoneliness  EmotionType = "loneliness"
)

type Emotion struct {
	Type      EmotionType `json:"type"`
	Intensity float64     `json:"intensity"`
}

// EmotionAnalysis is the output of the emotion aggregator.
type EmotionAnalysis struct {
	Primary  Emotion   `json:"primary_emotion"`
	Emotions []Emotion `json:"emotions"`
	Overall  Sentiment `json:"overall"`

	// Degraded is set when the external sentiment collaborator was
	// unavailable and the local heuristic was used instead.
	Degraded bool `json:"degraded,omitempty"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// CrisisAssessment is recomputed for every message and never stored as mutable state.
type CrisisAssessment struct {
	IsCrisis   bool     `json:"is_crisis"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`
}

// Technique is the therapeutic technique a generated reply is tagged with.
type Technique string

const (
	TechniqueCBT         Technique = "cbt"
	TechniqueACT         Technique = "act"
	TechniqueDBT         Technique = "dbt"
	TechniqueMindfulness Technique = "mindfulness"
	TechniqueValidation  Technique = "validation"
	TechniqueReframing   Technique = "reframing"
	TechniqueExploration Technique = "exploration"
)
