package classify

import (
	"context"

	"github.com/Southclaws/opt"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Result bundles every signal extracted from a single user utterance.
type Result struct {
	Emotion domain.EmotionAnalysis
	Crisis  domain.CrisisAssessment
	Topics  []string
}

// Analyzer runs the emotion aggregator and crisis classifier on top of an
// external sentiment collaborator, degrading to LocalSentiment when the
// collaborator is missing or fails.
type Analyzer struct {
	sentiment    domain.SentimentAnalyzer
	languageCode string
}

// NewAnalyzer creates an Analyzer. sentiment may be nil, in which case the
// local heuristic is always used.
func NewAnalyzer(sentiment domain.SentimentAnalyzer, languageCode string) *Analyzer {
	if languageCode == "" {
		languageCode = "en"
	}
	return &Analyzer{
		sentiment:    sentiment,
		languageCode: languageCode,
	}
}

// Sentiment returns the sentiment for text and whether the fallback was used.
func (a *Analyzer) Sentiment(ctx context.Context, text string) (domain.Sentiment, bool) {
	if a.sentiment == nil {
		return LocalSentiment(text), false
	}

	s, err := a.sentiment.AnalyzeSentiment(ctx, text, a.languageCode)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("sentiment collaborator unavailable, using local heuristic",
			"error", err)
		return LocalSentiment(text), true
	}

	s.Score = clamp(s.Score, -1, 1)
	if s.Magnitude < 0 {
		s.Magnitude = 0
	}
	if s.Label == "" {
		s.Label = labelFor(s.Score)
	}
	return s, false
}

// Classify analyses one user utterance.
func (a *Analyzer) Classify(ctx context.Context, text string) Result {
	if isBlank(text) {
		neutral := domain.Sentiment{Label: domain.SentimentNeutral}
		return Result{
			Emotion: AnalyzeEmotion(text, neutral),
			Crisis:  AssessCrisis(text, opt.New(neutral)),
		}
	}

	s, degraded := a.Sentiment(ctx, text)

	emotion := AnalyzeEmotion(text, s)
	emotion.Degraded = degraded

	return Result{
		Emotion: emotion,
		Crisis:  AssessCrisis(text, opt.New(s)),
		Topics:  ExtractTopics(text),
	}
}
