package classify

import (
	"github.com/Southclaws/opt"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

const negativeSentimentIndicator = "negative sentiment"

// AssessCrisis returns the crisis verdict for a single utterance.
//
// Tiers are evaluated in priority order and the first hit wins: a
// critical phrase short-circuits regardless of sentiment. When no
// sentiment is supplied it is derived with LocalSentiment. Blank text
// is never a crisis and skips sentiment analysis entirely.
func AssessCrisis(text string, sentiment opt.Optional[domain.Sentiment]) domain.CrisisAssessment {
	if isBlank(text) {
		return noCrisis()
	}

	norm := normalize(text)

	if hits := matchPhrases(norm, criticalPhrases); len(hits) > 0 {
		return domain.CrisisAssessment{
			IsCrisis:   true,
			Severity:   domain.SeverityCritical,
			Confidence: 0.95,
			Indicators: hits,
		}
	}

	s, ok := sentiment.Get()
	if !ok {
		s = LocalSentiment(text)
	}

	if hits := matchPhrases(norm, highPhrases); len(hits) > 0 && s.Score < -0.5 {
		return domain.CrisisAssessment{
			IsCrisis:   true,
			Severity:   domain.SeverityHigh,
			Confidence: 0.85,
			Indicators: hits,
		}
	}

	if hits := matchPhrases(norm, mediumPhrases); len(hits) > 0 && s.Score < -0.3 {
		return domain.CrisisAssessment{
			IsCrisis:   true,
			Severity:   domain.SeverityMedium,
			Confidence: 0.7,
			Indicators: hits,
		}
	}

	if s.Score < -0.7 && s.Magnitude > 0.5 {
		return domain.CrisisAssessment{
			IsCrisis:   true,
			Severity:   domain.SeverityMedium,
			Confidence: 0.75,
			Indicators: []string{negativeSentimentIndicator},
		}
	}

	return noCrisis()
}

func noCrisis() domain.CrisisAssessment {
	return domain.CrisisAssessment{
		IsCrisis:   false,
		Severity:   domain.SeverityLow,
		Confidence: 0.5,
		Indicators: []string{},
	}
}
