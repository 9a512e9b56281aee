package classify

import (
	"math"

	"github.com/samber/lo"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// LocalSentiment is the keyword-count heuristic used when the external
// sentiment collaborator is unavailable. It never fails.
func LocalSentiment(text string) domain.Sentiment {
	words := tokens(text)
	if len(words) == 0 {
		return domain.Sentiment{Label: domain.SentimentNeutral}
	}

	pos := lo.CountBy(words, func(w string) bool { return lo.Contains(positiveWords, w) })
	neg := lo.CountBy(words, func(w string) bool { return lo.Contains(negativeWords, w) })

	score := clamp(float64(pos-neg)/float64(len(words)), -1, 1)

	return domain.Sentiment{
		Score:     score,
		Magnitude: math.Abs(score),
		Label:     labelFor(score),
	}
}

func labelFor(score float64) domain.SentimentLabel {
	switch {
	case score > 0:
		return domain.SentimentPositive
	case score < 0:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}
