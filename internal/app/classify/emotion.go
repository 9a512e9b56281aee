package classify

import (
	"math"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// AnalyzeEmotion maps a sentiment score plus keyword cues to a list of
// candidate emotions and picks the primary one.
//
// Score-derived candidates come first, lexicon matches are appended after
// them. The primary emotion is the candidate with the highest intensity;
// on ties the earliest candidate wins.
func AnalyzeEmotion(text string, s domain.Sentiment) domain.EmotionAnalysis {
	var emotions []domain.Emotion

	switch {
	case s.Score > 0.5:
		emotions = append(emotions,
			domain.Emotion{Type: domain.EmotionJoy, Intensity: s.Score},
			domain.Emotion{Type: domain.EmotionContentment, Intensity: 0.7 * s.Score},
		)
	case s.Score < -0.5:
		emotions = append(emotions,
			domain.Emotion{Type: domain.EmotionSadness, Intensity: math.Abs(s.Score)},
			domain.Emotion{Type: domain.EmotionAnxiety, Intensity: 0.5 * s.Magnitude},
		)
	default:
		emotions = append(emotions, domain.Emotion{Type: domain.EmotionNeutral, Intensity: 0.5})
	}

	norm := normalize(text)
	for _, lex := range emotionLexicons {
		if len(matchPhrases(norm, lex.words)) > 0 {
			emotions = append(emotions, domain.Emotion{Type: lex.emotion, Intensity: lex.intensity})
		}
	}

	primary := emotions[0]
	for _, e := range emotions[1:] {
		// strict comparison keeps the first-inserted candidate on ties
		if e.Intensity > primary.Intensity {
			primary = e
		}
	}

	return domain.EmotionAnalysis{
		Primary:  primary,
		Emotions: emotions,
		Overall:  s,
	}
}
