package classify_test

import (
	"strings"
	"testing"

	"github.com/Southclaws/opt"
	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-engine/internal/app/classify"
	"github.com/PabloGalante/farum-engine/internal/domain"
)

func sentiment(score, magnitude float64) opt.Optional[domain.Sentiment] {
	return opt.New(domain.Sentiment{Score: score, Magnitude: magnitude})
}

func TestAssessCrisisCriticalIgnoresSentiment(t *testing.T) {
	for _, score := range []float64{0.9, 0, -0.9} {
		got := classify.AssessCrisis("I want to end my life", sentiment(score, 0.8))

		assert.True(t, got.IsCrisis)
		assert.Equal(t, domain.SeverityCritical, got.Severity)
		assert.Equal(t, 0.95, got.Confidence)
		assert.Contains(t, got.Indicators, "end my life")
	}
}

func TestAssessCrisisTiers(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		score      float64
		magnitude  float64
		isCrisis   bool
		severity   domain.Severity
		confidence float64
	}{
		{"high keyword with negative score", "I feel hopeless and can't go on", -0.6, 0.6, true, domain.SeverityHigh, 0.85},
		{"high keyword needs score below -0.5", "I feel hopeless", -0.4, 0.4, false, domain.SeverityLow, 0.5},
		{"medium keyword", "I am so overwhelmed", -0.35, 0.4, true, domain.SeverityMedium, 0.7},
		{"high keyword falls through to medium", "hopeless and overwhelmed", -0.4, 0.4, true, domain.SeverityMedium, 0.7},
		{"negative sentiment fallback", "everything is bad", -0.8, 0.9, true, domain.SeverityMedium, 0.75},
		{"fallback needs magnitude", "everything is bad", -0.8, 0.4, false, domain.SeverityLow, 0.5},
		{"benign", "I had lunch today", 0.1, 0.1, false, domain.SeverityLow, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify.AssessCrisis(tt.text, sentiment(tt.score, tt.magnitude))
			assert.Equal(t, tt.isCrisis, got.IsCrisis)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.confidence, got.Confidence)
		})
	}
}

func TestAssessCrisisFallbackIndicator(t *testing.T) {
	got := classify.AssessCrisis("everything is bad", sentiment(-0.8, 0.9))
	assert.Equal(t, []string{"negative sentiment"}, got.Indicators)
}

func TestAssessCrisisBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		got := classify.AssessCrisis(text, opt.NewEmpty[domain.Sentiment]())
		assert.False(t, got.IsCrisis)
		assert.Equal(t, domain.SeverityLow, got.Severity)
		assert.Empty(t, got.Indicators)
	}
}

func TestAssessCrisisDerivesSentimentWhenMissing(t *testing.T) {
	got := classify.AssessCrisis("I want to die", opt.NewEmpty[domain.Sentiment]())
	assert.Equal(t, domain.SeverityCritical, got.Severity)

	got = classify.AssessCrisis("I had lunch today", opt.NewEmpty[domain.Sentiment]())
	assert.False(t, got.IsCrisis)
}

func TestAssessCrisisWholeWordsOnly(t *testing.T) {
	// "numbers" must not match the medium keyword "numb"
	got := classify.AssessCrisis("crunching numbers all day", sentiment(-0.4, 0.4))
	assert.False(t, got.IsCrisis)
}

func TestAssessCrisisTotalOverOddInput(t *testing.T) {
	inputs := []string{
		strings.Repeat("very long text ", 10000),
		"me siento muy triste 😢 y sola",
		"self-harm",
		"Can’t go on",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			classify.AssessCrisis(in, opt.NewEmpty[domain.Sentiment]())
		})
	}

	got := classify.AssessCrisis("thinking about self-harm", sentiment(0, 0))
	assert.Equal(t, domain.SeverityCritical, got.Severity)

	got = classify.AssessCrisis("I Can’t go on", sentiment(-0.6, 0.6))
	assert.Equal(t, domain.SeverityHigh, got.Severity)
}
