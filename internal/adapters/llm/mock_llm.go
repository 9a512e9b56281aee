package llm

import (
	"context"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// MockLLM returns canned replies chosen by the dominant emotion of the turn.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, _ string, convCtx domain.ConversationContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if convCtx.Crisis {
		return "I'm really sorry you're feeling this much pain. Thank you for telling me.", nil
	}

	switch convCtx.Emotion {
	case domain.EmotionAnxiety:
		return "That sounds stressful. Let's breathe together for a moment: in for four, out for six.", nil
	case domain.EmotionSadness, domain.EmotionLoneliness:
		return "It makes sense that you feel this way. I'm here and I'm listening.", nil
	case domain.EmotionAnger:
		return "That sounds frustrating. Could we consider another way to look at what happened?", nil
	default:
		return "Tell me more about what's been on your mind lately.", nil
	}
}
