package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// stage is a single prompt step of the regular reply flow. Each stage feeds
// the previous stage's reply into its own prompt.
type stage struct {
	name   string
	llm    domain.LLMClient
	render func(in AgentInput) string
}

func (s *stage) Name() string {
	return s.name
}

func (s *stage) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	log := observability.LoggerFromContext(ctx).With("agent", s.name)
	log.Debug("stage running", "emotion", in.ConvCtx.Emotion)

	reply, err := s.llm.GenerateReply(ctx, s.render(in), in.ConvCtx)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{Reply: reply, UpdatedContext: in.ConvCtx}, nil
}

// NewListenerAgent restates the user's concern and names the feeling behind it.
func NewListenerAgent(llm domain.LLMClient) Agent {
	return &stage{name: "listener", llm: llm, render: func(in AgentInput) string {
		return fmt.Sprintf(
			"You are Farum's Listener agent. Clarify what the user is going through and restate it with empathy.\n"+
				"Their dominant emotion right now seems to be: %s.\n\nUser: %s",
			emotionOrNeutral(in.ConvCtx.Emotion),
			in.UserMessage,
		)
	}}
}

// NewPlannerAgent turns the clarified concern into one or two small exercises.
func NewPlannerAgent(llm domain.LLMClient) Agent {
	return &stage{name: "planner", llm: llm, render: func(in AgentInput) string {
		return fmt.Sprintf(
			"You are Farum's Planner agent. Suggest 1-2 small exercises for someone feeling %s,\n"+
				"such as a breathing exercise or a journal prompt. Keep them realistic.\n\nListener notes:\n%s",
			emotionOrNeutral(in.ConvCtx.Emotion),
			in.UserMessage,
		)
	}}
}

// NewReflectorAgent writes the reply the user actually sees.
func NewReflectorAgent(llm domain.LLMClient) Agent {
	return &stage{name: "reflector", llm: llm, render: func(in AgentInput) string {
		topics := "none yet"
		if len(in.ConvCtx.Topics) > 0 {
			topics = fmt.Sprint(in.ConvCtx.Topics)
		}
		return fmt.Sprintf(
			"You are Farum's Reflector agent. Validate how the user feels, connect them with the suggestion below\n"+
				"and end with one gentle follow-up question. Topics so far: %s.\n\nPlanner notes:\n%s",
			topics,
			in.UserMessage,
		)
	}}
}

func emotionOrNeutral(e domain.EmotionType) domain.EmotionType {
	if e == "" {
		return domain.EmotionNeutral
	}
	return e
}
