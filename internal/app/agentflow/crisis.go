package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

const crisisResources = "If you are in immediate danger, please contact your local emergency number now. " +
	"You can also reach a crisis line (for example 988 in the US) or a person you trust. You don't have to go through this alone."

const defaultReply = "I'm here with you. I'm having trouble finding the right words right now, " +
	"but I understand this matters. Could you tell me a little more about what you're going through?"

// SafeReply is the fixed response used when text generation is unavailable.
func SafeReply(crisis bool) string {
	if crisis {
		return "I'm really glad you told me. What you're feeling matters and you deserve support right now. " + crisisResources
	}
	return defaultReply
}

// CrisisAgent answers a session flagged as crisis. The crisis resources are
// always part of the reply, whatever the model produces.
type CrisisAgent struct {
	llm domain.LLMClient
}

func NewCrisisAgent(llm domain.LLMClient) *CrisisAgent {
	return &CrisisAgent{llm: llm}
}

func (a *CrisisAgent) Name() string {
	return "crisis"
}

func (a *CrisisAgent) Run(ctx context.Context, in AgentInput) (AgentOutput, error) {
	prompt := fmt.Sprintf(
		"You are Farum. The user may be in crisis. Respond briefly and warmly, validate what they feel,\n"+
			"do not offer exercises or plans, and encourage them to reach out for immediate help.\n\nUser: %s",
		in.UserMessage,
	)

	reply, err := a.llm.GenerateReply(ctx, prompt, in.ConvCtx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("crisis agent falling back to safe reply", "error", err)
		return AgentOutput{Reply: SafeReply(true), UpdatedContext: in.ConvCtx}, nil
	}

	reply = strings.TrimSpace(reply)
	if !strings.Contains(reply, crisisResources) {
		reply = reply + "\n\n" + crisisResources
	}

	return AgentOutput{
		Reply:          reply,
		UpdatedContext: in.ConvCtx,
	}, nil
}
