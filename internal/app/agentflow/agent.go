package agentflow

import (
	"context"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

// Agent is one step of a reply flow.
type Agent interface {
	Name() string
	Run(ctx context.Context, in AgentInput) (AgentOutput, error)
}

type AgentInput struct {
	UserMessage string
	ConvCtx     domain.ConversationContext
}

type AgentOutput struct {
	Reply          string
	UpdatedContext domain.ConversationContext
}
