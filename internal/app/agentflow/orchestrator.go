package agentflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"

	"github.com/PabloGalante/farum-engine/internal/domain"
	"github.com/PabloGalante/farum-engine/internal/observability"
)

// Orchestrator is responsible for running multiple agents in sequence.
// Sessions flagged as crisis skip the regular flow and go to the crisis agent.
type Orchestrator struct {
	agents []Agent
	crisis Agent
}

// NewDefaultOrchestrator constructs a flow with Listener -> Planner -> Reflector.
func NewDefaultOrchestrator(llm domain.LLMClient) *Orchestrator {
	return NewOrchestrator(NewCrisisAgent(llm),
		NewListenerAgent(llm),
		NewPlannerAgent(llm),
		NewReflectorAgent(llm),
	)
}

func NewOrchestrator(crisis Agent, agents ...Agent) *Orchestrator {
	return &Orchestrator{agents: agents, crisis: crisis}
}

// Run executes the chain of agents sequentially.
func (o *Orchestrator) Run(
	ctx context.Context,
	userMessage string,
	convCtx domain.ConversationContext,
) (string, error) {
	flow := o.agents
	if convCtx.Crisis && o.crisis != nil {
		flow = []Agent{o.crisis}
	}
	if len(flow) == 0 {
		return "", fault.New("no agents configured in orchestrator", fctx.With(ctx))
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", convCtx.SessionID,
		"user_id", convCtx.UserID,
	)
	log.Info("orchestrator started", "agents_count", len(flow), "crisis", convCtx.Crisis)

	in := AgentInput{
		UserMessage: userMessage,
		ConvCtx:     convCtx,
	}

	var (
		out AgentOutput
		err error
	)

	for _, ag := range flow {
		start := time.Now()

		out, err = ag.Run(ctx, in)
		if err != nil {
			log.Warn("agent failed", "agent", ag.Name(), "error", err)
			return "", fault.Wrap(err, fctx.With(ctx), fmsg.With(fmt.Sprintf("agent %s failed", ag.Name())))
		}

		log.Debug("agent run end", "agent", ag.Name(), "elapsed_ms", time.Since(start).Milliseconds())

		// The output of an agent is the input for the next agent
		in.UserMessage = out.Reply
		in.ConvCtx = out.UpdatedContext
	}

	log.Info("orchestrator end")
	return out.Reply, nil
}
