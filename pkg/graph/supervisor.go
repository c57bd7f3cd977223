package graph

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/prompts"
)

// routerSchema constrains the supervisor's structured routing decision.
const routerSchema = `{
	"type": "object",
	"properties": {
		"next": {"type": "string"}
	},
	"required": ["next"],
	"additionalProperties": false
}`

// supervisorNode decides which worker acts next. The LLM's structured output
// is trusted for tie-breaking but the returned name is validated against the
// worker set; anything unknown is treated as FINISH.
func supervisorNode(deps Deps) NodeFunc {
	log := slog.Default().With("node", config.NodeSupervisor)

	return func(ctx context.Context, st *State, _ *events.Bus) (string, error) {
		client, err := deps.LLM.ForAgent(config.NodeSupervisor)
		if err != nil {
			return "", err
		}
		system, err := prompts.RenderSystem(config.NodeSupervisor, nil)
		if err != nil {
			return "", err
		}

		msgs := make([]llm.Message, 0, len(st.Messages)+1)
		msgs = append(msgs, llm.System(system))
		msgs = append(msgs, st.Messages...)

		var decision struct {
			Next string `json:"next"`
		}
		if err := llm.InvokeStructured(ctx, client, llm.Request{Messages: msgs}, routerSchema, &decision); err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			log.Error("Supervisor routing failed, finishing task", "task_id", st.TaskID, "error", err)
			return End, nil
		}

		next := strings.TrimSpace(decision.Next)
		switch {
		case next == config.FinishSentinel:
			log.Info("Supervisor finished task", "task_id", st.TaskID)
			return End, nil
		case config.IsTeamMember(next):
			log.Info("Supervisor routed to worker", "task_id", st.TaskID, "worker", next)
			return next, nil
		default:
			log.Warn("Supervisor chose unknown worker, forcing finish", "task_id", st.TaskID, "next", next)
			return End, nil
		}
	}
}
