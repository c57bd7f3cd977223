package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/jsonclean"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/prompts"
)

const searchResultsHeader = "\n\n# Relative Search Results\n\n"

// plannerNode produces the step plan. It announces the workflow (the
// start_of_workflow event is deferred until handoff is confirmed), optionally
// enriches its input with one web search, streams the planning LLM, and
// parses the output. Parse failure ends the task.
func plannerNode(deps Deps) NodeFunc {
	log := slog.Default().With("node", config.NodePlanner)

	return func(ctx context.Context, st *State, bus *events.Bus) (string, error) {
		st.PlannerEntered = true
		if err := bus.Publish(ctx, events.Event{
			Type: events.TypeStartOfWorkflow,
			Data: events.StartOfWorkflowPayload{WorkflowID: st.WorkflowID, Input: st.Input},
		}); err != nil {
			return "", err
		}

		role := config.RoleBasic
		if st.DeepThinking {
			role = config.RoleReasoning
		}
		client, err := deps.LLM.ForRole(role)
		if err != nil {
			return "", err
		}
		system, err := prompts.RenderSystem(config.NodePlanner, nil)
		if err != nil {
			return "", err
		}

		history := make([]llm.Message, len(st.Messages))
		copy(history, st.Messages)
		if st.SearchBeforePlanning && deps.Search != nil && len(history) > 0 {
			enrichWithSearch(ctx, deps.Search, history, log)
		}

		msgs := make([]llm.Message, 0, len(history)+1)
		msgs = append(msgs, llm.System(system))
		msgs = append(msgs, history...)

		full, err := streamNode(ctx, st, bus, config.NodePlanner, client, msgs)
		if err != nil {
			return "", err
		}

		plan, perr := ParsePlan(full)
		if perr != nil {
			log.Error("Failed to parse plan, ending task", "task_id", st.TaskID, "error", perr)
			return End, nil
		}
		st.Plan = plan

		if _, werr := deps.Store.WritePlan(ctx, st.TaskID, jsonclean.Clean(full)); werr != nil {
			log.Warn("Failed to write plan artifact", "task_id", st.TaskID, "error", werr)
		}

		if err := bus.Publish(ctx, events.Event{
			Type: events.TypePlanGenerated,
			Data: events.PlanGeneratedPayload{PlanSteps: plan.Steps, TotalSteps: len(plan.Steps)},
		}); err != nil {
			return "", err
		}
		log.Info("Plan generated", "task_id", st.TaskID, "total_steps", len(plan.Steps))

		st.Messages = append(st.Messages, llm.Assistant(config.NodePlanner, full))
		return config.NodeSupervisor, nil
	}
}

// enrichWithSearch appends a JSON digest of one web search to the last
// message in place. Search failure only costs the enrichment.
func enrichWithSearch(ctx context.Context, search Searcher, history []llm.Message, log *slog.Logger) {
	query := history[len(history)-1].Content
	results, err := search.Search(ctx, query)
	if err != nil {
		log.Warn("Pre-planning search failed", "error", err)
		return
	}

	digest := make([]map[string]string, 0, len(results))
	for _, r := range results {
		digest = append(digest, map[string]string{"title": r.Title, "content": r.Content})
	}
	encoded, err := json.Marshal(digest)
	if err != nil {
		return
	}
	history[len(history)-1].Content += searchResultsHeader + string(encoded)
}

// streamNode runs one streamed LLM call with full agent lifecycle events and
// returns the accumulated content. Used by nodes that stream without tools.
func streamNode(ctx context.Context, st *State, bus *events.Bus, name string, client llm.Client, msgs []llm.Message) (string, error) {
	agentID := fmt.Sprintf("%s_%s_%d", st.WorkflowID, name, st.NextTurn(name))
	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeStartOfAgent,
		Data: events.AgentPayload{AgentName: name, AgentID: agentID},
	}); err != nil {
		return "", err
	}
	defer bus.Publish(context.WithoutCancel(ctx), events.Event{
		Type: events.TypeEndOfAgent,
		Data: events.AgentPayload{AgentName: name, AgentID: agentID},
	})

	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeStartOfLLM,
		Data: events.LLMPayload{AgentName: name},
	}); err != nil {
		return "", err
	}

	ch, err := client.Stream(ctx, llm.Request{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("%s stream failed: %w", name, err)
	}

	messageID := uuid.NewString()
	var full strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Content == "" && chunk.ReasoningContent == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := bus.Publish(ctx, events.Event{
			Type: events.TypeMessage,
			Data: events.MessagePayload{
				MessageID: messageID,
				Delta:     events.Delta{Content: chunk.Content, ReasoningContent: chunk.ReasoningContent},
			},
		}); err != nil {
			return "", err
		}
	}

	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeEndOfLLM,
		Data: events.LLMPayload{AgentName: name},
	}); err != nil {
		return "", err
	}
	return full.String(), nil
}
