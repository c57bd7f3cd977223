package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fusionworks/fusionai/pkg/artifact"
	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/prompts"
)

// handoffMarkers suppress coordinator output when seen in the buffered
// stream: the handoff directive itself, or a code fence the model sometimes
// wraps it in.
var handoffMarkers = []string{config.HandoffToken, "```python", "```"}

func containsHandoffMarker(s string) bool {
	for _, m := range handoffMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// coordinatorNode handles the first turn. It initializes the task artifact
// directory, streams the coordinator LLM, and routes to the planner when the
// output contains the handoff token; otherwise the task ends with the
// coordinator's small talk streamed to the caller.
//
// The directive must not reach the client, but routing is only known once
// enough output has arrived. The node buffers up to CoordinatorCacheSize
// chunks; if any buffered prefix contains a handoff marker the whole turn's
// output is suppressed, otherwise the buffer is flushed and the remaining
// chunks stream through directly.
func coordinatorNode(deps Deps) NodeFunc {
	log := slog.Default().With("node", config.NodeCoordinator)

	return func(ctx context.Context, st *State, bus *events.Bus) (string, error) {
		st.TaskID = artifact.NewTaskID()
		if _, err := deps.Store.Create(st.TaskID); err != nil {
			log.Warn("Failed to create task directory", "task_id", st.TaskID, "error", err)
		}

		client, err := deps.LLM.ForAgent(config.NodeCoordinator)
		if err != nil {
			return "", err
		}
		system, err := prompts.RenderSystem(config.NodeCoordinator, nil)
		if err != nil {
			return "", err
		}

		agentID := fmt.Sprintf("%s_%s_%d", st.WorkflowID, config.NodeCoordinator, st.NextTurn(config.NodeCoordinator))
		if err := bus.Publish(ctx, events.Event{
			Type: events.TypeStartOfAgent,
			Data: events.AgentPayload{AgentName: config.NodeCoordinator, AgentID: agentID},
		}); err != nil {
			return "", err
		}
		defer bus.Publish(context.WithoutCancel(ctx), events.Event{
			Type: events.TypeEndOfAgent,
			Data: events.AgentPayload{AgentName: config.NodeCoordinator, AgentID: agentID},
		})

		msgs := make([]llm.Message, 0, len(st.Messages)+1)
		msgs = append(msgs, llm.System(system))
		msgs = append(msgs, st.Messages...)

		full, err := streamCoordinator(ctx, client, msgs, bus, deps.Settings.CoordinatorCacheSize)
		if err != nil {
			return "", err
		}

		if strings.Contains(full, config.HandoffToken) {
			log.Info("Coordinator handed off to planner", "task_id", st.TaskID)
			return config.NodePlanner, nil
		}
		log.Info("Coordinator answered directly", "task_id", st.TaskID)
		return End, nil
	}
}

// streamCoordinator runs one filtered LLM stream and returns the full
// accumulated content regardless of what was emitted.
func streamCoordinator(ctx context.Context, client llm.Client, msgs []llm.Message, bus *events.Bus, cacheSize int) (string, error) {
	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeStartOfLLM,
		Data: events.LLMPayload{AgentName: config.NodeCoordinator},
	}); err != nil {
		return "", err
	}

	ch, err := client.Stream(ctx, llm.Request{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("coordinator stream failed: %w", err)
	}

	messageID := uuid.NewString()
	emit := func(d events.Delta) error {
		return bus.Publish(ctx, events.Event{
			Type: events.TypeMessage,
			Data: events.MessagePayload{MessageID: messageID, Delta: d},
		})
	}

	var full strings.Builder
	var cache []events.Delta
	suppressed := false
	flushed := false

	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		if chunk.Content == "" && chunk.ReasoningContent == "" {
			continue
		}
		full.WriteString(chunk.Content)

		if suppressed {
			continue
		}

		delta := events.Delta{Content: chunk.Content, ReasoningContent: chunk.ReasoningContent}
		if flushed {
			if err := emit(delta); err != nil {
				return "", err
			}
			continue
		}

		// Markers are only decisive in the buffered prefix; once the buffer
		// has been flushed a fence is ordinary content, not a handoff.
		cache = append(cache, delta)
		if containsHandoffMarker(full.String()) {
			suppressed = true
			cache = nil
			continue
		}
		if len(cache) >= cacheSize {
			for _, d := range cache {
				if err := emit(d); err != nil {
					return "", err
				}
			}
			cache = nil
			flushed = true
		}
	}

	// A reply shorter than the cache window is safe to flush once the
	// stream has ended.
	if !suppressed {
		for _, d := range cache {
			if err := emit(d); err != nil {
				return "", err
			}
		}
	}

	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeEndOfLLM,
		Data: events.LLMPayload{AgentName: config.NodeCoordinator},
	}); err != nil {
		return "", err
	}
	return full.String(), nil
}
