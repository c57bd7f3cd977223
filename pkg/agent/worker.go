// Package agent implements the worker runtime: one reason-act loop over an
// LLM client and a tool registry, emitting lifecycle and streaming events for
// every step.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/prompts"
	"github.com/fusionworks/fusionai/pkg/tools"
)

// Config assembles one worker instance. Workers differ only by
// configuration; the loop is shared.
type Config struct {
	// Name is the worker's registered name (researcher, coder, ...).
	Name string

	// Prompt is the system prompt template name.
	Prompt string

	// Client is the worker's resolved LLM client.
	Client llm.Client

	// Tools is the exact tool subset this worker may call.
	Tools *tools.Registry

	// MaxSteps caps reason-act iterations per turn. Exceeding it is fatal
	// for the turn.
	MaxSteps int

	// FilterThoughts suppresses chain-of-thought chunks from the event
	// stream. Used by the db_analyst, whose provider leaks reasoning into
	// content.
	FilterThoughts bool
}

// Worker is a specialized agent bound to a tool subset and prompt.
type Worker struct {
	cfg Config
	log *slog.Logger
}

// New creates a worker from its configuration.
func New(cfg Config) *Worker {
	return &Worker{
		cfg: cfg,
		log: slog.Default().With("worker", cfg.Name),
	}
}

// Name returns the worker's registered name.
func (w *Worker) Name() string { return w.cfg.Name }

// Run executes one reason-act turn against the conversation history and
// returns the worker's final textual response.
//
// Event emission per turn: start_of_agent/end_of_agent bracket the turn,
// start_of_llm/end_of_llm bracket each model call, message events carry
// streamed deltas, and tool_call/tool_call_result bracket each tool
// invocation.
func (w *Worker) Run(ctx context.Context, workflowID string, turn int, history []llm.Message, bus *events.Bus) (string, error) {
	agentID := fmt.Sprintf("%s_%s_%d", workflowID, w.cfg.Name, turn)
	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeStartOfAgent,
		Data: events.AgentPayload{AgentName: w.cfg.Name, AgentID: agentID},
	}); err != nil {
		return "", err
	}
	defer bus.Publish(context.WithoutCancel(ctx), events.Event{
		Type: events.TypeEndOfAgent,
		Data: events.AgentPayload{AgentName: w.cfg.Name, AgentID: agentID},
	})

	system, err := prompts.RenderSystem(w.cfg.Prompt, nil)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", w.cfg.Name, err)
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.System(system))
	msgs = append(msgs, history...)
	defs := w.cfg.Tools.Definitions()

	w.log.Info("Worker starting turn", "workflow_id", workflowID, "turn", turn)

	for step := 0; step < w.cfg.MaxSteps; step++ {
		content, toolCalls, err := w.streamOnce(ctx, msgs, defs, bus)
		if err != nil {
			return "", err
		}

		if len(toolCalls) == 0 {
			w.log.Info("Worker completed turn", "steps", step+1)
			return content, nil
		}

		msgs = append(msgs, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		})
		for _, tc := range toolCalls {
			if err := bus.Publish(ctx, events.Event{
				Type: events.TypeToolCall,
				Data: events.ToolCallPayload{ToolCallID: tc.ID, ToolName: tc.Name, ToolInput: tc.Arguments},
			}); err != nil {
				return "", err
			}

			result := w.cfg.Tools.Execute(ctx, tc)

			if err := bus.Publish(ctx, events.Event{
				Type: events.TypeToolCallResult,
				Data: events.ToolCallResultPayload{ToolCallID: tc.ID, ToolName: tc.Name, ToolResult: result.Content},
			}); err != nil {
				return "", err
			}
			msgs = append(msgs, llm.ToolResult(tc.ID, result.Content))
		}
	}

	return "", fmt.Errorf("worker %s exceeded %d reason-act steps", w.cfg.Name, w.cfg.MaxSteps)
}

// streamOnce performs a single streamed LLM call, forwarding deltas as
// message events and returning the accumulated content and tool calls.
func (w *Worker) streamOnce(ctx context.Context, msgs []llm.Message, defs []llm.ToolDefinition, bus *events.Bus) (string, []llm.ToolCall, error) {
	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeStartOfLLM,
		Data: events.LLMPayload{AgentName: w.cfg.Name},
	}); err != nil {
		return "", nil, err
	}

	ch, err := w.cfg.Client.Stream(ctx, llm.Request{Messages: msgs, Tools: defs})
	if err != nil {
		return "", nil, fmt.Errorf("llm stream failed for %s: %w", w.cfg.Name, err)
	}

	messageID := uuid.NewString()
	var content strings.Builder
	var toolCalls []llm.ToolCall

	for chunk := range ch {
		if chunk.Err != nil {
			return "", nil, chunk.Err
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = append(toolCalls, chunk.ToolCalls...)
			continue
		}
		content.WriteString(chunk.Content)

		if chunk.Content == "" && chunk.ReasoningContent == "" {
			continue
		}
		if w.cfg.FilterThoughts && isThoughtChunk(chunk.Content) {
			continue
		}
		if err := bus.Publish(ctx, events.Event{
			Type: events.TypeMessage,
			Data: events.MessagePayload{
				MessageID: messageID,
				Delta:     events.Delta{Content: chunk.Content, ReasoningContent: chunk.ReasoningContent},
			},
		}); err != nil {
			return "", nil, err
		}
	}

	if err := bus.Publish(ctx, events.Event{
		Type: events.TypeEndOfLLM,
		Data: events.LLMPayload{AgentName: w.cfg.Name},
	}); err != nil {
		return "", nil, err
	}
	return content.String(), toolCalls, nil
}

// thoughtPrefixes mark chain-of-thought text some providers leak into
// regular content.
var thoughtPrefixes = []string{"thought:", "我需要", "让我", "I need", "Let me"}

func isThoughtChunk(content string) bool {
	trimmed := strings.TrimSpace(content)
	if strings.Contains(strings.ToLower(trimmed), "thought:") {
		return true
	}
	for _, p := range thoughtPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
