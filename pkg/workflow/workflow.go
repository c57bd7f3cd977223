// Package workflow is the public orchestration surface: one call runs the
// whole graph for a set of input messages and streams events back on a
// channel that closes when the task is over.
package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/graph"
	"github.com/fusionworks/fusionai/pkg/llm"
)

// ErrNoMessages is returned when Run is called without input.
var ErrNoMessages = errors.New("no input messages")

// Options are the per-run switches exposed to the caller.
type Options struct {
	// Debug enables verbose run logging.
	Debug bool

	// DeepThinking plans with the reasoning LLM role.
	DeepThinking bool

	// SearchBeforePlanning performs one web search before planning.
	SearchBeforePlanning bool
}

// Orchestrator runs workflows. One instance serves concurrent tasks; each
// Run gets its own state and event bus.
type Orchestrator struct {
	engine   *graph.Engine
	capacity int
	log      *slog.Logger
}

// New builds an orchestrator over a fully wired dependency set.
func New(deps graph.Deps) *Orchestrator {
	return &Orchestrator{
		engine:   graph.New(deps),
		capacity: deps.Settings.EventCapacity,
		log:      slog.Default().With("component", "workflow"),
	}
}

// Run starts one workflow and returns its event stream. The caller drains
// the channel until it closes; end_of_workflow is always the last event, on
// natural termination, error, and cancellation alike. Cancelling ctx stops
// the engine at the next node or chunk boundary; once ctx is dead and the
// caller has stopped reading, remaining events are discarded so the run
// goroutine never outlives a dropped client.
func (o *Orchestrator) Run(ctx context.Context, messages []llm.Message, opts Options) (<-chan events.Event, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	workflowID := uuid.NewString()
	st := graph.NewState(workflowID, messages)
	st.DeepThinking = opts.DeepThinking
	st.SearchBeforePlanning = opts.SearchBeforePlanning

	bus := events.NewBus(o.capacity)
	log := o.log.With("workflow_id", workflowID)
	log.Info("Workflow starting",
		"messages", len(messages),
		"debug", opts.Debug,
		"deep_thinking", opts.DeepThinking,
		"search_before_planning", opts.SearchBeforePlanning)

	go func() {
		err := o.engine.Run(ctx, st, bus)
		switch {
		case err == nil:
			log.Info("Workflow completed", "task_id", st.TaskID)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			log.Info("Workflow cancelled", "task_id", st.TaskID)
		default:
			log.Error("Workflow failed", "task_id", st.TaskID, "error", err)
		}

		payload := events.EndOfWorkflowPayload{WorkflowID: workflowID}
		if st.PlannerEntered {
			payload.Messages = toWorkflowMessages(st.Messages)
		}
		// The closing event must go out even when ctx is already dead;
		// the bus is bounded and the caller drains until close.
		if perr := bus.Publish(context.WithoutCancel(ctx), events.Event{
			Type: events.TypeEndOfWorkflow,
			Data: payload,
		}); perr != nil {
			log.Error("Failed to publish workflow end", "error", perr)
		}
		bus.Close()
	}()

	// Forward bus events to the caller. A disconnected client stops reading
	// without closing anything on our side; once its context is cancelled and
	// the output buffer is full, the forwarder switches to discarding so the
	// engine's closing publishes never block on a bus nobody drains.
	out := make(chan events.Event, o.capacity)
	go func() {
		defer close(out)
		discard := false
		for ev := range bus.Events() {
			if discard {
				continue
			}
			select {
			case out <- ev:
			default:
				select {
				case out <- ev:
				case <-ctx.Done():
					discard = true
				}
			}
		}
	}()

	return out, nil
}

func toWorkflowMessages(msgs []llm.Message) []events.WorkflowMessage {
	out := make([]events.WorkflowMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, events.WorkflowMessage{
			Role:    string(m.Role),
			Name:    m.Name,
			Content: m.Content,
		})
	}
	return out
}
