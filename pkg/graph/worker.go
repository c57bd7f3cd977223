package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fusionworks/fusionai/pkg/config"
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
)

// responseFormat wraps a worker's response before it rejoins the
// conversation, so the supervisor sees who produced what.
const responseFormat = "Response from %s:\n\n<response>\n%s\n</response>\n\n*Please execute the next step.*"

// workerNode runs one worker turn and returns to the supervisor. The plan is
// advisory: step events are emitted only when the worker matches the next
// unconsumed plan step, and the cursor never rewinds. A worker failure is
// surfaced to the supervisor as a message, not a task abort.
func workerNode(deps Deps, w WorkerRunner) NodeFunc {
	name := w.Name()
	log := slog.Default().With("node", name)

	return func(ctx context.Context, st *State, bus *events.Bus) (string, error) {
		stepIdx := -1
		total := 0
		if st.Plan != nil {
			total = len(st.Plan.Steps)
			for i := st.Cursor; i < len(st.Plan.Steps); i++ {
				if st.Plan.Steps[i].WorkerName == name {
					stepIdx = i
					break
				}
			}
		}

		if stepIdx >= 0 {
			if err := bus.Publish(ctx, events.Event{
				Type: events.TypeStepStarted,
				Data: events.StepPayload{
					StepIndex:  stepIdx + 1,
					TotalSteps: total,
					StepInfo:   st.Plan.Steps[stepIdx],
				},
			}); err != nil {
				return "", err
			}
		}

		turn := st.NextTurn(name)
		content, err := w.Run(ctx, st.WorkflowID, turn, st.Messages, bus)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", err
		case err != nil:
			log.Error("Worker turn failed", "task_id", st.TaskID, "error", err)
			content = fmt.Sprintf("Worker %s failed: %v", name, err)
		default:
			if _, serr := deps.Store.WriteSummary(ctx, st.TaskID, name, content); serr != nil {
				log.Warn("Failed to write summary artifact", "task_id", st.TaskID, "error", serr)
			}
			if name == config.WorkerReporter {
				if _, ferr := deps.Store.WriteFinal(ctx, st.TaskID, content); ferr != nil {
					log.Warn("Failed to write final integration artifact", "task_id", st.TaskID, "error", ferr)
				}
			}
		}

		st.Messages = append(st.Messages, llm.Message{
			Role:    llm.RoleUser,
			Name:    name,
			Content: fmt.Sprintf(responseFormat, name, content),
		})

		if stepIdx >= 0 {
			if err := bus.Publish(ctx, events.Event{
				Type: events.TypeStepEnd,
				Data: events.StepPayload{
					StepIndex:  stepIdx + 1,
					TotalSteps: total,
					StepInfo:   st.Plan.Steps[stepIdx],
				},
			}); err != nil {
				return "", err
			}
			st.Cursor = stepIdx + 1
		}

		return config.NodeSupervisor, nil
	}
}
