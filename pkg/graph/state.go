// Package graph implements the workflow graph: a static node table with
// dynamic routing. The coordinator short-circuits small talk, the planner
// produces a step plan, and the supervisor dispatches workers until it
// decides to finish.
package graph

import (
	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
)

// State is the mutable per-task session state threaded through the nodes.
// It is owned by a single engine run and never shared across tasks.
type State struct {
	// WorkflowID identifies the run in event payloads and agent ids.
	WorkflowID string

	// TaskID names the artifact directory. Set by the coordinator.
	TaskID string

	// Input holds the caller's original messages, converted once for the
	// start_of_workflow payload.
	Input []events.WorkflowMessage

	// Messages is the running conversation: the caller's input plus the
	// planner output and worker responses appended as the task progresses.
	Messages []llm.Message

	// Plan is the parsed planner output, nil until planning succeeds.
	Plan *Plan

	// Cursor is the index of the next unconsumed plan step. It never
	// rewinds.
	Cursor int

	// PlannerEntered records whether the task made it past the
	// coordinator.
	PlannerEntered bool

	// DeepThinking selects the reasoning LLM role for the planner.
	DeepThinking bool

	// SearchBeforePlanning injects one web-search digest into the
	// planner's input.
	SearchBeforePlanning bool

	turns map[string]int
}

// NewState builds the initial state for one workflow run.
func NewState(workflowID string, messages []llm.Message) *State {
	input := make([]events.WorkflowMessage, 0, len(messages))
	for _, m := range messages {
		input = append(input, events.WorkflowMessage{
			Role:    string(m.Role),
			Name:    m.Name,
			Content: m.Content,
		})
	}
	return &State{
		WorkflowID: workflowID,
		Input:      input,
		Messages:   messages,
		turns:      make(map[string]int),
	}
}

// NextTurn increments and returns the per-agent turn counter used to build
// agent ids.
func (s *State) NextTurn(agent string) int {
	if s.turns == nil {
		s.turns = make(map[string]int)
	}
	s.turns[agent]++
	return s.turns[agent]
}
