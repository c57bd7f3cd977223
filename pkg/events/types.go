// Package events defines the typed event stream a workflow exposes to its
// caller, plus the bounded Bus that carries it.
//
// ════════════════════════════════════════════════════════════════
// Event ordering guarantees (within one task)
// ════════════════════════════════════════════════════════════════
//
// Events are delivered strictly in production order. Nodes run
// sequentially, so events from two agents never interleave:
//
//	start_of_agent {agent_name, agent_id}
//	  start_of_llm {agent_name}
//	    message {delta}            (repeated; skipped when both content
//	                                 and reasoning are empty)
//	  end_of_llm {agent_name}
//	  tool_call {id, name, input}
//	  tool_call_result {id, name, result}
//	end_of_agent {agent_name, agent_id}
//
// plan_generated precedes the first step_started. step_started[i]
// always precedes step_end[i]; a pair may be omitted entirely when the
// supervisor routes off-plan, but pairs are never reversed.
//
// start_of_workflow is deferred until the planner is entered: a
// coordinator that answers small talk directly produces message events
// without ever opening a workflow. end_of_workflow appears exactly
// once, as the last event, on every termination path including
// cancellation.
// ════════════════════════════════════════════════════════════════
package events

// Type identifies an event variant on the stream.
type Type string

// Workflow lifecycle events.
const (
	TypeStartOfWorkflow Type = "start_of_workflow"
	TypeEndOfWorkflow   Type = "end_of_workflow"
)

// Agent turn lifecycle events.
const (
	TypeStartOfAgent Type = "start_of_agent"
	TypeEndOfAgent   Type = "end_of_agent"
)

// LLM call lifecycle and streaming events.
const (
	TypeStartOfLLM Type = "start_of_llm"
	TypeEndOfLLM   Type = "end_of_llm"
	TypeMessage    Type = "message"
)

// Tool invocation events.
const (
	TypeToolCall       Type = "tool_call"
	TypeToolCallResult Type = "tool_call_result"
)

// Plan tracking events.
const (
	TypePlanGenerated Type = "plan_generated"
	TypeStepStarted   Type = "step_started"
	TypeStepEnd       Type = "step_end"
)

// Event is one tagged record on the stream. Data is one of the payload
// structs in payloads.go, matching the Type.
type Event struct {
	Type Type `json:"event"`
	Data any  `json:"data"`
}
