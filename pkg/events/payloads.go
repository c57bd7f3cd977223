package events

// Delta is the incremental content of one streamed LLM chunk. At least one
// of the two fields is non-empty; chunks where both are empty are never
// published.
type Delta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// MessagePayload is the payload for message events.
type MessagePayload struct {
	MessageID string `json:"message_id"`
	Delta     Delta  `json:"delta"`
}

// AgentPayload is the payload for start_of_agent and end_of_agent events.
// AgentID is unique per turn: "<workflow_id>_<agent_name>_<turn>".
type AgentPayload struct {
	AgentName string `json:"agent_name"`
	AgentID   string `json:"agent_id"`
}

// LLMPayload is the payload for start_of_llm and end_of_llm events.
type LLMPayload struct {
	AgentName string `json:"agent_name"`
}

// ToolCallPayload is the payload for tool_call events.
type ToolCallPayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	ToolInput  string `json:"tool_input"`
}

// ToolCallResultPayload is the payload for tool_call_result events. A tool
// failure is reported here as an error string in ToolResult, never as a task
// failure.
type ToolCallResultPayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	ToolResult string `json:"tool_result"`
}

// PlanStep is one entry of a validated plan. Extra keys produced by the
// planner LLM are preserved for the client but not interpreted.
type PlanStep struct {
	WorkerName  string `json:"worker_name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`
}

// PlanGeneratedPayload is the payload for plan_generated events.
type PlanGeneratedPayload struct {
	PlanSteps  []PlanStep `json:"plan_steps"`
	TotalSteps int        `json:"total_steps"`
}

// StepPayload is the payload for step_started and step_end events.
// StepIndex is 1-based.
type StepPayload struct {
	StepIndex  int      `json:"step_index"`
	TotalSteps int      `json:"total_steps"`
	StepInfo   PlanStep `json:"step_info"`
}

// WorkflowMessage is a role/content pair echoed back in the end_of_workflow
// payload so clients can reconstruct the final conversation.
type WorkflowMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// StartOfWorkflowPayload is the payload for start_of_workflow events.
type StartOfWorkflowPayload struct {
	WorkflowID string            `json:"workflow_id"`
	Input      []WorkflowMessage `json:"input,omitempty"`
}

// EndOfWorkflowPayload is the payload for end_of_workflow events. Messages is
// populated only when the task went through the planner.
type EndOfWorkflowPayload struct {
	WorkflowID string            `json:"workflow_id"`
	Messages   []WorkflowMessage `json:"messages,omitempty"`
}
