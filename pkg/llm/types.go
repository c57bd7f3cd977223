// Package llm provides a provider-agnostic gateway over the configured LLM
// backends. Agents never talk to a provider SDK directly; they obtain a
// Client from the Gateway and speak in terms of Message, Request and Chunk.
package llm

import (
	"context"
	"errors"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Sentinel errors for LLM interactions.
var (
	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("llm returned an empty response")

	// ErrMalformedResponse indicates the response could not be parsed as JSON
	// after fence stripping.
	ErrMalformedResponse = errors.New("llm response is not valid JSON")

	// ErrSchemaViolation indicates parsed JSON that fails schema validation.
	ErrSchemaViolation = errors.New("llm response violates schema")
)

// Message is one turn of a conversation in provider-neutral form.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant or RoleTool.
	Role string `json:"role"`

	// Name identifies which agent produced an assistant message. Carried in
	// workflow history so downstream nodes can attribute prior turns.
	Name string `json:"name,omitempty"`

	// Content is the text body.
	Content string `json:"content"`

	// ToolCalls holds tool invocations requested by an assistant turn.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a RoleTool message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a tool advertised to the model.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema map[string]any
}

// Request is a single completion request.
type Request struct {
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
}

// Response is a complete, non-streamed completion.
type Response struct {
	Content          string
	ReasoningContent string
	ToolCalls        []ToolCall
}

// Chunk is one streamed increment. Content and ReasoningContent never appear
// in the same chunk as ToolCalls; tool calls are delivered once, assembled,
// after the text stream ends. A non-nil Err terminates the stream.
type Chunk struct {
	Content          string
	ReasoningContent string
	ToolCalls        []ToolCall
	Err              error
}

// Client is the surface agents program against. Stream returns a channel that
// is closed when the stream ends; callers must drain it.
type Client interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message attributed to an agent.
func Assistant(name, content string) Message {
	return Message{Role: RoleAssistant, Name: name, Content: content}
}

// ToolResult builds a tool result message answering callID.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
