// Package tools implements the worker tool registry and the canonical tool
// set: web search, crawling, code execution, read-only database access,
// document analysis and artifact lookup.
//
// Tool failures are never Go errors at the call site: a failed tool returns
// its error message as the result content with IsError set, so the model can
// observe the failure and recover.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fusionworks/fusionai/pkg/llm"
)

// Func is the implementation of a tool. Args have already been validated
// against the tool's schema.
type Func func(ctx context.Context, args map[string]any) (string, error)

// Tool pairs a callable with its model-facing contract.
type Tool struct {
	Name        string
	Description string
	// Schema is a JSON Schema object describing the parameters.
	Schema map[string]any
	Fn     Func
}

// Result is the outcome of one tool invocation.
type Result struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Registry holds the tool subset one worker may use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	order   []string
	timeout time.Duration
	log     *slog.Logger
}

// NewRegistry creates a registry whose tool calls are bounded by timeout.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		timeout: timeout,
		log:     slog.Default().With("component", "tools"),
	}
}

// Register adds a tool. Re-registering a name replaces the tool.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether the named tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the tool contracts in registration order, for
// advertising to the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:             t.Name,
			Description:      t.Description,
			ParametersSchema: t.Schema,
		})
	}
	return defs
}

// Execute runs one tool call.
//
// Flow:
//  1. Look up the tool by name
//  2. Parse the arguments JSON
//  3. Validate arguments against the tool schema
//  4. Run the tool under the registry timeout
//  5. Return the outcome; failures become error results, not Go errors
//
// The tool function itself runs to completion even on timeout; its result is
// discarded.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) *Result {
	tool, ok := r.Get(call.Name)
	if !ok {
		return &Result{
			CallID: call.ID, Name: call.Name,
			Content: fmt.Sprintf("Tool not found: %s", call.Name),
			IsError: true,
		}
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return &Result{
				CallID: call.ID, Name: call.Name,
				Content: fmt.Sprintf("Failed to parse tool arguments: %s", err),
				IsError: true,
			}
		}
	}

	if tool.Schema != nil {
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(tool.Schema),
			gojsonschema.NewGoLoader(args))
		if err != nil {
			return &Result{
				CallID: call.ID, Name: call.Name,
				Content: fmt.Sprintf("Failed to validate tool arguments: %s", err),
				IsError: true,
			}
		}
		if !result.Valid() {
			return &Result{
				CallID: call.ID, Name: call.Name,
				Content: fmt.Sprintf("Invalid tool arguments: %s", result.Errors()[0].String()),
				IsError: true,
			}
		}
	}

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)
	toolCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	go func() {
		content, err := tool.Fn(toolCtx, args)
		done <- outcome{content: content, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			r.log.Warn("Tool execution failed", "tool", call.Name, "error", out.err)
			return &Result{
				CallID: call.ID, Name: call.Name,
				Content: fmt.Sprintf("Tool execution failed: %s", out.err),
				IsError: true,
			}
		}
		r.log.Debug("Tool executed", "tool", call.Name, "duration", time.Since(started))
		return &Result{CallID: call.ID, Name: call.Name, Content: out.content}
	case <-toolCtx.Done():
		r.log.Warn("Tool execution timed out", "tool", call.Name, "timeout", r.timeout)
		return &Result{
			CallID: call.ID, Name: call.Name,
			Content: fmt.Sprintf("Tool execution timed out after %s", r.timeout),
			IsError: true,
		}
	}
}
