package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionworks/fusionai/pkg/llm"
)

func echoTool() *Tool {
	return &Tool{
		Name:        "echo",
		Description: "Echo the input.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(echoTool())

	res := r.Execute(context.Background(), llm.ToolCall{
		ID: "call-1", Name: "echo", Arguments: `{"text": "hello"}`,
	})
	assert.False(t, res.IsError)
	assert.Equal(t, "hello", res.Content)
	assert.Equal(t, "call-1", res.CallID)
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry(time.Second)

	res := r.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "nope", Arguments: "{}"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "Tool not found")
}

func TestRegistryInvalidArguments(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(echoTool())

	res := r.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "echo", Arguments: `{"wrong": 1}`})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "Invalid tool arguments")
}

func TestRegistryMalformedArguments(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(echoTool())

	res := r.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "echo", Arguments: `not json`})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "Failed to parse tool arguments")
}

func TestRegistryToolErrorBecomesResult(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&Tool{
		Name: "boom",
		Fn: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("backend unavailable")
		},
	})

	res := r.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "boom", Arguments: "{}"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "backend unavailable")
}

func TestRegistryTimeout(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	r.Register(&Tool{
		Name: "slow",
		Fn: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-time.After(5 * time.Second):
				return "too late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	})

	start := time.Now()
	res := r.Execute(context.Background(), llm.ToolCall{ID: "c", Name: "slow", Arguments: "{}"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "timed out")
	assert.Less(t, time.Since(start), time.Second)
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Register(&Tool{Name: "b"})
	r.Register(&Tool{Name: "a"})
	r.Register(echoTool())

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "b", defs[0].Name)
	assert.Equal(t, "a", defs[1].Name)
	assert.Equal(t, "echo", defs[2].Name)
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Has("echo"))
	assert.False(t, r.Has("missing"))
}
