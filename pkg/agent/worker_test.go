package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/llm"
	"github.com/fusionworks/fusionai/pkg/tools"
)

// scriptedClient replays one chunk sequence per Stream call.
type scriptedClient struct {
	calls    [][]llm.Chunk
	requests []llm.Request
}

func (s *scriptedClient) Invoke(_ context.Context, _ llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: "unused"}, nil
}

func (s *scriptedClient) Stream(_ context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	s.requests = append(s.requests, req)
	script := s.calls[0]
	if len(s.calls) > 1 {
		s.calls = s.calls[1:]
	}
	out := make(chan llm.Chunk, len(script))
	for _, c := range script {
		out <- c
	}
	close(out)
	return out, nil
}

func collectEvents(t *testing.T, bus *events.Bus, done func()) []events.Event {
	t.Helper()
	done()
	bus.Close()
	var got []events.Event
	for ev := range bus.Events() {
		got = append(got, ev)
	}
	return got
}

func testRegistry(t *testing.T, fn func() string) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(time.Second)
	r.Register(&tools.Tool{
		Name:        "probe",
		Description: "test tool",
		Schema:      map[string]any{"type": "object"},
		Fn: func(context.Context, map[string]any) (string, error) {
			return fn(), nil
		},
	})
	return r
}

func TestWorkerPlainResponse(t *testing.T) {
	client := &scriptedClient{calls: [][]llm.Chunk{
		{{Content: "hello "}, {Content: "world"}},
	}}
	w := New(Config{
		Name: "researcher", Prompt: "researcher",
		Client: client, Tools: tools.NewRegistry(time.Second), MaxSteps: 3,
	})
	bus := events.NewBus(64)

	var out string
	var err error
	evs := collectEvents(t, bus, func() {
		out, err = w.Run(context.Background(), "wf1", 1, []llm.Message{llm.User("hi")}, bus)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	var types []events.Type
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.Type{
		events.TypeStartOfAgent,
		events.TypeStartOfLLM,
		events.TypeMessage,
		events.TypeMessage,
		events.TypeEndOfLLM,
		events.TypeEndOfAgent,
	}, types)

	agentStart := evs[0].Data.(events.AgentPayload)
	assert.Equal(t, "researcher", agentStart.AgentName)
	assert.Equal(t, "wf1_researcher_1", agentStart.AgentID)
}

func TestWorkerToolLoop(t *testing.T) {
	client := &scriptedClient{calls: [][]llm.Chunk{
		{{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "probe", Arguments: "{}"}}}},
		{{Content: "final answer"}},
	}}
	invoked := 0
	reg := testRegistry(t, func() string {
		invoked++
		return "observation"
	})
	w := New(Config{Name: "coder", Prompt: "coder", Client: client, Tools: reg, MaxSteps: 3})
	bus := events.NewBus(64)

	var out string
	var err error
	evs := collectEvents(t, bus, func() {
		out, err = w.Run(context.Background(), "wf1", 2, []llm.Message{llm.User("do it")}, bus)
	})
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
	assert.Equal(t, 1, invoked)

	var types []events.Type
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []events.Type{
		events.TypeStartOfAgent,
		events.TypeStartOfLLM,
		events.TypeEndOfLLM,
		events.TypeToolCall,
		events.TypeToolCallResult,
		events.TypeStartOfLLM,
		events.TypeMessage,
		events.TypeEndOfLLM,
		events.TypeEndOfAgent,
	}, types)

	// The observation is fed back to the model as a tool message.
	last := client.requests[len(client.requests)-1]
	final := last.Messages[len(last.Messages)-1]
	assert.Equal(t, llm.RoleTool, final.Role)
	assert.Equal(t, "observation", final.Content)
	assert.Equal(t, "call-1", final.ToolCallID)
}

func TestWorkerStepCapFatal(t *testing.T) {
	client := &scriptedClient{calls: [][]llm.Chunk{
		{{ToolCalls: []llm.ToolCall{{ID: "c", Name: "probe", Arguments: "{}"}}}},
	}}
	reg := testRegistry(t, func() string { return "again" })
	w := New(Config{Name: "coder", Prompt: "coder", Client: client, Tools: reg, MaxSteps: 2})
	bus := events.NewBus(64)

	var err error
	collectEvents(t, bus, func() {
		_, err = w.Run(context.Background(), "wf1", 1, []llm.Message{llm.User("loop")}, bus)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 2 reason-act steps")
}

func TestWorkerReasoningOnlyChunksEmitted(t *testing.T) {
	client := &scriptedClient{calls: [][]llm.Chunk{
		{{ReasoningContent: "thinking..."}, {Content: "answer"}},
	}}
	w := New(Config{
		Name: "researcher", Prompt: "researcher",
		Client: client, Tools: tools.NewRegistry(time.Second), MaxSteps: 3,
	})
	bus := events.NewBus(64)

	evs := collectEvents(t, bus, func() {
		_, _ = w.Run(context.Background(), "wf1", 1, []llm.Message{llm.User("q")}, bus)
	})

	var deltas []events.Delta
	for _, ev := range evs {
		if ev.Type == events.TypeMessage {
			deltas = append(deltas, ev.Data.(events.MessagePayload).Delta)
		}
	}
	require.Len(t, deltas, 2)
	assert.Equal(t, "thinking...", deltas[0].ReasoningContent)
	assert.Empty(t, deltas[0].Content)
	assert.Equal(t, "answer", deltas[1].Content)
}

func TestWorkerThoughtFilter(t *testing.T) {
	client := &scriptedClient{calls: [][]llm.Chunk{
		{{Content: "让我查询数据库"}, {Content: "I need to check"}, {Content: "最终分析结果"}},
	}}
	w := New(Config{
		Name: "db_analyst", Prompt: "db_analyst",
		Client: client, Tools: tools.NewRegistry(time.Second), MaxSteps: 3,
		FilterThoughts: true,
	})
	bus := events.NewBus(64)

	var out string
	evs := collectEvents(t, bus, func() {
		out, _ = w.Run(context.Background(), "wf1", 1, []llm.Message{llm.User("查数据")}, bus)
	})

	// Thought chunks are suppressed from the stream but kept in the response.
	assert.Equal(t, "让我查询数据库I need to check最终分析结果", out)

	var messages []string
	for _, ev := range evs {
		if ev.Type == events.TypeMessage {
			messages = append(messages, ev.Data.(events.MessagePayload).Delta.Content)
		}
	}
	assert.Equal(t, []string{"最终分析结果"}, messages)
}
