package llm

import (
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusionworks/fusionai/pkg/config"
)

func TestCompletionParamsConversation(t *testing.T) {
	b := newOpenAICompatBackend(&config.ProviderConfig{Name: "qwen", Model: "qwen-max", APIKey: "k"})

	req := Request{
		Messages: []Message{
			System("be brief"),
			User("list the files"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{
				{ID: "call-1", Name: "bash_tool", Arguments: `{"cmd":"ls"}`},
			}},
			ToolResult("call-1", "a.txt"),
		},
		Tools: []ToolDefinition{{
			Name:             "bash_tool",
			Description:      "Run a shell command.",
			ParametersSchema: map[string]any{"type": "object"},
		}},
		Temperature: 0.7,
	}

	params, err := b.completionParams(req)
	require.NoError(t, err)

	assert.Equal(t, openai.ChatModel("qwen-max"), params.Model)
	require.Len(t, params.Messages, 4)

	require.NotNil(t, params.Messages[2].OfAssistant)
	calls := params.Messages[2].OfAssistant.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "bash_tool", calls[0].Function.Name)
	assert.Equal(t, `{"cmd":"ls"}`, calls[0].Function.Arguments)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "bash_tool", params.Tools[0].Function.Name)
	assert.Equal(t, "Run a shell command.", params.Tools[0].Function.Description.Value)

	assert.Equal(t, 0.7, params.Temperature.Value)
}

func TestCompletionParamsRejectsUnknownRole(t *testing.T) {
	b := newOpenAICompatBackend(&config.ProviderConfig{Model: "m"})

	_, err := b.completionParams(Request{Messages: []Message{{Role: "narrator", Content: "x"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported message role")
}
