package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/respjson"

	"github.com/fusionworks/fusionai/pkg/config"
)

// openaiCompatBackend speaks the OpenAI Chat Completions protocol. It covers
// OpenAI itself plus every vendor exposing a compatible endpoint (DeepSeek,
// Qwen, Gemini's OpenAI surface, Ollama); only the base URL differs.
type openaiCompatBackend struct {
	client openai.Client
	model  string
	log    *slog.Logger
}

func newOpenAICompatBackend(p *config.ProviderConfig) *openaiCompatBackend {
	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	return &openaiCompatBackend{
		client: openai.NewClient(opts...),
		model:  p.Model,
		log:    slog.Default().With("provider", p.Name),
	}
}

func (b *openaiCompatBackend) Invoke(ctx context.Context, req Request) (*Response, error) {
	params, err := b.completionParams(req)
	if err != nil {
		return nil, err
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := completion.Choices[0].Message
	resp := &Response{
		Content:          msg.Content,
		ReasoningContent: extraString(msg.JSON.ExtraFields, "reasoning_content"),
	}
	for _, tc := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

func (b *openaiCompatBackend) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	params, err := b.completionParams(req)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)

		stream := b.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			c := Chunk{
				Content:          delta.Content,
				ReasoningContent: extraString(delta.JSON.ExtraFields, "reasoning_content"),
			}
			// Providers pad streams with empty keep-alive deltas; skip them.
			if c.Content == "" && c.ReasoningContent == "" {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			b.log.Error("Chat completion stream failed", "error", err)
			select {
			case out <- Chunk{Err: fmt.Errorf("chat completion stream failed: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		// Tool calls arrive fragmented across deltas; hand over the
		// accumulator's assembled view once the stream is done.
		if len(acc.Choices) == 0 {
			return
		}
		var calls []ToolCall
		for _, tc := range acc.Choices[0].Message.ToolCalls {
			calls = append(calls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if len(calls) > 0 {
			select {
			case out <- Chunk{ToolCalls: calls}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (b *openaiCompatBackend) completionParams(req Request) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		case RoleTool:
			params.Messages = append(params.Messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		default:
			return params, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.ParametersSchema),
			},
		})
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params, nil
}

// extraString pulls a string field the generated types do not model, such as
// DeepSeek's reasoning_content.
func extraString(fields map[string]respjson.Field, key string) string {
	f, ok := fields[key]
	if !ok || !f.Valid() {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(f.Raw()), &s); err != nil {
		return ""
	}
	return s
}
