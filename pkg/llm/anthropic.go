package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/fusionworks/fusionai/pkg/config"
)

// anthropicMaxTokens is the Messages API hard requirement; the API refuses
// requests without an explicit cap.
const anthropicMaxTokens = 8192

// messagesAPI is the subset of the Anthropic SDK the backend uses, split out
// so tests can substitute a fake.
type messagesAPI interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// anthropicBackend speaks the Anthropic Messages API.
type anthropicBackend struct {
	messages messagesAPI
	model    string
	log      *slog.Logger
}

func newAnthropicBackend(p *config.ProviderConfig) *anthropicBackend {
	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return &anthropicBackend{
		messages: &client.Messages,
		model:    p.Model,
		log:      slog.Default().With("provider", p.Name),
	}
}

func (b *anthropicBackend) Invoke(ctx context.Context, req Request) (*Response, error) {
	params, err := b.messageParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := b.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("message request failed: %w", err)
	}

	resp := &Response{}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdk.TextBlock:
			resp.Content += v.Text
		case sdk.ThinkingBlock:
			resp.ReasoningContent += v.Thinking
		case sdk.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: string(v.Input),
			})
		}
	}
	if resp.Content == "" && resp.ReasoningContent == "" && len(resp.ToolCalls) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

func (b *anthropicBackend) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	params, err := b.messageParams(req)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)

		stream := b.messages.NewStreaming(ctx, params)
		defer stream.Close()

		acc := sdk.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				b.log.Error("Failed to accumulate stream event", "error", err)
				select {
				case out <- Chunk{Err: fmt.Errorf("failed to accumulate stream event: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			ev, ok := event.AsAny().(sdk.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			var c Chunk
			switch delta := ev.Delta.AsAny().(type) {
			case sdk.TextDelta:
				c.Content = delta.Text
			case sdk.ThinkingDelta:
				c.ReasoningContent = delta.Thinking
			}
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
			b.log.Error("Message stream failed", "error", err)
			select {
			case out <- Chunk{Err: fmt.Errorf("message stream failed: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		var calls []ToolCall
		for _, block := range acc.Content {
			if v, ok := block.AsAny().(sdk.ToolUseBlock); ok {
				calls = append(calls, ToolCall{
					ID:        v.ID,
					Name:      v.Name,
					Arguments: string(v.Input),
				})
			}
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

func (b *anthropicBackend) messageParams(req Request) (sdk.MessageNewParams, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(b.model),
		MaxTokens: anthropicMaxTokens,
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case RoleUser:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case RoleTool:
			params.Messages = append(params.Messages, sdk.NewUserMessage(
				sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		case RoleAssistant:
			var blocks []sdk.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(blocks...))
		default:
			return params, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}

	for _, t := range req.Tools {
		schema := sdk.ToolInputSchemaParam{ExtraFields: t.ParametersSchema}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if u.OfTool != nil && t.Description != "" {
			u.OfTool.Description = sdk.String(t.Description)
		}
		params.Tools = append(params.Tools, u)
	}

	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	return params, nil
}
