package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fusionworks/fusionai/pkg/llm"
)

// ChatStreamRequest is the HTTP request body for POST /api/chat/stream.
type ChatStreamRequest struct {
	Messages             []ChatMessage `json:"messages" binding:"required"`
	Debug                bool          `json:"debug"`
	DeepThinkingMode     bool          `json:"deep_thinking_mode"`
	SearchBeforePlanning bool          `json:"search_before_planning"`
}

// ChatMessage is one inbound message. Content accepts either a plain string
// or an array of typed items (text, image_url), which browser clients send
// for mixed text-and-image turns.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent normalizes the two inbound content encodings to one string.
type MessageContent string

type contentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

func (m *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MessageContent(s)
		return nil
	}

	var items []contentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("content must be a string or an array of content items: %w", err)
	}

	var parts []string
	for _, item := range items {
		switch item.Type {
		case "text":
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		case "image_url":
			if item.ImageURL.URL != "" {
				parts = append(parts, "![image]("+item.ImageURL.URL+")")
			}
		}
	}
	*m = MessageContent(strings.Join(parts, "\n"))
	return nil
}

func toLLMMessages(msgs []ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{
			Role:    m.Role,
			Content: string(m.Content),
		})
	}
	return out
}
