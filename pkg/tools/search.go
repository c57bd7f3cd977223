package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	apiKey     string
	maxResults int
	endpoint   string
	httpClient *http.Client
}

// NewTavilyClient creates a search client. maxResults caps hits per query.
func NewTavilyClient(apiKey string, maxResults int) *TavilyClient {
	return &TavilyClient{
		apiKey:     apiKey,
		maxResults: maxResults,
		endpoint:   tavilyEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search runs one query and returns up to maxResults hits.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	payload, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": c.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, body)
	}

	var decoded struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return decoded.Results, nil
}

// NewSearchTool wraps the client as the web_search tool.
func NewSearchTool(client *TavilyClient) *Tool {
	return &Tool{
		Name:        "web_search",
		Description: "Search the web for up-to-date information. Returns a JSON array of results with title, url and content.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
			},
			"required": []any{"query"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			results, err := client.Search(ctx, query)
			if err != nil {
				return "", err
			}
			data, err := json.Marshal(results)
			if err != nil {
				return "", fmt.Errorf("failed to encode search results: %w", err)
			}
			return string(data), nil
		},
	}
}
