package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
)

// crawlBodyLimit caps the HTML read from a page.
const crawlBodyLimit = 2 << 20

// Crawler fetches a page and reduces it to readable markdown.
type Crawler struct {
	httpClient *http.Client
	converter  *md.Converter
}

// NewCrawler creates a crawler with a bounded HTTP client.
func NewCrawler() *Crawler {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Crawler{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		converter:  converter,
	}
}

// Crawl downloads rawURL, extracts the main article via readability, and
// converts it to markdown.
func (c *Crawler) Crawl(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build crawl request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FusionAIBot/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("crawl returned HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, crawlBodyLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	content := string(body)
	article, err := readability.FromReader(strings.NewReader(content), parsed)
	if err == nil && article.Content != "" {
		content = article.Content
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("failed to convert page to markdown: %w", err)
	}

	var out strings.Builder
	if article.Title != "" {
		out.WriteString("# " + article.Title + "\n\n")
	}
	out.WriteString(strings.TrimSpace(markdown))
	return out.String(), nil
}

// NewCrawlTool wraps the crawler as the crawl tool.
func NewCrawlTool(crawler *Crawler) *Tool {
	return &Tool{
		Name:        "crawl",
		Description: "Fetch a web page and return its readable content as markdown. Read-only; cannot interact with the page.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to crawl.",
				},
			},
			"required": []any{"url"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			rawURL, _ := args["url"].(string)
			return crawler.Crawl(ctx, rawURL)
		},
	}
}
