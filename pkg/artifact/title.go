package artifact

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fusionworks/fusionai/pkg/llm"
)

// maxTitleLength bounds generated file titles.
const maxTitleLength = 50

// TitleNamer produces a file title for one worker summary.
type TitleNamer interface {
	Title(ctx context.Context, worker, content string) (string, error)
}

const titlePrompt = `请根据以下内容为文档生成一个简洁、准确的中文标题。

智能体类型：%s
文档内容预览：
%s

要求：
1. 标题必须是中文
2. 长度控制在%d个字符以内
3. 准确反映文档的核心内容和主题
4. 不包含特殊字符（如/、\、:、*、?、"、<、>、|）

只返回标题，不要其他说明文字。`

// LLMTitler asks an LLM for a short Chinese title summarizing the content.
type LLMTitler struct {
	client llm.Client
}

// NewLLMTitler wraps an LLM client as a TitleNamer.
func NewLLMTitler(client llm.Client) *LLMTitler {
	return &LLMTitler{client: client}
}

// Title generates and sanitizes a title. Only the first 1000 runes of content
// are sent to the model.
func (t *LLMTitler) Title(ctx context.Context, worker, content string) (string, error) {
	preview := []rune(content)
	if len(preview) > 1000 {
		preview = preview[:1000]
	}
	resp, err := t.client.Invoke(ctx, llm.Request{
		Messages: []llm.Message{
			llm.User(fmt.Sprintf(titlePrompt, worker, string(preview), maxTitleLength)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}
	title := SanitizeTitle(resp.Content, maxTitleLength)
	if title == "" {
		return "", fmt.Errorf("title generation produced an empty title")
	}
	return title, nil
}

var (
	forbiddenTitleChars = regexp.MustCompile(`[/\\:*?"<>|]`)
	titleWhitespace     = regexp.MustCompile(`\s+`)
)

// SanitizeTitle strips path-hostile characters, collapses whitespace and
// truncates to maxLen runes.
func SanitizeTitle(raw string, maxLen int) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`+"“”‘’")
	title = forbiddenTitleChars.ReplaceAllString(title, "")
	title = titleWhitespace.ReplaceAllString(title, " ")
	title = strings.TrimSpace(title)

	runes := []rune(title)
	if len(runes) > maxLen {
		title = string(runes[:maxLen-3]) + "..."
	}
	return title
}
