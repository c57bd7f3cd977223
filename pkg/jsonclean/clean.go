// Package jsonclean strips markdown code-fence wrappers from LLM output so
// that the remaining text can be fed to a JSON parser. Language models asked
// for JSON routinely wrap it in ``` or ```json fences; this package undoes
// that without touching the payload itself.
package jsonclean

import (
	"regexp"
	"strings"
)

// codeBlockPattern matches a complete fenced code block with an optional
// language tag, capturing the inner content.
var codeBlockPattern = regexp.MustCompile("(?s)^```(?:\\w+[ \\t]*)?\\n?(.*?)\\n?```$")

// Clean removes a surrounding markdown code fence from an LLM response.
// It handles three shapes: a complete fenced block (with or without a
// language tag), a dangling opening fence, and a dangling closing fence.
// Input that carries no fence is returned trimmed but otherwise unchanged.
func Clean(response string) string {
	cleaned := strings.TrimSpace(response)

	if m := codeBlockPattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}

	// No complete block matched; fall back to prefix/suffix stripping.
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimSpace(cleaned[len("```json"):])
	} else if strings.HasPrefix(cleaned, "```") {
		if idx := strings.IndexByte(cleaned, '\n'); idx != -1 {
			cleaned = strings.TrimSpace(cleaned[idx+1:])
		} else {
			cleaned = strings.TrimSpace(cleaned[3:])
		}
	}

	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(cleaned[:len(cleaned)-3])
	}

	return strings.TrimSpace(cleaned)
}
