// Package prompts holds the embedded system prompt templates and their
// renderer. Templates use <<VAR>> placeholders substituted from a flat
// variable map; no expression evaluation.
package prompts

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fusionworks/fusionai/pkg/config"
)

//go:embed templates/*.md
var templates embed.FS

var placeholderPattern = regexp.MustCompile(`<<([A-Z_]+)>>`)

// timeLayout matches the original prompt header format, e.g.
// "Mon Aug 24 2026 10:15:00 +0000".
const timeLayout = "Mon Jan 02 2006 15:04:05 -0700"

// BaseVars returns the variables every template may reference: the current
// time and the worker roster.
func BaseVars() map[string]string {
	return map[string]string{
		"CURRENT_TIME": time.Now().Format(timeLayout),
		"TEAM_MEMBERS": strings.Join(config.TeamMembers, ", "),
	}
}

// Render loads the named template and substitutes every <<VAR>> placeholder
// from vars. Unresolved placeholders are an error; a prompt with a literal
// <<...>> left in it means a caller forgot a variable, not a valid prompt.
func Render(name string, vars map[string]string) (string, error) {
	raw, err := templates.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}

	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(string(raw), func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %s is missing variables: %s", name, strings.Join(missing, ", "))
	}
	return rendered, nil
}

// RenderSystem renders the named template with BaseVars merged under vars.
// Pass nil when a template needs nothing beyond the base variables.
func RenderSystem(name string, vars map[string]string) (string, error) {
	merged := BaseVars()
	for k, v := range vars {
		merged[k] = v
	}
	return Render(name, merged)
}
