package jsonclean

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare JSON untouched",
			input:    `{"steps": []}`,
			expected: `{"steps": []}`,
		},
		{
			name:     "json fence",
			input:    "```json\n{\"steps\": []}\n```",
			expected: `{"steps": []}`,
		},
		{
			name:     "plain fence",
			input:    "```\n{\"steps\": []}\n```",
			expected: `{"steps": []}`,
		},
		{
			name:     "fence with surrounding whitespace",
			input:    "  \n```json\n{\"a\": 1}\n```\n  ",
			expected: `{"a": 1}`,
		},
		{
			name:     "dangling opening fence",
			input:    "```json\n{\"a\": 1}",
			expected: `{"a": 1}`,
		},
		{
			name:     "dangling closing fence",
			input:    "{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "language tag other than json",
			input:    "```python\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "inner backticks preserved",
			input:    "```json\n{\"code\": \"use `go` here\"}\n```",
			expected: "{\"code\": \"use `go` here\"}",
		},
		{
			name:     "not json at all",
			input:    "not json at all",
			expected: "not json at all",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

// TestCleanRoundTrip verifies that for any JSON object and any fence wrapper,
// cleaning the wrapped text yields something that parses back to the same value.
func TestCleanRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	wrappers := []func(string) string{
		func(s string) string { return s },
		func(s string) string { return "```\n" + s + "\n```" },
		func(s string) string { return "```json\n" + s + "\n```" },
	}

	properties.Property("clean(wrap(J)) parses to J", prop.ForAll(
		func(key, value string, wrapperIdx int) bool {
			obj := map[string]string{key: value}
			encoded, err := json.Marshal(obj)
			if err != nil {
				return false
			}
			wrapped := wrappers[wrapperIdx](string(encoded))

			var decoded map[string]string
			if err := json.Unmarshal([]byte(Clean(wrapped)), &decoded); err != nil {
				return false
			}
			return decoded[key] == value
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(0, len(wrappers)-1),
	))

	properties.TestingRun(t)
}

func TestCleanPreservesMultilineJSON(t *testing.T) {
	plan := "{\n  \"steps\": [\n    {\"worker_name\": \"researcher\"}\n  ]\n}"
	cleaned := Clean("```json\n" + plan + "\n```")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(cleaned), &decoded))
	assert.Contains(t, decoded, "steps")
}
