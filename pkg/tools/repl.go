package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runCommand executes a command and formats stdout/stderr the way the model
// expects: output on success, both streams on failure.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Execution failed: %s", err))
		if stdout.Len() > 0 {
			b.WriteString("\nstdout:\n" + stdout.String())
		}
		if stderr.Len() > 0 {
			b.WriteString("\nstderr:\n" + stderr.String())
		}
		return "", fmt.Errorf("%s", b.String())
	}

	out := stdout.String()
	if out == "" && stderr.Len() > 0 {
		out = stderr.String()
	}
	if strings.TrimSpace(out) == "" {
		out = "(no output)"
	}
	return out, nil
}

// NewPythonReplTool executes Python code in a subprocess.
func NewPythonReplTool() *Tool {
	return &Tool{
		Name:        "python_repl",
		Description: "Execute Python code and return its stdout. Use print(...) to surface values. Each call runs in a fresh interpreter; no state is preserved between calls.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "The Python code to execute.",
				},
			},
			"required": []any{"code"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			return runCommand(ctx, "python3", "-c", code)
		},
	}
}

// NewShellTool executes a shell command.
func NewShellTool() *Tool {
	return &Tool{
		Name:        "shell",
		Description: "Execute a shell command and return its output.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cmd": map[string]any{
					"type":        "string",
					"description": "The shell command to run.",
				},
			},
			"required": []any{"cmd"},
		},
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			cmd, _ := args["cmd"].(string)
			return runCommand(ctx, "bash", "-c", cmd)
		},
	}
}
