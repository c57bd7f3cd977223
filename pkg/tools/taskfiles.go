package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fusionworks/fusionai/pkg/artifact"
)

// NewTaskFilesTool exposes the artifact index of a task as JSON, used by the
// reporter to reference generated files in its final report.
func NewTaskFilesTool(store *artifact.Store) *Tool {
	return &Tool{
		Name:        "task_files_json",
		Description: "List all markdown files generated for a task as JSON, each with its name, access URL and size.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The task identifier.",
				},
			},
			"required": []any{"task_id"},
		},
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			taskID, _ := args["task_id"].(string)
			files, err := store.TaskFiles(taskID)
			if err != nil {
				return "", fmt.Errorf("failed to list task files: %w", err)
			}
			data, err := json.Marshal(map[string]any{
				"task_id":     taskID,
				"total_files": len(files),
				"files":       files,
			})
			if err != nil {
				return "", fmt.Errorf("failed to encode task files: %w", err)
			}
			return string(data), nil
		},
	}
}
