package graph

import (
	"encoding/json"
	"fmt"

	"github.com/fusionworks/fusionai/pkg/events"
	"github.com/fusionworks/fusionai/pkg/jsonclean"
)

// Plan is the planner's structured output.
type Plan struct {
	Thought string            `json:"thought"`
	Title   string            `json:"title"`
	Steps   []events.PlanStep `json:"steps"`
}

// ParsePlan strips markdown code fences from raw planner output and parses
// it. A plan without steps is rejected.
func ParsePlan(raw string) (*Plan, error) {
	cleaned := jsonclean.Clean(raw)

	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan contains no steps")
	}
	return &plan, nil
}
