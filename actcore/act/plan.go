package act

import (
	"encoding/json"
	"fmt"
)

// Plan is one candidate action plan produced by the planning capability.
type Plan struct {
	Actions    []ActionSpec `json:"actions"`
	Confidence float64      `json:"confidence"`
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := &Plan{Confidence: p.Confidence}
	if p.Actions != nil {
		c.Actions = make([]ActionSpec, len(p.Actions))
		for i, a := range p.Actions {
			c.Actions[i] = a.Clone()
		}
	}
	return c
}

// ParsePlan extracts a Plan from raw model output. Models frequently wrap
// JSON in prose or markdown fences, so after a direct parse fails the first
// balanced JSON object found in the text is tried.
func ParsePlan(text string) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err == nil {
		return normalizePlan(&plan)
	}

	start := -1
	braceCount := 0
	for i, c := range text {
		if c == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if c == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				jsonStr := text[start : i+1]
				if err := json.Unmarshal([]byte(jsonStr), &plan); err == nil {
					return normalizePlan(&plan)
				}
			}
		}
	}

	return nil, fmt.Errorf("no valid JSON plan found in response")
}

// normalizePlan validates every parsed action and drops entries with no type.
func normalizePlan(plan *Plan) (*Plan, error) {
	actions := make([]ActionSpec, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		if err := a.Validate(); err != nil {
			continue
		}
		actions = append(actions, a)
	}
	plan.Actions = actions
	return plan, nil
}
