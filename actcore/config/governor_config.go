package config

import (
	"fmt"
	"sync"
)

// GovernorConfig holds the fatigue accounting tables consumed by the
// continuation governor. The loop never computes costs itself; it reads
// them from here.
type GovernorConfig struct {
	// FatigueBudget is the per-run ceiling on cumulative fatigue.
	FatigueBudget float64 `json:"fatigue_budget" yaml:"fatigue_budget"`

	// FatigueGrowthRate compounds per iteration, making late iterations
	// cost more than early ones. 1.0 disables compounding.
	FatigueGrowthRate float64 `json:"fatigue_growth_rate" yaml:"fatigue_growth_rate"`

	// ActionCosts maps action types to base fatigue cost.
	ActionCosts map[string]float64 `json:"action_costs" yaml:"action_costs"`

	// DefaultActionCost applies to action types missing from ActionCosts.
	DefaultActionCost float64 `json:"default_action_cost" yaml:"default_action_cost"`
}

// DefaultGovernorConfig returns a GovernorConfig with default values.
// The default budget admits a full seven-iteration run of single actions
// with headroom; the iteration cap, not fatigue, is the usual stop.
func DefaultGovernorConfig() *GovernorConfig {
	return &GovernorConfig{
		FatigueBudget:     20.0,
		FatigueGrowthRate: 1.15,
		ActionCosts:       map[string]float64{},
		DefaultActionCost: 1.0,
	}
}

// GovernorConfigFromMap creates a GovernorConfig from a map.
// Unknown keys are ignored; missing keys keep defaults.
func GovernorConfigFromMap(config map[string]any) *GovernorConfig {
	c := DefaultGovernorConfig()

	if v, ok := config["fatigue_budget"].(float64); ok {
		c.FatigueBudget = v
	} else if v, ok := config["fatigue_budget"].(int); ok {
		c.FatigueBudget = float64(v)
	}
	if v, ok := config["fatigue_growth_rate"].(float64); ok {
		c.FatigueGrowthRate = v
	} else if v, ok := config["fatigue_growth_rate"].(int); ok {
		c.FatigueGrowthRate = float64(v)
	}
	if costs, ok := config["action_costs"].(map[string]any); ok {
		c.ActionCosts = make(map[string]float64, len(costs))
		for actionType, cost := range costs {
			if v, ok := cost.(float64); ok {
				c.ActionCosts[actionType] = v
			} else if v, ok := cost.(int); ok {
				c.ActionCosts[actionType] = float64(v)
			}
		}
	} else if costs, ok := config["action_costs"].(map[string]float64); ok {
		c.ActionCosts = make(map[string]float64, len(costs))
		for actionType, cost := range costs {
			c.ActionCosts[actionType] = cost
		}
	}
	if v, ok := config["default_action_cost"].(float64); ok {
		c.DefaultActionCost = v
	} else if v, ok := config["default_action_cost"].(int); ok {
		c.DefaultActionCost = float64(v)
	}

	return c
}

// ToMap converts config to a map.
func (c *GovernorConfig) ToMap() map[string]any {
	costs := make(map[string]any, len(c.ActionCosts))
	for actionType, cost := range c.ActionCosts {
		costs[actionType] = cost
	}
	return map[string]any{
		"fatigue_budget":      c.FatigueBudget,
		"fatigue_growth_rate": c.FatigueGrowthRate,
		"action_costs":        costs,
		"default_action_cost": c.DefaultActionCost,
	}
}

// Validate checks that the tables are usable.
func (c *GovernorConfig) Validate() error {
	if c.FatigueBudget <= 0 {
		return fmt.Errorf("fatigue_budget must be positive, got %v", c.FatigueBudget)
	}
	if c.FatigueGrowthRate < 1.0 {
		return fmt.Errorf("fatigue_growth_rate must be >= 1.0, got %v", c.FatigueGrowthRate)
	}
	if c.DefaultActionCost < 0 {
		return fmt.Errorf("default_action_cost must be >= 0, got %v", c.DefaultActionCost)
	}
	for actionType, cost := range c.ActionCosts {
		if cost < 0 {
			return fmt.Errorf("action cost for '%s' must be >= 0, got %v", actionType, cost)
		}
	}
	return nil
}

// CostFor returns the base fatigue cost for an action type.
func (c *GovernorConfig) CostFor(actionType string) float64 {
	if cost, ok := c.ActionCosts[actionType]; ok {
		return cost
	}
	return c.DefaultActionCost
}

// Clone returns a deep copy of the config.
func (c *GovernorConfig) Clone() *GovernorConfig {
	clone := *c
	clone.ActionCosts = make(map[string]float64, len(c.ActionCosts))
	for actionType, cost := range c.ActionCosts {
		clone.ActionCosts[actionType] = cost
	}
	return &clone
}

// =============================================================================
// GLOBAL CONFIG (set by host bootstrap)
// =============================================================================

var (
	globalGovernorConfig *GovernorConfig
	governorConfigMu     sync.RWMutex
)

// GetGovernorConfig gets the governor configuration instance.
// Returns the injected config or defaults.
func GetGovernorConfig() *GovernorConfig {
	governorConfigMu.RLock()
	defer governorConfigMu.RUnlock()

	if globalGovernorConfig == nil {
		return DefaultGovernorConfig()
	}
	return globalGovernorConfig
}

// SetGovernorConfig sets the governor configuration instance.
func SetGovernorConfig(config *GovernorConfig) {
	governorConfigMu.Lock()
	defer governorConfigMu.Unlock()

	globalGovernorConfig = config
}

// ResetGovernorConfig resets governor config to nil (useful for testing).
func ResetGovernorConfig() {
	governorConfigMu.Lock()
	defer governorConfigMu.Unlock()

	globalGovernorConfig = nil
}
