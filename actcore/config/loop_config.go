// Package config provides action-loop configuration - NO infrastructure URLs.
//
// This module contains ONLY configuration that is relevant to loop control:
//   - Iteration and timeout ceilings
//   - Repetition detection tuning
//   - Feature toggles (critic, escalation hints, persistent-task exit)
//   - Fatigue cost tables for the continuation governor
//
// Infrastructure configuration (model endpoints, embedding backends) belongs
// to the embedding caller. Environment parsing happens in the host process,
// never here.
package config

import (
	"fmt"
	"sync"
	"time"
)

// LoopConfig holds the construction contract of one action loop.
//
// The zero value is not usable; start from DefaultLoopConfig and override.
type LoopConfig struct {
	// Ceilings
	MaxIterations            int     `json:"max_iterations" yaml:"max_iterations"`
	CumulativeTimeoutSeconds float64 `json:"cumulative_timeout" yaml:"cumulative_timeout"`
	PerActionTimeoutSeconds  float64 `json:"per_action_timeout" yaml:"per_action_timeout"`

	// Repetition detection
	SmartRepetition        bool    `json:"smart_repetition" yaml:"smart_repetition"`
	RepetitionSimThreshold float64 `json:"repetition_sim_threshold" yaml:"repetition_sim_threshold"`

	// Feature toggles
	CriticEnabled       bool `json:"critic_enabled" yaml:"critic_enabled"`
	EscalationHints     bool `json:"escalation_hints" yaml:"escalation_hints"`
	PersistentTaskExit  bool `json:"persistent_task_exit" yaml:"persistent_task_exit"`
	DeferredCardContext bool `json:"deferred_card_context" yaml:"deferred_card_context"`

	// Critic sub-loop
	MaxCriticRetries int `json:"max_critic_retries" yaml:"max_critic_retries"`
}

// DefaultLoopConfig returns a LoopConfig with default values.
func DefaultLoopConfig() *LoopConfig {
	return &LoopConfig{
		// Ceilings
		MaxIterations:            7,
		CumulativeTimeoutSeconds: 60,
		PerActionTimeoutSeconds:  10,

		// Repetition detection
		SmartRepetition:        true,
		RepetitionSimThreshold: 0.85,

		// Feature toggles (off unless the caller opts in)
		CriticEnabled:       false,
		EscalationHints:     false,
		PersistentTaskExit:  false,
		DeferredCardContext: false,

		// Critic sub-loop
		MaxCriticRetries: 3,
	}
}

// LoopConfigFromMap creates a LoopConfig from a map.
// Unknown keys are ignored; missing keys keep defaults.
func LoopConfigFromMap(config map[string]any) *LoopConfig {
	c := DefaultLoopConfig()

	if v, ok := config["max_iterations"].(int); ok {
		c.MaxIterations = v
	} else if v, ok := config["max_iterations"].(float64); ok {
		c.MaxIterations = int(v)
	}
	if v, ok := config["cumulative_timeout"].(float64); ok {
		c.CumulativeTimeoutSeconds = v
	} else if v, ok := config["cumulative_timeout"].(int); ok {
		c.CumulativeTimeoutSeconds = float64(v)
	}
	if v, ok := config["per_action_timeout"].(float64); ok {
		c.PerActionTimeoutSeconds = v
	} else if v, ok := config["per_action_timeout"].(int); ok {
		c.PerActionTimeoutSeconds = float64(v)
	}
	if v, ok := config["smart_repetition"].(bool); ok {
		c.SmartRepetition = v
	}
	if v, ok := config["repetition_sim_threshold"].(float64); ok {
		c.RepetitionSimThreshold = v
	}
	if v, ok := config["critic_enabled"].(bool); ok {
		c.CriticEnabled = v
	}
	if v, ok := config["escalation_hints"].(bool); ok {
		c.EscalationHints = v
	}
	if v, ok := config["persistent_task_exit"].(bool); ok {
		c.PersistentTaskExit = v
	}
	if v, ok := config["deferred_card_context"].(bool); ok {
		c.DeferredCardContext = v
	}
	if v, ok := config["max_critic_retries"].(int); ok {
		c.MaxCriticRetries = v
	} else if v, ok := config["max_critic_retries"].(float64); ok {
		c.MaxCriticRetries = int(v)
	}

	return c
}

// ToMap converts config to a map.
func (c *LoopConfig) ToMap() map[string]any {
	return map[string]any{
		"max_iterations":           c.MaxIterations,
		"cumulative_timeout":       c.CumulativeTimeoutSeconds,
		"per_action_timeout":       c.PerActionTimeoutSeconds,
		"smart_repetition":         c.SmartRepetition,
		"repetition_sim_threshold": c.RepetitionSimThreshold,
		"critic_enabled":           c.CriticEnabled,
		"escalation_hints":         c.EscalationHints,
		"persistent_task_exit":     c.PersistentTaskExit,
		"deferred_card_context":    c.DeferredCardContext,
		"max_critic_retries":       c.MaxCriticRetries,
	}
}

// Validate checks that the ceilings are usable.
func (c *LoopConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.CumulativeTimeoutSeconds <= 0 {
		return fmt.Errorf("cumulative_timeout must be positive, got %v", c.CumulativeTimeoutSeconds)
	}
	if c.PerActionTimeoutSeconds <= 0 {
		return fmt.Errorf("per_action_timeout must be positive, got %v", c.PerActionTimeoutSeconds)
	}
	if c.RepetitionSimThreshold < 0 || c.RepetitionSimThreshold > 1 {
		return fmt.Errorf("repetition_sim_threshold must be in [0, 1], got %v", c.RepetitionSimThreshold)
	}
	if c.MaxCriticRetries < 1 {
		return fmt.Errorf("max_critic_retries must be >= 1, got %d", c.MaxCriticRetries)
	}
	return nil
}

// CumulativeTimeout returns the wall-clock ceiling as a Duration.
func (c *LoopConfig) CumulativeTimeout() time.Duration {
	return time.Duration(c.CumulativeTimeoutSeconds * float64(time.Second))
}

// PerActionTimeout returns the single-action ceiling as a Duration.
func (c *LoopConfig) PerActionTimeout() time.Duration {
	return time.Duration(c.PerActionTimeoutSeconds * float64(time.Second))
}

// =============================================================================
// GLOBAL CONFIG (set by host bootstrap)
// =============================================================================

var (
	globalLoopConfig *LoopConfig
	configMu         sync.RWMutex
)

// GetLoopConfig gets the loop configuration instance.
// Returns the injected config or defaults.
func GetLoopConfig() *LoopConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalLoopConfig == nil {
		return DefaultLoopConfig()
	}
	return globalLoopConfig
}

// SetLoopConfig sets the loop configuration instance.
// Called by the host bootstrap after parsing its own sources.
func SetLoopConfig(config *LoopConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalLoopConfig = config
}

// ResetLoopConfig resets loop config to nil (useful for testing).
// After reset, GetLoopConfig() will return defaults.
func ResetLoopConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalLoopConfig = nil
}
