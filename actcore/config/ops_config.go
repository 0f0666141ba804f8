package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OpsConfig holds the surface configuration of the ops daemon: listen
// addresses, tracing, and the loop/governor tables it serves. Loaded from
// an optional YAML file; flags in cmd/ override individual fields.
type OpsConfig struct {
	ServiceName string `yaml:"service_name"`

	// Listen addresses
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// ShutdownGraceSeconds bounds graceful server drain on shutdown.
	ShutdownGraceSeconds float64 `yaml:"shutdown_grace_seconds"`

	Loop     *LoopConfig     `yaml:"loop"`
	Governor *GovernorConfig `yaml:"governor"`
}

// DefaultOpsConfig returns an OpsConfig with default values.
func DefaultOpsConfig() *OpsConfig {
	return &OpsConfig{
		ServiceName:          "actengine",
		GRPCAddr:             ":50051",
		MetricsAddr:          ":9090",
		OTLPEndpoint:         "",
		ShutdownGraceSeconds: 10,
		Loop:                 DefaultLoopConfig(),
		Governor:             DefaultGovernorConfig(),
	}
}

// LoadOpsConfig reads a YAML file over the defaults. Keys absent from the
// file keep their default values.
func LoadOpsConfig(path string) (*OpsConfig, error) {
	c := DefaultOpsConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ops config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse ops config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ops config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the daemon surface and the embedded tables.
func (c *OpsConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.GRPCAddr == "" {
		return fmt.Errorf("grpc_addr is required")
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics_addr is required")
	}
	if c.ShutdownGraceSeconds <= 0 {
		return fmt.Errorf("shutdown_grace_seconds must be positive, got %v", c.ShutdownGraceSeconds)
	}
	if c.Loop != nil {
		if err := c.Loop.Validate(); err != nil {
			return fmt.Errorf("loop: %w", err)
		}
	}
	if c.Governor != nil {
		if err := c.Governor.Validate(); err != nil {
			return fmt.Errorf("governor: %w", err)
		}
	}
	return nil
}
