package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultOpsConfig(t *testing.T) {
	config := DefaultOpsConfig()

	assert.Equal(t, "actengine", config.ServiceName)
	assert.Equal(t, ":50051", config.GRPCAddr)
	assert.Equal(t, ":9090", config.MetricsAddr)
	assert.Empty(t, config.OTLPEndpoint)
	assert.Equal(t, 10.0, config.ShutdownGraceSeconds)
	require.NotNil(t, config.Loop)
	require.NotNil(t, config.Governor)
	require.NoError(t, config.Validate())
}

func TestLoadOpsConfigMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
service_name: actengine-staging
grpc_addr: ":6000"
otlp_endpoint: "collector:4317"
loop:
  max_iterations: 4
  critic_enabled: true
governor:
  fatigue_budget: 12
  action_costs:
    web_search: 2.0
`)

	config, err := LoadOpsConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "actengine-staging", config.ServiceName)
	assert.Equal(t, ":6000", config.GRPCAddr)
	assert.Equal(t, "collector:4317", config.OTLPEndpoint)

	// Keys absent from the file keep defaults.
	assert.Equal(t, ":9090", config.MetricsAddr)
	assert.Equal(t, 10.0, config.ShutdownGraceSeconds)

	assert.Equal(t, 4, config.Loop.MaxIterations)
	assert.True(t, config.Loop.CriticEnabled)
	assert.Equal(t, 10.0, config.Loop.PerActionTimeoutSeconds)

	assert.Equal(t, 12.0, config.Governor.FatigueBudget)
	assert.Equal(t, 2.0, config.Governor.ActionCosts["web_search"])
}

func TestLoadOpsConfigMissingFile(t *testing.T) {
	_, err := LoadOpsConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadOpsConfigRejectsInvalid(t *testing.T) {
	path := writeConfigFile(t, `
loop:
  max_iterations: 0
`)

	_, err := LoadOpsConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
}

func TestLoadOpsConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "loop: [not a map")

	_, err := LoadOpsConfig(path)
	require.Error(t, err)
}
