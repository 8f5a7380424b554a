package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twinstack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "cloud2edge", cfg.Cluster.Namespace)
	assert.Equal(t, "c2e", cfg.Release.Name)
	assert.Equal(t, 1883, cfg.Broker.Port)
	assert.Equal(t, "cars/updates", cfg.Topics.CarUpdates)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.Converge.Std())
	assert.Equal(t, 10*time.Second, cfg.Timeouts.PollInterval.Std())
	assert.Equal(t, 30, cfg.Timeouts.VerifyAttempts)

	ep, ok := cfg.Endpoint(EndpointDigitalTwin)
	require.True(t, ok)
	assert.True(t, ep.Required)
}

func TestLoadFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
cluster:
  namespace: iot-staging
release:
  name: twin
  version: 0.9.1
timeouts:
  converge: 2m
  pollInterval: 5s
output: config/.env
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "iot-staging", cfg.Cluster.Namespace)
	assert.Equal(t, "twin", cfg.Release.Name)
	assert.Equal(t, "0.9.1", cfg.Release.Version)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.Converge.Std())
	assert.Equal(t, 5*time.Second, cfg.Timeouts.PollInterval.Std())
	assert.Equal(t, "config/.env", cfg.Output)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://eclipse.dev/packages/charts", cfg.Release.Repository)
	assert.Equal(t, 1883, cfg.Broker.Port)
}

func TestLoadFile_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
timeouts:
  converge: soon
`)
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty namespace",
			mutate:  func(c *Config) { c.Cluster.Namespace = "" },
			wantErr: "cluster.namespace",
		},
		{
			name:    "empty release name",
			mutate:  func(c *Config) { c.Release.Name = "" },
			wantErr: "release.name",
		},
		{
			name:    "broker port out of range",
			mutate:  func(c *Config) { c.Broker.Port = 70000 },
			wantErr: "broker.port",
		},
		{
			name: "duplicate endpoint",
			mutate: func(c *Config) {
				c.Endpoints = append(c.Endpoints, EndpointConfig{Name: EndpointDigitalTwin, Service: "x"})
			},
			wantErr: "duplicate endpoint",
		},
		{
			name: "no required endpoint",
			mutate: func(c *Config) {
				for i := range c.Endpoints {
					c.Endpoints[i].Required = false
				}
			},
			wantErr: "at least one endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
