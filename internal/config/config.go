// Package config defines the deployment configuration for twinstack.
//
// All knobs the pipeline consumes live in one explicit struct with
// enumerated defaults; nothing is inherited implicitly from the invoking
// shell beyond the optional KUBECONFIG fallback.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML parsing of values like "10s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for a deployment run.
type Config struct {
	Cluster     ClusterConfig     `yaml:"cluster"`
	Release     ReleaseConfig     `yaml:"release"`
	Endpoints   []EndpointConfig  `yaml:"endpoints"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Broker      BrokerConfig      `yaml:"broker"`
	Topics      TopicsConfig      `yaml:"topics"`
	Network     NetworkConfig     `yaml:"network"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts"`

	// MarkerFile must exist in the working directory for a run to start.
	MarkerFile string `yaml:"markerFile"`

	// Output is the path of the generated configuration artifact.
	Output string `yaml:"output"`
}

// ClusterConfig describes how to reach the target cluster.
type ClusterConfig struct {
	Kubeconfig      string `yaml:"kubeconfig"`
	Namespace       string `yaml:"namespace"`
	CreateNamespace bool   `yaml:"createNamespace"`
}

// ReleaseConfig identifies the Helm release and its value overlays.
type ReleaseConfig struct {
	Name       string         `yaml:"name"`
	Repository string         `yaml:"repository"`
	Chart      string         `yaml:"chart"`
	Version    string         `yaml:"version"`
	ValueFiles []string       `yaml:"valueFiles"`
	Values     map[string]any `yaml:"values"`
}

// EndpointConfig names a service whose NodePort must be discovered.
type EndpointConfig struct {
	Name     string `yaml:"name"`
	Service  string `yaml:"service"`
	Required bool   `yaml:"required"`
}

// CredentialsConfig holds the static credentials written into the artifact.
type CredentialsConfig struct {
	DittoUser    string `yaml:"dittoUser"`
	DittoPass    string `yaml:"dittoPass"`
	RegistryUser string `yaml:"registryUser"`
	RegistryPass string `yaml:"registryPass"`
	Tenant       string `yaml:"tenant"`
	TrustStore   string `yaml:"trustStore"`
}

// BrokerConfig describes the in-cluster MQTT broker.
type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// TopicsConfig holds the fixed topic names.
type TopicsConfig struct {
	CarUpdates string `yaml:"carUpdates"`
}

// NetworkConfig controls host address resolution.
type NetworkConfig struct {
	// ExcludedCIDRs are cluster- and container-internal prefixes a resolved
	// host address must not fall into.
	ExcludedCIDRs []string `yaml:"excludedCIDRs"`
}

// TimeoutsConfig bounds the long-running pipeline stages.
type TimeoutsConfig struct {
	Install        Duration `yaml:"install"`
	Converge       Duration `yaml:"converge"`
	PollInterval   Duration `yaml:"pollInterval"`
	VerifyAttempts int      `yaml:"verifyAttempts"`
	VerifyInterval Duration `yaml:"verifyInterval"`
}

// Endpoint component names referenced across the pipeline.
const (
	EndpointDigitalTwin    = "digital-twin"
	EndpointDeviceRegistry = "device-registry"
	EndpointMQTTAdapter    = "mqtt-adapter"
)

// Default returns a configuration populated with all defaults.
func Default() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Kubeconfig:      defaultKubeconfig(),
			Namespace:       "cloud2edge",
			CreateNamespace: true,
		},
		Release: ReleaseConfig{
			Name:       "c2e",
			Repository: "https://eclipse.dev/packages/charts",
			Chart:      "cloud2edge",
		},
		Endpoints: []EndpointConfig{
			{Name: EndpointDigitalTwin, Service: "c2e-ditto-nginx", Required: true},
			{Name: EndpointDeviceRegistry, Service: "c2e-service-device-registry-ext"},
			{Name: EndpointMQTTAdapter, Service: "c2e-adapter-mqtt"},
		},
		Credentials: CredentialsConfig{
			DittoUser:    "ditto",
			DittoPass:    "ditto",
			RegistryUser: "device-manager",
			Tenant:       "org.fleetlab",
			TrustStore:   "certs/trusted-certs.pem",
		},
		Broker: BrokerConfig{
			Host: "mosquitto",
			Port: 1883,
		},
		Topics: TopicsConfig{
			CarUpdates: "cars/updates",
		},
		Network: NetworkConfig{
			ExcludedCIDRs: []string{
				"10.42.0.0/16", // k3s pods
				"10.43.0.0/16", // k3s services
				"172.17.0.0/16", // docker bridge
			},
		},
		Timeouts: TimeoutsConfig{
			Install:        Duration(15 * time.Minute),
			Converge:       Duration(5 * time.Minute),
			PollInterval:   Duration(10 * time.Second),
			VerifyAttempts: 30,
			VerifyInterval: Duration(2 * time.Second),
		},
		MarkerFile: "twinstack.yaml",
		Output:     ".env",
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Cluster.Namespace == "" {
		return fmt.Errorf("cluster.namespace must not be empty")
	}
	if c.Release.Name == "" {
		return fmt.Errorf("release.name must not be empty")
	}
	if c.Release.Repository == "" || c.Release.Chart == "" {
		return fmt.Errorf("release.repository and release.chart must not be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port %d out of range", c.Broker.Port)
	}
	if c.Timeouts.VerifyAttempts < 1 {
		return fmt.Errorf("timeouts.verifyAttempts must be at least 1")
	}

	required := 0
	seen := make(map[string]bool)
	for _, ep := range c.Endpoints {
		if ep.Name == "" || ep.Service == "" {
			return fmt.Errorf("endpoint entries need both name and service")
		}
		if seen[ep.Name] {
			return fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		seen[ep.Name] = true
		if ep.Required {
			required++
		}
	}
	if required == 0 {
		return fmt.Errorf("at least one endpoint must be required")
	}
	return nil
}

// Endpoint returns the endpoint config with the given name, if present.
func (c *Config) Endpoint(name string) (EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EndpointConfig{}, false
}

func defaultKubeconfig() string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}
