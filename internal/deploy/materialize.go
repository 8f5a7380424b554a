package deploy

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/fleetlab/twinstack/internal/config"
	"github.com/fleetlab/twinstack/internal/envfile"
)

// Artifact section names, in the order they appear in the generated file.
const (
	sectionDigitalTwin    = "Digital twin"
	sectionDeviceRegistry = "Device registry"
	sectionBroker         = "Message broker"
	sectionTopics         = "Topics"
	sectionAdapter        = "External adapter"
)

// BuildArtifact renders the resolved host address, endpoints, and static
// credentials into the configuration artifact. Pure: no I/O, deterministic
// for identical inputs. It assumes required endpoints are resolved; the
// resolver guarantees that before this is reached.
func BuildArtifact(cfg *config.Config, host string, endpoints map[string]Endpoint) (*envfile.Artifact, error) {
	a := envfile.New()

	twin := endpoints[config.EndpointDigitalTwin]
	twinAPI := fmt.Sprintf("http://%s:%d", host, twin.Port)
	twinWS, err := deriveWSURL(twinAPI)
	if err != nil {
		return nil, err
	}

	registry := endpoints[config.EndpointDeviceRegistry]
	registryAPI := ""
	if registry.Resolved() {
		registryAPI = fmt.Sprintf("https://%s:%d", host, registry.Port)
	}

	adapterPort := ""
	if adapter := endpoints[config.EndpointMQTTAdapter]; adapter.Resolved() {
		adapterPort = strconv.Itoa(int(adapter.Port))
	}

	entries := []struct{ section, key, value string }{
		{sectionDigitalTwin, "DITTO_WS_URL", twinWS},
		{sectionDigitalTwin, "DITTO_API_URL", twinAPI},
		{sectionDigitalTwin, "DITTO_USER", cfg.Credentials.DittoUser},
		{sectionDigitalTwin, "DITTO_PASS", cfg.Credentials.DittoPass},

		{sectionDeviceRegistry, "REGISTRY_API_URL", registryAPI},
		{sectionDeviceRegistry, "REGISTRY_USER", cfg.Credentials.RegistryUser},
		{sectionDeviceRegistry, "REGISTRY_PASS", cfg.Credentials.RegistryPass},
		{sectionDeviceRegistry, "REGISTRY_TENANT", cfg.Credentials.Tenant},
		{sectionDeviceRegistry, "REGISTRY_CA_FILE", cfg.Credentials.TrustStore},

		{sectionBroker, "MQTT_BROKER_HOST", cfg.Broker.Host},
		{sectionBroker, "MQTT_BROKER_PORT", strconv.Itoa(cfg.Broker.Port)},
		{sectionBroker, "MQTT_BROKER_USER", cfg.Broker.User},
		{sectionBroker, "MQTT_BROKER_PASSWORD", cfg.Broker.Password},

		{sectionTopics, "MQTT_CAR_UPDATES_TOPIC", cfg.Topics.CarUpdates},

		{sectionAdapter, "MQTT_ADAPTER_HOST", host},
		{sectionAdapter, "MQTT_ADAPTER_PORT", adapterPort},
	}

	for _, e := range entries {
		if err := a.Add(e.section, e.key, e.value); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// deriveWSURL converts the digital twin's HTTP API URL into its web-socket
// URL: http becomes ws (https becomes wss) on the same host and port, with
// the twin's fixed web-socket path.
func deriveWSURL(httpURL string) (string, error) {
	parsed, err := url.Parse(httpURL)
	if err != nil {
		return "", fmt.Errorf("invalid digital twin URL %q: %w", httpURL, err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws/2", scheme, parsed.Host), nil
}
