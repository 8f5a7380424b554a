package deploy

import (
	"context"
	"fmt"
	"log"

	"github.com/fleetlab/twinstack/internal/cluster"
	"github.com/fleetlab/twinstack/internal/config"
)

// Endpoint is a component endpoint with its resolved external port.
// Port 0 means unresolved, which is only legal for optional endpoints.
type Endpoint struct {
	Name     string
	Service  string
	Required bool
	Port     int32
}

// Resolved reports whether a port was found.
func (e Endpoint) Resolved() bool {
	return e.Port > 0
}

// ResolveEndpoints looks up the externally exposed NodePort of each named
// component. Required endpoints are resolved first: a missing required
// endpoint fails immediately, before any optional lookup is attempted.
// A missing optional endpoint is recorded as unresolved with a warning;
// there are no retries since absence reflects a real deployment state.
func ResolveEndpoints(ctx context.Context, client *cluster.Client, namespace string, specs []config.EndpointConfig) (map[string]Endpoint, error) {
	endpoints := make(map[string]Endpoint, len(specs))

	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		port, err := client.ServiceNodePort(ctx, namespace, spec.Service)
		if err != nil {
			return nil, fmt.Errorf("required endpoint %s (service %s) not resolvable: %w", spec.Name, spec.Service, err)
		}
		log.Printf("[endpoints] %s -> port %d", spec.Name, port)
		endpoints[spec.Name] = Endpoint{Name: spec.Name, Service: spec.Service, Required: true, Port: port}
	}

	for _, spec := range specs {
		if spec.Required {
			continue
		}
		ep := Endpoint{Name: spec.Name, Service: spec.Service}
		port, err := client.ServiceNodePort(ctx, namespace, spec.Service)
		if err != nil {
			log.Printf("[endpoints] WARNING: optional endpoint %s (service %s) not resolvable: %v", spec.Name, spec.Service, err)
		} else {
			ep.Port = port
			log.Printf("[endpoints] %s -> port %d", spec.Name, port)
		}
		endpoints[spec.Name] = ep
	}

	return endpoints, nil
}
